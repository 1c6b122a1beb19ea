package backend

import "sync"

// hub fans status events out to subscribers. Each subscriber owns an unbounded
// pending queue drained by a pump goroutine, so a slow consumer delays only
// itself and no terminal event is ever dropped.
type hub struct {
	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

type subscriber struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending []Event
	closed  bool
	out     chan Event
}

func newHub() *hub {
	return &hub{subs: make(map[*subscriber]struct{})}
}

func (h *hub) publish(evt Event) {
	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subs))
	for sub := range h.subs {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		sub.enqueue(evt)
	}
}

func (h *hub) subscribe() (<-chan Event, func()) {
	sub := &subscriber{out: make(chan Event)}
	sub.cond = sync.NewCond(&sub.mu)

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	go sub.pump()

	release := func() {
		h.mu.Lock()
		delete(h.subs, sub)
		h.mu.Unlock()
		sub.close()
	}
	return sub.out, release
}

func (s *subscriber) enqueue(evt Event) {
	s.mu.Lock()
	if !s.closed {
		s.pending = append(s.pending, evt)
		s.cond.Signal()
	}
	s.mu.Unlock()
}

func (s *subscriber) pump() {
	for {
		s.mu.Lock()
		for len(s.pending) == 0 && !s.closed {
			s.cond.Wait()
		}
		if s.closed {
			s.mu.Unlock()
			close(s.out)
			return
		}
		batch := s.pending
		s.pending = nil
		s.mu.Unlock()

		for _, evt := range batch {
			s.out <- evt
		}
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	s.closed = true
	s.pending = nil
	s.cond.Signal()
	s.mu.Unlock()

	// Drain so the pump can observe closed even while blocked on a send.
	go func() {
		for range s.out {
		}
	}()
}
