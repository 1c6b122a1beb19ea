package backend

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"resound/internal/encoding"
	"resound/internal/logging"
	"resound/internal/services"
)

const submitQueueCapacity = 1024

// Pool executes conversion jobs on a fixed set of workers backed by the
// encoder client. It implements Service for in-process use: a registry of
// non-terminal jobs provides idempotent submission and per-tag admission
// counts, and every state change is published to the event hub.
type Pool struct {
	client  encoding.Client
	logger  *slog.Logger
	workers int
	hub     *hub

	mu      sync.Mutex
	jobs    map[string]*poolJob
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	queue   chan *poolJob
}

type poolJob struct {
	spec   JobSpec
	state  State
	cancel context.CancelFunc
}

// NewPool constructs a pool with the given parallelism. The pool's own worker
// count is independent of the scheduler's admission ceiling; the scheduler
// throttles itself via ActiveCount.
func NewPool(client encoding.Client, workers int, logger *slog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{
		client:  client,
		logger:  logging.NewComponentLogger(logger, "backend"),
		workers: workers,
		hub:     newHub(),
		jobs:    make(map[string]*poolJob),
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return errors.New("pool already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.queue = make(chan *poolJob, submitQueueCapacity)
	p.running = true

	p.wg.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		go p.runWorker(runCtx)
	}
	return nil
}

// Stop terminates the workers and waits for in-flight encodes to unwind.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	cancel := p.cancel
	p.running = false
	p.cancel = nil
	p.mu.Unlock()

	cancel()
	p.wg.Wait()
}

// Submit implements Service. Re-submitting a file with a non-terminal job is a
// safe no-op returning the existing handle.
func (p *Pool) Submit(ctx context.Context, spec JobSpec) (Handle, error) {
	if spec.FileID == "" {
		return Handle{}, services.Wrap(services.ErrValidation, "backend", "submit", "file id required", nil)
	}

	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return Handle{}, services.Wrap(services.ErrUnavailable, "backend", "submit", "pool not running", nil)
	}
	if existing, ok := p.jobs[spec.FileID]; ok {
		handle := Handle{FileID: existing.spec.FileID, BatchTag: existing.spec.BatchTag}
		p.mu.Unlock()
		return handle, nil
	}
	job := &poolJob{spec: spec, state: StateQueued}
	p.jobs[spec.FileID] = job
	queue := p.queue
	p.mu.Unlock()

	select {
	case queue <- job:
	default:
		p.mu.Lock()
		delete(p.jobs, spec.FileID)
		p.mu.Unlock()
		return Handle{}, services.Wrap(services.ErrUnavailable, "backend", "submit", "queue full", nil)
	}

	p.hub.publish(Event{FileID: spec.FileID, BatchTag: spec.BatchTag, State: StateQueued})
	return Handle{FileID: spec.FileID, BatchTag: spec.BatchTag}, nil
}

// Subscribe implements Service.
func (p *Pool) Subscribe() (<-chan Event, func()) {
	return p.hub.subscribe()
}

// ActiveCount implements Service.
func (p *Pool) ActiveCount(tag string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	count := 0
	for _, job := range p.jobs {
		if job.spec.BatchTag == tag && !job.state.IsTerminal() {
			count++
		}
	}
	return count
}

// CancelTag implements Service. Queued jobs resolve to Cancelled immediately;
// running jobs have their contexts cancelled and resolve when the encoder
// returns.
func (p *Pool) CancelTag(tag string) {
	p.mu.Lock()
	var queued []*poolJob
	var cancels []context.CancelFunc
	for _, job := range p.jobs {
		if job.spec.BatchTag != tag {
			continue
		}
		switch job.state {
		case StateQueued:
			job.state = StateCancelled
			delete(p.jobs, job.spec.FileID)
			queued = append(queued, job)
		case StateRunning:
			if job.cancel != nil {
				cancels = append(cancels, job.cancel)
			}
		}
	}
	p.mu.Unlock()

	for _, job := range queued {
		p.hub.publish(Event{FileID: job.spec.FileID, BatchTag: tag, State: StateCancelled})
	}
	for _, cancel := range cancels {
		cancel()
	}
}

func (p *Pool) runWorker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-p.queue:
			p.execute(ctx, job)
		}
	}
}

func (p *Pool) execute(ctx context.Context, job *poolJob) {
	p.mu.Lock()
	if job.state != StateQueued {
		// Cancelled while waiting in the dispatch queue.
		p.mu.Unlock()
		return
	}
	jobCtx, cancel := context.WithCancel(ctx)
	job.state = StateRunning
	job.cancel = cancel
	p.mu.Unlock()
	defer cancel()

	spec := job.spec
	p.hub.publish(Event{FileID: spec.FileID, BatchTag: spec.BatchTag, State: StateRunning})

	err := p.client.Encode(jobCtx, spec.SourcePath, spec.OutputPath, func(update encoding.ProgressUpdate) {
		p.hub.publish(Event{
			FileID:   spec.FileID,
			BatchTag: spec.BatchTag,
			State:    StateRunning,
			Progress: update.Percent / 100,
		})
	})
	if err == nil {
		err = encoding.Finalize(spec.SourcePath, spec.OutputPath, spec.Policy)
	}

	final := Event{FileID: spec.FileID, BatchTag: spec.BatchTag}
	switch {
	case err == nil:
		final.State = StateSucceeded
		final.Progress = 1
	case errors.Is(err, context.Canceled) || jobCtx.Err() != nil:
		final.State = StateCancelled
	default:
		final.State = StateFailed
		final.Err = err.Error()
		p.logger.Warn("conversion job failed",
			logging.String(logging.FieldFileID, spec.FileID),
			logging.String(logging.FieldBatchID, spec.BatchTag),
			logging.Error(err),
		)
	}

	p.mu.Lock()
	job.state = final.State
	delete(p.jobs, spec.FileID)
	p.mu.Unlock()

	p.hub.publish(final)
}
