// Package inflight tracks which source files currently have an outstanding
// conversion job. It is the source of truth for the dedup invariant: a file
// identity is a member iff exactly one non-terminal job exists for it.
package inflight

import "sync"

// Set is a concurrency-safe membership set keyed by source file identity.
// The batch coordinator reserves entries before submission and the state
// reconciler releases them on terminal events; no operation blocks.
type Set struct {
	mu      sync.Mutex
	members map[string]struct{}
}

// NewSet constructs an empty in-flight set.
func NewSet() *Set {
	return &Set{members: make(map[string]struct{})}
}

// TryReserve atomically inserts id and reports whether the reservation was
// won. It returns false when the id is already reserved.
func (s *Set) TryReserve(id string) bool {
	if id == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.members[id]; exists {
		return false
	}
	s.members[id] = struct{}{}
	return true
}

// Release removes id. Releasing an absent id is a no-op, so duplicate terminal
// events reduce to idempotent removals.
func (s *Set) Release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.members, id)
}

// Contains reports whether id currently has an outstanding job.
func (s *Set) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.members[id]
	return ok
}

// Len returns the number of outstanding reservations.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.members)
}

// Clear removes every reservation.
func (s *Set) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.members)
}

// Snapshot returns a copy of the current membership.
func (s *Set) Snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.members))
	for id := range s.members {
		ids = append(ids, id)
	}
	return ids
}
