package backend

import (
	"context"

	"resound/internal/encoding"
)

// State is the externally observable lifecycle of a submitted job.
type State string

const (
	StateQueued    State = "queued"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// IsTerminal reports whether no further transitions can occur.
func (s State) IsTerminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateCancelled:
		return true
	default:
		return false
	}
}

// JobSpec describes one conversion submission. Policy travels with the spec;
// the backend never persists it.
type JobSpec struct {
	FileID     string
	SourcePath string
	OutputPath string
	Policy     encoding.Policy
	BatchTag   string
}

// Handle identifies an accepted submission.
type Handle struct {
	FileID   string
	BatchTag string
}

// Event is one entry on the status stream. Progress is 0..1. Duplicate or
// out-of-order terminal events for the same id may occur; consumers must treat
// them as idempotent.
type Event struct {
	FileID   string
	BatchTag string
	State    State
	Progress float64
	Err      string
}

// Service is the job execution surface the scheduler drives. Submission is
// idempotent per file identity, status is observed through an async stream,
// and cancellation is requested by batch tag with completion reported via the
// stream rather than synchronously.
type Service interface {
	// Submit enqueues work. It fails only when the backend itself cannot
	// accept work, which is distinct from the job later failing.
	Submit(ctx context.Context, spec JobSpec) (Handle, error)
	// Subscribe returns a stream of status events and a release function.
	// Events queue without bound until the subscription is released.
	Subscribe() (<-chan Event, func())
	// ActiveCount reports a best-effort count of non-terminal jobs under a
	// tag. It is eventually consistent with the event stream and serves only
	// as an admission-control signal.
	ActiveCount(tag string) int
	// CancelTag requests cancellation of every job under a tag. Outcomes
	// arrive asynchronously on the status stream.
	CancelTag(tag string)
}
