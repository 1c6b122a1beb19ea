package scheduler

import (
	"context"
	"errors"
	"time"

	"resound/internal/backend"
)

var (
	// ErrNotRunning is returned when commands arrive before Start.
	ErrNotRunning = errors.New("scheduler not running")
	// ErrBatchActive is returned when a batch is requested while one is in
	// flight. Callers cancel or wait; runs are never silently replaced.
	ErrBatchActive = errors.New("a batch run is already active")
	// ErrEmptySelection is returned when a selection filters down to zero
	// convertible files. Callers must not present a confirmation for an
	// empty set.
	ErrEmptySelection = errors.New("no files need conversion")
)

// Candidate is one file offered for conversion. NeedsConversion reflects the
// scanner's catalog-backed view at selection time.
type Candidate struct {
	ID              string
	Path            string
	NeedsConversion bool
}

// FileStatus is the per-file projection published in snapshots.
type FileStatus struct {
	ID         string
	OutputPath string
	State      backend.State
	Progress   float64
	Error      string
}

// Converting reports whether the file has an outstanding, non-terminal job.
func (f FileStatus) Converting() bool {
	return !f.State.IsTerminal()
}

// BatchStatus aggregates the current (or most recent) batch run.
type BatchStatus struct {
	Tag       string
	Total     int
	Completed int
	Failed    int
	Active    bool
	StartedAt time.Time
}

// Snapshot is the coalesced read model consumed by the UI. Snapshots are
// immutable copies; Revision increases with each emission.
type Snapshot struct {
	Files     map[string]FileStatus
	Batch     BatchStatus
	LastError string
	Revision  uint64
}

// CatalogWriter records terminal conversion outcomes. It is satisfied by
// *catalog.Store and may be nil when no history is kept.
type CatalogWriter interface {
	RecordSuccess(ctx context.Context, sourcePath, outputPath string) error
	RecordFailure(ctx context.Context, sourcePath, message string) error
}

type fileState struct {
	id         string
	outputPath string
	tag        string
	state      backend.State
	progress   float64
	err        string
}

type batchRun struct {
	tag            string
	total          int
	completed      int
	failed         int
	active         bool
	cancelled      bool
	submissionDone bool
	startedAt      time.Time
	done           chan struct{}
}
