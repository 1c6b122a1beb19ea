package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"resound/internal/backend"
	"resound/internal/config"
	"resound/internal/encoding"
	"resound/internal/inflight"
	"resound/internal/logging"
	"resound/internal/notifications"
	"resound/internal/services"
)

// Scheduler coordinates batch submission against the execution backend and
// reconciles its status stream into coalesced snapshots. One Scheduler serves
// one process; Start must be called before any command method.
type Scheduler struct {
	cfg      *config.Config
	backend  backend.Service
	tracker  *inflight.Set
	catalog  CatalogWriter
	notifier notifications.Service
	logger   *slog.Logger

	adhocTag string

	mu            sync.Mutex
	running       bool
	runCtx        context.Context
	cancel        context.CancelFunc
	releaseEvents func()
	wg            sync.WaitGroup

	files     map[string]*fileState
	run       *batchRun
	lastError string
	revision  uint64
	updates   chan Snapshot
}

// New wires a scheduler. catalog may be nil when history is disabled.
func New(cfg *config.Config, svc backend.Service, cat CatalogWriter, notifier notifications.Service, logger *slog.Logger) *Scheduler {
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	return &Scheduler{
		cfg:      cfg,
		backend:  svc,
		tracker:  inflight.NewSet(),
		catalog:  cat,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "scheduler"),
		adhocTag: "single-" + uuid.NewString(),
		files:    make(map[string]*fileState),
		updates:  make(chan Snapshot, 1),
	}
}

// Start subscribes to the backend stream and launches the reconciler.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	events, release := s.backend.Subscribe()
	s.runCtx = runCtx
	s.cancel = cancel
	s.releaseEvents = release
	s.running = true
	s.wg.Add(1)
	go s.runReconciler(runCtx, events)
	s.logger.InfoContext(ctx, "scheduler started",
		logging.Int("max_concurrent", s.cfg.Scheduler.MaxConcurrent))
	return nil
}

// Stop halts the coordinator and reconciler and unblocks any waiters. Jobs
// already handed to the backend keep running; Stop does not cancel them.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	if s.run != nil && s.run.active {
		s.run.active = false
		close(s.run.done)
	}
	s.cancel()
	s.releaseEvents()
	s.mu.Unlock()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

// ConvertOne submits a single candidate outside any batch run. Submission
// errors surface immediately rather than through the snapshot stream.
func (s *Scheduler) ConvertOne(ctx context.Context, cand Candidate) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotRunning
	}
	s.mu.Unlock()

	if !cand.NeedsConversion {
		return ErrEmptySelection
	}
	if !s.tracker.TryReserve(cand.ID) {
		s.logger.DebugContext(ctx, "file already in flight, skipping",
			logging.String(logging.FieldFileID, cand.ID))
		return nil
	}
	if err := s.submitCandidate(ctx, cand, s.adhocTag); err != nil {
		s.tracker.Release(cand.ID)
		return err
	}
	s.publishSnapshot()
	return nil
}

// ConvertBatch filters the selection, starts a batch run over the survivors,
// and returns the filtered count. It returns ErrEmptySelection when nothing
// survives filtering and ErrBatchActive while a previous run is in flight.
func (s *Scheduler) ConvertBatch(ctx context.Context, selection []Candidate) (int, error) {
	filtered := s.Filter(selection)
	if len(filtered) == 0 {
		return 0, ErrEmptySelection
	}

	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return 0, ErrNotRunning
	}
	if s.run != nil && s.run.active {
		s.mu.Unlock()
		return 0, ErrBatchActive
	}
	run := &batchRun{
		tag:       "batch-" + uuid.NewString(),
		total:     len(filtered),
		active:    true,
		startedAt: time.Now(),
		done:      make(chan struct{}),
	}
	s.run = run
	s.wg.Add(1)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "batch run starting",
		logging.String(logging.FieldBatchID, run.tag),
		logging.Int("selected", len(selection)),
		logging.Int("filtered", len(filtered)))
	go func() {
		if err := s.notifier.NotifyBatchStarted(s.runCtx, len(filtered)); err != nil {
			s.logger.Warn("batch start notification failed", logging.Error(err))
		}
	}()
	go s.runCoordinator(s.runCtx, run, filtered)
	s.publishSnapshot()
	return len(filtered), nil
}

// Filter deduplicates a selection and drops entries that are already
// converted or already in flight. Order is preserved.
func (s *Scheduler) Filter(selection []Candidate) []Candidate {
	seen := make(map[string]struct{}, len(selection))
	filtered := make([]Candidate, 0, len(selection))
	for _, cand := range selection {
		if cand.ID == "" {
			continue
		}
		if _, dup := seen[cand.ID]; dup {
			continue
		}
		seen[cand.ID] = struct{}{}
		if !cand.NeedsConversion {
			continue
		}
		if s.tracker.Contains(cand.ID) {
			continue
		}
		filtered = append(filtered, cand)
	}
	return filtered
}

// CancelAll resets local state synchronously, then asks the backend to wind
// down outstanding jobs. Late terminal events for cleared reservations are
// dropped by the reconciler.
func (s *Scheduler) CancelAll(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotRunning
	}
	run := s.run
	wasActive := run != nil && run.active
	var batchTag string
	var completed, total int
	if run != nil {
		batchTag = run.tag
		completed = run.completed
		total = run.total
		if run.active {
			run.cancelled = true
			run.active = false
			close(run.done)
		}
	}
	for _, fs := range s.files {
		if !fs.state.IsTerminal() {
			fs.state = backend.StateCancelled
		}
	}
	s.tracker.Clear()
	s.mu.Unlock()

	if batchTag != "" {
		s.backend.CancelTag(batchTag)
	}
	s.backend.CancelTag(s.adhocTag)

	s.logger.InfoContext(ctx, "cancelled all conversions",
		logging.String(logging.FieldBatchID, batchTag))
	if wasActive {
		go func() {
			if err := s.notifier.NotifyBatchCancelled(s.runCtx, completed, total); err != nil {
				s.logger.Warn("cancel notification failed", logging.Error(err))
			}
		}()
	}
	s.publishSnapshot()
	return nil
}

// Wait blocks until the current batch run finishes or ctx expires. It returns
// immediately when no run has been started.
func (s *Scheduler) Wait(ctx context.Context) error {
	s.mu.Lock()
	run := s.run
	s.mu.Unlock()
	if run == nil {
		return nil
	}
	select {
	case <-run.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Updates returns the snapshot stream. The channel holds only the latest
// snapshot; slow consumers observe coalesced state, never a backlog.
func (s *Scheduler) Updates() <-chan Snapshot {
	return s.updates
}

// CurrentSnapshot returns an immediate copy of the current state without
// waiting for the next debounced emission.
func (s *Scheduler) CurrentSnapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// InFlightCount reports the number of outstanding reservations.
func (s *Scheduler) InFlightCount() int {
	return s.tracker.Len()
}

func (s *Scheduler) submitCandidate(ctx context.Context, cand Candidate, tag string) error {
	policy := encoding.PolicyFromConfig(s.cfg)
	outputPath, err := encoding.ResolveOutput(cand.Path, s.cfg.Conversion.TargetFormat, policy, s.cfg)
	if err != nil {
		return services.Wrap(services.ErrValidation, "scheduler", "submit", "resolve output path", err)
	}
	// Register before Submit: the backend may publish events for this job
	// before Submit returns, and the reconciler owns the entry from the
	// moment the first event lands. Writing afterwards could clobber a
	// terminal state and strand the batch.
	s.mu.Lock()
	s.files[cand.ID] = &fileState{
		id:         cand.ID,
		outputPath: outputPath,
		tag:        tag,
		state:      backend.StateQueued,
	}
	s.mu.Unlock()

	spec := backend.JobSpec{
		FileID:     cand.ID,
		SourcePath: cand.Path,
		OutputPath: outputPath,
		Policy:     policy,
		BatchTag:   tag,
	}
	if _, err := s.backend.Submit(ctx, spec); err != nil {
		s.mu.Lock()
		delete(s.files, cand.ID)
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Scheduler) snapshotLocked() Snapshot {
	files := make(map[string]FileStatus, len(s.files))
	for id, fs := range s.files {
		files[id] = FileStatus{
			ID:         fs.id,
			OutputPath: fs.outputPath,
			State:      fs.state,
			Progress:   fs.progress,
			Error:      fs.err,
		}
	}
	snap := Snapshot{
		Files:     files,
		LastError: s.lastError,
		Revision:  s.revision,
	}
	if s.run != nil {
		snap.Batch = BatchStatus{
			Tag:       s.run.tag,
			Total:     s.run.total,
			Completed: s.run.completed,
			Failed:    s.run.failed,
			Active:    s.run.active,
			StartedAt: s.run.startedAt,
		}
	}
	return snap
}

func (s *Scheduler) publishSnapshot() {
	s.mu.Lock()
	s.revision++
	snap := s.snapshotLocked()
	s.mu.Unlock()

	// Latest wins: replace a stale buffered snapshot rather than block.
	select {
	case s.updates <- snap:
	default:
		select {
		case <-s.updates:
		default:
		}
		select {
		case s.updates <- snap:
		default:
		}
	}
}

func (s *Scheduler) batchInFlightLocked(run *batchRun) int {
	count := 0
	for _, fs := range s.files {
		if fs.tag == run.tag && !fs.state.IsTerminal() {
			count++
		}
	}
	return count
}

func (s *Scheduler) finishIfComplete(ctx context.Context) {
	s.mu.Lock()
	run := s.run
	if run == nil || !run.active || !run.submissionDone || s.batchInFlightLocked(run) > 0 {
		s.mu.Unlock()
		return
	}
	run.active = false
	close(run.done)
	completed, failed := run.completed, run.failed
	duration := time.Since(run.startedAt)
	tag := run.tag
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "batch run complete",
		logging.String(logging.FieldBatchID, tag),
		logging.Int("completed", completed),
		logging.Int("failed", failed),
		logging.Duration("duration", duration))
	go func() {
		if err := s.notifier.NotifyBatchCompleted(s.runCtx, completed, failed, duration); err != nil {
			s.logger.Warn("batch completion notification failed", logging.Error(err))
		}
	}()
}

func (s *Scheduler) maxConcurrent() int {
	if s.cfg.Scheduler.MaxConcurrent > 0 {
		return s.cfg.Scheduler.MaxConcurrent
	}
	return 1
}

func (s *Scheduler) pollInterval() time.Duration {
	return time.Duration(s.cfg.Scheduler.AdmissionPollMS) * time.Millisecond
}

func (s *Scheduler) pacingPause() time.Duration {
	return time.Duration(s.cfg.Scheduler.PacingPauseMS) * time.Millisecond
}

func (s *Scheduler) debounce() time.Duration {
	return time.Duration(s.cfg.Scheduler.SnapshotDebounceMS) * time.Millisecond
}
