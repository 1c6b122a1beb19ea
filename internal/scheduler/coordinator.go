package scheduler

import (
	"context"
	"time"

	"resound/internal/backend"
	"resound/internal/logging"
)

// runCoordinator walks the batch selection, gating each submission on the
// backend's active count and pacing sustained bursts. It owns submissionDone;
// the reconciler owns everything after that.
func (s *Scheduler) runCoordinator(ctx context.Context, run *batchRun, candidates []Candidate) {
	defer s.wg.Done()

	submitted := 0
loop:
	for _, cand := range candidates {
		for s.backend.ActiveCount(run.tag) >= s.maxConcurrent() {
			if !s.waitInterval(ctx, run, s.pollInterval()) {
				break loop
			}
		}
		if s.batchCancelled(run) || ctx.Err() != nil {
			break
		}
		// The selection was filtered up front, but another submission path
		// may have claimed the file since. The reservation is the arbiter.
		if !s.tracker.TryReserve(cand.ID) {
			continue
		}
		if err := s.submitCandidate(ctx, cand, run.tag); err != nil {
			s.tracker.Release(cand.ID)
			s.recordSubmitFailure(ctx, run, cand, err)
			continue
		}
		submitted++
		if size := s.cfg.Scheduler.PacingBatchSize; size > 0 && submitted%size == 0 {
			if !s.waitInterval(ctx, run, s.pacingPause()) {
				break
			}
		}
	}

	s.mu.Lock()
	run.submissionDone = true
	s.mu.Unlock()
	s.logger.InfoContext(ctx, "batch submission finished",
		logging.String(logging.FieldBatchID, run.tag),
		logging.Int("submitted", submitted),
		logging.Int("selected", len(candidates)))
	s.finishIfComplete(ctx)
	s.publishSnapshot()
}

// waitInterval sleeps cooperatively. It returns false when the batch was
// cancelled or the scheduler is shutting down.
func (s *Scheduler) waitInterval(ctx context.Context, run *batchRun, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-run.done:
		return false
	case <-timer.C:
		return true
	}
}

func (s *Scheduler) batchCancelled(run *batchRun) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return run.cancelled
}

// recordSubmitFailure marks a candidate the backend refused. The file never
// reached the in-flight set, so it counts as failed right away instead of
// through the event stream.
func (s *Scheduler) recordSubmitFailure(ctx context.Context, run *batchRun, cand Candidate, err error) {
	s.mu.Lock()
	s.files[cand.ID] = &fileState{
		id:    cand.ID,
		tag:   run.tag,
		state: backend.StateFailed,
		err:   err.Error(),
	}
	run.failed++
	s.lastError = err.Error()
	s.mu.Unlock()

	s.logger.WarnContext(ctx, "submission rejected",
		logging.String(logging.FieldFileID, cand.ID),
		logging.String(logging.FieldBatchID, run.tag),
		logging.Error(err))
	if s.catalog != nil {
		if recErr := s.catalog.RecordFailure(ctx, cand.ID, err.Error()); recErr != nil {
			s.logger.Warn("recording failure outcome", logging.Error(recErr))
		}
	}
	s.publishSnapshot()
}
