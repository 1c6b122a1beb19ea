package scheduler

import (
	"context"
	"time"

	"resound/internal/backend"
	"resound/internal/logging"
)

// conversionOutcome is a terminal result queued for the history catalog.
// Catalog writes happen outside the state lock.
type conversionOutcome struct {
	sourcePath string
	outputPath string
	message    string
	succeeded  bool
}

// runReconciler consumes the backend status stream and folds it into the
// snapshot state. Events accumulate between ticks so a burst of terminal
// events produces one coalesced emission, not one per event.
func (s *Scheduler) runReconciler(ctx context.Context, events <-chan backend.Event) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.debounce())
	defer ticker.Stop()

	var pending []backend.Event
	flush := func() {
		if len(pending) == 0 {
			return
		}
		batch := pending
		pending = nil
		s.applyEvents(ctx, batch)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				flush()
				return
			}
			pending = append(pending, evt)
		case <-ticker.C:
			flush()
		}
	}
}

func (s *Scheduler) applyEvents(ctx context.Context, batch []backend.Event) {
	var outcomes []conversionOutcome

	s.mu.Lock()
	for _, evt := range batch {
		s.applyEventLocked(evt, &outcomes)
	}
	s.mu.Unlock()

	for _, out := range outcomes {
		s.recordOutcome(ctx, out)
	}
	s.finishIfComplete(ctx)
	s.publishSnapshot()
}

// applyEventLocked folds one event into the state. Membership in the
// in-flight set is the idempotence key: a terminal event releases the
// reservation, and any later event for the same file is stale and dropped.
func (s *Scheduler) applyEventLocked(evt backend.Event, outcomes *[]conversionOutcome) {
	if !s.tracker.Contains(evt.FileID) {
		return
	}

	fs := s.files[evt.FileID]
	if fs == nil {
		fs = &fileState{id: evt.FileID, tag: evt.BatchTag}
		s.files[evt.FileID] = fs
	}

	if !evt.State.IsTerminal() {
		fs.state = evt.State
		if evt.Progress > fs.progress {
			fs.progress = evt.Progress
		}
		return
	}

	s.tracker.Release(evt.FileID)
	fs.state = evt.State
	switch evt.State {
	case backend.StateSucceeded:
		fs.progress = 1
		fs.err = ""
		*outcomes = append(*outcomes, conversionOutcome{
			sourcePath: fs.id,
			outputPath: fs.outputPath,
			succeeded:  true,
		})
	case backend.StateFailed:
		fs.err = evt.Err
		s.lastError = evt.Err
		*outcomes = append(*outcomes, conversionOutcome{
			sourcePath: fs.id,
			message:    evt.Err,
		})
	}

	if run := s.run; run != nil && fs.tag == run.tag {
		switch evt.State {
		case backend.StateSucceeded:
			run.completed++
		case backend.StateFailed:
			run.failed++
		}
	}
}

func (s *Scheduler) recordOutcome(ctx context.Context, out conversionOutcome) {
	if s.catalog == nil {
		return
	}
	var err error
	if out.succeeded {
		err = s.catalog.RecordSuccess(ctx, out.sourcePath, out.outputPath)
	} else {
		err = s.catalog.RecordFailure(ctx, out.sourcePath, out.message)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "recording conversion outcome",
			logging.String(logging.FieldFileID, out.sourcePath),
			logging.Error(err))
	}
}
