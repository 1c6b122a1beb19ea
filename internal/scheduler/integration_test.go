package scheduler_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"resound/internal/backend"
	"resound/internal/encoding"
	"resound/internal/logging"
	"resound/internal/scheduler"
	"resound/internal/testsupport"
)

// instantClient encodes by writing the output file, failing when listed.
type instantClient struct {
	mu   sync.Mutex
	fail map[string]error
}

func (c *instantClient) Encode(ctx context.Context, inputPath, outputPath string, progress func(encoding.ProgressUpdate)) error {
	if progress != nil {
		progress(encoding.ProgressUpdate{Percent: 100, Message: "Encoding"})
	}
	c.mu.Lock()
	err := c.fail[inputPath]
	c.mu.Unlock()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(outputPath, []byte("converted"), 0o644)
}

// Drives the scheduler against the real pool backend end to end: files on
// disk in, converted outputs and catalog rows out.
func TestSchedulerOverPool(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithFastScheduler(), testsupport.WithMaxConcurrent(3))
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	store := testsupport.MustOpenCatalog(t, cfg)

	client := &instantClient{fail: make(map[string]error)}
	pool := backend.NewPool(client, 3, logging.NewNop())
	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("start pool: %v", err)
	}
	t.Cleanup(pool.Stop)

	sched := scheduler.New(cfg, pool, store, nil, logging.NewNop())
	if err := sched.Start(context.Background()); err != nil {
		t.Fatalf("start scheduler: %v", err)
	}
	t.Cleanup(sched.Stop)

	var cands []scheduler.Candidate
	for _, name := range []string{"one.wav", "two.wav", "three.wav", "bad.wav"} {
		path := filepath.Join(cfg.Paths.LibraryDir, name)
		if err := os.WriteFile(path, []byte("pcm"), 0o644); err != nil {
			t.Fatalf("write source: %v", err)
		}
		cands = append(cands, scheduler.Candidate{ID: path, Path: path, NeedsConversion: true})
	}
	client.mu.Lock()
	client.fail[cands[3].Path] = os.ErrPermission
	client.mu.Unlock()

	count, err := sched.ConvertBatch(context.Background(), cands)
	if err != nil {
		t.Fatalf("ConvertBatch: %v", err)
	}
	if count != 4 {
		t.Fatalf("filtered count = %d, want 4", count)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sched.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	snap := sched.CurrentSnapshot()
	if snap.Batch.Completed != 3 || snap.Batch.Failed != 1 {
		t.Fatalf("completed/failed = %d/%d, want 3/1", snap.Batch.Completed, snap.Batch.Failed)
	}
	for _, cand := range cands[:3] {
		st := snap.Files[cand.ID]
		if st.State != backend.StateSucceeded {
			t.Fatalf("file %s state = %s", cand.ID, st.State)
		}
		if _, err := os.Stat(st.OutputPath); err != nil {
			t.Fatalf("converted output missing: %v", err)
		}
	}

	// Catalog writes land shortly after the terminal events.
	deadline := time.Now().Add(5 * time.Second)
	for {
		converted, err := store.ConvertedSet(context.Background())
		if err != nil {
			t.Fatalf("ConvertedSet: %v", err)
		}
		if len(converted) == 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("catalog has %d successes, want 3", len(converted))
		}
		time.Sleep(5 * time.Millisecond)
	}

	rec, err := store.Lookup(context.Background(), cands[3].Path)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if rec == nil || rec.Status != "failed" || rec.ErrorMessage == "" {
		t.Fatalf("failed record = %+v", rec)
	}
}
