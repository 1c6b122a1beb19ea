package catalog_test

import (
	"context"
	"testing"

	"resound/internal/catalog"
	"resound/internal/testsupport"
)

func TestRecordAndLookup(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)

	ctx := context.Background()
	if err := store.RecordSuccess(ctx, "/music/a.mp3", "/music/a.opus"); err != nil {
		t.Fatalf("RecordSuccess failed: %v", err)
	}

	record, err := store.Lookup(ctx, "/music/a.mp3")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if record == nil || record.Status != catalog.OutcomeSucceeded {
		t.Fatalf("unexpected record: %#v", record)
	}
	if record.OutputPath != "/music/a.opus" {
		t.Fatalf("expected output path recorded, got %q", record.OutputPath)
	}
	if record.ConvertedAt.IsZero() {
		t.Fatal("expected converted_at timestamp")
	}
}

func TestLookupMissingReturnsNil(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)

	record, err := store.Lookup(context.Background(), "/music/missing.mp3")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if record != nil {
		t.Fatalf("expected nil for missing record, got %#v", record)
	}
}

func TestFailureThenSuccessUpserts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)

	ctx := context.Background()
	if err := store.RecordFailure(ctx, "/music/b.mp3", "encoder exit 1"); err != nil {
		t.Fatalf("RecordFailure failed: %v", err)
	}
	record, err := store.Lookup(ctx, "/music/b.mp3")
	if err != nil || record == nil {
		t.Fatalf("Lookup failed: %v %#v", err, record)
	}
	if record.Status != catalog.OutcomeFailed || record.ErrorMessage != "encoder exit 1" {
		t.Fatalf("unexpected failure record: %#v", record)
	}

	if err := store.RecordSuccess(ctx, "/music/b.mp3", "/music/b.opus"); err != nil {
		t.Fatalf("RecordSuccess failed: %v", err)
	}
	record, err = store.Lookup(ctx, "/music/b.mp3")
	if err != nil || record == nil {
		t.Fatalf("Lookup failed: %v %#v", err, record)
	}
	if record.Status != catalog.OutcomeSucceeded {
		t.Fatalf("expected success to replace failure, got %#v", record)
	}
	if record.ErrorMessage != "" {
		t.Fatalf("expected error cleared, got %q", record.ErrorMessage)
	}
}

func TestConvertedSetExcludesFailures(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)

	ctx := context.Background()
	if err := store.RecordSuccess(ctx, "/music/ok.mp3", "/music/ok.opus"); err != nil {
		t.Fatalf("RecordSuccess failed: %v", err)
	}
	if err := store.RecordFailure(ctx, "/music/bad.mp3", "boom"); err != nil {
		t.Fatalf("RecordFailure failed: %v", err)
	}

	set, err := store.ConvertedSet(ctx)
	if err != nil {
		t.Fatalf("ConvertedSet failed: %v", err)
	}
	if _, ok := set["/music/ok.mp3"]; !ok {
		t.Fatal("expected success in converted set")
	}
	if _, ok := set["/music/bad.mp3"]; ok {
		t.Fatal("failed conversion must stay convertible")
	}
}

func TestStatsAndClear(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)

	ctx := context.Background()
	for _, path := range []string{"/m/1.mp3", "/m/2.mp3", "/m/3.mp3"} {
		if err := store.RecordSuccess(ctx, path, path+".opus"); err != nil {
			t.Fatalf("RecordSuccess failed: %v", err)
		}
	}
	if err := store.RecordFailure(ctx, "/m/4.mp3", "boom"); err != nil {
		t.Fatalf("RecordFailure failed: %v", err)
	}

	summary, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if summary.Total != 4 || summary.Succeeded != 3 || summary.Failed != 1 {
		t.Fatalf("unexpected summary: %#v", summary)
	}

	removed, err := store.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if removed != 4 {
		t.Fatalf("expected 4 rows cleared, got %d", removed)
	}
}

func TestListOrdersMostRecentFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)

	ctx := context.Background()
	if err := store.RecordSuccess(ctx, "/m/old.mp3", "/m/old.opus"); err != nil {
		t.Fatalf("RecordSuccess failed: %v", err)
	}
	if err := store.RecordSuccess(ctx, "/m/new.mp3", "/m/new.opus"); err != nil {
		t.Fatalf("RecordSuccess failed: %v", err)
	}

	records, err := store.List(ctx, 1)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record with limit, got %d", len(records))
	}
}
