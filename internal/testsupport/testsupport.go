// Package testsupport provides shared fixtures for package tests: temp-dir
// configurations and catalog stores wired for automatic cleanup.
package testsupport

import (
	"path/filepath"
	"testing"

	"resound/internal/catalog"
	"resound/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.LibraryDir = filepath.Join(base, "library")
	cfg.Paths.CollectionDir = filepath.Join(base, "collection")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.StateDir = filepath.Join(base, "state")

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithMaxConcurrent overrides the scheduler admission ceiling.
func WithMaxConcurrent(n int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Scheduler.MaxConcurrent = n
	}
}

// WithFastScheduler shrinks scheduler intervals so tests run quickly.
func WithFastScheduler() ConfigOption {
	return func(cfg *config.Config) {
		cfg.Scheduler.AdmissionPollMS = 5
		cfg.Scheduler.PacingPauseMS = 1
		cfg.Scheduler.SnapshotDebounceMS = 5
	}
}

// MustOpenCatalog opens a catalog store against the test config and registers
// cleanup.
func MustOpenCatalog(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("open catalog store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close catalog store: %v", err)
		}
	})
	return store
}
