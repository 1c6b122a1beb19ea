// Package app assembles the conversion pipeline: catalog, encoder, backend
// pool, scheduler, and scanner behind one Start/Stop lifecycle. A flock in the
// state directory keeps concurrent resound invocations from converting the
// same library at once.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"resound/internal/backend"
	"resound/internal/catalog"
	"resound/internal/config"
	"resound/internal/encoding"
	"resound/internal/logging"
	"resound/internal/notifications"
	"resound/internal/scanner"
	"resound/internal/scheduler"
)

// App owns the assembled pipeline and enforces single-instance execution.
type App struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *catalog.Store
	pool     *backend.Pool
	sched    *scheduler.Scheduler
	scan     *scanner.Scanner
	notifier notifications.Service

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
}

// New constructs the pipeline without starting it.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if cfg == nil || logger == nil {
		return nil, errors.New("app requires config and logger")
	}

	store, err := catalog.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}

	client := encoding.NewFFmpeg(cfg.Conversion.TargetFormat, cfg.Conversion.BitrateKbps,
		encoding.WithBinary(cfg.FFmpegBinary()),
		encoding.WithProbeBinary(cfg.FFprobeBinary()),
	)
	pool := backend.NewPool(client, cfg.Scheduler.MaxConcurrent, logger)
	notifier := notifications.NewService(cfg)
	sched := scheduler.New(cfg, pool, store, notifier, logger)

	lockPath := filepath.Join(cfg.Paths.StateDir, "resound.lock")
	return &App{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		pool:     pool,
		sched:    sched,
		scan:     scanner.New(cfg, store, logger),
		notifier: notifier,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock and launches the pool and scheduler.
func (a *App) Start(ctx context.Context) error {
	if a.running.Load() {
		return errors.New("app already running")
	}

	ok, err := a.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another resound instance is already converting; wait for it or stop it first")
	}

	if err := a.pool.Start(ctx); err != nil {
		_ = a.lock.Unlock()
		return fmt.Errorf("start backend pool: %w", err)
	}
	if err := a.sched.Start(ctx); err != nil {
		a.pool.Stop()
		_ = a.lock.Unlock()
		return fmt.Errorf("start scheduler: %w", err)
	}

	a.running.Store(true)
	a.logger.Info("resound started", logging.String("lock", a.lockPath))
	return nil
}

// Stop winds down the scheduler and pool and releases the instance lock.
func (a *App) Stop() {
	if !a.running.Load() {
		return
	}
	a.sched.Stop()
	a.pool.Stop()
	if err := a.lock.Unlock(); err != nil {
		a.logger.Warn("releasing instance lock", logging.Error(err))
	}
	a.running.Store(false)
	a.logger.Info("resound stopped")
}

// Close stops the pipeline and closes the catalog.
func (a *App) Close() error {
	a.Stop()
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}

// Scheduler exposes the conversion scheduler.
func (a *App) Scheduler() *scheduler.Scheduler { return a.sched }

// Scanner exposes the library scanner.
func (a *App) Scanner() *scanner.Scanner { return a.scan }

// Catalog exposes the conversion history store.
func (a *App) Catalog() *catalog.Store { return a.store }

// Notifier exposes the notification service.
func (a *App) Notifier() notifications.Service { return a.notifier }
