// Package daemon wraps the pipeline manager in a single-instance lifecycle:
// a flock-based lock prevents two daemons from sharing one document store.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/gofrs/flock"

	"lexpipe/internal/config"
	"lexpipe/internal/docstore"
	"lexpipe/internal/logging"
	"lexpipe/internal/pipeline"
)

// Daemon coordinates background processing and enforces single-instance
// execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *docstore.Store
	manager *pipeline.Manager

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status reports daemon runtime information.
type Status struct {
	Running      bool
	DatabasePath string
	LockFilePath string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *docstore.Store, manager *pipeline.Manager, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || manager == nil {
		return nil, errors.New("daemon requires config, store, and pipeline manager")
	}

	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		manager:  manager,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock and launches the pipeline manager.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another lexpipe daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.manager.Start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		return fmt.Errorf("start pipeline: %w", err)
	}

	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("lexpipe daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop stops background processing and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.manager.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("lexpipe daemon stopped")
}

// Close stops the daemon and releases held resources.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status reports the daemon's runtime state.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		DatabasePath: d.store.Path(),
		LockFilePath: d.lockPath,
	}
}
