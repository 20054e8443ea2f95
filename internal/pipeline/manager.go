package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"lexpipe/internal/config"
	"lexpipe/internal/docstore"
	"lexpipe/internal/logging"
	"lexpipe/internal/services"
	"lexpipe/internal/stage"
	"lexpipe/internal/stageexec"
)

// Manager runs background claim-loop workers until stopped. Each worker
// scans the stages in pipeline order and leases whatever document is
// eligible next; a reclaim sweep returns documents whose worker died to
// circulation.
type Manager struct {
	cfg      *config.Config
	store    *docstore.Store
	handlers HandlerSet
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	group   *errgroup.Group
}

// NewManager constructs a daemon manager.
func NewManager(cfg *config.Config, store *docstore.Store, handlers HandlerSet, logger *slog.Logger) *Manager {
	return &Manager{
		cfg:      cfg,
		store:    store,
		handlers: handlers,
		logger:   logging.NewComponentLogger(logger, "pipeline-daemon"),
	}
}

// Start launches the worker pool and the reclaim sweep. Documents left
// in-flight by an unclean shutdown are reset before any worker claims.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errors.New("pipeline daemon already running")
	}

	reset, err := m.store.ResetStuckProcessing(ctx)
	if err != nil {
		return fmt.Errorf("reset stuck documents: %w", err)
	}
	if reset > 0 {
		m.logger.Info("reset in-flight documents from previous run",
			logging.Int64("documents", reset),
			logging.String(logging.FieldEventType, "startup_reset"))
	}

	runCtx, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(runCtx)

	workers := m.cfg.Workflow.Workers
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		workerID := fmt.Sprintf("worker-%d-%s", i, uuid.NewString()[:8])
		group.Go(func() error {
			m.runWorker(groupCtx, workerID)
			return nil
		})
	}
	group.Go(func() error {
		m.runReclaimer(groupCtx)
		return nil
	})

	m.cancel = cancel
	m.group = group
	m.running = true
	m.logger.Info("pipeline daemon started", logging.Int("workers", workers))
	return nil
}

// Stop terminates background processing and waits for workers to finish
// their current stage.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	group := m.group
	m.running = false
	m.cancel = nil
	m.group = nil
	m.mu.Unlock()

	cancel()
	_ = group.Wait()
	m.logger.Info("pipeline daemon stopped")
}

// Running reports whether the daemon is active.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// runWorker loops until cancellation: claim one eligible document at any
// stage, run that stage, repeat. An idle pass sleeps for the poll
// interval; a failing pass backs off for the error-retry interval.
func (m *Manager) runWorker(ctx context.Context, workerID string) {
	logger := m.logger.With(logging.String("worker_id", workerID))
	for {
		if ctx.Err() != nil {
			return
		}

		claimed, err := m.runOnePass(ctx, workerID)
		switch {
		case errors.Is(err, context.Canceled):
			return
		case err != nil:
			logger.Warn("worker pass failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check document database access"))
			if sleepCtx(ctx, m.errorRetryInterval()) != nil {
				return
			}
		case !claimed:
			if sleepCtx(ctx, m.cfg.PollInterval()) != nil {
				return
			}
		}
	}
}

// runOnePass claims and executes at most one stage. Stage failures are
// persisted by the execution helper and do not surface here; only store
// breakage does. Failed documents stay out of circulation for the error
// retry interval, so a deterministically failing document is paced like
// any other error and younger candidates keep progressing.
func (m *Manager) runOnePass(ctx context.Context, workerID string) (bool, error) {
	for _, descriptor := range stage.Ordered() {
		handler, err := m.handlers.handlerFor(descriptor)
		if err != nil {
			return false, err
		}

		spec := descriptor.ClaimSpec()
		spec.RetryDelay = m.errorRetryInterval()
		doc, err := m.store.ClaimNext(ctx, spec, workerID)
		if err != nil {
			return false, fmt.Errorf("claim next for %s: %w", descriptor.Name, err)
		}
		if doc == nil {
			continue
		}

		runCtx := services.WithRequestID(ctx, uuid.NewString())
		_, _ = stageexec.Run(runCtx, stageexec.Options{
			Logger:            m.logger.With(logging.String("worker_id", workerID)),
			Store:             m.store,
			Handler:           handler,
			Descriptor:        descriptor,
			Document:          doc,
			HeartbeatInterval: m.cfg.HeartbeatInterval(),
		})
		return true, nil
	}
	return false, nil
}

// runReclaimer periodically returns expired leases to circulation. The
// sweep runs on the heartbeat cadence; a lease is expired once its last
// heartbeat is older than the configured lease timeout.
func (m *Manager) runReclaimer(ctx context.Context) {
	interval := m.cfg.HeartbeatInterval()
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-m.cfg.LeaseTimeout())
			reclaimed, err := m.store.ReclaimStaleProcessing(ctx, cutoff)
			if err != nil {
				m.logger.Warn("stale lease reclaim failed; stuck documents may remain",
					logging.Error(err),
					logging.String(logging.FieldEventType, "lease_reclaim_failed"),
					logging.String(logging.FieldErrorHint, "check document database access"))
				continue
			}
			if reclaimed > 0 {
				m.logger.Info("reclaimed expired leases",
					logging.Int64("documents", reclaimed),
					logging.String(logging.FieldEventType, "lease_reclaimed"))
			}
		}
	}
}

func (m *Manager) errorRetryInterval() time.Duration {
	if m.cfg.Workflow.ErrorRetryInterval > 0 {
		return time.Duration(m.cfg.Workflow.ErrorRetryInterval) * time.Second
	}
	return m.cfg.PollInterval()
}
