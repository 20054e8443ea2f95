// Package stageexec executes one claimed document through one stage and
// persists the outcome. It is the single place where a stage error is
// translated into a document state transition, so the one-shot runner and
// the daemon share identical semantics.
package stageexec

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"lexpipe/internal/docstore"
	"lexpipe/internal/logging"
	"lexpipe/internal/services"
	"lexpipe/internal/stage"
)

// Options controls stage execution and document persistence behavior.
type Options struct {
	Logger     *slog.Logger
	Store      *docstore.Store
	Handler    stage.Handler
	Descriptor stage.Descriptor
	Document   *docstore.Document
	// HeartbeatInterval, when positive, refreshes the claim lease while the
	// handler runs.
	HeartbeatInterval time.Duration
}

// Run executes a stage against an already-claimed document and commits the
// result. The returned outcome reports how the attempt was persisted; the
// error carries the stage failure, if any, for the caller's failure policy.
func Run(ctx context.Context, opts Options) (services.Outcome, error) {
	if opts.Handler == nil {
		return services.OutcomeFailed, fmt.Errorf("stage handler unavailable: %s", opts.Descriptor.Name)
	}
	if opts.Store == nil {
		return services.OutcomeFailed, fmt.Errorf("document store is required")
	}
	if opts.Document == nil {
		return services.OutcomeFailed, fmt.Errorf("claimed document is required")
	}

	stageCtx := services.WithStage(services.WithDocID(ctx, opts.Document.DecisionID), opts.Descriptor.Name)
	logger := logging.WithContext(stageCtx, opts.Logger)
	spec := opts.Descriptor.ClaimSpec()

	logger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("processing_status", string(opts.Descriptor.Processing)))

	stopHeartbeat := startHeartbeat(stageCtx, opts, logger)
	fields, stageErr := opts.Handler.Execute(stageCtx, opts.Document)
	stopHeartbeat()

	switch outcome := services.Resolve(stageErr); outcome {
	case services.OutcomeDone:
		committed, err := opts.Store.CompleteStage(stageCtx, opts.Document, spec, opts.Descriptor.Done, fields)
		if err != nil {
			return outcome, fmt.Errorf("persist stage result: %w", err)
		}
		if !committed {
			logger.Warn("stage result discarded, lease was lost",
				logging.String(logging.FieldEventType, "stage_lease_lost"))
			return outcome, nil
		}
		logger.Info("stage completed",
			logging.String(logging.FieldEventType, "stage_complete"),
			logging.String("next_status", string(opts.Descriptor.Done)))
		return outcome, nil

	case services.OutcomeNoContent:
		reason := services.Message(stageErr)
		if _, err := opts.Store.HaltNoContent(stageCtx, opts.Document, spec, reason); err != nil {
			return outcome, fmt.Errorf("persist no-content halt: %w", err)
		}
		logger.Info("stage halted without content",
			logging.String(logging.FieldEventType, "stage_no_content"),
			logging.String("reason", reason))
		return outcome, nil

	default:
		message := services.Message(stageErr)
		if _, err := opts.Store.FailStage(stageCtx, opts.Document, spec, message); err != nil {
			logger.Error("failed to persist stage failure", logging.Error(err))
		}
		logger.Error("stage failed",
			logging.String(logging.FieldEventType, "stage_failure"),
			logging.String("error_message", message),
			logging.Error(stageErr))
		return services.OutcomeFailed, stageErr
	}
}

// startHeartbeat keeps the claim lease fresh while the handler runs. The
// returned stop function blocks until the refresh goroutine exits, so no
// heartbeat can land after the outcome is committed.
func startHeartbeat(ctx context.Context, opts Options, logger *slog.Logger) func() {
	if opts.HeartbeatInterval <= 0 {
		return func() {}
	}

	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(opts.HeartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := opts.Store.UpdateHeartbeat(ctx, opts.Document.ID); err != nil {
					logger.Warn("heartbeat refresh failed", logging.Error(err))
				}
			}
		}
	}()
	return func() {
		close(done)
		<-stopped
	}
}
