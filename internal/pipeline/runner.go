package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"lexpipe/internal/config"
	"lexpipe/internal/docstore"
	"lexpipe/internal/logging"
	"lexpipe/internal/services"
	"lexpipe/internal/stage"
	"lexpipe/internal/stageexec"
)

// ErrRunHalted reports a one-shot run aborted by the halt-on-error policy.
var ErrRunHalted = errors.New("run halted on stage failure")

// RunOptions controls one one-shot orchestration pass.
type RunOptions struct {
	// Stages to attempt, in pipeline order. Empty means all stages.
	Stages []stage.Descriptor
	// DecisionIDs to process. Empty means every document that has not
	// completed the pipeline.
	DecisionIDs []string
	// HaltOnError aborts the whole run at the first stage failure instead
	// of moving on to the next document.
	HaltOnError bool
	// StageDelay paces stage invocations; DocumentDelay paces documents.
	StageDelay    time.Duration
	DocumentDelay time.Duration
}

// Summary aggregates per-document outcomes of a run.
type Summary struct {
	Documents int
	Succeeded int
	Empty     int
	Errored   int
	Skipped   int
	Halted    bool
}

// Runner executes stages for an explicit document set, one document at a
// time, all of its stages before the next document.
type Runner struct {
	cfg      *config.Config
	store    *docstore.Store
	handlers HandlerSet
	logger   *slog.Logger
	workerID string
}

// NewRunner constructs a one-shot pipeline runner.
func NewRunner(cfg *config.Config, store *docstore.Store, handlers HandlerSet, logger *slog.Logger) *Runner {
	return &Runner{
		cfg:      cfg,
		store:    store,
		handlers: handlers,
		logger:   logging.NewComponentLogger(logger, "pipeline-run"),
		workerID: "run-" + uuid.NewString()[:8],
	}
}

// Run drives each document through the requested stages identifier-major.
// Stage failures are recorded and do not stop the run unless HaltOnError is
// set; the summary reports how every document ended.
func (r *Runner) Run(ctx context.Context, opts RunOptions) (Summary, error) {
	descriptors := opts.Stages
	if len(descriptors) == 0 {
		descriptors = stage.Ordered()
	}

	ids := opts.DecisionIDs
	if len(ids) == 0 {
		discovered, err := r.store.DecisionIDsNotCompleted(ctx)
		if err != nil {
			return Summary{}, fmt.Errorf("discover documents: %w", err)
		}
		ids = discovered
	}

	summary := Summary{}
	for docIdx, decisionID := range ids {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if docIdx > 0 {
			if err := sleepCtx(ctx, opts.DocumentDelay); err != nil {
				return summary, err
			}
		}

		outcome, err := r.runDocument(ctx, decisionID, descriptors, opts.StageDelay)
		summary.Documents++
		switch outcome {
		case documentSucceeded:
			summary.Succeeded++
		case documentEmpty:
			summary.Empty++
		case documentErrored:
			summary.Errored++
		default:
			summary.Skipped++
		}
		if err != nil {
			return summary, err
		}
		if outcome == documentErrored && opts.HaltOnError {
			summary.Halted = true
			return summary, ErrRunHalted
		}
	}
	return summary, nil
}

type documentOutcome int

const (
	documentSkipped documentOutcome = iota
	documentSucceeded
	documentEmpty
	documentErrored
)

// runDocument attempts every requested stage for one document. Ineligible
// stages (already done, or blocked by an earlier halt) claim nothing and
// are simply passed over, which is what makes re-runs resume where the
// document stopped.
func (r *Runner) runDocument(ctx context.Context, decisionID string, descriptors []stage.Descriptor, stageDelay time.Duration) (documentOutcome, error) {
	docCtx := services.WithRequestID(services.WithDocID(ctx, decisionID), uuid.NewString())
	logger := logging.WithContext(docCtx, r.logger)

	outcome := documentSkipped
	ranStage := false
	for stageIdx, descriptor := range descriptors {
		if err := docCtx.Err(); err != nil {
			return outcome, err
		}
		if ranStage && stageIdx > 0 {
			if err := sleepCtx(docCtx, stageDelay); err != nil {
				return outcome, err
			}
		}

		handler, err := r.handlers.handlerFor(descriptor)
		if err != nil {
			return documentErrored, err
		}

		doc, err := r.store.ClaimByDecisionID(docCtx, decisionID, descriptor.ClaimSpec(), r.workerID)
		if err != nil {
			return documentErrored, fmt.Errorf("claim %s for %s: %w", decisionID, descriptor.Name, err)
		}
		if doc == nil {
			continue
		}
		ranStage = true

		stageOutcome, stageErr := stageexec.Run(docCtx, stageexec.Options{
			Logger:            r.logger,
			Store:             r.store,
			Handler:           handler,
			Descriptor:        descriptor,
			Document:          doc,
			HeartbeatInterval: r.cfg.HeartbeatInterval(),
		})
		switch stageOutcome {
		case services.OutcomeDone:
			outcome = documentSucceeded
		case services.OutcomeNoContent:
			// Terminal for this document; later stages will not claim.
			return documentEmpty, nil
		default:
			if stageErr != nil {
				logger.Warn("stage failed, continuing with next document",
					logging.String(logging.FieldStage, descriptor.Name),
					logging.Error(stageErr))
			}
			return documentErrored, nil
		}
	}
	return outcome, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
