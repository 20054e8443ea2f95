package docstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// CompleteStage commits a successful stage attempt: the produced content
// columns, the done status, a cleared error, and the audit trail, all
// conditional on the document still holding the processing status. Returns
// false when the lease was lost in the meantime (nothing is written).
func (s *Store) CompleteStage(ctx context.Context, doc *Document, spec ClaimSpec, done Status, fields map[string]any) (bool, error) {
	now := time.Now().UTC()
	historyJSON, err := doc.WithStageRecord(spec.Stage, StageRecord{
		StartedAt:  stageStartedAt(doc, spec.Stage, now),
		FinishedAt: now,
	})
	if err != nil {
		return false, err
	}

	merged := make(map[string]any, len(fields)+6)
	for column, value := range fields {
		merged[column] = value
	}
	merged["status"] = done
	merged["halted_stage"] = nil
	merged["error_message"] = nil
	merged["claimed_by"] = nil
	merged["last_heartbeat"] = nil
	merged["stage_history_json"] = historyJSON
	merged["last_success_at"] = now.Format(time.RFC3339Nano)

	return s.UpdateFields(ctx, doc.ID, spec.Processing, merged)
}

// HaltNoContent records a legitimate empty result: the document halts at
// the stage without an error and is not automatically retried.
func (s *Store) HaltNoContent(ctx context.Context, doc *Document, spec ClaimSpec, reason string) (bool, error) {
	now := time.Now().UTC()
	historyJSON, err := doc.WithStageRecord(spec.Stage, StageRecord{
		StartedAt:  stageStartedAt(doc, spec.Stage, now),
		FinishedAt: now,
		Error:      strings.TrimSpace(reason),
	})
	if err != nil {
		return false, err
	}

	return s.UpdateFields(ctx, doc.ID, spec.Processing, map[string]any{
		"status":             StatusNoContent,
		"halted_stage":       spec.Stage,
		"error_message":      nil,
		"claimed_by":         nil,
		"last_heartbeat":     nil,
		"stage_history_json": historyJSON,
	})
}

// FailStage records a stage failure. The document stays claimable for the
// same stage, so errors are retry-eligible rather than dead ends.
func (s *Store) FailStage(ctx context.Context, doc *Document, spec ClaimSpec, message string) (bool, error) {
	now := time.Now().UTC()
	message = strings.TrimSpace(message)
	if message == "" {
		message = "stage failed"
	}
	historyJSON, err := doc.WithStageRecord(spec.Stage, StageRecord{
		StartedAt:  stageStartedAt(doc, spec.Stage, now),
		FinishedAt: now,
		Error:      message,
	})
	if err != nil {
		return false, err
	}

	return s.UpdateFields(ctx, doc.ID, spec.Processing, map[string]any{
		"status":             StatusFailed,
		"halted_stage":       spec.Stage,
		"error_message":      message,
		"claimed_by":         nil,
		"last_heartbeat":     nil,
		"stage_history_json": historyJSON,
	})
}

// UpdateHeartbeat refreshes the lease timestamp for an in-flight document.
func (s *Store) UpdateHeartbeat(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	if _, err := s.execWithRetry(
		ctx,
		`UPDATE documents SET last_heartbeat = ?, updated_at = ? WHERE id = ?`,
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
		id,
	); err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// ReclaimStaleProcessing returns documents whose lease expired back to the
// input status of their current stage. This is the lost-worker recovery
// path: a claim whose heartbeat stopped before the cutoff becomes eligible
// for re-claim exactly as a pending document would.
func (s *Store) ReclaimStaleProcessing(ctx context.Context, cutoff time.Time) (int64, error) {
	now := time.Now().UTC()
	res, err := s.execWithRetry(
		ctx,
		`UPDATE documents
        SET status = CASE status
            WHEN ? THEN ?
            WHEN ? THEN ?
            WHEN ? THEN ?
            WHEN ? THEN ?
            WHEN ? THEN ?
            ELSE status
        END,
            claimed_by = NULL, last_heartbeat = NULL, updated_at = ?
        WHERE status IN (?, ?, ?, ?, ?) AND last_heartbeat IS NOT NULL AND last_heartbeat < ?`,
		StatusFetching, StatusPending,
		StatusSanitizing, StatusFetched,
		StatusSectioning, StatusSanitized,
		StatusStructuring, StatusSectioned,
		StatusNormalizing, StatusStructured,
		now.Format(time.RFC3339Nano),
		StatusFetching,
		StatusSanitizing,
		StatusSectioning,
		StatusStructuring,
		StatusNormalizing,
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale documents: %w", err)
	}
	return res.RowsAffected()
}

// ResetStuckProcessing resets every in-flight document back to the start of
// its current stage, regardless of lease age. Used on daemon startup after
// an unclean shutdown.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE documents
         SET status = CASE status
             WHEN ? THEN ?
             WHEN ? THEN ?
             WHEN ? THEN ?
             WHEN ? THEN ?
             WHEN ? THEN ?
             ELSE status
         END,
             claimed_by = NULL, last_heartbeat = NULL, updated_at = ?
         WHERE status IN (?, ?, ?, ?, ?)`,
		StatusFetching, StatusPending,
		StatusSanitizing, StatusFetched,
		StatusSectioning, StatusSanitized,
		StatusStructuring, StatusSectioned,
		StatusNormalizing, StatusStructured,
		time.Now().UTC().Format(time.RFC3339Nano),
		StatusFetching,
		StatusSanitizing,
		StatusSectioning,
		StatusStructuring,
		StatusNormalizing,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck documents: %w", err)
	}
	return res.RowsAffected()
}

// RetryFailed moves failed documents back to the input status of the stage
// they halted at. retargets maps stage names to their input statuses; when
// ids is empty every failed document is retried.
func (s *Store) RetryFailed(ctx context.Context, retargets map[string]Status, ids ...int64) (int64, error) {
	if len(retargets) == 0 {
		return 0, fmt.Errorf("retry failed: no stage retargets supplied")
	}

	stages := make([]string, 0, len(retargets))
	for stage := range retargets {
		stages = append(stages, stage)
	}
	sort.Strings(stages)

	caseClauses := make([]string, 0, len(stages))
	args := make([]any, 0, len(stages)*3+len(ids)+2)
	for _, stage := range stages {
		caseClauses = append(caseClauses, "WHEN ? THEN ?")
		args = append(args, stage, retargets[stage])
	}

	query := `UPDATE documents
        SET status = CASE halted_stage ` + strings.Join(caseClauses, " ") + ` ELSE status END,
            halted_stage = NULL, error_message = NULL, updated_at = ?
        WHERE status = ? AND halted_stage IN (` + makePlaceholders(len(stages)) + `)`
	args = append(args, time.Now().UTC().Format(time.RFC3339Nano), StatusFailed)
	for _, stage := range stages {
		args = append(args, stage)
	}

	if len(ids) > 0 {
		query += ` AND id IN (` + makePlaceholders(len(ids)) + `)`
		for _, id := range ids {
			args = append(args, id)
		}
	}

	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry failed documents: %w", err)
	}
	return res.RowsAffected()
}

// stageStartedAt preserves the claim-time start timestamp when present so
// the finished record reflects the whole attempt.
func stageStartedAt(doc *Document, stage string, fallback time.Time) time.Time {
	history, err := doc.History()
	if err != nil {
		return fallback
	}
	if record, ok := history[stage]; ok && !record.StartedAt.IsZero() {
		return record.StartedAt
	}
	return fallback
}
