package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ClaimSpec identifies a stage for claiming purposes: the statuses it
// accepts as input and the in-flight status a winning claim moves the
// document to. Documents failed at the same stage become claimable again
// once RetryDelay has elapsed since the failure, so a repeatedly failing
// document cannot monopolize a worker or starve younger candidates; a
// zero RetryDelay makes failures immediately claimable. Documents halted
// with no content are never claimable.
type ClaimSpec struct {
	Stage      string
	Inputs     []Status
	Processing Status
	RetryDelay time.Duration
}

// Predicate narrows claim eligibility with an additional condition over
// document columns, for example "derived field still absent".
type Predicate struct {
	expr string
	args []any
}

// FieldAbsent matches documents where the column is NULL or blank.
func FieldAbsent(column string) (Predicate, error) {
	if _, ok := updatableColumns[column]; !ok {
		return Predicate{}, fmt.Errorf("%w: %s", ErrUnknownColumn, column)
	}
	return Predicate{expr: "(" + column + " IS NULL OR " + column + " = '')"}, nil
}

// FieldPresent matches documents where the column holds a non-empty value.
func FieldPresent(column string) (Predicate, error) {
	if _, ok := updatableColumns[column]; !ok {
		return Predicate{}, fmt.Errorf("%w: %s", ErrUnknownColumn, column)
	}
	return Predicate{expr: "(" + column + " IS NOT NULL AND " + column + " != '')"}, nil
}

const claimAttemptLimit = 32

// ClaimNext atomically leases the oldest document eligible for the stage.
// Selection and the transition into the processing status are a single
// conditional update; losing a race against a concurrent claimer is
// invisible to the caller, the loop simply advances to the next candidate.
// Returns (nil, nil) when no eligible document exists, the normal
// termination condition for a polling loop.
func (s *Store) ClaimNext(ctx context.Context, spec ClaimSpec, workerID string, predicates ...Predicate) (*Document, error) {
	if err := validateSpec(spec); err != nil {
		return nil, err
	}
	ctx = ensureContext(ctx)

	var cursor int64
	for attempt := 0; attempt < claimAttemptLimit; attempt++ {
		candidate, err := s.nextCandidate(ctx, spec, cursor, predicates)
		if err != nil {
			return nil, err
		}
		if candidate == nil {
			return nil, nil
		}

		won, err := s.casClaim(ctx, candidate, spec, workerID)
		if err != nil {
			return nil, err
		}
		if won {
			return s.GetByID(ctx, candidate.ID)
		}
		// Lost the race; skip past this row so the loop always advances.
		cursor = candidate.ID
	}
	return nil, nil
}

// ClaimByDecisionID atomically leases one specific document for the stage.
// Returns (nil, nil) when the document does not exist or is not currently
// eligible.
func (s *Store) ClaimByDecisionID(ctx context.Context, decisionID string, spec ClaimSpec, workerID string) (*Document, error) {
	if err := validateSpec(spec); err != nil {
		return nil, err
	}
	ctx = ensureContext(ctx)

	doc, err := s.GetByDecisionID(ctx, decisionID)
	if err != nil {
		return nil, err
	}
	if doc == nil || !eligibleForSpec(doc, spec, time.Now().UTC()) {
		return nil, nil
	}

	won, err := s.casClaim(ctx, doc, spec, workerID)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, nil
	}
	return s.GetByID(ctx, doc.ID)
}

func validateSpec(spec ClaimSpec) error {
	if strings.TrimSpace(spec.Stage) == "" {
		return fmt.Errorf("claim spec: stage name is required")
	}
	if len(spec.Inputs) == 0 {
		return fmt.Errorf("claim spec: at least one input status is required")
	}
	if !IsProcessingStatus(spec.Processing) {
		return fmt.Errorf("claim spec: %q is not a processing status", spec.Processing)
	}
	return nil
}

func eligibleForSpec(doc *Document, spec ClaimSpec, now time.Time) bool {
	if doc.Status == StatusFailed {
		return doc.HaltedStage == spec.Stage && !doc.UpdatedAt.After(retryCutoff(spec, now))
	}
	for _, input := range spec.Inputs {
		if doc.Status == input {
			return true
		}
	}
	return false
}

// retryCutoff is the latest failure timestamp still eligible for re-claim.
func retryCutoff(spec ClaimSpec, now time.Time) time.Time {
	return now.Add(-spec.RetryDelay)
}

func (s *Store) nextCandidate(ctx context.Context, spec ClaimSpec, cursor int64, predicates []Predicate) (*Document, error) {
	placeholders := makePlaceholders(len(spec.Inputs))
	args := make([]any, 0, len(spec.Inputs)+5)
	for _, status := range spec.Inputs {
		args = append(args, status)
	}
	args = append(args, StatusFailed, spec.Stage,
		retryCutoff(spec, time.Now().UTC()).Format(time.RFC3339Nano))

	conditions := []string{
		`(status IN (` + placeholders + `) OR (status = ? AND halted_stage = ? AND updated_at <= ?))`,
	}
	for _, predicate := range predicates {
		conditions = append(conditions, predicate.expr)
		args = append(args, predicate.args...)
	}
	conditions = append(conditions, `id > ?`)
	args = append(args, cursor)

	query := `SELECT ` + documentColumns + ` FROM documents WHERE ` +
		strings.Join(conditions, ` AND `) + ` ORDER BY id LIMIT 1`

	row := s.db.QueryRowContext(ctx, query, args...)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select claim candidate: %w", err)
	}
	return doc, nil
}

// casClaim performs the compare-and-swap transition into the processing
// status. The WHERE clause re-checks the observed status so two concurrent
// callers can never both win the same document.
func (s *Store) casClaim(ctx context.Context, doc *Document, spec ClaimSpec, workerID string) (bool, error) {
	now := time.Now().UTC()
	historyJSON, err := doc.WithStageRecord(spec.Stage, StageRecord{StartedAt: now})
	if err != nil {
		return false, err
	}

	res, err := s.execWithRetry(
		ctx,
		`UPDATE documents
         SET status = ?, halted_stage = NULL, claimed_by = ?, last_heartbeat = ?,
             stage_history_json = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		spec.Processing,
		nullableString(workerID),
		now.Format(time.RFC3339Nano),
		historyJSON,
		now.Format(time.RFC3339Nano),
		doc.ID,
		doc.Status,
	)
	if err != nil {
		return false, fmt.Errorf("claim document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}
