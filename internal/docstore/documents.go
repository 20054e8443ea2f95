package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

const documentColumns = "id, stf_decision_id, source_record_id, source_url, status, halted_stage, error_message, raw_html, sanitized_text, sections_json, parties_json, keywords_json, legislation_json, doctrine_json, decision_details_json, stage_history_json, claimed_by, last_heartbeat, created_at, updated_at, last_success_at"

// updatableColumns is the allowlist for column-scoped updates. Identity and
// audit-creation columns are deliberately absent: stf_decision_id is
// immutable once set.
var updatableColumns = map[string]struct{}{
	"source_record_id":      {},
	"source_url":            {},
	"status":                {},
	"halted_stage":          {},
	"error_message":         {},
	"raw_html":              {},
	"sanitized_text":        {},
	"sections_json":         {},
	"parties_json":          {},
	"keywords_json":         {},
	"legislation_json":      {},
	"doctrine_json":         {},
	"decision_details_json": {},
	"stage_history_json":    {},
	"claimed_by":            {},
	"last_heartbeat":        {},
	"last_success_at":       {},
}

// ErrUnknownColumn reports an attempted update outside the allowlist.
var ErrUnknownColumn = errors.New("unknown document column")

// Insert creates a new pending document keyed by its decision identifier.
func (s *Store) Insert(ctx context.Context, decisionID, sourceRecordID, sourceURL string) (*Document, error) {
	decisionID = strings.TrimSpace(decisionID)
	if decisionID == "" {
		return nil, errors.New("decision id is required")
	}
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO documents (
            stf_decision_id, source_record_id, source_url, status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?)`,
		decisionID,
		nullableString(strings.TrimSpace(sourceRecordID)),
		nullableString(strings.TrimSpace(sourceURL)),
		StatusPending,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert document: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a document by row identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// GetByDecisionID fetches a document by its stable decision identifier.
func (s *Store) GetByDecisionID(ctx context.Context, decisionID string) (*Document, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+documentColumns+` FROM documents WHERE stf_decision_id = ?`,
		strings.TrimSpace(decisionID),
	)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get document by decision id: %w", err)
	}
	return doc, nil
}

// List returns documents filtered by status set (or all documents when no
// status is provided), ordered by insertion.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Document, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + documentColumns + ` FROM documents`
	orderClause := ` ORDER BY id`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// DecisionIDsNotCompleted returns decision identifiers for documents that
// have not reached the terminal state, oldest first. Used by bulk discovery
// runs.
func (s *Store) DecisionIDsNotCompleted(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT stf_decision_id FROM documents WHERE status != ? ORDER BY id`,
		StatusCompleted,
	)
	if err != nil {
		return nil, fmt.Errorf("query pending decision ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DistinctValues returns the distinct non-null values of an allowlisted column.
func (s *Store) DistinctValues(ctx context.Context, column string) ([]string, error) {
	if _, ok := updatableColumns[column]; !ok && column != "stf_decision_id" {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, column)
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT DISTINCT `+column+` FROM documents WHERE `+column+` IS NOT NULL ORDER BY `+column,
	)
	if err != nil {
		return nil, fmt.Errorf("distinct %s: %w", column, err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	return values, rows.Err()
}

// CountByStatus returns the number of documents in the given statuses, or
// all documents when none are provided.
func (s *Store) CountByStatus(ctx context.Context, statuses ...Status) (int, error) {
	var (
		row *sql.Row
	)
	if len(statuses) == 0 {
		row = s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM documents`)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		row = s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM documents WHERE status IN (`+placeholders+`)`, args...)
	}
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return count, nil
}

// Stats returns a count of documents grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM documents GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("document stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health aggregates document state for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for status, count := range stats {
		health.Total += count
		switch status {
		case StatusPending:
			health.Pending += count
		case StatusFailed:
			health.Failed += count
		case StatusNoContent:
			health.NoContent += count
		case StatusCompleted:
			health.Completed += count
		default:
			if IsProcessingStatus(status) {
				health.Processing += count
			}
		}
	}
	return health, nil
}

// UpdateFields performs a column-scoped conditional update: the named
// columns are written only while the document still holds expectStatus.
// Returns false without error when the condition no longer holds.
func (s *Store) UpdateFields(ctx context.Context, id int64, expectStatus Status, fields map[string]any) (bool, error) {
	if len(fields) == 0 {
		return false, errors.New("no fields to update")
	}
	columns := make([]string, 0, len(fields))
	for column := range fields {
		if _, ok := updatableColumns[column]; !ok {
			return false, fmt.Errorf("%w: %s", ErrUnknownColumn, column)
		}
		columns = append(columns, column)
	}
	sort.Strings(columns)

	assignments := make([]string, 0, len(columns)+1)
	args := make([]any, 0, len(columns)+3)
	for _, column := range columns {
		assignments = append(assignments, column+" = ?")
		args = append(args, fields[column])
	}
	assignments = append(assignments, "updated_at = ?")
	args = append(args, time.Now().UTC().Format(time.RFC3339Nano), id, expectStatus)

	query := `UPDATE documents SET ` + strings.Join(assignments, ", ") + ` WHERE id = ? AND status = ?`
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("update document fields: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

func scanDocument(scanner interface{ Scan(dest ...any) error }) (*Document, error) {
	var (
		id               int64
		decisionID       string
		sourceRecordID   sql.NullString
		sourceURL        sql.NullString
		statusStr        string
		haltedStage      sql.NullString
		errorMessage     sql.NullString
		rawHTML          sql.NullString
		sanitizedText    sql.NullString
		sections         sql.NullString
		parties          sql.NullString
		keywords         sql.NullString
		legislation      sql.NullString
		doctrine         sql.NullString
		decisionDetails  sql.NullString
		stageHistory     sql.NullString
		claimedBy        sql.NullString
		lastHeartbeatRaw sql.NullString
		createdRaw       sql.NullString
		updatedRaw       sql.NullString
		lastSuccessRaw   sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&decisionID,
		&sourceRecordID,
		&sourceURL,
		&statusStr,
		&haltedStage,
		&errorMessage,
		&rawHTML,
		&sanitizedText,
		&sections,
		&parties,
		&keywords,
		&legislation,
		&doctrine,
		&decisionDetails,
		&stageHistory,
		&claimedBy,
		&lastHeartbeatRaw,
		&createdRaw,
		&updatedRaw,
		&lastSuccessRaw,
	); err != nil {
		return nil, err
	}

	doc := &Document{
		ID:                  id,
		DecisionID:          decisionID,
		SourceRecordID:      sourceRecordID.String,
		SourceURL:           sourceURL.String,
		Status:              Status(statusStr),
		HaltedStage:         haltedStage.String,
		ErrorMessage:        errorMessage.String,
		RawHTML:             rawHTML.String,
		SanitizedText:       sanitizedText.String,
		SectionsJSON:        sections.String,
		PartiesJSON:         parties.String,
		KeywordsJSON:        keywords.String,
		LegislationJSON:     legislation.String,
		DoctrineJSON:        doctrine.String,
		DecisionDetailsJSON: decisionDetails.String,
		StageHistoryJSON:    stageHistory.String,
		ClaimedBy:           claimedBy.String,
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		doc.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		doc.UpdatedAt = updated
	}
	if lastHeartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(lastHeartbeatRaw.String); err == nil {
			doc.LastHeartbeat = &heartbeat
		}
	}
	if lastSuccessRaw.Valid {
		if success, err := parseTimeString(lastSuccessRaw.String); err == nil {
			doc.LastSuccessAt = &success
		}
	}
	return doc, nil
}
