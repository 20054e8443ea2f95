package docstore

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Status represents the pipeline lifecycle of a case document.
type Status string

const (
	StatusPending     Status = "pending"
	StatusFetching    Status = "fetching"
	StatusFetched     Status = "fetched"
	StatusSanitizing  Status = "sanitizing"
	StatusSanitized   Status = "sanitized"
	StatusSectioning  Status = "sectioning"
	StatusSectioned   Status = "sectioned"
	StatusStructuring Status = "structuring"
	StatusStructured  Status = "structured"
	StatusNormalizing Status = "normalizing"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
	StatusNoContent   Status = "no_content"
)

var allStatuses = []Status{
	StatusPending,
	StatusFetching,
	StatusFetched,
	StatusSanitizing,
	StatusSanitized,
	StatusSectioning,
	StatusSectioned,
	StatusStructuring,
	StatusStructured,
	StatusNormalizing,
	StatusCompleted,
	StatusFailed,
	StatusNoContent,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusFetching:    {},
	StatusSanitizing:  {},
	StatusSectioning:  {},
	StatusStructuring: {},
	StatusNormalizing: {},
}

// processingRollbacks maps each in-flight status back to the input status a
// stale or stuck document is returned to.
var processingRollbacks = map[Status]Status{
	StatusFetching:    StatusPending,
	StatusSanitizing:  StatusFetched,
	StatusSectioning:  StatusSanitized,
	StatusStructuring: StatusSectioned,
	StatusNormalizing: StatusStructured,
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessingStatus reports whether a status reflects an in-flight claim.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// RollbackStatus returns the input status a processing status is restored to
// when its lease expires.
func RollbackStatus(processing Status) (Status, bool) {
	input, ok := processingRollbacks[processing]
	return input, ok
}

// StageRecord captures one stage attempt in the document's audit history.
// Records are overwritten on re-attempt, never deleted.
type StageRecord struct {
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt,omitzero"`
	Error      string    `json:"error,omitempty"`
}

// StageHistory maps stage names to their most recent attempt record.
type StageHistory map[string]StageRecord

// Document is a case record persisted in SQLite.
type Document struct {
	ID                  int64
	DecisionID          string
	SourceRecordID      string
	SourceURL           string
	Status              Status
	HaltedStage         string
	ErrorMessage        string
	RawHTML             string
	SanitizedText       string
	SectionsJSON        string
	PartiesJSON         string
	KeywordsJSON        string
	LegislationJSON     string
	DoctrineJSON        string
	DecisionDetailsJSON string
	StageHistoryJSON    string
	ClaimedBy           string
	LastHeartbeat       *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
	LastSuccessAt       *time.Time
}

// IsProcessing returns true when the document is held by an active claim.
func (d Document) IsProcessing() bool {
	return IsProcessingStatus(d.Status)
}

// History decodes the stage audit history. A missing or blank column
// yields an empty history.
func (d Document) History() (StageHistory, error) {
	if strings.TrimSpace(d.StageHistoryJSON) == "" {
		return StageHistory{}, nil
	}
	var history StageHistory
	if err := json.Unmarshal([]byte(d.StageHistoryJSON), &history); err != nil {
		return nil, fmt.Errorf("decode stage history: %w", err)
	}
	return history, nil
}

// WithStageRecord returns the history JSON with one stage's record replaced.
func (d Document) WithStageRecord(stage string, record StageRecord) (string, error) {
	history, err := d.History()
	if err != nil {
		return "", err
	}
	history[stage] = record
	encoded, err := json.Marshal(history)
	if err != nil {
		return "", fmt.Errorf("encode stage history: %w", err)
	}
	return string(encoded), nil
}

// HistoryStages returns stage names present in the history, sorted for
// stable presentation.
func (d Document) HistoryStages() []string {
	history, err := d.History()
	if err != nil {
		return nil
	}
	stages := make([]string, 0, len(history))
	for stage := range history {
		stages = append(stages, stage)
	}
	sort.Strings(stages)
	return stages
}

// HealthSummary describes aggregated document counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Failed     int
	NoContent  int
	Completed  int
}
