package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransient marks network or store timeouts that the next poll
	// cycle may succeed on.
	ErrTransient = errors.New("transient failure")
	// ErrNoContent marks a stage whose required input was missing or
	// blank. The document halts at the stage without an automatic retry.
	ErrNoContent = errors.New("no extractable content")
	// ErrExtraction marks a failed or structurally invalid response from
	// the extraction service. The document fails and stays retry-eligible.
	ErrExtraction = errors.New("extraction service error")
	// ErrValidation marks input that is present but unusable.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks missing or inconsistent configuration.
	ErrConfiguration = errors.New("configuration error")
)

// Outcome classifies how a finished stage attempt should be persisted.
type Outcome int

const (
	OutcomeDone Outcome = iota
	OutcomeNoContent
	OutcomeFailed
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later outcome classification. The marker
// should be one of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Resolve maps a stage error to the outcome the pipeline should persist.
// A nil error is a completed stage; ErrNoContent halts the document at the
// stage without marking it failed; everything else is a retry-eligible
// failure.
func Resolve(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeDone
	case errors.Is(err, ErrNoContent):
		return OutcomeNoContent
	default:
		return OutcomeFailed
	}
}

// Message extracts a compact human-readable message for audit columns.
func Message(err error) string {
	if err == nil {
		return ""
	}
	return strings.TrimSpace(err.Error())
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
