package stage

import (
	"context"

	"lexpipe/internal/docstore"
)

// Handler describes the contract the pipeline needs from each stage.
// Execute performs the stage's work and returns the document columns to
// commit; the runner persists them as a single conditional update, so a
// stage either lands atomically or not at all.
type Handler interface {
	Execute(context.Context, *docstore.Document) (map[string]any, error)
	HealthCheck(context.Context) Health
}

// Health summarizes the readiness of a pipeline stage.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy constructs a ready Health record.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy constructs an unhealthy Health record with context detail.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}
