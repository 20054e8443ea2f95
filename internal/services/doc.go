// Package services defines shared utilities consumed by the pipeline stage
// handlers and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp document identifiers, stage names, and
//     correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that translate stage
//     failures into consistent document outcomes (failed vs no-content).
//
// Use these helpers when wiring new stage logic so operational behaviour
// (error handling, observability, retries) stays uniform across the pipeline.
package services
