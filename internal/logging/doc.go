// Package logging provides slog construction and shared structured-logging
// helpers: standardized field keys, context-derived attributes, and a no-op
// logger for tests.
package logging
