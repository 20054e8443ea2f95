package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"lexpipe/internal/config"
)

// Options controls logger construction.
type Options struct {
	Format string
	Level  string
	Writer io.Writer
}

// New builds a slog.Logger from the supplied options. Format "json" emits
// machine-readable records; anything else falls back to the text handler.
func New(opts Options) *slog.Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	level := ParseLevel(opts.Level)
	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(strings.TrimSpace(opts.Format), "json") {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}
	return slog.New(handler)
}

// NewFromConfig builds the process logger from configuration.
func NewFromConfig(cfg *config.Config) *slog.Logger {
	if cfg == nil {
		return NewNop()
	}
	return New(Options{
		Format: cfg.Logging.Format,
		Level:  cfg.Logging.Level,
	})
}

// ParseLevel converts a configuration level string to a slog.Level.
// Unknown values map to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// StageLevel resolves a per-stage log level override, falling back to the
// configured global level when the stage has none.
func StageLevel(cfg *config.Config, stage string) slog.Level {
	if cfg == nil {
		return slog.LevelInfo
	}
	if override, ok := cfg.Logging.StageOverrides[strings.ToLower(strings.TrimSpace(stage))]; ok {
		return ParseLevel(override)
	}
	return ParseLevel(cfg.Logging.Level)
}
