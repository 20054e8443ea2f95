package stages

import (
	"context"
	"log/slog"
	"strings"

	"lexpipe/internal/docstore"
	"lexpipe/internal/logging"
	"lexpipe/internal/services"
	"lexpipe/internal/stage"
	"lexpipe/internal/textutil"
)

// Sanitize strips markup from the raw page and keeps the plain decision
// text.
type Sanitize struct {
	logger *slog.Logger
}

// NewSanitize builds the sanitize stage processor.
func NewSanitize(logger *slog.Logger) *Sanitize {
	return &Sanitize{logger: logging.NewComponentLogger(logger, "stage-sanitize")}
}

func (s *Sanitize) Execute(ctx context.Context, doc *docstore.Document) (map[string]any, error) {
	if strings.TrimSpace(doc.RawHTML) == "" {
		return nil, services.Wrap(services.ErrNoContent, stage.Sanitize, "input", "document has no raw html", nil)
	}

	text := textutil.StripMarkup(doc.RawHTML)
	if text == "" {
		return nil, services.Wrap(services.ErrNoContent, stage.Sanitize, "strip", "page reduced to empty text", nil)
	}

	logging.WithContext(ctx, s.logger).Info("sanitized decision page",
		logging.Int("raw_bytes", len(doc.RawHTML)),
		logging.Int("text_bytes", len(text)))
	return map[string]any{"sanitized_text": text}, nil
}

func (s *Sanitize) HealthCheck(ctx context.Context) stage.Health {
	return stage.Healthy(stage.Sanitize)
}
