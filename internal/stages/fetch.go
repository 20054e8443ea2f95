package stages

import (
	"context"
	"log/slog"
	"strings"

	"lexpipe/internal/docstore"
	"lexpipe/internal/fetch"
	"lexpipe/internal/logging"
	"lexpipe/internal/services"
	"lexpipe/internal/stage"
)

// Fetch downloads the raw decision page for a document.
type Fetch struct {
	fetcher fetch.Fetcher
	logger  *slog.Logger
}

// NewFetch builds the fetch stage processor.
func NewFetch(fetcher fetch.Fetcher, logger *slog.Logger) *Fetch {
	return &Fetch{
		fetcher: fetcher,
		logger:  logging.NewComponentLogger(logger, "stage-fetch"),
	}
}

func (f *Fetch) Execute(ctx context.Context, doc *docstore.Document) (map[string]any, error) {
	url := strings.TrimSpace(doc.SourceURL)
	if url == "" {
		return nil, services.Wrap(services.ErrNoContent, stage.Fetch, "input", "document has no source url", nil)
	}

	html, err := f.fetcher.FetchPage(ctx, url)
	if err != nil {
		return nil, err
	}

	logging.WithContext(ctx, f.logger).Info("fetched decision page",
		logging.Int("bytes", len(html)))
	return map[string]any{"raw_html": html}, nil
}

func (f *Fetch) HealthCheck(ctx context.Context) stage.Health {
	if f.fetcher == nil {
		return stage.Unhealthy(stage.Fetch, "no fetcher configured")
	}
	return stage.Healthy(stage.Fetch)
}
