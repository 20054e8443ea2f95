package pipeline

import (
	"fmt"
	"log/slog"

	"lexpipe/internal/canonical"
	"lexpipe/internal/config"
	"lexpipe/internal/extract"
	"lexpipe/internal/fetch"
	"lexpipe/internal/stage"
	"lexpipe/internal/stages"
)

// HandlerSet binds each stage name to its processor.
type HandlerSet map[string]stage.Handler

// NewHandlerSet wires the production stage processors from configuration.
func NewHandlerSet(cfg *config.Config, logger *slog.Logger) (HandlerSet, error) {
	aliases, err := canonical.LoadAliasMap(cfg.Paths.AliasMapPath)
	if err != nil {
		return nil, err
	}
	catalog, err := canonical.LoadCatalog(cfg.Paths.CatalogPath)
	if err != nil {
		return nil, err
	}

	options := []canonical.Option{canonical.WithAliases(aliases)}
	if cfg.Canonical.FuzzyEnabled {
		options = append(options, canonical.WithCatalog(catalog, cfg.Canonical.FuzzyThreshold))
	}
	canonicalizer := canonical.New(options...)

	return HandlerSet{
		stage.Fetch:     stages.NewFetch(fetch.NewHTTPFetcher(cfg), logger),
		stage.Sanitize:  stages.NewSanitize(logger),
		stage.Sections:  stages.NewSections(logger),
		stage.Structure: stages.NewStructure(extract.NewHTTPService(cfg), logger),
		stage.Normalize: stages.NewNormalize(canonicalizer, logger),
	}, nil
}

// handlerFor resolves the processor for a descriptor.
func (h HandlerSet) handlerFor(descriptor stage.Descriptor) (stage.Handler, error) {
	handler, ok := h[descriptor.Name]
	if !ok || handler == nil {
		return nil, fmt.Errorf("no handler registered for stage %s", descriptor.Name)
	}
	return handler, nil
}
