package stages

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"lexpipe/internal/docstore"
	"lexpipe/internal/extract"
	"lexpipe/internal/logging"
	"lexpipe/internal/services"
	"lexpipe/internal/stage"
)

// Structure calls the extraction service to derive structured fields from
// the document's section text.
type Structure struct {
	service extract.Service
	logger  *slog.Logger
}

// NewStructure builds the structure stage processor.
func NewStructure(service extract.Service, logger *slog.Logger) *Structure {
	return &Structure{
		service: service,
		logger:  logging.NewComponentLogger(logger, "stage-structure"),
	}
}

func (s *Structure) Execute(ctx context.Context, doc *docstore.Document) (map[string]any, error) {
	// Blank input halts here: the service is never invoked for a document
	// with nothing to structure.
	if strings.TrimSpace(doc.SectionsJSON) == "" {
		return nil, services.Wrap(services.ErrNoContent, stage.Structure, "input", "document has no sections", nil)
	}

	var sections map[string]string
	if err := json.Unmarshal([]byte(doc.SectionsJSON), &sections); err != nil {
		return nil, services.Wrap(services.ErrValidation, stage.Structure, "input", "decode sections", err)
	}
	if !hasSectionText(sections) {
		return nil, services.Wrap(services.ErrNoContent, stage.Structure, "input", "all sections are empty", nil)
	}

	result, err := s.service.ExtractStructure(ctx, sections)
	if err != nil {
		switch {
		case errors.Is(err, extract.ErrMalformed):
			return nil, services.Wrap(services.ErrExtraction, stage.Structure, "extract", "malformed service response", err)
		case errors.Is(err, extract.ErrTransport):
			return nil, services.Wrap(services.ErrTransient, stage.Structure, "extract", "service unreachable", err)
		default:
			return nil, services.Wrap(services.ErrExtraction, stage.Structure, "extract", "service call failed", err)
		}
	}

	fields, err := encodeStructure(result)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, stage.Structure, "encode", "marshal structured fields", err)
	}

	logging.WithContext(ctx, s.logger).Info("structured decision fields",
		logging.Int("parties", len(result.Parties)),
		logging.Int("keywords", len(result.Keywords)),
		logging.Int("legislation", len(result.Legislation)),
		logging.Int("doctrine", len(result.Doctrine)))
	return fields, nil
}

func (s *Structure) HealthCheck(ctx context.Context) stage.Health {
	if s.service == nil {
		return stage.Unhealthy(stage.Structure, "no extraction service configured")
	}
	return stage.Healthy(stage.Structure)
}

func hasSectionText(sections map[string]string) bool {
	for _, content := range sections {
		if strings.TrimSpace(content) != "" {
			return true
		}
	}
	return false
}

func encodeStructure(result *extract.Result) (map[string]any, error) {
	fields := make(map[string]any, 5)
	for column, value := range map[string]any{
		"parties_json":     result.Parties,
		"keywords_json":    result.Keywords,
		"legislation_json": result.Legislation,
		"doctrine_json":    result.Doctrine,
	} {
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		fields[column] = string(encoded)
	}
	details, err := json.Marshal(result.Details)
	if err != nil {
		return nil, err
	}
	fields["decision_details_json"] = string(details)
	return fields, nil
}
