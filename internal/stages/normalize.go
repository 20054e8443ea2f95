package stages

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"lexpipe/internal/canonical"
	"lexpipe/internal/docstore"
	"lexpipe/internal/extract"
	"lexpipe/internal/logging"
	"lexpipe/internal/services"
	"lexpipe/internal/stage"
)

// DoctrineReference is one cited work resolved to its canonical identity.
type DoctrineReference struct {
	Raw             string `json:"raw"`
	NormalizedTitle string `json:"normalizedTitle"`
	StableKey       string `json:"stableKey"`
	DisplayTitle    string `json:"displayTitle"`
	Match           string `json:"match"`
}

// Normalize canonicalizes doctrine citations and the rapporteur name. It
// is the terminal stage: a successful run completes the document.
type Normalize struct {
	canonicalizer *canonical.Canonicalizer
	logger        *slog.Logger
}

// NewNormalize builds the normalize stage processor.
func NewNormalize(canonicalizer *canonical.Canonicalizer, logger *slog.Logger) *Normalize {
	return &Normalize{
		canonicalizer: canonicalizer,
		logger:        logging.NewComponentLogger(logger, "stage-normalize"),
	}
}

func (n *Normalize) Execute(ctx context.Context, doc *docstore.Document) (map[string]any, error) {
	if strings.TrimSpace(doc.DoctrineJSON) == "" && strings.TrimSpace(doc.DecisionDetailsJSON) == "" {
		return nil, services.Wrap(services.ErrNoContent, stage.Normalize, "input", "document has no structured fields", nil)
	}

	fields := make(map[string]any, 2)

	references, skipped, err := n.normalizeDoctrine(doc.DoctrineJSON)
	if err != nil {
		return nil, err
	}
	encoded, err := json.Marshal(references)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, stage.Normalize, "encode", "marshal doctrine references", err)
	}
	fields["doctrine_json"] = string(encoded)

	details, err := n.normalizeDetails(doc.DecisionDetailsJSON)
	if err != nil {
		return nil, err
	}
	if details != "" {
		fields["decision_details_json"] = details
	}

	logging.WithContext(ctx, n.logger).Info("normalized entities",
		logging.Int("doctrine_references", len(references)),
		logging.Int("doctrine_skipped", skipped))
	return fields, nil
}

func (n *Normalize) HealthCheck(ctx context.Context) stage.Health {
	if n.canonicalizer == nil {
		return stage.Unhealthy(stage.Normalize, "no canonicalizer configured")
	}
	return stage.Healthy(stage.Normalize)
}

// normalizeDoctrine resolves each raw citation. Citations that clean down
// to nothing are dropped, not failed: an unusable entry should not block
// the document.
func (n *Normalize) normalizeDoctrine(raw string) ([]DoctrineReference, int, error) {
	references := []DoctrineReference{}
	if strings.TrimSpace(raw) == "" {
		return references, 0, nil
	}

	var citations []string
	if err := json.Unmarshal([]byte(raw), &citations); err != nil {
		return nil, 0, services.Wrap(services.ErrValidation, stage.Normalize, "input", "decode doctrine citations", err)
	}

	skipped := 0
	for _, citation := range citations {
		result, err := n.canonicalizer.Canonicalize(citation)
		if err != nil {
			if errors.Is(err, canonical.ErrEmptyTitle) {
				skipped++
				continue
			}
			return nil, 0, services.Wrap(services.ErrValidation, stage.Normalize, "canonicalize", "resolve citation", err)
		}
		references = append(references, DoctrineReference{
			Raw:             result.Raw,
			NormalizedTitle: result.NormalizedTitle,
			StableKey:       result.StableKey,
			DisplayTitle:    result.DisplayTitle,
			Match:           string(result.Match),
		})
	}
	return references, skipped, nil
}

func (n *Normalize) normalizeDetails(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	var details extract.DecisionDetails
	if err := json.Unmarshal([]byte(raw), &details); err != nil {
		return "", services.Wrap(services.ErrValidation, stage.Normalize, "input", "decode decision details", err)
	}
	details.Rapporteur = canonical.NormalizePersonName(details.Rapporteur)
	encoded, err := json.Marshal(details)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, stage.Normalize, "encode", "marshal decision details", err)
	}
	return string(encoded), nil
}
