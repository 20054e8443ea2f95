package stages

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"

	"lexpipe/internal/docstore"
	"lexpipe/internal/logging"
	"lexpipe/internal/services"
	"lexpipe/internal/stage"
)

// sectionHeadings maps recognized decision headings to stable section keys.
// Keys are ASCII so the stored JSON survives any collation.
var sectionHeadings = map[string]string{
	"ementa":      "ementa",
	"acórdão":     "acordao",
	"acordao":     "acordao",
	"relatório":   "relatorio",
	"relatorio":   "relatorio",
	"voto":        "voto",
	"dispositivo": "dispositivo",
	"decisão":     "decisao",
	"decisao":     "decisao",
}

// fullTextKey holds the whole document when no heading markers are found.
const fullTextKey = "integra"

var headingLine = regexp.MustCompile(`(?i)^\s*(ementa|acórdão|acordao|relatório|relatorio|voto|dispositivo|decisão|decisao)\s*:?\s*$`)

// Sections splits the sanitized decision text into its named sections.
type Sections struct {
	logger *slog.Logger
}

// NewSections builds the sections stage processor.
func NewSections(logger *slog.Logger) *Sections {
	return &Sections{logger: logging.NewComponentLogger(logger, "stage-sections")}
}

func (s *Sections) Execute(ctx context.Context, doc *docstore.Document) (map[string]any, error) {
	text := strings.TrimSpace(doc.SanitizedText)
	if text == "" {
		return nil, services.Wrap(services.ErrNoContent, stage.Sections, "input", "document has no sanitized text", nil)
	}

	sections := SplitSections(text)
	encoded, err := json.Marshal(sections)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, stage.Sections, "encode", "marshal sections", err)
	}

	logging.WithContext(ctx, s.logger).Info("split decision into sections",
		logging.Int("sections", len(sections)))
	return map[string]any{"sections_json": string(encoded)}, nil
}

func (s *Sections) HealthCheck(ctx context.Context) stage.Health {
	return stage.Healthy(stage.Sections)
}

// SplitSections scans the text line by line, opening a new section at each
// recognized heading. Text before the first heading, or all of it when no
// heading exists, lands under the full-text key. A heading that repeats
// appends to its existing section.
func SplitSections(text string) map[string]string {
	lines := strings.Split(text, "\n")
	sections := make(map[string]string)
	var buffer []string
	current := fullTextKey

	flush := func() {
		content := strings.TrimSpace(strings.Join(buffer, "\n"))
		buffer = buffer[:0]
		if content == "" {
			return
		}
		if existing, ok := sections[current]; ok {
			sections[current] = existing + "\n" + content
			return
		}
		sections[current] = content
	}

	for _, line := range lines {
		if match := headingLine.FindStringSubmatch(line); match != nil {
			flush()
			current = sectionHeadings[strings.ToLower(match[1])]
			continue
		}
		buffer = append(buffer, line)
	}
	flush()
	return sections
}
