package stages_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"lexpipe/internal/docstore"
	"lexpipe/internal/logging"
	"lexpipe/internal/services"
	"lexpipe/internal/stages"
)

const sampleDecision = `Processo ADI 1234

EMENTA
Direito constitucional. Controle concentrado.

RELATÓRIO
Trata-se de ação direta de inconstitucionalidade.

VOTO
O relator conhece da ação.

DISPOSITIVO
Julgo procedente o pedido.`

func TestSplitSectionsByHeadings(t *testing.T) {
	sections := stages.SplitSections(sampleDecision)

	want := map[string]string{
		"integra":     "Processo ADI 1234",
		"ementa":      "Direito constitucional. Controle concentrado.",
		"relatorio":   "Trata-se de ação direta de inconstitucionalidade.",
		"voto":        "O relator conhece da ação.",
		"dispositivo": "Julgo procedente o pedido.",
	}
	if len(sections) != len(want) {
		t.Fatalf("got %d sections, want %d: %v", len(sections), len(want), sections)
	}
	for key, content := range want {
		if sections[key] != content {
			t.Errorf("section %q = %q, want %q", key, sections[key], content)
		}
	}
}

func TestSplitSectionsWithoutHeadings(t *testing.T) {
	sections := stages.SplitSections("Decisão monocrática sem divisões.")
	if len(sections) != 1 {
		t.Fatalf("got %d sections: %v", len(sections), sections)
	}
	if sections["integra"] != "Decisão monocrática sem divisões." {
		t.Fatalf("full text section = %q", sections["integra"])
	}
}

func TestSplitSectionsRepeatedHeadingAppends(t *testing.T) {
	sections := stages.SplitSections("VOTO\nprimeiro voto\nVOTO\nsegundo voto")
	if !strings.Contains(sections["voto"], "primeiro voto") || !strings.Contains(sections["voto"], "segundo voto") {
		t.Fatalf("voto section = %q", sections["voto"])
	}
}

func TestSplitSectionsHeadingWithColon(t *testing.T) {
	sections := stages.SplitSections("EMENTA:\ntexto da ementa")
	if sections["ementa"] != "texto da ementa" {
		t.Fatalf("ementa section = %q", sections["ementa"])
	}
}

func TestSectionsStagePersistsJSON(t *testing.T) {
	handler := stages.NewSections(logging.NewNop())

	fields, err := handler.Execute(context.Background(), &docstore.Document{
		SanitizedText: sampleDecision,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	var sections map[string]string
	if err := json.Unmarshal([]byte(fields["sections_json"].(string)), &sections); err != nil {
		t.Fatalf("decode sections_json: %v", err)
	}
	if sections["ementa"] == "" {
		t.Fatalf("ementa missing from %v", sections)
	}
}

func TestSectionsStageEmptyInputIsNoContent(t *testing.T) {
	handler := stages.NewSections(logging.NewNop())

	_, err := handler.Execute(context.Background(), &docstore.Document{SanitizedText: "   "})
	if !errors.Is(err, services.ErrNoContent) {
		t.Fatalf("expected no-content, got %v", err)
	}
}
