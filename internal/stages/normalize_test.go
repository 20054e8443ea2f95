package stages_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"lexpipe/internal/canonical"
	"lexpipe/internal/docstore"
	"lexpipe/internal/extract"
	"lexpipe/internal/logging"
	"lexpipe/internal/services"
	"lexpipe/internal/stages"
)

func TestNormalizeCanonicalizesDoctrineAndRapporteur(t *testing.T) {
	handler := stages.NewNormalize(canonical.New(), logging.NewNop())

	doctrine, _ := json.Marshal([]string{
		"Curso de Direito Civil, 5ª ed., revista e atualizada",
		"Curso de Direito Civil",
	})
	details, _ := json.Marshal(extract.DecisionDetails{Rapporteur: "MIN. GILMAR MENDES"})

	fields, err := handler.Execute(context.Background(), &docstore.Document{
		DoctrineJSON:        string(doctrine),
		DecisionDetailsJSON: string(details),
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	var references []stages.DoctrineReference
	if err := json.Unmarshal([]byte(fields["doctrine_json"].(string)), &references); err != nil {
		t.Fatalf("decode doctrine_json: %v", err)
	}
	if len(references) != 2 {
		t.Fatalf("got %d references", len(references))
	}
	// Edition-suffix variant and the clean title resolve to one identity.
	if references[0].StableKey != references[1].StableKey {
		t.Fatalf("variant keys differ: %s vs %s", references[0].StableKey, references[1].StableKey)
	}
	if references[0].Match != string(canonical.MatchNormalized) {
		t.Fatalf("match kind = %s", references[0].Match)
	}

	var normalizedDetails extract.DecisionDetails
	if err := json.Unmarshal([]byte(fields["decision_details_json"].(string)), &normalizedDetails); err != nil {
		t.Fatalf("decode decision_details_json: %v", err)
	}
	if normalizedDetails.Rapporteur != "Gilmar Mendes" {
		t.Fatalf("rapporteur = %q", normalizedDetails.Rapporteur)
	}
}

func TestNormalizeSkipsUnusableCitations(t *testing.T) {
	handler := stages.NewNormalize(canonical.New(), logging.NewNop())

	doctrine, _ := json.Marshal([]string{"   ...   ", "Teoria Geral do Processo"})
	fields, err := handler.Execute(context.Background(), &docstore.Document{
		DoctrineJSON: string(doctrine),
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	var references []stages.DoctrineReference
	if err := json.Unmarshal([]byte(fields["doctrine_json"].(string)), &references); err != nil {
		t.Fatalf("decode doctrine_json: %v", err)
	}
	if len(references) != 1 {
		t.Fatalf("got %d references, want unusable citation dropped", len(references))
	}
}

func TestNormalizeWithoutStructuredFieldsIsNoContent(t *testing.T) {
	handler := stages.NewNormalize(canonical.New(), logging.NewNop())

	_, err := handler.Execute(context.Background(), &docstore.Document{})
	if !errors.Is(err, services.ErrNoContent) {
		t.Fatalf("expected no-content, got %v", err)
	}
}

func TestNormalizeRejectsCorruptDoctrineColumn(t *testing.T) {
	handler := stages.NewNormalize(canonical.New(), logging.NewNop())

	_, err := handler.Execute(context.Background(), &docstore.Document{
		DoctrineJSON: "[not json",
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
