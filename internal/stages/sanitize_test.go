package stages_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"lexpipe/internal/docstore"
	"lexpipe/internal/logging"
	"lexpipe/internal/services"
	"lexpipe/internal/stages"
)

func TestSanitizeStripsMarkup(t *testing.T) {
	handler := stages.NewSanitize(logging.NewNop())

	fields, err := handler.Execute(context.Background(), &docstore.Document{
		RawHTML: `<html><head><script>track()</script></head>
<body><h1>EMENTA</h1><p>Direito constitucional.</p></body></html>`,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	text, _ := fields["sanitized_text"].(string)
	if strings.Contains(text, "track()") {
		t.Fatalf("script content survived: %q", text)
	}
	if !strings.Contains(text, "EMENTA") || !strings.Contains(text, "Direito constitucional.") {
		t.Fatalf("text content lost: %q", text)
	}
}

func TestSanitizeEmptyInputs(t *testing.T) {
	handler := stages.NewSanitize(logging.NewNop())

	_, err := handler.Execute(context.Background(), &docstore.Document{})
	if !errors.Is(err, services.ErrNoContent) {
		t.Fatalf("missing raw html: expected no-content, got %v", err)
	}

	_, err = handler.Execute(context.Background(), &docstore.Document{
		RawHTML: "<script>only();</script>",
	})
	if !errors.Is(err, services.ErrNoContent) {
		t.Fatalf("script-only page: expected no-content, got %v", err)
	}
}
