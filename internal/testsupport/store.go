package testsupport

import (
	"context"
	"testing"

	"lexpipe/internal/config"
	"lexpipe/internal/docstore"
)

// MustOpenStore opens a docstore.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *docstore.Store {
	t.Helper()

	store, err := docstore.Open(cfg)
	if err != nil {
		t.Fatalf("docstore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewDocument inserts a pending document for tests using the provided store.
func NewDocument(t testing.TB, store *docstore.Store, decisionID string) *docstore.Document {
	t.Helper()

	doc, err := store.Insert(context.Background(), decisionID, "", "")
	if err != nil {
		t.Fatalf("store.Insert: %v", err)
	}
	return doc
}

// SeedDocument inserts a document and advances it directly to the given
// status, optionally setting extra columns (e.g. prior stage outputs).
func SeedDocument(t testing.TB, store *docstore.Store, decisionID string, status docstore.Status, fields map[string]any) *docstore.Document {
	t.Helper()

	doc := NewDocument(t, store, decisionID)
	if status == docstore.StatusPending && len(fields) == 0 {
		return doc
	}

	merged := make(map[string]any, len(fields)+1)
	for column, value := range fields {
		merged[column] = value
	}
	merged["status"] = status

	ok, err := store.UpdateFields(context.Background(), doc.ID, docstore.StatusPending, merged)
	if err != nil {
		t.Fatalf("seed document %s: %v", decisionID, err)
	}
	if !ok {
		t.Fatalf("seed document %s: conditional update did not apply", decisionID)
	}

	seeded, err := store.GetByID(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("reload seeded document %s: %v", decisionID, err)
	}
	return seeded
}
