package stageexec_test

import (
	"context"
	"testing"

	"lexpipe/internal/docstore"
	"lexpipe/internal/logging"
	"lexpipe/internal/services"
	"lexpipe/internal/stage"
	"lexpipe/internal/stageexec"
	"lexpipe/internal/stages"
	"lexpipe/internal/testsupport"
)

type stubHandler struct {
	fields map[string]any
	err    error
}

func (s *stubHandler) Execute(ctx context.Context, doc *docstore.Document) (map[string]any, error) {
	return s.fields, s.err
}

func (s *stubHandler) HealthCheck(ctx context.Context) stage.Health {
	return stage.Healthy("stub")
}

func fetchDescriptor(t *testing.T) stage.Descriptor {
	t.Helper()
	descriptor, ok := stage.Lookup(stage.Fetch)
	if !ok {
		t.Fatal("fetch descriptor missing")
	}
	return descriptor
}

func claimForFetch(t *testing.T, store *docstore.Store, decisionID string) *docstore.Document {
	t.Helper()
	testsupport.NewDocument(t, store, decisionID)
	doc, err := store.ClaimNext(context.Background(), fetchDescriptor(t).ClaimSpec(), "worker-test")
	if err != nil || doc == nil {
		t.Fatalf("claim: doc=%v err=%v", doc, err)
	}
	return doc
}

func TestRunCommitsSuccessfulStage(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	doc := claimForFetch(t, store, "ADI-900")

	outcome, err := stageexec.Run(context.Background(), stageexec.Options{
		Logger:     logging.NewNop(),
		Store:      store,
		Handler:    &stubHandler{fields: map[string]any{"raw_html": "<html>ok</html>"}},
		Descriptor: fetchDescriptor(t),
		Document:   doc,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome != services.OutcomeDone {
		t.Fatalf("outcome = %v", outcome)
	}

	reloaded, err := store.GetByID(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if reloaded.Status != docstore.StatusFetched {
		t.Fatalf("status = %s", reloaded.Status)
	}
	if reloaded.RawHTML != "<html>ok</html>" {
		t.Fatalf("raw_html = %q", reloaded.RawHTML)
	}
}

func TestRunPersistsNoContentHalt(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	doc := claimForFetch(t, store, "ADI-901")

	outcome, err := stageexec.Run(context.Background(), stageexec.Options{
		Logger:     logging.NewNop(),
		Store:      store,
		Handler:    &stubHandler{err: services.Wrap(services.ErrNoContent, "fetch", "input", "no source url", nil)},
		Descriptor: fetchDescriptor(t),
		Document:   doc,
	})
	if err != nil {
		t.Fatalf("no-content is not an error for the caller, got %v", err)
	}
	if outcome != services.OutcomeNoContent {
		t.Fatalf("outcome = %v", outcome)
	}

	reloaded, err := store.GetByID(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if reloaded.Status != docstore.StatusNoContent || reloaded.HaltedStage != "fetch" {
		t.Fatalf("halt not persisted: %+v", reloaded)
	}
}

func TestRunPersistsFailureAndReturnsError(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	doc := claimForFetch(t, store, "ADI-902")

	stageErr := services.Wrap(services.ErrTransient, "fetch", "request", "portal unreachable", nil)
	outcome, err := stageexec.Run(context.Background(), stageexec.Options{
		Logger:     logging.NewNop(),
		Store:      store,
		Handler:    &stubHandler{err: stageErr},
		Descriptor: fetchDescriptor(t),
		Document:   doc,
	})
	if err == nil {
		t.Fatal("expected stage error to propagate")
	}
	if outcome != services.OutcomeFailed {
		t.Fatalf("outcome = %v", outcome)
	}

	reloaded, err := store.GetByID(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if reloaded.Status != docstore.StatusFailed {
		t.Fatalf("status = %s", reloaded.Status)
	}
	if reloaded.ErrorMessage == "" {
		t.Fatal("expected error message to persist")
	}
}

func TestRunWithRealHandler(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	testsupport.SeedDocument(t, store, "ADI-903", docstore.StatusFetched, map[string]any{
		"raw_html": "<html><p>EMENTA</p><p>texto</p></html>",
	})
	descriptor, _ := stage.Lookup(stage.Sanitize)
	doc, err := store.ClaimNext(context.Background(), descriptor.ClaimSpec(), "worker-test")
	if err != nil || doc == nil {
		t.Fatalf("claim: doc=%v err=%v", doc, err)
	}

	outcome, err := stageexec.Run(context.Background(), stageexec.Options{
		Logger:     logging.NewNop(),
		Store:      store,
		Handler:    stages.NewSanitize(logging.NewNop()),
		Descriptor: descriptor,
		Document:   doc,
	})
	if err != nil || outcome != services.OutcomeDone {
		t.Fatalf("Run: outcome=%v err=%v", outcome, err)
	}

	reloaded, err := store.GetByID(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if reloaded.Status != docstore.StatusSanitized || reloaded.SanitizedText == "" {
		t.Fatalf("sanitize did not land: %+v", reloaded)
	}
}
