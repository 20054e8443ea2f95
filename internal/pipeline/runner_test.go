package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"lexpipe/internal/canonical"
	"lexpipe/internal/docstore"
	"lexpipe/internal/extract"
	"lexpipe/internal/logging"
	"lexpipe/internal/pipeline"
	"lexpipe/internal/stage"
	"lexpipe/internal/stages"
	"lexpipe/internal/testsupport"
)

const decisionPage = `<html><body>
<h2>EMENTA</h2><p>Direito constitucional. Controle concentrado.</p>
<h2>VOTO</h2><p>O relator conhece da ação.</p>
</body></html>`

type scriptedFetcher struct {
	mu       sync.Mutex
	calls    int
	urlCalls map[string]int
	failures map[string]error
	err      error
}

func (f *scriptedFetcher) FetchPage(ctx context.Context, url string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.urlCalls == nil {
		f.urlCalls = make(map[string]int)
	}
	f.urlCalls[url]++
	if err := f.failures[url]; err != nil {
		return "", err
	}
	if f.err != nil {
		return "", f.err
	}
	return decisionPage, nil
}

// failURL makes every fetch of one URL fail with err.
func (f *scriptedFetcher) failURL(url string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures == nil {
		f.failures = make(map[string]error)
	}
	f.failures[url] = err
}

func (f *scriptedFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *scriptedFetcher) urlCallCount(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.urlCalls[url]
}

type scriptedExtractor struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (e *scriptedExtractor) ExtractStructure(ctx context.Context, sections map[string]string) (*extract.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return &extract.Result{
		Parties:  []extract.Party{{Name: "União", Role: "recorrente"}},
		Keywords: []string{"controle concentrado"},
		Doctrine: []string{"Curso de Direito Civil, 5ª ed., revista e atualizada"},
		Details:  extract.DecisionDetails{Rapporteur: "MIN. GILMAR MENDES"},
	}, nil
}

func (e *scriptedExtractor) setError(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
}

func (e *scriptedExtractor) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

type harness struct {
	store     *docstore.Store
	handlers  pipeline.HandlerSet
	fetcher   *scriptedFetcher
	extractor *scriptedExtractor
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := logging.NewNop()
	fetcher := &scriptedFetcher{}
	extractor := &scriptedExtractor{}
	return &harness{
		store:     testsupport.MustOpenStore(t, testsupport.NewConfig(t)),
		fetcher:   fetcher,
		extractor: extractor,
		handlers: pipeline.HandlerSet{
			stage.Fetch:     stages.NewFetch(fetcher, logger),
			stage.Sanitize:  stages.NewSanitize(logger),
			stage.Sections:  stages.NewSections(logger),
			stage.Structure: stages.NewStructure(extractor, logger),
			stage.Normalize: stages.NewNormalize(canonical.New(), logger),
		},
	}
}

func (h *harness) runner(t *testing.T) *pipeline.Runner {
	t.Helper()
	return pipeline.NewRunner(testsupport.NewConfig(t), h.store, h.handlers, logging.NewNop())
}

func seedWithURL(t *testing.T, store *docstore.Store, decisionID string) {
	t.Helper()
	if _, err := store.Insert(context.Background(), decisionID, "", "https://portal.stf.jus.br/"+decisionID); err != nil {
		t.Fatalf("Insert %s: %v", decisionID, err)
	}
}

func TestRunnerCompletesDocumentEndToEnd(t *testing.T) {
	h := newHarness(t)
	seedWithURL(t, h.store, "ADI-1000")

	summary, err := h.runner(t).Run(context.Background(), pipeline.RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Succeeded != 1 || summary.Documents != 1 {
		t.Fatalf("summary = %+v", summary)
	}

	doc, err := h.store.GetByDecisionID(context.Background(), "ADI-1000")
	if err != nil {
		t.Fatalf("GetByDecisionID: %v", err)
	}
	if doc.Status != docstore.StatusCompleted {
		t.Fatalf("status = %s", doc.Status)
	}
	if doc.SanitizedText == "" || doc.SectionsJSON == "" || doc.PartiesJSON == "" {
		t.Fatalf("stage outputs missing: %+v", doc)
	}

	var references []stages.DoctrineReference
	if err := json.Unmarshal([]byte(doc.DoctrineJSON), &references); err != nil {
		t.Fatalf("decode doctrine: %v", err)
	}
	if len(references) != 1 || references[0].NormalizedTitle != "curso de direito civil" {
		t.Fatalf("doctrine = %+v", references)
	}
	var details extract.DecisionDetails
	if err := json.Unmarshal([]byte(doc.DecisionDetailsJSON), &details); err != nil {
		t.Fatalf("decode details: %v", err)
	}
	if details.Rapporteur != "Gilmar Mendes" {
		t.Fatalf("rapporteur = %q", details.Rapporteur)
	}
}

func TestRunnerURLLessDocumentEndsEmpty(t *testing.T) {
	h := newHarness(t)
	testsupport.NewDocument(t, h.store, "ADI-1001")

	summary, err := h.runner(t).Run(context.Background(), pipeline.RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Empty != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	if h.extractor.callCount() != 0 {
		t.Fatal("extractor called for empty document")
	}

	doc, _ := h.store.GetByDecisionID(context.Background(), "ADI-1001")
	if doc.Status != docstore.StatusNoContent || doc.HaltedStage != stage.Fetch {
		t.Fatalf("document = %+v", doc)
	}
}

func TestRunnerResumesAtFailedStage(t *testing.T) {
	h := newHarness(t)
	seedWithURL(t, h.store, "ADI-1002")
	h.extractor.setError(fmt.Errorf("%w: boom", extract.ErrTransport))

	summary, err := h.runner(t).Run(context.Background(), pipeline.RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Errored != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	doc, _ := h.store.GetByDecisionID(context.Background(), "ADI-1002")
	if doc.Status != docstore.StatusFailed || doc.HaltedStage != stage.Structure {
		t.Fatalf("document = %+v", doc)
	}
	fetchCalls := h.fetcher.callCount()

	// Second run resumes directly at the failed stage: earlier stages are
	// not redone.
	h.extractor.setError(nil)
	summary, err = h.runner(t).Run(context.Background(), pipeline.RunOptions{})
	if err != nil {
		t.Fatalf("Run resume: %v", err)
	}
	if summary.Succeeded != 1 {
		t.Fatalf("resume summary = %+v", summary)
	}
	if h.fetcher.callCount() != fetchCalls {
		t.Fatalf("fetch redone on resume: %d calls", h.fetcher.callCount())
	}

	doc, _ = h.store.GetByDecisionID(context.Background(), "ADI-1002")
	if doc.Status != docstore.StatusCompleted {
		t.Fatalf("status after resume = %s", doc.Status)
	}
	if doc.ErrorMessage != "" {
		t.Fatalf("error message should clear on success, got %q", doc.ErrorMessage)
	}
}

func TestRunnerHaltOnError(t *testing.T) {
	h := newHarness(t)
	seedWithURL(t, h.store, "ADI-1003")
	seedWithURL(t, h.store, "ADI-1004")
	h.extractor.setError(fmt.Errorf("%w: boom", extract.ErrTransport))

	summary, err := h.runner(t).Run(context.Background(), pipeline.RunOptions{HaltOnError: true})
	if !errors.Is(err, pipeline.ErrRunHalted) {
		t.Fatalf("expected ErrRunHalted, got %v", err)
	}
	if !summary.Halted || summary.Documents != 1 {
		t.Fatalf("summary = %+v", summary)
	}

	// The second document was never touched.
	doc, _ := h.store.GetByDecisionID(context.Background(), "ADI-1004")
	if doc.Status != docstore.StatusPending {
		t.Fatalf("untouched document status = %s", doc.Status)
	}
}

func TestRunnerExplicitStageRange(t *testing.T) {
	h := newHarness(t)
	seedWithURL(t, h.store, "ADI-1005")

	descriptors, err := stage.ParseRange("fetch..sanitize")
	if err != nil {
		t.Fatalf("ParseRange: %v", err)
	}
	summary, err := h.runner(t).Run(context.Background(), pipeline.RunOptions{Stages: descriptors})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Succeeded != 1 {
		t.Fatalf("summary = %+v", summary)
	}

	doc, _ := h.store.GetByDecisionID(context.Background(), "ADI-1005")
	if doc.Status != docstore.StatusSanitized {
		t.Fatalf("status = %s, want sanitized only", doc.Status)
	}
	if h.extractor.callCount() != 0 {
		t.Fatal("extractor called outside requested range")
	}
}

func TestRunnerSkipsIneligibleDocuments(t *testing.T) {
	h := newHarness(t)
	testsupport.SeedDocument(t, h.store, "ADI-1006", docstore.StatusNoContent, map[string]any{
		"halted_stage": stage.Fetch,
	})

	summary, err := h.runner(t).Run(context.Background(), pipeline.RunOptions{DecisionIDs: []string{"ADI-1006"}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Skipped != 1 {
		t.Fatalf("summary = %+v", summary)
	}
}
