package docstore_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"lexpipe/internal/docstore"
	"lexpipe/internal/testsupport"
)

func fetchSpec() docstore.ClaimSpec {
	return docstore.ClaimSpec{
		Stage:      "fetch",
		Inputs:     []docstore.Status{docstore.StatusPending},
		Processing: docstore.StatusFetching,
	}
}

func TestClaimNextLeasesOldestEligible(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	first := testsupport.NewDocument(t, store, "ADI-100")
	testsupport.NewDocument(t, store, "ADI-101")

	doc, err := store.ClaimNext(ctx, fetchSpec(), "worker-1")
	if err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}
	if doc == nil {
		t.Fatal("expected a claim")
	}
	if doc.ID != first.ID {
		t.Fatalf("claimed %d, want oldest %d", doc.ID, first.ID)
	}
	if doc.Status != docstore.StatusFetching {
		t.Fatalf("claimed status = %s", doc.Status)
	}
	if doc.ClaimedBy != "worker-1" {
		t.Fatalf("claimed_by = %q", doc.ClaimedBy)
	}
	if doc.LastHeartbeat == nil {
		t.Fatal("expected heartbeat to be set on claim")
	}

	history, err := doc.History()
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if record, ok := history["fetch"]; !ok || record.StartedAt.IsZero() {
		t.Fatalf("expected claim to record stage start, history=%v", history)
	}
}

func TestClaimNextReturnsNilWhenNoneEligible(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	testsupport.SeedDocument(t, store, "ADI-200", docstore.StatusCompleted, nil)
	testsupport.SeedDocument(t, store, "ADI-201", docstore.StatusNoContent, map[string]any{
		"halted_stage": "fetch",
	})

	doc, err := store.ClaimNext(ctx, fetchSpec(), "worker-1")
	if err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}
	if doc != nil {
		t.Fatalf("expected no claim, got %+v", doc)
	}
}

func TestClaimNextIncludesFailedAtSameStage(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	testsupport.SeedDocument(t, store, "HC-300", docstore.StatusFailed, map[string]any{
		"halted_stage":  "fetch",
		"error_message": "connection reset",
	})
	testsupport.SeedDocument(t, store, "HC-301", docstore.StatusFailed, map[string]any{
		"halted_stage":  "sanitize",
		"error_message": "bad markup",
	})

	doc, err := store.ClaimNext(ctx, fetchSpec(), "worker-1")
	if err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}
	if doc == nil {
		t.Fatal("expected failed-at-fetch document to be claimable for fetch")
	}
	if doc.DecisionID != "HC-300" {
		t.Fatalf("claimed %s, want HC-300", doc.DecisionID)
	}
	if doc.HaltedStage != "" {
		t.Fatalf("halted_stage should clear on claim, got %q", doc.HaltedStage)
	}
	// Prior error stays visible until the stage succeeds.
	if doc.ErrorMessage != "connection reset" {
		t.Fatalf("error_message = %q", doc.ErrorMessage)
	}

	again, err := store.ClaimNext(ctx, fetchSpec(), "worker-2")
	if err != nil {
		t.Fatalf("ClaimNext second: %v", err)
	}
	if again != nil {
		t.Fatalf("failed-at-sanitize document should not be claimable for fetch, got %s", again.DecisionID)
	}
}

func TestClaimNextDefersRecentFailures(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	testsupport.SeedDocument(t, store, "HC-310", docstore.StatusFailed, map[string]any{
		"halted_stage":  "fetch",
		"error_message": "http 503 from portal",
	})
	younger := testsupport.NewDocument(t, store, "HC-311")

	spec := fetchSpec()
	spec.RetryDelay = time.Minute

	// The fresh failure waits out the retry delay; the younger pending
	// document is claimed instead of starving behind it.
	doc, err := store.ClaimNext(ctx, spec, "worker-1")
	if err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}
	if doc == nil || doc.ID != younger.ID {
		t.Fatalf("claimed %+v, want younger pending document %d", doc, younger.ID)
	}

	again, err := store.ClaimNext(ctx, spec, "worker-2")
	if err != nil {
		t.Fatalf("ClaimNext second: %v", err)
	}
	if again != nil {
		t.Fatalf("deferred failure was claimed: %s", again.DecisionID)
	}

	// Once the failure is older than the delay it re-enters circulation.
	short := fetchSpec()
	short.RetryDelay = 50 * time.Millisecond
	time.Sleep(150 * time.Millisecond)
	retry, err := store.ClaimNext(ctx, short, "worker-3")
	if err != nil {
		t.Fatalf("ClaimNext after delay: %v", err)
	}
	if retry == nil || retry.DecisionID != "HC-310" {
		t.Fatalf("expected aged failure to be claimable, got %+v", retry)
	}
}

func TestClaimByDecisionIDHonorsRetryDelay(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	testsupport.SeedDocument(t, store, "HC-320", docstore.StatusFailed, map[string]any{
		"halted_stage": "fetch",
	})

	spec := fetchSpec()
	spec.RetryDelay = time.Minute
	doc, err := store.ClaimByDecisionID(ctx, "HC-320", spec, "worker-1")
	if err != nil {
		t.Fatalf("ClaimByDecisionID: %v", err)
	}
	if doc != nil {
		t.Fatalf("fresh failure should be deferred, got %+v", doc)
	}

	// Operator-driven claims run with zero delay and retry immediately.
	doc, err = store.ClaimByDecisionID(ctx, "HC-320", fetchSpec(), "worker-1")
	if err != nil {
		t.Fatalf("ClaimByDecisionID immediate: %v", err)
	}
	if doc == nil || doc.Status != docstore.StatusFetching {
		t.Fatalf("expected immediate claim, got %+v", doc)
	}
}

func TestClaimNextHonorsPredicates(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	testsupport.SeedDocument(t, store, "RE-400", docstore.StatusPending, map[string]any{
		"raw_html": "<html>cached</html>",
	})
	testsupport.NewDocument(t, store, "RE-401")

	absent, err := docstore.FieldAbsent("raw_html")
	if err != nil {
		t.Fatalf("FieldAbsent: %v", err)
	}

	doc, err := store.ClaimNext(ctx, fetchSpec(), "worker-1", absent)
	if err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}
	if doc == nil || doc.DecisionID != "RE-401" {
		t.Fatalf("expected predicate to skip cached document, got %+v", doc)
	}
}

func TestClaimNextRejectsInvalidSpec(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	_, err := store.ClaimNext(context.Background(), docstore.ClaimSpec{
		Stage:      "fetch",
		Inputs:     []docstore.Status{docstore.StatusPending},
		Processing: docstore.StatusCompleted,
	}, "worker-1")
	if err == nil {
		t.Fatal("expected non-processing status to be rejected")
	}
}

func TestClaimByDecisionID(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	testsupport.NewDocument(t, store, "ADPF-500")

	doc, err := store.ClaimByDecisionID(ctx, "ADPF-500", fetchSpec(), "worker-1")
	if err != nil {
		t.Fatalf("ClaimByDecisionID: %v", err)
	}
	if doc == nil || doc.Status != docstore.StatusFetching {
		t.Fatalf("expected targeted claim, got %+v", doc)
	}

	// Already in flight: a second targeted claim finds nothing eligible.
	again, err := store.ClaimByDecisionID(ctx, "ADPF-500", fetchSpec(), "worker-2")
	if err != nil {
		t.Fatalf("ClaimByDecisionID second: %v", err)
	}
	if again != nil {
		t.Fatal("expected in-flight document to be ineligible")
	}
}

func TestConcurrentClaimsNeverShareADocument(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	const docCount = 8
	for i := 0; i < docCount; i++ {
		testsupport.NewDocument(t, store, fmt.Sprintf("ADI-6%02d", i))
	}

	const workers = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		claimed = make(map[int64]string)
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			workerID := fmt.Sprintf("worker-%d", worker)
			for {
				doc, err := store.ClaimNext(ctx, fetchSpec(), workerID)
				if err != nil {
					t.Errorf("ClaimNext(%s): %v", workerID, err)
					return
				}
				if doc == nil {
					return
				}
				mu.Lock()
				if holder, dup := claimed[doc.ID]; dup {
					t.Errorf("document %d claimed by both %s and %s", doc.ID, holder, workerID)
				}
				claimed[doc.ID] = workerID
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()

	if len(claimed) != docCount {
		t.Fatalf("claimed %d documents, want %d", len(claimed), docCount)
	}
}
