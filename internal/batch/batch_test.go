package batch

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/folio-labs/folioctl/client"
	"github.com/folio-labs/folioctl/internal/backup"
	"github.com/folio-labs/folioctl/internal/cascade"
	"github.com/folio-labs/folioctl/internal/config"
	"github.com/folio-labs/folioctl/internal/foliotest"
	"github.com/folio-labs/folioctl/internal/identify"
	"github.com/folio-labs/folioctl/internal/mutate"
	"github.com/folio-labs/folioctl/internal/resolve"
)

const (
	locA   = "11111111-1111-1111-1111-111111111111"
	locB   = "22222222-2222-2222-2222-222222222222"
	instID = "0f97bcb3-61ad-4916-a834-7a83cb376d8c"
)

func newTestRunner(t *testing.T, srv *foliotest.Server) *Runner {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	c := srv.Client()
	uuidProbes, searchProbes := identify.NewProbes(c)
	classifier := identify.New(config.DefaultRules(), uuidProbes, searchProbes, log)
	backups := backup.NewStore(t.TempDir(), log)
	return NewRunner(
		classifier,
		resolve.New(c, log),
		mutate.NewExecutor(c, backups, log, false),
		cascade.NewEngine(c, backups, log, false),
		log,
	)
}

func seedLibrary(srv *foliotest.Server) {
	srv.AddInstance(instID, "in00000001", "A title")
	srv.AddHoldings("hold-1", "ho00000001", instID, locA)
	srv.AddHoldings("hold-2", "ho00000002", instID, locB)
	srv.AddItem("item-1", "it00000001", "35000000000001", "hold-1")
	srv.AddItem("item-2", "it00000002", "35000000000002", "hold-1")
	srv.AddItem("item-3", "it00000003", "35000000000003", "hold-2")
	srv.AddUser("user-1", "0012345", "someone")
}

// checkHoldingsInvariant fails the test if any holdings record has zero
// items or any item references a missing holdings record.
func checkHoldingsInvariant(t *testing.T, srv *foliotest.Server) {
	t.Helper()
	counts := map[string]int{}
	for id, item := range srv.Items {
		h := item.Str("holdingsRecordId")
		if _, ok := srv.Holdings[h]; !ok {
			t.Errorf("item %s references missing holdings %s", id, h)
		}
		counts[h]++
	}
	for id := range srv.Holdings {
		if counts[id] == 0 {
			t.Errorf("holdings %s has no items", id)
		}
	}
}

func TestLookupPreservesInputOrder(t *testing.T) {
	srv := foliotest.NewServer(t)
	runner := newTestRunner(t, srv)
	seedLibrary(srv)

	results := runner.Lookup(context.Background(),
		"35000000000002, bogus-token\nin00000001",
		client.KindInstance, resolve.Options{})

	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].Identifier != "35000000000002" || results[0].Kind != identify.ItemBarcode {
		t.Errorf("first result = %+v, want item barcode hit", results[0])
	}
	if len(results[0].Records) != 1 || results[0].Records[0].ID() != instID {
		t.Errorf("first result records = %v, want the instance", results[0].Records)
	}
	if !results[1].NotFound || results[1].Err != nil {
		t.Errorf("second result = %+v, want a not-found marker", results[1])
	}
	if results[2].Kind != identify.InstanceHRID || len(results[2].Records) != 1 {
		t.Errorf("third result = %+v, want instance hrid hit", results[2])
	}
}

func TestChangeMovesDisjointBatchesToOneLocation(t *testing.T) {
	srv := foliotest.NewServer(t)
	runner := newTestRunner(t, srv)
	seedLibrary(srv)
	locC := "33333333-3333-3333-3333-333333333333"
	srv.Items["item-1"]["permanentLocationId"] = locA
	srv.Items["item-2"]["permanentLocationId"] = locA
	srv.Items["item-3"]["permanentLocationId"] = locB
	itemsBefore := len(srv.Items)

	field := mutate.KnownFields["permanent-location"]
	ctx := context.Background()

	first, err := runner.Change(ctx, "35000000000001 35000000000002 35000000000003",
		mutate.Request{Field: field, Action: mutate.Change, MatchValue: locA, NewValue: locC},
		resolve.Options{})
	if err != nil {
		t.Fatal(err)
	}
	second, err := runner.Change(ctx, "35000000000001 35000000000002 35000000000003",
		mutate.Request{Field: field, Action: mutate.Change, MatchValue: locB, NewValue: locC},
		resolve.Options{})
	if err != nil {
		t.Fatal(err)
	}

	// The two runs partition the items: each item is applied exactly once
	// and skipped in the other run.
	applied := 0
	for _, run := range [][]ChangeResult{first, second} {
		for _, result := range run {
			for _, item := range result.Items {
				if item.Outcome == mutate.Applied {
					applied++
				}
				if item.Outcome == mutate.Failed {
					t.Errorf("item %s failed: %v", item.RecordID, item.Err)
				}
			}
		}
	}
	if applied != 3 {
		t.Errorf("applied = %d, want 3", applied)
	}
	if len(srv.Items) != itemsBefore {
		t.Errorf("item count changed from %d to %d", itemsBefore, len(srv.Items))
	}
	for id, item := range srv.Items {
		if got := item.Str("permanentLocationId"); got != locC {
			t.Errorf("item %s location = %q, want %q", id, got, locC)
		}
	}
	// All three items end up sharing one holdings record at the new
	// location; the vacated ones are gone.
	if len(srv.Holdings) != 1 {
		t.Errorf("holdings count = %d, want 1", len(srv.Holdings))
	}
	checkHoldingsInvariant(t, srv)
}

func TestChangeAbortsWhenTokenRejected(t *testing.T) {
	srv := foliotest.NewServer(t)
	runner := newTestRunner(t, srv)
	seedLibrary(srv)
	srv.Items["item-1"]["permanentLocationId"] = locA
	srv.Items["item-2"]["permanentLocationId"] = locA
	srv.FailWith("PUT", "/item-storage/items", 401)

	results, err := runner.Change(context.Background(), "35000000000001 35000000000002",
		mutate.Request{Field: mutate.KnownFields["permanent-location"], Action: mutate.Change, MatchValue: locA, NewValue: locB},
		resolve.Options{})
	if err != nil {
		t.Fatal(err)
	}

	if len(results) != 1 {
		t.Fatalf("results = %d, want 1 (batch must stop once the token is rejected)", len(results))
	}
	if len(results[0].Items) != 1 || !client.IsAuthExpired(results[0].Items[0].Err) {
		t.Fatalf("items = %+v, want a single auth failure", results[0].Items)
	}
	if n := srv.CountRequests("PUT", "/item-storage/items"); n != 1 {
		t.Errorf("item update attempts = %d, want 1", n)
	}
}

func TestChangeRejectsInvalidRequest(t *testing.T) {
	srv := foliotest.NewServer(t)
	runner := newTestRunner(t, srv)
	seedLibrary(srv)

	_, err := runner.Change(context.Background(), "35000000000001",
		mutate.Request{Field: mutate.KnownFields["permanent-location"], Action: mutate.Change, NewValue: locB},
		resolve.Options{})
	if !errors.Is(err, mutate.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestDeleteInstanceByHRID(t *testing.T) {
	srv := foliotest.NewServer(t)
	runner := newTestRunner(t, srv)
	seedLibrary(srv)

	results := runner.Delete(context.Background(), "in00000001")

	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Err != nil || results[0].NotFound {
		t.Fatalf("result = %+v, want a clean cascade", results[0])
	}
	if len(results[0].Records) != 1 || results[0].Records[0].Failedp() {
		t.Fatalf("cascade = %+v, want one successful tree", results[0].Records)
	}
	if len(srv.Instances) != 0 || len(srv.Holdings) != 0 || len(srv.Items) != 0 {
		t.Error("cascade left records behind")
	}
}

func TestDeleteRefusesUserIdentifiers(t *testing.T) {
	srv := foliotest.NewServer(t)
	runner := newTestRunner(t, srv)
	seedLibrary(srv)

	results := runner.Delete(context.Background(), "0012345")

	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Err == nil {
		t.Error("deleting a user identifier did not error")
	}
	if len(srv.Users) != 1 {
		t.Error("user record was deleted")
	}
}

func TestCleanSweepsPhantomLoans(t *testing.T) {
	srv := foliotest.NewServer(t)
	runner := newTestRunner(t, srv)
	seedLibrary(srv)
	srv.AddUser("user-2", "0054321", "someone-else")
	srv.AddLoan("loan-live", "user-1", "item-1", "Open")
	srv.AddLoan("loan-phantom", "user-2", "item-gone", "Open")

	results := runner.Clean(context.Background(), "0012345 0054321")

	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if len(results[0].Loans) != 0 {
		t.Errorf("user-1 sweep = %+v, want no deletions", results[0].Loans)
	}
	if len(results[1].Loans) != 1 || results[1].Loans[0].ID != "loan-phantom" {
		t.Errorf("user-2 sweep = %+v, want loan-phantom deleted", results[1].Loans)
	}
	if _, ok := srv.Loans["loan-live"]; !ok {
		t.Error("live loan was deleted")
	}
}
