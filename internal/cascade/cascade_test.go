package cascade

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/folio-labs/folioctl/client"
	"github.com/folio-labs/folioctl/internal/backup"
	"github.com/folio-labs/folioctl/internal/foliotest"
)

const locA = "11111111-1111-1111-1111-111111111111"

func newTestEngine(t *testing.T, srv *foliotest.Server, demo bool) (*Engine, string) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	dir := t.TempDir()
	return NewEngine(srv.Client(), backup.NewStore(dir, log), log, demo), dir
}

func seedTree(srv *foliotest.Server) {
	srv.AddInstance("inst-1", "in00000001", "A title")
	srv.AddHoldings("hold-1", "ho00000001", "inst-1", locA)
	srv.AddHoldings("hold-2", "ho00000002", "inst-1", locA)
	srv.AddItem("item-1", "it00000001", "35000000000001", "hold-1")
	srv.AddItem("item-2", "it00000002", "35000000000002", "hold-1")
	srv.AddItem("item-3", "it00000003", "35000000000003", "hold-2")
}

func TestDeleteInstanceCascades(t *testing.T) {
	srv := foliotest.NewServer(t)
	engine, _ := newTestEngine(t, srv, false)
	seedTree(srv)
	srv.AddUser("user-1", "0012345", "someone")
	srv.AddLoan("loan-1", "user-1", "item-2", "Open")

	result := engine.Delete(context.Background(), "inst-1", client.KindInstance)

	if result.State != Deleted {
		t.Fatalf("instance state = %v (%v), want Deleted", result.State, result.Err)
	}
	if result.Failedp() {
		t.Fatalf("cascade reported a failure: %+v", result)
	}
	if len(srv.Instances) != 0 || len(srv.Holdings) != 0 || len(srv.Items) != 0 {
		t.Errorf("records left behind: %d instances, %d holdings, %d items",
			len(srv.Instances), len(srv.Holdings), len(srv.Items))
	}
	if srv.SourceRecords["inst-1"] {
		t.Error("source record entry not removed")
	}
	if len(result.Children) != 2 {
		t.Fatalf("instance has %d child results, want 2", len(result.Children))
	}
	for _, h := range result.Children {
		if h.Kind != client.KindHoldings || h.State != Deleted {
			t.Errorf("holdings child = %+v, want deleted holdings", h)
		}
		for _, item := range h.Children {
			if item.Kind != client.KindItem || item.State != Deleted {
				t.Errorf("item child = %+v, want deleted item", item)
			}
		}
	}
	// The loan on item-2 is left dangling; clean handles it separately.
	if len(srv.Loans) != 1 {
		t.Errorf("loan count = %d, want 1", len(srv.Loans))
	}
}

func TestDeleteInstanceToleratesMissingSourceRecord(t *testing.T) {
	srv := foliotest.NewServer(t)
	engine, _ := newTestEngine(t, srv, false)
	srv.AddInstance("inst-1", "in00000001", "A title")
	delete(srv.SourceRecords, "inst-1")

	result := engine.Delete(context.Background(), "inst-1", client.KindInstance)

	if result.State != Deleted {
		t.Fatalf("state = %v (%v), want Deleted", result.State, result.Err)
	}
	if result.Note == "" {
		t.Error("missing source record was not noted")
	}
	if len(srv.Instances) != 0 {
		t.Error("instance not deleted")
	}
}

func TestDeleteHoldingsRemovesItemsFirst(t *testing.T) {
	srv := foliotest.NewServer(t)
	engine, dir := newTestEngine(t, srv, false)
	seedTree(srv)

	result := engine.Delete(context.Background(), "hold-1", client.KindHoldings)

	if result.State != Deleted {
		t.Fatalf("state = %v (%v), want Deleted", result.State, result.Err)
	}
	if len(result.Children) != 2 {
		t.Fatalf("child results = %d, want 2", len(result.Children))
	}
	if _, ok := srv.Holdings["hold-1"]; ok {
		t.Error("holdings record still present")
	}
	if _, ok := srv.Items["item-1"]; ok {
		t.Error("item-1 still present")
	}
	// hold-2 and its item are untouched.
	if _, ok := srv.Items["item-3"]; !ok {
		t.Error("item-3 was deleted but belongs to another holdings record")
	}
	for _, want := range []string{"hold-1", "item-1", "item-2"} {
		entries, err := os.ReadDir(filepath.Join(dir, want))
		if err != nil || len(entries) == 0 {
			t.Errorf("no backup written for %s: %v", want, err)
		}
	}
}

func TestDeleteItem(t *testing.T) {
	srv := foliotest.NewServer(t)
	engine, dir := newTestEngine(t, srv, false)
	seedTree(srv)

	result := engine.Delete(context.Background(), "item-3", client.KindItem)

	if result.State != Deleted {
		t.Fatalf("state = %v (%v), want Deleted", result.State, result.Err)
	}
	if _, ok := srv.Items["item-3"]; ok {
		t.Error("item still present")
	}
	if _, ok := srv.Holdings["hold-2"]; !ok {
		t.Error("holdings record was deleted with the item")
	}
	entries, err := os.ReadDir(filepath.Join(dir, "item-3"))
	if err != nil || len(entries) == 0 {
		t.Errorf("no backup written for item-3: %v", err)
	}
}

func TestDeleteMissingRecordFails(t *testing.T) {
	srv := foliotest.NewServer(t)
	engine, _ := newTestEngine(t, srv, false)

	result := engine.Delete(context.Background(), "no-such-id", client.KindItem)

	if result.State != Failed {
		t.Fatalf("state = %v, want Failed", result.State)
	}
	if !errors.Is(result.Err, client.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", result.Err)
	}
}

func TestDemoModeDeletesNothing(t *testing.T) {
	srv := foliotest.NewServer(t)
	engine, dir := newTestEngine(t, srv, true)
	seedTree(srv)

	result := engine.Delete(context.Background(), "inst-1", client.KindInstance)

	if result.Failedp() {
		t.Fatalf("demo cascade failed: %+v", result)
	}
	if len(srv.Instances) != 1 || len(srv.Holdings) != 2 || len(srv.Items) != 3 {
		t.Error("demo mode deleted records")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("demo mode wrote %d backup entries", len(entries))
	}
}

func TestCleanLoansDeletesOnlyPhantoms(t *testing.T) {
	srv := foliotest.NewServer(t)
	engine, _ := newTestEngine(t, srv, false)
	seedTree(srv)
	srv.AddUser("user-1", "0012345", "someone")
	srv.AddUser("user-2", "0054321", "someone-else")
	srv.AddLoan("loan-live", "user-1", "item-1", "Open")
	srv.AddLoan("loan-phantom", "user-2", "item-gone", "Open")

	results := engine.CleanLoans(context.Background(), []string{"user-1", "user-2"})

	if len(results) != 1 {
		t.Fatalf("results = %+v, want exactly one phantom", results)
	}
	if results[0].ID != "loan-phantom" || results[0].State != Deleted {
		t.Errorf("result = %+v, want deleted loan-phantom", results[0])
	}
	if _, ok := srv.Loans["loan-live"]; !ok {
		t.Error("live loan was deleted")
	}
	if _, ok := srv.Loans["loan-phantom"]; ok {
		t.Error("phantom loan still present")
	}
}

func TestCleanLoansStopsAfterTokenRejection(t *testing.T) {
	srv := foliotest.NewServer(t)
	engine, _ := newTestEngine(t, srv, false)
	srv.AddUser("user-1", "0012345", "someone")
	srv.AddUser("user-2", "0054321", "someone-else")
	srv.AddLoan("loan-1", "user-1", "item-gone-1", "Open")
	srv.AddLoan("loan-2", "user-2", "item-gone-2", "Open")
	srv.FailWith("DELETE", "/loan-storage/loans", 401)

	results := engine.CleanLoans(context.Background(), []string{"user-1", "user-2"})

	if len(results) != 1 {
		t.Fatalf("results = %+v, want the sweep to stop at the first auth failure", results)
	}
	if results[0].State != Failed || !client.IsAuthExpired(results[0].Err) {
		t.Fatalf("result = %+v, want Failed with an auth error", results[0])
	}
	if n := srv.CountRequests("DELETE", "/loan-storage/loans"); n != 1 {
		t.Errorf("loan delete attempts = %d, want 1", n)
	}
	if len(srv.Loans) != 2 {
		t.Errorf("loans remaining = %d, want 2", len(srv.Loans))
	}
}
