package resolve

import (
	"context"
	"io"
	"sort"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/folio-labs/folioctl/client"
	"github.com/folio-labs/folioctl/internal/foliotest"
	"github.com/folio-labs/folioctl/internal/identify"
)

const locA = "11111111-1111-1111-1111-111111111111"

func newTestResolver(t *testing.T) (*foliotest.Server, *Resolver) {
	t.Helper()
	srv := foliotest.NewServer(t)
	log := logrus.New()
	log.SetOutput(io.Discard)
	return srv, New(srv.Client(), log)
}

// seedGraph builds one instance with two holdings, three items, two users
// and their loans.
func seedGraph(srv *foliotest.Server) {
	srv.AddInstance("inst-1", "in00000001", "A title")
	srv.AddHoldings("hold-1", "ho00000001", "inst-1", locA)
	srv.AddHoldings("hold-2", "ho00000002", "inst-1", locA)
	srv.AddItem("item-1", "it00000001", "35000000000001", "hold-1")
	srv.AddItem("item-2", "it00000002", "35000000000002", "hold-1")
	srv.AddItem("item-3", "it00000003", "35000000000003", "hold-2")
	srv.AddUser("user-1", "0012345", "someone")
	srv.AddUser("user-2", "0054321", "someone-else")
	srv.AddLoan("loan-1", "user-1", "item-1", "Open")
	srv.AddLoan("loan-2", "user-1", "item-2", "Closed")
	srv.AddLoan("loan-3", "user-2", "item-1", "Closed")
}

func ids(records []client.Body) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID()
	}
	sort.Strings(out)
	return out
}

func equalIDs(a []string, b ...string) bool {
	sort.Strings(b)
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestItemByBarcode(t *testing.T) {
	srv, r := newTestResolver(t)
	seedGraph(srv)

	items, err := r.Related(context.Background(), "35000000000002", identify.ItemBarcode, client.KindItem, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !equalIDs(ids(items), "item-2") {
		t.Errorf("items = %v, want [item-2]", ids(items))
	}
}

func TestInstanceFromItemBarcode(t *testing.T) {
	srv, r := newTestResolver(t)
	seedGraph(srv)

	instances, err := r.Related(context.Background(), "35000000000003", identify.ItemBarcode, client.KindInstance, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !equalIDs(ids(instances), "inst-1") {
		t.Errorf("instances = %v, want [inst-1]", ids(instances))
	}
}

func TestHoldingsFromItemID(t *testing.T) {
	srv, r := newTestResolver(t)
	seedGraph(srv)

	holdings, err := r.Related(context.Background(), "item-3", identify.ItemID, client.KindHoldings, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !equalIDs(ids(holdings), "hold-2") {
		t.Errorf("holdings = %v, want [hold-2]", ids(holdings))
	}
}

func TestHoldingsFromInstanceHRID(t *testing.T) {
	srv, r := newTestResolver(t)
	seedGraph(srv)

	holdings, err := r.Related(context.Background(), "in00000001", identify.InstanceHRID, client.KindHoldings, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !equalIDs(ids(holdings), "hold-1", "hold-2") {
		t.Errorf("holdings = %v, want [hold-1 hold-2]", ids(holdings))
	}
}

func TestItemsFromInstanceID(t *testing.T) {
	srv, r := newTestResolver(t)
	seedGraph(srv)

	items, err := r.Related(context.Background(), "inst-1", identify.InstanceID, client.KindItem, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !equalIDs(ids(items), "item-1", "item-2", "item-3") {
		t.Errorf("items = %v, want all three", ids(items))
	}
}

func TestInstanceFromAccession(t *testing.T) {
	srv, r := newTestResolver(t)
	seedGraph(srv)

	instances, err := r.Related(context.Background(), "clc.inst.1", identify.Accession, client.KindInstance, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !equalIDs(ids(instances), "inst-1") {
		t.Errorf("instances = %v, want [inst-1]", ids(instances))
	}
}

func TestInstanceIDFromAccession(t *testing.T) {
	tests := []struct{ in, want string }{
		{"clc.0f97bcb3.61ad.4916.a834.7a83cb376d8c", "0f97bcb3-61ad-4916-a834-7a83cb376d8c"},
		{"clc.inst.1", "inst-1"},
		{"no-dots-here", "no-dots-here"},
	}
	for _, tt := range tests {
		if got := InstanceIDFromAccession(tt.in); got != tt.want {
			t.Errorf("InstanceIDFromAccession(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoansFromUserHonorsOpenOnly(t *testing.T) {
	srv, r := newTestResolver(t)
	seedGraph(srv)

	all, err := r.Related(context.Background(), "user-1", identify.UserID, client.KindLoan, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !equalIDs(ids(all), "loan-1", "loan-2") {
		t.Errorf("all loans = %v, want [loan-1 loan-2]", ids(all))
	}

	open, err := r.Related(context.Background(), "user-1", identify.UserID, client.KindLoan, Options{OpenLoansOnly: true})
	if err != nil {
		t.Fatal(err)
	}
	if !equalIDs(ids(open), "loan-1") {
		t.Errorf("open loans = %v, want [loan-1]", ids(open))
	}
}

func TestItemsFromUserSkipsPhantomLoans(t *testing.T) {
	srv, r := newTestResolver(t)
	seedGraph(srv)
	srv.AddLoan("loan-4", "user-1", "item-gone", "Open")

	items, err := r.Related(context.Background(), "user-1", identify.UserID, client.KindItem, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !equalIDs(ids(items), "item-1", "item-2") {
		t.Errorf("items = %v, want [item-1 item-2]", ids(items))
	}
}

func TestUsersFromItemDeduplicates(t *testing.T) {
	srv, r := newTestResolver(t)
	seedGraph(srv)
	// A second loan by user-1 on the same item must not duplicate the user.
	srv.AddLoan("loan-5", "user-1", "item-1", "Open")

	users, err := r.Related(context.Background(), "item-1", identify.ItemID, client.KindUser, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !equalIDs(ids(users), "user-1", "user-2") {
		t.Errorf("users = %v, want [user-1 user-2]", ids(users))
	}
}

func TestUserFromUserBarcode(t *testing.T) {
	srv, r := newTestResolver(t)
	seedGraph(srv)

	users, err := r.Related(context.Background(), "0054321", identify.UserBarcode, client.KindUser, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !equalIDs(ids(users), "user-2") {
		t.Errorf("users = %v, want [user-2]", ids(users))
	}
}

func TestUnresolvableIdentifierYieldsEmpty(t *testing.T) {
	srv, r := newTestResolver(t)
	seedGraph(srv)

	for _, tc := range []struct {
		token  string
		kind   identify.Kind
		target client.RecordKind
	}{
		{"no-such-item", identify.ItemID, client.KindItem},
		{"35009999999999", identify.ItemBarcode, client.KindInstance},
		{"ho99999999", identify.HoldingsHRID, client.KindItem},
	} {
		records, err := r.Related(context.Background(), tc.token, tc.kind, tc.target, Options{})
		if err != nil {
			t.Errorf("%s as %s: unexpected error %v", tc.token, tc.kind, err)
		}
		if len(records) != 0 {
			t.Errorf("%s as %s: got %d records, want none", tc.token, tc.kind, len(records))
		}
	}
}

func TestUnsupportedPairing(t *testing.T) {
	srv, r := newTestResolver(t)
	seedGraph(srv)

	if _, err := r.Related(context.Background(), "user-1", identify.UserID, client.KindUser, Options{}); err != nil {
		// user by user id is supported; sanity check the premise.
		t.Fatalf("user by id failed: %v", err)
	}
	if _, err := r.Related(context.Background(), "x", identify.Unknown, client.KindItem, Options{}); err == nil {
		t.Error("expected an error for an unknown source kind")
	}
}
