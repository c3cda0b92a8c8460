// Package foliotest provides an in-memory fake of the platform API for
// tests. It implements the endpoint subset folioctl touches, enforces the
// platform's referential constraints on deletes, and evaluates the query
// shapes the client issues.
package foliotest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/folio-labs/folioctl/client"
)

// Server is a fake Okapi gateway over in-memory record maps. Tests mutate
// the maps directly to build fixtures and inspect them after operations.
type Server struct {
	mu sync.Mutex

	Instances map[string]client.Body
	Holdings  map[string]client.Body
	Items     map[string]client.Body
	Loans     map[string]client.Body
	Users     map[string]client.Body

	// SourceRecords tracks which instances have a source-record entry.
	SourceRecords map[string]bool

	Locations []client.Body
	LoanTypes []client.Body

	// Requests logs every request as "METHOD /path", in arrival order.
	Requests []string

	failures []failRule
	nextHRID int
	srv      *httptest.Server
}

type failRule struct {
	method string
	prefix string
	status int
}

// NewServer starts a fake gateway; it shuts down with the test.
func NewServer(t *testing.T) *Server {
	t.Helper()
	s := &Server{
		Instances:     map[string]client.Body{},
		Holdings:      map[string]client.Body{},
		Items:         map[string]client.Body{},
		Loans:         map[string]client.Body{},
		Users:         map[string]client.Body{},
		SourceRecords: map[string]bool{},
		nextHRID:      1000,
	}
	s.srv = httptest.NewServer(s.handler())
	t.Cleanup(s.srv.Close)
	return s
}

// URL returns the fake gateway's base URL.
func (s *Server) URL() string { return s.srv.URL }

// FailWith makes every subsequent request matching the method and path
// prefix answer the given status, simulating a gateway failure mid-batch.
func (s *Server) FailWith(method, prefix string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, failRule{method: method, prefix: prefix, status: status})
}

// CountRequests returns how many logged requests match the method and path
// prefix.
func (s *Server) CountRequests(method, prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, req := range s.Requests {
		if strings.HasPrefix(req, method+" "+prefix) {
			n++
		}
	}
	return n
}

// Client returns a folioctl client pointed at the fake gateway, with
// retries disabled so failure tests stay fast.
func (s *Server) Client() *client.Client {
	return client.New(s.srv.URL, "test-tenant",
		client.WithTokenProvider(client.StaticToken("test-token")),
		client.WithMaxRetries(0))
}

// AddInstance stores an instance fixture and returns its id.
func (s *Server) AddInstance(id, hrid, title string) string {
	s.Instances[id] = client.Body{"id": id, "hrid": hrid, "title": title}
	s.SourceRecords[id] = true
	return id
}

// AddHoldings stores a holdings fixture under an instance.
func (s *Server) AddHoldings(id, hrid, instanceID, locationID string) string {
	s.Holdings[id] = client.Body{
		"id": id, "hrid": hrid, "instanceId": instanceID,
		"permanentLocationId": locationID,
	}
	return id
}

// AddItem stores an item fixture under a holdings record.
func (s *Server) AddItem(id, hrid, barcode, holdingsID string) string {
	s.Items[id] = client.Body{
		"id": id, "hrid": hrid, "barcode": barcode,
		"holdingsRecordId": holdingsID,
	}
	return id
}

// AddLoan stores a loan fixture linking a user to an item.
func (s *Server) AddLoan(id, userID, itemID, status string) string {
	s.Loans[id] = client.Body{
		"id": id, "userId": userID, "itemId": itemID,
		"status": map[string]any{"name": status},
	}
	return id
}

// AddUser stores a user fixture.
func (s *Server) AddUser(id, barcode, username string) string {
	s.Users[id] = client.Body{"id": id, "barcode": barcode, "username": username}
	return id
}

func (s *Server) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /inventory/items/{id}", s.getFrom(func() map[string]client.Body { return s.Items }))
	mux.HandleFunc("GET /inventory/items", s.list("items", s.matchItem))
	mux.HandleFunc("GET /item-storage/items/{id}", s.getFrom(func() map[string]client.Body { return s.Items }))
	mux.HandleFunc("GET /item-storage/items", s.list("items", s.matchItem))
	mux.HandleFunc("PUT /item-storage/items/{id}", s.putInto(func() map[string]client.Body { return s.Items }))
	mux.HandleFunc("DELETE /item-storage/items/{id}", s.deleteItem)

	mux.HandleFunc("GET /inventory/instances/{id}", s.getFrom(func() map[string]client.Body { return s.Instances }))
	mux.HandleFunc("GET /inventory/instances", s.list("instances", s.matchInstance))
	mux.HandleFunc("GET /instance-storage/instances/{id}", s.getFrom(func() map[string]client.Body { return s.Instances }))
	mux.HandleFunc("GET /instance-storage/instances", s.list("instances", s.matchInstance))
	mux.HandleFunc("DELETE /instance-storage/instances/{id}/source-record", s.deleteSourceRecord)
	mux.HandleFunc("DELETE /instance-storage/instances/{id}", s.deleteInstance)

	mux.HandleFunc("GET /holdings-storage/holdings/{id}", s.getFrom(func() map[string]client.Body { return s.Holdings }))
	mux.HandleFunc("GET /holdings-storage/holdings", s.list("holdingsRecords", s.matchHoldings))
	mux.HandleFunc("POST /holdings-storage/holdings", s.createHoldings)
	mux.HandleFunc("PUT /holdings-storage/holdings/{id}", s.putInto(func() map[string]client.Body { return s.Holdings }))
	mux.HandleFunc("DELETE /holdings-storage/holdings/{id}", s.deleteHoldings)

	mux.HandleFunc("GET /loan-storage/loans/{id}", s.getFrom(func() map[string]client.Body { return s.Loans }))
	mux.HandleFunc("GET /loan-storage/loans", s.list("loans", s.matchLoan))
	mux.HandleFunc("DELETE /loan-storage/loans/{id}", s.deleteFrom(func() map[string]client.Body { return s.Loans }))

	mux.HandleFunc("GET /users/{id}", s.getFrom(func() map[string]client.Body { return s.Users }))
	mux.HandleFunc("GET /users", s.list("users", s.matchUser))

	mux.HandleFunc("GET /locations", s.reference("locations", func() []client.Body { return s.Locations }))
	mux.HandleFunc("GET /loan-types", s.reference("loantypes", func() []client.Body { return s.LoanTypes }))
	mux.HandleFunc("GET /instance-statuses", s.reference("instanceStatuses", func() []client.Body { return nil }))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.Requests = append(s.Requests, r.Method+" "+r.URL.Path)
		var forced *failRule
		for i := range s.failures {
			f := &s.failures[i]
			if r.Method == f.method && strings.HasPrefix(r.URL.Path, f.prefix) {
				forced = f
				break
			}
		}
		s.mu.Unlock()
		if forced != nil {
			writeJSON(w, forced.status, map[string]string{"message": "forced failure"})
			return
		}
		mux.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func notFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "not found"})
}

func (s *Server) getFrom(records func() map[string]client.Body) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		body, ok := records()[r.PathValue("id")]
		if !ok {
			notFound(w)
			return
		}
		writeJSON(w, http.StatusOK, body)
	}
}

func (s *Server) putInto(records func() map[string]client.Body) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		id := r.PathValue("id")
		if _, ok := records()[id]; !ok {
			notFound(w)
			return
		}
		var body client.Body
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
			return
		}
		records()[id] = body
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) deleteFrom(records func() map[string]client.Body) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		id := r.PathValue("id")
		if _, ok := records()[id]; !ok {
			notFound(w)
			return
		}
		delete(records(), id)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) deleteItem(w http.ResponseWriter, r *http.Request) {
	s.deleteFrom(func() map[string]client.Body { return s.Items })(w, r)
}

// deleteHoldings enforces the platform's referential constraint: holdings
// with items still attached cannot be removed.
func (s *Server) deleteHoldings(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := r.PathValue("id")
	if _, ok := s.Holdings[id]; !ok {
		notFound(w)
		return
	}
	for _, item := range s.Items {
		if item.Str("holdingsRecordId") == id {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "holdings record has items"})
			return
		}
	}
	delete(s.Holdings, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteInstance(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := r.PathValue("id")
	if _, ok := s.Instances[id]; !ok {
		notFound(w)
		return
	}
	for _, h := range s.Holdings {
		if h.Str("instanceId") == id {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "instance has holdings"})
			return
		}
	}
	delete(s.Instances, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteSourceRecord(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := r.PathValue("id")
	if !s.SourceRecords[id] {
		notFound(w)
		return
	}
	delete(s.SourceRecords, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) createHoldings(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var body client.Body
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}
	if body.ID() == "" {
		body["id"] = uuid.NewString()
	}
	if body.HRID() == "" {
		s.nextHRID++
		body["hrid"] = fmt.Sprintf("ho%08d", s.nextHRID)
	}
	s.Holdings[body.ID()] = body
	writeJSON(w, http.StatusCreated, body)
}

// list evaluates a ?query=field==value request against one record family.
func (s *Server) list(key string, match func(field, value string, body client.Body) bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		field, value, ok := splitQuery(r.URL.Query().Get("query"))
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "bad query"})
			return
		}

		matched := []client.Body{}
		for _, body := range s.familyFor(key) {
			if match(field, value, body) {
				matched = append(matched, body)
			}
		}

		total := len(matched)
		if r.URL.Query().Get("limit") == "0" {
			matched = []client.Body{}
		}
		writeJSON(w, http.StatusOK, map[string]any{key: matched, "totalRecords": total})
	}
}

func (s *Server) familyFor(key string) map[string]client.Body {
	switch key {
	case "items":
		return s.Items
	case "instances":
		return s.Instances
	case "holdingsRecords":
		return s.Holdings
	case "loans":
		return s.Loans
	case "users":
		return s.Users
	}
	return nil
}

func (s *Server) reference(key string, list func() []client.Body) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		records := list()
		if records == nil {
			records = []client.Body{}
		}
		writeJSON(w, http.StatusOK, map[string]any{key: records, "totalRecords": len(records)})
	}
}

func splitQuery(q string) (field, value string, ok bool) {
	idx := strings.Index(q, "==")
	if idx < 0 {
		return "", "", false
	}
	return q[:idx], q[idx+2:], true
}

func (s *Server) matchItem(field, value string, item client.Body) bool {
	switch field {
	case "barcode", "hrid", "holdingsRecordId":
		return item.Str(field) == value
	case "instance.id":
		return s.instanceOfItem(item) == value
	case "instance.hrid":
		inst, ok := s.Instances[s.instanceOfItem(item)]
		return ok && inst.HRID() == value
	}
	return false
}

func (s *Server) matchInstance(field, value string, inst client.Body) bool {
	switch field {
	case "hrid":
		return inst.HRID() == value
	case "item.barcode", "item.id", "item.hrid":
		sub := strings.TrimPrefix(field, "item.")
		for _, item := range s.Items {
			if item.Str(sub) == value || (sub == "id" && item.ID() == value) {
				if s.instanceOfItem(item) == inst.ID() {
					return true
				}
			}
		}
	}
	return false
}

func (s *Server) matchHoldings(field, value string, h client.Body) bool {
	switch field {
	case "hrid", "instanceId":
		return h.Str(field) == value
	}
	return false
}

func (s *Server) matchLoan(field, value string, loan client.Body) bool {
	switch field {
	case "userId", "itemId":
		return loan.Str(field) == value
	}
	return false
}

func (s *Server) matchUser(field, value string, user client.Body) bool {
	return field == "barcode" && user.Str("barcode") == value
}

func (s *Server) instanceOfItem(item client.Body) string {
	h, ok := s.Holdings[item.Str("holdingsRecordId")]
	if !ok {
		return ""
	}
	return h.Str("instanceId")
}
