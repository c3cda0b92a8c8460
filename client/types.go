package client

import (
	"encoding/json"
	"fmt"
	"sort"
)

// RecordKind identifies a platform record family.
type RecordKind string

// Record kinds the tool traverses.
const (
	KindItem     RecordKind = "item"
	KindInstance RecordKind = "instance"
	KindHoldings RecordKind = "holdings"
	KindLoan     RecordKind = "loan"
	KindUser     RecordKind = "user"
)

// Body is a decoded platform record. Record schemas differ per module and
// per tenant, so bodies are kept as raw JSON objects and read through typed
// accessors; unknown fields round-trip untouched through updates, which the
// backup-before-write contract depends on.
type Body map[string]any

// Str returns the string value under key, or "" when absent or non-string.
func (b Body) Str(key string) string {
	s, _ := b[key].(string)
	return s
}

// ID returns the record's UUID primary key.
func (b Body) ID() string { return b.Str("id") }

// HRID returns the record's human-readable identifier.
func (b Body) HRID() string { return b.Str("hrid") }

// Has reports whether the key is present with a non-empty value.
func (b Body) Has(key string) bool {
	v, ok := b[key]
	if !ok || v == nil {
		return false
	}
	if s, isStr := v.(string); isStr {
		return s != ""
	}
	return true
}

// Set assigns a field value.
func (b Body) Set(key string, value any) { b[key] = value }

// Delete removes a field.
func (b Body) Delete(key string) { delete(b, key) }

// Clone returns a deep copy of the body via a JSON round trip.
func (b Body) Clone() Body {
	data, err := json.Marshal(b)
	if err != nil {
		return nil
	}
	var out Body
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

// Nested returns the string value at b[key][sub] for one level of nesting,
// e.g. a loan's status name or an item's effective location id.
func (b Body) Nested(key, sub string) string {
	inner, _ := b[key].(map[string]any)
	if inner == nil {
		return ""
	}
	s, _ := inner[sub].(string)
	return s
}

// LoanOpen reports whether a loan body's status is Open.
func LoanOpen(loan Body) bool { return loan.Nested("status", "name") == "Open" }

// Record pairs a body with the family it came from.
type Record struct {
	Kind RecordKind
	Body Body
}

// ID returns the record body's UUID.
func (r Record) ID() string { return r.Body.ID() }

// unwrapList extracts the record array from a list envelope. The array key
// varies per endpoint family, so the caller names it; a missing key with a
// zero totalRecords is an empty result, anything else is a shape mismatch.
func unwrapList(envelope map[string]json.RawMessage, key string) ([]Body, error) {
	raw, ok := envelope[key]
	if !ok {
		if _, hasTotal := envelope["totalRecords"]; hasTotal {
			return nil, nil
		}
		keys := make([]string, 0, len(envelope))
		for k := range envelope {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("unexpected list envelope, keys %v (want %q)", keys, key)
	}
	var list []Body
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("decode %q list: %w", key, err)
	}
	return list, nil
}
