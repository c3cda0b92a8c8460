package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	gocache "github.com/patrickmn/go-cache"
)

// TypeKind names a reference-data endpoint. The value is the endpoint path
// below the gateway root.
type TypeKind string

// Reference-data families used by the change and lookup surfaces.
const (
	TypeLocation       TypeKind = "locations"
	TypeLoan           TypeKind = "loan-types"
	TypeMaterial       TypeKind = "material-types"
	TypeAddress        TypeKind = "addresstypes"
	TypeCallNumber     TypeKind = "call-number-types"
	TypeGroup          TypeKind = "groups"
	TypeHoldings       TypeKind = "holdings-types"
	TypeHoldingsSource TypeKind = "holdings-sources"
	TypeIdentifier     TypeKind = "identifier-types"
	TypeInstance       TypeKind = "instance-types"
	TypeInstanceStatus TypeKind = "instance-statuses"
	TypeItemNote       TypeKind = "item-note-types"
	TypeServicePoint   TypeKind = "service-points"
	TypeStatistical    TypeKind = "statistical-code-types"
)

// nameKeys maps type kinds whose display field is not "name".
var nameKeys = map[TypeKind]string{
	TypeAddress: "addressType",
	TypeGroup:   "group",
}

// TypeService lists reference-data records. Lists are immutable for the
// life of a session and fetched once; the cache never evicts.
type TypeService struct {
	c     *Client
	cache *gocache.Cache
}

func newTypeService(c *Client) *TypeService {
	return &TypeService{c: c, cache: gocache.New(gocache.NoExpiration, 0)}
}

// List returns all records of the given reference kind.
func (s *TypeService) List(ctx context.Context, kind TypeKind) ([]Body, error) {
	if cached, ok := s.cache.Get(string(kind)); ok {
		return cached.([]Body), nil
	}

	params := url.Values{"limit": {"1000"}}
	var envelope map[string]json.RawMessage
	if err := s.c.get(ctx, "/"+string(kind), params, &envelope); err != nil {
		return nil, err
	}

	// Reference endpoints use a per-family array key; it is the only key
	// beside totalRecords, so take whatever is there.
	var list []Body
	for key, raw := range envelope {
		if key == "totalRecords" || key == "resultInfo" {
			continue
		}
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("decode %q list: %w", key, err)
		}
		break
	}

	if list != nil {
		s.cache.Set(string(kind), list, gocache.NoExpiration)
	}
	return list, nil
}

// NameToID resolves a reference record's display name to its UUID.
func (s *TypeService) NameToID(ctx context.Context, kind TypeKind, name string) (string, error) {
	list, err := s.List(ctx, kind)
	if err != nil {
		return "", err
	}
	key := nameKeys[kind]
	if key == "" {
		key = "name"
	}
	for _, body := range list {
		if body.Str(key) == name {
			return body.ID(), nil
		}
	}
	return "", fmt.Errorf("%w: no %s named %q", ErrNotFound, kind, name)
}

// NameOf resolves a reference record's UUID back to its display name.
// Unknown ids come back as the id itself so callers can always print
// something meaningful.
func (s *TypeService) NameOf(ctx context.Context, kind TypeKind, id string) string {
	list, err := s.List(ctx, kind)
	if err != nil {
		return id
	}
	key := nameKeys[kind]
	if key == "" {
		key = "name"
	}
	for _, body := range list {
		if body.ID() == id {
			return body.Str(key)
		}
	}
	return id
}
