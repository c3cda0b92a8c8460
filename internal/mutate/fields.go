// Package mutate plans and applies field-level changes to item records,
// keeping holdings records consistent when items move between locations.
package mutate

import (
	"errors"
	"fmt"

	"github.com/folio-labs/folioctl/client"
)

// Action is the kind of field edit requested.
type Action string

// Supported actions.
const (
	Add    Action = "add"
	Change Action = "change"
	Delete Action = "delete"
)

// Field describes an editable item field.
type Field struct {
	// Name is the CLI-facing field name.
	Name string
	// Key is the record body key holding the reference UUID.
	Key string
	// Type is the reference-data family the field's values come from.
	Type client.TypeKind
	// HoldingsCoupled marks the field whose value must stay consistent
	// with the item's holdings record (permanent location).
	HoldingsCoupled bool
}

// KnownFields lists the fields the change operation understands.
var KnownFields = map[string]Field{
	"permanent-location": {
		Name: "permanent-location", Key: "permanentLocationId",
		Type: client.TypeLocation, HoldingsCoupled: true,
	},
	"temporary-location": {
		Name: "temporary-location", Key: "temporaryLocationId",
		Type: client.TypeLocation,
	},
	"permanent-loan-type": {
		Name: "permanent-loan-type", Key: "permanentLoanTypeId",
		Type: client.TypeLoan,
	},
}

// ErrValidation marks a request rejected before any network call.
var ErrValidation = errors.New("invalid change request")

// Request is one validated field-edit operation applied uniformly to a
// batch of items. MatchValue and NewValue are reference UUIDs.
type Request struct {
	Field      Field
	Action     Action
	MatchValue string
	NewValue   string
}

// Validate enforces the per-action argument contract: add takes only a new
// value, delete only a match value, change both.
func (r Request) Validate() error {
	if r.Field.Key == "" {
		return fmt.Errorf("%w: no field selected", ErrValidation)
	}
	switch r.Action {
	case Add:
		if r.MatchValue != "" {
			return fmt.Errorf("%w: add does not take a match value", ErrValidation)
		}
		if r.NewValue == "" {
			return fmt.Errorf("%w: add requires a new value", ErrValidation)
		}
	case Change:
		if r.MatchValue == "" || r.NewValue == "" {
			return fmt.Errorf("%w: change requires both a match value and a new value", ErrValidation)
		}
	case Delete:
		if r.MatchValue == "" {
			return fmt.Errorf("%w: delete requires a match value", ErrValidation)
		}
		if r.NewValue != "" {
			return fmt.Errorf("%w: delete does not take a new value", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown action %q", ErrValidation, r.Action)
	}
	return nil
}
