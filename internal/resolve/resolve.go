// Package resolve walks the record graph: given an identifier of one kind,
// it fetches related records of a requested kind by chaining API calls
// along the fixed instance/holdings/item/loan/user relationships.
package resolve

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/folio-labs/folioctl/client"
	"github.com/folio-labs/folioctl/internal/identify"
)

// Options adjust traversal behavior.
type Options struct {
	// OpenLoansOnly restricts loan hops to loans with status Open. Closed
	// loans stay in storage indefinitely, so an unfiltered walk over a
	// heavy-use user can return thousands of records.
	OpenLoansOnly bool
}

// Resolver resolves (identifier kind, target record kind) requests.
type Resolver struct {
	c   *client.Client
	log *logrus.Logger
}

// New creates a Resolver.
func New(c *client.Client, log *logrus.Logger) *Resolver {
	return &Resolver{c: c, log: log}
}

// InstanceIDFromAccession extracts the instance UUID encoded in an
// accession number: everything after the first dot, with the remaining
// dots standing in for dashes.
func InstanceIDFromAccession(accession string) string {
	dot := strings.Index(accession, ".")
	if dot < 0 {
		return accession
	}
	return strings.ReplaceAll(accession[dot+1:], ".", "-")
}

// Related returns the records of the target kind reachable from the given
// identifier. An identifier that resolves to nothing yields an empty slice
// and no error; errors mean the walk itself failed (transport, server, or
// an unsupported source/target pairing).
func (r *Resolver) Related(ctx context.Context, token string, kind identify.Kind, target client.RecordKind, opts Options) ([]client.Body, error) {
	r.log.WithFields(logrus.Fields{
		"token": token, "kind": kind, "target": target,
	}).Debug("resolving related records")

	switch target {
	case client.KindItem:
		return r.items(ctx, token, kind, opts)
	case client.KindInstance:
		return r.instances(ctx, token, kind, opts)
	case client.KindHoldings:
		return r.holdings(ctx, token, kind, opts)
	case client.KindLoan:
		return r.loans(ctx, token, kind, opts)
	case client.KindUser:
		return r.users(ctx, token, kind, opts)
	default:
		return nil, fmt.Errorf("unrecognized target record kind %q", target)
	}
}

func (r *Resolver) items(ctx context.Context, token string, kind identify.Kind, opts Options) ([]client.Body, error) {
	switch kind {
	case identify.ItemID:
		return one(r.c.Items.Get(ctx, token))
	case identify.ItemBarcode:
		return r.c.Items.ByBarcode(ctx, token)
	case identify.ItemHRID:
		return r.c.Items.ByHRID(ctx, token)
	case identify.InstanceID:
		return r.c.Items.ByInstanceID(ctx, token)
	case identify.InstanceHRID:
		return r.c.Items.ByInstanceHRID(ctx, token)
	case identify.Accession:
		return r.c.Items.ByInstanceID(ctx, InstanceIDFromAccession(token))
	case identify.HoldingsID:
		return r.c.Items.ByHoldingsID(ctx, token)
	case identify.HoldingsHRID:
		return r.viaFirst(ctx, token, kind, client.KindHoldings, opts, func(h client.Body) (string, identify.Kind) {
			return h.ID(), identify.HoldingsID
		}, client.KindItem)
	case identify.LoanID:
		return r.viaFirst(ctx, token, kind, client.KindLoan, opts, func(l client.Body) (string, identify.Kind) {
			return l.Str("itemId"), identify.ItemID
		}, client.KindItem)
	case identify.UserID:
		return r.eachLoan(ctx, token, kind, opts, client.KindItem)
	case identify.UserBarcode:
		return r.viaFirst(ctx, token, kind, client.KindUser, opts, func(u client.Body) (string, identify.Kind) {
			return u.ID(), identify.UserID
		}, client.KindItem)
	default:
		return nil, unsupported(kind, client.KindItem)
	}
}

func (r *Resolver) instances(ctx context.Context, token string, kind identify.Kind, opts Options) ([]client.Body, error) {
	switch kind {
	case identify.InstanceID:
		return one(r.c.Instances.Get(ctx, token))
	case identify.InstanceHRID:
		return r.c.Instances.ByHRID(ctx, token)
	case identify.Accession:
		return one(r.c.Instances.Get(ctx, InstanceIDFromAccession(token)))
	case identify.ItemBarcode:
		return r.c.Instances.ByItemBarcode(ctx, token)
	case identify.ItemID:
		return r.c.Instances.ByItemID(ctx, token)
	case identify.ItemHRID:
		return r.c.Instances.ByItemHRID(ctx, token)
	case identify.HoldingsID, identify.HoldingsHRID:
		return r.viaFirst(ctx, token, kind, client.KindHoldings, opts, func(h client.Body) (string, identify.Kind) {
			return h.Str("instanceId"), identify.InstanceID
		}, client.KindInstance)
	case identify.LoanID:
		return r.viaFirst(ctx, token, kind, client.KindLoan, opts, func(l client.Body) (string, identify.Kind) {
			return l.Str("itemId"), identify.ItemID
		}, client.KindInstance)
	case identify.UserID:
		return r.eachLoan(ctx, token, kind, opts, client.KindInstance)
	case identify.UserBarcode:
		return r.viaFirst(ctx, token, kind, client.KindUser, opts, func(u client.Body) (string, identify.Kind) {
			return u.ID(), identify.UserID
		}, client.KindInstance)
	default:
		return nil, unsupported(kind, client.KindInstance)
	}
}

func (r *Resolver) holdings(ctx context.Context, token string, kind identify.Kind, opts Options) ([]client.Body, error) {
	switch kind {
	case identify.HoldingsID:
		return one(r.c.Holdings.Get(ctx, token))
	case identify.HoldingsHRID:
		return r.c.Holdings.ByHRID(ctx, token)
	case identify.InstanceID:
		return r.c.Holdings.ByInstanceID(ctx, token)
	case identify.InstanceHRID:
		return r.viaFirst(ctx, token, kind, client.KindInstance, opts, func(inst client.Body) (string, identify.Kind) {
			return inst.ID(), identify.InstanceID
		}, client.KindHoldings)
	case identify.Accession:
		return r.c.Holdings.ByInstanceID(ctx, InstanceIDFromAccession(token))
	case identify.ItemID, identify.ItemBarcode, identify.ItemHRID:
		// Holdings storage has no item.* queries; hop through the item.
		return r.viaFirst(ctx, token, kind, client.KindItem, opts, func(item client.Body) (string, identify.Kind) {
			return item.Str("holdingsRecordId"), identify.HoldingsID
		}, client.KindHoldings)
	case identify.LoanID:
		return r.viaFirst(ctx, token, kind, client.KindLoan, opts, func(l client.Body) (string, identify.Kind) {
			return l.Str("itemId"), identify.ItemID
		}, client.KindHoldings)
	case identify.UserID:
		return r.eachLoan(ctx, token, kind, opts, client.KindHoldings)
	case identify.UserBarcode:
		return r.viaFirst(ctx, token, kind, client.KindUser, opts, func(u client.Body) (string, identify.Kind) {
			return u.ID(), identify.UserID
		}, client.KindHoldings)
	default:
		return nil, unsupported(kind, client.KindHoldings)
	}
}

func (r *Resolver) loans(ctx context.Context, token string, kind identify.Kind, opts Options) ([]client.Body, error) {
	switch kind {
	case identify.LoanID:
		return one(r.c.Loans.Get(ctx, token))
	case identify.UserID:
		loans, err := r.c.Loans.ByUserID(ctx, token)
		return filterLoans(loans, opts), err
	case identify.ItemID:
		loans, err := r.c.Loans.ByItemID(ctx, token)
		return filterLoans(loans, opts), err
	case identify.ItemBarcode, identify.ItemHRID:
		return r.viaFirst(ctx, token, kind, client.KindItem, opts, func(item client.Body) (string, identify.Kind) {
			return item.ID(), identify.ItemID
		}, client.KindLoan)
	case identify.InstanceID:
		items, err := r.c.Items.ByInstanceID(ctx, token)
		if err != nil {
			return nil, err
		}
		var loans []client.Body
		for _, item := range items {
			batch, err := r.c.Loans.ByItemID(ctx, item.ID())
			if err != nil {
				return nil, err
			}
			loans = append(loans, filterLoans(batch, opts)...)
		}
		return loans, nil
	case identify.InstanceHRID:
		return r.viaFirst(ctx, token, kind, client.KindInstance, opts, func(inst client.Body) (string, identify.Kind) {
			return inst.ID(), identify.InstanceID
		}, client.KindLoan)
	case identify.Accession:
		return r.loans(ctx, InstanceIDFromAccession(token), identify.InstanceID, opts)
	case identify.HoldingsID, identify.HoldingsHRID:
		return r.viaFirst(ctx, token, kind, client.KindHoldings, opts, func(h client.Body) (string, identify.Kind) {
			return h.Str("instanceId"), identify.InstanceID
		}, client.KindLoan)
	case identify.UserBarcode:
		return r.viaFirst(ctx, token, kind, client.KindUser, opts, func(u client.Body) (string, identify.Kind) {
			return u.ID(), identify.UserID
		}, client.KindLoan)
	default:
		return nil, unsupported(kind, client.KindLoan)
	}
}

func (r *Resolver) users(ctx context.Context, token string, kind identify.Kind, opts Options) ([]client.Body, error) {
	switch kind {
	case identify.UserID:
		return one(r.c.Users.Get(ctx, token))
	case identify.UserBarcode:
		return r.c.Users.ByBarcode(ctx, token)
	case identify.LoanID:
		return r.viaFirst(ctx, token, kind, client.KindLoan, opts, func(l client.Body) (string, identify.Kind) {
			return l.Str("userId"), identify.UserID
		}, client.KindUser)
	case identify.ItemID, identify.ItemBarcode, identify.ItemHRID,
		identify.InstanceID, identify.InstanceHRID, identify.Accession,
		identify.HoldingsID, identify.HoldingsHRID:
		loans, err := r.loans(ctx, token, kind, opts)
		if err != nil {
			return nil, err
		}
		var users []client.Body
		seen := map[string]bool{}
		for _, loan := range loans {
			userID := loan.Str("userId")
			if userID == "" || seen[userID] {
				continue
			}
			seen[userID] = true
			user, err := r.c.Users.Get(ctx, userID)
			if err != nil {
				if client.IsNotFound(err) {
					continue
				}
				return nil, err
			}
			users = append(users, user)
		}
		return users, nil
	default:
		return nil, unsupported(kind, client.KindUser)
	}
}

// viaFirst resolves the source identifier to its intermediate record kind,
// then continues the walk from the first intermediate record. The record
// graph has at most one parent along every such hop, so "first" is not a
// tie-break: the intermediate list has at most one element.
func (r *Resolver) viaFirst(
	ctx context.Context, token string, kind identify.Kind, via client.RecordKind,
	opts Options, next func(client.Body) (string, identify.Kind), target client.RecordKind,
) ([]client.Body, error) {
	intermediates, err := r.Related(ctx, token, kind, via, opts)
	if err != nil {
		return nil, err
	}
	if len(intermediates) == 0 {
		return nil, nil
	}
	nextToken, nextKind := next(intermediates[0])
	if nextToken == "" {
		return nil, fmt.Errorf("%s %s lacks the reference needed to reach %s", via, intermediates[0].ID(), target)
	}
	return r.Related(ctx, nextToken, nextKind, target, opts)
}

// eachLoan walks user → loans → item → target, concatenating results in
// the platform's loan listing order.
func (r *Resolver) eachLoan(ctx context.Context, userToken string, kind identify.Kind, opts Options, target client.RecordKind) ([]client.Body, error) {
	loans, err := r.loans(ctx, userToken, kind, opts)
	if err != nil {
		return nil, err
	}
	var out []client.Body
	for _, loan := range loans {
		itemID := loan.Str("itemId")
		if itemID == "" {
			continue
		}
		records, err := r.Related(ctx, itemID, identify.ItemID, target, opts)
		if err != nil {
			if client.IsNotFound(err) {
				// Phantom loan: the loaned item is gone. Lookup results
				// skip it; the clean operation is the remedy.
				r.log.WithField("itemId", itemID).Warn("loan references a missing item")
				continue
			}
			return nil, err
		}
		out = append(out, records...)
	}
	return out, nil
}

func filterLoans(loans []client.Body, opts Options) []client.Body {
	if !opts.OpenLoansOnly {
		return loans
	}
	out := loans[:0:0]
	for _, loan := range loans {
		if client.LoanOpen(loan) {
			out = append(out, loan)
		}
	}
	return out
}

// one adapts a single-record fetch to the list-of-records result shape,
// mapping not-found to an empty result.
func one(body client.Body, err error) ([]client.Body, error) {
	if err != nil {
		if client.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return []client.Body{body}, nil
}

func unsupported(kind identify.Kind, target client.RecordKind) error {
	return fmt.Errorf("unsupported combination: searching for %s by %s", target, kind)
}
