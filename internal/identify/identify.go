// Package identify classifies raw identifier tokens into record id kinds.
//
// The platform has no endpoint answering "what kind of id is this", so
// classification runs local pattern rules first and then a prioritized
// cascade of remote existence probes. Probe order is a latency heuristic,
// not a correctness rule: an id matches at most one storage module.
package identify

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/folio-labs/folioctl/client"
	"github.com/folio-labs/folioctl/internal/config"
	"github.com/folio-labs/folioctl/internal/metrics"
)

// Kind is the inferred semantic kind of an identifier token.
type Kind string

// Identifier kinds, including the Unknown marker for tokens no rule or
// probe recognizes.
const (
	Unknown      Kind = "unknown"
	ItemBarcode  Kind = "item barcode"
	ItemID       Kind = "item id"
	ItemHRID     Kind = "item hrid"
	InstanceID   Kind = "instance id"
	InstanceHRID Kind = "instance hrid"
	Accession    Kind = "accession number"
	HoldingsID   Kind = "holdings id"
	HoldingsHRID Kind = "holdings hrid"
	UserID       Kind = "user id"
	UserBarcode  Kind = "user barcode"
	LoanID       Kind = "loan id"
)

// RecordKind returns the record family an identifier of this kind names
// directly. Accession numbers address instances. Unknown has no record
// family and yields the zero RecordKind.
func (k Kind) RecordKind() client.RecordKind {
	switch k {
	case ItemBarcode, ItemID, ItemHRID:
		return client.KindItem
	case InstanceID, InstanceHRID, Accession:
		return client.KindInstance
	case HoldingsID, HoldingsHRID:
		return client.KindHoldings
	case UserID, UserBarcode:
		return client.KindUser
	case LoanID:
		return client.KindLoan
	}
	return ""
}

// Result is a classified token. Token is the canonical form to use for
// subsequent lookups; it differs from the input only when the zero-padding
// rule matched a user barcode.
type Result struct {
	Kind  Kind
	Token string
}

// Probe is one remote existence check in the cascade.
type Probe struct {
	Kind  Kind
	Check func(ctx context.Context, id string) (bool, error)
}

// Classifier infers identifier kinds. The session cache never evicts;
// repeat tokens in later batches skip the network entirely.
type Classifier struct {
	rules        config.IdentifierRules
	uuidProbes   []Probe
	searchProbes []Probe
	cache        *gocache.Cache
	log          *logrus.Logger
}

// New creates a Classifier with the given pattern rules and probe cascades.
func New(rules config.IdentifierRules, uuidProbes, searchProbes []Probe, log *logrus.Logger) *Classifier {
	return &Classifier{
		rules:        rules,
		uuidProbes:   uuidProbes,
		searchProbes: searchProbes,
		cache:        gocache.New(gocache.NoExpiration, 0),
		log:          log,
	}
}

// NewProbes returns the two probe cascades backed by the given client:
// get-by-id probes for UUID tokens and query probes for ambiguous short
// tokens, each in priority order.
func NewProbes(c *client.Client) (uuidProbes, searchProbes []Probe) {
	uuidProbes = []Probe{
		{ItemID, c.Items.Exists},
		{InstanceID, c.Instances.Exists},
		{HoldingsID, c.Holdings.Exists},
		{LoanID, c.Loans.Exists},
		{UserID, c.Users.Exists},
	}
	searchProbes = []Probe{
		{UserBarcode, positive(c.Users.CountByBarcode)},
		{InstanceHRID, positive(c.Instances.CountByHRID)},
		{ItemHRID, positive(c.Items.CountByHRID)},
		{HoldingsHRID, positive(c.Holdings.CountByHRID)},
	}
	return uuidProbes, searchProbes
}

func positive(count func(context.Context, string) (int, error)) func(context.Context, string) (bool, error) {
	return func(ctx context.Context, id string) (bool, error) {
		n, err := count(ctx, id)
		return n > 0, err
	}
}

// Classify determines the kind of the given token. Pattern rules are tried
// first and short-circuit; otherwise the probe cascades run in order. An
// unrecognized token yields Kind Unknown with a nil error; a non-nil error
// means a probe failed for transport or server reasons and the token's kind
// is undecided, not absent.
func (cl *Classifier) Classify(ctx context.Context, token string) (Result, error) {
	if cached, ok := cl.cache.Get(token); ok {
		return cached.(Result), nil
	}

	result, err := cl.classify(ctx, token)
	if err != nil {
		return Result{Kind: Unknown, Token: token}, err
	}
	if result.Kind != Unknown {
		// Negative results are not cached: the record may appear later in
		// the session (e.g. a holdings created by a location change).
		cl.cache.Add(token, result, gocache.NoExpiration)
		cl.cache.Add(result.Token, result, gocache.NoExpiration)
	}
	return result, nil
}

func (cl *Classifier) classify(ctx context.Context, token string) (Result, error) {
	rules := cl.rules

	switch {
	case isDigits(token) && len(token) >= rules.ItemBarcodeMinLen && strings.HasPrefix(token, rules.ItemBarcodePrefix):
		cl.log.WithField("token", token).Debug("recognized item barcode by pattern")
		return Result{ItemBarcode, token}, nil

	case hridPattern(token, rules.ItemHRIDPrefix):
		cl.log.WithField("token", token).Debug("recognized item hrid by pattern")
		return Result{ItemHRID, token}, nil

	case hridPattern(token, rules.HoldingsHRIDPrefix):
		cl.log.WithField("token", token).Debug("recognized holdings hrid by pattern")
		return Result{HoldingsHRID, token}, nil

	case rules.AccessionPrefix != "" && strings.HasPrefix(token, rules.AccessionPrefix):
		cl.log.WithField("token", token).Debug("recognized accession number by pattern")
		return Result{Accession, token}, nil

	case strings.Contains(token, "-"):
		// Storage modules key records by UUID; a dashed token that is not
		// a UUID cannot match anything, so skip the probes.
		if err := uuid.Validate(token); err != nil {
			return Result{Unknown, token}, nil
		}
		return cl.runProbes(ctx, cl.uuidProbes, token)

	default:
		return cl.searchAmbiguous(ctx, token)
	}
}

// searchAmbiguous resolves short tokens that no local pattern claims. When
// the user-barcode probe misses on a purely numeric token, the probe is
// repeated with the token zero-padded to the configured barcode width
// before moving down the cascade.
func (cl *Classifier) searchAmbiguous(ctx context.Context, token string) (Result, error) {
	for _, probe := range cl.searchProbes {
		found, err := probe.Check(ctx, token)
		if err != nil {
			metrics.ClassifierProbes.WithLabelValues(string(probe.Kind), "error").Inc()
			return Result{Unknown, token}, fmt.Errorf("probe %s for %q: %w", probe.Kind, token, err)
		}
		if found {
			metrics.ClassifierProbes.WithLabelValues(string(probe.Kind), "hit").Inc()
			return Result{probe.Kind, token}, nil
		}
		metrics.ClassifierProbes.WithLabelValues(string(probe.Kind), "miss").Inc()

		if probe.Kind == UserBarcode {
			if padded, ok := cl.zeroPadded(token); ok {
				found, err = probe.Check(ctx, padded)
				if err != nil {
					metrics.ClassifierProbes.WithLabelValues(string(probe.Kind), "error").Inc()
					return Result{Unknown, token}, fmt.Errorf("probe %s for %q: %w", probe.Kind, padded, err)
				}
				if found {
					metrics.ClassifierProbes.WithLabelValues(string(probe.Kind), "hit").Inc()
					cl.log.WithFields(logrus.Fields{"token": token, "padded": padded}).
						Debug("user barcode matched after zero padding")
					return Result{UserBarcode, padded}, nil
				}
				metrics.ClassifierProbes.WithLabelValues(string(probe.Kind), "miss").Inc()
			}
		}
	}
	return Result{Unknown, token}, nil
}

func (cl *Classifier) runProbes(ctx context.Context, probes []Probe, token string) (Result, error) {
	for _, probe := range probes {
		found, err := probe.Check(ctx, token)
		if err != nil {
			metrics.ClassifierProbes.WithLabelValues(string(probe.Kind), "error").Inc()
			return Result{Unknown, token}, fmt.Errorf("probe %s for %q: %w", probe.Kind, token, err)
		}
		if found {
			metrics.ClassifierProbes.WithLabelValues(string(probe.Kind), "hit").Inc()
			return Result{probe.Kind, token}, nil
		}
		metrics.ClassifierProbes.WithLabelValues(string(probe.Kind), "miss").Inc()
	}
	return Result{Unknown, token}, nil
}

func (cl *Classifier) zeroPadded(token string) (string, bool) {
	width := cl.rules.UserBarcodeWidth
	if width == 0 || !isDigits(token) || len(token) >= width {
		return "", false
	}
	return strings.Repeat("0", width-len(token)) + token, true
}

func hridPattern(token, prefix string) bool {
	if prefix == "" || !strings.HasPrefix(token, prefix) {
		return false
	}
	rest := token[len(prefix):]
	return len(rest) > 0 && rest[0] >= '0' && rest[0] <= '9'
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
