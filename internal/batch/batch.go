// Package batch drives whole-input runs: it splits raw identifier text,
// classifies each token, resolves records, and hands them to the lookup,
// change, delete, or clean operation, collecting one outcome per
// identifier in input order.
package batch

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/folio-labs/folioctl/client"
	"github.com/folio-labs/folioctl/internal/cascade"
	"github.com/folio-labs/folioctl/internal/identify"
	"github.com/folio-labs/folioctl/internal/mutate"
	"github.com/folio-labs/folioctl/internal/resolve"
)

// Runner wires the classifier, resolver, and the two write engines into
// per-identifier pipelines. All processing is sequential: one identifier,
// then the next, so writes never overlap.
type Runner struct {
	classifier *identify.Classifier
	resolver   *resolve.Resolver
	executor   *mutate.Executor
	engine     *cascade.Engine
	log        *logrus.Logger
}

// NewRunner creates a Runner.
func NewRunner(classifier *identify.Classifier, resolver *resolve.Resolver,
	executor *mutate.Executor, engine *cascade.Engine, log *logrus.Logger) *Runner {
	return &Runner{
		classifier: classifier,
		resolver:   resolver,
		executor:   executor,
		engine:     engine,
		log:        log,
	}
}

// LookupResult is the outcome of resolving one input identifier. NotFound
// marks an identifier that classified or resolved to nothing; it is not an
// error and never stops the batch.
type LookupResult struct {
	Identifier string
	Kind       identify.Kind
	Records    []client.Body
	NotFound   bool
	Err        error
}

// Lookup resolves every identifier in the raw input to records of the
// target kind. Results preserve input order, one entry per identifier.
func (r *Runner) Lookup(ctx context.Context, raw string, target client.RecordKind, opts resolve.Options) []LookupResult {
	var results []LookupResult
	for _, token := range identify.SplitIdentifiers(raw) {
		result := LookupResult{Identifier: token}
		cls, err := r.classifier.Classify(ctx, token)
		result.Kind = cls.Kind
		switch {
		case err != nil:
			result.Err = err
		case cls.Kind == identify.Unknown:
			result.NotFound = true
		default:
			records, err := r.resolver.Related(ctx, cls.Token, cls.Kind, target, opts)
			if err != nil {
				result.Err = err
			} else if len(records) == 0 {
				result.NotFound = true
			} else {
				result.Records = records
			}
		}
		results = append(results, result)
		if client.IsAuthExpired(result.Err) {
			// Without a token nothing further can succeed; already
			// collected outcomes stand.
			break
		}
	}
	return results
}

// ChangeResult is the outcome of a field change for one input identifier:
// one mutate result per item the identifier resolved to.
type ChangeResult struct {
	Identifier string
	Kind       identify.Kind
	Items      []mutate.Result
	NotFound   bool
	Err        error
}

// Change applies the field-edit request to every item each identifier
// resolves to. The request is validated before any network call.
func (r *Runner) Change(ctx context.Context, raw string, req mutate.Request, opts resolve.Options) ([]ChangeResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var results []ChangeResult
	for _, lookup := range r.Lookup(ctx, raw, client.KindItem, opts) {
		result := ChangeResult{
			Identifier: lookup.Identifier,
			Kind:       lookup.Kind,
			NotFound:   lookup.NotFound,
			Err:        lookup.Err,
		}
		if lookup.Err == nil && !lookup.NotFound {
			result.Items = r.executor.ChangeItems(ctx, lookup.Records, req)
		}
		results = append(results, result)
		if changeAuthExpired(result.Items) {
			break
		}
	}
	return results, nil
}

func changeAuthExpired(items []mutate.Result) bool {
	for _, item := range items {
		if client.IsAuthExpired(item.Err) {
			return true
		}
	}
	return false
}

// DeleteResult is the outcome of a deletion cascade for one identifier:
// one cascade tree per record the identifier resolved to.
type DeleteResult struct {
	Identifier string
	Kind       identify.Kind
	Records    []cascade.Result
	NotFound   bool
	Err        error
}

// Delete runs a deletion cascade for every record each identifier resolves
// to. User identifiers are rejected per entry; users are never deleted.
func (r *Runner) Delete(ctx context.Context, raw string) []DeleteResult {
	var results []DeleteResult
	for _, token := range identify.SplitIdentifiers(raw) {
		result := DeleteResult{Identifier: token}
		cls, err := r.classifier.Classify(ctx, token)
		result.Kind = cls.Kind
		switch {
		case err != nil:
			result.Err = err
		case cls.Kind == identify.Unknown:
			result.NotFound = true
		case cls.Kind.RecordKind() == client.KindUser:
			result.Err = fmt.Errorf("refusing to delete user records (%s)", token)
		default:
			kind := cls.Kind.RecordKind()
			records, err := r.resolver.Related(ctx, cls.Token, cls.Kind, kind, resolve.Options{})
			switch {
			case err != nil:
				result.Err = err
			case len(records) == 0:
				result.NotFound = true
			default:
				for _, record := range records {
					result.Records = append(result.Records, r.engine.Delete(ctx, record.ID(), kind))
				}
			}
		}
		results = append(results, result)
		if client.IsAuthExpired(result.Err) {
			break
		}
	}
	return results
}

// CleanResult is the outcome of a phantom-loan sweep for one user
// identifier.
type CleanResult struct {
	Identifier string
	Loans      []cascade.Result
	NotFound   bool
	Err        error
}

// Clean sweeps the loans of each user identifier and deletes the loans
// whose item no longer exists.
func (r *Runner) Clean(ctx context.Context, raw string) []CleanResult {
	var results []CleanResult
	for _, lookup := range r.Lookup(ctx, raw, client.KindUser, resolve.Options{}) {
		result := CleanResult{
			Identifier: lookup.Identifier,
			NotFound:   lookup.NotFound,
			Err:        lookup.Err,
		}
		if lookup.Err == nil && !lookup.NotFound {
			userIDs := make([]string, 0, len(lookup.Records))
			for _, user := range lookup.Records {
				userIDs = append(userIDs, user.ID())
			}
			result.Loans = r.engine.CleanLoans(ctx, userIDs)
		}
		results = append(results, result)
		if sweepAuthExpired(result.Loans) {
			break
		}
	}
	return results
}

func sweepAuthExpired(loans []cascade.Result) bool {
	for _, loan := range loans {
		if client.IsAuthExpired(loan.Err) {
			return true
		}
	}
	return false
}
