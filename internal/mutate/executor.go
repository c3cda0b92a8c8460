package mutate

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/folio-labs/folioctl/client"
	"github.com/folio-labs/folioctl/internal/backup"
	"github.com/folio-labs/folioctl/internal/metrics"
)

// Outcome is the per-record result of an attempted change.
type Outcome string

// Per-record outcomes. Skipped records did not match the action's
// predicate; failures carry the error.
const (
	Applied Outcome = "applied"
	Skipped Outcome = "skipped"
	Failed  Outcome = "failed"
)

// Result reports what happened to one item.
type Result struct {
	RecordID string
	Outcome  Outcome
	Note     string
	Err      error
}

// Executor applies field changes item by item: decide, back up, write.
// Processing is strictly sequential so that the holdings bookkeeping for
// one item is settled before the next item is planned.
type Executor struct {
	c       *client.Client
	backups *backup.Store
	log     *logrus.Logger
	demo    bool
}

// NewExecutor creates an Executor. With demo set, nothing is backed up or
// written; every would-be write reports Applied with a demo note.
func NewExecutor(c *client.Client, backups *backup.Store, log *logrus.Logger, demo bool) *Executor {
	return &Executor{c: c, backups: backups, log: log, demo: demo}
}

// ChangeItems applies the request to each item body in order. Results come
// back in the same order, one per item, and a failure on one item never
// stops the rest. Losing authentication is the exception: once the
// platform rejects the token, the remaining items are not attempted.
func (e *Executor) ChangeItems(ctx context.Context, items []client.Body, req Request) []Result {
	results := make([]Result, 0, len(items))
	for _, item := range items {
		result := e.changeItem(ctx, item, req)
		metrics.RecordChanges.WithLabelValues(string(result.Outcome)).Inc()
		results = append(results, result)
		if client.IsAuthExpired(result.Err) {
			break
		}
	}
	return results
}

// changeItem runs the fetch-decide-mutate sequence for one item.
func (e *Executor) changeItem(ctx context.Context, item client.Body, req Request) Result {
	id := item.ID()
	key := req.Field.Key
	current := item.Str(key)

	// Predicate checks are pure decisions; no network, no writes.
	switch req.Action {
	case Add:
		if item.Has(key) {
			return Result{RecordID: id, Outcome: Skipped, Note: fmt.Sprintf("item already has a value for %s", key)}
		}
	case Change, Delete:
		if !item.Has(key) {
			return Result{RecordID: id, Outcome: Skipped, Note: fmt.Sprintf("item has no %s field", key)}
		}
		if current != req.MatchValue {
			return Result{RecordID: id, Outcome: Skipped, Note: fmt.Sprintf("value of %s does not match", key)}
		}
	}

	var move *holdingsMove
	if req.Field.HoldingsCoupled && req.Action != Delete {
		var err error
		move, err = e.planHoldings(ctx, item, req.NewValue)
		if err != nil {
			if client.IsNotFound(err) {
				// The item points at a holdings record that is gone;
				// flag the inconsistency and leave the item alone.
				return Result{RecordID: id, Outcome: Skipped, Note: "item references a nonexistent holdings record", Err: err}
			}
			return Result{RecordID: id, Outcome: Failed, Err: err}
		}
	}

	if e.demo {
		return Result{RecordID: id, Outcome: Applied, Note: "demo mode, no records written"}
	}

	if _, err := e.backups.Write(item); err != nil {
		return Result{RecordID: id, Outcome: Failed, Err: fmt.Errorf("backup: %w", err)}
	}

	updated := item.Clone()
	if req.Action == Delete {
		updated.Delete(key)
	} else {
		updated.Set(key, req.NewValue)
	}

	note := ""
	if move != nil && move.targetID != "" && move.targetID != move.oldID {
		updated.Set("holdingsRecordId", move.targetID)
		note = "repointed to holdings " + move.targetID
	} else if move != nil && move.create != nil {
		created, err := e.c.Holdings.Create(ctx, move.create)
		if err != nil {
			return Result{RecordID: id, Outcome: Failed, Err: fmt.Errorf("create holdings: %w", err)}
		}
		updated.Set("holdingsRecordId", created.ID())
		move.targetID = created.ID()
		note = "created holdings " + created.ID()
	}

	if err := e.c.Items.Update(ctx, id, updated); err != nil {
		if move != nil && move.create != nil && move.targetID != "" {
			// The holdings record created for this move has no items yet;
			// remove it again rather than leave an empty record behind.
			if delErr := e.c.Holdings.Delete(ctx, move.targetID); delErr != nil {
				return Result{RecordID: id, Outcome: Failed,
					Note: fmt.Sprintf("created holdings %s is empty and could not be removed: %v", move.targetID, delErr),
					Err:  err}
			}
			e.log.WithField("holdings", move.targetID).Info("removed holdings created for a failed item update")
			return Result{RecordID: id, Outcome: Failed, Note: "removed unused holdings " + move.targetID, Err: err}
		}
		return Result{RecordID: id, Outcome: Failed, Err: err}
	}

	if move != nil && move.targetID != "" && move.targetID != move.oldID {
		if gcNote := e.collectOrphan(ctx, move.oldID); gcNote != "" {
			note = joinNotes(note, gcNote)
		}
	}

	e.log.WithFields(logrus.Fields{"item": id, "field": key, "action": req.Action}).Info("changed item record")
	return Result{RecordID: id, Outcome: Applied, Note: note}
}

// holdingsMove captures the repoint decision for one item: reuse an
// existing holdings record (targetID), create one (create), or nothing.
type holdingsMove struct {
	oldID    string
	targetID string
	create   client.Body
}

// planHoldings decides how the item's holdings reference must change so
// that its holdings record carries the new permanent location. When several
// holdings under the instance already have the target location, the lowest
// id wins, which keeps re-runs deterministic.
func (e *Executor) planHoldings(ctx context.Context, item client.Body, newLocationID string) (*holdingsMove, error) {
	holdingsID := item.Str("holdingsRecordId")
	if holdingsID == "" {
		return nil, fmt.Errorf("%w: item %s has no holdings reference", client.ErrNotFound, item.ID())
	}

	current, err := e.c.Holdings.Get(ctx, holdingsID)
	if err != nil {
		return nil, err
	}
	if current.Str("permanentLocationId") == newLocationID {
		return &holdingsMove{oldID: holdingsID, targetID: holdingsID}, nil
	}

	siblings, err := e.c.Holdings.ByInstanceID(ctx, current.Str("instanceId"))
	if err != nil {
		return nil, err
	}
	var candidates []string
	for _, sibling := range siblings {
		if sibling.ID() != holdingsID && sibling.Str("permanentLocationId") == newLocationID {
			candidates = append(candidates, sibling.ID())
		}
	}
	if len(candidates) > 0 {
		sort.Strings(candidates)
		return &holdingsMove{oldID: holdingsID, targetID: candidates[0]}, nil
	}

	// No holdings at the target location: clone the current one, swap the
	// location, and let the platform assign a fresh id and hrid.
	create := current.Clone()
	create.Delete("id")
	create.Delete("hrid")
	create.Set("permanentLocationId", newLocationID)
	return &holdingsMove{oldID: holdingsID, create: create}, nil
}

// collectOrphan deletes the vacated holdings record if no items reference
// it anymore. A failure here is reported in the item's note; the item
// change itself already succeeded.
func (e *Executor) collectOrphan(ctx context.Context, holdingsID string) string {
	remaining, err := e.c.Items.ByHoldingsID(ctx, holdingsID)
	if err != nil {
		return fmt.Sprintf("could not check holdings %s for remaining items: %v", holdingsID, err)
	}
	if len(remaining) > 0 {
		return ""
	}

	orphan, err := e.c.Holdings.Get(ctx, holdingsID)
	if err != nil {
		if client.IsNotFound(err) {
			return ""
		}
		return fmt.Sprintf("could not fetch orphaned holdings %s: %v", holdingsID, err)
	}
	if _, err := e.backups.Write(orphan); err != nil {
		return fmt.Sprintf("left orphaned holdings %s in place, backup failed: %v", holdingsID, err)
	}
	if err := e.c.Holdings.Delete(ctx, holdingsID); err != nil {
		return fmt.Sprintf("could not delete orphaned holdings %s: %v", holdingsID, err)
	}
	e.log.WithField("holdings", holdingsID).Info("deleted orphaned holdings record")
	return "deleted orphaned holdings " + holdingsID
}

func joinNotes(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	return a + "; " + b
}
