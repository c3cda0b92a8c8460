// Package cascade deletes records and their downstream dependents in an
// order the platform's referential constraints accept: items before their
// holdings record, holdings before their instance, and the instance's
// source-record entry before the instance itself.
package cascade

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/folio-labs/folioctl/client"
	"github.com/folio-labs/folioctl/internal/backup"
	"github.com/folio-labs/folioctl/internal/metrics"
)

// State tracks one record through the deletion pipeline.
type State string

// Deletion states. Deleted and Failed are terminal.
const (
	Pending  State = "pending"
	BackedUp State = "backed up"
	Deleted  State = "deleted"
	Failed   State = "failed"
)

// Result is the deletion outcome for one record, with the outcomes of the
// dependents deleted ahead of it.
type Result struct {
	ID       string
	Kind     client.RecordKind
	State    State
	Note     string
	Err      error
	Children []Result
}

// Failedp reports whether the record or any dependent ended up Failed.
func (r Result) Failedp() bool {
	if r.State == Failed {
		return true
	}
	for _, child := range r.Children {
		if child.Failedp() {
			return true
		}
	}
	return false
}

// Engine runs deletion cascades, snapshotting every record before its
// delete call goes out.
type Engine struct {
	c       *client.Client
	backups *backup.Store
	log     *logrus.Logger
	demo    bool
}

// NewEngine creates an Engine. With demo set, records are fetched and the
// cascade is walked, but nothing is backed up or deleted.
func NewEngine(c *client.Client, backups *backup.Store, log *logrus.Logger, demo bool) *Engine {
	return &Engine{c: c, backups: backups, log: log, demo: demo}
}

// Delete removes the record and everything below it. A dependent that
// fails to delete stops the parent's own delete, since the platform would
// reject it anyway, but never stops that dependent's siblings.
func (e *Engine) Delete(ctx context.Context, id string, kind client.RecordKind) Result {
	var result Result
	switch kind {
	case client.KindItem:
		result = e.deleteItem(ctx, id)
	case client.KindHoldings:
		result = e.deleteHoldings(ctx, id)
	case client.KindInstance:
		result = e.deleteInstance(ctx, id)
	case client.KindLoan:
		result = e.deleteLoan(ctx, id)
	default:
		result = Result{ID: id, Kind: kind, State: Failed,
			Err: fmt.Errorf("cannot delete records of kind %s", kind)}
	}
	metrics.RecordDeletions.WithLabelValues(string(kind), outcomeLabel(result)).Inc()
	return result
}

func outcomeLabel(r Result) string {
	if r.Failedp() {
		return "failed"
	}
	return "deleted"
}

func (e *Engine) deleteItem(ctx context.Context, id string) Result {
	item, err := e.c.Items.Get(ctx, id)
	if err != nil {
		return Result{ID: id, Kind: client.KindItem, State: Failed, Err: err}
	}
	return e.remove(client.KindItem, item, func() error {
		return e.c.Items.Delete(ctx, id)
	})
}

func (e *Engine) deleteLoan(ctx context.Context, id string) Result {
	loan, err := e.c.Loans.Get(ctx, id)
	if err != nil {
		return Result{ID: id, Kind: client.KindLoan, State: Failed, Err: err}
	}
	return e.remove(client.KindLoan, loan, func() error {
		return e.c.Loans.Delete(ctx, id)
	})
}

func (e *Engine) deleteHoldings(ctx context.Context, id string) Result {
	holdings, err := e.c.Holdings.Get(ctx, id)
	if err != nil {
		return Result{ID: id, Kind: client.KindHoldings, State: Failed, Err: err}
	}

	items, err := e.c.Items.ByHoldingsID(ctx, id)
	if err != nil {
		return Result{ID: id, Kind: client.KindHoldings, State: Failed,
			Err: fmt.Errorf("list items of holdings: %w", err)}
	}

	var children []Result
	blocked := false
	for _, item := range items {
		child := e.remove(client.KindItem, item, func() error {
			return e.c.Items.Delete(ctx, item.ID())
		})
		blocked = blocked || child.State != Deleted
		children = append(children, child)
	}
	if blocked {
		return Result{ID: id, Kind: client.KindHoldings, State: Failed, Children: children,
			Err: fmt.Errorf("not all items could be deleted")}
	}

	result := e.remove(client.KindHoldings, holdings, func() error {
		return e.c.Holdings.Delete(ctx, id)
	})
	result.Children = children
	return result
}

func (e *Engine) deleteInstance(ctx context.Context, id string) Result {
	instance, err := e.c.Instances.Get(ctx, id)
	if err != nil {
		return Result{ID: id, Kind: client.KindInstance, State: Failed, Err: err}
	}

	holdings, err := e.c.Holdings.ByInstanceID(ctx, id)
	if err != nil {
		return Result{ID: id, Kind: client.KindInstance, State: Failed,
			Err: fmt.Errorf("list holdings of instance: %w", err)}
	}

	var children []Result
	blocked := false
	for _, h := range holdings {
		child := e.deleteHoldings(ctx, h.ID())
		blocked = blocked || child.State != Deleted
		children = append(children, child)
	}
	if blocked {
		return Result{ID: id, Kind: client.KindInstance, State: Failed, Children: children,
			Err: fmt.Errorf("not all holdings could be deleted")}
	}

	note := ""
	if !e.demo {
		// Older instances may have no source-record entry; a missing one
		// is logged and skipped, not an error.
		if err := e.c.Source.DeleteForInstance(ctx, id); err != nil {
			if !client.IsNotFound(err) {
				return Result{ID: id, Kind: client.KindInstance, State: Failed, Children: children,
					Err: fmt.Errorf("delete source record: %w", err)}
			}
			e.log.WithField("instance", id).Warn("instance has no source record entry")
			note = "no source record entry"
		}
	}

	result := e.remove(client.KindInstance, instance, func() error {
		return e.c.Instances.Delete(ctx, id)
	})
	result.Children = children
	result.Note = note
	return result
}

// remove backs the record up and runs the delete call, advancing the
// record's state as each step lands.
func (e *Engine) remove(kind client.RecordKind, record client.Body, del func() error) Result {
	result := Result{ID: record.ID(), Kind: kind, State: Pending}
	if e.demo {
		result.State = Deleted
		result.Note = "demo mode, no records deleted"
		return result
	}

	if _, err := e.backups.Write(record); err != nil {
		result.State = Failed
		result.Err = fmt.Errorf("backup: %w", err)
		return result
	}
	result.State = BackedUp

	if err := del(); err != nil {
		result.State = Failed
		result.Err = err
		return result
	}
	result.State = Deleted
	e.log.WithFields(logrus.Fields{"kind": kind, "id": record.ID()}).Info("deleted record")
	return result
}
