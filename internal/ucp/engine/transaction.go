package engine

import (
	"context"
	"fmt"

	"github.com/arthur-debert/ucp/internal/ucp/document"
	"github.com/arthur-debert/ucp/internal/ucp/events"
	"github.com/arthur-debert/ucp/internal/ucp/ucerr"
)

// activeTransaction tracks the pre-image needed to undo everything since
// Begin, plus named savepoints taken along the way. Pre-images are
// full-document clones: §5 allows either a full-copy or a delta
// representation as long as rollback/restore is byte-identical, and a
// full clone is simplest to keep correct for an in-memory document of
// this size (DESIGN.md records this choice).
//
// savepoints is ordered by creation, not keyed by name alone: RollbackTo
// must be able to tell which savepoints were recorded after the one
// being rewound to, so it can drop them too (otherwise a later
// RollbackTo of one of those stale names would jump the document
// forward again).
type activeTransaction struct {
	name       string
	preImage   *document.Document
	savepoints []savepointEntry
}

type savepointEntry struct {
	name string
	doc  *document.Document
}

func (t *activeTransaction) indexOfSavepoint(name string) int {
	for i := len(t.savepoints) - 1; i >= 0; i-- {
		if t.savepoints[i].name == name {
			return i
		}
	}
	return -1
}

// capture is a no-op under the full-clone strategy: the single pre-image
// taken at Begin already covers every block the transaction could touch.
// It exists so a future delta-based implementation has a seam to record
// per-operation touched-block diffs without changing Execute's shape.
func (t *activeTransaction) capture(_ *document.Document, _ ...string) {}

// Begin starts a transaction. Nested transactions are not supported
// (§5); calling Begin while one is already active fails.
func (e *Engine) Begin(ctx context.Context, name string) error {
	e.Doc.Lock()
	defer e.Doc.Unlock()
	if e.tx != nil {
		return ucerr.New(ucerr.KindValidation, ucerr.CodeMalformedCommand, "a transaction is already active; nested transactions are not supported")
	}
	e.tx = &activeTransaction{name: name, preImage: e.Doc.Clone()}
	e.events.Emit(ctx, events.KindTransaction, "transaction begun", "name", name)
	return nil
}

// Savepoint records a named intermediate pre-image within the active
// transaction. Re-using a name updates that savepoint's pre-image in
// place rather than appending a second entry, so its position in
// creation order — and therefore what RollbackTo considers "after it" —
// does not change.
func (e *Engine) Savepoint(ctx context.Context, name string) error {
	e.Doc.Lock()
	defer e.Doc.Unlock()
	if e.tx == nil {
		return ucerr.New(ucerr.KindValidation, ucerr.CodeSessionNotActive, "no active transaction")
	}
	snap := e.Doc.Clone()
	if i := e.tx.indexOfSavepoint(name); i >= 0 {
		e.tx.savepoints[i].doc = snap
	} else {
		e.tx.savepoints = append(e.tx.savepoints, savepointEntry{name: name, doc: snap})
	}
	e.events.Emit(ctx, events.KindTransaction, "savepoint recorded", "name", name)
	return nil
}

// Commit discards the transaction's pre-images, keeping all applied
// changes.
func (e *Engine) Commit(ctx context.Context, name string) error {
	e.Doc.Lock()
	defer e.Doc.Unlock()
	if e.tx == nil {
		return ucerr.New(ucerr.KindValidation, ucerr.CodeSessionNotActive, "no active transaction")
	}
	if name != "" && e.tx.name != "" && name != e.tx.name {
		return ucerr.New(ucerr.KindValidation, ucerr.CodeMalformedCommand, fmt.Sprintf("commit name %q does not match active transaction %q", name, e.tx.name))
	}
	e.tx = nil
	e.events.Emit(ctx, events.KindTransaction, "transaction committed", "name", name)
	return nil
}

// Rollback replays the Begin-time pre-image, discarding every change
// made during the transaction, and ends the transaction.
func (e *Engine) Rollback(ctx context.Context, name string) error {
	e.Doc.Lock()
	defer e.Doc.Unlock()
	if e.tx == nil {
		return ucerr.New(ucerr.KindValidation, ucerr.CodeSessionNotActive, "no active transaction")
	}
	if name != "" && e.tx.name != "" && name != e.tx.name {
		return ucerr.New(ucerr.KindValidation, ucerr.CodeMalformedCommand, fmt.Sprintf("rollback name %q does not match active transaction %q", name, e.tx.name))
	}
	e.Doc.ReplaceWith(e.tx.preImage)
	e.tx = nil
	e.events.Emit(ctx, events.KindTransaction, "transaction rolled back", "name", name)
	return nil
}

// RollbackTo rewinds to a named savepoint, leaving the transaction
// Active (§5), and drops every savepoint recorded after it — each of
// those now points at state this rollback just discarded, and leaving
// them in place would let a later RollbackTo jump the document forward
// again. The target savepoint itself survives, so it can be rolled
// back to more than once.
func (e *Engine) RollbackTo(ctx context.Context, savepoint string) error {
	e.Doc.Lock()
	defer e.Doc.Unlock()
	if e.tx == nil {
		return ucerr.New(ucerr.KindValidation, ucerr.CodeSessionNotActive, "no active transaction")
	}
	i := e.tx.indexOfSavepoint(savepoint)
	if i < 0 {
		return ucerr.New(ucerr.KindNotFound, ucerr.CodeBlockNotFound, fmt.Sprintf("savepoint %q not found", savepoint))
	}
	e.Doc.ReplaceWith(e.tx.savepoints[i].doc)
	e.tx.savepoints = e.tx.savepoints[:i+1]
	e.events.Emit(ctx, events.KindTransaction, "transaction rolled back to savepoint", "savepoint", savepoint)
	return nil
}

// InTransaction reports whether a transaction is currently active.
func (e *Engine) InTransaction() bool { return e.tx != nil }
