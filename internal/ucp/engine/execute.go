package engine

import (
	"context"
	"fmt"

	"github.com/arthur-debert/ucp/internal/ucp/document"
	"github.com/arthur-debert/ucp/internal/ucp/events"
	"github.com/arthur-debert/ucp/internal/ucp/ucerr"
)

// Engine binds a document to its transaction/snapshot bookkeeping and
// its event sink. One Engine owns exactly one document for its lifetime.
type Engine struct {
	Doc    *document.Document
	events *events.Sink
	tx     *activeTransaction
	snaps  map[string]*snapshotEntry
}

// New wires an engine around doc, emitting observability events to sink
// (pass events.Null() to discard them, e.g. in tests).
func New(doc *document.Document, sink *events.Sink) *Engine {
	return &Engine{Doc: doc, events: sink, snaps: map[string]*snapshotEntry{}}
}

// Execute performs a single operation under the document's exclusive
// lock, honoring an active transaction's pre-image capture, and emits
// one event describing the attempt and its outcome.
func (e *Engine) Execute(ctx context.Context, op Operation) (Result, error) {
	e.Doc.Lock()
	defer e.Doc.Unlock()

	if e.tx != nil {
		e.tx.capture(e.Doc, opTargets(op)...)
	}

	res, err := e.applyLocked(op)
	if err != nil {
		e.events.EmitError(ctx, events.KindOperation, "operation failed", err, "op", string(op.Kind))
		return Result{}, err
	}
	e.events.Emit(ctx, events.KindOperation, "operation applied", "op", string(op.Kind), "version", res.NewVersion)
	return res, nil
}

// ExecuteBatch runs ops in order inside one implicit transaction: if any
// operation fails, every prior operation in the batch is rolled back and
// the batch returns that error (§5 "Batch operations", mirroring ATOMIC).
func (e *Engine) ExecuteBatch(ctx context.Context, ops []Operation) ([]Result, error) {
	if err := e.Begin(ctx, ""); err != nil {
		return nil, err
	}
	results := make([]Result, 0, len(ops))
	for _, op := range ops {
		res, err := e.Execute(ctx, op)
		if err != nil {
			_ = e.Rollback(ctx, "")
			return nil, err
		}
		results = append(results, res)
	}
	if err := e.Commit(ctx, ""); err != nil {
		return nil, err
	}
	return results, nil
}

func (e *Engine) applyLocked(op Operation) (Result, error) {
	switch op.Kind {
	case OpAdd:
		a := op.Add
		id, err := e.Doc.AddBlock(a.Parent, a.Content, a.Role, a.Metadata)
		if err != nil {
			return Result{}, err
		}
		return Result{Kind: OpAdd, CreatedID: id, NewVersion: e.Doc.Version}, nil
	case OpEdit:
		ed := op.Edit
		if err := e.Doc.EditBlock(ed.Block, ed.Patch); err != nil {
			return Result{}, err
		}
		return Result{Kind: OpEdit, NewVersion: e.Doc.Version}, nil
	case OpMove:
		m := op.Move
		if err := e.Doc.MoveBlock(m.Block, m.Dest); err != nil {
			return Result{}, err
		}
		return Result{Kind: OpMove, NewVersion: e.Doc.Version}, nil
	case OpDelete:
		d := op.Delete
		removed, err := e.Doc.DeleteBlock(d.Block, d.Mode)
		if err != nil {
			return Result{}, err
		}
		return Result{Kind: OpDelete, RemovedIDs: removed, NewVersion: e.Doc.Version}, nil
	case OpLink:
		l := op.Link
		if err := e.Doc.AddEdge(l.Source, l.Type, l.Target, l.Metadata); err != nil {
			return Result{}, err
		}
		return Result{Kind: OpLink, NewVersion: e.Doc.Version}, nil
	case OpUnlink:
		u := op.Unlink
		if err := e.Doc.RemoveEdge(u.Source, u.Type, u.Target); err != nil {
			return Result{}, err
		}
		return Result{Kind: OpUnlink, NewVersion: e.Doc.Version}, nil
	case OpPrune:
		return e.applyPrune(op.Prune)
	case OpFold:
		return e.applyFold(op.Fold)
	}
	return Result{}, ucerr.New(ucerr.KindValidation, ucerr.CodeMalformedCommand, fmt.Sprintf("unknown operation kind %q", op.Kind))
}

func opTargets(op Operation) []string {
	switch op.Kind {
	case OpAdd:
		return []string{string(op.Add.Parent)}
	case OpEdit:
		return []string{string(op.Edit.Block)}
	case OpMove:
		return []string{string(op.Move.Block)}
	case OpDelete:
		return []string{string(op.Delete.Block)}
	case OpLink:
		return []string{string(op.Link.Source), string(op.Link.Target)}
	case OpUnlink:
		return []string{string(op.Unlink.Source), string(op.Unlink.Target)}
	case OpFold:
		return []string{string(op.Fold.Block)}
	}
	return nil
}
