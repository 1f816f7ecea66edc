package engine

import (
	"context"
	"fmt"

	"github.com/arthur-debert/ucp/internal/ucp/ids"
	"github.com/arthur-debert/ucp/internal/ucp/ucerr"
	"github.com/arthur-debert/ucp/internal/ucp/ucl"
)

// ExecResult is what ExecuteUcl returns per parsed statement. Exactly
// one of Op/Snapshots/SnapshotID/Traversal is meaningful, selected by
// which kind of statement Command was.
type ExecResult struct {
	Command    ucl.Command
	Op         *Result
	Snapshots  []SnapshotInfo
	SnapshotID ids.SnapshotId
	Traversal  any
}

// OnTraversal handles a parsed traversal or CTX command (§4.6.6) that
// ExecuteUcl itself has no document-mutation translation for. The
// engine package never imports the agent package (a mutation engine
// has no business depending on session/traversal state); a caller that
// wants ExecuteUcl to also drive an agent.Session passes a closure over
// its own *agent.Session here instead.
type OnTraversal func(context.Context, ucl.Command) (any, error)

// ExecuteUcl parses src and runs every statement against e in order,
// stopping at the first error. ATOMIC wraps its body in one
// transaction (§5, mirroring ExecuteBatch); BEGIN/COMMIT/ROLLBACK,
// SAVEPOINT, and SNAPSHOT statements drive the matching Engine methods
// directly; DELETE WHERE and PRUNE resolve their match set through the
// condition evaluator; every other mutation command goes through
// FromCommand.
// Traversal and CTX commands are handed to onTraversal, which may be
// nil if the caller never issues them.
func (e *Engine) ExecuteUcl(ctx context.Context, src string, onTraversal OnTraversal) ([]ExecResult, error) {
	cmds, err := ucl.Parse(src)
	if err != nil {
		return nil, err
	}
	return e.executeCommands(ctx, cmds, onTraversal)
}

func (e *Engine) executeCommands(ctx context.Context, cmds []ucl.Command, onTraversal OnTraversal) ([]ExecResult, error) {
	results := make([]ExecResult, 0, len(cmds))
	for _, cmd := range cmds {
		res, err := e.executeOne(ctx, cmd, onTraversal)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (e *Engine) executeOne(ctx context.Context, cmd ucl.Command, onTraversal OnTraversal) (ExecResult, error) {
	// DELETE WHERE has no Operation of its own (§4.4): it resolves to
	// the same matched-set-then-cascade walk PRUNE WHERE performs, so it
	// is rebased onto OpPrune rather than duplicating that walk here.
	if dc, ok := cmd.(ucl.DeleteCommand); ok && dc.Where != nil {
		res, err := e.Execute(ctx, Operation{Kind: OpPrune, Prune: &PruneOp{Where: dc.Where}})
		return ExecResult{Command: cmd, Op: &res}, err
	}

	// APPEND goes through appendToAddOp directly rather than FromCommand
	// so an unsupported content type surfaces its real *ucerr.Error
	// instead of FromCommand's bare ok=false.
	if ac, ok := cmd.(ucl.AppendCommand); ok {
		add, err := appendToAddOp(ac)
		if err != nil {
			return ExecResult{}, err
		}
		res, err := e.Execute(ctx, Operation{Kind: OpAdd, Add: add})
		return ExecResult{Command: cmd, Op: &res}, err
	}

	switch c := cmd.(type) {
	case ucl.AtomicCommand:
		if err := e.Begin(ctx, ""); err != nil {
			return ExecResult{}, err
		}
		if _, err := e.executeCommands(ctx, c.Body, onTraversal); err != nil {
			_ = e.Rollback(ctx, "")
			return ExecResult{}, err
		}
		if err := e.Commit(ctx, ""); err != nil {
			return ExecResult{}, err
		}
		return ExecResult{Command: cmd}, nil

	case ucl.TransactionCommand:
		switch c.Action {
		case ucl.TxBegin:
			return ExecResult{Command: cmd}, e.Begin(ctx, c.Name)
		case ucl.TxCommit:
			return ExecResult{Command: cmd}, e.Commit(ctx, c.Name)
		case ucl.TxRollback:
			if c.Savepoint != "" {
				return ExecResult{Command: cmd}, e.RollbackTo(ctx, c.Savepoint)
			}
			return ExecResult{Command: cmd}, e.Rollback(ctx, c.Name)
		case ucl.TxSavepoint:
			return ExecResult{Command: cmd}, e.Savepoint(ctx, c.Name)
		}

	case ucl.SnapshotCommand:
		switch c.Action {
		case ucl.SnapshotCreate:
			id, err := e.SnapshotCreate(ctx, c.Name)
			return ExecResult{Command: cmd, SnapshotID: id}, err
		case ucl.SnapshotRestore:
			return ExecResult{Command: cmd}, e.SnapshotRestore(ctx, c.Name)
		case ucl.SnapshotList:
			return ExecResult{Command: cmd, Snapshots: e.SnapshotList()}, nil
		case ucl.SnapshotDelete:
			return ExecResult{Command: cmd}, e.SnapshotDelete(ctx, c.Name)
		}
	}

	if op, ok := FromCommand(cmd); ok {
		res, err := e.Execute(ctx, op)
		return ExecResult{Command: cmd, Op: &res}, err
	}

	if onTraversal != nil {
		val, err := onTraversal(ctx, cmd)
		return ExecResult{Command: cmd, Traversal: val}, err
	}

	return ExecResult{}, ucerr.New(ucerr.KindSyntax, ucerr.CodeMalformedCommand, fmt.Sprintf("no handler for command %T", cmd))
}
