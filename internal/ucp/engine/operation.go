// Package engine implements the transformation engine (§5): single and
// batched operation execution, transactions with savepoints, the
// snapshot register, and WriteSection's markdown-graft operation. It is
// the only package that mutates a document outside of direct, unguarded
// calls to the document package — every path here goes through
// execute(), which takes the document's exclusive lock for the
// operation's duration and fires one observability event per call.
package engine

import (
	"github.com/arthur-debert/ucp/internal/ucp/content"
	"github.com/arthur-debert/ucp/internal/ucp/document"
	"github.com/arthur-debert/ucp/internal/ucp/ids"
	"github.com/arthur-debert/ucp/internal/ucp/ucl"
)

// Operation is a tagged variant over every mutation the engine accepts,
// built either directly by a caller or translated from a parsed UCL
// ucl.Command (§4.4 ↔ §5 boundary).
type Operation struct {
	Kind    OpKind
	Add     *AddOp
	Edit    *EditOp
	Move    *MoveOp
	Delete  *DeleteOp
	Link    *LinkOp
	Unlink  *UnlinkOp
	Prune   *PruneOp
	Fold    *FoldOp
}

type OpKind string

const (
	OpAdd    OpKind = "add_block"
	OpEdit   OpKind = "edit_block"
	OpMove   OpKind = "move_block"
	OpDelete OpKind = "delete_block"
	OpLink   OpKind = "add_edge"
	OpUnlink OpKind = "remove_edge"
	OpPrune  OpKind = "prune"
	OpFold   OpKind = "fold"

	OpWriteSection OpKind = "write_section"
)

type AddOp struct {
	Parent   ids.BlockId
	Content  content.Content
	Role     *document.SemanticRole
	Metadata document.Metadata
}

type EditOp struct {
	Block ids.BlockId
	Patch document.Patch
}

type MoveOp struct {
	Block ids.BlockId
	Dest  document.MoveDestination
}

type DeleteOp struct {
	Block ids.BlockId
	Mode  document.DeleteMode
}

type LinkOp struct {
	Source, Target ids.BlockId
	Type            document.EdgeType
	Metadata        map[string]any
}

type UnlinkOp struct {
	Source, Target ids.BlockId
	Type            document.EdgeType
}

// PruneOp removes every block matched by Unreachable and/or Where.
// DryRun reports the match set in Result.RemovedIDs without mutating
// the document.
type PruneOp struct {
	Unreachable bool
	Where       ucl.Condition
	DryRun      bool
}

// FoldOp collapses Block's immediate children under one new composite
// wrapper (see fold.go).
type FoldOp struct {
	Block ids.BlockId
}

// Result is what execute() returns for one operation: the ids it
// created or removed, if any, so batch callers and UCL's engine binding
// can report back without re-deriving them from document state.
type Result struct {
	Kind        OpKind
	CreatedID   ids.BlockId
	RemovedIDs  []ids.BlockId
	NewVersion  uint64
}

// FromCommand translates one parsed UCL command into zero or more
// engine Operations. Traversal and CTX commands have no Operation
// counterpart — they are routed to the agent package by the caller
// instead (§4.6.6 documents them as session-scoped, not document
// mutations) and FromCommand returns ok=false for them.
func FromCommand(cmd ucl.Command) (Operation, bool) {
	switch c := cmd.(type) {
	case ucl.AppendCommand:
		// A content-type/body mismatch (e.g. an unsupported APPEND type)
		// reports ok=false here; ExecuteUcl calls appendToAddOp directly
		// when it needs the underlying *ucerr.Error instead of a bare bool.
		add, err := appendToAddOp(c)
		if err != nil {
			return Operation{}, false
		}
		return Operation{Kind: OpAdd, Add: add}, true
	case ucl.EditCommand:
		return Operation{Kind: OpEdit, Edit: &EditOp{
			Block: ids.BlockId(c.Block),
			Patch: document.Patch{Path: c.Path, Op: c.Op, Value: c.Value},
		}}, true
	case ucl.MoveCommand:
		dest := document.MoveDestination{Sibling: ids.BlockId(c.Sibling)}
		switch c.Kind {
		case ucl.MoveTo:
			dest.Kind = document.MoveTo
			dest.Parent = ids.BlockId(c.Parent)
			dest.Index = c.Index
		case ucl.MoveBefore:
			dest.Kind = document.MoveBefore
		case ucl.MoveAfter:
			dest.Kind = document.MoveAfter
		}
		return Operation{Kind: OpMove, Move: &MoveOp{Block: ids.BlockId(c.Block), Dest: dest}}, true
	case ucl.DeleteCommand:
		if c.Where != nil {
			return Operation{}, false // executeOne resolves DELETE WHERE to a single OpPrune cascade over the matched blocks
		}
		mode := document.DeleteCascade
		if c.Mode == ucl.DeletePreserveChildren {
			mode = document.DeletePreserveChildren
		}
		return Operation{Kind: OpDelete, Delete: &DeleteOp{Block: ids.BlockId(c.Block), Mode: mode}}, true
	case ucl.LinkCommand:
		return Operation{Kind: OpLink, Link: &LinkOp{
			Source: ids.BlockId(c.Source), Target: ids.BlockId(c.Target),
			Type: document.EdgeType(c.EdgeType), Metadata: propsToAny(c.Props),
		}}, true
	case ucl.UnlinkCommand:
		return Operation{Kind: OpUnlink, Unlink: &UnlinkOp{
			Source: ids.BlockId(c.Source), Target: ids.BlockId(c.Target), Type: document.EdgeType(c.EdgeType),
		}}, true
	case ucl.PruneCommand:
		return Operation{Kind: OpPrune, Prune: &PruneOp{Unreachable: c.Unreachable, Where: c.Where, DryRun: c.DryRun}}, true
	}
	return Operation{}, false
}

func propsToAny(props map[string]string) map[string]any {
	if len(props) == 0 {
		return nil
	}
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out
}
