package engine

import (
	"github.com/arthur-debert/ucp/internal/ucp/content"
	"github.com/arthur-debert/ucp/internal/ucp/document"
	"github.com/arthur-debert/ucp/internal/ucp/ids"
	"github.com/arthur-debert/ucp/internal/ucp/ucerr"
)

// applyFold collapses op.Block's immediate children under one new
// composite wrapper, so a caller that wants to address a cluster of
// siblings as a single unit gets one child id instead of N. Fold is
// named among the operation variants without a grammar production or
// semantics of its own; this is the chosen, documented interpretation
// — see DESIGN.md. Folding never drops content: every original child
// survives, reparented under the wrapper in its original order.
func (e *Engine) applyFold(op *FoldOp) (Result, error) {
	children := append([]ids.BlockId(nil), e.Doc.Structure[op.Block]...)
	if len(children) < 2 {
		return Result{}, ucerr.New(ucerr.KindValidation, ucerr.CodeMalformedCommand, "fold requires at least two children to collapse").WithBlock(string(op.Block))
	}

	refs := make([]string, len(children))
	for i, c := range children {
		refs[i] = string(c)
	}
	wrapper := content.Composite{Layout: content.LayoutVertical, Children: refs}
	wrapperID, err := e.Doc.AddBlock(op.Block, wrapper, nil, document.NewMetadata())
	if err != nil {
		return Result{}, err
	}
	for _, c := range children {
		dest := document.MoveDestination{Kind: document.MoveTo, Parent: wrapperID}
		if err := e.Doc.MoveBlock(c, dest); err != nil {
			return Result{}, err
		}
	}
	return Result{Kind: OpFold, CreatedID: wrapperID, NewVersion: e.Doc.Version}, nil
}
