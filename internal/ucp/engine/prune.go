package engine

import (
	"sort"

	"github.com/arthur-debert/ucp/internal/ucp/document"
	"github.com/arthur-debert/ucp/internal/ucp/ids"
	"github.com/arthur-debert/ucp/internal/ucp/ucl"
)

// applyPrune implements PRUNE UNREACHABLE and PRUNE WHERE. Reachability
// is computed by walking structure edges only from the root, not
// semantic edges — the stricter of the two readings the grammar leaves
// open, chosen because a block with no structural path to the root has
// no place to be rendered regardless of what it is linked from (see
// DESIGN.md).
func (e *Engine) applyPrune(op *PruneOp) (Result, error) {
	var targets []ids.BlockId
	if op.Unreachable {
		targets = append(targets, e.unreachableBlocks()...)
	}
	if op.Where != nil {
		matched, err := e.matchingBlocks(op.Where)
		if err != nil {
			return Result{}, err
		}
		targets = append(targets, matched...)
	}
	targets = dedupeBlockIDs(targets)

	if op.DryRun {
		return Result{Kind: OpPrune, RemovedIDs: targets, NewVersion: e.Doc.Version}, nil
	}

	var removed []ids.BlockId
	for _, id := range targets {
		if id == e.Doc.Root {
			continue
		}
		if _, ok := e.Doc.Blocks[id]; !ok {
			continue // already swept by an earlier target's cascade
		}
		r, err := e.Doc.DeleteBlock(id, document.DeleteCascade)
		if err != nil {
			return Result{}, err
		}
		removed = append(removed, r...)
	}
	return Result{Kind: OpPrune, RemovedIDs: removed, NewVersion: e.Doc.Version}, nil
}

func (e *Engine) unreachableBlocks() []ids.BlockId {
	reachable := map[ids.BlockId]bool{e.Doc.Root: true}
	queue := []ids.BlockId{e.Doc.Root}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, c := range e.Doc.Structure[id] {
			if !reachable[c] {
				reachable[c] = true
				queue = append(queue, c)
			}
		}
	}
	var out []ids.BlockId
	for id := range e.Doc.Blocks {
		if !reachable[id] {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (e *Engine) matchingBlocks(cond ucl.Condition) ([]ids.BlockId, error) {
	var out []ids.BlockId
	for id, b := range e.Doc.Blocks {
		if id == e.Doc.Root {
			continue
		}
		ok, err := evaluateCondition(cond, b)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func dedupeBlockIDs(in []ids.BlockId) []ids.BlockId {
	seen := make(map[ids.BlockId]bool, len(in))
	out := make([]ids.BlockId, 0, len(in))
	for _, id := range in {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
