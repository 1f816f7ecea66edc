package agent

import (
	"context"

	"github.com/arthur-debert/ucp/internal/ucp/agent/search"
	"github.com/arthur-debert/ucp/internal/ucp/document"
	"github.com/arthur-debert/ucp/internal/ucp/ids"
	"github.com/arthur-debert/ucp/internal/ucp/ucerr"
	"github.com/arthur-debert/ucp/internal/ucp/ucl"
)

// DispatchResult is the envelope a UCL traversal or CTX command
// resolves to — exactly one field is populated, selected by Kind
// (§6.5 "Operation-Result Envelope ... plus an event_kind discriminator").
type DispatchResult struct {
	Kind          string
	Navigate      *NavigateResult
	ExpandLevels  []ExpandLevel
	Found         []ids.BlockId
	Path          []ids.BlockId
	View          *View
	Neighborhood  *Neighborhood
	SearchResults []search.Result
	ContextIDs    []ids.BlockId
}

// Dispatch routes one parsed UCL traversal/CTX command to this
// session, the counterpart to engine.FromCommand for commands that are
// session-scoped rather than document mutations (§4.6.6). ok is false
// for any command Dispatch does not recognize, mirroring FromCommand's
// contract.
func (s *Session) Dispatch(ctx context.Context, mgr *Manager, cmd ucl.Command) (DispatchResult, bool, error) {
	switch c := cmd.(type) {
	case ucl.GotoCommand:
		r, err := s.NavigateTo(ctx, ids.BlockId(c.Target))
		return DispatchResult{Kind: "navigate", Navigate: &r}, true, err

	case ucl.BackCommand:
		steps := c.Steps
		if steps == 0 {
			steps = 1
		}
		r, err := s.GoBack(ctx, steps)
		return DispatchResult{Kind: "navigate", Navigate: &r}, true, err

	case ucl.ExpandCommand:
		opts := ExpandOptions{Roles: c.Roles, Tags: c.Tags}
		if c.HasDepth {
			opts.Depth = c.Depth
		}
		levels, err := s.Expand(ctx, ids.BlockId(c.Block), mapDirection(c.Direction), opts)
		return DispatchResult{Kind: "expand", ExpandLevels: levels}, true, err

	case ucl.FollowCommand:
		r, err := s.follow(ctx, c)
		return DispatchResult{Kind: "navigate", Navigate: &r}, true, err

	case ucl.PathCommand:
		max := 0
		if c.HasMax {
			max = c.Max
		}
		path, err := s.FindPath(ctx, ids.BlockId(c.From), ids.BlockId(c.To), max)
		return DispatchResult{Kind: "path", Path: path}, true, err

	case ucl.SearchCommand:
		opts := search.Options{}
		if c.HasLimit {
			opts.Limit = c.Limit
		}
		if c.HasMinSim {
			opts.MinSimilarity = c.MinSimilarity
		}
		results, err := s.Search(ctx, c.Query, opts)
		return DispatchResult{Kind: "search", SearchResults: results}, true, err

	case ucl.FindCommand:
		q := FindQuery{Role: c.Role, Tag: c.Tag, Tags: c.Tags, Label: c.Label, Pattern: c.Pattern}
		found, err := s.FindByPattern(ctx, q)
		return DispatchResult{Kind: "find", Found: found}, true, err

	case ucl.ViewCommand:
		return s.dispatchView(ctx, c)

	case ucl.CtxCommand:
		return s.dispatchCtx(ctx, mgr, c)
	}
	return DispatchResult{}, false, nil
}

func (s *Session) follow(ctx context.Context, c ucl.FollowCommand) (NavigateResult, error) {
	s.Doc.RLock()
	b, ok := s.Doc.GetBlock(ids.BlockId(c.Block))
	if !ok {
		s.Doc.RUnlock()
		return NavigateResult{}, ucerr.NotFound(c.Block)
	}
	edgeType := document.EdgeType(c.EdgeType)
	if !s.Caps.edgePermitted(edgeType) {
		s.Doc.RUnlock()
		return NavigateResult{}, ucerr.New(ucerr.KindPermission, codeCapabilityMissing, "session capabilities do not permit following "+string(edgeType)+" edges")
	}
	var target ids.BlockId
	found := false
	for _, e := range b.Edges {
		if e.Type != edgeType {
			continue
		}
		if c.HasTarget && string(e.Target) != c.Target {
			continue
		}
		target = e.Target
		found = true
		break
	}
	s.Doc.RUnlock()
	if !found {
		return NavigateResult{}, ucerr.New(ucerr.KindNotFound, ucerr.CodeBlockNotFound, "no matching edge to follow")
	}
	return s.NavigateTo(ctx, target)
}

func (s *Session) dispatchView(ctx context.Context, c ucl.ViewCommand) (DispatchResult, bool, error) {
	if c.Target == ucl.ViewNeighborhood {
		n, err := s.ViewNeighborhood(ctx)
		return DispatchResult{Kind: "view_neighborhood", Neighborhood: &n}, true, err
	}
	mode := ViewMode(c.Mode)
	if mode == "" {
		mode = ViewAdaptive
	}
	previewLen := 0
	if c.HasDepth {
		previewLen = c.Depth
	}
	v, err := s.ViewBlock(ctx, ids.BlockId(c.Block), mode, previewLen)
	return DispatchResult{Kind: "view_block", View: &v}, true, err
}

func (s *Session) dispatchCtx(ctx context.Context, mgr *Manager, c ucl.CtxCommand) (DispatchResult, bool, error) {
	switch c.Action {
	case ucl.CtxAdd:
		err := s.ContextAdd(ctx, mgr, ids.BlockId(c.Block), c.Reason, c.Relevance, c.HasRel)
		return DispatchResult{Kind: "context_add"}, true, err
	case ucl.CtxRemove:
		err := s.ContextRemove(ctx, mgr, ids.BlockId(c.Block))
		return DispatchResult{Kind: "context_remove"}, true, err
	case ucl.CtxClear:
		err := s.ContextClear(ctx, mgr)
		return DispatchResult{Kind: "context_clear"}, true, err
	case ucl.CtxFocus:
		var blockPtr *ids.BlockId
		if c.HasBlock {
			b := ids.BlockId(c.Block)
			blockPtr = &b
		}
		err := s.ContextFocus(ctx, blockPtr)
		return DispatchResult{Kind: "context_focus"}, true, err
	case ucl.CtxAddResults:
		ids2, err := s.ContextAddResults(ctx, mgr)
		return DispatchResult{Kind: "context_add_results", ContextIDs: ids2}, true, err
	}
	// RENDER/STATS/COMPRESS/PRUNE are supplemental context-buffer
	// management commands outside the core event-only contract (§9);
	// they are not yet bound to a concrete external store.
	return DispatchResult{}, false, nil
}

func mapDirection(d ucl.Direction) Direction {
	switch d {
	case ucl.DirDown:
		return DirDown
	case ucl.DirUp:
		return DirUp
	case ucl.DirBoth:
		return DirBoth
	case ucl.DirSemantic:
		return DirSemantic
	}
	return DirDown
}
