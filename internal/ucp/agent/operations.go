package agent

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	"github.com/arthur-debert/ucp/internal/ucp/content"
	"github.com/arthur-debert/ucp/internal/ucp/document"
	"github.com/arthur-debert/ucp/internal/ucp/events"
	"github.com/arthur-debert/ucp/internal/ucp/ids"
	"github.com/arthur-debert/ucp/internal/ucp/ucerr"
)

// Direction selects which relation expand walks from a block (§4.6.3).
type Direction string

const (
	DirDown     Direction = "down"
	DirUp       Direction = "up"
	DirBoth     Direction = "both"
	DirSemantic Direction = "semantic"
)

// NavigateResult is navigate_to's return shape: the new position and
// whether the neighborhood was invalidated (always true on success).
type NavigateResult struct {
	Position ids.BlockId
	Refresh  bool
}

// NavigateTo moves the cursor to target, pushing the current position
// onto history (§4.6.3).
func (s *Session) NavigateTo(ctx context.Context, target ids.BlockId) (NavigateResult, error) {
	if err := s.requireActive(); err != nil {
		return NavigateResult{}, err
	}
	if err := s.checkGlobalRate(); err != nil {
		return NavigateResult{}, err
	}
	s.Doc.RLock()
	_, ok := s.Doc.GetBlock(target)
	s.Doc.RUnlock()
	if !ok {
		return NavigateResult{}, ucerr.NotFound(string(target))
	}
	s.touch()
	s.mu.Lock()
	s.history.push(s.cursor)
	s.cursor = target
	s.invalidateNeighborhood()
	s.mu.Unlock()
	s.Metrics.incr(&s.Metrics.TraversalOps)
	s.events.Emit(ctx, events.KindSessionNav, "navigate_to", "session", string(s.ID), "target", string(target))
	return NavigateResult{Position: target, Refresh: true}, nil
}

// GoBack pops steps entries from history (min 1), failing with
// EmptyHistory when exhausted (§4.6.3).
func (s *Session) GoBack(ctx context.Context, steps int) (NavigateResult, error) {
	if err := s.requireActive(); err != nil {
		return NavigateResult{}, err
	}
	if err := s.checkGlobalRate(); err != nil {
		return NavigateResult{}, err
	}
	s.touch()
	s.mu.Lock()
	prev, err := s.history.pop(steps)
	if err != nil {
		s.mu.Unlock()
		return NavigateResult{}, err
	}
	s.cursor = prev
	s.invalidateNeighborhood()
	s.mu.Unlock()
	s.Metrics.incr(&s.Metrics.TraversalOps)
	s.events.Emit(ctx, events.KindSessionNav, "go_back", "session", string(s.ID), "position", string(prev))
	return NavigateResult{Position: prev, Refresh: true}, nil
}

// ExpandOptions tunes one expand call (§4.6.3).
type ExpandOptions struct {
	Depth              int
	PermittedEdgeTypes []document.EdgeType
	Roles              []string
	Tags               []string
}

// ExpandLevel is one BFS ring of expand's result.
type ExpandLevel struct {
	Level  int
	Blocks []ids.BlockId
}

// Expand performs a bounded BFS from block in the given direction,
// filtered by role/tag, grouped per level (§4.6.3).
func (s *Session) Expand(ctx context.Context, block ids.BlockId, direction Direction, opts ExpandOptions) ([]ExpandLevel, error) {
	if err := s.requireActive(); err != nil {
		return nil, err
	}
	if !s.Caps.Bits.Has(CapTraverse) {
		return nil, ucerr.New(ucerr.KindPermission, codeCapabilityMissing, "session lacks the traverse capability")
	}
	if err := s.checkGlobalRate(); err != nil {
		return nil, err
	}
	limit := s.Caps.MaxExpandDepth
	if s.Limits.MaxExpandDepth > 0 && (limit == 0 || s.Limits.MaxExpandDepth < limit) {
		limit = s.Limits.MaxExpandDepth
	}
	if limit > 0 && opts.Depth > limit {
		return nil, ucerr.New(ucerr.KindSafety, ucerr.CodeDepthLimitExceeded,
			fmt.Sprintf("requested depth %d exceeds session max_expand_depth %d", opts.Depth, limit))
	}
	release, err := s.depthGuard.Acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	if err := s.budget.spendTraversal(); err != nil {
		return nil, err
	}

	s.Doc.RLock()
	defer s.Doc.RUnlock()
	if _, ok := s.Doc.GetBlock(block); !ok {
		return nil, ucerr.NotFound(string(block))
	}

	levels := expandBFS(s.Doc, block, direction, opts)
	levels = filterLevels(s.Doc, levels, opts.Roles, opts.Tags)

	s.touch()
	s.Metrics.incr(&s.Metrics.TraversalOps)
	s.events.Emit(ctx, events.KindSessionNav, "expand", "session", string(s.ID), "block", string(block), "direction", string(direction))
	return levels, nil
}

func expandBFS(doc *document.Document, start ids.BlockId, direction Direction, opts ExpandOptions) []ExpandLevel {
	visited := map[ids.BlockId]bool{start: true}
	frontier := []ids.BlockId{start}
	var levels []ExpandLevel
	for level := 1; (opts.Depth == 0 || level <= opts.Depth) && len(frontier) > 0; level++ {
		var next []ids.BlockId
		for _, id := range frontier {
			for _, n := range neighbors(doc, id, direction, opts.PermittedEdgeTypes) {
				if !visited[n] {
					visited[n] = true
					next = append(next, n)
				}
			}
		}
		if len(next) == 0 {
			break
		}
		levels = append(levels, ExpandLevel{Level: level, Blocks: next})
		frontier = next
	}
	return levels
}

func neighbors(doc *document.Document, id ids.BlockId, direction Direction, permitted []document.EdgeType) []ids.BlockId {
	var out []ids.BlockId
	switch direction {
	case DirDown:
		out = append(out, doc.Children(id)...)
	case DirUp:
		if p, ok := doc.Parent(id); ok {
			out = append(out, p)
		}
	case DirBoth:
		out = append(out, doc.Children(id)...)
		if p, ok := doc.Parent(id); ok {
			out = append(out, p)
		}
	case DirSemantic:
		b, ok := doc.GetBlock(id)
		if !ok {
			return nil
		}
		for _, e := range b.Edges {
			if edgePermitted(permitted, e.Type) {
				out = append(out, e.Target)
			}
		}
	}
	return out
}

func edgePermitted(permitted []document.EdgeType, t document.EdgeType) bool {
	if len(permitted) == 0 {
		return true
	}
	for _, p := range permitted {
		if p == t {
			return true
		}
	}
	return false
}

func filterLevels(doc *document.Document, levels []ExpandLevel, roles, tags []string) []ExpandLevel {
	if len(roles) == 0 && len(tags) == 0 {
		return levels
	}
	out := make([]ExpandLevel, 0, len(levels))
	for _, lvl := range levels {
		var kept []ids.BlockId
		for _, id := range lvl.Blocks {
			b, ok := doc.GetBlock(id)
			if !ok {
				continue
			}
			if len(roles) > 0 && !hasRole(b, roles) {
				continue
			}
			if len(tags) > 0 && !hasAnyTag(b, tags) {
				continue
			}
			kept = append(kept, id)
		}
		if len(kept) > 0 {
			out = append(out, ExpandLevel{Level: lvl.Level, Blocks: kept})
		}
	}
	return out
}

func hasRole(b *document.Block, roles []string) bool {
	if b.Metadata.Role == nil {
		return false
	}
	for _, r := range roles {
		if b.Metadata.Role.Category == r || b.Metadata.Role.Subrole == r {
			return true
		}
	}
	return false
}

func hasAnyTag(b *document.Block, tags []string) bool {
	for _, t := range tags {
		if _, ok := b.Metadata.Tags[t]; ok {
			return true
		}
	}
	return false
}

// FindQuery parameterizes find_by_pattern (§4.6.3).
type FindQuery struct {
	Role    string
	Tag     string
	Tags    []string
	Label   string
	Pattern string
}

// FindByPattern scans every block against the query's filters, applying
// Pattern as a regex over textual content. It performs no network
// calls and never mutates.
func (s *Session) FindByPattern(ctx context.Context, q FindQuery) ([]ids.BlockId, error) {
	if err := s.requireActive(); err != nil {
		return nil, err
	}
	if err := s.checkGlobalRate(); err != nil {
		return nil, err
	}
	var re *regexp.Regexp
	if q.Pattern != "" {
		var err error
		re, err = regexp.Compile(q.Pattern)
		if err != nil {
			return nil, ucerr.Wrap(ucerr.KindSyntax, ucerr.CodeMalformedCommand, "invalid find pattern", err)
		}
	}

	s.Doc.RLock()
	var matches []ids.BlockId
	for id, b := range s.Doc.Blocks {
		if q.Role != "" && !hasRole(b, []string{q.Role}) {
			continue
		}
		if q.Label != "" {
			if !b.Metadata.HasLabel || b.Metadata.Label != q.Label {
				continue
			}
		}
		if q.Tag != "" {
			if _, ok := b.Metadata.Tags[q.Tag]; !ok {
				continue
			}
		}
		if len(q.Tags) > 0 && !hasAllTags(b, q.Tags) {
			continue
		}
		if re != nil && !re.MatchString(textOf(b.Content)) {
			continue
		}
		matches = append(matches, id)
	}
	s.Doc.RUnlock()
	sort.Slice(matches, func(i, j int) bool { return matches[i] < matches[j] })

	s.touch()
	s.Metrics.incr(&s.Metrics.TraversalOps)
	s.lastSearchMu(matches)
	s.events.Emit(ctx, events.KindSessionNav, "find_by_pattern", "session", string(s.ID), "count", len(matches))
	return matches, nil
}

func hasAllTags(b *document.Block, tags []string) bool {
	for _, t := range tags {
		if _, ok := b.Metadata.Tags[t]; !ok {
			return false
		}
	}
	return true
}

func (s *Session) lastSearchMu(ids2 []ids.BlockId) {
	s.mu.Lock()
	s.lastSearch = ids2
	s.hasSearch = true
	s.mu.Unlock()
}

// textOf extracts the best-effort plain text of a content value for
// pattern matching (§4.6.3 "pattern is a regex applied to textual content").
func textOf(c content.Content) string {
	switch v := c.(type) {
	case content.Text:
		return v.Text
	case content.Code:
		return v.Source
	case content.Math:
		return v.Expression
	default:
		if c == nil {
			return ""
		}
		return string(c.Canonicalize())
	}
}

// ViewMode selects how much of a block view_block returns (§4.6.3).
type ViewMode string

const (
	ViewIDsOnly  ViewMode = "ids_only"
	ViewMetadata ViewMode = "metadata"
	ViewPreview  ViewMode = "preview"
	ViewFull     ViewMode = "full"
	ViewAdaptive ViewMode = "adaptive"
)

// View is what view_block/view_neighborhood return: never a mutation.
type View struct {
	Block    ids.BlockId
	Mode     ViewMode
	Text     string
	Metadata *document.Metadata
}

// ViewBlock renders id under mode, choosing Preview vs Full internally
// when mode is Adaptive, based on block size against the session's
// token-hint budget (§4.6.3).
func (s *Session) ViewBlock(ctx context.Context, id ids.BlockId, mode ViewMode, previewLen int) (View, error) {
	if err := s.requireActive(); err != nil {
		return View{}, err
	}
	if err := s.checkGlobalRate(); err != nil {
		return View{}, err
	}
	if err := s.budget.spendRead(); err != nil {
		return View{}, err
	}
	s.Doc.RLock()
	b, ok := s.Doc.GetBlock(id)
	s.Doc.RUnlock()
	if !ok {
		return View{}, ucerr.NotFound(string(id))
	}

	effective := mode
	if mode == ViewAdaptive {
		text := textOf(b.Content)
		if s.Limits.MaxTokensHint > 0 && len(text) > s.Limits.MaxTokensHint*4 {
			effective = ViewPreview
		} else {
			effective = ViewFull
		}
	}

	view := View{Block: id, Mode: effective}
	switch effective {
	case ViewIDsOnly:
		// text/metadata intentionally omitted
	case ViewMetadata:
		m := b.Metadata.Clone()
		view.Metadata = &m
	case ViewPreview:
		text := textOf(b.Content)
		if previewLen <= 0 {
			previewLen = 200
		}
		if len(text) > previewLen {
			text = text[:previewLen]
		}
		view.Text = text
	case ViewFull:
		view.Text = textOf(b.Content)
		m := b.Metadata.Clone()
		view.Metadata = &m
	}

	s.touch()
	s.Metrics.incr(&s.Metrics.BlocksRead)
	return view, nil
}

// ViewNeighborhood returns the cached neighborhood as a View-shaped
// result alongside the raw Neighborhood for callers that want both.
func (s *Session) ViewNeighborhood(ctx context.Context) (Neighborhood, error) {
	if err := s.requireActive(); err != nil {
		return Neighborhood{}, err
	}
	s.touch()
	return s.Neighborhood()
}

// FindPath runs BFS over the undirected union of structure and typed
// edges, returning the shortest inclusive block-id path (§4.6.3).
func (s *Session) FindPath(ctx context.Context, from, to ids.BlockId, maxLength int) ([]ids.BlockId, error) {
	if err := s.requireActive(); err != nil {
		return nil, err
	}
	if err := s.checkGlobalRate(); err != nil {
		return nil, err
	}
	release, err := s.depthGuard.Acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	if err := s.budget.spendTraversal(); err != nil {
		return nil, err
	}

	s.Doc.RLock()
	defer s.Doc.RUnlock()
	if _, ok := s.Doc.GetBlock(from); !ok {
		return nil, ucerr.NotFound(string(from))
	}
	if _, ok := s.Doc.GetBlock(to); !ok {
		return nil, ucerr.NotFound(string(to))
	}

	path, found := bfsPath(s.Doc, from, to, maxLength)
	if !found {
		return nil, ucerr.New(ucerr.KindSafety, ucerr.CodeNoPath, "no path found within bound")
	}

	s.touch()
	s.Metrics.incr(&s.Metrics.TraversalOps)
	s.events.Emit(ctx, events.KindSessionNav, "find_path", "session", string(s.ID), "from", string(from), "to", string(to))
	return path, nil
}

func bfsPath(doc *document.Document, from, to ids.BlockId, maxLength int) ([]ids.BlockId, bool) {
	if from == to {
		return []ids.BlockId{from}, true
	}
	type queued struct {
		id    ids.BlockId
		depth int
	}
	parent := map[ids.BlockId]ids.BlockId{from: from}
	queue := []queued{{id: from, depth: 0}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if maxLength > 0 && cur.depth >= maxLength {
			continue
		}
		for _, n := range undirectedNeighbors(doc, cur.id) {
			if _, seen := parent[n]; seen {
				continue
			}
			parent[n] = cur.id
			if n == to {
				return reconstructPath(parent, from, to), true
			}
			queue = append(queue, queued{id: n, depth: cur.depth + 1})
		}
	}
	return nil, false
}

func reconstructPath(parent map[ids.BlockId]ids.BlockId, from, to ids.BlockId) []ids.BlockId {
	var rev []ids.BlockId
	for cur := to; ; {
		rev = append(rev, cur)
		if cur == from {
			break
		}
		cur = parent[cur]
	}
	out := make([]ids.BlockId, len(rev))
	for i, id := range rev {
		out[len(rev)-1-i] = id
	}
	return out
}

func undirectedNeighbors(doc *document.Document, id ids.BlockId) []ids.BlockId {
	var out []ids.BlockId
	out = append(out, doc.Children(id)...)
	if p, ok := doc.Parent(id); ok {
		out = append(out, p)
	}
	if b, ok := doc.GetBlock(id); ok {
		for _, e := range b.Edges {
			out = append(out, e.Target)
		}
	}
	if in, ok := doc.EdgeIndex.In[id]; ok {
		for _, targets := range in {
			for t := range targets {
				out = append(out, t)
			}
		}
	}
	return out
}
