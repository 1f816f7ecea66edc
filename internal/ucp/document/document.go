// Package document implements the UCP content model: blocks, typed edges,
// and the hierarchical document tree with its four secondary indices
// (§3.3-3.5, §4.2). It never embeds owning pointers between blocks —
// structure and edges are both flat index structures over a `blocks` map,
// so cyclic references through edges coexist safely with an acyclic
// structure tree (§9 "Cyclic references").
package document

import (
	"sync"

	"github.com/arthur-debert/ucp/internal/ucp/content"
	"github.com/arthur-debert/ucp/internal/ucp/ids"
)

// SemanticRole is a block's optional category + freeform subrole.
type SemanticRole struct {
	Category string
	Subrole  string
}

// Metadata carries everything about a block besides its content and edges.
type Metadata struct {
	Label         string
	HasLabel      bool
	Role          *SemanticRole
	Tags          map[string]struct{}
	ContentHash   [32]byte
	HasHash       bool
	TokenEstimate int
	Custom        map[string]any
}

// NewMetadata returns a Metadata with initialized maps.
func NewMetadata() Metadata {
	return Metadata{Tags: map[string]struct{}{}, Custom: map[string]any{}}
}

// Clone returns a deep copy of m.
func (m Metadata) Clone() Metadata {
	out := m
	out.Tags = make(map[string]struct{}, len(m.Tags))
	for k := range m.Tags {
		out.Tags[k] = struct{}{}
	}
	out.Custom = make(map[string]any, len(m.Custom))
	for k, v := range m.Custom {
		out.Custom[k] = v
	}
	if m.Role != nil {
		r := *m.Role
		out.Role = &r
	}
	return out
}

func (m Metadata) TagList() []string {
	out := make([]string, 0, len(m.Tags))
	for t := range m.Tags {
		out = append(out, t)
	}
	return out
}

// EdgeType is a typed directed relation between two blocks (§3.4).
type EdgeType string

const (
	EdgeDerivedFrom   EdgeType = "derived_from"
	EdgeSupersedes    EdgeType = "supersedes"
	EdgeReferences    EdgeType = "references"
	EdgeCitedBy       EdgeType = "cited_by"
	EdgeSupports      EdgeType = "supports"
	EdgeContradicts   EdgeType = "contradicts"
	EdgeElaborates    EdgeType = "elaborates"
	EdgeSummarizes    EdgeType = "summarizes"
	EdgeParentOf      EdgeType = "parent_of"
	EdgeChildOf       EdgeType = "child_of"
	EdgeVersionOf     EdgeType = "version_of"
	EdgeTranslationOf EdgeType = "translation_of"
	EdgeLinksTo       EdgeType = "links_to"
)

// CustomEdgeType builds the custom(name) edge variant.
func CustomEdgeType(name string) EdgeType { return EdgeType("custom:" + name) }

var inverseEdge = map[EdgeType]EdgeType{
	EdgeDerivedFrom: EdgeSupersedes,
	EdgeSupersedes:  EdgeDerivedFrom,
	EdgeReferences:  EdgeCitedBy,
	EdgeCitedBy:     EdgeReferences,
	EdgeParentOf:    EdgeChildOf,
	EdgeChildOf:     EdgeParentOf,
}

// InverseEdgeType returns the semantic inverse of t, if one is defined.
func InverseEdgeType(t EdgeType) (EdgeType, bool) {
	inv, ok := inverseEdge[t]
	return inv, ok
}

// Edge is a single typed relation owned by its source block.
type Edge struct {
	Type     EdgeType
	Target   ids.BlockId
	Metadata map[string]any
}

// Block is the atomic content unit (§3.3).
type Block struct {
	ID       ids.BlockId
	Content  content.Content
	Metadata Metadata
	Edges    []Edge
	Version  uint64
}

func (b *Block) clone() *Block {
	nb := &Block{ID: b.ID, Content: b.Content, Metadata: b.Metadata.Clone(), Version: b.Version}
	nb.Edges = make([]Edge, len(b.Edges))
	copy(nb.Edges, b.Edges)
	return nb
}

// Indices are the four secondary indices maintained on every mutation.
type Indices struct {
	ByTag          map[string]map[ids.BlockId]struct{}
	ByRoleCategory map[string]map[ids.BlockId]struct{}
	ByType         map[content.Type]map[ids.BlockId]struct{}
	ByLabel        map[string]ids.BlockId
}

func newIndices() Indices {
	return Indices{
		ByTag:          map[string]map[ids.BlockId]struct{}{},
		ByRoleCategory: map[string]map[ids.BlockId]struct{}{},
		ByType:         map[content.Type]map[ids.BlockId]struct{}{},
		ByLabel:        map[string]ids.BlockId{},
	}
}

// EdgeIndex is the bidirectional outgoing/incoming edge index.
type EdgeIndex struct {
	Out map[ids.BlockId]map[EdgeType]map[ids.BlockId]struct{}
	In  map[ids.BlockId]map[EdgeType]map[ids.BlockId]struct{}
}

func newEdgeIndex() EdgeIndex {
	return EdgeIndex{
		Out: map[ids.BlockId]map[EdgeType]map[ids.BlockId]struct{}{},
		In:  map[ids.BlockId]map[EdgeType]map[ids.BlockId]struct{}{},
	}
}

// Document is a rooted hierarchical collection of blocks with typed edges
// and maintained indices (§3.5). Mutator methods assume the caller already
// holds Lock (the engine's execute() takes out exclusive access for the
// duration of one operation, per §5); read-only callers should hold RLock.
type Document struct {
	mu sync.RWMutex

	ID        ids.DocumentId
	Namespace string
	Root      ids.BlockId
	Blocks    map[ids.BlockId]*Block
	Structure map[ids.BlockId][]ids.BlockId
	Indices   Indices
	EdgeIndex EdgeIndex
	Version   uint64
}

// New creates an empty document with a single root block.
func New(namespace string) *Document {
	d := &Document{
		ID:        ids.NewDocumentID(),
		Namespace: namespace,
		Root:      ids.RootBlockID,
		Blocks:    map[ids.BlockId]*Block{},
		Structure: map[ids.BlockId][]ids.BlockId{},
		Indices:   newIndices(),
		EdgeIndex: newEdgeIndex(),
	}
	d.Blocks[d.Root] = &Block{ID: d.Root, Content: content.Text{Text: "", Format: content.TextPlain}, Metadata: NewMetadata(), Version: 1}
	return d
}

func (d *Document) Lock()    { d.mu.Lock() }
func (d *Document) Unlock()  { d.mu.Unlock() }
func (d *Document) RLock()   { d.mu.RLock() }
func (d *Document) RUnlock() { d.mu.RUnlock() }

// GetBlock returns the block for id, if present.
func (d *Document) GetBlock(id ids.BlockId) (*Block, bool) {
	b, ok := d.Blocks[id]
	return b, ok
}

// Children returns id's ordered children, or nil if it has none.
func (d *Document) Children(id ids.BlockId) []ids.BlockId {
	return d.Structure[id]
}

// Parent returns id's structural parent, if any (the root has none).
func (d *Document) Parent(id ids.BlockId) (ids.BlockId, bool) {
	if id == d.Root {
		return "", false
	}
	for p, children := range d.Structure {
		for _, c := range children {
			if c == id {
				return p, true
			}
		}
	}
	return "", false
}

// Clone returns a deep copy of the document, suitable for snapshots and
// transaction pre-images.
func (d *Document) Clone() *Document {
	nd := &Document{
		ID:        d.ID,
		Namespace: d.Namespace,
		Root:      d.Root,
		Blocks:    make(map[ids.BlockId]*Block, len(d.Blocks)),
		Structure: make(map[ids.BlockId][]ids.BlockId, len(d.Structure)),
		Indices:   newIndices(),
		EdgeIndex: newEdgeIndex(),
		Version:   d.Version,
	}
	for id, b := range d.Blocks {
		nd.Blocks[id] = b.clone()
	}
	for id, children := range d.Structure {
		cp := make([]ids.BlockId, len(children))
		copy(cp, children)
		nd.Structure[id] = cp
	}
	nd.rebuildIndices()
	return nd
}

// ReplaceWith overwrites d's blocks, structure, indices, and version with
// src's, keeping d's identity (ID, Namespace, Root) and lock intact. It is
// the primitive behind transaction rollback and snapshot restore: both
// need to swap a document's entire content in place without invalidating
// pointers callers already hold to *Document.
func (d *Document) ReplaceWith(src *Document) {
	d.Blocks = make(map[ids.BlockId]*Block, len(src.Blocks))
	for id, b := range src.Blocks {
		d.Blocks[id] = b.clone()
	}
	d.Structure = make(map[ids.BlockId][]ids.BlockId, len(src.Structure))
	for id, children := range src.Structure {
		cp := make([]ids.BlockId, len(children))
		copy(cp, children)
		d.Structure[id] = cp
	}
	d.Version = src.Version
	d.rebuildIndices()
}

// RebuildIndices performs a full index reconstruction from block state, as
// an explicit maintenance operation (§4.2 "Index update discipline").
func (d *Document) RebuildIndices() { d.rebuildIndices() }

func (d *Document) rebuildIndices() {
	d.Indices = newIndices()
	d.EdgeIndex = newEdgeIndex()
	for id, b := range d.Blocks {
		d.indexBlock(id, b)
	}
}

func (d *Document) indexBlock(id ids.BlockId, b *Block) {
	for tag := range b.Metadata.Tags {
		set := d.Indices.ByTag[tag]
		if set == nil {
			set = map[ids.BlockId]struct{}{}
			d.Indices.ByTag[tag] = set
		}
		set[id] = struct{}{}
	}
	if b.Metadata.Role != nil && b.Metadata.Role.Category != "" {
		set := d.Indices.ByRoleCategory[b.Metadata.Role.Category]
		if set == nil {
			set = map[ids.BlockId]struct{}{}
			d.Indices.ByRoleCategory[b.Metadata.Role.Category] = set
		}
		set[id] = struct{}{}
	}
	if b.Content != nil {
		set := d.Indices.ByType[b.Content.Type()]
		if set == nil {
			set = map[ids.BlockId]struct{}{}
			d.Indices.ByType[b.Content.Type()] = set
		}
		set[id] = struct{}{}
	}
	if b.Metadata.HasLabel {
		d.Indices.ByLabel[b.Metadata.Label] = id
	}
	for _, e := range b.Edges {
		d.indexEdge(id, e)
	}
}

func (d *Document) indexEdge(source ids.BlockId, e Edge) {
	outForSource := d.EdgeIndex.Out[source]
	if outForSource == nil {
		outForSource = map[EdgeType]map[ids.BlockId]struct{}{}
		d.EdgeIndex.Out[source] = outForSource
	}
	if outForSource[e.Type] == nil {
		outForSource[e.Type] = map[ids.BlockId]struct{}{}
	}
	outForSource[e.Type][e.Target] = struct{}{}

	inForTarget := d.EdgeIndex.In[e.Target]
	if inForTarget == nil {
		inForTarget = map[EdgeType]map[ids.BlockId]struct{}{}
		d.EdgeIndex.In[e.Target] = inForTarget
	}
	if inForTarget[e.Type] == nil {
		inForTarget[e.Type] = map[ids.BlockId]struct{}{}
	}
	inForTarget[e.Type][source] = struct{}{}

	if inv, ok := InverseEdgeType(e.Type); ok {
		outForTarget := d.EdgeIndex.Out[e.Target]
		if outForTarget == nil {
			outForTarget = map[EdgeType]map[ids.BlockId]struct{}{}
			d.EdgeIndex.Out[e.Target] = outForTarget
		}
		if outForTarget[inv] == nil {
			outForTarget[inv] = map[ids.BlockId]struct{}{}
		}
		outForTarget[inv][source] = struct{}{}

		inForSource := d.EdgeIndex.In[source]
		if inForSource == nil {
			inForSource = map[EdgeType]map[ids.BlockId]struct{}{}
			d.EdgeIndex.In[source] = inForSource
		}
		if inForSource[inv] == nil {
			inForSource[inv] = map[ids.BlockId]struct{}{}
		}
		inForSource[inv][e.Target] = struct{}{}
	}
}
