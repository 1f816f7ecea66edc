package document

import (
	"fmt"

	"github.com/arthur-debert/ucp/internal/ucp/content"
	"github.com/arthur-debert/ucp/internal/ucp/ids"
	"github.com/arthur-debert/ucp/internal/ucp/ucerr"
)

// AddBlock inserts a new block under parent (§4.2). Failing operations
// leave state unchanged.
func (d *Document) AddBlock(parent ids.BlockId, c content.Content, role *SemanticRole, meta Metadata) (ids.BlockId, error) {
	if _, ok := d.Blocks[parent]; !ok {
		return "", ucerr.New(ucerr.KindNotFound, ucerr.CodeParentNotFound, fmt.Sprintf("parent %q not found", parent)).WithBlock(string(parent))
	}
	if meta.HasLabel {
		if _, exists := d.Indices.ByLabel[meta.Label]; exists {
			return "", ucerr.New(ucerr.KindConflict, ucerr.CodeLabelConflict, fmt.Sprintf("label %q already in use", meta.Label))
		}
	}

	roleTag := ""
	if role != nil {
		roleTag = role.Category + "/" + role.Subrole
	}
	id := ids.NewBlockID(d.Namespace, string(c.Type()), roleTag, c.Canonicalize())
	if _, exists := d.Blocks[id]; exists {
		// Identical content+role already present elsewhere: still a
		// distinct tree position is disallowed since ids are unique keys.
		return "", ucerr.New(ucerr.KindConflict, ucerr.CodeVersionConflict, fmt.Sprintf("block %q already exists with identical content+role", id))
	}

	md := meta.Clone()
	md.Role = role

	b := &Block{ID: id, Content: c, Metadata: md, Version: 1}
	d.Blocks[id] = b
	d.Structure[parent] = append(d.Structure[parent], id)
	d.indexBlock(id, b)
	d.Version++
	return id, nil
}

// EditBlock applies a path-scoped mutation to a block's content or
// metadata (§4.4 path grammar). Metadata-only edits never change the
// block's id and mutate in place; edits that change content or role
// change the canonical content-derived id, so they are modelled as
// delete-and-insert (§3.5 "Lifecycle") with edges and structure position
// carried over to the new id.
func (d *Document) EditBlock(id ids.BlockId, patch Patch) error {
	b, ok := d.Blocks[id]
	if !ok {
		return ucerr.NotFound(string(id))
	}
	if id == d.Root && patch.TouchesContent() {
		return ucerr.New(ucerr.KindValidation, ucerr.CodeTypeMismatch, "root block content is immutable")
	}

	newContent, newRole, newMeta, err := applyPatch(b.Content, b.Metadata, patch)
	if err != nil {
		return err
	}

	if newMeta.HasLabel && (!b.Metadata.HasLabel || newMeta.Label != b.Metadata.Label) {
		if existing, exists := d.Indices.ByLabel[newMeta.Label]; exists && existing != id {
			return ucerr.New(ucerr.KindConflict, ucerr.CodeLabelConflict, fmt.Sprintf("label %q already in use", newMeta.Label))
		}
	}

	roleTag := ""
	if newRole != nil {
		roleTag = newRole.Category + "/" + newRole.Subrole
	}
	newID := ids.NewBlockID(d.Namespace, string(newContent.Type()), roleTag, newContent.Canonicalize())

	if newID == id {
		// In-place mutation: id-determining inputs are unchanged.
		d.deindexBlock(id, b)
		b.Content = newContent
		newMeta.Role = newRole
		b.Metadata = newMeta
		b.Version++
		d.indexBlock(id, b)
		d.Version++
		return nil
	}

	if _, exists := d.Blocks[newID]; exists {
		return ucerr.New(ucerr.KindConflict, ucerr.CodeVersionConflict, fmt.Sprintf("edit would collide with existing block %q", newID))
	}

	parent, hasParent := d.Parent(id)
	d.deindexBlock(id, b)
	delete(d.Blocks, id)

	newMeta.Role = newRole
	nb := &Block{ID: newID, Content: newContent, Metadata: newMeta, Edges: b.Edges, Version: b.Version + 1}
	d.Blocks[newID] = nb

	if hasParent {
		siblings := d.Structure[parent]
		for i, s := range siblings {
			if s == id {
				siblings[i] = newID
				break
			}
		}
		d.Structure[parent] = siblings
	}
	if children, ok := d.Structure[id]; ok {
		d.Structure[newID] = children
		delete(d.Structure, id)
	}
	d.reassignEdgeReferences(id, newID)
	d.indexBlock(newID, nb)
	d.Version++
	return nil
}

// reassignEdgeReferences rewrites every other block's edges that point
// at oldID to point at newID instead, keeping EdgeIndex in step: each
// affected edge is deindexed under oldID before its Target is rewritten,
// then reindexed under newID, the same way a fresh AddBlock or EditBlock
// would index it.
func (d *Document) reassignEdgeReferences(oldID, newID ids.BlockId) {
	for source, b := range d.Blocks {
		for i := range b.Edges {
			if b.Edges[i].Target == oldID {
				d.deindexEdge(source, b.Edges[i])
				b.Edges[i].Target = newID
				d.indexEdge(source, b.Edges[i])
			}
		}
	}
}

func (d *Document) deindexBlock(id ids.BlockId, b *Block) {
	for tag := range b.Metadata.Tags {
		delete(d.Indices.ByTag[tag], id)
	}
	if b.Metadata.Role != nil {
		delete(d.Indices.ByRoleCategory[b.Metadata.Role.Category], id)
	}
	if b.Content != nil {
		delete(d.Indices.ByType[b.Content.Type()], id)
	}
	if b.Metadata.HasLabel {
		delete(d.Indices.ByLabel, b.Metadata.Label)
	}
	for _, e := range b.Edges {
		d.deindexEdge(id, e)
	}
}

func (d *Document) deindexEdge(source ids.BlockId, e Edge) {
	if m := d.EdgeIndex.Out[source]; m != nil {
		delete(m[e.Type], e.Target)
	}
	if m := d.EdgeIndex.In[e.Target]; m != nil {
		delete(m[e.Type], source)
	}
	if inv, ok := InverseEdgeType(e.Type); ok {
		if m := d.EdgeIndex.Out[e.Target]; m != nil {
			delete(m[inv], source)
		}
		if m := d.EdgeIndex.In[source]; m != nil {
			delete(m[inv], e.Target)
		}
	}
}

// MoveKind selects the flavor of MoveBlock destination.
type MoveKind int

const (
	MoveTo MoveKind = iota
	MoveBefore
	MoveAfter
)

// MoveDestination describes where a block should move to (§4.2).
type MoveDestination struct {
	Kind    MoveKind
	Parent  ids.BlockId // for MoveTo
	Index   *int        // for MoveTo, optional
	Sibling ids.BlockId // for MoveBefore/MoveAfter
}

// MoveBlock re-parents or reorders id. Fails with WouldCycle if the
// destination is id itself or a descendant of id.
func (d *Document) MoveBlock(id ids.BlockId, dest MoveDestination) error {
	if _, ok := d.Blocks[id]; !ok {
		return ucerr.NotFound(string(id))
	}
	if id == d.Root {
		return ucerr.New(ucerr.KindValidation, ucerr.CodeWouldCycle, "cannot move the root block")
	}

	var targetParent ids.BlockId
	switch dest.Kind {
	case MoveTo:
		if _, ok := d.Blocks[dest.Parent]; !ok {
			return ucerr.NotFound(string(dest.Parent))
		}
		targetParent = dest.Parent
	case MoveBefore, MoveAfter:
		p, ok := d.Parent(dest.Sibling)
		if !ok {
			return ucerr.NotFound(string(dest.Sibling))
		}
		targetParent = p
	}

	if targetParent == id || d.isDescendant(id, targetParent) {
		return ucerr.New(ucerr.KindValidation, ucerr.CodeWouldCycle, fmt.Sprintf("moving %q under %q would create a cycle", id, targetParent))
	}

	// Remove id from its current position first so that insertIndex is
	// always computed against the post-removal structure.
	oldParent, hasOldParent := d.Parent(id)
	if hasOldParent {
		siblings := d.Structure[oldParent]
		for i, s := range siblings {
			if s == id {
				siblings = append(siblings[:i], siblings[i+1:]...)
				break
			}
		}
		d.Structure[oldParent] = siblings
	}

	var insertIndex int
	switch dest.Kind {
	case MoveTo:
		if dest.Index != nil {
			insertIndex = *dest.Index
		} else {
			insertIndex = len(d.Structure[targetParent])
		}
	case MoveBefore, MoveAfter:
		siblings := d.Structure[targetParent]
		insertIndex = len(siblings)
		for i, s := range siblings {
			if s == dest.Sibling {
				insertIndex = i
				if dest.Kind == MoveAfter {
					insertIndex = i + 1
				}
				break
			}
		}
	}

	dst := d.Structure[targetParent]
	if insertIndex < 0 {
		insertIndex = len(dst) + 1 + insertIndex
	}
	if insertIndex < 0 {
		insertIndex = 0
	}
	if insertIndex > len(dst) {
		insertIndex = len(dst)
	}
	dst = append(dst, "")
	copy(dst[insertIndex+1:], dst[insertIndex:])
	dst[insertIndex] = id
	d.Structure[targetParent] = dst

	d.Version++
	return nil
}

func (d *Document) isDescendant(ancestor, candidate ids.BlockId) bool {
	for _, c := range d.Structure[ancestor] {
		if c == candidate {
			return true
		}
		if d.isDescendant(c, candidate) {
			return true
		}
	}
	return false
}

// DeleteMode selects cascade vs. preserve-children deletion (§3.5).
type DeleteMode int

const (
	DeleteCascade DeleteMode = iota
	DeletePreserveChildren
)

// DeleteBlock removes id. Disallowed on the root.
func (d *Document) DeleteBlock(id ids.BlockId, mode DeleteMode) ([]ids.BlockId, error) {
	if id == d.Root {
		return nil, ucerr.New(ucerr.KindValidation, ucerr.CodeMalformedCommand, "cannot delete the root block").WithBlock(string(id))
	}
	if _, ok := d.Blocks[id]; !ok {
		return nil, ucerr.NotFound(string(id))
	}

	parent, hasParent := d.Parent(id)
	children := append([]ids.BlockId(nil), d.Structure[id]...)

	var removed []ids.BlockId
	switch mode {
	case DeleteCascade:
		removed = d.collectSubtree(id)
	case DeletePreserveChildren:
		removed = []ids.BlockId{id}
	}

	if mode == DeletePreserveChildren && hasParent {
		siblings := d.Structure[parent]
		idx := -1
		for i, s := range siblings {
			if s == id {
				idx = i
				break
			}
		}
		if idx >= 0 {
			newSiblings := make([]ids.BlockId, 0, len(siblings)-1+len(children))
			newSiblings = append(newSiblings, siblings[:idx]...)
			newSiblings = append(newSiblings, children...)
			newSiblings = append(newSiblings, siblings[idx+1:]...)
			d.Structure[parent] = newSiblings
		}
		delete(d.Structure, id)
	} else if hasParent {
		siblings := d.Structure[parent]
		for i, s := range siblings {
			if s == id {
				d.Structure[parent] = append(siblings[:i], siblings[i+1:]...)
				break
			}
		}
	}

	for _, rid := range removed {
		if rb, ok := d.Blocks[rid]; ok {
			d.deindexBlock(rid, rb)
			delete(d.Blocks, rid)
			delete(d.Structure, rid)
		}
	}
	d.Version++
	return removed, nil
}

func (d *Document) collectSubtree(id ids.BlockId) []ids.BlockId {
	out := []ids.BlockId{id}
	for _, c := range d.Structure[id] {
		out = append(out, d.collectSubtree(c)...)
	}
	return out
}

// AddEdge creates a typed relation and maintains the bidirectional index.
func (d *Document) AddEdge(source ids.BlockId, t EdgeType, target ids.BlockId, meta map[string]any) error {
	if _, ok := d.Blocks[source]; !ok {
		return ucerr.NotFound(string(source))
	}
	if _, ok := d.Blocks[target]; !ok {
		return ucerr.NotFound(string(target))
	}
	b := d.Blocks[source]
	for _, e := range b.Edges {
		if e.Type == t && e.Target == target {
			return nil // idempotent
		}
	}
	e := Edge{Type: t, Target: target, Metadata: meta}
	b.Edges = append(b.Edges, e)
	d.indexEdge(source, e)
	b.Version++
	d.Version++
	return nil
}

// RemoveEdge deletes a typed relation and its inverse index entries.
func (d *Document) RemoveEdge(source ids.BlockId, t EdgeType, target ids.BlockId) error {
	b, ok := d.Blocks[source]
	if !ok {
		return ucerr.NotFound(string(source))
	}
	found := false
	out := b.Edges[:0]
	for _, e := range b.Edges {
		if e.Type == t && e.Target == target {
			found = true
			d.deindexEdge(source, e)
			continue
		}
		out = append(out, e)
	}
	b.Edges = out
	if !found {
		return ucerr.New(ucerr.KindNotFound, ucerr.CodeBlockNotFound, "edge not found")
	}
	b.Version++
	d.Version++
	return nil
}
