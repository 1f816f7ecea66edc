package document

import (
	"testing"

	"github.com/arthur-debert/ucp/internal/ucp/content"
	"github.com/arthur-debert/ucp/internal/ucp/ids"
	"github.com/arthur-debert/ucp/internal/ucp/pathlang"
)

func TestAddBlockAndChildren(t *testing.T) {
	d := New("")
	id, err := d.AddBlock(d.Root, content.Text{Text: "Hello, UCP!", Format: content.TextPlain}, &SemanticRole{Category: "intro"}, NewMetadata())
	if err != nil {
		t.Fatal(err)
	}
	if got := d.Children(d.Root); len(got) != 1 || got[0] != id {
		t.Fatalf("expected root to have one child %s, got %v", id, got)
	}
}

func TestAddBlockDuplicateLabelFails(t *testing.T) {
	d := New("")
	m1 := NewMetadata()
	m1.Label, m1.HasLabel = "intro", true
	if _, err := d.AddBlock(d.Root, content.Text{Text: "a"}, nil, m1); err != nil {
		t.Fatal(err)
	}
	m2 := NewMetadata()
	m2.Label, m2.HasLabel = "intro", true
	before := d.Version
	if _, err := d.AddBlock(d.Root, content.Text{Text: "b"}, nil, m2); err == nil {
		t.Fatal("expected label conflict error")
	}
	if d.Version != before {
		t.Fatalf("version should not advance on failed add")
	}
}

func TestMoveBlockWouldCycle(t *testing.T) {
	d := New("")
	a, _ := d.AddBlock(d.Root, content.Text{Text: "A"}, nil, NewMetadata())
	b, _ := d.AddBlock(a, content.Text{Text: "B"}, nil, NewMetadata())
	c, _ := d.AddBlock(b, content.Text{Text: "C"}, nil, NewMetadata())

	before := d.Fingerprint()
	if err := d.MoveBlock(a, MoveDestination{Kind: MoveTo, Parent: c}); err == nil {
		t.Fatal("expected WouldCycle error")
	}
	if after := d.Fingerprint(); after != before {
		t.Fatal("structure must be unchanged after a failed move")
	}
}

func TestDeleteBlockPreserveChildren(t *testing.T) {
	d := New("")
	a, _ := d.AddBlock(d.Root, content.Text{Text: "A"}, nil, NewMetadata())
	b1, _ := d.AddBlock(a, content.Text{Text: "B1"}, nil, NewMetadata())
	b2, _ := d.AddBlock(a, content.Text{Text: "B2"}, nil, NewMetadata())

	if _, err := d.DeleteBlock(a, DeletePreserveChildren); err != nil {
		t.Fatal(err)
	}
	children := d.Children(d.Root)
	if len(children) != 2 || children[0] != b1 || children[1] != b2 {
		t.Fatalf("expected root children [%s %s], got %v", b1, b2, children)
	}
}

func TestDeleteRootFails(t *testing.T) {
	d := New("")
	if _, err := d.DeleteBlock(d.Root, DeleteCascade); err == nil {
		t.Fatal("expected error deleting root")
	}
}

func TestEditBlockContentChangesID(t *testing.T) {
	d := New("")
	id, _ := d.AddBlock(d.Root, content.Text{Text: "original"}, nil, NewMetadata())
	path, _ := pathlang.Parse("content.text")
	err := d.EditBlock(id, Patch{Path: path, Op: pathlang.OpSet, Value: "changed"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := d.GetBlock(id); ok {
		t.Fatal("old id should no longer resolve after a content edit")
	}
	found := false
	for newID, b := range d.Blocks {
		if txt, ok := b.Content.(content.Text); ok && txt.Text == "changed" {
			found = true
			children := d.Children(d.Root)
			if len(children) != 1 || children[0] != newID {
				t.Fatalf("expected new id to occupy old structural position")
			}
		}
	}
	if !found {
		t.Fatal("expected to find the edited block under a new id")
	}
}

func TestEditBlockReassignsEdgeIndexForIncomingEdges(t *testing.T) {
	d := New("")
	target, _ := d.AddBlock(d.Root, content.Text{Text: "target"}, nil, NewMetadata())
	source, _ := d.AddBlock(d.Root, content.Text{Text: "source"}, nil, NewMetadata())
	if err := d.AddEdge(source, EdgeReferences, target, nil); err != nil {
		t.Fatal(err)
	}

	path, _ := pathlang.Parse("content.text")
	if err := d.EditBlock(target, Patch{Path: path, Op: pathlang.OpSet, Value: "retargeted"}); err != nil {
		t.Fatal(err)
	}

	var newTarget ids.BlockId
	for id, b := range d.Blocks {
		if txt, ok := b.Content.(content.Text); ok && txt.Text == "retargeted" {
			newTarget = id
		}
	}
	if newTarget == "" {
		t.Fatal("expected to find the edited block under a new id")
	}

	if _, ok := d.EdgeIndex.In[target]; ok {
		t.Fatal("expected stale EdgeIndex.In entry under the old id to be gone")
	}
	if _, ok := d.EdgeIndex.In[newTarget][EdgeReferences][source]; !ok {
		t.Fatal("expected EdgeIndex.In to be reindexed under the new id")
	}
	if _, ok := d.EdgeIndex.Out[newTarget][EdgeCitedBy][source]; !ok {
		t.Fatal("expected the inverse edge to be reindexed under the new id too")
	}

	srcBlock, _ := d.GetBlock(source)
	if len(srcBlock.Edges) != 1 || srcBlock.Edges[0].Target != newTarget {
		t.Fatalf("expected source's own edge to point at the new id, got %+v", srcBlock.Edges)
	}
}

func TestAddEdgeMaintainsInverse(t *testing.T) {
	d := New("")
	a, _ := d.AddBlock(d.Root, content.Text{Text: "A"}, nil, NewMetadata())
	b, _ := d.AddBlock(d.Root, content.Text{Text: "B"}, nil, NewMetadata())
	if err := d.AddEdge(a, EdgeReferences, b, nil); err != nil {
		t.Fatal(err)
	}
	if _, ok := d.EdgeIndex.In[b][EdgeReferences][a]; !ok {
		t.Fatal("expected incoming index entry")
	}
	if _, ok := d.EdgeIndex.Out[b][EdgeCitedBy][a]; !ok {
		t.Fatal("expected inverse edge materialized")
	}
}
