package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/arthur-debert/ucp/internal/ucp/content"
	"github.com/arthur-debert/ucp/internal/ucp/document"
	"github.com/arthur-debert/ucp/internal/ucp/events"
	"github.com/arthur-debert/ucp/internal/ucp/pathlang"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	doc := document.New("test")
	return New(doc, events.Null())
}

func TestExecuteAddBlock(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	res, err := e.Execute(ctx, Operation{Kind: OpAdd, Add: &AddOp{
		Parent: e.Doc.Root, Content: content.Text{Text: "hello", Format: content.TextPlain}, Metadata: document.NewMetadata(),
	}})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.CreatedID == "" {
		t.Fatal("expected a created block id")
	}
	if _, ok := e.Doc.GetBlock(res.CreatedID); !ok {
		t.Fatal("created block not present in document")
	}
}

func TestAtomicBatchRollsBackOnFailure(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	id, err := e.Doc.AddBlock(e.Doc.Root, content.Text{Text: "original", Format: content.TextPlain}, nil, document.NewMetadata())
	if err != nil {
		t.Fatalf("seed AddBlock: %v", err)
	}
	versionBefore := e.Doc.Version

	path, err := pathlang.Parse("content.text")
	if err != nil {
		t.Fatalf("pathlang.Parse: %v", err)
	}
	_, err = e.ExecuteBatch(ctx, []Operation{
		{Kind: OpEdit, Edit: &EditOp{Block: id, Patch: document.Patch{Path: path, Op: pathlang.OpSet, Value: "new"}}},
		{Kind: OpDelete, Delete: &DeleteOp{Block: "blk_ffffffffffffffffffffffff", Mode: document.DeleteCascade}},
	})
	if err == nil {
		t.Fatal("expected the batch to fail on its second operation")
	}
	if e.Doc.Version != versionBefore {
		t.Fatalf("expected version to be restored to %d, got %d", versionBefore, e.Doc.Version)
	}
	b, _ := e.Doc.GetBlock(id)
	if b.Content.(content.Text).Text != "original" {
		t.Fatalf("expected content to be rolled back, got %q", b.Content.(content.Text).Text)
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	if _, err := e.SnapshotCreate(ctx, "v1"); err != nil {
		t.Fatalf("SnapshotCreate: %v", err)
	}
	versionAtSnapshot := e.Doc.Version
	blockCountAtSnapshot := len(e.Doc.Blocks)

	if _, err := e.Doc.AddBlock(e.Doc.Root, content.Text{Text: "added after snapshot", Format: content.TextPlain}, nil, document.NewMetadata()); err != nil {
		t.Fatalf("AddBlock: %v", err)
	}
	if len(e.Doc.Blocks) == blockCountAtSnapshot {
		t.Fatal("expected block count to change before restore")
	}

	if err := e.SnapshotRestore(ctx, "v1"); err != nil {
		t.Fatalf("SnapshotRestore: %v", err)
	}
	if e.Doc.Version != versionAtSnapshot {
		t.Fatalf("expected version %d after restore, got %d", versionAtSnapshot, e.Doc.Version)
	}
	if len(e.Doc.Blocks) != blockCountAtSnapshot {
		t.Fatalf("expected %d blocks after restore, got %d", blockCountAtSnapshot, len(e.Doc.Blocks))
	}
}

func TestWriteSectionGraftsAndRelevelsHeadings(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	role := &document.SemanticRole{Category: "heading", Subrole: "h1"}
	meta := document.NewMetadata()
	meta.Custom["heading_level"] = 1
	sectionID, err := e.Doc.AddBlock(e.Doc.Root, content.Text{Text: "Chapter One", Format: content.TextMarkdown}, role, meta)
	if err != nil {
		t.Fatalf("AddBlock: %v", err)
	}

	res, _, err := e.WriteSection(ctx, sectionID, "# Intro\n\nSome body text.\n", true)
	if err != nil {
		t.Fatalf("WriteSection: %v", err)
	}
	if res.CreatedID != sectionID {
		t.Fatalf("expected result to reference section %q, got %q", sectionID, res.CreatedID)
	}

	children := e.Doc.Children(sectionID)
	if len(children) != 1 {
		t.Fatalf("expected 1 grafted heading child, got %d", len(children))
	}
	headingChild, ok := e.Doc.GetBlock(children[0])
	if !ok {
		t.Fatal("missing grafted heading block")
	}
	if headingChild.Metadata.Role == nil || headingChild.Metadata.Role.Subrole != "h2" {
		t.Fatalf("expected grafted heading to be re-leveled to h2, got %+v", headingChild.Metadata.Role)
	}
	grandchildren := e.Doc.Children(children[0])
	if len(grandchildren) != 1 {
		t.Fatalf("expected the heading's own paragraph to be nested under it, got %d children", len(grandchildren))
	}
}

func TestWriteSectionUndoCarriesPriorContent(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	sectionID, err := e.Doc.AddBlock(e.Doc.Root, content.Text{Text: "Notes", Format: content.TextPlain}, nil, document.NewMetadata())
	if err != nil {
		t.Fatalf("AddBlock: %v", err)
	}
	if _, err := e.Doc.AddBlock(sectionID, content.Text{Text: "old content", Format: content.TextPlain}, nil, document.NewMetadata()); err != nil {
		t.Fatalf("seed child: %v", err)
	}

	_, undo, err := e.WriteSection(ctx, sectionID, "new content\n", true)
	if err != nil {
		t.Fatalf("WriteSection: %v", err)
	}
	if !undo.HadContent {
		t.Fatal("expected undo payload to record prior content")
	}
	if !strings.Contains(undo.PriorMarkdown, "old content") {
		t.Fatalf("expected undo markdown to contain the displaced text, got %q", undo.PriorMarkdown)
	}
}
