package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/arthur-debert/ucp/internal/ucp/content"
	"github.com/arthur-debert/ucp/internal/ucp/document"
	"github.com/arthur-debert/ucp/internal/ucp/ucl"
)

func TestExecuteUclAppend(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	src := fmt.Sprintf(`APPEND %s text :: "hello from ucl"`, e.Doc.Root)

	results, err := e.ExecuteUcl(ctx, src, nil)
	if err != nil {
		t.Fatalf("ExecuteUcl: %v", err)
	}
	if len(results) != 1 || results[0].Op == nil || results[0].Op.CreatedID == "" {
		t.Fatalf("expected one APPEND result with a created id, got %+v", results)
	}
	b, ok := e.Doc.GetBlock(results[0].Op.CreatedID)
	if !ok {
		t.Fatal("created block not found in document")
	}
	if txt, ok := b.Content.(content.Text); !ok || txt.Text != "hello from ucl" {
		t.Fatalf("unexpected content %+v", b.Content)
	}
}

func TestExecuteUclAppendFence(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	src := fmt.Sprintf("APPEND %s code :: ```go\nfmt.Println(1)\n```", e.Doc.Root)

	results, err := e.ExecuteUcl(ctx, src, nil)
	if err != nil {
		t.Fatalf("ExecuteUcl: %v", err)
	}
	b, ok := e.Doc.GetBlock(results[0].Op.CreatedID)
	if !ok {
		t.Fatal("created block not found in document")
	}
	code, ok := b.Content.(content.Code)
	if !ok || code.Language != "go" || code.Source != "fmt.Println(1)" {
		t.Fatalf("unexpected content %+v", b.Content)
	}
}

func TestExecuteUclAppendPipeTable(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	src := fmt.Sprintf("APPEND %s table :: | quarter | status |\n| --- | --- |\n| Q1 | done |", e.Doc.Root)

	results, err := e.ExecuteUcl(ctx, src, nil)
	if err != nil {
		t.Fatalf("ExecuteUcl: %v", err)
	}
	b, ok := e.Doc.GetBlock(results[0].Op.CreatedID)
	if !ok {
		t.Fatal("created block not found in document")
	}
	tbl, ok := b.Content.(content.Table)
	if !ok || len(tbl.Columns) != 2 || len(tbl.Rows) != 1 {
		t.Fatalf("unexpected content %+v", b.Content)
	}
}

func TestExecuteUclAtomicRollsBackOnFailure(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	versionBefore := e.Doc.Version
	src := fmt.Sprintf("ATOMIC {\nAPPEND %s text :: \"a\"\nDELETE blk_ffffffffffffffffffffffff\n}", e.Doc.Root)

	if _, err := e.ExecuteUcl(ctx, src, nil); err == nil {
		t.Fatal("expected the atomic block to fail on its second statement")
	}
	if e.Doc.Version != versionBefore {
		t.Fatalf("expected version to be rolled back to %d, got %d", versionBefore, e.Doc.Version)
	}
}

func TestExecuteUclDeleteWhere(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	meta := document.NewMetadata()
	meta.Tags["stale"] = struct{}{}
	stale, err := e.Doc.AddBlock(e.Doc.Root, content.Text{Text: "old", Format: content.TextPlain}, nil, meta)
	if err != nil {
		t.Fatalf("AddBlock: %v", err)
	}
	fresh, err := e.Doc.AddBlock(e.Doc.Root, content.Text{Text: "new", Format: content.TextPlain}, nil, document.NewMetadata())
	if err != nil {
		t.Fatalf("AddBlock: %v", err)
	}

	results, err := e.ExecuteUcl(ctx, `DELETE WHERE tags CONTAINS "stale"`, nil)
	if err != nil {
		t.Fatalf("ExecuteUcl: %v", err)
	}
	if len(results) != 1 || results[0].Op == nil {
		t.Fatalf("expected one op result, got %+v", results)
	}
	if _, ok := e.Doc.GetBlock(stale); ok {
		t.Fatal("expected the stale block to be deleted")
	}
	if _, ok := e.Doc.GetBlock(fresh); !ok {
		t.Fatal("expected the untagged block to survive")
	}
}

func TestExecuteUclSnapshotList(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	if _, err := e.ExecuteUcl(ctx, `SNAPSHOT CREATE "v1"`, nil); err != nil {
		t.Fatalf("ExecuteUcl create: %v", err)
	}
	results, err := e.ExecuteUcl(ctx, `SNAPSHOT LIST`, nil)
	if err != nil {
		t.Fatalf("ExecuteUcl list: %v", err)
	}
	if len(results) != 1 || len(results[0].Snapshots) != 1 || results[0].Snapshots[0].Name != "v1" {
		t.Fatalf("expected one snapshot named v1, got %+v", results)
	}
}

func TestExecuteUclRoutesTraversalToCallback(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	src := fmt.Sprintf("GOTO %s", e.Doc.Root)

	var seen ucl.Command
	results, err := e.ExecuteUcl(ctx, src, func(_ context.Context, cmd ucl.Command) (any, error) {
		seen = cmd
		return "navigated", nil
	})
	if err != nil {
		t.Fatalf("ExecuteUcl: %v", err)
	}
	if len(results) != 1 || results[0].Traversal != "navigated" {
		t.Fatalf("expected the traversal callback's result to be threaded through, got %+v", results)
	}
	if _, ok := seen.(ucl.GotoCommand); !ok {
		t.Fatalf("expected callback to observe a GotoCommand, got %T", seen)
	}
}

func TestExecuteUclTraversalWithoutCallbackFails(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	src := fmt.Sprintf("GOTO %s", e.Doc.Root)
	if _, err := e.ExecuteUcl(ctx, src, nil); err == nil {
		t.Fatal("expected a traversal command with no onTraversal callback to fail")
	}
}
