package ucl

import (
	"testing"

	"github.com/arthur-debert/ucp/internal/ucp/pathlang"
	"github.com/arthur-debert/ucp/internal/ucp/ucerr"
)

func TestParseEditSet(t *testing.T) {
	cmds, err := Parse(`EDIT blk_000000000000000000000001 SET content.title = "New Title"`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(cmds) != 1 {
		t.Fatalf("expected 1 command, got %d", len(cmds))
	}
	edit, ok := cmds[0].(EditCommand)
	if !ok {
		t.Fatalf("expected EditCommand, got %T", cmds[0])
	}
	if edit.Op != pathlang.OpSet || edit.Value != "New Title" {
		t.Fatalf("unexpected edit: %+v", edit)
	}
}

func TestParseAppendFenceInfersLanguage(t *testing.T) {
	src := "APPEND blk_000000000000000000000001 code :: ```go\nfmt.Println(1)\n```"
	cmds, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(cmds) != 1 {
		t.Fatalf("expected 1 command, got %d", len(cmds))
	}
	ap, ok := cmds[0].(AppendCommand)
	if !ok {
		t.Fatalf("expected AppendCommand, got %T", cmds[0])
	}
	if ap.BodyKind != AppendBodyFence || ap.BodyLang != "go" || ap.Body != "fmt.Println(1)" {
		t.Fatalf("unexpected append command: %+v", ap)
	}
}

func TestParseAppendPipeTable(t *testing.T) {
	src := "APPEND blk_000000000000000000000001 table :: | a | b |\n| --- | --- |\n| 1 | 2 |"
	cmds, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(cmds) != 1 {
		t.Fatalf("expected 1 command, got %d", len(cmds))
	}
	ap, ok := cmds[0].(AppendCommand)
	if !ok {
		t.Fatalf("expected AppendCommand, got %T", cmds[0])
	}
	if ap.BodyKind != AppendBodyTable {
		t.Fatalf("expected a pipe-table body, got %+v", ap)
	}
	if ap.Body != "| a | b |\n| --- | --- |\n| 1 | 2 |" {
		t.Fatalf("unexpected raw table body %q", ap.Body)
	}
}

func TestParseAtomicBlock(t *testing.T) {
	src := `ATOMIC {
		EDIT blk_000000000000000000000001 SET content.text = "new"
		EDIT blk_000000000000000000000002 SET content.text = "x"
	}`
	cmds, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(cmds) != 1 {
		t.Fatalf("expected 1 top-level command, got %d", len(cmds))
	}
	atomic, ok := cmds[0].(AtomicCommand)
	if !ok {
		t.Fatalf("expected AtomicCommand, got %T", cmds[0])
	}
	if len(atomic.Body) != 2 {
		t.Fatalf("expected 2 body commands, got %d", len(atomic.Body))
	}
}

func TestParseMoveWouldCycleExample(t *testing.T) {
	cmds, err := Parse(`MOVE blk_000000000000000000000001 TO blk_000000000000000000000002`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	mv := cmds[0].(MoveCommand)
	if mv.Kind != MoveTo || mv.Parent != "blk_000000000000000000000002" {
		t.Fatalf("unexpected move: %+v", mv)
	}
}

func TestParseExpandWithQualifiers(t *testing.T) {
	cmds, err := Parse(`EXPAND blk_000000000000000000000001 DOWN DEPTH=5 TAGS=a,b`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	ex := cmds[0].(ExpandCommand)
	if ex.Direction != DirDown || !ex.HasDepth || ex.Depth != 5 {
		t.Fatalf("unexpected expand: %+v", ex)
	}
	if len(ex.Tags) != 2 || ex.Tags[0] != "a" || ex.Tags[1] != "b" {
		t.Fatalf("unexpected tags: %+v", ex.Tags)
	}
}

func TestParsePathRequiresTo(t *testing.T) {
	_, err := Parse(`PATH blk_000000000000000000000001 blk_000000000000000000000002`)
	if err == nil {
		t.Fatal("expected error for missing TO")
	}
}

func TestParseDeleteWhereCondition(t *testing.T) {
	cmds, err := Parse(`DELETE WHERE tags CONTAINS "draft" AND NOT (role = "note")`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	del := cmds[0].(DeleteCommand)
	if del.Where == nil {
		t.Fatal("expected a WHERE condition")
	}
	and, ok := del.Where.(AndCondition)
	if !ok {
		t.Fatalf("expected AndCondition, got %T", del.Where)
	}
	if _, ok := and.Left.(ContainsCondition); !ok {
		t.Fatalf("expected ContainsCondition, got %T", and.Left)
	}
	if _, ok := and.Right.(NotCondition); !ok {
		t.Fatalf("expected NotCondition, got %T", and.Right)
	}
}

func TestParseColonInKeyValueDiagnosed(t *testing.T) {
	_, err := Parse(`APPEND blk_000000000000000000000001 text WITH label: intro :: "body"`)
	if err == nil {
		t.Fatal("expected a diagnosed error for ':' in key-value position")
	}
	ue, ok := err.(*ucerr.Error)
	if !ok {
		t.Fatalf("expected *ucerr.Error, got %T", err)
	}
	if ue.Code != ucerr.CodeColonInKeyValue {
		t.Fatalf("expected %s, got %s", ucerr.CodeColonInKeyValue, ue.Code)
	}
}

func TestParseSnapshotCreateWithDescription(t *testing.T) {
	cmds, err := Parse(`SNAPSHOT CREATE "v1" WITH description="before migration"`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	snap := cmds[0].(SnapshotCommand)
	if snap.Action != SnapshotCreate || snap.Name != "v1" || snap.Description != "before migration" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestParseCtxAddWithReasonAndRelevance(t *testing.T) {
	cmds, err := Parse(`CTX ADD blk_000000000000000000000001 WITH reason="background", relevance=0.8`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	ctx := cmds[0].(CtxCommand)
	if ctx.Action != CtxAdd || ctx.Reason != "background" || !ctx.HasRel || ctx.Relevance != 0.8 {
		t.Fatalf("unexpected ctx: %+v", ctx)
	}
}

func TestParseMultipleStatementsBySemicolonOrNewline(t *testing.T) {
	src := "GOTO blk_000000000000000000000001; BACK 2\nVIEW NEIGHBORHOOD"
	cmds, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(cmds) != 3 {
		t.Fatalf("expected 3 commands, got %d", len(cmds))
	}
}
