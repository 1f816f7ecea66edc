package engine

import (
	"testing"

	"github.com/arthur-debert/ucp/internal/ucp/content"
	"github.com/arthur-debert/ucp/internal/ucp/ucl"
)

func TestAppendToAddOpText(t *testing.T) {
	cmd := ucl.AppendCommand{Parent: "blk_root", ContentType: "text", Body: "hello"}
	add, err := appendToAddOp(cmd)
	if err != nil {
		t.Fatalf("appendToAddOp: %v", err)
	}
	txt, ok := add.Content.(content.Text)
	if !ok || txt.Text != "hello" {
		t.Fatalf("expected text content %q, got %+v", "hello", add.Content)
	}
}

func TestAppendToAddOpCodeWithLanguage(t *testing.T) {
	cmd := ucl.AppendCommand{Parent: "blk_root", ContentType: "code", Props: map[string]string{"language": "go"}, Body: "package main"}
	add, err := appendToAddOp(cmd)
	if err != nil {
		t.Fatalf("appendToAddOp: %v", err)
	}
	code, ok := add.Content.(content.Code)
	if !ok || code.Language != "go" || code.Source != "package main" {
		t.Fatalf("unexpected code content %+v", add.Content)
	}
}

func TestAppendToAddOpRoleAndTags(t *testing.T) {
	cmd := ucl.AppendCommand{
		Parent:      "blk_root",
		ContentType: "text",
		Props:       map[string]string{"role": "heading/h1", "tags": "draft, reviewed"},
		Body:        "Title",
	}
	add, err := appendToAddOp(cmd)
	if err != nil {
		t.Fatalf("appendToAddOp: %v", err)
	}
	if add.Role == nil || add.Role.Category != "heading" || add.Role.Subrole != "h1" {
		t.Fatalf("expected role heading/h1, got %+v", add.Role)
	}
	if _, ok := add.Metadata.Tags["draft"]; !ok {
		t.Fatal("expected draft tag")
	}
	if _, ok := add.Metadata.Tags["reviewed"]; !ok {
		t.Fatal("expected reviewed tag")
	}
}

func TestAppendToAddOpUnsupportedTypeFails(t *testing.T) {
	cmd := ucl.AppendCommand{Parent: "blk_root", ContentType: "table", Body: "irrelevant"}
	if _, err := appendToAddOp(cmd); err == nil {
		t.Fatal("expected table content type to be rejected")
	}
}

func TestAppendToAddOpInvalidJSONFails(t *testing.T) {
	cmd := ucl.AppendCommand{Parent: "blk_root", ContentType: "json", Body: "{not json"}
	if _, err := appendToAddOp(cmd); err == nil {
		t.Fatal("expected malformed JSON body to be rejected")
	}
}

func TestAppendToAddOpFenceInfersLanguageFromInfoString(t *testing.T) {
	cmd := ucl.AppendCommand{Parent: "blk_root", ContentType: "code", Body: "fmt.Println(1)", BodyKind: ucl.AppendBodyFence, BodyLang: "go"}
	add, err := appendToAddOp(cmd)
	if err != nil {
		t.Fatalf("appendToAddOp: %v", err)
	}
	code, ok := add.Content.(content.Code)
	if !ok || code.Language != "go" || code.Source != "fmt.Println(1)" {
		t.Fatalf("unexpected code content %+v", add.Content)
	}
}

func TestAppendToAddOpFenceLanguagePropertyOverridesInfoString(t *testing.T) {
	cmd := ucl.AppendCommand{Parent: "blk_root", ContentType: "code", Props: map[string]string{"language": "python"}, Body: "print(1)", BodyKind: ucl.AppendBodyFence, BodyLang: "go"}
	add, err := appendToAddOp(cmd)
	if err != nil {
		t.Fatalf("appendToAddOp: %v", err)
	}
	code, ok := add.Content.(content.Code)
	if !ok || code.Language != "python" {
		t.Fatalf("expected an explicit language property to win over the fence info string, got %+v", add.Content)
	}
}

func TestAppendToAddOpFenceRejectsMismatchedContentType(t *testing.T) {
	cmd := ucl.AppendCommand{Parent: "blk_root", ContentType: "text", Body: "x := 1", BodyKind: ucl.AppendBodyFence, BodyLang: "go"}
	if _, err := appendToAddOp(cmd); err == nil {
		t.Fatal("expected a fenced body against content type text to be rejected")
	}
}

func TestAppendToAddOpPipeTableBuildsColumnsAndRows(t *testing.T) {
	body := "| quarter | revenue |\n| --- | --- |\n| Q1 | 100 |\n| Q2 | 120 |"
	cmd := ucl.AppendCommand{Parent: "blk_root", ContentType: "table", Body: body, BodyKind: ucl.AppendBodyTable}
	add, err := appendToAddOp(cmd)
	if err != nil {
		t.Fatalf("appendToAddOp: %v", err)
	}
	tbl, ok := add.Content.(content.Table)
	if !ok {
		t.Fatalf("expected table content, got %T", add.Content)
	}
	if len(tbl.Columns) != 2 || tbl.Columns[0].Name != "quarter" || tbl.Columns[1].Name != "revenue" {
		t.Fatalf("unexpected columns %+v", tbl.Columns)
	}
	if len(tbl.Rows) != 2 || tbl.Rows[0][0] != "Q1" || tbl.Rows[1][1] != "120" {
		t.Fatalf("unexpected rows %+v", tbl.Rows)
	}
}

func TestAppendToAddOpPipeTableRejectsMissingSeparatorRow(t *testing.T) {
	cmd := ucl.AppendCommand{Parent: "blk_root", ContentType: "table", Body: "| a | b |\n| 1 | 2 |", BodyKind: ucl.AppendBodyTable}
	if _, err := appendToAddOp(cmd); err == nil {
		t.Fatal("expected a table body without a header separator row to be rejected")
	}
}
