package engine

import (
	"testing"

	"github.com/arthur-debert/ucp/internal/ucp/content"
	"github.com/arthur-debert/ucp/internal/ucp/document"
	"github.com/arthur-debert/ucp/internal/ucp/ucl"
)

func blockWith(t *testing.T, text string, role *document.SemanticRole, meta document.Metadata) *document.Block {
	t.Helper()
	return &document.Block{
		ID:       "blk_test",
		Content:  content.Text{Text: text, Format: content.TextPlain},
		Metadata: meta,
		Version:  1,
	}
}

func TestEvaluateConditionComparison(t *testing.T) {
	meta := document.NewMetadata()
	meta.Role = &document.SemanticRole{Category: "heading", Subrole: "h1"}
	b := blockWith(t, "Intro", meta.Role, meta)

	ok, err := evaluateCondition(ucl.Comparison{Field: "role.category", Op: "=", Value: "heading"}, b)
	if err != nil || !ok {
		t.Fatalf("expected role.category = heading to match, got ok=%v err=%v", ok, err)
	}
	ok, err = evaluateCondition(ucl.Comparison{Field: "role.category", Op: "!=", Value: "paragraph"}, b)
	if err != nil || !ok {
		t.Fatalf("expected role.category != paragraph to match, got ok=%v err=%v", ok, err)
	}
}

func TestEvaluateConditionContainsText(t *testing.T) {
	meta := document.NewMetadata()
	b := blockWith(t, "the quick brown fox", nil, meta)

	ok, err := evaluateCondition(ucl.ContainsCondition{Field: "content.text", Value: "brown"}, b)
	if err != nil || !ok {
		t.Fatalf("expected CONTAINS brown to match, got ok=%v err=%v", ok, err)
	}
	ok, err = evaluateCondition(ucl.ContainsCondition{Field: "content.text", Value: "purple"}, b)
	if err != nil || ok {
		t.Fatalf("expected CONTAINS purple to not match, got ok=%v err=%v", ok, err)
	}
}

func TestEvaluateConditionContainsTag(t *testing.T) {
	meta := document.NewMetadata()
	meta.Tags["draft"] = struct{}{}
	b := blockWith(t, "hello", nil, meta)

	ok, err := evaluateCondition(ucl.ContainsCondition{Field: "tags", Value: "draft"}, b)
	if err != nil || !ok {
		t.Fatalf("expected tags to contain draft, got ok=%v err=%v", ok, err)
	}
}

func TestEvaluateConditionMatchesRegex(t *testing.T) {
	meta := document.NewMetadata()
	b := blockWith(t, "order-1234", nil, meta)

	ok, err := evaluateCondition(ucl.MatchesCondition{Field: "content.text", Pattern: `^order-\d+$`}, b)
	if err != nil || !ok {
		t.Fatalf("expected regex match, got ok=%v err=%v", ok, err)
	}
}

func TestEvaluateConditionAndOrNot(t *testing.T) {
	meta := document.NewMetadata()
	meta.Role = &document.SemanticRole{Category: "heading", Subrole: "h1"}
	b := blockWith(t, "Intro", meta.Role, meta)

	and := ucl.AndCondition{
		Left:  ucl.Comparison{Field: "role.category", Op: "=", Value: "heading"},
		Right: ucl.ContainsCondition{Field: "content.text", Value: "Intro"},
	}
	ok, err := evaluateCondition(and, b)
	if err != nil || !ok {
		t.Fatalf("expected AND to match, got ok=%v err=%v", ok, err)
	}

	not := ucl.NotCondition{Inner: ucl.Comparison{Field: "role.category", Op: "=", Value: "paragraph"}}
	ok, err = evaluateCondition(not, b)
	if err != nil || !ok {
		t.Fatalf("expected NOT paragraph to match, got ok=%v err=%v", ok, err)
	}

	or := ucl.OrCondition{
		Left:  ucl.Comparison{Field: "role.category", Op: "=", Value: "paragraph"},
		Right: ucl.Comparison{Field: "role.category", Op: "=", Value: "heading"},
	}
	ok, err = evaluateCondition(or, b)
	if err != nil || !ok {
		t.Fatalf("expected OR to match on the second branch, got ok=%v err=%v", ok, err)
	}
}

func TestEvaluateConditionMissingFieldDoesNotMatch(t *testing.T) {
	meta := document.NewMetadata()
	b := blockWith(t, "hello", nil, meta)

	ok, err := evaluateCondition(ucl.Comparison{Field: "role.category", Op: "=", Value: "heading"}, b)
	if err != nil || ok {
		t.Fatalf("expected a missing role field to not match, got ok=%v err=%v", ok, err)
	}
}
