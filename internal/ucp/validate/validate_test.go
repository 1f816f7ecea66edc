package validate

import (
	"testing"

	"github.com/arthur-debert/ucp/internal/ucp/content"
	"github.com/arthur-debert/ucp/internal/ucp/document"
)

func TestValidDocumentHasNoErrorDiagnostics(t *testing.T) {
	doc := document.New("test")
	if _, err := doc.AddBlock(doc.Root, content.Text{Text: "hi", Format: content.TextPlain}, nil, document.NewMetadata()); err != nil {
		t.Fatalf("AddBlock: %v", err)
	}
	v := New(DefaultLimits)
	diags := v.Validate(doc)
	if !Valid(diags) {
		t.Fatalf("expected a valid document, got diagnostics: %+v", diags)
	}
}

func TestOrphanBlockProducesWarning(t *testing.T) {
	doc := document.New("test")
	id, err := doc.AddBlock(doc.Root, content.Text{Text: "orphan", Format: content.TextPlain}, nil, document.NewMetadata())
	if err != nil {
		t.Fatalf("AddBlock: %v", err)
	}
	delete(doc.Structure, doc.Root)

	v := New(DefaultLimits)
	diags := v.Validate(doc)
	found := false
	for _, d := range diags {
		if d.BlockID == string(id) && d.Severity == "warning" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an orphan warning for %q, got %+v", id, diags)
	}
}

func TestResourceLimitExceededIsError(t *testing.T) {
	doc := document.New("test")
	if _, err := doc.AddBlock(doc.Root, content.Text{Text: "hi", Format: content.TextPlain}, nil, document.NewMetadata()); err != nil {
		t.Fatalf("AddBlock: %v", err)
	}
	limits := DefaultLimits
	limits.MaxBlockCount = 1
	v := New(limits)
	diags := v.Validate(doc)
	if Valid(diags) {
		t.Fatal("expected resource-limit violation to make the document invalid")
	}
}

func TestCodeBlockRequiresLanguage(t *testing.T) {
	doc := document.New("test")
	if _, err := doc.AddBlock(doc.Root, content.Code{Language: "", Source: "x := 1"}, nil, document.NewMetadata()); err != nil {
		t.Fatalf("AddBlock: %v", err)
	}
	v := New(DefaultLimits)
	diags := v.Validate(doc)
	if Valid(diags) {
		t.Fatal("expected empty code language to be flagged")
	}
}
