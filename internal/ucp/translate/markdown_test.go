package translate

import (
	"strings"
	"testing"

	"github.com/arthur-debert/ucp/internal/ucp/content"
)

func TestParseBuildsHeadingHierarchy(t *testing.T) {
	src := `# Title

Intro paragraph.

## Section One

Body text here.

### Subsection

` + "```go\nfmt.Println(\"hi\")\n```"

	doc, err := Markdown{}.Parse([]byte(src), ParseOptions{Namespace: "doc"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	rootChildren := doc.Children(doc.Root)
	if len(rootChildren) != 1 {
		t.Fatalf("expected one top-level heading, got %d", len(rootChildren))
	}
	title, ok := doc.GetBlock(rootChildren[0])
	if !ok {
		t.Fatal("missing title block")
	}
	if title.Metadata.Role == nil || title.Metadata.Role.Category != "heading" {
		t.Fatalf("expected title block to carry a heading role, got %+v", title.Metadata.Role)
	}

	children := doc.Children(rootChildren[0])
	if len(children) != 2 {
		t.Fatalf("expected intro paragraph + section under the title, got %d", len(children))
	}
	section, ok := doc.GetBlock(children[1])
	if !ok || section.Metadata.Role == nil || section.Metadata.Role.Subrole != "h2" {
		t.Fatalf("expected second child to be an h2 section, got %+v", section)
	}

	sectionChildren := doc.Children(children[1])
	if len(sectionChildren) != 2 {
		t.Fatalf("expected body paragraph + subsection under the section, got %d", len(sectionChildren))
	}
	subsection, ok := doc.GetBlock(sectionChildren[1])
	if !ok || subsection.Metadata.Role.Subrole != "h3" {
		t.Fatalf("expected third nested child to be an h3 subsection, got %+v", subsection)
	}
	codeChildren := doc.Children(sectionChildren[1])
	if len(codeChildren) != 1 {
		t.Fatalf("expected fenced code block nested under the subsection, got %d", len(codeChildren))
	}
	code, ok := doc.GetBlock(codeChildren[0])
	if !ok {
		t.Fatal("missing code block")
	}
	c, ok := code.Content.(content.Code)
	if !ok {
		t.Fatalf("expected code content, got %T", code.Content)
	}
	if c.Language != "go" {
		t.Fatalf("expected fence language 'go', got %q", c.Language)
	}
}

func TestEmitRoundTripsHeadingsAndCode(t *testing.T) {
	src := "# Title\n\nBody.\n\n```python\nprint(1)\n```\n\n"
	doc, err := Markdown{}.Parse([]byte(src), ParseOptions{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	out, err := Markdown{}.Emit(doc, EmitOptions{})
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	rendered := string(out)
	if !strings.Contains(rendered, "# Title") {
		t.Fatalf("expected rendered heading, got %q", rendered)
	}
	if !strings.Contains(rendered, "```python") {
		t.Fatalf("expected rendered fence with language, got %q", rendered)
	}
}

func TestEmitAppliesHeadingOffset(t *testing.T) {
	doc, err := Markdown{}.Parse([]byte("# Title\n\nBody.\n"), ParseOptions{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	out, err := Markdown{}.Emit(doc, EmitOptions{HeadingOffset: 2})
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if !strings.Contains(string(out), "### Title") {
		t.Fatalf("expected heading shifted to level 3, got %q", string(out))
	}
}

func TestCapabilitiesAdvertisesMarkdownOnly(t *testing.T) {
	caps := Markdown{}.Capabilities()
	if len(caps.Formats) != 1 || caps.Formats[0] != FormatMarkdown {
		t.Fatalf("expected only markdown advertised, got %v", caps.Formats)
	}
	if caps.Streaming || caps.Incremental {
		t.Fatal("expected neither streaming nor incremental support")
	}
}
