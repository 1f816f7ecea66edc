package translate

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/arthur-debert/ucp/internal/ucp/content"
	"github.com/arthur-debert/ucp/internal/ucp/document"
	"github.com/arthur-debert/ucp/internal/ucp/ids"
	"github.com/arthur-debert/ucp/internal/ucp/ucerr"
)

// Markdown is a minimal, line-oriented Markdown↔Document translator: it
// understands ATX headings ("# " through "###### "), fenced code blocks
// ("```lang" … "```"), and blank-line-separated paragraphs. It is
// sufficient for WriteSection's graft operation (§5) and for round-
// tripping documents through the CLI, not a full CommonMark engine.
type Markdown struct{}

func (Markdown) Capabilities() Capabilities {
	return Capabilities{Formats: []Format{FormatMarkdown}, Streaming: false, Incremental: false, MaxSizeBytes: 64 << 20}
}

type headingFrame struct {
	level int
	id    ids.BlockId
}

// Parse builds a fresh Document from markdown source. The returned
// document's root holds the full tree; callers that only want a
// subtree (as WriteSection does) graft doc.Root's children elsewhere.
func (Markdown) Parse(input []byte, opts ParseOptions) (*document.Document, error) {
	ns := opts.Namespace
	if ns == "" {
		ns = "markdown"
	}
	doc := document.New(ns)
	stack := []headingFrame{{level: 0, id: doc.Root}}

	lines := strings.Split(string(input), "\n")
	var para []string
	flushPara := func() error {
		if len(para) == 0 {
			return nil
		}
		text := strings.TrimSpace(strings.Join(para, "\n"))
		para = nil
		if text == "" {
			return nil
		}
		parent := stack[len(stack)-1].id
		_, err := doc.AddBlock(parent, content.Text{Text: text, Format: content.TextMarkdown}, nil, document.NewMetadata())
		return err
	}

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimRight(line, "\r")

		if fence, lang, ok := fenceInfo(trimmed); ok {
			if err := flushPara(); err != nil {
				return nil, err
			}
			var body []string
			i++
			for i < len(lines) && !strings.HasPrefix(strings.TrimRight(lines[i], "\r"), fence) {
				body = append(body, lines[i])
				i++
			}
			parent := stack[len(stack)-1].id
			if _, err := doc.AddBlock(parent, content.Code{Language: lang, Source: strings.Join(body, "\n")}, nil, document.NewMetadata()); err != nil {
				return nil, err
			}
			continue
		}

		if level, title, ok := headingInfo(trimmed); ok {
			if err := flushPara(); err != nil {
				return nil, err
			}
			for len(stack) > 1 && stack[len(stack)-1].level >= level {
				stack = stack[:len(stack)-1]
			}
			parent := stack[len(stack)-1].id
			meta := document.NewMetadata()
			meta.Role = nil
			meta.Custom["heading_level"] = level
			role := &document.SemanticRole{Category: "heading", Subrole: fmt.Sprintf("h%d", level)}
			id, err := doc.AddBlock(parent, content.Text{Text: title, Format: content.TextMarkdown}, role, meta)
			if err != nil {
				return nil, err
			}
			stack = append(stack, headingFrame{level: level, id: id})
			continue
		}

		if strings.TrimSpace(trimmed) == "" {
			if err := flushPara(); err != nil {
				return nil, err
			}
			continue
		}
		para = append(para, trimmed)
	}
	if err := flushPara(); err != nil {
		return nil, err
	}
	return doc, nil
}

func headingInfo(line string) (level int, title string, ok bool) {
	n := 0
	for n < len(line) && n < 6 && line[n] == '#' {
		n++
	}
	if n == 0 || n >= len(line) || line[n] != ' ' {
		return 0, "", false
	}
	return n, strings.TrimSpace(line[n+1:]), true
}

func fenceInfo(line string) (fence, lang string, ok bool) {
	t := strings.TrimSpace(line)
	if !strings.HasPrefix(t, "```") {
		return "", "", false
	}
	return "```", strings.TrimSpace(strings.TrimPrefix(t, "```")), true
}

// Emit walks the document in structural order and renders it back to
// Markdown, applying opts.HeadingOffset to every heading level.
func (Markdown) Emit(doc *document.Document, opts EmitOptions) ([]byte, error) {
	var buf bytes.Buffer
	var walk func(id ids.BlockId) error
	walk = func(id ids.BlockId) error {
		b, ok := doc.GetBlock(id)
		if !ok {
			return ucerr.NotFound(string(id))
		}
		if id != doc.Root {
			if err := emitBlock(&buf, b, opts); err != nil {
				return err
			}
		}
		for _, c := range doc.Children(id) {
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(doc.Root); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func emitBlock(buf *bytes.Buffer, b *document.Block, opts EmitOptions) error {
	switch c := b.Content.(type) {
	case content.Text:
		if b.Metadata.Role != nil && b.Metadata.Role.Category == "heading" {
			level := headingLevel(b) + opts.HeadingOffset
			level = clampLevel(level)
			buf.WriteString(strings.Repeat("#", level))
			buf.WriteByte(' ')
			buf.WriteString(c.Text)
			buf.WriteString("\n\n")
			return nil
		}
		buf.WriteString(c.Text)
		buf.WriteString("\n\n")
		return nil
	case content.Code:
		buf.WriteString("```")
		buf.WriteString(c.Language)
		buf.WriteByte('\n')
		buf.WriteString(c.Source)
		buf.WriteString("\n```\n\n")
		return nil
	}
	return nil
}

func headingLevel(b *document.Block) int {
	if v, ok := b.Metadata.Custom["heading_level"]; ok {
		if n, ok := v.(int); ok {
			return n
		}
	}
	return 1
}

func clampLevel(level int) int {
	if level < 1 {
		return 1
	}
	if level > 6 {
		return 6
	}
	return level
}
