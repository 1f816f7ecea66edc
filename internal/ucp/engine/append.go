package engine

import (
	"encoding/json"
	"strings"

	"github.com/arthur-debert/ucp/internal/ucp/content"
	"github.com/arthur-debert/ucp/internal/ucp/document"
	"github.com/arthur-debert/ucp/internal/ucp/ids"
	"github.com/arthur-debert/ucp/internal/ucp/ucerr"
	"github.com/arthur-debert/ucp/internal/ucp/ucl"
)

// appendToAddOp translates an APPEND statement's free-form content-type
// identifier, WITH properties, and "::" body into an AddOp. The "::"
// body takes one of three surface forms (§4.4): a quoted string, a
// fenced code block, or a pipe-style table literal; MEDIA, BINARY, and
// COMPOSITE need structured fields none of the three forms carry and
// are rejected with CodeTypeMismatch rather than guessed at.
func appendToAddOp(c ucl.AppendCommand) (*AddOp, error) {
	body, err := buildContent(strings.ToLower(c.ContentType), c)
	if err != nil {
		return nil, err
	}
	meta := document.NewMetadata()
	var role *document.SemanticRole
	for k, v := range c.Props {
		switch k {
		case "label":
			meta.Label = v
			meta.HasLabel = true
		case "tags":
			for _, tag := range strings.Split(v, ",") {
				tag = strings.TrimSpace(tag)
				if tag != "" {
					meta.Tags[tag] = struct{}{}
				}
			}
		case "role":
			cat, sub, _ := strings.Cut(v, "/")
			role = &document.SemanticRole{Category: cat, Subrole: sub}
		}
	}
	return &AddOp{Parent: ids.BlockId(c.Parent), Content: body, Role: role, Metadata: meta}, nil
}

func buildContent(ctype string, c ucl.AppendCommand) (content.Content, error) {
	body, props := c.Body, c.Props

	if c.BodyKind == ucl.AppendBodyTable {
		if ctype != "" && ctype != "table" {
			return nil, ucerr.New(ucerr.KindValidation, ucerr.CodeTypeMismatch, "APPEND content type "+ctype+" cannot take a pipe-table body")
		}
		return buildTableContent(body, props)
	}

	if c.BodyKind == ucl.AppendBodyFence {
		if ctype != "" && ctype != "code" {
			return nil, ucerr.New(ucerr.KindValidation, ucerr.CodeTypeMismatch, "APPEND content type "+ctype+" cannot take a fenced-code body")
		}
		lang := props["language"]
		if lang == "" {
			lang = c.BodyLang
		}
		return content.Code{Language: lang, Source: body}, nil
	}

	switch ctype {
	case "", "text":
		format := content.TextPlain
		if f, ok := props["format"]; ok {
			format = content.TextFormat(f)
		}
		return content.Text{Text: body, Format: format}, nil
	case "code":
		return content.Code{Language: props["language"], Source: body}, nil
	case "math":
		format := content.MathLatex
		if f, ok := props["format"]; ok {
			format = content.MathFormat(f)
		}
		return content.Math{Format: format, Expression: body, Display: strings.EqualFold(props["display"], "true")}, nil
	case "json":
		var v any
		if err := json.Unmarshal([]byte(body), &v); err != nil {
			return nil, ucerr.Wrap(ucerr.KindValidation, ucerr.CodeSchemaViolation, "APPEND json body is not valid JSON", err)
		}
		return content.JSON{Value: v, Schema: props["schema"]}, nil
	}
	return nil, ucerr.New(ucerr.KindValidation, ucerr.CodeTypeMismatch, "APPEND does not support content type "+ctype+"; MEDIA, BINARY, and COMPOSITE require structured construction no APPEND body form carries")
}

// buildTableContent parses a pipe-style table literal (§4.4):
//
//	| col1 | col2 |
//	| ---- | ---- |
//	| a    | b    |
//
// The second line is a header separator and is only checked for shape,
// not content; any cell of dashes/colons is accepted. Column types are
// not inferred from cell contents — every column is typed "string" —
// since the grammar gives no other source of truth for them.
func buildTableContent(body string, props map[string]string) (content.Content, error) {
	var lines []string
	for _, ln := range strings.Split(body, "\n") {
		ln = strings.TrimSpace(ln)
		if ln == "" {
			continue
		}
		lines = append(lines, ln)
	}
	if len(lines) < 2 {
		return nil, ucerr.New(ucerr.KindValidation, ucerr.CodeSchemaViolation, "APPEND pipe-table body needs a header row and a separator row")
	}

	header := splitTableRow(lines[0])
	if len(header) == 0 {
		return nil, ucerr.New(ucerr.KindValidation, ucerr.CodeSchemaViolation, "APPEND pipe-table header row is empty")
	}
	for _, cell := range splitTableRow(lines[1]) {
		if strings.Trim(cell, "-: ") != "" {
			return nil, ucerr.New(ucerr.KindValidation, ucerr.CodeSchemaViolation, "APPEND pipe-table second row must be a header separator (---)")
		}
	}

	columns := make([]content.Column, len(header))
	for i, name := range header {
		columns[i] = content.Column{Name: name, Type: "string"}
	}

	rows := make([][]string, 0, len(lines)-2)
	for _, ln := range lines[2:] {
		rows = append(rows, splitTableRow(ln))
	}

	return content.Table{Columns: columns, Rows: rows, Schema: props["schema"]}, nil
}

// splitTableRow splits one "| a | b |" line into trimmed cells,
// tolerating missing leading/trailing pipes.
func splitTableRow(line string) []string {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "|")
	line = strings.TrimSuffix(line, "|")
	parts := strings.Split(line, "|")
	cells := make([]string, len(parts))
	for i, p := range parts {
		cells[i] = strings.TrimSpace(p)
	}
	return cells
}
