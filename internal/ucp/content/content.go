// Package content implements the closed set of content variants (§3.2) and
// their canonicalization rules. Canonical bytes are what the ids package
// hashes to derive a BlockId, so every rule here must be deterministic
// across runs and platforms.
package content

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Type is the discriminator tag mirrored in the serialized format (§6.1).
type Type string

const (
	TypeText      Type = "text"
	TypeCode      Type = "code"
	TypeTable     Type = "table"
	TypeMath      Type = "math"
	TypeMedia     Type = "media"
	TypeJSON      Type = "json"
	TypeBinary    Type = "binary"
	TypeComposite Type = "composite"
)

// Content is the closed tagged variant every block holds exactly one of.
// Adding a new implementation is a breaking change: canonicalization,
// validation, and serialization all key off Type().
type Content interface {
	Type() Type
	// Canonicalize returns the deterministic byte serialization used for
	// hashing (§4.1) and for the "canonical mode" round-trip guarantee.
	Canonicalize() []byte
}

// --- Text -------------------------------------------------------------

type TextFormat string

const (
	TextPlain    TextFormat = "plain"
	TextMarkdown TextFormat = "markdown"
	TextRich     TextFormat = "rich"
)

type Text struct {
	Text   string
	Format TextFormat
}

func (Text) Type() Type { return TypeText }

// Canonicalize applies Unicode NFC, normalizes line endings to LF,
// collapses runs of whitespace to a single space, and trims the result.
func (t Text) Canonicalize() []byte {
	s := norm.NFC.String(t.Text)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = collapseWhitespace(s)
	return []byte(strings.TrimSpace(s))
}

func collapseWhitespace(s string) string {
	var b strings.Builder
	inSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\v' || r == '\f' {
			if !inSpace {
				b.WriteByte(' ')
				inSpace = true
			}
			continue
		}
		inSpace = false
		b.WriteRune(r)
	}
	return b.String()
}

// --- Code ---------------------------------------------------------------

type HighlightRange struct {
	Start, End int
}

type Code struct {
	Language  string
	Source    string
	Highlight []HighlightRange
}

func (Code) Type() Type { return TypeCode }

// Canonicalize preserves source bytes verbatim; only the language tag is
// folded in so identical source under different languages hashes distinctly.
func (c Code) Canonicalize() []byte {
	var buf bytes.Buffer
	buf.WriteString(c.Language)
	buf.WriteByte(0)
	buf.WriteString(c.Source)
	return buf.Bytes()
}

// --- Table ----------------------------------------------------------------

type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type Table struct {
	Columns []Column
	Rows    [][]string
	Schema  string
}

func (Table) Type() Type { return TypeTable }

const (
	unitSeparator   = "\x1f"
	recordSeparator = "\x1e"
)

// Canonicalize serializes header then rows, cells joined by the ASCII
// unit separator and rows by the ASCII record separator.
func (tb Table) Canonicalize() []byte {
	header := make([]string, len(tb.Columns))
	for i, c := range tb.Columns {
		header[i] = c.Name + ":" + c.Type
	}
	lines := []string{strings.Join(header, unitSeparator)}
	for _, row := range tb.Rows {
		lines = append(lines, strings.Join(row, unitSeparator))
	}
	return []byte(strings.Join(lines, recordSeparator))
}

// --- Math -------------------------------------------------------------

type MathFormat string

const (
	MathLatex     MathFormat = "latex"
	MathMathML    MathFormat = "mathml"
	MathAsciiMath MathFormat = "asciimath"
)

type Math struct {
	Format     MathFormat
	Expression string
	Display    bool
}

func (Math) Type() Type { return TypeMath }

func (m Math) Canonicalize() []byte {
	disp := "0"
	if m.Display {
		disp = "1"
	}
	return []byte(string(m.Format) + ":" + disp + ":" + m.Expression)
}

// --- Media ------------------------------------------------------------

type MediaSourceKind string

const (
	MediaSourceURL           MediaSourceKind = "url"
	MediaSourceBase64        MediaSourceKind = "base64"
	MediaSourceBlockRef      MediaSourceKind = "block_reference"
	MediaSourceExternal      MediaSourceKind = "external"
)

type MediaSource struct {
	Kind    MediaSourceKind
	Payload string // url, base64 blob, block id, or external locator
}

type Media struct {
	MediaType   string
	Source      MediaSource
	AltText     string
	ContentHash [32]byte
	HasHash     bool
}

func (Media) Type() Type { return TypeMedia }

// Canonicalize serializes the source tag followed by the payload identifier.
func (m Media) Canonicalize() []byte {
	return []byte(m.MediaType + ":" + string(m.Source.Kind) + ":" + m.Source.Payload)
}

// --- JSON -------------------------------------------------------------

type JSON struct {
	Value  any
	Schema string
}

func (JSON) Type() Type { return TypeJSON }

// Canonicalize produces RFC 8785 canonical JSON: sorted object keys, no
// insignificant whitespace. No third-party JCS implementation exists in
// the studied corpus, so this is hand-rolled over encoding/json values
// (see DESIGN.md for the standard-library justification).
func (j JSON) Canonicalize() []byte {
	var buf bytes.Buffer
	writeCanonicalJSON(&buf, j.Value)
	return buf.Bytes()
}

func writeCanonicalJSON(buf *bytes.Buffer, v any) {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case string:
		buf.WriteString(fmt.Sprintf("%q", val))
	case float64:
		buf.WriteString(formatCanonicalNumber(val))
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(fmt.Sprintf("%q", k))
			buf.WriteByte(':')
			writeCanonicalJSON(buf, val[k])
		}
		buf.WriteByte('}')
	case []any:
		buf.WriteByte('[')
		for i, e := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeCanonicalJSON(buf, e)
		}
		buf.WriteByte(']')
	default:
		buf.WriteString(fmt.Sprintf("%q", fmt.Sprint(val)))
	}
}

func formatCanonicalNumber(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}

// --- Binary -------------------------------------------------------------

type Binary struct {
	MIMEType string
	Payload  []byte
}

func (Binary) Type() Type { return TypeBinary }

func (b Binary) Canonicalize() []byte {
	var buf bytes.Buffer
	buf.WriteString(b.MIMEType)
	buf.WriteByte(0)
	buf.Write(b.Payload)
	return buf.Bytes()
}

// --- Composite ------------------------------------------------------------

type Layout string

const (
	LayoutVertical   Layout = "vertical"
	LayoutHorizontal Layout = "horizontal"
	LayoutTabs       Layout = "tabs"
)

// GridLayout builds a Layout value for a grid with n columns.
func GridLayout(n int) Layout { return Layout(fmt.Sprintf("grid(%d)", n)) }

type Composite struct {
	Layout   Layout
	Children []string // ordered child BlockId values, as strings to avoid an import cycle
}

func (Composite) Type() Type { return TypeComposite }

func (c Composite) Canonicalize() []byte {
	return []byte(string(c.Layout) + ":" + strings.Join(c.Children, ","))
}
