// Package pathlang implements the path grammar shared by UCL's EDIT
// command and the engine's EditBlock operation (§4.4 "Path grammar").
// It is deliberately small: a root property, dotted nesting, positional
// and slice indexing, and a JSON-pointer-like mode for addressing into
// Json content.
package pathlang

import (
	"fmt"
	"strconv"
	"strings"
)

// Op is the assignment operator used by EDIT and by WITH/filter clauses.
type Op string

const (
	OpSet    Op = "="
	OpAppend Op = "+="
	OpRemove Op = "-="
)

// Segment is one step of a non-JSON path: either a field name, an index,
// or a slice.
type Segment struct {
	Field      string
	HasIndex   bool
	Index      int
	HasSlice   bool
	SliceStart *int
	SliceEnd   *int
}

// Path is a parsed path expression. JSONMode paths (prefixed with "$")
// address a block's Json content using JSON-pointer-like semantics and
// carry their remainder verbatim in JSONPath; all other paths are
// walked segment by segment.
type Path struct {
	Raw        string
	JSONMode   bool
	JSONPath   string
	Root       string
	Segments   []Segment
}

// Parse parses a path expression per §4.4.
func Parse(s string) (Path, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Path{}, fmt.Errorf("pathlang: empty path")
	}
	if strings.HasPrefix(s, "$") {
		return Path{Raw: s, JSONMode: true, JSONPath: strings.TrimPrefix(s, "$")}, nil
	}

	p := Path{Raw: s}
	i := 0
	// Root identifier.
	start := i
	for i < len(s) && isIdentByte(s[i]) {
		i++
	}
	if i == start {
		return Path{}, fmt.Errorf("pathlang: expected identifier at start of %q", s)
	}
	p.Root = s[start:i]

	for i < len(s) {
		switch s[i] {
		case '.':
			i++
			start := i
			for i < len(s) && isIdentByte(s[i]) {
				i++
			}
			if i == start {
				return Path{}, fmt.Errorf("pathlang: expected identifier after '.' in %q", s)
			}
			p.Segments = append(p.Segments, Segment{Field: s[start:i]})
		case '[':
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				return Path{}, fmt.Errorf("pathlang: unterminated '[' in %q", s)
			}
			inner := s[i+1 : i+end]
			i = i + end + 1
			seg, err := parseBracket(inner)
			if err != nil {
				return Path{}, err
			}
			p.Segments = append(p.Segments, seg)
		default:
			return Path{}, fmt.Errorf("pathlang: unexpected character %q at offset %d in %q", s[i], i, s)
		}
	}
	return p, nil
}

func parseBracket(inner string) (Segment, error) {
	if strings.Contains(inner, ":") {
		parts := strings.SplitN(inner, ":", 2)
		seg := Segment{HasSlice: true}
		if parts[0] != "" {
			v, err := strconv.Atoi(parts[0])
			if err != nil {
				return Segment{}, fmt.Errorf("pathlang: invalid slice start %q", parts[0])
			}
			seg.SliceStart = &v
		}
		if parts[1] != "" {
			v, err := strconv.Atoi(parts[1])
			if err != nil {
				return Segment{}, fmt.Errorf("pathlang: invalid slice end %q", parts[1])
			}
			seg.SliceEnd = &v
		}
		return seg, nil
	}
	v, err := strconv.Atoi(inner)
	if err != nil {
		return Segment{}, fmt.Errorf("pathlang: invalid index %q", inner)
	}
	return Segment{HasIndex: true, Index: v}, nil
}

func isIdentByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// ResolveIndex turns a possibly-negative index into an absolute slice
// index, where -1 means "last element".
func ResolveIndex(idx, length int) int {
	if idx < 0 {
		return length + idx
	}
	return idx
}
