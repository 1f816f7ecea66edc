package document

import (
	"fmt"
	"strings"

	"github.com/arthur-debert/ucp/internal/ucp/content"
	"github.com/arthur-debert/ucp/internal/ucp/pathlang"
	"github.com/arthur-debert/ucp/internal/ucp/ucerr"
)

// Patch is a parsed, path-scoped mutation as produced by UCL's EDIT
// command or issued directly against the engine (§4.4, §4.2 EditBlock).
type Patch struct {
	Path  pathlang.Path
	Op    pathlang.Op
	Value any
}

// TouchesContent reports whether applying the patch can change the
// block's content (and therefore, potentially, its id).
func (p Patch) TouchesContent() bool {
	return p.Path.JSONMode || p.Path.Root == "content"
}

func applyPatch(c content.Content, meta Metadata, patch Patch) (content.Content, *SemanticRole, Metadata, error) {
	newMeta := meta.Clone()
	role := meta.Role

	if patch.Path.JSONMode {
		j, ok := c.(content.JSON)
		if !ok {
			return c, role, newMeta, ucerr.New(ucerr.KindValidation, ucerr.CodeTypeMismatch, "$ paths only address json content")
		}
		newVal, err := applyJSONPointer(j.Value, patch.Path.JSONPath, patch.Op, patch.Value)
		if err != nil {
			return c, role, newMeta, err
		}
		j.Value = newVal
		return j, role, newMeta, nil
	}

	switch patch.Path.Root {
	case "content":
		newContent, err := applyContentPatch(c, patch)
		if err != nil {
			return c, role, newMeta, err
		}
		return newContent, role, newMeta, nil
	case "metadata":
		newRole, err := applyMetadataPatch(&newMeta, role, patch)
		if err != nil {
			return c, role, newMeta, err
		}
		return c, newRole, newMeta, nil
	default:
		return c, role, newMeta, ucerr.New(ucerr.KindValidation, ucerr.CodeInvalidPath, fmt.Sprintf("unknown path root %q", patch.Path.Root))
	}
}

func field(patch Patch) (string, error) {
	if len(patch.Path.Segments) == 0 {
		return "", ucerr.New(ucerr.KindValidation, ucerr.CodeInvalidPath, "path has no nested field")
	}
	return patch.Path.Segments[0].Field, nil
}

func applyContentPatch(c content.Content, patch Patch) (content.Content, error) {
	f, err := field(patch)
	if err != nil {
		return c, err
	}
	asStr := func() (string, error) {
		s, ok := patch.Value.(string)
		if !ok {
			return "", ucerr.New(ucerr.KindValidation, ucerr.CodeTypeMismatch, fmt.Sprintf("field %q expects a string value", f))
		}
		return s, nil
	}

	switch v := c.(type) {
	case content.Text:
		if f == "text" {
			s, err := asStr()
			if err != nil {
				return c, err
			}
			switch patch.Op {
			case pathlang.OpSet:
				v.Text = s
			case pathlang.OpAppend:
				v.Text += s
			default:
				return c, ucerr.New(ucerr.KindValidation, ucerr.CodeInvalidPath, "unsupported operator for content.text")
			}
			return v, nil
		}
		if f == "format" {
			s, err := asStr()
			if err != nil {
				return c, err
			}
			v.Format = content.TextFormat(s)
			return v, nil
		}
	case content.Code:
		if f == "source" {
			s, err := asStr()
			if err != nil {
				return c, err
			}
			if patch.Op == pathlang.OpAppend {
				v.Source += s
			} else {
				v.Source = s
			}
			return v, nil
		}
		if f == "language" {
			s, err := asStr()
			if err != nil {
				return c, err
			}
			v.Language = s
			return v, nil
		}
	case content.Math:
		if f == "expression" {
			s, err := asStr()
			if err != nil {
				return c, err
			}
			v.Expression = s
			return v, nil
		}
		if f == "display" {
			b, ok := patch.Value.(bool)
			if !ok {
				return c, ucerr.New(ucerr.KindValidation, ucerr.CodeTypeMismatch, "field \"display\" expects a bool value")
			}
			v.Display = b
			return v, nil
		}
	case content.JSON:
		if f == "value" {
			v.Value = patch.Value
			return v, nil
		}
		if f == "schema" {
			s, err := asStr()
			if err != nil {
				return c, err
			}
			v.Schema = s
			return v, nil
		}
	case content.Media:
		if f == "alt_text" {
			s, err := asStr()
			if err != nil {
				return c, err
			}
			v.AltText = s
			return v, nil
		}
	case content.Binary:
		if f == "mime_type" {
			s, err := asStr()
			if err != nil {
				return c, err
			}
			v.MIMEType = s
			return v, nil
		}
	}
	return c, ucerr.New(ucerr.KindValidation, ucerr.CodeInvalidPath, fmt.Sprintf("field %q is not patchable on %T", f, c))
}

func applyMetadataPatch(meta *Metadata, role *SemanticRole, patch Patch) (*SemanticRole, error) {
	f, err := field(patch)
	if err != nil {
		return role, err
	}
	switch f {
	case "label":
		s, ok := patch.Value.(string)
		if !ok {
			return role, ucerr.New(ucerr.KindValidation, ucerr.CodeTypeMismatch, "metadata.label expects a string value")
		}
		meta.Label = s
		meta.HasLabel = s != ""
		return role, nil
	case "token_estimate":
		n, ok := asInt(patch.Value)
		if !ok {
			return role, ucerr.New(ucerr.KindValidation, ucerr.CodeTypeMismatch, "metadata.token_estimate expects a number")
		}
		meta.TokenEstimate = n
		return role, nil
	case "tags":
		s, ok := patch.Value.(string)
		if !ok {
			return role, ucerr.New(ucerr.KindValidation, ucerr.CodeTypeMismatch, "metadata.tags expects a string value")
		}
		switch patch.Op {
		case pathlang.OpAppend:
			meta.Tags[s] = struct{}{}
		case pathlang.OpRemove:
			delete(meta.Tags, s)
		default:
			meta.Tags = map[string]struct{}{s: {}}
		}
		return role, nil
	case "role":
		s, ok := patch.Value.(string)
		if !ok {
			return role, ucerr.New(ucerr.KindValidation, ucerr.CodeTypeMismatch, "metadata.role expects \"category/subrole\"")
		}
		cat, sub, _ := strings.Cut(s, "/")
		return &SemanticRole{Category: cat, Subrole: sub}, nil
	}
	if f == "custom" && len(patch.Path.Segments) >= 2 {
		key := patch.Path.Segments[1].Field
		meta.Custom[key] = patch.Value
		return role, nil
	}
	return role, ucerr.New(ucerr.KindValidation, ucerr.CodeInvalidPath, fmt.Sprintf("unknown metadata field %q", f))
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

// applyJSONPointer applies a patch to a Json block's value following a
// dotted / bracketed JSON-pointer-like path (§4.4).
func applyJSONPointer(root any, path string, op pathlang.Op, value any) (any, error) {
	p, err := pathlang.Parse("x" + path) // reuse the same segment grammar after a dummy root
	if err != nil {
		return root, ucerr.New(ucerr.KindValidation, ucerr.CodeInvalidPath, err.Error())
	}
	if len(p.Segments) == 0 {
		return value, nil
	}
	return setByPath(root, p.Segments, op, value)
}

func setByPath(node any, segs []pathlang.Segment, op pathlang.Op, value any) (any, error) {
	seg := segs[0]
	last := len(segs) == 1

	if seg.Field != "" {
		m, ok := node.(map[string]any)
		if !ok {
			m = map[string]any{}
		}
		if last {
			applyLeaf(m, seg.Field, op, value)
			return m, nil
		}
		child, err := setByPath(m[seg.Field], segs[1:], op, value)
		if err != nil {
			return node, err
		}
		m[seg.Field] = child
		return m, nil
	}

	if seg.HasIndex {
		arr, _ := node.([]any)
		idx := pathlang.ResolveIndex(seg.Index, len(arr))
		for idx >= len(arr) {
			arr = append(arr, nil)
		}
		if last {
			switch op {
			case pathlang.OpRemove:
				arr = append(arr[:idx], arr[idx+1:]...)
			default:
				arr[idx] = value
			}
			return arr, nil
		}
		child, err := setByPath(arr[idx], segs[1:], op, value)
		if err != nil {
			return node, err
		}
		arr[idx] = child
		return arr, nil
	}

	return node, ucerr.New(ucerr.KindValidation, ucerr.CodeInvalidPath, "slice assignment is not supported in json patches")
}

func applyLeaf(m map[string]any, field string, op pathlang.Op, value any) {
	switch op {
	case pathlang.OpRemove:
		delete(m, field)
	default:
		m[field] = value
	}
}
