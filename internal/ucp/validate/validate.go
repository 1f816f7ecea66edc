// Package validate implements the staged validation pipeline (§4.3): each
// stage returns severity-tagged diagnostics with a stable code, and a
// document is valid when no stage produces an error-severity diagnostic.
package validate

import (
	"fmt"

	"github.com/arthur-debert/ucp/internal/ucp/document"
	"github.com/arthur-debert/ucp/internal/ucp/ids"
	"github.com/arthur-debert/ucp/internal/ucp/ucerr"
)

// Limits are the resource ceilings enforced by stage 1.
type Limits struct {
	MaxBlockCount      int
	MaxBlockBytes       int
	MaxNestingDepth     int
	MaxEdgesPerBlock    int
	MaxDocumentBytes    int
}

// DefaultLimits mirrors reasonable production ceilings; the CLI's validate
// command runs with these values (internal/config has no validation limits).
var DefaultLimits = Limits{
	MaxBlockCount:    100_000,
	MaxBlockBytes:    1 << 20,
	MaxNestingDepth:  256,
	MaxEdgesPerBlock: 10_000,
	MaxDocumentBytes: 256 << 20,
}

// Validator runs the five-stage pipeline over a document.
type Validator struct {
	Limits Limits
}

func New(limits Limits) *Validator { return &Validator{Limits: limits} }

// Validate runs every stage and returns the combined diagnostics list.
// It never short-circuits: a resource violation does not suppress
// structural diagnostics, so editor integrations see the full picture.
func (v *Validator) Validate(doc *document.Document) []ucerr.Diagnostic {
	var out []ucerr.Diagnostic
	out = append(out, v.resourceLimits(doc)...)
	out = append(out, v.structural(doc)...)
	out = append(out, v.referential(doc)...)
	out = append(out, v.semantic(doc)...)
	out = append(out, v.contentRules(doc)...)
	return out
}

// Valid reports whether diagnostics contain no error-severity entries.
func Valid(diags []ucerr.Diagnostic) bool {
	for _, d := range diags {
		if d.IsError() {
			return false
		}
	}
	return true
}

func (v *Validator) resourceLimits(doc *document.Document) []ucerr.Diagnostic {
	var out []ucerr.Diagnostic
	if len(doc.Blocks) > v.Limits.MaxBlockCount {
		out = append(out, ucerr.Diagnostic{
			Code: ucerr.CodeResourceExceeded, Severity: ucerr.SeverityError,
			Message: fmt.Sprintf("document has %d blocks, exceeding the limit of %d", len(doc.Blocks), v.Limits.MaxBlockCount),
		})
	}
	totalBytes := 0
	for id, b := range doc.Blocks {
		if b.Content == nil {
			continue
		}
		n := len(b.Content.Canonicalize())
		totalBytes += n
		if n > v.Limits.MaxBlockBytes {
			out = append(out, ucerr.Diagnostic{
				Code: ucerr.CodeResourceExceeded, Severity: ucerr.SeverityError,
				Message: fmt.Sprintf("block payload is %d bytes, exceeding the limit of %d", n, v.Limits.MaxBlockBytes),
				BlockID: string(id),
			})
		}
		if len(b.Edges) > v.Limits.MaxEdgesPerBlock {
			out = append(out, ucerr.Diagnostic{
				Code: ucerr.CodeResourceExceeded, Severity: ucerr.SeverityError,
				Message: fmt.Sprintf("block has %d edges, exceeding the limit of %d", len(b.Edges), v.Limits.MaxEdgesPerBlock),
				BlockID: string(id),
			})
		}
	}
	if totalBytes > v.Limits.MaxDocumentBytes {
		out = append(out, ucerr.Diagnostic{
			Code: ucerr.CodeDocumentTooLarge, Severity: ucerr.SeverityError,
			Message: fmt.Sprintf("document is %d bytes, exceeding the limit of %d", totalBytes, v.Limits.MaxDocumentBytes),
		})
	}

	depth := maxDepth(doc, doc.Root, 0, map[ids.BlockId]bool{})
	if depth > v.Limits.MaxNestingDepth {
		out = append(out, ucerr.Diagnostic{
			Code: ucerr.CodeResourceExceeded, Severity: ucerr.SeverityError,
			Message: fmt.Sprintf("document nesting depth is %d, exceeding the limit of %d", depth, v.Limits.MaxNestingDepth),
		})
	}
	return out
}

func maxDepth(doc *document.Document, id ids.BlockId, depth int, seen map[ids.BlockId]bool) int {
	if seen[id] {
		return depth // cycle; structural stage reports this separately
	}
	seen[id] = true
	best := depth
	for _, c := range doc.Structure[id] {
		if d := maxDepth(doc, c, depth+1, seen); d > best {
			best = d
		}
	}
	return best
}

func (v *Validator) structural(doc *document.Document) []ucerr.Diagnostic {
	var out []ucerr.Diagnostic
	for parent, children := range doc.Structure {
		for _, c := range children {
			if _, ok := doc.Blocks[c]; !ok {
				out = append(out, ucerr.Diagnostic{
					Code: ucerr.CodeCycle, Severity: ucerr.SeverityError,
					Message: fmt.Sprintf("structure child %q of %q does not exist", c, parent), BlockID: string(c),
				})
			}
		}
	}

	visited := map[ids.BlockId]bool{}
	var walk func(id ids.BlockId, path map[ids.BlockId]bool) bool
	walk = func(id ids.BlockId, path map[ids.BlockId]bool) bool {
		if path[id] {
			return true
		}
		if visited[id] {
			return false
		}
		visited[id] = true
		path[id] = true
		for _, c := range doc.Structure[id] {
			if walk(c, path) {
				return true
			}
		}
		delete(path, id)
		return false
	}
	if walk(doc.Root, map[ids.BlockId]bool{}) {
		out = append(out, ucerr.Diagnostic{Code: ucerr.CodeCycle, Severity: ucerr.SeverityError, Message: "structure graph contains a cycle"})
	}

	for id := range doc.Blocks {
		if id == doc.Root {
			continue
		}
		if _, ok := doc.Parent(id); !ok {
			out = append(out, ucerr.Diagnostic{
				Code: ucerr.CodeBlockNotFound, Severity: ucerr.SeverityWarning,
				Message: fmt.Sprintf("block %q has no structural parent", id), BlockID: string(id),
			})
		}
	}
	return out
}

func (v *Validator) referential(doc *document.Document) []ucerr.Diagnostic {
	var out []ucerr.Diagnostic
	for id, b := range doc.Blocks {
		for _, e := range b.Edges {
			if _, ok := doc.Blocks[e.Target]; !ok {
				out = append(out, ucerr.Diagnostic{
					Code: ucerr.CodeBlockNotFound, Severity: ucerr.SeverityError,
					Message: fmt.Sprintf("edge target %q does not exist", e.Target), BlockID: string(id),
				})
			}
			if e.Target == id && e.Type != document.EdgeVersionOf {
				out = append(out, ucerr.Diagnostic{
					Code: ucerr.CodeCycle, Severity: ucerr.SeverityError,
					Message: fmt.Sprintf("self-loop edge %q is not allowed for type %q", id, e.Type), BlockID: string(id),
				})
			}
		}
	}
	return out
}

func (v *Validator) semantic(doc *document.Document) []ucerr.Diagnostic {
	var out []ucerr.Diagnostic
	seen := map[string]ids.BlockId{}
	for id, b := range doc.Blocks {
		if b.Metadata.HasLabel {
			if existing, ok := seen[b.Metadata.Label]; ok && existing != id {
				out = append(out, ucerr.Diagnostic{
					Code: ucerr.CodeLabelConflict, Severity: ucerr.SeverityError,
					Message: fmt.Sprintf("label %q is used by both %q and %q", b.Metadata.Label, existing, id), BlockID: string(id),
				})
			}
			seen[b.Metadata.Label] = id
		}
	}

	reachable := map[ids.BlockId]bool{}
	var mark func(id ids.BlockId)
	mark = func(id ids.BlockId) {
		if reachable[id] {
			return
		}
		reachable[id] = true
		for _, c := range doc.Structure[id] {
			mark(c)
		}
	}
	mark(doc.Root)
	for id := range doc.Blocks {
		if !reachable[id] {
			out = append(out, ucerr.Diagnostic{
				Code: ucerr.CodeOrphanBlock, Severity: ucerr.SeverityWarning,
				Message: fmt.Sprintf("block %q is unreachable from root", id), BlockID: string(id),
			})
		}
	}
	return out
}

func (v *Validator) contentRules(doc *document.Document) []ucerr.Diagnostic {
	var out []ucerr.Diagnostic
	for id, b := range doc.Blocks {
		out = append(out, contentDiagnostics(id, b)...)
	}
	return out
}
