package engine

import (
	"context"
	"fmt"

	"github.com/arthur-debert/ucp/internal/ucp/content"
	"github.com/arthur-debert/ucp/internal/ucp/document"
	"github.com/arthur-debert/ucp/internal/ucp/events"
	"github.com/arthur-debert/ucp/internal/ucp/ids"
	"github.com/arthur-debert/ucp/internal/ucp/translate"
	"github.com/arthur-debert/ucp/internal/ucp/ucerr"
)

// WriteSectionUndo carries everything WriteSection needs to restore a
// section's prior content, as Markdown rendered from the displaced
// subtree (§5 "undo-capable variant").
type WriteSectionUndo struct {
	SectionID     ids.BlockId
	PriorMarkdown string
	HadContent    bool
}

// WriteSection parses markdown, grafts it under section (replacing its
// children when clear is true, appending otherwise), and re-levels
// every heading inside the grafted subtree to start at section's own
// heading level + 1 (§5). The whole operation runs inside one
// transaction: any failure leaves the section untouched.
func (e *Engine) WriteSection(ctx context.Context, section ids.BlockId, markdown string, clear bool) (Result, WriteSectionUndo, error) {
	if err := e.Begin(ctx, ""); err != nil {
		return Result{}, WriteSectionUndo{}, err
	}

	undo, err := e.writeSectionLocked(ctx, section, markdown, clear)
	if err != nil {
		_ = e.Rollback(ctx, "")
		e.events.EmitError(ctx, events.KindOperation, "write_section failed", err, "block", string(section))
		return Result{}, WriteSectionUndo{}, err
	}
	if err := e.Commit(ctx, ""); err != nil {
		return Result{}, WriteSectionUndo{}, err
	}
	e.events.Emit(ctx, events.KindOperation, "write_section applied", "block", string(section))

	e.Doc.RLock()
	version := e.Doc.Version
	e.Doc.RUnlock()
	return Result{Kind: OpWriteSection, CreatedID: section, NewVersion: version}, undo, nil
}

func (e *Engine) writeSectionLocked(ctx context.Context, section ids.BlockId, markdown string, clear bool) (WriteSectionUndo, error) {
	e.Doc.Lock()
	sectionBlock, ok := e.Doc.GetBlock(section)
	if !ok {
		e.Doc.Unlock()
		return WriteSectionUndo{}, ucerr.NotFound(string(section))
	}
	baseLevel := 0
	if sectionBlock.Metadata.Role != nil && sectionBlock.Metadata.Role.Category == "heading" {
		baseLevel = headingLevelOf(sectionBlock)
	}
	existingChildren := append([]ids.BlockId(nil), e.Doc.Children(section)...)
	e.Doc.Unlock()

	undo := WriteSectionUndo{SectionID: section, HadContent: len(existingChildren) > 0}
	if len(existingChildren) > 0 {
		rendered, err := e.renderSubtreeMarkdown(section)
		if err != nil {
			return WriteSectionUndo{}, err
		}
		undo.PriorMarkdown = rendered
	}

	if clear {
		for _, c := range existingChildren {
			if _, err := e.Execute(ctx, Operation{Kind: OpDelete, Delete: &DeleteOp{Block: c, Mode: document.DeleteCascade}}); err != nil {
				return WriteSectionUndo{}, err
			}
		}
	}

	temp, err := (translate.Markdown{}).Parse([]byte(markdown), translate.ParseOptions{Namespace: e.Doc.Namespace})
	if err != nil {
		return WriteSectionUndo{}, ucerr.Wrap(ucerr.KindSyntax, ucerr.CodeMalformedCommand, "failed to parse write_section markdown", err)
	}

	if err := e.graft(ctx, temp, temp.Root, section, baseLevel); err != nil {
		return WriteSectionUndo{}, err
	}
	return undo, nil
}

// graft copies srcParent's children (recursively) from src into dest
// under destParent, adding offset to every heading level encountered so
// the grafted subtree starts one level below destParent.
func (e *Engine) graft(ctx context.Context, src *document.Document, srcParent, destParent ids.BlockId, offset int) error {
	for _, childID := range src.Children(srcParent) {
		child, ok := src.GetBlock(childID)
		if !ok {
			continue
		}
		newContent := child.Content
		role := child.Metadata.Role
		meta := child.Metadata.Clone()
		if role != nil && role.Category == "heading" {
			level := clampHeadingLevel(levelFromRole(role) + offset)
			role = &document.SemanticRole{Category: "heading", Subrole: fmt.Sprintf("h%d", level)}
			meta.Custom["heading_level"] = level
			if t, ok := newContent.(content.Text); ok {
				newContent = t // text unchanged; only role/level shifted
			}
		}
		res, err := e.Execute(ctx, Operation{Kind: OpAdd, Add: &AddOp{Parent: destParent, Content: newContent, Role: role, Metadata: meta}})
		if err != nil {
			return err
		}
		if err := e.graft(ctx, src, childID, res.CreatedID, offset); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) renderSubtreeMarkdown(section ids.BlockId) (string, error) {
	e.Doc.RLock()
	defer e.Doc.RUnlock()
	sub := subtreeDocument(e.Doc, section)
	out, err := (translate.Markdown{}).Emit(sub, translate.EmitOptions{})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// subtreeDocument builds a standalone document whose root stands in for
// id, so the Markdown translator can emit just that subtree.
func subtreeDocument(d *document.Document, id ids.BlockId) *document.Document {
	nd := document.New(d.Namespace)
	copyChildren(d, id, nd, nd.Root)
	return nd
}

func copyChildren(src *document.Document, srcParent ids.BlockId, dst *document.Document, dstParent ids.BlockId) {
	for _, childID := range src.Children(srcParent) {
		child, ok := src.GetBlock(childID)
		if !ok {
			continue
		}
		newID, err := dst.AddBlock(dstParent, child.Content, child.Metadata.Role, child.Metadata.Clone())
		if err != nil {
			continue
		}
		copyChildren(src, childID, dst, newID)
	}
}

func headingLevelOf(b *document.Block) int {
	if v, ok := b.Metadata.Custom["heading_level"]; ok {
		if n, ok := v.(int); ok {
			return n
		}
	}
	return 1
}

func levelFromRole(role *document.SemanticRole) int {
	switch role.Subrole {
	case "h1":
		return 1
	case "h2":
		return 2
	case "h3":
		return 3
	case "h4":
		return 4
	case "h5":
		return 5
	case "h6":
		return 6
	}
	return 1
}

func clampHeadingLevel(level int) int {
	if level < 1 {
		return 1
	}
	if level > 6 {
		return 6
	}
	return level
}
