package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/arthur-debert/ucp/internal/ucp/document"
	"github.com/arthur-debert/ucp/internal/ucp/events"
	"github.com/arthur-debert/ucp/internal/ucp/ids"
	"github.com/arthur-debert/ucp/internal/ucp/ucerr"
)

// snapshotEntry is a full deep copy of the document at creation time,
// addressable by its user-supplied name (§5 "Snapshots"). The chosen
// representation is full-copy rather than delta-from-previous, so
// SnapshotRestore is trivially byte-identical to the moment of capture.
type snapshotEntry struct {
	ID        ids.SnapshotId
	CreatedAt time.Time
	BlockCount int
	doc       *document.Document
}

// SnapshotInfo is the public, read-only view of a snapshotEntry for
// SNAPSHOT LIST.
type SnapshotInfo struct {
	Name       string
	ID         ids.SnapshotId
	CreatedAt  time.Time
	BlockCount int
}

// SnapshotCreate captures the live document under name. Re-using an
// existing name overwrites its prior snapshot.
func (e *Engine) SnapshotCreate(ctx context.Context, name string) (ids.SnapshotId, error) {
	e.Doc.Lock()
	defer e.Doc.Unlock()
	if name == "" {
		return "", ucerr.New(ucerr.KindValidation, ucerr.CodeMalformedCommand, "snapshot name must not be empty")
	}
	clone := e.Doc.Clone()
	entry := &snapshotEntry{ID: ids.NewSnapshotID(), CreatedAt: now(), BlockCount: len(clone.Blocks), doc: clone}
	e.snaps[name] = entry
	e.events.Emit(ctx, events.KindSnapshot, "snapshot created", "name", name, "snapshot_id", string(entry.ID))
	return entry.ID, nil
}

// SnapshotRestore replaces the live document's state with the named
// snapshot's, in place.
func (e *Engine) SnapshotRestore(ctx context.Context, name string) error {
	e.Doc.Lock()
	defer e.Doc.Unlock()
	entry, ok := e.snaps[name]
	if !ok {
		return ucerr.New(ucerr.KindNotFound, ucerr.CodeBlockNotFound, fmt.Sprintf("snapshot %q not found", name))
	}
	e.Doc.ReplaceWith(entry.doc)
	e.events.Emit(ctx, events.KindSnapshot, "snapshot restored", "name", name, "snapshot_id", string(entry.ID))
	return nil
}

// SnapshotList returns every snapshot's metadata, sorted by name for a
// deterministic listing order.
func (e *Engine) SnapshotList() []SnapshotInfo {
	e.Doc.Lock()
	defer e.Doc.Unlock()
	out := make([]SnapshotInfo, 0, len(e.snaps))
	for name, entry := range e.snaps {
		out = append(out, SnapshotInfo{Name: name, ID: entry.ID, CreatedAt: entry.CreatedAt, BlockCount: entry.BlockCount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// SnapshotDelete removes a named snapshot.
func (e *Engine) SnapshotDelete(ctx context.Context, name string) error {
	e.Doc.Lock()
	defer e.Doc.Unlock()
	if _, ok := e.snaps[name]; !ok {
		return ucerr.New(ucerr.KindNotFound, ucerr.CodeBlockNotFound, fmt.Sprintf("snapshot %q not found", name))
	}
	delete(e.snaps, name)
	e.events.Emit(ctx, events.KindSnapshot, "snapshot deleted", "name", name)
	return nil
}

// now is a seam for deterministic tests; production code never
// overrides it, mirroring the teacher's store timeFunc field
// (nanostore/store_json.go).
var now = time.Now
