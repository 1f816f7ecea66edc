package document

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/arthur-debert/ucp/internal/ucp/ids"
)

// Fingerprint computes the canonical fingerprint of the document (§4.1):
// stable-sort blocks by id, emit (id, type, role, label, sorted tags,
// content hash, ordered children, sorted outgoing edges) per block, hash
// the concatenation. It depends only on material content and structure,
// never on volatile fields like Version.
func (d *Document) Fingerprint() string {
	blockIDs := make([]ids.BlockId, 0, len(d.Blocks))
	for id := range d.Blocks {
		blockIDs = append(blockIDs, id)
	}
	sort.Slice(blockIDs, func(i, j int) bool { return blockIDs[i] < blockIDs[j] })

	var b strings.Builder
	for _, id := range blockIDs {
		blk := d.Blocks[id]
		b.WriteString(string(id))
		b.WriteByte('|')
		if blk.Content != nil {
			b.WriteString(string(blk.Content.Type()))
		}
		b.WriteByte('|')
		if blk.Metadata.Role != nil {
			b.WriteString(blk.Metadata.Role.Category + "/" + blk.Metadata.Role.Subrole)
		}
		b.WriteByte('|')
		if blk.Metadata.HasLabel {
			b.WriteString(blk.Metadata.Label)
		}
		b.WriteByte('|')
		tags := blk.Metadata.TagList()
		sort.Strings(tags)
		b.WriteString(strings.Join(tags, ","))
		b.WriteByte('|')
		if blk.Content != nil {
			sum := sha256.Sum256(blk.Content.Canonicalize())
			b.WriteString(hex.EncodeToString(sum[:]))
		}
		b.WriteByte('|')
		children := d.Structure[id]
		childStrs := make([]string, len(children))
		for i, c := range children {
			childStrs[i] = string(c)
		}
		b.WriteString(strings.Join(childStrs, ","))
		b.WriteByte('|')
		edgeStrs := make([]string, len(blk.Edges))
		for i, e := range blk.Edges {
			edgeStrs[i] = string(e.Type) + "->" + string(e.Target)
		}
		sort.Strings(edgeStrs)
		b.WriteString(strings.Join(edgeStrs, ","))
		b.WriteByte('\n')
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
