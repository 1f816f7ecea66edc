package agent

import (
	"github.com/arthur-debert/ucp/internal/ucp/document"
	"github.com/arthur-debert/ucp/internal/ucp/ids"
	"github.com/arthur-debert/ucp/internal/ucp/ucerr"
)

// Neighborhood is the lazily-recomputed, cached view around a cursor
// (§4.6.2): ancestors to root, direct children, siblings, and outgoing
// edges grouped by type.
type Neighborhood struct {
	Ancestors   []ids.BlockId
	Children    []ids.BlockId
	Siblings    []ids.BlockId
	Connections map[document.EdgeType][]ids.BlockId
}

// Cursor returns the session's current position.
func (s *Session) Cursor() ids.BlockId {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cursor
}

// Neighborhood returns the cached neighborhood around the cursor,
// computing it on first access after the last invalidation
// (view_neighborhood, §4.6.3).
func (s *Session) Neighborhood() (Neighborhood, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.neighborhood == nil {
		n, err := computeNeighborhood(s.Doc, s.cursor)
		if err != nil {
			return Neighborhood{}, err
		}
		s.neighborhood = &n
	}
	return *s.neighborhood, nil
}

func (s *Session) invalidateNeighborhood() {
	s.neighborhood = nil
}

func computeNeighborhood(doc *document.Document, cursor ids.BlockId) (Neighborhood, error) {
	doc.RLock()
	defer doc.RUnlock()
	if _, ok := doc.GetBlock(cursor); !ok {
		return Neighborhood{}, ucerr.NotFound(string(cursor))
	}

	var ancestors []ids.BlockId
	cur := cursor
	for {
		p, ok := doc.Parent(cur)
		if !ok {
			break
		}
		ancestors = append(ancestors, p)
		cur = p
	}

	children := append([]ids.BlockId(nil), doc.Children(cursor)...)

	var siblings []ids.BlockId
	if parent, ok := doc.Parent(cursor); ok {
		for _, c := range doc.Children(parent) {
			if c != cursor {
				siblings = append(siblings, c)
			}
		}
	}

	connections := map[document.EdgeType][]ids.BlockId{}
	if b, ok := doc.GetBlock(cursor); ok {
		for _, e := range b.Edges {
			connections[e.Type] = append(connections[e.Type], e.Target)
		}
	}

	return Neighborhood{Ancestors: ancestors, Children: children, Siblings: siblings, Connections: connections}, nil
}
