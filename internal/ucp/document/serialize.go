package document

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/arthur-debert/ucp/internal/ucp/content"
	"github.com/arthur-debert/ucp/internal/ucp/ids"
)

// docDTO is the on-the-wire shape of §6.1's Serialized Document Format:
// a JSON object with id/root/blocks/structure/metadata/version, blocks
// keyed by id, structure mapping id to an ordered child-id list.
type docDTO struct {
	ID        string               `json:"id"`
	Root      string               `json:"root"`
	Blocks    map[string]blockDTO  `json:"blocks"`
	Structure map[string][]string  `json:"structure"`
	Metadata  map[string]any       `json:"metadata,omitempty"`
	Version   uint64               `json:"version"`
}

type blockDTO struct {
	ID       string       `json:"id"`
	Content  contentDTO   `json:"content"`
	Metadata metadataDTO  `json:"metadata"`
	Edges    []edgeDTO    `json:"edges,omitempty"`
}

type contentDTO struct {
	Type string `json:"type"`

	Text   string `json:"text,omitempty"`
	Format string `json:"format,omitempty"`

	Language  string                   `json:"language,omitempty"`
	Source    string                   `json:"source,omitempty"`
	Highlight []content.HighlightRange `json:"highlight,omitempty"`

	Columns []content.Column `json:"columns,omitempty"`
	Rows    [][]string       `json:"rows,omitempty"`
	Schema  string           `json:"schema,omitempty"`

	Expression string `json:"expression,omitempty"`
	Display    bool   `json:"display,omitempty"`

	MediaType     string `json:"media_type,omitempty"`
	SourceKind    string `json:"source_kind,omitempty"`
	SourcePayload string `json:"source_payload,omitempty"`
	AltText       string `json:"alt_text,omitempty"`
	ContentHash   string `json:"content_hash,omitempty"`

	Value any `json:"value,omitempty"`

	Payload []byte `json:"payload,omitempty"`
	MIME    string `json:"mime_type,omitempty"`

	Layout   string   `json:"layout,omitempty"`
	Children []string `json:"children,omitempty"`
}

type semanticRoleDTO struct {
	Category string `json:"category"`
	Subrole  string `json:"subrole,omitempty"`
}

type metadataDTO struct {
	Label         string           `json:"label,omitempty"`
	SemanticRole  *semanticRoleDTO `json:"semantic_role,omitempty"`
	Tags          []string         `json:"tags,omitempty"`
	ContentHash   string           `json:"content_hash,omitempty"`
	TokenEstimate int              `json:"token_estimate,omitempty"`
	Custom        map[string]any   `json:"custom,omitempty"`
}

type edgeDTO struct {
	EdgeType string         `json:"edge_type"`
	Target   string         `json:"target"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ToJSON renders d in the §6.1 serialized document format.
func (d *Document) ToJSON() ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := docDTO{
		ID:        string(d.ID),
		Root:      string(d.Root),
		Blocks:    make(map[string]blockDTO, len(d.Blocks)),
		Structure: make(map[string][]string, len(d.Structure)),
		Metadata:  map[string]any{"namespace": d.Namespace},
		Version:   d.Version,
	}
	for id, b := range d.Blocks {
		cdto, err := contentToDTO(b.Content)
		if err != nil {
			return nil, fmt.Errorf("document: encoding block %q: %w", id, err)
		}
		out.Blocks[string(id)] = blockDTO{
			ID:       string(id),
			Content:  cdto,
			Metadata: metadataToDTO(b.Metadata),
			Edges:    edgesToDTO(b.Edges),
		}
	}
	for id, children := range d.Structure {
		strs := make([]string, len(children))
		for i, c := range children {
			strs[i] = string(c)
		}
		out.Structure[string(id)] = strs
	}
	return json.MarshalIndent(out, "", "  ")
}

// FromJSON parses the §6.1 serialized document format, rebuilding every
// secondary index from the decoded blocks.
func FromJSON(data []byte) (*Document, error) {
	var in docDTO
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("document: decoding: %w", err)
	}
	namespace, _ := in.Metadata["namespace"].(string)
	d := &Document{
		ID:        ids.DocumentId(in.ID),
		Namespace: namespace,
		Root:      ids.BlockId(in.Root),
		Blocks:    make(map[ids.BlockId]*Block, len(in.Blocks)),
		Structure: make(map[ids.BlockId][]ids.BlockId, len(in.Structure)),
		Indices:   newIndices(),
		EdgeIndex: newEdgeIndex(),
		Version:   in.Version,
	}
	for idStr, bd := range in.Blocks {
		c, err := dtoToContent(bd.Content)
		if err != nil {
			return nil, fmt.Errorf("document: decoding block %q: %w", idStr, err)
		}
		d.Blocks[ids.BlockId(idStr)] = &Block{
			ID:       ids.BlockId(idStr),
			Content:  c,
			Metadata: dtoToMetadata(bd.Metadata),
			Edges:    dtoToEdges(bd.Edges),
		}
	}
	for idStr, children := range in.Structure {
		out := make([]ids.BlockId, len(children))
		for i, c := range children {
			out[i] = ids.BlockId(c)
		}
		d.Structure[ids.BlockId(idStr)] = out
	}
	d.rebuildIndices()
	return d, nil
}

func contentToDTO(c content.Content) (contentDTO, error) {
	switch v := c.(type) {
	case content.Text:
		return contentDTO{Type: string(content.TypeText), Text: v.Text, Format: string(v.Format)}, nil
	case content.Code:
		return contentDTO{Type: string(content.TypeCode), Language: v.Language, Source: v.Source, Highlight: v.Highlight}, nil
	case content.Table:
		return contentDTO{Type: string(content.TypeTable), Columns: v.Columns, Rows: v.Rows, Schema: v.Schema}, nil
	case content.Math:
		return contentDTO{Type: string(content.TypeMath), Format: string(v.Format), Expression: v.Expression, Display: v.Display}, nil
	case content.Media:
		out := contentDTO{Type: string(content.TypeMedia), MediaType: v.MediaType, SourceKind: string(v.Source.Kind), SourcePayload: v.Source.Payload, AltText: v.AltText}
		if v.HasHash {
			out.ContentHash = hex.EncodeToString(v.ContentHash[:])
		}
		return out, nil
	case content.JSON:
		return contentDTO{Type: string(content.TypeJSON), Value: v.Value, Schema: v.Schema}, nil
	case content.Binary:
		return contentDTO{Type: string(content.TypeBinary), Payload: v.Payload, MIME: v.MIMEType}, nil
	case content.Composite:
		return contentDTO{Type: string(content.TypeComposite), Layout: string(v.Layout), Children: v.Children}, nil
	}
	return contentDTO{}, fmt.Errorf("unknown content type %T", c)
}

func dtoToContent(c contentDTO) (content.Content, error) {
	switch content.Type(c.Type) {
	case content.TypeText:
		return content.Text{Text: c.Text, Format: content.TextFormat(c.Format)}, nil
	case content.TypeCode:
		return content.Code{Language: c.Language, Source: c.Source, Highlight: c.Highlight}, nil
	case content.TypeTable:
		return content.Table{Columns: c.Columns, Rows: c.Rows, Schema: c.Schema}, nil
	case content.TypeMath:
		return content.Math{Format: content.MathFormat(c.Format), Expression: c.Expression, Display: c.Display}, nil
	case content.TypeMedia:
		m := content.Media{MediaType: c.MediaType, Source: content.MediaSource{Kind: content.MediaSourceKind(c.SourceKind), Payload: c.SourcePayload}, AltText: c.AltText}
		if c.ContentHash != "" {
			if raw, err := hex.DecodeString(c.ContentHash); err == nil && len(raw) == 32 {
				copy(m.ContentHash[:], raw)
				m.HasHash = true
			}
		}
		return m, nil
	case content.TypeJSON:
		return content.JSON{Value: c.Value, Schema: c.Schema}, nil
	case content.TypeBinary:
		return content.Binary{MIMEType: c.MIME, Payload: c.Payload}, nil
	case content.TypeComposite:
		return content.Composite{Layout: content.Layout(c.Layout), Children: c.Children}, nil
	}
	return nil, fmt.Errorf("unknown content type %q", c.Type)
}

func metadataToDTO(m Metadata) metadataDTO {
	out := metadataDTO{Label: m.Label, TokenEstimate: m.TokenEstimate, Custom: m.Custom}
	if m.Role != nil {
		out.SemanticRole = &semanticRoleDTO{Category: m.Role.Category, Subrole: m.Role.Subrole}
	}
	if m.HasHash {
		out.ContentHash = hex.EncodeToString(m.ContentHash[:])
	}
	out.Tags = m.TagList()
	return out
}

func dtoToMetadata(m metadataDTO) Metadata {
	out := NewMetadata()
	out.Label = m.Label
	out.HasLabel = m.Label != ""
	out.TokenEstimate = m.TokenEstimate
	if m.Custom != nil {
		out.Custom = m.Custom
	}
	if m.SemanticRole != nil {
		out.Role = &SemanticRole{Category: m.SemanticRole.Category, Subrole: m.SemanticRole.Subrole}
	}
	if m.ContentHash != "" {
		if raw, err := hex.DecodeString(m.ContentHash); err == nil && len(raw) == 32 {
			copy(out.ContentHash[:], raw)
			out.HasHash = true
		}
	}
	for _, t := range m.Tags {
		out.Tags[t] = struct{}{}
	}
	return out
}

func edgesToDTO(edges []Edge) []edgeDTO {
	if len(edges) == 0 {
		return nil
	}
	out := make([]edgeDTO, len(edges))
	for i, e := range edges {
		out[i] = edgeDTO{EdgeType: string(e.Type), Target: string(e.Target), Metadata: e.Metadata}
	}
	return out
}

func dtoToEdges(edges []edgeDTO) []Edge {
	if len(edges) == 0 {
		return nil
	}
	out := make([]Edge, len(edges))
	for i, e := range edges {
		out[i] = Edge{Type: EdgeType(e.EdgeType), Target: ids.BlockId(e.Target), Metadata: e.Metadata}
	}
	return out
}
