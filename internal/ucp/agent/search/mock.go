package search

import (
	"context"
	"sort"
	"strings"

	"github.com/arthur-debert/ucp/internal/ucp/ids"
	"gopkg.in/yaml.v3"
)

// MockEntry is one pre-seeded result a Mock provider can return,
// matched against a query by keyword overlap.
type MockEntry struct {
	Block      ids.BlockId `yaml:"block"`
	Keywords   []string    `yaml:"keywords"`
	Snippet    string      `yaml:"snippet"`
	Similarity float64     `yaml:"similarity"`
}

type mockFixture struct {
	Entries []MockEntry `yaml:"entries"`
}

// Mock is a deterministic, pre-seeded provider for tests (§4.6.5): it
// never calls out to a real retrieval backend. Fixtures are loaded from
// YAML the same way the teacher's markdown format round-trips
// frontmatter (formats/markdown.go), via gopkg.in/yaml.v3.
type Mock struct {
	entries []MockEntry
}

// NewMock builds a Mock from entries supplied directly.
func NewMock(entries []MockEntry) *Mock { return &Mock{entries: entries} }

// LoadMockFromYAML parses a YAML fixture of the form:
//
//	entries:
//	  - block: blk_...
//	    keywords: [intro, overview]
//	    snippet: "..."
//	    similarity: 0.92
func LoadMockFromYAML(data []byte) (*Mock, error) {
	var fx mockFixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, err
	}
	return NewMock(fx.Entries), nil
}

func (m *Mock) Name() string { return "mock" }

func (m *Mock) Capabilities() Capabilities {
	return Capabilities{SupportsEmbed: false, MaxResults: len(m.entries)}
}

// Search matches query tokens against each entry's keywords and ranks
// by keyword-overlap fraction times the entry's seeded similarity.
func (m *Mock) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	tokens := tokenize(query)
	var out []Result
	for _, e := range m.entries {
		overlap := overlapFraction(tokens, e.Keywords)
		if overlap == 0 {
			continue
		}
		score := overlap * e.Similarity
		if score == 0 {
			score = overlap
		}
		if score < opts.MinSimilarity {
			continue
		}
		out = append(out, Result{Block: e.Block, Similarity: score, Snippet: e.Snippet})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (m *Mock) Embed(ctx context.Context, text string) ([]float64, error) { return nil, nil }

func tokenize(s string) []string {
	return strings.Fields(strings.ToLower(s))
}

func overlapFraction(tokens, keywords []string) float64 {
	if len(keywords) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	hits := 0
	for _, k := range keywords {
		if _, ok := set[strings.ToLower(k)]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(keywords))
}
