// Package search defines the semantic-search provider contract the
// traversal core's search op delegates to (§4.6.5), plus the Null and
// Mock implementations used when no real retrieval backend is wired.
package search

import (
	"context"

	"github.com/arthur-debert/ucp/internal/ucp/ids"
)

// Result is one hit returned by a provider: a block id, a similarity
// score in [0, 1], and an optional human-readable snippet.
type Result struct {
	Block      ids.BlockId
	Similarity float64
	Snippet    string
}

// Options tune a single search call.
type Options struct {
	Limit         int
	MinSimilarity float64
}

// Capabilities describes what a provider supports.
type Capabilities struct {
	SupportsEmbed bool
	MaxResults    int
}

// Provider is the polymorphic semantic-search contract (§4.6.5).
// Errors surface as *ProviderError — implementations must not let a
// foreign exception type escape into the traversal core.
type Provider interface {
	Name() string
	Capabilities() Capabilities
	Search(ctx context.Context, query string, opts Options) ([]Result, error)
	Embed(ctx context.Context, text string) ([]float64, error)
}

// ProviderError wraps a provider-specific failure in a stable type the
// rest of the core can branch on without knowing the provider's
// concrete error types.
type ProviderError struct {
	Provider string
	Message  string
	Cause    error
}

func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return e.Provider + ": " + e.Message + ": " + e.Cause.Error()
	}
	return e.Provider + ": " + e.Message
}

func (e *ProviderError) Unwrap() error { return e.Cause }
