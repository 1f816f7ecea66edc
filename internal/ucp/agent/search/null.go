package search

import "context"

// Null is the always-empty provider (§4.6.5): Search returns no results
// and no error. It is not wired by default; a session starts with no
// provider, and `search` then fails with ProviderNotConfigured.
type Null struct{}

func (Null) Name() string                   { return "null" }
func (Null) Capabilities() Capabilities      { return Capabilities{} }
func (Null) Search(context.Context, string, Options) ([]Result, error) { return nil, nil }
func (Null) Embed(context.Context, string) ([]float64, error)          { return nil, nil }
