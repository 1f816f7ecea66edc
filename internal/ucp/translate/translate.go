// Package translate implements the engine-to-translator contract (§6.3):
// parse(input, options) -> Document | Error, emit(document, options) ->
// bytes | Error, plus a capabilities descriptor. Markdown is the only
// format implemented; it is sufficient for WriteSection's graft
// operation and for round-tripping documents through the CLI.
package translate

import "github.com/arthur-debert/ucp/internal/ucp/document"

// Format names a supported wire format.
type Format string

const FormatMarkdown Format = "markdown"

// Capabilities describes what a Translator supports, per §6.3.
type Capabilities struct {
	Formats      []Format
	Streaming    bool
	Incremental  bool
	MaxSizeBytes int
}

// ParseOptions configures Parse.
type ParseOptions struct {
	// Namespace is used to derive BlockIds for the parsed blocks (§4.1).
	Namespace string
}

// EmitOptions configures Emit.
type EmitOptions struct {
	// HeadingOffset shifts every emitted heading's level by this amount,
	// clamped to stay within 1..6.
	HeadingOffset int
}

// Translator is a pure function pair over the core data model: it never
// touches a live document in place, and never performs I/O itself.
type Translator interface {
	Parse(input []byte, opts ParseOptions) (*document.Document, error)
	Emit(doc *document.Document, opts EmitOptions) ([]byte, error)
	Capabilities() Capabilities
}
