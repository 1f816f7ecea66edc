package validate

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/arthur-debert/ucp/internal/ucp/content"
	"github.com/arthur-debert/ucp/internal/ucp/document"
	"github.com/arthur-debert/ucp/internal/ucp/ids"
	"github.com/arthur-debert/ucp/internal/ucp/ucerr"
)

var allowedMediaSchemes = map[content.MediaSourceKind]bool{
	content.MediaSourceURL:      true,
	content.MediaSourceBase64:   true,
	content.MediaSourceBlockRef: true,
	content.MediaSourceExternal: true,
}

// contentDiagnostics applies stage 5's per-variant rules (§4.3).
func contentDiagnostics(id ids.BlockId, b *document.Block) []ucerr.Diagnostic {
	var out []ucerr.Diagnostic
	switch c := b.Content.(type) {
	case content.Code:
		if strings.TrimSpace(c.Language) == "" {
			out = append(out, ucerr.Diagnostic{
				Code: ucerr.CodeSchemaViolation, Severity: ucerr.SeverityError,
				Message: "code block language must not be empty", BlockID: string(id),
			})
		}
	case content.Media:
		if !allowedMediaSchemes[c.Source.Kind] {
			out = append(out, ucerr.Diagnostic{
				Code: ucerr.CodeSchemaViolation, Severity: ucerr.SeverityError,
				Message: fmt.Sprintf("media source scheme %q is not allowed", c.Source.Kind), BlockID: string(id),
			})
		}
	case content.JSON:
		if c.Schema != "" {
			if err := validateAgainstSchema(c.Value, c.Schema); err != nil {
				out = append(out, ucerr.Diagnostic{
					Code: ucerr.CodeSchemaViolation, Severity: ucerr.SeverityError,
					Message: "json content does not conform to its schema: " + err.Error(), BlockID: string(id),
				})
			}
		}
	}
	return out
}

// validateAgainstSchema is a minimal structural check: it only verifies
// that the schema string is valid JSON describing an object with a
// "required" array, and that those keys are present in value. A full
// JSON-Schema validator is out of scope for the core substrate (§1).
func validateAgainstSchema(value any, schema string) error {
	var s struct {
		Required []string `json:"required"`
	}
	if err := json.Unmarshal([]byte(schema), &s); err != nil {
		return err
	}
	if len(s.Required) == 0 {
		return nil
	}
	m, ok := value.(map[string]any)
	if !ok {
		return fmt.Errorf("schema requires an object value")
	}
	for _, k := range s.Required {
		if _, ok := m[k]; !ok {
			return fmt.Errorf("missing required field %q", k)
		}
	}
	return nil
}
