package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/ucp/internal/ucp/document"
	"github.com/arthur-debert/ucp/internal/ucp/ucerr"
	"github.com/arthur-debert/ucp/internal/ucp/validate"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run the structural/referential/semantic validation pipeline over a document",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := requireDocPath()
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("ucp validate: %w", err)
		}
		doc, err := document.FromJSON(data)
		if err != nil {
			return fmt.Errorf("ucp validate: %w", err)
		}

		v := validate.New(validate.DefaultLimits)
		diags := v.Validate(doc)
		for _, d := range diags {
			printDiagnostic(d)
		}
		if !validate.Valid(diags) {
			return fmt.Errorf("ucp validate: document has %d diagnostic(s), at least one error", len(diags))
		}
		fmt.Printf("ok: %d diagnostic(s), no errors\n", len(diags))
		return nil
	},
}

func printDiagnostic(d ucerr.Diagnostic) {
	stream := os.Stdout
	if d.IsError() {
		stream = os.Stderr
	}
	loc := ""
	if d.Location != nil {
		loc = fmt.Sprintf(" at %d:%d", d.Location.Line, d.Location.Column)
	}
	block := ""
	if d.BlockID != "" {
		block = fmt.Sprintf(" (block %s)", d.BlockID)
	}
	fmt.Fprintf(stream, "[%s] %s: %s%s%s\n", d.Severity, d.Code, d.Message, block, loc)
}
