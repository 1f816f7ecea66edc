package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/ucp/internal/ucp/document"
)

var fingerprintCmd = &cobra.Command{
	Use:   "fingerprint",
	Short: "Print a document's canonical fingerprint",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := requireDocPath()
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("ucp fingerprint: %w", err)
		}
		doc, err := document.FromJSON(data)
		if err != nil {
			return fmt.Errorf("ucp fingerprint: %w", err)
		}
		fmt.Println(doc.Fingerprint())
		return nil
	},
}
