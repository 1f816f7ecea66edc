package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/arthur-debert/ucp/internal/ucp/document"
	"github.com/arthur-debert/ucp/internal/ucp/engine"
)

var (
	execScriptPath string
	execOutPath    string
)

var execCmd = &cobra.Command{
	Use:   "exec",
	Short: "Execute a UCL script against a document and print the resulting operation envelopes",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := requireDocPath()
		if err != nil {
			return err
		}
		if execScriptPath == "" {
			return fmt.Errorf("ucp exec: --script is required")
		}

		// The document file is shared state a concurrent ucp invocation
		// could be mutating; a cross-process file lock keeps one exec
		// run's read-modify-write atomic against another.
		lock := flock.New(path + ".lock")
		if err := lock.Lock(); err != nil {
			return fmt.Errorf("ucp exec: acquiring lock: %w", err)
		}
		defer lock.Unlock()

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("ucp exec: %w", err)
		}
		doc, err := document.FromJSON(data)
		if err != nil {
			return fmt.Errorf("ucp exec: %w", err)
		}

		script, err := os.ReadFile(execScriptPath)
		if err != nil {
			return fmt.Errorf("ucp exec: reading script: %w", err)
		}

		_, loggers, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		eng := engine.New(doc, loggers.Engine)
		results, err := eng.ExecuteUcl(context.Background(), string(script), nil)
		for _, r := range results {
			printExecResult(r)
		}
		if err != nil {
			return fmt.Errorf("ucp exec: %w", err)
		}

		out := execOutPath
		if out == "" {
			out = path
		}
		encoded, err := doc.ToJSON()
		if err != nil {
			return fmt.Errorf("ucp exec: encoding result: %w", err)
		}
		if err := os.WriteFile(out, encoded, 0o644); err != nil {
			return fmt.Errorf("ucp exec: writing result: %w", err)
		}
		return nil
	},
}

func printExecResult(r engine.ExecResult) {
	if r.Op != nil {
		b, _ := json.Marshal(r.Op)
		fmt.Println(string(b))
		return
	}
	if r.SnapshotID != "" {
		fmt.Printf("snapshot created: %s\n", r.SnapshotID)
		return
	}
	if r.Snapshots != nil {
		b, _ := json.Marshal(r.Snapshots)
		fmt.Println(string(b))
		return
	}
	fmt.Printf("%T: %+v\n", r.Command, r.Command)
}

func init() {
	execCmd.Flags().StringVar(&execScriptPath, "script", "", "path to a UCL script")
	execCmd.Flags().StringVar(&execOutPath, "out", "", "output document path (defaults to --doc, overwriting it)")
}
