package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/ucp/internal/ucp/agent"
	"github.com/arthur-debert/ucp/internal/ucp/document"
	"github.com/arthur-debert/ucp/internal/ucp/ucl"
)

var sessionCommandSrc string

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Open one bounded agent session over a document and run a single traversal/context command",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := requireDocPath()
		if err != nil {
			return err
		}
		if sessionCommandSrc == "" {
			return fmt.Errorf("ucp session: --command is required")
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("ucp session: %w", err)
		}
		doc, err := document.FromJSON(data)
		if err != nil {
			return fmt.Errorf("ucp session: %w", err)
		}

		cfg, loggers, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		mgr := agent.NewManager(cfg.GlobalLimits.ToAgentLimits(), loggers.Agent)
		sess, err := mgr.CreateSession(doc, agent.Config{
			DisplayName: "ucp-cli",
			Limits:      cfg.SessionLimits.ToAgentLimits(),
		})
		if err != nil {
			return fmt.Errorf("ucp session: %w", err)
		}
		defer mgr.Close(sess.ID)

		cmds, err := ucl.Parse(sessionCommandSrc)
		if err != nil {
			return fmt.Errorf("ucp session: parsing command: %w", err)
		}
		if len(cmds) != 1 {
			return fmt.Errorf("ucp session: --command must be exactly one statement, got %d", len(cmds))
		}

		result, ok, err := sess.Dispatch(context.Background(), mgr, cmds[0])
		if !ok {
			return fmt.Errorf("ucp session: %q is not a traversal or context command", sessionCommandSrc)
		}
		if err != nil {
			return fmt.Errorf("ucp session: %w", err)
		}
		b, marshalErr := json.MarshalIndent(result, "", "  ")
		if marshalErr != nil {
			return fmt.Errorf("ucp session: encoding result: %w", marshalErr)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(b))
		return nil
	},
}

func init() {
	sessionCmd.Flags().StringVar(&sessionCommandSrc, "command", "", "single UCL traversal/context statement, e.g. `GOTO block-id`")
}
