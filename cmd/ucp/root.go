// Command ucp drives the content graph substrate from the shell: load a
// document, run UCL scripts against it, open an agent session for one
// traversal, validate it against the resource/structural pipeline, or
// print its fingerprint. Configuration layers flags over UCP_* environment
// variables over an optional ucp.yaml, the same precedence internal/config
// documents.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/ucp/internal/config"
)

var (
	docPath   string
	logLevel  string
	logFile   string
	logStdout bool
)

var rootCmd = &cobra.Command{
	Use:   "ucp",
	Short: "Unified Content Protocol CLI",
	Long: `ucp loads a serialized content-block document and operates on it:
executing UCL mutation scripts, opening a bounded agent session for
traversal, validating document structure, or fingerprinting its content.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&docPath, "doc", "d", "", "path to a serialized document (JSON)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug|info|warn|error")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "path to the JSON log file")
	rootCmd.PersistentFlags().BoolVar(&logStdout, "log-stdout", false, "mirror log records to stdout")

	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(fingerprintCmd)
}

// loadConfig resolves a config.Config from flags/env/file and wires this
// invocation's --log-* flags on top, then opens logging.
func loadConfig(cmd *cobra.Command) (config.Config, config.Loggers, error) {
	loader := config.NewLoader()
	if err := loader.BindFlags(cmd.Flags()); err != nil {
		return config.Config{}, config.Loggers{}, err
	}
	cfg, err := loader.Load()
	if err != nil {
		return config.Config{}, config.Loggers{}, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFile != "" {
		cfg.LogFile = logFile
	}
	if logStdout {
		cfg.LogStdout = true
	}
	loggers, err := config.InitLogging(cfg)
	if err != nil {
		return config.Config{}, config.Loggers{}, err
	}
	return cfg, loggers, nil
}

func requireDocPath() (string, error) {
	if docPath == "" {
		return "", fmt.Errorf("ucp: --doc is required")
	}
	return docPath, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
