// Package config loads UCP's resource limits, session defaults, and CLI
// behavior from flags, environment variables, and an optional config
// file, the way the teacher's viper_cli.go/viper_methods.go layer the
// same three sources over a nanostore CLI invocation (env prefix,
// config file search path, typed getters bound to pflags).
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/arthur-debert/ucp/internal/ucp/agent"
)

// envPrefix is the environment variable namespace (UCP_MAX_TOKENS_HINT,
// UCP_LOG_LEVEL, etc.), mirroring NANOSTORE_* in the teacher's CLI.
const envPrefix = "UCP"

// Config is the fully-resolved configuration driving one CLI invocation
// or embedding host: global safety-substrate ceilings, per-session
// defaults, and logging behavior.
type Config struct {
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
	LogFile  string `mapstructure:"log_file" yaml:"log_file"`
	LogStdout bool  `mapstructure:"log_stdout" yaml:"log_stdout"`

	GlobalLimits  GlobalLimitsConfig  `mapstructure:"global_limits" yaml:"global_limits"`
	SessionLimits SessionLimitsConfig `mapstructure:"session_limits" yaml:"session_limits"`
}

// GlobalLimitsConfig mirrors agent.GlobalLimits in a form viper/yaml can
// populate directly (time.Duration fields are seconds on the wire).
type GlobalLimitsConfig struct {
	MaxConcurrentSessions int `mapstructure:"max_concurrent_sessions" yaml:"max_concurrent_sessions"`
	MaxTotalContextBlocks int `mapstructure:"max_total_context_blocks" yaml:"max_total_context_blocks"`
	MaxOpsPerSecond       int `mapstructure:"max_ops_per_second" yaml:"max_ops_per_second"`
	OperationTimeoutSec   int `mapstructure:"operation_timeout_seconds" yaml:"operation_timeout_seconds"`
}

// ToAgentLimits converts the wire form into agent.GlobalLimits.
func (c GlobalLimitsConfig) ToAgentLimits() agent.GlobalLimits {
	return agent.GlobalLimits{
		MaxConcurrentSessions: c.MaxConcurrentSessions,
		MaxTotalContextBlocks: c.MaxTotalContextBlocks,
		MaxOpsPerSecond:       c.MaxOpsPerSecond,
		OperationTimeout:      time.Duration(c.OperationTimeoutSec) * time.Second,
	}
}

// SessionLimitsConfig mirrors agent.Limits.
type SessionLimitsConfig struct {
	MaxTokensHint          int `mapstructure:"max_tokens_hint" yaml:"max_tokens_hint"`
	MaxContextBlocksHint   int `mapstructure:"max_context_blocks_hint" yaml:"max_context_blocks_hint"`
	MaxExpandDepth         int `mapstructure:"max_expand_depth" yaml:"max_expand_depth"`
	MaxResultsPerOp        int `mapstructure:"max_results_per_op" yaml:"max_results_per_op"`
	InactivityTimeoutSec   int `mapstructure:"inactivity_timeout_seconds" yaml:"inactivity_timeout_seconds"`
}

// ToAgentLimits converts the wire form into agent.Limits.
func (c SessionLimitsConfig) ToAgentLimits() agent.Limits {
	return agent.Limits{
		MaxTokensHint:        c.MaxTokensHint,
		MaxContextBlocksHint: c.MaxContextBlocksHint,
		MaxExpandDepth:       c.MaxExpandDepth,
		MaxResultsPerOp:      c.MaxResultsPerOp,
		InactivityTimeout:    time.Duration(c.InactivityTimeoutSec) * time.Second,
	}
}

// Default returns the conservative baseline every field falls back to
// when no flag, env var, or config file overrides it.
func Default() Config {
	gl := agent.DefaultGlobalLimits
	sl := agent.DefaultLimits
	return Config{
		LogLevel: "warn",
		LogFile:  "ucp.log",
		GlobalLimits: GlobalLimitsConfig{
			MaxConcurrentSessions: gl.MaxConcurrentSessions,
			MaxTotalContextBlocks: gl.MaxTotalContextBlocks,
			MaxOpsPerSecond:       gl.MaxOpsPerSecond,
			OperationTimeoutSec:   int(gl.OperationTimeout / time.Second),
		},
		SessionLimits: SessionLimitsConfig{
			MaxTokensHint:        sl.MaxTokensHint,
			MaxContextBlocksHint: sl.MaxContextBlocksHint,
			MaxExpandDepth:       sl.MaxExpandDepth,
			MaxResultsPerOp:      sl.MaxResultsPerOp,
			InactivityTimeoutSec: int(sl.InactivityTimeout / time.Second),
		},
	}
}

// Loader resolves a Config from (in ascending precedence) defaults, a
// discovered config file, UCP_* environment variables, and bound CLI
// flags — the same precedence order viper_cli.go documents for the
// teacher's NANOSTORE_* stack.
type Loader struct {
	v *viper.Viper
}

// NewLoader builds a Loader seeded with Default()'s values, config-file
// discovery (./ucp.yaml, $HOME/.ucp/ucp.yaml, /etc/ucp/ucp.yaml, or the
// path named by UCP_CONFIG), and UCP_* environment variable binding.
func NewLoader() *Loader {
	v := viper.New()
	seedDefaults(v, Default())

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("ucp")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.ucp")
	v.AddConfigPath("/etc/ucp")
	if p := os.Getenv(envPrefix + "_CONFIG"); p != "" {
		v.SetConfigFile(p)
	}

	return &Loader{v: v}
}

func seedDefaults(v *viper.Viper, c Config) {
	v.SetDefault("log_level", c.LogLevel)
	v.SetDefault("log_file", c.LogFile)
	v.SetDefault("log_stdout", c.LogStdout)
	v.SetDefault("global_limits.max_concurrent_sessions", c.GlobalLimits.MaxConcurrentSessions)
	v.SetDefault("global_limits.max_total_context_blocks", c.GlobalLimits.MaxTotalContextBlocks)
	v.SetDefault("global_limits.max_ops_per_second", c.GlobalLimits.MaxOpsPerSecond)
	v.SetDefault("global_limits.operation_timeout_seconds", c.GlobalLimits.OperationTimeoutSec)
	v.SetDefault("session_limits.max_tokens_hint", c.SessionLimits.MaxTokensHint)
	v.SetDefault("session_limits.max_context_blocks_hint", c.SessionLimits.MaxContextBlocksHint)
	v.SetDefault("session_limits.max_expand_depth", c.SessionLimits.MaxExpandDepth)
	v.SetDefault("session_limits.max_results_per_op", c.SessionLimits.MaxResultsPerOp)
	v.SetDefault("session_limits.inactivity_timeout_seconds", c.SessionLimits.InactivityTimeoutSec)
}

// BindFlags wires a cobra/pflag flag set's values into the loader at the
// top of the precedence chain, so `--log-level debug` beats both the
// config file and UCP_LOG_LEVEL.
func (l *Loader) BindFlags(flags *pflag.FlagSet) error {
	for _, pair := range [][2]string{
		{"log-level", "log_level"},
		{"log-file", "log_file"},
		{"log-stdout", "log_stdout"},
		{"max-concurrent-sessions", "global_limits.max_concurrent_sessions"},
		{"max-total-context-blocks", "global_limits.max_total_context_blocks"},
		{"max-ops-per-second", "global_limits.max_ops_per_second"},
	} {
		if f := flags.Lookup(pair[0]); f != nil {
			if err := l.v.BindPFlag(pair[1], f); err != nil {
				return fmt.Errorf("config: bind flag %q: %w", pair[0], err)
			}
		}
	}
	return nil
}

// ConfigFileUsed reports the path of the config file actually loaded, if
// any — set only after Load runs.
func (l *Loader) ConfigFileUsed() string { return l.v.ConfigFileUsed() }

// Load reads the discovered config file (a missing file is not an
// error; a malformed one is) and unmarshals the merged flag/env/file/
// default view into a Config.
func (l *Loader) Load() (Config, error) {
	if err := l.v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return Config{}, fmt.Errorf("config: reading config file: %w", err)
		}
	}
	var c Config
	if err := l.v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("config: unmarshaling: %w", err)
	}
	return c, nil
}
