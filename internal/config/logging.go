package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/ucp/internal/ucp/events"
)

var logLevelByName = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// Loggers bundles the three package-level event sinks the ambient stack
// calls for — one per concern rather than a single shared logger,
// following nanostore/cmd/logging.go's split between its main, queries,
// and results loggers.
type Loggers struct {
	Engine *events.Sink
	UCL    *events.Sink
	Agent  *events.Sink
}

// InitLogging opens cfg.LogFile (JSON handler, creating parent
// directories as needed) and, when cfg.LogStdout is set, mirrors every
// record to stdout through a multiHandler, exactly as the teacher's
// initLogging does for its query/result logs.
func InitLogging(cfg Config) (Loggers, error) {
	level, ok := logLevelByName[strings.ToLower(cfg.LogLevel)]
	if !ok {
		level = slog.LevelWarn
	}

	if dir := filepath.Dir(cfg.LogFile); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Loggers{}, fmt.Errorf("config: creating log directory: %w", err)
		}
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return Loggers{}, fmt.Errorf("config: opening log file: %w", err)
	}

	var handler slog.Handler = slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level, AddSource: true})
	if cfg.LogStdout {
		handler = &multiHandler{handlers: []slog.Handler{
			handler,
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}),
		}}
	}

	base := slog.New(handler)
	slog.SetDefault(base)

	return Loggers{
		Engine: events.New(base.With("component", "engine")),
		UCL:    events.New(base.With("component", "ucl")),
		Agent:  events.New(base.With("component", "agent")),
	}, nil
}

// multiHandler fans one slog record out to several handlers, mirroring
// the teacher's multiHandler in nanostore/cmd/logging.go.
type multiHandler struct {
	handlers []slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, record slog.Record) error {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, record.Level) {
			if err := handler.Handle(ctx, record.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		out[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: out}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	out := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		out[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: out}
}
