// Package events is the structured event sink shared by the engine and
// the agent traversal core. Every mutating operation and every agent
// navigation step emits one event here instead of maintaining its own
// ad-hoc logging, following the file+optional-stdout slog.Handler split
// the teacher's CLI sets up for its query/result logs (nanostore/cmd/logging.go).
package events

import (
	"context"
	"log/slog"
)

// Kind names the category of an emitted event.
type Kind string

const (
	KindOperation      Kind = "operation"
	KindTransaction     Kind = "transaction"
	KindSnapshot        Kind = "snapshot"
	KindSessionNav      Kind = "session_navigation"
	KindContextIntent   Kind = "context_intent"
	KindSafety          Kind = "safety"
)

// Sink emits structured events. It never blocks the caller's mutation
// path on slow I/O: Emit is expected to be cheap (a buffered/async
// handler belongs behind the slog.Handler passed to New).
type Sink struct {
	logger *slog.Logger
}

// New wraps an slog.Logger as an event Sink. Pass slog.Default() when no
// dedicated handler has been configured.
func New(logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{logger: logger}
}

// Emit records one structured event with kind, a human-readable message,
// and arbitrary structured attributes (block ids, document ids, session
// ids, metric deltas).
func (s *Sink) Emit(ctx context.Context, kind Kind, msg string, attrs ...any) {
	if s == nil || s.logger == nil {
		return
	}
	args := make([]any, 0, len(attrs)+2)
	args = append(args, "kind", string(kind))
	args = append(args, attrs...)
	s.logger.InfoContext(ctx, msg, args...)
}

// EmitError records an event at error level, typically a failed
// operation or a safety-substrate rejection.
func (s *Sink) EmitError(ctx context.Context, kind Kind, msg string, err error, attrs ...any) {
	if s == nil || s.logger == nil {
		return
	}
	args := make([]any, 0, len(attrs)+4)
	args = append(args, "kind", string(kind))
	if err != nil {
		args = append(args, "error", err.Error())
	}
	args = append(args, attrs...)
	s.logger.ErrorContext(ctx, msg, args...)
}

// Null returns a Sink that discards everything, for tests and the
// Null semantic-search wiring where no observability backend exists.
func Null() *Sink {
	return New(slog.New(slog.NewTextHandler(discard{}, &slog.HandlerOptions{Level: slog.LevelError + 1})))
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
