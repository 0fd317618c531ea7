// Package logging defines the minimal structured-logging surface the engine
// depends on, plus a log/slog adapter. Hosts that already run a different
// logger only need to satisfy Logger.
package logging

import (
	"context"
	"io"
	"log/slog"
)

// Logger is a context-aware, structured logger. The variadic args are
// key-value pairs, e.g.:
//
//	log.Warn(ctx, "verification record write failed", "user_id", id, "err", err)
type Logger interface {
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)
	With(args ...any) Logger
}

// Slog adapts a *slog.Logger to Logger.
type Slog struct {
	l *slog.Logger
}

// NewSlog wraps an existing slog logger. A nil argument wraps slog.Default().
func NewSlog(l *slog.Logger) *Slog {
	if l == nil {
		l = slog.Default()
	}
	return &Slog{l: l}
}

func (s *Slog) Info(ctx context.Context, msg string, args ...any) {
	s.l.InfoContext(ctx, msg, args...)
}

func (s *Slog) Warn(ctx context.Context, msg string, args ...any) {
	s.l.WarnContext(ctx, msg, args...)
}

func (s *Slog) Error(ctx context.Context, msg string, args ...any) {
	s.l.ErrorContext(ctx, msg, args...)
}

func (s *Slog) With(args ...any) Logger {
	return &Slog{l: s.l.With(args...)}
}

// NewNop returns a logger that discards everything.
func NewNop() Logger {
	return &Slog{l: slog.New(slog.NewTextHandler(io.Discard, nil))}
}
