package logging

import (
	"context"
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
	"golang.org/x/term"
)

type SlogLogger struct {
	l *slog.Logger
}

func NewSlogLogger(l *slog.Logger) *SlogLogger {
	return &SlogLogger{l: l}
}

// NewDefault builds the application logger. Output to stderr uses a text
// handler when stderr is a terminal and a JSON handler otherwise. When
// logFile is non-empty, records are additionally fanned out to that file
// as JSON; a file open failure falls back to stderr-only logging.
func NewDefault(level slog.Level, logFile string) *SlogLogger {
	opts := &slog.HandlerOptions{Level: level}

	var console slog.Handler
	if term.IsTerminal(int(os.Stderr.Fd())) {
		console = slog.NewTextHandler(os.Stderr, opts)
	} else {
		console = slog.NewJSONHandler(os.Stderr, opts)
	}

	handlers := []slog.Handler{console}
	if logFile != "" {
		if f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600); err == nil {
			handlers = append(handlers, slog.NewJSONHandler(io.Writer(f), opts))
		}
	}

	if len(handlers) == 1 {
		return NewSlogLogger(slog.New(handlers[0]))
	}
	return NewSlogLogger(slog.New(slogmulti.Fanout(handlers...)))
}

func (s *SlogLogger) Debug(ctx context.Context, msg string, args ...any) {
	s.l.DebugContext(ctx, msg, args...)
}

func (s *SlogLogger) Info(ctx context.Context, msg string, args ...any) {
	s.l.InfoContext(ctx, msg, args...)
}

func (s *SlogLogger) Warn(ctx context.Context, msg string, args ...any) {
	s.l.WarnContext(ctx, msg, args...)
}

func (s *SlogLogger) Error(ctx context.Context, msg string, args ...any) {
	s.l.ErrorContext(ctx, msg, args...)
}

func (s *SlogLogger) With(args ...any) Logger {
	return &SlogLogger{l: s.l.With(args...)}
}
