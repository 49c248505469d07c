package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

// New builds the service logger. Local runs get human-readable text,
// everything else JSON.
func New(w io.Writer, env, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if env == "local" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(NewNoOpHandler())
}

type NoOpHandler struct{}

func (h *NoOpHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return false
}

func (h *NoOpHandler) Handle(_ context.Context, _ slog.Record) error {
	return nil
}

func (h *NoOpHandler) WithAttrs(_ []slog.Attr) slog.Handler {
	return h
}

func (h *NoOpHandler) WithGroup(_ string) slog.Handler {
	return h
}

func NewNoOpHandler() *NoOpHandler {
	return &NoOpHandler{}
}
