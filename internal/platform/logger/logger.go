package logger

import (
	"log/slog"
	"os"
)

// New returns the process logger. Handlers and services take *slog.Logger and
// attach request-scoped attributes themselves.
func New() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}
