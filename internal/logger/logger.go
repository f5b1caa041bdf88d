package logger

import (
	"log/slog"
	"os"
)

// New creates the application slog.Logger writing JSON to stdout.
func New() *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	return slog.New(handler).With(slog.String("service", "orderdesk"))
}
