package logger

import (
	"log/slog"
	"os"
)

// New creates a JSON logger writing to stdout at info level, with optional
// context extractors applied to every record.
func New(extractors ...ContextExtractor) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	return slog.New(NewLogHandlerDecorator(handler, extractors...))
}
