package logger

import (
	"context"
	"log/slog"
	"os"

	"github.com/getsentry/sentry-go"
	sentryslog "github.com/getsentry/sentry-go/slog"
)

// SentryConfig holds Sentry integration configuration.
type SentryConfig struct {
	DSN         string
	Environment string
	// MinLevel determines which log levels are forwarded to Sentry.
	// slog.LevelError forwards only errors, anything lower includes warnings.
	MinLevel slog.Level
}

// NewWithSentry creates a logger writing to stdout and, when a DSN is
// configured and reachable, to Sentry. With an empty DSN it degrades to
// stdout only, so the same call works in local development. Context
// extractors apply to both destinations.
func NewWithSentry(cfg SentryConfig, extractors ...ContextExtractor) *slog.Logger {
	stdout := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	wrap := func(h slog.Handler) *slog.Logger {
		return slog.New(NewLogHandlerDecorator(h, extractors...))
	}

	if cfg.DSN == "" {
		return wrap(stdout)
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		EnableLogs:  true,
	})
	if err != nil {
		slog.New(stdout).Error("sentry init failed", slog.String("error", err.Error()))
		return wrap(stdout)
	}

	// Errors become Sentry issues. Warnings are stored as searchable logs
	// unless MinLevel restricts forwarding to errors only.
	logLevels := []slog.Level{slog.LevelWarn, slog.LevelError}
	if cfg.MinLevel >= slog.LevelError {
		logLevels = []slog.Level{slog.LevelError}
	}
	sentryHandler := sentryslog.Option{
		EventLevel: []slog.Level{slog.LevelError},
		LogLevel:   logLevels,
	}.NewSentryHandler(context.Background())

	return wrap(newMultiHandler(stdout, sentryHandler))
}
