// Package logger provides structured logging with context extraction and Sentry integration.
//
// This package extends the standard library's log/slog with two capabilities:
// automatic context-based attribute injection and optional Sentry error
// reporting. All constructors return a plain *slog.Logger, so the rest of the
// codebase depends only on slog.
//
// # Context Extractors
//
// A [ContextExtractor] pulls one attribute out of a context on every log
// call, keeping request-scoped values like request IDs fresh:
//
//	requestID := func(ctx context.Context) (slog.Attr, bool) {
//		if id := middleware.GetReqID(ctx); id != "" {
//			return slog.String("request_id", id), true
//		}
//		return slog.Attr{}, false
//	}
//
//	log := logger.New(requestID)
//	log.InfoContext(ctx, "file stored", slog.Int("size", n))
//	// {"level":"INFO","msg":"file stored","size":1200,"request_id":"abc-123"}
//
// Returning false from an extractor omits the attribute for that record.
//
// # Sentry Integration
//
// [NewWithSentry] routes records to stdout and to Sentry. Errors create
// Sentry issues, warnings are stored as searchable logs:
//
//	log := logger.NewWithSentry(logger.SentryConfig{
//		DSN:         os.Getenv("SENTRY_DSN"),
//		Environment: "production",
//	}, requestID)
//
//	log.ErrorContext(ctx, "upload confirmation failed", slog.String("file_id", fileID))
//
// With an empty DSN, or when Sentry initialization fails, the logger
// degrades to stdout only, so the same code path works in development.
//
// # Handler Decoration
//
// [NewLogHandlerDecorator] wraps any slog.Handler with extraction behavior,
// for callers that build their own handler chains:
//
//	decorated := logger.NewLogHandlerDecorator(customHandler, extractors...)
//	log := slog.New(decorated)
//
// [NewNope] returns a logger that discards everything, used as the default
// by components that accept an optional logger.
package logger
