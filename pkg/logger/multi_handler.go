package logger

import (
	"context"
	"errors"
	"log/slog"
)

// multiHandler fans each record out to every destination that accepts its
// level. One destination failing does not stop delivery to the others.
type multiHandler struct {
	handlers []slog.Handler
}

func newMultiHandler(handlers ...slog.Handler) slog.Handler {
	return &multiHandler{handlers: handlers}
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, dest := range h.handlers {
		if dest.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, rec slog.Record) error {
	var errs []error
	for _, dest := range h.handlers {
		if !dest.Enabled(ctx, rec.Level) {
			continue
		}
		if err := dest.Handle(ctx, rec.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, dest := range h.handlers {
		next[i] = dest.WithAttrs(attrs)
	}
	return newMultiHandler(next...)
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, dest := range h.handlers {
		next[i] = dest.WithGroup(name)
	}
	return newMultiHandler(next...)
}
