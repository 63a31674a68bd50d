package logging

import (
	"context"
	"errors"
	"log/slog"
	"slices"
)

// tee fans each record out to every sink that accepts its level.
type tee []slog.Handler

// newTee collapses the trivial cases so a single sink is used directly and
// no sink discards everything.
func newTee(sinks ...slog.Handler) slog.Handler {
	switch len(sinks) {
	case 0:
		return slog.DiscardHandler
	case 1:
		return sinks[0]
	default:
		return tee(sinks)
	}
}

func (t tee) Enabled(ctx context.Context, level slog.Level) bool {
	return slices.ContainsFunc(t, func(h slog.Handler) bool {
		return h.Enabled(ctx, level)
	})
}

// Handle writes to every sink even when one fails. Sinks get their own clone
// of r since handlers may retain it.
func (t tee) Handle(ctx context.Context, r slog.Record) error { //nolint:gocritic // slog.Handler requires a value
	var errs []error

	for _, h := range t {
		if !h.Enabled(ctx, r.Level) {
			continue
		}

		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (t tee) WithAttrs(attrs []slog.Attr) slog.Handler {
	return t.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (t tee) WithGroup(name string) slog.Handler {
	return t.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (t tee) each(fn func(slog.Handler) slog.Handler) tee {
	out := make(tee, len(t))
	for i, h := range t {
		out[i] = fn(h)
	}

	return out
}
