package observability

import (
	"context"
	"log/slog"
	"slices"
)

// ComponentKey is the attribute naming the emitting component.
const ComponentKey = "component"

// FilterHandler drops records below MinLevel from muted components and
// passes everything else to the wrapped handler. Muting is scoped: only
// loggers carrying a muted component attribute are affected, and warnings
// and errors always pass.
type FilterHandler struct {
	next      slog.Handler
	muted     []string
	minLevel  slog.Level
	component string
}

// NewFilterHandler wraps next, muting the listed components below
// slog.LevelWarn.
func NewFilterHandler(next slog.Handler, muted []string) *FilterHandler {
	return &FilterHandler{next: next, muted: muted, minLevel: slog.LevelWarn}
}

func (h *FilterHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *FilterHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level < h.minLevel {
		component := h.component
		r.Attrs(func(a slog.Attr) bool {
			if a.Key == ComponentKey {
				component = a.Value.String()
				return false
			}
			return true
		})
		if h.isMuted(component) {
			return nil
		}
	}
	return h.next.Handle(ctx, r)
}

func (h *FilterHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.next = h.next.WithAttrs(attrs)
	for _, a := range attrs {
		if a.Key == ComponentKey {
			c.component = a.Value.String()
		}
	}
	return &c
}

func (h *FilterHandler) WithGroup(name string) slog.Handler {
	c := *h
	c.next = h.next.WithGroup(name)
	return &c
}

func (h *FilterHandler) isMuted(component string) bool {
	return component != "" && slices.Contains(h.muted, component)
}
