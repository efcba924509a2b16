package logging

import (
	"context"
	"log/slog"
)

// componentLevelHandler gates records by the level configured for the
// logger's component, falling back to the global level. The wrapped sink
// must admit the most verbose of those levels.
type componentLevelHandler struct {
	next      slog.Handler
	level     slog.Level
	overrides map[string]slog.Level
	pinned    bool
}

func newComponentLevelHandler(next slog.Handler, level slog.Level, overrides map[string]slog.Level) slog.Handler {
	if len(overrides) == 0 {
		overrides = nil
	}
	return &componentLevelHandler{next: next, level: level, overrides: overrides}
}

func (h *componentLevelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level && h.next.Enabled(ctx, level)
}

func (h *componentLevelHandler) Handle(ctx context.Context, record slog.Record) error {
	if record.Level < h.level {
		return nil
	}
	return h.next.Handle(ctx, record)
}

// WithAttrs pins the threshold the first time a component attribute with a
// configured override is attached.
func (h *componentLevelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := &componentLevelHandler{
		next:      h.next.WithAttrs(attrs),
		level:     h.level,
		overrides: h.overrides,
		pinned:    h.pinned,
	}
	if h.pinned || h.overrides == nil {
		return next
	}
	for _, attr := range attrs {
		if attr.Key != FieldComponent {
			continue
		}
		if level, ok := h.overrides[attr.Value.Resolve().String()]; ok {
			next.level = level
			next.pinned = true
		}
		break
	}
	return next
}

func (h *componentLevelHandler) WithGroup(name string) slog.Handler {
	return &componentLevelHandler{
		next:      h.next.WithGroup(name),
		level:     h.level,
		overrides: h.overrides,
		pinned:    h.pinned,
	}
}
