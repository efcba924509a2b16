package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// consoleHandler writes one logfmt-style line per record:
//
//	2026-03-01T10:00:00Z INFO triage[summarizer]: message key=value
//
// component and capability are lifted into the prefix. Attributes are
// flattened when attached so Handle only formats the record's own fields.
type consoleHandler struct {
	mu        *sync.Mutex
	out       io.Writer
	level     slog.Level
	addSource bool

	group      string
	component  string
	capability string
	fields     []consoleField
}

type consoleField struct {
	key   string
	value slog.Value
}

func newConsoleHandler(w io.Writer, level slog.Level, addSource bool) *consoleHandler {
	return &consoleHandler{mu: &sync.Mutex{}, out: w, level: level, addSource: addSource}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	component, capability := h.component, h.capability
	fields := append([]consoleField(nil), h.fields...)
	record.Attrs(func(attr slog.Attr) bool {
		fields = h.collect(fields, h.group, attr, &component, &capability)
		return true
	})

	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	var b strings.Builder
	b.Grow(96 + 24*len(fields))
	b.WriteString(ts.UTC().Format(time.RFC3339))
	b.WriteByte(' ')
	b.WriteString(levelLabel(record.Level))
	b.WriteByte(' ')
	if prefix := componentPrefix(component, capability); prefix != "" {
		b.WriteString(prefix)
		b.WriteString(": ")
	}
	if msg := strings.TrimSpace(record.Message); msg != "" {
		b.WriteString(msg)
	} else {
		b.WriteString("(no message)")
	}
	if h.addSource && record.PC != 0 {
		if src := record.Source(); src != nil && src.File != "" {
			fmt.Fprintf(&b, " [%s:%d]", filepath.Base(src.File), src.Line)
		}
	}
	for _, f := range fields {
		b.WriteByte(' ')
		b.WriteString(f.key)
		b.WriteByte('=')
		b.WriteString(quoteIfNeeded(valueText(f.value)))
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, b.String())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.fields = append([]consoleField(nil), h.fields...)
	for _, attr := range attrs {
		next.fields = h.collect(next.fields, h.group, attr, &next.component, &next.capability)
	}
	return &next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.group = joinKey(h.group, name)
	return &next
}

// collect flattens attr into dst using dotted keys for groups. Top-level
// component and capability attributes fill the prefix instead.
func (h *consoleHandler) collect(dst []consoleField, group string, attr slog.Attr, component, capability *string) []consoleField {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return dst
	}
	if attr.Value.Kind() == slog.KindGroup {
		inner := joinKey(group, attr.Key)
		for _, child := range attr.Value.Group() {
			dst = h.collect(dst, inner, child, component, capability)
		}
		return dst
	}
	if group == "" {
		switch attr.Key {
		case FieldComponent:
			if *component == "" {
				*component = valueText(attr.Value)
			}
			return dst
		case FieldCapability:
			if *capability == "" {
				*capability = valueText(attr.Value)
			}
			return dst
		}
	}
	return append(dst, consoleField{key: joinKey(group, attr.Key), value: attr.Value})
}

func componentPrefix(component, capability string) string {
	switch {
	case component != "" && capability != "":
		return component + "[" + capability + "]"
	case component != "":
		return component
	default:
		return capability
	}
}

func joinKey(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	default:
		return prefix + "." + key
	}
}

func valueText(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	default:
		return v.String()
	}
}

func quoteIfNeeded(s string) string {
	if s == "" || strings.ContainsFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) {
		return strconv.Quote(s)
	}
	return s
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
