package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// formatterHandler adapts a LogFormatter (text/JSON/color) to slog.Handler,
// so CONFIG.LogFormat can select between the structured JSON path (the
// default, via slog.NewJSONHandler) and the hand-rolled text/color
// formatters for operators who want to read logs directly on a terminal.
type formatterHandler struct {
	mu        *sync.Mutex
	w         io.Writer
	formatter LogFormatter
	level     slog.Level
	attrs     []slog.Attr
	group     string
}

// NewFormatted creates a Logger backed by one of the retained formatters
// ("text", "color", or "json") writing to w at the given level. An
// unrecognized format falls back to JSONFormatter, matching
// LevelFromString's unrecognized-input fallback to INFO.
func NewFormatted(level slog.Level, format string, w io.Writer) *Logger {
	var f LogFormatter
	switch format {
	case "text":
		f = &TextFormatter{}
	case "color":
		f = &ColorFormatter{}
	default:
		f = &JSONFormatter{}
	}
	h := &formatterHandler{
		mu:        &sync.Mutex{},
		w:         w,
		formatter: f,
		level:     level,
	}
	return &Logger{inner: slog.New(h)}
}

func (h *formatterHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *formatterHandler) Handle(_ context.Context, r slog.Record) error {
	fields := make(map[string]interface{}, r.NumAttrs()+len(h.attrs))
	for _, a := range h.attrs {
		fields[h.qualify(a.Key)] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		fields[h.qualify(a.Key)] = a.Value.Any()
		return true
	})

	entry := LogEntry{
		Timestamp: r.Time,
		Level:     slogLevelToLogLevel(r.Level),
		Message:   r.Message,
		Fields:    fields,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := fmt.Fprintln(h.w, h.formatter.Format(entry))
	return err
}

func (h *formatterHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &formatterHandler{mu: h.mu, w: h.w, formatter: h.formatter, level: h.level, attrs: merged, group: h.group}
}

func (h *formatterHandler) WithGroup(name string) slog.Handler {
	group := name
	if h.group != "" {
		group = h.group + "." + name
	}
	return &formatterHandler{mu: h.mu, w: h.w, formatter: h.formatter, level: h.level, attrs: h.attrs, group: group}
}

func (h *formatterHandler) qualify(key string) string {
	if h.group == "" {
		return key
	}
	return h.group + "." + key
}

// slogLevelToLogLevel maps slog's levels onto the retained LogLevel enum.
// slog has no FATAL level, so LevelError and above both map to ERROR; a
// process-terminating condition is the caller's decision, not the logger's.
func slogLevelToLogLevel(l slog.Level) LogLevel {
	switch {
	case l < slog.LevelInfo:
		return DEBUG
	case l < slog.LevelWarn:
		return INFO
	case l < slog.LevelError:
		return WARN
	default:
		return ERROR
	}
}
