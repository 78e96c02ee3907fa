package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// sanitizingHandler redacts credentials from the message and every string
// or error attribute before passing the record on.
type sanitizingHandler struct {
	next      slog.Handler
	sanitizer *Sanitizer
}

func (h *sanitizingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *sanitizingHandler) Handle(ctx context.Context, r slog.Record) error {
	clean := slog.NewRecord(r.Time, r.Level, h.sanitizer.Sanitize(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		clean.AddAttrs(h.sanitizeAttr(a))
		return true
	})
	return h.next.Handle(ctx, clean)
}

func (h *sanitizingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clean := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		clean[i] = h.sanitizeAttr(a)
	}
	return &sanitizingHandler{next: h.next.WithAttrs(clean), sanitizer: h.sanitizer}
}

func (h *sanitizingHandler) WithGroup(name string) slog.Handler {
	return &sanitizingHandler{next: h.next.WithGroup(name), sanitizer: h.sanitizer}
}

func (h *sanitizingHandler) sanitizeAttr(a slog.Attr) slog.Attr {
	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return slog.String(a.Key, h.sanitizer.Sanitize(v.String()))
	case slog.KindGroup:
		group := v.Group()
		clean := make([]slog.Attr, len(group))
		for i, ga := range group {
			clean[i] = h.sanitizeAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(clean...)}
	case slog.KindAny:
		// Runner errors embed agent stderr, which may echo a token.
		if err, ok := v.Any().(error); ok {
			return slog.String(a.Key, h.sanitizer.Sanitize(err.Error()))
		}
	}
	return slog.Attr{Key: a.Key, Value: v}
}

// prettyHandler writes one line per record for an interactive terminal:
//
//	15:04:05 WRN [claude 3f2a9c1e] processor: run failed category=timeout
//
// The agent and execution_id attributes are lifted into the bracketed tag.
type prettyHandler struct {
	mu     *sync.Mutex
	w      io.Writer
	level  slog.Level
	styles prettyStyles

	agent     string
	execution string
	attrs     []slog.Attr
	prefix    string
}

type prettyStyles struct {
	time, tag, key lipgloss.Style
	levels         map[slog.Level]lipgloss.Style
}

func newPrettyHandler(w io.Writer, level slog.Level) *prettyHandler {
	r := lipgloss.NewRenderer(w)
	return &prettyHandler{
		mu:    &sync.Mutex{},
		w:     w,
		level: level,
		styles: prettyStyles{
			time: r.NewStyle().Foreground(lipgloss.Color("8")),
			tag:  r.NewStyle().Foreground(lipgloss.Color("5")),
			key:  r.NewStyle().Foreground(lipgloss.Color("6")),
			levels: map[slog.Level]lipgloss.Style{
				slog.LevelDebug: r.NewStyle().Foreground(lipgloss.Color("8")),
				slog.LevelInfo:  r.NewStyle().Foreground(lipgloss.Color("4")),
				slog.LevelWarn:  r.NewStyle().Foreground(lipgloss.Color("3")),
				slog.LevelError: r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
			},
		},
	}
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *prettyHandler) Handle(_ context.Context, r slog.Record) error {
	agent, execution := h.agent, h.execution
	var fields strings.Builder
	for _, a := range h.attrs {
		writeField(&fields, h.styles.key, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		switch {
		case h.prefix == "" && a.Key == "agent":
			agent = a.Value.String()
		case h.prefix == "" && a.Key == "execution_id":
			execution = a.Value.String()
		default:
			writeField(&fields, h.styles.key, h.prefix, a)
		}
		return true
	})

	var line strings.Builder
	line.WriteString(h.styles.time.Render(r.Time.Format("15:04:05")))
	line.WriteByte(' ')
	line.WriteString(h.levelLabel(r.Level))
	if tag := formatTag(agent, execution); tag != "" {
		line.WriteByte(' ')
		line.WriteString(h.styles.tag.Render(tag))
	}
	line.WriteByte(' ')
	line.WriteString(r.Message)
	line.WriteString(fields.String())
	line.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, line.String())
	return err
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append([]slog.Attr(nil), h.attrs...)
	for _, a := range attrs {
		switch {
		case h.prefix == "" && a.Key == "agent":
			next.agent = a.Value.String()
		case h.prefix == "" && a.Key == "execution_id":
			next.execution = a.Value.String()
		default:
			a.Key = h.prefix + a.Key
			next.attrs = append(next.attrs, a)
		}
	}
	return &next
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

func (h *prettyHandler) levelLabel(level slog.Level) string {
	var label string
	switch {
	case level >= slog.LevelError:
		label = "ERR"
	case level >= slog.LevelWarn:
		label = "WRN"
	case level >= slog.LevelInfo:
		label = "INF"
	default:
		label = "DBG"
	}
	style, ok := h.styles.levels[level]
	if !ok {
		return label
	}
	return style.Render(label)
}

// formatTag renders "[agent exec]" with the execution id cut to eight
// characters, or "" when neither is known.
func formatTag(agent, execution string) string {
	if len(execution) > 8 {
		execution = execution[:8]
	}
	parts := make([]string, 0, 2)
	for _, p := range []string{agent, execution} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func writeField(b *strings.Builder, keyStyle lipgloss.Style, prefix string, a slog.Attr) {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		inner := prefix
		if a.Key != "" {
			inner += a.Key + "."
		}
		for _, ga := range v.Group() {
			writeField(b, keyStyle, inner, ga)
		}
		return
	}
	if a.Key == "" {
		return
	}
	val := fmt.Sprint(v.Any())
	if val == "" || strings.ContainsAny(val, " \t\n\"=") {
		val = strconv.Quote(val)
	}
	b.WriteByte(' ')
	b.WriteString(keyStyle.Render(prefix + a.Key))
	b.WriteByte('=')
	b.WriteString(val)
}
