// Package logging provides the structured logger shared by the CLI, the
// runner and the HTTP server. Every handler redacts agent credentials.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"
)

// Logger wraps slog.Logger with run-scoped helpers.
type Logger struct {
	*slog.Logger
	sanitizer *Sanitizer
}

// Config configures the logger.
type Config struct {
	Level  string
	Format string // auto, text, json
	// Output defaults to stderr so stdout carries only formatted text.
	Output io.Writer
	// Secrets are literal values to redact, typically agent tokens.
	Secrets []string
}

// New creates a logger. In auto format a terminal gets the pretty handler,
// or plain text when NO_COLOR is set; anything else gets JSON.
func New(cfg Config) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	sanitizer := NewSanitizer()
	for _, s := range cfg.Secrets {
		sanitizer.AddSecret(s)
	}

	handler := newHandler(cfg, isTerminal(cfg.Output), os.Getenv("NO_COLOR") != "")
	return &Logger{
		Logger:    slog.New(&sanitizingHandler{next: handler, sanitizer: sanitizer}),
		sanitizer: sanitizer,
	}
}

func newHandler(cfg Config, tty, noColor bool) slog.Handler {
	level := parseLevel(cfg.Level)
	opts := &slog.HandlerOptions{Level: level}
	switch cfg.Format {
	case "json":
		return slog.NewJSONHandler(cfg.Output, opts)
	case "text":
		return slog.NewTextHandler(cfg.Output, opts)
	}
	switch {
	case tty && noColor:
		return slog.NewTextHandler(cfg.Output, opts)
	case tty:
		return newPrettyHandler(cfg.Output, level)
	default:
		return slog.NewJSONHandler(cfg.Output, opts)
	}
}

// NewNop creates a logger that discards everything.
func NewNop() *Logger {
	return &Logger{
		Logger:    slog.New(slog.DiscardHandler),
		sanitizer: NewSanitizer(),
	}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func isTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}

// AddSecret redacts secret from every later log line.
func (l *Logger) AddSecret(secret string) {
	l.sanitizer.AddSecret(secret)
}

// WithExecution tags lines with the run's execution id.
func (l *Logger) WithExecution(executionID string) *Logger {
	return l.With("execution_id", executionID)
}

// WithSession tags lines with the conversation session id.
func (l *Logger) WithSession(sessionID string) *Logger {
	return l.With("session_id", sessionID)
}

// WithAgent tags lines with the agent id.
func (l *Logger) WithAgent(agent string) *Logger {
	return l.With("agent", agent)
}

// With returns a logger with custom fields.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger:    l.Logger.With(args...),
		sanitizer: l.sanitizer,
	}
}
