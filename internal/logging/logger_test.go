package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
)

func TestSanitizer_AgentCredentials(t *testing.T) {
	tests := []struct {
		name   string
		secret string
	}{
		{"anthropic", "sk-ant-api03-" + strings.Repeat("a1B2", 10)},
		{"openai", "sk-proj-" + strings.Repeat("Xy9", 10)},
		{"gemini", "AIza" + strings.Repeat("k", 35)},
		{"cursor", "key_" + strings.Repeat("0f", 20)},
		{"bearer", "Bearer " + strings.Repeat("t", 30)},
		{"token field", "token=" + strings.Repeat("Q", 24)},
	}
	s := NewSanitizer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Sanitize("claude exited with code 1: invalid " + tt.secret + " rejected")
			if strings.Contains(got, tt.secret) {
				t.Errorf("secret survived: %q", got)
			}
			if !strings.Contains(got, redacted) {
				t.Errorf("expected %s in %q", redacted, got)
			}
		})
	}
}

func TestSanitizer_LeavesOrdinaryLinesAlone(t *testing.T) {
	s := NewSanitizer()
	for _, line := range []string{
		"processor: run failed category=timeout recoverable=true",
		"cli: spawned agent pid=4242 model=gpt-5-codex",
		"ask-me-anything template applied",
		"tokens used: 1234",
	} {
		if got := s.Sanitize(line); got != line {
			t.Errorf("Sanitize(%q) = %q", line, got)
		}
	}
}

func TestSanitizer_AddSecret(t *testing.T) {
	s := NewSanitizer()
	s.AddSecret("short")
	s.AddSecret("cursor.tok+en$1")

	got := s.Sanitize("auth short with cursor.tok+en$1 done")
	if got != "auth short with "+redacted+" done" {
		t.Errorf("unexpected sanitize result %q", got)
	}
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("invalid JSON log line %q: %v", buf.String(), err)
	}
	return m
}

func TestLogger_RedactsConfiguredTokens(t *testing.T) {
	const token = "gemini-local-token-123"
	var buf bytes.Buffer
	logger := New(Config{Format: "json", Output: &buf, Secrets: []string{token}})

	logger.WithAgent("gemini").Warn("cli: command failed with "+token,
		"stderr", "GEMINI_API_KEY="+token,
		"error", errors.New("401 for "+token),
	)

	if strings.Contains(buf.String(), token) {
		t.Fatalf("token leaked: %s", buf.String())
	}
	m := decodeLine(t, &buf)
	if m["agent"] != "gemini" {
		t.Errorf("agent = %v", m["agent"])
	}
	if m["error"] != "401 for "+redacted {
		t.Errorf("error = %v", m["error"])
	}
}

func TestLogger_RunAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Format: "json", Output: &buf, Level: "debug"})

	logger.WithExecution("exec-1").WithSession("sess-1").Debug("processor: run started")

	m := decodeLine(t, &buf)
	if m["execution_id"] != "exec-1" || m["session_id"] != "sess-1" {
		t.Errorf("missing run attributes: %v", m)
	}
}

func TestLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Format: "text", Output: &buf, Level: "WARN"})

	logger.Info("hidden")
	logger.Warn("shown")

	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestLogger_DefaultsToStderr(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	orig := os.Stderr
	os.Stderr = w
	New(Config{Format: "json"}).Info("to stderr")
	os.Stderr = orig
	w.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), "to stderr") {
		t.Errorf("expected line on stderr, got %q", out)
	}
}

func TestNewHandler_Selection(t *testing.T) {
	cfg := Config{Format: "auto", Output: io.Discard}

	if _, ok := newHandler(cfg, true, false).(*prettyHandler); !ok {
		t.Error("terminal should get the pretty handler")
	}
	if _, ok := newHandler(cfg, true, true).(*slog.TextHandler); !ok {
		t.Error("NO_COLOR terminal should get the text handler")
	}
	if _, ok := newHandler(cfg, false, false).(*slog.JSONHandler); !ok {
		t.Error("non-terminal should get JSON")
	}
	cfg.Format = "text"
	if _, ok := newHandler(cfg, false, false).(*slog.TextHandler); !ok {
		t.Error("explicit text format ignored")
	}
}

func TestPrettyHandler_TagsAgentAndExecution(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newPrettyHandler(&buf, slog.LevelDebug)).With("agent", "claude")

	logger.Warn("processor: run failed",
		"execution_id", "3f2a9c1e-0000-4000-8000-000000000000",
		"category", "timeout",
		"detail", "took too long",
	)

	line := ansi.Strip(buf.String())
	want := "WRN [claude 3f2a9c1e] processor: run failed category=timeout detail=\"took too long\"\n"
	if !strings.HasSuffix(line, want) {
		t.Errorf("got %q, want suffix %q", line, want)
	}
}

func TestPrettyHandler_GroupsAndLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newPrettyHandler(&buf, slog.LevelInfo))

	logger.Debug("dropped")
	logger.WithGroup("http").Info("request", "status", 200)

	line := ansi.Strip(buf.String())
	if strings.Contains(line, "dropped") {
		t.Errorf("debug line written below level: %q", line)
	}
	if !strings.Contains(line, "INF request http.status=200") {
		t.Errorf("unexpected line %q", line)
	}
}
