package cli

import (
	"errors"
	"testing"

	"github.com/hugo-lorenzo-mato/reform-ai/internal/core"
)

func TestRegistry_Builtins(t *testing.T) {
	r := NewRegistry()

	want := []string{"claude", "codex", "cursor", "gemini", "opencode"}
	got := r.IDs()
	if len(got) != len(want) {
		t.Fatalf("IDs() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("IDs()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	for _, spec := range r.List() {
		if spec.Executable == "" {
			t.Errorf("%s: empty executable", spec.ID)
		}
		if spec.Args == nil {
			t.Errorf("%s: no argument builder", spec.ID)
		}
		if !spec.HasModel(spec.DefaultModel) {
			t.Errorf("%s: default model %q not in model table", spec.ID, spec.DefaultModel)
		}
	}
}

func TestRegistry_UnknownAgent(t *testing.T) {
	r := NewRegistry()
	_, err := r.Get("nope")
	if err == nil {
		t.Fatal("expected error for unknown agent")
	}
	var domErr *core.DomainError
	if !errors.As(err, &domErr) {
		t.Fatalf("error = %T, want *core.DomainError", err)
	}
	if domErr.Code != core.CodeUnknownAgent {
		t.Errorf("Code = %q", domErr.Code)
	}
	if domErr.Category != core.ErrCatConfiguration {
		t.Errorf("Category = %q", domErr.Category)
	}
}

func TestRegistry_RegisterOverrides(t *testing.T) {
	r := NewRegistry()
	r.Register(AgentSpec{ID: "claude", Executable: "my-claude", Args: claudeArgs})

	spec, err := r.Get("claude")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if spec.Executable != "my-claude" {
		t.Errorf("Executable = %q", spec.Executable)
	}
	if !r.Has("claude") || r.Has("aider") {
		t.Error("Has() mismatch")
	}
}

func TestAgentSpec_ResolveModel(t *testing.T) {
	spec := claudeSpec()
	tests := []struct {
		name, requested, want string
	}{
		{"known", "opus", "opus"},
		{"empty uses default", "", "sonnet"},
		{"unknown falls back", "gpt-4", "sonnet"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := spec.ResolveModel(tt.requested); got != tt.want {
				t.Errorf("ResolveModel(%q) = %q, want %q", tt.requested, got, tt.want)
			}
		})
	}

	noDefault := AgentSpec{Models: []Model{{ID: "first"}, {ID: "second"}}}
	if got := noDefault.ResolveModel(""); got != "first" {
		t.Errorf("ResolveModel without default = %q, want first model", got)
	}
}
