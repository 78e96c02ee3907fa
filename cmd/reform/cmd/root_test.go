package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetVersionFunction(t *testing.T) {
	SetVersion("test-version-func", "test-commit", "test-date")
	assert.Equal(t, "test-version-func", GetVersion())
}

func TestVersionCommand(t *testing.T) {
	SetVersion("v1.2.3", "abc123def", "2026-01-15")

	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	t.Cleanup(func() { versionCmd.SetOut(nil) })
	versionCmd.Run(versionCmd, nil)

	out := buf.String()
	assert.Contains(t, out, "reform v1.2.3")
	assert.Contains(t, out, "commit: abc123def")
	assert.Contains(t, out, "built:  2026-01-15")
}

func TestSubcommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"format", "templates", "tones", "agents", "doctor", "history", "serve", "config", "version"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestConfigInit(t *testing.T) {
	home := isolate(t)
	configInitProject = false
	configInitForce = false
	t.Cleanup(func() { configInitForce = false })

	var buf bytes.Buffer
	configInitCmd.SetOut(&buf)
	t.Cleanup(func() { configInitCmd.SetOut(nil) })

	require.NoError(t, runConfigInit(configInitCmd, nil))
	path := filepath.Join(home, ".config", "reform", "config.yaml")
	assert.FileExists(t, path)
	assert.Contains(t, buf.String(), path)

	err := runConfigInit(configInitCmd, nil)
	assert.ErrorContains(t, err, "--force")

	configInitForce = true
	assert.NoError(t, runConfigInit(configInitCmd, nil))

	// The written file must load and validate.
	cfg, loader, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, path, loader.ConfigFile())
	assert.Equal(t, "sonnet", cfg.Agents.Claude.Model)
}

func TestConfigShowRedactsTokens(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".reform.yaml"),
		[]byte("agents:\n  claude:\n    token: sk-secret-value\n"), 0o600))

	var buf bytes.Buffer
	configShowCmd.SetOut(&buf)
	t.Cleanup(func() { configShowCmd.SetOut(nil) })

	require.NoError(t, runConfigShow(configShowCmd, nil))
	assert.NotContains(t, buf.String(), "sk-secret-value")
	assert.Contains(t, buf.String(), "[REDACTED]")
}

func TestDotenvTokenReachesConfig(t *testing.T) {
	dir := isolate(t)
	t.Setenv("REFORM_AGENTS_GEMINI_TOKEN", "")
	require.NoError(t, os.Unsetenv("REFORM_AGENTS_GEMINI_TOKEN"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("REFORM_AGENTS_GEMINI_TOKEN=from-dotenv\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("REFORM_AGENTS_GEMINI_TOKEN") })

	cfg, _, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Agents.Gemini.Token)
}

func TestDoctor(t *testing.T) {
	a, stdout, _ := testApp(t, &fakeAgent{})
	a.cfg.Execution.Preflight.Enabled = false

	prevLook, prevVersion := lookPath, versionOf
	t.Cleanup(func() { lookPath, versionOf = prevLook, prevVersion })
	lookPath = func(name string) (string, error) {
		if name == "claude" {
			return "/usr/local/bin/claude", nil
		}
		return "", errors.New("executable file not found in $PATH")
	}
	versionOf = func(_ context.Context, _ string) (string, error) { return "1.0.0 (Claude Code)", nil }

	require.NoError(t, a.doctor(context.Background()))
	out := stdout.String()
	assert.Contains(t, out, "✓ claude 1.0.0 (Claude Code)")
	assert.Contains(t, out, "○ codex")
	assert.Contains(t, out, "Ready to format")

	a.cfg.Agents.Default = "codex"
	stdout.Reset()
	assert.Error(t, a.doctor(context.Background()))
	assert.Contains(t, stdout.String(), `Default agent "codex" is not installed`)
}
