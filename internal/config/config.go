// Package config loads reform settings from flags, environment, YAML files
// and .env files.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Agents    AgentsConfig    `mapstructure:"agents"`
	Execution ExecutionConfig `mapstructure:"execution"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	History   HistoryConfig   `mapstructure:"history"`
	Server    ServerConfig    `mapstructure:"server"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AgentsConfig configures the supported agent CLIs.
type AgentsConfig struct {
	Default  string      `mapstructure:"default"`
	Claude   AgentConfig `mapstructure:"claude"`
	Codex    AgentConfig `mapstructure:"codex"`
	Gemini   AgentConfig `mapstructure:"gemini"`
	Cursor   AgentConfig `mapstructure:"cursor"`
	OpenCode AgentConfig `mapstructure:"opencode"`
}

// AgentConfig configures a single agent.
type AgentConfig struct {
	// Path overrides the executable name looked up on PATH.
	Path string `mapstructure:"path"`
	// Token is injected into the agent's auth environment variable.
	Token string `mapstructure:"token"`
	Model string `mapstructure:"model"`
}

// Agent returns the settings for id. Unknown ids yield the zero value.
func (a AgentsConfig) Agent(id string) AgentConfig {
	switch id {
	case "claude":
		return a.Claude
	case "codex":
		return a.Codex
	case "gemini":
		return a.Gemini
	case "cursor":
		return a.Cursor
	case "opencode":
		return a.OpenCode
	default:
		return AgentConfig{}
	}
}

// Tokens returns every configured token, for log redaction.
func (a AgentsConfig) Tokens() []string {
	var out []string
	for _, c := range []AgentConfig{a.Claude, a.Codex, a.Gemini, a.Cursor, a.OpenCode} {
		if c.Token != "" {
			out = append(out, c.Token)
		}
	}
	return out
}

// ExecutionConfig configures agent runs.
type ExecutionConfig struct {
	WorkDir        string          `mapstructure:"work_dir"`
	ShellPath      string          `mapstructure:"shell_path"`
	Timeout        string          `mapstructure:"timeout"`
	MaxInputLength int             `mapstructure:"max_input_length"`
	Preflight      PreflightConfig `mapstructure:"preflight"`
}

// TimeoutDuration parses Timeout. Callers validate first.
func (e ExecutionConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(e.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// PreflightConfig configures the resource check before spawning.
type PreflightConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	MinFreeMemoryMB int  `mapstructure:"min_free_memory_mb"`
}

// CatalogConfig locates the custom template and tone file.
type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

// HistoryConfig configures the run history database.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// ServerConfig configures `reform serve`.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// ExpandPaths resolves a leading ~ in every path setting.
func (c *Config) ExpandPaths() {
	c.Execution.WorkDir = ExpandHome(c.Execution.WorkDir)
	c.Execution.ShellPath = ExpandHome(c.Execution.ShellPath)
	c.Catalog.Path = ExpandHome(c.Catalog.Path)
	c.History.Path = ExpandHome(c.History.Path)
	c.Agents.Claude.Path = ExpandHome(c.Agents.Claude.Path)
	c.Agents.Codex.Path = ExpandHome(c.Agents.Codex.Path)
	c.Agents.Gemini.Path = ExpandHome(c.Agents.Gemini.Path)
	c.Agents.Cursor.Path = ExpandHome(c.Agents.Cursor.Path)
	c.Agents.OpenCode.Path = ExpandHome(c.Agents.OpenCode.Path)
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// UserConfigDir returns ~/.config/reform.
func UserConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "reform"), nil
}
