package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigYAML is written by `reform config init`.
const DefaultConfigYAML = `# reform configuration
# Values not specified here use built-in defaults.
# Tokens can also live in a .env file next to this one.

log:
  level: info
  format: auto

agents:
  default: claude
  claude:
    model: sonnet
  codex:
    model: gpt-5
  gemini:
    model: gemini-2.5-flash
  cursor:
    path: cursor-agent
  opencode:
    model: anthropic/claude-sonnet-4

execution:
  timeout: 5m
  max_input_length: 20000
  preflight:
    enabled: true
    min_free_memory_mb: 256

history:
  enabled: true
`

// InitFile writes DefaultConfigYAML to path. An existing file is kept
// unless force is set.
func InitFile(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	if err := atomicWrite(path, []byte(DefaultConfigYAML)); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// atomicWrite writes to a temp file in the target directory and renames it
// over path, keeping the permissions of an existing file.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}

	perm := os.FileMode(0o600)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	fail := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}

	if err := tmp.Chmod(perm); err != nil {
		return fail(err)
	}
	if _, err := tmp.Write(data); err != nil {
		return fail(err)
	}
	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		return fail(err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}
