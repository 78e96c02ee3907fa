package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. REFORM_AGENTS_DEFAULT.
const EnvPrefix = "REFORM"

// Loader handles configuration loading from multiple sources.
type Loader struct {
	v          *viper.Viper
	configFile string
	envPrefix  string
	dotenv     []string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return NewLoaderWithViper(viper.New())
}

// NewLoaderWithViper creates a loader using an existing viper instance.
// This allows integration with CLI flag bindings.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{
		v:         v,
		envPrefix: EnvPrefix,
	}
}

// WithConfigFile sets an explicit config file path.
func (l *Loader) WithConfigFile(path string) *Loader {
	l.configFile = path
	return l
}

// WithEnvPrefix sets the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// Viper returns the underlying viper instance for flag binding.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load loads configuration from all sources.
// Precedence (highest to lowest):
// 1. CLI flags (set via viper.BindPFlag)
// 2. Environment variables (REFORM_*), including those from .env files
// 3. Project config (.reform.yaml in current directory)
// 4. User config (~/.config/reform/config.yaml)
// 5. Defaults
//
// .env files never override variables already present in the environment.
func (l *Loader) Load() (*Config, error) {
	l.setDefaults()

	l.v.SetEnvPrefix(l.envPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	} else {
		l.v.SetConfigName(".reform")
		l.v.SetConfigType("yaml")
		l.v.AddConfigPath(".")
		if dir, err := UserConfigDir(); err == nil {
			l.v.AddConfigPath(dir)
			// The user config is named config.yaml, not .reform.yaml.
			if l.fileExists(filepath.Join(dir, "config.yaml")) && !l.fileExists(".reform.yaml") {
				l.v.SetConfigFile(filepath.Join(dir, "config.yaml"))
			}
		}
	}

	// Read config file (ignore not found)
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if err := l.loadDotenv(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.ExpandPaths()

	return &cfg, nil
}

// loadDotenv loads .env next to the config file, then ./.env.
// godotenv.Load keeps the first value it sees, so the config-adjacent file wins.
func (l *Loader) loadDotenv() error {
	var candidates []string
	if used := l.v.ConfigFileUsed(); used != "" {
		candidates = append(candidates, filepath.Join(filepath.Dir(used), ".env"))
	}
	candidates = append(candidates, ".env")

	seen := make(map[string]bool, len(candidates))
	for _, path := range candidates {
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		if seen[abs] || !l.fileExists(abs) {
			continue
		}
		seen[abs] = true
		if err := godotenv.Load(abs); err != nil {
			return fmt.Errorf("loading %s: %w", abs, err)
		}
		l.dotenv = append(l.dotenv, abs)
	}
	return nil
}

func (l *Loader) fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, fs.ErrNotExist)
}

// setDefaults configures default values.
func (l *Loader) setDefaults() {
	l.v.SetDefault("log.level", "info")
	l.v.SetDefault("log.format", "auto")

	l.v.SetDefault("agents.default", "claude")
	for _, id := range []string{"claude", "codex", "gemini", "cursor", "opencode"} {
		// Registered so REFORM_AGENTS_<ID>_* overrides reach Unmarshal.
		l.v.SetDefault("agents."+id+".path", "")
		l.v.SetDefault("agents."+id+".token", "")
		l.v.SetDefault("agents."+id+".model", "")
	}

	l.v.SetDefault("execution.work_dir", "")
	l.v.SetDefault("execution.shell_path", os.Getenv("SHELL"))
	l.v.SetDefault("execution.timeout", "5m")
	l.v.SetDefault("execution.max_input_length", 20000)
	l.v.SetDefault("execution.preflight.enabled", true)
	l.v.SetDefault("execution.preflight.min_free_memory_mb", 256)

	defaultDir := ".reform"
	if dir, err := UserConfigDir(); err == nil {
		defaultDir = dir
	}
	l.v.SetDefault("catalog.path", filepath.Join(defaultDir, "catalog.yaml"))
	l.v.SetDefault("history.enabled", true)
	l.v.SetDefault("history.path", filepath.Join(defaultDir, "history.db"))

	l.v.SetDefault("server.addr", "127.0.0.1:8787")
}

// ConfigFile returns the config file path if one was used.
func (l *Loader) ConfigFile() string {
	return l.v.ConfigFileUsed()
}

// DotenvFiles returns the .env files that were loaded.
func (l *Loader) DotenvFiles() []string {
	return l.dotenv
}

// Get returns a configuration value by key.
func (l *Loader) Get(key string) interface{} {
	return l.v.Get(key)
}

// Set sets a configuration value.
func (l *Loader) Set(key string, value interface{}) {
	l.v.Set(key, value)
}
