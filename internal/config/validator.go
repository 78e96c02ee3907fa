package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// KnownAgents lists the agent ids the config layer accepts.
var KnownAgents = []string{"claude", "codex", "gemini", "cursor", "opencode"}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation: %s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects multiple validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// Validate validates the entire configuration.
func (v *Validator) Validate(cfg *Config) error {
	v.validateLog(&cfg.Log)
	v.validateAgents(&cfg.Agents)
	v.validateExecution(&cfg.Execution)
	v.validateHistory(&cfg.History)

	if len(v.errors) > 0 {
		return v.errors
	}
	return nil
}

// Errors returns the collected validation errors.
func (v *Validator) Errors() ValidationErrors {
	return v.errors
}

// Validate is a convenience wrapper around a fresh Validator.
func Validate(cfg *Config) error {
	return NewValidator().Validate(cfg)
}

func (v *Validator) addError(field string, value interface{}, msg string) {
	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Value:   value,
		Message: msg,
	})
}

func (v *Validator) validateLog(cfg *LogConfig) {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[cfg.Level] {
		v.addError("log.level", cfg.Level, "must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{
		"auto": true, "text": true, "json": true,
	}
	if !validFormats[cfg.Format] {
		v.addError("log.format", cfg.Format, "must be one of: auto, text, json")
	}
}

func (v *Validator) validateAgents(cfg *AgentsConfig) {
	known := false
	for _, id := range KnownAgents {
		if cfg.Default == id {
			known = true
			break
		}
	}
	if !known {
		v.addError("agents.default", cfg.Default, "must be one of: "+strings.Join(KnownAgents, ", "))
	}
}

func (v *Validator) validateExecution(cfg *ExecutionConfig) {
	d, err := time.ParseDuration(cfg.Timeout)
	switch {
	case err != nil:
		v.addError("execution.timeout", cfg.Timeout, "invalid duration format")
	case d <= 0:
		v.addError("execution.timeout", cfg.Timeout, "must be positive")
	}

	if cfg.MaxInputLength <= 0 {
		v.addError("execution.max_input_length", cfg.MaxInputLength, "must be positive")
	}

	if cfg.WorkDir != "" {
		info, err := os.Stat(cfg.WorkDir)
		if err != nil || !info.IsDir() {
			v.addError("execution.work_dir", cfg.WorkDir, "must be an existing directory")
		}
	}

	if cfg.Preflight.Enabled && cfg.Preflight.MinFreeMemoryMB < 0 {
		v.addError("execution.preflight.min_free_memory_mb", cfg.Preflight.MinFreeMemoryMB, "must not be negative")
	}
}

func (v *Validator) validateHistory(cfg *HistoryConfig) {
	if cfg.Enabled && strings.TrimSpace(cfg.Path) == "" {
		v.addError("history.path", cfg.Path, "required when history is enabled")
	}
}
