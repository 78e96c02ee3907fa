package core

import (
	"context"
	"time"
)

// =============================================================================
// Catalog Ports
// =============================================================================

// TemplateStore resolves templates by id.
type TemplateStore interface {
	// GetTemplate returns the template or false when absent.
	GetTemplate(id string) (Template, bool)
}

// ToneStore resolves tones by id.
type ToneStore interface {
	// GetTone returns the tone or false when absent.
	GetTone(id string) (Tone, bool)
}

// =============================================================================
// Executor Port
// =============================================================================

// Executor runs one ExecutionState as a subprocess.
//
// Execute returns the run token for the started run. Every call supersedes
// the previous one: events from older tokens are never delivered. Invalid
// configurations are reported through the observer as an error event
// without spawning anything.
type Executor interface {
	Execute(ctx context.Context, state *ExecutionState, observer RunObserver) uint64

	// IsRunning reports whether the current run is still in flight.
	IsRunning() bool

	// Output returns stdout accumulated by the current run.
	// Only meaningful once IsRunning is false.
	Output() string

	// Err returns the raw error of the current run, if any.
	Err() error
}

// =============================================================================
// History Port
// =============================================================================

// HistoryEntry records one terminal run outcome.
type HistoryEntry struct {
	ExecutionID   string        `json:"execution_id"`
	SessionID     string        `json:"session_id"`
	Agent         string        `json:"agent"`
	Model         string        `json:"model,omitempty"`
	TemplateID    string        `json:"template,omitempty"`
	ToneID        string        `json:"tone,omitempty"`
	Input         string        `json:"input"`
	Output        string        `json:"output,omitempty"`
	ErrorCategory ErrorCategory `json:"error_category,omitempty"`
	IsFollowUp    bool          `json:"is_follow_up"`
	CreatedAt     time.Time     `json:"created_at"`
}

// HistoryRecorder persists run outcomes.
type HistoryRecorder interface {
	Record(ctx context.Context, entry HistoryEntry) error
}
