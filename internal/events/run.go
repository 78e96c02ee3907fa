package events

import "time"

// Run event types.
const (
	TypeRunStarted   = "run_started"
	TypeRunChunk     = "run_chunk"
	TypeRunCompleted = "run_completed"
	TypeRunFailed    = "run_failed"
)

// RunStartedEvent is published when an agent process has been spawned.
type RunStartedEvent struct {
	BaseEvent
	Agent    string `json:"agent"`
	Model    string `json:"model,omitempty"`
	FollowUp bool   `json:"follow_up"`
}

// NewRunStartedEvent creates a run_started event.
func NewRunStartedEvent(executionID, agent, model string, followUp bool) RunStartedEvent {
	return RunStartedEvent{
		BaseEvent: NewBaseEvent(TypeRunStarted, executionID),
		Agent:     agent,
		Model:     model,
		FollowUp:  followUp,
	}
}

// RunChunkEvent carries a piece of agent stdout.
type RunChunkEvent struct {
	BaseEvent
	Chunk string `json:"chunk"`
}

// NewRunChunkEvent creates a run_chunk event.
func NewRunChunkEvent(executionID, chunk string) RunChunkEvent {
	return RunChunkEvent{
		BaseEvent: NewBaseEvent(TypeRunChunk, executionID),
		Chunk:     chunk,
	}
}

// RunCompletedEvent is published once the cleaned output is available.
type RunCompletedEvent struct {
	BaseEvent
	Output     string `json:"output"`
	DurationMS int64  `json:"duration_ms"`
}

// NewRunCompletedEvent creates a run_completed event.
func NewRunCompletedEvent(executionID, output string, duration time.Duration) RunCompletedEvent {
	return RunCompletedEvent{
		BaseEvent:  NewBaseEvent(TypeRunCompleted, executionID),
		Output:     output,
		DurationMS: duration.Milliseconds(),
	}
}

// RunFailedEvent is published when a run ends with a classified error.
type RunFailedEvent struct {
	BaseEvent
	Category    string `json:"category"`
	Title       string `json:"title"`
	Message     string `json:"message"`
	Recoverable bool   `json:"recoverable"`
}

// NewRunFailedEvent creates a run_failed event.
func NewRunFailedEvent(executionID, category, title, message string, recoverable bool) RunFailedEvent {
	return RunFailedEvent{
		BaseEvent:   NewBaseEvent(TypeRunFailed, executionID),
		Category:    category,
		Title:       title,
		Message:     message,
		Recoverable: recoverable,
	}
}
