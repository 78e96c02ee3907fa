package core

import "time"

// =============================================================================
// Run Events (real-time visibility into one subprocess run)
// =============================================================================

// RunEventType defines the kind of event emitted during a run.
type RunEventType string

const (
	// RunEventStarted indicates the agent process has been spawned.
	RunEventStarted RunEventType = "started"

	// RunEventChunk indicates a stdout chunk was appended to the accumulator.
	RunEventChunk RunEventType = "chunk"

	// RunEventCompleted indicates the process exited successfully.
	RunEventCompleted RunEventType = "completed"

	// RunEventError indicates the run failed (spawn, exit code, timeout, config).
	RunEventError RunEventType = "error"
)

// RunEvent is delivered to a RunObserver for the current run token only.
type RunEvent struct {
	Type      RunEventType
	Token     uint64
	State     *ExecutionState
	Timestamp time.Time

	// Chunk is set for RunEventChunk.
	Chunk string
	// Output is the full accumulated stdout, set for RunEventCompleted.
	Output string
	// Err is the raw failure, set for RunEventError.
	Err error
}

// NewRunEvent creates a run event with the current timestamp.
func NewRunEvent(eventType RunEventType, token uint64, state *ExecutionState) RunEvent {
	return RunEvent{
		Type:      eventType,
		Token:     token,
		State:     state,
		Timestamp: time.Now(),
	}
}

// WithChunk attaches a stdout chunk.
func (e RunEvent) WithChunk(chunk string) RunEvent {
	e.Chunk = chunk
	return e
}

// WithOutput attaches the accumulated output.
func (e RunEvent) WithOutput(output string) RunEvent {
	e.Output = output
	return e
}

// WithErr attaches the raw error.
func (e RunEvent) WithErr(err error) RunEvent {
	e.Err = err
	return e
}

// RunObserver receives run events.
type RunObserver func(event RunEvent)
