package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/hugo-lorenzo-mato/reform-ai/internal/core"
	"github.com/hugo-lorenzo-mato/reform-ai/internal/diagnostics"
	"github.com/hugo-lorenzo-mato/reform-ai/internal/logging"
)

// DefaultTimeout bounds a run when no timeout is configured.
const DefaultTimeout = 5 * time.Minute

// waitDelay is how long Wait keeps reading pipes after the process is killed.
const waitDelay = 2 * time.Second

// baseEnv disables colour and interactive prompts in every agent.
var baseEnv = map[string]string{
	"NO_COLOR":       "1",
	"FORCE_COLOR":    "0",
	"TERM":           "dumb",
	"CI":             "true",
	"REFORM_MANAGED": "true",
}

// Preflighter checks host resources before a spawn.
type Preflighter interface {
	RunPreflight() diagnostics.PreflightResult
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithTimeout sets the per-run timeout.
func WithTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLogger sets the runner logger.
func WithLogger(l *logging.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithPreflight runs p before every spawn.
func WithPreflight(p Preflighter) RunnerOption {
	return func(r *Runner) {
		r.preflight = p
	}
}

// Runner executes one ExecutionState at a time as a subprocess. It holds no
// domain logic: stdout is accumulated verbatim and failures are reported raw.
//
// Every Execute call increments the run token. Output and events from a
// superseded token are discarded.
type Runner struct {
	timeout   time.Duration
	logger    *logging.Logger
	preflight Preflighter

	mu      sync.Mutex
	token   uint64
	running bool
	output  strings.Builder
	err     error
}

// NewRunner creates a runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		timeout: DefaultTimeout,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ core.Executor = (*Runner)(nil)

// Execute starts a run for state and returns its token. The observer is
// called from the run goroutine, never from Execute itself, and must not
// call Execute.
func (r *Runner) Execute(ctx context.Context, state *core.ExecutionState, observer core.RunObserver) uint64 {
	if observer == nil {
		observer = func(core.RunEvent) {}
	}

	r.mu.Lock()
	r.token++
	token := r.token
	r.output.Reset()
	r.err = nil
	r.running = true
	r.mu.Unlock()

	if err := validateState(state); err != nil {
		r.finish(token, err)
		go r.emit(token, observer, core.NewRunEvent(core.RunEventError, token, state).WithErr(err))
		return token
	}

	go r.run(ctx, token, state, observer)
	return token
}

// IsRunning reports whether the current run is in flight.
func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Output returns stdout accumulated by the current run.
func (r *Runner) Output() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.output.String()
}

// Err returns the raw error of the current run.
func (r *Runner) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Token returns the current run token.
func (r *Runner) Token() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.token
}

func (r *Runner) current(token uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.token == token
}

// finish records the terminal state of token if it is still current.
func (r *Runner) finish(token uint64, err error) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.token != token {
		return false
	}
	r.err = err
	r.running = false
	return true
}

func (r *Runner) emit(token uint64, observer core.RunObserver, event core.RunEvent) {
	if !r.current(token) {
		return
	}
	observer(event)
}

func (r *Runner) run(ctx context.Context, token uint64, state *core.ExecutionState, observer core.RunObserver) {
	logger := r.logger.WithExecution(state.ExecutionID).WithAgent(state.AgentID)

	if r.preflight != nil {
		result := r.preflight.RunPreflight()
		for _, w := range result.Warnings {
			logger.Warn("cli: preflight warning", "warning", w)
		}
		if !result.OK {
			err := core.ErrExecution(core.CodePreflightFailed,
				fmt.Sprintf("preflight check failed: %s", strings.Join(result.Errors, "; ")))
			r.fail(token, observer, state, err)
			return
		}
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	// #nosec G204 -- executable and args come from the agent registry and validated config
	cmd := exec.CommandContext(ctx, state.Command.Executable, state.Command.Args...)
	cmd.Dir = state.WorkDir
	cmd.Stdin = strings.NewReader(state.OriginalPrompt)
	cmd.Env = buildEnv(state)
	cmd.WaitDelay = waitDelay
	configureProcAttr(cmd)

	var stderr bytes.Buffer
	stdout := &chunkWriter{runner: r, token: token, state: state, observer: observer, ready: make(chan struct{})}
	cmd.Stdout = stdout
	cmd.Stderr = &stderr

	logger.Info("cli: executing command",
		"path", state.Command.Executable,
		"args", state.Command.Args,
		"work_dir", cmd.Dir,
		"stdin_length", len(state.OriginalPrompt),
		"timeout", r.timeout,
	)

	start := time.Now()
	if err := cmd.Start(); err != nil {
		close(stdout.ready)
		startErr := translateStartError(state.Command.Executable, err)
		logger.Error("cli: failed to start command", "error", startErr)
		r.fail(token, observer, state, startErr)
		return
	}

	logger.Info("cli: process started", "pid", cmd.Process.Pid)
	r.emit(token, observer, core.NewRunEvent(core.RunEventStarted, token, state))
	close(stdout.ready)

	waitErr := cmd.Wait()
	duration := time.Since(start)

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		logger.Error("cli: command timeout",
			"duration", duration,
			"timeout", r.timeout,
			"stderr_preview", truncateForLog(stderr.String(), 1000),
		)
		r.fail(token, observer, state, core.ErrTimeout(fmt.Sprintf("agent %s timed out after %v", state.AgentID, r.timeout)))
		return
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		logger.Info("cli: command cancelled", "duration", duration)
		r.fail(token, observer, state, core.ErrExecution("CANCELLED", "run cancelled"))
		return
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			msg := failureMessage(stderr.String(), r.outputFor(token))
			logger.Error("cli: command failed",
				"exit_code", exitErr.ExitCode(),
				"duration", duration,
				"stderr", truncateForLog(stderr.String(), 2000),
			)
			r.fail(token, observer, state, core.ErrExecution(core.CodeAgentFailed,
				fmt.Sprintf("%s exited with code %d: %s", state.AgentID, exitErr.ExitCode(), msg)))
			return
		}
		logger.Error("cli: command execution error", "error", waitErr, "duration", duration)
		r.fail(token, observer, state, fmt.Errorf("executing command: %w", waitErr))
		return
	}

	output := r.outputFor(token)
	logger.Info("cli: command completed",
		"duration", duration,
		"stdout_length", len(output),
		"stderr_length", stderr.Len(),
	)
	if r.finish(token, nil) {
		r.emit(token, observer, core.NewRunEvent(core.RunEventCompleted, token, state).WithOutput(output))
	}
}

func (r *Runner) fail(token uint64, observer core.RunObserver, state *core.ExecutionState, err error) {
	if r.finish(token, err) {
		r.emit(token, observer, core.NewRunEvent(core.RunEventError, token, state).WithErr(err))
	}
}

// outputFor returns the accumulator if token is still current.
func (r *Runner) outputFor(token uint64) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.token != token {
		return ""
	}
	return r.output.String()
}

// appendChunk adds stdout to the accumulator and reports whether token is current.
func (r *Runner) appendChunk(token uint64, chunk []byte) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.token != token {
		return false
	}
	r.output.Write(chunk)
	return true
}

// chunkWriter receives stdout in arrival order from the exec copy goroutine.
// Writes block until the started event has been delivered.
type chunkWriter struct {
	runner   *Runner
	token    uint64
	state    *core.ExecutionState
	observer core.RunObserver
	ready    chan struct{}
}

func (w *chunkWriter) Write(p []byte) (int, error) {
	<-w.ready
	if w.runner.appendChunk(w.token, p) {
		w.observer(core.NewRunEvent(core.RunEventChunk, w.token, w.state).WithChunk(string(p)))
	}
	return len(p), nil
}

// validateState rejects states that cannot be spawned.
func validateState(state *core.ExecutionState) error {
	if state == nil {
		return core.ErrConfiguration("NO_STATE", "no execution state")
	}
	if strings.TrimSpace(state.Command.Executable) == "" {
		return core.ErrConfiguration(core.CodeNoExecutable,
			fmt.Sprintf("no executable configured for agent %s", state.AgentID))
	}
	if state.WorkDir != "" {
		info, err := os.Stat(state.WorkDir)
		if err != nil {
			return core.ErrConfiguration(core.CodeBadWorkDir,
				fmt.Sprintf("working directory %s is not accessible", state.WorkDir)).WithCause(err)
		}
		if !info.IsDir() {
			return core.ErrConfiguration(core.CodeBadWorkDir,
				fmt.Sprintf("working directory %s is not a directory", state.WorkDir))
		}
	}
	return nil
}

// buildEnv overlays the fixed agent environment and the per-run values on
// the current process environment. Later entries win.
func buildEnv(state *core.ExecutionState) []string {
	env := os.Environ()
	for k, v := range baseEnv {
		env = append(env, k+"="+v)
	}
	env = append(env, "REFORM_EXECUTION_ID="+state.ExecutionID)
	for k, v := range state.Env {
		env = append(env, k+"="+v)
	}
	return env
}

// translateStartError phrases spawn failures the way the classifier expects.
func translateStartError(executable string, err error) error {
	switch {
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return core.ErrExecution(core.CodeNoExecutable,
			fmt.Sprintf("spawn %s ENOENT: command not found", executable)).WithCause(err)
	case errors.Is(err, fs.ErrPermission):
		return core.ErrExecution("EACCES",
			fmt.Sprintf("spawn %s EACCES: permission denied", executable)).WithCause(err)
	default:
		return fmt.Errorf("starting command: %w", err)
	}
}

// failureMessage prefers stderr, then an error reported on stdout.
func failureMessage(stderr, stdout string) string {
	if msg := strings.TrimSpace(stderr); msg != "" {
		return truncateForLog(msg, 500)
	}
	if msg := extractErrorFromOutput(stdout); msg != "" {
		return msg
	}
	return "(no error message captured)"
}

// extractErrorFromOutput finds a JSON error object or the last plain line.
func extractErrorFromOutput(stdout string) string {
	lines := strings.Split(stdout, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var obj map[string]interface{}
		if err := json.Unmarshal([]byte(line), &obj); err != nil {
			continue
		}
		if msg, ok := obj["error"].(string); ok && msg != "" {
			return msg
		}
		if errObj, ok := obj["error"].(map[string]interface{}); ok {
			if msg, ok := errObj["message"].(string); ok && msg != "" {
				return msg
			}
		}
	}

	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line != "" && !strings.HasPrefix(line, "{") {
			return truncateForLog(line, 200)
		}
	}
	return ""
}

// truncateForLog cuts s to at most maxLen bytes on a rune boundary.
func truncateForLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	n := maxLen
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "... [truncated]"
}
