package cmd

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/reform-ai/internal/core"
)

// fakeAgent answers every run asynchronously. reply picks the output for a
// run; a non-nil err fails it instead.
type fakeAgent struct {
	mu     sync.Mutex
	states []*core.ExecutionState
	reply  func(state *core.ExecutionState) string
	err    error
}

func (f *fakeAgent) executor() core.Executor {
	return &fakeExecutor{agent: f}
}

func (f *fakeAgent) runs() []*core.ExecutionState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*core.ExecutionState(nil), f.states...)
}

type fakeExecutor struct {
	agent *fakeAgent
	token uint64
}

func (e *fakeExecutor) Execute(_ context.Context, state *core.ExecutionState, observer core.RunObserver) uint64 {
	e.token++
	token := e.token
	e.agent.mu.Lock()
	e.agent.states = append(e.agent.states, state)
	reply, err := e.agent.reply, e.agent.err
	e.agent.mu.Unlock()

	go func() {
		observer(core.NewRunEvent(core.RunEventStarted, token, state))
		if err != nil {
			observer(core.NewRunEvent(core.RunEventError, token, state).WithErr(err))
			return
		}
		out := "ok"
		if reply != nil {
			out = reply(state)
		}
		observer(core.NewRunEvent(core.RunEventChunk, token, state).WithChunk(out))
		observer(core.NewRunEvent(core.RunEventCompleted, token, state).WithOutput(out))
	}()
	return token
}

func (e *fakeExecutor) IsRunning() bool { return false }
func (e *fakeExecutor) Output() string  { return "" }
func (e *fakeExecutor) Err() error      { return nil }

// isolate points HOME and the working directory at a fresh temp dir and
// resets global CLI state.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("USERPROFILE", dir)
	t.Chdir(dir)

	viper.Reset()
	cfgFile = ""
	outputFlag = "plain"
	noColor = true
	t.Cleanup(func() {
		viper.Reset()
		outputFlag = ""
		noColor = false
	})
	return dir
}

// testApp builds an app backed by agent with captured output.
func testApp(t *testing.T, agent *fakeAgent) (*app, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	isolate(t)

	prev := newExecutor
	newExecutor = func(*app) core.Executor { return agent.executor() }
	t.Cleanup(func() { newExecutor = prev })

	a, err := newApp(true)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	var stdout, stderr bytes.Buffer
	a.stdout = &stdout
	a.stderr = &stderr
	return a, &stdout, &stderr
}
