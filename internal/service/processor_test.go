package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/reform-ai/internal/adapters/cli"
	"github.com/hugo-lorenzo-mato/reform-ai/internal/core"
	"github.com/hugo-lorenzo-mato/reform-ai/internal/events"
	"github.com/hugo-lorenzo-mato/reform-ai/internal/failure"
	"github.com/hugo-lorenzo-mato/reform-ai/internal/prompt"
)

// fakeExecutor records Execute calls; tests drive events through fire.
type fakeExecutor struct {
	mu        sync.Mutex
	states    []*core.ExecutionState
	observers []core.RunObserver
	token     uint64
}

func (f *fakeExecutor) Execute(_ context.Context, state *core.ExecutionState, observer core.RunObserver) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token++
	f.states = append(f.states, state)
	f.observers = append(f.observers, observer)
	return f.token
}

func (f *fakeExecutor) IsRunning() bool { return false }
func (f *fakeExecutor) Output() string  { return "" }
func (f *fakeExecutor) Err() error      { return nil }

func (f *fakeExecutor) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.states)
}

func (f *fakeExecutor) state(i int) *core.ExecutionState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.states[i]
}

func (f *fakeExecutor) fire(i int, ev core.RunEvent) {
	f.mu.Lock()
	obs := f.observers[i]
	st := f.states[i]
	f.mu.Unlock()
	ev.State = st
	obs(ev)
}

func (f *fakeExecutor) start(i int) {
	f.fire(i, core.RunEvent{Type: core.RunEventStarted})
}

func (f *fakeExecutor) complete(i int, output string) {
	f.fire(i, core.RunEvent{Type: core.RunEventCompleted, Output: output})
}

func (f *fakeExecutor) failWith(i int, err error) {
	f.fire(i, core.RunEvent{Type: core.RunEventError, Err: err})
}

type mapTemplates map[string]core.Template

func (m mapTemplates) GetTemplate(id string) (core.Template, bool) {
	t, ok := m[id]
	return t, ok
}

type memHistory struct {
	mu      sync.Mutex
	entries []core.HistoryEntry
}

func (h *memHistory) Record(_ context.Context, e core.HistoryEntry) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, e)
	return nil
}

type harness struct {
	proc      *Processor
	primary   *fakeExecutor
	followUps []*fakeExecutor
	results   chan PrimaryResult
	history   *memHistory
	metrics   *MetricsCollector
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	templates := mapTemplates{
		"email": {ID: "email", Name: "Email", Sections: core.TemplateSections{Instructions: "Write an email"}},
	}
	composer, err := prompt.NewComposer(templates, nil)
	require.NoError(t, err)

	h := &harness{
		primary: &fakeExecutor{},
		results: make(chan PrimaryResult, 8),
		history: &memHistory{},
		metrics: NewMetricsCollector(),
	}
	var mu sync.Mutex
	newFollowUp := func() core.Executor {
		mu.Lock()
		defer mu.Unlock()
		f := &fakeExecutor{}
		h.followUps = append(h.followUps, f)
		return f
	}
	opts = append([]Option{
		WithSuccessHandler(func(r PrimaryResult) { h.results <- r }),
		WithHistory(h.history),
		WithMetrics(h.metrics),
	}, opts...)
	h.proc = NewProcessor(composer, cli.NewBuilder(cli.NewRegistry(), nil, "", nil), templates, h.primary, newFollowUp, opts...)
	return h
}

func params(template, text string) core.ProcessingParams {
	return core.ProcessingParams{Values: core.FormValues{
		Agent:      "claude",
		TemplateID: template,
		TextInput:  text,
	}}
}

func waitResult(t *testing.T, f *Future) Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	r, err := f.Wait(ctx)
	require.NoError(t, err)
	return r
}

func TestProcessText_Success(t *testing.T) {
	h := newHarness(t)

	fut, err := h.proc.ProcessText(context.Background(), params("email", "hello team"))
	require.NoError(t, err)
	require.Equal(t, 1, h.primary.calls())
	assert.True(t, h.proc.IsProcessing())

	state := h.primary.state(0)
	assert.Equal(t, "claude", state.AgentID)
	assert.Contains(t, state.OriginalPrompt, "Write an email")
	assert.Contains(t, state.OriginalPrompt, "hello team")

	h.primary.start(0)
	h.primary.complete(0, "Here's the revised text:\n\nDear team,\nhello.")

	res := waitResult(t, fut)
	require.Nil(t, res.Err)
	require.Len(t, res.Variants, 1)
	assert.Equal(t, "Dear team,\nhello.", res.Variants[0].Content)
	assert.Equal(t, "Email", res.TemplateName)
	assert.Equal(t, state.ExecutionID, res.ExecutionID)

	got := <-h.results
	assert.Equal(t, "Email", got.TemplateName)
	assert.Equal(t, "hello team", got.InputText)
	assert.Equal(t, "hello team", got.Variants[0].OriginalInput)

	assert.False(t, h.proc.IsProcessing())
	assert.Equal(t, state.ExecutionID, h.proc.SessionID())

	totals := h.metrics.Totals()
	assert.Equal(t, 1, totals.Runs)
	assert.Equal(t, 1, totals.Succeeded)
	require.Len(t, h.history.entries, 1)
	assert.Equal(t, state.ExecutionID, h.history.entries[0].SessionID)
}

func TestProcessText_DuplicateStartIgnored(t *testing.T) {
	h := newHarness(t)

	_, err := h.proc.ProcessText(context.Background(), params("email", "one"))
	require.NoError(t, err)

	fut, err := h.proc.ProcessText(context.Background(), params("email", "two"))
	assert.ErrorIs(t, err, core.ErrBusy)
	assert.Nil(t, fut)
	assert.Equal(t, 1, h.primary.calls(), "second submission must not spawn")
	assert.Equal(t, 1, h.metrics.Totals().Rejected)
}

func TestProcessText_EmptyInput(t *testing.T) {
	h := newHarness(t)

	_, err := h.proc.ProcessText(context.Background(), params("email", "   \n"))
	require.Error(t, err)
	assert.Equal(t, core.ErrCatConfiguration, core.GetCategory(err))
	assert.Equal(t, 0, h.primary.calls())
	assert.False(t, h.proc.IsProcessing())
}

func TestProcessText_CustomTemplateName(t *testing.T) {
	h := newHarness(t)

	fut, err := h.proc.ProcessText(context.Background(), params(core.NoTemplateID, "make it shorter"))
	require.NoError(t, err)
	h.primary.complete(0, "Shorter.")

	res := waitResult(t, fut)
	assert.Equal(t, "Custom", res.TemplateName)
}

func TestProcessText_TemplateNotFound(t *testing.T) {
	h := newHarness(t)

	fut, err := h.proc.ProcessText(context.Background(), params("missing", "text"))
	require.NoError(t, err)
	assert.Equal(t, 0, h.primary.calls(), "no run may start for a missing template")

	res := waitResult(t, fut)
	require.NotNil(t, res.Err)
	assert.Equal(t, core.ErrCatConfiguration, res.Err.Category)
	assert.False(t, res.Err.Recoverable)
	assert.Contains(t, res.Err.OriginalMessage, "Template not found")
	assert.Empty(t, res.ExecutionID)

	got := <-h.results
	require.Len(t, got.Variants, 1)
	assert.NotNil(t, got.Variants[0].Error)
	assert.False(t, h.proc.IsProcessing())
}

func TestProcessText_UnknownAgent(t *testing.T) {
	h := newHarness(t)
	p := params("email", "text")
	p.Values.Agent = "nope"

	fut, err := h.proc.ProcessText(context.Background(), p)
	require.NoError(t, err)
	res := waitResult(t, fut)
	require.NotNil(t, res.Err)
	assert.Equal(t, core.ErrCatConfiguration, res.Err.Category)
	assert.Equal(t, 0, h.primary.calls())
}

func TestProcessText_RunFailureBecomesErrorVariant(t *testing.T) {
	h := newHarness(t)

	fut, err := h.proc.ProcessText(context.Background(), params("email", "text"))
	require.NoError(t, err)
	h.primary.start(0)
	h.primary.failWith(0, errors.New("claude exited with code 1: Error: 401 Unauthorized"))

	res := waitResult(t, fut)
	require.NotNil(t, res.Err)
	assert.Equal(t, core.ErrCatAuthentication, res.Err.Category)
	require.Len(t, res.Variants, 1)
	assert.Equal(t, "text", res.Variants[0].OriginalInput)
	assert.False(t, h.proc.IsProcessing(), "state must reset before delivery completes")

	got := <-h.results
	assert.Equal(t, core.ErrCatAuthentication, got.Variants[0].Error.Category)

	totals := h.metrics.Totals()
	assert.Equal(t, 1, totals.Failed)
	assert.Equal(t, 1, totals.ByCategory[core.ErrCatAuthentication])
}

func TestProcessText_EmptyOutputIsParsingError(t *testing.T) {
	h := newHarness(t)

	fut, err := h.proc.ProcessText(context.Background(), params("email", "text"))
	require.NoError(t, err)
	h.primary.complete(0, "  \n\x1b[0m\n")

	res := waitResult(t, fut)
	require.NotNil(t, res.Err)
	assert.Equal(t, core.ErrCatParsing, res.Err.Category)
}

func TestProcessText_TruncatesInput(t *testing.T) {
	h := newHarness(t, WithMaxInputLength(5))

	fut, err := h.proc.ProcessText(context.Background(), params(core.NoTemplateID, "abcdefghij"))
	require.NoError(t, err)
	assert.Contains(t, h.primary.state(0).OriginalPrompt, "abcde"+prompt.TruncationSuffix)
	assert.NotContains(t, h.primary.state(0).OriginalPrompt, "abcdef")
	h.primary.complete(0, "ok")
	waitResult(t, fut)
}

func TestProcessText_WorkDir(t *testing.T) {
	h := newHarness(t, WithDefaultWorkDir("/srv/default"))

	_, err := h.proc.ProcessText(context.Background(), params("email", "text"))
	require.NoError(t, err)
	assert.Equal(t, "/srv/default", h.primary.state(0).WorkDir)
	h.primary.complete(0, "ok")

	p := params("email", "text")
	p.Values.TargetFolder = "/tmp/project"
	_, err = h.proc.ProcessText(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/project", h.primary.state(1).WorkDir)
	assert.Equal(t, "/tmp/project", h.proc.WorkDir())
}

func TestProcessFollowUp_ContinuesSession(t *testing.T) {
	h := newHarness(t)

	fut, err := h.proc.ProcessText(context.Background(), params("email", "draft"))
	require.NoError(t, err)
	primaryID := h.primary.state(0).ExecutionID
	h.primary.start(0)
	h.primary.complete(0, "Formatted draft")
	waitResult(t, fut)

	delivered := make(chan core.FormattingVariant, 1)
	question := "Can you make it\n\n\n\nfriendlier?"
	fu := h.proc.ProcessFollowUp(context.Background(), FollowUpRequest{
		Question:  question,
		Values:    core.FormValues{Agent: "claude"},
		VariantID: "placeholder-1",
		Index:     1,
		OnVariant: func(v core.FormattingVariant) { delivered <- v },
	})

	require.Len(t, h.followUps, 1)
	state := h.followUps[0].state(0)
	assert.Equal(t, primaryID, state.ExecutionID, "follow-up must resume the primary session")
	assert.Contains(t, state.Command.Args, "--resume")
	assert.Equal(t, question, state.OriginalPrompt, "follow-up prompt is the question verbatim")
	assert.True(t, state.IsFollowUp)
	assert.True(t, state.IsAdditionalVariant)

	h.followUps[0].complete(0, "Friendlier draft")

	v := <-delivered
	assert.Equal(t, "placeholder-1", v.ID)
	assert.Equal(t, 1, v.Index)
	assert.Equal(t, "Friendlier draft", v.Content)
	assert.Equal(t, question, v.OriginalInput)

	res := waitResult(t, fu)
	assert.Nil(t, res.Err)

	list := core.VariantList{{ID: "a", Content: "Formatted draft"}, {ID: "placeholder-1", Index: 1}}
	list = list.Upsert(v)
	assert.Len(t, list, 2)
	assert.Equal(t, "Friendlier draft", list[1].Content)
}

func TestProcessFollowUp_FallsBackToLastExecutionID(t *testing.T) {
	h := newHarness(t)

	fut, err := h.proc.ProcessText(context.Background(), params("email", "draft"))
	require.NoError(t, err)
	primaryID := h.primary.state(0).ExecutionID
	// No started event: the session id is never captured.
	h.primary.complete(0, "done")
	waitResult(t, fut)

	h.proc.ProcessFollowUp(context.Background(), FollowUpRequest{
		Question: "again?",
		Values:   core.FormValues{Agent: "claude"},
	})
	require.Len(t, h.followUps, 1)
	assert.Equal(t, primaryID, h.followUps[0].state(0).ExecutionID)
}

func TestProcessFollowUp_WithoutSessionFails(t *testing.T) {
	h := newHarness(t)

	delivered := make(chan core.FormattingVariant, 1)
	fu := h.proc.ProcessFollowUp(context.Background(), FollowUpRequest{
		Question:  "hello?",
		Values:    core.FormValues{Agent: "claude"},
		VariantID: "p",
		OnVariant: func(v core.FormattingVariant) { delivered <- v },
	})

	res := waitResult(t, fu)
	require.NotNil(t, res.Err)
	assert.Equal(t, core.ErrCatConfiguration, res.Err.Category)
	assert.Empty(t, h.followUps)

	v := <-delivered
	assert.Equal(t, "p", v.ID)
	assert.NotNil(t, v.Error)
}

func TestProcessFollowUp_BypassesPrimaryGuard(t *testing.T) {
	h := newHarness(t)

	_, err := h.proc.ProcessText(context.Background(), params("email", "draft"))
	require.NoError(t, err)
	h.primary.start(0)

	// Primary still running.
	h.proc.ProcessFollowUp(context.Background(), FollowUpRequest{Question: "one", Values: core.FormValues{Agent: "claude"}})
	h.proc.ProcessFollowUp(context.Background(), FollowUpRequest{Question: "two", Values: core.FormValues{Agent: "claude"}})

	assert.Len(t, h.followUps, 2, "each follow-up gets its own executor")
	assert.True(t, h.proc.IsProcessing())
}

func TestProcessFollowUp_ErrorVariant(t *testing.T) {
	h := newHarness(t)

	fut, err := h.proc.ProcessText(context.Background(), params("email", "draft"))
	require.NoError(t, err)
	h.primary.start(0)
	h.primary.complete(0, "done")
	waitResult(t, fut)

	delivered := make(chan core.FormattingVariant, 1)
	fu := h.proc.ProcessFollowUp(context.Background(), FollowUpRequest{
		Question:  "more?",
		Values:    core.FormValues{Agent: "claude"},
		VariantID: "p2",
		Index:     2,
		OnVariant: func(v core.FormattingVariant) { delivered <- v },
	})
	h.followUps[0].failWith(0, core.ErrTimeout("agent claude timed out after 5m0s"))

	v := <-delivered
	assert.Equal(t, "p2", v.ID)
	require.NotNil(t, v.Error)
	assert.Equal(t, core.ErrCatTimeout, v.Error.Category)
	assert.Equal(t, "more?", v.OriginalInput)

	res := waitResult(t, fu)
	assert.Equal(t, core.ErrCatTimeout, res.Err.Category)
	assert.Equal(t, 1, h.metrics.Totals().FollowUps)
}

func TestProcessor_ResetClearsSession(t *testing.T) {
	h := newHarness(t)

	fut, err := h.proc.ProcessText(context.Background(), params("email", "draft"))
	require.NoError(t, err)
	h.primary.start(0)
	h.primary.complete(0, "done")
	waitResult(t, fut)
	require.NotEmpty(t, h.proc.SessionID())

	h.proc.Reset()
	assert.Empty(t, h.proc.SessionID())
}

func TestProcessor_ProgressHandler(t *testing.T) {
	var mu sync.Mutex
	var chunks []string
	h := newHarness(t, WithProgressHandler(func(_ string, chunk string) {
		mu.Lock()
		chunks = append(chunks, chunk)
		mu.Unlock()
	}))

	_, err := h.proc.ProcessText(context.Background(), params("email", "draft"))
	require.NoError(t, err)
	h.primary.start(0)
	h.primary.fire(0, core.RunEvent{Type: core.RunEventChunk, Chunk: "par"})
	h.primary.fire(0, core.RunEvent{Type: core.RunEventChunk, Chunk: "tial"})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"par", "tial"}, chunks)
}

func TestProcessor_PublishesRunEvents(t *testing.T) {
	bus := events.New(16)
	defer bus.Close()
	ch := bus.Subscribe()
	h := newHarness(t, WithEvents(bus))

	fut, err := h.proc.ProcessText(context.Background(), params("email", "draft"))
	require.NoError(t, err)
	id := h.primary.state(0).ExecutionID
	h.primary.start(0)
	h.primary.fire(0, core.RunEvent{Type: core.RunEventChunk, Chunk: "Done."})
	h.primary.complete(0, "Done.")
	waitResult(t, fut)

	var types []string
	for len(ch) > 0 {
		ev := <-ch
		assert.Equal(t, id, ev.ExecutionID())
		types = append(types, ev.EventType())
	}
	assert.Equal(t, []string{events.TypeRunStarted, events.TypeRunChunk, events.TypeRunCompleted}, types)

	fut, err = h.proc.ProcessText(context.Background(), params("email", "again"))
	require.NoError(t, err)
	h.primary.start(1)
	h.primary.failWith(1, errors.New("401 Unauthorized"))
	waitResult(t, fut)

	<-ch // run_started
	failed, ok := (<-ch).(events.RunFailedEvent)
	require.True(t, ok)
	assert.Equal(t, string(core.ErrCatAuthentication), failed.Category)
}

func TestProcessor_UntrackedRunsStillResolve(t *testing.T) {
	h := newHarness(t)

	done := &run{
		kind:   kindPrimary,
		state:  &core.ExecutionState{ExecutionID: "stray-1", AgentID: "claude"},
		future: newFuture(),
		input:  "draft",
	}
	h.proc.complete(done, "Here's the revised text:\n\nFinal.")
	res := waitResult(t, done.future)
	assert.Nil(t, res.Err)
	assert.Equal(t, "stray-1", res.ExecutionID)
	require.Len(t, res.Variants, 1)
	assert.Equal(t, "Final.", res.Variants[0].Content)

	failed := &run{
		kind:   kindFollowUp,
		state:  &core.ExecutionState{ExecutionID: "stray-2", AgentID: "claude"},
		future: newFuture(),
	}
	h.proc.fail(failed, failure.ForCategory(core.ErrCatNetwork, "connection refused"))
	res = waitResult(t, failed.future)
	require.NotNil(t, res.Err)

	assert.Empty(t, h.history.entries, "untracked runs are not recorded")
	assert.Empty(t, h.results, "untracked runs skip the success handler")
}
