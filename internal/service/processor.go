// Package service drives agent runs from submission to displayable variants.
package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hugo-lorenzo-mato/reform-ai/internal/adapters/cli"
	"github.com/hugo-lorenzo-mato/reform-ai/internal/core"
	"github.com/hugo-lorenzo-mato/reform-ai/internal/events"
	"github.com/hugo-lorenzo-mato/reform-ai/internal/failure"
	"github.com/hugo-lorenzo-mato/reform-ai/internal/logging"
	"github.com/hugo-lorenzo-mato/reform-ai/internal/prompt"
	"github.com/hugo-lorenzo-mato/reform-ai/internal/response"
)

// CommandBuilder produces the execution state for one run.
type CommandBuilder interface {
	Build(req cli.BuildRequest) (*core.ExecutionState, error)
}

// PrimaryResult is delivered to the success handler after a primary run.
// Failed runs arrive here too, as a single error variant.
type PrimaryResult struct {
	Variants     []core.FormattingVariant
	TemplateName string
	Values       core.FormValues
	InputText    string
}

// SuccessHandler receives primary run outcomes.
type SuccessHandler func(PrimaryResult)

// VariantHandler receives the outcome of one follow-up.
type VariantHandler func(core.FormattingVariant)

// ProgressHandler receives stdout chunks while a run is in flight.
type ProgressHandler func(executionID, chunk string)

// FollowUpRequest asks a question about the current conversation.
type FollowUpRequest struct {
	Question string
	// Values carries the agent and model of the conversation.
	Values core.FormValues
	// VariantID is the id of the placeholder to replace. Minted when empty.
	VariantID string
	Index     int
	OnVariant VariantHandler
}

type runKind int

const (
	kindPrimary runKind = iota
	kindFollowUp
)

// run is the bookkeeping for one in-flight ExecutionState.
type run struct {
	kind      runKind
	state     *core.ExecutionState
	future    *Future
	values    core.FormValues
	input     string
	variantID string
	index     int
	onVariant VariantHandler
	startedAt time.Time
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the processor logger.
func WithLogger(l *logging.Logger) Option {
	return func(p *Processor) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithSuccessHandler sets the primary success handler.
func WithSuccessHandler(h SuccessHandler) Option {
	return func(p *Processor) {
		p.onSuccess = h
	}
}

// WithProgressHandler sets the stdout chunk handler.
func WithProgressHandler(h ProgressHandler) Option {
	return func(p *Processor) {
		p.onProgress = h
	}
}

// WithHistory records every terminal outcome.
func WithHistory(h core.HistoryRecorder) Option {
	return func(p *Processor) {
		p.history = h
	}
}

// WithEvents publishes run progress on bus.
func WithEvents(bus *events.Bus) Option {
	return func(p *Processor) {
		p.events = bus
	}
}

// WithMetrics feeds run outcomes to m.
func WithMetrics(m *MetricsCollector) Option {
	return func(p *Processor) {
		p.metrics = m
	}
}

// WithMaxInputLength truncates input to n runes. Zero disables truncation.
func WithMaxInputLength(n int) Option {
	return func(p *Processor) {
		p.maxInputLength = n
	}
}

// WithDefaultWorkDir is used when a submission names no target folder.
func WithDefaultWorkDir(dir string) Option {
	return func(p *Processor) {
		p.defaultWorkDir = dir
	}
}

// Processor is the state machine tying composition, command building,
// execution and cleaning together.
//
// At most one primary run is in flight; a second ProcessText is rejected
// with core.ErrBusy. Follow-ups bypass that guard and each gets its own
// executor, so concurrent follow-ups never share state.
type Processor struct {
	composer    *prompt.Composer
	builder     CommandBuilder
	templates   core.TemplateStore
	primary     core.Executor
	newFollowUp func() core.Executor

	logger         *logging.Logger
	onSuccess      SuccessHandler
	onProgress     ProgressHandler
	history        core.HistoryRecorder
	metrics        *MetricsCollector
	events         *events.Bus
	maxInputLength int
	defaultWorkDir string

	mu              sync.Mutex
	processing      bool
	primaryRun      *run
	followUps       map[*run]struct{}
	sessionID       string
	lastExecutionID string
	workDir         string
}

// NewProcessor creates a processor. primary runs primary submissions;
// newFollowUp supplies a fresh executor for every follow-up.
func NewProcessor(
	composer *prompt.Composer,
	builder CommandBuilder,
	templates core.TemplateStore,
	primary core.Executor,
	newFollowUp func() core.Executor,
	opts ...Option,
) *Processor {
	p := &Processor{
		composer:    composer,
		builder:     builder,
		templates:   templates,
		primary:     primary,
		newFollowUp: newFollowUp,
		logger:      logging.NewNop(),
		followUps:   make(map[*run]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessText starts a primary run. It returns core.ErrBusy without side
// effects when a primary run is already active, and a validation error for
// empty input. Composition and configuration failures resolve the future
// immediately with an error variant and never start a run.
func (p *Processor) ProcessText(ctx context.Context, params core.ProcessingParams) (*Future, error) {
	p.mu.Lock()
	if p.processing {
		p.mu.Unlock()
		p.logger.Warn("processor: duplicate start ignored", "agent", params.Values.Agent)
		if p.metrics != nil {
			p.metrics.RecordRejected()
		}
		return nil, core.ErrBusy
	}

	input := params.InputText
	if input == "" {
		input = params.Values.TextInput
	}
	if strings.TrimSpace(input) == "" {
		p.mu.Unlock()
		return nil, core.ErrValidation(core.CodeEmptyInput, "input text is empty")
	}

	p.processing = true
	p.sessionID = ""
	p.lastExecutionID = ""
	p.workDir = p.resolveWorkDir(params.Values.TargetFolder)
	workDir := p.workDir
	p.mu.Unlock()

	values := params.Values
	if truncated, cut := prompt.TruncateInput(input, p.maxInputLength); cut {
		p.logger.Info("processor: input truncated", "max_length", p.maxInputLength)
		input = truncated
	}

	r := &run{
		kind:   kindPrimary,
		future: newFuture(),
		values: values,
		input:  input,
	}

	composed, err := p.composer.Compose(prompt.Request{
		TemplateID:        values.TemplateID,
		ToneID:            values.ToneID,
		InputText:         input,
		AdditionalContext: values.AdditionalContext,
	})
	if err != nil {
		p.rejectSetup(r, err)
		return r.future, nil
	}

	state, err := p.builder.Build(cli.BuildRequest{
		AgentID: values.Agent,
		Prompt:  composed,
		Model:   values.Model,
		WorkDir: workDir,
	})
	if err != nil {
		p.rejectSetup(r, err)
		return r.future, nil
	}
	r.state = state
	r.startedAt = time.Now()

	p.mu.Lock()
	p.primaryRun = r
	p.lastExecutionID = state.ExecutionID
	p.mu.Unlock()

	p.logger.WithExecution(state.ExecutionID).Debug("processor: primary run starting",
		"agent", state.AgentID,
		"model", state.Model,
		"template", values.TemplateID,
	)
	p.primary.Execute(ctx, state, func(ev core.RunEvent) { p.handleEvent(r, ev) })
	return r.future, nil
}

// ProcessFollowUp continues the current conversation. It does not consult
// the primary guard. The session id is the one captured when the last
// primary run started, or that run's execution id if none was captured.
func (p *Processor) ProcessFollowUp(ctx context.Context, req FollowUpRequest) *Future {
	p.mu.Lock()
	sessionID := p.sessionID
	if sessionID == "" {
		sessionID = p.lastExecutionID
	}
	workDir := p.workDir
	p.mu.Unlock()

	variantID := req.VariantID
	if variantID == "" {
		variantID = uuid.NewString()
	}
	r := &run{
		kind:      kindFollowUp,
		future:    newFuture(),
		values:    req.Values,
		input:     req.Question,
		variantID: variantID,
		index:     req.Index,
		onVariant: req.OnVariant,
	}

	composed, err := p.composer.Compose(prompt.Request{
		InputText:  req.Question,
		IsFollowUp: true,
	})
	if err != nil {
		p.rejectSetup(r, err)
		return r.future
	}

	state, err := p.builder.Build(cli.BuildRequest{
		AgentID:              req.Values.Agent,
		Prompt:               composed,
		Model:                req.Values.Model,
		ContinueConversation: true,
		ExecutionID:          sessionID,
		IsFollowUp:           true,
		IsAdditionalVariant:  true,
		WorkDir:              workDir,
	})
	if err != nil {
		p.rejectSetup(r, err)
		return r.future
	}
	r.state = state
	r.startedAt = time.Now()

	p.mu.Lock()
	p.followUps[r] = struct{}{}
	p.mu.Unlock()

	p.logger.WithSession(sessionID).Debug("processor: follow-up starting", "agent", state.AgentID)
	p.newFollowUp().Execute(ctx, state, func(ev core.RunEvent) { p.handleEvent(r, ev) })
	return r.future
}

// Reset forgets the current conversation. In-flight runs are unaffected.
func (p *Processor) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessionID = ""
	p.lastExecutionID = ""
}

// SessionID returns the id follow-ups will resume.
func (p *Processor) SessionID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sessionID != "" {
		return p.sessionID
	}
	return p.lastExecutionID
}

// WorkDir returns the working directory of the last primary submission.
func (p *Processor) WorkDir() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.workDir
}

// IsProcessing reports whether a primary run is in flight.
func (p *Processor) IsProcessing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.processing
}

func (p *Processor) resolveWorkDir(target string) string {
	if strings.TrimSpace(target) != "" {
		return target
	}
	return p.defaultWorkDir
}

func (p *Processor) handleEvent(r *run, ev core.RunEvent) {
	switch ev.Type {
	case core.RunEventStarted:
		p.mu.Lock()
		if r.kind == kindPrimary && p.primaryRun == r {
			p.sessionID = r.state.ExecutionID
		}
		p.mu.Unlock()
		p.logger.WithExecution(r.state.ExecutionID).Debug("processor: run started", "follow_up", r.kind == kindFollowUp)
		p.publish(events.NewRunStartedEvent(r.state.ExecutionID, r.state.AgentID, r.state.Model, r.kind == kindFollowUp))
	case core.RunEventChunk:
		if p.onProgress != nil {
			p.onProgress(r.state.ExecutionID, ev.Chunk)
		}
		p.publish(events.NewRunChunkEvent(r.state.ExecutionID, ev.Chunk))
	case core.RunEventCompleted:
		p.complete(r, ev.Output)
	case core.RunEventError:
		p.fail(r, failure.Classify(ev.Err, &failure.Context{Agent: r.state.AgentID}))
	}
}

// release clears the in-flight bookkeeping for r and reports whether r was
// still tracked.
func (p *Processor) release(r *run) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if r.kind == kindFollowUp {
		if _, ok := p.followUps[r]; !ok {
			return false
		}
		delete(p.followUps, r)
		return true
	}
	if p.primaryRun != r {
		return false
	}
	p.primaryRun = nil
	p.processing = false
	return true
}

func (p *Processor) complete(r *run, output string) {
	cleaned, err := response.Clean(output)
	if err != nil {
		p.fail(r, failure.Classify(err, &failure.Context{
			Operation: failure.OperationParsing,
			Agent:     r.state.AgentID,
		}))
		return
	}

	if !p.release(r) {
		// No tracked context: resolve with the bare output, skip handlers and history.
		p.logger.Debug("processor: completion of untracked run", "execution_id", r.state.ExecutionID)
		r.future.resolve(Result{
			Variants: []core.FormattingVariant{{
				ID:             uuid.NewString(),
				Content:        cleaned,
				OriginalInput:  r.input,
				OriginalPrompt: r.state.OriginalPrompt,
			}},
			ExecutionID: r.state.ExecutionID,
		})
		return
	}
	p.record(r, cleaned, nil)

	if r.kind == kindFollowUp {
		variant := core.FormattingVariant{
			ID:             r.variantID,
			Content:        cleaned,
			Index:          r.index,
			OriginalInput:  r.input,
			OriginalPrompt: r.state.OriginalPrompt,
		}
		if r.onVariant != nil {
			r.onVariant(variant)
		}
		r.future.resolve(Result{Variants: []core.FormattingVariant{variant}, ExecutionID: r.state.ExecutionID})
		return
	}

	variants := response.Split(cleaned, response.SplitOptions{
		OriginalInput:  r.input,
		OriginalPrompt: r.state.OriginalPrompt,
	})
	name := p.templateName(r.values.TemplateID)
	if p.onSuccess != nil {
		p.onSuccess(PrimaryResult{
			Variants:     variants,
			TemplateName: name,
			Values:       r.values,
			InputText:    r.input,
		})
	}
	r.future.resolve(Result{Variants: variants, TemplateName: name, ExecutionID: r.state.ExecutionID})
}

func (p *Processor) fail(r *run, catErr *core.CategorizedError) {
	if !p.release(r) {
		// No tracked context: surface generically.
		p.logger.Error("processor: run failed without tracked context",
			"category", catErr.Category,
			"error", catErr.OriginalMessage,
		)
		r.future.resolve(Result{Err: catErr, ExecutionID: r.state.ExecutionID})
		return
	}

	logger := p.logger.WithExecution(r.state.ExecutionID)
	logger.Warn("processor: run failed",
		"category", catErr.Category,
		"recoverable", catErr.Recoverable,
		"follow_up", r.kind == kindFollowUp,
	)
	p.record(r, "", catErr)
	p.deliverError(r, catErr, r.state.ExecutionID)
}

// rejectSetup resolves r with a configuration error before any run starts.
func (p *Processor) rejectSetup(r *run, err error) {
	category := core.GetCategory(err)
	if category == core.ErrCatUnknown {
		category = core.ErrCatConfiguration
	}
	catErr := failure.ForCategory(category, failure.MessageOf(err))

	if r.kind == kindPrimary {
		p.mu.Lock()
		p.processing = false
		p.mu.Unlock()
	}
	p.logger.Warn("processor: request rejected before run",
		"category", catErr.Category,
		"error", catErr.OriginalMessage,
	)
	if p.metrics != nil {
		p.metrics.RecordRun(r.values.Agent, r.kind == kindFollowUp, 0, 0, catErr.Category)
	}
	p.deliverError(r, catErr, "")
}

func (p *Processor) deliverError(r *run, catErr *core.CategorizedError, executionID string) {
	id := r.variantID
	if id == "" {
		id = uuid.NewString()
	}
	var originalPrompt string
	if r.state != nil {
		originalPrompt = r.state.OriginalPrompt
	}
	variant := core.FormattingVariant{
		ID:             id,
		Index:          r.index,
		OriginalInput:  r.input,
		OriginalPrompt: originalPrompt,
		Error:          catErr,
	}

	if r.kind == kindFollowUp {
		if r.onVariant != nil {
			r.onVariant(variant)
		}
	} else if p.onSuccess != nil {
		p.onSuccess(PrimaryResult{
			Variants:     []core.FormattingVariant{variant},
			TemplateName: p.templateName(r.values.TemplateID),
			Values:       r.values,
			InputText:    r.input,
		})
	}
	r.future.resolve(Result{
		Variants:    []core.FormattingVariant{variant},
		Err:         catErr,
		ExecutionID: executionID,
	})
}

func (p *Processor) publish(ev events.Event) {
	if p.events != nil {
		p.events.Publish(ev)
	}
}

func (p *Processor) templateName(id string) string {
	if prompt.IsCustom(id) {
		return "Custom"
	}
	if p.templates != nil {
		if t, ok := p.templates.GetTemplate(id); ok {
			return t.Name
		}
	}
	return id
}

func (p *Processor) record(r *run, output string, catErr *core.CategorizedError) {
	var category core.ErrorCategory
	if catErr != nil {
		category = catErr.Category
	}
	elapsed := time.Since(r.startedAt)
	if p.metrics != nil {
		p.metrics.RecordRun(r.state.AgentID, r.kind == kindFollowUp, elapsed, len(output), category)
	}
	if catErr != nil {
		p.publish(events.NewRunFailedEvent(r.state.ExecutionID, string(catErr.Category), catErr.Title, catErr.Message, catErr.Recoverable))
	} else {
		p.publish(events.NewRunCompletedEvent(r.state.ExecutionID, output, elapsed))
	}
	if p.history == nil {
		return
	}

	p.mu.Lock()
	sessionID := p.sessionID
	p.mu.Unlock()
	if r.kind == kindFollowUp || sessionID == "" {
		sessionID = r.state.ExecutionID
	}

	entry := core.HistoryEntry{
		ExecutionID:   r.state.ExecutionID,
		SessionID:     sessionID,
		Agent:         r.state.AgentID,
		Model:         r.state.Model,
		TemplateID:    r.values.TemplateID,
		ToneID:        r.values.ToneID,
		Input:         r.input,
		Output:        output,
		ErrorCategory: category,
		IsFollowUp:    r.kind == kindFollowUp,
		CreatedAt:     time.Now(),
	}
	if err := p.history.Record(context.Background(), entry); err != nil {
		p.logger.Warn("processor: failed to record history", "error", err)
	}
}
