package cli

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/hugo-lorenzo-mato/reform-ai/internal/core"
	"github.com/hugo-lorenzo-mato/reform-ai/internal/logging"
)

// Settings are the resolved per-agent preferences.
type Settings struct {
	Path  string
	Token string
	Model string
}

// SettingsProvider resolves preferences for an agent id.
type SettingsProvider interface {
	AgentSettings(agentID string) Settings
}

// SettingsFunc adapts a function to SettingsProvider.
type SettingsFunc func(agentID string) Settings

// AgentSettings implements SettingsProvider.
func (f SettingsFunc) AgentSettings(agentID string) Settings {
	return f(agentID)
}

// BuildRequest is the input of one command build.
type BuildRequest struct {
	AgentID string
	Prompt  string
	// Model overrides the configured model when set.
	Model string
	// ContinueConversation resumes the session named by ExecutionID.
	ContinueConversation bool
	// ExecutionID is required when continuing; a fresh id is minted otherwise.
	ExecutionID         string
	IsFollowUp          bool
	IsAdditionalVariant bool
	WorkDir             string
}

// Builder turns a BuildRequest into an ExecutionState.
type Builder struct {
	registry  *Registry
	settings  SettingsProvider
	shellPath string
	logger    *logging.Logger
	newID     func() string
}

// NewBuilder creates a builder. settings may be nil.
func NewBuilder(registry *Registry, settings SettingsProvider, shellPath string, logger *logging.Logger) *Builder {
	if registry == nil {
		registry = NewRegistry()
	}
	if settings == nil {
		settings = SettingsFunc(func(string) Settings { return Settings{} })
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Builder{
		registry:  registry,
		settings:  settings,
		shellPath: shellPath,
		logger:    logger,
		newID:     uuid.NewString,
	}
}

// Registry returns the agent registry used by the builder.
func (b *Builder) Registry() *Registry {
	return b.registry
}

// Build resolves the agent, model and executable and produces the state for
// one run. The execution id in the returned state is the one embedded in
// the arguments.
func (b *Builder) Build(req BuildRequest) (*core.ExecutionState, error) {
	spec, err := b.registry.Get(req.AgentID)
	if err != nil {
		return nil, err
	}
	prefs := b.settings.AgentSettings(spec.ID)

	executable := strings.TrimSpace(prefs.Path)
	if executable == "" {
		executable = spec.Executable
	}
	if executable == "" {
		return nil, core.ErrConfiguration(core.CodeNoExecutable,
			fmt.Sprintf("no executable configured for agent %s", spec.ID))
	}

	requested := req.Model
	if requested == "" {
		requested = prefs.Model
	}
	model := spec.ResolveModel(requested)
	if requested != "" && requested != model {
		b.logger.Warn("unknown model, using agent default",
			"agent", spec.ID,
			"requested", requested,
			"model", model,
		)
	}

	executionID := req.ExecutionID
	if req.ContinueConversation {
		if executionID == "" {
			return nil, core.ErrValidation(core.CodeNoSession,
				"cannot continue a conversation without a session id")
		}
	} else if executionID == "" {
		executionID = b.newID()
	}

	env := make(map[string]string, 2)
	if spec.AuthEnvVar != "" && prefs.Token != "" {
		env[spec.AuthEnvVar] = prefs.Token
	}
	if b.shellPath != "" {
		env["SHELL"] = b.shellPath
	}

	return &core.ExecutionState{
		Command: core.CommandSpec{
			Executable: executable,
			Args:       spec.Args(model, executionID, req.ContinueConversation),
		},
		IsAdditionalVariant: req.IsAdditionalVariant,
		IsFollowUp:          req.IsFollowUp,
		ExecutionID:         executionID,
		OriginalPrompt:      req.Prompt,
		AgentID:             spec.ID,
		Model:               model,
		WorkDir:             req.WorkDir,
		Env:                 env,
	}, nil
}
