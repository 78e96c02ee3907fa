package cli

import (
	"fmt"
	"sort"
	"sync"

	"github.com/hugo-lorenzo-mato/reform-ai/internal/core"
)

// Model is one selectable model of an agent.
type Model struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// ArgsFunc builds the argument vector for one run. The prompt is never part
// of the arguments; it is written to stdin.
type ArgsFunc func(model, executionID string, resume bool) []string

// AgentSpec is the static description of a supported agent CLI.
type AgentSpec struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	Executable  string  `json:"executable"`
	AuthEnvVar  string  `json:"auth_env_var,omitempty"`
	Models      []Model `json:"models"`
	// DefaultModel is used when no model is requested or the request is unknown.
	DefaultModel string `json:"default_model"`

	Args ArgsFunc `json:"-"`
}

// ResolveModel returns id when the agent knows it, otherwise the default model.
func (a AgentSpec) ResolveModel(id string) string {
	if id != "" {
		for _, m := range a.Models {
			if m.ID == id {
				return id
			}
		}
	}
	if a.DefaultModel != "" {
		return a.DefaultModel
	}
	if len(a.Models) > 0 {
		return a.Models[0].ID
	}
	return ""
}

// HasModel reports whether id is in the model table.
func (a AgentSpec) HasModel(id string) bool {
	for _, m := range a.Models {
		if m.ID == id {
			return true
		}
	}
	return false
}

// Registry holds the supported agents.
type Registry struct {
	agents map[string]AgentSpec
	mu     sync.RWMutex
}

// NewRegistry creates a registry with the built-in agents.
func NewRegistry() *Registry {
	r := &Registry{agents: make(map[string]AgentSpec)}
	r.registerBuiltins()
	return r
}

func (r *Registry) registerBuiltins() {
	r.Register(claudeSpec())
	r.Register(codexSpec())
	r.Register(geminiSpec())
	r.Register(cursorSpec())
	r.Register(opencodeSpec())
}

// Register adds or replaces an agent.
func (r *Registry) Register(spec AgentSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[spec.ID] = spec
}

// Get returns the agent spec or a configuration error for unknown ids.
func (r *Registry) Get(id string) (AgentSpec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.agents[id]
	if !ok {
		return AgentSpec{}, core.ErrConfiguration(core.CodeUnknownAgent,
			fmt.Sprintf("unknown agent %q", id))
	}
	return spec, nil
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.agents[id]
	return ok
}

// List returns all agents sorted by id.
func (r *Registry) List() []AgentSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	specs := make([]AgentSpec, 0, len(r.agents))
	for _, spec := range r.agents {
		specs = append(specs, spec)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].ID < specs[j].ID })
	return specs
}

// IDs returns the registered agent ids sorted.
func (r *Registry) IDs() []string {
	specs := r.List()
	ids := make([]string, len(specs))
	for i, s := range specs {
		ids[i] = s.ID
	}
	return ids
}
