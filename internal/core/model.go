package core

import "strings"

// NoTemplateID is the sentinel template id meaning "the input is the instruction".
const NoTemplateID = "custom"

// DefaultToneID is the tone used when a tone lookup misses.
const DefaultToneID = "default"

// FormValues is one user submission. Callers pass it by value.
type FormValues struct {
	Agent             string `json:"agent"`
	TemplateID        string `json:"template"`
	ToneID            string `json:"tone"`
	Model             string `json:"model,omitempty"`
	TextInput         string `json:"text"`
	AdditionalContext string `json:"context,omitempty"`
	TargetFolder      string `json:"target_folder,omitempty"`
}

// ProcessingParams is the unit of work handed to the processor.
type ProcessingParams struct {
	Values    FormValues
	InputText string
}

// CommandSpec is the exact invocation for one agent run.
type CommandSpec struct {
	Executable string   `json:"executable"`
	Args       []string `json:"args"`
}

// String renders the command for logs.
func (c CommandSpec) String() string {
	if len(c.Args) == 0 {
		return c.Executable
	}
	return c.Executable + " " + strings.Join(c.Args, " ")
}

// ExecutionState describes one in-flight subprocess invocation.
type ExecutionState struct {
	Command             CommandSpec
	IsAdditionalVariant bool
	IsFollowUp          bool
	ExecutionID         string
	OriginalPrompt      string
	AgentID             string
	Model               string
	WorkDir             string
	// Env holds the per-run environment overlay (auth token, shell).
	Env map[string]string
}

// Template is a named structured prompt skeleton.
type Template struct {
	ID       string           `json:"id" yaml:"id"`
	Name     string           `json:"name" yaml:"name"`
	Sections TemplateSections `json:"sections" yaml:"sections"`
	BuiltIn  bool             `json:"built_in" yaml:"-"`
}

// TemplateSections holds the text blocks of a template.
type TemplateSections struct {
	Instructions string `json:"instructions" yaml:"instructions"`
	Requirements string `json:"requirements,omitempty" yaml:"requirements,omitempty"`
	Output       string `json:"output,omitempty" yaml:"output,omitempty"`
}

// Tone is a named set of style guidelines.
type Tone struct {
	ID         string `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	Guidelines string `json:"guidelines" yaml:"guidelines"`
	BuiltIn    bool   `json:"built_in" yaml:"-"`
}

// DefaultTone returns the fallback tone with no guidelines.
func DefaultTone() Tone {
	return Tone{ID: DefaultToneID, Name: "Default", BuiltIn: true}
}

// FormattingVariant is one displayable result.
// Empty Content with no Error marks an in-progress placeholder.
type FormattingVariant struct {
	ID             string            `json:"id"`
	Content        string            `json:"content"`
	Index          int               `json:"index"`
	OriginalInput  string            `json:"original_input"`
	OriginalPrompt string            `json:"original_prompt,omitempty"`
	Error          *CategorizedError `json:"error,omitempty"`
}

// IsPlaceholder reports whether the variant is still waiting for a result.
func (v FormattingVariant) IsPlaceholder() bool {
	return v.Content == "" && v.Error == nil
}

// VariantList is the ordered list shown to the user.
type VariantList []FormattingVariant

// Upsert replaces the entry sharing v.ID, or appends v when none exists.
func (l VariantList) Upsert(v FormattingVariant) VariantList {
	for i := range l {
		if l[i].ID == v.ID {
			l[i] = v
			return l
		}
	}
	return append(l, v)
}

// Find returns the variant with the given id.
func (l VariantList) Find(id string) (FormattingVariant, bool) {
	for _, v := range l {
		if v.ID == id {
			return v, true
		}
	}
	return FormattingVariant{}, false
}
