// Package prompt composes the text sent to an agent from a template,
// a tone and the user's input.
package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"regexp"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/hugo-lorenzo-mato/reform-ai/internal/core"
)

//go:embed prompts/*.md.tmpl
var promptsFS embed.FS

// TruncationSuffix marks input that was cut to fit the length limit.
const TruncationSuffix = "\n\n[... text truncated ...]"

var blankRuns = regexp.MustCompile(`\n{3,}`)

// Composer builds agent prompts.
type Composer struct {
	templates core.TemplateStore
	tones     core.ToneStore
	tmpl      *template.Template
}

// Request holds the inputs of one composition.
type Request struct {
	TemplateID        string
	ToneID            string
	InputText         string
	AdditionalContext string
	IsFollowUp        bool
}

// composeData is the view passed to compose.md.tmpl.
type composeData struct {
	Custom       bool
	Instructions string
	Text         string
	Context      string
	Requirements string
	Tone         string
	Output       string
}

// NewComposer creates a composer backed by the given stores.
func NewComposer(templates core.TemplateStore, tones core.ToneStore) (*Composer, error) {
	tmpl, err := template.ParseFS(promptsFS, "prompts/compose.md.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parsing compose template: %w", err)
	}
	return &Composer{
		templates: templates,
		tones:     tones,
		tmpl:      tmpl.Lookup("compose.md.tmpl"),
	}, nil
}

// Compose resolves the template and tone and renders the prompt.
// A missing template is a hard error; a missing tone falls back to the default tone.
func (c *Composer) Compose(req Request) (string, error) {
	if req.IsFollowUp {
		return req.InputText, nil
	}

	var tmpl core.Template
	if !IsCustom(req.TemplateID) {
		found, ok := c.templates.GetTemplate(req.TemplateID)
		if !ok {
			return "", core.ErrTemplateNotFound(req.TemplateID)
		}
		tmpl = found
	} else {
		tmpl = core.Template{ID: core.NoTemplateID}
	}

	tone := c.ResolveTone(req.ToneID)
	return c.Render(tmpl, tone, req.InputText, req.AdditionalContext)
}

// ResolveTone returns the tone for id or the default tone.
func (c *Composer) ResolveTone(id string) core.Tone {
	if c.tones != nil && id != "" {
		if tone, ok := c.tones.GetTone(id); ok {
			return tone
		}
	}
	return core.DefaultTone()
}

// Render composes a prompt from already-resolved parts.
func (c *Composer) Render(tmpl core.Template, tone core.Tone, input, additionalContext string) (string, error) {
	data := composeData{
		Custom:  IsCustom(tmpl.ID),
		Text:    strings.TrimSpace(input),
		Context: strings.TrimSpace(additionalContext),
		Tone:    strings.TrimSpace(tone.Guidelines),
	}
	if !data.Custom {
		data.Instructions = strings.TrimSpace(tmpl.Sections.Instructions)
		data.Requirements = strings.TrimSpace(tmpl.Sections.Requirements)
		data.Output = strings.TrimSpace(tmpl.Sections.Output)
	}

	var buf bytes.Buffer
	if err := c.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}
	return Normalize(buf.String()), nil
}

// IsCustom reports whether id selects the no-template mode.
func IsCustom(id string) bool {
	return id == "" || id == core.NoTemplateID
}

// Normalize unifies line endings, collapses runs of blank lines to one and trims.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			lines[i] = ""
		}
	}
	s = strings.Join(lines, "\n")
	s = blankRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// TruncateInput cuts text to at most maxRunes runes and appends TruncationSuffix.
// A non-positive limit disables truncation.
func TruncateInput(text string, maxRunes int) (string, bool) {
	if maxRunes <= 0 || utf8.RuneCountInString(text) <= maxRunes {
		return text, false
	}
	runes := []rune(text)
	return string(runes[:maxRunes]) + TruncationSuffix, true
}
