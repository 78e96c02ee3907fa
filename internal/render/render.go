package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/hugo-lorenzo-mato/reform-ai/internal/core"
	"github.com/hugo-lorenzo-mato/reform-ai/internal/failure"
)

// Options configures a Renderer.
type Options struct {
	// Color enables lipgloss styling and glamour markdown rendering.
	Color bool
	// Width wraps markdown; zero means 80.
	Width int
}

// Renderer turns variants and errors into terminal text.
// Without color the output is plain text suitable for pipes.
type Renderer struct {
	color bool
	md    *glamour.TermRenderer
}

// New creates a renderer. A markdown renderer that fails to initialise
// degrades to raw text.
func New(opts Options) *Renderer {
	r := &Renderer{color: opts.Color}
	if !opts.Color {
		return r
	}
	width := opts.Width
	if width <= 0 {
		width = 80
	}
	md, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err == nil {
		r.md = md
	}
	return r
}

// Header describes where a result came from.
type Header struct {
	TemplateName string
	Agent        string
	Model        string
}

func (h Header) String() string {
	parts := make([]string, 0, 2)
	if h.TemplateName != "" {
		parts = append(parts, h.TemplateName)
	}
	if h.Agent != "" {
		agent := h.Agent
		if h.Model != "" {
			agent += " (" + h.Model + ")"
		}
		parts = append(parts, agent)
	}
	return strings.Join(parts, " · ")
}

// Variant renders one variant. Error variants are rendered with Error.
func (r *Renderer) Variant(v core.FormattingVariant, h Header) string {
	if v.Error != nil {
		return r.Error(v.Error)
	}
	if !r.color {
		return v.Content
	}

	body := v.Content
	if r.md != nil {
		if out, err := r.md.Render(v.Content); err == nil {
			body = strings.Trim(out, "\n")
		}
	}
	title := h.String()
	if v.Index > 0 {
		title = fmt.Sprintf("%s · follow-up %d", title, v.Index)
	}
	return HeaderStyle.Render(title) + "\n" + BoxStyle.Render(body)
}

// Error renders a categorized error with its suggestions.
func (r *Renderer) Error(e *core.CategorizedError) string {
	var b strings.Builder
	if r.color {
		b.WriteString(ErrorTitleStyle.Render(e.Title))
	} else {
		b.WriteString("Error: " + e.Title)
	}
	b.WriteString("\n")
	b.WriteString(e.Message)
	if e.OriginalMessage != "" {
		b.WriteString("\n")
		detail := "Details: " + e.OriginalMessage
		if r.color {
			detail = SubtleStyle.Render(detail)
		}
		b.WriteString(detail)
	}
	if len(e.Suggestions) > 0 {
		b.WriteString("\n")
		for _, s := range e.Suggestions {
			line := "  - " + s
			if r.color {
				line = SuggestionStyle.Render(line)
			}
			b.WriteString("\n" + line)
		}
	}
	if e.Recoverable {
		hint := "This error may go away if you try again."
		if r.color {
			hint = SubtleStyle.Render(hint)
		}
		b.WriteString("\n\n" + hint)
	}

	if !r.color {
		return b.String()
	}
	return ErrorBoxStyle.Render(b.String())
}

// Actions renders the recovery actions for e as a single hint line.
func (r *Renderer) Actions(e *core.CategorizedError) string {
	actions := failure.RecoveryActions(e)
	names := make([]string, len(actions))
	for i, a := range actions {
		names[i] = string(a)
	}
	line := "Options: " + strings.Join(names, ", ")
	if r.color {
		return SubtleStyle.Render(line)
	}
	return line
}

// Success renders a short confirmation.
func (r *Renderer) Success(msg string) string {
	if r.color {
		return SuccessStyle.Render(msg)
	}
	return msg
}

// Subtle renders secondary information.
func (r *Renderer) Subtle(msg string) string {
	if r.color {
		return SubtleStyle.Render(msg)
	}
	return msg
}

// Accent renders an id or name in listings.
func (r *Renderer) Accent(msg string) string {
	if r.color {
		return AccentStyle.Render(msg)
	}
	return msg
}
