// Package render formats variants and errors for the terminal.
package render

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	ColorPrimary   = lipgloss.Color("#7C3AED") // Purple
	ColorSecondary = lipgloss.Color("#06B6D4") // Cyan

	ColorSuccess = lipgloss.Color("#10B981") // Green
	ColorWarning = lipgloss.Color("#F59E0B") // Amber
	ColorError   = lipgloss.Color("#EF4444") // Red

	ColorText      = lipgloss.Color("#E5E7EB") // Light gray
	ColorTextMuted = lipgloss.Color("#9CA3AF") // Muted gray
	ColorBorder    = lipgloss.Color("#374151") // Dark gray
)

var (
	// HeaderStyle labels a variant with its template and agent.
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	// SubtleStyle is for metadata and hints.
	SubtleStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	// BoxStyle frames a variant body.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	// ErrorTitleStyle is the headline of an error variant.
	ErrorTitleStyle = lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true)

	// ErrorBoxStyle frames an error variant.
	ErrorBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorError).
			Padding(0, 1)

	// SuggestionStyle is for recovery suggestions.
	SuggestionStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	// SuccessStyle is for confirmations such as "copied".
	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	// AccentStyle highlights ids and models in listings.
	AccentStyle = lipgloss.NewStyle().
			Foreground(ColorSecondary).
			Bold(true)
)
