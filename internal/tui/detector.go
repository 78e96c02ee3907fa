// Package tui shows live progress while an agent run is in flight.
package tui

import (
	"os"

	"golang.org/x/term"
)

// OutputMode selects how results are written.
type OutputMode int

const (
	// ModeTUI shows a spinner and styled output.
	ModeTUI OutputMode = iota

	// ModePlain writes the raw variant text only.
	ModePlain

	// ModeJSON writes one JSON document per result.
	ModeJSON
)

// String returns the string representation of the output mode.
func (m OutputMode) String() string {
	switch m {
	case ModeTUI:
		return "tui"
	case ModePlain:
		return "plain"
	case ModeJSON:
		return "json"
	default:
		return "unknown"
	}
}

// Detector determines the appropriate output mode.
type Detector struct {
	forceMode *OutputMode
	noColor   bool
}

// NewDetector creates a new output mode detector.
func NewDetector() *Detector {
	return &Detector{}
}

// ForceMode forces a specific output mode.
func (d *Detector) ForceMode(mode OutputMode) *Detector {
	d.forceMode = &mode
	return d
}

// NoColor disables color output.
func (d *Detector) NoColor(disable bool) *Detector {
	d.noColor = disable
	return d
}

// Detect determines the appropriate output mode.
func (d *Detector) Detect() OutputMode {
	if d.forceMode != nil {
		return *d.forceMode
	}

	if os.Getenv("REFORM_OUTPUT") == "json" {
		return ModeJSON
	}

	if os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != "" {
		return ModePlain
	}

	// Piped output gets the bare result.
	if !d.isTTY() {
		return ModePlain
	}

	return ModeTUI
}

func (d *Detector) isTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// ShouldUseColor determines if color should be used.
func (d *Detector) ShouldUseColor() bool {
	if d.noColor {
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return d.isTTY()
}

// TerminalSize returns terminal dimensions.
func TerminalSize() (width, height int) {
	w, h, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80, 24
	}
	return w, h
}

// ParseOutputMode parses an output mode from string. ok is false for
// unknown names.
func ParseOutputMode(s string) (mode OutputMode, ok bool) {
	switch s {
	case "tui":
		return ModeTUI, true
	case "plain":
		return ModePlain, true
	case "json":
		return ModeJSON, true
	default:
		return ModeTUI, false
	}
}
