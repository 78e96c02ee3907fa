package tui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#06B6D4")).Bold(true)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#E5E7EB"))
	metaStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
)

type chunkMsg int

type stopMsg struct{}

// progressModel is the bubbletea model behind Progress.
type progressModel struct {
	spinner spinner.Model
	label   string
	chars   int
	started time.Time
	now     func() time.Time
	done    bool
}

func newProgressModel(label string) progressModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle
	return progressModel{
		spinner: sp,
		label:   label,
		started: time.Now(),
		now:     time.Now,
	}
}

func (m progressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case chunkMsg:
		m.chars += int(msg)
		return m, nil
	case stopMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m progressModel) View() string {
	// Clears the line once the run is over.
	if m.done {
		return ""
	}
	elapsed := m.now().Sub(m.started).Truncate(time.Second)
	meta := elapsed.String()
	if m.chars > 0 {
		meta = fmt.Sprintf("%s · %s received", elapsed, formatChars(m.chars))
	}
	return m.spinner.View() + " " + labelStyle.Render(m.label) + " " + metaStyle.Render(meta)
}

func formatChars(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d chars", n)
	}
	return fmt.Sprintf("%.1fk chars", float64(n)/1000)
}

// Progress is a spinner line shown while an agent run is in flight.
type Progress struct {
	program *tea.Program
	done    chan struct{}
	once    sync.Once
}

// StartProgress draws the spinner on out until Stop is called.
// Keyboard input and signals are left to the caller.
func StartProgress(label string, out io.Writer) *Progress {
	p := &Progress{
		program: tea.NewProgram(newProgressModel(label),
			tea.WithOutput(out),
			tea.WithInput(nil),
			tea.WithoutSignalHandler(),
		),
		done: make(chan struct{}),
	}
	go func() {
		defer close(p.done)
		_, _ = p.program.Run()
	}()
	return p
}

// Chunk records that text arrived on the agent's stdout.
func (p *Progress) Chunk(text string) {
	select {
	case <-p.done:
	default:
		p.program.Send(chunkMsg(len(text)))
	}
}

// Stop removes the spinner and waits for the terminal to be restored.
func (p *Progress) Stop() {
	p.once.Do(func() {
		p.program.Send(stopMsg{})
		<-p.done
	})
}
