package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/hugo-lorenzo-mato/reform-ai/internal/clip"
	"github.com/hugo-lorenzo-mato/reform-ai/internal/core"
	"github.com/hugo-lorenzo-mato/reform-ai/internal/render"
	"github.com/hugo-lorenzo-mato/reform-ai/internal/service"
	"github.com/hugo-lorenzo-mato/reform-ai/internal/tui"
)

var formatCmd = &cobra.Command{
	Use:   "format [text...]",
	Short: "Reformat text with an agent",
	Long: `Reformat text with an agent using a template and a tone.

The text comes from the arguments, from the clipboard with --clipboard, or
from stdin. With --follow-up, reform keeps the agent conversation open and
reads follow-up questions from the terminal until an empty line.

Examples:
  reform format --template email "can we move the sync to thursday"
  pbpaste | reform format --template slack --tone casual
  reform format --clipboard --template fix-grammar --copy`,
	RunE: runFormat,
}

var (
	formatAgent     string
	formatTemplate  string
	formatTone      string
	formatModel     string
	formatContext   string
	formatDir       string
	formatClipboard bool
	formatCopy      bool
	formatFollowUp  bool
)

// readClipboard is replaced in tests.
var readClipboard = clip.ReadAll

func init() {
	rootCmd.AddCommand(formatCmd)

	f := formatCmd.Flags()
	f.StringVarP(&formatAgent, "agent", "a", "", "agent to run (default: agents.default)")
	f.StringVarP(&formatTemplate, "template", "t", core.NoTemplateID, "template id; 'custom' treats the text as the instruction")
	f.StringVar(&formatTone, "tone", core.DefaultToneID, "tone id")
	f.StringVarP(&formatModel, "model", "m", "", "model id (default: agent setting or agent default)")
	f.StringVar(&formatContext, "context", "", "additional context passed to the agent")
	f.StringVar(&formatDir, "dir", "", "working directory for the agent")
	f.BoolVar(&formatClipboard, "clipboard", false, "read the text from the clipboard")
	f.BoolVar(&formatCopy, "copy", false, "copy the result to the clipboard")
	f.BoolVar(&formatFollowUp, "follow-up", false, "ask follow-up questions after the result")
}

// formatOptions is one invocation of the format command.
type formatOptions struct {
	Values    core.FormValues
	Copy      bool
	FollowUp  bool
	Stdin     io.Reader
	StdinTTY  bool
	FromStdin bool
}

func runFormat(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	stdinTTY := term.IsTerminal(int(os.Stdin.Fd()))
	text, fromStdin, err := resolveInput(args, formatClipboard, os.Stdin, stdinTTY)
	if err != nil {
		return err
	}

	agent := formatAgent
	if agent == "" {
		agent = a.cfg.Agents.Default
	}
	return a.format(ctx, formatOptions{
		Values: core.FormValues{
			Agent:             agent,
			TemplateID:        formatTemplate,
			ToneID:            formatTone,
			Model:             formatModel,
			TextInput:         text,
			AdditionalContext: formatContext,
			TargetFolder:      formatDir,
		},
		Copy:      formatCopy,
		FollowUp:  formatFollowUp,
		Stdin:     os.Stdin,
		StdinTTY:  stdinTTY,
		FromStdin: fromStdin,
	})
}

// resolveInput picks the text to format. fromStdin reports whether stdin
// was consumed, which rules out reading follow-ups from it.
func resolveInput(args []string, fromClipboard bool, stdin io.Reader, stdinTTY bool) (text string, fromStdin bool, err error) {
	switch {
	case len(args) > 0:
		text = strings.Join(args, " ")
	case fromClipboard:
		text, err = readClipboard()
		if err != nil {
			return "", false, err
		}
	case !stdinTTY:
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", false, fmt.Errorf("reading stdin: %w", err)
		}
		text, fromStdin = string(data), true
	default:
		return "", false, errors.New("no input: pass text as arguments, use --clipboard, or pipe it on stdin")
	}
	if strings.TrimSpace(text) == "" {
		return "", fromStdin, errors.New("input text is empty")
	}
	return text, fromStdin, nil
}

// checkCatalog rejects unknown template ids up front with suggestions.
// Unknown tones only warn; the composer falls back to the default tone.
func (a *app) checkCatalog(values core.FormValues) error {
	if values.TemplateID != core.NoTemplateID {
		if _, ok := a.catalog.GetTemplate(values.TemplateID); !ok {
			return fmt.Errorf("unknown template %q%s", values.TemplateID,
				didYouMean(a.catalog.SuggestTemplates(values.TemplateID)))
		}
	}
	if values.ToneID != "" {
		if _, ok := a.catalog.GetTone(values.ToneID); !ok {
			a.logger.Warn("unknown tone, using default",
				"tone", values.ToneID,
				"suggestions", a.catalog.SuggestTones(values.ToneID),
			)
		}
	}
	return nil
}

// format runs the primary submission, prints it, and then serves
// follow-up questions when requested.
func (a *app) format(ctx context.Context, opts formatOptions) error {
	if err := a.checkCatalog(opts.Values); err != nil {
		return err
	}
	if opts.FollowUp && (opts.FromStdin || !opts.StdinTTY) {
		return errors.New("--follow-up needs an interactive terminal on stdin")
	}

	var spinner atomic.Pointer[tui.Progress]
	proc, err := a.newProcessor(service.WithProgressHandler(func(_, chunk string) {
		if p := spinner.Load(); p != nil {
			p.Chunk(chunk)
		}
	}))
	if err != nil {
		return err
	}

	header := render.Header{Agent: opts.Values.Agent, Model: a.resolveModel(opts.Values)}

	spinner.Store(a.startSpinner("Formatting with " + opts.Values.Agent))
	future, err := proc.ProcessText(ctx, core.ProcessingParams{Values: opts.Values})
	if err != nil {
		a.stopSpinner(&spinner)
		return err
	}
	res, err := future.Wait(ctx)
	a.stopSpinner(&spinner)
	if err != nil {
		return err
	}

	header.TemplateName = res.TemplateName
	if err := a.emit(res, header, proc.SessionID()); err != nil {
		return err
	}
	if res.Err != nil {
		return errReported
	}

	variants := core.VariantList(res.Variants)
	if opts.Copy {
		a.copyResult(variants[len(variants)-1].Content)
	}
	if !opts.FollowUp {
		return nil
	}
	return a.followUpLoop(ctx, proc, opts, header, variants)
}

// followUpLoop reads questions line by line until EOF, an empty line or
// "exit". Each answer is printed as it arrives.
func (a *app) followUpLoop(ctx context.Context, proc *service.Processor, opts formatOptions, header render.Header, variants core.VariantList) error {
	scanner := bufio.NewScanner(opts.Stdin)
	for index := 1; ; index++ {
		fmt.Fprint(a.stderr, a.renderer.Subtle("\nFollow-up (empty line to finish): "))
		if !scanner.Scan() {
			return scanner.Err()
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" || question == "exit" {
			return nil
		}

		placeholder := core.FormattingVariant{ID: fmt.Sprintf("follow-up-%d", index), Index: index, OriginalInput: question}
		variants = variants.Upsert(placeholder)

		var spinner atomic.Pointer[tui.Progress]
		spinner.Store(a.startSpinner("Asking " + opts.Values.Agent))
		future := proc.ProcessFollowUp(ctx, service.FollowUpRequest{
			Question:  question,
			Values:    core.FormValues{Agent: opts.Values.Agent, Model: opts.Values.Model},
			VariantID: placeholder.ID,
			Index:     index,
			OnVariant: func(v core.FormattingVariant) { variants = variants.Upsert(v) },
		})
		res, err := future.Wait(ctx)
		a.stopSpinner(&spinner)
		if err != nil {
			return err
		}

		if err := a.emit(res, header, proc.SessionID()); err != nil {
			return err
		}
		if res.Err == nil && opts.Copy {
			if v, ok := variants.Find(placeholder.ID); ok {
				a.copyResult(v.Content)
			}
		}
	}
}

// formatOutput is the JSON document written per result in json mode.
type formatOutput struct {
	ExecutionID  string                   `json:"execution_id,omitempty"`
	SessionID    string                   `json:"session_id,omitempty"`
	TemplateName string                   `json:"template_name,omitempty"`
	Agent        string                   `json:"agent"`
	Model        string                   `json:"model,omitempty"`
	Variants     []core.FormattingVariant `json:"variants"`
	Error        *core.CategorizedError   `json:"error,omitempty"`
}

// emit writes one result. Errors go to stderr except in json mode.
func (a *app) emit(res service.Result, header render.Header, sessionID string) error {
	if a.mode == tui.ModeJSON {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(formatOutput{
			ExecutionID:  res.ExecutionID,
			SessionID:    sessionID,
			TemplateName: res.TemplateName,
			Agent:        header.Agent,
			Model:        header.Model,
			Variants:     res.Variants,
			Error:        res.Err,
		})
	}

	if res.Err != nil {
		fmt.Fprintln(a.stderr, a.renderer.Error(res.Err))
		fmt.Fprintln(a.stderr, a.renderer.Actions(res.Err))
		return nil
	}
	for _, v := range res.Variants {
		fmt.Fprintln(a.stdout, a.renderer.Variant(v, header))
	}
	return nil
}

func (a *app) copyResult(text string) {
	result, err := clip.WriteAll(text)
	if err != nil {
		a.logger.Warn("copy failed", "error", err)
		return
	}
	if result.Method == clip.MethodFile {
		fmt.Fprintln(a.stderr, a.renderer.Subtle("Clipboard unavailable; saved to "+result.FilePath))
		return
	}
	fmt.Fprintln(a.stderr, a.renderer.Success("Copied to clipboard"))
}

func (a *app) resolveModel(values core.FormValues) string {
	spec, err := a.registry.Get(values.Agent)
	if err != nil {
		return values.Model
	}
	requested := values.Model
	if requested == "" {
		requested = a.cfg.Agents.Agent(values.Agent).Model
	}
	return spec.ResolveModel(requested)
}

// startSpinner draws progress on stderr in tui mode only.
func (a *app) startSpinner(label string) *tui.Progress {
	if a.mode != tui.ModeTUI {
		return nil
	}
	return tui.StartProgress(label, a.stderr)
}

func (a *app) stopSpinner(p *atomic.Pointer[tui.Progress]) {
	if s := p.Swap(nil); s != nil {
		s.Stop()
	}
}
