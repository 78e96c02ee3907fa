package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/reform-ai/internal/core"
	"github.com/hugo-lorenzo-mato/reform-ai/internal/tui"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent formatting runs",
	Long: `Show recent formatting runs, newest first.
With --session, show one conversation in order, follow-ups included.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

var (
	historySession string
	historyLimit   int
	historyClear   bool
)

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().StringVar(&historySession, "session", "", "show a single conversation")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of runs to show")
	historyCmd.Flags().BoolVar(&historyClear, "clear", false, "delete all recorded runs")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()
	return a.showHistory(cmd.Context(), historySession, historyLimit, historyClear)
}

func (a *app) showHistory(ctx context.Context, session string, limit int, clear bool) error {
	if a.history == nil {
		return errors.New("history is disabled (history.enabled: false)")
	}

	if clear {
		n, err := a.history.Clear(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.stdout, a.renderer.Success(fmt.Sprintf("Deleted %d runs", n)))
		return nil
	}

	var (
		entries []core.HistoryEntry
		err     error
	)
	if session != "" {
		entries, err = a.history.BySession(ctx, session)
	} else {
		entries, err = a.history.List(ctx, limit)
	}
	if err != nil {
		return err
	}

	if a.mode == tui.ModeJSON {
		if entries == nil {
			entries = []core.HistoryEntry{}
		}
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(a.stdout, a.renderer.Subtle("No runs recorded"))
		return nil
	}
	for _, e := range entries {
		status := a.renderer.Success("ok")
		if e.ErrorCategory != "" {
			status = string(e.ErrorCategory)
		}
		kind := e.TemplateID
		if e.IsFollowUp {
			kind = "follow-up"
		}
		fmt.Fprintf(a.stdout, "%s  %s  %s/%s  %s  %s\n",
			a.renderer.Subtle(e.CreatedAt.Local().Format("2006-01-02 15:04")),
			a.renderer.Accent(shortID(e.SessionID)),
			e.Agent, e.Model,
			kind,
			status,
		)
		fmt.Fprintf(a.stdout, "    %s\n", preview(e.Input, 72))
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// preview collapses whitespace and cuts s to at most n runes.
func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
