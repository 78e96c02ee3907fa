package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/reform-ai/internal/core"
)

var tonesCmd = &cobra.Command{
	Use:     "tones",
	Aliases: []string{"tone"},
	Short:   "Manage tones",
	RunE:    runTonesList,
}

var tonesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tones",
	Args:  cobra.NoArgs,
	RunE:  runTonesList,
}

var tonesAddCmd = &cobra.Command{
	Use:   "add <id>",
	Short: "Add or replace a custom tone",
	Args:  cobra.ExactArgs(1),
	RunE:  runTonesAdd,
}

var tonesRemoveCmd = &cobra.Command{
	Use:     "remove <id>",
	Aliases: []string{"rm"},
	Short:   "Remove a custom tone",
	Args:    cobra.ExactArgs(1),
	RunE:    runTonesRemove,
}

var (
	toneName       string
	toneGuidelines string
)

func init() {
	rootCmd.AddCommand(tonesCmd)
	tonesCmd.AddCommand(tonesListCmd, tonesAddCmd, tonesRemoveCmd)

	tonesAddCmd.Flags().StringVar(&toneName, "name", "", "display name (default: the id)")
	tonesAddCmd.Flags().StringVar(&toneGuidelines, "guidelines", "", "style guidelines for the agent")
	_ = tonesAddCmd.MarkFlagRequired("guidelines")
}

func runTonesList(_ *cobra.Command, _ []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}

	for _, t := range a.catalog.Tones() {
		desc := t.Guidelines
		if desc == "" {
			desc = "(no guidelines)"
		}
		fmt.Fprintf(a.stdout, "%-14s %s\n", a.renderer.Accent(t.ID), a.renderer.Subtle(firstLine(desc)))
	}
	return nil
}

func runTonesAdd(_ *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}

	t := core.Tone{ID: args[0], Name: toneName, Guidelines: toneGuidelines}
	if err := a.catalog.SaveTone(t); err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, a.renderer.Success(fmt.Sprintf("Saved tone %s to %s", t.ID, a.catalog.Path())))
	return nil
}

func runTonesRemove(_ *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}

	if err := a.catalog.DeleteTone(args[0]); err != nil {
		if core.GetCategory(err) == core.ErrCatNotFound {
			return fmt.Errorf("no custom tone %q%s", args[0], didYouMean(a.catalog.SuggestTones(args[0])))
		}
		return err
	}
	fmt.Fprintln(a.stdout, a.renderer.Success("Removed tone "+args[0]))
	return nil
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
