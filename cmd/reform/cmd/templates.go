package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/reform-ai/internal/core"
)

var templatesCmd = &cobra.Command{
	Use:     "templates",
	Aliases: []string{"template"},
	Short:   "Manage formatting templates",
	RunE:    runTemplatesList,
}

var templatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List templates",
	Args:  cobra.NoArgs,
	RunE:  runTemplatesList,
}

var templatesShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a template",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplatesShow,
}

var templatesAddCmd = &cobra.Command{
	Use:   "add <id>",
	Short: "Add or replace a custom template",
	Long: `Add or replace a custom template in the custom catalog file.
A custom template with the id of a built-in one overrides it.`,
	Args: cobra.ExactArgs(1),
	RunE: runTemplatesAdd,
}

var templatesRemoveCmd = &cobra.Command{
	Use:     "remove <id>",
	Aliases: []string{"rm"},
	Short:   "Remove a custom template",
	Args:    cobra.ExactArgs(1),
	RunE:    runTemplatesRemove,
}

var (
	templateName         string
	templateInstructions string
	templateRequirements string
	templateOutput       string
)

func init() {
	rootCmd.AddCommand(templatesCmd)
	templatesCmd.AddCommand(templatesListCmd, templatesShowCmd, templatesAddCmd, templatesRemoveCmd)

	f := templatesAddCmd.Flags()
	f.StringVar(&templateName, "name", "", "display name (default: the id)")
	f.StringVar(&templateInstructions, "instructions", "", "what the agent should do with the text")
	f.StringVar(&templateRequirements, "requirements", "", "constraints on the result")
	f.StringVar(&templateOutput, "result-format", "", "shape of the expected output")
	_ = templatesAddCmd.MarkFlagRequired("instructions")
}

func runTemplatesList(_ *cobra.Command, _ []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}

	for _, t := range a.catalog.Templates() {
		origin := "custom"
		if t.BuiltIn {
			origin = "built-in"
		}
		fmt.Fprintf(a.stdout, "%-16s %-20s %s\n", a.renderer.Accent(t.ID), t.Name, a.renderer.Subtle(origin))
	}
	return nil
}

func runTemplatesShow(_ *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}

	t, ok := a.catalog.GetTemplate(args[0])
	if !ok {
		return fmt.Errorf("unknown template %q%s", args[0], didYouMean(a.catalog.SuggestTemplates(args[0])))
	}

	fmt.Fprintf(a.stdout, "%s (%s)\n", a.renderer.Accent(t.Name), t.ID)
	writeSection(a, "Instructions", t.Sections.Instructions)
	writeSection(a, "Requirements", t.Sections.Requirements)
	writeSection(a, "Output", t.Sections.Output)
	return nil
}

func writeSection(a *app, title, body string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	fmt.Fprintf(a.stdout, "\n%s\n%s\n", a.renderer.Subtle(title+":"), strings.TrimSpace(body))
}

func runTemplatesAdd(_ *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}

	t := core.Template{
		ID:   args[0],
		Name: templateName,
		Sections: core.TemplateSections{
			Instructions: templateInstructions,
			Requirements: templateRequirements,
			Output:       templateOutput,
		},
	}
	if err := a.catalog.SaveTemplate(t); err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, a.renderer.Success(fmt.Sprintf("Saved template %s to %s", t.ID, a.catalog.Path())))
	return nil
}

func runTemplatesRemove(_ *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}

	if err := a.catalog.DeleteTemplate(args[0]); err != nil {
		if core.GetCategory(err) == core.ErrCatNotFound {
			return fmt.Errorf("no custom template %q%s", args[0], didYouMean(a.catalog.SuggestTemplates(args[0])))
		}
		return err
	}
	fmt.Fprintln(a.stdout, a.renderer.Success("Removed template "+args[0]))
	return nil
}
