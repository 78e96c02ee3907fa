package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/reform-ai/internal/tui"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List supported agents and their models",
	Args:  cobra.NoArgs,
	RunE:  runAgents,
}

func init() {
	rootCmd.AddCommand(agentsCmd)
}

func runAgents(_ *cobra.Command, _ []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}

	specs := a.registry.List()
	if a.mode == tui.ModeJSON {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(specs)
	}

	for _, spec := range specs {
		name := a.renderer.Accent(spec.ID)
		if spec.ID == a.cfg.Agents.Default {
			name += a.renderer.Subtle(" (default)")
		}
		executable := spec.Executable
		if p := a.cfg.Agents.Agent(spec.ID).Path; p != "" {
			executable = p
		}
		fmt.Fprintf(a.stdout, "%s  %s  %s\n", name, spec.DisplayName, a.renderer.Subtle(executable))

		models := make([]string, len(spec.Models))
		for i, m := range spec.Models {
			models[i] = m.ID
			if m.ID == spec.DefaultModel {
				models[i] += "*"
			}
		}
		fmt.Fprintf(a.stdout, "    models: %s\n", strings.Join(models, ", "))
	}
	return nil
}
