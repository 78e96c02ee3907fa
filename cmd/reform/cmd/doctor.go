package cmd

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hugo-lorenzo-mato/reform-ai/internal/adapters/cli"
	"github.com/hugo-lorenzo-mato/reform-ai/internal/diagnostics"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check agent availability and host resources",
	Long: `Verify that the configured agent CLIs are installed, that the default
agent is usable, and that the host has enough free memory to run one.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

// agentCheck is the outcome of probing one agent executable.
type agentCheck struct {
	ID         string
	Executable string
	Path       string
	Version    string
	Err        error
}

// lookPath and versionOf are replaced in tests.
var (
	lookPath  = exec.LookPath
	versionOf = func(ctx context.Context, path string) (string, error) {
		out, err := exec.CommandContext(ctx, path, "--version").Output()
		return strings.TrimSpace(firstLine(string(out))), err
	}
)

const versionProbeTimeout = 10 * time.Second

// checkAgents probes every agent concurrently. A missing agent is a result,
// not an error.
func checkAgents(ctx context.Context, a *app) []agentCheck {
	specs := a.registry.List()
	results := make([]agentCheck, len(specs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, spec := range specs {
		g.Go(func() error {
			results[i] = probeAgent(ctx, a, spec)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func probeAgent(ctx context.Context, a *app, spec cli.AgentSpec) agentCheck {
	check := agentCheck{ID: spec.ID, Executable: spec.Executable}
	if p := a.cfg.Agents.Agent(spec.ID).Path; p != "" {
		check.Executable = p
	}

	path, err := lookPath(check.Executable)
	if err != nil {
		check.Err = err
		return check
	}
	check.Path = path

	ctx, cancel := context.WithTimeout(ctx, versionProbeTimeout)
	defer cancel()
	if v, err := versionOf(ctx, path); err == nil {
		check.Version = v
	} else {
		a.logger.Debug("version probe failed", "agent", spec.ID, "error", err)
	}
	return check
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	return a.doctor(cmd.Context())
}

func (a *app) doctor(ctx context.Context) error {
	fmt.Fprintln(a.stdout, "Checking agents...")
	fmt.Fprintln(a.stdout)

	defaultOK := false
	for _, c := range checkAgents(ctx, a) {
		switch {
		case c.Err != nil:
			fmt.Fprintf(a.stdout, "  ○ %s %s\n", c.ID, a.renderer.Subtle("(not found: "+c.Executable+")"))
		case c.Version != "":
			fmt.Fprintf(a.stdout, "  ✓ %s %s\n", c.ID, a.renderer.Subtle(c.Version))
		default:
			fmt.Fprintf(a.stdout, "  ✓ %s %s\n", c.ID, a.renderer.Subtle(c.Path))
		}
		if c.ID == a.cfg.Agents.Default && c.Err == nil {
			defaultOK = true
		}
	}
	fmt.Fprintln(a.stdout)

	fmt.Fprintln(a.stdout, "Checking host resources...")
	fmt.Fprintln(a.stdout)
	minMem := a.cfg.Execution.Preflight.MinFreeMemoryMB
	result := diagnostics.NewPreflight(minMem, 0, a.logger.Logger).RunPreflight()
	info := diagnostics.CollectSystemInfo(ctx)
	fmt.Fprintf(a.stdout, "  %s/%s, %d cores, %.0f MB free of %.0f MB\n",
		info.OS, info.Arch, info.CPUCores, info.MemAvailableMB, info.MemTotalMB)
	for _, w := range result.Warnings {
		fmt.Fprintf(a.stdout, "  ⚠ %s\n", w)
	}
	for _, e := range result.Errors {
		fmt.Fprintf(a.stdout, "  ✗ %s\n", e)
	}
	if result.OK {
		fmt.Fprintln(a.stdout, "  ✓ Enough free memory to run an agent")
	}
	fmt.Fprintln(a.stdout)

	if !defaultOK {
		fmt.Fprintf(a.stdout, "Default agent %q is not installed\n", a.cfg.Agents.Default)
		return fmt.Errorf("default agent %s unavailable", a.cfg.Agents.Default)
	}
	if !result.OK && a.cfg.Execution.Preflight.Enabled {
		return fmt.Errorf("preflight check failed")
	}
	fmt.Fprintln(a.stdout, a.renderer.Success("Ready to format"))
	return nil
}
