package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/hugo-lorenzo-mato/reform-ai/internal/adapters/cli"
	"github.com/hugo-lorenzo-mato/reform-ai/internal/adapters/state"
	"github.com/hugo-lorenzo-mato/reform-ai/internal/catalog"
	"github.com/hugo-lorenzo-mato/reform-ai/internal/config"
	"github.com/hugo-lorenzo-mato/reform-ai/internal/core"
	"github.com/hugo-lorenzo-mato/reform-ai/internal/diagnostics"
	"github.com/hugo-lorenzo-mato/reform-ai/internal/logging"
	"github.com/hugo-lorenzo-mato/reform-ai/internal/prompt"
	"github.com/hugo-lorenzo-mato/reform-ai/internal/render"
	"github.com/hugo-lorenzo-mato/reform-ai/internal/service"
	"github.com/hugo-lorenzo-mato/reform-ai/internal/tui"
)

// newExecutor creates the executor for one run slot. Replaced in tests.
var newExecutor = func(a *app) core.Executor {
	return a.newRunner()
}

// app holds the dependencies shared by every command.
type app struct {
	cfg      *config.Config
	loader   *config.Loader
	logger   *logging.Logger
	registry *cli.Registry
	builder  *cli.Builder
	catalog  *catalog.Catalog
	history  *state.History
	metrics  *service.MetricsCollector

	mode     tui.OutputMode
	renderer *render.Renderer
	stdout   io.Writer
	stderr   io.Writer
}

// loadConfig loads and validates the configuration using the global viper
// instance, so persistent flags take precedence.
func loadConfig() (*config.Config, *config.Loader, error) {
	loader := config.NewLoaderWithViper(viper.GetViper())
	if cfgFile != "" {
		loader.WithConfigFile(cfgFile)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, loader, nil
}

// newApp wires configuration, logging, the agent registry, the catalog and
// history. withHistory opens the sqlite database when enabled in config.
func newApp(withHistory bool) (*app, error) {
	cfg, loader, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger := logging.New(logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  os.Stderr,
		Secrets: cfg.Agents.Tokens(),
	})
	if files := loader.DotenvFiles(); len(files) > 0 {
		logger.Debug("loaded .env files", "files", files)
	}

	cat, err := catalog.Load(cfg.Catalog.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	registry := cli.NewRegistry()
	settings := cli.SettingsFunc(func(agentID string) cli.Settings {
		a := cfg.Agents.Agent(agentID)
		return cli.Settings{Path: a.Path, Token: a.Token, Model: a.Model}
	})

	a := &app{
		cfg:      cfg,
		loader:   loader,
		logger:   logger,
		registry: registry,
		builder:  cli.NewBuilder(registry, settings, cfg.Execution.ShellPath, logger),
		catalog:  cat,
		metrics:  service.NewMetricsCollector(),
		stdout:   os.Stdout,
		stderr:   os.Stderr,
	}

	if withHistory && cfg.History.Enabled {
		h, err := state.OpenHistory(cfg.History.Path)
		if err != nil {
			// History is a convenience; formatting still works without it.
			logger.Warn("history disabled", "path", cfg.History.Path, "error", err)
		} else {
			a.history = h
		}
	}

	a.mode, err = detectMode()
	if err != nil {
		a.Close()
		return nil, err
	}
	color := a.mode == tui.ModeTUI && tui.NewDetector().NoColor(noColor).ShouldUseColor()
	width, _ := tui.TerminalSize()
	a.renderer = render.New(render.Options{Color: color, Width: width - 4})

	return a, nil
}

func detectMode() (tui.OutputMode, error) {
	d := tui.NewDetector()
	if outputFlag != "" {
		mode, ok := tui.ParseOutputMode(strings.ToLower(outputFlag))
		if !ok {
			return 0, fmt.Errorf("invalid --output %q (want tui, plain or json)", outputFlag)
		}
		d.ForceMode(mode)
	}
	return d.Detect(), nil
}

// Close releases the history database.
func (a *app) Close() {
	if a.history == nil {
		return
	}
	if err := a.history.Close(); err != nil {
		a.logger.Warn("failed to close history", "error", err)
	}
}

func (a *app) newRunner() *cli.Runner {
	opts := []cli.RunnerOption{
		cli.WithTimeout(a.cfg.Execution.TimeoutDuration()),
		cli.WithLogger(a.logger),
	}
	if a.cfg.Execution.Preflight.Enabled {
		opts = append(opts, cli.WithPreflight(
			diagnostics.NewPreflight(a.cfg.Execution.Preflight.MinFreeMemoryMB, 0, a.logger.Logger),
		))
	}
	return cli.NewRunner(opts...)
}

// newProcessor builds the processor with one executor for primary runs and
// a fresh one per follow-up.
func (a *app) newProcessor(opts ...service.Option) (*service.Processor, error) {
	composer, err := prompt.NewComposer(a.catalog, a.catalog)
	if err != nil {
		return nil, err
	}

	base := []service.Option{
		service.WithLogger(a.logger),
		service.WithMetrics(a.metrics),
		service.WithMaxInputLength(a.cfg.Execution.MaxInputLength),
		service.WithDefaultWorkDir(a.cfg.Execution.WorkDir),
	}
	if a.history != nil {
		base = append(base, service.WithHistory(a.history))
	}

	return service.NewProcessor(
		composer,
		a.builder,
		a.catalog,
		newExecutor(a),
		func() core.Executor { return newExecutor(a) },
		append(base, opts...)...,
	), nil
}

// didYouMean formats fuzzy suggestions for an unknown id.
func didYouMean(suggestions []string) string {
	if len(suggestions) == 0 {
		return ""
	}
	if len(suggestions) > 3 {
		suggestions = suggestions[:3]
	}
	return fmt.Sprintf(" (did you mean %s?)", strings.Join(suggestions, ", "))
}
