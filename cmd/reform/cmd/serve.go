package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/reform-ai/internal/api"
	"github.com/hugo-lorenzo-mato/reform-ai/internal/events"
	"github.com/hugo-lorenzo-mato/reform-ai/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start an HTTP API over the formatting processor.

Only one primary formatting run is served at a time; a concurrent
POST /api/v1/format is answered with 409 Conflict. Run progress is
streamed as Server-Sent Events on GET /api/v1/events. The custom
catalog file is watched and reloaded when it changes.

Examples:
  # Start with defaults (server.addr, 127.0.0.1:8787)
  reform serve

  # Listen on all interfaces and restrict CORS
  reform serve --addr :8787 --cors-origin http://localhost:3000`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var (
	serveAddr    string
	serveOrigins []string
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: server.addr)")
	serveCmd.Flags().StringSliceVar(&serveOrigins, "cors-origin", nil, "allowed CORS origins (default: any)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	bus := events.New(256)
	defer bus.Close()

	proc, err := a.newProcessor(service.WithEvents(bus))
	if err != nil {
		return err
	}

	opts := []api.ServerOption{
		api.WithLogger(a.logger),
		api.WithMetrics(a.metrics),
		api.WithEvents(bus),
	}
	if a.history != nil {
		opts = append(opts, api.WithHistory(a.history))
	}
	if len(serveOrigins) > 0 {
		opts = append(opts, api.WithAllowedOrigins(serveOrigins...))
	}
	server := api.NewServer(proc, a.catalog, a.registry, opts...)

	go a.watchCatalog(ctx)

	addr := serveAddr
	if addr == "" {
		addr = a.cfg.Server.Addr
	}
	if err := server.ListenAndServe(ctx, addr); err != nil {
		return fmt.Errorf("serving: %w", err)
	}
	a.logger.Info("server stopped")
	return nil
}

func (a *app) watchCatalog(ctx context.Context) {
	err := a.catalog.Watch(ctx, func() {
		a.logger.Debug("catalog reloaded", "templates", len(a.catalog.Templates()), "tones", len(a.catalog.Tones()))
	})
	if err != nil && ctx.Err() == nil {
		a.logger.Warn("catalog watch stopped", "path", a.catalog.Path(), "error", err)
	}
}
