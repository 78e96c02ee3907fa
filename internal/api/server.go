// Package api exposes the formatting processor over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/hugo-lorenzo-mato/reform-ai/internal/adapters/cli"
	"github.com/hugo-lorenzo-mato/reform-ai/internal/core"
	"github.com/hugo-lorenzo-mato/reform-ai/internal/events"
	"github.com/hugo-lorenzo-mato/reform-ai/internal/logging"
	"github.com/hugo-lorenzo-mato/reform-ai/internal/service"
)

// Catalog lists the templates and tones clients can pick from.
type Catalog interface {
	Templates() []core.Template
	Tones() []core.Tone
}

// HistoryReader reads recorded runs.
type HistoryReader interface {
	List(ctx context.Context, limit int) ([]core.HistoryEntry, error)
	BySession(ctx context.Context, sessionID string) ([]core.HistoryEntry, error)
}

// Server provides the HTTP endpoints.
type Server struct {
	router    chi.Router
	processor *service.Processor
	catalog   Catalog
	registry  *cli.Registry
	metrics   *service.MetricsCollector
	history   HistoryReader
	events    *events.Bus
	heartbeat time.Duration
	logger    *logging.Logger
	origins   []string
}

// ServerOption configures the server.
type ServerOption func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *logging.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics enables GET /api/v1/stats.
func WithMetrics(m *service.MetricsCollector) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithHistory enables GET /api/v1/history.
func WithHistory(h HistoryReader) ServerOption {
	return func(s *Server) {
		s.history = h
	}
}

// WithAllowedOrigins restricts CORS origins. Defaults to any origin.
func WithAllowedOrigins(origins ...string) ServerOption {
	return func(s *Server) {
		s.origins = origins
	}
}

// NewServer creates a new API server.
func NewServer(processor *service.Processor, catalog Catalog, registry *cli.Registry, opts ...ServerOption) *Server {
	s := &Server{
		processor: processor,
		catalog:   catalog,
		registry:  registry,
		logger:    logging.NewNop(),
		origins:   []string{"*"},
		heartbeat: defaultHeartbeat,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.router = s.setupRouter()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.loggingMiddleware)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
		AllowCredentials: false,
		MaxAge:           300,
	})
	r.Use(corsHandler.Handler)

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/templates", s.handleListTemplates)
		r.Get("/tones", s.handleListTones)
		r.Get("/agents", s.handleListAgents)

		r.Post("/format", s.handleFormat)
		r.Post("/follow-up", s.handleFollowUp)
		r.Post("/reset", s.handleReset)

		r.Get("/stats", s.handleStats)
		r.Get("/history", s.handleHistory)
		r.Get("/events", s.handleEvents)
	})

	return r
}

// loggingMiddleware logs HTTP requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"bytes", ww.BytesWritten(),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// respondJSON sends a JSON response.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.logger.Error("failed to encode response", "error", err)
		}
	}
}

// respondError sends a JSON error response.
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "healthy",
		"processing": s.processor.IsProcessing(),
		"time":       time.Now().UTC().Format(time.RFC3339),
	})
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	// Request contexts derive from ctx so open event streams end on shutdown.
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("starting API server", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
