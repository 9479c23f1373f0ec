// internal/api/server.go
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	apihandler "github.com/newthinker/gridlens/internal/api/handler/api"
	"github.com/newthinker/gridlens/internal/api/handler/web"
	"github.com/newthinker/gridlens/internal/api/job"
	"github.com/newthinker/gridlens/internal/api/middleware"
	"github.com/newthinker/gridlens/internal/api/response"
	"github.com/newthinker/gridlens/internal/briefing"
	"github.com/newthinker/gridlens/internal/client"
	"github.com/newthinker/gridlens/internal/dashboard"
	"github.com/newthinker/gridlens/internal/metrics"
	"github.com/newthinker/gridlens/internal/snapshot"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

const readyTimeout = 3 * time.Second

// Server represents the HTTP server for GridLens
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
	deps       Dependencies
}

// Config holds server configuration
type Config struct {
	Host         string
	Port         int
	APIKey       string
	CORSOrigins  []string
	TemplatesDir string
	MetricsPath  string // empty disables the metrics endpoint
}

// Dependencies holds the components the handlers serve.
type Dependencies struct {
	Dashboard    *dashboard.Dashboard
	Client       *client.Client
	Jobs         *job.Store
	Exporter     *snapshot.Exporter
	ExportFormat snapshot.Format
	Briefer      *briefing.Briefer
	Metrics      *metrics.Registry // optional
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	mux := http.NewServeMux()

	s := &Server{
		logger: logger,
		mux:    mux,
		deps:   deps,
	}

	if err := s.setupRoutes(cfg); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.wrap(cfg, mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // refresh and region requests wait on the upstream
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// wrap applies the middleware shared by every route, outermost first.
func (s *Server) wrap(cfg Config, h http.Handler) http.Handler {
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	h = cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", middleware.APIKeyHeader, metrics.RequestIDHeader},
		ExposedHeaders: []string{metrics.RequestIDHeader},
	}).Handler(h)
	if s.deps.Metrics != nil {
		h = metrics.HTTPMiddleware(s.deps.Metrics)(h)
	}
	return metrics.LoggingMiddleware(s.logger)(h)
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(cfg Config) error {
	d := s.deps

	// Web UI routes
	webHandler, err := web.NewHandler(cfg.TemplatesDir, d.Dashboard, s.logger)
	if err != nil {
		return fmt.Errorf("creating web handler: %w", err)
	}
	s.mux.HandleFunc("GET /{$}", webHandler.Dashboard)
	s.mux.HandleFunc("POST /range/draft", webHandler.Draft)
	s.mux.HandleFunc("POST /range/apply", webHandler.Apply)
	s.mux.HandleFunc("POST /region", webHandler.Region)
	s.mux.HandleFunc("GET /views/{name}", webHandler.View)
	s.mux.HandleFunc("GET /charts/{name}", webHandler.Chart)

	// Probes and metrics
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.HandleFunc("GET /readyz", s.handleReady)
	if cfg.MetricsPath != "" && d.Metrics != nil {
		s.mux.Handle("GET "+cfg.MetricsPath, promhttp.HandlerFor(d.Metrics, promhttp.HandlerOpts{}))
	}

	// JSON API, behind the optional API key
	auth := middleware.APIKeyAuth(cfg.APIKey)
	handle := func(pattern string, fn http.HandlerFunc) {
		s.mux.Handle(pattern, auth(fn))
	}

	rangeHandler := apihandler.NewRangeHandler(d.Dashboard)
	handle("GET /api/v1/range", rangeHandler.Get)
	handle("PUT /api/v1/range/draft", rangeHandler.SetDraft)
	handle("POST /api/v1/range/commit", rangeHandler.Commit)

	viewsHandler := apihandler.NewViewsHandler(d.Dashboard)
	handle("GET /api/v1/views", viewsHandler.List)
	handle("GET /api/v1/views/{name}", viewsHandler.Get)
	handle("POST /api/v1/views/{name}/refresh", viewsHandler.Refresh)

	exportHandler := apihandler.NewExportHandler(d.Jobs, d.Dashboard, d.Exporter, d.ExportFormat)
	handle("POST /api/v1/exports", exportHandler.Create)
	handle("GET /api/v1/exports", exportHandler.List)

	briefingHandler := apihandler.NewBriefingHandler(d.Jobs, d.Dashboard, d.Briefer)
	handle("POST /api/v1/briefings", briefingHandler.Create)

	jobsHandler := apihandler.NewJobsHandler(d.Jobs)
	handle("GET /api/v1/jobs", jobsHandler.List)
	handle("GET /api/v1/jobs/{id}", jobsHandler.Get)

	var healthRecorder apihandler.HealthRecorder
	if d.Metrics != nil {
		healthRecorder = d.Metrics
	}
	upstreamHandler := apihandler.NewUpstreamHandler(d.Client, healthRecorder)
	handle("GET /api/v1/upstream/health", upstreamHandler.Health)

	return nil
}

// Handler returns the fully wrapped root handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"range":  s.deps.Dashboard.Store().Committed(),
	})
}

// handleReady reports ready only while the analytics API answers healthy.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	status, err := s.deps.Client.Health(ctx)
	ok := err == nil && status.Healthy()
	if s.deps.Metrics != nil {
		s.deps.Metrics.SetUpstreamHealthy(ok)
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if !ok {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("upstream unavailable\n"))
		return
	}
	w.Write([]byte("ok\n"))
}
