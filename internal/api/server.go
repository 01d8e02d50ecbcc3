// Package api provides the HTTP REST API for the portsweep scanner.
// It exposes scan submission, progress and cancellation, stored reports,
// schedules, live WebSocket streams and system status.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	gorillahandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/anstrom/portsweep/docs/swagger" // Import generated swagger docs
	"github.com/anstrom/portsweep/internal/api/handlers"
	"github.com/anstrom/portsweep/internal/api/middleware"
	"github.com/anstrom/portsweep/internal/auth"
	"github.com/anstrom/portsweep/internal/config"
	"github.com/anstrom/portsweep/internal/logging"
	"github.com/anstrom/portsweep/internal/metrics"
	"github.com/anstrom/portsweep/internal/scanning"
)

// Server timeout constants.
const (
	serverShutdownTimeout = 30 * time.Second
	rateLimitCleanupEvery = 5 * time.Minute
)

// Dependencies are the services the API serves. Only Scans is required.
type Dependencies struct {
	Scans     scanning.Service
	Reports   handlers.ReportStore
	Scheduler handlers.JobScheduler
	Database  handlers.DatabasePinger
	Metrics   *metrics.PrometheusMetrics
}

// Server represents the API server.
type Server struct {
	httpServer  *http.Server
	router      *mux.Router
	config      *config.Config
	deps        Dependencies
	logger      *logging.Logger
	rateLimiter *middleware.RateLimiter
	startTime   time.Time
}

// New creates a new API server instance.
func New(cfg *config.Config, deps Dependencies) (*Server, error) {
	if deps.Scans == nil {
		return nil, fmt.Errorf("scan service is required")
	}

	server := &Server{
		router:    mux.NewRouter(),
		config:    cfg,
		deps:      deps,
		logger:    logging.Default().WithComponent("api"),
		startTime: time.Now(),
	}

	if err := server.setupMiddleware(); err != nil {
		return nil, err
	}
	server.setupRoutes()

	var handler http.Handler = server.router
	if cfg.API.CORS.Enabled {
		// CORS wraps the router so preflight requests for unmatched
		// methods still get an answer.
		handler = gorillahandlers.CORS(
			gorillahandlers.AllowedOrigins(cfg.API.CORS.AllowedOrigins),
			gorillahandlers.AllowedMethods(cfg.API.CORS.AllowedMethods),
			gorillahandlers.AllowedHeaders(cfg.API.CORS.AllowedHeaders),
		)(handler)
	}

	server.httpServer = &http.Server{
		Addr:         cfg.GetAPIAddress(),
		Handler:      handler,
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
		IdleTimeout:  cfg.API.IdleTimeout,
	}

	return server, nil
}

// Start serves until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting API server",
		"address", s.httpServer.Addr,
		"tls", s.config.API.TLS.Enabled,
		"auth", s.config.API.AuthEnabled)

	errChan := make(chan error, 1)
	go func() {
		var err error
		if s.config.API.TLS.Enabled {
			err = s.httpServer.ListenAndServeTLS(s.config.API.TLS.CertFile, s.config.API.TLS.KeyFile)
		} else {
			err = s.httpServer.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("API server failed: %w", err)
		}
	}()

	if s.rateLimiter != nil {
		go s.cleanupRateLimiter(ctx)
	}

	select {
	case <-ctx.Done():
		return s.Stop()
	case err := <-errChan:
		return err
	}
}

// Stop gracefully stops the API server.
func (s *Server) Stop() error {
	s.logger.Info("Stopping API server")

	ctx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("API server shutdown error", "error", err)
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("API server stopped successfully")
	return nil
}

func (s *Server) cleanupRateLimiter(ctx context.Context) {
	ticker := time.NewTicker(rateLimitCleanupEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.rateLimiter.Cleanup()
		}
	}
}

func (s *Server) setupMiddleware() error {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recovery(s.logger))
	s.router.Use(middleware.Logging(s.logger))
	if s.deps.Metrics != nil {
		s.router.Use(middleware.Metrics(s.deps.Metrics))
	}
	s.router.Use(middleware.SecurityHeaders)

	apiCfg := s.config.API
	if apiCfg.RateLimit.Enabled {
		s.rateLimiter = middleware.NewRateLimiter(apiCfg.RateLimit.RequestsPerSecond, apiCfg.RateLimit.Burst)
		s.router.Use(middleware.RateLimit(s.rateLimiter, s.logger))
	}

	if apiCfg.AuthEnabled {
		verifier, err := auth.NewKeyVerifier(apiCfg.APIKeys)
		if err != nil {
			return fmt.Errorf("failed to load API keys: %w", err)
		}
		s.logger.Info("API key authentication enabled", "keys", verifier.Len())
		s.router.Use(middleware.Authentication(verifier, s.logger))
	}

	s.router.Use(middleware.ContentType)
	return nil
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	maxRequestSize := s.config.API.MaxRequestSize
	if maxRequestSize <= 0 {
		maxRequestSize = handlers.DefaultMaxRequestSize
	}

	var recorder metrics.HTTPRecorder = metrics.Nop{}
	if s.deps.Metrics != nil {
		recorder = s.deps.Metrics
	}

	api := s.router.PathPrefix("/api/v1").Subrouter()

	health := handlers.NewHealthHandler(s.deps.Database, s.deps.Scans, s.logger)
	api.HandleFunc("/health", health.Health).Methods(http.MethodGet)
	api.HandleFunc("/status", health.Status).Methods(http.MethodGet)
	api.HandleFunc("/version", health.Version).Methods(http.MethodGet)

	scans := handlers.NewScanHandler(s.deps.Scans, s.logger, maxRequestSize)
	api.HandleFunc("/scans", scans.CreateScan).Methods(http.MethodPost)
	api.HandleFunc("/scans", scans.ListScans).Methods(http.MethodGet)
	api.HandleFunc("/scans/{id}", scans.GetScan).Methods(http.MethodGet)
	api.HandleFunc("/scans/{id}", scans.CancelScan).Methods(http.MethodDelete)

	ws := handlers.NewWebSocketHandler(s.deps.Scans, s.logger, recorder, s.config.API.CORS.AllowedOrigins)
	api.HandleFunc("/scans/{id}/ws", ws.ScanWebSocket).Methods(http.MethodGet)

	if s.deps.Reports != nil {
		reports := handlers.NewReportHandler(s.deps.Reports, s.logger)
		api.HandleFunc("/reports", reports.ListReports).Methods(http.MethodGet)
		api.HandleFunc("/reports/{id}", reports.GetReport).Methods(http.MethodGet)
		api.HandleFunc("/reports/{id}", reports.DeleteReport).Methods(http.MethodDelete)
	}

	if s.deps.Scheduler != nil {
		schedules := handlers.NewScheduleHandler(s.deps.Scheduler, s.logger)
		api.HandleFunc("/schedules", schedules.ListSchedules).Methods(http.MethodGet)
		api.HandleFunc("/schedules/{id}/run", schedules.RunSchedule).Methods(http.MethodPost)
		api.HandleFunc("/schedules/{id}/enable", schedules.EnableSchedule).Methods(http.MethodPost)
		api.HandleFunc("/schedules/{id}/disable", schedules.DisableSchedule).Methods(http.MethodPost)
	}

	if s.deps.Metrics != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.deps.Metrics.GetRegistry(), promhttp.HandlerOpts{})).
			Methods(http.MethodGet)
	}

	s.router.PathPrefix("/swagger/").Handler(httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("none"),
	))
	s.router.HandleFunc("/docs", s.redirectToSwagger).Methods(http.MethodGet)
	s.router.HandleFunc("/docs/", s.redirectToSwagger).Methods(http.MethodGet)

	s.router.HandleFunc("/", s.index).Methods(http.MethodGet)
}

// index describes the API for clients that hit the root.
func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"service": "portsweep API",
		"version": "v1",
		"endpoints": map[string]string{
			"health":  "/api/v1/health",
			"status":  "/api/v1/status",
			"scans":   "/api/v1/scans",
			"reports": "/api/v1/reports",
			"docs":    "/swagger/",
		},
		"uptime":    time.Since(s.startTime).String(),
		"timestamp": time.Now().UTC(),
	}
	handlers.WriteJSON(w, r, http.StatusOK, response)
}

func (s *Server) redirectToSwagger(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/swagger/index.html", http.StatusMovedPermanently)
}

// GetRouter returns the configured router.
func (s *Server) GetRouter() *mux.Router {
	return s.router
}

// Handler returns the root handler, including CORS when enabled.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// GetAddress returns the server address.
func (s *Server) GetAddress() string {
	return s.httpServer.Addr
}
