// Package server provides the HTTP server and routing for the distributor.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/aristath/distributor/internal/config"
	"github.com/aristath/distributor/internal/database"
	"github.com/aristath/distributor/internal/di"
	"github.com/aristath/distributor/internal/metrics"
	allocationhandlers "github.com/aristath/distributor/internal/modules/allocation/handlers"
	distributionhandlers "github.com/aristath/distributor/internal/modules/distribution/handlers"
	registryhandlers "github.com/aristath/distributor/internal/modules/registry/handlers"
)

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Config    *config.Config
	Container *di.Container // DI container with all services
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	db             *database.DB
	cfg            *config.Config
	container      *di.Container
	systemHandlers *SystemHandlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	c := cfg.Container

	var backups BackupService
	if c.BackupService != nil {
		backups = c.BackupService
	}

	var schedules ScheduleCounter
	if c.ScheduleSync != nil {
		schedules = c.ScheduleSync
	}

	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "server").Logger(),
		db:        c.DB,
		cfg:       cfg.Config,
		container: c,
		systemHandlers: NewSystemHandlers(
			cfg.Log,
			cfg.Config.DataDir,
			c.DB,
			schedules,
			backups,
		),
	}

	s.setupMiddleware(cfg.Config.DevMode, cfg.Config.AllowedOrigins)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Router exposes the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool, allowedOrigins []string) {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// Prometheus
	s.router.Use(metrics.Middleware)

	// Timeout
	s.router.Use(middleware.Timeout(60 * time.Second))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.systemHandlers.HandleSystemStatus)
			r.Get("/database", s.systemHandlers.HandleDatabaseStats)
			r.Get("/backups", s.systemHandlers.HandleListBackups)
			r.Post("/backups", s.systemHandlers.HandleCreateBackup)
		})

		allocationhandlers.NewHandler(s.log).RegisterRoutes(r)

		if s.container.DistributionService != nil {
			distributionhandlers.NewHandler(s.container.DistributionService, s.log).RegisterRoutes(r)
		}

		if s.container.RegistryClient != nil {
			// The sync is optional: configs still save when the scheduler is off
			var sync registryhandlers.ScheduleSyncer
			if s.container.ScheduleSync != nil {
				sync = s.container.ScheduleSync
			}
			registryhandlers.NewHandler(
				s.container.RegistryClient,
				s.container.ConfigRunner,
				sync,
				s.log,
			).RegisterRoutes(r)
		}
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
