// Package server provides the HTTP server and routing for Wheelhouse.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/wheelhouse-trading/wheelhouse/internal/config"
	"github.com/wheelhouse-trading/wheelhouse/internal/database"
	"github.com/wheelhouse-trading/wheelhouse/internal/modules/candidates"
	candidateshandlers "github.com/wheelhouse-trading/wheelhouse/internal/modules/candidates/handlers"
	"github.com/wheelhouse-trading/wheelhouse/internal/modules/chains"
	chainshandlers "github.com/wheelhouse-trading/wheelhouse/internal/modules/chains/handlers"
	"github.com/wheelhouse-trading/wheelhouse/internal/modules/evaluation"
	evaluationhandlers "github.com/wheelhouse-trading/wheelhouse/internal/modules/evaluation/handlers"
	"github.com/wheelhouse-trading/wheelhouse/internal/modules/policy"
	policyhandlers "github.com/wheelhouse-trading/wheelhouse/internal/modules/policy/handlers"
)

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	PolicyDB  *database.DB
	JournalDB *database.DB
	CacheDB   *database.DB
	Config    *config.Config
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            *config.Config
	systemHandlers *SystemHandlers
}

// New creates a new HTTP server and wires the module services.
func New(cfg Config) *Server {
	s := &Server{
		router:         chi.NewRouter(),
		log:            cfg.Log.With().Str("component", "server").Logger(),
		cfg:            cfg.Config,
		systemHandlers: NewSystemHandlers(cfg.Log, cfg.Config.DataDir, cfg.PolicyDB, cfg.JournalDB, cfg.CacheDB),
	}

	s.setupMiddleware(cfg.Config.DevMode)
	s.setupRoutes(cfg)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Config.Port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 150 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// Timeout
	s.router.Use(middleware.Timeout(60 * time.Second))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
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

// setupRoutes builds the module services and registers their routes.
func (s *Server) setupRoutes(cfg Config) {
	// Health check
	s.router.Get("/health", s.systemHandlers.HandleHealth)

	// Repositories
	policyRepo := policy.NewRepository(cfg.PolicyDB.Conn(), cfg.Log)
	snapshotRepo := chains.NewSnapshotRepository(cfg.CacheDB.Conn(), cfg.Log)
	evaluationRepo := evaluation.NewRepository(cfg.JournalDB.Conn(), cfg.Log)

	// Services
	generator := candidates.NewGenerator(cfg.Log)
	thresholds := evaluation.SeverityThresholds{
		Pass:  cfg.Config.SeverityPassThreshold,
		Minor: cfg.Config.SeverityMinorThreshold,
	}
	evaluationService := evaluation.NewService(evaluationRepo, cfg.Config.EvalWorkers, thresholds, cfg.Log)

	// API routes
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/system/info", s.systemHandlers.HandleSystemInfo)

		chainshandlers.NewHandler(snapshotRepo, cfg.Log).RegisterRoutes(r)
		candidateshandlers.NewHandler(generator, snapshotRepo, cfg.Log).RegisterRoutes(r)
		policyhandlers.NewHandler(policyRepo, cfg.Log).RegisterRoutes(r)
		evaluationhandlers.NewHandler(
			evaluationService,
			policyRepo,
			snapshotRepo,
			generator,
			evaluationRepo,
			cfg.Log,
		).RegisterRoutes(r)
	})
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
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
