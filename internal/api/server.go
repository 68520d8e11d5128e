// Package api provides the HTTP API server and handlers for BookScan.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bookscanapp/bookscan-server/internal/library"
	"github.com/bookscanapp/bookscan-server/internal/ratelimit"
	"github.com/bookscanapp/bookscan-server/internal/scoring"
	"github.com/bookscanapp/bookscan-server/internal/service"
	"github.com/bookscanapp/bookscan-server/internal/sse"
)

// Services groups the business services the handlers call.
type Services struct {
	Profiles *service.ProfileService
	Library  *library.Manager
	Stats    *service.StatsService
	Scans    *service.ScanService
	Scoring  *scoring.Engine
	Events   *sse.Manager // optional
}

// Options configures the HTTP layer.
type Options struct {
	Version        string
	CORSOrigins    []string
	RateLimitRPS   float64 // per client IP, 0 disables
	RateLimitBurst int
	ScanWait       time.Duration // upper bound for ?wait=true and accept, default 25s
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	router   *chi.Mux
	api      huma.API
	services Services
	health   HealthChecker
	limiter  *ratelimit.KeyedRateLimiter
	opts     Options
	logger   *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(services Services, health HealthChecker, opts Options, logger *slog.Logger) *Server {
	if opts.Version == "" {
		opts.Version = "dev"
	}
	if opts.ScanWait <= 0 {
		opts.ScanWait = 25 * time.Second
	}

	s := &Server{
		router:   chi.NewRouter(),
		services: services,
		health:   health,
		opts:     opts,
		logger:   logger.With("component", "api"),
	}
	if opts.RateLimitRPS > 0 {
		s.limiter = ratelimit.New(opts.RateLimitRPS, opts.RateLimitBurst)
	}

	s.setupMiddleware()

	humaConfig := huma.DefaultConfig("BookScan API", opts.Version)
	humaConfig.Info.Description = "Scan books, predict how much you will like them, and keep a reading library."
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)
	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close stops background work owned by the server.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.observe)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", ReaderHeaderName},
		ExposedHeaders: []string{FallbackHeaderName, middleware.RequestIDHeader},
		MaxAge:         300,
	}))
	if s.limiter != nil {
		s.router.Use(RateLimitMiddleware(s.limiter, s.logger))
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Handle("/metrics", promhttp.Handler())
	s.router.Post("/api/rate-book", s.handleRateBook)

	s.registerHealthRoutes()
	s.registerProfileRoutes()
	s.registerLibraryRoutes()
	s.registerScanRoutes()

	if s.services.Events != nil {
		s.router.Get("/api/v1/events", sse.NewHandler(s.services.Events, s.logger).ServeHTTP)
	}
}
