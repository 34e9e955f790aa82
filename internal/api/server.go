// Package api provides the HTTP API server and handlers for HobbyShelf.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/hobbyshelf/hobbyshelf-server/internal/http/response"
	"github.com/hobbyshelf/hobbyshelf-server/internal/ratelimit"
)

// Options configures the HTTP surface.
type Options struct {
	Title       string
	Version     string
	CORSOrigins []string
	SearchIndex string // engine name reported by /health
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	services *Services
	limiter  *ratelimit.Limiter
	router   *chi.Mux
	api      huma.API
	opts     Options
	logger   *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured. A nil
// limiter disables rate limiting.
func NewServer(services *Services, limiter *ratelimit.Limiter, opts Options, logger *slog.Logger) *Server {
	if opts.Title == "" {
		opts.Title = "HobbyShelf API"
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}

	s := &Server{
		services: services,
		limiter:  limiter,
		router:   chi.NewRouter(),
		opts:     opts,
		logger:   logger,
	}

	s.setupMiddleware()

	humaConfig := huma.DefaultConfig(opts.Title, opts.Version)
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

// API exposes the huma API, mainly for tests and OpenAPI export.
func (s *Server) API() huma.API { return s.api }

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(RequestLogger(s.logger))
	s.router.Use(Recoverer(s.logger))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.corsOrigins(),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	if s.limiter != nil {
		s.router.Use(RateLimitMiddleware(s.limiter, s.logger))
	}

	s.router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.NotFound(w, "route not found", s.logger)
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.MethodNotAllowed(w, s.logger)
	})
}

func (s *Server) corsOrigins() []string {
	if len(s.opts.CORSOrigins) == 0 {
		return []string{"*"}
	}
	return s.opts.CORSOrigins
}

// setupRoutes registers every huma operation.
func (s *Server) setupRoutes() {
	s.registerHealthRoutes()
	s.registerHobbyRoutes()
	s.registerTypeRoutes()
	s.registerEntryRoutes()
	s.registerTagRoutes()
	s.registerSearchRoutes()
	s.registerShelfRoutes()
	s.registerAdminRoutes()
	s.registerAdminBackupRoutes()
}
