// Package api provides the HTTP API server and handlers for the catalog.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/maktabaapp/maktaba-server/internal/ratelimit"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	services        *Services
	health          map[string]Pinger
	router          *chi.Mux
	api             huma.API
	bulkRateLimiter *ratelimit.KeyedRateLimiter
	logger          *slog.Logger
}

// Options configures the router.
type Options struct {
	CORSAllowedOrigins []string
	// BulkRateLimiter throttles the bulk admin routes per acting user.
	// Nil disables throttling.
	BulkRateLimiter *ratelimit.KeyedRateLimiter
	// Health lists the components reported by /health, keyed by name.
	Health map[string]Pinger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(services *Services, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	router := chi.NewRouter()

	s := &Server{
		services:        services,
		health:          opts.Health,
		router:          router,
		bulkRateLimiter: opts.BulkRateLimiter,
		logger:          logger,
	}

	s.setupMiddleware(opts.CORSAllowedOrigins)

	humaConfig := huma.DefaultConfig("Maktaba Catalog API", "1.0.0")
	humaConfig.Info.Description = "Library catalog: books, shelf search, bulk reclassification and borrowing."
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)
	// Bodies leave as envelopes, so $schema links would never match a
	// registered type. The link hook also cannot rebuild dto.Book, whose
	// embedded *domain.Book has methods.
	humaConfig.CreateHooks = nil

	s.api = humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s.registerRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API exposes the huma API, mainly for tests and OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

func (s *Server) setupMiddleware(origins []string) {
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", HeaderUserID},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))
}

func (s *Server) registerRoutes() {
	s.registerHealthRoutes()
	s.registerBookRoutes()
	s.registerSearchRoutes()
	s.registerEntityRoutes()
	s.registerBulkRoutes()
	s.registerBorrowRoutes()
}
