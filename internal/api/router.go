// Package api provides the HTTP API for busgraph.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/graphql-go/graphql"
	"github.com/rs/zerolog"

	"github.com/busgraph/busgraph/internal/api/handler"
	"github.com/busgraph/busgraph/internal/api/middleware"
	"github.com/busgraph/busgraph/internal/provider/resilience"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics
	Stops       handler.StopService
	Schema      graphql.Schema
	Registry    *resilience.Registry
	CORSOrigins []string
	RequireTLS  bool
}

// NewRouter creates a new chi router with the GraphQL endpoint and REST routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "busgraph-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))         // Structured logging
	r.Use(middleware.Recovery(cfg.Logger))       // Panic recovery
	r.Use(chimiddleware.RealIP)                  // Real IP extraction
	r.Use(middleware.SecurityHeaders)            // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS(cfg.RequireTLS)) // TLS enforcement behind a proxy
	if len(cfg.CORSOrigins) > 0 {
		r.Use(middleware.CORS(cfg.CORSOrigins)) // Browser clients such as Apollo Studio
	}

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Registry)
	graphqlHandler := handler.NewGraphQLHandler(cfg.Schema, cfg.Logger)

	graphqlRateLimit := middleware.RateLimitByIP(middleware.GraphQLRateLimit)              // 60 req/min
	standardRateLimit := middleware.RateLimitByIPAndEndpoint(middleware.StandardRateLimit) // 100 req/min per endpoint

	// GraphQL endpoint, also served at the root for gateways that expect it there
	r.Group(func(r chi.Router) {
		r.Use(graphqlRateLimit)
		r.Use(middleware.RequireJSON)
		r.Handle("/graphql", graphqlHandler)
		r.Handle("/", graphqlHandler)
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)

		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
			r.Get("/status/{provider}", opsHandler.ProviderStatus)
		})

		if cfg.Stops != nil {
			stopHandler := handler.NewStopHandler(cfg.Stops)
			r.Route("/stops", func(r chi.Router) {
				r.Use(standardRateLimit)
				r.Get("/", stopHandler.ListNearby)
				r.Route("/{stopId}", func(r chi.Router) {
					r.Get("/", stopHandler.GetStop)
					r.Get("/arrivals", stopHandler.ListArrivals)
				})
			})
		}
	})

	return r
}
