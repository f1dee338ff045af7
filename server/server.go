// Package server wires the event counter API onto a chi router and manages
// the HTTP server lifecycle.
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

	"github.com/giygas/event-counter-api/config"
	"github.com/giygas/event-counter-api/interfaces"
	"github.com/giygas/event-counter-api/logging"
	"github.com/giygas/event-counter-api/metrics"
)

// Server represents the HTTP server
type Server struct {
	server  *http.Server
	router  chi.Router
	config  *config.Config
	store   interfaces.EventStore
	handler interfaces.HTTPHandler
	limiter *RateLimiter
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, store interfaces.EventStore, handler interfaces.HTTPHandler) *Server {
	router := chi.NewRouter()

	server := &Server{
		server: &http.Server{
			Handler:      router,
			Addr:         cfg.Address + ":" + cfg.Port,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		router:  router,
		config:  cfg,
		store:   store,
		handler: handler,
		limiter: NewRateLimiter(cfg.RateLimitRate, cfg.RateLimitCapacity, DefaultBucketIdleTTL),
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// Handler returns the router with the full middleware chain
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupMiddleware configures all middleware
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	if s.config.BlockDirectAccess {
		s.router.Use(BlockDirectAccessMiddleware) // before RealIPMiddleware, it needs the original RemoteAddr
	}
	s.router.Use(RealIPMiddleware)
	s.router.Use(logging.LoggingMiddleware(logging.Logger()))
	s.router.Use(middleware.RedirectSlashes)
	s.router.Use(middleware.Recoverer)
	s.router.Use(RequestSizeMiddleware(s.config.MaxRequestBody, s.config.MaxHeaderSize))
	s.router.Use(metrics.Metrics)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Rate", "Retry-After"},
		MaxAge:         300,
	}))
	s.router.Use(s.limiter.Handler)
	s.router.Use(CountEventsMiddleware(s.store, s.config.CounterEnabled()))
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handler.HealthCheck)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/monitor", func(r chi.Router) {
		// format and fromnow are optional trailing segments
		r.Get("/event/count/{name}/{value}/{uom}", s.handler.CountEvent)
		r.Get("/event/count/{name}/{value}/{uom}/{format}", s.handler.CountEvent)
		r.Get("/event/count/{name}/{value}/{uom}/{format}/{fromnow}", s.handler.CountEvent)
		r.Get("/events/{value}/{uom}", s.handler.CountAllEvents)
		r.Get("/events/{value}/{uom}/{format}", s.handler.CountAllEvents)
		r.Get("/events/{value}/{uom}/{format}/{fromnow}", s.handler.CountAllEvents)
		r.Get("/counters", s.handler.ListCounters)
		r.Delete("/event/{name}", s.handler.DeleteEvent)
		r.Delete("/events", s.handler.DeleteAllEvents)
	})
}

// Start starts the server and blocks until it stops
func (s *Server) Start() error {
	if s.config.Env == config.EnvDevelopment {
		s.startProfilingServer()
	}

	go s.limiter.Start()

	logging.Info(fmt.Sprintf("Starting server at: %s:%s", s.config.Address, s.config.Port))
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")
	defer s.limiter.Stop()

	if err := s.server.Shutdown(ctx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
		if err := s.server.Close(); err != nil {
			logging.Error("Server close error", "error", err)
			return err
		}
	}

	logging.Info("Server shutdown complete")
	return nil
}

// startProfilingServer serves pprof on localhost in development mode
func (s *Server) startProfilingServer() {
	go func() {
		logging.Info("Profiling server started at http://localhost:6060/debug/pprof/")
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			logging.Warn("Profiling server failed", "error", err)
		}
	}()
}
