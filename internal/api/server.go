package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/finapp/advisor-engine/internal/analytics"
	"github.com/finapp/advisor-engine/internal/catalog"
	"github.com/finapp/advisor-engine/internal/config"
	"github.com/finapp/advisor-engine/internal/engine"
)

// Server represents the HTTP API server
type Server struct {
	config  config.ServerConfig
	router  *chi.Mux
	engine  *engine.Service
	catalog *catalog.Catalog
	events  *analytics.Dispatcher
}

// NewServer creates a new API server
func NewServer(
	cfg config.ServerConfig,
	svc *engine.Service,
	cat *catalog.Catalog,
	events *analytics.Dispatcher,
) *Server {
	s := &Server{
		config:  cfg,
		engine:  svc,
		catalog: cat,
		events:  events,
	}
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check (outside versioned API - public)
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Advisors
		r.Route("/advisors", func(r chi.Router) {
			r.Get("/", s.handleListAdvisors)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetAdvisor)
				r.Get("/steps/{index}", s.handleGetAdvisorStep)
			})
		})

		// Sessions
		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", s.handleListSessions)
			r.Post("/", s.handleStartSession)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Get("/step", s.handleCurrentStep)
				r.Post("/answers", s.handleSubmitAnswer)
				r.Get("/insight", s.handleGetInsight)
				r.Get("/watch", s.handleWatchSession)
			})
		})
	})

	s.router = r
}

// loggingMiddleware logs HTTP requests using slog
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
