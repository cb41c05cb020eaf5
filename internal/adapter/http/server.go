// Package http serves health, readiness and metrics endpoints, the public
// query API under /api and operator endpoints under /admin.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Deps are the components the routes call. A nil Queries or nil Ingester and
// Aggregator leave the corresponding route group unmounted.
type Deps struct {
	Ready      ReadinessChecker
	Queries    Queries
	Ingester   Ingester
	Aggregator Aggregator
	Audit      Audit
	// AdminToken guards /admin as a bearer token. Empty disables the check.
	AdminToken string
	// Location interprets date-only admin inputs.
	Location *time.Location
}

// Server exposes the HTTP API.
type Server struct {
	httpServer *http.Server
	deps       Deps
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the health, query and admin routes.
func NewServer(addr string, deps Deps, logger *slog.Logger) *Server {
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	s := &Server{deps: deps, logger: logger}
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", handleReady(s.deps.Ready))
	r.Handle("/metrics", promhttp.Handler())

	if s.deps.Queries != nil {
		r.Route("/api", func(r chi.Router) {
			r.Get("/leaderboard", s.handleLeaderboard)
			r.Get("/neighborhoods", s.handleNeighborhoods)
			r.Get("/neighborhoods/{id}", s.handleNeighborhood)
			r.Get("/compare", s.handleCompare)
			r.Get("/nearby", s.handleNearby)
		})
	}

	if s.deps.Ingester != nil && s.deps.Aggregator != nil {
		r.Route("/admin", func(r chi.Router) {
			r.Use(requireBearer(s.deps.AdminToken))
			r.Post("/ingest", s.handleIngest)
			r.Post("/backfill", s.handleBackfill)
			r.Post("/aggregate", s.handleAggregate)
			r.Post("/refresh-daily", s.handleRefreshDaily)
			r.Post("/recategorize", s.handleRecategorize)
			if s.deps.Audit != nil {
				r.Get("/analyze-other", s.handleAnalyzeOther)
				r.Get("/runs", s.handleRuns)
			}
		})
	}
	return r
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeStatus(w, r, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeStatus(w, r, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeStatus(w, r, http.StatusOK, map[string]string{"status": "ready"})
	}
}
