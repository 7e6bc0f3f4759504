package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/disaster-feed-service/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Feed is the part of the pipeline the API reads from.
type Feed interface {
	Load(ctx context.Context, forceRefresh bool) (domain.Dataset, error)
	CheckReadiness(ctx context.Context) error
}

// Server exposes the event API plus health, readiness and metrics endpoints.
type Server struct {
	httpServer *http.Server
	feed       Feed
	clock      clockwork.Clock
	pageSize   int
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the /api routes and the operational
// /healthz, /readyz and /metrics routes. A non-positive pageSize uses
// domain.DefaultPageSize.
func NewServer(addr string, feed Feed, clock clockwork.Clock, pageSize int, logger *slog.Logger) *Server {
	if pageSize <= 0 {
		pageSize = domain.DefaultPageSize
	}
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      withRequestID(mux, clock, logger),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second, // forced refreshes wait on both providers
			IdleTimeout:  60 * time.Second,
		},
		feed:     feed,
		clock:    clock,
		pageSize: pageSize,
		logger:   logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(feed))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/events", s.handleEvents)
	mux.HandleFunc("GET /api/events/{id}", s.handleEvent)
	mux.HandleFunc("GET /api/statistics", s.handleStatistics)
	mux.HandleFunc("GET /api/highlights", s.handleHighlights)
	mux.HandleFunc("POST /api/refresh", s.handleRefresh)

	return s
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

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
