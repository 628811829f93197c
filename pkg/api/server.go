// Package api exposes the read-only query service. Every handler reads
// from a single graph snapshot, so a response is internally consistent
// and carries the version token it was computed from.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/routelab/rcp/pkg/fib"
	"github.com/routelab/rcp/pkg/graph"
	"github.com/routelab/rcp/pkg/logging"
	"github.com/routelab/rcp/pkg/metrics"
)

// ServerConfig configures the query service.
type ServerConfig struct {
	// JWTSecret enables bearer-token auth on /api routes when set.
	// Health and metrics stay open for probes and scrapers.
	JWTSecret string
	Logger    logging.Logger
}

// Server serves read-only queries over the graph and the FIB table.
type Server struct {
	store *graph.Store
	table *fib.Table

	router    *mux.Router
	jwtSecret []byte
	startTime time.Time

	logger  logging.Logger
	metrics *metrics.Registry
}

// NewServer creates the query service over a store and a FIB table.
func NewServer(store *graph.Store, table *fib.Table, cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.DefaultLogger()
	}

	s := &Server{
		store:     store,
		table:     table,
		jwtSecret: []byte(cfg.JWTSecret),
		startTime: time.Now(),
		logger:    logger.With(logging.Component("api")),
		metrics:   metrics.DefaultRegistry(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := mux.NewRouter()
	r.Use(s.metricsMiddleware)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(
		s.metrics.GetPrometheusRegistry(),
		promhttp.HandlerOpts{},
	)).Methods(http.MethodGet)

	apiRouter := r.PathPrefix("/api/v1").Subrouter()
	if len(s.jwtSecret) > 0 {
		apiRouter.Use(s.authMiddleware)
	}
	apiRouter.HandleFunc("/nodes/{id}", s.handleNode).Methods(http.MethodGet)
	apiRouter.HandleFunc("/paths/{prefix:.+}", s.handlePaths).Methods(http.MethodGet)
	apiRouter.HandleFunc("/fib", s.handleFib).Methods(http.MethodGet)
	apiRouter.HandleFunc("/fib/{prefix:.+}", s.handleFibPrefix).Methods(http.MethodGet)
	apiRouter.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)

	s.router = r
}

// Handler returns the service's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, version graph.Version, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(VersionHeader, strconv.FormatUint(uint64(version), 10))
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("response encode failed", logging.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}
