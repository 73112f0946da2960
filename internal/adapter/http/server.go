package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/matjip-map/discovery-service/internal/domain"
	"github.com/matjip-map/discovery-service/internal/observability"
	"github.com/matjip-map/discovery-service/internal/regions"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Searcher is the search surface the API exposes.
type Searcher interface {
	ListAll(ctx context.Context) ([]domain.POI, error)
	GetDetail(ctx context.Context, id int64) (domain.POI, error)
	Nearby(ctx context.Context, sessionID string, radiusKm float64, category domain.Category) ([]domain.RankedResult, error)
	SetLocation(ctx context.Context, sessionID string, c domain.Coordinate) error
}

// RegionSource supplies the current province/district table.
type RegionSource interface {
	Current() *regions.Table
}

// Deps are the collaborators behind the API routes. Geocoder may be nil.
type Deps struct {
	Search   Searcher
	Ready    sharedobs.ReadinessChecker
	Regions  RegionSource
	Geocoder domain.Geocoder
}

// Server exposes the discovery API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	deps       Deps
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the API, /healthz, /readyz, and /metrics routes.
func NewServer(addr string, deps Deps, metrics *observability.Metrics, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		deps:    deps,
		metrics: metrics,
		logger:  logger,
	}

	s.handle(mux, "POST /location", s.withSession(s.handleSetLocation))
	s.handle(mux, "GET /restaurants/markers", s.handleMarkers)
	s.handle(mux, "GET /restaurant/detail", s.handleDetail)
	s.handle(mux, "GET /restaurants/nearby", s.withSession(s.handleNearby))
	s.handle(mux, "GET /regions", s.handleRegions)
	s.handle(mux, "GET /geocode", s.handleGeocode)

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(deps.Ready))
	mux.Handle("GET /metrics", promhttp.Handler())

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

// handle registers h under pattern with request metrics labelled by the pattern.
func (s *Server) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.Handle(pattern, s.instrument(pattern, h))
}

func (s *Server) instrument(route string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)

		if s.metrics != nil {
			s.metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
			s.metrics.HTTPDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		}
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
