// Package api is the HTTP surface: location search, the session state
// whitelist, address validation, and campaign geo-target updates.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sells-group/geotarget/internal/addrindex"
	"github.com/sells-group/geotarget/internal/metrics"
	"github.com/sells-group/geotarget/internal/reconcile"
	"github.com/sells-group/geotarget/internal/search"
	"github.com/sells-group/geotarget/internal/session"
	"github.com/sells-group/geotarget/internal/validate"
)

// Deps are the collaborators a Server routes to. Reconciler may be nil when
// no ad platform is configured; the geo-target endpoint then answers 503.
type Deps struct {
	Index       addrindex.Index
	Search      *search.Engine
	Validator   *validate.Validator
	Reconciler  *reconcile.Reconciler
	Sessions    session.Store
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer
	CORSOrigins []string
}

// Server holds request handlers.
type Server struct {
	deps Deps
	log  *zap.Logger
}

// NewServer creates a Server.
func NewServer(deps Deps) *Server {
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	if len(deps.CORSOrigins) == 0 {
		deps.CORSOrigins = []string{"*"}
	}
	return &Server{
		deps: deps,
		log:  zap.L().With(zap.String("component", "api")),
	}
}

// Handler returns the root router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.deps.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", SessionHeader},
		ExposedHeaders: []string{SessionHeader},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", s.Register)
	return r
}

// Register mounts the API routes on r.
func (s *Server) Register(r chi.Router) {
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(s.requestLogger)
	r.Use(withSession)

	r.Get("/locations/search", s.handleTypeahead)
	r.Post("/location_search/search", s.handleBatchSearch)

	r.Get("/states", s.handleGetStates)
	r.Put("/states", s.handleReplaceStates)
	r.Delete("/states", s.handleClearStates)

	r.Post("/addresses/validate", s.handleValidate)
	r.Post("/campaigns/geo_targets", s.handleGeoTargets)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	n, err := s.deps.Index.Count(r.Context())
	if err != nil {
		s.log.Error("api: index health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded", "error": "address index unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "index_rows": n})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
