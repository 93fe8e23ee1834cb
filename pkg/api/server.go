package api

import (
	"net/http"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"

	"github.com/shoshosho1210/coinrader/pkg/analytics"
	"github.com/shoshosho1210/coinrader/pkg/enrich"
	"github.com/shoshosho1210/coinrader/pkg/httputil"
	"github.com/shoshosho1210/coinrader/pkg/middleware"
	"github.com/shoshosho1210/coinrader/pkg/observability"
	"github.com/shoshosho1210/coinrader/pkg/track"
)

// Config holds the API surface settings.
type Config struct {
	// StatsToken protects the analytics endpoints; empty leaves them
	// unregistered.
	StatsToken string

	// CORSOrigins are the origins allowed to post clicks.
	CORSOrigins []string

	// MaxBodyBytes caps the collect payload size.
	MaxBodyBytes int64

	// RateLimit configures the per-IP limiter on the collect route. Nil
	// disables rate limiting.
	RateLimit *middleware.RateLimitConfig

	// DistributedRateLimit switches the limiter to shared Redis counters
	// so the limit holds across collector replicas.
	DistributedRateLimit bool
}

// Deps are the collaborators the server dispatches into. Tracker,
// Enricher, Stats, and Redis may be nil; the corresponding surface
// degrades (no persistence, neutral enrichment, no stats routes,
// in-process rate limiting).
type Deps struct {
	Classifier  *track.Classifier
	Tracker     *analytics.EventTracker
	Enricher    *enrich.Enricher
	Stats       *analytics.Service
	Logger      *observability.Logger
	Metrics     *observability.Metrics
	OTelMetrics *observability.OTelMetrics
	Redis       *redis.Client
}

// Server is the collector's HTTP surface.
type Server struct {
	router  *mux.Router
	handler http.Handler

	classifier  *track.Classifier
	tracker     *analytics.EventTracker
	enricher    *enrich.Enricher
	stats       *analytics.Service
	logger      *observability.Logger
	metrics     *observability.Metrics
	otelMetrics *observability.OTelMetrics

	config Config
}

// NewServer creates the API server with all routes and middleware wired.
func NewServer(deps Deps, config Config) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}

	s := &Server{
		router:      mux.NewRouter(),
		classifier:  deps.Classifier,
		tracker:     deps.Tracker,
		enricher:    deps.Enricher,
		stats:       deps.Stats,
		logger:      logger.WithField("component", "api"),
		metrics:     deps.Metrics,
		otelMetrics: deps.OTelMetrics,
		config:      config,
	}

	s.setupRoutes(deps.Redis)

	// Outermost first: recovery wraps everything, then logging and
	// metrics see every request, then CORS answers preflights before the
	// content-type and size gates run.
	chain := []func(http.Handler) http.Handler{
		httputil.RecoveryMiddleware,
		observability.RequestLoggingMiddleware(logger),
	}
	if s.metrics != nil {
		chain = append(chain, observability.HTTPMetricsMiddleware(s.metrics))
	}
	chain = append(chain,
		httputil.CORSMiddleware(config.CORSOrigins),
		httputil.ContentTypeMiddleware,
	)
	if config.MaxBodyBytes > 0 {
		chain = append(chain, httputil.MaxBytesMiddleware(config.MaxBodyBytes))
	}
	s.handler = httputil.Chain(chain...)(s.router)

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Router exposes the bare router for route tests.
func (s *Server) Router() *mux.Router {
	return s.router
}

// setupRoutes configures the collect and analytics routes.
func (s *Server) setupRoutes(redisClient *redis.Client) {
	collect := http.Handler(http.HandlerFunc(s.collectClick))
	if s.config.RateLimit != nil {
		if s.config.DistributedRateLimit && redisClient != nil {
			collect = middleware.NewDistributedRateLimitMiddleware(redisClient, s.config.RateLimit).Handler(collect)
		} else {
			collect = middleware.NewRateLimitMiddleware(s.config.RateLimit).Handler(collect)
		}
	}
	s.router.Handle("/t/click", collect).Methods(http.MethodPost, http.MethodOptions)

	if s.config.StatsToken != "" && s.stats != nil {
		statsRouter := s.router.PathPrefix("/api/v1/analytics").Subrouter()
		statsRouter.Use(middleware.NewStatsAuthMiddleware(s.config.StatsToken).Handler)
		NewStatsHandlers(s.stats).RegisterRoutes(statsRouter)
	}
}
