package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestSize     *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Click metrics
	ClicksTotal            *prometheus.CounterVec
	ClickInsertsTotal      *prometheus.CounterVec
	NavigationHoldDuration prometheus.Histogram

	// GA forwarding metrics
	GAReportsTotal *prometheus.CounterVec
	GAQueueDepth   prometheus.Gauge

	// Market data metrics
	MarketFetchesTotal  *prometheus.CounterVec
	MarketFetchDuration *prometheus.HistogramVec

	// Cache metrics
	CacheHitsTotal      *prometheus.CounterVec
	CacheMissesTotal    *prometheus.CounterVec
	CacheEvictionsTotal *prometheus.CounterVec

	// Rollup metrics
	RollupRunsTotal *prometheus.CounterVec
	RollupDuration  *prometheus.HistogramVec

	// Database metrics
	DBConnectionsActive       prometheus.Gauge
	DBConnectionsIdle         prometheus.Gauge
	DBConnectionsWaitCount    prometheus.Gauge
	DBConnectionsWaitDuration prometheus.Gauge

	// Redis metrics
	RedisConnectionsActive prometheus.Gauge
	RedisCommandsTotal     *prometheus.CounterVec
	RedisCommandDuration   *prometheus.HistogramVec

	// Business metrics
	PartnersTracked     prometheus.Gauge
	PostsPublishedTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		// HTTP metrics
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinrader_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coinrader_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPRequestSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coinrader_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "path"},
		),
		HTTPResponseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coinrader_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "path"},
		),

		// Click metrics
		ClicksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinrader_clicks_total",
				Help: "Total number of classified clicks received",
			},
			[]string{"category"},
		),
		ClickInsertsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinrader_click_inserts_total",
				Help: "Total number of click event insert attempts",
			},
			[]string{"status"},
		),
		NavigationHoldDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "coinrader_navigation_hold_duration_seconds",
				Help:    "Time collect responses were held waiting for analytics confirmation",
				Buckets: []float64{.01, .025, .05, .1, .25, .5, .85, 1, 2},
			},
		),

		// GA forwarding metrics
		GAReportsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinrader_ga_reports_total",
				Help: "Total number of GA measurement protocol reports",
			},
			[]string{"mode", "status"},
		),
		GAQueueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "coinrader_ga_queue_depth",
				Help: "Number of GA reports waiting in the send queue",
			},
		),

		// Market data metrics
		MarketFetchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinrader_market_fetches_total",
				Help: "Total number of market data API fetches",
			},
			[]string{"endpoint", "status"},
		),
		MarketFetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coinrader_market_fetch_duration_seconds",
				Help:    "Market data API fetch duration in seconds",
				Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"endpoint"},
		),

		// Cache metrics
		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinrader_cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"cache_type"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinrader_cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"cache_type"},
		),
		CacheEvictionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinrader_cache_evictions_total",
				Help: "Total number of cache evictions",
			},
			[]string{"cache_type"},
		),

		// Rollup metrics
		RollupRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinrader_rollup_runs_total",
				Help: "Total number of stats rollup runs",
			},
			[]string{"job", "status"},
		),
		RollupDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coinrader_rollup_duration_seconds",
				Help:    "Stats rollup run duration in seconds",
				Buckets: []float64{.1, .5, 1, 5, 10, 30, 60, 120},
			},
			[]string{"job"},
		),

		// Database metrics
		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "coinrader_db_connections_active",
				Help: "Number of active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "coinrader_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),
		DBConnectionsWaitCount: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "coinrader_db_connections_wait_count",
				Help: "Total number of connections waited for",
			},
		),
		DBConnectionsWaitDuration: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "coinrader_db_connections_wait_duration_seconds",
				Help: "Total time spent waiting for connections",
			},
		),

		// Redis metrics
		RedisConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "coinrader_redis_connections_active",
				Help: "Number of active Redis connections",
			},
		),
		RedisCommandsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinrader_redis_commands_total",
				Help: "Total number of Redis commands",
			},
			[]string{"command", "status"},
		),
		RedisCommandDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coinrader_redis_command_duration_seconds",
				Help:    "Redis command duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"command"},
		),

		// Business metrics
		PartnersTracked: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "coinrader_partners_tracked",
				Help: "Number of affiliate partners with click activity",
			},
		),
		PostsPublishedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinrader_posts_published_total",
				Help: "Total number of published market posts",
			},
			[]string{"kind", "status"},
		),
	}

	// Register all metrics
	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestSize,
		m.HTTPResponseSize,
		m.ClicksTotal,
		m.ClickInsertsTotal,
		m.NavigationHoldDuration,
		m.GAReportsTotal,
		m.GAQueueDepth,
		m.MarketFetchesTotal,
		m.MarketFetchDuration,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CacheEvictionsTotal,
		m.RollupRunsTotal,
		m.RollupDuration,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
		m.DBConnectionsWaitCount,
		m.DBConnectionsWaitDuration,
		m.RedisConnectionsActive,
		m.RedisCommandsTotal,
		m.RedisCommandDuration,
		m.PartnersTracked,
		m.PostsPublishedTotal,
	)

	return m
}

// responseWriter wraps http.ResponseWriter to capture status code and size
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Wrap response writer to capture status and size
			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			// Record request size
			if r.ContentLength > 0 {
				metrics.HTTPRequestSize.WithLabelValues(r.Method, r.URL.Path).Observe(float64(r.ContentLength))
			}

			// Serve the request
			next.ServeHTTP(rw, r)

			// Record metrics
			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
			metrics.HTTPResponseSize.WithLabelValues(r.Method, r.URL.Path).Observe(float64(rw.bytesWritten))
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
