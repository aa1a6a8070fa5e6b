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

	// Permission metrics
	PermissionChecksTotal    *prometheus.CounterVec
	PermissionCheckDuration  *prometheus.HistogramVec
	GrantOperationsTotal     *prometheus.CounterVec

	// AI routing metrics
	RouteResolutionsTotal    *prometheus.CounterVec
	RouteResolutionDuration  *prometheus.HistogramVec
	RouteResolutionFailures  *prometheus.CounterVec

	// Provider call metrics
	ProviderCallsTotal       *prometheus.CounterVec
	ProviderCallDuration     *prometheus.HistogramVec
	ProviderTokensTotal      *prometheus.CounterVec

	// Cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

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
	ActiveGrantsTotal   prometheus.Gauge
	EnabledRoutesTotal  prometheus.Gauge
	EnabledModelsTotal  prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		// HTTP metrics
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mindgrove_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mindgrove_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPRequestSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mindgrove_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "path"},
		),
		HTTPResponseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mindgrove_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "path"},
		),

		// Permission metrics
		PermissionChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mindgrove_permission_checks_total",
				Help: "Total number of permission checks",
			},
			[]string{"entity_type", "access", "result"},
		),
		PermissionCheckDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mindgrove_permission_check_duration_seconds",
				Help:    "Permission check duration in seconds",
				Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25},
			},
			[]string{"entity_type"},
		),
		GrantOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mindgrove_grant_operations_total",
				Help: "Total number of grant mutations",
			},
			[]string{"entity_type", "operation", "status"},
		),

		// AI routing metrics
		RouteResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mindgrove_route_resolutions_total",
				Help: "Total number of AI route resolutions",
			},
			[]string{"feature_key", "provider", "cache"},
		),
		RouteResolutionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mindgrove_route_resolution_duration_seconds",
				Help:    "AI route resolution duration in seconds",
				Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25},
			},
			[]string{"feature_key"},
		),
		RouteResolutionFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mindgrove_route_resolution_failures_total",
				Help: "Total number of resolutions that found no usable route",
			},
			[]string{"feature_key"},
		),

		// Provider call metrics
		ProviderCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mindgrove_provider_calls_total",
				Help: "Total number of upstream AI provider calls",
			},
			[]string{"provider", "model", "status"},
		),
		ProviderCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mindgrove_provider_call_duration_seconds",
				Help:    "Upstream AI provider call duration in seconds",
				Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"provider", "model"},
		),
		ProviderTokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mindgrove_provider_tokens_total",
				Help: "Total tokens consumed by provider calls",
			},
			[]string{"provider", "model", "direction"},
		),

		// Cache metrics
		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mindgrove_cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"cache_type"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mindgrove_cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"cache_type"},
		),

		// Database metrics
		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "mindgrove_db_connections_active",
				Help: "Number of active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "mindgrove_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),
		DBConnectionsWaitCount: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "mindgrove_db_connections_wait_count",
				Help: "Total number of connections waited for",
			},
		),
		DBConnectionsWaitDuration: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "mindgrove_db_connections_wait_duration_seconds",
				Help: "Total time spent waiting for connections",
			},
		),

		// Redis metrics
		RedisConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "mindgrove_redis_connections_active",
				Help: "Number of active Redis connections",
			},
		),
		RedisCommandsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mindgrove_redis_commands_total",
				Help: "Total number of Redis commands",
			},
			[]string{"command", "status"},
		),
		RedisCommandDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mindgrove_redis_command_duration_seconds",
				Help:    "Redis command duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"command"},
		),

		// Business metrics
		ActiveGrantsTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "mindgrove_active_grants_total",
				Help: "Total number of active permission grants",
			},
		),
		EnabledRoutesTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "mindgrove_enabled_routes_total",
				Help: "Total number of enabled AI feature routes",
			},
		),
		EnabledModelsTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "mindgrove_enabled_models_total",
				Help: "Total number of enabled provider models",
			},
		),
	}

	// Register all metrics
	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestSize,
		m.HTTPResponseSize,
		m.PermissionChecksTotal,
		m.PermissionCheckDuration,
		m.GrantOperationsTotal,
		m.RouteResolutionsTotal,
		m.RouteResolutionDuration,
		m.RouteResolutionFailures,
		m.ProviderCallsTotal,
		m.ProviderCallDuration,
		m.ProviderTokensTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
		m.DBConnectionsWaitCount,
		m.DBConnectionsWaitDuration,
		m.RedisConnectionsActive,
		m.RedisCommandsTotal,
		m.RedisCommandDuration,
		m.ActiveGrantsTotal,
		m.EnabledRoutesTotal,
		m.EnabledModelsTotal,
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
