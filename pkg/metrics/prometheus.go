// Package metrics provides Prometheus metrics for the arcade leaderboard service.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultNamespace       = "arcade"
	subsystem              = "leaderboard"
	defaultRefreshInterval = 10 * time.Second
)

// Leaderboard kinds used as label values.
const (
	KindGame      = "game"
	KindPerGame   = "per_game"
	KindTotal     = "total"
	KindGameCodes = "game_codes"
)

// Manager manages all Prometheus metrics for the leaderboard service.
type Manager struct {
	namespace       string
	enabled         bool
	refreshInterval time.Duration
	constLabels     map[string]string
	registry        prometheus.Registerer

	// Leaderboard query metrics
	leaderboardQueries      *prometheus.CounterVec
	leaderboardQueryLatency *prometheus.HistogramVec
	leaderboardRows         *prometheus.HistogramVec
	leaderboardErrors       *prometheus.CounterVec
	droppedRows             *prometheus.CounterVec

	// Store metrics
	storeCalls        *prometheus.CounterVec
	storeErrors       *prometheus.CounterVec
	storeCallLatency  *prometheus.HistogramVec
	distinctGameCodes prometheus.Gauge
	totalUsers        prometheus.Gauge

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager and the registry it is registered on.
var (
	globalManager  atomic.Pointer[Manager]             //nolint:gochecknoglobals // singleton metrics manager
	customRegistry atomic.Pointer[prometheus.Registry] //nolint:gochecknoglobals // registry served on /metrics
)

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	Configure()
}

// Configure replaces the global manager with one built from opts on a fresh
// registry. Call it at startup, before handlers capture GetRegistry.
func Configure(opts ...Option) {
	registry := prometheus.NewRegistry()
	m := NewManager(append(opts, WithPrometheusRegistry(registry))...)
	customRegistry.Store(registry)
	globalManager.Store(m)
}

func current() *Manager {
	return globalManager.Load()
}

// Enabled reports whether the global manager records metrics.
func Enabled() bool {
	return current().Enabled()
}

// RefreshInterval returns the global gauge refresh interval.
func RefreshInterval() time.Duration {
	return current().RefreshInterval()
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:       defaultNamespace,
		enabled:         true,
		refreshInterval: defaultRefreshInterval,
		registry:        prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// RefreshInterval returns how often gauges should be refreshed by callers.
func (m *Manager) RefreshInterval() time.Duration {
	return m.refreshInterval
}

// Enabled reports whether recording is switched on.
func (m *Manager) Enabled() bool {
	return m.enabled
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for all metric definitions
	auto := promauto.With(m.registry)
	constLabels := prometheus.Labels(m.constLabels)

	m.leaderboardQueries = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   subsystem,
		Name:        "queries_total",
		Help:        "Total number of leaderboard queries by kind",
		ConstLabels: constLabels,
	}, []string{"kind"})

	m.leaderboardQueryLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   subsystem,
		Name:        "query_latency_milliseconds",
		Help:        "Leaderboard query latency in milliseconds by kind",
		Buckets:     prometheus.DefBuckets,
		ConstLabels: constLabels,
	}, []string{"kind"})

	m.leaderboardRows = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   subsystem,
		Name:        "rows_returned",
		Help:        "Number of rows returned per leaderboard query",
		Buckets:     []float64{0, 1, 5, 10, 20, 50, 100},
		ConstLabels: constLabels,
	}, []string{"kind"})

	m.leaderboardErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   subsystem,
		Name:        "query_errors_total",
		Help:        "Leaderboard queries that failed because of the store",
		ConstLabels: constLabels,
	}, []string{"kind"})

	m.droppedRows = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   subsystem,
		Name:        "dropped_rows_total",
		Help:        "Rows skipped because the referenced user profile does not resolve",
		ConstLabels: constLabels,
	}, []string{"kind"})

	m.storeCalls = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   subsystem,
		Name:        "store_calls_total",
		Help:        "Score and profile store calls by backend and operation",
		ConstLabels: constLabels,
	}, []string{"backend", "op"})

	m.storeErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   subsystem,
		Name:        "store_errors_total",
		Help:        "Failed store calls by backend and operation",
		ConstLabels: constLabels,
	}, []string{"backend", "op"})

	m.storeCallLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   subsystem,
		Name:        "store_call_latency_milliseconds",
		Help:        "Store call latency in milliseconds",
		Buckets:     prometheus.DefBuckets,
		ConstLabels: constLabels,
	}, []string{"backend", "op"})

	m.distinctGameCodes = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   subsystem,
		Name:        "games",
		Help:        "Number of distinct game codes with at least one record",
		ConstLabels: constLabels,
	})

	m.totalUsers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   subsystem,
		Name:        "users",
		Help:        "Number of user profiles seen by the last total-score query",
		ConstLabels: constLabels,
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   subsystem,
		Name:        "http_requests_total",
		Help:        "Total number of HTTP requests by endpoint and method",
		ConstLabels: constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     prometheus.DefBuckets,
		ConstLabels: constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   subsystem,
		Name:        "errors_by_endpoint_total",
		Help:        "HTTP errors by endpoint, method and error type",
		ConstLabels: constLabels,
	}, []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        "memory_usage_bytes",
		Help:        "Current memory usage in bytes",
		ConstLabels: constLabels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        "goroutines",
		Help:        "Current number of goroutines",
		ConstLabels: constLabels,
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        "gc_pause_milliseconds",
		Help:        "Average GC pause time in milliseconds",
		Buckets:     prometheus.DefBuckets,
		ConstLabels: constLabels,
	})
}

// Leaderboard Metrics Functions.

// RecordLeaderboardQuery records a served query with its latency and size.
func RecordLeaderboardQuery(kind string, latencyMs float64, rows int) {
	m := current()
	if !m.enabled {
		return
	}
	m.leaderboardQueries.WithLabelValues(kind).Inc()
	m.leaderboardQueryLatency.WithLabelValues(kind).Observe(latencyMs)
	m.leaderboardRows.WithLabelValues(kind).Observe(float64(rows))
}

// RecordLeaderboardError increments the failed query counter.
func RecordLeaderboardError(kind string) {
	m := current()
	if !m.enabled {
		return
	}
	m.leaderboardErrors.WithLabelValues(kind).Inc()
}

// RecordDroppedRow counts a row skipped for a dangling user reference.
func RecordDroppedRow(kind string) {
	m := current()
	if !m.enabled {
		return
	}
	m.droppedRows.WithLabelValues(kind).Inc()
}

// Store Metrics Functions.

// RecordStoreCall records a store call and, when err is non-nil, its failure.
func RecordStoreCall(backend, op string, latencyMs float64, err error) {
	m := current()
	if !m.enabled {
		return
	}
	m.storeCalls.WithLabelValues(backend, op).Inc()
	m.storeCallLatency.WithLabelValues(backend, op).Observe(latencyMs)
	if err != nil {
		m.storeErrors.WithLabelValues(backend, op).Inc()
	}
}

// UpdateDistinctGameCodes sets the number of games with leaderboards.
func UpdateDistinctGameCodes(count int) {
	if m := current(); m.enabled {
		m.distinctGameCodes.Set(float64(count))
	}
}

// UpdateTotalUsers sets the number of profiles seen by the last totals query.
func UpdateTotalUsers(count int) {
	if m := current(); m.enabled {
		m.totalUsers.Set(float64(count))
	}
}

// HTTP Metrics Functions.

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if m := current(); m.enabled {
		m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if m := current(); m.enabled {
		m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
	}
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if m := current(); m.enabled {
		m.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
	}
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	if m := current(); m.enabled {
		m.systemMemoryUsage.Set(float64(bytes))
	}
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	if m := current(); m.enabled {
		m.systemGoroutineCount.Set(float64(count))
	}
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	if m := current(); m.enabled {
		m.systemGCPauseTime.Observe(pauseMs)
	}
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry.Load()
}
