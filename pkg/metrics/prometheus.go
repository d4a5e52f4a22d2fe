// Package metrics provides Prometheus metrics for the fire-safety games leaderboard.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the leaderboard service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          atomic.Bool
	refreshInterval  time.Duration
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Leaderboard business metrics
	submissions       *prometheus.CounterVec
	submissionsFailed *prometheus.CounterVec
	queries           *prometheus.CounterVec
	submittedScore    prometheus.Histogram
	totalEntries      prometheus.Gauge
	totalGameKeys     prometheus.Gauge
	rateLimited       prometheus.Counter

	// Store metrics
	storeAppendLatency *prometheus.HistogramVec
	storeQueryLatency  *prometheus.HistogramVec
	storeErrors        *prometheus.CounterVec

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error metrics
	errorRateByType     *prometheus.CounterVec
	errorRateByEndpoint *prometheus.CounterVec
	errorLatency        *prometheus.HistogramVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
	customRegistry.MustRegister(collectors.NewBuildInfoCollector())
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "firesafe",
		subsystem:        "leaderboard",
		histogramBuckets: prometheus.DefBuckets,
		refreshInterval:  defaultRefreshInterval,
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}
	m.enabled.Store(true)

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

// Enabled reports whether recording is active.
func (m *Manager) Enabled() bool { return m.enabled.Load() }

// RefreshInterval is how often gauges sourced from polling should be refreshed.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.submissions = m.counterVec("submissions_total",
		"Total number of accepted score submissions", "game_key")
	m.submissionsFailed = m.counterVec("submissions_failed_total",
		"Total number of rejected or failed score submissions", "reason")
	m.queries = m.counterVec("queries_total",
		"Total number of ranked-list queries", "game_key")

	m.submittedScore = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "submitted_score",
		Help:        "Distribution of derived scores at submission time",
		Buckets:     []float64{-1000, 0, 500, 1000, 2000, 3000, 5000, 8000, 13000, 21000},
		ConstLabels: m.constLabels,
	})

	m.totalEntries = m.gauge("entries", "Number of stored leaderboard entries")
	m.totalGameKeys = m.gauge("game_keys", "Number of distinct game keys with at least one entry")

	m.rateLimited = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "rate_limited_total",
		Help:        "Total number of submissions rejected by the rate limiter",
		ConstLabels: m.constLabels,
	})

	m.storeAppendLatency = m.histogramVec("store_append_latency_milliseconds",
		"Store append latency in milliseconds", m.histogramBuckets, "backend")
	m.storeQueryLatency = m.histogramVec("store_query_latency_milliseconds",
		"Store ranked query latency in milliseconds", m.histogramBuckets, "backend")
	m.storeErrors = m.counterVec("store_errors_total",
		"Total number of storage faults", "backend", "operation")

	m.httpRequests = m.counterVec("http_requests_total",
		"Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", m.histogramBuckets, "endpoint", "method", "status_code")

	m.errorRateByType = m.counterVec("errors_by_type_total",
		"Total number of errors by type", "error_type", "severity")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total",
		"Total number of errors by endpoint", "endpoint", "method", "error_type")
	m.errorLatency = m.histogramVec("error_latency_milliseconds",
		"Latency of operations that resulted in errors", m.histogramBuckets, "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_gc_pause_time_milliseconds",
		Help:        "GC pause time in milliseconds",
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		ConstLabels: m.constLabels,
	})
}

// RecordSubmission counts an accepted submission and observes its score.
func RecordSubmission(gameKey string, score int64) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.submissions.WithLabelValues(gameKey).Inc()
	globalManager.submittedScore.Observe(float64(score))
}

// RecordSubmissionFailed counts a rejected or failed submission.
func RecordSubmissionFailed(reason string) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.submissionsFailed.WithLabelValues(reason).Inc()
}

// RecordQuery counts a ranked-list query.
func RecordQuery(gameKey string) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.queries.WithLabelValues(gameKey).Inc()
}

// RecordRateLimited counts a submission turned away by the limiter.
func RecordRateLimited() {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.rateLimited.Inc()
}

// UpdateStoreTotals sets the entry and game key gauges.
func UpdateStoreTotals(entries, gameKeys int) {
	globalManager.totalEntries.Set(float64(entries))
	globalManager.totalGameKeys.Set(float64(gameKeys))
}

// RecordStoreAppendLatency records store append latency in milliseconds.
func RecordStoreAppendLatency(backend string, latencyMs float64) {
	globalManager.storeAppendLatency.WithLabelValues(backend).Observe(latencyMs)
}

// RecordStoreQueryLatency records store query latency in milliseconds.
func RecordStoreQueryLatency(backend string, latencyMs float64) {
	globalManager.storeQueryLatency.WithLabelValues(backend).Observe(latencyMs)
}

// RecordStoreError counts a storage fault for an operation.
func RecordStoreError(backend, operation string) {
	globalManager.storeErrors.WithLabelValues(backend, operation).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// SetEnabled toggles recording of business counters on the global manager.
func SetEnabled(enabled bool) {
	globalManager.enabled.Store(enabled)
}

// Init replaces the global manager with one built from opts on a fresh
// registry. Call it once at startup, before anything records or serves
// GetRegistry.
func Init(opts ...Option) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewBuildInfoCollector())
	globalManager = NewManager(append([]Option{WithPrometheusRegistry(registry)}, opts...)...)
	customRegistry = registry
}

// RefreshInterval is how often polled gauges of the global manager should be refreshed.
func RefreshInterval() time.Duration {
	return globalManager.RefreshInterval()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
