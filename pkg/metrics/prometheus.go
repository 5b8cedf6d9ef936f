// Package metrics provides Prometheus metrics for the penalty reconciliation service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the penalty service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Workflow Metrics - request lifecycle
	requestsSubmitted prometheus.Counter
	requestsRejected  prometheus.Counter
	requestsApproved  prometheus.Counter
	requestsRefused   prometheus.Counter
	requestsStale     prometheus.Counter

	// Reconciliation Metrics - multiplier corrections
	multiplierApplications prometheus.Counter
	multiplierRollbacks    prometheus.Counter
	multiplierSkips        prometheus.Counter

	// Lock Metrics
	locksActive  prometheus.Gauge
	locksCleared prometheus.Counter

	// Penalty Application Metrics
	penaltiesApplied prometheus.Counter
	penaltyErrors    prometheus.Counter

	// External API Metrics
	loungeCallLatency *prometheus.HistogramVec
	loungeCallErrors  *prometheus.CounterVec

	// Dispatch Queue Metrics
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	commandsDispatched prometheus.Counter
	dispatchLatency    prometheus.Histogram

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error Metrics
	errorsByComponent *prometheus.CounterVec

	// System Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "penalty",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	// Initialize metrics
	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	// Ensure metrics are registered on the configured registry (custom by default)
	auto := promauto.With(m.registry)

	m.requestsSubmitted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "requests_submitted_total",
		Help:      "Total number of penalty requests accepted by intake",
	})

	m.requestsRejected = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "requests_rejected_total",
		Help:      "Total number of penalty requests rejected during validation",
	})

	m.requestsApproved = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "requests_approved_total",
		Help:      "Total number of penalty requests approved by staff",
	})

	m.requestsRefused = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "requests_refused_total",
		Help:      "Total number of penalty requests refused",
	})

	m.requestsStale = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "requests_stale_total",
		Help:      "Total number of approve/refuse attempts against already-resolved requests",
	})

	m.multiplierApplications = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "multiplier_applications_total",
		Help:      "Total number of corrective multiplier applications",
	})

	m.multiplierRollbacks = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "multiplier_rollbacks_total",
		Help:      "Total number of multiplier resets after refusals",
	})

	m.multiplierSkips = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "multiplier_skips_total",
		Help:      "Total number of reconciliation runs skipped (covered team or locked table)",
	})

	m.locksActive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "multiplier_locks_active",
		Help:      "Current number of table/leaderboard pairs locked against multiplier edits",
	})

	m.locksCleared = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "multiplier_locks_cleared_total",
		Help:      "Total number of lock entries cleared after table verification",
	})

	m.penaltiesApplied = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "penalties_applied_total",
		Help:      "Total number of penalty applications dispatched downstream",
	})

	m.penaltyErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "penalty_errors_total",
		Help:      "Total number of failed or partially failed penalty applications",
	})

	m.loungeCallLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "lounge_call_latency_milliseconds",
			Help:      "Latency of calls to the external lounge API in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"operation"},
	)

	m.loungeCallErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "lounge_call_errors_total",
			Help:      "Total number of failed calls to the external lounge API",
		},
		[]string{"operation"},
	)

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "command_queue_size",
		Help:      "Current size of the inbound command queue (backlog indicator)",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "command_queue_capacity",
		Help:      "Configured capacity of the inbound command queue",
	})

	m.commandsDispatched = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "commands_dispatched_total",
		Help:      "Total number of approve/refuse commands dispatched to the workflow",
	})

	m.dispatchLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "dispatch_latency_milliseconds",
		Help:      "End-to-end latency of command dispatch in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorsByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_component_total",
			Help:      "Total number of errors by component and type",
		},
		[]string{"component", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "Current heap memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Current number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_milliseconds",
		Help:      "Garbage collection pause time in milliseconds",
		Buckets:   m.histogramBuckets,
	})
}

// Package-level helpers operating on the global manager.

func RecordRequestSubmitted() {
	globalManager.requestsSubmitted.Inc()
}

func RecordRequestRejected() {
	globalManager.requestsRejected.Inc()
}

func RecordRequestApproved() {
	globalManager.requestsApproved.Inc()
}

func RecordRequestRefused() {
	globalManager.requestsRefused.Inc()
}

func RecordRequestStale() {
	globalManager.requestsStale.Inc()
}

func RecordMultiplierApplication() {
	globalManager.multiplierApplications.Inc()
}

func RecordMultiplierRollback() {
	globalManager.multiplierRollbacks.Inc()
}

func RecordMultiplierSkip() {
	globalManager.multiplierSkips.Inc()
}

func UpdateActiveLocks(count int) {
	globalManager.locksActive.Set(float64(count))
}

func RecordLocksCleared(count int) {
	globalManager.locksCleared.Add(float64(count))
}

func RecordPenaltyApplied() {
	globalManager.penaltiesApplied.Inc()
}

func RecordPenaltyError() {
	globalManager.penaltyErrors.Inc()
}

func RecordLoungeCallLatency(operation string, latencyMs float64) {
	globalManager.loungeCallLatency.WithLabelValues(operation).Observe(latencyMs)
}

func RecordLoungeCallError(operation string) {
	globalManager.loungeCallErrors.WithLabelValues(operation).Inc()
}

func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

func RecordCommandDispatched() {
	globalManager.commandsDispatched.Inc()
}

func RecordDispatchLatency(latencyMs float64) {
	globalManager.dispatchLatency.Observe(latencyMs)
}

func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom registry used by the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
