// Package metrics provides Prometheus metrics for the RankPulse ranking service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the RankPulse service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	metricPrefix     string
	registry         prometheus.Registerer

	// Match pipeline metrics
	matchesApplied      prometheus.Counter
	matchesDuplicate    prometheus.Counter
	matchesRejected     prometheus.Counter
	ratingUpdateLatency prometheus.Histogram

	// Rank recalculation metrics
	recalcTotal     *prometheus.CounterVec
	recalcCoalesced *prometheus.CounterVec
	recalcAborted   *prometheus.CounterVec
	recalcDuration  *prometheus.HistogramVec
	rankedPlayers   *prometheus.GaugeVec

	// Cache metrics
	cacheHits          *prometheus.CounterVec
	cacheMisses        *prometheus.CounterVec
	cacheInvalidations *prometheus.CounterVec
	cacheErrors        prometheus.Counter
	cacheDegraded      prometheus.Gauge

	// Queue metrics
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueUtilization prometheus.Gauge
	queueEnqueues    prometheus.Counter
	queueDequeues    prometheus.Counter
	queueEnqueueErrs prometheus.Counter

	// Worker metrics
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Population metrics
	totalPlayers prometheus.Gauge

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error tracking
	errorsByComponent *prometheus.CounterVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// Configure rebuilds the global manager, typically with the namespace and
// subsystem from service configuration. It swaps in a fresh registry, so
// it must run before any metric is recorded or scraped.
func Configure(opts ...Option) {
	registry := prometheus.NewRegistry()
	customRegistry = registry
	globalManager = NewManager(append(opts, WithPrometheusRegistry(registry))...)
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "rankpulse",
		subsystem:        "ranking",
		histogramBuckets: prometheus.DefBuckets,
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // metric registration is inherently long
	factory := promauto.With(m.registry)

	m.matchesApplied = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "matches_applied_total",
		Help:      "Total number of match results applied to player ratings",
	})
	m.matchesDuplicate = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "matches_duplicate_total",
		Help:      "Total number of match submissions rejected as duplicates",
	})
	m.matchesRejected = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "matches_rejected_total",
		Help:      "Total number of invalid match submissions",
	})
	m.ratingUpdateLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "rating_update_latency_ms",
		Help:      "Latency of transactional rating updates in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.recalcTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "recalculations_total",
		Help:      "Total number of completed rank recalculation passes",
	}, []string{"scope"})
	m.recalcCoalesced = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "recalculations_coalesced_total",
		Help:      "Recalculation triggers coalesced into an in-flight pass",
	}, []string{"scope"})
	m.recalcAborted = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "recalculations_aborted_total",
		Help:      "Recalculation passes aborted before the ranking swap",
	}, []string{"scope"})
	m.recalcDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "recalculation_duration_ms",
		Help:      "Duration of rank recalculation passes in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"scope"})
	m.rankedPlayers = factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "ranked_players",
		Help:      "Number of players in the last computed ranking per scope",
	}, []string{"scope"})

	m.cacheHits = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "cache_hits_total",
		Help:      "Leaderboard cache hits by lookup kind",
	}, []string{"kind"})
	m.cacheMisses = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "cache_misses_total",
		Help:      "Leaderboard cache misses by lookup kind",
	}, []string{"kind"})
	m.cacheInvalidations = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "cache_invalidations_total",
		Help:      "Cache invalidations by reason",
	}, []string{"reason"})
	m.cacheErrors = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "cache_errors_total",
		Help:      "Cache backend errors absorbed by the read-through layer",
	})
	m.cacheDegraded = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "cache_degraded",
		Help:      "1 when the cache backend is unreachable and reads pass through",
	})

	m.queueSize = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "queue_size",
		Help:      "Current number of queued match submissions",
	})
	m.queueCapacity = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "queue_capacity",
		Help:      "Maximum capacity of the match submission queue",
	})
	m.queueUtilization = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "queue_utilization",
		Help:      "Queue utilization ratio (0-1)",
	})
	m.queueEnqueues = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "queue_enqueues_total",
		Help:      "Total number of successful enqueues",
	})
	m.queueDequeues = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "queue_dequeues_total",
		Help:      "Total number of dequeued submissions",
	})
	m.queueEnqueueErrs = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "queue_enqueue_errors_total",
		Help:      "Total number of rejected enqueues (full or closed queue)",
	})

	m.workerActiveCount = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "worker_active_count",
		Help:      "Number of active match workers",
	})
	m.workerProcessingLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "worker_processing_latency_ms",
		Help:      "Worker processing latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})
	m.workerErrors = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "worker_errors_total",
		Help:      "Total number of worker processing errors",
	})

	m.totalPlayers = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "total_players",
		Help:      "Total number of registered players",
	})

	m.httpRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "http_requests_total",
		Help:      "Total number of HTTP requests",
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "http_request_duration_ms",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "errors_total",
		Help:      "Errors by component and type",
	}, []string{"component", "error_type"})

	m.systemMemoryUsage = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "system_memory_bytes",
		Help:      "Current heap allocation in bytes",
	})
	m.systemGoroutineCount = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      m.metricPrefix + "system_goroutines",
		Help:      "Current number of goroutines",
	})
}

// Match pipeline helpers.

// RecordMatchApplied increments the applied match counter.
func RecordMatchApplied() {
	globalManager.matchesApplied.Inc()
}

// RecordMatchDuplicate increments the duplicate match counter.
func RecordMatchDuplicate() {
	globalManager.matchesDuplicate.Inc()
}

// RecordMatchRejected increments the invalid submission counter.
func RecordMatchRejected() {
	globalManager.matchesRejected.Inc()
}

// RecordRatingUpdateLatency records one transactional rating update in ms.
func RecordRatingUpdateLatency(latencyMs float64) {
	globalManager.ratingUpdateLatency.Observe(latencyMs)
}

// Recalculation helpers.

// RecordRecalculation records a completed recalculation pass for a scope.
func RecordRecalculation(scope string, durationMs float64) {
	globalManager.recalcTotal.WithLabelValues(scope).Inc()
	globalManager.recalcDuration.WithLabelValues(scope).Observe(durationMs)
}

// RecordRecalculationCoalesced records a trigger absorbed by an in-flight pass.
func RecordRecalculationCoalesced(scope string) {
	globalManager.recalcCoalesced.WithLabelValues(scope).Inc()
}

// RecordRecalculationAborted records a pass cancelled before the swap.
func RecordRecalculationAborted(scope string) {
	globalManager.recalcAborted.WithLabelValues(scope).Inc()
}

// UpdateRankedPlayers sets the ranked population size for a scope.
func UpdateRankedPlayers(scope string, count int) {
	globalManager.rankedPlayers.WithLabelValues(scope).Set(float64(count))
}

// Cache helpers.

// RecordCacheHit increments the hit counter for a lookup kind (page, rank).
func RecordCacheHit(kind string) {
	globalManager.cacheHits.WithLabelValues(kind).Inc()
}

// RecordCacheMiss increments the miss counter for a lookup kind.
func RecordCacheMiss(kind string) {
	globalManager.cacheMisses.WithLabelValues(kind).Inc()
}

// RecordCacheInvalidation increments the invalidation counter for a reason
// (match, recalculation, admin).
func RecordCacheInvalidation(reason string) {
	globalManager.cacheInvalidations.WithLabelValues(reason).Inc()
}

// RecordCacheError increments the absorbed cache error counter.
func RecordCacheError() {
	globalManager.cacheErrors.Inc()
}

// UpdateCacheDegraded flags whether the cache backend is unreachable.
func UpdateCacheDegraded(degraded bool) {
	if degraded {
		globalManager.cacheDegraded.Set(1)
	} else {
		globalManager.cacheDegraded.Set(0)
	}
}

// Queue helpers.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueues.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeues.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrs.Inc()
}

// Worker helpers.

// UpdateWorkerCount sets the number of active workers.
func UpdateWorkerCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency in ms.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// Population helpers.

// UpdateTotalPlayers sets the total registered player count.
func UpdateTotalPlayers(count int) {
	globalManager.totalPlayers.Set(float64(count))
}

// HTTP helpers.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in ms.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// System helpers.

// UpdateSystemMemoryUsage sets the heap allocation in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
