// Package metrics provides Prometheus metrics for the trio league service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the trio service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Scoring
	triangularsScored prometheus.Counter
	scoringLatency    prometheus.Histogram
	scoringErrors     prometheus.Counter

	// Match intake
	matchesRecorded  prometheus.Counter
	matchesDuplicate prometheus.Counter

	// Recalculation
	recalcRuns        prometheus.Counter
	recalcDuration    prometheus.Histogram
	recalcTriangulars prometheus.Gauge
	recalcPlayers     prometheus.Gauge

	// Team balancing
	teamsBalanced prometheus.Counter
	balanceSpread prometheus.Histogram

	// Leaderboard
	leaderboardSize          prometheus.Gauge
	leaderboardUpdates       prometheus.Counter
	leaderboardUpdateLatency prometheus.Histogram
	leaderboardQueryLatency  prometheus.Histogram

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Workers
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// Configure rebuilds the global manager on a fresh registry with opts
// applied. Metrics recorded before the call are dropped. It is meant for
// startup, before any handler or worker records a metric.
func Configure(opts ...Option) {
	registry := prometheus.NewRegistry()
	globalManager = NewManager(append([]Option{WithPrometheusRegistry(registry)}, opts...)...)
	customRegistry = registry
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "trio",
		subsystem:        "league",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
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

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.constLabels,
	})
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.triangularsScored = m.counter("triangulars_scored_total", "Total number of triangulars scored")
	m.scoringLatency = m.histogram("scoring_latency_milliseconds", "Histogram of triangular scoring latency in milliseconds", m.histogramBuckets)
	m.scoringErrors = m.counter("scoring_errors_total", "Total number of malformed triangulars rejected by the scorer")

	m.matchesRecorded = m.counter("matches_recorded_total", "Total number of matches recorded")
	m.matchesDuplicate = m.counter("matches_duplicate_total", "Total number of resubmitted matches acknowledged without recording")

	m.recalcRuns = m.counter("recalculations_total", "Total number of full stats recalculations")
	m.recalcDuration = m.histogram("recalculation_duration_milliseconds", "Duration of full stats recalculations in milliseconds",
		[]float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000})
	m.recalcTriangulars = m.gauge("recalculation_triangulars_processed", "Triangulars processed by the last recalculation")
	m.recalcPlayers = m.gauge("recalculation_players_updated", "Players updated by the last recalculation")

	m.teamsBalanced = m.counter("teams_balanced_total", "Total number of team balancing requests served")
	m.balanceSpread = m.histogram("balance_spread_rating", "Spread between the strongest and weakest balanced team",
		[]float64{0, 1, 2, 5, 10, 20, 50, 100})

	m.leaderboardSize = m.gauge("leaderboard_size", "Number of rated players on the leaderboard")
	m.leaderboardUpdates = m.counter("leaderboard_updates_total", "Total number of leaderboard rating changes")
	m.leaderboardUpdateLatency = m.histogram("leaderboard_update_latency_milliseconds", "Leaderboard update latency in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100})
	m.leaderboardQueryLatency = m.histogram("leaderboard_query_latency_milliseconds", "Leaderboard query latency in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100})

	m.queueSize = m.gauge("queue_size", "Current number of pending recompute jobs")
	m.queueCapacity = m.gauge("queue_capacity", "Recompute queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Recompute queue utilization (0-1)")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Total number of recompute jobs enqueued")
	m.queueDequeued = m.counter("queue_dequeued_total", "Total number of recompute jobs dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Total number of recompute jobs dropped on enqueue")

	m.workerCount = m.gauge("worker_count", "Configured number of recompute workers")
	m.workerActiveCount = m.gauge("worker_active_count", "Workers currently recomputing a player")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Recompute job latency in milliseconds", m.histogramBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Total number of failed recompute jobs")

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests by endpoint and method",
			ConstLabels: m.constLabels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_request_duration_milliseconds",
			Help:        "HTTP request duration in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: m.constLabels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorsByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "errors_by_component_total",
			Help:        "Errors by component and type",
			ConstLabels: m.constLabels,
		},
		[]string{"component", "error_type"},
	)

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

// RecordTriangularScored counts one scored triangular and its latency.
func RecordTriangularScored(latencyMs float64) {
	globalManager.triangularsScored.Inc()
	globalManager.scoringLatency.Observe(latencyMs)
}

// RecordScoringError increments the scoring errors counter.
func RecordScoringError() {
	globalManager.scoringErrors.Inc()
}

// RecordMatchRecorded increments the recorded matches counter.
func RecordMatchRecorded() {
	globalManager.matchesRecorded.Inc()
}

// RecordMatchDuplicate increments the duplicate matches counter.
func RecordMatchDuplicate() {
	globalManager.matchesDuplicate.Inc()
}

// RecordRecalculation records a completed full recalculation.
func RecordRecalculation(durationMs float64, triangulars, players int) {
	globalManager.recalcRuns.Inc()
	globalManager.recalcDuration.Observe(durationMs)
	globalManager.recalcTriangulars.Set(float64(triangulars))
	globalManager.recalcPlayers.Set(float64(players))
}

// RecordTeamsBalanced records one balancing result.
func RecordTeamsBalanced(spread float64) {
	globalManager.teamsBalanced.Inc()
	globalManager.balanceSpread.Observe(spread)
}

// UpdateLeaderboardSize sets the number of rated players.
func UpdateLeaderboardSize(count int) {
	globalManager.leaderboardSize.Set(float64(count))
}

// RecordLeaderboardUpdate increments the leaderboard updates counter.
func RecordLeaderboardUpdate() {
	globalManager.leaderboardUpdates.Inc()
}

// RecordLeaderboardUpdateLatency records leaderboard write latency.
func RecordLeaderboardUpdateLatency(latencyMs float64) {
	globalManager.leaderboardUpdateLatency.Observe(latencyMs)
}

// RecordLeaderboardQueryLatency records leaderboard read latency.
func RecordLeaderboardQueryLatency(latencyMs float64) {
	globalManager.leaderboardQueryLatency.Observe(latencyMs)
}

// Queue Metrics Functions.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError increments the dropped jobs counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// Worker Metrics Functions.

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of busy workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records one job's latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error by component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom registry for metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
