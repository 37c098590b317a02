// Package metrics provides Prometheus metrics for the rally engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the engine.
type Manager struct {
	namespace         string
	subsystem         string
	latencyBuckets    []float64
	adjustmentBuckets []float64
	registry          prometheus.Registerer

	// Planning
	plansBuilt          prometheus.Counter
	planLatency         prometheus.Histogram
	optimizerIterations prometheus.Histogram
	optimizerExhausted  prometheus.Counter
	matchupQuality      prometheus.Histogram
	repeatedRounds      prometheus.Counter

	// Ratings
	gamesRecorded       prometheus.Counter
	gamesDuplicate      prometheus.Counter
	ratingFallbacks     *prometheus.CounterVec
	adjustmentMagnitude prometheus.Histogram
	modelTrainings      prometheus.Counter
	modelTrainingLoss   prometheus.Gauge
	participants        prometheus.Gauge

	// Registry
	registryUpdateLatency prometheus.Histogram
	registryQueryLatency  prometheus.Histogram

	// Queue and worker
	queueSize               prometheus.Gauge
	queueCapacity           prometheus.Gauge
	queueUtilization        prometheus.Gauge
	queueEnqueue            prometheus.Counter
	queueDequeue            prometheus.Counter
	queueEnqueueErrors      prometheus.Counter
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithRegisterer(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:         "rally",
		subsystem:         "engine",
		latencyBuckets:    prometheus.DefBuckets,
		adjustmentBuckets: []float64{0.5, 1, 2, 5, 10, 15, 20, 30, 50},
		registry:          prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets,
	})
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.plansBuilt = m.counter("plans_total", "Total number of team plans built")
	m.planLatency = m.histogram("plan_latency_milliseconds", "Team plan latency in milliseconds", m.latencyBuckets)
	m.optimizerIterations = m.histogram("optimizer_iterations", "Constructions plus refinement steps per plan",
		prometheus.ExponentialBuckets(10, 4, 8))
	m.optimizerExhausted = m.counter("optimizer_exhausted_total", "Plans whose refinement budget ran out")
	m.matchupQuality = m.histogram("matchup_quality", "Predicted quality of scheduled matchups",
		prometheus.LinearBuckets(0, 10, 11))
	m.repeatedRounds = m.counter("repeated_rounds_total", "Scheduled rounds that reuse earlier pairings")

	m.gamesRecorded = m.counter("games_recorded_total", "Total number of games applied to ratings")
	m.gamesDuplicate = m.counter("games_duplicate_total", "Total number of duplicate game submissions")
	m.ratingFallbacks = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rating_fallbacks_total",
		Help:      "Learned rating updates that fell back to the statistical strategy",
	}, []string{"reason"})
	m.adjustmentMagnitude = m.histogram("rating_adjustment_magnitude", "Absolute rating change per participant and game",
		m.adjustmentBuckets)
	m.modelTrainings = m.counter("model_trainings_total", "Completed learned model trainings")
	m.modelTrainingLoss = m.gauge("model_training_loss", "Mean squared error of the last trained model")
	m.participants = m.gauge("participants", "Registered participants")

	m.registryUpdateLatency = m.histogram("registry_update_latency_milliseconds",
		"Registry update latency in milliseconds", m.latencyBuckets)
	m.registryQueryLatency = m.histogram("registry_query_latency_milliseconds",
		"Registry query latency in milliseconds", m.latencyBuckets)

	m.queueSize = m.gauge("queue_size", "Current size of the game queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue utilization ratio (current size / capacity)")
	m.queueEnqueue = m.counter("queue_enqueue_total", "Total number of games enqueued")
	m.queueDequeue = m.counter("queue_dequeue_total", "Total number of games dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Total number of rejected enqueues")
	m.workerCount = m.gauge("worker_count", "Current number of rating workers")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds",
		"Rating worker processing latency in milliseconds", m.latencyBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Total number of rating worker errors")

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.latencyBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_by_component_total",
		Help:      "Total number of errors by component",
	}, []string{"component", "error_type"})
}

// RecordPlan records one finished team plan.
func RecordPlan(latencyMs float64, iterations int, exhausted bool) {
	globalManager.plansBuilt.Inc()
	globalManager.planLatency.Observe(latencyMs)
	globalManager.optimizerIterations.Observe(float64(iterations))
	if exhausted {
		globalManager.optimizerExhausted.Inc()
	}
}

// RecordMatchupQuality observes one scheduled matchup.
func RecordMatchupQuality(q float64) {
	globalManager.matchupQuality.Observe(q)
}

// RecordRepeatedRounds adds rounds that reuse pairings.
func RecordRepeatedRounds(n int) {
	globalManager.repeatedRounds.Add(float64(n))
}

// RecordGameRecorded increments the applied games counter.
func RecordGameRecorded() {
	globalManager.gamesRecorded.Inc()
}

// RecordGameDuplicate increments the duplicate games counter.
func RecordGameDuplicate() {
	globalManager.gamesDuplicate.Inc()
}

// RecordRatingFallback counts a learned update replaced by the statistical one.
func RecordRatingFallback(reason string) {
	globalManager.ratingFallbacks.WithLabelValues(reason).Inc()
}

// RecordAdjustment observes the magnitude of a rating change.
func RecordAdjustment(magnitude float64) {
	globalManager.adjustmentMagnitude.Observe(magnitude)
}

// RecordModelTraining records a completed training run.
func RecordModelTraining(loss float64) {
	globalManager.modelTrainings.Inc()
	globalManager.modelTrainingLoss.Set(loss)
}

// UpdateParticipants sets the registered participant count.
func UpdateParticipants(count int) {
	globalManager.participants.Set(float64(count))
}

// RecordRegistryUpdateLatency records registry write latency.
func RecordRegistryUpdateLatency(latencyMs float64) {
	globalManager.registryUpdateLatency.Observe(latencyMs)
}

// RecordRegistryQueryLatency records registry read latency.
func RecordRegistryQueryLatency(latencyMs float64) {
	globalManager.registryQueryLatency.Observe(latencyMs)
}

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
	globalManager.queueEnqueue.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeue.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
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

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
