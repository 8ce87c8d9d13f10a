// Package metrics provides Prometheus metrics for the league standings pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// defaultLatencyBucketsMs covers a single row lookup up to a full season rebuild.
var defaultLatencyBucketsMs = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000} //nolint:gochecknoglobals // read-only defaults

// Manager manages all Prometheus metrics for the pipeline.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Ingest Metrics - race files and rows
	raceFilesProcessed *prometheus.CounterVec
	rowsRejected       *prometheus.CounterVec
	athletesNormalized prometheus.Counter
	guestsRemoved      prometheus.Counter
	correctionsApplied prometheus.Counter
	correctionsSkipped prometheus.Counter

	// Scoring Metrics - teams and standings
	teamsBuilt          *prometheus.CounterVec
	teamsDiscarded      *prometheus.CounterVec
	standingsRecomputed *prometheus.CounterVec
	stageLatency        *prometheus.HistogramVec
	lastRunTimestamp    prometheus.Gauge
	lastRunDurationMs   prometheus.Gauge

	// Repository Metrics
	storeLatency *prometheus.HistogramVec

	// Worker Metrics
	workerTasks  *prometheus.CounterVec
	workerActive prometheus.Gauge

	// Change Queue Metrics - watch mode
	changeQueueSize     prometheus.Gauge
	changeQueueEnqueued prometheus.Counter
	changeQueueDropped  *prometheus.CounterVec

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error Metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec
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
		namespace:        "xcleague",
		subsystem:        "pipeline",
		histogramBuckets: defaultLatencyBucketsMs,
		customLabels:     make(map[string]string),
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

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	// Ensure metrics are registered on the configured registry (custom by default)
	auto := promauto.With(m.registry)

	m.raceFilesProcessed = auto.NewCounterVec(
		m.counterOpts("race_files_processed_total", "Race files processed by outcome"),
		[]string{"status"},
	)
	m.rowsRejected = auto.NewCounterVec(
		m.counterOpts("rows_rejected_total", "Finisher rows rejected as malformed, by reason"),
		[]string{"reason"},
	)
	m.athletesNormalized = auto.NewCounter(m.counterOpts("athletes_normalized_total", "Athletes written to normalized race results"))
	m.guestsRemoved = auto.NewCounter(m.counterOpts("guests_removed_total", "Guest finishers excluded from scoring"))
	m.correctionsApplied = auto.NewCounter(m.counterOpts("corrections_applied_total", "Manual corrections applied to race results"))
	m.correctionsSkipped = auto.NewCounter(m.counterOpts("corrections_skipped_total", "Manual removals whose bib was not found"))

	m.teamsBuilt = auto.NewCounterVec(
		m.counterOpts("teams_built_total", "Scored teams built per team category"),
		[]string{"category"},
	)
	m.teamsDiscarded = auto.NewCounterVec(
		m.counterOpts("teams_discarded_total", "Club chunks below the minimum team size"),
		[]string{"category"},
	)
	m.standingsRecomputed = auto.NewCounterVec(
		m.counterOpts("standings_recomputed_total", "Standings recomputations by kind and outcome"),
		[]string{"kind", "status"},
	)
	m.stageLatency = auto.NewHistogramVec(
		m.histogramOpts("stage_latency_milliseconds", "Pipeline stage duration in milliseconds"),
		[]string{"stage"},
	)
	m.lastRunTimestamp = auto.NewGauge(m.gaugeOpts("last_run_timestamp_seconds", "Unix time the last pipeline run finished"))
	m.lastRunDurationMs = auto.NewGauge(m.gaugeOpts("last_run_duration_milliseconds", "Duration of the last pipeline run"))

	m.storeLatency = auto.NewHistogramVec(
		m.histogramOpts("store_latency_milliseconds", "Repository operation latency in milliseconds"),
		[]string{"op"},
	)

	m.workerTasks = auto.NewCounterVec(
		m.counterOpts("worker_tasks_total", "Worker pool tasks by outcome"),
		[]string{"status"},
	)
	m.workerActive = auto.NewGauge(m.gaugeOpts("worker_active", "Tasks currently running in the worker pool"))

	m.changeQueueSize = auto.NewGauge(m.gaugeOpts("change_queue_size", "Pending file changes in watch mode"))
	m.changeQueueEnqueued = auto.NewCounter(m.counterOpts("change_queue_enqueued_total", "File changes accepted by the change queue"))
	m.changeQueueDropped = auto.NewCounterVec(
		m.counterOpts("change_queue_dropped_total", "File changes dropped by the change queue"),
		[]string{"reason"},
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds"),
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Errors by component and type"),
		[]string{"component", "error_type"},
	)
	m.errorRateByType = auto.NewCounterVec(
		m.counterOpts("errors_by_type_total", "Errors by type and severity"),
		[]string{"error_type", "severity"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "HTTP errors by endpoint"),
		[]string{"endpoint", "method", "error_type"},
	)
	m.errorLatency = auto.NewHistogramVec(
		m.histogramOpts("error_latency_milliseconds", "Latency of failed operations in milliseconds"),
		[]string{"component", "error_type"},
	)
}

// Ingest metric helpers.

func RecordRaceFile(status string)       { globalManager.raceFilesProcessed.WithLabelValues(status).Inc() }
func RecordRowRejected(reason string)    { globalManager.rowsRejected.WithLabelValues(reason).Inc() }
func RecordAthletesNormalized(count int) { globalManager.athletesNormalized.Add(float64(count)) }
func RecordGuestsRemoved(count int)      { globalManager.guestsRemoved.Add(float64(count)) }
func RecordCorrectionsApplied(count int) { globalManager.correctionsApplied.Add(float64(count)) }
func RecordCorrectionsSkipped(count int) { globalManager.correctionsSkipped.Add(float64(count)) }
func RecordTeamsBuilt(category string, count int) {
	globalManager.teamsBuilt.WithLabelValues(category).Add(float64(count))
}
func RecordTeamsDiscarded(category string, count int) {
	globalManager.teamsDiscarded.WithLabelValues(category).Add(float64(count))
}

// Scoring metric helpers.

func RecordStandingsRecomputed(kind, status string) {
	globalManager.standingsRecomputed.WithLabelValues(kind, status).Inc()
}
func RecordStageLatency(stage string, latencyMs float64) {
	globalManager.stageLatency.WithLabelValues(stage).Observe(latencyMs)
}

// RecordRun records the completion time and duration of a pipeline run.
func RecordRun(finishedUnix float64, durationMs float64) {
	globalManager.lastRunTimestamp.Set(finishedUnix)
	globalManager.lastRunDurationMs.Set(durationMs)
}

// Repository metric helpers.

func RecordStoreLatency(op string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(op).Observe(latencyMs)
}

// Worker metric helpers.

func RecordWorkerTask(status string) { globalManager.workerTasks.WithLabelValues(status).Inc() }
func AddWorkerActive(delta int)      { globalManager.workerActive.Add(float64(delta)) }

// Change queue metric helpers.

func UpdateChangeQueueSize(size int) { globalManager.changeQueueSize.Set(float64(size)) }
func RecordChangeEnqueued()          { globalManager.changeQueueEnqueued.Inc() }
func RecordChangeDropped(reason string) {
	globalManager.changeQueueDropped.WithLabelValues(reason).Inc()
}

// HTTP metric helpers.

func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Error metric helpers.

func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// GetRegistry returns the registry holding every pipeline metric.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
