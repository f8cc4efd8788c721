package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsRegistry holds all Prometheus metrics for the ingestion service.
// A nil *MetricsRegistry is valid and records nothing.
type MetricsRegistry struct {
	// HTTP Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight *prometheus.GaugeVec

	// Ingestion Metrics
	FilesProcessedTotal *prometheus.CounterVec
	LinesTotal          *prometheus.CounterVec
	CycleDuration       prometheus.Histogram
	CycleErrorsTotal    prometheus.Counter
	TransportErrors     *prometheus.CounterVec
	ConfigCacheLookups  *prometheus.CounterVec
}

// NewMetricsRegistry registers every metric on reg (prometheus.DefaultRegisterer in production)
func NewMetricsRegistry(reg prometheus.Registerer) *MetricsRegistry {
	factory := promauto.With(reg)

	return &MetricsRegistry{
		// HTTP Metrics
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forecast_ingest_http_requests_total",
				Help: "Total HTTP requests processed by endpoint, method, and status code",
			},
			[]string{"endpoint", "method", "status_code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "forecast_ingest_http_request_duration_seconds",
				Help:    "HTTP request latency distribution in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"endpoint", "method"},
		),
		HTTPRequestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "forecast_ingest_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
			[]string{"endpoint"},
		),

		// Ingestion Metrics
		FilesProcessedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forecast_ingest_files_total",
				Help: "Files handled by the orchestrator by file type and outcome",
			},
			[]string{"file_type", "outcome"},
		),
		LinesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forecast_ingest_lines_total",
				Help: "Delivery lines by ingestion path and result (inserted, updated, skipped, error)",
			},
			[]string{"file_type", "result"},
		),
		CycleDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "forecast_ingest_cycle_duration_seconds",
				Help:    "Orchestrator cycle execution time in seconds",
				Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120, 300, 600},
			},
		),
		CycleErrorsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "forecast_ingest_cycle_errors_total",
				Help: "Orchestrator cycles that failed and triggered the error backoff",
			},
		),
		TransportErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forecast_ingest_transport_errors_total",
				Help: "File transport failures by operation",
			},
			[]string{"op"},
		),
		ConfigCacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forecast_ingest_config_cache_lookups_total",
				Help: "Customer configuration cache lookups by result (hit, miss)",
			},
			[]string{"result"},
		),
	}
}

// ObserveFile counts one file outcome
func (m *MetricsRegistry) ObserveFile(fileType, outcome string) {
	if m == nil {
		return
	}
	m.FilesProcessedTotal.WithLabelValues(fileType, outcome).Inc()
}

// ObserveLines adds line counts for one import
func (m *MetricsRegistry) ObserveLines(fileType string, inserted, updated, skipped, errored int) {
	if m == nil {
		return
	}
	m.LinesTotal.WithLabelValues(fileType, "inserted").Add(float64(inserted))
	m.LinesTotal.WithLabelValues(fileType, "updated").Add(float64(updated))
	m.LinesTotal.WithLabelValues(fileType, "skipped").Add(float64(skipped))
	m.LinesTotal.WithLabelValues(fileType, "error").Add(float64(errored))
}

// ObserveCycle records one orchestrator cycle
func (m *MetricsRegistry) ObserveCycle(seconds float64, failed bool) {
	if m == nil {
		return
	}
	m.CycleDuration.Observe(seconds)
	if failed {
		m.CycleErrorsTotal.Inc()
	}
}

// ObserveTransportError counts a failed transport operation
func (m *MetricsRegistry) ObserveTransportError(op string) {
	if m == nil {
		return
	}
	m.TransportErrors.WithLabelValues(op).Inc()
}

// ObserveConfigCache counts a resolver cache hit or miss
func (m *MetricsRegistry) ObserveConfigCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.ConfigCacheLookups.WithLabelValues(result).Inc()
}
