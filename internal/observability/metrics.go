// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Analysis metrics
	AnalysesTotal    *prometheus.CounterVec
	AnalysisDuration prometheus.Histogram
	EventsAnalyzed   prometheus.Counter
	RecordsDropped   *prometheus.CounterVec

	// Detector metrics
	DetectorRunsTotal *prometheus.CounterVec
	DetectorDuration  *prometheus.HistogramVec
	FindingsEmitted   *prometheus.CounterVec

	// Ingestion metrics
	EventsStored *prometheus.CounterVec

	// Delivery metrics
	ReportsPublished *prometheus.CounterVec
	StreamClients    prometheus.Gauge

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulAnalysis prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "chain_fraud_lab"
	}

	return &Metrics{
		// Analysis metrics
		AnalysesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "runs_total",
			Help:      "Total number of analyses by status",
		}, []string{"status"}),
		AnalysisDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "duration_seconds",
			Help:      "Analysis duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		EventsAnalyzed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "events_total",
			Help:      "Total number of normalized events analyzed",
		}),
		RecordsDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "records_dropped_total",
			Help:      "Total number of raw records dropped by the normalizer",
		}, []string{"kind"}),

		// Detector metrics
		DetectorRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detector",
			Name:      "runs_total",
			Help:      "Total number of detector runs by status",
		}, []string{"detector", "status"}),
		DetectorDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "detector",
			Name:      "duration_seconds",
			Help:      "Detector run duration in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"detector"}),
		FindingsEmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detector",
			Name:      "findings_total",
			Help:      "Total number of aggregated findings by detector and severity",
		}, []string{"detector", "severity"}),

		// Ingestion metrics
		EventsStored: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "events_stored_total",
			Help:      "Total number of events stored by backend",
		}, []string{"store"}),

		// Delivery metrics
		ReportsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "delivery",
			Name:      "reports_published_total",
			Help:      "Total number of reports delivered by sink and status",
		}, []string{"sink", "status"}),
		StreamClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "delivery",
			Name:      "stream_clients",
			Help:      "Current number of connected report stream clients",
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulAnalysis: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_analysis_timestamp",
			Help:      "Unix timestamp of last successful analysis",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordAnalysis records a finished analysis.
func RecordAnalysis(status string, durationSeconds float64, events int) {
	DefaultMetrics.AnalysesTotal.WithLabelValues(status).Inc()
	DefaultMetrics.AnalysisDuration.Observe(durationSeconds)
	DefaultMetrics.EventsAnalyzed.Add(float64(events))
}

// RecordDropped records a record dropped by the normalizer.
func RecordDropped(kind string) {
	if kind == "" {
		kind = "unknown"
	}
	DefaultMetrics.RecordsDropped.WithLabelValues(kind).Inc()
}

// RecordDetectorRun records one detector execution.
func RecordDetectorRun(detector, status string, seconds float64) {
	DefaultMetrics.DetectorRunsTotal.WithLabelValues(detector, status).Inc()
	DefaultMetrics.DetectorDuration.WithLabelValues(detector).Observe(seconds)
}

// RecordFinding records one aggregated finding.
func RecordFinding(detector, severity string) {
	DefaultMetrics.FindingsEmitted.WithLabelValues(detector, severity).Inc()
}

// RecordEventsStored records events written to a store.
func RecordEventsStored(store string, n int) {
	DefaultMetrics.EventsStored.WithLabelValues(store).Add(float64(n))
}

// RecordReportPublished records a report delivery attempt.
func RecordReportPublished(sink string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	DefaultMetrics.ReportsPublished.WithLabelValues(sink, status).Inc()
}

// SetStreamClients updates the connected stream clients gauge.
func SetStreamClients(n int) {
	DefaultMetrics.StreamClients.Set(float64(n))
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// MarkAnalysisSuccess sets the last successful analysis timestamp.
func MarkAnalysisSuccess(unixSeconds int64) {
	DefaultMetrics.LastSuccessfulAnalysis.Set(float64(unixSeconds))
}
