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
	// Scan metrics
	IssuersScanned        prometheus.Counter
	DumpEventsDetected    *prometheus.CounterVec
	RotationEventsScored  prometheus.Counter
	RotationEventsGated   prometheus.Counter
	RotationEventsStored  prometheus.Counter
	ScanErrors            *prometheus.CounterVec

	// Context cache metrics
	ContextCacheEntries prometheus.Gauge
	ContextBuilds       prometheus.Counter

	// Event study metrics
	StudiesRun    prometheus.Counter
	StudiesStored prometheus.Counter

	// Latency metrics
	ScanDuration  *prometheus.HistogramVec
	StudyDuration prometheus.Histogram

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulScan prometheus.Gauge
	ReportsGenerated   prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "rotation_lab"
	}

	return &Metrics{
		// Scan metrics
		IssuersScanned: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "issuers_scanned_total",
			Help:      "Total number of issuer-quarter scans performed",
		}),
		DumpEventsDetected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "dump_events_detected_total",
			Help:      "Total number of dump events detected by source",
		}, []string{"source"}),
		RotationEventsScored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "rotation_events_scored_total",
			Help:      "Total number of rotation events scored",
		}),
		RotationEventsGated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "rotation_events_gated_total",
			Help:      "Total number of rotation events passing the gate",
		}),
		RotationEventsStored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "rotation_events_stored_total",
			Help:      "Total number of rotation events stored to database",
		}),
		ScanErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "errors_total",
			Help:      "Total number of scan errors by stage",
		}, []string{"stage"}),

		// Context cache metrics
		ContextCacheEntries: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "context_cache_entries",
			Help:      "Current number of memoized dump contexts",
		}),
		ContextBuilds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "context_builds_total",
			Help:      "Total number of dump context builds",
		}),

		// Event study metrics
		StudiesRun: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "study",
			Name:      "runs_total",
			Help:      "Total number of event studies run",
		}),
		StudiesStored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "study",
			Name:      "stored_total",
			Help:      "Total number of event study results stored",
		}),

		// Latency metrics
		ScanDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "duration_seconds",
			Help:      "Issuer-quarter scan duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
		StudyDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "study",
			Name:      "duration_seconds",
			Help:      "Event study duration in seconds",
			Buckets:   prometheus.DefBuckets,
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
		LastSuccessfulScan: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_scan_timestamp",
			Help:      "Unix timestamp of last successful scan",
		}),
		ReportsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reporting",
			Name:      "reports_generated_total",
			Help:      "Total number of reports generated",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordDumpEvent increments the detected dump counter for a source.
func (m *Metrics) RecordDumpEvent(source string) {
	if m == nil {
		return
	}
	m.DumpEventsDetected.WithLabelValues(source).Inc()
}

// RecordScan records one issuer-quarter scan.
func (m *Metrics) RecordScan(status string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.IssuersScanned.Inc()
	m.ScanDuration.WithLabelValues(status).Observe(durationSeconds)
}

// RecordScanError records a scan failure at a named stage.
func (m *Metrics) RecordScanError(stage string) {
	if m == nil {
		return
	}
	m.ScanErrors.WithLabelValues(stage).Inc()
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(database, operation string, seconds float64, err error) {
	if m == nil {
		return
	}
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
