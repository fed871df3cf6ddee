package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "optifactura_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	analyzeRequests *prometheus.CounterVec
	analyzeLatency  *prometheus.HistogramVec

	findingsTotal *prometheus.CounterVec

	exportTotal   *prometheus.CounterVec
	exportLatency *prometheus.HistogramVec

	httpRequests *prometheus.CounterVec
)

// Init registers observability metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		analyzeRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "analyze_requests_total",
				Help: "Total bill analysis requests by provider and result",
			},
			[]string{"provider", "result"},
		)
		analyzeLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "analyze_latency_seconds",
				Help:    "Bill analysis latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		findingsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "findings_total",
				Help: "Total anomaly findings by type and severity",
			},
			[]string{"type", "severity"},
		)

		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "export_total",
				Help: "Total report export operations by format and result",
			},
			[]string{"format", "result"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "export_latency_seconds",
				Help:    "Report export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		httpRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_requests_total",
				Help: "Total HTTP requests by method and status",
			},
			[]string{"method", "status"},
		)

		prometheus.MustRegister(
			analyzeRequests,
			analyzeLatency,
			findingsTotal,
			exportTotal,
			exportLatency,
			httpRequests,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveAnalyze records analysis request duration and result.
func ObserveAnalyze(provider, result string, duration time.Duration) {
	if provider == "" {
		provider = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if analyzeRequests != nil {
		analyzeRequests.WithLabelValues(provider, result).Inc()
	}
	if analyzeLatency != nil {
		analyzeLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncFinding increments anomaly finding counters.
func IncFinding(findingType, severity string) {
	if findingType == "" {
		findingType = "unknown"
	}
	if severity == "" {
		severity = "unknown"
	}
	if findingsTotal != nil {
		findingsTotal.WithLabelValues(findingType, severity).Inc()
	}
}

// ObserveExport records export latency and result.
func ObserveExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
	if exportLatency != nil {
		exportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// IncHTTPRequest counts a served request.
func IncHTTPRequest(method, status string) {
	if httpRequests != nil {
		httpRequests.WithLabelValues(method, status).Inc()
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
