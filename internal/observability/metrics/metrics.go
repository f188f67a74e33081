package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "smou_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	ingestRuns    *prometheus.CounterVec
	ingestLatency *prometheus.HistogramVec
	rowsRejected  *prometheus.CounterVec
	recordsAdded  prometheus.Counter
	recordsInLog  prometheus.Gauge

	queryTotal *prometheus.CounterVec

	exportTotal   *prometheus.CounterVec
	exportLatency *prometheus.HistogramVec
)

// Init registers the collectors with the default registry. Calls after the
// first are no-ops; observation helpers are safe to call before Init.
func Init() {
	registerOnce.Do(func() {
		ingestRuns = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_runs_total",
				Help: "Total ingestion runs by result",
			},
			[]string{"result"},
		)
		ingestLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "ingest_latency_seconds",
				Help:    "Ingestion run latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		rowsRejected = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_rows_rejected_total",
				Help: "Raw rows dropped during ingestion by reason",
			},
			[]string{"reason"},
		)
		recordsAdded = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_records_added_total",
				Help: "Records appended to the record log",
			},
		)
		recordsInLog = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "records",
				Help: "Records currently in the record log",
			},
		)
		queryTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "aggregate_queries_total",
				Help: "Aggregate queries by metric and result",
			},
			[]string{"metric", "result"},
		)
		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "statement_export_total",
				Help: "Statement exports by format and result",
			},
			[]string{"format", "result"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "statement_export_latency_seconds",
				Help:    "Statement export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		prometheus.MustRegister(
			ingestRuns,
			ingestLatency,
			rowsRejected,
			recordsAdded,
			recordsInLog,
			queryTotal,
			exportTotal,
			exportLatency,
		)
	})
}

// ObserveIngest records an ingestion run's duration and result.
func ObserveIngest(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if ingestRuns != nil {
		ingestRuns.WithLabelValues(result).Inc()
	}
	if ingestLatency != nil {
		ingestLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncRowRejected counts a raw row dropped during ingestion.
func IncRowRejected(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	if rowsRejected != nil {
		rowsRejected.WithLabelValues(reason).Inc()
	}
}

// AddRecords counts records appended to the log.
func AddRecords(n int) {
	if n <= 0 {
		return
	}
	if recordsAdded != nil {
		recordsAdded.Add(float64(n))
	}
}

// SetLogSize sets the current record log size.
func SetLogSize(n int) {
	if recordsInLog != nil {
		recordsInLog.Set(float64(n))
	}
}

// IncQuery counts an aggregate query.
func IncQuery(metric, result string) {
	if metric == "" {
		metric = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if queryTotal != nil {
		queryTotal.WithLabelValues(metric, result).Inc()
	}
}

// ObserveExport records a statement export's duration and result.
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

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
