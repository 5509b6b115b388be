package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// SheetsMetrics counts and times calls against the spreadsheet backend.
type SheetsMetrics struct {
	registry *prometheus.Registry

	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	errorsTotal       *prometheus.CounterVec
}

// NewSheetsMetrics creates and registers the sheet backend metrics
func NewSheetsMetrics(registry *prometheus.Registry) (*SheetsMetrics, error) {
	m := &SheetsMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *SheetsMetrics) initMetrics() {
	m.operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sheets_operations_total",
			Help: "Total number of spreadsheet API calls",
		},
		[]string{"operation", "status"}, // operation: values, append_row, delete_row; status: success, error
	)

	m.operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sheets_operation_duration_seconds",
			Help:    "Time taken by spreadsheet API calls",
			Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount12), // 10ms to ~20s
		},
		[]string{"operation"},
	)

	m.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sheets_errors_total",
			Help: "Total number of failed spreadsheet API calls by error type",
		},
		[]string{"operation", "error_type"},
	)
}

func (m *SheetsMetrics) getCollectors() []prometheus.Collector {
	return []prometheus.Collector{m.operationsTotal, m.operationDuration, m.errorsTotal}
}

// Describe implements prometheus.Collector
func (m *SheetsMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.getCollectors() {
		collector.Describe(ch)
	}
}

// Collect implements prometheus.Collector
func (m *SheetsMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.getCollectors() {
		collector.Collect(ch)
	}
}

// RecordOperation implements Recorder
func (m *SheetsMetrics) RecordOperation(operation, status string) {
	m.operationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordDuration implements Recorder
func (m *SheetsMetrics) RecordDuration(operation string, seconds float64) {
	m.operationDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordError implements Recorder
func (m *SheetsMetrics) RecordError(operation, errorType string) {
	m.errorsTotal.WithLabelValues(operation, errorType).Inc()
}

var _ Recorder = (*SheetsMetrics)(nil)
