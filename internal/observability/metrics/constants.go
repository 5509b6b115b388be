// Package metrics provides the Prometheus collectors used by itemstore.
package metrics

import "time"

// Operation outcome labels.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Sheets operation labels, one per Worksheet call.
const (
	OpSheetsValues     = "values"
	OpSheetsHeader     = "header"
	OpSheetsUpdateCell = "update_cell"
	OpSheetsUpdateRow  = "update_row"
	OpSheetsAppendRow  = "append_row"
	OpSheetsDeleteRow  = "delete_row"
)

// Histogram bucket layout.
const (
	// BucketStart1ms is the starting bucket for 1ms histograms.
	BucketStart1ms = 0.001
	// BucketStart10ms is the starting bucket for 10ms histograms (10ms to ~40s range).
	BucketStart10ms = 0.01
	// BucketStart100B is the starting bucket for 100 byte histograms (100B to ~100MB range).
	BucketStart100B = 100.0

	// BucketFactor2 is the common exponential growth factor of 2.
	BucketFactor2 = 2
	// BucketFactor10 is the exponential growth factor of 10 for larger ranges.
	BucketFactor10 = 10

	BucketCount6  = 6
	BucketCount12 = 12
)

// ShutdownTimeout bounds the graceful shutdown of the metrics listener.
const ShutdownTimeout = 5 * time.Second
