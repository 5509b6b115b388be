package metrics

// Recorder is the minimal surface components use to report operations, so
// they can be tested without a Prometheus registry.
type Recorder interface {
	// RecordOperation counts one operation with its outcome (StatusSuccess or StatusError).
	RecordOperation(operation, status string)

	// RecordDuration observes how long an operation took, in seconds.
	RecordDuration(operation string, seconds float64)

	// RecordError counts a failure by type, e.g. "network" or "spreadsheet".
	RecordError(operation, errorType string)
}

// NopRecorder discards everything.
type NopRecorder struct{}

func (NopRecorder) RecordOperation(string, string) {}
func (NopRecorder) RecordDuration(string, float64) {}
func (NopRecorder) RecordError(string, string)     {}

var _ Recorder = NopRecorder{}
