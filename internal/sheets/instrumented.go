package sheets

import (
	"context"
	"time"

	"github.com/tphakala/itemstore/internal/errors"
	"github.com/tphakala/itemstore/internal/observability/metrics"
)

// InstrumentedWorksheet reports every call of the wrapped Worksheet to a
// metrics.Recorder.
type InstrumentedWorksheet struct {
	ws       Worksheet
	recorder metrics.Recorder
}

// NewInstrumentedWorksheet wraps ws. A nil recorder discards measurements.
func NewInstrumentedWorksheet(ws Worksheet, recorder metrics.Recorder) *InstrumentedWorksheet {
	if recorder == nil {
		recorder = metrics.NopRecorder{}
	}
	return &InstrumentedWorksheet{ws: ws, recorder: recorder}
}

func (w *InstrumentedWorksheet) observe(operation string, start time.Time, err error) {
	w.recorder.RecordDuration(operation, time.Since(start).Seconds())
	if err != nil {
		w.recorder.RecordOperation(operation, metrics.StatusError)
		w.recorder.RecordError(operation, errorType(err))
		return
	}
	w.recorder.RecordOperation(operation, metrics.StatusSuccess)
}

// errorType labels err by its category, or "unknown" for plain errors.
func errorType(err error) string {
	var ee *errors.EnhancedError
	if errors.As(err, &ee) && ee.Category != "" {
		return string(ee.Category)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "unknown"
}

func (w *InstrumentedWorksheet) Title() string { return w.ws.Title() }

func (w *InstrumentedWorksheet) Values(ctx context.Context) (values [][]any, err error) {
	defer func(start time.Time) { w.observe(metrics.OpSheetsValues, start, err) }(time.Now())
	return w.ws.Values(ctx)
}

func (w *InstrumentedWorksheet) Header(ctx context.Context) (row []any, err error) {
	defer func(start time.Time) { w.observe(metrics.OpSheetsHeader, start, err) }(time.Now())
	return w.ws.Header(ctx)
}

func (w *InstrumentedWorksheet) UpdateCell(ctx context.Context, row, col int, value any) (err error) {
	defer func(start time.Time) { w.observe(metrics.OpSheetsUpdateCell, start, err) }(time.Now())
	return w.ws.UpdateCell(ctx, row, col, value)
}

func (w *InstrumentedWorksheet) UpdateRow(ctx context.Context, row int, values []any) (err error) {
	defer func(start time.Time) { w.observe(metrics.OpSheetsUpdateRow, start, err) }(time.Now())
	return w.ws.UpdateRow(ctx, row, values)
}

func (w *InstrumentedWorksheet) AppendRow(ctx context.Context, values []any) (err error) {
	defer func(start time.Time) { w.observe(metrics.OpSheetsAppendRow, start, err) }(time.Now())
	return w.ws.AppendRow(ctx, values)
}

func (w *InstrumentedWorksheet) DeleteRow(ctx context.Context, row int) (err error) {
	defer func(start time.Time) { w.observe(metrics.OpSheetsDeleteRow, start, err) }(time.Now())
	return w.ws.DeleteRow(ctx, row)
}

var _ Worksheet = (*InstrumentedWorksheet)(nil)
