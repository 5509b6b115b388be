package sheets

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// MemoryWorksheet is an in-process Worksheet for tests and local development.
// Values written by the repository keep their Go types, so ids stay ints.
type MemoryWorksheet struct {
	title string
	mu    sync.Mutex
	rows  [][]any
}

// NewMemoryWorksheet returns a worksheet holding a copy of rows.
func NewMemoryWorksheet(title string, rows ...[]any) *MemoryWorksheet {
	ws := &MemoryWorksheet{title: title}
	for _, row := range rows {
		ws.rows = append(ws.rows, slices.Clone(row))
	}
	return ws
}

// Title returns the worksheet name.
func (m *MemoryWorksheet) Title() string { return m.title }

// Values returns a copy of all rows up to the last non-empty one.
func (m *MemoryWorksheet) Values(_ context.Context) ([][]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot(), nil
}

// Rows is Values without a context, for assertions.
func (m *MemoryWorksheet) Rows() [][]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot()
}

// Header returns row 1.
func (m *MemoryWorksheet) Header(_ context.Context) ([]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.rows) == 0 {
		return nil, nil
	}
	return slices.Clone(m.rows[0]), nil
}

// UpdateCell writes one cell, growing the grid as needed.
func (m *MemoryWorksheet) UpdateCell(_ context.Context, row, col int, value any) error {
	if row < 1 || col < 1 {
		return fmt.Errorf("invalid cell %s%d", columnLetter(col), row)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.grow(row)
	for len(m.rows[row-1]) < col {
		m.rows[row-1] = append(m.rows[row-1], "")
	}
	m.rows[row-1][col-1] = value
	return nil
}

// UpdateRow writes values into row starting at column A. Cells beyond values keep their content.
func (m *MemoryWorksheet) UpdateRow(_ context.Context, row int, values []any) error {
	if row < 1 {
		return fmt.Errorf("invalid row %d", row)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.grow(row)
	current := m.rows[row-1]
	for len(current) < len(values) {
		current = append(current, "")
	}
	copy(current, values)
	m.rows[row-1] = current
	return nil
}

// AppendRow adds a row after the last non-empty row.
func (m *MemoryWorksheet) AppendRow(_ context.Context, values []any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rows = append(m.snapshot(), slices.Clone(values))
	return nil
}

// DeleteRow removes row and shifts the rows below it up.
func (m *MemoryWorksheet) DeleteRow(_ context.Context, row int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if row < 1 || row > len(m.rows) {
		return fmt.Errorf("row %d is outside the grid (%d rows)", row, len(m.rows))
	}
	m.rows = slices.Delete(m.rows, row-1, row)
	return nil
}

func (m *MemoryWorksheet) grow(row int) {
	for len(m.rows) < row {
		m.rows = append(m.rows, nil)
	}
}

// snapshot copies the rows, dropping trailing blank rows like the Sheets API does.
func (m *MemoryWorksheet) snapshot() [][]any {
	last := len(m.rows)
	for last > 0 && blank(m.rows[last-1]) {
		last--
	}
	out := make([][]any, last)
	for i := range last {
		out[i] = slices.Clone(m.rows[i])
	}
	return out
}
