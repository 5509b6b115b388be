// Package sheets stores item records in a spreadsheet worksheet.
//
// Row 1 of the worksheet is the header and names the columns; every later row
// is one record. The Repository emulates auto-increment IDs and owner filtering
// with linear scans over the whole sheet. It gives no concurrency guarantees:
// two concurrent creates can be assigned the same ID, and a delete landing
// between another call's row lookup and its write shifts the target row.
package sheets

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Worksheet is the grid the repository reads and writes. Rows and columns are 1-indexed.
type Worksheet interface {
	// Title returns the worksheet name.
	Title() string
	// Values returns every non-empty row including the header.
	Values(ctx context.Context) ([][]any, error)
	// Header returns row 1.
	Header(ctx context.Context) ([]any, error)
	// UpdateCell writes a single cell.
	UpdateCell(ctx context.Context, row, col int, value any) error
	// UpdateRow writes values into row starting at column A.
	UpdateRow(ctx context.Context, row int, values []any) error
	// AppendRow adds values as a new row after the last non-empty row.
	AppendRow(ctx context.Context, values []any) error
	// DeleteRow removes a row and shifts the rows below it up by one.
	DeleteRow(ctx context.Context, row int) error
}

// columnLetter converts a 1-indexed column number to its A1 letters (1 => A, 27 => AA).
func columnLetter(col int) string {
	var b []byte
	for col > 0 {
		col--
		b = append([]byte{byte('A' + col%26)}, b...)
		col /= 26
	}
	return string(b)
}

// rowRange returns the A1 range covering columns 1..cols of row.
func rowRange(row, cols int) string {
	if cols < 1 {
		cols = 1
	}
	return fmt.Sprintf("A%d:%s%d", row, columnLetter(cols), row)
}

// cellString renders a cell value the way it reads in the sheet.
func cellString(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64)
	case int:
		return strconv.Itoa(c)
	case int64:
		return strconv.FormatInt(c, 10)
	case bool:
		return strconv.FormatBool(c)
	default:
		return fmt.Sprint(c)
	}
}

// parseID reads an id cell. Numbers and digit strings both resolve to the same ID.
func parseID(v any) (int, bool) {
	switch c := v.(type) {
	case int:
		return c, true
	case int64:
		return int(c), true
	case float64:
		if c != float64(int(c)) {
			return 0, false
		}
		return int(c), true
	case string:
		s := strings.TrimSpace(c)
		if s == "" || strings.TrimLeft(s, "0123456789") != "" {
			return 0, false
		}
		id, err := strconv.Atoi(s)
		if err != nil {
			return 0, false
		}
		return id, true
	default:
		return 0, false
	}
}
