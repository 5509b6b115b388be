package sheets

import "strings"

// Column names used in the header row.
const (
	ColumnID          = "id"
	ColumnName        = "name"
	ColumnDescription = "description"
	ColumnEmail       = "email"
)

// ownerColumn is the 1-indexed column where EnsureOwnerColumn puts the email header.
const ownerColumn = 4

// DefaultHeader is written to an empty worksheet.
var DefaultHeader = []string{ColumnID, ColumnName, ColumnDescription, ColumnEmail}

// Record is one data row. ID is 0 when the id cell does not hold an integer.
type Record struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Email       string `json:"email"`
}

// Input is a create or update payload. Nil fields are absent from the payload.
type Input struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Email       *string `json:"email,omitempty"`
}

// OwnerFilter restricts which records a call can see.
type OwnerFilter struct {
	email  string
	scoped bool
}

// AnyOwner matches every record.
var AnyOwner = OwnerFilter{}

// OwnedBy matches records whose email column equals email. OwnedBy("")
// matches nothing, so a caller without an email sees no rows.
func OwnedBy(email string) OwnerFilter {
	return OwnerFilter{email: email, scoped: true}
}

// Scoped reports whether the filter restricts by owner.
func (f OwnerFilter) Scoped() bool { return f.scoped }

// Matches reports whether rec passes the filter.
func (f OwnerFilter) Matches(rec Record) bool {
	if !f.scoped {
		return true
	}
	return f.email != "" && rec.Email == f.email
}

// header maps column names to 0-indexed positions.
type header struct {
	names []string
	index map[string]int
}

func newHeader(row []any) header {
	h := header{names: make([]string, len(row)), index: make(map[string]int, len(row))}
	for i, cell := range row {
		name := strings.TrimSpace(cellString(cell))
		h.names[i] = name
		if _, dup := h.index[name]; !dup && name != "" {
			h.index[name] = i
		}
	}
	return h
}

func (h header) has(name string) bool {
	_, ok := h.index[name]
	return ok
}

func (h header) empty() bool {
	return len(h.index) == 0
}

// cell returns the value of the named column in row.
func (h header) cell(row []any, name string) any {
	i, ok := h.index[name]
	if !ok || i >= len(row) {
		return nil
	}
	return row[i]
}

// record maps a data row to a Record.
func (h header) record(row []any) Record {
	id, _ := parseID(h.cell(row, ColumnID))
	return Record{
		ID:          id,
		Name:        cellString(h.cell(row, ColumnName)),
		Description: cellString(h.cell(row, ColumnDescription)),
		Email:       cellString(h.cell(row, ColumnEmail)),
	}
}

// row lays rec out in header order. Columns the repository does not know keep
// their value from existing, which may be nil for a new row.
func (h header) row(rec Record, existing []any) []any {
	out := make([]any, len(h.names))
	for i, name := range h.names {
		switch name {
		case ColumnID:
			out[i] = rec.ID
		case ColumnName:
			out[i] = rec.Name
		case ColumnDescription:
			out[i] = rec.Description
		case ColumnEmail:
			out[i] = rec.Email
		default:
			if i < len(existing) && existing[i] != nil {
				out[i] = existing[i]
			} else {
				out[i] = ""
			}
		}
	}
	return out
}
