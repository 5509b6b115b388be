package sheets

import (
	"context"

	"github.com/tphakala/itemstore/internal/logger"
)

// Repository presents a Worksheet as a record store. Every call rereads the
// sheet; row numbers are never cached between calls because a delete shifts
// every row below it.
type Repository struct {
	ws  Worksheet
	log logger.Logger
}

// NewRepository creates a repository over ws. A nil log discards output.
func NewRepository(ws Worksheet, log logger.Logger) *Repository {
	if log == nil {
		log = logger.NewDiscardLogger()
	}
	return &Repository{ws: ws, log: log.With(logger.String("worksheet", ws.Title()))}
}

// Worksheet returns the underlying grid.
func (r *Repository) Worksheet() Worksheet {
	return r.ws
}

// EnsureOwnerColumn writes the email header into the fourth header cell when
// the header has no email column. An empty worksheet gets the full default header.
func (r *Repository) EnsureOwnerColumn(ctx context.Context) error {
	row, err := r.ws.Header(ctx)
	if err != nil {
		return err
	}

	h := newHeader(row)
	switch {
	case h.empty():
		values := make([]any, len(DefaultHeader))
		for i, name := range DefaultHeader {
			values[i] = name
		}
		if err := r.ws.UpdateRow(ctx, 1, values); err != nil {
			return err
		}
		r.log.Info("wrote default header")
	case !h.has(ColumnEmail):
		if err := r.ws.UpdateCell(ctx, 1, ownerColumn, ColumnEmail); err != nil {
			return err
		}
		r.log.Info("added owner column to header")
	}
	return nil
}

// List returns the records passing filter in sheet order. Blank rows are skipped.
func (r *Repository) List(ctx context.Context, filter OwnerFilter) ([]Record, error) {
	h, rows, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		if blank(row) {
			continue
		}
		rec := h.record(row)
		if filter.Matches(rec) {
			records = append(records, rec)
		}
	}
	return records, nil
}

// Get returns the first record with the given ID. A record hidden by filter is
// reported exactly like a missing one.
func (r *Repository) Get(ctx context.Context, id int, filter OwnerFilter) (Record, bool, error) {
	h, rows, err := r.load(ctx)
	if err != nil {
		return Record{}, false, err
	}

	idx, ok := findRow(h, rows, id)
	if !ok {
		return Record{}, false, nil
	}
	rec := h.record(rows[idx])
	if !filter.Matches(rec) {
		return Record{}, false, nil
	}
	return rec, true, nil
}

// LocateRow returns the 1-indexed physical row holding id.
func (r *Repository) LocateRow(ctx context.Context, id int) (int, bool, error) {
	h, rows, err := r.load(ctx)
	if err != nil {
		return 0, false, err
	}

	idx, ok := findRow(h, rows, id)
	if !ok {
		return 0, false, nil
	}
	return idx + 2, true, nil
}

// Create appends a record with the next free ID. The owner is owner when it is
// not empty, otherwise the email of in.
func (r *Repository) Create(ctx context.Context, in Input, owner string) (Record, error) {
	if err := r.EnsureOwnerColumn(ctx); err != nil {
		return Record{}, err
	}

	h, rows, err := r.load(ctx)
	if err != nil {
		return Record{}, err
	}

	maxID := 0
	for _, row := range rows {
		if id, ok := parseID(h.cell(row, ColumnID)); ok && id > maxID {
			maxID = id
		}
	}

	rec := Record{
		ID:          maxID + 1,
		Name:        deref(in.Name),
		Description: deref(in.Description),
		Email:       owner,
	}
	if rec.Email == "" {
		rec.Email = deref(in.Email)
	}

	if err := r.ws.AppendRow(ctx, h.row(rec, nil)); err != nil {
		return Record{}, err
	}

	r.log.Info("record created", logger.Int("id", rec.ID))
	return rec, nil
}

// Update overwrites name and description with the fields present in in and
// writes the whole row back in one call. The stored owner is always kept.
func (r *Repository) Update(ctx context.Context, id int, in Input, filter OwnerFilter) (Record, bool, error) {
	h, rows, err := r.load(ctx)
	if err != nil {
		return Record{}, false, err
	}

	idx, ok := findRow(h, rows, id)
	if !ok {
		return Record{}, false, nil
	}
	current := rows[idx]
	rec := h.record(current)
	if !filter.Matches(rec) {
		return Record{}, false, nil
	}

	rec.ID = id
	if in.Name != nil {
		rec.Name = *in.Name
	}
	if in.Description != nil {
		rec.Description = *in.Description
	}

	if err := r.ws.UpdateRow(ctx, idx+2, h.row(rec, current)); err != nil {
		return Record{}, false, err
	}

	r.log.Debug("record updated", logger.Int("id", id), logger.Int("row", idx+2))
	return rec, true, nil
}

// Delete removes the row holding id. With an owner filter the record is
// fetched first and must match; any mismatch leaves the sheet untouched.
func (r *Repository) Delete(ctx context.Context, id int, filter OwnerFilter) (bool, error) {
	if filter.Scoped() {
		_, found, err := r.Get(ctx, id, filter)
		if err != nil || !found {
			return false, err
		}
	}

	row, found, err := r.LocateRow(ctx, id)
	if err != nil || !found {
		return false, err
	}

	if err := r.ws.DeleteRow(ctx, row); err != nil {
		return false, err
	}

	r.log.Info("record deleted", logger.Int("id", id), logger.Int("row", row))
	return true, nil
}

// load reads the sheet and splits it into header and data rows.
func (r *Repository) load(ctx context.Context) (header, [][]any, error) {
	values, err := r.ws.Values(ctx)
	if err != nil {
		return header{}, nil, err
	}
	if len(values) == 0 {
		return newHeader(nil), nil, nil
	}
	return newHeader(values[0]), values[1:], nil
}

// findRow returns the index in rows of the first row whose id cell equals id.
func findRow(h header, rows [][]any, id int) (int, bool) {
	if id < 1 {
		return 0, false
	}
	for i, row := range rows {
		if rowID, ok := parseID(h.cell(row, ColumnID)); ok && rowID == id {
			return i, true
		}
	}
	return 0, false
}

func blank(row []any) bool {
	for _, cell := range row {
		if cellString(cell) != "" {
			return false
		}
	}
	return true
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
