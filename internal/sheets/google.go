package sheets

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/tphakala/itemstore/internal/errors"
)

const (
	valueInputRaw    = "RAW"
	insertRows       = "INSERT_ROWS"
	renderUnformated = "UNFORMATTED_VALUE"
	dimensionRows    = "ROWS"
)

// GoogleWorksheet is a Worksheet backed by one worksheet of a Google spreadsheet.
type GoogleWorksheet struct {
	service       *sheets.Service
	spreadsheetID string
	title         string
	sheetID       int64
}

// OpenGoogleWorksheet resolves the worksheet called title, or the first
// worksheet when title is empty. client must already carry OAuth2 credentials.
func OpenGoogleWorksheet(ctx context.Context, client *http.Client, spreadsheetID, title string, opts ...option.ClientOption) (*GoogleWorksheet, error) {
	start := time.Now()
	opts = append([]option.ClientOption{option.WithHTTPClient(client)}, opts...)
	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, sheetsError(err, "new_service", spreadsheetID, start)
	}

	spreadsheet, err := service.Spreadsheets.Get(spreadsheetID).
		Fields("spreadsheetId,sheets.properties").
		Context(ctx).
		Do()
	if err != nil {
		return nil, sheetsError(err, "get_spreadsheet", spreadsheetID, start)
	}

	sheet, err := selectSheet(spreadsheet, title)
	if err != nil {
		return nil, err
	}

	return &GoogleWorksheet{
		service:       service,
		spreadsheetID: spreadsheetID,
		title:         sheet.Properties.Title,
		sheetID:       sheet.Properties.SheetId,
	}, nil
}

// selectSheet finds a worksheet by case-insensitive title, or the first one for an empty title.
func selectSheet(spreadsheet *sheets.Spreadsheet, title string) (*sheets.Sheet, error) {
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties == nil {
			continue
		}
		if title == "" || strings.EqualFold(strings.TrimSpace(sheet.Properties.Title), strings.TrimSpace(title)) {
			return sheet, nil
		}
	}

	if title == "" {
		title = "(first)"
	}
	return nil, errors.Newf("worksheet %q not found in spreadsheet %s", title, spreadsheet.SpreadsheetId).
		Component("sheets").
		Category(errors.CategoryConfiguration).
		Build()
}

// Title returns the worksheet name.
func (g *GoogleWorksheet) Title() string { return g.title }

// SheetID returns the numeric worksheet ID used by structural requests.
func (g *GoogleWorksheet) SheetID() int64 { return g.sheetID }

// a1 prefixes an A1 range with the quoted worksheet title.
func (g *GoogleWorksheet) a1(cells string) string {
	quoted := "'" + strings.ReplaceAll(g.title, "'", "''") + "'"
	if cells == "" {
		return quoted
	}
	return quoted + "!" + cells
}

// Values reads the whole worksheet. Numbers come back as float64.
func (g *GoogleWorksheet) Values(ctx context.Context) ([][]any, error) {
	start := time.Now()
	resp, err := g.service.Spreadsheets.Values.Get(g.spreadsheetID, g.a1("")).
		ValueRenderOption(renderUnformated).
		Context(ctx).
		Do()
	if err != nil {
		return nil, sheetsError(err, "get_values", g.spreadsheetID, start)
	}
	return resp.Values, nil
}

// Header reads row 1.
func (g *GoogleWorksheet) Header(ctx context.Context) ([]any, error) {
	start := time.Now()
	resp, err := g.service.Spreadsheets.Values.Get(g.spreadsheetID, g.a1("1:1")).
		ValueRenderOption(renderUnformated).
		Context(ctx).
		Do()
	if err != nil {
		return nil, sheetsError(err, "get_header", g.spreadsheetID, start)
	}
	if len(resp.Values) == 0 {
		return nil, nil
	}
	return resp.Values[0], nil
}

// UpdateCell writes a single cell.
func (g *GoogleWorksheet) UpdateCell(ctx context.Context, row, col int, value any) error {
	start := time.Now()
	cell := fmt.Sprintf("%s%d", columnLetter(col), row)
	vr := &sheets.ValueRange{Values: [][]any{{value}}}

	_, err := g.service.Spreadsheets.Values.Update(g.spreadsheetID, g.a1(cell), vr).
		ValueInputOption(valueInputRaw).
		Context(ctx).
		Do()
	if err != nil {
		return sheetsError(err, "update_cell", g.spreadsheetID, start)
	}
	return nil
}

// UpdateRow writes values over A{row}:{last}{row} in one request.
func (g *GoogleWorksheet) UpdateRow(ctx context.Context, row int, values []any) error {
	start := time.Now()
	vr := &sheets.ValueRange{Values: [][]any{values}}

	_, err := g.service.Spreadsheets.Values.Update(g.spreadsheetID, g.a1(rowRange(row, len(values))), vr).
		ValueInputOption(valueInputRaw).
		Context(ctx).
		Do()
	if err != nil {
		return sheetsError(err, "update_row", g.spreadsheetID, start)
	}
	return nil
}

// AppendRow inserts values as a new row after the table that starts at A1.
func (g *GoogleWorksheet) AppendRow(ctx context.Context, values []any) error {
	start := time.Now()
	vr := &sheets.ValueRange{Values: [][]any{values}}

	_, err := g.service.Spreadsheets.Values.Append(g.spreadsheetID, g.a1("A1"), vr).
		ValueInputOption(valueInputRaw).
		InsertDataOption(insertRows).
		Context(ctx).
		Do()
	if err != nil {
		return sheetsError(err, "append_row", g.spreadsheetID, start)
	}
	return nil
}

// DeleteRow removes one row with a DeleteDimension request.
func (g *GoogleWorksheet) DeleteRow(ctx context.Context, row int) error {
	start := time.Now()
	rq := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{
				DeleteDimension: &sheets.DeleteDimensionRequest{
					Range: &sheets.DimensionRange{
						SheetId:    g.sheetID,
						Dimension:  dimensionRows,
						StartIndex: int64(row - 1),
						EndIndex:   int64(row),
						// zero values are legitimate for the first sheet and the header row
						ForceSendFields: []string{"SheetId", "StartIndex"},
					},
				},
			},
		},
	}

	if _, err := g.service.Spreadsheets.BatchUpdate(g.spreadsheetID, rq).Context(ctx).Do(); err != nil {
		return sheetsError(err, "delete_row", g.spreadsheetID, start)
	}
	return nil
}

// sheetsError tags a Sheets API failure. The message of err is kept as is.
func sheetsError(err error, operation, spreadsheetID string, start time.Time) error {
	return errors.New(err).
		Component("sheets").
		Category(errors.CategorySpreadsheet).
		Timing(operation, time.Since(start)).
		Context("spreadsheet_id", spreadsheetID).
		Build()
}
