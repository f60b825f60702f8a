package store

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsGateway reads and writes the spreadsheet directly through the
// Sheets API. The first row of every sheet holds the column headers.
type SheetsGateway struct {
	values        *sheets.SpreadsheetsValuesService
	spreadsheetID string
}

// NewSheetsGateway creates a gateway authenticated with a service account
// JSON key. Extra client options are appended after the credentials.
func NewSheetsGateway(ctx context.Context, spreadsheetID, serviceJSON string, opts ...option.ClientOption) (*SheetsGateway, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("sheets: spreadsheet id is required")
	}
	if serviceJSON != "" {
		opts = append([]option.ClientOption{
			option.WithCredentialsJSON([]byte(serviceJSON)),
			option.WithScopes(sheets.SpreadsheetsScope),
		}, opts...)
	}

	srv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets: create service: %w", err)
	}

	return &SheetsGateway{
		values:        srv.Spreadsheets.Values,
		spreadsheetID: spreadsheetID,
	}, nil
}

// Fetch implements Gateway.
func (g *SheetsGateway) Fetch(ctx context.Context, sheet string) ([]Row, error) {
	header, values, err := g.read(ctx, sheet)
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(values))
	for _, v := range values {
		rows = appendTabularRow(rows, header, v)
	}
	return rows, nil
}

// Append implements Gateway. Columns not present in the header row are dropped.
func (g *SheetsGateway) Append(ctx context.Context, sheet string, row Row) error {
	resp, err := g.values.Get(g.spreadsheetID, sheet+"!1:1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheets: read header %s: %v: %w", sheet, err, ErrService)
	}
	if len(resp.Values) == 0 {
		return fmt.Errorf("sheets: %s has no header row: %w", sheet, ErrService)
	}

	header := headerOf(resp.Values[0])
	_, err = g.values.Append(g.spreadsheetID, sheet, &sheets.ValueRange{
		Values: [][]any{projectRow(header, row, nil)},
	}).ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheets: append %s: %v: %w", sheet, err, ErrService)
	}
	return nil
}

// UpdateByKey implements Gateway.
func (g *SheetsGateway) UpdateByKey(ctx context.Context, sheet, keyColumn, keyValue string, fields Row) error {
	header, values, err := g.read(ctx, sheet)
	if err != nil {
		return err
	}

	keyIdx := -1
	for i, h := range header {
		if sameKey(h, keyColumn) {
			keyIdx = i
			break
		}
	}
	if keyIdx < 0 {
		return fmt.Errorf("sheets: %s has no column %q: %w", sheet, keyColumn, ErrNotFound)
	}

	for i, v := range values {
		if keyIdx >= len(v) || !sameKey(stringify(v[keyIdx]), keyValue) {
			continue
		}
		// Sheet rows are 1-based and the header occupies row 1.
		rng := fmt.Sprintf("%s!A%d", sheet, i+2)
		_, err := g.values.Update(g.spreadsheetID, rng, &sheets.ValueRange{
			Values: [][]any{projectRow(header, fields, v)},
		}).ValueInputOption("USER_ENTERED").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("sheets: update %s: %v: %w", sheet, err, ErrService)
		}
		return nil
	}
	return fmt.Errorf("sheets: %s %s=%s: %w", sheet, keyColumn, keyValue, ErrNotFound)
}

func (g *SheetsGateway) read(ctx context.Context, sheet string) ([]string, [][]any, error) {
	resp, err := g.values.Get(g.spreadsheetID, sheet).Context(ctx).Do()
	if err != nil {
		return nil, nil, fmt.Errorf("sheets: read %s: %v: %w", sheet, err, ErrService)
	}
	if len(resp.Values) == 0 {
		return nil, nil, nil
	}
	return headerOf(resp.Values[0]), resp.Values[1:], nil
}

func headerOf(cells []any) []string {
	header := make([]string, len(cells))
	for i, c := range cells {
		header[i] = strings.TrimSpace(stringify(c))
	}
	return header
}

// projectRow lays fields out in header order, keeping existing cells for
// columns fields does not mention.
func projectRow(header []string, fields Row, existing []any) []any {
	out := make([]any, len(header))
	for i, h := range header {
		if i < len(existing) {
			out[i] = existing[i]
		} else {
			out[i] = ""
		}
		for k, v := range fields {
			if sameKey(k, h) {
				out[i] = v
				break
			}
		}
	}
	return out
}
