package sheets

import (
	"context"
	"fmt"
	"strings"

	"social-stack/shared/config"

	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Writer performs best-effort bookkeeping writes back to the feed
// spreadsheet using a service account.
type Writer struct {
	service *sheets.Service
}

func NewWriter(ctx context.Context, cfg *config.SheetsConfig) (*Writer, error) {
	jwtConfig := &jwt.Config{
		Email: cfg.ServiceAccountEmail,
		// Private keys delivered through env vars carry literal \n sequences
		PrivateKey: []byte(strings.ReplaceAll(cfg.PrivateKey, `\n`, "\n")),
		Scopes:     []string{sheets.SpreadsheetsScope},
		TokenURL:   "https://oauth2.googleapis.com/token",
	}

	service, err := sheets.NewService(ctx, option.WithHTTPClient(jwtConfig.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("failed to create Sheets service: %w", err)
	}

	return &Writer{service: service}, nil
}

// WriteColumnValue writes value into the named column of the given data row.
// rowNumber is 1-based and excludes the header row.
func (w *Writer) WriteColumnValue(ctx context.Context, spreadsheetID string, gid int64, headers []string, column string, rowNumber int, value string) error {
	colIdx := headerIndex(headers, column)
	if colIdx == -1 {
		return fmt.Errorf("column %q not found in sheet headers", column)
	}

	title, err := w.sheetTitle(ctx, spreadsheetID, gid)
	if err != nil {
		return err
	}

	cell := fmt.Sprintf("'%s'!%s%d", title, ColumnLetter(colIdx), rowNumber+1)
	valueRange := &sheets.ValueRange{
		Values: [][]interface{}{{value}},
	}

	_, err = w.service.Spreadsheets.Values.Update(spreadsheetID, cell, valueRange).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", cell, err)
	}
	return nil
}

// MarkRowPosted sets the posted-flag column of the given data row to TRUE.
func (w *Writer) MarkRowPosted(ctx context.Context, spreadsheetID string, gid int64, headers []string, postedColumn string, rowNumber int) error {
	return w.WriteColumnValue(ctx, spreadsheetID, gid, headers, postedColumn, rowNumber, "TRUE")
}

// sheetTitle resolves a sheet gid to its title for A1-notation addressing.
func (w *Writer) sheetTitle(ctx context.Context, spreadsheetID string, gid int64) (string, error) {
	spreadsheet, err := w.service.Spreadsheets.Get(spreadsheetID).
		Fields("sheets.properties").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to get spreadsheet %s: %w", spreadsheetID, err)
	}

	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil && sheet.Properties.SheetId == gid {
			return sheet.Properties.Title, nil
		}
	}
	return "", fmt.Errorf("no sheet with gid %d in spreadsheet %s", gid, spreadsheetID)
}

func headerIndex(headers []string, column string) int {
	for i, h := range headers {
		if strings.EqualFold(strings.TrimSpace(h), column) {
			return i
		}
	}
	return -1
}

// ColumnLetter converts a 0-based column index to its A1-notation letters.
func ColumnLetter(index int) string {
	letters := ""
	for index >= 0 {
		letters = string(rune('A'+index%26)) + letters
		index = index/26 - 1
	}
	return letters
}
