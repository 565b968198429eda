// Package sheets uploads the customer master table to a Google Sheets
// worksheet. The worksheet is created on first upload and fully replaced on
// every run.
package sheets

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/clientpulse/internal/export"
	"github.com/angelmondragon/clientpulse/internal/rfm/types"
	"github.com/angelmondragon/clientpulse/pkg/config"
	"github.com/angelmondragon/clientpulse/pkg/logger"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Uploader replaces one worksheet with the current master table.
type Uploader struct {
	service       *sheets.Service
	spreadsheetID string
	worksheet     string
	logg          *logger.Logger
}

// NewUploader authenticates with the service-account credentials file and
// validates the target spreadsheet configuration.
func NewUploader(ctx context.Context, cfg config.SheetsConfig, logg *logger.Logger) (*Uploader, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if !cfg.Configured() {
		return nil, fmt.Errorf("sheets credentials file and spreadsheet id required")
	}

	service, err := sheets.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsFile))
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}

	return &Uploader{
		service:       service,
		spreadsheetID: strings.TrimSpace(cfg.SpreadsheetID),
		worksheet:     strings.TrimSpace(cfg.Worksheet),
		logg:          logg,
	}, nil
}

// Upload clears the worksheet and writes header plus all rows in one batch.
func (u *Uploader) Upload(ctx context.Context, rows []types.CustomerMasterRow) error {
	if err := u.ensureWorksheet(ctx); err != nil {
		return err
	}

	clearRange := fmt.Sprintf("'%s'", u.worksheet)
	if _, err := u.service.Spreadsheets.Values.
		Clear(u.spreadsheetID, clearRange, &sheets.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clearing worksheet %q: %w", u.worksheet, err)
	}

	values := make([][]any, 0, len(rows)+1)
	values = append(values, toAnyRow(export.Header()))
	for _, row := range rows {
		values = append(values, toAnyRow(export.Record(row)))
	}

	if _, err := u.service.Spreadsheets.Values.
		Update(u.spreadsheetID, clearRange+"!A1", &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("updating worksheet %q: %w", u.worksheet, err)
	}

	u.logg.Info(u.logg.WithFields(ctx, map[string]any{
		"worksheet": u.worksheet,
		"rows":      len(rows),
	}), "customer master uploaded to sheets")
	return nil
}

// ensureWorksheet creates the target tab when the spreadsheet does not have
// it yet.
func (u *Uploader) ensureWorksheet(ctx context.Context) error {
	spreadsheet, err := u.service.Spreadsheets.Get(u.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("loading spreadsheet: %w", err)
	}

	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == u.worksheet {
			return nil
		}
	}

	u.logg.Info(u.logg.WithField(ctx, "worksheet", u.worksheet), "creating worksheet")
	_, err = u.service.Spreadsheets.BatchUpdate(u.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: u.worksheet},
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("creating worksheet %q: %w", u.worksheet, err)
	}
	return nil
}

func toAnyRow(cells []string) []any {
	row := make([]any, len(cells))
	for i, cell := range cells {
		row[i] = cell
	}
	return row
}
