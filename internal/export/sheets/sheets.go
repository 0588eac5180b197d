// Package sheets exports recorded transactions to a Google spreadsheet.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"spendbot/internal/log"
	"spendbot/internal/storage"
)

// Config holds the export target. CredentialsFile points at a service
// account JSON key.
type Config struct {
	CredentialsFile string
	SpreadsheetID   string
	SheetName       string
}

// Exporter appends one month of transactions to a year-prefixed sheet tab.
type Exporter struct {
	svc           *gsheet.Service
	repo          *storage.Repository
	spreadsheetID string
	sheetName     string
	logger        *slog.Logger
}

// NewExporter authenticates against the Sheets API with service account
// credentials.
func NewExporter(ctx context.Context, cfg Config, repo *storage.Repository, logger *slog.Logger) (*Exporter, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("spreadsheet id is required")
	}

	credentials, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentials),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	sheetName := cfg.SheetName
	if sheetName == "" {
		sheetName = "Transactions"
	}

	return &Exporter{
		svc:           svc,
		repo:          repo,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     sheetName,
		logger:        logger,
	}, nil
}

// ExportMonth appends the user's transactions for one month and returns how
// many rows were written. The target tab is year-prefixed so each year stays
// in its own sheet.
func (e *Exporter) ExportMonth(ctx context.Context, userID int64, year, month int) (int, error) {
	txs, err := e.repo.ListTransactions(ctx, userID, year, month)
	if err != nil {
		return 0, err
	}
	if len(txs) == 0 {
		return 0, nil
	}

	rows := make([][]any, 0, len(txs))
	for _, t := range txs {
		rows = append(rows, []any{
			fmt.Sprintf("%04d-%02d-%02d", t.Date.Year(), t.Date.Month(), t.Date.Day()),
			string(t.Kind),
			t.Description,
			float64(t.Amount.Cents) / 100.0,
			t.Category,
		})
	}

	rng := fmt.Sprintf("%d %s!A:E", year, e.sheetName)
	_, err = e.svc.Spreadsheets.Values.
		Append(e.spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("append to sheet %q: %w", rng, err)
	}

	e.logger.Info("month exported",
		log.FieldUserID, userID,
		log.FieldYear, year,
		log.FieldMonth, month,
		"rows", len(rows))
	return len(rows), nil
}
