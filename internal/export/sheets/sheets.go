// Package sheets pushes earned-value reports to a Google spreadsheet,
// the feed the client-facing dashboard reads. Authentication is by
// service account only.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"obras/internal/core"
	"obras/internal/ports"
)

type Exporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ ports.ReportExporter = (*Exporter)(nil)

// Config carries the spreadsheet destination and credentials. Exactly
// one of CredentialsJSON or CredentialsFile must be set.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

// New creates a Sheets exporter from explicit configuration.
func New(ctx context.Context, cfg Config) (*Exporter, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	sheetName := strings.TrimSpace(cfg.SheetName)
	if sheetName == "" {
		sheetName = "Reports"
	}

	credentialsJSON, err := resolveCredentials(cfg)
	if err != nil {
		return nil, err
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Exporter{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     sheetName,
	}, nil
}

func resolveCredentials(cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		return []byte(cfg.CredentialsJSON), nil
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read credentials file: %w", err)
		}
		return data, nil
	}
	return nil, errors.New("missing service account credentials")
}

// ExportReport appends the report to the destination sheet: one summary
// row for the work followed by one row per category. The sheet is an
// append-only feed; the dashboard reads the latest block per work.
func (e *Exporter) ExportReport(ctx context.Context, report core.EarnedValueReport) error {
	if e.svc == nil {
		return errors.New("sheets service not initialized")
	}

	rows := buildRows(report)
	rng := fmt.Sprintf("%s!A:J", e.sheetName)
	vr := &gsheet.ValueRange{Values: rows}

	cctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := e.svc.Spreadsheets.Values.Append(e.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(cctx).Do()
	if err != nil {
		return fmt.Errorf("append to sheet %s: %w", e.sheetName, err)
	}

	slog.InfoContext(ctx, "Report exported to spreadsheet",
		"work_id", report.WorkID,
		"spreadsheet_id", e.spreadsheetID,
		"sheet", e.sheetName,
		"rows", len(rows))
	return nil
}

// buildRows flattens a report into spreadsheet rows. Money travels as
// decimal Reais because spreadsheet consumers expect currency, not
// cents.
func buildRows(report core.EarnedValueReport) [][]any {
	rows := [][]any{{
		report.GeneratedAt.Format(time.RFC3339),
		report.WorkID,
		"TOTAL",
		report.TotalBudget.Reais(),
		report.WeightedProgress,
		report.TotalEarned.Reais(),
		report.TotalSpend.Reais(),
		report.TotalVariance.Reais(),
		report.TaskEarned.Reais(),
	}}
	for _, c := range report.Categories {
		rows = append(rows, []any{
			report.GeneratedAt.Format(time.RFC3339),
			report.WorkID,
			c.Name,
			c.Budgeted.Reais(),
			c.Progress,
			c.Earned.Reais(),
			c.ActualSpend.Reais(),
			c.Variance.Reais(),
			"",
		})
	}
	return rows
}
