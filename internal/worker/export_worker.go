// Package worker reacts to progress events: every applied daily log or
// measurement triggers a fresh earned-value report pushed to the
// external dashboard feed.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"obras/internal/amqp"
	"obras/internal/ports"
	"obras/internal/services"
)

// ExportWorker rebuilds and exports the earned-value report of a work
// whenever its budget or progress changes. A minimum interval per work
// throttles bursts of events (several measurements in quick succession
// produce one export, the report is rebuilt from storage anyway).
type ExportWorker struct {
	reports     *services.ReportService
	exporter    ports.ReportExporter
	minInterval time.Duration

	mu         sync.Mutex
	lastExport map[string]time.Time
	now        func() time.Time
}

var _ amqp.EventHandler = (*ExportWorker)(nil)

func NewExportWorker(reports *services.ReportService, exporter ports.ReportExporter, minInterval time.Duration) *ExportWorker {
	return &ExportWorker{
		reports:     reports,
		exporter:    exporter,
		minInterval: minInterval,
		lastExport:  make(map[string]time.Time),
		now:         time.Now,
	}
}

// SetClock overrides the worker's clock, for tests.
func (w *ExportWorker) SetClock(now func() time.Time) {
	w.now = now
}

// HandleProgressApplied processes a progress event from AMQP. The
// report is rebuilt from storage rather than trusting the message: the
// event only says "something changed for this work".
func (w *ExportWorker) HandleProgressApplied(ctx context.Context, msg *amqp.ProgressAppliedMessage) error {
	slog.InfoContext(ctx, "Processing progress event",
		"work_id", msg.WorkID,
		"log_id", msg.LogID,
		"weighted_progress", msg.WeightedProgress)
	return w.export(ctx, msg.WorkID)
}

// HandleBudgetUpdated processes a budget-structure event. Structural
// edits move the totals that earned value is derived from, so they
// refresh the export the same way progress does.
func (w *ExportWorker) HandleBudgetUpdated(ctx context.Context, msg *amqp.BudgetUpdatedMessage) error {
	slog.InfoContext(ctx, "Processing budget update",
		"work_id", msg.WorkID,
		"version", msg.Version)
	return w.export(ctx, msg.WorkID)
}

func (w *ExportWorker) export(ctx context.Context, workID string) error {
	if w.throttled(workID) {
		slog.DebugContext(ctx, "Export throttled, recent report is fresh enough",
			"work_id", workID, "min_interval", w.minInterval)
		return nil
	}

	report, err := w.reports.EarnedValue(ctx, workID)
	if err != nil {
		return fmt.Errorf("build report for work %s: %w", workID, err)
	}

	if w.exporter == nil {
		slog.WarnContext(ctx, "No report exporter configured, skipping export",
			"work_id", workID)
		return nil
	}

	if err := w.exporter.ExportReport(ctx, report); err != nil {
		return fmt.Errorf("export report for work %s: %w", workID, err)
	}
	w.markExported(workID)

	slog.InfoContext(ctx, "Report export completed",
		"work_id", workID,
		"total_earned_cents", report.TotalEarned.Cents,
		"weighted_progress", report.WeightedProgress)
	return nil
}

func (w *ExportWorker) throttled(workID string) bool {
	if w.minInterval <= 0 {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	last, ok := w.lastExport[workID]
	return ok && w.now().Sub(last) < w.minInterval
}

func (w *ExportWorker) markExported(workID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastExport[workID] = w.now()
}
