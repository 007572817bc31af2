// Package ports declares the outbound contracts of the budget engine.
// Adapters (SQLite, in-memory, Google Sheets) implement these; the
// services depend on nothing else.
package ports

import (
	"context"

	"obras/internal/core"
)

type (
	// BudgetRepository loads and saves the budget aggregate of a work.
	//
	// GetBudget returns core.ErrBudgetNotFound when no plan exists yet;
	// callers construct an empty aggregate instead of treating that as
	// a failure. SaveBudget checks the supplied Version against the
	// stored one and returns core.ErrVersionConflict on a mismatch;
	// on success the returned aggregate carries Version+1.
	BudgetRepository interface {
		GetBudget(ctx context.Context, workID string) (*core.WorkBudget, error)
		SaveBudget(ctx context.Context, b *core.WorkBudget) (*core.WorkBudget, error)

		// ApplyDailyLog persists a delta application atomically: the
		// budget save, the DONE transition of the originating tasks
		// and the applied-log marker all commit together or not at
		// all. A log id that was already applied yields
		// core.ErrLogAlreadyApplied and no state change.
		ApplyDailyLog(ctx context.Context, b *core.WorkBudget, logID string, completedTaskIDs []string) (*core.WorkBudget, error)
	}

	// SettingsStore persists the per-work progress-method selector.
	SettingsStore interface {
		GetProgressMethod(ctx context.Context, workID string) (core.ProgressMethod, error)
		SetProgressMethod(ctx context.Context, workID string, m core.ProgressMethod) error
	}

	// StageStore holds the lightweight tri-state schedule stages.
	StageStore interface {
		ListStages(ctx context.Context, workID string) ([]core.WorkStage, error)
		AddStage(ctx context.Context, s core.WorkStage) error
		SetStageStatus(ctx context.Context, workID, stageID string, status core.StageStatus) error
	}

	// TaskStore reads the work's tasks. The engine never creates
	// tasks; it only reads them and, through ApplyDailyLog, marks
	// them done.
	TaskStore interface {
		ListTasks(ctx context.Context, workID string) ([]core.Task, error)
		GetTask(ctx context.Context, taskID string) (*core.Task, error)
	}

	// FinanceReader is the read-only actual-spend source.
	FinanceReader interface {
		ListFinancialRecords(ctx context.Context, workID string) ([]core.FinancialRecord, error)
	}

	// CategoryGenerator is the optional bulk-generation collaborator.
	// Its output is treated exactly like operator-entered categories.
	CategoryGenerator interface {
		GenerateCategories(ctx context.Context, projectName, scopeText string) ([]core.BudgetCategory, error)
	}

	// ReportExporter pushes an earned-value report to an external
	// destination (the client dashboard feed).
	ReportExporter interface {
		ExportReport(ctx context.Context, report core.EarnedValueReport) error
	}
)
