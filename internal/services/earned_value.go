package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"obras/internal/core"
	"obras/internal/ports"
)

// ReportService assembles the budgeted-vs-actual view: the budget
// snapshot on one side, the work's expense records and tasks on the
// other. All the arithmetic lives in core; this service only gathers
// the inputs.
type ReportService struct {
	repo    ports.BudgetRepository
	finance ports.FinanceReader
	tasks   ports.TaskStore
	now     func() time.Time
}

func NewReportService(repo ports.BudgetRepository, finance ports.FinanceReader, tasks ports.TaskStore) *ReportService {
	return &ReportService{
		repo:    repo,
		finance: finance,
		tasks:   tasks,
		now:     time.Now,
	}
}

// EarnedValue builds the report for a work. A work without a stored
// plan gets the empty-budget report: all totals zero, no rows.
func (s *ReportService) EarnedValue(ctx context.Context, workID string) (core.EarnedValueReport, error) {
	b, err := s.repo.GetBudget(ctx, workID)
	if errors.Is(err, core.ErrBudgetNotFound) {
		b = core.NewWorkBudget(workID)
	} else if err != nil {
		return core.EarnedValueReport{}, fmt.Errorf("get budget: %w", err)
	}

	records, err := s.finance.ListFinancialRecords(ctx, workID)
	if err != nil {
		return core.EarnedValueReport{}, fmt.Errorf("list financial records: %w", err)
	}
	tasks, err := s.tasks.ListTasks(ctx, workID)
	if err != nil {
		return core.EarnedValueReport{}, fmt.Errorf("list tasks: %w", err)
	}

	return core.BuildEarnedValueReport(b, records, tasks, s.now()), nil
}
