package core

import "time"

// Earned value formulas. All of these are total functions: a zero
// category total yields zero earned regardless of progress, which is
// the intended degenerate behavior of the formula, not a special case.

// Earned is the budgeted cost of a category scaled by its physical
// completion: categoryTotal * progress / 100.
func Earned(c BudgetCategory) Money {
	return c.CategoryTotal.Percent(c.Progress)
}

// TotalEarned sums earned value across all categories of a budget.
func TotalEarned(b *WorkBudget) Money {
	total := Money{}
	for i := range b.Categories {
		total = total.Add(Earned(b.Categories[i]))
	}
	return total
}

// ActualSpend sums expense records tied to a category. Both pending and
// paid expenses count: the figure shows committed cost, not cash paid.
// Income records and records tied to other categories are excluded.
func ActualSpend(categoryID string, records []FinancialRecord) Money {
	total := Money{}
	for _, r := range records {
		if r.Type != RecordExpense {
			continue
		}
		if r.RelatedCategoryID != categoryID {
			continue
		}
		total = total.Add(r.Amount)
	}
	return total
}

// Variance is actual spend minus earned value. Positive means spending
// is outpacing the physical progress achieved.
func Variance(c BudgetCategory, records []FinancialRecord) Money {
	return ActualSpend(c.ID, records).Sub(Earned(c))
}

// TaskEarned is the task-granularity earned value for tasks carrying
// their own cost allocation. Tasks without one earn nothing here.
func TaskEarned(t Task) Money {
	if t.EstimatedCost == nil {
		return Money{}
	}
	return t.EstimatedCost.Percent(t.PhysicalProgress)
}

// TotalTaskEarned sums task-level earned value. Tasks and categories
// are only loosely linked, so this total and TotalEarned are not
// guaranteed to agree; callers must not assume reconcilability.
func TotalTaskEarned(tasks []Task) Money {
	total := Money{}
	for _, t := range tasks {
		total = total.Add(TaskEarned(t))
	}
	return total
}

// CategoryEarnedValue is one row of the budgeted-vs-actual view.
type CategoryEarnedValue struct {
	CategoryID  string  `json:"categoryId"`
	Name        string  `json:"name"`
	Budgeted    Money   `json:"budgeted"`
	Progress    int     `json:"progress"`
	Weight      float64 `json:"weight"`
	Earned      Money   `json:"earned"`
	ActualSpend Money   `json:"actualSpend"`
	Variance    Money   `json:"variance"`
}

// EarnedValueReport compares money earned by physical progress against
// actual recorded expenditure, per category and in total. TaskEarned is
// the independent task-granularity figure; it does not reconcile with
// TotalEarned and is reported separately on purpose.
type EarnedValueReport struct {
	WorkID           string                `json:"workId"`
	GeneratedAt      time.Time             `json:"generatedAt"`
	TotalBudget      Money                 `json:"totalBudget"`
	TotalEarned      Money                 `json:"totalEarned"`
	TotalSpend       Money                 `json:"totalSpend"`
	TotalVariance    Money                 `json:"totalVariance"`
	WeightedProgress float64               `json:"weightedProgress"`
	Categories       []CategoryEarnedValue `json:"categories"`
	TaskEarned       Money                 `json:"taskEarned"`
}

// BuildEarnedValueReport assembles the full budgeted-vs-actual view
// from a budget snapshot, the work's financial records and its tasks.
func BuildEarnedValueReport(b *WorkBudget, records []FinancialRecord, tasks []Task, now time.Time) EarnedValueReport {
	report := EarnedValueReport{
		WorkID:           b.WorkID,
		GeneratedAt:      now,
		TotalBudget:      b.TotalValue,
		WeightedProgress: b.WeightedProgress(),
		Categories:       make([]CategoryEarnedValue, 0, len(b.Categories)),
		TaskEarned:       TotalTaskEarned(tasks),
	}
	for i := range b.Categories {
		c := &b.Categories[i]
		earned := Earned(*c)
		spend := ActualSpend(c.ID, records)
		report.Categories = append(report.Categories, CategoryEarnedValue{
			CategoryID:  c.ID,
			Name:        c.Name,
			Budgeted:    c.CategoryTotal,
			Progress:    c.Progress,
			Weight:      b.Weight(c),
			Earned:      earned,
			ActualSpend: spend,
			Variance:    spend.Sub(earned),
		})
		report.TotalEarned = report.TotalEarned.Add(earned)
		report.TotalSpend = report.TotalSpend.Add(spend)
	}
	report.TotalVariance = report.TotalSpend.Sub(report.TotalEarned)
	return report
}
