package core

import "time"

type RecordType string

const (
	RecordExpense RecordType = "EXPENSE"
	RecordIncome  RecordType = "INCOME"
)

type RecordStatus string

const (
	RecordPending RecordStatus = "PENDING"
	RecordPaid    RecordStatus = "PAID"
)

// FinancialRecord is a read-only input from the finance side of the
// system: an expense or income entry, optionally tied to a budget
// category. The engine never writes these.
type FinancialRecord struct {
	ID                string       `json:"id"`
	WorkID            string       `json:"workId"`
	Type              RecordType   `json:"type"`
	Status            RecordStatus `json:"status"`
	Amount            Money        `json:"amount"`
	RelatedCategoryID string       `json:"relatedBudgetCategoryId,omitempty"`
	Description       string       `json:"description,omitempty"`
	Date              time.Time    `json:"date"`
}
