package core

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrCategoryNotFound      = errors.New("budget category not found")
	ErrItemNotFound          = errors.New("budget item not found")
	ErrEmptyName             = errors.New("empty name")
	ErrEmptyDescription      = errors.New("empty description")
	ErrProgressOutOfRange    = errors.New("progress out of range")
	ErrNegativeDelta         = errors.New("negative progress delta")
	ErrDeltaExceedsRemaining = errors.New("progress delta exceeds remaining")
	ErrVersionConflict       = errors.New("budget version conflict")
	ErrBudgetNotFound        = errors.New("budget not found")
)

// WorkBudget is the cost breakdown of one work (construction project).
// It is persisted and versioned as a whole: categories and items are
// always edited as part of a cohesive plan, so concurrency control is
// last-write-wins over the aggregate, gated by Version.
type WorkBudget struct {
	ID         string           `json:"id"`
	WorkID     string           `json:"workId"`
	TotalValue Money            `json:"totalValue"`
	Categories []BudgetCategory `json:"categories"`
	UpdatedAt  time.Time        `json:"updatedAt"`
	Version    int64            `json:"version"`
}

// BudgetCategory is one work package ("stage") of the plan: a priced
// grouping of items plus its physical-completion percentage. Progress
// is the single source of truth for how much of the package is done.
type BudgetCategory struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Items         []BudgetItem `json:"items"`
	CategoryTotal Money        `json:"categoryTotal"`
	Progress      int          `json:"progress"`
	StartDate     *time.Time   `json:"startDate,omitempty"`
	EndDate       *time.Time   `json:"endDate,omitempty"`
}

// BudgetItem is a priced line (material or service) inside a category.
type BudgetItem struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	Unit        string   `json:"unit"`
	Quantity    Quantity `json:"quantity"`
	UnitPrice   Money    `json:"unitPrice"`
	TotalPrice  Money    `json:"totalPrice"`
}

// NewWorkBudget returns the empty plan for a work: no categories, all
// totals zero. Absence of a stored budget is not an error; callers get
// this value and start planning.
func NewWorkBudget(workID string) *WorkBudget {
	return &WorkBudget{
		ID:         uuid.NewString(),
		WorkID:     workID,
		Categories: []BudgetCategory{},
	}
}

// Recompute rebuilds every derived field bottom-up: item totals, then
// category totals, then the grand total. Calling it on a consistent
// aggregate is a no-op.
func (b *WorkBudget) Recompute() {
	total := Money{}
	for ci := range b.Categories {
		c := &b.Categories[ci]
		catTotal := Money{}
		for ii := range c.Items {
			it := &c.Items[ii]
			it.TotalPrice = it.UnitPrice.Times(it.Quantity)
			catTotal = catTotal.Add(it.TotalPrice)
		}
		c.CategoryTotal = catTotal
		total = total.Add(catTotal)
	}
	b.TotalValue = total
}

// AddCategory appends a new empty category and returns its id.
func (b *WorkBudget) AddCategory(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", ErrEmptyName
	}
	c := BudgetCategory{
		ID:    uuid.NewString(),
		Name:  name,
		Items: []BudgetItem{},
	}
	b.Categories = append(b.Categories, c)
	b.Recompute()
	return c.ID, nil
}

// RemoveCategory removes a category and its items, recomputing totals.
func (b *WorkBudget) RemoveCategory(categoryID string) error {
	for i := range b.Categories {
		if b.Categories[i].ID == categoryID {
			b.Categories = append(b.Categories[:i], b.Categories[i+1:]...)
			b.Recompute()
			return nil
		}
	}
	return ErrCategoryNotFound
}

// AddItem appends a priced line to a category and returns the item id.
// Quantity and unit price must be non-negative; zero is valid for
// placeholder lines still being estimated.
func (b *WorkBudget) AddItem(categoryID, description, unit string, qty Quantity, unitPrice Money) (string, error) {
	if strings.TrimSpace(description) == "" {
		return "", ErrEmptyDescription
	}
	if err := qty.Validate(); err != nil {
		return "", err
	}
	if err := unitPrice.Validate(); err != nil {
		return "", err
	}
	c := b.findCategory(categoryID)
	if c == nil {
		return "", ErrCategoryNotFound
	}
	it := BudgetItem{
		ID:          uuid.NewString(),
		Description: description,
		Unit:        unit,
		Quantity:    qty,
		UnitPrice:   unitPrice,
	}
	c.Items = append(c.Items, it)
	b.Recompute()
	return it.ID, nil
}

// RemoveItem removes a line from a category. Removing the last item
// leaves the category with a zero total, which is fine.
func (b *WorkBudget) RemoveItem(categoryID, itemID string) error {
	c := b.findCategory(categoryID)
	if c == nil {
		return ErrCategoryNotFound
	}
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			b.Recompute()
			return nil
		}
	}
	return ErrItemNotFound
}

// SetItemQuantity changes an item's quantity and recomputes totals.
// The aggregate is untouched when validation fails.
func (b *WorkBudget) SetItemQuantity(categoryID, itemID string, qty Quantity) error {
	if err := qty.Validate(); err != nil {
		return err
	}
	it, err := b.findItem(categoryID, itemID)
	if err != nil {
		return err
	}
	it.Quantity = qty
	b.Recompute()
	return nil
}

// SetItemUnitPrice changes an item's unit price and recomputes totals.
func (b *WorkBudget) SetItemUnitPrice(categoryID, itemID string, price Money) error {
	if err := price.Validate(); err != nil {
		return err
	}
	it, err := b.findItem(categoryID, itemID)
	if err != nil {
		return err
	}
	it.UnitPrice = price
	b.Recompute()
	return nil
}

// SetCategoryProgress is the manual operator edit: an absolute write in
// [0,100]. Decreasing is allowed, it represents a correction.
func (b *WorkBudget) SetCategoryProgress(categoryID string, progress int) error {
	if progress < 0 || progress > 100 {
		return ErrProgressOutOfRange
	}
	c := b.findCategory(categoryID)
	if c == nil {
		return ErrCategoryNotFound
	}
	c.Progress = progress
	return nil
}

// ApplyProgressDelta folds a field-reported completion increment into a
// category, clamped at 100. Deltas are non-negative by construction of
// field reports; a negative one is rejected before any mutation.
func (b *WorkBudget) ApplyProgressDelta(categoryID string, delta int) (int, error) {
	if delta < 0 {
		return 0, ErrNegativeDelta
	}
	c := b.findCategory(categoryID)
	if c == nil {
		return 0, ErrCategoryNotFound
	}
	p := c.Progress + delta
	if p > 100 {
		p = 100
	}
	c.Progress = p
	return p, nil
}

// CategoryProgress returns the stored progress of a category.
func (b *WorkBudget) CategoryProgress(categoryID string) (int, error) {
	c := b.findCategory(categoryID)
	if c == nil {
		return 0, ErrCategoryNotFound
	}
	return c.Progress, nil
}

// Weight returns a category's share of the total budget in percent.
// An unpriced category weighs nothing regardless of its progress, so a
// placeholder cannot distort the work-level percentage.
func (b *WorkBudget) Weight(c *BudgetCategory) float64 {
	if b.TotalValue.Cents == 0 {
		return 0
	}
	return float64(c.CategoryTotal.Cents) / float64(b.TotalValue.Cents) * 100
}

// WeightedProgress rolls category progress up into one work-level
// percentage, each category weighted by its share of the total budget.
// This is the figure that agrees with TotalEarned / TotalValue.
func (b *WorkBudget) WeightedProgress() float64 {
	if b.TotalValue.Cents == 0 {
		return 0
	}
	sum := 0.0
	for i := range b.Categories {
		c := &b.Categories[i]
		sum += float64(c.Progress) * b.Weight(c)
	}
	return sum / 100
}

func (b *WorkBudget) findCategory(categoryID string) *BudgetCategory {
	for i := range b.Categories {
		if b.Categories[i].ID == categoryID {
			return &b.Categories[i]
		}
	}
	return nil
}

func (b *WorkBudget) findItem(categoryID, itemID string) (*BudgetItem, error) {
	c := b.findCategory(categoryID)
	if c == nil {
		return nil, ErrCategoryNotFound
	}
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			return &c.Items[i], nil
		}
	}
	return nil, ErrItemNotFound
}
