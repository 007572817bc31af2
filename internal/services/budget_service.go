package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"obras/internal/core"
	"obras/internal/ports"
)

// EventPublisher is the notification side-channel. Delivery is best
// effort: a publish failure never fails the originating operation.
type EventPublisher interface {
	PublishBudgetUpdated(ctx context.Context, workID string, version int64) error
	PublishProgressApplied(ctx context.Context, workID, logID string, weightedProgress float64) error
}

// BudgetService orchestrates cost-model edits: load the aggregate,
// apply the pure transform, save with the version that was read, and
// announce the change. Version conflicts propagate to the caller, who
// reloads and retries; the engine never auto-merges.
type BudgetService struct {
	repo      ports.BudgetRepository
	generator ports.CategoryGenerator
	events    EventPublisher
}

func NewBudgetService(repo ports.BudgetRepository, generator ports.CategoryGenerator, events EventPublisher) *BudgetService {
	return &BudgetService{
		repo:      repo,
		generator: generator,
		events:    events,
	}
}

// GetBudget returns the stored plan, or an empty one when no plan
// exists yet. Absence is a normal planning state, not an error.
func (s *BudgetService) GetBudget(ctx context.Context, workID string) (*core.WorkBudget, error) {
	b, err := s.repo.GetBudget(ctx, workID)
	if errors.Is(err, core.ErrBudgetNotFound) {
		return core.NewWorkBudget(workID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get budget: %w", err)
	}
	return b, nil
}

// AddCategory appends an empty work package and persists the plan.
func (s *BudgetService) AddCategory(ctx context.Context, workID, name string) (*core.WorkBudget, error) {
	return s.edit(ctx, workID, "add_category", func(b *core.WorkBudget) error {
		_, err := b.AddCategory(name)
		return err
	})
}

// RemoveCategory drops a work package and its items.
func (s *BudgetService) RemoveCategory(ctx context.Context, workID, categoryID string) (*core.WorkBudget, error) {
	return s.edit(ctx, workID, "remove_category", func(b *core.WorkBudget) error {
		return b.RemoveCategory(categoryID)
	})
}

// AddItem appends a priced line to a category.
func (s *BudgetService) AddItem(ctx context.Context, workID, categoryID, description, unit string, qty core.Quantity, unitPrice core.Money) (*core.WorkBudget, error) {
	return s.edit(ctx, workID, "add_item", func(b *core.WorkBudget) error {
		_, err := b.AddItem(categoryID, description, unit, qty, unitPrice)
		return err
	})
}

// RemoveItem drops a line from a category.
func (s *BudgetService) RemoveItem(ctx context.Context, workID, categoryID, itemID string) (*core.WorkBudget, error) {
	return s.edit(ctx, workID, "remove_item", func(b *core.WorkBudget) error {
		return b.RemoveItem(categoryID, itemID)
	})
}

// SetItemQuantity changes a line's quantity.
func (s *BudgetService) SetItemQuantity(ctx context.Context, workID, categoryID, itemID string, qty core.Quantity) (*core.WorkBudget, error) {
	return s.edit(ctx, workID, "set_item_quantity", func(b *core.WorkBudget) error {
		return b.SetItemQuantity(categoryID, itemID, qty)
	})
}

// SetItemUnitPrice changes a line's unit price.
func (s *BudgetService) SetItemUnitPrice(ctx context.Context, workID, categoryID, itemID string, price core.Money) (*core.WorkBudget, error) {
	return s.edit(ctx, workID, "set_item_unit_price", func(b *core.WorkBudget) error {
		return b.SetItemUnitPrice(categoryID, itemID, price)
	})
}

// GenerateCategories asks the external generator for a category set and
// folds it into the plan. The output gets no special treatment: it goes
// through the same recompute and invariants as operator input.
func (s *BudgetService) GenerateCategories(ctx context.Context, workID, projectName, scopeText string) (*core.WorkBudget, error) {
	if s.generator == nil {
		return nil, errors.New("no category generator configured")
	}
	generated, err := s.generator.GenerateCategories(ctx, projectName, scopeText)
	if err != nil {
		return nil, fmt.Errorf("generate categories: %w", err)
	}
	return s.edit(ctx, workID, "generate_categories", func(b *core.WorkBudget) error {
		b.Categories = append(b.Categories, generated...)
		b.Recompute()
		return nil
	})
}

// edit is the shared load-transform-save path. The transform is pure
// over the in-memory aggregate, so a rejected edit leaves no partial
// state; the save carries the version that was read.
func (s *BudgetService) edit(ctx context.Context, workID, op string, transform func(*core.WorkBudget) error) (*core.WorkBudget, error) {
	b, err := s.GetBudget(ctx, workID)
	if err != nil {
		return nil, err
	}
	if err := transform(b); err != nil {
		return nil, err
	}
	saved, err := s.repo.SaveBudget(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("save budget: %w", err)
	}

	slog.InfoContext(ctx, "Budget updated",
		"work_id", workID,
		"operation", op,
		"version", saved.Version,
		"total_value_cents", saved.TotalValue.Cents)

	s.publishUpdated(ctx, workID, saved.Version)
	return saved, nil
}

func (s *BudgetService) publishUpdated(ctx context.Context, workID string, version int64) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishBudgetUpdated(ctx, workID, version); err != nil {
		slog.ErrorContext(ctx, "Failed to publish budget update",
			"work_id", workID, "version", version, "error", err)
	}
}
