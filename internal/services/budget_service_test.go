package services

import (
	"context"
	"errors"
	"testing"

	"obras/internal/core"
	"obras/internal/memory"
)

func TestGetBudgetAbsentReturnsEmpty(t *testing.T) {
	svc := NewBudgetService(memory.New(), nil, nil)
	b, err := svc.GetBudget(context.Background(), "work-1")
	if err != nil {
		t.Fatalf("GetBudget: %v", err)
	}
	if b.WorkID != "work-1" || len(b.Categories) != 0 || b.TotalValue.Cents != 0 || b.Version != 0 {
		t.Errorf("expected empty unsaved budget, got %+v", b)
	}
}

func TestEditPersistsAndIncrementsVersion(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc := NewBudgetService(memory.New(), nil, pub)

	b, err := svc.AddCategory(ctx, "work-1", "Fundação")
	if err != nil {
		t.Fatalf("AddCategory: %v", err)
	}
	if b.Version != 1 {
		t.Errorf("version after first save = %d, want 1", b.Version)
	}

	catID := b.Categories[0].ID
	b, err = svc.AddItem(ctx, "work-1", catID, "Concreto usinado", "m³", core.Quantity{Milli: 12000}, core.Money{Cents: 52000})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if b.Version != 2 {
		t.Errorf("version after second save = %d, want 2", b.Version)
	}
	if b.TotalValue.Cents != 624000 {
		t.Errorf("total = %d, want 624000", b.TotalValue.Cents)
	}
	if pub.budgetEvents != 2 {
		t.Errorf("published %d budget events, want 2", pub.budgetEvents)
	}
}

func TestEditRejectionLeavesStoreUntouched(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewBudgetService(store, nil, nil)

	b, err := svc.AddCategory(ctx, "work-1", "Fundação")
	if err != nil {
		t.Fatalf("AddCategory: %v", err)
	}
	catID := b.Categories[0].ID

	if _, err := svc.AddItem(ctx, "work-1", catID, "", "m³", core.Quantity{Milli: 1000}, core.Money{Cents: 100}); !errors.Is(err, core.ErrEmptyDescription) {
		t.Fatalf("expected ErrEmptyDescription, got %v", err)
	}
	if _, err := svc.AddItem(ctx, "work-1", "missing", "Concreto", "m³", core.Quantity{Milli: 1000}, core.Money{Cents: 100}); !errors.Is(err, core.ErrCategoryNotFound) {
		t.Fatalf("expected ErrCategoryNotFound, got %v", err)
	}

	stored, err := store.GetBudget(ctx, "work-1")
	if err != nil {
		t.Fatalf("GetBudget: %v", err)
	}
	if stored.Version != 1 || len(stored.Categories[0].Items) != 0 {
		t.Errorf("rejected edits must not persist: version=%d items=%d", stored.Version, len(stored.Categories[0].Items))
	}
}

type fakeGenerator struct {
	categories []core.BudgetCategory
	err        error
}

func (g fakeGenerator) GenerateCategories(_ context.Context, _, _ string) ([]core.BudgetCategory, error) {
	return g.categories, g.err
}

func TestGenerateCategories(t *testing.T) {
	ctx := context.Background()
	gen := fakeGenerator{categories: []core.BudgetCategory{
		{
			ID:   "gen-1",
			Name: "Fundação",
			Items: []core.BudgetItem{
				{ID: "gen-1-1", Description: "Escavação", Unit: "m³", Quantity: core.Quantity{Milli: 50000}, UnitPrice: core.Money{Cents: 8000}},
			},
		},
		{ID: "gen-2", Name: "Estrutura", Items: []core.BudgetItem{}},
	}}
	svc := NewBudgetService(memory.New(), gen, nil)

	b, err := svc.GenerateCategories(ctx, "work-1", "Casa térrea", "fundação e estrutura")
	if err != nil {
		t.Fatalf("GenerateCategories: %v", err)
	}
	if len(b.Categories) != 2 {
		t.Fatalf("got %d categories, want 2", len(b.Categories))
	}
	// generated output passes through the same recompute as manual input
	if b.Categories[0].CategoryTotal.Cents != 400000 {
		t.Errorf("generated category total = %d, want 400000", b.Categories[0].CategoryTotal.Cents)
	}
	if b.TotalValue.Cents != 400000 {
		t.Errorf("budget total = %d, want 400000", b.TotalValue.Cents)
	}

	svcNoGen := NewBudgetService(memory.New(), nil, nil)
	if _, err := svcNoGen.GenerateCategories(ctx, "work-1", "x", "y"); err == nil {
		t.Error("expected error without a configured generator")
	}
}
