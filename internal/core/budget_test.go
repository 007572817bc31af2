package core

import (
	"errors"
	"testing"
)

func buildBudget(t *testing.T) (*WorkBudget, string) {
	t.Helper()
	b := NewWorkBudget("work-1")
	catID, err := b.AddCategory("Fundação")
	if err != nil {
		t.Fatalf("AddCategory: %v", err)
	}
	return b, catID
}

func checkConsistent(t *testing.T, b *WorkBudget) {
	t.Helper()
	total := int64(0)
	for _, c := range b.Categories {
		catTotal := int64(0)
		for _, it := range c.Items {
			want := it.UnitPrice.Times(it.Quantity)
			if it.TotalPrice != want {
				t.Errorf("item %q total = %d, want %d", it.Description, it.TotalPrice.Cents, want.Cents)
			}
			catTotal += it.TotalPrice.Cents
		}
		if c.CategoryTotal.Cents != catTotal {
			t.Errorf("category %q total = %d, want %d", c.Name, c.CategoryTotal.Cents, catTotal)
		}
		total += c.CategoryTotal.Cents
	}
	if b.TotalValue.Cents != total {
		t.Errorf("budget total = %d, want %d", b.TotalValue.Cents, total)
	}
}

func TestEmptyBudget(t *testing.T) {
	b := NewWorkBudget("work-1")
	if b.TotalValue.Cents != 0 {
		t.Errorf("empty budget total = %d, want 0", b.TotalValue.Cents)
	}
	if got := b.WeightedProgress(); got != 0 {
		t.Errorf("empty budget weighted progress = %v, want 0", got)
	}
}

func TestAddItemRecomputesTotals(t *testing.T) {
	b, catID := buildBudget(t)

	// R$ 5.000 + R$ 3.000 + R$ 2.000 = R$ 10.000
	for _, line := range []struct {
		desc  string
		cents int64
	}{
		{"Escavação", 500000},
		{"Concreto", 300000},
		{"Armação", 200000},
	} {
		if _, err := b.AddItem(catID, line.desc, "vb", Quantity{Milli: 1000}, Money{Cents: line.cents}); err != nil {
			t.Fatalf("AddItem(%q): %v", line.desc, err)
		}
	}

	if b.Categories[0].CategoryTotal.Cents != 1000000 {
		t.Errorf("category total = %d, want 1000000", b.Categories[0].CategoryTotal.Cents)
	}
	if b.TotalValue.Cents != 1000000 {
		t.Errorf("budget total = %d, want 1000000", b.TotalValue.Cents)
	}
	checkConsistent(t, b)
}

func TestSetItemQuantityAndPrice(t *testing.T) {
	b, catID := buildBudget(t)
	itemID, err := b.AddItem(catID, "Alvenaria", "m²", Quantity{Milli: 10000}, Money{Cents: 5000})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	if err := b.SetItemQuantity(catID, itemID, Quantity{Milli: 20000}); err != nil {
		t.Fatalf("SetItemQuantity: %v", err)
	}
	if b.TotalValue.Cents != 100000 {
		t.Errorf("total after quantity edit = %d, want 100000", b.TotalValue.Cents)
	}

	if err := b.SetItemUnitPrice(catID, itemID, Money{Cents: 10000}); err != nil {
		t.Fatalf("SetItemUnitPrice: %v", err)
	}
	if b.TotalValue.Cents != 200000 {
		t.Errorf("total after price edit = %d, want 200000", b.TotalValue.Cents)
	}
	checkConsistent(t, b)

	if err := b.SetItemQuantity(catID, "missing", Quantity{Milli: 1}); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound, got %v", err)
	}
	if err := b.SetItemQuantity("missing", itemID, Quantity{Milli: 1}); !errors.Is(err, ErrCategoryNotFound) {
		t.Errorf("expected ErrCategoryNotFound, got %v", err)
	}
	if err := b.SetItemQuantity(catID, itemID, Quantity{Milli: -1}); !errors.Is(err, ErrInvalidQuantity) {
		t.Errorf("expected ErrInvalidQuantity, got %v", err)
	}
	// rejected edit must not have touched the aggregate
	if b.TotalValue.Cents != 200000 {
		t.Errorf("total changed after rejected edit: %d", b.TotalValue.Cents)
	}
}

func TestRemoveLastItemLeavesZeroTotal(t *testing.T) {
	b, catID := buildBudget(t)
	itemID, err := b.AddItem(catID, "Impermeabilização", "m²", Quantity{Milli: 1000}, Money{Cents: 9900})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if err := b.RemoveItem(catID, itemID); err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	if b.Categories[0].CategoryTotal.Cents != 0 {
		t.Errorf("category total after removing last item = %d, want 0", b.Categories[0].CategoryTotal.Cents)
	}
	checkConsistent(t, b)
}

func TestRemoveCategory(t *testing.T) {
	b, catID := buildBudget(t)
	if _, err := b.AddItem(catID, "Concreto", "m³", Quantity{Milli: 1000}, Money{Cents: 100}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if err := b.RemoveCategory(catID); err != nil {
		t.Fatalf("RemoveCategory: %v", err)
	}
	if len(b.Categories) != 0 || b.TotalValue.Cents != 0 {
		t.Errorf("budget not empty after removing only category")
	}
	if err := b.RemoveCategory(catID); !errors.Is(err, ErrCategoryNotFound) {
		t.Errorf("expected ErrCategoryNotFound, got %v", err)
	}
}

func TestRecomputeIdempotent(t *testing.T) {
	b, catID := buildBudget(t)
	if _, err := b.AddItem(catID, "Concreto", "m³", Quantity{Milli: 12500}, Money{Cents: 45000}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	before := b.TotalValue
	b.Recompute()
	b.Recompute()
	if b.TotalValue != before {
		t.Errorf("Recompute changed a consistent aggregate: %d -> %d", before.Cents, b.TotalValue.Cents)
	}
}

func TestSetCategoryProgress(t *testing.T) {
	b, catID := buildBudget(t)

	tests := []struct {
		name    string
		value   int
		wantErr error
	}{
		{"valid", 40, nil},
		{"zero", 0, nil},
		{"full", 100, nil},
		{"decrease allowed", 10, nil},
		{"negative", -1, ErrProgressOutOfRange},
		{"over 100", 101, ErrProgressOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := b.SetCategoryProgress(catID, tt.value)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("SetCategoryProgress(%d): %v", tt.value, err)
			}
			if got, _ := b.CategoryProgress(catID); got != tt.value {
				t.Errorf("progress = %d, want %d", got, tt.value)
			}
		})
	}

	if err := b.SetCategoryProgress("missing", 50); !errors.Is(err, ErrCategoryNotFound) {
		t.Errorf("expected ErrCategoryNotFound, got %v", err)
	}
}

func TestApplyProgressDeltaClamps(t *testing.T) {
	b, catID := buildBudget(t)
	if err := b.SetCategoryProgress(catID, 70); err != nil {
		t.Fatalf("SetCategoryProgress: %v", err)
	}

	got, err := b.ApplyProgressDelta(catID, 15)
	if err != nil || got != 85 {
		t.Fatalf("delta 15: got %d, %v; want 85", got, err)
	}
	got, err = b.ApplyProgressDelta(catID, 20)
	if err != nil || got != 100 {
		t.Fatalf("delta 20: got %d, %v; want clamp at 100", got, err)
	}

	if _, err := b.ApplyProgressDelta(catID, -5); !errors.Is(err, ErrNegativeDelta) {
		t.Errorf("expected ErrNegativeDelta, got %v", err)
	}
	if _, err := b.ApplyProgressDelta("missing", 5); !errors.Is(err, ErrCategoryNotFound) {
		t.Errorf("expected ErrCategoryNotFound, got %v", err)
	}
}

func TestWeightedProgress(t *testing.T) {
	// two categories weighing 70% and 30%, progress 50% and 100%
	b := NewWorkBudget("work-1")
	catA, _ := b.AddCategory("Estrutura")
	catB, _ := b.AddCategory("Acabamento")
	if _, err := b.AddItem(catA, "Concreto", "m³", Quantity{Milli: 1000}, Money{Cents: 700000}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if _, err := b.AddItem(catB, "Pintura", "m²", Quantity{Milli: 1000}, Money{Cents: 300000}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if err := b.SetCategoryProgress(catA, 50); err != nil {
		t.Fatalf("SetCategoryProgress: %v", err)
	}
	if err := b.SetCategoryProgress(catB, 100); err != nil {
		t.Fatalf("SetCategoryProgress: %v", err)
	}

	if got := b.WeightedProgress(); got != 65 {
		t.Errorf("WeightedProgress() = %v, want 65", got)
	}
}

func TestZeroTotalCategoryHasNoWeight(t *testing.T) {
	b := NewWorkBudget("work-1")
	priced, _ := b.AddCategory("Estrutura")
	placeholder, _ := b.AddCategory("A definir")
	if _, err := b.AddItem(priced, "Concreto", "m³", Quantity{Milli: 1000}, Money{Cents: 100000}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if err := b.SetCategoryProgress(priced, 50); err != nil {
		t.Fatalf("SetCategoryProgress: %v", err)
	}
	if err := b.SetCategoryProgress(placeholder, 100); err != nil {
		t.Fatalf("SetCategoryProgress: %v", err)
	}

	if got := b.Weight(&b.Categories[1]); got != 0 {
		t.Errorf("placeholder weight = %v, want 0", got)
	}
	if got := b.WeightedProgress(); got != 50 {
		t.Errorf("WeightedProgress() = %v, want 50 (placeholder must not distort)", got)
	}
}
