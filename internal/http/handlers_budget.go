package http

import (
	"net/http"

	"obras/internal/core"
	"obras/internal/log"
)

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	b, err := s.budgets.GetBudget(r.Context(), r.PathValue("workId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

type addCategoryRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	var req addCategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	b, err := s.budgets.AddCategory(r.Context(), r.PathValue("workId"), sanitizeInput(req.Name))
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateReport(b.WorkID)
	s.logs.LogBudgetSaved(r.Context(), b.WorkID, b.Version, b.TotalValue.Cents)
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) handleRemoveCategory(w http.ResponseWriter, r *http.Request) {
	b, err := s.budgets.RemoveCategory(r.Context(), r.PathValue("workId"), r.PathValue("categoryId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateReport(b.WorkID)
	s.logs.LogBudgetSaved(r.Context(), b.WorkID, b.Version, b.TotalValue.Cents)
	writeJSON(w, http.StatusOK, b)
}

// Quantities and prices travel as decimal strings ("12.5", "450,00") so
// clients never do float arithmetic on money.
type addItemRequest struct {
	Description string `json:"description"`
	Unit        string `json:"unit"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unitPrice"`
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	milli, err := core.ParseQuantity(req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	cents, err := core.ParseDecimalToCents(req.UnitPrice)
	if err != nil {
		writeError(w, r, err)
		return
	}

	qty := core.Quantity{Milli: milli}
	b, err := s.budgets.AddItem(r.Context(),
		r.PathValue("workId"), r.PathValue("categoryId"),
		sanitizeInput(req.Description), sanitizeInput(req.Unit),
		qty, core.Money{Cents: cents})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateReport(b.WorkID)
	log.FromContext(r.Context()).InfoContext(r.Context(), "Budget item added",
		log.FieldWorkID, b.WorkID,
		log.FieldCategoryID, r.PathValue("categoryId"),
		"unit", sanitizeInput(req.Unit),
		"quantity_units", qty.Units())
	s.logs.LogBudgetSaved(r.Context(), b.WorkID, b.Version, b.TotalValue.Cents)
	writeJSON(w, http.StatusCreated, b)
}

// updateItemRequest carries exactly one field change; quantity and unit
// price edits are separate operations even when sent together.
type updateItemRequest struct {
	Quantity  *string `json:"quantity,omitempty"`
	UnitPrice *string `json:"unitPrice,omitempty"`
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	workID := r.PathValue("workId")
	categoryID := r.PathValue("categoryId")
	itemID := r.PathValue("itemId")

	var b *core.WorkBudget
	var err error
	switch {
	case req.Quantity != nil:
		var milli int64
		if milli, err = core.ParseQuantity(*req.Quantity); err == nil {
			qty := core.Quantity{Milli: milli}
			if b, err = s.budgets.SetItemQuantity(r.Context(), workID, categoryID, itemID, qty); err == nil {
				log.FromContext(r.Context()).InfoContext(r.Context(), "Budget item quantity changed",
					log.FieldWorkID, workID,
					log.FieldItemID, itemID,
					"quantity_units", qty.Units())
			}
		}
	case req.UnitPrice != nil:
		var cents int64
		if cents, err = core.ParseDecimalToCents(*req.UnitPrice); err == nil {
			b, err = s.budgets.SetItemUnitPrice(r.Context(), workID, categoryID, itemID, core.Money{Cents: cents})
		}
	default:
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "quantity or unitPrice is required"})
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateReport(b.WorkID)
	s.logs.LogBudgetSaved(r.Context(), b.WorkID, b.Version, b.TotalValue.Cents)
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	b, err := s.budgets.RemoveItem(r.Context(), r.PathValue("workId"), r.PathValue("categoryId"), r.PathValue("itemId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateReport(b.WorkID)
	s.logs.LogBudgetSaved(r.Context(), b.WorkID, b.Version, b.TotalValue.Cents)
	writeJSON(w, http.StatusOK, b)
}

type generateCategoriesRequest struct {
	ProjectName string `json:"projectName"`
	ScopeText   string `json:"scopeText"`
}

func (s *Server) handleGenerateCategories(w http.ResponseWriter, r *http.Request) {
	var req generateCategoriesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	b, err := s.budgets.GenerateCategories(r.Context(), r.PathValue("workId"),
		sanitizeInput(req.ProjectName), sanitizeInput(req.ScopeText))
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateReport(b.WorkID)
	s.logs.LogBudgetSaved(r.Context(), b.WorkID, b.Version, b.TotalValue.Cents)
	writeJSON(w, http.StatusCreated, b)
}
