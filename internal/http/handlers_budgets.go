package http

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

type budgetResponse struct {
	ID         string            `json:"id"`
	CategoryID string            `json:"categoryId"`
	Category   *categoryResponse `json:"category,omitempty"`
	Amount     decimal.Decimal   `json:"amount"`
	Month      int               `json:"month"`
	Year       int               `json:"year"`
	CreatedAt  time.Time         `json:"createdAt"`
}

func toBudgetResponse(b core.Budget) budgetResponse {
	return budgetResponse{
		ID:         b.ID,
		CategoryID: b.CategoryID,
		Category:   toCategoryResponse(b.Category),
		Amount:     b.Amount,
		Month:      b.Month,
		Year:       b.Year,
		CreatedAt:  b.CreatedAt,
	}
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	month, err := queryInt(r, "month", 0)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	year, err := queryInt(r, "year", 0)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	budgets, err := s.budgets.List(r.Context(), ownerFromContext(r.Context()), month, year)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]budgetResponse, len(budgets))
	for i, b := range budgets {
		out[i] = toBudgetResponse(b)
	}
	writeJSON(w, http.StatusOK, out)
}

type createBudgetRequest struct {
	CategoryID string          `json:"categoryId"`
	Amount     decimal.Decimal `json:"amount"`
	Month      int             `json:"month"`
	Year       int             `json:"year"`
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var body createBudgetRequest
	if err := decodeJSON(r, &body); err != nil {
		writeBadRequest(w, "malformed request body")
		return
	}

	budget, err := s.budgets.Create(r.Context(), ownerFromContext(r.Context()),
		body.CategoryID, body.Amount, body.Month, body.Year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBudgetResponse(budget))
}

type updateBudgetRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	var body updateBudgetRequest
	if err := decodeJSON(r, &body); err != nil {
		writeBadRequest(w, "malformed request body")
		return
	}

	budget, err := s.budgets.Update(r.Context(), ownerFromContext(r.Context()), r.PathValue("id"), body.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBudgetResponse(budget))
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	if err := s.budgets.Delete(r.Context(), ownerFromContext(r.Context()), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type budgetStatusResponse struct {
	BudgetID     string            `json:"budgetId"`
	Category     *categoryResponse `json:"category,omitempty"`
	BudgetAmount decimal.Decimal   `json:"budgetAmount"`
	SpentAmount  decimal.Decimal   `json:"spentAmount"`
	Remaining    decimal.Decimal   `json:"remaining"`
	Percentage   int               `json:"percentage"`
	IsOverBudget bool              `json:"isOverBudget"`
}

func (s *Server) handleBudgetStatus(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	month, err := queryInt(r, "month", int(now.Month()))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	year, err := queryInt(r, "year", now.Year())
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	statuses, err := s.budgets.GetStatus(r.Context(), ownerFromContext(r.Context()), month, year)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]budgetStatusResponse, len(statuses))
	for i, st := range statuses {
		out[i] = budgetStatusResponse{
			BudgetID:     st.BudgetID,
			Category:     toCategoryResponse(st.Category),
			BudgetAmount: st.BudgetAmount,
			SpentAmount:  st.SpentAmount,
			Remaining:    st.Remaining,
			Percentage:   st.Percentage,
			IsOverBudget: st.IsOverBudget,
		}
	}
	writeJSON(w, http.StatusOK, out)
}
