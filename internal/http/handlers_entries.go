package http

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

type entryResponse struct {
	ID          string            `json:"id"`
	CategoryID  string            `json:"categoryId"`
	Category    *categoryResponse `json:"category,omitempty"`
	Kind        core.Kind         `json:"kind"`
	Amount      decimal.Decimal   `json:"amount"`
	Currency    string            `json:"currency"`
	Description string            `json:"description"`
	OccurredOn  time.Time         `json:"occurredOn"`
	CreatedAt   time.Time         `json:"createdAt"`
}

type categoryResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Kind      core.Kind `json:"kind"`
	Icon      string    `json:"icon"`
	Color     string    `json:"color"`
	IsDefault bool      `json:"isDefault"`
}

func toEntryResponse(e core.Entry) entryResponse {
	return entryResponse{
		ID:          e.ID,
		CategoryID:  e.CategoryID,
		Category:    toCategoryResponse(e.Category),
		Kind:        e.Kind,
		Amount:      e.Amount,
		Currency:    e.Currency,
		Description: e.Description,
		OccurredOn:  e.OccurredOn,
		CreatedAt:   e.CreatedAt,
	}
}

func toCategoryResponse(c *core.Category) *categoryResponse {
	if c == nil {
		return nil
	}
	return &categoryResponse{
		ID:        c.ID,
		Name:      c.Name,
		Kind:      c.Kind,
		Icon:      c.Icon,
		Color:     c.Color,
		IsDefault: c.IsDefault,
	}
}

func toEntryResponses(entries []core.Entry) []entryResponse {
	out := make([]entryResponse, len(entries))
	for i, e := range entries {
		out[i] = toEntryResponse(e)
	}
	return out
}

type entryPageResponse struct {
	Entries    []entryResponse `json:"entries"`
	Total      int             `json:"total"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	TotalPages int             `json:"totalPages"`
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	limit, err := queryInt(r, "limit", 20)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	req := services.EntryListRequest{
		CategoryID: r.URL.Query().Get("categoryId"),
		Kind:       core.Kind(r.URL.Query().Get("kind")),
		Page:       page,
		Limit:      limit,
	}
	if raw := r.URL.Query().Get("dateFrom"); raw != "" {
		if req.From, err = parseDate(raw); err != nil {
			writeError(w, r, err)
			return
		}
	}
	if raw := r.URL.Query().Get("dateTo"); raw != "" {
		if req.To, err = parseDate(raw); err != nil {
			writeError(w, r, err)
			return
		}
	}

	result, err := s.ledger.List(r.Context(), ownerFromContext(r.Context()), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, entryPageResponse{
		Entries:    toEntryResponses(result.Entries),
		Total:      result.Total,
		Page:       result.Page,
		Limit:      result.Limit,
		TotalPages: result.TotalPages,
	})
}

type createEntryRequest struct {
	CategoryID  string          `json:"categoryId"`
	Kind        core.Kind       `json:"kind"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
	Date        string          `json:"date"`
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var body createEntryRequest
	if err := decodeJSON(r, &body); err != nil {
		writeBadRequest(w, "malformed request body")
		return
	}

	req := services.CreateEntryRequest{
		CategoryID:  body.CategoryID,
		Kind:        body.Kind,
		Amount:      body.Amount,
		Currency:    body.Currency,
		Description: body.Description,
	}
	if body.Date != "" {
		occurred, err := parseDate(body.Date)
		if err != nil {
			writeError(w, r, err)
			return
		}
		req.OccurredOn = occurred
	}

	entry, err := s.ledger.Create(r.Context(), ownerFromContext(r.Context()), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEntryResponse(entry))
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := s.ledger.Get(r.Context(), ownerFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryResponse(entry))
}

type updateEntryRequest struct {
	CategoryID  *string          `json:"categoryId"`
	Kind        *core.Kind       `json:"kind"`
	Amount      *decimal.Decimal `json:"amount"`
	Currency    *string          `json:"currency"`
	Description *string          `json:"description"`
	Date        *string          `json:"date"`
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	var body updateEntryRequest
	if err := decodeJSON(r, &body); err != nil {
		writeBadRequest(w, "malformed request body")
		return
	}

	req := services.UpdateEntryRequest{
		CategoryID:  body.CategoryID,
		Kind:        body.Kind,
		Amount:      body.Amount,
		Currency:    body.Currency,
		Description: body.Description,
	}
	// An empty date string means "keep the stored date".
	if body.Date != nil && *body.Date != "" {
		occurred, err := parseDate(*body.Date)
		if err != nil {
			writeError(w, r, err)
			return
		}
		req.OccurredOn = &occurred
	}

	entry, err := s.ledger.Update(r.Context(), ownerFromContext(r.Context()), r.PathValue("id"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryResponse(entry))
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.Delete(r.Context(), ownerFromContext(r.Context()), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := s.ledger.GetBalance(r.Context(), ownerFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		TotalIncome  decimal.Decimal `json:"totalIncome"`
		TotalExpense decimal.Decimal `json:"totalExpense"`
		Balance      decimal.Decimal `json:"balance"`
	}{balance.TotalIncome, balance.TotalExpense, balance.Balance})
}

func (s *Server) handleGetRecent(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	entries, err := s.ledger.GetRecent(r.Context(), ownerFromContext(r.Context()), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryResponses(entries))
}
