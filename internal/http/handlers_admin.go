package http

import (
	"net/http"
	"strconv"
	"time"

	"fintrack/internal/core"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.categories.List(r.Context(), ownerFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]categoryResponse, len(categories))
	for i, c := range categories {
		out[i] = *toCategoryResponse(&c)
	}
	writeJSON(w, http.StatusOK, out)
}

type categoryRequest struct {
	Name  string    `json:"name"`
	Kind  core.Kind `json:"kind"`
	Icon  string    `json:"icon"`
	Color string    `json:"color"`
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var body categoryRequest
	if err := decodeJSON(r, &body); err != nil {
		writeBadRequest(w, "malformed request body")
		return
	}

	created, err := s.categories.Create(r.Context(), ownerFromContext(r.Context()), core.Category{
		Name:  body.Name,
		Kind:  body.Kind,
		Icon:  body.Icon,
		Color: body.Color,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCategoryResponse(&created))
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	category, err := s.categories.Get(r.Context(), ownerFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryResponse(&category))
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var body categoryRequest
	if err := decodeJSON(r, &body); err != nil {
		writeBadRequest(w, "malformed request body")
		return
	}

	updated, err := s.categories.Update(r.Context(), ownerFromContext(r.Context()), core.Category{
		ID:    r.PathValue("id"),
		Name:  body.Name,
		Icon:  body.Icon,
		Color: body.Color,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryResponse(&updated))
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.categories.Delete(r.Context(), ownerFromContext(r.Context()), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type currencyResponse struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	IsActive bool   `json:"isActive"`
}

func (s *Server) handleListCurrencies(w http.ResponseWriter, r *http.Request) {
	activeOnly := true
	if v := r.URL.Query().Get("active"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			writeBadRequest(w, "invalid active filter")
			return
		}
		activeOnly = parsed
	}

	currencies, err := s.storage.ListCurrencies(r.Context(), activeOnly)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]currencyResponse, len(currencies))
	for i, c := range currencies {
		out[i] = currencyResponse{Code: c.Code, Name: c.Name, Symbol: c.Symbol, IsActive: c.IsActive}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.storage.AllSettings(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var values map[string]string
	if err := decodeJSON(r, &values); err != nil {
		writeBadRequest(w, "malformed request body")
		return
	}
	if len(values) == 0 {
		writeBadRequest(w, "no settings supplied")
		return
	}

	if err := s.storage.SetSettings(r.Context(), values); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, values)
}

type apiKeyResponse struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	IsActive   bool       `json:"isActive"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

func (s *Server) handleListKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := s.apiKeys.List(r.Context(), ownerFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]apiKeyResponse, len(keys))
	for i, k := range keys {
		out[i] = apiKeyResponse{
			ID:         k.ID,
			Name:       k.Name,
			IsActive:   k.IsActive,
			LastUsedAt: k.LastUsedAt,
			CreatedAt:  k.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

type issueKeyRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleIssueKey(w http.ResponseWriter, r *http.Request) {
	var body issueKeyRequest
	if err := decodeJSON(r, &body); err != nil {
		writeBadRequest(w, "malformed request body")
		return
	}

	plaintext, key, err := s.apiKeys.Issue(r.Context(), ownerFromContext(r.Context()), body.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}

	// The plaintext appears in this response and nowhere else.
	writeJSON(w, http.StatusCreated, struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		Key       string    `json:"key"`
		CreatedAt time.Time `json:"createdAt"`
	}{key.ID, key.Name, plaintext, key.CreatedAt})
}

func (s *Server) handleRevokeKey(w http.ResponseWriter, r *http.Request) {
	if err := s.apiKeys.Revoke(r.Context(), ownerFromContext(r.Context()), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
