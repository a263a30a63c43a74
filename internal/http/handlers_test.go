package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"fintrack/internal/services"
	"fintrack/internal/storage"
)

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "fintrack.db"))
	if err != nil {
		t.Fatalf("open test repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	apiKeys := services.NewAPIKeyService(repo, 1000)
	srv := NewServer(
		":0",
		services.NewLedgerService(repo, nil),
		services.NewBudgetService(repo),
		services.NewReportService(repo),
		services.NewCategoryService(repo),
		apiKeys,
		repo,
		1000,
	)
	t.Cleanup(func() { srv.rateLimiter.stop() })

	key, _, err := apiKeys.Issue(context.Background(), "owner-1", "test")
	if err != nil {
		t.Fatalf("issue api key: %v", err)
	}
	return srv, key
}

func do(t *testing.T, srv *Server, key, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestAuthRequired(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, "", http.MethodGet, "/api/v1/entries?page=1&limit=10", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no key: status = %d, want 401", rec.Code)
	}

	rec = do(t, srv, "ft_bogus", http.MethodGet, "/api/v1/entries?page=1&limit=10", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad key: status = %d, want 401", rec.Code)
	}

	// Health probes stay open.
	rec = do(t, srv, "", http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Errorf("healthz: status = %d, want 200", rec.Code)
	}
	rec = do(t, srv, "", http.MethodGet, "/readyz", "")
	if rec.Code != http.StatusOK {
		t.Errorf("readyz: status = %d, want 200", rec.Code)
	}
}

func TestEntryEndpoints(t *testing.T) {
	srv, key := newTestServer(t)

	rec := do(t, srv, key, http.MethodPost, "/api/v1/entries",
		`{"categoryId":"def-food","kind":"EXPENSE","amount":"42.50","description":"groceries","date":"2025-03-10"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d, body %s", rec.Code, rec.Body)
	}
	created := decodeBody[entryResponse](t, rec)
	if created.Currency != "USD" {
		t.Errorf("currency = %q, want default USD", created.Currency)
	}
	if created.Category == nil || created.Category.Name != "Food & Groceries" {
		t.Errorf("category = %+v, want attached Food & Groceries", created.Category)
	}

	rec = do(t, srv, key, http.MethodGet, "/api/v1/entries/"+created.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status = %d", rec.Code)
	}

	rec = do(t, srv, key, http.MethodPatch, "/api/v1/entries/"+created.ID, `{"amount":"50"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: status = %d, body %s", rec.Code, rec.Body)
	}
	updated := decodeBody[entryResponse](t, rec)
	if updated.Amount.String() != "50" {
		t.Errorf("amount = %s, want 50", updated.Amount)
	}
	if updated.Description != "groceries" {
		t.Errorf("description = %q, want untouched", updated.Description)
	}

	rec = do(t, srv, key, http.MethodGet, "/api/v1/entries?page=1&limit=10", "")
	page := decodeBody[entryPageResponse](t, rec)
	if page.Total != 1 || page.TotalPages != 1 {
		t.Errorf("page meta = %+v, want total 1", page)
	}

	rec = do(t, srv, key, http.MethodDelete, "/api/v1/entries/"+created.ID, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: status = %d", rec.Code)
	}
	rec = do(t, srv, key, http.MethodGet, "/api/v1/entries/"+created.ID, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete: status = %d, want 404", rec.Code)
	}
}

func TestEntryValidationStatus(t *testing.T) {
	srv, key := newTestServer(t)

	rec := do(t, srv, key, http.MethodPost, "/api/v1/entries",
		`{"categoryId":"def-food","kind":"EXPENSE","amount":"-1"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("negative amount: status = %d, want 400", rec.Code)
	}

	rec = do(t, srv, key, http.MethodPost, "/api/v1/entries", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body: status = %d, want 400", rec.Code)
	}
}

func TestEntryOwnershipStatuses(t *testing.T) {
	srv, key := newTestServer(t)

	rec := do(t, srv, key, http.MethodPost, "/api/v1/entries",
		`{"categoryId":"def-food","kind":"EXPENSE","amount":"10"}`)
	created := decodeBody[entryResponse](t, rec)

	otherKey, _, err := services.NewAPIKeyService(srv.storage, 1000).Issue(context.Background(), "owner-2", "other")
	if err != nil {
		t.Fatalf("issue second key: %v", err)
	}

	rec = do(t, srv, otherKey, http.MethodGet, "/api/v1/entries/"+created.ID, "")
	if rec.Code != http.StatusForbidden {
		t.Errorf("cross-owner entry get: status = %d, want 403", rec.Code)
	}
}

func TestBudgetEndpoints(t *testing.T) {
	srv, key := newTestServer(t)

	rec := do(t, srv, key, http.MethodPost, "/api/v1/budgets",
		`{"categoryId":"def-food","amount":"500","month":1,"year":2024}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d, body %s", rec.Code, rec.Body)
	}
	budget := decodeBody[budgetResponse](t, rec)

	// Duplicate period conflicts.
	rec = do(t, srv, key, http.MethodPost, "/api/v1/budgets",
		`{"categoryId":"def-food","amount":"900","month":1,"year":2024}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate: status = %d, want 409", rec.Code)
	}

	// Spend against it, then read status.
	do(t, srv, key, http.MethodPost, "/api/v1/entries",
		`{"categoryId":"def-food","kind":"EXPENSE","amount":"350","date":"2024-01-15"}`)

	rec = do(t, srv, key, http.MethodGet, "/api/v1/budgets/status?month=1&year=2024", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: code = %d", rec.Code)
	}
	statuses := decodeBody[[]budgetStatusResponse](t, rec)
	if len(statuses) != 1 {
		t.Fatalf("statuses len = %d, want 1", len(statuses))
	}
	st := statuses[0]
	if st.SpentAmount.String() != "350" || st.Remaining.String() != "150" || st.Percentage != 70 || st.IsOverBudget {
		t.Errorf("status = %+v, want spent 350, remaining 150, 70%%, not over", st)
	}

	rec = do(t, srv, key, http.MethodPatch, "/api/v1/budgets/"+budget.ID, `{"amount":"300"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: status = %d", rec.Code)
	}

	rec = do(t, srv, key, http.MethodDelete, "/api/v1/budgets/"+budget.ID, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: status = %d", rec.Code)
	}
	rec = do(t, srv, key, http.MethodDelete, "/api/v1/budgets/"+budget.ID, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("double delete: status = %d, want 404", rec.Code)
	}
}

func TestReportEndpoints(t *testing.T) {
	srv, key := newTestServer(t)

	do(t, srv, key, http.MethodPost, "/api/v1/entries",
		`{"categoryId":"def-salary","kind":"INCOME","amount":"3000","date":"2025-03-01"}`)
	do(t, srv, key, http.MethodPost, "/api/v1/entries",
		`{"categoryId":"def-food","kind":"EXPENSE","amount":"300","date":"2025-03-10"}`)

	rec := do(t, srv, key, http.MethodGet, "/api/v1/reports/monthly?month=3&year=2025", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("monthly: status = %d", rec.Code)
	}
	report := decodeBody[monthlyReportResponse](t, rec)
	if report.Balance.String() != "2700" || report.TransactionsCount != 2 {
		t.Errorf("report = %+v, want balance 2700 over 2 transactions", report)
	}

	rec = do(t, srv, key, http.MethodGet, "/api/v1/reports/yearly?year=2025", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("yearly: status = %d", rec.Code)
	}
	trend := decodeBody[yearlyTrendResponse](t, rec)
	if len(trend.Months) != 12 {
		t.Fatalf("months = %d, want 12", len(trend.Months))
	}
	if trend.Months[2].Income.String() != "3000" {
		t.Errorf("march income = %s, want 3000", trend.Months[2].Income)
	}

	rec = do(t, srv, key, http.MethodGet, "/api/v1/reports/monthly?month=13&year=2025", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("month 13: status = %d, want 400", rec.Code)
	}
}

func TestAdminEndpoints(t *testing.T) {
	srv, key := newTestServer(t)

	rec := do(t, srv, key, http.MethodGet, "/api/v1/categories", "")
	categories := decodeBody[[]categoryResponse](t, rec)
	if len(categories) != 14 {
		t.Errorf("default categories = %d, want 14", len(categories))
	}

	rec = do(t, srv, key, http.MethodGet, "/api/v1/categories/def-food", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get category: status = %d", rec.Code)
	}
	food := decodeBody[categoryResponse](t, rec)
	if food.Name != "Food & Groceries" {
		t.Errorf("category name = %q, want Food & Groceries", food.Name)
	}

	rec = do(t, srv, key, http.MethodGet, "/api/v1/currencies", "")
	currencies := decodeBody[[]currencyResponse](t, rec)
	if len(currencies) != 6 {
		t.Errorf("currencies = %d, want 6", len(currencies))
	}

	// An inactive currency drops out of the default listing but stays
	// reachable with the filter off.
	if err := srv.storage.SetCurrencyActive(context.Background(), "RUB", false); err != nil {
		t.Fatalf("deactivate currency: %v", err)
	}
	rec = do(t, srv, key, http.MethodGet, "/api/v1/currencies", "")
	if currencies = decodeBody[[]currencyResponse](t, rec); len(currencies) != 5 {
		t.Errorf("active currencies = %d, want 5", len(currencies))
	}
	rec = do(t, srv, key, http.MethodGet, "/api/v1/currencies?active=false", "")
	if currencies = decodeBody[[]currencyResponse](t, rec); len(currencies) != 6 {
		t.Errorf("all currencies = %d, want 6", len(currencies))
	}
	rec = do(t, srv, key, http.MethodGet, "/api/v1/currencies?active=maybe", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad active filter: status = %d, want 400", rec.Code)
	}

	rec = do(t, srv, key, http.MethodPut, "/api/v1/settings", `{"theme":"dark","locale":"en"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("put settings: status = %d", rec.Code)
	}
	rec = do(t, srv, key, http.MethodGet, "/api/v1/settings", "")
	settings := decodeBody[map[string]string](t, rec)
	if settings["theme"] != "dark" {
		t.Errorf("settings = %v, want theme dark", settings)
	}

	// Defaults are immutable through the API as well.
	rec = do(t, srv, key, http.MethodDelete, "/api/v1/categories/def-food", "")
	if rec.Code != http.StatusForbidden {
		t.Errorf("delete default category: status = %d, want 403", rec.Code)
	}
}

func TestCategoryReadStatuses(t *testing.T) {
	srv, key := newTestServer(t)

	rec := do(t, srv, key, http.MethodPost, "/api/v1/categories", `{"name":"Hobby","kind":"EXPENSE"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create category: status = %d, body %s", rec.Code, rec.Body)
	}
	personal := decodeBody[categoryResponse](t, rec)

	otherKey, _, err := services.NewAPIKeyService(srv.storage, 1000).Issue(context.Background(), "owner-2", "other")
	if err != nil {
		t.Fatalf("issue second key: %v", err)
	}

	rec = do(t, srv, otherKey, http.MethodGet, "/api/v1/categories/"+personal.ID, "")
	if rec.Code != http.StatusForbidden {
		t.Errorf("cross-owner category get: status = %d, want 403", rec.Code)
	}

	// Shared defaults read fine for everyone.
	rec = do(t, srv, otherKey, http.MethodGet, "/api/v1/categories/def-food", "")
	if rec.Code != http.StatusOK {
		t.Errorf("default category get: status = %d, want 200", rec.Code)
	}

	rec = do(t, srv, key, http.MethodGet, "/api/v1/categories/no-such-id", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown category get: status = %d, want 404", rec.Code)
	}
}

func TestKeyEndpoints(t *testing.T) {
	srv, key := newTestServer(t)

	rec := do(t, srv, key, http.MethodPost, "/api/v1/keys", `{"name":"ci"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("issue: status = %d, body %s", rec.Code, rec.Body)
	}
	issued := decodeBody[struct {
		ID  string `json:"id"`
		Key string `json:"key"`
	}](t, rec)
	if !strings.HasPrefix(issued.Key, "ft_") {
		t.Errorf("key %q should carry the ft_ prefix", issued.Key)
	}

	// The fresh key works until revoked.
	rec = do(t, srv, issued.Key, http.MethodGet, "/api/v1/entries?page=1&limit=10", "")
	if rec.Code != http.StatusOK {
		t.Errorf("fresh key: status = %d, want 200", rec.Code)
	}

	rec = do(t, srv, key, http.MethodDelete, "/api/v1/keys/"+issued.ID, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("revoke: status = %d", rec.Code)
	}
	rec = do(t, srv, issued.Key, http.MethodGet, "/api/v1/entries?page=1&limit=10", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("revoked key: status = %d, want 401", rec.Code)
	}
}

func TestKeyHourlyLimitStatus(t *testing.T) {
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "fintrack.db"))
	if err != nil {
		t.Fatalf("open test repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	apiKeys := services.NewAPIKeyService(repo, 2)
	srv := NewServer(":0",
		services.NewLedgerService(repo, nil),
		services.NewBudgetService(repo),
		services.NewReportService(repo),
		services.NewCategoryService(repo),
		apiKeys, repo, 1000)
	t.Cleanup(func() { srv.rateLimiter.stop() })

	key, _, err := apiKeys.Issue(context.Background(), "owner-1", "tight")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	for i := 0; i < 2; i++ {
		if rec := do(t, srv, key, http.MethodGet, "/api/v1/entries?page=1&limit=10", ""); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i+1, rec.Code)
		}
	}
	rec := do(t, srv, key, http.MethodGet, "/api/v1/entries?page=1&limit=10", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("over hourly limit: status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("429 should carry Retry-After")
	}
}
