package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"fintrack/internal/core"
)

func seedExpense(t *testing.T, ledger *LedgerService, owner, category, amount string, occurred time.Time) {
	t.Helper()
	mustCreateEntry(t, ledger, owner, CreateEntryRequest{
		CategoryID: category,
		Kind:       core.Expense,
		Amount:     dec(amount),
		OccurredOn: occurred,
	})
}

func TestBudgetCreateConflict(t *testing.T) {
	repo := newTestStorage(t)
	svc := NewBudgetService(repo)
	ctx := context.Background()

	first, err := svc.Create(ctx, "owner-1", "def-food", dec("500"), 1, 2024)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = svc.Create(ctx, "owner-1", "def-food", dec("900"), 1, 2024)
	if !errors.Is(err, core.ErrConflict) {
		t.Fatalf("duplicate create: error = %v, want ErrConflict", err)
	}

	// The conflict must not have touched the stored budget.
	got, err := svc.Update(ctx, "owner-1", first.ID, dec("500"))
	if err != nil {
		t.Fatalf("reread: %v", err)
	}
	if !got.Amount.Equal(dec("500")) {
		t.Fatalf("amount = %s, want 500", got.Amount)
	}

	// Same period, different owner or category is allowed.
	if _, err := svc.Create(ctx, "owner-2", "def-food", dec("100"), 1, 2024); err != nil {
		t.Errorf("other owner create: %v", err)
	}
	if _, err := svc.Create(ctx, "owner-1", "def-transport", dec("100"), 1, 2024); err != nil {
		t.Errorf("other category create: %v", err)
	}
}

func TestBudgetCreateValidation(t *testing.T) {
	svc := NewBudgetService(newTestStorage(t))
	ctx := context.Background()

	if _, err := svc.Create(ctx, "owner-1", "def-food", dec("-1"), 1, 2024); !errors.Is(err, core.ErrInvalidBudget) {
		t.Errorf("negative amount: error = %v, want ErrInvalidBudget", err)
	}
	if _, err := svc.Create(ctx, "owner-1", "def-food", dec("100"), 13, 2024); !errors.Is(err, core.ErrInvalidMonth) {
		t.Errorf("month 13: error = %v, want ErrInvalidMonth", err)
	}
	// Zero is a legal ceiling.
	if _, err := svc.Create(ctx, "owner-1", "def-food", dec("0"), 1, 2024); err != nil {
		t.Errorf("zero amount: %v", err)
	}
}

func TestBudgetOwnershipYieldsNotFound(t *testing.T) {
	svc := NewBudgetService(newTestStorage(t))
	ctx := context.Background()

	budget, err := svc.Create(ctx, "owner-1", "def-food", dec("500"), 1, 2024)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Budgets never reveal their existence to non-owners.
	if _, err := svc.Update(ctx, "owner-2", budget.ID, dec("100")); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("cross-owner update: error = %v, want ErrNotFound", err)
	}
	if err := svc.Delete(ctx, "owner-2", budget.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("cross-owner delete: error = %v, want ErrNotFound", err)
	}

	if err := svc.Delete(ctx, "owner-1", budget.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if err := svc.Delete(ctx, "owner-1", budget.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("double delete: error = %v, want ErrNotFound", err)
	}
}

func TestBudgetStatus(t *testing.T) {
	repo := newTestStorage(t)
	budgets := NewBudgetService(repo)
	ledger := NewLedgerService(repo, nil)
	ctx := context.Background()

	jan := func(d int) time.Time { return time.Date(2024, 1, d, 10, 0, 0, 0, time.UTC) }

	if _, err := budgets.Create(ctx, "owner-1", "def-food", dec("500"), 1, 2024); err != nil {
		t.Fatalf("create food budget: %v", err)
	}
	if _, err := budgets.Create(ctx, "owner-1", "def-transport", dec("200"), 1, 2024); err != nil {
		t.Fatalf("create transport budget: %v", err)
	}

	seedExpense(t, ledger, "owner-1", "def-food", "200", jan(5))
	seedExpense(t, ledger, "owner-1", "def-food", "150", jan(20))
	seedExpense(t, ledger, "owner-1", "def-transport", "350", jan(12))
	// Outside the period, in another category, or income: all ignored.
	seedExpense(t, ledger, "owner-1", "def-food", "999", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	seedExpense(t, ledger, "owner-1", "def-shopping", "999", jan(5))
	mustCreateEntry(t, ledger, "owner-1", CreateEntryRequest{
		CategoryID: "def-food", Kind: core.Income, Amount: dec("999"), OccurredOn: jan(5),
	})

	statuses, err := budgets.GetStatus(ctx, "owner-1", 1, 2024)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if len(statuses) != 2 {
		t.Fatalf("len = %d, want 2", len(statuses))
	}

	byCategory := map[string]core.BudgetStatus{}
	for _, st := range statuses {
		byCategory[st.Category.Name] = st
	}

	food := byCategory["Food & Groceries"]
	if !food.SpentAmount.Equal(dec("350")) || !food.Remaining.Equal(dec("150")) {
		t.Errorf("food spent/remaining = %s/%s, want 350/150", food.SpentAmount, food.Remaining)
	}
	if food.Percentage != 70 || food.IsOverBudget {
		t.Errorf("food percentage/over = %d/%v, want 70/false", food.Percentage, food.IsOverBudget)
	}

	transport := byCategory["Transport"]
	if !transport.Remaining.Equal(dec("-150")) {
		t.Errorf("transport remaining = %s, want -150", transport.Remaining)
	}
	if transport.Percentage != 175 || !transport.IsOverBudget {
		t.Errorf("transport percentage/over = %d/%v, want 175/true", transport.Percentage, transport.IsOverBudget)
	}
}

func TestBudgetStatusNoSpending(t *testing.T) {
	repo := newTestStorage(t)
	svc := NewBudgetService(repo)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "owner-1", "def-food", dec("500"), 6, 2025); err != nil {
		t.Fatalf("create: %v", err)
	}

	statuses, err := svc.GetStatus(ctx, "owner-1", 6, 2025)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if len(statuses) != 1 {
		t.Fatalf("len = %d, want 1", len(statuses))
	}
	st := statuses[0]
	if !st.SpentAmount.IsZero() || !st.Remaining.Equal(dec("500")) || st.Percentage != 0 || st.IsOverBudget {
		t.Errorf("status = %+v, want spent 0, remaining 500, 0%%, not over", st)
	}
}

func TestBudgetStatusEmptyPeriod(t *testing.T) {
	svc := NewBudgetService(newTestStorage(t))

	statuses, err := svc.GetStatus(context.Background(), "owner-1", 3, 2025)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if statuses == nil || len(statuses) != 0 {
		t.Fatalf("statuses = %v, want empty non-nil slice", statuses)
	}

	if _, err := svc.GetStatus(context.Background(), "owner-1", 0, 2025); !errors.Is(err, core.ErrInvalidMonth) {
		t.Errorf("month 0: error = %v, want ErrInvalidMonth", err)
	}
}
