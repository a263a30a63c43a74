package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// BudgetService manages monthly spending ceilings and computes
// budget-vs-actual status from the ledger.
type BudgetService struct {
	storage *storage.SQLiteRepository
}

func NewBudgetService(storage *storage.SQLiteRepository) *BudgetService {
	return &BudgetService{storage: storage}
}

// List returns the owner's budgets, ordered by category name. Month and
// year are optional independent filters; zero means no filter.
func (s *BudgetService) List(ctx context.Context, ownerID string, month, year int) ([]core.Budget, error) {
	if month != 0 && (month < 1 || month > 12) {
		return nil, core.ErrInvalidMonth
	}
	budgets, err := s.storage.ListBudgets(ctx, ownerID, month, year)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	if budgets == nil {
		budgets = []core.Budget{}
	}
	return budgets, nil
}

// Create stores a new budget. The pre-check gives a friendly Conflict in
// the common case; the storage unique constraint is the real guard, and
// a violation raised there maps to the same Conflict.
func (s *BudgetService) Create(ctx context.Context, ownerID, categoryID string, amount decimal.Decimal, month, year int) (core.Budget, error) {
	budget := core.Budget{
		ID:         uuid.NewString(),
		OwnerID:    ownerID,
		CategoryID: categoryID,
		Amount:     amount,
		Month:      month,
		Year:       year,
		CreatedAt:  time.Now().UTC(),
	}
	if err := budget.Validate(); err != nil {
		return core.Budget{}, err
	}

	_, err := s.storage.FindBudgetByPeriod(ctx, ownerID, categoryID, month, year)
	if err == nil {
		return core.Budget{}, fmt.Errorf("budget already exists for this category and period: %w", core.ErrConflict)
	}
	if !errors.Is(err, core.ErrNotFound) {
		return core.Budget{}, fmt.Errorf("check existing budget: %w", err)
	}

	created, err := s.storage.CreateBudget(ctx, budget)
	if err != nil {
		return core.Budget{}, err
	}
	return created, nil
}

// Update changes a budget's amount. A budget that does not exist or
// belongs to another owner is NotFound either way; budgets never reveal
// their existence to non-owners.
func (s *BudgetService) Update(ctx context.Context, ownerID, id string, amount decimal.Decimal) (core.Budget, error) {
	if amount.IsNegative() {
		return core.Budget{}, core.ErrInvalidBudget
	}
	if _, err := s.getOwned(ctx, ownerID, id); err != nil {
		return core.Budget{}, err
	}

	updated, err := s.storage.UpdateBudgetAmount(ctx, id, amount)
	if err != nil {
		return core.Budget{}, fmt.Errorf("update budget: %w", err)
	}
	return updated, nil
}

// Delete removes a budget with the same NotFound ownership policy as Update.
func (s *BudgetService) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := s.getOwned(ctx, ownerID, id); err != nil {
		return err
	}
	if err := s.storage.DeleteBudget(ctx, id); err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return nil
}

// GetStatus computes the budget-vs-actual position of every budget in
// the period. Per-budget expense sums are independent and run
// concurrently; an empty budget list issues no aggregation calls.
func (s *BudgetService) GetStatus(ctx context.Context, ownerID string, month, year int) ([]core.BudgetStatus, error) {
	period, err := core.NewPeriod(month, year)
	if err != nil {
		return nil, err
	}

	budgets, err := s.storage.ListBudgets(ctx, ownerID, month, year)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	if len(budgets) == 0 {
		return []core.BudgetStatus{}, nil
	}

	statuses := make([]core.BudgetStatus, len(budgets))
	g, gctx := errgroup.WithContext(ctx)
	for i, budget := range budgets {
		g.Go(func() error {
			spent, err := s.storage.SumEntries(gctx, storage.EntryFilter{
				OwnerID:    ownerID,
				CategoryID: budget.CategoryID,
				Kind:       core.Expense,
				From:       period.Start(),
				To:         period.End(),
			})
			if err != nil {
				return fmt.Errorf("sum spending for budget %s: %w", budget.ID, err)
			}
			statuses[i] = core.NewBudgetStatus(budget, spent)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return statuses, nil
}

func (s *BudgetService) getOwned(ctx context.Context, ownerID, id string) (core.Budget, error) {
	budget, err := s.storage.GetBudget(ctx, id)
	if err != nil {
		return core.Budget{}, err
	}
	if budget.OwnerID != ownerID {
		return core.Budget{}, fmt.Errorf("budget %s: %w", id, core.ErrNotFound)
	}
	return budget, nil
}
