package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"fintrack/internal/core"
)

func TestMonthlyReport(t *testing.T) {
	repo := newTestStorage(t)
	ledger := NewLedgerService(repo, nil)
	reports := NewReportService(repo)
	ctx := context.Background()

	mar := func(d int) time.Time { return time.Date(2025, 3, d, 9, 0, 0, 0, time.UTC) }

	mustCreateEntry(t, ledger, "owner-1", CreateEntryRequest{
		CategoryID: "def-salary", Kind: core.Income, Amount: dec("3000"), OccurredOn: mar(1),
	})
	seedExpense(t, ledger, "owner-1", "def-food", "120.50", mar(3))
	seedExpense(t, ledger, "owner-1", "def-food", "79.50", mar(17))
	seedExpense(t, ledger, "owner-1", "def-transport", "60", mar(10))
	// Boundary entries: last second of the month counts, next month doesn't.
	seedExpense(t, ledger, "owner-1", "def-food", "40", time.Date(2025, 3, 31, 23, 59, 59, 0, time.UTC))
	seedExpense(t, ledger, "owner-1", "def-food", "999", time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))
	// Another owner's data never leaks in.
	seedExpense(t, ledger, "owner-2", "def-food", "999", mar(3))

	report, err := reports.GetMonthlyReport(ctx, "owner-1", 3, 2025)
	if err != nil {
		t.Fatalf("report: %v", err)
	}

	if !report.TotalIncome.Equal(dec("3000")) {
		t.Errorf("totalIncome = %s, want 3000", report.TotalIncome)
	}
	if !report.TotalExpense.Equal(dec("300")) {
		t.Errorf("totalExpense = %s, want 300", report.TotalExpense)
	}
	if !report.Balance.Equal(dec("2700")) {
		t.Errorf("balance = %s, want 2700", report.Balance)
	}
	if report.TransactionsCount != 5 {
		t.Errorf("transactionsCount = %d, want 5", report.TransactionsCount)
	}

	// Groups are unordered; look them up by category name.
	expenseTotals := map[string]string{}
	for _, g := range report.ExpensesByCategory {
		expenseTotals[g.Category.Name] = g.Total.String()
	}
	if expenseTotals["Food & Groceries"] != "240" {
		t.Errorf("food group total = %s, want 240", expenseTotals["Food & Groceries"])
	}
	if expenseTotals["Transport"] != "60" {
		t.Errorf("transport group total = %s, want 60", expenseTotals["Transport"])
	}
	if len(report.IncomeByCategory) != 1 || report.IncomeByCategory[0].Category.Name != "Salary" {
		t.Errorf("income groups = %+v, want single Salary group", report.IncomeByCategory)
	}
}

func TestMonthlyReportEmpty(t *testing.T) {
	reports := NewReportService(newTestStorage(t))

	report, err := reports.GetMonthlyReport(context.Background(), "owner-1", 2, 2025)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if !report.TotalIncome.IsZero() || !report.TotalExpense.IsZero() || !report.Balance.IsZero() {
		t.Errorf("sums = %+v, want all zeros", report)
	}
	if report.TransactionsCount != 0 {
		t.Errorf("transactionsCount = %d, want 0", report.TransactionsCount)
	}
	if report.ExpensesByCategory == nil || len(report.ExpensesByCategory) != 0 {
		t.Errorf("expense groups = %v, want empty non-nil", report.ExpensesByCategory)
	}
	if report.IncomeByCategory == nil || len(report.IncomeByCategory) != 0 {
		t.Errorf("income groups = %v, want empty non-nil", report.IncomeByCategory)
	}

	if _, err := reports.GetMonthlyReport(context.Background(), "owner-1", 13, 2025); !errors.Is(err, core.ErrInvalidMonth) {
		t.Errorf("month 13: error = %v, want ErrInvalidMonth", err)
	}
}

func TestYearlyTrend(t *testing.T) {
	repo := newTestStorage(t)
	ledger := NewLedgerService(repo, nil)
	reports := NewReportService(repo)
	ctx := context.Background()

	mustCreateEntry(t, ledger, "owner-1", CreateEntryRequest{
		CategoryID: "def-salary", Kind: core.Income, Amount: dec("2000"),
		OccurredOn: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
	})
	seedExpense(t, ledger, "owner-1", "def-food", "300", time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC))
	// December must not roll into the next year.
	seedExpense(t, ledger, "owner-1", "def-food", "55", time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC))
	seedExpense(t, ledger, "owner-1", "def-food", "999", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	// Leap-year February 29 belongs to month 2.
	seedExpense(t, ledger, "owner-1", "def-food", "29", time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC))

	trend, err := reports.GetYearlyTrend(ctx, "owner-1", 2024)
	if err != nil {
		t.Fatalf("trend: %v", err)
	}

	if len(trend.Months) != 12 {
		t.Fatalf("months = %d, want exactly 12", len(trend.Months))
	}
	for i, m := range trend.Months {
		if m.Month != i+1 {
			t.Fatalf("month at index %d = %d, want ascending 1..12", i, m.Month)
		}
	}

	if !trend.Months[0].Income.Equal(dec("2000")) || !trend.Months[0].Expense.Equal(dec("300")) {
		t.Errorf("january = %+v, want income 2000 expense 300", trend.Months[0])
	}
	if !trend.Months[1].Expense.Equal(dec("29")) {
		t.Errorf("february expense = %s, want 29", trend.Months[1].Expense)
	}
	if !trend.Months[11].Expense.Equal(dec("55")) {
		t.Errorf("december expense = %s, want 55", trend.Months[11].Expense)
	}
	// Sparse months stay zero, not null.
	if !trend.Months[6].Income.IsZero() || !trend.Months[6].Expense.IsZero() {
		t.Errorf("july = %+v, want zeros", trend.Months[6])
	}
}

func TestYearlyTrendInvalidYear(t *testing.T) {
	reports := NewReportService(newTestStorage(t))
	if _, err := reports.GetYearlyTrend(context.Background(), "owner-1", 0); !errors.Is(err, core.ErrInvalidYear) {
		t.Errorf("year 0: error = %v, want ErrInvalidYear", err)
	}
}
