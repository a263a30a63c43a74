package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// ReportService builds read-only monthly and yearly views from the
// ledger. It never mutates anything.
type ReportService struct {
	storage *storage.SQLiteRepository
}

func NewReportService(storage *storage.SQLiteRepository) *ReportService {
	return &ReportService{storage: storage}
}

// GetMonthlyReport folds one calendar month of the owner's entries into
// totals and per-category groups.
func (s *ReportService) GetMonthlyReport(ctx context.Context, ownerID string, month, year int) (core.MonthlyReport, error) {
	period, err := core.NewPeriod(month, year)
	if err != nil {
		return core.MonthlyReport{}, err
	}

	entries, err := s.storage.AllEntries(ctx, storage.EntryFilter{
		OwnerID: ownerID,
		From:    period.Start(),
		To:      period.End(),
	})
	if err != nil {
		return core.MonthlyReport{}, fmt.Errorf("monthly report: %w", err)
	}

	return core.BuildMonthlyReport(period, entries), nil
}

// GetYearlyTrend returns exactly twelve month records, months 1 through
// 12 in order, regardless of data sparsity. Each month needs two
// independent sums, so a full year is 24 reads issued concurrently.
func (s *ReportService) GetYearlyTrend(ctx context.Context, ownerID string, year int) (core.YearlyTrend, error) {
	if year < 1 {
		return core.YearlyTrend{}, core.ErrInvalidYear
	}

	trend := core.YearlyTrend{
		Year:   year,
		Months: make([]core.MonthTotal, 12),
	}

	g, gctx := errgroup.WithContext(ctx)
	for month := 1; month <= 12; month++ {
		period, err := core.NewPeriod(month, year)
		if err != nil {
			return core.YearlyTrend{}, err
		}

		idx := month - 1
		trend.Months[idx].Month = month
		for _, kind := range []core.Kind{core.Income, core.Expense} {
			g.Go(func() error {
				sum, err := s.storage.SumEntries(gctx, storage.EntryFilter{
					OwnerID: ownerID,
					Kind:    kind,
					From:    period.Start(),
					To:      period.End(),
				})
				if err != nil {
					return fmt.Errorf("sum %s for month %d: %w", kind, period.Month, err)
				}
				if kind == core.Income {
					trend.Months[idx].Income = sum
				} else {
					trend.Months[idx].Expense = sum
				}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return core.YearlyTrend{}, err
	}
	return trend, nil
}
