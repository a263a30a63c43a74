package http

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

type categoryTotalResponse struct {
	Category *categoryResponse `json:"category"`
	Total    decimal.Decimal   `json:"total"`
}

type monthlyReportResponse struct {
	Month              int                     `json:"month"`
	Year               int                     `json:"year"`
	TotalIncome        decimal.Decimal         `json:"totalIncome"`
	TotalExpense       decimal.Decimal         `json:"totalExpense"`
	Balance            decimal.Decimal         `json:"balance"`
	ExpensesByCategory []categoryTotalResponse `json:"expensesByCategory"`
	IncomeByCategory   []categoryTotalResponse `json:"incomeByCategory"`
	TransactionsCount  int                     `json:"transactionsCount"`
}

func toCategoryTotals(groups []core.CategoryTotal) []categoryTotalResponse {
	out := make([]categoryTotalResponse, len(groups))
	for i, g := range groups {
		out[i] = categoryTotalResponse{Category: toCategoryResponse(g.Category), Total: g.Total}
	}
	return out
}

func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request) {
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

	report, err := s.reports.GetMonthlyReport(r.Context(), ownerFromContext(r.Context()), month, year)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, monthlyReportResponse{
		Month:              report.Month,
		Year:               report.Year,
		TotalIncome:        report.TotalIncome,
		TotalExpense:       report.TotalExpense,
		Balance:            report.Balance,
		ExpensesByCategory: toCategoryTotals(report.ExpensesByCategory),
		IncomeByCategory:   toCategoryTotals(report.IncomeByCategory),
		TransactionsCount:  report.TransactionsCount,
	})
}

type monthTotalResponse struct {
	Month   int             `json:"month"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
}

type yearlyTrendResponse struct {
	Year   int                  `json:"year"`
	Months []monthTotalResponse `json:"months"`
}

func (s *Server) handleYearlyTrend(w http.ResponseWriter, r *http.Request) {
	year, err := queryInt(r, "year", time.Now().UTC().Year())
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	trend, err := s.reports.GetYearlyTrend(r.Context(), ownerFromContext(r.Context()), year)
	if err != nil {
		writeError(w, r, err)
		return
	}

	months := make([]monthTotalResponse, len(trend.Months))
	for i, m := range trend.Months {
		months[i] = monthTotalResponse{Month: m.Month, Income: m.Income, Expense: m.Expense}
	}
	writeJSON(w, http.StatusOK, yearlyTrendResponse{Year: trend.Year, Months: months})
}
