package core

import "github.com/shopspring/decimal"

// Derived read-side views. None of these are persisted; they are
// recomputed from the ledger on every request.

// Balance sums an owner's whole ledger, both kinds independently.
type Balance struct {
	TotalIncome  decimal.Decimal
	TotalExpense decimal.Decimal
	Balance      decimal.Decimal
}

func NewBalance(income, expense decimal.Decimal) Balance {
	return Balance{
		TotalIncome:  income,
		TotalExpense: expense,
		Balance:      income.Sub(expense),
	}
}

// BudgetStatus is the budget-vs-actual position of one budget in its period.
type BudgetStatus struct {
	BudgetID     string
	Category     *Category
	BudgetAmount decimal.Decimal
	SpentAmount  decimal.Decimal
	Remaining    decimal.Decimal
	Percentage   int
	IsOverBudget bool
}

var hundred = decimal.NewFromInt(100)

// NewBudgetStatus folds a spent sum into the budget's status. Percentage
// is round(spent/budget*100), or 0 when the budget amount is zero.
// Spending exactly the budget amount is not over budget.
func NewBudgetStatus(b Budget, spent decimal.Decimal) BudgetStatus {
	percentage := 0
	if b.Amount.IsPositive() {
		percentage = int(spent.Div(b.Amount).Mul(hundred).Round(0).IntPart())
	}
	return BudgetStatus{
		BudgetID:     b.ID,
		Category:     b.Category,
		BudgetAmount: b.Amount,
		SpentAmount:  spent,
		Remaining:    b.Amount.Sub(spent),
		Percentage:   percentage,
		IsOverBudget: spent.GreaterThan(b.Amount),
	}
}

// CategoryTotal is a per-category accumulation with the category record
// kept as display metadata.
type CategoryTotal struct {
	Category *Category
	Total    decimal.Decimal
}

// MonthlyReport breaks one calendar month down by kind and category.
type MonthlyReport struct {
	Month              int
	Year               int
	TotalIncome        decimal.Decimal
	TotalExpense       decimal.Decimal
	Balance            decimal.Decimal
	ExpensesByCategory []CategoryTotal
	IncomeByCategory   []CategoryTotal
	TransactionsCount  int
}

// BuildMonthlyReport folds a month's entries into totals and
// per-category groups. Groups are keyed by category name; the first
// entry seen for a name supplies the group's category record. Group
// order is not part of the contract.
func BuildMonthlyReport(p Period, entries []Entry) MonthlyReport {
	report := MonthlyReport{
		Month:              p.Month,
		Year:               p.Year,
		TotalIncome:        decimal.Zero,
		TotalExpense:       decimal.Zero,
		ExpensesByCategory: []CategoryTotal{},
		IncomeByCategory:   []CategoryTotal{},
		TransactionsCount:  len(entries),
	}

	expenseGroups := map[string]int{}
	incomeGroups := map[string]int{}

	for _, e := range entries {
		name := ""
		if e.Category != nil {
			name = e.Category.Name
		}
		switch e.Kind {
		case Income:
			report.TotalIncome = report.TotalIncome.Add(e.Amount)
			if i, ok := incomeGroups[name]; ok {
				report.IncomeByCategory[i].Total = report.IncomeByCategory[i].Total.Add(e.Amount)
			} else {
				incomeGroups[name] = len(report.IncomeByCategory)
				report.IncomeByCategory = append(report.IncomeByCategory, CategoryTotal{Category: e.Category, Total: e.Amount})
			}
		case Expense:
			report.TotalExpense = report.TotalExpense.Add(e.Amount)
			if i, ok := expenseGroups[name]; ok {
				report.ExpensesByCategory[i].Total = report.ExpensesByCategory[i].Total.Add(e.Amount)
			} else {
				expenseGroups[name] = len(report.ExpensesByCategory)
				report.ExpensesByCategory = append(report.ExpensesByCategory, CategoryTotal{Category: e.Category, Total: e.Amount})
			}
		}
	}

	report.Balance = report.TotalIncome.Sub(report.TotalExpense)
	return report
}

// MonthTotal is one month's income/expense pair inside a yearly trend.
type MonthTotal struct {
	Month   int
	Income  decimal.Decimal
	Expense decimal.Decimal
}

// YearlyTrend holds exactly twelve MonthTotal records, months 1..12 in order.
type YearlyTrend struct {
	Year   int
	Months []MonthTotal
}
