package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  Kind = "INCOME"
	Expense Kind = "EXPENSE"
)

const (
	DefaultCurrency = "USD"
	DefaultIcon     = "📦"
	DefaultColor    = "#6B7280"
)

type (
	// Kind distinguishes money coming in from money going out.
	Kind string

	// Entry is a single dated income or expense record owned by one account.
	Entry struct {
		ID          string
		OwnerID     string
		CategoryID  string
		Kind        Kind
		Amount      decimal.Decimal
		Currency    string
		Description string
		OccurredOn  time.Time
		CreatedAt   time.Time
		Category    *Category
	}

	// Category labels entries and budgets. A category is either shared
	// ("default", no owner) or personal to exactly one account.
	Category struct {
		ID        string
		Name      string
		Kind      Kind
		Icon      string
		Color     string
		OwnerID   string
		IsDefault bool
	}

	// Budget is a spending ceiling for one category in one calendar month.
	// At most one budget exists per (owner, category, month, year).
	Budget struct {
		ID         string
		OwnerID    string
		CategoryID string
		Amount     decimal.Decimal
		Month      int
		Year       int
		CreatedAt  time.Time
		Category   *Category
	}
)

var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("access denied")
	ErrConflict  = errors.New("already exists")

	ErrInvalidAmount   = errors.New("amount must be positive")
	ErrInvalidBudget   = errors.New("budget amount must not be negative")
	ErrInvalidMonth    = errors.New("month must be between 1 and 12")
	ErrInvalidYear     = errors.New("invalid year")
	ErrInvalidKind     = errors.New("kind must be INCOME or EXPENSE")
	ErrInvalidDate     = errors.New("invalid date")
	ErrEmptyName       = errors.New("empty name")
	ErrEmptyCategory   = errors.New("empty category")
	ErrInvalidPage     = errors.New("page must be at least 1")
	ErrInvalidLimit    = errors.New("limit must be at least 1")
	ErrDescriptionLong = errors.New("description too long (max 500 characters)")
)

// IsValidation reports whether err is an input validation failure, as
// opposed to a not-found/forbidden/conflict outcome or a storage error.
func IsValidation(err error) bool {
	for _, v := range []error{
		ErrInvalidAmount, ErrInvalidBudget, ErrInvalidMonth, ErrInvalidYear,
		ErrInvalidKind, ErrInvalidDate, ErrEmptyName, ErrEmptyCategory,
		ErrInvalidPage, ErrInvalidLimit, ErrDescriptionLong,
	} {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}

func (k Kind) Validate() error {
	switch k {
	case Income, Expense:
		return nil
	}
	return ErrInvalidKind
}

func (e Entry) Validate() error {
	if strings.TrimSpace(e.CategoryID) == "" {
		return ErrEmptyCategory
	}
	if err := e.Kind.Validate(); err != nil {
		return err
	}
	if !e.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if len(e.Description) > 500 {
		return ErrDescriptionLong
	}
	if e.OccurredOn.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	return c.Kind.Validate()
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.CategoryID) == "" {
		return ErrEmptyCategory
	}
	if b.Amount.IsNegative() {
		return ErrInvalidBudget
	}
	if b.Month < 1 || b.Month > 12 {
		return ErrInvalidMonth
	}
	if b.Year < 1 {
		return ErrInvalidYear
	}
	return nil
}
