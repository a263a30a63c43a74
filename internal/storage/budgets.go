package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

const budgetColumns = `b.id, b.owner_id, b.category_id, b.amount, b.month, b.year, b.created_at,
	c.id, c.name, c.kind, c.icon, c.color, c.owner_id, c.is_default`

const budgetFrom = ` FROM budgets b LEFT JOIN categories c ON c.id = b.category_id `

func scanBudget(row interface{ Scan(...any) error }) (core.Budget, error) {
	var (
		b                                                    core.Budget
		amount, created                                      string
		catID, catName, catKind, catIcon, catColor, catOwner sql.NullString
		catDefault                                           sql.NullInt64
	)
	err := row.Scan(&b.ID, &b.OwnerID, &b.CategoryID, &amount, &b.Month, &b.Year, &created,
		&catID, &catName, &catKind, &catIcon, &catColor, &catOwner, &catDefault)
	if err != nil {
		return core.Budget{}, err
	}

	if b.Amount, err = decimal.NewFromString(amount); err != nil {
		return core.Budget{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	if b.CreatedAt, err = parseTime(created); err != nil {
		return core.Budget{}, fmt.Errorf("parse created_at %q: %w", created, err)
	}
	if catID.Valid {
		b.Category = &core.Category{
			ID:        catID.String,
			Name:      catName.String,
			Kind:      core.Kind(catKind.String),
			Icon:      catIcon.String,
			Color:     catColor.String,
			OwnerID:   catOwner.String,
			IsDefault: catDefault.Int64 != 0,
		}
	}
	return b, nil
}

// CreateBudget inserts the budget. The unique index on
// (owner_id, category_id, month, year) is the authoritative uniqueness
// guard; a violation is reported as core.ErrConflict so racing creations
// and pre-checked ones fail the same way.
func (r *SQLiteRepository) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO budgets (id, owner_id, category_id, amount, month, year, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.OwnerID, b.CategoryID, b.Amount.String(), b.Month, b.Year, fmtTime(b.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return core.Budget{}, fmt.Errorf("budget for category %s in %d/%d: %w",
				b.CategoryID, b.Month, b.Year, core.ErrConflict)
		}
		return core.Budget{}, fmt.Errorf("insert budget: %w", err)
	}
	return r.GetBudget(ctx, b.ID)
}

func (r *SQLiteRepository) GetBudget(ctx context.Context, id string) (core.Budget, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+budgetColumns+budgetFrom+`WHERE b.id = ?`, id)
	b, err := scanBudget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, fmt.Errorf("budget %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget: %w", err)
	}
	return b, nil
}

// FindBudgetByPeriod looks up the unique budget for one
// (owner, category, month, year) tuple.
func (r *SQLiteRepository) FindBudgetByPeriod(ctx context.Context, ownerID, categoryID string, month, year int) (core.Budget, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+budgetColumns+budgetFrom+`WHERE b.owner_id = ? AND b.category_id = ? AND b.month = ? AND b.year = ?`,
		ownerID, categoryID, month, year)
	b, err := scanBudget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, fmt.Errorf("budget for category %s in %d/%d: %w", categoryID, month, year, core.ErrNotFound)
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("find budget: %w", err)
	}
	return b, nil
}

// ListBudgets returns an owner's budgets ordered by category name,
// optionally narrowed to a month and/or year (zero means no filter).
func (r *SQLiteRepository) ListBudgets(ctx context.Context, ownerID string, month, year int) ([]core.Budget, error) {
	query := `SELECT ` + budgetColumns + budgetFrom + `WHERE b.owner_id = ?`
	args := []any{ownerID}
	if month != 0 {
		query += ` AND b.month = ?`
		args = append(args, month)
	}
	if year != 0 {
		query += ` AND b.year = ?`
		args = append(args, year)
	}
	query += ` ORDER BY c.name ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var budgets []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		budgets = append(budgets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return budgets, nil
}

func (r *SQLiteRepository) UpdateBudgetAmount(ctx context.Context, id string, amount decimal.Decimal) (core.Budget, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE budgets SET amount = ? WHERE id = ?`, amount.String(), id)
	if err != nil {
		return core.Budget{}, fmt.Errorf("update budget: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.Budget{}, fmt.Errorf("budget %s: %w", id, core.ErrNotFound)
	}
	return r.GetBudget(ctx, id)
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("budget %s: %w", id, core.ErrNotFound)
	}
	return nil
}
