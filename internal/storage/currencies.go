package storage

import (
	"context"
	"fmt"

	"fintrack/internal/core"
)

// Currency is an informational currency record. Amounts are never
// converted between currencies; the table only backs symbol lookup.
type Currency struct {
	Code     string
	Name     string
	Symbol   string
	IsActive bool
}

// ListCurrencies returns currencies ordered by code, optionally only the
// active ones.
func (r *SQLiteRepository) ListCurrencies(ctx context.Context, activeOnly bool) ([]Currency, error) {
	query := `SELECT code, name, symbol, is_active FROM currencies`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY code ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list currencies: %w", err)
	}
	defer rows.Close()

	var currencies []Currency
	for rows.Next() {
		var (
			c      Currency
			active int
		)
		if err := rows.Scan(&c.Code, &c.Name, &c.Symbol, &active); err != nil {
			return nil, fmt.Errorf("scan currency: %w", err)
		}
		c.IsActive = active != 0
		currencies = append(currencies, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list currencies: %w", err)
	}
	return currencies, nil
}

// SetCurrencyActive toggles whether a currency shows up in the default
// listing.
func (r *SQLiteRepository) SetCurrencyActive(ctx context.Context, code string, active bool) error {
	value := 0
	if active {
		value = 1
	}
	res, err := r.db.ExecContext(ctx, `UPDATE currencies SET is_active = ? WHERE code = ?`, value, code)
	if err != nil {
		return fmt.Errorf("set currency active: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("currency %s: %w", code, core.ErrNotFound)
	}
	return nil
}
