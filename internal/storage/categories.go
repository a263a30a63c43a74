package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fintrack/internal/core"
)

const categoryColumns = `id, name, kind, icon, color, owner_id, is_default`

func scanCategory(row interface{ Scan(...any) error }) (core.Category, error) {
	var (
		c         core.Category
		isDefault int
	)
	err := row.Scan(&c.ID, &c.Name, &c.Kind, &c.Icon, &c.Color, &c.OwnerID, &isDefault)
	if err != nil {
		return core.Category{}, err
	}
	c.IsDefault = isDefault != 0
	return c, nil
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	isDefault := 0
	if c.IsDefault {
		isDefault = 1
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, kind, icon, color, owner_id, is_default)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, string(c.Kind), c.Icon, c.Color, c.OwnerID, isDefault)
	if err != nil {
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id string) (core.Category, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, fmt.Errorf("category %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

// ListCategories returns the shared default categories plus the owner's
// personal ones, ordered by name.
func (r *SQLiteRepository) ListCategories(ctx context.Context, ownerID string) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE is_default = 1 OR owner_id = ? ORDER BY name ASC`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	_, err := r.db.ExecContext(ctx, `
		UPDATE categories SET name = ?, icon = ?, color = ? WHERE id = ?`,
		c.Name, c.Icon, c.Color, c.ID)
	if err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	return r.GetCategory(ctx, c.ID)
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("category %s: %w", id, core.ErrNotFound)
	}
	return nil
}
