package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// EntryFilter selects ledger entries. Zero fields are not applied; the
// populated ones are AND-combined. Date bounds are inclusive.
type EntryFilter struct {
	OwnerID    string
	CategoryID string
	Kind       core.Kind
	From       time.Time
	To         time.Time
}

func (f EntryFilter) where() (string, []any) {
	conds := []string{"e.owner_id = ?"}
	args := []any{f.OwnerID}

	if f.CategoryID != "" {
		conds = append(conds, "e.category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.Kind != "" {
		conds = append(conds, "e.kind = ?")
		args = append(args, string(f.Kind))
	}
	if !f.From.IsZero() {
		conds = append(conds, "e.occurred_on >= ?")
		args = append(args, fmtTime(f.From))
	}
	if !f.To.IsZero() {
		conds = append(conds, "e.occurred_on <= ?")
		args = append(args, fmtTime(f.To))
	}

	return strings.Join(conds, " AND "), args
}

const entryColumns = `e.id, e.owner_id, e.category_id, e.kind, e.amount, e.currency,
	e.description, e.occurred_on, e.created_at,
	c.id, c.name, c.kind, c.icon, c.color, c.owner_id, c.is_default`

const entryFrom = ` FROM entries e LEFT JOIN categories c ON c.id = e.category_id `

func scanEntry(row interface{ Scan(...any) error }) (core.Entry, error) {
	var (
		e                                                    core.Entry
		amount, occurred, created                            string
		catID, catName, catKind, catIcon, catColor, catOwner sql.NullString
		catDefault                                           sql.NullInt64
	)
	err := row.Scan(&e.ID, &e.OwnerID, &e.CategoryID, &e.Kind, &amount, &e.Currency,
		&e.Description, &occurred, &created,
		&catID, &catName, &catKind, &catIcon, &catColor, &catOwner, &catDefault)
	if err != nil {
		return core.Entry{}, err
	}

	if e.Amount, err = decimal.NewFromString(amount); err != nil {
		return core.Entry{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	if e.OccurredOn, err = parseTime(occurred); err != nil {
		return core.Entry{}, fmt.Errorf("parse occurred_on %q: %w", occurred, err)
	}
	if e.CreatedAt, err = parseTime(created); err != nil {
		return core.Entry{}, fmt.Errorf("parse created_at %q: %w", created, err)
	}
	if catID.Valid {
		e.Category = &core.Category{
			ID:        catID.String,
			Name:      catName.String,
			Kind:      core.Kind(catKind.String),
			Icon:      catIcon.String,
			Color:     catColor.String,
			OwnerID:   catOwner.String,
			IsDefault: catDefault.Int64 != 0,
		}
	}
	return e, nil
}

func (r *SQLiteRepository) CreateEntry(ctx context.Context, e core.Entry) (core.Entry, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO entries (id, owner_id, category_id, kind, amount, currency, description, occurred_on, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.OwnerID, e.CategoryID, string(e.Kind), e.Amount.String(), e.Currency,
		e.Description, fmtTime(e.OccurredOn), fmtTime(e.CreatedAt))
	if err != nil {
		return core.Entry{}, fmt.Errorf("insert entry: %w", err)
	}
	return r.GetEntry(ctx, e.ID)
}

// GetEntry returns the entry with its category attached, regardless of
// owner. Ownership is the caller's concern.
func (r *SQLiteRepository) GetEntry(ctx context.Context, id string) (core.Entry, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+entryColumns+entryFrom+`WHERE e.id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Entry{}, fmt.Errorf("entry %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Entry{}, fmt.Errorf("get entry: %w", err)
	}
	return e, nil
}

func (r *SQLiteRepository) UpdateEntry(ctx context.Context, e core.Entry) (core.Entry, error) {
	_, err := r.db.ExecContext(ctx, `
		UPDATE entries
		SET category_id = ?, kind = ?, amount = ?, currency = ?, description = ?, occurred_on = ?
		WHERE id = ?`,
		e.CategoryID, string(e.Kind), e.Amount.String(), e.Currency, e.Description,
		fmtTime(e.OccurredOn), e.ID)
	if err != nil {
		return core.Entry{}, fmt.Errorf("update entry: %w", err)
	}
	return r.GetEntry(ctx, e.ID)
}

func (r *SQLiteRepository) DeleteEntry(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("entry %s: %w", id, core.ErrNotFound)
	}
	return nil
}

// ListEntries returns a page of matching entries ordered by occurred-on
// date, newest first.
func (r *SQLiteRepository) ListEntries(ctx context.Context, f EntryFilter, limit, offset int) ([]core.Entry, error) {
	where, args := f.where()
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+entryColumns+entryFrom+`WHERE `+where+` ORDER BY e.occurred_on DESC LIMIT ? OFFSET ?`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []core.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

// AllEntries returns every matching entry, newest first, without
// pagination. Callers are expected to bound the filter by date range.
func (r *SQLiteRepository) AllEntries(ctx context.Context, f EntryFilter) ([]core.Entry, error) {
	where, args := f.where()

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+entryColumns+entryFrom+`WHERE `+where+` ORDER BY e.occurred_on DESC`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []core.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

func (r *SQLiteRepository) CountEntries(ctx context.Context, f EntryFilter) (int, error) {
	where, args := f.where()
	var total int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*)`+entryFrom+`WHERE `+where, args...).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return total, nil
}

// SumEntries folds matching amounts into one decimal sum. The fold runs
// here rather than in SQL because sqlite's SUM is floating point, which
// is not acceptable for money. An empty match sums to zero.
func (r *SQLiteRepository) SumEntries(ctx context.Context, f EntryFilter) (decimal.Decimal, error) {
	where, args := f.where()
	rows, err := r.db.QueryContext(ctx, `SELECT e.amount FROM entries e WHERE `+where, args...)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum entries: %w", err)
	}
	defer rows.Close()

	sum := decimal.Zero
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return decimal.Zero, fmt.Errorf("scan amount: %w", err)
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Zero, fmt.Errorf("parse amount %q: %w", raw, err)
		}
		sum = sum.Add(amount)
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, fmt.Errorf("sum entries: %w", err)
	}
	return sum, nil
}
