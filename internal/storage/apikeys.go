package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/core"
)

// APIKey is a stored credential resolving to one owner. Only the SHA-256
// hash of the key material is persisted.
type APIKey struct {
	ID            string
	OwnerID       string
	Name          string
	KeyHash       string
	RequestsCount int
	LastUsedAt    *time.Time
	IsActive      bool
	CreatedAt     time.Time
}

const apiKeyColumns = `id, owner_id, name, key_hash, requests_count, last_used_at, is_active, created_at`

func scanAPIKey(row interface{ Scan(...any) error }) (APIKey, error) {
	var (
		k        APIKey
		lastUsed sql.NullString
		active   int
		created  string
	)
	err := row.Scan(&k.ID, &k.OwnerID, &k.Name, &k.KeyHash, &k.RequestsCount, &lastUsed, &active, &created)
	if err != nil {
		return APIKey{}, err
	}
	k.IsActive = active != 0
	if k.CreatedAt, err = parseTime(created); err != nil {
		return APIKey{}, fmt.Errorf("parse created_at %q: %w", created, err)
	}
	if lastUsed.Valid {
		t, err := parseTime(lastUsed.String)
		if err != nil {
			return APIKey{}, fmt.Errorf("parse last_used_at %q: %w", lastUsed.String, err)
		}
		k.LastUsedAt = &t
	}
	return k, nil
}

func (r *SQLiteRepository) CreateAPIKey(ctx context.Context, k APIKey) error {
	active := 0
	if k.IsActive {
		active = 1
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO api_keys (id, owner_id, name, key_hash, requests_count, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		k.ID, k.OwnerID, k.Name, k.KeyHash, k.RequestsCount, active, fmtTime(k.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("api key: %w", core.ErrConflict)
		}
		return fmt.Errorf("insert api key: %w", err)
	}
	return nil
}

// GetAPIKeyByHash resolves the stored record for a hashed credential.
// Inactive keys resolve to NotFound.
func (r *SQLiteRepository) GetAPIKeyByHash(ctx context.Context, keyHash string) (APIKey, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE key_hash = ? AND is_active = 1`, keyHash)
	k, err := scanAPIKey(row)
	if errors.Is(err, sql.ErrNoRows) {
		return APIKey{}, fmt.Errorf("api key: %w", core.ErrNotFound)
	}
	if err != nil {
		return APIKey{}, fmt.Errorf("get api key: %w", err)
	}
	return k, nil
}

// RecordAPIKeyUsage stores the request counter and last-used instant
// after a successful authentication.
func (r *SQLiteRepository) RecordAPIKeyUsage(ctx context.Context, id string, requestsCount int, usedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE api_keys SET requests_count = ?, last_used_at = ? WHERE id = ?`,
		requestsCount, fmtTime(usedAt), id)
	if err != nil {
		return fmt.Errorf("record api key usage: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) RevokeAPIKey(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE api_keys SET is_active = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("api key %s: %w", id, core.ErrNotFound)
	}
	return nil
}

// ListAPIKeys returns all of an owner's keys, active and revoked.
func (r *SQLiteRepository) ListAPIKeys(ctx context.Context, ownerID string) ([]APIKey, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE owner_id = ? ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	var keys []APIKey
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	return keys, nil
}
