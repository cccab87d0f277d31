package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vainnor/flightlog/types"
)

// ErrKeyNotFound is returned when deleting an id that does not exist.
var ErrKeyNotFound = errors.New("api key not found")

const insertAPIKey = `INSERT INTO api_keys (key, description)
	VALUES ($1, $2)
	RETURNING id, key, description, created_at, is_active`

// CreateAPIKey stores a new active key.
func (a *Archive) CreateAPIKey(ctx context.Context, key, description string) (types.APIKey, error) {
	var apiKey types.APIKey
	err := a.db.QueryRowContext(ctx, insertAPIKey, key, description).Scan(
		&apiKey.ID,
		&apiKey.Key,
		&apiKey.Description,
		&apiKey.CreatedAt,
		&apiKey.IsActive,
	)
	if err != nil {
		return types.APIKey{}, describe(err)
	}
	return apiKey, nil
}

const selectAPIKeys = `SELECT id, key, COALESCE(description, ''), created_at, last_used_at, is_active
	FROM api_keys
	ORDER BY created_at DESC`

// ListAPIKeys returns every key, newest first.
func (a *Archive) ListAPIKeys(ctx context.Context) ([]types.APIKey, error) {
	rows, err := a.db.QueryContext(ctx, selectAPIKeys)
	if err != nil {
		return nil, describe(err)
	}
	defer rows.Close()

	keys := make([]types.APIKey, 0)
	for rows.Next() {
		var (
			apiKey     types.APIKey
			lastUsedAt sql.NullTime
		)
		err := rows.Scan(
			&apiKey.ID,
			&apiKey.Key,
			&apiKey.Description,
			&apiKey.CreatedAt,
			&lastUsedAt,
			&apiKey.IsActive,
		)
		if err != nil {
			return nil, err
		}
		if lastUsedAt.Valid {
			apiKey.LastUsedAt = &lastUsedAt.Time
		}
		keys = append(keys, apiKey)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

const deleteAPIKey = `DELETE FROM api_keys WHERE id = $1`

func (a *Archive) DeleteAPIKey(ctx context.Context, id int) error {
	result, err := a.db.ExecContext(ctx, deleteAPIKey, id)
	if err != nil {
		return describe(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %d", ErrKeyNotFound, id)
	}
	return nil
}

const touchAPIKey = `UPDATE api_keys
	SET last_used_at = NOW()
	WHERE key = $1 AND is_active = true
	RETURNING true`

// ValidateAPIKey reports whether key is active and records its use.
func (a *Archive) ValidateAPIKey(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := a.db.QueryRowContext(ctx, touchAPIKey, key).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, describe(err)
	}
	return exists, nil
}
