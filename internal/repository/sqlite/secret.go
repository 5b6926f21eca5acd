package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/image-feed/internal/apperror"
	"github.com/sakif/image-feed/internal/repository"
)

// compile-time check that *DB implements repository.SecretRepository
var _ repository.SecretRepository = (*DB)(nil)

// GetSecret returns the value stored under key.
// Returns apperror.ErrNotFound if there is none.
func (db *DB) GetSecret(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := db.conn.QueryRowContext(ctx,
		`SELECT value FROM secrets WHERE key = ?`, key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("secret", key)
		}
		return nil, fmt.Errorf("sqlite: getting secret %s: %w", key, err)
	}
	return value, nil
}

// PutSecret inserts or overwrites the value under key in one statement.
//
// ON CONFLICT ... DO UPDATE (an "upsert") keeps the row's identity and avoids
// the delete-then-insert that INSERT OR REPLACE performs.
func (db *DB) PutSecret(ctx context.Context, key string, value []byte) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO secrets (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: putting secret %s: %w", key, err)
	}
	return nil
}

// DeleteSecret removes key. Deleting a missing key is not an error.
func (db *DB) DeleteSecret(ctx context.Context, key string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM secrets WHERE key = ?`, key); err != nil {
		return fmt.Errorf("sqlite: deleting secret %s: %w", key, err)
	}
	return nil
}
