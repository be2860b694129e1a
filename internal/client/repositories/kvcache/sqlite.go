package kvcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aussiephantom/blinkapp-desktop/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db  dbx.DBTX
	now func() time.Time
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

func (r *SQLiteRepository) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	var expiresAt int64

	err := r.db.QueryRowContext(ctx,
		`SELECT value, expires_at FROM kv_cache WHERE key = ?`, key).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get cache[%s]: %w", key, err)
	}

	if r.now().Unix() >= expiresAt {
		// Expired reads purge the stale row.
		if _, err := r.db.ExecContext(ctx, `DELETE FROM kv_cache WHERE key = ?`, key); err != nil {
			return nil, false, fmt.Errorf("failed to purge expired cache[%s]: %w", key, err)
		}
		return nil, false, nil
	}
	return value, true, nil
}

func (r *SQLiteRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO kv_cache (key, value, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at
	`, key, value, r.now().Add(ttl).Unix())
	if err != nil {
		return fmt.Errorf("failed to set cache[%s]: %w", key, err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM kv_cache WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete cache[%s]: %w", key, err)
	}
	return nil
}
