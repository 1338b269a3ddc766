package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"wellness-hub/internal/repository"
)

const createKVTable = `
CREATE TABLE IF NOT EXISTS kv (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at DATETIME NOT NULL
);
`

// TokenRepository keeps the session token in a local key-value table.
type TokenRepository struct {
	db  *sql.DB
	key string
}

// NewTokenRepository stores the token under key, or repository.DefaultTokenKey when empty.
func NewTokenRepository(db *sql.DB, key string) repository.TokenRepository {
	if key == "" {
		key = repository.DefaultTokenKey
	}
	return &TokenRepository{db: db, key: key}
}

func (r *TokenRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createKVTable); err != nil {
		return fmt.Errorf("create kv table: %w", err)
	}
	return nil
}

func (r *TokenRepository) Load(ctx context.Context) (string, error) {
	var token string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, r.key).Scan(&token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", repository.ErrNotFound
		}
		return "", fmt.Errorf("load token: %w", err)
	}
	if token == "" {
		return "", repository.ErrNotFound
	}
	return token, nil
}

func (r *TokenRepository) Save(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO kv (key, value, updated_at)
VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		r.key,
		token,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

func (r *TokenRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, r.key); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}

var _ repository.TokenRepository = (*TokenRepository)(nil)
