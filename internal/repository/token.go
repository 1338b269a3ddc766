package repository

import (
	"context"
	"errors"
)

// DefaultTokenKey is the fixed slot the session token lives under.
const DefaultTokenKey = "token"

var (
	// ErrNotFound is returned when a lookup matches nothing.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a unique constraint is violated.
	ErrAlreadyExists = errors.New("already exists")
)

// TokenRepository is the durable, process-wide slot holding the session token.
// Writes are last-write-wins.
type TokenRepository interface {
	Init(ctx context.Context) error
	// Load returns ErrNotFound when no token is stored.
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	// Clear is idempotent.
	Clear(ctx context.Context) error
}
