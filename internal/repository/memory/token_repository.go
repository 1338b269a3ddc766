// Package memory keeps the session token in process memory. It is used for
// store.driver=memory and in tests.
package memory

import (
	"context"
	"sync"

	"wellness-hub/internal/repository"
)

var _ repository.TokenRepository = (*TokenRepository)(nil)

type TokenRepository struct {
	mu    sync.RWMutex
	token string
}

func NewTokenRepository() *TokenRepository {
	return &TokenRepository{}
}

func (r *TokenRepository) Init(ctx context.Context) error {
	return nil
}

func (r *TokenRepository) Load(ctx context.Context) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.token == "" {
		return "", repository.ErrNotFound
	}
	return r.token, nil
}

func (r *TokenRepository) Save(ctx context.Context, token string) error {
	r.mu.Lock()
	r.token = token
	r.mu.Unlock()
	return nil
}

func (r *TokenRepository) Clear(ctx context.Context) error {
	r.mu.Lock()
	r.token = ""
	r.mu.Unlock()
	return nil
}
