// Package redis stores the session token in Redis so several client processes
// on one machine share a single session slot.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"wellness-hub/internal/repository"
)

// TokenRepository keeps the token under prefix+key. A zero TTL stores it without expiry.
type TokenRepository struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func NewTokenRepository(client *redis.Client, prefix, key string, ttl time.Duration) repository.TokenRepository {
	if key == "" {
		key = repository.DefaultTokenKey
	}
	return &TokenRepository{
		client: client,
		key:    prefix + key,
		ttl:    ttl,
	}
}

// Init verifies the server is reachable.
func (r *TokenRepository) Init(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

func (r *TokenRepository) Load(ctx context.Context) (string, error) {
	token, err := r.client.Get(ctx, r.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
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
	if err := r.client.Set(ctx, r.key, token, r.ttl).Err(); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

func (r *TokenRepository) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}

var _ repository.TokenRepository = (*TokenRepository)(nil)
