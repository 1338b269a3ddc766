package main

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"wellness-hub/internal/config"
	"wellness-hub/internal/gateway"
	"wellness-hub/internal/repository"
	"wellness-hub/internal/repository/memory"
	"wellness-hub/internal/repository/redis"
	"wellness-hub/internal/repository/sqlite"
	"wellness-hub/internal/session"
)

// app is the wired client: token store, gateway and session manager.
type app struct {
	tokens  repository.TokenRepository
	client  *gateway.Client
	session *session.Manager
	closers []func() error
}

func newApp(ctx context.Context, cfg config.Config, logger *logrus.Logger) (*app, error) {
	a := &app{}

	tokens, err := a.openTokenStore(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.tokens = tokens

	a.client = gateway.New(gateway.Config{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
		Demo:    cfg.Demo.Enabled,
		Tokens:  tokens,
		Logger:  logger,
	})
	a.session = session.NewManager(a.client, tokens, session.Config{
		Demo:      cfg.Demo.Enabled,
		DemoDelay: cfg.Demo.Delay,
		Logger:    logger,
	})
	a.client.OnUnauthorized(a.session.HandleUnauthorized)

	return a, nil
}

func (a *app) openTokenStore(ctx context.Context, cfg config.Config) (repository.TokenRepository, error) {
	var tokens repository.TokenRepository

	switch cfg.Store.Driver {
	case "memory":
		tokens = memory.NewTokenRepository()
	case "redis":
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		})
		a.closers = append(a.closers, client.Close)
		tokens = redis.NewTokenRepository(client, cfg.Store.Redis.Prefix, cfg.Store.Key, cfg.Store.Redis.TTL)
	default:
		db, err := sqlite.Open(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("open token store: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		tokens = sqlite.NewTokenRepository(db, cfg.Store.Key)
	}

	if err := tokens.Init(ctx); err != nil {
		return nil, fmt.Errorf("init token store: %w", err)
	}
	return tokens, nil
}

func (a *app) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
