package repository

import (
	"context"

	"wellness-hub/internal/domain"
)

// UserRepository defines persistence operations for backend accounts.
type UserRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, account *domain.Account) (int64, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	GetByID(ctx context.Context, id int64) (*domain.Account, error)
}
