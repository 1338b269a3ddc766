package repository

import (
	"context"

	"wellness-hub/internal/domain"
)

// JournalRepository stores diary entries. Ownership is recorded in
// Journal.User; enforcing it is up to the caller.
type JournalRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, userID int64, journal *domain.Journal) (int64, error)
	Get(ctx context.Context, id int64) (*domain.Journal, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Journal, error)
	Update(ctx context.Context, id int64, journal *domain.Journal) error
	Delete(ctx context.Context, id int64) error
}
