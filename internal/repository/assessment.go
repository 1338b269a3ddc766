package repository

import (
	"context"

	"wellness-hub/internal/domain"
)

// AssessmentRepository stores submitted assessments for the history endpoints.
type AssessmentRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, assessment *domain.Assessment) (int64, error)
	ListByUser(ctx context.Context, userID int64, kind domain.AssessmentKind, limit int) ([]domain.Assessment, error)
}
