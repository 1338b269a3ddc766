package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"wellness-hub/internal/domain"
	"wellness-hub/internal/repository"
)

const createAssessmentsTable = `
CREATE TABLE IF NOT EXISTS assessments (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	kind TEXT NOT NULL,
	input TEXT NOT NULL,
	result TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);
`

const createAssessmentsIndex = `
CREATE INDEX IF NOT EXISTS idx_assessments_user_kind ON assessments(user_id, kind, created_at);
`

// defaultHistoryLimit matches the thirty entries the history endpoints return.
const defaultHistoryLimit = 30

type AssessmentRepository struct {
	db *sql.DB
}

func NewAssessmentRepository(db *sql.DB) repository.AssessmentRepository {
	return &AssessmentRepository{db: db}
}

func (r *AssessmentRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createAssessmentsTable); err != nil {
		return fmt.Errorf("create assessments table: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, createAssessmentsIndex); err != nil {
		return fmt.Errorf("create assessments index: %w", err)
	}
	return nil
}

func (r *AssessmentRepository) Create(ctx context.Context, assessment *domain.Assessment) (int64, error) {
	if assessment.CreatedAt.IsZero() {
		assessment.CreatedAt = time.Now().UTC()
	}

	res, err := r.db.ExecContext(ctx, `
INSERT INTO assessments (user_id, kind, input, result, created_at)
VALUES (?, ?, ?, ?, ?)`,
		assessment.UserID,
		string(assessment.Kind),
		string(assessment.Input),
		string(assessment.Result),
		assessment.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert assessment: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("assessment last insert id: %w", err)
	}
	assessment.ID = id
	return id, nil
}

func (r *AssessmentRepository) ListByUser(ctx context.Context, userID int64, kind domain.AssessmentKind, limit int) ([]domain.Assessment, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT id, user_id, kind, input, result, created_at
FROM assessments
WHERE user_id = ? AND kind = ?
ORDER BY created_at DESC, id DESC
LIMIT ?`,
		userID,
		string(kind),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query assessments: %w", err)
	}
	defer rows.Close()

	assessments := []domain.Assessment{}
	for rows.Next() {
		var (
			a      domain.Assessment
			k      string
			input  []byte
			result []byte
		)
		if err := rows.Scan(&a.ID, &a.UserID, &k, &input, &result, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan assessment: %w", err)
		}
		a.Kind = domain.AssessmentKind(k)
		a.Input = input
		if len(result) > 0 {
			a.Result = result
		}
		assessments = append(assessments, a)
	}

	return assessments, rows.Err()
}
