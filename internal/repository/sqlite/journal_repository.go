package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"wellness-hub/internal/domain"
	"wellness-hub/internal/repository"
)

const createJournalsTable = `
CREATE TABLE IF NOT EXISTS journals (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	title TEXT NOT NULL,
	content TEXT NOT NULL,
	mood TEXT NOT NULL DEFAULT '',
	sentiment TEXT NOT NULL DEFAULT '',
	date DATETIME NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
`

type JournalRepository struct {
	db *sql.DB
}

func NewJournalRepository(db *sql.DB) repository.JournalRepository {
	return &JournalRepository{db: db}
}

func (r *JournalRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createJournalsTable); err != nil {
		return fmt.Errorf("create journals table: %w", err)
	}
	return nil
}

func (r *JournalRepository) Create(ctx context.Context, userID int64, journal *domain.Journal) (int64, error) {
	now := time.Now().UTC()
	if journal.Date.IsZero() {
		journal.Date = now
	}
	journal.CreatedAt = now
	journal.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, `
INSERT INTO journals (user_id, title, content, mood, sentiment, date, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		userID,
		journal.Title,
		journal.Content,
		journal.Mood,
		journal.Sentiment,
		journal.Date,
		journal.CreatedAt,
		journal.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert journal: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("journal last insert id: %w", err)
	}
	journal.ID = strconv.FormatInt(id, 10)
	journal.User = strconv.FormatInt(userID, 10)
	return id, nil
}

func (r *JournalRepository) Get(ctx context.Context, id int64) (*domain.Journal, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, user_id, title, content, mood, sentiment, date, created_at, updated_at
FROM journals
WHERE id = ?`,
		id,
	)
	journal, err := scanJournal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("journal %d: %w", id, repository.ErrNotFound)
	}
	return journal, err
}

func (r *JournalRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Journal, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, user_id, title, content, mood, sentiment, date, created_at, updated_at
FROM journals
WHERE user_id = ?
ORDER BY date DESC, created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query journals: %w", err)
	}
	defer rows.Close()

	journals := []domain.Journal{}
	for rows.Next() {
		journal, err := scanJournal(rows)
		if err != nil {
			return nil, err
		}
		journals = append(journals, *journal)
	}
	return journals, rows.Err()
}

func (r *JournalRepository) Update(ctx context.Context, id int64, journal *domain.Journal) error {
	journal.UpdatedAt = time.Now().UTC()
	if journal.Date.IsZero() {
		journal.Date = journal.UpdatedAt
	}

	res, err := r.db.ExecContext(ctx, `
UPDATE journals
SET title = ?, content = ?, mood = ?, sentiment = ?, date = ?, updated_at = ?
WHERE id = ?`,
		journal.Title,
		journal.Content,
		journal.Mood,
		journal.Sentiment,
		journal.Date,
		journal.UpdatedAt,
		id,
	)
	if err != nil {
		return fmt.Errorf("update journal: %w", err)
	}
	return expectAffected(res, fmt.Sprintf("journal %d", id))
}

func (r *JournalRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM journals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete journal: %w", err)
	}
	return expectAffected(res, fmt.Sprintf("journal %d", id))
}

func scanJournal(row interface {
	Scan(dest ...any) error
}) (*domain.Journal, error) {
	var (
		journal domain.Journal
		id      int64
		userID  int64
	)
	if err := row.Scan(
		&id,
		&userID,
		&journal.Title,
		&journal.Content,
		&journal.Mood,
		&journal.Sentiment,
		&journal.Date,
		&journal.CreatedAt,
		&journal.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan journal: %w", err)
	}
	journal.ID = strconv.FormatInt(id, 10)
	journal.User = strconv.FormatInt(userID, 10)
	return &journal, nil
}

func expectAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, repository.ErrNotFound)
	}
	return nil
}
