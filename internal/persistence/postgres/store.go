package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/codepad/internal/domain"
	"example.com/codepad/internal/observability"
)

const uniqueViolation = "23505"

// Store provides Postgres-backed persistence for intervals, accounts and
// documents. It implements domain.IntervalStore, domain.AccountStore and
// domain.DocumentStore.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a Store over an owned pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// CreateInterval appends a new activity interval.
func (s *Store) CreateInterval(ctx context.Context, interval domain.Interval) error {
	const stmt = `INSERT INTO editor_sessions (id, user_id, activity_date, started_at, ended_at)
        VALUES ($1,$2,$3,$4,$5)`

	_, err := s.pool.Exec(ctx, stmt,
		interval.ID,
		interval.UserID,
		interval.Date,
		interval.StartedAt,
		interval.EndedAt,
	)
	if err != nil {
		return err
	}
	observability.RecordIntervalPersisted(interval.StartedAt)
	return nil
}

// CloseLatestOpen closes the most recently started open interval for the
// user and day in a single conditional update, so concurrent end actions
// cannot both close the same row.
func (s *Store) CloseLatestOpen(ctx context.Context, userID, date string, endedAt time.Time) (bool, error) {
	const stmt = `UPDATE editor_sessions SET ended_at = $3
        WHERE id = (
            SELECT id FROM editor_sessions
            WHERE user_id = $1 AND activity_date = $2 AND ended_at IS NULL
            ORDER BY started_at DESC, id DESC
            LIMIT 1
            FOR UPDATE SKIP LOCKED
        )`

	tag, err := s.pool.Exec(ctx, stmt, userID, date, endedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// IntervalsByUserAndDate returns all intervals for the user and day, open
// and closed, oldest first.
func (s *Store) IntervalsByUserAndDate(ctx context.Context, userID, date string) ([]domain.Interval, error) {
	const query = `SELECT id, user_id, activity_date, started_at, ended_at
        FROM editor_sessions
        WHERE user_id = $1 AND activity_date = $2
        ORDER BY started_at, id`

	rows, err := s.pool.Query(ctx, query, userID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Interval
	for rows.Next() {
		var interval domain.Interval
		if err := rows.Scan(&interval.ID, &interval.UserID, &interval.Date, &interval.StartedAt, &interval.EndedAt); err != nil {
			return nil, err
		}
		results = append(results, interval)
	}
	return results, rows.Err()
}

// CreateUser inserts a user, mapping unique-email conflicts to
// domain.ErrEmailTaken.
func (s *Store) CreateUser(ctx context.Context, user domain.User) error {
	const stmt = `INSERT INTO users (user_id, email, password_hash, created_at)
        VALUES ($1,$2,$3,$4)`

	_, err := s.pool.Exec(ctx, stmt, user.ID, user.Email, user.PasswordHash, user.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.ErrEmailTaken
	}
	return err
}

// UserByEmail fetches a user by email, returning (nil, nil) when absent.
func (s *Store) UserByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `SELECT user_id, email, password_hash, created_at FROM users WHERE email = $1`
	return s.scanUser(s.pool.QueryRow(ctx, query, email))
}

// UserByID fetches a user by ID, returning (nil, nil) when absent.
func (s *Store) UserByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `SELECT user_id, email, password_hash, created_at FROM users WHERE user_id = $1`
	return s.scanUser(s.pool.QueryRow(ctx, query, id))
}

func (s *Store) scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// CreateSession inserts a login session.
func (s *Store) CreateSession(ctx context.Context, session domain.Session) error {
	const stmt = `INSERT INTO sessions (token, user_id, created_at, expires_at)
        VALUES ($1,$2,$3,$4)`

	_, err := s.pool.Exec(ctx, stmt, session.Token, session.UserID, session.CreatedAt, session.ExpiresAt)
	return err
}

// SessionByToken fetches a session, returning (nil, nil) when absent.
func (s *Store) SessionByToken(ctx context.Context, token string) (*domain.Session, error) {
	const query = `SELECT token, user_id, created_at, expires_at FROM sessions WHERE token = $1`

	var session domain.Session
	err := s.pool.QueryRow(ctx, query, token).Scan(&session.Token, &session.UserID, &session.CreatedAt, &session.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

// DeleteSession removes a session. Unknown tokens are a no-op.
func (s *Store) DeleteSession(ctx context.Context, token string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	return err
}

// CreateDocument inserts a document.
func (s *Store) CreateDocument(ctx context.Context, doc domain.Document) error {
	const stmt = `INSERT INTO documents (id, user_id, title, language, content, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`

	_, err := s.pool.Exec(ctx, stmt,
		doc.ID, doc.UserID, doc.Title, doc.Language, doc.Content, doc.CreatedAt, doc.UpdatedAt)
	return err
}

// DocumentByID fetches one of the user's documents, returning (nil, nil)
// when absent.
func (s *Store) DocumentByID(ctx context.Context, userID, id string) (*domain.Document, error) {
	const query = `SELECT id, user_id, title, language, content, created_at, updated_at
        FROM documents WHERE user_id = $1 AND id = $2`

	return s.scanDocument(s.pool.QueryRow(ctx, query, userID, id))
}

// UpdateDocument replaces title and content, returning the updated row or
// (nil, nil) when the document does not exist for the user.
func (s *Store) UpdateDocument(ctx context.Context, userID, id, title, content string, updatedAt time.Time) (*domain.Document, error) {
	const stmt = `UPDATE documents SET title = $3, content = $4, updated_at = $5
        WHERE user_id = $1 AND id = $2
        RETURNING id, user_id, title, language, content, created_at, updated_at`

	return s.scanDocument(s.pool.QueryRow(ctx, stmt, userID, id, title, content, updatedAt))
}

// DocumentsByUser returns documents newest first with cursor pagination.
func (s *Store) DocumentsByUser(ctx context.Context, userID string, cursor *domain.Cursor, limit int) ([]domain.Document, *domain.Cursor, error) {
	args := []interface{}{userID, limit}
	query := `SELECT id, user_id, title, language, content, created_at, updated_at
        FROM documents WHERE user_id = $1`

	if cursor != nil {
		query += ` AND (created_at, id) < ($3, $4)`
		args = append(args, cursor.CreatedAt, cursor.ID)
	}

	query += ` ORDER BY created_at DESC, id DESC LIMIT $2`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	results := make([]domain.Document, 0, limit)
	for rows.Next() {
		var doc domain.Document
		if err := rows.Scan(&doc.ID, &doc.UserID, &doc.Title, &doc.Language, &doc.Content, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, nil, err
		}
		results = append(results, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	var nextCursor *domain.Cursor
	if len(results) == limit {
		last := results[len(results)-1]
		nextCursor = &domain.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}

	return results, nextCursor, nil
}

func (s *Store) scanDocument(row pgx.Row) (*domain.Document, error) {
	var doc domain.Document
	if err := row.Scan(&doc.ID, &doc.UserID, &doc.Title, &doc.Language, &doc.Content, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &doc, nil
}
