// Package postgres provides pgx-backed persistence for the codepad backend.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is applied idempotently at startup. Pruning of old editor_sessions
// rows is an external policy (for example a cron over activity_date); the
// aggregator never depends on cleanup having run.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		user_id       TEXT PRIMARY KEY,
		email         TEXT NOT NULL UNIQUE,
		password_hash BYTEA NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		token      TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL REFERENCES users(user_id),
		created_at TIMESTAMPTZ NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS editor_sessions (
		id            TEXT PRIMARY KEY,
		user_id       TEXT NOT NULL,
		activity_date TEXT NOT NULL,
		started_at    TIMESTAMPTZ NOT NULL,
		ended_at      TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS editor_sessions_user_date_idx
		ON editor_sessions (user_id, activity_date)`,
	`CREATE TABLE IF NOT EXISTS documents (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		title      TEXT NOT NULL,
		language   TEXT NOT NULL DEFAULT '',
		content    TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS documents_user_created_idx
		ON documents (user_id, created_at DESC, id DESC)`,
}

// Connect opens a pool, verifies connectivity and applies the schema. The
// returned pool is the single owned database handle; callers inject it into
// NewStore rather than reading connection state from anywhere ambient.
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if err := EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// EnsureSchema applies the schema statements. Safe to call repeatedly.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
