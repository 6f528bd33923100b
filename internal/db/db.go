package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

type DB struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

func (db *DB) Close() {
	db.pool.Close()
}

// RunMigrations creates the schema if it does not exist yet.
func (db *DB) RunMigrations(ctx context.Context) error {
	_, err := db.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS groups (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			owner_id TEXT NOT NULL,
			guild_id BIGINT,
			channel_id TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_groups_owner_id ON groups(owner_id);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_groups_channel_id ON groups(channel_id) WHERE channel_id IS NOT NULL;

		CREATE TABLE IF NOT EXISTS players (
			id TEXT PRIMARY KEY,
			group_id TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			UNIQUE (group_id, name)
		);

		CREATE TABLE IF NOT EXISTS game_sessions (
			id TEXT PRIMARY KEY,
			group_id TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
			start_time TIMESTAMPTZ NOT NULL,
			end_time TIMESTAMPTZ,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			chip_value BIGINT
		);
		CREATE INDEX IF NOT EXISTS idx_game_sessions_group_id ON game_sessions(group_id);

		CREATE TABLE IF NOT EXISTS session_players (
			session_id TEXT NOT NULL REFERENCES game_sessions(id) ON DELETE CASCADE,
			player_id TEXT NOT NULL REFERENCES players(id),
			position INT NOT NULL,
			final_chips BIGINT,
			PRIMARY KEY (session_id, player_id)
		);

		CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES game_sessions(id) ON DELETE CASCADE,
			seq BIGSERIAL,
			ts TIMESTAMPTZ NOT NULL,
			type TEXT NOT NULL,
			from_id TEXT NOT NULL,
			to_id TEXT NOT NULL,
			amount BIGINT NOT NULL CHECK (amount >= 0)
		);
		CREATE INDEX IF NOT EXISTS idx_transactions_session_id ON transactions(session_id, seq);

		CREATE TABLE IF NOT EXISTS payout_tasks (
			id BIGSERIAL PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES game_sessions(id) ON DELETE CASCADE,
			payer_id TEXT NOT NULL,
			payee_id TEXT NOT NULL,
			amount BIGINT NOT NULL,
			completed BOOLEAN NOT NULL DEFAULT FALSE,
			completed_at TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS payout_payments (
			id BIGSERIAL PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES game_sessions(id) ON DELETE CASCADE,
			payer_id TEXT NOT NULL,
			payee_id TEXT NOT NULL,
			amount BIGINT NOT NULL,
			memo TEXT,
			recorded_by TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS payout_reminders (
			session_id TEXT PRIMARY KEY REFERENCES game_sessions(id) ON DELETE CASCADE,
			enabled BOOLEAN NOT NULL DEFAULT TRUE,
			interval_minutes INT NOT NULL,
			next_due_at TIMESTAMPTZ,
			last_sent_at TIMESTAMPTZ
		);
	`)
	return err
}

// mapErr translates driver errors into the package sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
	}
	return err
}
