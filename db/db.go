// Package db holds the Postgres store: connection, schema migration and the
// queries the bot runs against the performance catalog.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx postgres driver registered as 'pgx'

	"github.com/onnwee/spectacles-xix/crypto"
)

// Connect opens a Postgres connection pool for dsn.
func Connect(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("empty database dsn")
	}
	return sql.Open("pgx", dsn)
}

// Migrate applies idempotent schema changes. It mirrors the versioned
// migrations and is used when those cannot be run.
func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS spectacle_theater (
			theater_code VARCHAR(10) PRIMARY KEY,
			theater_name VARCHAR(40) NOT NULL,
			notes TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS spectacle_abbrev (
			abbrev VARCHAR(20) PRIMARY KEY,
			expansion VARCHAR(100) NOT NULL,
			notes TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS spectacle_play (
			id INTEGER PRIMARY KEY,
			wicks VARCHAR(10) NOT NULL,
			title VARCHAR(100) NOT NULL,
			author VARCHAR(100),
			genre VARCHAR(40),
			acts INTEGER,
			format VARCHAR(10),
			music VARCHAR(100),
			theater_code VARCHAR(40),
			rev_date VARCHAR(20),
			greg_date DATE NOT NULL,
			notes TEXT,
			last_tweeted TIMESTAMPTZ,
			last_tooted TIMESTAMPTZ
		)`,
		// older catalogs were created before Mastodon support
		`ALTER TABLE spectacle_play ADD COLUMN IF NOT EXISTS last_tooted TIMESTAMPTZ`,
		`CREATE TABLE IF NOT EXISTS oauth_tokens (
			provider TEXT PRIMARY KEY,
			access_token TEXT,
			refresh_token TEXT,
			expires_at TIMESTAMPTZ,
			scope TEXT,
			updated_at TIMESTAMPTZ DEFAULT NOW(),
			encryption_version INTEGER DEFAULT 0,
			encryption_key_id TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_spectacle_play_greg_date ON spectacle_play(greg_date)`,
		`CREATE INDEX IF NOT EXISTS idx_spectacle_play_wicks ON spectacle_play(wicks)`,
	}
	for i, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("postgres migrate step %d failed: %w", i, err)
		}
	}
	return nil
}

// Store runs the bot's queries. Sealer is optional; without it OAuth tokens
// are stored in plaintext.
type Store struct {
	DB     *sql.DB
	Sealer crypto.Sealer
	Logger *slog.Logger
}

// NewStore wraps an open pool.
func NewStore(db *sql.DB, sealer crypto.Sealer) *Store {
	return &Store{
		DB:     db,
		Sealer: sealer,
		Logger: slog.Default().With(slog.String("component", "db")),
	}
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error { return s.DB.PingContext(ctx) }
