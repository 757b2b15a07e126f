package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS messages (
		id                  BIGSERIAL PRIMARY KEY,
		category            TEXT NOT NULL,
		recipient_name      TEXT NOT NULL,
		recipient_email     TEXT NOT NULL,
		recipient_phone_ext TEXT NOT NULL DEFAULT '',
		worker_name         TEXT,
		worker_email        TEXT,
		worker_phone        TEXT,
		is_anonymous        BOOLEAN NOT NULL DEFAULT FALSE,
		topic               TEXT NOT NULL,
		message             TEXT NOT NULL,
		"timestamp"         TEXT NOT NULL,
		status              TEXT NOT NULL DEFAULT 'pending'
			CHECK (status IN ('pending', 'approved', 'rejected', 'sent')),
		created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS messages_status_created_idx ON messages (status, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS outbox_events (
		seq            BIGSERIAL PRIMARY KEY,
		event_id       UUID NOT NULL UNIQUE,
		aggregate_type TEXT NOT NULL,
		aggregate_id   TEXT NOT NULL,
		event_type     TEXT NOT NULL,
		payload        BYTEA NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		processed_at   TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS outbox_events_unprocessed_idx ON outbox_events (seq) WHERE processed_at IS NULL`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS messages (
		id                  INTEGER PRIMARY KEY AUTOINCREMENT,
		category            TEXT NOT NULL,
		recipient_name      TEXT NOT NULL,
		recipient_email     TEXT NOT NULL,
		recipient_phone_ext TEXT NOT NULL DEFAULT '',
		worker_name         TEXT,
		worker_email        TEXT,
		worker_phone        TEXT,
		is_anonymous        BOOLEAN NOT NULL DEFAULT 0,
		topic               TEXT NOT NULL,
		message             TEXT NOT NULL,
		"timestamp"         TEXT NOT NULL,
		status              TEXT NOT NULL DEFAULT 'pending'
			CHECK (status IN ('pending', 'approved', 'rejected', 'sent')),
		created_at          TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS messages_status_created_idx ON messages (status, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS outbox_events (
		seq            INTEGER PRIMARY KEY AUTOINCREMENT,
		event_id       TEXT NOT NULL UNIQUE,
		aggregate_type TEXT NOT NULL,
		aggregate_id   TEXT NOT NULL,
		event_type     TEXT NOT NULL,
		payload        BLOB NOT NULL,
		created_at     TIMESTAMP NOT NULL,
		processed_at   TIMESTAMP
	)`,
}

// Migrate creates the tables this service owns. It is idempotent.
func Migrate(ctx context.Context, db *sql.DB, d Dialect) error {
	stmts := postgresSchema
	if d == SQLite {
		stmts = sqliteSchema
	}
	for i, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i, err)
		}
	}
	return nil
}
