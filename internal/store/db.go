package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// schema is the Postgres schema for the reconciliation store. Statements are
// idempotent so startup can always run them.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS events (
		id                          SERIAL PRIMARY KEY,
		source                      TEXT NOT NULL,
		external_id                 TEXT NOT NULL,
		fingerprint                 TEXT NOT NULL,
		name                        TEXT NOT NULL CHECK (name <> ''),
		date                        TIMESTAMP NOT NULL,
		time                        TEXT,
		lat                         DOUBLE PRECISION,
		lng                         DOUBLE PRECISION,
		location_name               TEXT,
		location_address            TEXT,
		description                 TEXT,
		committee_name              TEXT,
		type                        TEXT,
		detail_url                  TEXT,
		docket_url                  TEXT,
		virtual_meeting_url         TEXT,
		source_url                  TEXT,
		allows_public_participation BOOLEAN NOT NULL DEFAULT FALSE,
		last_seen_at                TIMESTAMP NOT NULL,
		seen_in_current_scrape      BOOLEAN NOT NULL DEFAULT TRUE,
		scrape_cycle_count          INTEGER NOT NULL DEFAULT 1,
		removed_at                  TIMESTAMP,
		created_at                  TIMESTAMP NOT NULL,
		updated_at                  TIMESTAMP NOT NULL,
		UNIQUE (source, external_id)
	)`,
	`CREATE INDEX IF NOT EXISTS events_source_idx ON events (source)`,
	`CREATE INDEX IF NOT EXISTS events_date_idx ON events (date)`,
	`CREATE TABLE IF NOT EXISTS archived_events (
		id                          SERIAL PRIMARY KEY,
		event_id                    INTEGER NOT NULL UNIQUE,
		source                      TEXT NOT NULL,
		external_id                 TEXT NOT NULL,
		fingerprint                 TEXT NOT NULL,
		name                        TEXT NOT NULL,
		date                        TIMESTAMP NOT NULL,
		time                        TEXT,
		lat                         DOUBLE PRECISION,
		lng                         DOUBLE PRECISION,
		location_name               TEXT,
		location_address            TEXT,
		description                 TEXT,
		committee_name              TEXT,
		type                        TEXT,
		detail_url                  TEXT,
		docket_url                  TEXT,
		virtual_meeting_url         TEXT,
		source_url                  TEXT,
		allows_public_participation BOOLEAN NOT NULL DEFAULT FALSE,
		archived_at                 TIMESTAMP NOT NULL,
		removal_reason              TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS archived_events_archived_at_idx ON archived_events (archived_at)`,
	`CREATE TABLE IF NOT EXISTS bills (
		id          SERIAL PRIMARY KEY,
		state       TEXT NOT NULL,
		bill_number TEXT NOT NULL,
		title       TEXT,
		description TEXT,
		url         TEXT,
		status      TEXT,
		UNIQUE (state, bill_number)
	)`,
	`CREATE TABLE IF NOT EXISTS event_bills (
		event_id INTEGER NOT NULL,
		bill_id  INTEGER NOT NULL,
		UNIQUE (event_id, bill_id)
	)`,
	`CREATE TABLE IF NOT EXISTS event_tags (
		event_id INTEGER NOT NULL,
		tag      TEXT NOT NULL,
		UNIQUE (event_id, tag)
	)`,
}

// NewDB opens a Postgres connection pool and verifies connectivity
func NewDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// EnsureSchema creates all tables and indexes if they do not exist yet
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
