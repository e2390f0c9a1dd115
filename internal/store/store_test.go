package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/kirbyniko/statehouse/internal/model"
)

// testSchema mirrors the Postgres schema in sqlite terms so the stores' SQL
// runs unmodified against an in-memory database
var testSchema = []string{
	`CREATE TABLE events (
		id                          INTEGER PRIMARY KEY AUTOINCREMENT,
		source                      TEXT NOT NULL,
		external_id                 TEXT NOT NULL,
		fingerprint                 TEXT NOT NULL,
		name                        TEXT NOT NULL CHECK (name <> ''),
		date                        TIMESTAMP NOT NULL,
		time                        TEXT,
		lat                         REAL,
		lng                         REAL,
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
	`CREATE TABLE archived_events (
		id                          INTEGER PRIMARY KEY AUTOINCREMENT,
		event_id                    INTEGER NOT NULL UNIQUE,
		source                      TEXT NOT NULL,
		external_id                 TEXT NOT NULL,
		fingerprint                 TEXT NOT NULL,
		name                        TEXT NOT NULL,
		date                        TIMESTAMP NOT NULL,
		time                        TEXT,
		lat                         REAL,
		lng                         REAL,
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
	`CREATE TABLE bills (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		state       TEXT NOT NULL,
		bill_number TEXT NOT NULL,
		title       TEXT,
		description TEXT,
		url         TEXT,
		status      TEXT,
		UNIQUE (state, bill_number)
	)`,
	`CREATE TABLE event_bills (
		event_id INTEGER NOT NULL,
		bill_id  INTEGER NOT NULL,
		UNIQUE (event_id, bill_id)
	)`,
	`CREATE TABLE event_tags (
		event_id INTEGER NOT NULL,
		tag      TEXT NOT NULL,
		UNIQUE (event_id, tag)
	)`,
}

// newTestDB opens an in-memory sqlite database with the test schema applied
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1) // single connection so :memory: state is shared
	t.Cleanup(func() { db.Close() })

	for _, stmt := range testSchema {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}

	return db
}

// testNow is a fixed reference instant for deterministic liveness tests
var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

// testEvent builds a minimal event for a source and external id
func testEvent(source, externalID, name string, date time.Time) *model.Event {
	return &model.Event{
		Source:      source,
		ExternalID:  externalID,
		Fingerprint: "fp-" + externalID,
		Name:        name,
		Date:        date,
	}
}

// mustUpsert inserts an event or fails the test
func mustUpsert(t *testing.T, s *EventStore, e *model.Event, now time.Time) {
	t.Helper()
	require.NoError(t, s.UpsertEvent(context.Background(), e, now))
	require.NotZero(t, e.ID)
}
