package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kirbyniko/statehouse/internal/model"
)

// eventColumns is the canonical column list for scanning full event rows
const eventColumns = `id, source, external_id, fingerprint, name, date, time, lat, lng,
	location_name, location_address, description, committee_name, type,
	detail_url, docket_url, virtual_meeting_url, source_url, allows_public_participation,
	last_seen_at, seen_in_current_scrape, scrape_cycle_count, removed_at, created_at, updated_at`

// EventStore handles database operations for events, including the upsert
// conflict resolution and the mark-and-sweep liveness bookkeeping
type EventStore struct {
	db *sql.DB
}

// NewEventStore creates a new EventStore
func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(r rowScanner, e *model.Event) error {
	return r.Scan(
		&e.ID,
		&e.Source,
		&e.ExternalID,
		&e.Fingerprint,
		&e.Name,
		&e.Date,
		&e.Time,
		&e.Lat,
		&e.Lng,
		&e.LocationName,
		&e.LocationAddress,
		&e.Description,
		&e.CommitteeName,
		&e.Type,
		&e.DetailURL,
		&e.DocketURL,
		&e.VirtualMeetingURL,
		&e.SourceURL,
		&e.AllowsPublicParticipation,
		&e.LastSeenAt,
		&e.SeenInCurrentScrape,
		&e.ScrapeCycleCount,
		&e.RemovedAt,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
}

// UpsertEvent inserts or refreshes an event keyed by (source, external_id).
// On conflict every descriptive field takes the incoming value (the most
// recent successful parse wins) and the liveness fields reset: the row is
// seen, its cycle count drops back to 1, and any soft-delete marker clears
// so a previously removed event resurrects. Sets e.ID on return.
func (s *EventStore) UpsertEvent(ctx context.Context, e *model.Event, now time.Time) error {
	query := `
		INSERT INTO events (source, external_id, fingerprint, name, date, time, lat, lng,
		                    location_name, location_address, description, committee_name, type,
		                    detail_url, docket_url, virtual_meeting_url, source_url,
		                    allows_public_participation, last_seen_at, seen_in_current_scrape,
		                    scrape_cycle_count, removed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
		        $18, $19, TRUE, 1, NULL, $20, $21)
		ON CONFLICT (source, external_id) DO UPDATE SET
			fingerprint = EXCLUDED.fingerprint,
			name = EXCLUDED.name,
			date = EXCLUDED.date,
			time = EXCLUDED.time,
			lat = EXCLUDED.lat,
			lng = EXCLUDED.lng,
			location_name = EXCLUDED.location_name,
			location_address = EXCLUDED.location_address,
			description = EXCLUDED.description,
			committee_name = EXCLUDED.committee_name,
			type = EXCLUDED.type,
			detail_url = EXCLUDED.detail_url,
			docket_url = EXCLUDED.docket_url,
			virtual_meeting_url = EXCLUDED.virtual_meeting_url,
			source_url = EXCLUDED.source_url,
			allows_public_participation = EXCLUDED.allows_public_participation,
			last_seen_at = EXCLUDED.last_seen_at,
			seen_in_current_scrape = TRUE,
			scrape_cycle_count = 1,
			removed_at = NULL,
			updated_at = EXCLUDED.updated_at
		RETURNING id
	`

	err := s.db.QueryRowContext(ctx, query,
		e.Source,
		e.ExternalID,
		e.Fingerprint,
		e.Name,
		e.Date,
		e.Time,
		e.Lat,
		e.Lng,
		e.LocationName,
		e.LocationAddress,
		e.Description,
		e.CommitteeName,
		e.Type,
		e.DetailURL,
		e.DocketURL,
		e.VirtualMeetingURL,
		e.SourceURL,
		e.AllowsPublicParticipation,
		now,
		now,
		now,
	).Scan(&e.ID)

	if err != nil {
		return fmt.Errorf("failed to upsert event %s/%s: %w", e.Source, e.ExternalID, err)
	}

	e.LastSeenAt = now
	e.SeenInCurrentScrape = true
	e.ScrapeCycleCount = 1
	e.RemovedAt = sql.NullTime{}

	return nil
}

// MarkSourceUnseen flips every live row for a source to unseen. Run before
// the source is scraped; upserts flip survivors back as they land.
func (s *EventStore) MarkSourceUnseen(ctx context.Context, source string) (int, error) {
	query := `
		UPDATE events
		SET seen_in_current_scrape = FALSE
		WHERE source = $1 AND removed_at IS NULL
	`

	res, err := s.db.ExecContext(ctx, query, source)
	if err != nil {
		return 0, fmt.Errorf("failed to mark %s events unseen: %w", source, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count marked rows for %s: %w", source, err)
	}

	return int(n), nil
}

// IncrementUnseenCycles advances the absence counter on every live row the
// current scrape did not touch. Run after the scrape loop completes; returns
// the number of rows affected.
func (s *EventStore) IncrementUnseenCycles(ctx context.Context, source string) (int, error) {
	query := `
		UPDATE events
		SET scrape_cycle_count = scrape_cycle_count + 1
		WHERE source = $1 AND removed_at IS NULL AND seen_in_current_scrape = FALSE
	`

	res, err := s.db.ExecContext(ctx, query, source)
	if err != nil {
		return 0, fmt.Errorf("failed to increment unseen cycles for %s: %w", source, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count incremented rows for %s: %w", source, err)
	}

	return int(n), nil
}

// GetByIdentity retrieves a single event by its conflict key, including
// soft-removed rows. Returns nil when no row exists.
func (s *EventStore) GetByIdentity(ctx context.Context, source, externalID string) (*model.Event, error) {
	query := fmt.Sprintf(`SELECT %s FROM events WHERE source = $1 AND external_id = $2`, eventColumns)

	var e model.Event
	err := scanEvent(s.db.QueryRowContext(ctx, query, source, externalID), &e)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event %s/%s: %w", source, externalID, err)
	}

	return &e, nil
}

// QueryBySource retrieves all live events for a source ordered by date,
// then time with missing times last
func (s *EventStore) QueryBySource(ctx context.Context, source string) ([]model.Event, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM events
		WHERE source = $1 AND removed_at IS NULL
		ORDER BY date ASC, time IS NULL, time ASC
	`, eventColumns)

	rows, err := s.db.QueryContext(ctx, query, source)
	if err != nil {
		return nil, fmt.Errorf("failed to query events for %s: %w", source, err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := scanEvent(rows, &e); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}

	return events, rows.Err()
}

// CountUpcoming returns the number of live events dated now or later
func (s *EventStore) CountUpcoming(ctx context.Context, now time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM events WHERE removed_at IS NULL AND date >= $1`, now,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count upcoming events: %w", err)
	}
	return count, nil
}

// SourceStats summarizes one source's live and soft-removed populations
type SourceStats struct {
	Source  string
	Live    int
	Removed int
}

// CountBySource returns per-source live/removed row counts
func (s *EventStore) CountBySource(ctx context.Context) ([]SourceStats, error) {
	query := `
		SELECT source,
		       COUNT(*) FILTER (WHERE removed_at IS NULL),
		       COUNT(*) FILTER (WHERE removed_at IS NOT NULL)
		FROM events
		GROUP BY source
		ORDER BY source
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count events by source: %w", err)
	}
	defer rows.Close()

	var stats []SourceStats
	for rows.Next() {
		var st SourceStats
		if err := rows.Scan(&st.Source, &st.Live, &st.Removed); err != nil {
			return nil, fmt.Errorf("failed to scan source stats: %w", err)
		}
		stats = append(stats, st)
	}

	return stats, rows.Err()
}

// AddTag attaches a tag to an event; duplicate tags are ignored
func (s *EventStore) AddTag(ctx context.Context, eventID int, tag string) error {
	query := `
		INSERT INTO event_tags (event_id, tag)
		VALUES ($1, $2)
		ON CONFLICT (event_id, tag) DO NOTHING
	`

	if _, err := s.db.ExecContext(ctx, query, eventID, tag); err != nil {
		return fmt.Errorf("failed to tag event %d with %q: %w", eventID, tag, err)
	}

	return nil
}

// GetTags retrieves all tags attached to an event
func (s *EventStore) GetTags(ctx context.Context, eventID int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tag FROM event_tags WHERE event_id = $1 ORDER BY tag`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tags for event %d: %w", eventID, err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, tag)
	}

	return tags, rows.Err()
}
