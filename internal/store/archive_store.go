package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kirbyniko/statehouse/internal/model"
)

// ArchiveStore handles archival of stale events and the retention sweeps
type ArchiveStore struct {
	db *sql.DB
}

// NewArchiveStore creates a new ArchiveStore
func NewArchiveStore(db *sql.DB) *ArchiveStore {
	return &ArchiveStore{db: db}
}

// ArchiveStale copies every live row for a source that has gone unseen for at
// least cycleThreshold consecutive cycles into archived_events, then
// soft-deletes the originals. The archive insert conflicts on the original row
// id, so re-running the sweep never produces duplicate copies. Returns the
// number of rows soft-deleted.
func (s *ArchiveStore) ArchiveStale(ctx context.Context, source string, cycleThreshold int, now time.Time) (int, error) {
	insertQuery := `
		INSERT INTO archived_events (event_id, source, external_id, fingerprint, name, date, time,
		                             lat, lng, location_name, location_address, description,
		                             committee_name, type, detail_url, docket_url,
		                             virtual_meeting_url, source_url, allows_public_participation,
		                             archived_at, removal_reason)
		SELECT id, source, external_id, fingerprint, name, date, time,
		       lat, lng, location_name, location_address, description,
		       committee_name, type, detail_url, docket_url,
		       virtual_meeting_url, source_url, allows_public_participation,
		       $1, 'not seen in ' || scrape_cycle_count || ' consecutive scrape cycles'
		FROM events
		WHERE source = $2 AND removed_at IS NULL
		  AND seen_in_current_scrape = FALSE AND scrape_cycle_count >= $3
		ON CONFLICT (event_id) DO NOTHING
	`

	if _, err := s.db.ExecContext(ctx, insertQuery, now, source, cycleThreshold); err != nil {
		return 0, fmt.Errorf("failed to archive stale events for %s: %w", source, err)
	}

	removeQuery := `
		UPDATE events
		SET removed_at = $1, updated_at = $2
		WHERE source = $3 AND removed_at IS NULL
		  AND seen_in_current_scrape = FALSE AND scrape_cycle_count >= $4
	`

	res, err := s.db.ExecContext(ctx, removeQuery, now, now, source, cycleThreshold)
	if err != nil {
		return 0, fmt.Errorf("failed to soft-delete stale events for %s: %w", source, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count archived rows for %s: %w", source, err)
	}

	return int(n), nil
}

// PurgeExpired runs the two retention sweeps: archive copies older than
// archiveBefore are deleted, and soft-removed live-table rows older than
// removedBefore are physically deleted. The windows are independent on
// purpose; the archive copy is the long-term record and outlives the
// live row's grace period.
func (s *ArchiveStore) PurgeExpired(ctx context.Context, archiveBefore, removedBefore time.Time) (archivedPurged, removedPurged int, err error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM archived_events WHERE archived_at < $1`, archiveBefore)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to purge expired archive rows: %w", err)
	}
	a, err := res.RowsAffected()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count purged archive rows: %w", err)
	}

	res, err = s.db.ExecContext(ctx,
		`DELETE FROM events WHERE removed_at IS NOT NULL AND removed_at < $1`, removedBefore)
	if err != nil {
		return int(a), 0, fmt.Errorf("failed to purge soft-removed events: %w", err)
	}
	r, err := res.RowsAffected()
	if err != nil {
		return int(a), 0, fmt.Errorf("failed to count purged events: %w", err)
	}

	return int(a), int(r), nil
}

// GetByEventID retrieves the archive copy for an original event row.
// Returns nil when no copy exists.
func (s *ArchiveStore) GetByEventID(ctx context.Context, eventID int) (*model.ArchivedEvent, error) {
	query := `
		SELECT id, event_id, source, external_id, fingerprint, name, date, time, lat, lng,
		       location_name, location_address, description, committee_name, type,
		       detail_url, docket_url, virtual_meeting_url, source_url,
		       allows_public_participation, archived_at, removal_reason
		FROM archived_events
		WHERE event_id = $1
	`

	var a model.ArchivedEvent
	err := s.db.QueryRowContext(ctx, query, eventID).Scan(
		&a.ID,
		&a.EventID,
		&a.Source,
		&a.ExternalID,
		&a.Fingerprint,
		&a.Name,
		&a.Date,
		&a.Time,
		&a.Lat,
		&a.Lng,
		&a.LocationName,
		&a.LocationAddress,
		&a.Description,
		&a.CommitteeName,
		&a.Type,
		&a.DetailURL,
		&a.DocketURL,
		&a.VirtualMeetingURL,
		&a.SourceURL,
		&a.AllowsPublicParticipation,
		&a.ArchivedAt,
		&a.RemovalReason,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get archive copy for event %d: %w", eventID, err)
	}

	return &a, nil
}

// CountArchived returns the total number of archive copies
func (s *ArchiveStore) CountArchived(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM archived_events`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count archived events: %w", err)
	}
	return count, nil
}
