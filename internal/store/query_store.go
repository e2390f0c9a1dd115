package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/kirbyniko/statehouse/internal/model"
)

const (
	earthRadiusMiles = 3959

	// Priority score weights. A linked bill outranks public participation,
	// which outranks topical tags.
	scoreHasBills      = 100
	scoreParticipation = 50
	scoreHasTags       = 25
	maxRankedResults   = 100
)

// QueryStore derives read-only views over the live event population. It
// consumes the liveness fields but never writes them.
type QueryStore struct {
	db *sql.DB
}

// NewQueryStore creates a new QueryStore
func NewQueryStore(db *sql.DB) *QueryStore {
	return &QueryStore{db: db}
}

// RankedEvent wraps an Event with its link counts and derived priority score
type RankedEvent struct {
	model.Event
	BillCount int
	TagCount  int
	Score     int
}

// NearbyEvent wraps an Event with its great-circle distance from a query point
type NearbyEvent struct {
	model.Event
	DistanceMiles float64
}

// fetchUpcoming retrieves all live events dated now or later along with
// their bill and tag counts
func (s *QueryStore) fetchUpcoming(ctx context.Context, now time.Time) ([]RankedEvent, error) {
	query := fmt.Sprintf(`
		SELECT %s,
		       (SELECT COUNT(*) FROM event_bills eb WHERE eb.event_id = events.id),
		       (SELECT COUNT(*) FROM event_tags et WHERE et.event_id = events.id)
		FROM events
		WHERE removed_at IS NULL AND date >= $1
	`, eventColumns)

	rows, err := s.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query upcoming events: %w", err)
	}
	defer rows.Close()

	var events []RankedEvent
	for rows.Next() {
		var re RankedEvent
		err := rows.Scan(
			&re.ID,
			&re.Source,
			&re.ExternalID,
			&re.Fingerprint,
			&re.Name,
			&re.Date,
			&re.Time,
			&re.Lat,
			&re.Lng,
			&re.LocationName,
			&re.LocationAddress,
			&re.Description,
			&re.CommitteeName,
			&re.Type,
			&re.DetailURL,
			&re.DocketURL,
			&re.VirtualMeetingURL,
			&re.SourceURL,
			&re.AllowsPublicParticipation,
			&re.LastSeenAt,
			&re.SeenInCurrentScrape,
			&re.ScrapeCycleCount,
			&re.RemovedAt,
			&re.CreatedAt,
			&re.UpdatedAt,
			&re.BillCount,
			&re.TagCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan upcoming event: %w", err)
		}
		events = append(events, re)
	}

	return events, rows.Err()
}

// QueryTopRanked returns up to 100 upcoming events ordered by priority score
// descending, ties broken by date then time with missing times last
func (s *QueryStore) QueryTopRanked(ctx context.Context, now time.Time) ([]RankedEvent, error) {
	events, err := s.fetchUpcoming(ctx, now)
	if err != nil {
		return nil, err
	}

	for i := range events {
		events[i].Score = priorityScore(&events[i])
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Score != events[j].Score {
			return events[i].Score > events[j].Score
		}
		return eventTimeLess(&events[i].Event, &events[j].Event)
	})

	if len(events) > maxRankedResults {
		events = events[:maxRankedResults]
	}

	return events, nil
}

// QueryNear returns upcoming events within radiusMiles of the query point,
// boundary inclusive, ordered by distance then date then time
func (s *QueryStore) QueryNear(ctx context.Context, lat, lng, radiusMiles float64, now time.Time) ([]NearbyEvent, error) {
	events, err := s.fetchUpcoming(ctx, now)
	if err != nil {
		return nil, err
	}

	var nearby []NearbyEvent
	for i := range events {
		e := events[i].Event
		if !e.Lat.Valid || !e.Lng.Valid {
			continue
		}
		dist := haversineMiles(lat, lng, e.Lat.Float64, e.Lng.Float64)
		if dist > radiusMiles {
			continue
		}
		nearby = append(nearby, NearbyEvent{Event: e, DistanceMiles: dist})
	}

	sort.SliceStable(nearby, func(i, j int) bool {
		if nearby[i].DistanceMiles != nearby[j].DistanceMiles {
			return nearby[i].DistanceMiles < nearby[j].DistanceMiles
		}
		return eventTimeLess(&nearby[i].Event, &nearby[j].Event)
	})

	return nearby, nil
}

// priorityScore computes the weighted interest score for an event
func priorityScore(re *RankedEvent) int {
	score := 0
	if re.BillCount > 0 {
		score += scoreHasBills
	}
	if re.AllowsPublicParticipation {
		score += scoreParticipation
	}
	if re.TagCount > 0 {
		score += scoreHasTags
	}
	return score
}

// eventTimeLess orders events by date ascending, then time ascending with
// null times last
func eventTimeLess(a, b *model.Event) bool {
	if !a.Date.Equal(b.Date) {
		return a.Date.Before(b.Date)
	}
	if a.Time.Valid != b.Time.Valid {
		return a.Time.Valid
	}
	return a.Time.String < b.Time.String
}

// haversineMiles computes the great-circle distance between two points
func haversineMiles(lat1, lng1, lat2, lng2 float64) float64 {
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := rad(lat2 - lat1)
	dLng := rad(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMiles * c
}
