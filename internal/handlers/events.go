package handlers

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/kirbyniko/statehouse/internal/model"
	"github.com/kirbyniko/statehouse/internal/service"
	"github.com/kirbyniko/statehouse/internal/store"
)

const defaultRadiusMiles = 25.0

// eventJSON is the wire shape for an event
type eventJSON struct {
	ID                        int      `json:"id"`
	Source                    string   `json:"source"`
	ExternalID                string   `json:"external_id"`
	Name                      string   `json:"name"`
	Date                      string   `json:"date"`
	Time                      *string  `json:"time,omitempty"`
	Lat                       *float64 `json:"lat,omitempty"`
	Lng                       *float64 `json:"lng,omitempty"`
	LocationName              *string  `json:"location_name,omitempty"`
	LocationAddress           *string  `json:"location_address,omitempty"`
	Description               *string  `json:"description,omitempty"`
	CommitteeName             *string  `json:"committee_name,omitempty"`
	Type                      *string  `json:"type,omitempty"`
	DetailURL                 *string  `json:"detail_url,omitempty"`
	DocketURL                 *string  `json:"docket_url,omitempty"`
	VirtualMeetingURL         *string  `json:"virtual_meeting_url,omitempty"`
	SourceURL                 *string  `json:"source_url,omitempty"`
	AllowsPublicParticipation bool     `json:"allows_public_participation"`
	LastSeenAt                string   `json:"last_seen_at"`

	// Derived view fields
	Score         *int     `json:"score,omitempty"`
	BillCount     *int     `json:"bill_count,omitempty"`
	TagCount      *int     `json:"tag_count,omitempty"`
	DistanceMiles *float64 `json:"distance_miles,omitempty"`
}

func toEventJSON(e *model.Event) eventJSON {
	return eventJSON{
		ID:                        e.ID,
		Source:                    e.Source,
		ExternalID:                e.ExternalID,
		Name:                      e.Name,
		Date:                      e.Date.Format("2006-01-02"),
		Time:                      nullableString(e.Time),
		Lat:                       nullableFloat(e.Lat),
		Lng:                       nullableFloat(e.Lng),
		LocationName:              nullableString(e.LocationName),
		LocationAddress:           nullableString(e.LocationAddress),
		Description:               nullableString(e.Description),
		CommitteeName:             nullableString(e.CommitteeName),
		Type:                      nullableString(e.Type),
		DetailURL:                 nullableString(e.DetailURL),
		DocketURL:                 nullableString(e.DocketURL),
		VirtualMeetingURL:         nullableString(e.VirtualMeetingURL),
		SourceURL:                 nullableString(e.SourceURL),
		AllowsPublicParticipation: e.AllowsPublicParticipation,
		LastSeenAt:                e.LastSeenAt.UTC().Format(time.RFC3339),
	}
}

func nullableString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func nullableFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

// EventsHandler lists live events for one source
func EventsHandler(eventStore *store.EventStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := context.Background()

		source := c.Query("source")
		if source == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "source is required"})
		}

		events, err := eventStore.QueryBySource(ctx, source)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load events"})
		}

		out := make([]eventJSON, 0, len(events))
		for i := range events {
			out = append(out, toEventJSON(&events[i]))
		}

		return c.JSON(fiber.Map{"events": out})
	}
}

// TopRankedHandler returns the priority-ranked view of upcoming events
func TopRankedHandler(queryStore *store.QueryStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := context.Background()

		ranked, err := queryStore.QueryTopRanked(ctx, time.Now().UTC())
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to rank events"})
		}

		out := make([]eventJSON, 0, len(ranked))
		for i := range ranked {
			ej := toEventJSON(&ranked[i].Event)
			ej.Score = &ranked[i].Score
			ej.BillCount = &ranked[i].BillCount
			ej.TagCount = &ranked[i].TagCount
			out = append(out, ej)
		}

		return c.JSON(fiber.Map{"events": out})
	}
}

// NearbyHandler returns upcoming events within a radius of a point given as
// lat/lng or as a ZIP code resolved through the geocoder
func NearbyHandler(queryStore *store.QueryStore, geocoder service.Geocoder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := context.Background()

		radius := defaultRadiusMiles
		if r := c.Query("radius"); r != "" {
			parsed, err := strconv.ParseFloat(r, 64)
			if err != nil || parsed <= 0 {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid radius"})
			}
			radius = parsed
		}

		var lat, lng float64
		if zip := c.Query("zip"); zip != "" {
			if geocoder == nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "zip lookups are not enabled"})
			}
			var err error
			lat, lng, err = geocoder.Lookup(ctx, zip)
			if err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "failed to resolve zip"})
			}
		} else {
			var err error
			lat, err = strconv.ParseFloat(c.Query("lat"), 64)
			if err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid lat"})
			}
			lng, err = strconv.ParseFloat(c.Query("lng"), 64)
			if err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid lng"})
			}
		}

		nearby, err := queryStore.QueryNear(ctx, lat, lng, radius, time.Now().UTC())
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load events"})
		}

		out := make([]eventJSON, 0, len(nearby))
		for i := range nearby {
			ej := toEventJSON(&nearby[i].Event)
			dist := nearby[i].DistanceMiles
			ej.DistanceMiles = &dist
			out = append(out, ej)
		}

		return c.JSON(fiber.Map{"events": out})
	}
}
