package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/kirbyniko/statehouse/internal/store"
)

// StatsHandler reports the upcoming-event count and per-source row totals
func StatsHandler(eventStore *store.EventStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := context.Background()

		upcoming, err := eventStore.CountUpcoming(ctx, time.Now().UTC())
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to count events"})
		}

		bySource, err := eventStore.CountBySource(ctx)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to count sources"})
		}

		sources := make([]fiber.Map, 0, len(bySource))
		for _, s := range bySource {
			sources = append(sources, fiber.Map{
				"source":  s.Source,
				"live":    s.Live,
				"removed": s.Removed,
			})
		}

		return c.JSON(fiber.Map{
			"upcoming": upcoming,
			"sources":  sources,
		})
	}
}
