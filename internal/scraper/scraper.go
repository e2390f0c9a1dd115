// Package scraper defines the boundary between per-source calendar scrapers
// and the reconciliation pipeline. A scraper returns one complete snapshot of
// the events its source currently lists; it carries no delete signal, so the
// pipeline infers removals from absence across cycles.
package scraper

import (
	"context"

	"github.com/kirbyniko/statehouse/internal/model"
)

// Scraper produces one full snapshot of a source's listed events
type Scraper interface {
	// Source returns the stable source identifier events are scoped by
	Source() string
	// Scrape fetches and parses the source's current calendar
	Scrape(ctx context.Context) ([]model.RawEvent, error)
}
