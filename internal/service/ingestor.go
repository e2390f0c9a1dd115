package service

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kirbyniko/statehouse/internal/model"
	"github.com/kirbyniko/statehouse/internal/scraper"
	"github.com/kirbyniko/statehouse/internal/store"
)

const (
	// DefaultCycleThreshold is how many consecutive unseen cycles an event
	// survives before it is archived
	DefaultCycleThreshold = 2
	// DefaultRemovedRetention is how long soft-removed rows stay in the live
	// table for resurrection before being purged
	DefaultRemovedRetention = 7 * 24 * time.Hour
	// DefaultArchiveRetention is how long archive copies are kept
	DefaultArchiveRetention = 30 * 24 * time.Hour
)

// CycleStats tracks one full ingestion cycle for a single source
type CycleStats struct {
	RunID          string
	Source         string
	Marked         int
	Scraped        int
	Upserted       int
	Failed         int
	UnseenAdvanced int
	Archived       int
}

// IngestorConfig carries the lifecycle tuning knobs. Zero values fall back
// to the defaults above.
type IngestorConfig struct {
	CycleThreshold   int
	RemovedRetention time.Duration
	ArchiveRetention time.Duration
}

// Ingestor orchestrates the scrape cycle for each source: mark unseen,
// upsert everything the scraper reports, advance the absence counters, then
// archive whatever has been gone too long. Cycles for the same source are
// serialized; different sources may run concurrently.
type Ingestor struct {
	events   *store.EventStore
	bills    *store.BillStore
	archive  *store.ArchiveStore
	resolver *Resolver
	tagger   Tagger
	metrics  *Metrics
	cfg      IngestorConfig

	logger    *log.Logger
	errLogger *log.Logger

	mu          sync.Mutex
	sourceLocks map[string]*sync.Mutex

	now func() time.Time
}

// NewIngestor creates a new Ingestor. tagger and metrics may be nil.
func NewIngestor(events *store.EventStore, bills *store.BillStore, archive *store.ArchiveStore, tagger Tagger, metrics *Metrics, cfg IngestorConfig) *Ingestor {
	if cfg.CycleThreshold <= 0 {
		cfg.CycleThreshold = DefaultCycleThreshold
	}
	if cfg.RemovedRetention <= 0 {
		cfg.RemovedRetention = DefaultRemovedRetention
	}
	if cfg.ArchiveRetention <= 0 {
		cfg.ArchiveRetention = DefaultArchiveRetention
	}

	return &Ingestor{
		events:      events,
		bills:       bills,
		archive:     archive,
		resolver:    NewResolver(),
		tagger:      tagger,
		metrics:     metrics,
		cfg:         cfg,
		logger:      log.New(os.Stdout, "", log.LstdFlags),
		errLogger:   log.New(os.Stderr, "ERROR: ", log.LstdFlags),
		sourceLocks: make(map[string]*sync.Mutex),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// sourceLock returns the mutex serializing cycles for one source
func (i *Ingestor) sourceLock(source string) *sync.Mutex {
	i.mu.Lock()
	defer i.mu.Unlock()

	l, ok := i.sourceLocks[source]
	if !ok {
		l = &sync.Mutex{}
		i.sourceLocks[source] = l
	}
	return l
}

// RunCycle executes one full ingestion cycle for a source. A failed scrape
// aborts the cycle before the unseen counters advance, so a site outage never
// pushes events toward archival; the next successful cycle re-marks from
// scratch. Per-record upsert failures are logged and counted, never fatal to
// sibling records.
func (i *Ingestor) RunCycle(ctx context.Context, sc scraper.Scraper) (*CycleStats, error) {
	lock := i.sourceLock(sc.Source())
	lock.Lock()
	defer lock.Unlock()

	start := time.Now()
	stats := &CycleStats{
		RunID:  uuid.NewString()[:8],
		Source: sc.Source(),
	}

	i.logger.Printf("[%s] Starting cycle for source %s", stats.RunID, stats.Source)

	marked, err := i.events.MarkSourceUnseen(ctx, stats.Source)
	if err != nil {
		return stats, fmt.Errorf("failed to mark %s unseen: %w", stats.Source, err)
	}
	stats.Marked = marked

	records, err := sc.Scrape(ctx)
	if err != nil {
		return stats, fmt.Errorf("scrape failed for %s: %w", stats.Source, err)
	}
	stats.Scraped = len(records)
	i.logger.Printf("[%s] Scraped %d records from %s", stats.RunID, stats.Scraped, stats.Source)

	for idx := range records {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		if err := i.ingestRecord(ctx, stats.Source, &records[idx]); err != nil {
			i.errLogger.Printf("[%s] Failed to ingest record %q from %s: %v",
				stats.RunID, records[idx].Name, stats.Source, err)
			stats.Failed++
			if i.metrics != nil {
				i.metrics.RecordsFailed.WithLabelValues(stats.Source).Inc()
			}
			continue
		}
		stats.Upserted++
		if i.metrics != nil {
			i.metrics.EventsUpserted.WithLabelValues(stats.Source).Inc()
		}
	}

	advanced, err := i.events.IncrementUnseenCycles(ctx, stats.Source)
	if err != nil {
		return stats, fmt.Errorf("failed to advance unseen cycles for %s: %w", stats.Source, err)
	}
	stats.UnseenAdvanced = advanced

	archived, err := i.archive.ArchiveStale(ctx, stats.Source, i.cfg.CycleThreshold, i.now())
	if err != nil {
		return stats, fmt.Errorf("failed to archive stale events for %s: %w", stats.Source, err)
	}
	stats.Archived = archived

	if i.metrics != nil {
		i.metrics.UnseenRows.WithLabelValues(stats.Source).Set(float64(advanced))
		i.metrics.EventsArchived.WithLabelValues(stats.Source).Add(float64(archived))
		i.metrics.CycleDuration.WithLabelValues(stats.Source).Observe(time.Since(start).Seconds())
	}

	return stats, nil
}

// ingestRecord resolves identity, upserts the event row, then attaches tags
// and bill links. The event upsert is the only fatal step; tag and bill
// failures are logged and swallowed so they never cost the event itself.
func (i *Ingestor) ingestRecord(ctx context.Context, source string, raw *model.RawEvent) error {
	now := i.now()
	externalID, fingerprint := i.resolver.Resolve(raw, now)

	event := buildEvent(source, externalID, fingerprint, raw, now)
	if err := i.events.UpsertEvent(ctx, event, now); err != nil {
		return err
	}

	i.applyTags(ctx, event)
	i.linkBills(ctx, event.ID, raw.Bills)

	return nil
}

// applyTags runs the external classifier and persists whatever it returns
func (i *Ingestor) applyTags(ctx context.Context, event *model.Event) {
	if i.tagger == nil {
		return
	}

	tags, err := i.tagger.AutoTag(ctx, event.Name, event.Description.String, event.CommitteeName.String)
	if err != nil {
		i.errLogger.Printf("Failed to auto-tag event %d: %v", event.ID, err)
		return
	}

	for _, tag := range tags {
		if err := i.events.AddTag(ctx, event.ID, tag); err != nil {
			i.errLogger.Printf("Failed to store tag %q for event %d: %v", tag, event.ID, err)
		}
	}
}

// linkBills upserts referenced bills and links them to the event
func (i *Ingestor) linkBills(ctx context.Context, eventID int, rawBills []model.RawBill) {
	for _, rb := range rawBills {
		bill := &model.Bill{
			State:       rb.State,
			BillNumber:  rb.BillNumber,
			Title:       nullString(rb.Title),
			Description: nullString(rb.Description),
			URL:         nullString(rb.URL),
			Status:      nullString(rb.Status),
		}

		if err := i.bills.UpsertBill(ctx, bill); err != nil {
			i.errLogger.Printf("Failed to upsert bill %s %s: %v", rb.State, rb.BillNumber, err)
			continue
		}

		if err := i.bills.LinkEventBill(ctx, eventID, bill.ID); err != nil {
			i.errLogger.Printf("Failed to link bill %s %s to event %d: %v", rb.State, rb.BillNumber, eventID, err)
		}
	}
}

// PurgeExpired runs both retention sweeps with the configured windows.
// Returns the archive and live-table purge counts.
func (i *Ingestor) PurgeExpired(ctx context.Context) (int, int, error) {
	now := i.now()
	archivedPurged, removedPurged, err := i.archive.PurgeExpired(ctx,
		now.Add(-i.cfg.ArchiveRetention),
		now.Add(-i.cfg.RemovedRetention),
	)
	if err != nil {
		return archivedPurged, removedPurged, err
	}

	if i.metrics != nil {
		i.metrics.ArchivePurged.Add(float64(archivedPurged))
		i.metrics.RemovedPurged.Add(float64(removedPurged))
	}

	return archivedPurged, removedPurged, nil
}

// PrintCycleSummary prints one cycle's statistics
func (i *Ingestor) PrintCycleSummary(stats *CycleStats) {
	i.logger.Println("")
	i.logger.Printf("=== Cycle Summary: %s [%s] ===", stats.Source, stats.RunID)
	i.logger.Printf("Marked unseen:    %d", stats.Marked)
	i.logger.Printf("Scraped:          %d", stats.Scraped)
	i.logger.Printf("Upserted:         %d", stats.Upserted)
	i.logger.Printf("Failed:           %d", stats.Failed)
	i.logger.Printf("Still unseen:     %d", stats.UnseenAdvanced)
	i.logger.Printf("Archived:         %d", stats.Archived)
}

// buildEvent converts a raw scraped record into a durable event row
func buildEvent(source, externalID, fingerprint string, raw *model.RawEvent, now time.Time) *model.Event {
	return &model.Event{
		Source:                    source,
		ExternalID:                externalID,
		Fingerprint:               fingerprint,
		Name:                      raw.Name,
		Date:                      ParseDate(raw.Date, now),
		Time:                      nullString(raw.Time),
		Lat:                       nullFloat(raw.Lat),
		Lng:                       nullFloat(raw.Lng),
		LocationName:              nullString(raw.LocationName),
		LocationAddress:           nullString(raw.LocationAddress),
		Description:               nullString(raw.Description),
		CommitteeName:             nullString(raw.CommitteeName),
		Type:                      nullString(raw.Type),
		DetailURL:                 nullString(raw.DetailURL),
		DocketURL:                 nullString(raw.DocketURL),
		VirtualMeetingURL:         nullString(raw.VirtualMeetingURL),
		SourceURL:                 nullString(raw.SourceURL),
		AllowsPublicParticipation: raw.AllowsPublicParticipation,
	}
}

// nullString maps empty strings to NULL
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
