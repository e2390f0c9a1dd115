package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertEvent_Insert(t *testing.T) {
	db := newTestDB(t)
	events := NewEventStore(db)
	ctx := context.Background()

	e := testEvent("tx-house", "evt-1", "Appropriations Hearing", testNow.AddDate(0, 0, 3))
	e.Time = sql.NullString{String: "10:00", Valid: true}
	mustUpsert(t, events, e, testNow)

	got, err := events.GetByIdentity(ctx, "tx-house", "evt-1")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "Appropriations Hearing", got.Name)
	assert.Equal(t, "10:00", got.Time.String)
	assert.True(t, got.SeenInCurrentScrape)
	assert.Equal(t, 1, got.ScrapeCycleCount)
	assert.False(t, got.RemovedAt.Valid)
	assert.True(t, got.LastSeenAt.Equal(testNow))
}

func TestUpsertEvent_Idempotent(t *testing.T) {
	db := newTestDB(t)
	events := NewEventStore(db)
	ctx := context.Background()

	first := testEvent("tx-house", "evt-1", "Hearing", testNow.AddDate(0, 0, 3))
	mustUpsert(t, events, first, testNow)

	// Same identity again in the same cycle, with corrected fields
	second := testEvent("tx-house", "evt-1", "Hearing (Room 2E)", testNow.AddDate(0, 0, 3))
	second.LocationName = sql.NullString{String: "Room 2E", Valid: true}
	mustUpsert(t, events, second, testNow)

	assert.Equal(t, first.ID, second.ID, "same identity must resolve to the same row")

	got, err := events.GetByIdentity(ctx, "tx-house", "evt-1")
	require.NoError(t, err)
	require.NotNil(t, got)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM events").Scan(&count))
	assert.Equal(t, 1, count)

	// Later scrape wins
	assert.Equal(t, "Hearing (Room 2E)", got.Name)
	assert.Equal(t, "Room 2E", got.LocationName.String)
	assert.Equal(t, 1, got.ScrapeCycleCount)
}

func TestUpsertEvent_LaterScrapeOverwritesWithNull(t *testing.T) {
	db := newTestDB(t)
	events := NewEventStore(db)
	ctx := context.Background()

	e := testEvent("tx-house", "evt-1", "Hearing", testNow.AddDate(0, 0, 3))
	e.Description = sql.NullString{String: "Budget markup", Valid: true}
	mustUpsert(t, events, e, testNow)

	// The most recent successful parse is the source of truth, even when a
	// field disappeared from the page
	refreshed := testEvent("tx-house", "evt-1", "Hearing", testNow.AddDate(0, 0, 3))
	mustUpsert(t, events, refreshed, testNow.Add(time.Hour))

	got, err := events.GetByIdentity(ctx, "tx-house", "evt-1")
	require.NoError(t, err)
	assert.False(t, got.Description.Valid)
}

func TestMarkAndSweep_LifecycleToArchive(t *testing.T) {
	db := newTestDB(t)
	events := NewEventStore(db)
	archive := NewArchiveStore(db)
	ctx := context.Background()

	// Cycle 1: event appears
	e := testEvent("tx-house", "evt-1", "Hearing", testNow.AddDate(0, 0, 14))
	mustUpsert(t, events, e, testNow)

	// Cycle 2: event absent
	marked, err := events.MarkSourceUnseen(ctx, "tx-house")
	require.NoError(t, err)
	assert.Equal(t, 1, marked)

	advanced, err := events.IncrementUnseenCycles(ctx, "tx-house")
	require.NoError(t, err)
	assert.Equal(t, 1, advanced)

	got, err := events.GetByIdentity(ctx, "tx-house", "evt-1")
	require.NoError(t, err)
	assert.False(t, got.SeenInCurrentScrape)
	assert.Equal(t, 2, got.ScrapeCycleCount)

	// Threshold reached: archived and soft-removed
	archiveNow := testNow.AddDate(0, 0, 1)
	archived, err := archive.ArchiveStale(ctx, "tx-house", 2, archiveNow)
	require.NoError(t, err)
	assert.Equal(t, 1, archived)

	got, err = events.GetByIdentity(ctx, "tx-house", "evt-1")
	require.NoError(t, err)
	assert.True(t, got.RemovedAt.Valid)

	archCopy, err := archive.GetByEventID(ctx, e.ID)
	require.NoError(t, err)
	require.NotNil(t, archCopy)
	assert.Equal(t, "Hearing", archCopy.Name)
	assert.Equal(t, "tx-house", archCopy.Source)
	assert.Equal(t, "evt-1", archCopy.ExternalID)
	assert.Contains(t, archCopy.RemovalReason, "2 consecutive scrape cycles")

	// Soft-removed rows are excluded from reads
	live, err := events.QueryBySource(ctx, "tx-house")
	require.NoError(t, err)
	assert.Empty(t, live)

	// Cycle 3: mark and increment no longer touch the removed row
	marked, err = events.MarkSourceUnseen(ctx, "tx-house")
	require.NoError(t, err)
	assert.Zero(t, marked)

	advanced, err = events.IncrementUnseenCycles(ctx, "tx-house")
	require.NoError(t, err)
	assert.Zero(t, advanced)
}

func TestMarkAndSweep_SurvivorResets(t *testing.T) {
	db := newTestDB(t)
	events := NewEventStore(db)
	ctx := context.Background()

	e := testEvent("tx-house", "evt-1", "Hearing", testNow.AddDate(0, 0, 14))
	mustUpsert(t, events, e, testNow)

	// One missed cycle
	_, err := events.MarkSourceUnseen(ctx, "tx-house")
	require.NoError(t, err)
	_, err = events.IncrementUnseenCycles(ctx, "tx-house")
	require.NoError(t, err)

	// Next cycle the source reports it again
	_, err = events.MarkSourceUnseen(ctx, "tx-house")
	require.NoError(t, err)
	refreshed := testEvent("tx-house", "evt-1", "Hearing", testNow.AddDate(0, 0, 14))
	mustUpsert(t, events, refreshed, testNow.AddDate(0, 0, 2))

	advanced, err := events.IncrementUnseenCycles(ctx, "tx-house")
	require.NoError(t, err)
	assert.Zero(t, advanced)

	got, err := events.GetByIdentity(ctx, "tx-house", "evt-1")
	require.NoError(t, err)
	assert.True(t, got.SeenInCurrentScrape)
	assert.Equal(t, 1, got.ScrapeCycleCount, "any re-scrape resets the counter regardless of prior value")
}

func TestUpsertEvent_Resurrection(t *testing.T) {
	db := newTestDB(t)
	events := NewEventStore(db)
	archive := NewArchiveStore(db)
	ctx := context.Background()

	e := testEvent("tx-house", "evt-1", "Hearing", testNow.AddDate(0, 0, 14))
	mustUpsert(t, events, e, testNow)

	// Miss two cycles and archive
	for cycle := 0; cycle < 2; cycle++ {
		_, err := events.MarkSourceUnseen(ctx, "tx-house")
		require.NoError(t, err)
		_, err = events.IncrementUnseenCycles(ctx, "tx-house")
		require.NoError(t, err)
	}
	_, err := archive.ArchiveStale(ctx, "tx-house", 2, testNow.AddDate(0, 0, 2))
	require.NoError(t, err)

	// The same identity reappears before purge
	back := testEvent("tx-house", "evt-1", "Hearing", testNow.AddDate(0, 0, 14))
	mustUpsert(t, events, back, testNow.AddDate(0, 0, 3))
	assert.Equal(t, e.ID, back.ID, "resurrection reuses the original row")

	got, err := events.GetByIdentity(ctx, "tx-house", "evt-1")
	require.NoError(t, err)
	assert.False(t, got.RemovedAt.Valid)
	assert.True(t, got.SeenInCurrentScrape)
	assert.Equal(t, 1, got.ScrapeCycleCount)

	live, err := events.QueryBySource(ctx, "tx-house")
	require.NoError(t, err)
	assert.Len(t, live, 1)
}

func TestMarkSourceUnseen_ScopedToSource(t *testing.T) {
	db := newTestDB(t)
	events := NewEventStore(db)
	ctx := context.Background()

	tx := testEvent("tx-house", "evt-1", "TX Hearing", testNow.AddDate(0, 0, 3))
	mustUpsert(t, events, tx, testNow)
	ok := testEvent("ok-senate", "evt-1", "OK Hearing", testNow.AddDate(0, 0, 3))
	mustUpsert(t, events, ok, testNow)

	marked, err := events.MarkSourceUnseen(ctx, "tx-house")
	require.NoError(t, err)
	assert.Equal(t, 1, marked)

	other, err := events.GetByIdentity(ctx, "ok-senate", "evt-1")
	require.NoError(t, err)
	assert.True(t, other.SeenInCurrentScrape, "other sources are untouched")
}

func TestQueryBySource_Ordering(t *testing.T) {
	db := newTestDB(t)
	events := NewEventStore(db)
	ctx := context.Background()

	day := testNow.AddDate(0, 0, 5)

	noTime := testEvent("tx-house", "evt-none", "No time", day)
	mustUpsert(t, events, noTime, testNow)

	late := testEvent("tx-house", "evt-late", "Afternoon", day)
	late.Time = sql.NullString{String: "14:00", Valid: true}
	mustUpsert(t, events, late, testNow)

	early := testEvent("tx-house", "evt-early", "Morning", day)
	early.Time = sql.NullString{String: "09:00", Valid: true}
	mustUpsert(t, events, early, testNow)

	prior := testEvent("tx-house", "evt-prior", "Day before", day.AddDate(0, 0, -1))
	mustUpsert(t, events, prior, testNow)

	got, err := events.QueryBySource(ctx, "tx-house")
	require.NoError(t, err)
	require.Len(t, got, 4)

	assert.Equal(t, "evt-prior", got[0].ExternalID)
	assert.Equal(t, "evt-early", got[1].ExternalID)
	assert.Equal(t, "evt-late", got[2].ExternalID)
	assert.Equal(t, "evt-none", got[3].ExternalID, "missing times sort last within a day")
}

func TestCountUpcoming(t *testing.T) {
	db := newTestDB(t)
	events := NewEventStore(db)
	ctx := context.Background()

	past := testEvent("tx-house", "evt-past", "Old", testNow.AddDate(0, 0, -1))
	mustUpsert(t, events, past, testNow)
	today := testEvent("tx-house", "evt-today", "Today", testNow)
	mustUpsert(t, events, today, testNow)
	future := testEvent("tx-house", "evt-future", "Future", testNow.AddDate(0, 0, 7))
	mustUpsert(t, events, future, testNow)

	count, err := events.CountUpcoming(ctx, testNow)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestAddTag_InsertOnce(t *testing.T) {
	db := newTestDB(t)
	events := NewEventStore(db)
	ctx := context.Background()

	e := testEvent("tx-house", "evt-1", "Hearing", testNow.AddDate(0, 0, 3))
	mustUpsert(t, events, e, testNow)

	require.NoError(t, events.AddTag(ctx, e.ID, "budget"))
	require.NoError(t, events.AddTag(ctx, e.ID, "budget"))
	require.NoError(t, events.AddTag(ctx, e.ID, "education"))

	tags, err := events.GetTags(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"budget", "education"}, tags)
}
