package model

import (
	"database/sql"
	"time"
)

// Event represents the current state of a scraped legislative meeting.
// Identity is (Source, ExternalID); Fingerprint is a secondary content signal only.
type Event struct {
	ID                        int
	Source                    string
	ExternalID                string
	Fingerprint               string
	Name                      string
	Date                      time.Time
	Time                      sql.NullString
	Lat                       sql.NullFloat64
	Lng                       sql.NullFloat64
	LocationName              sql.NullString
	LocationAddress           sql.NullString
	Description               sql.NullString
	CommitteeName             sql.NullString
	Type                      sql.NullString
	DetailURL                 sql.NullString
	DocketURL                 sql.NullString
	VirtualMeetingURL         sql.NullString
	SourceURL                 sql.NullString
	AllowsPublicParticipation bool
	LastSeenAt                time.Time
	SeenInCurrentScrape       bool
	ScrapeCycleCount          int
	RemovedAt                 sql.NullTime
	CreatedAt                 time.Time
	UpdatedAt                 time.Time
}

// ArchivedEvent is a point-in-time copy of an Event taken when it went stale.
// Rows are written once by the archival sweep and never updated.
type ArchivedEvent struct {
	ID                        int
	EventID                   int
	Source                    string
	ExternalID                string
	Fingerprint               string
	Name                      string
	Date                      time.Time
	Time                      sql.NullString
	Lat                       sql.NullFloat64
	Lng                       sql.NullFloat64
	LocationName              sql.NullString
	LocationAddress           sql.NullString
	Description               sql.NullString
	CommitteeName             sql.NullString
	Type                      sql.NullString
	DetailURL                 sql.NullString
	DocketURL                 sql.NullString
	VirtualMeetingURL         sql.NullString
	SourceURL                 sql.NullString
	AllowsPublicParticipation bool
	ArchivedAt                time.Time
	RemovalReason             string
}

// RawEvent is what a source scraper hands the pipeline: unreconciled fields
// straight from one page parse. ExternalID may be empty when the source does
// not publish stable identifiers.
type RawEvent struct {
	ExternalID                string
	Name                      string
	Date                      string // YYYY-MM-DD
	Time                      string // HH:MM, optional
	Lat                       *float64
	Lng                       *float64
	LocationName              string
	LocationAddress           string
	Description               string
	CommitteeName             string
	Type                      string
	DetailURL                 string
	DocketURL                 string
	VirtualMeetingURL         string
	SourceURL                 string
	AllowsPublicParticipation bool
	Bills                     []RawBill
}
