package service

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/kirbyniko/statehouse/internal/model"
)

const (
	fingerprintLength = 32
	fallbackIDLength  = 16
	dateLayout        = "2006-01-02"
)

// Resolver computes content fingerprints and stable external identifiers for
// incoming raw events
type Resolver struct{}

// NewResolver creates a new Resolver
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve returns the external id and content fingerprint for a raw event.
// The fingerprint is a weak secondary signal; identity is always keyed on the
// external id. When the source did not supply an id, a fallback is derived
// from name, date and location only, so the same real-world event resolves to
// the same id on every scrape.
func (r *Resolver) Resolve(raw *model.RawEvent, now time.Time) (externalID, fingerprint string) {
	date := ParseDate(raw.Date, now).Format(dateLayout)

	fingerprint = digest(fingerprintLength,
		raw.Name, date, raw.LocationName, formatCoord(raw.Lat), formatCoord(raw.Lng))

	externalID = raw.ExternalID
	if externalID == "" {
		externalID = "gen-" + digest(fallbackIDLength, raw.Name, date, raw.LocationName)
	}

	return externalID, fingerprint
}

// ParseDate parses a scraped YYYY-MM-DD date string, defaulting to now when
// the value is missing or malformed
func ParseDate(s string, now time.Time) time.Time {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return now
	}
	return t
}

// digest hashes the fields joined with a separator and truncates the hex
func digest(length int, fields ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(fields, "|")))
	return hex.EncodeToString(sum[:])[:length]
}

// formatCoord renders an optional coordinate for hashing
func formatCoord(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
