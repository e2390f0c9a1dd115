package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kirbyniko/statehouse/internal/model"
)

const (
	defaultTimeout = 60 * time.Second
	maxRetries     = 3
	initialBackoff = 2 * time.Second
)

// FeedScraper reads a JSON event feed published by a source. This is the
// preferred integration for sources that expose a structured calendar.
type FeedScraper struct {
	source  string
	url     string
	client  *http.Client
	backoff time.Duration
}

// NewFeedScraper creates a FeedScraper for one source feed URL
func NewFeedScraper(source, url string) *FeedScraper {
	return &FeedScraper{
		source: source,
		url:    url,
		client: &http.Client{
			Timeout: defaultTimeout,
		},
		backoff: initialBackoff,
	}
}

// Source returns the source identifier
func (f *FeedScraper) Source() string {
	return f.source
}

// feedResponse represents a source's JSON calendar feed
type feedResponse struct {
	Events []struct {
		ID                string   `json:"id"`
		Name              string   `json:"name"`
		Date              string   `json:"date"`
		Time              string   `json:"time"`
		Lat               *float64 `json:"lat"`
		Lng               *float64 `json:"lng"`
		LocationName      string   `json:"location_name"`
		LocationAddress   string   `json:"location_address"`
		Description       string   `json:"description"`
		CommitteeName     string   `json:"committee_name"`
		Type              string   `json:"type"`
		DetailURL         string   `json:"detail_url"`
		DocketURL         string   `json:"docket_url"`
		VirtualMeetingURL string   `json:"virtual_meeting_url"`
		SourceURL         string   `json:"source_url"`
		PublicInput       bool     `json:"allows_public_participation"`
		Bills             []struct {
			State       string `json:"state"`
			BillNumber  string `json:"bill_number"`
			Title       string `json:"title"`
			Description string `json:"description"`
			URL         string `json:"url"`
			Status      string `json:"status"`
		} `json:"bills"`
	} `json:"events"`
}

// Scrape fetches the feed and converts it to raw event records
func (f *FeedScraper) Scrape(ctx context.Context) ([]model.RawEvent, error) {
	body, err := f.fetchWithRetry(ctx, f.url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed for %s: %w", f.source, err)
	}

	var resp feedResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse feed for %s: %w", f.source, err)
	}

	events := make([]model.RawEvent, 0, len(resp.Events))
	for _, e := range resp.Events {
		raw := model.RawEvent{
			ExternalID:                e.ID,
			Name:                      e.Name,
			Date:                      e.Date,
			Time:                      e.Time,
			Lat:                       e.Lat,
			Lng:                       e.Lng,
			LocationName:              e.LocationName,
			LocationAddress:           e.LocationAddress,
			Description:               e.Description,
			CommitteeName:             e.CommitteeName,
			Type:                      e.Type,
			DetailURL:                 e.DetailURL,
			DocketURL:                 e.DocketURL,
			VirtualMeetingURL:         e.VirtualMeetingURL,
			SourceURL:                 e.SourceURL,
			AllowsPublicParticipation: e.PublicInput,
		}
		for _, b := range e.Bills {
			raw.Bills = append(raw.Bills, model.RawBill{
				State:       b.State,
				BillNumber:  b.BillNumber,
				Title:       b.Title,
				Description: b.Description,
				URL:         b.URL,
				Status:      b.Status,
			})
		}
		events = append(events, raw)
	}

	return events, nil
}

// fetchWithRetry performs an HTTP GET with exponential backoff retry
func (f *FeedScraper) fetchWithRetry(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	backoff := f.backoff

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
				backoff *= 2
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := f.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()

		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (HTTP 429)")
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status code: %d", resp.StatusCode)
			continue
		}

		return body, nil
	}

	return nil, fmt.Errorf("failed after %d attempts: %w", maxRetries, lastErr)
}
