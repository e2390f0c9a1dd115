package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const (
	zipBaseURL        = "https://api.zippopotam.us/us"
	geocodeTimeout    = 15 * time.Second
	geocodeMaxRetries = 3
	geocodeBackoff    = 1 * time.Second
)

// Geocoder resolves a US ZIP code to coordinates for query-side filtering
type Geocoder interface {
	Lookup(ctx context.Context, zip string) (lat, lng float64, err error)
}

// ZipGeocoder is a Geocoder backed by the zippopotam.us API
type ZipGeocoder struct {
	client *http.Client
}

// NewZipGeocoder creates a new ZipGeocoder
func NewZipGeocoder() *ZipGeocoder {
	return &ZipGeocoder{
		client: &http.Client{
			Timeout: geocodeTimeout,
		},
	}
}

// zipResponse represents the API response for a ZIP lookup
type zipResponse struct {
	Places []struct {
		Latitude  string `json:"latitude"`
		Longitude string `json:"longitude"`
	} `json:"places"`
}

// Lookup resolves a ZIP code, retrying transient failures with backoff
func (g *ZipGeocoder) Lookup(ctx context.Context, zip string) (float64, float64, error) {
	url := fmt.Sprintf("%s/%s", zipBaseURL, zip)

	body, err := g.fetchWithRetry(ctx, url)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to geocode zip %s: %w", zip, err)
	}

	var resp zipResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, 0, fmt.Errorf("failed to parse geocode response for %s: %w", zip, err)
	}

	if len(resp.Places) == 0 {
		return 0, 0, fmt.Errorf("no coordinates found for zip %s", zip)
	}

	lat, err := strconv.ParseFloat(resp.Places[0].Latitude, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid latitude for zip %s: %w", zip, err)
	}
	lng, err := strconv.ParseFloat(resp.Places[0].Longitude, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid longitude for zip %s: %w", zip, err)
	}

	return lat, lng, nil
}

// fetchWithRetry performs an HTTP GET with exponential backoff retry
func (g *ZipGeocoder) fetchWithRetry(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	backoff := geocodeBackoff

	for attempt := 0; attempt < geocodeMaxRetries; attempt++ {
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

		resp, err := g.client.Do(req)
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

		if resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("unknown zip code")
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status code: %d", resp.StatusCode)
			continue
		}

		return body, nil
	}

	return nil, fmt.Errorf("failed after %d attempts: %w", geocodeMaxRetries, lastErr)
}
