package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/kirbyniko/statehouse/internal/model"
)

// HTMLTableScraper parses an agenda table from a source's calendar page.
// Expected cell order per row: name, date, time, location, committee. The
// first link inside the name cell becomes the detail URL. Sources whose pages
// follow this shape can be onboarded with a row selector alone.
type HTMLTableScraper struct {
	source      string
	url         string
	rowSelector string
	client      *http.Client
}

// NewHTMLTableScraper creates an HTMLTableScraper for one calendar page
func NewHTMLTableScraper(source, pageURL, rowSelector string) *HTMLTableScraper {
	return &HTMLTableScraper{
		source:      source,
		url:         pageURL,
		rowSelector: rowSelector,
		client: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// Source returns the source identifier
func (h *HTMLTableScraper) Source() string {
	return h.source
}

// Scrape fetches the calendar page and parses agenda rows
func (h *HTMLTableScraper) Scrape(ctx context.Context) ([]model.RawEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch calendar page for %s: %w", h.source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code for %s: %d", h.source, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse calendar page for %s: %w", h.source, err)
	}

	return h.parseRows(doc), nil
}

// parseRows extracts raw events from the selected table rows. Rows without a
// name or date cell are skipped; they are headers or filler.
func (h *HTMLTableScraper) parseRows(doc *goquery.Document) []model.RawEvent {
	var events []model.RawEvent

	doc.Find(h.rowSelector).Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}

		name := cellText(cells, 0)
		date := cellText(cells, 1)
		if name == "" || date == "" {
			return
		}

		raw := model.RawEvent{
			Name:          name,
			Date:          date,
			Time:          cellText(cells, 2),
			LocationName:  cellText(cells, 3),
			CommitteeName: cellText(cells, 4),
			SourceURL:     h.url,
		}

		if href, ok := cells.Eq(0).Find("a").First().Attr("href"); ok {
			raw.DetailURL = h.absoluteURL(href)
		}

		events = append(events, raw)
	})

	return events
}

func cellText(cells *goquery.Selection, i int) string {
	if i >= cells.Length() {
		return ""
	}
	return strings.TrimSpace(cells.Eq(i).Text())
}

// absoluteURL resolves a possibly relative href against the page URL
func (h *HTMLTableScraper) absoluteURL(href string) string {
	base, err := url.Parse(h.url)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
