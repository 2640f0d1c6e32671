package fetch

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/tmcphee/casewatch/app/exposure"
)

var _ Fetcher = (*RSSFetcher)(nil)

// RSSFetcher reads the exposure list from a syndicated mirror. Each item
// carries the place as its title, the rating and suburb as its first two
// categories, and the visit window in the description as
// "date | arrival - departure".
type RSSFetcher struct {
	client    *http.Client
	parser    *gofeed.Parser
	url       string
	userAgent string
	timeout   time.Duration
}

func NewRSSFetcher(client *http.Client, url, userAgent string, timeout time.Duration) *RSSFetcher {
	return &RSSFetcher{
		client:    client,
		parser:    gofeed.NewParser(),
		url:       url,
		userAgent: userAgent,
		timeout:   timeout,
	}
}

func (f *RSSFetcher) Fetch(ctx context.Context) (exposure.Snapshot, error) {
	data, err := get(ctx, f.client, f.url, f.userAgent, f.timeout)
	if err != nil {
		return nil, err
	}

	feed, err := f.parser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	snapshot := make(exposure.Snapshot, 0, len(feed.Items))
	for i, item := range feed.Items {
		rec, err := itemToRecord(item)
		if err != nil {
			slog.Warn("Dropping malformed feed item", "item", i, "title", item.Title, "error", err)
			continue
		}
		snapshot = append(snapshot, rec)
	}

	return snapshot, nil
}

func itemToRecord(item *gofeed.Item) (exposure.Record, error) {
	if strings.TrimSpace(item.Title) == "" {
		return exposure.Record{}, fmt.Errorf("missing title")
	}
	if len(item.Categories) < 2 {
		return exposure.Record{}, fmt.Errorf("expected rating and suburb categories, got %d", len(item.Categories))
	}

	date, arrival, departure, err := parseVisitWindow(item.Description)
	if err != nil {
		return exposure.Record{}, err
	}

	return exposure.Record{
		Place:     strings.TrimSpace(item.Title),
		Category:  exposure.ParseCategory(item.Categories[0]),
		Suburb:    strings.TrimSpace(item.Categories[1]),
		Date:      exposure.NormalizeDate(date),
		Arrival:   arrival,
		Departure: departure,
	}, nil
}

func parseVisitWindow(description string) (date, arrival, departure string, err error) {
	parts := strings.SplitN(description, "|", 2)
	if len(parts) != 2 {
		return "", "", "", fmt.Errorf("malformed visit window: %q", description)
	}

	times := strings.SplitN(parts[1], "-", 2)
	if len(times) != 2 {
		return "", "", "", fmt.Errorf("malformed time range: %q", parts[1])
	}

	return strings.TrimSpace(parts[0]), strings.TrimSpace(times[0]), strings.TrimSpace(times[1]), nil
}
