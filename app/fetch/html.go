package fetch

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/tmcphee/casewatch/app/exposure"
)

var _ Fetcher = (*HTMLFetcher)(nil)

// The upstream publishes the exposure list as a plain HTML table with a
// fixed column layout. Header rows are repeated per table section.
var htmlColumns = []string{"Status", "Suburb", "Place", "Date", "Arrival Time", "Departure Time"}

// HTMLFetcher scrapes the exposure-site table from the upstream page.
type HTMLFetcher struct {
	client    *http.Client
	url       string
	userAgent string
	timeout   time.Duration
}

func NewHTMLFetcher(client *http.Client, url, userAgent string, timeout time.Duration) *HTMLFetcher {
	return &HTMLFetcher{
		client:    client,
		url:       url,
		userAgent: userAgent,
		timeout:   timeout,
	}
}

func (f *HTMLFetcher) Fetch(ctx context.Context) (exposure.Snapshot, error) {
	data, err := get(ctx, f.client, f.url, f.userAgent, f.timeout)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse upstream page: %w", err)
	}

	var snapshot exposure.Snapshot

	doc.Find("tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("th, td").Map(func(_ int, cell *goquery.Selection) string {
			return scrubCell(cell.Text())
		})

		if len(cells) == 0 || isHeaderRow(cells) {
			return
		}

		if len(cells) < len(htmlColumns) {
			slog.Warn("Dropping malformed exposure row", "row", i, "cells", len(cells))
			return
		}

		snapshot = append(snapshot, exposure.Record{
			Category:  exposure.ParseCategory(cells[0]),
			Suburb:    cells[1],
			Place:     cells[2],
			Date:      exposure.NormalizeDate(cells[3]),
			Arrival:   cells[4],
			Departure: cells[5],
		})
	})

	return snapshot, nil
}

func isHeaderRow(cells []string) bool {
	if len(cells) != len(htmlColumns) {
		return false
	}
	for i, col := range htmlColumns {
		if cells[i] != col {
			return false
		}
	}
	return true
}

// scrubCell removes the artifacts the upstream markup carries: line breaks
// inside cells and non-breaking space padding.
func scrubCell(s string) string {
	s = strings.ReplaceAll(s, "\n", "")
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\u00a0", "")
	return strings.TrimSpace(s)
}
