package exposure

import (
	"strings"

	"golang.org/x/text/cases"
)

// Record is a single exposure site entry as published upstream.
type Record struct {
	Place     string
	Suburb    string
	Date      string
	Arrival   string
	Departure string
	Category  Category
}

// Key identifies the same incident across re-publications, independent of
// mutable fields like the contact rating or the visit times.
type Key struct {
	Place  string
	Suburb string
	Date   string
}

// Key returns the natural key of the record. The date is normalized so that
// semantically identical dates compare equal regardless of zero padding.
func (r Record) Key() Key {
	return Key{
		Place:  r.Place,
		Suburb: r.Suburb,
		Date:   NormalizeDate(r.Date),
	}
}

// Snapshot is the full set of records as last accepted from the feed, in
// feed order. It is replaced wholesale on every accepted poll.
type Snapshot []Record

var folder = cases.Fold()

// NormalizeToken canonicalizes a location token for filter matching:
// whitespace is trimmed and collapsed, underscores become spaces (the
// command-surface encoding for multi-word suburbs), and case is folded.
func NormalizeToken(s string) string {
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.Join(strings.Fields(s), " ")
	return folder.String(s)
}

// NormalizeDate zero-pads the day and month of a d/m or d/m/y date so that
// "1/2" and "01/02" key identically. Anything else is returned verbatim.
func NormalizeDate(s string) string {
	trimmed := strings.TrimSpace(s)
	parts := strings.Split(trimmed, "/")
	if len(parts) != 2 && len(parts) != 3 {
		return s
	}

	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" || !allDigits(part) {
			return s
		}
		// Years are left alone, only day and month get padded.
		if i < 2 && len(part) == 1 {
			part = "0" + part
		}
		parts[i] = part
	}

	return strings.Join(parts, "/")
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
