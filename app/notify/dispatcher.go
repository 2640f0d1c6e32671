package notify

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/tmcphee/casewatch/app/exposure"
	"github.com/tmcphee/casewatch/app/subscription"
)

// SendFailure records one rejected send. Failures never abort the rest of
// the cycle's sends.
type SendFailure struct {
	Destination string
	Title       string
	Err         error
}

type Result struct {
	Matched  int
	Sent     int
	Failures []SendFailure
}

// Dispatcher fans a change set out to subscribed destinations. Sends to the
// same destination are strictly sequential with a minimum pacing gap to
// respect downstream rate limits.
type Dispatcher struct {
	sink             Sink
	pacing           time.Duration
	summaryThreshold int
}

// NewDispatcher creates a dispatcher. summaryThreshold > 0 enables a single
// courtesy count message before the itemized ones whenever a destination
// matches more than that many records.
func NewDispatcher(sink Sink, pacing time.Duration, summaryThreshold int) *Dispatcher {
	return &Dispatcher{
		sink:             sink,
		pacing:           pacing,
		summaryThreshold: summaryThreshold,
	}
}

// Run sends one notification per matched record per destination, in
// severity-then-feed order. entries is the stable registry copy taken at
// cycle start. At-most-once: a failed send is recorded and skipped.
func (d *Dispatcher) Run(ctx context.Context, cs exposure.ChangeSet, entries []subscription.Entry) Result {
	var result Result
	records := cs.Records()

	for _, entry := range entries {
		matched := matchRecords(records, entry.Filters)
		if len(matched) == 0 {
			continue
		}
		result.Matched += len(matched)

		first := true
		send := func(msg Message, title string) {
			if !first {
				time.Sleep(d.pacing)
			}
			first = false

			if err := d.sink.Send(ctx, entry.Destination, msg); err != nil {
				slog.Warn("Notification send failed", "destination", entry.Destination, "title", title, "error", err)
				result.Failures = append(result.Failures, SendFailure{
					Destination: entry.Destination,
					Title:       title,
					Err:         err,
				})
				return
			}
			result.Sent++
		}

		if d.summaryThreshold > 0 && len(matched) > d.summaryThreshold {
			send(summaryMessage(len(matched)), "summary")
		}

		for _, rec := range matched {
			msg := NewMessage(rec)
			send(msg, msg.Title)
		}
	}

	return result
}

func summaryMessage(count int) Message {
	return Message{
		Title: "New exposure sites",
		Body:  fmt.Sprintf("%d new or updated exposure sites follow", count),
		Label: exposure.CategoryMonitor.Label(),
		Color: exposure.CategoryMonitor.Color(),
	}
}

// matchRecords keeps the records whose normalized suburb is in the filter
// set. An empty filter set matches everything.
func matchRecords(records []exposure.Record, filters []string) []exposure.Record {
	if len(filters) == 0 {
		return records
	}

	matched := make([]exposure.Record, 0, len(records))
	for _, rec := range records {
		if slices.Contains(filters, exposure.NormalizeToken(rec.Suburb)) {
			matched = append(matched, rec)
		}
	}
	return matched
}
