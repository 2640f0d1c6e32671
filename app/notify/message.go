package notify

import (
	"fmt"
	"strings"

	"github.com/tmcphee/casewatch/app/exposure"
)

// Message is one formatted notification ready for a sink.
type Message struct {
	Title string
	Body  string
	Label string
	Color int
}

// Boilerplate the upstream occasionally appends to place names when a row
// is re-published. Stripped from titles, keyed comparison is unaffected.
var boilerplateSuffixes = []string{
	"(new)",
	"(updated)",
	"- close contact",
	"- casual contact",
	"- monitor for symptoms",
}

func NewMessage(rec exposure.Record) Message {
	return Message{
		Title: stripBoilerplate(rec.Place),
		Body:  fmt.Sprintf("%s\n%s - %s", rec.Date, rec.Arrival, rec.Departure),
		Label: rec.Category.Label(),
		Color: rec.Category.Color(),
	}
}

func stripBoilerplate(place string) string {
	trimmed := strings.TrimSpace(place)
	for changed := true; changed; {
		changed = false
		lower := strings.ToLower(trimmed)
		for _, suffix := range boilerplateSuffixes {
			if strings.HasSuffix(lower, suffix) {
				trimmed = strings.TrimSpace(trimmed[:len(trimmed)-len(suffix)])
				changed = true
				break
			}
		}
	}
	return trimmed
}
