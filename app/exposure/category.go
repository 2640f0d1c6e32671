package exposure

import "strings"

// Category is the contact rating assigned to an exposure site. Values are
// ordered by descending severity, which is also the display order.
type Category int

const (
	CategoryClose Category = iota
	CategoryCasual
	CategoryMonitor

	categoryCount
)

// ParseCategory maps the upstream status text to a Category. The upstream
// markup is inconsistent across re-publications; anything that is not
// recognizably a close or casual rating falls back to monitor.
func ParseCategory(s string) Category {
	switch {
	case strings.Contains(strings.ToLower(s), "close"):
		return CategoryClose
	case strings.Contains(strings.ToLower(s), "casual"):
		return CategoryCasual
	default:
		return CategoryMonitor
	}
}

func (c Category) String() string {
	switch c {
	case CategoryClose:
		return "close"
	case CategoryCasual:
		return "casual"
	default:
		return "monitor"
	}
}

// Label returns the human-readable severity label used in notifications.
func (c Category) Label() string {
	switch c {
	case CategoryClose:
		return "Close contact"
	case CategoryCasual:
		return "Casual contact"
	default:
		return "Monitor for symptoms"
	}
}

// Color returns the embed color for the severity level.
func (c Category) Color() int {
	switch c {
	case CategoryClose:
		return 0xE74C3C
	case CategoryCasual:
		return 0xE67E22
	default:
		return 0x3498DB
	}
}
