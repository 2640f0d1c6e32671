package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmcphee/casewatch/app/subscription"
	"github.com/tmcphee/casewatch/app/watcher"
)

const genericFailureReply = "Something went wrong, please try again later."

// Checker is the slice of the watcher the check command drives. Unlike the
// scheduler it blocks on an in-flight cycle rather than skipping, so the
// reply always reflects a completed check.
type Checker interface {
	Run(ctx context.Context) (watcher.Cycle, error)
}

// Handler implements the textual command surface: check, subscribed,
// subscribe and unsubscribe, triggered by a configurable prefix.
type Handler struct {
	prefix   string
	checker  Checker
	registry *subscription.Registry
}

func NewHandler(prefix string, checker Checker, registry *subscription.Registry) *Handler {
	return &Handler{
		prefix:   prefix,
		checker:  checker,
		registry: registry,
	}
}

// Handle parses and executes one message for the given destination. handled
// is false for messages that are not commands (no prefix, or empty).
// Internal failures never escape: they are logged and turned into a generic
// failure reply.
func (h *Handler) Handle(ctx context.Context, destination, text string) (reply string, handled bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Command handler panic", "destination", destination, "panic", r)
			reply = genericFailureReply
			handled = true
		}
	}()

	trimmed := strings.TrimSpace(text)
	if trimmed == "" || !strings.HasPrefix(trimmed, h.prefix) {
		return "", false
	}

	fields := strings.Fields(strings.TrimPrefix(trimmed, h.prefix))
	if len(fields) == 0 {
		return "", false
	}

	command, args := fields[0], fields[1:]

	switch command {
	case "check":
		return h.check(ctx), true
	case "subscribed":
		return h.subscribed(destination), true
	case "subscribe":
		return h.subscribe(destination, args), true
	case "unsubscribe":
		return h.unsubscribe(destination, args), true
	default:
		return fmt.Sprintf("Unknown command: %s", command), true
	}
}

func (h *Handler) check(ctx context.Context) string {
	cycle, err := h.checker.Run(ctx)
	if err != nil {
		slog.Error("Manual check failed", "error", err)
		return "Could not check for new cases, please try again later."
	}

	if cycle.Empty {
		return "No new cases"
	}

	if cycle.Changes == 1 {
		return "1 new case reported"
	}
	return fmt.Sprintf("%d new cases reported", cycle.Changes)
}

func (h *Handler) subscribed(destination string) string {
	status := h.registry.Status(destination)
	switch status.State {
	case subscription.NotSubscribed:
		return "This channel is not subscribed to notifications"
	case subscription.SubscribedAll:
		return "This channel is subscribed to notifications"
	default:
		return fmt.Sprintf("This channel is subscribed to notifications in: %s", strings.Join(status.Filters, " "))
	}
}

func (h *Handler) subscribe(destination string, locations []string) string {
	added, created, err := h.registry.Subscribe(destination, locations)
	if err != nil {
		slog.Error("Subscribe failed", "destination", destination, "error", err)
		return genericFailureReply
	}

	var parts []string
	if created {
		parts = append(parts, "This channel is now subscribed to alerts!")
	}
	if len(added) > 0 {
		parts = append(parts, fmt.Sprintf("Added: %s", strings.Join(added, " ")))
	}
	if len(parts) == 0 {
		if len(locations) == 0 {
			return "This channel is already subscribed!"
		}
		return "No new locations added"
	}
	return strings.Join(parts, " ")
}

func (h *Handler) unsubscribe(destination string, locations []string) string {
	removed, existed, err := h.registry.Unsubscribe(destination, locations)
	if err != nil {
		slog.Error("Unsubscribe failed", "destination", destination, "error", err)
		return genericFailureReply
	}

	if !existed {
		return "This channel is not subscribed to alerts!"
	}
	if len(locations) == 0 {
		return "This channel is now unsubscribed"
	}
	if len(removed) == 0 {
		return "No matching subscribed locations"
	}
	return fmt.Sprintf("Removed: %s", strings.Join(removed, " "))
}
