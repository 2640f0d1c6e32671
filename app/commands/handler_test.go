package commands

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tmcphee/casewatch/app/database"
	"github.com/tmcphee/casewatch/app/subscription"
	"github.com/tmcphee/casewatch/app/watcher"
)

// MockChecker returns a canned cycle result.
type MockChecker struct {
	cycle watcher.Cycle
	err   error
	runs  int
}

func (m *MockChecker) Run(ctx context.Context) (watcher.Cycle, error) {
	m.runs++
	if m.err != nil {
		return watcher.Cycle{}, m.err
	}
	return m.cycle, nil
}

// MockSubscriptionRepository is an always-succeeding persistence stub.
type MockSubscriptionRepository struct{}

func (m *MockSubscriptionRepository) LoadAll() ([]database.SubscriptionRow, error) { return nil, nil }
func (m *MockSubscriptionRepository) SaveDestination(string, []string) error      { return nil }
func (m *MockSubscriptionRepository) DeleteDestination(string) error              { return nil }

func newTestHandler(t *testing.T, checker *MockChecker) (*Handler, *subscription.Registry) {
	t.Helper()
	registry, err := subscription.NewRegistry(&MockSubscriptionRepository{})
	if err != nil {
		t.Fatalf("Failed to create registry: %v", err)
	}
	return NewHandler("!", checker, registry), registry
}

func TestHandler_Handle_IgnoresNonCommands(t *testing.T) {
	handler, _ := newTestHandler(t, &MockChecker{})

	for _, text := range []string{"", "   ", "hello there", "check"} {
		if _, handled := handler.Handle(context.Background(), "chan-1", text); handled {
			t.Errorf("Expected %q to be ignored", text)
		}
	}

	if _, handled := handler.Handle(context.Background(), "chan-1", "!   "); handled {
		t.Error("Expected bare prefix to be ignored")
	}
}

func TestHandler_Handle_UnknownCommand(t *testing.T) {
	handler, _ := newTestHandler(t, &MockChecker{})

	reply, handled := handler.Handle(context.Background(), "chan-1", "!frobnicate")
	if !handled {
		t.Fatal("Expected unknown command to be handled with a reply")
	}
	if !strings.Contains(reply, "Unknown command") {
		t.Errorf("Unexpected reply: %q", reply)
	}
}

func TestHandler_Handle_CheckNoNewCases(t *testing.T) {
	checker := &MockChecker{cycle: watcher.Cycle{Empty: true}}
	handler, _ := newTestHandler(t, checker)

	reply, handled := handler.Handle(context.Background(), "chan-1", "!check")
	if !handled {
		t.Fatal("Expected check to be handled")
	}
	if reply != "No new cases" {
		t.Errorf("Expected 'No new cases', got %q", reply)
	}
	if checker.runs != 1 {
		t.Errorf("Expected 1 forced cycle, got %d", checker.runs)
	}
}

func TestHandler_Handle_CheckWithChanges(t *testing.T) {
	checker := &MockChecker{cycle: watcher.Cycle{Changes: 3, Sent: 2}}
	handler, _ := newTestHandler(t, checker)

	reply, _ := handler.Handle(context.Background(), "chan-1", "!check")
	if reply != "3 new cases reported" {
		t.Errorf("Unexpected reply: %q", reply)
	}
}

func TestHandler_Handle_CheckFailure(t *testing.T) {
	checker := &MockChecker{err: errors.New("upstream down")}
	handler, _ := newTestHandler(t, checker)

	reply, handled := handler.Handle(context.Background(), "chan-1", "!check")
	if !handled {
		t.Fatal("Expected failed check to still be handled")
	}
	if !strings.Contains(reply, "Could not check") {
		t.Errorf("Unexpected reply: %q", reply)
	}
}

func TestHandler_Handle_SubscribeFlow(t *testing.T) {
	handler, _ := newTestHandler(t, &MockChecker{})
	ctx := context.Background()

	reply, _ := handler.Handle(ctx, "chan-1", "!subscribe")
	if reply != "This channel is now subscribed to alerts!" {
		t.Errorf("Unexpected reply: %q", reply)
	}

	reply, _ = handler.Handle(ctx, "chan-1", "!subscribe")
	if reply != "This channel is already subscribed!" {
		t.Errorf("Unexpected reply: %q", reply)
	}

	reply, _ = handler.Handle(ctx, "chan-1", "!subscribe Civic Red_Hill")
	if reply != "Added: civic red hill" {
		t.Errorf("Unexpected reply: %q", reply)
	}

	reply, _ = handler.Handle(ctx, "chan-1", "!subscribe CIVIC")
	if reply != "No new locations added" {
		t.Errorf("Unexpected reply: %q", reply)
	}

	reply, _ = handler.Handle(ctx, "chan-1", "!subscribed")
	if !strings.Contains(reply, "civic") || !strings.Contains(reply, "red hill") {
		t.Errorf("Unexpected reply: %q", reply)
	}
}

func TestHandler_Handle_SubscribeWithLocationsCreatesEntry(t *testing.T) {
	handler, _ := newTestHandler(t, &MockChecker{})

	reply, _ := handler.Handle(context.Background(), "chan-1", "!subscribe civic")
	if !strings.Contains(reply, "now subscribed") || !strings.Contains(reply, "Added: civic") {
		t.Errorf("Unexpected reply: %q", reply)
	}
}

func TestHandler_Handle_UnsubscribeFlow(t *testing.T) {
	handler, registry := newTestHandler(t, &MockChecker{})
	ctx := context.Background()

	reply, _ := handler.Handle(ctx, "chan-1", "!unsubscribe")
	if reply != "This channel is not subscribed to alerts!" {
		t.Errorf("Unexpected reply: %q", reply)
	}

	handler.Handle(ctx, "chan-1", "!subscribe civic dickson")

	reply, _ = handler.Handle(ctx, "chan-1", "!unsubscribe civic")
	if reply != "Removed: civic" {
		t.Errorf("Unexpected reply: %q", reply)
	}

	reply, _ = handler.Handle(ctx, "chan-1", "!unsubscribe braddon")
	if reply != "No matching subscribed locations" {
		t.Errorf("Unexpected reply: %q", reply)
	}

	reply, _ = handler.Handle(ctx, "chan-1", "!unsubscribe")
	if reply != "This channel is now unsubscribed" {
		t.Errorf("Unexpected reply: %q", reply)
	}

	if status := registry.Status("chan-1"); status.State != subscription.NotSubscribed {
		t.Errorf("Expected NotSubscribed after full unsubscribe, got %v", status.State)
	}
}

func TestHandler_Handle_SubscribedStates(t *testing.T) {
	handler, _ := newTestHandler(t, &MockChecker{})
	ctx := context.Background()

	reply, _ := handler.Handle(ctx, "chan-1", "!subscribed")
	if reply != "This channel is not subscribed to notifications" {
		t.Errorf("Unexpected reply: %q", reply)
	}

	handler.Handle(ctx, "chan-1", "!subscribe")
	reply, _ = handler.Handle(ctx, "chan-1", "!subscribed")
	if reply != "This channel is subscribed to notifications" {
		t.Errorf("Unexpected reply: %q", reply)
	}
}

func TestHandler_Handle_PanicBecomesGenericReply(t *testing.T) {
	// A nil checker makes !check panic inside the handler.
	handler := NewHandler("!", nil, nil)

	reply, handled := handler.Handle(context.Background(), "chan-1", "!check")
	if !handled {
		t.Fatal("Expected panic to be converted into a handled reply")
	}
	if reply != genericFailureReply {
		t.Errorf("Expected generic failure reply, got %q", reply)
	}
}
