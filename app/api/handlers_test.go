package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tmcphee/casewatch/app/database"
	"github.com/tmcphee/casewatch/app/exposure"
	"github.com/tmcphee/casewatch/app/subscription"
	"github.com/tmcphee/casewatch/app/watcher"
)

type MockRunner struct {
	cycle   watcher.Cycle
	err     error
	lastRun time.Time
	hasLast bool
	runs    int
}

func (m *MockRunner) Run(ctx context.Context) (watcher.Cycle, error) {
	m.runs++
	if m.err != nil {
		return watcher.Cycle{}, m.err
	}
	return m.cycle, nil
}

func (m *MockRunner) Stats() (watcher.Cycle, time.Time, bool) {
	return m.cycle, m.lastRun, m.hasLast
}

type MockCommands struct {
	reply   string
	handled bool
}

func (m *MockCommands) Handle(ctx context.Context, destination, text string) (string, bool) {
	return m.reply, m.handled
}

type MockSubscriptionRepository struct{}

func (m *MockSubscriptionRepository) LoadAll() ([]database.SubscriptionRow, error) { return nil, nil }
func (m *MockSubscriptionRepository) SaveDestination(string, []string) error      { return nil }
func (m *MockSubscriptionRepository) DeleteDestination(string) error              { return nil }

type MockSnapshotRepository struct {
	count int
}

func (m *MockSnapshotRepository) LoadSnapshot() (exposure.Snapshot, bool, error) {
	return nil, false, nil
}
func (m *MockSnapshotRepository) ReplaceSnapshot(exposure.Snapshot) error { return nil }
func (m *MockSnapshotRepository) CountRecords() (int, error)              { return m.count, nil }

func newTestServer(t *testing.T, runner *MockRunner, commands *MockCommands, apiKey string) (http.Handler, *subscription.Registry) {
	t.Helper()

	db, err := database.NewConnection(t.TempDir() + "/test.db")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	registry, err := subscription.NewRegistry(&MockSubscriptionRepository{})
	if err != nil {
		t.Fatalf("Failed to create registry: %v", err)
	}

	handler := NewHandler(db, &MockSnapshotRepository{count: 5}, registry, runner, commands, 2)
	return NewServer(handler, apiKey), registry
}

func TestGetHealth(t *testing.T) {
	server, _ := newTestServer(t, &MockRunner{}, &MockCommands{}, "")

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("Expected status ok, got %v", body["status"])
	}
	if body["records"] != float64(5) {
		t.Errorf("Expected 5 records, got %v", body["records"])
	}
}

func TestGetStats(t *testing.T) {
	runner := &MockRunner{
		cycle:   watcher.Cycle{Changes: 2, Matched: 3, Sent: 3},
		lastRun: time.Now().UTC(),
		hasLast: true,
	}
	server, _ := newTestServer(t, runner, &MockCommands{}, "")

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/stats", nil)
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var body map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &body)

	lastCycle, ok := body["last_cycle"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected last_cycle in response, got %v", body)
	}
	if lastCycle["changes"] != float64(2) {
		t.Errorf("Expected 2 changes, got %v", lastCycle["changes"])
	}
}

func TestGetStats_NoCycleYet(t *testing.T) {
	server, _ := newTestServer(t, &MockRunner{}, &MockCommands{}, "")

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/stats", nil)
	server.ServeHTTP(w, req)

	var body map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &body)

	if _, present := body["last_cycle"]; present {
		t.Error("Expected no last_cycle before the first completed cycle")
	}
}

func TestAPICheck_RequiresKey(t *testing.T) {
	server, _ := newTestServer(t, &MockRunner{}, &MockCommands{}, "secret")

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/check", nil)
	server.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401 without key, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/api/check", nil)
	req.Header.Set("X-API-Key", "wrong")
	server.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401 with wrong key, got %d", w.Code)
	}
}

func TestAPICheck_RunsCycle(t *testing.T) {
	runner := &MockRunner{cycle: watcher.Cycle{Changes: 4, Matched: 2, Sent: 2}}
	server, _ := newTestServer(t, runner, &MockCommands{}, "secret")

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/check", nil)
	req.Header.Set("X-API-Key", "secret")
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if runner.runs != 1 {
		t.Errorf("Expected 1 forced cycle, got %d", runner.runs)
	}

	var body map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &body)
	if body["changes"] != float64(4) {
		t.Errorf("Expected 4 changes, got %v", body["changes"])
	}
}

func TestAPICheck_BearerToken(t *testing.T) {
	server, _ := newTestServer(t, &MockRunner{}, &MockCommands{}, "secret")

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/check", nil)
	req.Header.Set("Authorization", "Bearer secret")
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 with bearer token, got %d", w.Code)
	}
}

func TestAPICheck_FetchFailure(t *testing.T) {
	runner := &MockRunner{err: errors.New("upstream down")}
	server, _ := newTestServer(t, runner, &MockCommands{}, "secret")

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/check", nil)
	req.Header.Set("X-API-Key", "secret")
	server.ServeHTTP(w, req)

	if w.Code != http.StatusBadGateway {
		t.Fatalf("Expected 502, got %d", w.Code)
	}
}

func TestAPICommand(t *testing.T) {
	commands := &MockCommands{reply: "No new cases", handled: true}
	server, _ := newTestServer(t, &MockRunner{}, commands, "secret")

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/commands",
		strings.NewReader(`{"destination": "chan-1", "text": "!check"}`))
	req.Header.Set("X-API-Key", "secret")
	req.Header.Set("Content-Type", "application/json")
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var body map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &body)
	if body["reply"] != "No new cases" {
		t.Errorf("Unexpected reply: %v", body["reply"])
	}
	if body["handled"] != true {
		t.Errorf("Expected handled true, got %v", body["handled"])
	}
}

func TestAPICommand_InvalidRequest(t *testing.T) {
	server, _ := newTestServer(t, &MockRunner{}, &MockCommands{}, "secret")

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/commands", strings.NewReader(`{"text": "!check"}`))
	req.Header.Set("X-API-Key", "secret")
	req.Header.Set("Content-Type", "application/json")
	server.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for missing destination, got %d", w.Code)
	}
}

func TestAPIListSubscriptions(t *testing.T) {
	server, registry := newTestServer(t, &MockRunner{}, &MockCommands{}, "secret")

	if _, _, err := registry.Subscribe("chan-1", nil); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if _, _, err := registry.Subscribe("chan-2", []string{"civic"}); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/subscriptions", nil)
	req.Header.Set("X-API-Key", "secret")
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var body struct {
		Subscriptions []struct {
			Destination string   `json:"destination"`
			State       string   `json:"state"`
			Filters     []string `json:"filters"`
		} `json:"subscriptions"`
		Total int `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	if body.Total != 2 {
		t.Fatalf("Expected 2 subscriptions, got %d", body.Total)
	}
	if body.Subscriptions[0].Destination != "chan-1" || body.Subscriptions[0].State != "all" {
		t.Errorf("Unexpected first entry: %+v", body.Subscriptions[0])
	}
	if body.Subscriptions[1].State != "filtered" || len(body.Subscriptions[1].Filters) != 1 {
		t.Errorf("Unexpected second entry: %+v", body.Subscriptions[1])
	}
}

func TestAPIDisabledWithoutKey(t *testing.T) {
	server, _ := newTestServer(t, &MockRunner{}, &MockCommands{}, "")

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/check", nil)
	server.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected 404 when API is disabled, got %d", w.Code)
	}
}
