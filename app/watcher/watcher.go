package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tmcphee/casewatch/app/database"
	"github.com/tmcphee/casewatch/app/exposure"
	"github.com/tmcphee/casewatch/app/fetch"
	"github.com/tmcphee/casewatch/app/notify"
	"github.com/tmcphee/casewatch/app/subscription"
)

// ErrCycleInFlight is returned by TryRun when a cycle is already running.
// The caller skips its tick; overlapping cycles are never queued.
var ErrCycleInFlight = errors.New("check cycle already in flight")

// Cycle summarizes one completed poll cycle.
type Cycle struct {
	Changes int
	Matched int
	Sent    int
	Failed  int
	Empty   bool
	// Initial marks the cycle that recorded the first baseline snapshot.
	// No notifications are sent for it: everything would be "new".
	Initial bool
}

// Watcher runs the poll pipeline: fetch, detect, persist, dispatch. Cycles
// are single-flight: the scheduler's tick and the manual check command
// serialize on the same lock, so two divergent snapshots cannot be written.
type Watcher struct {
	mu         sync.Mutex
	fetcher    fetch.Fetcher
	detector   *exposure.Detector
	snapshots  database.SnapshotRepository
	registry   *subscription.Registry
	dispatcher *notify.Dispatcher

	current exposure.Snapshot
	primed  bool

	statsMu   sync.Mutex
	lastCycle *Cycle
	lastRun   time.Time
}

func NewWatcher(fetcher fetch.Fetcher, detector *exposure.Detector,
	snapshots database.SnapshotRepository, registry *subscription.Registry,
	dispatcher *notify.Dispatcher) (*Watcher, error) {

	snapshot, found, err := snapshots.LoadSnapshot()
	if err != nil {
		return nil, fmt.Errorf("failed to load stored snapshot: %w", err)
	}

	return &Watcher{
		fetcher:    fetcher,
		detector:   detector,
		snapshots:  snapshots,
		registry:   registry,
		dispatcher: dispatcher,
		current:    snapshot,
		primed:     found,
	}, nil
}

// Run executes one cycle, waiting for any in-flight cycle to finish first.
func (w *Watcher) Run(ctx context.Context) (Cycle, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cycle(ctx)
}

// TryRun executes one cycle unless one is already in flight, in which case
// it returns ErrCycleInFlight without blocking.
func (w *Watcher) TryRun(ctx context.Context) (Cycle, error) {
	if !w.mu.TryLock() {
		return Cycle{}, ErrCycleInFlight
	}
	defer w.mu.Unlock()
	return w.cycle(ctx)
}

func (w *Watcher) cycle(ctx context.Context) (Cycle, error) {
	// Stable registry snapshot for this cycle: subscriptions changed while
	// the cycle runs take effect next cycle.
	entries := w.registry.Entries()

	fetched, err := w.fetcher.Fetch(ctx)
	if err != nil {
		// State stays untouched; the next tick re-polls.
		return Cycle{}, fmt.Errorf("fetch failed: %w", err)
	}

	if !w.primed {
		if err := w.snapshots.ReplaceSnapshot(fetched); err != nil {
			return Cycle{}, fmt.Errorf("failed to persist baseline snapshot: %w", err)
		}
		w.current = fetched
		w.primed = true
		cycle := Cycle{Initial: true, Empty: true}
		w.recordCycle(cycle)
		slog.Info("Baseline snapshot recorded", "records", len(fetched))
		return cycle, nil
	}

	cs := w.detector.Run(w.current, fetched)
	if cs.Empty() {
		cycle := Cycle{Empty: true}
		w.recordCycle(cycle)
		return cycle, nil
	}

	// Persist before dispatch. On failure the in-memory snapshot keeps the
	// last known-good state and nothing is notified.
	if err := w.snapshots.ReplaceSnapshot(fetched); err != nil {
		return Cycle{}, fmt.Errorf("failed to persist snapshot: %w", err)
	}
	w.current = fetched

	result := w.dispatcher.Run(ctx, cs, entries)

	cycle := Cycle{
		Changes: cs.Len(),
		Matched: result.Matched,
		Sent:    result.Sent,
		Failed:  len(result.Failures),
	}
	w.recordCycle(cycle)

	return cycle, nil
}

func (w *Watcher) recordCycle(cycle Cycle) {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	c := cycle
	w.lastCycle = &c
	w.lastRun = time.Now().UTC()
}

// Stats returns the outcome of the most recent completed cycle.
func (w *Watcher) Stats() (Cycle, time.Time, bool) {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	if w.lastCycle == nil {
		return Cycle{}, time.Time{}, false
	}
	return *w.lastCycle, w.lastRun, true
}
