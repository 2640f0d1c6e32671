package subscription

import (
	"fmt"
	"slices"
	"sync"

	"github.com/tmcphee/casewatch/app/database"
	"github.com/tmcphee/casewatch/app/exposure"
)

type State int

const (
	// NotSubscribed means the destination has no registry entry at all.
	// Distinct from SubscribedAll: an entry with an empty filter set is
	// subscribed to everything.
	NotSubscribed State = iota
	SubscribedAll
	SubscribedFiltered
)

type Status struct {
	State   State
	Filters []string
}

// Entry is a stable copy of one registry entry, safe to hold across a
// dispatch cycle while subscribe/unsubscribe commands keep arriving.
type Entry struct {
	Destination string
	Filters     []string
}

// Registry maps destinations to optional location filters. Every mutation
// persists before the in-memory view changes, so a crash between the two
// can never leave memory ahead of disk.
type Registry struct {
	mu      sync.Mutex
	order   []string
	entries map[string][]string
	repo    database.SubscriptionRepository
}

func NewRegistry(repo database.SubscriptionRepository) (*Registry, error) {
	rows, err := repo.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load subscriptions: %w", err)
	}

	r := &Registry{
		entries: make(map[string][]string, len(rows)),
		repo:    repo,
	}
	for _, row := range rows {
		r.order = append(r.order, row.Destination)
		r.entries[row.Destination] = slices.Clone(row.Filters)
	}

	return r, nil
}

// Subscribe creates an entry for the destination if none exists and adds any
// locations not already present. Already-present locations are silently
// skipped. Returns the filters actually added and whether the entry was
// created by this call.
func (r *Registry) Subscribe(destination string, locations []string) (added []string, created bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	filters, exists := r.entries[destination]
	created = !exists

	next := slices.Clone(filters)
	for _, loc := range locations {
		normalized := exposure.NormalizeToken(loc)
		if normalized == "" || slices.Contains(next, normalized) {
			continue
		}
		next = append(next, normalized)
		added = append(added, normalized)
	}

	if !created && len(added) == 0 {
		return nil, false, nil
	}

	if err := r.repo.SaveDestination(destination, next); err != nil {
		return nil, false, fmt.Errorf("failed to persist subscription: %w", err)
	}

	if created {
		r.order = append(r.order, destination)
	}
	r.entries[destination] = next

	return added, created, nil
}

// Unsubscribe with no locations deletes the entry entirely. With locations
// it removes the matching filters but keeps the entry, even when the filter
// set ends up empty (which then means "subscribed to everything").
func (r *Registry) Unsubscribe(destination string, locations []string) (removed []string, existed bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	filters, exists := r.entries[destination]
	if !exists {
		return nil, false, nil
	}

	if len(locations) == 0 {
		if err := r.repo.DeleteDestination(destination); err != nil {
			return nil, true, fmt.Errorf("failed to persist unsubscribe: %w", err)
		}
		delete(r.entries, destination)
		r.order = slices.DeleteFunc(r.order, func(d string) bool { return d == destination })
		return nil, true, nil
	}

	next := slices.Clone(filters)
	for _, loc := range locations {
		normalized := exposure.NormalizeToken(loc)
		if i := slices.Index(next, normalized); i >= 0 {
			next = slices.Delete(next, i, i+1)
			removed = append(removed, normalized)
		}
	}

	if len(removed) == 0 {
		return nil, true, nil
	}

	if err := r.repo.SaveDestination(destination, next); err != nil {
		return nil, true, fmt.Errorf("failed to persist subscription: %w", err)
	}
	r.entries[destination] = next

	return removed, true, nil
}

func (r *Registry) Status(destination string) Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	filters, exists := r.entries[destination]
	switch {
	case !exists:
		return Status{State: NotSubscribed}
	case len(filters) == 0:
		return Status{State: SubscribedAll}
	default:
		return Status{State: SubscribedFiltered, Filters: slices.Clone(filters)}
	}
}

// Entries returns a deep copy of all entries in first-subscribe order. A
// dispatch cycle iterates over this stable copy, so concurrent mutations
// only affect the next cycle.
func (r *Registry) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := make([]Entry, 0, len(r.order))
	for _, destination := range r.order {
		entries = append(entries, Entry{
			Destination: destination,
			Filters:     slices.Clone(r.entries[destination]),
		})
	}
	return entries
}

func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
