package database

import (
	"github.com/tmcphee/casewatch/app/exposure"
)

// SubscriptionRow is one persisted registry entry. Position preserves
// first-subscribe order so dispatch iteration is deterministic.
type SubscriptionRow struct {
	Destination string
	Position    int
	Filters     []string
}

type SnapshotRepository interface {
	// LoadSnapshot returns the stored snapshot in feed order. found is
	// false when no poll has ever been accepted.
	LoadSnapshot() (snapshot exposure.Snapshot, found bool, err error)

	// ReplaceSnapshot swaps the stored snapshot wholesale in one
	// transaction. The store never patches records in place.
	ReplaceSnapshot(snapshot exposure.Snapshot) error

	CountRecords() (int, error)
}

type SubscriptionRepository interface {
	LoadAll() ([]SubscriptionRow, error)
	SaveDestination(destination string, filters []string) error
	DeleteDestination(destination string) error
}
