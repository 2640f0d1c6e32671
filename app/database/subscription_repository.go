package database

import (
	"encoding/json"
	"fmt"
)

var _ SubscriptionRepository = (*SQLSubscriptionRepository)(nil)

type SQLSubscriptionRepository struct {
	db *DB
}

func NewSubscriptionRepository(db *DB) *SQLSubscriptionRepository {
	return &SQLSubscriptionRepository{db: db}
}

func (r *SQLSubscriptionRepository) LoadAll() ([]SubscriptionRow, error) {
	rows, err := r.db.Query(`
		SELECT destination, position, filters
		FROM subscriptions
		ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load subscriptions: %w", err)
	}
	defer rows.Close()

	var subscriptions []SubscriptionRow
	for rows.Next() {
		var row SubscriptionRow
		var filtersJSON string
		if err := rows.Scan(&row.Destination, &row.Position, &filtersJSON); err != nil {
			return nil, fmt.Errorf("failed to scan subscription row: %w", err)
		}
		if err := json.Unmarshal([]byte(filtersJSON), &row.Filters); err != nil {
			return nil, fmt.Errorf("failed to decode filters for %s: %w", row.Destination, err)
		}
		subscriptions = append(subscriptions, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subscription rows: %w", err)
	}

	return subscriptions, nil
}

// SaveDestination upserts a destination's filter list. New destinations get
// the next position so dispatch iteration follows first-subscribe order.
func (r *SQLSubscriptionRepository) SaveDestination(destination string, filters []string) error {
	if filters == nil {
		filters = []string{}
	}
	filtersJSON, err := json.Marshal(filters)
	if err != nil {
		return fmt.Errorf("failed to encode filters: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO subscriptions (destination, position, filters)
		VALUES (?, (SELECT COALESCE(MAX(position), 0) + 1 FROM subscriptions), ?)
		ON CONFLICT (destination) DO UPDATE SET filters = excluded.filters
	`, destination, string(filtersJSON))
	if err != nil {
		return fmt.Errorf("failed to save subscription: %w", err)
	}

	return nil
}

func (r *SQLSubscriptionRepository) DeleteDestination(destination string) error {
	_, err := r.db.Exec(`DELETE FROM subscriptions WHERE destination = ?`, destination)
	if err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	return nil
}
