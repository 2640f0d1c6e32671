package database

import (
	"fmt"

	"github.com/tmcphee/casewatch/app/exposure"
)

var _ SnapshotRepository = (*SQLSnapshotRepository)(nil)

type SQLSnapshotRepository struct {
	db *DB
}

func NewSnapshotRepository(db *DB) *SQLSnapshotRepository {
	return &SQLSnapshotRepository{db: db}
}

func (r *SQLSnapshotRepository) LoadSnapshot() (exposure.Snapshot, bool, error) {
	// The meta row distinguishes "never polled" from an accepted empty list.
	var accepted int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM snapshot_meta`).Scan(&accepted)
	if err != nil {
		return nil, false, fmt.Errorf("failed to check snapshot meta: %w", err)
	}
	if accepted == 0 {
		return nil, false, nil
	}

	rows, err := r.db.Query(`
		SELECT place, suburb, date, arrival, departure, category
		FROM snapshot_records
		ORDER BY position
	`)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load snapshot: %w", err)
	}
	defer rows.Close()

	var snapshot exposure.Snapshot
	for rows.Next() {
		var rec exposure.Record
		var category string
		if err := rows.Scan(&rec.Place, &rec.Suburb, &rec.Date, &rec.Arrival, &rec.Departure, &category); err != nil {
			return nil, false, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		rec.Category = exposure.ParseCategory(category)
		snapshot = append(snapshot, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("error iterating snapshot rows: %w", err)
	}

	return snapshot, true, nil
}

func (r *SQLSnapshotRepository) ReplaceSnapshot(snapshot exposure.Snapshot) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM snapshot_records`); err != nil {
		return fmt.Errorf("failed to clear snapshot: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO snapshot_records (position, place, suburb, date, arrival, departure, category)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range snapshot {
		if _, err := stmt.Exec(i, rec.Place, rec.Suburb, rec.Date, rec.Arrival, rec.Departure, rec.Category.String()); err != nil {
			return fmt.Errorf("failed to insert snapshot row: %w", err)
		}
	}

	if _, err := tx.Exec(`
		INSERT INTO snapshot_meta (id, accepted_at) VALUES (1, datetime('now'))
		ON CONFLICT (id) DO UPDATE SET accepted_at = excluded.accepted_at
	`); err != nil {
		return fmt.Errorf("failed to record snapshot acceptance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}

	return nil
}

func (r *SQLSnapshotRepository) CountRecords() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM snapshot_records`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count snapshot records: %w", err)
	}
	return count, nil
}
