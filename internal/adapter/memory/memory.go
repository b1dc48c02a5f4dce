// Package memory implements an in-memory repository for development and testing.
package memory

import (
	"context"
	"sync"

	"dietprogress/internal/domain"
)

// DB implements an in-memory progress store. It enforces the same date
// uniqueness as the persistent backends.
type DB struct {
	mu      sync.Mutex
	entries []domain.ProgressEntry
}

// New creates a new in-memory database, optionally seeded with entries.
func New(seed ...domain.ProgressEntry) *DB {
	db := &DB{}
	db.entries = append(db.entries, seed...)
	return db
}

// Ensure interfaces are met.
var _ domain.ProgressRepository = (*DB)(nil)
var _ domain.BulkImporter = (*DB)(nil)

// GetAll returns a copy of all entries in insertion order.
func (db *DB) GetAll(ctx context.Context) ([]domain.ProgressEntry, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.snapshot(), nil
}

// Add appends e unless its date is taken.
func (db *DB) Add(ctx context.Context, e domain.ProgressEntry) ([]domain.ProgressEntry, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, existing := range db.entries {
		if existing.Date == e.Date {
			return nil, domain.ErrDuplicateDate
		}
	}
	db.entries = append(db.entries, e)
	return db.snapshot(), nil
}

// Delete removes the entry with the given id.
func (db *DB) Delete(ctx context.Context, id int64) ([]domain.ProgressEntry, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for i, e := range db.entries {
		if e.ID == id {
			db.entries = append(db.entries[:i], db.entries[i+1:]...)
			return db.snapshot(), nil
		}
	}
	return nil, domain.ErrNotFound
}

// ReplaceAll swaps the whole set, rejecting it if two entries share a date.
func (db *DB) ReplaceAll(ctx context.Context, entries []domain.ProgressEntry) ([]domain.ProgressEntry, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if _, ok := seen[e.Date]; ok {
			return nil, domain.ErrDuplicateDate
		}
		seen[e.Date] = struct{}{}
	}
	db.entries = append([]domain.ProgressEntry(nil), entries...)
	return db.snapshot(), nil
}

// Import replaces the set, skipping entries whose date is already taken.
func (db *DB) Import(ctx context.Context, entries []domain.ProgressEntry) (domain.ImportReport, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	report := domain.ImportReport{Read: len(entries)}
	seen := make(map[string]struct{}, len(entries))
	db.entries = nil
	for _, e := range entries {
		if _, ok := seen[e.Date]; ok {
			report.Failed = append(report.Failed, domain.ImportFailure{Entry: e, Err: domain.ErrDuplicateDate})
			continue
		}
		seen[e.Date] = struct{}{}
		db.entries = append(db.entries, e)
		report.Inserted++
	}
	return report, nil
}

func (db *DB) snapshot() []domain.ProgressEntry {
	out := make([]domain.ProgressEntry, len(db.entries))
	copy(out, db.entries)
	return out
}
