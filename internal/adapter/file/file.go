// Package file implements the progress repository as a single pretty-printed
// JSON array on local disk.
//
// Every mutation is a full read-modify-write of the file. The mutex only
// serializes callers inside this process; two processes sharing one file can
// still lose each other's writes.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"dietprogress/internal/domain"
)

// Store persists progress entries to a JSON file.
type Store struct {
	path string
	mu   sync.Mutex
}

var _ domain.ProgressRepository = (*Store)(nil)

// Open returns a Store for path, creating the parent directory and an empty
// array file when they do not exist yet.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("file store: create data dir: %w", err)
	}
	s := &Store{path: path}

	_, err := os.Stat(path)
	switch {
	case err == nil:
		log.Printf("file store: using %s", path)
	case errors.Is(err, os.ErrNotExist):
		if err := s.write([]domain.ProgressEntry{}); err != nil {
			return nil, err
		}
		log.Printf("file store: created %s", path)
	default:
		return nil, fmt.Errorf("file store: stat %s: %w", path, err)
	}
	return s, nil
}

// Path returns the location of the backing file.
func (s *Store) Path() string {
	return s.path
}

// GetAll returns the entries in file order. An unreadable or corrupt file is
// logged and reported as an empty set.
func (s *Store) GetAll(ctx context.Context) ([]domain.ProgressEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read()
	if err != nil {
		log.Printf("file store: read %s: %v", s.path, err)
		return []domain.ProgressEntry{}, nil
	}
	return entries, nil
}

// Add appends e unless an entry with the same date already exists.
func (s *Store) Add(ctx context.Context, e domain.ProgressEntry) ([]domain.ProgressEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read()
	if err != nil {
		return nil, err
	}
	for _, existing := range entries {
		if existing.Date == e.Date {
			return nil, domain.ErrDuplicateDate
		}
	}
	entries = append(entries, e)
	if err := s.write(entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Delete removes the entry with the given id.
func (s *Store) Delete(ctx context.Context, id int64) ([]domain.ProgressEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read()
	if err != nil {
		return nil, err
	}
	kept := make([]domain.ProgressEntry, 0, len(entries))
	for _, e := range entries {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(entries) {
		return nil, domain.ErrNotFound
	}
	if err := s.write(kept); err != nil {
		return nil, err
	}
	return kept, nil
}

// ReplaceAll overwrites the file with entries. Dates are not checked for
// uniqueness here.
func (s *Store) ReplaceAll(ctx context.Context, entries []domain.ProgressEntry) ([]domain.ProgressEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.ProgressEntry, len(entries))
	copy(out, entries)
	if err := s.write(out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) read() ([]domain.ProgressEntry, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []domain.ProgressEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file store: read: %w", err)
	}

	var rows []row
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("file store: decode %s: %w", s.path, err)
	}
	entries := make([]domain.ProgressEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, r.entry())
	}
	return entries, nil
}

// row is the on-disk shape of an entry. Older files hold whatever the client
// posted, so numbers may be quoted and ids may be missing (decoded as 0).
type row struct {
	ID      domain.Number `json:"id"`
	Date    string        `json:"date"`
	Weight  domain.Number `json:"weight"`
	BodyFat domain.Number `json:"bodyFat"`
}

func (r row) entry() domain.ProgressEntry {
	return domain.ProgressEntry{
		ID:      int64(r.ID),
		Date:    r.Date,
		Weight:  float64(r.Weight),
		BodyFat: float64(r.BodyFat),
	}
}

// write replaces the file through a temp file and rename so a crash never
// leaves a half-written array behind.
func (s *Store) write(entries []domain.ProgressEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("file store: encode: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".progress-*.tmp")
	if err != nil {
		return fmt.Errorf("file store: create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("file store: write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("file store: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("file store: close: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("file store: chmod: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("file store: rename: %w", err)
	}
	return nil
}
