// Package app holds the application services and business logic.
package app

import (
	"context"
	"fmt"
	"log"

	"dietprogress/internal/domain"
)

// ProgressService encapsulates the progress-entry use cases. It validates
// input before touching storage and returns every set in canonical order.
type ProgressService struct {
	repo domain.ProgressRepository
	ids  *IDGenerator
}

// NewProgressService creates a ProgressService backed by the given repository.
func NewProgressService(repo domain.ProgressRepository, ids *IDGenerator) *ProgressService {
	if ids == nil {
		ids = NewIDGenerator(nil)
	}
	return &ProgressService{repo: repo, ids: ids}
}

// LoadIDs primes the id generator with every id already stored, so a fresh
// process never reissues one. Entries stored without an id, or sharing one,
// are given fresh ids and written back. Call it once at startup.
func (s *ProgressService) LoadIDs(ctx context.Context) error {
	entries, err := s.repo.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("load ids: %w", err)
	}
	for _, e := range entries {
		s.ids.Observe(e.ID)
	}

	seen := make(map[int64]struct{}, len(entries))
	fixed := 0
	for i := range entries {
		if _, dup := seen[entries[i].ID]; entries[i].ID <= 0 || dup {
			entries[i].ID = s.ids.Next()
			fixed++
		}
		seen[entries[i].ID] = struct{}{}
	}
	if fixed == 0 {
		return nil
	}
	if _, err := s.repo.ReplaceAll(ctx, entries); err != nil {
		return fmt.Errorf("load ids: backfill: %w", err)
	}
	log.Printf("progress: assigned ids to %d stored entries", fixed)
	return nil
}

// List returns all entries, newest date first.
func (s *ProgressService) List(ctx context.Context) ([]domain.ProgressEntry, error) {
	entries, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return sorted(entries), nil
}

// Add validates and stores a new measurement, returning the refreshed set.
func (s *ProgressService) Add(ctx context.Context, date string, weight, bodyFat float64) ([]domain.ProgressEntry, error) {
	e := domain.ProgressEntry{
		Date:    date,
		Weight:  domain.RoundTo2(weight),
		BodyFat: domain.RoundTo2(bodyFat),
	}
	if err := domain.ValidateEntry(e); err != nil {
		return nil, err
	}
	e.ID = s.ids.Next()

	entries, err := s.repo.Add(ctx, e)
	if err != nil {
		return nil, err
	}
	return sorted(entries), nil
}

// Delete removes the entry with the given id. It returns domain.ErrNotFound
// when no such entry exists.
func (s *ProgressService) Delete(ctx context.Context, id int64) ([]domain.ProgressEntry, error) {
	if id <= 0 {
		return nil, &domain.ValidationError{Field: "id", Message: "must be a positive integer"}
	}
	entries, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	return sorted(entries), nil
}

// ReplaceAll validates the full desired set and swaps it in. Entries without
// an id, or repeating an id already used earlier in the payload, get a fresh
// one; other ids are kept so an exported set can be re-imported unchanged.
func (s *ProgressService) ReplaceAll(ctx context.Context, entries []domain.ProgressEntry) ([]domain.ProgressEntry, error) {
	next := make([]domain.ProgressEntry, 0, len(entries))
	dates := make(map[string]struct{}, len(entries))
	for i, in := range entries {
		e := domain.ProgressEntry{
			ID:      in.ID,
			Date:    in.Date,
			Weight:  domain.RoundTo2(in.Weight),
			BodyFat: domain.RoundTo2(in.BodyFat),
		}
		if err := domain.ValidateEntry(e); err != nil {
			return nil, indexed(i, err)
		}
		if _, dup := dates[e.Date]; dup {
			return nil, fmt.Errorf("entry %d (%s): %w", i, e.Date, domain.ErrDuplicateDate)
		}
		dates[e.Date] = struct{}{}
		if e.ID > 0 {
			s.ids.Observe(e.ID)
		}
		next = append(next, e)
	}

	ids := make(map[int64]struct{}, len(next))
	for i := range next {
		if _, dup := ids[next[i].ID]; next[i].ID <= 0 || dup {
			next[i].ID = s.ids.Next()
		}
		ids[next[i].ID] = struct{}{}
	}

	out, err := s.repo.ReplaceAll(ctx, next)
	if err != nil {
		return nil, err
	}
	return sorted(out), nil
}

func sorted(entries []domain.ProgressEntry) []domain.ProgressEntry {
	if entries == nil {
		return []domain.ProgressEntry{}
	}
	domain.SortEntries(entries)
	return entries
}

func indexed(i int, err error) error {
	if verr, ok := err.(*domain.ValidationError); ok {
		return &domain.ValidationError{
			Field:   fmt.Sprintf("[%d].%s", i, verr.Field),
			Message: verr.Message,
		}
	}
	return err
}
