// Package domain contains the core business entities and interfaces.
package domain

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"time"
)

// DateLayout is the calendar date format used as the natural key.
const DateLayout = "2006-01-02"

// MaxWeight is the largest weight the relational schema can hold
// (NUMERIC(6,2)).
const MaxWeight = 9999.99

var (
	// ErrDuplicateDate indicates that an entry already exists for the given date.
	ErrDuplicateDate = errors.New("an entry already exists for this date")
	// ErrNotFound indicates that no entry matched the requested id.
	ErrNotFound = errors.New("entry not found")
)

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ProgressEntry is one dated weight/body-fat measurement.
type ProgressEntry struct {
	ID      int64   `json:"id"`
	Date    string  `json:"date"`
	Weight  float64 `json:"weight"`
	BodyFat float64 `json:"bodyFat"`
}

// FatMass returns the fat mass in the entry's weight unit.
func (e ProgressEntry) FatMass() float64 {
	return e.Weight * e.BodyFat / 100
}

// LeanMass returns the fat-free mass in the entry's weight unit.
func (e ProgressEntry) LeanMass() float64 {
	return e.Weight - e.FatMass()
}

// ProgressRepository is the port for progress entry persistence.
//
// Implementations are not required to return entries in any particular
// order; callers sort with SortEntries.
type ProgressRepository interface {
	GetAll(ctx context.Context) ([]ProgressEntry, error)
	// Add persists e and returns the refreshed set, or ErrDuplicateDate.
	Add(ctx context.Context, e ProgressEntry) ([]ProgressEntry, error)
	// Delete removes the entry with the given id and returns the refreshed
	// set, or ErrNotFound.
	Delete(ctx context.Context, id int64) ([]ProgressEntry, error)
	// ReplaceAll discards every stored entry and persists entries instead.
	ReplaceAll(ctx context.Context, entries []ProgressEntry) ([]ProgressEntry, error)
}

// ValidationError reports malformed or missing input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// SortEntries orders entries by descending date, ties broken by descending id.
func SortEntries(entries []ProgressEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Date == entries[j].Date {
			return entries[i].ID > entries[j].ID
		}
		return entries[i].Date > entries[j].Date
	})
}

// ValidateDate checks that s is a real calendar date in YYYY-MM-DD form.
func ValidateDate(s string) error {
	if s == "" {
		return &ValidationError{Field: "date", Message: "is required"}
	}
	if !datePattern.MatchString(s) {
		return &ValidationError{Field: "date", Message: "must be in YYYY-MM-DD format"}
	}
	if _, err := time.Parse(DateLayout, s); err != nil {
		return &ValidationError{Field: "date", Message: "is not a valid calendar date"}
	}
	return nil
}

// ValidateEntry checks the fields of e. The id is not inspected.
func ValidateEntry(e ProgressEntry) error {
	if err := ValidateDate(e.Date); err != nil {
		return err
	}
	if math.IsNaN(e.Weight) || math.IsInf(e.Weight, 0) || e.Weight <= 0 || e.Weight > MaxWeight {
		return &ValidationError{Field: "weight", Message: fmt.Sprintf("must be > 0 and at most %.2f", MaxWeight)}
	}
	if math.IsNaN(e.BodyFat) || math.IsInf(e.BodyFat, 0) || e.BodyFat <= 0 || e.BodyFat >= 100 {
		return &ValidationError{Field: "bodyFat", Message: "must be between 0 and 100 (exclusive)"}
	}
	return nil
}

// RoundTo2 rounds v to two decimal digits.
func RoundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ImportFailure records one entry that a bulk import could not insert.
type ImportFailure struct {
	Entry ProgressEntry
	Err   error
}

// ImportReport summarizes a best-effort bulk import.
type ImportReport struct {
	Read     int
	Inserted int
	Failed   []ImportFailure
}

// BulkImporter loads a full set of entries, replacing prior state, and keeps
// going past individual row failures.
type BulkImporter interface {
	Import(ctx context.Context, entries []ProgressEntry) (ImportReport, error)
}
