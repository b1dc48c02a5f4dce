package app

import (
	"context"
	"errors"

	"dietprogress/internal/domain"
)

// StatsService summarizes the latest measurements for the dashboard cards.
type StatsService struct {
	repo       domain.ProgressRepository
	goalWeight float64
}

// NewStatsService creates a StatsService. goalWeight is in kilograms; zero
// disables the remaining-to-goal figure.
func NewStatsService(repo domain.ProgressRepository, goalWeight float64) *StatsService {
	return &StatsService{repo: repo, goalWeight: goalWeight}
}

// Snapshot is one entry with its derived masses in the requested unit.
type Snapshot struct {
	Date     string  `json:"date"`
	Weight   float64 `json:"weight"`
	BodyFat  float64 `json:"bodyFat"`
	FatMass  float64 `json:"fatMass"`
	LeanMass float64 `json:"leanMass"`
}

// Change is the difference between the latest and the previous entry.
type Change struct {
	Weight   float64 `json:"weight"`
	BodyFat  float64 `json:"bodyFat"`
	LeanMass float64 `json:"leanMass"`
}

// Summary is returned by Summarize.
type Summary struct {
	Unit          string    `json:"unit"`
	Count         int       `json:"count"`
	Latest        *Snapshot `json:"latest"`
	Previous      *Snapshot `json:"previous"`
	Change        *Change   `json:"change"`
	GoalWeight    *float64  `json:"goalWeight"`
	GoalRemaining *float64  `json:"goalRemaining"`
}

// Summarize compares the two most recent entries, with masses converted to
// unit ("kg" or "lb").
func (s *StatsService) Summarize(ctx context.Context, unit string) (*Summary, error) {
	if unit != domain.UnitKg && unit != domain.UnitLb {
		return nil, errors.New("unit must be \"kg\" or \"lb\"")
	}
	entries, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	domain.SortEntries(entries)

	sum := &Summary{Unit: unit, Count: len(entries)}
	if s.goalWeight > 0 {
		goal := domain.RoundTo2(domain.ConvertWeight(s.goalWeight, domain.UnitKg, unit))
		sum.GoalWeight = &goal
	}
	if len(entries) == 0 {
		return sum, nil
	}

	sum.Latest = snapshot(entries[0], unit)
	if sum.GoalWeight != nil {
		remaining := domain.RoundTo2(sum.Latest.Weight - *sum.GoalWeight)
		sum.GoalRemaining = &remaining
	}
	if len(entries) > 1 {
		sum.Previous = snapshot(entries[1], unit)
		sum.Change = &Change{
			Weight:   domain.RoundTo2(sum.Latest.Weight - sum.Previous.Weight),
			BodyFat:  domain.RoundTo2(sum.Latest.BodyFat - sum.Previous.BodyFat),
			LeanMass: domain.RoundTo2(sum.Latest.LeanMass - sum.Previous.LeanMass),
		}
	}
	return sum, nil
}

func snapshot(e domain.ProgressEntry, unit string) *Snapshot {
	conv := func(v float64) float64 {
		return domain.RoundTo2(domain.ConvertWeight(v, domain.UnitKg, unit))
	}
	return &Snapshot{
		Date:     e.Date,
		Weight:   conv(e.Weight),
		BodyFat:  e.BodyFat,
		FatMass:  conv(e.FatMass()),
		LeanMass: conv(e.LeanMass()),
	}
}
