package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"dietprogress/internal/adapter/memory"
	"dietprogress/internal/app"
	"dietprogress/internal/domain"
)

type mockProgressRepo struct {
	getAllFn     func(ctx context.Context) ([]domain.ProgressEntry, error)
	addFn        func(ctx context.Context, e domain.ProgressEntry) ([]domain.ProgressEntry, error)
	deleteFn     func(ctx context.Context, id int64) ([]domain.ProgressEntry, error)
	replaceAllFn func(ctx context.Context, entries []domain.ProgressEntry) ([]domain.ProgressEntry, error)
}

func (m *mockProgressRepo) GetAll(ctx context.Context) ([]domain.ProgressEntry, error) {
	if m.getAllFn != nil {
		return m.getAllFn(ctx)
	}
	return nil, nil
}

func (m *mockProgressRepo) Add(ctx context.Context, e domain.ProgressEntry) ([]domain.ProgressEntry, error) {
	if m.addFn != nil {
		return m.addFn(ctx, e)
	}
	return []domain.ProgressEntry{e}, nil
}

func (m *mockProgressRepo) Delete(ctx context.Context, id int64) ([]domain.ProgressEntry, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil, nil
}

func (m *mockProgressRepo) ReplaceAll(ctx context.Context, entries []domain.ProgressEntry) ([]domain.ProgressEntry, error) {
	if m.replaceAllFn != nil {
		return m.replaceAllFn(ctx, entries)
	}
	return entries, nil
}

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

func TestAdd_Validation(t *testing.T) {
	called := false
	repo := &mockProgressRepo{
		addFn: func(_ context.Context, e domain.ProgressEntry) ([]domain.ProgressEntry, error) {
			called = true
			return nil, nil
		},
	}
	svc := app.NewProgressService(repo, nil)

	tests := []struct {
		name    string
		date    string
		weight  float64
		bodyFat float64
	}{
		{"missing date", "", 90, 25},
		{"bad date", "2024/01/01", 90, 25},
		{"zero weight", "2024-01-01", 0, 25},
		{"negative weight", "2024-01-01", -1, 25},
		{"body fat too high", "2024-01-01", 90, 100},
		{"rounds to zero", "2024-01-01", 0.001, 25},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Add(context.Background(), tc.date, tc.weight, tc.bodyFat)
			var verr *domain.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}
	if called {
		t.Fatal("repository reached despite invalid input")
	}
}

func TestAdd_AssignsIDAndRounds(t *testing.T) {
	var got domain.ProgressEntry
	repo := &mockProgressRepo{
		addFn: func(_ context.Context, e domain.ProgressEntry) ([]domain.ProgressEntry, error) {
			got = e
			return []domain.ProgressEntry{e}, nil
		},
	}
	svc := app.NewProgressService(repo, app.NewIDGenerator(fixedClock(1_700_000_000_000)))
	if _, err := svc.Add(context.Background(), "2024-01-01", 90.456, 25.004); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != 1_700_000_000_000 {
		t.Errorf("expected clock-derived id, got %d", got.ID)
	}
	if got.Weight != 90.46 || got.BodyFat != 25 {
		t.Errorf("expected rounded values, got %v / %v", got.Weight, got.BodyFat)
	}
}

func TestAdd_RepoError(t *testing.T) {
	repo := &mockProgressRepo{
		addFn: func(_ context.Context, _ domain.ProgressEntry) ([]domain.ProgressEntry, error) {
			return nil, errors.New("disk full")
		},
	}
	svc := app.NewProgressService(repo, nil)
	if _, err := svc.Add(context.Background(), "2024-01-01", 90, 25); err == nil {
		t.Fatal("expected error from repo")
	}
}

func TestList_SortsDescending(t *testing.T) {
	repo := &mockProgressRepo{
		getAllFn: func(_ context.Context) ([]domain.ProgressEntry, error) {
			return []domain.ProgressEntry{
				{ID: 1, Date: "2024-01-01"},
				{ID: 2, Date: "2024-01-03"},
				{ID: 3, Date: "2024-01-02"},
			}, nil
		},
	}
	svc := app.NewProgressService(repo, nil)
	got, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0].ID != 2 || got[1].ID != 3 || got[2].ID != 1 {
		t.Fatalf("unexpected order: %v", got)
	}
}

func TestList_EmptyIsNotNil(t *testing.T) {
	svc := app.NewProgressService(&mockProgressRepo{}, nil)
	got, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil {
		t.Fatal("expected empty slice, got nil")
	}
}

func TestDelete_InvalidID(t *testing.T) {
	svc := app.NewProgressService(&mockProgressRepo{}, nil)
	_, err := svc.Delete(context.Background(), 0)
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestReplaceAll_RejectsDuplicateDates(t *testing.T) {
	called := false
	repo := &mockProgressRepo{
		replaceAllFn: func(_ context.Context, entries []domain.ProgressEntry) ([]domain.ProgressEntry, error) {
			called = true
			return entries, nil
		},
	}
	svc := app.NewProgressService(repo, nil)
	_, err := svc.ReplaceAll(context.Background(), []domain.ProgressEntry{
		{Date: "2024-01-01", Weight: 90, BodyFat: 25},
		{Date: "2024-01-01", Weight: 89, BodyFat: 24},
	})
	if !errors.Is(err, domain.ErrDuplicateDate) {
		t.Fatalf("expected ErrDuplicateDate, got %v", err)
	}
	if called {
		t.Fatal("repository reached despite duplicate dates")
	}
}

func TestReplaceAll_ValidationNamesIndex(t *testing.T) {
	svc := app.NewProgressService(&mockProgressRepo{}, nil)
	_, err := svc.ReplaceAll(context.Background(), []domain.ProgressEntry{
		{Date: "2024-01-01", Weight: 90, BodyFat: 25},
		{Date: "2024-01-02", Weight: 90},
	})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Field != "[1].bodyFat" {
		t.Fatalf("unexpected field %q", verr.Field)
	}
}

func TestReplaceAll_AssignsMissingAndRepeatedIDs(t *testing.T) {
	var stored []domain.ProgressEntry
	repo := &mockProgressRepo{
		replaceAllFn: func(_ context.Context, entries []domain.ProgressEntry) ([]domain.ProgressEntry, error) {
			stored = entries
			return entries, nil
		},
	}
	svc := app.NewProgressService(repo, app.NewIDGenerator(fixedClock(10)))
	_, err := svc.ReplaceAll(context.Background(), []domain.ProgressEntry{
		{ID: 500, Date: "2024-01-01", Weight: 90, BodyFat: 25},
		{ID: 500, Date: "2024-01-02", Weight: 90, BodyFat: 25},
		{Date: "2024-01-03", Weight: 90, BodyFat: 25},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	seen := map[int64]bool{}
	for _, e := range stored {
		if e.ID <= 0 || seen[e.ID] {
			t.Fatalf("ids not unique and positive: %v", stored)
		}
		seen[e.ID] = true
	}
	if !seen[500] {
		t.Fatalf("supplied id was not kept: %v", stored)
	}
}

// TestScenario walks the add/duplicate/add/delete sequence against a real
// in-memory store.
func TestScenario(t *testing.T) {
	ctx := context.Background()
	svc := app.NewProgressService(memory.New(), nil)

	got, err := svc.Add(ctx, "2024-01-01", 90.0, 25.0)
	if err != nil {
		t.Fatalf("first add: %v", err)
	}
	if len(got) != 1 || got[0].ID == 0 || got[0].Weight != 90 || got[0].BodyFat != 25 {
		t.Fatalf("unexpected entries: %v", got)
	}
	firstID := got[0].ID

	if _, err := svc.Add(ctx, "2024-01-01", 89.0, 24.0); !errors.Is(err, domain.ErrDuplicateDate) {
		t.Fatalf("expected ErrDuplicateDate, got %v", err)
	}
	if all, _ := svc.List(ctx); len(all) != 1 {
		t.Fatalf("expected 1 entry after duplicate, got %v", all)
	}

	got, err = svc.Add(ctx, "2024-01-02", 89.5, 24.5)
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if len(got) != 2 || got[0].Date != "2024-01-02" || got[1].Date != "2024-01-01" {
		t.Fatalf("unexpected order: %v", got)
	}

	got, err = svc.Delete(ctx, firstID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(got) != 1 || got[0].Date != "2024-01-02" {
		t.Fatalf("unexpected entries after delete: %v", got)
	}

	if _, err := svc.Delete(ctx, firstID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestExportReimportRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := app.NewProgressService(memory.New(), nil)
	for _, d := range []string{"2024-01-01", "2024-01-02", "2024-01-03"} {
		if _, err := svc.Add(ctx, d, 90, 25); err != nil {
			t.Fatal(err)
		}
	}
	exported, _ := svc.List(ctx)

	fresh := app.NewProgressService(memory.New(), nil)
	got, err := fresh.ReplaceAll(ctx, exported)
	if err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	if len(got) != len(exported) {
		t.Fatalf("expected %d entries, got %d", len(exported), len(got))
	}
	for i := range got {
		if got[i].Date != exported[i].Date || got[i].Weight != exported[i].Weight || got[i].BodyFat != exported[i].BodyFat {
			t.Fatalf("entry %d differs: %v vs %v", i, got[i], exported[i])
		}
	}
}

func TestLoadIDs_NoReuseAfterRestart(t *testing.T) {
	const stored = int64(1_799_996_400_000)
	repo := memory.New(domain.ProgressEntry{ID: stored, Date: "2024-01-01", Weight: 90, BodyFat: 25})
	ctx := context.Background()

	// A new process whose clock reads the same millisecond as the stored id.
	svc := app.NewProgressService(repo, app.NewIDGenerator(fixedClock(stored)))
	if err := svc.LoadIDs(ctx); err != nil {
		t.Fatalf("LoadIDs: %v", err)
	}

	entries, err := svc.Add(ctx, "2024-01-02", 89.5, 24.5)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if entries[0].ID != stored+1 {
		t.Fatalf("new id = %d; want %d", entries[0].ID, stored+1)
	}

	left, err := svc.Delete(ctx, stored)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(left) != 1 || left[0].Date != "2024-01-02" {
		t.Fatalf("expected only 2024-01-02 to remain, got %v", left)
	}
}

func TestLoadIDs_BackfillsMissingAndRepeated(t *testing.T) {
	repo := memory.New(
		domain.ProgressEntry{ID: 0, Date: "2024-01-01", Weight: 90, BodyFat: 25},
		domain.ProgressEntry{ID: 50, Date: "2024-01-02", Weight: 89, BodyFat: 24},
		domain.ProgressEntry{ID: 50, Date: "2024-01-03", Weight: 88, BodyFat: 23},
	)
	ctx := context.Background()
	svc := app.NewProgressService(repo, app.NewIDGenerator(fixedClock(10)))
	if err := svc.LoadIDs(ctx); err != nil {
		t.Fatalf("LoadIDs: %v", err)
	}

	stored, err := repo.GetAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	seen := map[int64]bool{}
	for _, e := range stored {
		if e.ID <= 0 || seen[e.ID] {
			t.Fatalf("ids not unique and positive: %v", stored)
		}
		seen[e.ID] = true
	}
	if !seen[50] {
		t.Fatalf("expected the first id 50 to be kept: %v", stored)
	}
}

func TestLoadIDs_NoWriteWhenClean(t *testing.T) {
	repo := &mockProgressRepo{
		getAllFn: func(context.Context) ([]domain.ProgressEntry, error) {
			return []domain.ProgressEntry{{ID: 3, Date: "2024-01-01", Weight: 90, BodyFat: 25}}, nil
		},
		replaceAllFn: func(context.Context, []domain.ProgressEntry) ([]domain.ProgressEntry, error) {
			t.Fatal("ReplaceAll should not be called")
			return nil, nil
		},
	}
	if err := app.NewProgressService(repo, nil).LoadIDs(context.Background()); err != nil {
		t.Fatalf("LoadIDs: %v", err)
	}
}

func TestLoadIDs_RepoError(t *testing.T) {
	boom := errors.New("disk gone")
	repo := &mockProgressRepo{
		getAllFn: func(context.Context) ([]domain.ProgressEntry, error) { return nil, boom },
	}
	err := app.NewProgressService(repo, nil).LoadIDs(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped repo error, got %v", err)
	}
}
