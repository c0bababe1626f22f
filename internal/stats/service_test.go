package stats

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/cadence/internal/calendar"
	"github.com/julianstephens/cadence/internal/models"
	"github.com/julianstephens/cadence/internal/recurrence"
	"github.com/julianstephens/cadence/internal/storage"
	"github.com/julianstephens/cadence/internal/storage/sqlite"
)

// countingStore counts habit loads to observe caching.
type countingStore struct {
	storage.Provider
	gets atomic.Int32
}

func (c *countingStore) GetHabit(id string) (models.Habit, error) {
	c.gets.Add(1)
	return c.Provider.GetHabit(id)
}

// pausingStore blocks the first armed completion read after it returns from
// the database, until resume is closed.
type pausingStore struct {
	storage.Provider
	armed  atomic.Bool
	read   chan struct{}
	resume chan struct{}
}

func newPausingStore(p storage.Provider) *pausingStore {
	return &pausingStore{Provider: p, read: make(chan struct{}), resume: make(chan struct{})}
}

func (p *pausingStore) GetCompletionsForHabit(habitID string, start, end calendar.Day) ([]models.Completion, error) {
	records, err := p.Provider.GetCompletionsForHabit(habitID, start, end)
	if p.armed.CompareAndSwap(true, false) {
		close(p.read)
		<-p.resume
	}
	return records, err
}

func setupTestSQLiteStore(t *testing.T) *sqlite.Store {
	t.Helper()

	store := sqlite.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func addDailyHabit(t *testing.T, store storage.Provider, name, start string) models.Habit {
	t.Helper()

	d := calendar.MustParse(start)
	h := models.Habit{
		ID:        uuid.New().String(),
		Name:      name,
		StartDate: d,
		CreatedAt: time.Now(),
		Patterns: []models.RecurrencePattern{{
			ID:            uuid.New().String(),
			EffectiveFrom: d,
			RepeatsPerDay: 1,
			Recurrence:    models.EveryDay(),
			CreatedAt:     time.Now(),
		}},
	}
	if err := store.AddHabit(h); err != nil {
		t.Fatalf("AddHabit failed: %v", err)
	}
	return h
}

func completionOn(habitID, day string) models.Completion {
	return models.Completion{
		ID:        uuid.New().String(),
		HabitID:   habitID,
		Day:       calendar.MustParse(day),
		Completed: true,
		CreatedAt: time.Now(),
	}
}

func markDays(t *testing.T, store storage.Provider, habitID string, days ...string) []models.Completion {
	t.Helper()

	var out []models.Completion
	for _, d := range days {
		c := completionOn(habitID, d)
		if err := store.AddCompletion(c); err != nil {
			t.Fatalf("AddCompletion failed: %v", err)
		}
		out = append(out, c)
	}
	return out
}

var firstWeek = []string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05"}

func TestStreaks_CachedUntilInvalidated(t *testing.T) {
	store := setupTestSQLiteStore(t)
	h := addDailyHabit(t, store, "Read", "2024-01-01")
	markDays(t, store, h.ID, firstWeek...)

	svc := New(store, calendar.Fixed(calendar.MustParse("2024-01-06")))
	ctx := context.Background()

	data, err := svc.Streaks(ctx, h.ID)
	if err != nil {
		t.Fatalf("Streaks failed: %v", err)
	}
	if data.Current != 5 || data.Longest != 5 || !data.IsActive {
		t.Errorf("unexpected streaks: %+v", data)
	}

	// A write behind the service's back is not seen until invalidation.
	markDays(t, store, h.ID, "2024-01-06")
	data, _ = svc.Streaks(ctx, h.ID)
	if data.Current != 5 {
		t.Errorf("expected cached streak of 5, got %d", data.Current)
	}

	svc.Invalidate(h.ID)
	data, _ = svc.Streaks(ctx, h.ID)
	if data.Current != 6 {
		t.Errorf("expected streak of 6 after invalidation, got %d", data.Current)
	}

	// Mutations through the service invalidate on their own.
	if err := svc.RecordCompletion(ctx, completionOn(h.ID, "2024-01-06")); err != nil {
		t.Fatalf("RecordCompletion failed: %v", err)
	}
	snap, err := svc.Snapshot(ctx, h.ID)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if snap.DoneToday != 2 {
		t.Errorf("expected 2 completions today, got %d", snap.DoneToday)
	}
}

func TestInvalidateDuringLoad(t *testing.T) {
	base := setupTestSQLiteStore(t)
	h := addDailyHabit(t, base, "Read", "2024-01-01")
	markDays(t, base, h.ID, "2024-01-04", "2024-01-05")

	store := newPausingStore(base)
	svc := New(store, calendar.Fixed(calendar.MustParse("2024-01-06")))
	ctx := context.Background()

	store.armed.Store(true)
	done := make(chan error, 1)
	go func() {
		_, err := svc.Streaks(ctx, h.ID)
		done <- err
	}()
	<-store.read

	if err := svc.RecordCompletion(ctx, completionOn(h.ID, "2024-01-06")); err != nil {
		t.Fatalf("RecordCompletion failed: %v", err)
	}
	close(store.resume)
	if err := <-done; err != nil {
		t.Fatalf("Streaks failed: %v", err)
	}

	snap, err := svc.Snapshot(ctx, h.ID)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if snap.DoneToday != 1 {
		t.Errorf("expected the new completion to be visible, got %d done today", snap.DoneToday)
	}
	if snap.Streaks.Current != 3 {
		t.Errorf("expected current streak of 3, got %d", snap.Streaks.Current)
	}
}

func TestSummary_InvalidatedWhileComputing(t *testing.T) {
	base := setupTestSQLiteStore(t)
	h := addDailyHabit(t, base, "Read", "2024-01-01")

	store := newPausingStore(base)
	svc := New(store, calendar.Fixed(calendar.MustParse("2024-01-06")))
	ctx := context.Background()

	store.armed.Store(true)
	done := make(chan error, 1)
	go func() {
		_, err := svc.Summary(ctx, false)
		done <- err
	}()
	<-store.read

	if err := svc.RecordCompletion(ctx, completionOn(h.ID, "2024-01-06")); err != nil {
		t.Fatalf("RecordCompletion failed: %v", err)
	}
	close(store.resume)
	if err := <-done; err != nil {
		t.Fatalf("Summary failed: %v", err)
	}

	summary, err := svc.Summary(ctx, false)
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if summary.CompletedToday != 1 {
		t.Errorf("expected 1 completed today, got %d", summary.CompletedToday)
	}
}

func TestBestStreakEver_NeverDecreases(t *testing.T) {
	store := setupTestSQLiteStore(t)
	h := addDailyHabit(t, store, "Floss", "2024-01-01")
	marked := markDays(t, store, h.ID, firstWeek...)

	svc := New(store, calendar.Fixed(calendar.MustParse("2024-01-06")))
	ctx := context.Background()

	if _, err := svc.Streaks(ctx, h.ID); err != nil {
		t.Fatalf("Streaks failed: %v", err)
	}
	stored, _ := store.GetHabit(h.ID)
	if stored.BestStreakEver != 5 || stored.TotalCompletions != 5 {
		t.Fatalf("expected persisted best 5 and total 5, got %d and %d", stored.BestStreakEver, stored.TotalCompletions)
	}

	if err := svc.RemoveCompletion(ctx, marked[2]); err != nil {
		t.Fatalf("RemoveCompletion failed: %v", err)
	}

	data, err := svc.Streaks(ctx, h.ID)
	if err != nil {
		t.Fatalf("Streaks failed: %v", err)
	}
	if data.Longest != 2 {
		t.Errorf("expected longest 2 after removal, got %d", data.Longest)
	}
	if data.BestEver != 5 {
		t.Errorf("expected best ever to stay 5, got %d", data.BestEver)
	}

	stored, _ = store.GetHabit(h.ID)
	if stored.BestStreakEver != 5 || stored.TotalCompletions != 4 {
		t.Errorf("expected persisted best 5 and total 4, got %d and %d", stored.BestStreakEver, stored.TotalCompletions)
	}
}

func TestConcurrentQueriesLoadOnce(t *testing.T) {
	base := setupTestSQLiteStore(t)
	h := addDailyHabit(t, base, "Walk", "2023-01-01")
	markDays(t, base, h.ID, firstWeek...)

	store := &countingStore{Provider: base}
	svc := New(store, calendar.Fixed(calendar.MustParse("2024-01-06")))

	var wg sync.WaitGroup
	results := make([]models.StreakData, 16)
	errs := make([]error, 16)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = svc.Streaks(context.Background(), h.ID)
		}()
	}
	wg.Wait()

	for i := range results {
		if errs[i] != nil {
			t.Fatalf("Streaks failed: %v", errs[i])
		}
		if results[i] != results[0] {
			t.Errorf("result %d differs: %+v vs %+v", i, results[i], results[0])
		}
	}
	if got := store.gets.Load(); got != 1 {
		t.Errorf("expected habit loaded once, got %d", got)
	}
}

func TestScoreSeriesAndSnapshot(t *testing.T) {
	store := setupTestSQLiteStore(t)
	h := addDailyHabit(t, store, "Stretch", "2024-01-01")
	markDays(t, store, h.ID, firstWeek...)

	svc := New(store, calendar.Fixed(calendar.MustParse("2024-01-05")), WithSeriesDays(14))
	ctx := context.Background()

	breakdown, err := svc.Score(ctx, h.ID)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	// 5/5 completed: 80 base plus round(5/30*20) = 3.
	if breakdown.TotalScore != 83 || breakdown.ExpectedCount != 5 {
		t.Errorf("unexpected breakdown: %+v", breakdown)
	}

	series, err := svc.Series(ctx, h.ID, 0)
	if err != nil {
		t.Fatalf("Series failed: %v", err)
	}
	if len(series) != 14 {
		t.Fatalf("expected default window of 14, got %d", len(series))
	}
	if !series[13].IsCompleted || series[0].IsActive {
		t.Errorf("expected newest day completed and oldest inactive, got %+v and %+v", series[13], series[0])
	}

	snap, err := svc.Snapshot(ctx, h.ID)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if !snap.ActiveToday || snap.Required != 1 || snap.DoneToday != 1 {
		t.Errorf("unexpected today figures: %+v", snap)
	}
	if snap.Consistency != 1 {
		t.Errorf("expected full consistency, got %f", snap.Consistency)
	}
	if snap.Habit.BestStreakEver != 5 {
		t.Errorf("expected snapshot to carry persisted best streak, got %d", snap.Habit.BestStreakEver)
	}
}

func TestAddPattern(t *testing.T) {
	store := setupTestSQLiteStore(t)
	h := addDailyHabit(t, store, "Gym", "2024-01-01")
	svc := New(store, calendar.Fixed(calendar.MustParse("2024-01-10")))
	ctx := context.Background()

	before, _ := svc.Series(ctx, h.ID, 10)
	if active := countActive(before); active != 10 {
		t.Fatalf("expected 10 active days, got %d", active)
	}

	p := models.RecurrencePattern{
		ID:            uuid.New().String(),
		HabitID:       h.ID,
		EffectiveFrom: calendar.MustParse("2024-01-08"),
		RepeatsPerDay: 1,
		Recurrence:    models.WeeklyOn(time.Monday),
		CreatedAt:     time.Now(),
	}
	if err := svc.AddPattern(ctx, p); err != nil {
		t.Fatalf("AddPattern failed: %v", err)
	}

	after, _ := svc.Series(ctx, h.ID, 10)
	if active := countActive(after); active != 8 {
		t.Errorf("expected 8 active days after schedule change, got %d", active)
	}

	p.ID = uuid.New().String()
	p.Recurrence = models.WeeklyGoal{Interval: 1}
	if err := svc.AddPattern(ctx, p); !errors.Is(err, recurrence.ErrInvalidPattern) {
		t.Errorf("expected ErrInvalidPattern, got %v", err)
	}
}

func countActive(series []models.DayRecord) int {
	n := 0
	for _, r := range series {
		if r.IsActive {
			n++
		}
	}
	return n
}

func TestErrors(t *testing.T) {
	store := setupTestSQLiteStore(t)
	svc := New(store, calendar.Fixed(calendar.MustParse("2024-01-10")))

	if _, err := svc.Streaks(context.Background(), "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.Score(ctx, "missing"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestSummary_Throttled(t *testing.T) {
	store := setupTestSQLiteStore(t)
	a := addDailyHabit(t, store, "Read", "2024-01-01")
	markDays(t, store, a.ID, "2024-01-05")

	now := time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)
	svc := New(store, calendar.Fixed(calendar.MustParse("2024-01-05")), WithNow(func() time.Time { return now }))
	ctx := context.Background()

	summary, err := svc.Summary(ctx, false)
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if len(summary.Habits) != 1 || summary.ActiveToday != 1 || summary.CompletedToday != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	addDailyHabit(t, store, "Write", "2024-01-01")

	summary, _ = svc.Summary(ctx, false)
	if len(summary.Habits) != 1 {
		t.Errorf("expected throttled summary with 1 habit, got %d", len(summary.Habits))
	}

	summary, _ = svc.Summary(ctx, true)
	if len(summary.Habits) != 2 || summary.CompletedToday != 1 {
		t.Errorf("expected forced refresh with 2 habits, got %+v", summary)
	}

	// Invalidation marks the summary dirty.
	if err := svc.RecordCompletion(ctx, completionOn(summary.Habits[1].Habit.ID, "2024-01-05")); err != nil {
		t.Fatalf("RecordCompletion failed: %v", err)
	}
	summary, _ = svc.Summary(ctx, false)
	if summary.CompletedToday != 2 {
		t.Errorf("expected 2 completed after invalidation, got %d", summary.CompletedToday)
	}

	addDailyHabit(t, store, "Sketch", "2024-01-01")
	now = now.Add(3 * time.Minute)
	summary, _ = svc.Summary(ctx, false)
	if len(summary.Habits) != 3 {
		t.Errorf("expected refresh after throttle window, got %d habits", len(summary.Habits))
	}
}

func TestBackfill_StampsVersion(t *testing.T) {
	store := setupTestSQLiteStore(t)
	a := addDailyHabit(t, store, "Read", "2024-01-01")
	b := addDailyHabit(t, store, "Run", "2024-01-01")
	markDays(t, store, a.ID, firstWeek...)
	if err := store.ArchiveHabit(b.ID); err != nil {
		t.Fatalf("ArchiveHabit failed: %v", err)
	}

	clock := calendar.Fixed(calendar.MustParse("2024-01-06"))
	ctx := context.Background()

	result, err := New(store, clock).Backfill(ctx)
	if err != nil {
		t.Fatalf("Backfill failed: %v", err)
	}
	if result.Habits != 2 || result.Updated != 2 {
		t.Errorf("expected 2 habits updated, got %+v", result)
	}

	result, _ = New(store, clock).Backfill(ctx)
	if result.Updated != 0 {
		t.Errorf("expected no updates on second run, got %d", result.Updated)
	}

	bumped := New(store, clock, WithVersion(2))
	stored, _ := store.GetHabit(a.ID)
	if !bumped.Stale(stored) {
		t.Error("expected habit to be stale for a newer version")
	}
	if _, err := bumped.Backfill(ctx); err != nil {
		t.Fatalf("Backfill failed: %v", err)
	}
	stored, _ = store.GetHabit(a.ID)
	if stored.StatsVersion != 2 || stored.BestStreakEver != 5 || stored.TotalCompletions != 5 {
		t.Errorf("unexpected aggregates after version bump: %+v", stored)
	}
}
