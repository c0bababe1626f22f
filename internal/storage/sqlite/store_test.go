package sqlite

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/cadence/internal/calendar"
	"github.com/julianstephens/cadence/internal/constants"
	"github.com/julianstephens/cadence/internal/models"
	"github.com/julianstephens/cadence/internal/recurrence"
	"github.com/julianstephens/cadence/internal/storage"
)

func setupTestSQLiteStore(t *testing.T) (*Store, func()) {
	t.Helper()

	store := NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}

	return store, func() { store.Close() }
}

func newHabit(name string, start string) models.Habit {
	d := calendar.MustParse(start)
	return models.Habit{
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
}

func newCompletion(habitID, day string) models.Completion {
	return models.Completion{
		ID:        uuid.New().String(),
		HabitID:   habitID,
		Day:       calendar.MustParse(day),
		Completed: true,
		CreatedAt: time.Now(),
	}
}

var _ storage.Provider = (*Store)(nil)

func TestInit_DefaultSettings(t *testing.T) {
	store, cleanup := setupTestSQLiteStore(t)
	defer cleanup()

	settings, err := store.GetSettings()
	if err != nil {
		t.Fatalf("GetSettings failed: %v", err)
	}
	if settings.Timezone != constants.DefaultTimezone || settings.DefaultSeriesDays != constants.DefaultSeriesDays {
		t.Errorf("unexpected default settings: %+v", settings)
	}

	settings.Timezone = "Europe/Berlin"
	settings.DefaultSeriesDays = 90
	if err := store.SaveSettings(settings); err != nil {
		t.Fatalf("SaveSettings failed: %v", err)
	}
	got, err := store.GetSettings()
	if err != nil {
		t.Fatalf("GetSettings failed: %v", err)
	}
	if got != settings {
		t.Errorf("expected %+v, got %+v", settings, got)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.db")
	if err := NewStore(path).Load(); err == nil {
		t.Fatal("expected Load to fail before init")
	}

	store, cleanup := setupTestSQLiteStore(t)
	defer cleanup()
	path = store.GetConfigPath()
	store.Close()

	reopened := NewStore(path)
	if err := reopened.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	defer reopened.Close()
	if _, err := reopened.GetSettings(); err != nil {
		t.Errorf("GetSettings after Load failed: %v", err)
	}
}

func TestAddAndGetHabit(t *testing.T) {
	store, cleanup := setupTestSQLiteStore(t)
	defer cleanup()

	habit := newHabit("Meditate", "2024-01-01")
	habit.IsBadHabit = true
	habit.Patterns = append(habit.Patterns, models.RecurrencePattern{
		ID:            uuid.New().String(),
		EffectiveFrom: calendar.MustParse("2024-02-01"),
		RepeatsPerDay: 2,
		Recurrence:    models.EveryNWeeksOn(2, time.Monday, time.Thursday),
		FollowUp:      true,
		CreatedAt:     time.Now(),
	})
	if err := store.AddHabit(habit); err != nil {
		t.Fatalf("AddHabit failed: %v", err)
	}

	got, err := store.GetHabit(habit.ID)
	if err != nil {
		t.Fatalf("GetHabit failed: %v", err)
	}
	if got.Name != "Meditate" || !got.IsBadHabit || !got.StartDate.Equal(habit.StartDate) {
		t.Errorf("unexpected habit: %+v", got)
	}
	if len(got.Patterns) != 2 {
		t.Fatalf("expected 2 patterns, got %d", len(got.Patterns))
	}

	weekly, ok := got.Patterns[1].Recurrence.(models.WeeklyGoal)
	if !ok {
		t.Fatalf("expected weekly goal, got %T", got.Patterns[1].Recurrence)
	}
	if weekly.Interval != 2 || !weekly.Days[0] || !weekly.Days[3] || weekly.Days[1] {
		t.Errorf("weekly goal not round-tripped: %+v", weekly)
	}
	if got.Patterns[1].RepeatsPerDay != 2 || !got.Patterns[1].FollowUp || got.Patterns[1].HabitID != habit.ID {
		t.Errorf("pattern fields not round-tripped: %+v", got.Patterns[1])
	}

	byName, err := store.GetHabitByName("Meditate")
	if err != nil {
		t.Fatalf("GetHabitByName failed: %v", err)
	}
	if byName.ID != habit.ID {
		t.Errorf("expected %s, got %s", habit.ID, byName.ID)
	}

	if _, err := store.GetHabit("nope"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAddHabit_RejectsInvalidPattern(t *testing.T) {
	store, cleanup := setupTestSQLiteStore(t)
	defer cleanup()

	habit := newHabit("Broken", "2024-01-01")
	habit.Patterns[0].Recurrence = models.DailyGoal{Days: make([]bool, 5)}

	err := store.AddHabit(habit)
	if !errors.Is(err, recurrence.ErrInvalidPattern) {
		t.Fatalf("expected ErrInvalidPattern, got %v", err)
	}
	if _, err := store.GetHabit(habit.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Error("invalid habit should not be stored")
	}
}

func TestAddHabit_DuplicateName(t *testing.T) {
	store, cleanup := setupTestSQLiteStore(t)
	defer cleanup()

	if err := store.AddHabit(newHabit("Read", "2024-01-01")); err != nil {
		t.Fatalf("AddHabit failed: %v", err)
	}
	if err := store.AddHabit(newHabit("Read", "2024-01-01")); err == nil {
		t.Error("expected duplicate name to fail")
	}
}

func TestAddPattern(t *testing.T) {
	store, cleanup := setupTestSQLiteStore(t)
	defer cleanup()

	habit := newHabit("Run", "2024-01-01")
	if err := store.AddHabit(habit); err != nil {
		t.Fatalf("AddHabit failed: %v", err)
	}

	monthly := models.RecurrencePattern{
		ID:            uuid.New().String(),
		HabitID:       habit.ID,
		EffectiveFrom: calendar.MustParse("2024-03-01"),
		RepeatsPerDay: 1,
		Recurrence:    models.MonthlyOn(1, 15, 31),
		CreatedAt:     time.Now(),
	}
	if err := store.AddPattern(monthly); err != nil {
		t.Fatalf("AddPattern failed: %v", err)
	}

	rotation := monthly
	rotation.ID = uuid.New().String()
	rotation.EffectiveFrom = calendar.MustParse("2024-02-01")
	rotation.Recurrence = models.DailyRotation([]bool{true, false, true, false, true, false, false})
	if err := store.AddPattern(rotation); err != nil {
		t.Fatalf("AddPattern failed: %v", err)
	}

	patterns, err := store.GetPatterns(habit.ID)
	if err != nil {
		t.Fatalf("GetPatterns failed: %v", err)
	}
	if len(patterns) != 3 {
		t.Fatalf("expected 3 patterns, got %d", len(patterns))
	}
	wantOrder := []string{"2024-01-01", "2024-02-01", "2024-03-01"}
	for i, want := range wantOrder {
		if patterns[i].EffectiveFrom.String() != want {
			t.Errorf("pattern %d: expected %s, got %s", i, want, patterns[i].EffectiveFrom)
		}
	}
	daily, ok := patterns[1].Recurrence.(models.DailyGoal)
	if !ok || len(daily.Days) != 7 || !daily.Days[2] {
		t.Errorf("rotation not round-tripped: %+v", patterns[1].Recurrence)
	}

	bad := monthly
	bad.ID = uuid.New().String()
	bad.Recurrence = models.MonthlyGoal{Interval: 0}
	if err := store.AddPattern(bad); !errors.Is(err, recurrence.ErrInvalidPattern) {
		t.Errorf("expected ErrInvalidPattern, got %v", err)
	}

	orphan := monthly
	orphan.ID = uuid.New().String()
	orphan.HabitID = "missing"
	if err := store.AddPattern(orphan); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown habit, got %v", err)
	}
}

func TestHabitLifecycle(t *testing.T) {
	store, cleanup := setupTestSQLiteStore(t)
	defer cleanup()

	a := newHabit("Journal", "2024-01-01")
	b := newHabit("Stretch", "2024-01-01")
	for _, h := range []models.Habit{a, b} {
		if err := store.AddHabit(h); err != nil {
			t.Fatalf("AddHabit failed: %v", err)
		}
	}

	if err := store.ArchiveHabit(a.ID); err != nil {
		t.Fatalf("ArchiveHabit failed: %v", err)
	}
	if err := store.ArchiveHabit(a.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound archiving twice, got %v", err)
	}

	active, err := store.GetAllHabits(false, false)
	if err != nil {
		t.Fatalf("GetAllHabits failed: %v", err)
	}
	if len(active) != 1 || active[0].ID != b.ID {
		t.Errorf("expected only %s active, got %+v", b.Name, active)
	}
	if len(active[0].Patterns) != 1 {
		t.Errorf("expected patterns loaded with habits, got %d", len(active[0].Patterns))
	}

	withArchived, _ := store.GetAllHabits(true, false)
	if len(withArchived) != 2 {
		t.Errorf("expected 2 habits including archived, got %d", len(withArchived))
	}

	if err := store.UnarchiveHabit(a.ID); err != nil {
		t.Fatalf("UnarchiveHabit failed: %v", err)
	}
	if err := store.DeleteHabit(b.ID); err != nil {
		t.Fatalf("DeleteHabit failed: %v", err)
	}
	if _, err := store.GetHabit(b.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("deleted habit should not be found, got %v", err)
	}

	all, _ := store.GetAllHabits(true, true)
	if len(all) != 2 {
		t.Errorf("expected 2 habits including deleted, got %d", len(all))
	}

	if err := store.RestoreHabit(b.ID); err != nil {
		t.Fatalf("RestoreHabit failed: %v", err)
	}
	if err := store.RestoreHabit(b.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound restoring twice, got %v", err)
	}

	b.Name = "Stretch daily"
	if err := store.UpdateHabit(b); err != nil {
		t.Fatalf("UpdateHabit failed: %v", err)
	}
	got, _ := store.GetHabit(b.ID)
	if got.Name != "Stretch daily" {
		t.Errorf("expected renamed habit, got %q", got.Name)
	}
}

func TestUpdateHabitAggregates_BestStreakNeverDecreases(t *testing.T) {
	store, cleanup := setupTestSQLiteStore(t)
	defer cleanup()

	habit := newHabit("Floss", "2024-01-01")
	if err := store.AddHabit(habit); err != nil {
		t.Fatalf("AddHabit failed: %v", err)
	}

	if err := store.UpdateHabitAggregates(habit.ID, 12, 9, 1); err != nil {
		t.Fatalf("UpdateHabitAggregates failed: %v", err)
	}
	if err := store.UpdateHabitAggregates(habit.ID, 4, 3, 2); err != nil {
		t.Fatalf("UpdateHabitAggregates failed: %v", err)
	}

	got, err := store.GetHabit(habit.ID)
	if err != nil {
		t.Fatalf("GetHabit failed: %v", err)
	}
	if got.BestStreakEver != 9 {
		t.Errorf("expected best streak to stay 9, got %d", got.BestStreakEver)
	}
	if got.TotalCompletions != 4 || got.StatsVersion != 2 {
		t.Errorf("expected totals 4 and version 2, got %d and %d", got.TotalCompletions, got.StatsVersion)
	}

	if err := store.UpdateHabitAggregates("missing", 1, 1, 1); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCompletions(t *testing.T) {
	store, cleanup := setupTestSQLiteStore(t)
	defer cleanup()

	habit := newHabit("Walk", "2024-01-01")
	other := newHabit("Swim", "2024-01-01")
	for _, h := range []models.Habit{habit, other} {
		if err := store.AddHabit(h); err != nil {
			t.Fatalf("AddHabit failed: %v", err)
		}
	}

	records := []models.Completion{
		newCompletion(habit.ID, "2024-01-03"),
		newCompletion(habit.ID, "2024-01-01"),
		newCompletion(habit.ID, "2024-01-02"),
		newCompletion(habit.ID, "2024-01-02"),
		newCompletion(other.ID, "2024-01-02"),
	}
	records[0].Note = "evening"
	for _, c := range records {
		if err := store.AddCompletion(c); err != nil {
			t.Fatalf("AddCompletion failed: %v", err)
		}
	}

	all, err := store.GetCompletionsForHabit(habit.ID, calendar.Day{}, calendar.Day{})
	if err != nil {
		t.Fatalf("GetCompletionsForHabit failed: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 completions, got %d", len(all))
	}
	if all[0].Day.String() != "2024-01-01" || all[3].Day.String() != "2024-01-03" || all[3].Note != "evening" {
		t.Errorf("expected completions ordered by day, got %+v", all)
	}

	ranged, _ := store.GetCompletionsForHabit(habit.ID, calendar.MustParse("2024-01-02"), calendar.MustParse("2024-01-02"))
	if len(ranged) != 2 {
		t.Errorf("expected 2 completions on 2024-01-02, got %d", len(ranged))
	}

	day, _ := store.GetCompletionsForDay(calendar.MustParse("2024-01-02"))
	if len(day) != 3 {
		t.Errorf("expected 3 completions across habits, got %d", len(day))
	}

	if err := store.DeleteCompletion(records[2].ID); err != nil {
		t.Fatalf("DeleteCompletion failed: %v", err)
	}
	if err := store.DeleteCompletion(records[2].ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound deleting twice, got %v", err)
	}
	ranged, _ = store.GetCompletionsForHabit(habit.ID, calendar.MustParse("2024-01-02"), calendar.MustParse("2024-01-02"))
	if len(ranged) != 1 {
		t.Errorf("expected 1 live completion after delete, got %d", len(ranged))
	}

	if err := store.RestoreCompletion(records[2].ID); err != nil {
		t.Fatalf("RestoreCompletion failed: %v", err)
	}
	ranged, _ = store.GetCompletionsForHabit(habit.ID, calendar.MustParse("2024-01-02"), calendar.MustParse("2024-01-02"))
	if len(ranged) != 2 {
		t.Errorf("expected 2 completions after restore, got %d", len(ranged))
	}

	orphan := newCompletion("missing", "2024-01-01")
	if err := store.AddCompletion(orphan); err == nil {
		t.Error("expected foreign key violation for unknown habit")
	}
}
