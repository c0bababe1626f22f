package system

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/cadence/internal/calendar"
	"github.com/julianstephens/cadence/internal/cli"
	"github.com/julianstephens/cadence/internal/config"
	"github.com/julianstephens/cadence/internal/models"
	"github.com/julianstephens/cadence/internal/stats"
	"github.com/julianstephens/cadence/internal/storage"
	"github.com/julianstephens/cadence/internal/storage/sqlite"
)

var testToday = calendar.MustParse("2024-03-10")

func newTestContext(store storage.Provider) (*cli.Context, *bytes.Buffer) {
	out := &bytes.Buffer{}
	clock := calendar.Fixed(testToday)
	return &cli.Context{
		Ctx:    context.Background(),
		Store:  store,
		Stats:  stats.New(store, clock),
		Clock:  clock,
		Config: config.Default(),
		Out:    out,
		In:     strings.NewReader(""),
	}, out
}

func setupTestStore(t *testing.T, path string) *sqlite.Store {
	t.Helper()
	store := sqlite.NewStore(path)
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func setupTestContext(t *testing.T) (*cli.Context, *bytes.Buffer) {
	t.Helper()
	return newTestContext(setupTestStore(t, filepath.Join(t.TempDir(), "test.db")))
}

func seedHabit(t *testing.T, store storage.Provider, name string, offsets ...int) models.Habit {
	t.Helper()
	start := testToday.AddDays(-7)
	h := models.Habit{
		ID:        uuid.New().String(),
		Name:      name,
		StartDate: start,
		CreatedAt: time.Now(),
	}
	h.Patterns = []models.RecurrencePattern{{
		ID:            uuid.New().String(),
		HabitID:       h.ID,
		EffectiveFrom: start,
		RepeatsPerDay: 1,
		Recurrence:    models.EveryDay(),
		CreatedAt:     time.Now(),
	}}
	if err := store.AddHabit(h); err != nil {
		t.Fatalf("failed to add habit: %v", err)
	}
	for _, off := range offsets {
		err := store.AddCompletion(models.Completion{
			ID:        uuid.New().String(),
			HabitID:   h.ID,
			Day:       testToday.AddDays(off),
			Completed: true,
			CreatedAt: time.Now(),
		})
		if err != nil {
			t.Fatalf("failed to add completion: %v", err)
		}
	}
	return h
}
