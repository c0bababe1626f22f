package system

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/julianstephens/cadence/internal/models"
)

func TestDoctorCmd_HealthyDB(t *testing.T) {
	ctx, out := setupTestContext(t)
	seedHabit(t, ctx.Store, "Read", -1, 0)

	if err := (&DoctorCmd{}).Run(ctx); err != nil {
		t.Fatalf("doctor command failed on healthy database: %v\n%s", err, out.String())
	}
	for _, want := range []string{"Database reachable: OK", "Schema version: OK", "Habit schedules: OK"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestDoctorCmd_MissingBackups(t *testing.T) {
	ctx, out := setupTestContext(t)

	if err := (&DoctorCmd{}).Run(ctx); err != nil {
		t.Errorf("doctor command should not fail on missing backups: %v", err)
	}
	if !strings.Contains(out.String(), "Backups present: WARNING") {
		t.Errorf("expected backup warning:\n%s", out.String())
	}
}

func TestDoctorCmd_StaleStats(t *testing.T) {
	ctx, out := setupTestContext(t)
	seedHabit(t, ctx.Store, "Read")

	if err := (&DoctorCmd{}).Run(ctx); err != nil {
		t.Fatalf("stale stats should only warn: %v", err)
	}
	if !strings.Contains(out.String(), "Cached stats: WARNING") {
		t.Errorf("expected stale stats warning:\n%s", out.String())
	}

	if _, err := ctx.Stats.Backfill(ctx.Context()); err != nil {
		t.Fatalf("Backfill: %v", err)
	}
	out.Reset()
	if err := (&DoctorCmd{}).Run(ctx); err != nil {
		t.Fatalf("doctor failed: %v", err)
	}
	if !strings.Contains(out.String(), "Cached stats: OK") {
		t.Errorf("expected stats OK after backfill:\n%s", out.String())
	}
}

func TestDoctorCmd_InvalidTimezone(t *testing.T) {
	ctx, out := setupTestContext(t)
	ctx.Config.Timezone = "Mars/Olympus_Mons"

	if err := (&DoctorCmd{}).Run(ctx); err == nil {
		t.Error("expected doctor to fail on an unknown timezone")
	}
	if !strings.Contains(out.String(), "Timezone: FAIL") {
		t.Errorf("expected timezone failure:\n%s", out.String())
	}
}

func TestDoctorCmd_UnreachableDB(t *testing.T) {
	store := setupTestStore(t, filepath.Join(t.TempDir(), "test.db"))
	ctx, out := newTestContext(store)
	store.Close()

	if err := (&DoctorCmd{}).Run(ctx); err == nil {
		t.Error("expected doctor to fail on a closed database")
	}
	if !strings.Contains(out.String(), "SKIPPED") {
		t.Errorf("database checks should be skipped:\n%s", out.String())
	}
}

func TestCheckCompletionDates(t *testing.T) {
	ctx, _ := setupTestContext(t)
	h := seedHabit(t, ctx.Store, "Read")
	err := ctx.Store.AddCompletion(models.Completion{
		ID:        "early",
		HabitID:   h.ID,
		Day:       h.StartDate.AddDays(-3),
		Completed: true,
	})
	if err != nil {
		t.Fatalf("AddCompletion: %v", err)
	}

	err = checkCompletionDates(ctx)
	if err == nil || !strings.Contains(err.Error(), "before its start date") {
		t.Errorf("checkCompletionDates() = %v, want start date warning", err)
	}
}
