package consistency

import (
	"testing"
	"time"

	"github.com/julianstephens/cadence/internal/calendar"
	"github.com/julianstephens/cadence/internal/completion"
	"github.com/julianstephens/cadence/internal/constants"
	"github.com/julianstephens/cadence/internal/models"
)

func weeklyHabit(start string) models.Habit {
	d := calendar.MustParse(start)
	return models.Habit{
		ID:        "habit-1",
		Name:      "Run",
		StartDate: d,
		Patterns: []models.RecurrencePattern{{
			ID:            "pattern-1",
			EffectiveFrom: d,
			RepeatsPerDay: 2,
			Recurrence:    models.WeeklyOn(time.Monday, time.Wednesday, time.Friday),
		}},
	}
}

func TestDailySeries_OldestFirst(t *testing.T) {
	h := weeklyHabit("2024-01-01")
	end := calendar.MustParse("2024-01-14")
	log := completion.NewIndex([]models.Completion{
		{Day: calendar.MustParse("2024-01-01"), Completed: true},
		{Day: calendar.MustParse("2024-01-01"), Completed: true},
		{Day: calendar.MustParse("2024-01-03"), Completed: true},
	})

	series := Aggregator{}.DailySeries(h, log, 14, end)

	if len(series) != 14 {
		t.Fatalf("expected 14 records, got %d", len(series))
	}
	if !series[0].Day.Equal(calendar.MustParse("2024-01-01")) || !series[13].Day.Equal(end) {
		t.Errorf("expected series from 2024-01-01 to %s, got %s to %s", end, series[0].Day, series[13].Day)
	}

	mon, tue, wed := series[0], series[1], series[2]
	if !mon.IsActive || !mon.IsCompleted || mon.CompletionRatio != 1 || mon.Required != 2 {
		t.Errorf("unexpected Monday record: %+v", mon)
	}
	if tue.IsActive || tue.IsCompleted {
		t.Errorf("expected inactive Tuesday, got %+v", tue)
	}
	if !wed.IsActive || wed.IsCompleted || wed.CompletionRatio != 0.5 {
		t.Errorf("expected half-complete Wednesday, got %+v", wed)
	}

	active := 0
	for _, r := range series {
		if r.IsActive {
			active++
		}
	}
	if active != 6 {
		t.Errorf("expected 6 active days in two weeks, got %d", active)
	}
}

func TestDailySeries_Bounds(t *testing.T) {
	h := weeklyHabit("2024-01-01")
	end := calendar.MustParse("2024-01-14")

	if got := (Aggregator{}).DailySeries(h, completion.Empty, 0, end); len(got) != 0 {
		t.Errorf("expected empty series for 0 days, got %d", len(got))
	}
	if got := (Aggregator{}).DailySeries(h, completion.Empty, constants.MaxSeriesDays+50, end); len(got) != constants.MaxSeriesDays {
		t.Errorf("expected series capped at %d, got %d", constants.MaxSeriesDays, len(got))
	}
}

func TestDailySeries_BadHabit(t *testing.T) {
	h := weeklyHabit("2024-01-01")
	h.IsBadHabit = true
	log := completion.NewIndex([]models.Completion{
		{Day: calendar.MustParse("2024-01-03"), Completed: true},
	})

	series := Aggregator{}.DailySeries(h, log, 7, calendar.MustParse("2024-01-07"))

	if !series[0].IsCompleted || series[0].CompletionRatio != 1 {
		t.Errorf("expected avoided Monday to count as completed, got %+v", series[0])
	}
	if series[2].IsCompleted || series[2].CompletionRatio != 0 {
		t.Errorf("expected Wednesday slip to count as missed, got %+v", series[2])
	}
	if got := Overall(series); got != 2.0/3.0 {
		t.Errorf("expected overall 2/3, got %f", got)
	}
}

func TestOverall(t *testing.T) {
	if got := Overall(nil); got != 0 {
		t.Errorf("expected 0 for empty series, got %f", got)
	}

	series := []models.DayRecord{
		{IsActive: true, IsCompleted: true},
		{IsActive: true},
		{IsActive: false, IsCompleted: false},
		{IsActive: true, IsCompleted: true},
		{IsActive: true, IsCompleted: true},
	}
	if got := Overall(series); got != 0.75 {
		t.Errorf("expected 0.75, got %f", got)
	}

	if got := Overall([]models.DayRecord{{}, {}}); got != 0 {
		t.Errorf("expected 0 without active days, got %f", got)
	}
}

func TestWeekGrid(t *testing.T) {
	h := weeklyHabit("2024-01-01")
	// Wednesday 2024-01-03 through Tuesday 2024-01-16 spans three weeks.
	series := Aggregator{}.DailySeries(h, completion.Empty, 14, calendar.MustParse("2024-01-16"))

	grid := WeekGrid(series)
	if len(grid) != 3 {
		t.Fatalf("expected 3 weeks, got %d", len(grid))
	}
	if !grid[0].Start.Equal(calendar.MustParse("2024-01-01")) {
		t.Errorf("expected first week to start 2024-01-01, got %s", grid[0].Start)
	}
	if grid[0].Days[0] != nil || grid[0].Days[1] != nil {
		t.Error("expected days before the series to be empty")
	}
	if grid[0].Days[2] == nil || !grid[0].Days[2].Day.Equal(calendar.MustParse("2024-01-03")) {
		t.Error("expected Wednesday in first week")
	}
	if grid[2].Days[1] == nil || grid[2].Days[2] != nil {
		t.Error("expected last week to end on Tuesday")
	}
	for _, w := range grid[1:2] {
		for i, d := range w.Days {
			if d == nil {
				t.Errorf("expected full middle week, missing index %d", i)
			}
		}
	}
}

func TestWindows(t *testing.T) {
	want := []int{14, 30, 90, 180, 365}
	if len(Windows) != len(want) {
		t.Fatalf("expected %d windows, got %d", len(want), len(Windows))
	}
	for i := range want {
		if Windows[i] != want[i] {
			t.Errorf("window %d: expected %d, got %d", i, want[i], Windows[i])
		}
	}
}
