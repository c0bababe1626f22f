package streak

import (
	"github.com/julianstephens/cadence/internal/calendar"
	"github.com/julianstephens/cadence/internal/completion"
	"github.com/julianstephens/cadence/internal/models"
	"github.com/julianstephens/cadence/internal/recurrence"
)

// Calculator derives streaks from a habit's schedule and completion log.
//
// A streak is a run of consecutive active days that were each successful.
// Days the habit is not scheduled are skipped without breaking the run. For a
// habit to build, today being active but not yet complete does not break the
// streak either: the day is still in progress.
//
// When Evaluator.Today is left zero, every call reads the clock and ignores
// patterns that have not started by that day.
type Calculator struct {
	Evaluator recurrence.Evaluator
	Today     calendar.Clock
}

func New(today calendar.Clock) *Calculator {
	return &Calculator{Today: today}
}

func (c *Calculator) evaluator() recurrence.Evaluator {
	e := c.Evaluator
	if e.Today.IsZero() && c.Today != nil {
		e.Today = c.Today()
	}
	return e
}

// Current returns the streak ending at asOf.
func (c *Calculator) Current(h models.Habit, log completion.Log, asOf calendar.Day) int {
	first, ok := firstDay(h)
	if !ok || asOf.Before(first) {
		return 0
	}

	eval := c.evaluator()
	streak := 0
	for d := asOf; !d.Before(first); d = d.AddDays(-1) {
		required := eval.RepeatsRequired(h, d)
		if required == 0 {
			continue
		}
		if completion.Success(h, required, log.Count(d)) {
			streak++
			continue
		}
		if d.Equal(asOf) && !h.IsBadHabit {
			continue
		}
		break
	}
	return streak
}

// Longest returns the longest streak in the habit's history up to today.
func (c *Calculator) Longest(h models.Habit, log completion.Log) int {
	first, ok := firstDay(h)
	if !ok {
		return 0
	}
	today := c.Today()
	eval := c.evaluator()

	run, longest := 0, 0
	for d := first; !d.After(today); d = d.AddDays(1) {
		required := eval.RepeatsRequired(h, d)
		if required == 0 {
			continue
		}
		if completion.Success(h, required, log.Count(d)) {
			run++
			if run > longest {
				longest = run
			}
			continue
		}
		if d.Equal(today) && !h.IsBadHabit {
			continue
		}
		run = 0
	}
	return longest
}

// BestEver returns the larger of the computed longest streak and the
// high-water mark persisted on the habit.
func (c *Calculator) BestEver(h models.Habit, log completion.Log) int {
	return max(c.Longest(h, log), h.BestStreakEver)
}

// Compute returns every streak figure for h as of asOf.
func (c *Calculator) Compute(h models.Habit, log completion.Log, asOf calendar.Day) models.StreakData {
	longest := c.Longest(h, log)
	current := c.Current(h, log, asOf)
	return models.StreakData{
		Current:  current,
		Longest:  longest,
		BestEver: max(longest, h.BestStreakEver),
		IsActive: c.evaluator().IsActive(h, asOf),
	}
}

// firstDay is the first day on which h can possibly be active.
func firstDay(h models.Habit) (calendar.Day, bool) {
	if len(h.Patterns) == 0 {
		return calendar.Day{}, false
	}
	return calendar.Max(h.StartDate, h.Patterns[0].EffectiveFrom), true
}
