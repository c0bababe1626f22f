package recurrence

import (
	"sort"

	"github.com/julianstephens/cadence/internal/calendar"
	"github.com/julianstephens/cadence/internal/models"
)

// Evaluator decides whether a habit is scheduled on a day and how many
// repetitions that day requires. The zero value is ready to use.
//
// When Today is set, patterns whose EffectiveFrom is after Today are ignored
// even for future dates: a schedule change only counts once it has started.
type Evaluator struct {
	Today calendar.Day
}

// EffectivePattern returns the pattern governing h on day: the one with the
// latest EffectiveFrom that is not after day. Patterns must be sorted by
// EffectiveFrom (see models.Habit.SortPatterns).
func (e Evaluator) EffectivePattern(h models.Habit, day calendar.Day) (models.RecurrencePattern, bool) {
	if day.Before(h.StartDate) || len(h.Patterns) == 0 {
		return models.RecurrencePattern{}, false
	}

	limit := day
	if !e.Today.IsZero() && e.Today.Before(limit) {
		limit = e.Today
	}

	// First pattern starting after limit; the one before it is effective.
	i := sort.Search(len(h.Patterns), func(i int) bool {
		return h.Patterns[i].EffectiveFrom.After(limit)
	})
	if i == 0 {
		return models.RecurrencePattern{}, false
	}
	return h.Patterns[i-1], true
}

// IsActive reports whether h is scheduled on day.
func (e Evaluator) IsActive(h models.Habit, day calendar.Day) bool {
	p, ok := e.EffectivePattern(h, day)
	if !ok {
		return false
	}
	return PatternActive(p, day)
}

// RepeatsRequired returns the number of completions h requires on day, or 0
// when it is not scheduled.
func (e Evaluator) RepeatsRequired(h models.Habit, day calendar.Day) int {
	p, ok := e.EffectivePattern(h, day)
	if !ok || !PatternActive(p, day) {
		return 0
	}
	return repeatsPerDay(p)
}

// PatternActive evaluates a single pattern on day, ignoring every other
// pattern and the habit start date. Days before EffectiveFrom are inactive.
func PatternActive(p models.RecurrencePattern, day calendar.Day) bool {
	if day.Before(p.EffectiveFrom) {
		return false
	}

	switch g := p.Recurrence.(type) {
	case models.DailyGoal:
		if g.IsRotation() {
			cycle := len(g.Days)
			if cycle%7 != 0 {
				return false
			}
			alignedStart := p.EffectiveFrom.MondayOnOrBefore()
			return g.Days[day.DaysSince(alignedStart)%cycle]
		}
		return day.DaysSince(p.EffectiveFrom)%interval(g.Interval) == 0
	case models.WeeklyGoal:
		if day.WeeksSince(p.EffectiveFrom)%interval(g.Interval) != 0 {
			return false
		}
		return g.Days[day.WeekdayIndex()]
	case models.MonthlyGoal:
		if day.MonthsSince(p.EffectiveFrom)%interval(g.Interval) != 0 {
			return false
		}
		return g.Days[day.Day-1]
	default:
		return false
	}
}

// interval normalises a misconfigured interval to 1 so evaluation stays total.
func interval(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

func repeatsPerDay(p models.RecurrencePattern) int {
	if p.RepeatsPerDay < 1 {
		return 1
	}
	return p.RepeatsPerDay
}
