package score

import (
	"math"

	"github.com/julianstephens/cadence/internal/calendar"
	"github.com/julianstephens/cadence/internal/completion"
	"github.com/julianstephens/cadence/internal/constants"
	"github.com/julianstephens/cadence/internal/models"
	"github.com/julianstephens/cadence/internal/recurrence"
	"github.com/julianstephens/cadence/internal/streak"
)

// Calculator produces a 0-100 score over a trailing window. The score is a
// completion-ratio base (up to 80) plus a current-streak bonus (up to 20).
type Calculator struct {
	Evaluator  recurrence.Evaluator
	Streaks    *streak.Calculator
	WindowDays int
}

// New returns a Calculator using the standard 30-day window.
func New(today calendar.Clock) *Calculator {
	return &Calculator{
		Streaks:    streak.New(today),
		WindowDays: constants.ScoreWindowDays,
	}
}

// Score returns the total score of h as of today.
func (c *Calculator) Score(h models.Habit, log completion.Log, today calendar.Day) int {
	return c.Breakdown(h, log, today).TotalScore
}

// Breakdown returns the score of h as of today together with the counts it
// was derived from.
func (c *Calculator) Breakdown(h models.Habit, log completion.Log, today calendar.Day) models.HabitScoreBreakdown {
	window := c.window()
	b := models.HabitScoreBreakdown{WindowDays: window}
	eval := c.Evaluator
	if eval.Today.IsZero() {
		eval.Today = today
	}

	for _, d := range calendar.Range(today.AddDays(-(window - 1)), today) {
		required := eval.RepeatsRequired(h, d)
		if required == 0 {
			continue
		}
		b.ExpectedCount += required
		b.ActualCount += credited(h, required, log.Count(d))
	}

	// A habit with nothing scheduled in the window has not started scoring.
	if b.ExpectedCount == 0 {
		return b
	}

	b.CurrentStreakDays = c.Streaks.Current(h, log, today)
	b.CompletionRatio = float64(b.ActualCount) / float64(b.ExpectedCount)
	b.BaseScore = int(math.Round(b.CompletionRatio * constants.ScoreBaseMax))

	streakRatio := math.Min(1, float64(b.CurrentStreakDays)/float64(window))
	b.StreakBonus = int(math.Round(streakRatio * constants.ScoreStreakBonus))

	b.TotalScore = clamp(b.BaseScore+b.StreakBonus, 0, constants.ScoreMax)
	return b
}

func (c *Calculator) window() int {
	if c.WindowDays < 1 {
		return constants.ScoreWindowDays
	}
	return c.WindowDays
}

// credited is the number of repetitions a day contributes toward the
// expected count. Over-completion is capped. A habit to avoid earns the full
// day only when it was not performed.
func credited(h models.Habit, required, count int) int {
	if h.IsBadHabit {
		if count == 0 {
			return required
		}
		return 0
	}
	return min(count, required)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
