package consistency

import (
	"github.com/julianstephens/cadence/internal/calendar"
	"github.com/julianstephens/cadence/internal/completion"
	"github.com/julianstephens/cadence/internal/constants"
	"github.com/julianstephens/cadence/internal/models"
	"github.com/julianstephens/cadence/internal/recurrence"
)

// Windows are the preset chart windows in days.
var Windows = constants.SeriesWindows

// Aggregator classifies days for charts.
type Aggregator struct {
	Evaluator recurrence.Evaluator
}

// DailySeries returns one record per calendar day in the days-long window
// ending at endingAt, oldest first. Windows larger than MaxSeriesDays are
// truncated to the most recent MaxSeriesDays.
func (a Aggregator) DailySeries(h models.Habit, log completion.Log, days int, endingAt calendar.Day) []models.DayRecord {
	if days < 1 {
		return nil
	}
	days = min(days, constants.MaxSeriesDays)

	series := make([]models.DayRecord, 0, days)
	for _, d := range calendar.Range(endingAt.AddDays(-(days - 1)), endingAt) {
		series = append(series, a.record(h, log, d))
	}
	return series
}

func (a Aggregator) record(h models.Habit, log completion.Log, d calendar.Day) models.DayRecord {
	rec := models.DayRecord{Day: d, Count: log.Count(d)}

	required := a.Evaluator.RepeatsRequired(h, d)
	if required == 0 {
		return rec
	}

	rec.IsActive = true
	rec.Required = required
	rec.IsCompleted = completion.Success(h, required, rec.Count)

	switch {
	case h.IsBadHabit && rec.IsCompleted:
		rec.CompletionRatio = 1
	case h.IsBadHabit:
		rec.CompletionRatio = 0
	default:
		rec.CompletionRatio = float64(min(rec.Count, required)) / float64(required)
	}
	return rec
}

// Overall is the share of active days that were completed, in [0, 1].
// A series without active days has an overall consistency of 0.
func Overall(series []models.DayRecord) float64 {
	active, completed := 0, 0
	for _, r := range series {
		if !r.IsActive {
			continue
		}
		active++
		if r.IsCompleted {
			completed++
		}
	}
	if active == 0 {
		return 0
	}
	return float64(completed) / float64(active)
}

// Week is one Monday-aligned row of a calendar heatmap. Days outside the
// series are nil.
type Week struct {
	Start calendar.Day
	Days  [7]*models.DayRecord
}

// WeekGrid groups an oldest-first series into Monday-aligned weeks.
func WeekGrid(series []models.DayRecord) []Week {
	var weeks []Week
	for i := range series {
		rec := &series[i]
		start := rec.Day.MondayOnOrBefore()
		if len(weeks) == 0 || !weeks[len(weeks)-1].Start.Equal(start) {
			weeks = append(weeks, Week{Start: start})
		}
		weeks[len(weeks)-1].Days[rec.Day.WeekdayIndex()] = rec
	}
	return weeks
}
