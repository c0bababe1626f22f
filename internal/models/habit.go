package models

import (
	"sort"
	"time"

	"github.com/julianstephens/cadence/internal/calendar"
)

// Habit represents a practice to build, or to avoid when IsBadHabit is set.
type Habit struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	IsBadHabit bool         `json:"is_bad_habit"`
	StartDate  calendar.Day `json:"start_date"`
	// Patterns is ordered by EffectiveFrom, oldest first.
	Patterns []RecurrencePattern `json:"patterns"`

	// Cached aggregates maintained by the stats service.
	BestStreakEver   int `json:"best_streak_ever"`
	TotalCompletions int `json:"total_completions"`
	StatsVersion     int `json:"stats_version"`

	CreatedAt  time.Time  `json:"created_at"`
	ArchivedAt *time.Time `json:"archived_at,omitempty"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
}

// SortPatterns orders the habit's patterns by EffectiveFrom, then CreatedAt,
// matching the order storage returns them in. The last pattern created for a
// day wins.
func (h *Habit) SortPatterns() {
	sort.SliceStable(h.Patterns, func(i, j int) bool {
		a, b := h.Patterns[i], h.Patterns[j]
		if !a.EffectiveFrom.Equal(b.EffectiveFrom) {
			return a.EffectiveFrom.Before(b.EffectiveFrom)
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}

func (h Habit) IsArchived() bool { return h.ArchivedAt != nil }
func (h Habit) IsDeleted() bool  { return h.DeletedAt != nil }

// Completion is one recorded repetition of a habit on a day. Several
// completions may exist for the same day when a pattern requires more than
// one repetition.
type Completion struct {
	ID        string       `json:"id"`
	HabitID   string       `json:"habit_id"`
	Day       calendar.Day `json:"day"`
	Completed bool         `json:"completed"`
	Note      string       `json:"note"`
	CreatedAt time.Time    `json:"created_at"`
	DeletedAt *time.Time   `json:"deleted_at,omitempty"`
}
