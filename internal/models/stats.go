package models

import "github.com/julianstephens/cadence/internal/calendar"

// StreakData is derived from a habit's schedule and completion log.
type StreakData struct {
	Current  int  `json:"current"`
	Longest  int  `json:"longest"`
	BestEver int  `json:"best_ever"`
	IsActive bool `json:"is_active"` // scheduled on the as-of day
}

// HabitScoreBreakdown explains a 0-100 habit score.
type HabitScoreBreakdown struct {
	TotalScore        int     `json:"total_score"`
	BaseScore         int     `json:"base_score"`
	StreakBonus       int     `json:"streak_bonus"`
	ExpectedCount     int     `json:"expected_count"`
	ActualCount       int     `json:"actual_count"`
	WindowDays        int     `json:"window_days"`
	CurrentStreakDays int     `json:"current_streak_days"`
	CompletionRatio   float64 `json:"completion_ratio"`
}

// DayRecord classifies a single day for charts.
type DayRecord struct {
	Day             calendar.Day `json:"day"`
	IsActive        bool         `json:"is_active"`
	IsCompleted     bool         `json:"is_completed"`
	Required        int          `json:"required"`
	Count           int          `json:"count"`
	CompletionRatio float64      `json:"completion_ratio"`
}

// HabitSnapshot bundles every derived view of one habit.
type HabitSnapshot struct {
	Habit       Habit               `json:"habit"`
	Today       calendar.Day        `json:"today"`
	ActiveToday bool                `json:"active_today"`
	Required    int                 `json:"required"`
	DoneToday   int                 `json:"done_today"`
	Streaks     StreakData          `json:"streaks"`
	Score       HabitScoreBreakdown `json:"score"`
	Consistency float64             `json:"consistency"`
}

// Summary aggregates all tracked habits.
type Summary struct {
	Today          calendar.Day    `json:"today"`
	Habits         []HabitSnapshot `json:"habits"`
	ActiveToday    int             `json:"active_today"`
	CompletedToday int             `json:"completed_today"`
	AverageScore   float64         `json:"average_score"`
}

// Settings represents per-store settings.
type Settings struct {
	Timezone          string `json:"timezone"`            // IANA timezone name, or "Local"
	DefaultSeriesDays int    `json:"default_series_days"` // window used by charts when none is given
}
