package storage

import (
	"errors"

	"github.com/julianstephens/cadence/internal/calendar"
	"github.com/julianstephens/cadence/internal/models"
)

// ErrNotFound is returned when a habit, pattern or completion does not exist
// or is in the wrong state for the requested change.
var ErrNotFound = errors.New("not found")

type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	// Settings
	GetSettings() (models.Settings, error)
	SaveSettings(models.Settings) error

	// Habits
	//
	// AddHabit stores the habit together with its patterns. Habits are
	// returned with their patterns sorted by EffectiveFrom.
	AddHabit(models.Habit) error
	GetHabit(id string) (models.Habit, error)
	GetHabitByName(name string) (models.Habit, error)
	GetAllHabits(includeArchived, includeDeleted bool) ([]models.Habit, error)
	UpdateHabit(models.Habit) error
	// UpdateHabitAggregates stores the cached totals of a habit. The best
	// streak is only ever raised: a smaller value leaves the stored one alone.
	UpdateHabitAggregates(id string, totalCompletions, bestStreakEver, statsVersion int) error
	ArchiveHabit(id string) error
	UnarchiveHabit(id string) error
	DeleteHabit(id string) error
	RestoreHabit(id string) error

	// Recurrence patterns
	AddPattern(models.RecurrencePattern) error
	GetPatterns(habitID string) ([]models.RecurrencePattern, error)

	// Completions
	AddCompletion(models.Completion) error
	// GetCompletionsForHabit returns live completions in [startDay, endDay].
	// A zero bound leaves that side of the range open.
	GetCompletionsForHabit(habitID string, startDay, endDay calendar.Day) ([]models.Completion, error)
	GetCompletionsForDay(day calendar.Day) ([]models.Completion, error)
	DeleteCompletion(id string) error
	RestoreCompletion(id string) error

	// Utils
	GetConfigPath() string
}
