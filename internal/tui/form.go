package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/google/uuid"

	"github.com/julianstephens/cadence/internal/calendar"
	"github.com/julianstephens/cadence/internal/cli"
	"github.com/julianstephens/cadence/internal/models"
	"github.com/julianstephens/cadence/internal/recurrence"
)

const (
	scheduleDaily    = "daily"
	scheduleWeekdays = "weekdays"
	scheduleEvery    = "every"
)

type HabitFormModel struct {
	Name     string
	Bad      bool
	Schedule string
	Weekdays string
	Interval string
	Repeats  string
}

func newHabitFormModel() *HabitFormModel {
	return &HabitFormModel{Schedule: scheduleDaily, Interval: "1", Repeats: "1"}
}

func positive(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return nil
		}
		i, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("%s must be a number", name)
		}
		if i <= 0 {
			return fmt.Errorf("%s must be at least 1", name)
		}
		return nil
	}
}

// NewHabitForm creates the form for adding a habit.
func NewHabitForm(fm *HabitFormModel) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Habit Name").
				Value(&fm.Name).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("habit name cannot be empty")
					}
					return nil
				}),
			huh.NewConfirm().
				Title("Habit to avoid?").
				Value(&fm.Bad),
			huh.NewSelect[string]().
				Title("Schedule").
				Options(
					huh.NewOption("Every day", scheduleDaily),
					huh.NewOption("On weekdays", scheduleWeekdays),
					huh.NewOption("Every N days", scheduleEvery),
				).
				Value(&fm.Schedule),
			huh.NewInput().
				Title("Weekdays").
				Description("For 'On weekdays', e.g. mon,wed,fri").
				Value(&fm.Weekdays).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return nil
					}
					_, err := cli.ParseWeekdays(s)
					return err
				}),
			huh.NewInput().
				Title("Interval").
				Description("Repeat every N days, or every N weeks for weekdays").
				Value(&fm.Interval).
				Validate(positive("interval")),
			huh.NewInput().
				Title("Repetitions per day").
				Value(&fm.Repeats).
				Validate(positive("repetitions")),
		),
	).WithTheme(huh.ThemeDracula())
}

func atoiOr(s string, def int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return n
	}
	return def
}

// Habit builds a new habit starting on today from the form values.
func (fm *HabitFormModel) Habit(today calendar.Day) (models.Habit, error) {
	interval := atoiOr(fm.Interval, 1)

	var r models.Recurrence
	switch fm.Schedule {
	case scheduleWeekdays:
		days, err := cli.ParseWeekdays(fm.Weekdays)
		if err != nil {
			return models.Habit{}, err
		}
		r = models.EveryNWeeksOn(interval, days...)
	case scheduleEvery:
		r = models.EveryNDays(interval)
	default:
		r = models.EveryDay()
	}

	now := time.Now()
	h := models.Habit{
		ID:         uuid.New().String(),
		Name:       strings.TrimSpace(fm.Name),
		IsBadHabit: fm.Bad,
		StartDate:  today,
		CreatedAt:  now,
	}
	p := models.RecurrencePattern{
		ID:            uuid.New().String(),
		HabitID:       h.ID,
		EffectiveFrom: today,
		RepeatsPerDay: atoiOr(fm.Repeats, 1),
		Recurrence:    r,
		CreatedAt:     now,
	}
	if err := recurrence.Validate(p); err != nil {
		return models.Habit{}, err
	}
	h.Patterns = []models.RecurrencePattern{p}
	return h, nil
}
