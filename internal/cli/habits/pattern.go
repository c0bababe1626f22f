package habits

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/cadence/internal/calendar"
	"github.com/julianstephens/cadence/internal/cli"
	"github.com/julianstephens/cadence/internal/models"
	"github.com/julianstephens/cadence/internal/recurrence"
)

// PatternFlags describe a schedule on the command line. With no flags a
// pattern is active every day.
type PatternFlags struct {
	Every     int    `help:"Repeat every N days, or every N weeks/months with --weekdays/--month-days." default:"1"`
	Weekdays  string `help:"Comma-separated weekdays (mon,wed,fri or weekdays/weekends) for a weekly schedule."`
	MonthDays string `name:"month-days" help:"Comma-separated days of month (1,15) for a monthly schedule."`
	Rotation  string `help:"0/1 mask over a multi-week cycle starting Monday, e.g. 11111001111100 (length a multiple of 7)."`
	Repeats   int    `help:"Repetitions required on each active day." default:"1"`
	FollowUp  bool   `name:"follow-up" help:"Allow missed repetitions to carry over (recorded only)."`
}

// Recurrence converts the flags into a recurrence.
func (f PatternFlags) Recurrence() (models.Recurrence, error) {
	set := 0
	for _, s := range []string{f.Weekdays, f.MonthDays, f.Rotation} {
		if s != "" {
			set++
		}
	}
	if set > 1 {
		return nil, errors.New("--weekdays, --month-days and --rotation are mutually exclusive")
	}

	switch {
	case f.Weekdays != "":
		days, err := cli.ParseWeekdays(f.Weekdays)
		if err != nil {
			return nil, err
		}
		return models.EveryNWeeksOn(f.Every, days...), nil
	case f.MonthDays != "":
		days, err := cli.ParseMonthDays(f.MonthDays)
		if err != nil {
			return nil, err
		}
		return models.EveryNMonthsOn(f.Every, days...), nil
	case f.Rotation != "":
		if f.Every > 1 {
			return nil, errors.New("--every cannot be combined with --rotation")
		}
		mask, err := models.DecodeMask(f.Rotation)
		if err != nil {
			return nil, &recurrence.ConfigError{Field: "rotation", Reason: err.Error()}
		}
		return models.DailyRotation(mask), nil
	default:
		return models.EveryNDays(f.Every), nil
	}
}

// Pattern builds a validated pattern for habitID in force from from.
func (f PatternFlags) Pattern(habitID string, from calendar.Day) (models.RecurrencePattern, error) {
	r, err := f.Recurrence()
	if err != nil {
		return models.RecurrencePattern{}, err
	}
	p := models.RecurrencePattern{
		ID:            uuid.New().String(),
		HabitID:       habitID,
		EffectiveFrom: from,
		RepeatsPerDay: f.Repeats,
		FollowUp:      f.FollowUp,
		Recurrence:    r,
		CreatedAt:     time.Now(),
	}
	if err := recurrence.Validate(p); err != nil {
		return models.RecurrencePattern{}, err
	}
	return p, nil
}

type PatternCmd struct {
	Add  PatternAddCmd  `cmd:"" help:"Change a habit's schedule from a given day on."`
	List PatternListCmd `cmd:"" help:"Show a habit's schedule history."`
}

type PatternAddCmd struct {
	Habit string `arg:"" help:"Habit name or id."`
	From  string `help:"First day of the new schedule (YYYY-MM-DD, today, yesterday or -N)." default:"today"`
	PatternFlags `embed:""`
}

func (c *PatternAddCmd) Run(ctx *cli.Context) error {
	h, err := ctx.ResolveHabit(c.Habit)
	if err != nil {
		return err
	}
	from, err := ctx.ParseDay(c.From)
	if err != nil {
		return err
	}
	if from.Before(h.StartDate) {
		return fmt.Errorf("schedule cannot start before the habit's start date %s", h.StartDate)
	}

	p, err := c.Pattern(h.ID, from)
	if err != nil {
		return err
	}
	if err := ctx.Stats.AddPattern(ctx.Context(), p); err != nil {
		return fmt.Errorf("failed to add pattern: %w", err)
	}

	ctx.Printf("✓ %s: %s from %s\n", h.Name, describe(p), from)
	return nil
}

type PatternListCmd struct {
	Habit string `arg:"" help:"Habit name or id."`
}

func (c *PatternListCmd) Run(ctx *cli.Context) error {
	h, err := ctx.ResolveHabit(c.Habit)
	if err != nil {
		return err
	}
	patterns, err := ctx.Store.GetPatterns(h.ID)
	if err != nil {
		return err
	}
	if len(patterns) == 0 {
		ctx.Println("No schedule set.")
		return nil
	}

	today := ctx.Today()
	current, hasCurrent := recurrence.Evaluator{Today: today}.EffectivePattern(h, today)
	rows := make([][]string, 0, len(patterns))
	for _, p := range patterns {
		marker := ""
		if hasCurrent && p.ID == current.ID {
			marker = "current"
		} else if p.EffectiveFrom.After(today) {
			marker = "upcoming"
		}
		rows = append(rows, []string{p.EffectiveFrom.String(), describe(p), marker})
	}
	ctx.Println(cli.Table([]string{"From", "Schedule", ""}, rows))
	return nil
}

func describe(p models.RecurrencePattern) string {
	s := models.DescribeRecurrence(p.Recurrence)
	if p.RepeatsPerDay > 1 {
		s += fmt.Sprintf(", %dx per day", p.RepeatsPerDay)
	}
	if p.FollowUp {
		s += ", follow-up"
	}
	return s
}
