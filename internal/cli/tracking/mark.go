package tracking

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

type MarkCmd struct {
	Habit string `arg:"" help:"Habit name or id."`
	Date  string `help:"Day to mark (YYYY-MM-DD, today, yesterday or -N)." default:"today"`
	Count int    `help:"Number of repetitions to record." default:"1"`
	Note  string `help:"Optional note for this entry."`
}

func (c *MarkCmd) Run(ctx *cli.Context) error {
	h, day, err := resolve(ctx, c.Habit, c.Date)
	if err != nil {
		return err
	}
	if c.Count < 1 {
		return fmt.Errorf("count must be at least 1, got %d", c.Count)
	}

	for range c.Count {
		err := ctx.Stats.RecordCompletion(ctx.Context(), models.Completion{
			ID:        uuid.New().String(),
			HabitID:   h.ID,
			Day:       day,
			Completed: true,
			Note:      c.Note,
			CreatedAt: time.Now(),
		})
		if err != nil {
			return fmt.Errorf("failed to record completion: %w", err)
		}
	}

	done, required, err := progress(ctx, h, day)
	if err != nil {
		return err
	}
	switch {
	case h.IsBadHabit:
		ctx.Printf("Recorded %d slip(s) of %q on %s\n", done, h.Name, day)
	case required == 0:
		ctx.Printf("✓ Marked %q on %s (not scheduled that day)\n", h.Name, day)
	default:
		ctx.Printf("✓ Marked %q on %s (%d/%d)\n", h.Name, day, done, required)
	}
	return nil
}

type UnmarkCmd struct {
	Habit string `arg:"" help:"Habit name or id."`
	Date  string `help:"Day to unmark (YYYY-MM-DD, today, yesterday or -N)." default:"today"`
	All   bool   `help:"Remove every completion of the day instead of the latest one."`
}

func (c *UnmarkCmd) Run(ctx *cli.Context) error {
	h, day, err := resolve(ctx, c.Habit, c.Date)
	if err != nil {
		return err
	}

	records, err := ctx.Store.GetCompletionsForHabit(h.ID, day, day)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("%q has no completion on %s", h.Name, day)
	}
	if !c.All {
		records = records[len(records)-1:]
	}

	for _, r := range records {
		if err := ctx.Stats.RemoveCompletion(ctx.Context(), r); err != nil {
			return fmt.Errorf("failed to remove completion: %w", err)
		}
	}
	ctx.Printf("Removed %d completion(s) of %q on %s\n", len(records), h.Name, day)
	return nil
}

func resolve(ctx *cli.Context, ref, date string) (models.Habit, calendar.Day, error) {
	h, err := ctx.ResolveHabit(ref)
	if err != nil {
		return models.Habit{}, calendar.Day{}, err
	}
	day, err := ctx.ParseDay(date)
	if err != nil {
		return models.Habit{}, calendar.Day{}, err
	}
	if day.After(ctx.Today()) {
		return models.Habit{}, calendar.Day{}, errors.New("cannot track a day in the future")
	}
	if day.Before(h.StartDate) {
		return models.Habit{}, calendar.Day{}, fmt.Errorf("%s is before %q started on %s", day, h.Name, h.StartDate)
	}
	return h, day, nil
}

func progress(ctx *cli.Context, h models.Habit, day calendar.Day) (done, required int, err error) {
	records, err := ctx.Store.GetCompletionsForHabit(h.ID, day, day)
	if err != nil {
		return 0, 0, err
	}
	for _, r := range records {
		if r.Completed {
			done++
		}
	}
	required = recurrence.Evaluator{Today: ctx.Today()}.RepeatsRequired(h, day)
	return done, required, nil
}
