package habits

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/cadence/internal/cli"
	"github.com/julianstephens/cadence/internal/models"
	"github.com/julianstephens/cadence/internal/recurrence"
	"github.com/julianstephens/cadence/internal/storage"
)

type HabitCmd struct {
	Add       HabitAddCmd       `cmd:"" help:"Add a new habit."`
	List      HabitListCmd      `cmd:"" help:"List habits."`
	Show      HabitShowCmd      `cmd:"" help:"Show a habit with its schedule and stats."`
	Rename    HabitRenameCmd    `cmd:"" help:"Rename a habit."`
	Archive   HabitArchiveCmd   `cmd:"" help:"Archive a habit."`
	Unarchive HabitUnarchiveCmd `cmd:"" help:"Unarchive a habit."`
	Delete    HabitDeleteCmd    `cmd:"" help:"Delete a habit (soft delete)."`
	Restore   HabitRestoreCmd   `cmd:"" help:"Restore a deleted habit."`
}

type HabitAddCmd struct {
	Name  string `arg:"" help:"Habit name."`
	Bad   bool   `help:"Track a habit to avoid: a day succeeds when it is not performed."`
	Start string `help:"Start date (YYYY-MM-DD, today, yesterday or -N)." default:"today"`
	PatternFlags `embed:""`
}

func (c *HabitAddCmd) Run(ctx *cli.Context) error {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return errors.New("habit name cannot be empty")
	}
	if _, err := ctx.Store.GetHabitByName(name); err == nil {
		return fmt.Errorf("habit with name %q already exists", name)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	start, err := ctx.ParseDay(c.Start)
	if err != nil {
		return err
	}

	habit := models.Habit{
		ID:         uuid.New().String(),
		Name:       name,
		IsBadHabit: c.Bad,
		StartDate:  start,
		CreatedAt:  time.Now(),
	}
	p, err := c.Pattern(habit.ID, start)
	if err != nil {
		return err
	}
	habit.Patterns = []models.RecurrencePattern{p}

	if err := ctx.Store.AddHabit(habit); err != nil {
		return err
	}

	kind := "habit"
	if c.Bad {
		kind = "habit to avoid"
	}
	ctx.Printf("✓ Added %s: %s (%s from %s)\n", kind, name, describe(p), start)
	return nil
}

type HabitListCmd struct {
	Archived bool `help:"Include archived habits."`
	Deleted  bool `help:"Include deleted habits."`
	JSON     bool `help:"Print as JSON."`
}

func (c *HabitListCmd) Run(ctx *cli.Context) error {
	habits, err := ctx.Store.GetAllHabits(c.Archived, c.Deleted)
	if err != nil {
		return err
	}
	if c.JSON {
		return ctx.PrintJSON(habits)
	}
	if len(habits) == 0 {
		ctx.Println("No habits found.")
		return nil
	}

	today := ctx.Today()
	eval := recurrence.Evaluator{Today: today}
	rows := make([][]string, 0, len(habits))
	for _, h := range habits {
		schedule := "-"
		if p, ok := eval.EffectivePattern(h, today); ok {
			schedule = describe(p)
		} else if len(h.Patterns) > 0 {
			schedule = "starts " + h.Patterns[0].EffectiveFrom.String()
		}
		rows = append(rows, []string{cli.ShortID(h.ID), h.Name, cli.HabitState(h), schedule, h.StartDate.String()})
	}
	ctx.Println(cli.Table([]string{"ID", "Name", "Type", "Schedule", "Since"}, rows))
	return nil
}

type HabitShowCmd struct {
	Habit string `arg:"" help:"Habit name or id."`
	JSON  bool   `help:"Print as JSON."`
}

func (c *HabitShowCmd) Run(ctx *cli.Context) error {
	h, err := ctx.ResolveHabit(c.Habit)
	if err != nil {
		return err
	}
	snap, err := ctx.Stats.Snapshot(ctx.Context(), h.ID)
	if err != nil {
		return err
	}
	if c.JSON {
		return ctx.PrintJSON(snap)
	}
	series, err := ctx.Stats.Series(ctx.Context(), h.ID, 0)
	if err != nil {
		return err
	}

	ctx.Println(cli.HeaderStyle.Render(h.Name))
	ctx.Printf("  ID:          %s\n", h.ID)
	ctx.Printf("  Type:        %s\n", cli.HabitState(h))
	ctx.Printf("  Started:     %s\n", h.StartDate)
	ctx.Printf("  Today:       %s\n", cli.Status(h, snap.Required, snap.DoneToday))
	ctx.Printf("  Streak:      %d days (longest %d, best ever %d)\n", snap.Streaks.Current, snap.Streaks.Longest, snap.Streaks.BestEver)
	ctx.Printf("  Score:       %d/100\n", snap.Score.TotalScore)
	ctx.Printf("  Consistency: %s over %d days\n", cli.Percent(snap.Consistency), len(series))
	ctx.Printf("  Completions: %d\n", snap.Habit.TotalCompletions)
	ctx.Printf("  History:     %s\n", cli.Heatmap(series))
	ctx.Println()
	ctx.Println("Schedule:")
	for _, p := range h.Patterns {
		ctx.Printf("  %s  %s\n", p.EffectiveFrom, describe(p))
	}
	return nil
}

type HabitRenameCmd struct {
	Habit string `arg:"" help:"Habit name or id."`
	Name  string `arg:"" help:"New name."`
}

func (c *HabitRenameCmd) Run(ctx *cli.Context) error {
	h, err := ctx.ResolveHabit(c.Habit)
	if err != nil {
		return err
	}
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return errors.New("habit name cannot be empty")
	}
	if other, err := ctx.Store.GetHabitByName(name); err == nil && other.ID != h.ID {
		return fmt.Errorf("habit with name %q already exists", name)
	}

	old := h.Name
	h.Name = name
	if err := ctx.Store.UpdateHabit(h); err != nil {
		return err
	}
	ctx.Stats.Invalidate(h.ID)
	ctx.Printf("✓ Renamed %s to %s\n", old, name)
	return nil
}

type HabitArchiveCmd struct {
	Habit string `arg:"" help:"Habit name or id."`
}

func (c *HabitArchiveCmd) Run(ctx *cli.Context) error {
	return changeState(ctx, c.Habit, "Archived", ctx.Store.ArchiveHabit)
}

type HabitUnarchiveCmd struct {
	Habit string `arg:"" help:"Habit name or id."`
}

func (c *HabitUnarchiveCmd) Run(ctx *cli.Context) error {
	return changeState(ctx, c.Habit, "Unarchived", ctx.Store.UnarchiveHabit)
}

type HabitDeleteCmd struct {
	Habit string `arg:"" help:"Habit name or id."`
}

func (c *HabitDeleteCmd) Run(ctx *cli.Context) error {
	if err := changeState(ctx, c.Habit, "Deleted", ctx.Store.DeleteHabit); err != nil {
		return err
	}
	ctx.Println("  Use 'cadence habit restore' to undo.")
	return nil
}

type HabitRestoreCmd struct {
	Habit string `arg:"" help:"Name or id of the deleted habit."`
}

func (c *HabitRestoreCmd) Run(ctx *cli.Context) error {
	h, err := findDeleted(ctx, c.Habit)
	if err != nil {
		return err
	}
	if err := ctx.Store.RestoreHabit(h.ID); err != nil {
		return err
	}
	ctx.Stats.Invalidate(h.ID)
	ctx.Printf("✓ Restored habit: %s\n", h.Name)
	return nil
}

func changeState(ctx *cli.Context, ref, verb string, fn func(id string) error) error {
	h, err := ctx.ResolveHabit(ref)
	if err != nil {
		return err
	}
	if err := fn(h.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("habit %q cannot be %s in its current state: %w", h.Name, strings.ToLower(verb), err)
		}
		return err
	}
	ctx.Stats.Invalidate(h.ID)
	ctx.Printf("✓ %s habit: %s\n", verb, h.Name)
	return nil
}

// findDeleted looks a soft-deleted habit up by name or id prefix. The most
// recently deleted habit wins when several share a name.
func findDeleted(ctx *cli.Context, ref string) (models.Habit, error) {
	habits, err := ctx.Store.GetAllHabits(true, true)
	if err != nil {
		return models.Habit{}, err
	}

	var found *models.Habit
	for i := range habits {
		h := habits[i]
		if !h.IsDeleted() || (h.Name != ref && !strings.HasPrefix(h.ID, ref)) {
			continue
		}
		if found == nil || h.DeletedAt.After(*found.DeletedAt) {
			found = &habits[i]
		}
	}
	if found == nil {
		return models.Habit{}, fmt.Errorf("deleted habit %q: %w", ref, storage.ErrNotFound)
	}
	return *found, nil
}
