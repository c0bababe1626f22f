package insights

import (
	"fmt"
	"strings"

	"github.com/julianstephens/cadence/internal/cli"
	"github.com/julianstephens/cadence/internal/consistency"
	"github.com/julianstephens/cadence/internal/constants"
	"github.com/julianstephens/cadence/internal/models"
)

type StreakCmd struct {
	Habit string `arg:"" help:"Habit name or id."`
	JSON  bool   `help:"Print as JSON."`
}

func (c *StreakCmd) Run(ctx *cli.Context) error {
	h, err := ctx.ResolveHabit(c.Habit)
	if err != nil {
		return err
	}
	data, err := ctx.Stats.Streaks(ctx.Context(), h.ID)
	if err != nil {
		return err
	}
	if c.JSON {
		return ctx.PrintJSON(data)
	}

	ctx.Println(cli.HeaderStyle.Render(h.Name))
	ctx.Printf("  Current:   %d\n", data.Current)
	ctx.Printf("  Longest:   %d\n", data.Longest)
	ctx.Printf("  Best ever: %d\n", data.BestEver)
	if !data.IsActive {
		ctx.Println(cli.MutedStyle.Render("  Not scheduled today."))
	}
	return nil
}

type ScoreCmd struct {
	Habit string `arg:"" help:"Habit name or id."`
	JSON  bool   `help:"Print as JSON."`
}

func (c *ScoreCmd) Run(ctx *cli.Context) error {
	h, err := ctx.ResolveHabit(c.Habit)
	if err != nil {
		return err
	}
	b, err := ctx.Stats.Score(ctx.Context(), h.ID)
	if err != nil {
		return err
	}
	if c.JSON {
		return ctx.PrintJSON(b)
	}

	ctx.Println(cli.HeaderStyle.Render(fmt.Sprintf("%s: %d/%d", h.Name, b.TotalScore, constants.ScoreMax)))
	ctx.Printf("  Completion:   %d of %d expected over %d days (%s)\n", b.ActualCount, b.ExpectedCount, b.WindowDays, cli.Percent(b.CompletionRatio))
	ctx.Printf("  Base score:   %d/%d\n", b.BaseScore, constants.ScoreBaseMax)
	ctx.Printf("  Streak bonus: %d/%d (%d day streak)\n", b.StreakBonus, constants.ScoreStreakBonus, b.CurrentStreakDays)
	if b.ExpectedCount == 0 {
		ctx.Println(cli.MutedStyle.Render("  Nothing was scheduled in the window."))
	}
	return nil
}

type SeriesCmd struct {
	Habit string `arg:"" help:"Habit name or id."`
	Days  int    `help:"Number of days to show, ending today. Defaults to the configured window." default:"0"`
	JSON  bool   `help:"Print as JSON."`
}

func (c *SeriesCmd) Run(ctx *cli.Context) error {
	if c.Days < 0 || c.Days > constants.MaxSeriesDays {
		return fmt.Errorf("days must be between 1 and %d", constants.MaxSeriesDays)
	}
	h, err := ctx.ResolveHabit(c.Habit)
	if err != nil {
		return err
	}
	series, err := ctx.Stats.Series(ctx.Context(), h.ID, c.Days)
	if err != nil {
		return err
	}
	if c.JSON {
		return ctx.PrintJSON(series)
	}

	ctx.Println(cli.HeaderStyle.Render(fmt.Sprintf("%s, last %d days", h.Name, len(series))))
	ctx.Println("             Mo Tu We Th Fr Sa Su")
	for _, week := range consistency.WeekGrid(series) {
		cells := make([]string, 0, 7)
		for _, rec := range week.Days {
			if rec == nil {
				cells = append(cells, " ")
				continue
			}
			cells = append(cells, cli.HeatCell(*rec))
		}
		ctx.Printf("  %s  %s\n", week.Start, strings.Join(cells, "  "))
	}
	ctx.Printf("Consistency: %s  (%s done  %s partial  %s missed  %s not scheduled)\n",
		cli.Percent(consistency.Overall(series)),
		cli.HeatCell(models.DayRecord{IsActive: true, IsCompleted: true}),
		cli.HeatCell(models.DayRecord{IsActive: true, CompletionRatio: 0.5}),
		cli.HeatCell(models.DayRecord{IsActive: true}),
		cli.HeatCell(models.DayRecord{}))
	return nil
}

type SummaryCmd struct {
	Refresh bool `help:"Recompute instead of reusing a recent summary."`
	JSON    bool `help:"Print as JSON."`
}

func (c *SummaryCmd) Run(ctx *cli.Context) error {
	summary, err := ctx.Stats.Summary(ctx.Context(), c.Refresh)
	if err != nil {
		return err
	}
	if c.JSON {
		return ctx.PrintJSON(summary)
	}
	if len(summary.Habits) == 0 {
		ctx.Println("No habits found.")
		return nil
	}

	rows := make([][]string, 0, len(summary.Habits))
	for _, snap := range summary.Habits {
		rows = append(rows, []string{
			snap.Habit.Name,
			cli.Status(snap.Habit, snap.Required, snap.DoneToday),
			fmt.Sprintf("%d", snap.Streaks.Current),
			fmt.Sprintf("%d", snap.Streaks.BestEver),
			fmt.Sprintf("%d", snap.Score.TotalScore),
			cli.Percent(snap.Consistency),
		})
	}
	ctx.Println(cli.Table([]string{"Habit", "Today", "Streak", "Best", "Score", "Consistency"}, rows))
	ctx.Printf("Today: %d/%d done   Average score: %.0f\n", summary.CompletedToday, summary.ActiveToday, summary.AverageScore)
	return nil
}

type MaintainCmd struct{}

func (c *MaintainCmd) Run(ctx *cli.Context) error {
	result, err := ctx.Stats.Backfill(ctx.Context())
	if err != nil {
		return fmt.Errorf("maintenance failed: %w", err)
	}
	ctx.Printf("✓ Recomputed stats for %d habit(s), %d updated\n", result.Habits, result.Updated)
	return nil
}
