package tracking

import (
	"fmt"

	"github.com/julianstephens/cadence/internal/cli"
)

type TodayCmd struct {
	All     bool `help:"Include habits not scheduled today."`
	Refresh bool `help:"Recompute instead of reusing a recent summary."`
	JSON    bool `help:"Print as JSON."`
}

func (c *TodayCmd) Run(ctx *cli.Context) error {
	summary, err := ctx.Stats.Summary(ctx.Context(), c.Refresh)
	if err != nil {
		return err
	}
	if c.JSON {
		return ctx.PrintJSON(summary)
	}
	if len(summary.Habits) == 0 {
		ctx.Println("No habits found. Add one with 'cadence habit add'.")
		return nil
	}

	var rows [][]string
	for _, snap := range summary.Habits {
		if !snap.ActiveToday && !c.All {
			continue
		}
		rows = append(rows, []string{
			cli.Status(snap.Habit, snap.Required, snap.DoneToday),
			snap.Habit.Name,
			fmt.Sprintf("%d", snap.Streaks.Current),
			fmt.Sprintf("%d", snap.Score.TotalScore),
		})
	}

	ctx.Println(cli.HeaderStyle.Render(fmt.Sprintf("Habits for %s", summary.Today)))
	if len(rows) == 0 {
		ctx.Println("Nothing scheduled today.")
		return nil
	}
	ctx.Println(cli.Table([]string{"", "Habit", "Streak", "Score"}, rows))
	ctx.Printf("Completed: %d/%d\n", summary.CompletedToday, summary.ActiveToday)
	return nil
}
