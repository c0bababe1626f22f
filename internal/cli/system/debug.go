package system

import (
	"github.com/julianstephens/cadence/internal/calendar"
	"github.com/julianstephens/cadence/internal/cli"
	"github.com/julianstephens/cadence/internal/config"
	"github.com/julianstephens/cadence/internal/logger"
	"github.com/julianstephens/cadence/internal/models"
)

type DebugCmd struct {
	DBPath       DebugDBPathCmd       `cmd:"" name:"db-path" help:"Show database and config paths."`
	DumpHabit    DebugDumpHabitCmd    `cmd:"" help:"Dump a habit with its completions as JSON."`
	DumpSettings DebugDumpSettingsCmd `cmd:"" help:"Dump settings as JSON."`
}

type DebugDBPathCmd struct{}

func (cmd *DebugDBPathCmd) Run(ctx *cli.Context) error {
	paths := config.GetPaths()
	configFile := ctx.ConfigFile
	if configFile == "" {
		configFile = paths.ConfigFile
	}
	return ctx.PrintJSON(map[string]string{
		"database": ctx.Store.GetConfigPath(),
		"config":   configFile,
		"log":      logger.FilePath(paths.ConfigDir),
	})
}

type DebugDumpHabitCmd struct {
	Habit string `arg:"" help:"Habit name or id."`
}

func (cmd *DebugDumpHabitCmd) Run(ctx *cli.Context) error {
	h, err := ctx.ResolveHabit(cmd.Habit)
	if err != nil {
		return err
	}
	records, err := ctx.Store.GetCompletionsForHabit(h.ID, calendar.Day{}, calendar.Day{})
	if err != nil {
		return err
	}
	return ctx.PrintJSON(struct {
		Habit       models.Habit        `json:"habit"`
		Completions []models.Completion `json:"completions"`
	}{h, records})
}

type DebugDumpSettingsCmd struct{}

func (cmd *DebugDumpSettingsCmd) Run(ctx *cli.Context) error {
	settings, err := ctx.Store.GetSettings()
	if err != nil {
		return err
	}
	return ctx.PrintJSON(struct {
		Stored models.Settings `json:"stored"`
		Config *config.Config  `json:"config"`
	}{settings, ctx.Config})
}
