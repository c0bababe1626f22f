package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/cadence/internal/cli"
	"github.com/julianstephens/cadence/internal/cli/backups"
	"github.com/julianstephens/cadence/internal/cli/habits"
	"github.com/julianstephens/cadence/internal/cli/insights"
	"github.com/julianstephens/cadence/internal/cli/system"
	"github.com/julianstephens/cadence/internal/cli/tracking"
	"github.com/julianstephens/cadence/internal/config"
	"github.com/julianstephens/cadence/internal/constants"
	"github.com/julianstephens/cadence/internal/errors"
	"github.com/julianstephens/cadence/internal/keyring"
	"github.com/julianstephens/cadence/internal/logger"
	"github.com/julianstephens/cadence/internal/storage"
	"github.com/julianstephens/cadence/internal/storage/postgres"
	"github.com/julianstephens/cadence/internal/storage/sqlite"
)

var CLI struct {
	Version    kong.VersionFlag
	ConfigFile string `name:"config" help:"Path to config.toml." type:"path"`
	Database   string `help:"SQLite file path or PostgreSQL connection string. PostgreSQL passwords must NOT be embedded; use the keyring, CADENCE_DB_CONNECTION or .pgpass." env:"CADENCE_DATABASE"`
	Timezone   string `help:"IANA timezone that decides the current day." env:"CADENCE_TIMEZONE"`
	SeriesDays int    `name:"series-days" help:"Default number of days in series and heatmaps."`
	Debug      bool   `help:"Enable debug logging."`

	Init     system.InitCmd       `cmd:"" help:"Initialize cadence storage."`
	Tui      system.TuiCmd        `cmd:"" help:"Launch the interactive TUI." default:"1"`
	Today    tracking.TodayCmd    `cmd:"" help:"Show today's habits."`
	Mark     tracking.MarkCmd     `cmd:"" help:"Record a completion."`
	Unmark   tracking.UnmarkCmd   `cmd:"" help:"Remove a completion."`
	Habit    habits.HabitCmd      `cmd:"" help:"Manage habits."`
	Pattern  habits.PatternCmd    `cmd:"" help:"Manage habit schedules."`
	Streak   insights.StreakCmd   `cmd:"" help:"Show a habit's streaks."`
	Score    insights.ScoreCmd    `cmd:"" help:"Show a habit's score breakdown."`
	Series   insights.SeriesCmd   `cmd:"" help:"Show a habit's day-by-day history."`
	Summary  insights.SummaryCmd  `cmd:"" help:"Summarize every active habit."`
	Maintain insights.MaintainCmd `cmd:"" help:"Recompute cached habit statistics."`
	Import   system.ImportCmd     `cmd:"" help:"Import habits from a YAML file."`
	Export   system.ExportCmd     `cmd:"" help:"Export habits to a YAML file."`
	Backup   struct {
		Create  backups.BackupCreateCmd  `cmd:"" help:"Create a manual backup." default:"1"`
		List    backups.BackupListCmd    `cmd:"" help:"List available backups."`
		Restore backups.BackupRestoreCmd `cmd:"" help:"Restore from a backup."`
	} `cmd:"" help:"Manage database backups."`
	Settings  system.SettingsCmd `cmd:"" help:"Manage stored settings."`
	Keyring   system.KeyringCmd  `cmd:"" help:"Manage the PostgreSQL connection string in the OS keyring."`
	Doctor    system.DoctorCmd   `cmd:"" help:"Run health checks and diagnostics."`
	DebugInfo system.DebugCmd    `cmd:"" help:"Debug commands for troubleshooting."`
}

// skipsLoad lists commands that run without an initialized database.
func skipsLoad(command string) bool {
	for _, prefix := range []string{"init", "keyring", "debug-info db-path"} {
		if strings.HasPrefix(command, prefix) {
			return true
		}
	}
	return false
}

// openStore picks PostgreSQL for connection strings or when
// CADENCE_DB_CONNECTION is set, and SQLite otherwise.
func openStore(database string) (storage.Provider, error) {
	if !postgres.IsConnString(database) && os.Getenv(keyring.EnvConnection) == "" {
		return sqlite.NewStore(database), nil
	}
	if postgres.IsConnString(database) {
		if err := postgres.ValidateConnString(database); err != nil {
			return nil, err
		}
	}
	return postgres.New(keyring.ResolveConnectionString(database)), nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Habit tracker with flexible schedules, streaks and scores"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{"version": constants.Version},
	)

	cfg, err := config.Load(CLI.ConfigFile)
	if err != nil {
		errors.Fatal(err)
	}
	cfg.Apply(config.Overrides{
		Database:   CLI.Database,
		Timezone:   CLI.Timezone,
		Debug:      CLI.Debug,
		SeriesDays: CLI.SeriesDays,
	})
	if err := cfg.Validate(); err != nil {
		errors.Fatal(err)
	}

	if err := logger.Init(logger.Config{
		Debug: cfg.Debug,
		Level: cfg.LogLevel,
		Dir:   config.GetPaths().ConfigDir,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logger: %v\n", err)
	}

	store, err := openStore(cfg.Database)
	if err != nil {
		errors.Fatal(err)
	}

	appCtx := cli.NewContext(store, cfg)
	appCtx.ConfigFile = CLI.ConfigFile

	if !skipsLoad(ctx.Command()) {
		if err := store.Load(); err != nil {
			errors.Fatal(err)
		}
		if err := appCtx.ApplyStoreSettings(); err != nil {
			errors.Fatal(err)
		}
	}
	defer store.Close()

	logger.Debug("running command", "command", ctx.Command(), "store", store.GetConfigPath())
	if err := ctx.Run(appCtx); err != nil {
		store.Close()
		errors.Fatal(err)
	}
}
