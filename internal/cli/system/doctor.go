package system

import (
	"errors"
	"fmt"

	"github.com/julianstephens/cadence/internal/calendar"
	"github.com/julianstephens/cadence/internal/cli"
	"github.com/julianstephens/cadence/internal/keyring"
	"github.com/julianstephens/cadence/internal/migration"
	"github.com/julianstephens/cadence/internal/recurrence"
)

// migratable is implemented by stores backed by versioned migrations.
type migratable interface {
	Runner() (*migration.Runner, error)
}

type DoctorCmd struct{}

type check struct {
	name     string
	fn       func(*cli.Context) error
	needsDB  bool
	warnOnly bool
}

var checks = []check{
	{name: "Database reachable", fn: checkDBReachable},
	{name: "Schema version", fn: checkSchemaVersion, needsDB: true},
	{name: "Timezone", fn: checkTimezone},
	{name: "Habit schedules", fn: checkSchedules, needsDB: true},
	{name: "Completion dates", fn: checkCompletionDates, needsDB: true, warnOnly: true},
	{name: "Cached stats", fn: checkAggregates, needsDB: true, warnOnly: true},
	{name: "Backups present", fn: checkBackupsPresent, warnOnly: true},
	{name: "OS keyring", fn: checkKeyring, warnOnly: true},
}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	ctx.Println("Running diagnostics...")
	ctx.Println()

	failed := 0
	dbReachable := true
	for _, c := range checks {
		if c.needsDB && !dbReachable {
			ctx.Printf("⊘ %s: SKIPPED (database not reachable)\n", c.name)
			continue
		}

		err := c.fn(ctx)
		switch {
		case err == nil:
			ctx.Printf("✓ %s: OK\n", c.name)
		case c.warnOnly:
			ctx.Printf("⚠ %s: WARNING\n", c.name)
			ctx.Printf("   %v\n", err)
		default:
			ctx.Printf("❌ %s: FAIL\n", c.name)
			ctx.Printf("   Error: %v\n", err)
			failed++
			if c.name == "Database reachable" {
				dbReachable = false
			}
		}
	}

	ctx.Println()
	if failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	ctx.Println("All checks passed.")
	return nil
}

func checkDBReachable(ctx *cli.Context) error {
	_, err := ctx.Store.GetSettings()
	return err
}

func checkSchemaVersion(ctx *cli.Context) error {
	m, ok := ctx.Store.(migratable)
	if !ok {
		return nil
	}
	runner, err := m.Runner()
	if err != nil {
		return err
	}
	current, err := runner.GetCurrentVersion()
	if err != nil {
		return err
	}
	latest, err := runner.GetLatestVersion()
	if err != nil {
		return err
	}
	if current != latest {
		return fmt.Errorf("database is at version %d, expected %d", current, latest)
	}
	return nil
}

func checkTimezone(ctx *cli.Context) error {
	if !calendar.ValidateTimezone(ctx.Config.Timezone) {
		return fmt.Errorf("unknown timezone %q", ctx.Config.Timezone)
	}
	return nil
}

func checkSchedules(ctx *cli.Context) error {
	habits, err := ctx.Store.GetAllHabits(true, false)
	if err != nil {
		return err
	}

	var problems []error
	for _, h := range habits {
		if len(h.Patterns) == 0 {
			problems = append(problems, fmt.Errorf("%q has no schedule", h.Name))
			continue
		}
		if h.Patterns[0].EffectiveFrom.After(h.StartDate) {
			problems = append(problems, fmt.Errorf("%q is unscheduled from %s until %s", h.Name, h.StartDate, h.Patterns[0].EffectiveFrom))
		}
		for _, p := range h.Patterns {
			if err := recurrence.Validate(p); err != nil {
				problems = append(problems, fmt.Errorf("%q pattern from %s: %w", h.Name, p.EffectiveFrom, err))
			}
		}
	}
	return errors.Join(problems...)
}

func checkCompletionDates(ctx *cli.Context) error {
	habits, err := ctx.Store.GetAllHabits(true, false)
	if err != nil {
		return err
	}

	today := ctx.Today()
	var problems []error
	for _, h := range habits {
		records, err := ctx.Store.GetCompletionsForHabit(h.ID, calendar.Day{}, calendar.Day{})
		if err != nil {
			return err
		}
		early, future := 0, 0
		for _, r := range records {
			switch {
			case r.Day.Before(h.StartDate):
				early++
			case r.Day.After(today):
				future++
			}
		}
		if early > 0 {
			problems = append(problems, fmt.Errorf("%q has %d completion(s) before its start date, they are ignored", h.Name, early))
		}
		if future > 0 {
			problems = append(problems, fmt.Errorf("%q has %d completion(s) in the future", h.Name, future))
		}
	}
	return errors.Join(problems...)
}

func checkAggregates(ctx *cli.Context) error {
	habits, err := ctx.Store.GetAllHabits(true, false)
	if err != nil {
		return err
	}
	stale := 0
	for _, h := range habits {
		if ctx.Stats.Stale(h) {
			stale++
		}
	}
	if stale > 0 {
		return fmt.Errorf("%d habit(s) have outdated cached stats, run 'cadence maintain'", stale)
	}
	return nil
}

func checkBackupsPresent(ctx *cli.Context) error {
	if !ctx.UsesSQLite() {
		return nil
	}
	mgr, err := ctx.BackupManager()
	if err != nil {
		return err
	}
	backups, err := mgr.List()
	if err != nil {
		return err
	}
	if len(backups) == 0 {
		return fmt.Errorf("no backups found in %s, run 'cadence backup create'", mgr.Dir())
	}
	return nil
}

func checkKeyring(ctx *cli.Context) error {
	if ctx.UsesSQLite() {
		return nil
	}
	if !keyring.IsAvailable() {
		return keyring.ErrKeyringUnavailable
	}
	return nil
}
