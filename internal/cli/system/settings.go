package system

import (
	"fmt"

	"github.com/julianstephens/cadence/internal/calendar"
	"github.com/julianstephens/cadence/internal/cli"
	"github.com/julianstephens/cadence/internal/constants"
)

type SettingsCmd struct {
	List       bool    `help:"List current settings."`
	Timezone   *string `name:"set-timezone" help:"Store the IANA timezone used to decide what today is, or Local."`
	SeriesDays *int    `name:"set-series-days" help:"Store the default number of days shown by series and consistency views."`
}

func (c *SettingsCmd) Run(ctx *cli.Context) error {
	settings, err := ctx.Store.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	if c.List || (c.Timezone == nil && c.SeriesDays == nil) {
		ctx.Println("Stored settings:")
		ctx.Printf("  Timezone:            %s\n", settings.Timezone)
		ctx.Printf("  Default series days: %d\n", settings.DefaultSeriesDays)
		ctx.Println("\nIn effect:")
		ctx.Printf("  Timezone:            %s (today is %s)\n", ctx.Config.Timezone, ctx.Today())
		ctx.Printf("  Default series days: %d\n", ctx.Config.SeriesDays)
		return nil
	}

	if c.Timezone != nil {
		if !calendar.ValidateTimezone(*c.Timezone) {
			return fmt.Errorf("unknown timezone %q", *c.Timezone)
		}
		settings.Timezone = *c.Timezone
	}
	if c.SeriesDays != nil {
		if *c.SeriesDays < 1 || *c.SeriesDays > constants.MaxSeriesDays {
			return fmt.Errorf("series days must be between 1 and %d", constants.MaxSeriesDays)
		}
		settings.DefaultSeriesDays = *c.SeriesDays
	}

	if err := ctx.Store.SaveSettings(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	ctx.Println("Settings updated successfully.")
	return nil
}
