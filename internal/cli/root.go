package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/julianstephens/cadence/internal/backup"
	"github.com/julianstephens/cadence/internal/calendar"
	"github.com/julianstephens/cadence/internal/config"
	"github.com/julianstephens/cadence/internal/constants"
	"github.com/julianstephens/cadence/internal/logger"
	"github.com/julianstephens/cadence/internal/models"
	"github.com/julianstephens/cadence/internal/stats"
	"github.com/julianstephens/cadence/internal/storage"
)

type Context struct {
	Ctx    context.Context
	Store  storage.Provider
	Stats  *stats.Service
	Clock  calendar.Clock
	Config *config.Config
	// ConfigFile is the config.toml in use, empty for the default location.
	ConfigFile string
	Out        io.Writer
	In         io.Reader
}

// NewContext wires the stats service and clock for cfg.
func NewContext(store storage.Provider, cfg *config.Config) *Context {
	c := &Context{Ctx: context.Background(), Store: store, Config: cfg, Out: os.Stdout, In: os.Stdin}
	c.Rewire()
	return c
}

// Rewire rebuilds the clock and stats service after the configuration
// changed.
func (c *Context) Rewire() {
	c.Clock = calendar.SystemClock(c.Config.Timezone)
	c.Stats = stats.New(c.Store, c.Clock, stats.WithSeriesDays(c.Config.SeriesDays))
}

// ApplyStoreSettings fills configuration left at its defaults from the
// settings saved in the store.
func (c *Context) ApplyStoreSettings() error {
	settings, err := c.Store.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	changed := false
	if c.Config.Timezone == constants.DefaultTimezone && settings.Timezone != "" && settings.Timezone != c.Config.Timezone {
		if !calendar.ValidateTimezone(settings.Timezone) {
			logger.Warn("ignoring invalid stored timezone", "timezone", settings.Timezone)
		} else {
			c.Config.Timezone = settings.Timezone
			changed = true
		}
	}
	if c.Config.SeriesDays == constants.DefaultSeriesDays && settings.DefaultSeriesDays > 0 && settings.DefaultSeriesDays != c.Config.SeriesDays {
		c.Config.SeriesDays = settings.DefaultSeriesDays
		changed = true
	}
	if changed {
		c.Rewire()
	}
	return nil
}

func (c *Context) Printf(format string, args ...any) {
	fmt.Fprintf(c.Out, format, args...)
}

func (c *Context) Println(args ...any) {
	fmt.Fprintln(c.Out, args...)
}

// PrintJSON writes v as indented JSON.
func (c *Context) PrintJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	c.Println(string(b))
	return nil
}

func (c *Context) Today() calendar.Day {
	return c.Clock()
}

// UsesSQLite reports whether the store is a local database file.
func (c *Context) UsesSQLite() bool {
	return c.Store.GetConfigPath() != "postgresql"
}

// BackupManager returns the snapshot manager for the SQLite database.
func (c *Context) BackupManager() (*backup.Manager, error) {
	if !c.UsesSQLite() {
		return nil, errors.New("backups are only supported for SQLite databases, use pg_dump for PostgreSQL")
	}
	return backup.NewManager(c.Store.GetConfigPath()), nil
}

// PerformAutomaticBackup creates a backup and only logs failures.
func (c *Context) PerformAutomaticBackup() {
	if !c.UsesSQLite() {
		return
	}
	mgr := backup.NewManager(c.Store.GetConfigPath())
	if _, err := mgr.Create(c.Context()); err != nil {
		logger.Warn("Automatic backup failed", "error", err)
	}
}

// ResolveHabit finds a live habit by exact name, id or unique id prefix.
func (c *Context) ResolveHabit(ref string) (models.Habit, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return models.Habit{}, errors.New("habit name or id is required")
	}

	h, err := c.Store.GetHabitByName(ref)
	if err == nil {
		return h, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return models.Habit{}, err
	}

	habits, err := c.Store.GetAllHabits(true, false)
	if err != nil {
		return models.Habit{}, err
	}
	var matches []models.Habit
	for _, h := range habits {
		if h.ID == ref {
			return h, nil
		}
		if strings.HasPrefix(h.ID, ref) || strings.EqualFold(h.Name, ref) {
			matches = append(matches, h)
		}
	}
	switch len(matches) {
	case 0:
		return models.Habit{}, fmt.Errorf("habit %q: %w", ref, storage.ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return models.Habit{}, fmt.Errorf("habit %q is ambiguous, %d habits match", ref, len(matches))
	}
}

// ParseDay accepts YYYY-MM-DD, "today", "yesterday" or a day offset such
// as "-3". An empty string means today.
func (c *Context) ParseDay(s string) (calendar.Day, error) {
	today := c.Today()
	switch s = strings.ToLower(strings.TrimSpace(s)); s {
	case "", "today":
		return today, nil
	case "yesterday":
		return today.AddDays(-1), nil
	}
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		if n, err := strconv.Atoi(s); err == nil {
			return today.AddDays(n), nil
		}
	}
	return calendar.Parse(s)
}

// Confirm asks a yes/no question on In and reports whether the answer was yes.
func (c *Context) Confirm(prompt string) (bool, error) {
	c.Printf("%s [y/N]: ", prompt)
	answer, err := bufio.NewReader(c.In).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes", nil
}

// ParseWeekdays parses a comma-separated list of weekdays.
func ParseWeekdays(s string) ([]time.Weekday, error) {
	dayMap := map[string]time.Weekday{
		"sun":       time.Sunday,
		"sunday":    time.Sunday,
		"mon":       time.Monday,
		"monday":    time.Monday,
		"tue":       time.Tuesday,
		"tuesday":   time.Tuesday,
		"wed":       time.Wednesday,
		"wednesday": time.Wednesday,
		"thu":       time.Thursday,
		"thursday":  time.Thursday,
		"fri":       time.Friday,
		"friday":    time.Friday,
		"sat":       time.Saturday,
		"saturday":  time.Saturday,
	}

	var weekdays []time.Weekday
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(strings.ToLower(part))
		switch {
		case part == "weekdays":
			weekdays = append(weekdays, time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday)
		case part == "weekends":
			weekdays = append(weekdays, time.Saturday, time.Sunday)
		default:
			wd, ok := dayMap[part]
			if !ok {
				return nil, fmt.Errorf("invalid weekday: %s", part)
			}
			weekdays = append(weekdays, wd)
		}
	}
	return weekdays, nil
}

// ParseMonthDays parses a comma-separated list of days of month.
func ParseMonthDays(s string) ([]int, error) {
	var days []int
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 1 || n > 31 {
			return nil, fmt.Errorf("invalid day of month: %s", part)
		}
		days = append(days, n)
	}
	return days, nil
}

// Context returns the command's context, Background when unset.
func (c *Context) Context() context.Context {
	if c.Ctx == nil {
		return context.Background()
	}
	return c.Ctx
}

// ShortID abbreviates an id for tables.
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
