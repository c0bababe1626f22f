// Package importer reads and writes habit definitions as YAML so a habit
// set can be moved between stores or kept under version control.
package importer

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/julianstephens/cadence/internal/calendar"
	"github.com/julianstephens/cadence/internal/logger"
	"github.com/julianstephens/cadence/internal/models"
	"github.com/julianstephens/cadence/internal/recurrence"
	"github.com/julianstephens/cadence/internal/storage"
)

// FormatVersion is written to every exported file. Files with a newer
// version are rejected.
const FormatVersion = 1

type File struct {
	Version int         `yaml:"version"`
	Habits  []HabitSpec `yaml:"habits"`
}

type HabitSpec struct {
	Name        string           `yaml:"name"`
	Bad         bool             `yaml:"bad,omitempty"`
	Start       calendar.Day     `yaml:"start"`
	Archived    bool             `yaml:"archived,omitempty"`
	Patterns    []PatternSpec    `yaml:"patterns"`
	Completions []CompletionSpec `yaml:"completions,omitempty"`
}

// PatternSpec is the YAML shape of a recurrence pattern. Weekdays applies to
// weekly patterns, MonthDays to monthly ones and Rotation (a 0/1 mask whose
// length is a multiple of 7) to daily rotations.
type PatternSpec struct {
	From      calendar.Day `yaml:"from"`
	Kind      string       `yaml:"kind"`
	Interval  int          `yaml:"interval,omitempty"`
	Weekdays  []string     `yaml:"weekdays,omitempty,flow"`
	MonthDays []int        `yaml:"month_days,omitempty,flow"`
	Rotation  string       `yaml:"rotation,omitempty"`
	Repeats   int          `yaml:"repeats,omitempty"`
	FollowUp  bool         `yaml:"follow_up,omitempty"`
}

type CompletionSpec struct {
	Day   calendar.Day `yaml:"day"`
	Count int          `yaml:"count,omitempty"`
	Note  string       `yaml:"note,omitempty"`
}

var weekdayNames = []string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}

// Decode parses a habit file.
func Decode(r io.Reader) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &File{Version: FormatVersion}, nil
		}
		return nil, fmt.Errorf("failed to parse habit file: %w", err)
	}
	if f.Version == 0 {
		f.Version = FormatVersion
	}
	if f.Version > FormatVersion {
		return nil, fmt.Errorf("habit file version %d is newer than supported version %d", f.Version, FormatVersion)
	}
	return &f, nil
}

// Encode writes a habit file.
func Encode(w io.Writer, f *File) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("failed to write habit file: %w", err)
	}
	return enc.Close()
}

// ToPattern converts a pattern spec into a validated recurrence pattern.
func (p PatternSpec) ToPattern(habitID string, createdAt time.Time) (models.RecurrencePattern, error) {
	interval := p.Interval
	if interval == 0 {
		interval = 1
	}
	repeats := p.Repeats
	if repeats == 0 {
		repeats = 1
	}

	var r models.Recurrence
	switch models.RecurrenceKind(strings.ToLower(p.Kind)) {
	case models.KindDaily:
		if p.Rotation == "" {
			r = models.EveryNDays(interval)
			break
		}
		mask, err := models.DecodeMask(p.Rotation)
		if err != nil {
			return models.RecurrencePattern{}, &recurrence.ConfigError{Field: "rotation", Reason: err.Error()}
		}
		g := models.DailyRotation(mask)
		g.Interval = p.Interval
		r = g
	case models.KindWeekly:
		g := models.WeeklyGoal{Interval: interval}
		for _, name := range p.Weekdays {
			i := weekdayIndex(name)
			if i < 0 {
				return models.RecurrencePattern{}, &recurrence.ConfigError{Field: "weekdays", Reason: fmt.Sprintf("unknown weekday %q", name)}
			}
			g.Days[i] = true
		}
		r = g
	case models.KindMonthly:
		g := models.MonthlyGoal{Interval: interval}
		for _, d := range p.MonthDays {
			if d < 1 || d > 31 {
				return models.RecurrencePattern{}, &recurrence.ConfigError{Field: "month_days", Reason: fmt.Sprintf("day %d is outside 1..31", d)}
			}
			g.Days[d-1] = true
		}
		r = g
	default:
		return models.RecurrencePattern{}, &recurrence.ConfigError{Field: "kind", Reason: fmt.Sprintf("unknown kind %q", p.Kind)}
	}

	pattern := models.RecurrencePattern{
		ID:            uuid.NewString(),
		HabitID:       habitID,
		EffectiveFrom: p.From,
		RepeatsPerDay: repeats,
		FollowUp:      p.FollowUp,
		Recurrence:    r,
		CreatedAt:     createdAt,
	}
	if err := recurrence.Validate(pattern); err != nil {
		return models.RecurrencePattern{}, err
	}
	return pattern, nil
}

// SpecFromPattern is the inverse of ToPattern.
func SpecFromPattern(p models.RecurrencePattern) PatternSpec {
	spec := PatternSpec{
		From:     p.EffectiveFrom,
		Kind:     string(p.Recurrence.Kind()),
		Repeats:  p.RepeatsPerDay,
		FollowUp: p.FollowUp,
	}
	switch g := p.Recurrence.(type) {
	case models.DailyGoal:
		if g.IsRotation() {
			spec.Rotation = models.EncodeMask(g.Days)
		} else {
			spec.Interval = g.Interval
		}
	case models.WeeklyGoal:
		spec.Interval = g.Interval
		for i, set := range g.Days {
			if set {
				spec.Weekdays = append(spec.Weekdays, weekdayNames[i])
			}
		}
	case models.MonthlyGoal:
		spec.Interval = g.Interval
		for i, set := range g.Days {
			if set {
				spec.MonthDays = append(spec.MonthDays, i+1)
			}
		}
	}
	return spec
}

func weekdayIndex(name string) int {
	name = strings.ToLower(strings.TrimSpace(name))
	if len(name) < 3 {
		return -1
	}
	for i, wd := range weekdayNames {
		if strings.HasPrefix(name, wd) {
			return i
		}
	}
	return -1
}

type ImportOptions struct {
	// SkipExisting leaves habits whose name is already taken alone instead
	// of failing the import.
	SkipExisting bool
	DryRun       bool
	Now          func() time.Time
}

type ImportResult struct {
	Created     int
	Skipped     []string
	Patterns    int
	Completions int
}

// Import adds every habit in f to store. Each habit is validated before
// anything is written, so a malformed file leaves the store untouched. The
// writes themselves are not transactional: a storage error partway through
// leaves the habits written before it in place, and the result counts only
// those.
func Import(store storage.Provider, f *File, opts ImportOptions) (ImportResult, error) {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	createdAt := now().UTC()

	var result ImportResult
	var plans []habitPlan
	seen := make(map[string]bool, len(f.Habits))
	for i, spec := range f.Habits {
		name := strings.TrimSpace(spec.Name)
		if name == "" {
			return ImportResult{}, fmt.Errorf("habit %d: name is required", i+1)
		}
		if seen[strings.ToLower(name)] {
			return ImportResult{}, fmt.Errorf("habit %q: listed more than once", name)
		}
		seen[strings.ToLower(name)] = true

		if _, err := store.GetHabitByName(name); err == nil {
			if opts.SkipExisting {
				result.Skipped = append(result.Skipped, name)
				continue
			}
			return ImportResult{}, fmt.Errorf("habit %q already exists", name)
		} else if !errors.Is(err, storage.ErrNotFound) {
			return ImportResult{}, fmt.Errorf("failed to look up habit %q: %w", name, err)
		}

		p, err := buildPlan(name, spec, createdAt)
		if err != nil {
			return ImportResult{}, err
		}
		plans = append(plans, p)
	}

	log := logger.With("component", "importer")
	for _, p := range plans {
		if !opts.DryRun {
			if err := write(store, p); err != nil {
				return result, err
			}
			log.Debug("imported habit", "habit", p.habit.Name, "patterns", len(p.habit.Patterns), "completions", len(p.completions))
		}
		result.Created++
		result.Patterns += len(p.habit.Patterns)
		result.Completions += len(p.completions)
	}

	log.Info("imported habits", "created", result.Created, "skipped", len(result.Skipped), "dry_run", opts.DryRun)
	return result, nil
}

func write(store storage.Provider, p habitPlan) error {
	if err := store.AddHabit(p.habit); err != nil {
		return fmt.Errorf("failed to add habit %q: %w", p.habit.Name, err)
	}
	for _, c := range p.completions {
		if err := store.AddCompletion(c); err != nil {
			return fmt.Errorf("failed to add completion for %q on %s: %w", p.habit.Name, c.Day, err)
		}
	}
	if p.habit.ArchivedAt != nil {
		if err := store.ArchiveHabit(p.habit.ID); err != nil {
			return fmt.Errorf("failed to archive habit %q: %w", p.habit.Name, err)
		}
	}
	return nil
}

type habitPlan struct {
	habit       models.Habit
	completions []models.Completion
}

func buildPlan(name string, spec HabitSpec, createdAt time.Time) (habitPlan, error) {
	if len(spec.Patterns) == 0 {
		return habitPlan{}, fmt.Errorf("habit %q: at least one pattern is required", name)
	}

	h := models.Habit{
		ID:         uuid.NewString(),
		Name:       name,
		IsBadHabit: spec.Bad,
		StartDate:  spec.Start,
		CreatedAt:  createdAt,
	}
	for i, ps := range spec.Patterns {
		if ps.From.IsZero() {
			ps.From = spec.Start
		}
		// Later patterns in the file are created later, so one sharing a
		// from date with an earlier pattern supersedes it after reload too.
		p, err := ps.ToPattern(h.ID, createdAt.Add(time.Duration(i)*time.Microsecond))
		if err != nil {
			return habitPlan{}, fmt.Errorf("habit %q pattern %d: %w", name, i+1, err)
		}
		h.Patterns = append(h.Patterns, p)
	}
	h.SortPatterns()
	if h.StartDate.IsZero() {
		h.StartDate = h.Patterns[0].EffectiveFrom
	}
	if spec.Archived {
		archivedAt := createdAt
		h.ArchivedAt = &archivedAt
	}

	var completions []models.Completion
	for _, cs := range spec.Completions {
		if cs.Day.IsZero() {
			return habitPlan{}, fmt.Errorf("habit %q: completion day is required", name)
		}
		count := cs.Count
		if count == 0 {
			count = 1
		}
		if count < 0 {
			return habitPlan{}, fmt.Errorf("habit %q: completion count on %s must be positive", name, cs.Day)
		}
		for range count {
			completions = append(completions, models.Completion{
				ID:        uuid.NewString(),
				HabitID:   h.ID,
				Day:       cs.Day,
				Completed: true,
				Note:      cs.Note,
				CreatedAt: createdAt,
			})
		}
	}

	return habitPlan{habit: h, completions: completions}, nil
}

type ExportOptions struct {
	IncludeArchived    bool
	IncludeCompletions bool
}

// Export builds a habit file from the live habits in store.
func Export(store storage.Provider, opts ExportOptions) (*File, error) {
	habits, err := store.GetAllHabits(opts.IncludeArchived, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list habits: %w", err)
	}

	f := &File{Version: FormatVersion}
	for _, h := range habits {
		spec := HabitSpec{
			Name:     h.Name,
			Bad:      h.IsBadHabit,
			Start:    h.StartDate,
			Archived: h.IsArchived(),
		}
		h.SortPatterns()
		for _, p := range h.Patterns {
			spec.Patterns = append(spec.Patterns, SpecFromPattern(p))
		}

		if opts.IncludeCompletions {
			records, err := store.GetCompletionsForHabit(h.ID, calendar.Day{}, calendar.Day{})
			if err != nil {
				return nil, fmt.Errorf("failed to list completions for %q: %w", h.Name, err)
			}
			spec.Completions = groupCompletions(records)
		}
		f.Habits = append(f.Habits, spec)
	}
	return f, nil
}

// groupCompletions folds completed records into one entry per day and note.
// Records come back from storage ordered by day.
func groupCompletions(records []models.Completion) []CompletionSpec {
	var out []CompletionSpec
	for _, r := range records {
		if !r.Completed || r.DeletedAt != nil {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Day.Equal(r.Day) && out[n-1].Note == r.Note {
			out[n-1].Count++
			continue
		}
		out = append(out, CompletionSpec{Day: r.Day, Count: 1, Note: r.Note})
	}
	for i := range out {
		if out[i].Count == 1 {
			out[i].Count = 0
		}
	}
	return out
}
