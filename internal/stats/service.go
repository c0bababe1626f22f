// Package stats is the single authority for derived habit data. It loads a
// habit and its completion log once, caches them per habit id and answers
// streak, score and series queries from the cache until the habit changes.
package stats

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/julianstephens/cadence/internal/calendar"
	"github.com/julianstephens/cadence/internal/completion"
	"github.com/julianstephens/cadence/internal/constants"
	"github.com/julianstephens/cadence/internal/consistency"
	"github.com/julianstephens/cadence/internal/logger"
	"github.com/julianstephens/cadence/internal/models"
	"github.com/julianstephens/cadence/internal/recurrence"
	"github.com/julianstephens/cadence/internal/score"
	"github.com/julianstephens/cadence/internal/storage"
	"github.com/julianstephens/cadence/internal/streak"
)

// generation identifies what a habit's cache looked like when a load
// started. Invalidate and InvalidateAll move it forward, so a load that
// finishes under an older generation does not reach the cache.
type generation struct {
	all   uint64
	habit uint64
}

type entry struct {
	version int
	gen     generation
	habit   models.Habit
	log     *completion.Index
}

type Service struct {
	store      storage.Provider
	clock      calendar.Clock
	now        func() time.Time
	version    int
	seriesDays int
	log        *log.Logger

	group   singleflight.Group
	streaks *streak.Cache

	mu           sync.Mutex
	entries      map[string]*entry
	epoch        uint64
	gens         map[string]uint64
	changes      uint64
	summary      *models.Summary
	summaryAt    time.Time
	summaryDirty bool
}

type Option func(*Service)

// WithVersion overrides the cache version, constants.StatsCacheVersion by
// default. Entries and persisted aggregates from another version are stale.
func WithVersion(v int) Option {
	return func(s *Service) { s.version = v }
}

// WithNow sets the wall clock used for the summary refresh throttle.
func WithNow(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithSeriesDays sets the window used for snapshot consistency and for
// Series calls that pass a non-positive day count.
func WithSeriesDays(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.seriesDays = days
		}
	}
}

func New(store storage.Provider, clock calendar.Clock, opts ...Option) *Service {
	s := &Service{
		store:      store,
		clock:      clock,
		now:        time.Now,
		version:    constants.StatsCacheVersion,
		seriesDays: constants.DefaultSeriesDays,
		log:        logger.With("component", "stats"),
		streaks:    streak.NewCache(),
		entries:    make(map[string]*entry),
		gens:       make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) cached(habitID string) (*entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[habitID]
	if !ok || e.version != s.version {
		return nil, false
	}
	return e, true
}

func (s *Service) generationLocked(habitID string) generation {
	return generation{all: s.epoch, habit: s.gens[habitID]}
}

func (s *Service) generation(habitID string) generation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generationLocked(habitID)
}

// load returns the cached habit and completion log, reading them from
// storage at most once per habit and generation at a time.
func (s *Service) load(ctx context.Context, habitID string) (*entry, error) {
	if e, ok := s.cached(habitID); ok {
		return e, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	gen := s.generation(habitID)
	key := fmt.Sprintf("load:%s:%d:%d", habitID, gen.all, gen.habit)
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		if e, ok := s.cached(habitID); ok {
			return e, nil
		}

		h, err := s.store.GetHabit(habitID)
		if err != nil {
			return nil, err
		}
		h.SortPatterns()

		records, err := s.store.GetCompletionsForHabit(habitID, calendar.Day{}, calendar.Day{})
		if err != nil {
			return nil, err
		}

		e := &entry{version: s.version, gen: gen, habit: h, log: completion.NewIndex(records)}
		s.mu.Lock()
		if s.generationLocked(habitID) == gen {
			s.entries[habitID] = e
		}
		s.mu.Unlock()

		s.log.Debug("loaded habit", "habit", h.Name, "completions", e.log.Total())
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*entry), nil
}

// Streaks returns the streak figures of a habit as of today.
func (s *Service) Streaks(ctx context.Context, habitID string) (models.StreakData, error) {
	e, err := s.load(ctx, habitID)
	if err != nil {
		return models.StreakData{}, err
	}

	today := s.clock()
	if data, ok := s.streaks.Get(habitID, today); ok {
		return data, nil
	}

	key := fmt.Sprintf("streaks:%s:%d:%d:%s", habitID, e.gen.all, e.gen.habit, today)
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		if data, ok := s.streaks.Get(habitID, today); ok {
			return data, nil
		}

		data := streak.New(s.clock).Compute(s.habitOf(e), e.log, today)
		if s.generation(habitID) != e.gen {
			return data, nil
		}
		s.persistAggregates(e, data)

		// Put under the service lock so Invalidate cannot slip between the
		// generation check and the write.
		s.mu.Lock()
		if s.generationLocked(habitID) == e.gen {
			s.streaks.Put(habitID, today, data)
		}
		s.mu.Unlock()
		return data, nil
	})
	if err != nil {
		return models.StreakData{}, err
	}
	return v.(models.StreakData), nil
}

// habitOf reads the entry's habit under the service lock since aggregate
// write-back mutates it.
func (s *Service) habitOf(e *entry) models.Habit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return e.habit
}

// persistAggregates writes the cached totals back to storage when they
// changed. The stored best streak only ever grows.
func (s *Service) persistAggregates(e *entry, data models.StreakData) {
	h := s.habitOf(e)
	total := e.log.Total()
	if data.BestEver <= h.BestStreakEver && total == h.TotalCompletions && h.StatsVersion == s.version {
		return
	}

	best := max(data.BestEver, h.BestStreakEver)
	if err := s.store.UpdateHabitAggregates(h.ID, total, best, s.version); err != nil {
		s.log.Warn("failed to persist habit aggregates", "habit", h.Name, "error", err)
		return
	}

	s.mu.Lock()
	e.habit.BestStreakEver = best
	e.habit.TotalCompletions = total
	e.habit.StatsVersion = s.version
	s.mu.Unlock()

	s.log.Debug("updated habit aggregates", "habit", h.Name, "best", best, "total", total)
}

// Score returns the 30-day score breakdown of a habit as of today.
func (s *Service) Score(ctx context.Context, habitID string) (models.HabitScoreBreakdown, error) {
	e, err := s.load(ctx, habitID)
	if err != nil {
		return models.HabitScoreBreakdown{}, err
	}
	today := s.clock()
	return score.New(s.clock).Breakdown(s.habitOf(e), e.log, today), nil
}

// Series returns the day records of the last days days, oldest first. A
// non-positive days uses the configured default window.
func (s *Service) Series(ctx context.Context, habitID string, days int) ([]models.DayRecord, error) {
	e, err := s.load(ctx, habitID)
	if err != nil {
		return nil, err
	}
	if days <= 0 {
		days = s.seriesDays
	}
	today := s.clock()
	agg := consistency.Aggregator{Evaluator: recurrence.Evaluator{Today: today}}
	return agg.DailySeries(s.habitOf(e), e.log, days, today), nil
}

// Snapshot bundles every derived view of a habit as of today.
func (s *Service) Snapshot(ctx context.Context, habitID string) (models.HabitSnapshot, error) {
	streaks, err := s.Streaks(ctx, habitID)
	if err != nil {
		return models.HabitSnapshot{}, err
	}
	breakdown, err := s.Score(ctx, habitID)
	if err != nil {
		return models.HabitSnapshot{}, err
	}
	series, err := s.Series(ctx, habitID, s.seriesDays)
	if err != nil {
		return models.HabitSnapshot{}, err
	}

	e, err := s.load(ctx, habitID)
	if err != nil {
		return models.HabitSnapshot{}, err
	}
	h := s.habitOf(e)
	today := s.clock()
	required := recurrence.Evaluator{Today: today}.RepeatsRequired(h, today)

	return models.HabitSnapshot{
		Habit:       h,
		Today:       today,
		ActiveToday: required > 0,
		Required:    required,
		DoneToday:   e.log.Count(today),
		Streaks:     streaks,
		Score:       breakdown,
		Consistency: consistency.Overall(series),
	}, nil
}

// Invalidate drops everything cached for a habit. Call it whenever the
// habit's completions or patterns change outside this service.
func (s *Service) Invalidate(habitID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gens[habitID]++
	s.changes++
	delete(s.entries, habitID)
	s.streaks.Invalidate(habitID)
	s.summaryDirty = true
}

// InvalidateAll drops every cached habit and the summary.
func (s *Service) InvalidateAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.epoch++
	s.changes++
	s.entries = make(map[string]*entry)
	s.streaks.Clear()
	s.summary = nil
}

// RecordCompletion stores a completion and invalidates its habit.
func (s *Service) RecordCompletion(ctx context.Context, c models.Completion) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.store.AddCompletion(c); err != nil {
		return err
	}
	s.Invalidate(c.HabitID)
	return nil
}

// RemoveCompletion soft-deletes a completion and invalidates its habit.
func (s *Service) RemoveCompletion(ctx context.Context, c models.Completion) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.store.DeleteCompletion(c.ID); err != nil {
		return err
	}
	s.Invalidate(c.HabitID)
	return nil
}

// AddPattern validates and stores a schedule change and invalidates its habit.
func (s *Service) AddPattern(ctx context.Context, p models.RecurrencePattern) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.store.AddPattern(p); err != nil {
		return err
	}
	s.Invalidate(p.HabitID)
	return nil
}

// Stale reports whether a habit's persisted aggregates predate the current
// cache version.
func (s *Service) Stale(h models.Habit) bool {
	return h.StatsVersion != s.version
}
