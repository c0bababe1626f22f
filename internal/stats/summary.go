package stats

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/julianstephens/cadence/internal/completion"
	"github.com/julianstephens/cadence/internal/constants"
	"github.com/julianstephens/cadence/internal/models"
)

// maxConcurrentHabits bounds the number of habits computed at once.
const maxConcurrentHabits = 8

// Summary aggregates every active habit. The result is reused for up to
// SummaryRefreshRate unless a habit was invalidated, the day changed or
// force is set.
func (s *Service) Summary(ctx context.Context, force bool) (models.Summary, error) {
	today := s.clock()

	s.mu.Lock()
	if !force && s.summary != nil && !s.summaryDirty &&
		s.summary.Today.Equal(today) && s.now().Sub(s.summaryAt) < constants.SummaryRefreshRate {
		cached := *s.summary
		s.mu.Unlock()
		return cached, nil
	}
	changes := s.changes
	s.mu.Unlock()

	habits, err := s.store.GetAllHabits(false, false)
	if err != nil {
		return models.Summary{}, fmt.Errorf("failed to list habits: %w", err)
	}

	snapshots := make([]models.HabitSnapshot, len(habits))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentHabits)
	for i, h := range habits {
		g.Go(func() error {
			snap, err := s.Snapshot(gctx, h.ID)
			if err != nil {
				return fmt.Errorf("habit %q: %w", h.Name, err)
			}
			snapshots[i] = snap
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.Summary{}, err
	}

	summary := models.Summary{Today: today, Habits: snapshots}
	total := 0
	for _, snap := range snapshots {
		total += snap.Score.TotalScore
		if !snap.ActiveToday {
			continue
		}
		summary.ActiveToday++
		if completion.Success(snap.Habit, snap.Required, snap.DoneToday) {
			summary.CompletedToday++
		}
	}
	if len(snapshots) > 0 {
		summary.AverageScore = float64(total) / float64(len(snapshots))
	}

	// A habit invalidated while the summary was computed leaves it dirty.
	s.mu.Lock()
	if s.changes == changes {
		s.summary = &summary
		s.summaryAt = s.now()
		s.summaryDirty = false
	}
	s.mu.Unlock()

	s.log.Debug("refreshed summary", "habits", len(snapshots))
	return summary, nil
}

// BackfillResult reports what Backfill changed.
type BackfillResult struct {
	Habits  int
	Updated int
}

// Backfill recomputes TotalCompletions and BestStreakEver for every habit
// that is not deleted, archived ones included, and stamps the current cache
// version on them.
func (s *Service) Backfill(ctx context.Context) (BackfillResult, error) {
	habits, err := s.store.GetAllHabits(true, false)
	if err != nil {
		return BackfillResult{}, fmt.Errorf("failed to list habits: %w", err)
	}

	result := BackfillResult{Habits: len(habits)}
	for _, h := range habits {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		s.Invalidate(h.ID)
		data, err := s.Streaks(ctx, h.ID)
		if err != nil {
			return result, fmt.Errorf("habit %q: %w", h.Name, err)
		}

		e, err := s.load(ctx, h.ID)
		if err != nil {
			return result, err
		}
		if data.BestEver != h.BestStreakEver || e.log.Total() != h.TotalCompletions || s.Stale(h) {
			result.Updated++
		}
	}

	s.log.Info("backfilled habit aggregates", "habits", result.Habits, "updated", result.Updated)
	return result, nil
}
