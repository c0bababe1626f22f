package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/cadence/internal/calendar"
	"github.com/julianstephens/cadence/internal/models"
	"github.com/julianstephens/cadence/internal/recurrence"
	"github.com/julianstephens/cadence/internal/storage"
)

const habitColumns = `id, name, is_bad_habit, start_date, best_streak_ever,
	total_completions, stats_version, created_at, archived_at, deleted_at`

func scanHabit(row scanner) (models.Habit, error) {
	var h models.Habit
	var isBad int
	var startDate, createdAt string
	var archivedAt, deletedAt sql.NullString

	err := row.Scan(&h.ID, &h.Name, &isBad, &startDate, &h.BestStreakEver,
		&h.TotalCompletions, &h.StatsVersion, &createdAt, &archivedAt, &deletedAt)
	if err != nil {
		return models.Habit{}, err
	}

	h.IsBadHabit = isBad != 0
	if h.StartDate, err = calendar.Parse(startDate); err != nil {
		return models.Habit{}, fmt.Errorf("failed to parse start_date for habit %s: %w", h.ID, err)
	}
	if h.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return models.Habit{}, err
	}
	if h.ArchivedAt, err = parseNullTime("archived_at", archivedAt); err != nil {
		return models.Habit{}, err
	}
	if h.DeletedAt, err = parseNullTime("deleted_at", deletedAt); err != nil {
		return models.Habit{}, err
	}
	return h, nil
}

func (q *Queries) AddHabit(habit models.Habit) error {
	for _, p := range habit.Patterns {
		if err := recurrence.Validate(p); err != nil {
			return err
		}
	}

	tx, err := q.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(q.dialect.Rebind(`
		INSERT INTO habits (`+habitColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		habit.ID, habit.Name, boolInt(habit.IsBadHabit), habit.StartDate.String(),
		habit.BestStreakEver, habit.TotalCompletions, habit.StatsVersion,
		formatTime(habit.CreatedAt), nullTime(habit.ArchivedAt), nullTime(habit.DeletedAt))
	if err != nil {
		return fmt.Errorf("failed to insert habit: %w", err)
	}

	for _, p := range habit.Patterns {
		p.HabitID = habit.ID
		if err := q.insertPattern(tx, p); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (q *Queries) GetHabit(id string) (models.Habit, error) {
	row := q.queryRow(`SELECT `+habitColumns+` FROM habits WHERE id = ? AND deleted_at IS NULL`, id)
	return q.loadHabit(row, "id "+id)
}

func (q *Queries) GetHabitByName(name string) (models.Habit, error) {
	row := q.queryRow(`SELECT `+habitColumns+` FROM habits WHERE name = ? AND deleted_at IS NULL`, name)
	return q.loadHabit(row, fmt.Sprintf("%q", name))
}

func (q *Queries) loadHabit(row *sql.Row, ref string) (models.Habit, error) {
	h, err := scanHabit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Habit{}, fmt.Errorf("habit %s: %w", ref, storage.ErrNotFound)
	}
	if err != nil {
		return models.Habit{}, err
	}

	if h.Patterns, err = q.GetPatterns(h.ID); err != nil {
		return models.Habit{}, err
	}
	return h, nil
}

func (q *Queries) GetAllHabits(includeArchived, includeDeleted bool) ([]models.Habit, error) {
	query := "SELECT " + habitColumns + " FROM habits WHERE 1=1"
	if !includeDeleted {
		query += " AND deleted_at IS NULL"
	}
	if !includeArchived {
		query += " AND archived_at IS NULL"
	}
	query += " ORDER BY created_at, id"

	rows, err := q.query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var habits []models.Habit
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, err
		}
		habits = append(habits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	patterns, err := q.allPatterns()
	if err != nil {
		return nil, err
	}
	for i := range habits {
		habits[i].Patterns = patterns[habits[i].ID]
	}

	return habits, nil
}

// UpdateHabit upserts the habit's own fields. Patterns and cached aggregates
// are managed through AddPattern and UpdateHabitAggregates.
func (q *Queries) UpdateHabit(habit models.Habit) error {
	_, err := q.exec(`
		INSERT INTO habits (`+habitColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			is_bad_habit = excluded.is_bad_habit,
			start_date = excluded.start_date,
			archived_at = excluded.archived_at,
			deleted_at = excluded.deleted_at`,
		habit.ID, habit.Name, boolInt(habit.IsBadHabit), habit.StartDate.String(),
		habit.BestStreakEver, habit.TotalCompletions, habit.StatsVersion,
		formatTime(habit.CreatedAt), nullTime(habit.ArchivedAt), nullTime(habit.DeletedAt))
	return err
}

func (q *Queries) UpdateHabitAggregates(id string, totalCompletions, bestStreakEver, statsVersion int) error {
	return q.execAffecting(fmt.Errorf("habit %s: %w", id, storage.ErrNotFound), `
		UPDATE habits SET
			total_completions = ?,
			best_streak_ever = CASE WHEN best_streak_ever < ? THEN ? ELSE best_streak_ever END,
			stats_version = ?
		WHERE id = ?`,
		totalCompletions, bestStreakEver, bestStreakEver, statsVersion, id)
}

func (q *Queries) ArchiveHabit(id string) error {
	return q.execAffecting(fmt.Errorf("habit not found or already archived/deleted: %w", storage.ErrNotFound), `
		UPDATE habits SET archived_at = ? WHERE id = ? AND deleted_at IS NULL AND archived_at IS NULL`,
		formatTime(time.Now()), id)
}

func (q *Queries) UnarchiveHabit(id string) error {
	return q.execAffecting(fmt.Errorf("habit not found or not archived: %w", storage.ErrNotFound), `
		UPDATE habits SET archived_at = NULL WHERE id = ? AND deleted_at IS NULL AND archived_at IS NOT NULL`,
		id)
}

func (q *Queries) DeleteHabit(id string) error {
	return q.execAffecting(fmt.Errorf("habit not found or already deleted: %w", storage.ErrNotFound), `
		UPDATE habits SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`,
		formatTime(time.Now()), id)
}

func (q *Queries) RestoreHabit(id string) error {
	return q.execAffecting(fmt.Errorf("habit not found or not deleted: %w", storage.ErrNotFound), `
		UPDATE habits SET deleted_at = NULL WHERE id = ? AND deleted_at IS NOT NULL`,
		id)
}
