package sqlstore

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/julianstephens/cadence/internal/calendar"
	"github.com/julianstephens/cadence/internal/models"
	"github.com/julianstephens/cadence/internal/storage"
)

const completionColumns = `id, habit_id, day, completed, note, created_at, deleted_at`

func scanCompletion(row scanner) (models.Completion, error) {
	var c models.Completion
	var day, createdAt string
	var completed int
	var deletedAt sql.NullString

	err := row.Scan(&c.ID, &c.HabitID, &day, &completed, &c.Note, &createdAt, &deletedAt)
	if err != nil {
		return models.Completion{}, err
	}

	if c.Day, err = calendar.Parse(day); err != nil {
		return models.Completion{}, fmt.Errorf("failed to parse day for completion %s: %w", c.ID, err)
	}
	if c.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return models.Completion{}, err
	}
	if c.DeletedAt, err = parseNullTime("deleted_at", deletedAt); err != nil {
		return models.Completion{}, err
	}
	c.Completed = completed != 0
	return c, nil
}

func (q *Queries) AddCompletion(c models.Completion) error {
	if c.Day.IsZero() {
		return fmt.Errorf("completion day must be set")
	}

	_, err := q.exec(`
		INSERT INTO completions (`+completionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.HabitID, c.Day.String(), boolInt(c.Completed), c.Note,
		formatTime(c.CreatedAt), nullTime(c.DeletedAt))
	if err != nil {
		return fmt.Errorf("failed to insert completion: %w", err)
	}
	return nil
}

func (q *Queries) GetCompletionsForHabit(habitID string, startDay, endDay calendar.Day) ([]models.Completion, error) {
	query := "SELECT " + completionColumns + " FROM completions WHERE habit_id = ? AND deleted_at IS NULL"
	args := []any{habitID}
	if !startDay.IsZero() {
		query += " AND day >= ?"
		args = append(args, startDay.String())
	}
	if !endDay.IsZero() {
		query += " AND day <= ?"
		args = append(args, endDay.String())
	}
	query += " ORDER BY day, created_at, id"

	return q.listCompletions(query, args...)
}

func (q *Queries) GetCompletionsForDay(day calendar.Day) ([]models.Completion, error) {
	return q.listCompletions(`
		SELECT `+completionColumns+` FROM completions
		WHERE day = ? AND deleted_at IS NULL
		ORDER BY created_at, id`, day.String())
}

func (q *Queries) listCompletions(query string, args ...any) ([]models.Completion, error) {
	rows, err := q.query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var completions []models.Completion
	for rows.Next() {
		c, err := scanCompletion(rows)
		if err != nil {
			return nil, err
		}
		completions = append(completions, c)
	}
	return completions, rows.Err()
}

func (q *Queries) DeleteCompletion(id string) error {
	return q.execAffecting(fmt.Errorf("completion not found or already deleted: %w", storage.ErrNotFound), `
		UPDATE completions SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`,
		formatTime(time.Now()), id)
}

func (q *Queries) RestoreCompletion(id string) error {
	return q.execAffecting(fmt.Errorf("completion not found or not deleted: %w", storage.ErrNotFound), `
		UPDATE completions SET deleted_at = NULL WHERE id = ? AND deleted_at IS NOT NULL`,
		id)
}
