package sqlstore

import (
	"database/sql"
	"fmt"

	"github.com/julianstephens/cadence/internal/calendar"
	"github.com/julianstephens/cadence/internal/models"
	"github.com/julianstephens/cadence/internal/recurrence"
	"github.com/julianstephens/cadence/internal/storage"
)

const patternColumns = `id, habit_id, effective_from, kind, interval_count, day_mask,
	repeats_per_day, follow_up, created_at`

func scanPattern(row scanner) (models.RecurrencePattern, error) {
	var p models.RecurrencePattern
	var effectiveFrom, kind, mask, createdAt string
	var interval, followUp int

	err := row.Scan(&p.ID, &p.HabitID, &effectiveFrom, &kind, &interval, &mask,
		&p.RepeatsPerDay, &followUp, &createdAt)
	if err != nil {
		return models.RecurrencePattern{}, err
	}

	if p.EffectiveFrom, err = calendar.Parse(effectiveFrom); err != nil {
		return models.RecurrencePattern{}, fmt.Errorf("failed to parse effective_from for pattern %s: %w", p.ID, err)
	}
	if p.Recurrence, err = models.RecurrenceFromParts(models.RecurrenceKind(kind), interval, mask); err != nil {
		return models.RecurrencePattern{}, fmt.Errorf("failed to decode pattern %s: %w", p.ID, err)
	}
	if p.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return models.RecurrencePattern{}, err
	}
	p.FollowUp = followUp != 0
	return p, nil
}

// AddPattern validates and stores a new pattern for an existing habit. A
// pattern sharing an EffectiveFrom with an older one supersedes it.
func (q *Queries) AddPattern(p models.RecurrencePattern) error {
	if err := recurrence.Validate(p); err != nil {
		return err
	}

	var exists int
	err := q.queryRow(`SELECT COUNT(*) FROM habits WHERE id = ? AND deleted_at IS NULL`, p.HabitID).Scan(&exists)
	if err != nil {
		return err
	}
	if exists == 0 {
		return fmt.Errorf("habit %s: %w", p.HabitID, storage.ErrNotFound)
	}

	tx, err := q.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := q.insertPattern(tx, p); err != nil {
		return err
	}
	return tx.Commit()
}

func (q *Queries) insertPattern(tx *sql.Tx, p models.RecurrencePattern) error {
	kind, interval, mask := models.RecurrenceParts(p.Recurrence)
	_, err := tx.Exec(q.dialect.Rebind(`
		INSERT INTO recurrence_patterns (`+patternColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		p.ID, p.HabitID, p.EffectiveFrom.String(), string(kind), interval, mask,
		p.RepeatsPerDay, boolInt(p.FollowUp), formatTime(p.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert pattern: %w", err)
	}
	return nil
}

// GetPatterns returns the habit's patterns ordered by EffectiveFrom, then by
// creation so the newest of same-day patterns is last.
func (q *Queries) GetPatterns(habitID string) ([]models.RecurrencePattern, error) {
	rows, err := q.query(`
		SELECT `+patternColumns+` FROM recurrence_patterns
		WHERE habit_id = ?
		ORDER BY effective_from, created_at, id`, habitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var patterns []models.RecurrencePattern
	for rows.Next() {
		p, err := scanPattern(rows)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, p)
	}
	return patterns, rows.Err()
}

func (q *Queries) allPatterns() (map[string][]models.RecurrencePattern, error) {
	rows, err := q.query(`
		SELECT ` + patternColumns + ` FROM recurrence_patterns
		ORDER BY habit_id, effective_from, created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byHabit := make(map[string][]models.RecurrencePattern)
	for rows.Next() {
		p, err := scanPattern(rows)
		if err != nil {
			return nil, err
		}
		byHabit[p.HabitID] = append(byHabit[p.HabitID], p)
	}
	return byHabit, rows.Err()
}
