package recurrence

import (
	"errors"
	"fmt"

	"github.com/julianstephens/cadence/internal/models"
)

// ErrInvalidPattern is the sentinel every pattern configuration error wraps.
var ErrInvalidPattern = errors.New("invalid recurrence pattern")

// ConfigError describes a malformed recurrence pattern.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvalidPattern, e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidPattern
}

// Validate checks a pattern before it is stored. Evaluation never fails on a
// malformed pattern, but it may not do what the user intended, so callers
// that create patterns should reject anything Validate reports.
func Validate(p models.RecurrencePattern) error {
	if p.EffectiveFrom.IsZero() {
		return &ConfigError{Field: "effective_from", Reason: "must be set"}
	}
	if p.RepeatsPerDay < 1 {
		return &ConfigError{Field: "repeats_per_day", Reason: fmt.Sprintf("must be at least 1, got %d", p.RepeatsPerDay)}
	}

	switch g := p.Recurrence.(type) {
	case models.DailyGoal:
		if g.IsRotation() {
			if g.Interval > 1 {
				return &ConfigError{Field: "interval", Reason: "cannot be combined with a day rotation"}
			}
			if len(g.Days)%7 != 0 {
				return &ConfigError{Field: "days", Reason: fmt.Sprintf("rotation length must be a multiple of 7, got %d", len(g.Days))}
			}
			if !anySet(g.Days) {
				return &ConfigError{Field: "days", Reason: "rotation has no active day"}
			}
			return nil
		}
		if g.Interval < 1 {
			return &ConfigError{Field: "interval", Reason: fmt.Sprintf("must be at least 1, got %d", g.Interval)}
		}
	case models.WeeklyGoal:
		if g.Interval < 1 {
			return &ConfigError{Field: "interval", Reason: fmt.Sprintf("must be at least 1, got %d", g.Interval)}
		}
		if !anySet(g.Days[:]) {
			return &ConfigError{Field: "days", Reason: "no weekday selected"}
		}
	case models.MonthlyGoal:
		if g.Interval < 1 {
			return &ConfigError{Field: "interval", Reason: fmt.Sprintf("must be at least 1, got %d", g.Interval)}
		}
		if !anySet(g.Days[:]) {
			return &ConfigError{Field: "days", Reason: "no day of month selected"}
		}
	case nil:
		return &ConfigError{Field: "recurrence", Reason: "missing daily, weekly or monthly goal"}
	default:
		return &ConfigError{Field: "recurrence", Reason: fmt.Sprintf("unsupported type %T", g)}
	}

	return nil
}

func anySet(mask []bool) bool {
	for _, set := range mask {
		if set {
			return true
		}
	}
	return false
}
