package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/cadence/internal/calendar"
	"github.com/julianstephens/cadence/internal/constants"
)

type RecurrenceKind string

const (
	KindDaily   RecurrenceKind = constants.RecurrenceDaily
	KindWeekly  RecurrenceKind = constants.RecurrenceWeekly
	KindMonthly RecurrenceKind = constants.RecurrenceMonthly
)

// Recurrence describes how a pattern repeats. It is a closed set:
// DailyGoal, WeeklyGoal and MonthlyGoal are the only implementations.
type Recurrence interface {
	Kind() RecurrenceKind
	sealed()
}

// DailyGoal repeats on a day cycle. When Days is empty the pattern is active
// every Interval-th day counted from EffectiveFrom (Interval 1 is every day).
// When Days is set it is a rotation whose length is a multiple of 7, aligned
// to the Monday on or before EffectiveFrom.
type DailyGoal struct {
	Interval int    `json:"interval,omitempty"`
	Days     []bool `json:"days,omitempty"`
}

// WeeklyGoal is active on the masked weekdays (Monday=0) of every Interval-th
// ISO week, counted from the week containing EffectiveFrom.
type WeeklyGoal struct {
	Interval int     `json:"interval"`
	Days     [7]bool `json:"days"`
}

// MonthlyGoal is active on the masked days of month (day 1 at index 0) of every
// Interval-th month, counted from the month containing EffectiveFrom. Days
// beyond a month's length are never reached.
type MonthlyGoal struct {
	Interval int      `json:"interval"`
	Days     [31]bool `json:"days"`
}

func (DailyGoal) Kind() RecurrenceKind   { return KindDaily }
func (WeeklyGoal) Kind() RecurrenceKind  { return KindWeekly }
func (MonthlyGoal) Kind() RecurrenceKind { return KindMonthly }

func (DailyGoal) sealed()   {}
func (WeeklyGoal) sealed()  {}
func (MonthlyGoal) sealed() {}

// IsRotation reports whether g uses a cyclic day mask instead of an interval.
func (g DailyGoal) IsRotation() bool {
	return len(g.Days) > 0
}

// RecurrencePattern is one schedule of a habit, in force from EffectiveFrom
// until a later pattern takes over.
type RecurrencePattern struct {
	ID            string       `json:"id"`
	HabitID       string       `json:"habit_id"`
	EffectiveFrom calendar.Day `json:"effective_from"`
	RepeatsPerDay int          `json:"repeats_per_day"`
	// FollowUp marks that a missed day's repetitions may carry over to the
	// next active day. It is stored but not yet used by any calculation.
	FollowUp   bool       `json:"follow_up"`
	Recurrence Recurrence `json:"-"`
	CreatedAt  time.Time  `json:"created_at"`
}

// EveryDay returns a daily goal active on every day.
func EveryDay() DailyGoal {
	return DailyGoal{Interval: 1}
}

// EveryNDays returns a daily goal active every n days.
func EveryNDays(n int) DailyGoal {
	return DailyGoal{Interval: n}
}

// DailyRotation returns a daily goal following a multi-week rotation mask.
func DailyRotation(days []bool) DailyGoal {
	return DailyGoal{Days: append([]bool(nil), days...)}
}

// WeeklyOn returns a weekly goal active every week on the given weekdays.
func WeeklyOn(days ...time.Weekday) WeeklyGoal {
	return EveryNWeeksOn(1, days...)
}

// EveryNWeeksOn returns a weekly goal active every n weeks on the given weekdays.
func EveryNWeeksOn(n int, days ...time.Weekday) WeeklyGoal {
	g := WeeklyGoal{Interval: n}
	for _, wd := range days {
		g.Days[calendar.WeekdayIndex(wd)] = true
	}
	return g
}

// MonthlyOn returns a monthly goal active every month on the given days of month.
// Days outside 1..31 are ignored.
func MonthlyOn(days ...int) MonthlyGoal {
	return EveryNMonthsOn(1, days...)
}

// EveryNMonthsOn returns a monthly goal active every n months on the given days of month.
func EveryNMonthsOn(n int, days ...int) MonthlyGoal {
	g := MonthlyGoal{Interval: n}
	for _, d := range days {
		if d >= 1 && d <= 31 {
			g.Days[d-1] = true
		}
	}
	return g
}

// EncodeMask renders a day mask as a string of '0' and '1'.
func EncodeMask(mask []bool) string {
	var b strings.Builder
	b.Grow(len(mask))
	for _, set := range mask {
		if set {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// DecodeMask parses a string of '0' and '1' into a day mask.
func DecodeMask(s string) ([]bool, error) {
	mask := make([]bool, len(s))
	for i, c := range s {
		switch c {
		case '1':
			mask[i] = true
		case '0':
		default:
			return nil, fmt.Errorf("invalid mask character %q at position %d", c, i)
		}
	}
	return mask, nil
}

// RecurrenceParts flattens a recurrence into its persisted columns.
func RecurrenceParts(r Recurrence) (kind RecurrenceKind, interval int, mask string) {
	switch g := r.(type) {
	case DailyGoal:
		return KindDaily, g.Interval, EncodeMask(g.Days)
	case WeeklyGoal:
		return KindWeekly, g.Interval, EncodeMask(g.Days[:])
	case MonthlyGoal:
		return KindMonthly, g.Interval, EncodeMask(g.Days[:])
	default:
		return "", 0, ""
	}
}

// RecurrenceFromParts rebuilds a recurrence from its persisted columns.
func RecurrenceFromParts(kind RecurrenceKind, interval int, mask string) (Recurrence, error) {
	days, err := DecodeMask(mask)
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindDaily:
		g := DailyGoal{Interval: interval}
		if len(days) > 0 {
			g.Days = days
		}
		return g, nil
	case KindWeekly:
		if len(days) != 7 {
			return nil, fmt.Errorf("weekly mask must have 7 days, got %d", len(days))
		}
		g := WeeklyGoal{Interval: interval}
		copy(g.Days[:], days)
		return g, nil
	case KindMonthly:
		if len(days) != 31 {
			return nil, fmt.Errorf("monthly mask must have 31 days, got %d", len(days))
		}
		g := MonthlyGoal{Interval: interval}
		copy(g.Days[:], days)
		return g, nil
	default:
		return nil, fmt.Errorf("unknown recurrence kind %q", kind)
	}
}

// DescribeRecurrence formats a recurrence into a human-readable string.
func DescribeRecurrence(r Recurrence) string {
	switch g := r.(type) {
	case DailyGoal:
		if g.IsRotation() {
			return fmt.Sprintf("%d-week rotation (%s)", len(g.Days)/7, EncodeMask(g.Days))
		}
		if g.Interval <= 1 {
			return "every day"
		}
		return fmt.Sprintf("every %d days", g.Interval)
	case WeeklyGoal:
		var days []string
		for i, set := range g.Days {
			if set {
				days = append(days, time.Weekday((i+1)%7).String()[:3])
			}
		}
		if g.Interval <= 1 {
			return fmt.Sprintf("weekly on %s", strings.Join(days, ","))
		}
		return fmt.Sprintf("every %d weeks on %s", g.Interval, strings.Join(days, ","))
	case MonthlyGoal:
		var days []string
		for i, set := range g.Days {
			if set {
				days = append(days, fmt.Sprintf("%d", i+1))
			}
		}
		if g.Interval <= 1 {
			return fmt.Sprintf("monthly on day %s", strings.Join(days, ","))
		}
		return fmt.Sprintf("every %d months on day %s", g.Interval, strings.Join(days, ","))
	default:
		return "unknown"
	}
}
