package calendar

import (
	"fmt"
	"time"

	"github.com/julianstephens/cadence/internal/constants"
)

// Day is a calendar date with no time-of-day and no timezone.
// It is the key used to match completions to days.
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

// New returns the Day for the given year, month and day, normalising
// out-of-range values the same way time.Date does.
func New(year int, month time.Month, day int) Day {
	return FromTime(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// FromTime returns the calendar day of t as seen in t's own location.
func FromTime(t time.Time) Day {
	y, m, d := t.Date()
	return Day{Year: y, Month: m, Day: d}
}

// Parse parses a YYYY-MM-DD string.
func Parse(s string) (Day, error) {
	t, err := time.Parse(constants.DateFormat, s)
	if err != nil {
		return Day{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD): %w", s, err)
	}
	return FromTime(t), nil
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(s string) Day {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Day) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// IsZero reports whether d is the zero Day.
func (d Day) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// Time returns midnight UTC of d.
func (d Day) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// In returns midnight of d in loc.
func (d Day) In(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// AddDays returns d shifted by n days.
func (d Day) AddDays(n int) Day {
	return FromTime(d.Time().AddDate(0, 0, n))
}

// DaysSince returns the number of days from start to d. Negative when d is before start.
func (d Day) DaysSince(start Day) int {
	// UTC has no DST, so every day is exactly 24 hours.
	return int(d.Time().Sub(start.Time()).Hours() / 24)
}

// Compare returns -1, 0 or +1 depending on whether d is before, equal to or after other.
func (d Day) Compare(other Day) int {
	switch {
	case d.Year != other.Year:
		return cmpInt(d.Year, other.Year)
	case d.Month != other.Month:
		return cmpInt(int(d.Month), int(other.Month))
	default:
		return cmpInt(d.Day, other.Day)
	}
}

func (d Day) Before(other Day) bool { return d.Compare(other) < 0 }
func (d Day) After(other Day) bool  { return d.Compare(other) > 0 }
func (d Day) Equal(other Day) bool  { return d.Compare(other) == 0 }

// Weekday returns the Go weekday of d.
func (d Day) Weekday() time.Weekday {
	return d.Time().Weekday()
}

// WeekdayIndex returns the ISO weekday index of d with Monday=0 and Sunday=6,
// regardless of locale.
func (d Day) WeekdayIndex() int {
	return WeekdayIndex(d.Weekday())
}

// WeekdayIndex maps a Go weekday to Monday=0..Sunday=6.
func WeekdayIndex(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

// MondayOnOrBefore returns the Monday of the ISO week containing d.
func (d Day) MondayOnOrBefore() Day {
	return d.AddDays(-d.WeekdayIndex())
}

// WeeksSince returns the number of whole weeks between the Monday of start's
// week and the Monday of d's week.
func (d Day) WeeksSince(start Day) int {
	return floorDiv(d.MondayOnOrBefore().DaysSince(start.MondayOnOrBefore()), 7)
}

// MonthsSince returns the number of calendar months between start's month and d's month.
func (d Day) MonthsSince(start Day) int {
	return (d.Year-start.Year)*12 + int(d.Month) - int(start.Month)
}

// DaysInMonth returns the length of d's month.
func (d Day) DaysInMonth() int {
	return DaysIn(d.Year, d.Month)
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Range returns every day from start to end inclusive. Empty when end is before start.
func Range(start, end Day) []Day {
	n := end.DaysSince(start) + 1
	if n <= 0 {
		return nil
	}
	days := make([]Day, 0, n)
	for i := 0; i < n; i++ {
		days = append(days, start.AddDays(i))
	}
	return days
}

// Max returns the later of a and b.
func Max(a, b Day) Day {
	if a.After(b) {
		return a
	}
	return b
}

// Min returns the earlier of a and b.
func Min(a, b Day) Day {
	if a.Before(b) {
		return a
	}
	return b
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// MarshalText encodes d as YYYY-MM-DD. The zero Day encodes as an empty string.
func (d Day) MarshalText() ([]byte, error) {
	if d.IsZero() {
		return []byte{}, nil
	}
	return []byte(d.String()), nil
}

// UnmarshalText decodes a YYYY-MM-DD string. An empty string yields the zero Day.
func (d *Day) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*d = Day{}
		return nil
	}
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
