package calendar

import (
	"fmt"
	"time"
)

// LoadLocation loads a timezone location from an IANA timezone name.
// If the timezone is "Local" or empty, it returns the system's local timezone.
func LoadLocation(timezone string) (*time.Location, error) {
	if timezone == "" || timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(timezone)
}

// NowInTimezone returns the current time in the specified timezone.
func NowInTimezone(timezone string) (time.Time, error) {
	loc, err := LoadLocation(timezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}
	return time.Now().In(loc), nil
}

// TodayInTimezone returns today's calendar day in the specified timezone.
// This ensures that "today" is determined by the user's configured timezone, not the system timezone.
func TodayInTimezone(timezone string) (Day, error) {
	now, err := NowInTimezone(timezone)
	if err != nil {
		return Day{}, err
	}
	return FromTime(now), nil
}

// ValidateTimezone checks if the timezone name is valid.
func ValidateTimezone(timezone string) bool {
	_, err := LoadLocation(timezone)
	return err == nil
}

// Clock returns "today". It is swapped out in tests.
type Clock func() Day

// SystemClock returns a Clock reading the current day in timezone, falling
// back to the local timezone when the name cannot be loaded.
func SystemClock(timezone string) Clock {
	return func() Day {
		today, err := TodayInTimezone(timezone)
		if err != nil {
			return FromTime(time.Now())
		}
		return today
	}
}

// Fixed returns a Clock that always reports d.
func Fixed(d Day) Clock {
	return func() Day { return d }
}
