package constants

const (
	SettingTimezone          = "timezone"
	SettingDefaultSeriesDays = "default_series_days"

	DefaultTimezone = "Local" // Use system local timezone by default
)
