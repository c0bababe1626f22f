package constants

import "time"

const (
	AppName            = "cadence"
	DefaultKeyringUser = "database-connection"
	DefaultConfigPath  = "~/.config/cadence/cadence.db"
	Version            = "v0.3.0"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "cadence-"
	BackupFileSuffix = ".db"

	// Recurrence kinds as persisted
	RecurrenceDaily   = "daily"
	RecurrenceWeekly  = "weekly"
	RecurrenceMonthly = "monthly"

	// Score constants
	ScoreWindowDays    = 30
	ScoreBaseMax       = 80
	ScoreStreakBonus   = 20
	ScoreMax           = ScoreBaseMax + ScoreStreakBonus
	DefaultSeriesDays  = 30
	MaxSeriesDays      = 3660
	SummaryRefreshRate = 2 * time.Minute

	// Stats cache version. Bump when the derived-data algorithms change so
	// cached values and persisted aggregates are recomputed.
	StatsCacheVersion = 1
)

// SeriesWindows are the preset consistency windows offered to charts.
var SeriesWindows = []int{14, 30, 90, 180, 365}
