package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/julianstephens/cadence/internal/calendar"
	"github.com/julianstephens/cadence/internal/constants"
)

// Config is the optional config.toml. Command-line flags override it.
type Config struct {
	// Database is a SQLite file path or a password-less PostgreSQL URL.
	Database   string `toml:"database"`
	Timezone   string `toml:"timezone"`
	Debug      bool   `toml:"debug"`
	LogLevel   string `toml:"log_level,omitempty"`
	SeriesDays int    `toml:"series_days"`
}

// Paths returns standard XDG-compliant paths.
type Paths struct {
	ConfigDir  string
	ConfigFile string
	DBFile     string
}

// GetPaths returns the resolved paths, respecting XDG_CONFIG_HOME.
func GetPaths() Paths {
	home, _ := os.UserHomeDir()
	configDir := filepath.Join(envOr("XDG_CONFIG_HOME", filepath.Join(home, ".config")), constants.AppName)

	return Paths{
		ConfigDir:  configDir,
		ConfigFile: filepath.Join(configDir, "config.toml"),
		DBFile:     filepath.Join(configDir, constants.AppName+".db"),
	}
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Database:   GetPaths().DBFile,
		Timezone:   constants.DefaultTimezone,
		SeriesDays: constants.DefaultSeriesDays,
	}
}

// Load reads config from path, or from the default location when path is
// empty. A missing file yields defaults; unset keys keep their defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = GetPaths().ConfigFile
	}

	cfg := Default()
	data, err := os.ReadFile(ExpandHome(path))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	cfg.Database = ExpandHome(cfg.Database)
	return cfg, nil
}

// Save writes config to path, or to the default location when path is empty.
func Save(path string, cfg *Config) error {
	if path == "" {
		path = GetPaths().ConfigFile
	}
	path = ExpandHome(path)

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func (c *Config) Validate() error {
	if !calendar.ValidateTimezone(c.Timezone) {
		return fmt.Errorf("unknown timezone %q", c.Timezone)
	}
	if c.SeriesDays < 1 || c.SeriesDays > constants.MaxSeriesDays {
		return fmt.Errorf("series_days must be between 1 and %d, got %d", constants.MaxSeriesDays, c.SeriesDays)
	}
	return nil
}

// Overrides are values given on the command line. Zero values are unset.
type Overrides struct {
	Database   string
	Timezone   string
	Debug      bool
	SeriesDays int
}

// Apply layers command-line values over the file configuration.
func (c *Config) Apply(o Overrides) {
	if o.Database != "" {
		c.Database = ExpandHome(o.Database)
	}
	if o.Timezone != "" {
		c.Timezone = o.Timezone
	}
	if o.Debug {
		c.Debug = true
	}
	if o.SeriesDays > 0 {
		c.SeriesDays = o.SeriesDays
	}
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
