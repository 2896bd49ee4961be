// Package config provides configuration management for tally.
//
// Two kinds of configuration exist:
//   - Config: the yaml file (~/.tally/config.yaml) telling the CLI which
//     storage backend to open.
//   - Configuration: user preferences persisted inside the database
//     MetaData table and round tripped by the controller.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	tallyerrors "github.com/randalmurphal/tally/internal/errors"
	"github.com/randalmurphal/tally/internal/util"
)

const (
	// ConfigFileName is the default config file name
	ConfigFileName = "config.yaml"
	// TallyDir is the tally configuration directory under the user's home
	TallyDir = ".tally"
	// DatabaseFileName is the default sqlite database file name
	DatabaseFileName = "tally.db"

	// DefaultHistoryLimit is the default number of undoable edits kept.
	DefaultHistoryLimit = 100
)

// Backend names accepted in DatabaseConfig.Backend.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// DatabaseConfig selects and locates the storage backend.
type DatabaseConfig struct {
	// Backend is one of sqlite, postgres, memory (default: sqlite)
	Backend string `yaml:"backend"`

	// DSN is the sqlite file path or the postgres connection string.
	// Empty means ~/.tally/tally.db for sqlite.
	DSN string `yaml:"dsn,omitempty"`
}

// Config represents the tally file configuration.
type Config struct {
	// Version is the config file version
	Version int `yaml:"version"`

	Database DatabaseConfig `yaml:"database"`

	// LogLevel is one of debug, info, warn, error (default: warn)
	LogLevel string `yaml:"log_level"`

	// HistoryLimit caps the undo history of interactive sessions
	HistoryLimit int `yaml:"history_limit"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Version: 1,
		Database: DatabaseConfig{
			Backend: BackendSQLite,
		},
		LogLevel:     "warn",
		HistoryLimit: DefaultHistoryLimit,
	}
}

// Dir returns ~/.tally.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determine home directory: %w", err)
	}
	return filepath.Join(home, TallyDir), nil
}

// DefaultPath returns ~/.tally/config.yaml.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName), nil
}

// Load loads the config from the default location.
func Load() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom loads the config from a specific path.
// A missing file yields the defaults.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Debug("config file not found, using defaults", "path", path)
			return Default(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// SaveTo saves the config to a specific path.
func (c *Config) SaveTo(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := util.WriteFileAtomic(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// Validate checks the config for values no backend can use.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Database.Backend) {
	case BackendSQLite, BackendMemory, "":
	case BackendPostgres:
		if c.Database.DSN == "" {
			return tallyerrors.ErrConfigInvalid("database.dsn", "postgres requires a connection string")
		}
	default:
		return tallyerrors.ErrUnknownBackend(c.Database.Backend)
	}
	if c.HistoryLimit < 0 {
		return tallyerrors.ErrConfigInvalid("history_limit", "must not be negative")
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return tallyerrors.ErrConfigInvalid("log_level", err.Error())
	}
	return nil
}

// BackendName returns the normalized backend name.
func (c *Config) BackendName() string {
	name := strings.ToLower(strings.TrimSpace(c.Database.Backend))
	if name == "" {
		return BackendSQLite
	}
	return name
}

// ResolveDSN returns the DSN to open. For sqlite without an explicit DSN
// this is ~/.tally/tally.db; memory always uses an in-memory database.
func (c *Config) ResolveDSN() (string, error) {
	switch c.BackendName() {
	case BackendMemory:
		return ":memory:", nil
	case BackendSQLite:
		if c.Database.DSN != "" {
			return c.Database.DSN, nil
		}
		dir, err := Dir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, DatabaseFileName), nil
	default:
		return c.Database.DSN, nil
	}
}

// ParseLogLevel maps a level name to slog.Level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning", "":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelWarn, fmt.Errorf("unknown log level %q", s)
	}
}
