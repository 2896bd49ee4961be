package config

import (
	"os"
	"strconv"
)

// EnvVarMapping defines the mapping between environment variables and config paths.
var EnvVarMapping = map[string]string{
	"TALLY_DB_BACKEND":    "database.backend",
	"TALLY_DB_DSN":        "database.dsn",
	"TALLY_LOG_LEVEL":     "log_level",
	"TALLY_HISTORY_LIMIT": "history_limit",
}

// ApplyEnvVars applies environment variable overrides to cfg.
// Returns a list of paths that were overridden.
func ApplyEnvVars(cfg *Config) []string {
	var overridden []string

	for envVar, configPath := range EnvVarMapping {
		value := os.Getenv(envVar)
		if value == "" {
			continue
		}

		if Set(cfg, configPath, value) {
			overridden = append(overridden, configPath)
		}
	}

	return overridden
}

// Set applies a single value to the config by path.
// Returns true if the value was applied.
func Set(cfg *Config, path string, value string) bool {
	switch path {
	case "database.backend":
		cfg.Database.Backend = value
	case "database.dsn":
		cfg.Database.DSN = value
	case "log_level":
		cfg.LogLevel = value
	case "history_limit":
		v, err := strconv.Atoi(value)
		if err != nil {
			return false
		}
		cfg.HistoryLimit = v
	default:
		return false
	}
	return true
}

// Get returns the value at path, as Set accepts it.
func Get(cfg *Config, path string) (string, bool) {
	switch path {
	case "database.backend":
		return cfg.Database.Backend, true
	case "database.dsn":
		return cfg.Database.DSN, true
	case "log_level":
		return cfg.LogLevel, true
	case "history_limit":
		return strconv.Itoa(cfg.HistoryLimit), true
	default:
		return "", false
	}
}

// Paths lists the paths accepted by Get and Set.
func Paths() []string {
	return []string{"database.backend", "database.dsn", "log_level", "history_limit"}
}
