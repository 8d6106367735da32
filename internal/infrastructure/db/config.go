package db

import (
	"os"
	"strconv"
	"time"
)

// applyEnvOverrides applies environment variable overrides to database config.
// Deployment platforms inject DATABASE_URL; the PG_* knobs exist for tuning
// the pool without editing config files.
func applyEnvOverrides(config *Config) {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		config.DSN = dsn
		config.Enabled = true
	}

	if enabled := os.Getenv("PG_ENABLED"); enabled != "" {
		if val, err := strconv.ParseBool(enabled); err == nil {
			config.Enabled = val
		}
	}

	if maxOpen := os.Getenv("PG_MAX_OPEN_CONNS"); maxOpen != "" {
		if val, err := strconv.Atoi(maxOpen); err == nil {
			config.MaxOpenConns = val
		}
	}

	if maxIdle := os.Getenv("PG_MAX_IDLE_CONNS"); maxIdle != "" {
		if val, err := strconv.Atoi(maxIdle); err == nil {
			config.MaxIdleConns = val
		}
	}

	if maxLifetime := os.Getenv("PG_CONN_MAX_LIFETIME"); maxLifetime != "" {
		if val, err := time.ParseDuration(maxLifetime); err == nil {
			config.ConnMaxLifetime = val
		}
	}

	if maxIdleTime := os.Getenv("PG_CONN_MAX_IDLE_TIME"); maxIdleTime != "" {
		if val, err := time.ParseDuration(maxIdleTime); err == nil {
			config.ConnMaxIdleTime = val
		}
	}

	if queryTimeout := os.Getenv("PG_QUERY_TIMEOUT"); queryTimeout != "" {
		if val, err := time.ParseDuration(queryTimeout); err == nil {
			config.QueryTimeout = val
		}
	}
}
