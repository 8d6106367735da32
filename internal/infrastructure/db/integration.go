package db

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gregleo12/spooky-football-engine/internal/config"
	"github.com/gregleo12/spooky-football-engine/internal/persistence"
)

// Integration wires the storage configuration into a database manager and
// run archive for the rest of the application
type Integration struct {
	storage *config.StorageConfig
	manager *Manager
	archive *RunArchive
}

// NewIntegration creates a new storage integration with the given configuration
func NewIntegration(storage *config.StorageConfig, archiveDir string) (*Integration, error) {
	if storage == nil {
		storage = config.GetDefaultStorageConfig()
	}

	if err := storage.Validate(); err != nil {
		return nil, fmt.Errorf("invalid storage configuration: %w", err)
	}

	manager, err := NewManager(FromStorageConfig(storage))
	if err != nil {
		return nil, fmt.Errorf("failed to create database manager: %w", err)
	}

	integration := &Integration{
		storage: storage,
		manager: manager,
		archive: NewRunArchive(manager, archiveDir),
	}

	log.Info().
		Bool("db_enabled", manager.IsEnabled()).
		Str("cache_backend", storage.Cache.Backend).
		Str("archive_dir", archiveDir).
		Msg("Storage integration initialized")

	return integration, nil
}

// Manager returns the database manager for direct repository access
func (i *Integration) Manager() *Manager {
	return i.manager
}

// Repository returns the repository collection (nil if database disabled)
func (i *Integration) Repository() *persistence.Repository {
	if i.manager == nil {
		return nil
	}
	return i.manager.Repository()
}

// Archive returns the refresh run archive
func (i *Integration) Archive() *RunArchive {
	return i.archive
}

// Health returns the database health status
func (i *Integration) Health(ctx context.Context) persistence.HealthCheck {
	if i.manager == nil {
		return persistence.HealthCheck{
			Healthy:        true,
			Errors:         []string{"Database integration disabled"},
			ConnectionPool: map[string]int{"status": 0},
			LastCheck:      time.Now(),
			ResponseTimeMS: 0,
		}
	}

	return i.manager.Health().Health(ctx)
}

// IsEnabled returns whether database persistence is enabled
func (i *Integration) IsEnabled() bool {
	return i.manager != nil && i.manager.IsEnabled()
}

// Storage returns the storage configuration
func (i *Integration) Storage() *config.StorageConfig {
	return i.storage
}

// Close gracefully shuts down the database integration
func (i *Integration) Close() error {
	if i.manager == nil {
		return nil
	}

	log.Info().Msg("Closing database integration")
	return i.manager.Close()
}

// Migrate applies the schema and seeds the shipped competitions
func (i *Integration) Migrate(ctx context.Context) error {
	if !i.IsEnabled() {
		return fmt.Errorf("database is not enabled - cannot run migrations")
	}

	start := time.Now()
	if err := i.manager.Migrate(ctx); err != nil {
		return err
	}

	log.Info().
		Dur("elapsed", time.Since(start)).
		Msg("Database schema applied and competitions seeded")
	return nil
}

// Statistics returns database usage statistics
func (i *Integration) Statistics(ctx context.Context) map[string]interface{} {
	if !i.IsEnabled() {
		return map[string]interface{}{
			"enabled": false,
			"status":  "disabled",
		}
	}

	health := i.manager.Health()
	stats := health.Stats(ctx)

	repos := i.Repository()
	if repos != nil {
		timeRange := persistence.TimeRange{
			From: time.Now().Add(-30 * 24 * time.Hour),
			To:   time.Now(),
		}

		if matchCount, err := repos.Matches.CountFinished(ctx, timeRange); err == nil {
			stats["finished_matches_30d"] = matchCount
		}

		if run, err := repos.Runs.Latest(ctx); err == nil && run != nil {
			stats["last_refresh_id"] = run.ID
			stats["last_refresh_at"] = run.FinishedAt
			stats["last_refresh_failed"] = run.Failed
		}
	}

	return stats
}
