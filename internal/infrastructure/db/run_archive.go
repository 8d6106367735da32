package db

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gregleo12/spooky-football-engine/internal/persistence"
)

// RunArchive stores refresh run summaries with dual persistence (file +
// database). The database is the primary store; every run is also written as
// a JSON file so the last refresh stays inspectable when postgres is
// disabled. Archiving is best-effort and never fails a refresh.
type RunArchive struct {
	manager  *Manager
	fileBase string
	enabled  bool
}

// NewRunArchive creates a run archive with optional database persistence
func NewRunArchive(manager *Manager, fileBasePath string) *RunArchive {
	return &RunArchive{
		manager:  manager,
		fileBase: fileBasePath,
		enabled:  manager != nil && manager.IsEnabled(),
	}
}

// Store records a completed run in the database and on disk
func (a *RunArchive) Store(ctx context.Context, run persistence.RunSummary) error {
	if err := a.storeToFile(run); err != nil {
		log.Warn().Err(err).
			Str("run_id", run.ID).
			Str("trigger", run.Trigger).
			Msg("Failed to archive run summary to file")
	}

	if a.enabled && a.manager.Repository() != nil {
		if err := a.manager.Repository().Runs.Insert(ctx, run); err != nil {
			log.Warn().Err(err).
				Str("run_id", run.ID).
				Str("trigger", run.Trigger).
				Msg("Failed to archive run summary to database")
		}
	}

	return nil
}

// Latest returns the most recent run (database first, file fallback), nil
// when no run has ever been archived
func (a *RunArchive) Latest(ctx context.Context) (*persistence.RunSummary, error) {
	if a.enabled && a.manager.Repository() != nil {
		if run, err := a.manager.Repository().Runs.Latest(ctx); err == nil && run != nil {
			return run, nil
		}
	}

	runs, err := a.listFromFiles()
	if err != nil || len(runs) == 0 {
		return nil, err
	}
	return &runs[0], nil
}

// List returns recent runs newest first (database first, file fallback)
func (a *RunArchive) List(ctx context.Context, limit int) ([]persistence.RunSummary, error) {
	if a.enabled && a.manager.Repository() != nil {
		if runs, err := a.manager.Repository().Runs.List(ctx, limit); err == nil && len(runs) > 0 {
			return runs, nil
		}
	}

	runs, err := a.listFromFiles()
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (a *RunArchive) storeToFile(run persistence.RunSummary) error {
	if a.fileBase == "" {
		return nil // File archiving disabled
	}

	// Directory structure: fileBase/YYYY/MM/DD/
	started := run.StartedAt.UTC()
	dir := filepath.Join(a.fileBase, started.Format("2006"), started.Format("01"), started.Format("02"))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	// File name: HH-MM-SS-trigger-runid.json
	filename := fmt.Sprintf("%s-%s-%s.json", started.Format("15-04-05"), run.Trigger, run.ID)
	path := filepath.Join(dir, filename)

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run summary: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file %s: %w", path, err)
	}

	return nil
}

func (a *RunArchive) listFromFiles() ([]persistence.RunSummary, error) {
	if a.fileBase == "" {
		return nil, nil
	}
	if _, err := os.Stat(a.fileBase); os.IsNotExist(err) {
		return nil, nil
	}

	var runs []persistence.RunSummary

	err := filepath.Walk(a.fileBase, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}

		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return readErr
		}

		var run persistence.RunSummary
		if unmarshalErr := json.Unmarshal(data, &run); unmarshalErr != nil {
			// Skip files that are not run summaries
			return nil
		}
		if run.ID == "" {
			return nil
		}

		runs = append(runs, run)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan run archive: %w", err)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	return runs, nil
}

// Prune removes archived files older than the retention window
func (a *RunArchive) Prune(retention time.Duration) error {
	if a.fileBase == "" {
		return nil
	}
	if _, err := os.Stat(a.fileBase); os.IsNotExist(err) {
		return nil
	}

	cutoff := time.Now().Add(-retention)

	return filepath.Walk(a.fileBase, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		if info.ModTime().Before(cutoff) {
			if rmErr := os.Remove(path); rmErr != nil {
				log.Warn().Err(rmErr).Str("path", path).Msg("Failed to prune archived run")
			}
		}
		return nil
	})
}
