package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gregleo12/spooky-football-engine/internal/collect"
	"github.com/gregleo12/spooky-football-engine/internal/config"
	"github.com/gregleo12/spooky-football-engine/internal/infrastructure/cache"
	"github.com/gregleo12/spooky-football-engine/internal/infrastructure/db"
	ihttp "github.com/gregleo12/spooky-football-engine/internal/interfaces/http"
	"github.com/gregleo12/spooky-football-engine/internal/odds"
	"github.com/gregleo12/spooky-football-engine/internal/orchestrator"
	"github.com/gregleo12/spooky-football-engine/internal/persistence"
	"github.com/gregleo12/spooky-football-engine/internal/providers/apifootball"
	"github.com/gregleo12/spooky-football-engine/internal/providers/guard"
	"github.com/gregleo12/spooky-football-engine/internal/score/composite"
)

// providerName is the config key of the fixture provider every collector
// reads through.
const providerName = "api_football"

// appConfig bundles the per-concern configuration files. Any file absent
// from the config directory falls back to the shipped defaults so a bare
// checkout still runs.
type appConfig struct {
	Engine    *config.EngineConfig
	Providers *config.ProvidersConfig
	Schedule  *config.ScheduleConfig
	Server    *config.ServerConfig
	Storage   *config.StorageConfig
}

func loadConfigs(dir string) (*appConfig, error) {
	cfg := &appConfig{
		Engine:    config.GetDefaultEngineConfig(),
		Providers: config.GetDefaultProvidersConfig(),
		Schedule:  config.GetDefaultScheduleConfig(),
		Server:    config.GetDefaultServerConfig(),
		Storage:   config.GetDefaultStorageConfig(),
	}

	loaders := []struct {
		file string
		load func(path string) error
	}{
		{"engine.yaml", func(p string) error {
			c, err := config.LoadEngineConfig(p)
			if err == nil {
				cfg.Engine = c
			}
			return err
		}},
		{"providers.yaml", func(p string) error {
			c, err := config.LoadProvidersConfig(p)
			if err == nil {
				cfg.Providers = c
			}
			return err
		}},
		{"schedule.yaml", func(p string) error {
			c, err := config.LoadScheduleConfig(p)
			if err == nil {
				cfg.Schedule = c
			}
			return err
		}},
		{"server.yaml", func(p string) error {
			c, err := config.LoadServerConfig(p)
			if err == nil {
				cfg.Server = c
			}
			return err
		}},
		{"storage.yaml", func(p string) error {
			c, err := config.LoadStorageConfig(p)
			if err == nil {
				cfg.Storage = c
			}
			return err
		}},
	}

	for _, l := range loaders {
		path := filepath.Join(dir, l.file)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			log.Debug().Str("file", path).Msg("Config file absent, using defaults")
			continue
		}
		if err := l.load(path); err != nil {
			return nil, fmt.Errorf("loading %s: %w", l.file, err)
		}
	}

	return cfg, nil
}

// app is the assembled process: storage, response cache, provider guards,
// collectors, orchestrator and the query surface. Commands build one app,
// use the pieces they need and Close it.
type app struct {
	cfg         *appConfig
	integration *db.Integration
	repos       *persistence.Repository
	cache       cache.Cache
	guards      *guard.Set
	metrics     *ihttp.Metrics
	service     *ihttp.Service
	hub         *ihttp.Hub
	orch        *orchestrator.Orchestrator
}

// runSink adapts the dual-write run archive to the orchestrator's run
// store so every refresh lands in postgres and on disk.
type runSink struct {
	archive *db.RunArchive
}

func (r runSink) Insert(ctx context.Context, run persistence.RunSummary) error {
	return r.archive.Store(ctx, run)
}

func buildApp(cmd *cobra.Command) (*app, error) {
	configDir, _ := cmd.Flags().GetString("config")
	artifactsDir, _ := cmd.Flags().GetString("artifacts")

	cfg, err := loadConfigs(configDir)
	if err != nil {
		return nil, err
	}

	integration, err := db.NewIntegration(cfg.Storage, filepath.Join(artifactsDir, "runs"))
	if err != nil {
		return nil, err
	}

	repos := integration.Repository()
	if repos == nil {
		_ = integration.Close()
		return nil, fmt.Errorf("database is not configured: set %s to a postgres connection string", cfg.Storage.Postgres.DSNEnv)
	}

	responseCache := cache.NewAuto(cfg.Storage)
	guards := guard.NewSet(cfg.Providers, responseCache)
	metrics := ihttp.NewMetrics()

	engine, err := odds.NewEngine(cfg.Engine.Odds)
	if err != nil {
		_ = integration.Close()
		return nil, err
	}

	service, err := ihttp.NewService(ihttp.ServiceDeps{
		Repos:   repos,
		Engine:  engine,
		Cache:   responseCache,
		Season:  cfg.Schedule.Season,
		TTLs:    cfg.Storage.Cache,
		Metrics: metrics,
	})
	if err != nil {
		_ = integration.Close()
		return nil, err
	}

	// Finished runs change stored scores, so the query cache drops its
	// generation whenever the hub sees one.
	hub := ihttp.NewHub(metrics, func(e orchestrator.Event) {
		if e.Type == orchestrator.EventRunFinished {
			service.Invalidate()
		}
	})

	a := &app{
		cfg:         cfg,
		integration: integration,
		repos:       repos,
		cache:       responseCache,
		guards:      guards,
		metrics:     metrics,
		service:     service,
		hub:         hub,
	}

	providerCfg, ok := cfg.Providers.Providers[providerName]
	if !ok || !providerCfg.Enabled {
		log.Warn().Str("provider", providerName).Msg("Fixture provider disabled, refresh unavailable")
		return a, nil
	}

	g, ok := guards.Get(providerName)
	if !ok {
		_ = integration.Close()
		return nil, fmt.Errorf("no guard built for provider %s", providerName)
	}
	client, err := apifootball.New(providerCfg, cfg.Providers.Global, g)
	if err != nil {
		_ = integration.Close()
		return nil, err
	}

	aggregator, err := composite.NewAggregator(cfg.Engine.DomainWeights(), cfg.Engine.Policy())
	if err != nil {
		_ = integration.Close()
		return nil, err
	}

	orch, err := orchestrator.New(orchestrator.Deps{
		Competitions: repos.Competitions,
		Teams:        repos.Teams,
		Strengths:    repos.Strengths,
		Runs:         runSink{archive: integration.Archive()},
		Syncer:       collect.NewIngestor(client, repos.Teams, repos.Matches),
		Collectors:   collect.NewSet(repos.Matches, repos.Teams, client),
		Aggregator:   aggregator,
		Schedule:     cfg.Schedule,
		Events:       a.hub,
	})
	if err != nil {
		_ = integration.Close()
		return nil, err
	}
	a.orch = orch

	return a, nil
}

func (a *app) Close() {
	if err := a.integration.Close(); err != nil {
		log.Warn().Err(err).Msg("Closing storage failed")
	}
}
