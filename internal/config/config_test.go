package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gregleo12/spooky-football-engine/internal/domain"
	"github.com/gregleo12/spooky-football-engine/internal/score/composite"
)

func writeTempConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultConfigsValidate(t *testing.T) {
	require.NoError(t, GetDefaultEngineConfig().Validate())
	require.NoError(t, GetDefaultProvidersConfig().Validate())
	require.NoError(t, GetDefaultServerConfig().Validate())
	require.NoError(t, GetDefaultScheduleConfig().Validate())
	require.NoError(t, GetDefaultStorageConfig().Validate())
}

func TestLoadEngineConfigOverridesDefaults(t *testing.T) {
	path := writeTempConfig(t, "engine.yaml", `
coverage_policy: strict-null
odds:
  margin: 0.07
`)

	cfg, err := LoadEngineConfig(path)
	require.NoError(t, err)

	assert.Equal(t, composite.PolicyStrictNull, cfg.Policy())
	assert.InDelta(t, 0.07, cfg.Odds.Margin, 1e-12)
	// Untouched sections keep their defaults.
	assert.InDelta(t, 0.10, cfg.Odds.HomeBoostAlpha, 1e-12)
	assert.InDelta(t, 0.18, cfg.Weights["elo"], 1e-12)
}

func TestLoadEngineConfigRejectsBadWeights(t *testing.T) {
	path := writeTempConfig(t, "engine.yaml", `
weights:
  elo: 0.5
  form: 0.2
`)

	_, err := LoadEngineConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "weights")
}

func TestLoadProvidersConfig(t *testing.T) {
	path := writeTempConfig(t, "providers.yaml", `
budget:
  warn_threshold: 0.8
  reset_hour: 0
global:
  max_concurrent_per_host: 4
  user_agent: test-agent
providers:
  api_football:
    host: v3.football.api-sports.io
    base_url: https://v3.football.api-sports.io
    api_key_env: API_FOOTBALL_KEY
    auth_header: x-apisports-key
    rps: 2
    burst: 5
    daily_budget: 100
    ttl_secs: 600
    enabled: true
    backoff_ms:
      base: 500
      max: 30000
      jitter: true
    circuit:
      failure_threshold: 3
      success_threshold: 2
      timeout_ms: 5000
`)

	cfg, err := LoadProvidersConfig(path)
	require.NoError(t, err)

	p, ok := cfg.GetProvider("api_football")
	require.True(t, ok)
	assert.True(t, cfg.IsProviderEnabled("api_football"))
	assert.Equal(t, "x-apisports-key", p.AuthHeader)
	assert.Equal(t, 600, p.TTLSecs)
	assert.Equal(t, 10*60, int(p.GetCacheTTL().Seconds()))
	assert.Equal(t, 500, int(p.GetBaseBackoff().Milliseconds()))
}

func TestProvidersConfigRejectsMissingKeyEnv(t *testing.T) {
	cfg := GetDefaultProvidersConfig()
	p := cfg.Providers["api_football"]
	p.APIKeyEnv = ""
	cfg.Providers["api_football"] = p

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key_env")
}

func TestProviderAPIKeyFromEnv(t *testing.T) {
	t.Setenv("TEST_PROVIDER_KEY", "s3cret")

	p := ProviderConfig{APIKeyEnv: "TEST_PROVIDER_KEY"}
	assert.Equal(t, "s3cret", p.APIKey())

	p.APIKeyEnv = ""
	assert.Equal(t, "", p.APIKey())
}

func TestScheduleConfigValidation(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*ScheduleConfig)
		wantErr string
	}{
		{"zero pool", func(c *ScheduleConfig) { c.PoolSize = 0 }, "pool_size"},
		{"no competitions", func(c *ScheduleConfig) { c.Competitions = nil }, "competitions"},
		{"empty season", func(c *ScheduleConfig) { c.Season = "" }, "season"},
		{"shrinking retry", func(c *ScheduleConfig) { c.Retry.Multiplier = 0.5 }, "multiplier"},
		{"inverted retry bounds", func(c *ScheduleConfig) { c.Retry.MaxMS = 1 }, "max_ms"},
		{"nameless job", func(c *ScheduleConfig) { c.Jobs[0].Name = "" }, "name"},
		{"cronless job", func(c *ScheduleConfig) { c.Jobs[0].Cron = "" }, "cron"},
		{"unknown job parameter", func(c *ScheduleConfig) { c.Jobs[0].Parameters = []string{"vibes"} }, "vibes"},
		{"duplicate job names", func(c *ScheduleConfig) {
			c.Jobs = append(c.Jobs, ScheduleJob{Name: "nightly", Cron: "0 4 * * *"})
		}, "duplicate"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := GetDefaultScheduleConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoadScheduleConfigWithJobs(t *testing.T) {
	path := writeTempConfig(t, "schedule.yaml", `
season: "2025"
jobs:
  - name: nightly
    cron: "0 3 * * *"
    enabled: true
  - name: laliga-elo
    cron: "@hourly"
    enabled: true
    competitions: [140]
    parameters: [elo]
`)

	cfg, err := LoadScheduleConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "2025", cfg.Season)
	// Sections absent from the file keep their defaults.
	assert.Equal(t, 5, cfg.PoolSize)
	require.Len(t, cfg.Jobs, 2)
	assert.Equal(t, []int64{140}, cfg.Jobs[1].Competitions)
	assert.Equal(t, []domain.Parameter{domain.ParamElo}, cfg.Jobs[1].DomainParameters())
}

func TestStorageConfigValidation(t *testing.T) {
	cfg := GetDefaultStorageConfig()
	cfg.Cache.Backend = "memcached"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend")

	cfg = GetDefaultStorageConfig()
	cfg.Cache.Backend = "redis"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis addr")

	cfg = GetDefaultStorageConfig()
	cfg.Postgres.MaxIdleConns = cfg.Postgres.MaxOpenConns + 1
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_idle_conns")
}

func TestLoadServerConfigMissingFile(t *testing.T) {
	_, err := LoadServerConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
