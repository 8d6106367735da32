package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// StorageConfig represents the persistence and cache configuration
type StorageConfig struct {
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
	Cache    CacheConfig    `yaml:"cache"`
}

// PostgresConfig represents the relational store configuration. The DSN is
// resolved from an environment variable so credentials stay out of files.
type PostgresConfig struct {
	DSNEnv           string `yaml:"dsn_env"`            // Env var holding the connection string
	MaxOpenConns     int    `yaml:"max_open_conns"`     // Connection pool ceiling
	MaxIdleConns     int    `yaml:"max_idle_conns"`     // Idle connections kept warm
	ConnLifetimeMins int    `yaml:"conn_lifetime_mins"` // Recycle connections after this age
	QueryTimeoutSecs int    `yaml:"query_timeout_secs"` // Per-query deadline
}

// RedisConfig represents the optional hot cache backend
type RedisConfig struct {
	Addr        string `yaml:"addr"`         // host:port, empty disables redis
	DB          int    `yaml:"db"`           // Logical database index
	PasswordEnv string `yaml:"password_env"` // Env var holding the password, optional
}

// CacheConfig selects the cache backend and its TTLs
type CacheConfig struct {
	Backend         string `yaml:"backend"`           // auto | memory | redis
	StrengthTTLSecs int    `yaml:"strength_ttl_secs"` // Strength snapshot TTL
	RankingTTLSecs  int    `yaml:"ranking_ttl_secs"`  // Ranking response TTL
	ProviderTTLSecs int    `yaml:"provider_ttl_secs"` // Upstream response TTL
}

// LoadStorageConfig loads storage configuration from YAML file
func LoadStorageConfig(configPath string) (*StorageConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read storage config: %w", err)
	}

	config := GetDefaultStorageConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse storage config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid storage config: %w", err)
	}

	return config, nil
}

// Validate ensures the storage configuration is consistent
func (c *StorageConfig) Validate() error {
	if c.Postgres.DSNEnv == "" {
		return fmt.Errorf("postgres dsn_env cannot be empty")
	}
	if c.Postgres.MaxOpenConns <= 0 {
		return fmt.Errorf("postgres max_open_conns must be positive, got %d", c.Postgres.MaxOpenConns)
	}
	if c.Postgres.MaxIdleConns < 0 {
		return fmt.Errorf("postgres max_idle_conns cannot be negative, got %d", c.Postgres.MaxIdleConns)
	}
	if c.Postgres.MaxIdleConns > c.Postgres.MaxOpenConns {
		return fmt.Errorf("postgres max_idle_conns (%d) cannot exceed max_open_conns (%d)",
			c.Postgres.MaxIdleConns, c.Postgres.MaxOpenConns)
	}
	if c.Postgres.QueryTimeoutSecs <= 0 {
		return fmt.Errorf("postgres query_timeout_secs must be positive, got %d", c.Postgres.QueryTimeoutSecs)
	}

	switch c.Cache.Backend {
	case "auto", "memory", "redis":
	default:
		return fmt.Errorf("cache backend must be auto, memory or redis, got %q", c.Cache.Backend)
	}
	if c.Cache.Backend == "redis" && c.Redis.Addr == "" {
		return fmt.Errorf("cache backend redis requires redis addr")
	}
	if c.Cache.StrengthTTLSecs <= 0 || c.Cache.RankingTTLSecs <= 0 || c.Cache.ProviderTTLSecs <= 0 {
		return fmt.Errorf("cache TTLs must be positive")
	}

	return nil
}

// DSN resolves the postgres connection string from the environment
func (c *PostgresConfig) DSN() string {
	return os.Getenv(c.DSNEnv)
}

// Password resolves the redis password from the environment
func (c *RedisConfig) Password() string {
	if c.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(c.PasswordEnv)
}

// GetConnLifetime returns the connection recycle age as a time.Duration
func (c *PostgresConfig) GetConnLifetime() time.Duration {
	return time.Duration(c.ConnLifetimeMins) * time.Minute
}

// GetQueryTimeout returns the per-query deadline as a time.Duration
func (c *PostgresConfig) GetQueryTimeout() time.Duration {
	return time.Duration(c.QueryTimeoutSecs) * time.Second
}

// GetStrengthTTL returns the strength snapshot TTL as a time.Duration
func (c *CacheConfig) GetStrengthTTL() time.Duration {
	return time.Duration(c.StrengthTTLSecs) * time.Second
}

// GetRankingTTL returns the ranking response TTL as a time.Duration
func (c *CacheConfig) GetRankingTTL() time.Duration {
	return time.Duration(c.RankingTTLSecs) * time.Second
}

// GetProviderTTL returns the upstream response TTL as a time.Duration
func (c *CacheConfig) GetProviderTTL() time.Duration {
	return time.Duration(c.ProviderTTLSecs) * time.Second
}

// GetDefaultStorageConfig returns the default storage configuration
func GetDefaultStorageConfig() *StorageConfig {
	return &StorageConfig{
		Postgres: PostgresConfig{
			DSNEnv:           "DATABASE_URL",
			MaxOpenConns:     10,
			MaxIdleConns:     5,
			ConnLifetimeMins: 30,
			QueryTimeoutSecs: 5,
		},
		Redis: RedisConfig{
			Addr:        "",
			DB:          0,
			PasswordEnv: "REDIS_PASSWORD",
		},
		Cache: CacheConfig{
			Backend:         "auto",
			StrengthTTLSecs: 300,
			RankingTTLSecs:  60,
			ProviderTTLSecs: 3600,
		},
	}
}
