package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig represents the HTTP server configuration
type ServerConfig struct {
	Addr              string `yaml:"addr"`                // Listen address, host:port
	ReadTimeoutSecs   int    `yaml:"read_timeout_secs"`   // Request read timeout
	WriteTimeoutSecs  int    `yaml:"write_timeout_secs"`  // Response write timeout
	IdleTimeoutSecs   int    `yaml:"idle_timeout_secs"`   // Keep-alive idle timeout
	ShutdownGraceSecs int    `yaml:"shutdown_grace_secs"` // Drain window on shutdown
}

// LoadServerConfig loads server configuration from YAML file
func LoadServerConfig(configPath string) (*ServerConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read server config: %w", err)
	}

	config := GetDefaultServerConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse server config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server config: %w", err)
	}

	return config, nil
}

// Validate ensures the server configuration is usable
func (c *ServerConfig) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr cannot be empty")
	}
	if c.ReadTimeoutSecs <= 0 {
		return fmt.Errorf("read_timeout_secs must be positive, got %d", c.ReadTimeoutSecs)
	}
	if c.WriteTimeoutSecs <= 0 {
		return fmt.Errorf("write_timeout_secs must be positive, got %d", c.WriteTimeoutSecs)
	}
	if c.IdleTimeoutSecs <= 0 {
		return fmt.Errorf("idle_timeout_secs must be positive, got %d", c.IdleTimeoutSecs)
	}
	if c.ShutdownGraceSecs <= 0 {
		return fmt.Errorf("shutdown_grace_secs must be positive, got %d", c.ShutdownGraceSecs)
	}
	return nil
}

// GetReadTimeout returns the read timeout as a time.Duration
func (c *ServerConfig) GetReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutSecs) * time.Second
}

// GetWriteTimeout returns the write timeout as a time.Duration
func (c *ServerConfig) GetWriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutSecs) * time.Second
}

// GetIdleTimeout returns the idle timeout as a time.Duration
func (c *ServerConfig) GetIdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutSecs) * time.Second
}

// GetShutdownGrace returns the shutdown drain window as a time.Duration
func (c *ServerConfig) GetShutdownGrace() time.Duration {
	return time.Duration(c.ShutdownGraceSecs) * time.Second
}

// GetDefaultServerConfig returns the default server configuration
func GetDefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Addr:              ":8080",
		ReadTimeoutSecs:   15,
		WriteTimeoutSecs:  30,
		IdleTimeoutSecs:   60,
		ShutdownGraceSecs: 10,
	}
}
