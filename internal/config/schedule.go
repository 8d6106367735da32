package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gregleo12/spooky-football-engine/internal/domain"
)

// ScheduleConfig represents the refresh orchestration configuration
type ScheduleConfig struct {
	PoolSize     int           `yaml:"pool_size"`    // Concurrent collectors per provider
	Retry        RetryConfig   `yaml:"retry"`        // Transient failure retry policy
	Competitions []int64       `yaml:"competitions"` // Default competition scope
	Season       string        `yaml:"season"`       // Season label, e.g. "2024"
	TimeoutMins  int           `yaml:"timeout_mins"` // Hard deadline for one full run
	Jobs         []ScheduleJob `yaml:"jobs"`         // Cron-driven refresh jobs
}

// ScheduleJob represents one cron-driven refresh entry
type ScheduleJob struct {
	Name         string   `yaml:"name"`         // Unique job name, used in logs
	Cron         string   `yaml:"cron"`         // Standard 5-field cron expression
	Enabled      bool     `yaml:"enabled"`      // Disabled jobs stay registered but never fire
	Competitions []int64  `yaml:"competitions"` // Empty inherits the default scope
	Parameters   []string `yaml:"parameters"`   // Empty refreshes every parameter
}

// RetryConfig represents the retry policy for transient collector failures
type RetryConfig struct {
	InitialMS   int     `yaml:"initial_ms"`   // First retry delay
	Multiplier  float64 `yaml:"multiplier"`   // Exponential growth factor
	MaxMS       int     `yaml:"max_ms"`       // Delay ceiling
	MaxAttempts int     `yaml:"max_attempts"` // Attempts before giving up
}

// LoadScheduleConfig loads schedule configuration from YAML file
func LoadScheduleConfig(configPath string) (*ScheduleConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read schedule config: %w", err)
	}

	config := GetDefaultScheduleConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse schedule config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid schedule config: %w", err)
	}

	return config, nil
}

// Validate ensures the schedule configuration is usable
func (c *ScheduleConfig) Validate() error {
	if c.PoolSize <= 0 {
		return fmt.Errorf("pool_size must be positive, got %d", c.PoolSize)
	}
	if c.Season == "" {
		return fmt.Errorf("season cannot be empty")
	}
	if len(c.Competitions) == 0 {
		return fmt.Errorf("competitions cannot be empty")
	}
	if c.TimeoutMins <= 0 {
		return fmt.Errorf("timeout_mins must be positive, got %d", c.TimeoutMins)
	}
	if err := c.Retry.Validate(); err != nil {
		return err
	}

	names := make(map[string]bool, len(c.Jobs))
	for i, job := range c.Jobs {
		if err := job.Validate(); err != nil {
			return fmt.Errorf("job %d: %w", i, err)
		}
		if names[job.Name] {
			return fmt.Errorf("duplicate job name %q", job.Name)
		}
		names[job.Name] = true
	}
	return nil
}

// Validate ensures one job entry is usable
func (j *ScheduleJob) Validate() error {
	if j.Name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if j.Cron == "" {
		return fmt.Errorf("cron expression cannot be empty")
	}
	for _, p := range j.Parameters {
		if _, err := domain.ParseParameter(p); err != nil {
			return fmt.Errorf("job %q: %w", j.Name, err)
		}
	}
	return nil
}

// DomainParameters returns the job's parameter subset as typed parameters.
// Call Validate first; unknown names are dropped here.
func (j *ScheduleJob) DomainParameters() []domain.Parameter {
	out := make([]domain.Parameter, 0, len(j.Parameters))
	for _, p := range j.Parameters {
		parsed, err := domain.ParseParameter(p)
		if err != nil {
			continue
		}
		out = append(out, parsed)
	}
	return out
}

// Validate ensures the retry policy is sane
func (r *RetryConfig) Validate() error {
	if r.InitialMS <= 0 {
		return fmt.Errorf("retry initial_ms must be positive, got %d", r.InitialMS)
	}
	if r.Multiplier < 1 {
		return fmt.Errorf("retry multiplier must be >= 1, got %f", r.Multiplier)
	}
	if r.MaxMS < r.InitialMS {
		return fmt.Errorf("retry max_ms (%d) must be >= initial_ms (%d)", r.MaxMS, r.InitialMS)
	}
	if r.MaxAttempts <= 0 {
		return fmt.Errorf("retry max_attempts must be positive, got %d", r.MaxAttempts)
	}
	return nil
}

// GetInitialDelay returns the first retry delay as a time.Duration
func (r *RetryConfig) GetInitialDelay() time.Duration {
	return time.Duration(r.InitialMS) * time.Millisecond
}

// GetMaxDelay returns the retry delay ceiling as a time.Duration
func (r *RetryConfig) GetMaxDelay() time.Duration {
	return time.Duration(r.MaxMS) * time.Millisecond
}

// GetRunTimeout returns the full-run deadline as a time.Duration
func (c *ScheduleConfig) GetRunTimeout() time.Duration {
	return time.Duration(c.TimeoutMins) * time.Minute
}

// GetDefaultScheduleConfig returns a nightly refresh of the seeded competitions
func GetDefaultScheduleConfig() *ScheduleConfig {
	return &ScheduleConfig{
		PoolSize: 5,
		Retry: RetryConfig{
			InitialMS:   1000,
			Multiplier:  2.0,
			MaxMS:       60000,
			MaxAttempts: 5,
		},
		Competitions: []int64{39, 140, 135, 78, 61, 2, 3, 848},
		Season:       "2024",
		TimeoutMins:  30,
		Jobs: []ScheduleJob{
			{Name: "nightly", Cron: "0 3 * * *", Enabled: true},
		},
	}
}
