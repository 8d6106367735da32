package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gregleo12/spooky-football-engine/internal/domain"
	"github.com/gregleo12/spooky-football-engine/internal/odds"
	"github.com/gregleo12/spooky-football-engine/internal/score/composite"
)

// EngineConfig represents the scoring and pricing configuration
type EngineConfig struct {
	Weights        map[string]float64 `yaml:"weights"`         // Parameter name -> weight, must sum to 1.0
	CoveragePolicy string             `yaml:"coverage_policy"` // skip-and-renormalize | strict-null
	Odds           odds.Config        `yaml:"odds"`            // Pricing constants
}

// LoadEngineConfig loads engine configuration from YAML file
func LoadEngineConfig(configPath string) (*EngineConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read engine config: %w", err)
	}

	config := GetDefaultEngineConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse engine config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}

	return config, nil
}

// Validate ensures weights, policy and odds constants are consistent
func (c *EngineConfig) Validate() error {
	if err := c.DomainWeights().Validate(); err != nil {
		return fmt.Errorf("weights: %w", err)
	}
	if _, err := composite.ParsePolicy(c.CoveragePolicy); err != nil {
		return fmt.Errorf("coverage_policy: %w", err)
	}
	if err := c.Odds.Validate(); err != nil {
		return fmt.Errorf("odds: %w", err)
	}
	return nil
}

// DomainWeights converts the YAML weight map to the typed weight set
func (c *EngineConfig) DomainWeights() domain.Weights {
	w := make(domain.Weights, len(c.Weights))
	for name, weight := range c.Weights {
		w[domain.Parameter(name)] = weight
	}
	return w
}

// Policy returns the parsed coverage policy
func (c *EngineConfig) Policy() composite.Policy {
	p, err := composite.ParsePolicy(c.CoveragePolicy)
	if err != nil {
		return composite.PolicySkipRenormalize
	}
	return p
}

// GetDefaultEngineConfig returns the shipped weight model and pricing constants
func GetDefaultEngineConfig() *EngineConfig {
	defaults := domain.DefaultWeights()
	weights := make(map[string]float64, len(defaults))
	for p, w := range defaults {
		weights[string(p)] = w
	}
	return &EngineConfig{
		Weights:        weights,
		CoveragePolicy: string(composite.PolicySkipRenormalize),
		Odds:           odds.DefaultConfig(),
	}
}
