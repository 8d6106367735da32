package odds

import (
	"fmt"

	"github.com/gregleo12/spooky-football-engine/internal/domain"
)

// Config holds every constant the engine uses. It is frozen for the lifetime
// of an Engine so all numbers within a single response come from one set.
type Config struct {
	// HomeBoostAlpha multiplies the home win share by (1+alpha) and the away
	// share by (1-alpha) before renormalizing. Skipped at neutral venues.
	HomeBoostAlpha float64 `yaml:"home_boost_alpha"`

	// DrawBeta and DrawK govern how the draw probability falls with the
	// strength gap: p_draw = clamp(DrawMax - beta*min(|gap|*k, 1),
	// DrawMin, DrawMax). DrawMax doubles as the evenly-matched baseline.
	DrawBeta float64 `yaml:"draw_beta"`
	DrawK    float64 `yaml:"draw_k"`
	DrawMin  float64 `yaml:"draw_min"`
	DrawMax  float64 `yaml:"draw_max"`

	// Margin is the bookmaker overround: decimal odds = (1+margin)/p.
	Margin float64 `yaml:"margin"`

	// Over/under 2.5 and BTTS probability bounds.
	OverMin float64 `yaml:"over_min"`
	OverMax float64 `yaml:"over_max"`
	BTTSMin float64 `yaml:"btts_min"`
	BTTSMax float64 `yaml:"btts_max"`

	// BaseLambda is the per-team expected goals at league-average attack and
	// defense; HomeLambdaBump scales the home side's rate outside neutral
	// venues.
	BaseLambda     float64 `yaml:"base_lambda"`
	HomeLambdaBump float64 `yaml:"home_lambda_bump"`
}

// DefaultConfig returns the declared engine constants.
func DefaultConfig() Config {
	return Config{
		HomeBoostAlpha: 0.10,
		DrawBeta:       0.13,
		DrawK:          2.0,
		DrawMin:        0.20,
		DrawMax:        0.33,
		Margin:         0.05,
		OverMin:        0.35,
		OverMax:        0.75,
		BTTSMin:        0.35,
		BTTSMax:        0.80,
		BaseLambda:     1.30,
		HomeLambdaBump: 1.10,
	}
}

// Validate rejects configurations that would break the market invariants.
func (c Config) Validate() error {
	fail := func(format string, args ...interface{}) error {
		return domain.NewError(domain.KindConfiguration, fmt.Sprintf("odds config: "+format, args...))
	}
	if c.HomeBoostAlpha < 0 || c.HomeBoostAlpha >= 1 {
		return fail("home_boost_alpha %.4f outside [0,1)", c.HomeBoostAlpha)
	}
	if c.DrawBeta < 0 {
		return fail("draw_beta %.4f is negative", c.DrawBeta)
	}
	if c.DrawK <= 0 {
		return fail("draw_k %.4f must be positive", c.DrawK)
	}
	if c.DrawMin <= 0 || c.DrawMin > c.DrawMax || c.DrawMax >= 1 {
		return fail("draw clamp [%.4f, %.4f] must satisfy 0 < min <= max < 1", c.DrawMin, c.DrawMax)
	}
	if c.Margin < 0 || c.Margin >= 1 {
		return fail("margin %.4f outside [0,1)", c.Margin)
	}
	if c.OverMin <= 0 || c.OverMin > c.OverMax || c.OverMax >= 1 {
		return fail("over bounds [%.4f, %.4f] invalid", c.OverMin, c.OverMax)
	}
	if c.BTTSMin <= 0 || c.BTTSMin > c.BTTSMax || c.BTTSMax >= 1 {
		return fail("btts bounds [%.4f, %.4f] invalid", c.BTTSMin, c.BTTSMax)
	}
	if c.BaseLambda <= 0 {
		return fail("base_lambda %.4f must be positive", c.BaseLambda)
	}
	if c.HomeLambdaBump <= 0 {
		return fail("home_lambda_bump %.4f must be positive", c.HomeLambdaBump)
	}
	return nil
}
