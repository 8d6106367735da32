package domain

import (
	"fmt"
	"math"
)

// Parameter identifies one strength signal in the fixed parameter set.
// The set and its order are frozen; weight vectors, raw maps and normalized
// maps all key on it.
type Parameter string

const (
	ParamElo                   Parameter = "elo"
	ParamSquadValue            Parameter = "squad_value"
	ParamForm                  Parameter = "form"
	ParamSquadDepth            Parameter = "squad_depth"
	ParamKeyPlayerAvailability Parameter = "key_player_availability"
	ParamMotivation            Parameter = "motivation"
	ParamTacticalMatchup       Parameter = "tactical_matchup"
	ParamOffensiveRating       Parameter = "offensive_rating"
	ParamDefensiveRating       Parameter = "defensive_rating"
	ParamH2HPerformance        Parameter = "h2h_performance"
)

// parameterOrder is the frozen iteration order for all per-parameter work.
var parameterOrder = []Parameter{
	ParamElo,
	ParamSquadValue,
	ParamForm,
	ParamSquadDepth,
	ParamKeyPlayerAvailability,
	ParamMotivation,
	ParamTacticalMatchup,
	ParamOffensiveRating,
	ParamDefensiveRating,
	ParamH2HPerformance,
}

// Parameters returns the full parameter set in frozen order. The returned
// slice is a copy; callers may reorder it freely.
func Parameters() []Parameter {
	out := make([]Parameter, len(parameterOrder))
	copy(out, parameterOrder)
	return out
}

// ParseParameter validates a parameter name from configuration or storage.
func ParseParameter(s string) (Parameter, error) {
	p := Parameter(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown parameter %q", s)
	}
	return p, nil
}

// Valid reports whether p belongs to the fixed parameter set.
func (p Parameter) Valid() bool {
	for _, known := range parameterOrder {
		if p == known {
			return true
		}
	}
	return false
}

func (p Parameter) String() string { return string(p) }

// LowerIsBetter reports whether smaller raw values indicate a stronger team.
// Every parameter in the current set is higher-is-better; the flag exists so
// the normalizer can invert future additions without touching callers.
func (p Parameter) LowerIsBetter() bool {
	return false
}

// Weights maps each parameter to its share of the overall strength score.
type Weights map[Parameter]float64

// weightSumTolerance is the allowed deviation of the weight sum from 1.0.
const weightSumTolerance = 1e-6

// DefaultWeights returns the declared weight vector.
func DefaultWeights() Weights {
	return Weights{
		ParamElo:                   0.18,
		ParamSquadValue:            0.15,
		ParamForm:                  0.05,
		ParamSquadDepth:            0.02,
		ParamKeyPlayerAvailability: 0.10,
		ParamMotivation:            0.10,
		ParamTacticalMatchup:       0.10,
		ParamOffensiveRating:       0.10,
		ParamDefensiveRating:       0.10,
		ParamH2HPerformance:        0.10,
	}
}

// Validate checks the weight vector invariants: every key is a known
// parameter, no weight is negative, and the sum is 1.0 within tolerance.
// A violation is a configuration error and must abort startup.
func (w Weights) Validate() error {
	if len(w) == 0 {
		return NewError(KindConfiguration, "weight vector is empty")
	}
	sum := 0.0
	for p, weight := range w {
		if !p.Valid() {
			return NewError(KindConfiguration, fmt.Sprintf("unknown parameter %q in weights", p))
		}
		if weight < 0 {
			return NewError(KindConfiguration, fmt.Sprintf("negative weight %.6f for %s", weight, p))
		}
		sum += weight
	}
	if math.Abs(sum-1.0) > weightSumTolerance {
		return NewError(KindConfiguration, fmt.Sprintf("weights sum to %.8f, want 1.0 within %g", sum, weightSumTolerance))
	}
	return nil
}

// Active returns the positively weighted parameters in frozen order.
func (w Weights) Active() []Parameter {
	out := make([]Parameter, 0, len(w))
	for _, p := range parameterOrder {
		if w[p] > 0 {
			out = append(out, p)
		}
	}
	return out
}

// Clone returns an independent copy so a refresh cycle can freeze its view.
func (w Weights) Clone() Weights {
	out := make(Weights, len(w))
	for p, weight := range w {
		out[p] = weight
	}
	return out
}
