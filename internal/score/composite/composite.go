// Package composite turns a team's normalized parameter values into the
// overall strength score using the declared weight vector, and derives the
// local-league variant from aggregated scores.
package composite

import (
	"fmt"

	"github.com/gregleo12/spooky-football-engine/internal/domain"
	"github.com/gregleo12/spooky-football-engine/internal/score/normalize"
)

// Policy controls aggregation when a positively weighted parameter has no
// normalized value.
type Policy string

const (
	// PolicySkipRenormalize sums the present parameters and divides by the
	// sum of their weights; the record is marked partial via Confidence < 1.
	PolicySkipRenormalize Policy = "skip-and-renormalize"
	// PolicyStrictNull leaves the overall strength null whenever any weighted
	// parameter is missing.
	PolicyStrictNull Policy = "strict-null"
)

// ParsePolicy validates a policy name from configuration.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicySkipRenormalize, PolicyStrictNull:
		return Policy(s), nil
	case "":
		return PolicySkipRenormalize, nil
	default:
		return "", domain.NewError(domain.KindConfiguration, fmt.Sprintf("unknown partial_coverage_policy %q", s))
	}
}

// Aggregator combines normalized values with a frozen weight vector. The
// vector and policy are immutable for the Aggregator's lifetime; a refresh
// cycle constructs one and uses it throughout.
type Aggregator struct {
	weights domain.Weights
	policy  Policy
}

// NewAggregator validates the weight vector up front; an invalid vector is a
// configuration error and no Aggregator is returned.
func NewAggregator(weights domain.Weights, policy Policy) (*Aggregator, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	switch policy {
	case PolicySkipRenormalize, PolicyStrictNull:
	default:
		return nil, domain.NewError(domain.KindConfiguration, fmt.Sprintf("unknown partial_coverage_policy %q", policy))
	}
	return &Aggregator{weights: weights.Clone(), policy: policy}, nil
}

// Score is one team's aggregation result.
type Score struct {
	// Overall is Σ w_i · n_i in [0,1], or null when coverage rules leave it
	// undefined.
	Overall *float64
	// Confidence is the weight mass of the parameters that contributed.
	// 1.0 means full coverage.
	Confidence float64
	// Missing lists the positively weighted parameters that had no
	// normalized value, in frozen order.
	Missing []domain.Parameter
}

// Partial reports whether the score was built on incomplete coverage.
func (s Score) Partial() bool { return len(s.Missing) > 0 }

// Aggregate computes the overall strength for one team. The function is pure:
// identical inputs and configuration produce identical doubles. It never
// reads raw values.
func (a *Aggregator) Aggregate(normalized map[domain.Parameter]*float64) Score {
	var (
		weightedSum   float64
		presentWeight float64
		missing       []domain.Parameter
	)

	for _, p := range a.weights.Active() {
		n := normalized[p]
		if n == nil {
			missing = append(missing, p)
			continue
		}
		w := a.weights[p]
		weightedSum += w * *n
		presentWeight += w
	}

	score := Score{Confidence: presentWeight, Missing: missing}

	switch {
	case len(missing) == 0:
		score.Overall = domain.Float(weightedSum)
		score.Confidence = 1.0
	case a.policy == PolicyStrictNull:
		// Overall stays null; confidence reports what coverage existed.
	case presentWeight > 0:
		score.Overall = domain.Float(weightedSum / presentWeight)
	}
	return score
}

// Weights returns a copy of the active weight vector.
func (a *Aggregator) Weights() domain.Weights { return a.weights.Clone() }

// Policy returns the partial-coverage policy in force.
func (a *Aggregator) Policy() Policy { return a.policy }

// DeriveLocal rescales a competition's overall strengths onto [0,1] so the
// top team of every league sits at 1.0. Nulls pass through; the degenerate
// rules of the normalizer apply.
func DeriveLocal(overall map[int64]*float64) map[int64]*float64 {
	return normalize.Rescale(overall)
}
