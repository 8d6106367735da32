// Package odds converts two team-strength records into calibrated
// probabilities and decimal odds for the 1X2, over/under 2.5 and
// both-teams-to-score markets, plus an expected-goals figure and a
// most-likely scoreline.
package odds

import (
	"fmt"
	"math"
	"strings"

	"github.com/gregleo12/spooky-football-engine/internal/domain"
)

// Context describes how the pairing was resolved. It selects the strength
// variant and gates the home boost.
type Context string

const (
	ContextSameCompetition  Context = "same-competition"
	ContextCrossCompetition Context = "cross-competition"
	ContextNeutralVenue     Context = "neutral-venue"
)

// Variant names the strength column the engine selected.
type Variant string

const (
	VariantLocalLeague Variant = "local_league_strength"
	VariantEuropean    Variant = "european_strength"
)

// TeamStrengths is one side's resolved strength record, already read from
// the store. Attack and Defense are the normalized offensive and defensive
// ratings; nil values fall back to the selected strength.
type TeamStrengths struct {
	Name          string
	CompetitionID int64
	Season        string

	LocalLeague *float64
	European    *float64
	Overall     *float64

	Attack  *float64
	Defense *float64

	Confidence float64
	Missing    []domain.Parameter
}

// Refusal is the typed result when a requested team has no usable strength
// under the active coverage policy. It names the parameters that were
// missing so clients can explain the gap.
type Refusal struct {
	Team    string
	Missing []domain.Parameter
}

func (r *Refusal) Error() string {
	if len(r.Missing) == 0 {
		return fmt.Sprintf("no strength available for %s", r.Team)
	}
	names := make([]string, len(r.Missing))
	for i, p := range r.Missing {
		names[i] = string(p)
	}
	return fmt.Sprintf("no strength available for %s: missing %s", r.Team, strings.Join(names, ", "))
}

// Leg is one priced outcome: the raw probability and its decimal odds.
// Decimal carries full precision; rounding to two places happens at the
// response boundary via RoundOdds.
type Leg struct {
	Probability float64 `json:"probability"`
	Decimal     float64 `json:"decimal_odds"`
}

// Market1X2 is the three-way match outcome market.
type Market1X2 struct {
	Home Leg `json:"home"`
	Draw Leg `json:"draw"`
	Away Leg `json:"away"`
}

// MarketOverUnder is the over/under 2.5 goals market.
type MarketOverUnder struct {
	Line  float64 `json:"line"`
	Over  Leg     `json:"over"`
	Under Leg     `json:"under"`
}

// MarketBTTS is the both-teams-to-score market.
type MarketBTTS struct {
	Yes Leg `json:"yes"`
	No  Leg `json:"no"`
}

// Quote is a full priced response for one pairing.
type Quote struct {
	HomeTeam string `json:"home_team"`
	AwayTeam string `json:"away_team"`

	Context   Context `json:"context"`
	Variant   Variant `json:"variant"`
	Rationale string  `json:"rationale"`

	HomeStrength float64 `json:"home_strength"`
	AwayStrength float64 `json:"away_strength"`

	OneXTwo   Market1X2       `json:"match_outcome"`
	OverUnder MarketOverUnder `json:"over_under"`
	BTTS      MarketBTTS      `json:"btts"`

	ExpectedGoals float64 `json:"expected_goals"`
	Scoreline     string  `json:"most_likely_score"`

	// Confidence is the smaller coverage confidence of the two records.
	Confidence float64 `json:"confidence"`
}

// Engine prices pairings with a frozen configuration. Price is a pure
// function of its inputs and that configuration.
type Engine struct {
	cfg Config
}

// NewEngine validates the configuration once; the engine never mutates it.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

// Config returns the frozen configuration.
func (e *Engine) Config() Config { return e.cfg }

// Price computes the full odds payload for home vs away. neutral suppresses
// the home boost and the home goal-rate bump; the strength variant is still
// chosen by competition membership.
func (e *Engine) Price(home, away TeamStrengths, neutral bool) (*Quote, error) {
	sameComp := home.CompetitionID == away.CompetitionID && home.Season == away.Season

	variant := VariantEuropean
	if sameComp {
		variant = VariantLocalLeague
	}

	sH, err := selectStrength(home, variant)
	if err != nil {
		return nil, err
	}
	sA, err := selectStrength(away, variant)
	if err != nil {
		return nil, err
	}

	ctx := ContextCrossCompetition
	if neutral {
		ctx = ContextNeutralVenue
	} else if sameComp {
		ctx = ContextSameCompetition
	}

	q := &Quote{
		HomeTeam:     home.Name,
		AwayTeam:     away.Name,
		Context:      ctx,
		Variant:      variant,
		Rationale:    rationale(ctx, variant),
		HomeStrength: sH,
		AwayStrength: sA,
		Confidence:   math.Min(home.Confidence, away.Confidence),
	}

	pH, pD, pA := e.oneXTwo(sH, sA, neutral)
	q.OneXTwo = Market1X2{
		Home: e.leg(pH),
		Draw: e.leg(pD),
		Away: e.leg(pA),
	}

	lambdaH, lambdaA := e.lambdas(home, away, sH, sA, neutral)
	q.ExpectedGoals = lambdaH + lambdaA

	pOver := clamp(1-poissonCDF(2, q.ExpectedGoals), e.cfg.OverMin, e.cfg.OverMax)
	q.OverUnder = MarketOverUnder{
		Line:  2.5,
		Over:  e.leg(pOver),
		Under: e.leg(1 - pOver),
	}

	pYes := clamp((1-math.Exp(-lambdaH))*(1-math.Exp(-lambdaA)), e.cfg.BTTSMin, e.cfg.BTTSMax)
	q.BTTS = MarketBTTS{
		Yes: e.leg(pYes),
		No:  e.leg(1 - pYes),
	}

	q.Scoreline = scoreline(pH, pD, pA, q.ExpectedGoals)
	return q, nil
}

// selectStrength resolves the variant value with a deterministic fallback to
// the overall strength; a record with neither is refused.
func selectStrength(t TeamStrengths, variant Variant) (float64, error) {
	var v *float64
	switch variant {
	case VariantLocalLeague:
		v = t.LocalLeague
	default:
		v = t.European
	}
	if v == nil {
		v = t.Overall
	}
	if v == nil {
		return 0, &Refusal{Team: t.Name, Missing: t.Missing}
	}
	return *v, nil
}

func rationale(ctx Context, variant Variant) string {
	switch ctx {
	case ContextSameCompetition:
		return "both teams share a competition and season; strengths compared on " + string(variant)
	case ContextNeutralVenue:
		return "neutral venue, no home boost; strengths compared on " + string(variant)
	default:
		return "teams meet across competitions; strengths compared on " + string(variant)
	}
}

// oneXTwo implements the three-way market. The returned probabilities sum to
// 1.0 exactly: p_draw is carved out first and the win shares split the rest.
func (e *Engine) oneXTwo(sH, sA float64, neutral bool) (pH, pD, pA float64) {
	var shareH float64
	if sH+sA > 0 {
		shareH = sH / (sH + sA)
	} else {
		shareH = 0.5
	}
	shareA := 1 - shareH

	if !neutral {
		shareH *= 1 + e.cfg.HomeBoostAlpha
		shareA *= 1 - e.cfg.HomeBoostAlpha
		total := shareH + shareA
		shareH /= total
		shareA /= total
	}

	gap := math.Min(math.Abs(sH-sA)*e.cfg.DrawK, 1)
	pD = clamp(e.cfg.DrawMax-e.cfg.DrawBeta*gap, e.cfg.DrawMin, e.cfg.DrawMax)

	pH = (1 - pD) * shareH
	pA = (1 - pD) * shareA
	return pH, pD, pA
}

// lambdas derives per-side expected goal rates from the pairing of one
// side's attack profile with the other side's defense profile, falling back
// to the selected strengths when the profile values are null.
func (e *Engine) lambdas(home, away TeamStrengths, sH, sA float64, neutral bool) (float64, float64) {
	attackH := orFallback(home.Attack, sH)
	attackA := orFallback(away.Attack, sA)
	defenseH := orFallback(home.Defense, sH)
	defenseA := orFallback(away.Defense, sA)

	lambdaH := e.cfg.BaseLambda * (0.5 + attackH) * (1.5 - defenseA)
	lambdaA := e.cfg.BaseLambda * (0.5 + attackA) * (1.5 - defenseH)
	if !neutral {
		lambdaH *= e.cfg.HomeLambdaBump
	}
	return lambdaH, lambdaA
}

func orFallback(v *float64, fallback float64) float64 {
	if v != nil {
		return *v
	}
	return fallback
}

func (e *Engine) leg(p float64) Leg {
	return Leg{Probability: p, Decimal: (1 + e.cfg.Margin) / p}
}

// scoreline is the pure lookup from the dominant outcome bucket and the
// expected-goals level to a representative final score.
func scoreline(pH, pD, pA, e float64) string {
	switch {
	case pH > pD && pH > pA:
		if pH >= 0.60 {
			if e >= 3.25 {
				return "3-1"
			}
			return "2-0"
		}
		if e >= 2.75 {
			return "2-1"
		}
		return "1-0"
	case pA > pD && pA > pH:
		if pA >= 0.60 {
			if e >= 3.25 {
				return "1-3"
			}
			return "0-2"
		}
		if e >= 2.75 {
			return "1-2"
		}
		return "0-1"
	default:
		if e >= 3.25 {
			return "2-2"
		}
		return "1-1"
	}
}

// RoundOdds rounds decimal odds to two places for presentation. Engine
// output keeps full precision.
func RoundOdds(v float64) float64 {
	return math.Round(v*100) / 100
}
