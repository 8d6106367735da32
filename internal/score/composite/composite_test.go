package composite

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gregleo12/spooky-football-engine/internal/domain"
)

func TestAggregateFullCoverage(t *testing.T) {
	agg, err := NewAggregator(domain.DefaultWeights(), PolicySkipRenormalize)
	require.NoError(t, err)

	normalized := map[domain.Parameter]*float64{}
	for _, p := range domain.Parameters() {
		normalized[p] = domain.Float(0.5)
	}

	score := agg.Aggregate(normalized)
	require.NotNil(t, score.Overall, "full coverage must produce an overall strength")
	assert.InDelta(t, 0.5, *score.Overall, 1e-12, "uniform 0.5 inputs aggregate to 0.5")
	assert.Equal(t, 1.0, score.Confidence)
	assert.False(t, score.Partial())
}

func TestAggregateSkipAndRenormalize(t *testing.T) {
	// Reduced vector for legibility: elo 0.5, form 0.3, squad_value 0.2.
	weights := domain.Weights{
		domain.ParamElo:        0.5,
		domain.ParamForm:       0.3,
		domain.ParamSquadValue: 0.2,
	}
	agg, err := NewAggregator(weights, PolicySkipRenormalize)
	require.NoError(t, err)

	score := agg.Aggregate(map[domain.Parameter]*float64{
		domain.ParamElo:        domain.Float(0.8),
		domain.ParamForm:       nil,
		domain.ParamSquadValue: domain.Float(0.4),
	})

	require.NotNil(t, score.Overall)
	// (0.5*0.8 + 0.2*0.4) / (0.5 + 0.2) = 0.48 / 0.7
	assert.InDelta(t, 0.48/0.7, *score.Overall, 1e-9)
	assert.InDelta(t, 0.7, score.Confidence, 1e-9, "confidence is the present weight mass")
	assert.Equal(t, []domain.Parameter{domain.ParamForm}, score.Missing)
	assert.True(t, score.Partial())
}

func TestAggregateStrictNull(t *testing.T) {
	weights := domain.Weights{
		domain.ParamElo:        0.5,
		domain.ParamForm:       0.3,
		domain.ParamSquadValue: 0.2,
	}
	agg, err := NewAggregator(weights, PolicyStrictNull)
	require.NoError(t, err)

	score := agg.Aggregate(map[domain.Parameter]*float64{
		domain.ParamElo:        domain.Float(0.8),
		domain.ParamSquadValue: domain.Float(0.4),
	})

	assert.Nil(t, score.Overall, "strict mode returns null on any missing parameter")
	assert.Contains(t, score.Missing, domain.ParamForm)
	assert.InDelta(t, 0.7, score.Confidence, 1e-9)
}

func TestAggregateNoCoverageStaysNull(t *testing.T) {
	agg, err := NewAggregator(domain.DefaultWeights(), PolicySkipRenormalize)
	require.NoError(t, err)

	score := agg.Aggregate(map[domain.Parameter]*float64{})
	assert.Nil(t, score.Overall)
	assert.Equal(t, 0.0, score.Confidence)
	assert.Len(t, score.Missing, len(domain.Parameters()))
}

func TestAggregateLinearInEachParameter(t *testing.T) {
	// Shifting one normalized value by delta must shift the overall by
	// exactly weight*delta under full coverage.
	weights := domain.DefaultWeights()
	agg, err := NewAggregator(weights, PolicySkipRenormalize)
	require.NoError(t, err)

	base := map[domain.Parameter]*float64{}
	for _, p := range domain.Parameters() {
		base[p] = domain.Float(0.4)
	}
	baseScore := agg.Aggregate(base)
	require.NotNil(t, baseScore.Overall)

	const delta = 0.25
	for _, p := range domain.Parameters() {
		shifted := map[domain.Parameter]*float64{}
		for q, v := range base {
			shifted[q] = domain.Float(*v)
		}
		shifted[p] = domain.Float(*base[p] + delta)

		got := agg.Aggregate(shifted)
		require.NotNil(t, got.Overall)
		want := *baseScore.Overall + weights[p]*delta
		assert.InDeltaf(t, want, *got.Overall, 1e-12, "parameter %s broke linearity", p)
	}
}

func TestAggregateDeterministic(t *testing.T) {
	agg, err := NewAggregator(domain.DefaultWeights(), PolicySkipRenormalize)
	require.NoError(t, err)

	normalized := map[domain.Parameter]*float64{
		domain.ParamElo:             domain.Float(0.913),
		domain.ParamSquadValue:      domain.Float(0.441),
		domain.ParamForm:            domain.Float(0.207),
		domain.ParamOffensiveRating: domain.Float(0.88),
	}

	a := agg.Aggregate(normalized)
	b := agg.Aggregate(normalized)
	require.NotNil(t, a.Overall)
	require.NotNil(t, b.Overall)
	assert.Equal(t, *a.Overall, *b.Overall, "aggregation must be bit-for-bit deterministic")
	assert.Equal(t, a.Missing, b.Missing)
}

func TestNewAggregatorRejectsBadConfig(t *testing.T) {
	_, err := NewAggregator(domain.Weights{domain.ParamElo: 0.9}, PolicySkipRenormalize)
	require.Error(t, err, "weights summing to 0.9 must be rejected")
	assert.Equal(t, domain.KindConfiguration, domain.KindOf(err))

	_, err = NewAggregator(domain.DefaultWeights(), Policy("best-effort"))
	require.Error(t, err, "unknown policy must be rejected")
	assert.Equal(t, domain.KindConfiguration, domain.KindOf(err))
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicySkipRenormalize, p, "empty config selects the default policy")

	p, err = ParsePolicy("strict-null")
	require.NoError(t, err)
	assert.Equal(t, PolicyStrictNull, p)

	_, err = ParsePolicy("lenient")
	require.Error(t, err)
}

func TestDeriveLocal(t *testing.T) {
	overall := map[int64]*float64{
		1: domain.Float(0.71),
		2: domain.Float(0.55),
		3: domain.Float(0.32),
		4: nil,
	}

	local := DeriveLocal(overall)
	require.NotNil(t, local[1])
	assert.Equal(t, 1.0, *local[1], "league leader rescales to 1.0")
	assert.Equal(t, 0.0, *local[3], "bottom team rescales to 0.0")
	assert.Nil(t, local[4])

	mid := *local[2]
	want := (0.55 - 0.32) / (0.71 - 0.32)
	assert.True(t, math.Abs(mid-want) < 1e-12)
}
