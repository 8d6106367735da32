package collect

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gregleo12/spooky-football-engine/internal/domain"
	"github.com/gregleo12/spooky-football-engine/internal/providers/apifootball"
)

func TestMotivationScore(t *testing.T) {
	tests := []struct {
		name         string
		position     int
		total        int
		behindLeader int
		aboveDrop    int
		want         float64
	}{
		{
			name:     "runaway leader",
			position: 1, total: 20, behindLeader: 0, aboveDrop: 40,
			// 0.97 for the position plus the title-race bump, clamped.
			want: 1.0,
		},
		{
			name:     "fourth chasing the title",
			position: 4, total: 20, behindLeader: 3, aboveDrop: 30,
			// 0.85 + (0.05/0.25)*0.15 + 0.10
			want: 0.98,
		},
		{
			name:     "european hopeful",
			position: 6, total: 20, behindLeader: 12, aboveDrop: 25,
			// 0.70 + (0.05/0.10)*0.10
			want: 0.75,
		},
		{
			name:     "safe mid-table",
			position: 10, total: 20, behindLeader: 20, aboveDrop: 15,
			want: 0.25,
		},
		{
			name:     "upper mid-table drift",
			position: 8, total: 20, behindLeader: 18, aboveDrop: 20,
			// 0.25 + (0.1/0.5)*0.35
			want: 0.32,
		},
		{
			name:     "relegation battle",
			position: 18, total: 20, behindLeader: 40, aboveDrop: 6,
			// 0.90 + (0.05/0.15)*0.10, no survival bump at 6 points clear.
			want: 0.9333333333,
		},
		{
			name:     "cut adrift at the bottom",
			position: 20, total: 20, behindLeader: 50, aboveDrop: -8,
			// Bottom of the table plus the survival bump, clamped.
			want: 1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := motivationScore(tt.position, tt.total, tt.behindLeader, tt.aboveDrop)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func motivationTable() []apifootball.Standing {
	rows := []apifootball.Standing{
		{Rank: 1, Team: apifootball.TeamRef{ID: 10, Name: "Arsenal"}, Points: 84},
		{Rank: 2, Team: apifootball.TeamRef{ID: 20, Name: "Chelsea"}, Points: 74},
	}
	// Fill a 20-team table with descending points.
	for i := 3; i <= 20; i++ {
		rows = append(rows, apifootball.Standing{
			Rank:   i,
			Team:   apifootball.TeamRef{ID: int64(i * 10), Name: "Team"},
			Points: 70 - i*2,
		})
	}
	return rows
}

func TestMotivationCollect(t *testing.T) {
	provider := &fakeProvider{standings: motivationTable()}

	res, err := NewMotivation(provider).Collect(context.Background(), testTarget(10, "Arsenal"))
	require.NoError(t, err)
	assert.Equal(t, domain.ParamMotivation, res.Parameter)

	// Leader on 84 points: position score 0.97 plus the title bump.
	assert.InDelta(t, 1.0, res.Value, 1e-9)
}

func TestMotivationCollectMatchesByName(t *testing.T) {
	provider := &fakeProvider{standings: motivationTable()}

	target := testTarget(999, "chelsea")
	target.Team.ProviderTeamID = nil

	res, err := NewMotivation(provider).Collect(context.Background(), target)
	require.NoError(t, err)

	// Second of twenty: ratio 0.10, still in the title band, 10 points
	// back so no bump.
	assert.InDelta(t, 0.94, res.Value, 1e-9)
}

func TestMotivationTeamNotInTable(t *testing.T) {
	provider := &fakeProvider{standings: motivationTable()}

	_, err := NewMotivation(provider).Collect(context.Background(), testTarget(555, "Wrexham"))
	require.Error(t, err)
	assert.Equal(t, domain.KindPermanent, domain.KindOf(err))
}

func TestMotivationEmptyStandings(t *testing.T) {
	provider := &fakeProvider{}

	_, err := NewMotivation(provider).Collect(context.Background(), testTarget(10, "Arsenal"))
	require.Error(t, err)
	assert.Equal(t, domain.KindPermanent, domain.KindOf(err))
}

func TestPointsContext(t *testing.T) {
	table := []apifootball.Standing{
		{Rank: 1, Points: 84},
		{Rank: 2, Points: 60},
		{Rank: 3, Points: 40},
		{Rank: 4, Points: 30},
		{Rank: 5, Points: 25},
		{Rank: 6, Points: 20},
	}

	leader, drop := pointsContext(table)
	assert.Equal(t, 84, leader)
	assert.Equal(t, 30, drop)
}
