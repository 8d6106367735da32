package collect

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gregleo12/spooky-football-engine/internal/domain"
	"github.com/gregleo12/spooky-football-engine/internal/providers/apifootball"
)

func TestBuildSquadProfileSinglePlayer(t *testing.T) {
	players := []apifootball.PlayerEntry{
		playerEntry(1, "Striker", 26, 30, 2700, 20, 5, "Attacker"),
	}

	profile := buildSquadProfile(players)
	require.Equal(t, 1, profile.size)

	// 25.0 base * 1.3 attacker * 1.0 peak age, then a 0.9 imbalance
	// penalty and a 0.9 small-squad factor.
	assert.InDelta(t, 25*1.3*0.9*0.9, profile.valueM, 1e-9)
}

func TestBuildSquadProfileBalancedSquadBonus(t *testing.T) {
	players := []apifootball.PlayerEntry{
		playerEntry(1, "GK", 26, 30, 2700, 0, 0, "Goalkeeper"),
		playerEntry(2, "D1", 21, 30, 2700, 0, 0, "Defender"),
		playerEntry(3, "D2", 26, 30, 2700, 0, 0, "Defender"),
		playerEntry(4, "D3", 26, 30, 2700, 0, 0, "Defender"),
		playerEntry(5, "M1", 26, 30, 2700, 0, 0, "Midfielder"),
		playerEntry(6, "M2", 26, 30, 2700, 0, 0, "Midfielder"),
		playerEntry(7, "M3", 26, 30, 2700, 0, 0, "Midfielder"),
		playerEntry(8, "M4", 30, 30, 2700, 0, 0, "Midfielder"),
		playerEntry(9, "A1", 26, 30, 2700, 0, 0, "Attacker"),
		playerEntry(10, "A2", 26, 30, 2700, 0, 0, "Attacker"),
	}

	profile := buildSquadProfile(players)
	require.Equal(t, 10, profile.size)

	// Positions: 20 + (22.5+25+25) + (30*3+27) + (32.5*2) = 274.5.
	// Balanced shape (x1.1) and full age mix (x1.05), small squad (x0.9).
	assert.InDelta(t, 274.5*1.1*1.05*0.9, profile.valueM, 1e-9)
}

func TestBuildSquadProfileSkipsPlayersWithoutStats(t *testing.T) {
	players := []apifootball.PlayerEntry{
		{Player: apifootball.Player{ID: 1, Name: "No stats"}},
	}

	profile := buildSquadProfile(players)
	assert.Equal(t, 0, profile.size)
}

func TestAppearanceValueBands(t *testing.T) {
	tests := []struct {
		appearances int
		want        float64
	}{
		{0, 1.0},
		{4, 3.0},
		{5, 8.0},
		{14, 8.0},
		{15, 15.0},
		{24, 15.0},
		{25, 25.0},
		{38, 25.0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, appearanceValue(tt.appearances), "appearances=%d", tt.appearances)
	}
}

func TestAgeFactorUnknownAge(t *testing.T) {
	assert.Equal(t, 1.0, ageFactor(0))
	assert.Equal(t, 0.5, ageFactor(36))
}

func TestSquadValueCollect(t *testing.T) {
	provider := &fakeProvider{players: []apifootball.PlayerEntry{
		playerEntry(1, "Striker", 26, 30, 2700, 20, 5, "Attacker"),
	}}

	res, err := NewSquadValue(provider).Collect(context.Background(), testTarget(10, "Arsenal"))
	require.NoError(t, err)
	assert.Equal(t, domain.ParamSquadValue, res.Parameter)
	assert.InDelta(t, 26.325, res.Value, 1e-9)
}

func TestSquadValueEmptySquad(t *testing.T) {
	provider := &fakeProvider{}

	_, err := NewSquadValue(provider).Collect(context.Background(), testTarget(10, "Arsenal"))
	require.Error(t, err)
	assert.Equal(t, domain.KindPermanent, domain.KindOf(err))
}

func TestSquadValueMissingProviderMapping(t *testing.T) {
	target := testTarget(10, "Arsenal")
	target.Team.ProviderTeamID = nil

	_, err := NewSquadValue(&fakeProvider{}).Collect(context.Background(), target)
	require.Error(t, err)
	assert.Equal(t, domain.KindPermanent, domain.KindOf(err))
	assert.Contains(t, err.Error(), "provider mapping")
}

func TestSquadValuePropagatesProviderFailure(t *testing.T) {
	provider := &fakeProvider{
		playersErr: domain.NewError(domain.KindTransient, "provider api_football unavailable"),
	}

	_, err := NewSquadValue(provider).Collect(context.Background(), testTarget(10, "Arsenal"))
	require.Error(t, err)
	assert.True(t, domain.IsTransient(err))
}

func TestSquadDepthCombinesSizeAndQuality(t *testing.T) {
	// A full 25-man squad of peak-age attackers on 30 appearances:
	// 25 * 32.5 * 0.9 imbalance = 731.25M, quality 0.95703125, size 1.0.
	players := make([]apifootball.PlayerEntry, 0, 25)
	for i := 0; i < 25; i++ {
		players = append(players, playerEntry(int64(i+1), "P", 26, 30, 2700, 10, 2, "Attacker"))
	}
	provider := &fakeProvider{players: players}

	res, err := NewSquadDepth(provider).Collect(context.Background(), testTarget(10, "Arsenal"))
	require.NoError(t, err)
	assert.Equal(t, domain.ParamSquadDepth, res.Parameter)
	assert.InDelta(t, 0.95703125, res.Value, 1e-9)
}

func TestSquadDepthSmallCheapSquad(t *testing.T) {
	// Ten unused defenders price at about 8M total, so quality sits just
	// above the 0.5 floor and the small size dominates the score.
	players := make([]apifootball.PlayerEntry, 0, 10)
	for i := 0; i < 10; i++ {
		players = append(players, playerEntry(int64(i+1), "P", 26, 0, 0, 0, 0, "Defender"))
	}
	provider := &fakeProvider{players: players}

	res, err := NewSquadDepth(provider).Collect(context.Background(), testTarget(10, "Arsenal"))
	require.NoError(t, err)

	profile := buildSquadProfile(players)
	want := float64(profile.size) / 25 * (0.5 + 0.5*profile.valueM/800)
	assert.InDelta(t, want, res.Value, 1e-9)
	assert.Less(t, res.Value, 0.45)
}
