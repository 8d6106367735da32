package collect

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gregleo12/spooky-football-engine/internal/domain"
)

func TestEloRatingsSingleWin(t *testing.T) {
	ratings := EloRatings([]domain.Match{
		finishedMatch(1, 10, 20, 2, 0, 0),
	})

	assert.InDelta(t, 1510, ratings[10], 1e-9)
	assert.InDelta(t, 1490, ratings[20], 1e-9)
}

func TestEloRatingsDrawBetweenEquals(t *testing.T) {
	ratings := EloRatings([]domain.Match{
		finishedMatch(1, 10, 20, 1, 1, 0),
	})

	assert.InDelta(t, 1500, ratings[10], 1e-9)
	assert.InDelta(t, 1500, ratings[20], 1e-9)
}

func TestEloRatingsCarryAcrossMatches(t *testing.T) {
	// Team 20 loses to 10, then beats 30 from a 1490 rating. The second
	// match exchanges slightly more than 10 points because 20 is now the
	// underdog.
	ratings := EloRatings([]domain.Match{
		finishedMatch(1, 10, 20, 1, 0, 0),
		finishedMatch(2, 20, 30, 3, 1, 1),
	})

	assert.InDelta(t, 1510, ratings[10], 1e-3)
	assert.InDelta(t, 1500.288, ratings[20], 1e-3)
	assert.InDelta(t, 1489.712, ratings[30], 1e-3)
}

func TestEloRatingsZeroSum(t *testing.T) {
	matches := []domain.Match{
		finishedMatch(1, 10, 20, 2, 1, 0),
		finishedMatch(2, 30, 40, 0, 0, 0),
		finishedMatch(3, 10, 30, 1, 3, 1),
		finishedMatch(4, 20, 40, 2, 2, 1),
		finishedMatch(5, 40, 10, 1, 0, 2),
	}

	ratings := EloRatings(matches)
	require.Len(t, ratings, 4)

	var sum float64
	for _, r := range ratings {
		sum += r
	}
	assert.InDelta(t, 4*1500, sum, 1e-6)
}

func TestEloRatingsSkipUnfinished(t *testing.T) {
	scheduled := domain.Match{
		FixtureID:  9,
		HomeTeamID: 10,
		AwayTeamID: 20,
		Status:     domain.MatchScheduled,
	}

	ratings := EloRatings([]domain.Match{scheduled})
	assert.Empty(t, ratings)
}

func TestEloCollect(t *testing.T) {
	store := &fakeMatches{finished: []domain.Match{
		finishedMatch(1, 10, 20, 2, 0, 0),
	}}

	res, err := NewElo(store).Collect(context.Background(), testTarget(10, "Arsenal"))
	require.NoError(t, err)
	assert.Equal(t, domain.ParamElo, res.Parameter)
	assert.InDelta(t, 1510, res.Value, 1e-9)
}

func TestEloCollectNoMatches(t *testing.T) {
	store := &fakeMatches{finished: []domain.Match{
		finishedMatch(1, 10, 20, 2, 0, 0),
	}}

	_, err := NewElo(store).Collect(context.Background(), testTarget(99, "Ipswich Town"))
	require.Error(t, err)
	assert.Equal(t, domain.KindPermanent, domain.KindOf(err))
}

func TestEloCollectStorageFailure(t *testing.T) {
	store := &fakeMatches{err: assert.AnError}

	_, err := NewElo(store).Collect(context.Background(), testTarget(10, "Arsenal"))
	require.Error(t, err)
	assert.Equal(t, domain.KindStorage, domain.KindOf(err))
	assert.True(t, domain.IsTransient(err))
}
