package collect

import (
	"context"
	"math"

	"github.com/gregleo12/spooky-football-engine/internal/domain"
)

const (
	eloInitial = 1500.0
	eloK       = 20.0
)

// Elo derives a rating from the stored finished matches of a competition
// season. Every team starts at 1500 and the full season is replayed in
// kickoff order on each collection, so the rating is a pure function of the
// match history.
type Elo struct {
	matches MatchStore
}

func NewElo(matches MatchStore) *Elo {
	return &Elo{matches: matches}
}

func (e *Elo) Parameter() domain.Parameter { return domain.ParamElo }

func (e *Elo) Collect(ctx context.Context, target Target) (Result, error) {
	ms, err := e.matches.ListFinishedByCompetition(ctx, target.Competition.ID, target.Season)
	if err != nil {
		return Result{}, storageFailure("loading matches for elo", err)
	}

	ratings := EloRatings(ms)
	rating, ok := ratings[target.Team.ID]
	if !ok {
		return Result{}, noMatches(target)
	}

	return Result{Parameter: domain.ParamElo, Value: rating}, nil
}

// EloRatings replays finished matches in the given order and returns each
// side's end rating. K is 20 and a draw counts half a win.
func EloRatings(matches []domain.Match) map[int64]float64 {
	ratings := make(map[int64]float64)

	at := func(id int64) float64 {
		if r, ok := ratings[id]; ok {
			return r
		}
		return eloInitial
	}

	for _, m := range matches {
		if !m.Finished() {
			continue
		}

		home, away := at(m.HomeTeamID), at(m.AwayTeamID)
		expected := 1 / (1 + math.Pow(10, (away-home)/400))

		var score float64
		switch {
		case *m.HomeGoals > *m.AwayGoals:
			score = 1
		case *m.HomeGoals == *m.AwayGoals:
			score = 0.5
		}

		ratings[m.HomeTeamID] = home + eloK*(score-expected)
		ratings[m.AwayTeamID] = away + eloK*((1-score)-(1-expected))
	}

	return ratings
}
