package collect

import (
	"context"

	"github.com/gregleo12/spooky-football-engine/internal/domain"
)

// h2hWindow caps how many recent meetings per opponent pair count.
const h2hWindow = 10

// h2hNoData is the explicit baseline recorded when a team has never met a
// current competition peer. Promoted sides land here.
const h2hNoData = 0.5

// HeadToHead scores a team's record against its current competition peers.
// Each pairing contributes a 0-100 score from the points ratio plus a goal
// difference bonus; the team value is the average over pairings with at
// least one meeting, on a 0-1 scale.
type HeadToHead struct {
	matches MatchStore
	teams   TeamStore
}

func NewHeadToHead(matches MatchStore, teams TeamStore) *HeadToHead {
	return &HeadToHead{matches: matches, teams: teams}
}

func (h *HeadToHead) Parameter() domain.Parameter { return domain.ParamH2HPerformance }

func (h *HeadToHead) Collect(ctx context.Context, target Target) (Result, error) {
	peers, err := h.teams.ListByCompetition(ctx, target.Competition.ID, target.Season)
	if err != nil {
		return Result{}, storageFailure("loading competition peers", err)
	}

	var sum float64
	var pairings int

	for _, peer := range peers {
		if peer.ID == target.Team.ID {
			continue
		}

		meetings, err := h.matches.ListHeadToHead(ctx, target.Team.ID, peer.ID, h2hWindow)
		if err != nil {
			return Result{}, storageFailure("loading head to head meetings", err)
		}

		score, ok := pairScore(meetings, target.Team.ID)
		if !ok {
			continue
		}
		sum += score
		pairings++
	}

	if pairings == 0 {
		return Result{Parameter: domain.ParamH2HPerformance, Value: h2hNoData}, nil
	}

	return Result{
		Parameter: domain.ParamH2HPerformance,
		Value:     sum / float64(pairings) / 100,
	}, nil
}

// pairScore rates one opponent pairing on a 0-100 scale: up to 70 from the
// points ratio and a ±15 swing from per-match goal difference.
func pairScore(meetings []domain.Match, teamID int64) (float64, bool) {
	var played, points, goalDiff int

	for _, m := range meetings {
		outcome, ok := m.OutcomeFor(teamID)
		if !ok {
			continue
		}
		played++
		points += outcome.Points()

		gf, _ := m.GoalsFor(teamID)
		ga, _ := m.GoalsAgainst(teamID)
		goalDiff += gf - ga
	}

	if played == 0 {
		return 0, false
	}

	pointsRatio := float64(points) / float64(played*3)
	gdBonus := clamp(float64(goalDiff)/float64(played)*10, -15, 15)

	return clamp(pointsRatio*70+gdBonus, 0, 100), true
}
