package collect

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/gregleo12/spooky-football-engine/internal/domain"
	"github.com/gregleo12/spooky-football-engine/internal/providers/apifootball"
)

// pointsRaceMargin is how close a team must be to the top or the drop for
// the race adjustments to kick in.
const pointsRaceMargin = 5

// Motivation scores how much a team has to play for from its league table
// position. Title contenders and relegation battlers run hot, safe
// mid-table sides do not, and being within touching distance of either end
// adds urgency on top.
type Motivation struct {
	standings StandingsSource
}

func NewMotivation(standings StandingsSource) *Motivation {
	return &Motivation{standings: standings}
}

func (m *Motivation) Parameter() domain.Parameter { return domain.ParamMotivation }

func (m *Motivation) Collect(ctx context.Context, target Target) (Result, error) {
	table, err := m.standings.Standings(ctx, target.providerLeagueID(), target.Season)
	if err != nil {
		return Result{}, err
	}
	if len(table) == 0 {
		return Result{}, domain.NewError(domain.KindPermanent,
			fmt.Sprintf("no standings for competition %d season %s",
				target.Competition.ID, target.Season))
	}

	row, ok := standingFor(table, target.Team)
	if !ok {
		return Result{}, domain.NewError(domain.KindPermanent,
			fmt.Sprintf("team %q not in the standings of competition %d",
				target.Team.Name, target.Competition.ID))
	}

	leader, drop := pointsContext(table)

	value := motivationScore(
		row.Rank,
		len(table),
		leader-row.Points,
		row.Points-drop,
	)

	return Result{Parameter: domain.ParamMotivation, Value: value}, nil
}

// motivationScore maps a table position to [0,1]. Positions are taken as a
// ratio of the table size so the same shape works for 18, 20 and 36 team
// formats.
func motivationScore(position, totalTeams, behindLeader, aboveDrop int) float64 {
	ratio := float64(position) / float64(totalTeams)

	var value float64
	switch {
	case ratio <= 0.25:
		// Title race, rising towards the very top.
		value = 0.85 + (0.25-ratio)/0.25*0.15
	case ratio <= 0.35:
		// Chasing the European places.
		value = 0.70 + (0.35-ratio)/0.10*0.10
	case ratio >= 0.85:
		// Relegation battle, rising towards the bottom.
		value = 0.90 + (ratio-0.85)/0.15*0.10
	default:
		// Safe mid-table has the least at stake.
		value = 0.25 + abs(ratio-0.5)/0.5*0.35
	}

	if behindLeader <= pointsRaceMargin {
		value += 0.10
	}
	if aboveDrop <= pointsRaceMargin {
		value += 0.15
	}

	return clamp(value, 0, 1)
}

// standingFor finds the team's table row, preferring the provider id and
// falling back to an exact case-insensitive name match.
func standingFor(table []apifootball.Standing, team domain.Team) (apifootball.Standing, bool) {
	if team.ProviderTeamID != nil {
		for _, row := range table {
			if row.Team.ID == *team.ProviderTeamID {
				return row, true
			}
		}
	}
	for _, row := range table {
		if strings.EqualFold(row.Team.Name, team.Name) {
			return row, true
		}
	}
	return apifootball.Standing{}, false
}

// pointsContext returns the leader's points and the relegation reference
// line, which is the third-lowest total in the usual three-down formats.
func pointsContext(table []apifootball.Standing) (leader, drop int) {
	points := make([]int, len(table))
	for i, row := range table {
		points[i] = row.Points
	}
	sort.Ints(points)

	leader = points[len(points)-1]
	if len(points) > 3 {
		drop = points[2]
	} else {
		drop = points[0]
	}
	return leader, drop
}
