package collect

import (
	"context"

	"github.com/gregleo12/spooky-football-engine/internal/domain"
)

// leagueAvgGoals is the reference scoring rate offensive and defensive
// ratings are measured against.
const leagueAvgGoals = 2.5

// ratingCap bounds both ratings; 2.0 means twice the reference rate.
const ratingCap = 2.0

// styleWindow is how many recent results feed the consistency component of
// the tactical score.
const styleWindow = 10

// Offensive rates goals scored per match against the league reference.
type Offensive struct {
	matches MatchStore
}

func NewOffensive(matches MatchStore) *Offensive {
	return &Offensive{matches: matches}
}

func (o *Offensive) Parameter() domain.Parameter { return domain.ParamOffensiveRating }

func (o *Offensive) Collect(ctx context.Context, target Target) (Result, error) {
	ms, err := o.matches.ListFinishedByCompetition(ctx, target.Competition.ID, target.Season)
	if err != nil {
		return Result{}, storageFailure("loading matches for offensive rating", err)
	}

	played := teamMatches(ms, target.Team.ID)
	if len(played) == 0 {
		return Result{}, noMatches(target)
	}

	scored, _ := goalTotals(played, target.Team.ID)
	perMatch := float64(scored) / float64(len(played))

	return Result{
		Parameter: domain.ParamOffensiveRating,
		Value:     clamp(perMatch/leagueAvgGoals, 0, ratingCap),
	}, nil
}

// Defensive rates goals conceded per match against the league reference,
// inverted so that higher is better. A clean record scores the cap.
type Defensive struct {
	matches MatchStore
}

func NewDefensive(matches MatchStore) *Defensive {
	return &Defensive{matches: matches}
}

func (d *Defensive) Parameter() domain.Parameter { return domain.ParamDefensiveRating }

func (d *Defensive) Collect(ctx context.Context, target Target) (Result, error) {
	ms, err := d.matches.ListFinishedByCompetition(ctx, target.Competition.ID, target.Season)
	if err != nil {
		return Result{}, storageFailure("loading matches for defensive rating", err)
	}

	played := teamMatches(ms, target.Team.ID)
	if len(played) == 0 {
		return Result{}, noMatches(target)
	}

	_, conceded := goalTotals(played, target.Team.ID)
	if conceded == 0 {
		return Result{Parameter: domain.ParamDefensiveRating, Value: ratingCap}, nil
	}

	perMatch := float64(conceded) / float64(len(played))

	return Result{
		Parameter: domain.ParamDefensiveRating,
		Value:     clamp(leagueAvgGoals/perMatch, 0, ratingCap),
	}, nil
}

// Tactical scores a team's style profile from stored results: three parts
// attack/defence balance, seven parts result consistency over the recent
// window.
type Tactical struct {
	matches MatchStore
}

func NewTactical(matches MatchStore) *Tactical {
	return &Tactical{matches: matches}
}

func (t *Tactical) Parameter() domain.Parameter { return domain.ParamTacticalMatchup }

func (t *Tactical) Collect(ctx context.Context, target Target) (Result, error) {
	ms, err := t.matches.ListFinishedByCompetition(ctx, target.Competition.ID, target.Season)
	if err != nil {
		return Result{}, storageFailure("loading matches for tactical score", err)
	}

	played := teamMatches(ms, target.Team.ID)
	if len(played) == 0 {
		return Result{}, noMatches(target)
	}

	scored, conceded := goalTotals(played, target.Team.ID)

	attackShare := 0.5
	if scored+conceded > 0 {
		attackShare = float64(scored) / float64(scored+conceded)
	}
	balance := 1 - abs(attackShare-0.5)*2

	recent := played
	if len(recent) > styleWindow {
		recent = recent[len(recent)-styleWindow:]
	}
	consistency := resultConsistency(recent, target.Team.ID)

	return Result{
		Parameter: domain.ParamTacticalMatchup,
		Value:     clamp(balance*0.3+consistency*0.7, 0, 1),
	}, nil
}

// resultConsistency measures streakiness: the fraction of consecutive
// result pairs with the same outcome. A single match counts as fully
// consistent.
func resultConsistency(matches []domain.Match, teamID int64) float64 {
	if len(matches) < 2 {
		return 1.0
	}

	changes := 0
	prev, _ := matches[0].OutcomeFor(teamID)
	for _, m := range matches[1:] {
		outcome, _ := m.OutcomeFor(teamID)
		if outcome != prev {
			changes++
		}
		prev = outcome
	}

	return 1 - float64(changes)/float64(len(matches)-1)
}

func goalTotals(matches []domain.Match, teamID int64) (scored, conceded int) {
	for _, m := range matches {
		if g, ok := m.GoalsFor(teamID); ok {
			scored += g
		}
		if g, ok := m.GoalsAgainst(teamID); ok {
			conceded += g
		}
	}
	return scored, conceded
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
