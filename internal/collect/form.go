package collect

import (
	"context"

	"github.com/gregleo12/spooky-football-engine/internal/domain"
)

const (
	formWindow = 5
	formDecay  = 0.9
)

// Form scores the last five finished matches in the competition with
// decaying recency weights: the newest result counts in full, each step
// back is worth 0.9 of the one before it.
type Form struct {
	matches MatchStore
}

func NewForm(matches MatchStore) *Form {
	return &Form{matches: matches}
}

func (f *Form) Parameter() domain.Parameter { return domain.ParamForm }

func (f *Form) Collect(ctx context.Context, target Target) (Result, error) {
	ms, err := f.matches.ListFinishedByCompetition(ctx, target.Competition.ID, target.Season)
	if err != nil {
		return Result{}, storageFailure("loading matches for form", err)
	}

	recent := teamMatches(ms, target.Team.ID)
	if len(recent) == 0 {
		return Result{}, noMatches(target)
	}
	if len(recent) > formWindow {
		recent = recent[len(recent)-formWindow:]
	}

	weight := 1.0
	var sum float64
	for i := len(recent) - 1; i >= 0; i-- {
		outcome, _ := recent[i].OutcomeFor(target.Team.ID)
		sum += weight * float64(outcome.Points())
		weight *= formDecay
	}

	return Result{Parameter: domain.ParamForm, Value: sum}, nil
}
