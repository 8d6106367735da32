// Package collect implements the per-parameter collectors that feed the
// strength store. Match-derived parameters replay the stored fixture
// history; squad and league-table parameters call the data provider through
// the guarded client. Collectors only ever produce raw values, never
// normalized ones.
package collect

import (
	"context"
	"fmt"

	"github.com/gregleo12/spooky-football-engine/internal/domain"
	"github.com/gregleo12/spooky-football-engine/internal/providers/apifootball"
)

// Target is one (team, competition, season) collection unit.
type Target struct {
	Team        domain.Team
	Competition domain.Competition
	Season      string
}

// Result is one successful raw observation.
type Result struct {
	Parameter domain.Parameter `json:"parameter"`
	Value     float64          `json:"value"`
}

// Collector produces the raw value of one parameter for one target.
// Implementations are idempotent per target for unchanged upstream data
// and classify every failure through the domain error kinds, so the
// orchestrator can decide retry versus record from the error alone.
type Collector interface {
	Parameter() domain.Parameter
	Collect(ctx context.Context, target Target) (Result, error)
}

// MatchStore is the slice of match persistence the collectors read.
type MatchStore interface {
	ListFinishedByCompetition(ctx context.Context, competitionID int64, season string) ([]domain.Match, error)
	ListHeadToHead(ctx context.Context, teamA, teamB int64, limit int) ([]domain.Match, error)
}

// TeamStore supplies competition membership, used to enumerate peers.
type TeamStore interface {
	ListByCompetition(ctx context.Context, competitionID int64, season string) ([]domain.Team, error)
}

// PlayerSource supplies squad and injury data from the provider.
type PlayerSource interface {
	Players(ctx context.Context, teamID int64, season string) ([]apifootball.PlayerEntry, error)
	Injuries(ctx context.Context, teamID int64, season string) ([]apifootball.InjuryEntry, error)
}

// StandingsSource supplies the current league table from the provider.
type StandingsSource interface {
	Standings(ctx context.Context, leagueID int64, season string) ([]apifootball.Standing, error)
}

// Provider bundles the upstream endpoints the collector battery needs.
// *apifootball.Client satisfies it.
type Provider interface {
	PlayerSource
	StandingsSource
}

// NewSet returns one collector per parameter, in the frozen parameter
// order.
func NewSet(matches MatchStore, teams TeamStore, provider Provider) []Collector {
	return []Collector{
		NewElo(matches),
		NewSquadValue(provider),
		NewForm(matches),
		NewSquadDepth(provider),
		NewAvailability(provider),
		NewMotivation(provider),
		NewTactical(matches),
		NewOffensive(matches),
		NewDefensive(matches),
		NewHeadToHead(matches, teams),
	}
}

// providerTeamID resolves the provider-side team id for a target. Teams
// ingested from the provider always carry one; a missing mapping is a
// permanent condition until reference data changes.
func (t Target) providerTeamID() (int64, error) {
	if t.Team.ProviderTeamID == nil {
		return 0, domain.NewError(domain.KindPermanent,
			fmt.Sprintf("team %q has no provider mapping", t.Team.Name))
	}
	return *t.Team.ProviderTeamID, nil
}

// providerLeagueID resolves the provider-side league id. Shipped
// competitions are keyed by their provider ids, so the competition id is
// the fallback when no explicit mapping is stored.
func (t Target) providerLeagueID() int64 {
	if t.Competition.ProviderLeagueID != nil {
		return *t.Competition.ProviderLeagueID
	}
	return t.Competition.ID
}

// teamMatches filters finished matches involving teamID, preserving the
// stored kickoff order.
func teamMatches(matches []domain.Match, teamID int64) []domain.Match {
	var out []domain.Match
	for _, m := range matches {
		if !m.Finished() {
			continue
		}
		if m.HomeTeamID == teamID || m.AwayTeamID == teamID {
			out = append(out, m)
		}
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// noMatches builds the shared permanent failure for match-derived
// collectors when a team has no finished matches yet.
func noMatches(t Target) error {
	return domain.NewError(domain.KindPermanent,
		fmt.Sprintf("no finished matches for %q in competition %d season %s",
			t.Team.Name, t.Competition.ID, t.Season))
}

// storageFailure classifies a match store read error.
func storageFailure(op string, err error) error {
	return domain.WrapError(domain.KindStorage, op, err)
}
