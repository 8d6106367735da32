package collect

import (
	"context"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/gregleo12/spooky-football-engine/internal/domain"
	"github.com/gregleo12/spooky-football-engine/internal/providers/apifootball"
)

// FixtureSource supplies club lists and fixtures from the provider.
type FixtureSource interface {
	Fixtures(ctx context.Context, leagueID int64, season string) ([]apifootball.Fixture, error)
	Teams(ctx context.Context, leagueID int64, season string) ([]apifootball.TeamEntry, error)
}

// TeamWriter is the team persistence slice ingestion writes through.
type TeamWriter interface {
	UpsertBatch(ctx context.Context, teams []domain.Team) error
	AddToCompetition(ctx context.Context, teamID, competitionID int64, season string) error
}

// MatchWriter is the match persistence slice ingestion writes through.
type MatchWriter interface {
	UpsertBatch(ctx context.Context, matches []domain.Match) error
}

// IngestStats summarizes one competition sync.
type IngestStats struct {
	Teams    int `json:"teams"`
	Matches  int `json:"matches"`
	Finished int `json:"finished"`
}

// Ingestor syncs provider reference data into the store ahead of a
// collection cycle: the clubs of each competition and the full fixture list
// with results. Teams are created on first observation, including sides
// that only ever appear inside fixture data.
type Ingestor struct {
	source  FixtureSource
	teams   TeamWriter
	matches MatchWriter
}

func NewIngestor(source FixtureSource, teams TeamWriter, matches MatchWriter) *Ingestor {
	return &Ingestor{source: source, teams: teams, matches: matches}
}

// SyncCompetition refreshes clubs, fixtures and results for one competition
// season. Fixture upserts make rescheduled kickoffs and late results
// converge on repeated runs.
func (i *Ingestor) SyncCompetition(ctx context.Context, comp domain.Competition, season string) (IngestStats, error) {
	leagueID := comp.ID
	if comp.ProviderLeagueID != nil {
		leagueID = *comp.ProviderLeagueID
	}

	entries, err := i.source.Teams(ctx, leagueID, season)
	if err != nil {
		return IngestStats{}, err
	}

	fixtures, err := i.source.Fixtures(ctx, leagueID, season)
	if err != nil {
		return IngestStats{}, err
	}

	teams := teamRows(entries, fixtures)
	if err := i.teams.UpsertBatch(ctx, teams); err != nil {
		return IngestStats{}, err
	}
	for _, t := range teams {
		if err := i.teams.AddToCompetition(ctx, t.ID, comp.ID, season); err != nil {
			return IngestStats{}, err
		}
	}

	matches := matchRows(fixtures, comp.ID, season)
	if err := i.matches.UpsertBatch(ctx, matches); err != nil {
		return IngestStats{}, err
	}

	stats := IngestStats{Teams: len(teams), Matches: len(matches)}
	for _, m := range matches {
		if m.Finished() {
			stats.Finished++
		}
	}

	log.Info().
		Str("competition", comp.Name).
		Str("season", season).
		Int("teams", stats.Teams).
		Int("matches", stats.Matches).
		Int("finished", stats.Finished).
		Msg("Competition data synced")

	return stats, nil
}

// teamRows merges the club list with any side referenced only in fixture
// data, keyed by the provider team id. The club list wins because it
// carries country and venue detail fixtures lack.
func teamRows(entries []apifootball.TeamEntry, fixtures []apifootball.Fixture) []domain.Team {
	seen := make(map[int64]domain.Team)

	add := func(id int64, name, country string) {
		if id == 0 {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		providerID := id
		seen[id] = domain.Team{
			ID:             id,
			Name:           name,
			Country:        country,
			ProviderTeamID: &providerID,
		}
	}

	for _, e := range entries {
		add(e.Team.ID, e.Team.Name, e.Team.Country)
	}
	for _, f := range fixtures {
		add(f.Teams.Home.ID, f.Teams.Home.Name, "")
		add(f.Teams.Away.ID, f.Teams.Away.Name, "")
	}

	out := make([]domain.Team, 0, len(seen))
	for _, t := range seen {
		out = append(out, t)
	}
	// Deterministic write order keeps batch upserts reproducible.
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func matchRows(fixtures []apifootball.Fixture, competitionID int64, season string) []domain.Match {
	out := make([]domain.Match, 0, len(fixtures))
	for _, f := range fixtures {
		if f.Teams.Home.ID == 0 || f.Teams.Away.ID == 0 {
			continue
		}
		out = append(out, domain.Match{
			FixtureID:     f.Fixture.ID,
			CompetitionID: competitionID,
			Season:        season,
			HomeTeamID:    f.Teams.Home.ID,
			AwayTeamID:    f.Teams.Away.ID,
			Kickoff:       f.Fixture.Date.UTC(),
			HomeGoals:     f.Goals.Home,
			AwayGoals:     f.Goals.Away,
			Status:        matchStatus(f),
		})
	}
	return out
}

// matchStatus folds the provider's status vocabulary into the three states
// the engine tracks.
func matchStatus(f apifootball.Fixture) domain.MatchStatus {
	if f.Finished() {
		return domain.MatchFinished
	}
	switch f.Fixture.Status.Short {
	case "PST", "CANC", "ABD":
		return domain.MatchPostponed
	}
	return domain.MatchScheduled
}
