package collect

import (
	"context"
	"time"

	"github.com/gregleo12/spooky-football-engine/internal/domain"
	"github.com/gregleo12/spooky-football-engine/internal/providers/apifootball"
)

type pair struct{ a, b int64 }

func pairOf(a, b int64) pair {
	if a > b {
		a, b = b, a
	}
	return pair{a, b}
}

type fakeMatches struct {
	finished []domain.Match
	h2h      map[pair][]domain.Match
	err      error
}

func (f *fakeMatches) ListFinishedByCompetition(ctx context.Context, competitionID int64, season string) ([]domain.Match, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.finished, nil
}

func (f *fakeMatches) ListHeadToHead(ctx context.Context, teamA, teamB int64, limit int) ([]domain.Match, error) {
	if f.err != nil {
		return nil, f.err
	}
	ms := f.h2h[pairOf(teamA, teamB)]
	if len(ms) > limit {
		ms = ms[:limit]
	}
	return ms, nil
}

type fakeTeams struct {
	members []domain.Team
	err     error
}

func (f *fakeTeams) ListByCompetition(ctx context.Context, competitionID int64, season string) ([]domain.Team, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.members, nil
}

type fakeProvider struct {
	players   []apifootball.PlayerEntry
	injuries  []apifootball.InjuryEntry
	standings []apifootball.Standing

	playersErr   error
	injuriesErr  error
	standingsErr error

	injuryCalls int
}

func (f *fakeProvider) Players(ctx context.Context, teamID int64, season string) ([]apifootball.PlayerEntry, error) {
	if f.playersErr != nil {
		return nil, f.playersErr
	}
	return f.players, nil
}

func (f *fakeProvider) Injuries(ctx context.Context, teamID int64, season string) ([]apifootball.InjuryEntry, error) {
	f.injuryCalls++
	if f.injuriesErr != nil {
		return nil, f.injuriesErr
	}
	return f.injuries, nil
}

func (f *fakeProvider) Standings(ctx context.Context, leagueID int64, season string) ([]apifootball.Standing, error) {
	if f.standingsErr != nil {
		return nil, f.standingsErr
	}
	return f.standings, nil
}

func testTarget(teamID int64, name string) Target {
	providerID := teamID
	return Target{
		Team: domain.Team{
			ID:             teamID,
			Name:           name,
			ProviderTeamID: &providerID,
		},
		Competition: domain.Competition{
			ID:   39,
			Name: "Premier League",
			Type: domain.CompetitionDomesticLeague,
			Tier: 1,
		},
		Season: "2024",
	}
}

var kickoffBase = time.Date(2024, 8, 17, 15, 0, 0, 0, time.UTC)

// finishedMatch builds a finished fixture; round shifts the kickoff so
// slices stay in kickoff order.
func finishedMatch(id, home, away int64, homeGoals, awayGoals, round int) domain.Match {
	return domain.Match{
		FixtureID:     id,
		CompetitionID: 39,
		Season:        "2024",
		HomeTeamID:    home,
		AwayTeamID:    away,
		Kickoff:       kickoffBase.AddDate(0, 0, 7*round),
		HomeGoals:     domain.Int(homeGoals),
		AwayGoals:     domain.Int(awayGoals),
		Status:        domain.MatchFinished,
	}
}

func playerEntry(id int64, name string, age, appearances, minutes, goals, assists int, position string) apifootball.PlayerEntry {
	return apifootball.PlayerEntry{
		Player: apifootball.Player{ID: id, Name: name, Age: age},
		Statistics: []apifootball.PlayerStats{
			{
				Games: apifootball.PlayerGames{
					Appearances: appearances,
					Minutes:     minutes,
					Position:    position,
				},
				Goals: apifootball.PlayerGoals{Total: goals, Assists: assists},
			},
		},
	}
}
