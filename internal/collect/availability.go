package collect

import (
	"context"
	"sort"
	"strings"

	"github.com/gregleo12/spooky-football-engine/internal/domain"
	"github.com/gregleo12/spooky-football-engine/internal/providers/apifootball"
)

// keyPlayerCount caps how many players count as key for availability.
const keyPlayerCount = 8

// availabilityFloor keeps the score above zero even in an injury crisis;
// a side never fields nobody.
const availabilityFloor = 0.2

// Availability measures how much of a team's key-player importance is
// currently sidelined. Key players are the top eight by an importance score
// built from playing time, selection consistency and goal contributions.
// With no identifiable key players the team counts as fully available.
type Availability struct {
	provider PlayerSource
}

func NewAvailability(provider PlayerSource) *Availability {
	return &Availability{provider: provider}
}

func (a *Availability) Parameter() domain.Parameter { return domain.ParamKeyPlayerAvailability }

func (a *Availability) Collect(ctx context.Context, target Target) (Result, error) {
	teamID, err := target.providerTeamID()
	if err != nil {
		return Result{}, err
	}

	players, err := a.provider.Players(ctx, teamID, target.Season)
	if err != nil {
		return Result{}, err
	}

	key := keyPlayers(players)
	if len(key) == 0 {
		return Result{Parameter: domain.ParamKeyPlayerAvailability, Value: 1.0}, nil
	}

	injuries, err := a.provider.Injuries(ctx, teamID, target.Season)
	if err != nil {
		return Result{}, err
	}

	var totalImportance, lostImportance float64
	for _, p := range key {
		totalImportance += p.importance
		if unavailable(p, injuries) {
			lostImportance += p.importance
		}
	}

	value := 1 - lostImportance/totalImportance

	return Result{
		Parameter: domain.ParamKeyPlayerAvailability,
		Value:     clamp(value, availabilityFloor, 1.0),
	}, nil
}

type keyPlayer struct {
	id         int64
	name       string
	importance float64
}

// keyPlayers selects the squad's most important players. A player has to be
// a regular starter and either contribute goals or play near-full matches
// to qualify at all.
func keyPlayers(players []apifootball.PlayerEntry) []keyPlayer {
	var candidates []keyPlayer

	for _, entry := range players {
		if len(entry.Statistics) == 0 {
			continue
		}
		stats := entry.Statistics[0]

		appearances := stats.Games.Appearances
		if appearances == 0 {
			continue
		}

		minutesPerGame := float64(stats.Games.Minutes) / float64(appearances)
		contributions := stats.Goals.Total + stats.Goals.Assists

		regular := appearances >= 10 && minutesPerGame >= 45
		contributor := contributions >= 3 || minutesPerGame >= 70
		if !regular || !contributor {
			continue
		}

		importance := minutesPerGame/90*0.4 +
			float64(appearances)/30*0.3 +
			float64(contributions)/10*0.3

		candidates = append(candidates, keyPlayer{
			id:         entry.Player.ID,
			name:       entry.Player.Name,
			importance: min1(importance),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].importance > candidates[j].importance
	})
	if len(candidates) > keyPlayerCount {
		candidates = candidates[:keyPlayerCount]
	}
	return candidates
}

// unavailable reports whether a key player appears on the injury list.
// Matching is by provider player id, with a name fallback for feeds that
// omit ids.
func unavailable(p keyPlayer, injuries []apifootball.InjuryEntry) bool {
	for _, inj := range injuries {
		if inj.Player.ID != 0 && inj.Player.ID == p.id {
			return true
		}
		if inj.Player.ID == 0 && strings.EqualFold(inj.Player.Name, p.name) {
			return true
		}
	}
	return false
}
