package collect

import (
	"context"
	"fmt"

	"github.com/gregleo12/spooky-football-engine/internal/domain"
	"github.com/gregleo12/spooky-football-engine/internal/providers/apifootball"
)

// SquadValue estimates a squad's market value in EUR millions from provider
// squad data. The estimate prices every player from appearance volume,
// position and age, then applies squad-level balance adjustments.
type SquadValue struct {
	provider PlayerSource
}

func NewSquadValue(provider PlayerSource) *SquadValue {
	return &SquadValue{provider: provider}
}

func (s *SquadValue) Parameter() domain.Parameter { return domain.ParamSquadValue }

func (s *SquadValue) Collect(ctx context.Context, target Target) (Result, error) {
	profile, err := squadProfileFor(ctx, s.provider, target)
	if err != nil {
		return Result{}, err
	}
	if profile.valueM < 0 {
		return Result{}, domain.NewError(domain.KindInvalid,
			fmt.Sprintf("negative squad value for %q", target.Team.Name))
	}
	return Result{Parameter: domain.ParamSquadValue, Value: profile.valueM}, nil
}

// SquadDepth combines squad size with a value-based quality factor, so
// equal-sized squads of very different quality separate.
type SquadDepth struct {
	provider PlayerSource
}

func NewSquadDepth(provider PlayerSource) *SquadDepth {
	return &SquadDepth{provider: provider}
}

func (s *SquadDepth) Parameter() domain.Parameter { return domain.ParamSquadDepth }

// depthReferenceSize and depthReferenceValue anchor the depth formula: a
// 25-man squad worth EUR 800M scores 1.0.
const (
	depthReferenceSize  = 25.0
	depthReferenceValue = 800.0
)

func (s *SquadDepth) Collect(ctx context.Context, target Target) (Result, error) {
	profile, err := squadProfileFor(ctx, s.provider, target)
	if err != nil {
		return Result{}, err
	}

	quality := 0.5 + 0.5*min1(profile.valueM/depthReferenceValue)
	depth := float64(profile.size) / depthReferenceSize * quality

	return Result{Parameter: domain.ParamSquadDepth, Value: depth}, nil
}

// squadProfile is the shared squad summary behind the value and depth
// parameters.
type squadProfile struct {
	valueM float64
	size   int
}

func squadProfileFor(ctx context.Context, provider PlayerSource, target Target) (squadProfile, error) {
	teamID, err := target.providerTeamID()
	if err != nil {
		return squadProfile{}, err
	}

	players, err := provider.Players(ctx, teamID, target.Season)
	if err != nil {
		return squadProfile{}, err
	}

	profile := buildSquadProfile(players)
	if profile.size == 0 {
		return squadProfile{}, domain.NewError(domain.KindPermanent,
			fmt.Sprintf("no squad data for %q", target.Team.Name))
	}
	return profile, nil
}

// buildSquadProfile prices each player and sums the squad. Per-player value
// is an appearance band times a position multiplier times an age factor;
// the squad total then gets balance and size adjustments.
func buildSquadProfile(players []apifootball.PlayerEntry) squadProfile {
	var total float64
	var count int
	byPosition := map[string]int{}
	byAgeGroup := map[string]int{}

	for _, entry := range players {
		if len(entry.Statistics) == 0 {
			continue
		}
		stats := entry.Statistics[0]
		position := positionGroup(stats.Games.Position)

		total += appearanceValue(stats.Games.Appearances) *
			positionMultiplier(position) *
			ageFactor(entry.Player.Age)
		count++
		byPosition[position]++
		byAgeGroup[ageGroup(entry.Player.Age)]++
	}

	if count == 0 {
		return squadProfile{}
	}

	bonus := 1.0

	// A squad distributed close to the usual shape (one tenth keepers,
	// heavier midfield and defence) prices above a lopsided one.
	imbalance := abs(float64(byPosition["Goalkeeper"])/float64(count)-0.10) +
		abs(float64(byPosition["Defender"])/float64(count)-0.35) +
		abs(float64(byPosition["Midfielder"])/float64(count)-0.35) +
		abs(float64(byPosition["Attacker"])/float64(count)-0.20)
	switch {
	case imbalance < 0.2:
		bonus *= 1.1
	case imbalance > 0.4:
		bonus *= 0.9
	}

	if byAgeGroup["young"] > 0 && byAgeGroup["prime"] > 0 && byAgeGroup["veteran"] > 0 {
		bonus *= 1.05
	}

	sizeFactor := 1.0
	switch {
	case count < 20:
		sizeFactor = 0.9
	case count > 35:
		sizeFactor = 0.95
	}

	return squadProfile{valueM: total * bonus * sizeFactor, size: count}
}

// appearanceValue is the base price in EUR millions for a player's usage
// band.
func appearanceValue(appearances int) float64 {
	switch {
	case appearances == 0:
		return 1.0
	case appearances < 5:
		return 3.0
	case appearances < 15:
		return 8.0
	case appearances < 25:
		return 15.0
	default:
		return 25.0
	}
}

func positionMultiplier(group string) float64 {
	switch group {
	case "Goalkeeper":
		return 0.8
	case "Midfielder":
		return 1.2
	case "Attacker":
		return 1.3
	default:
		return 1.0
	}
}

// positionGroup folds the provider's position labels into four groups.
// Unlabelled players count as defenders.
func positionGroup(position string) string {
	switch position {
	case "Goalkeeper", "G":
		return "Goalkeeper"
	case "Defender", "D":
		return "Defender"
	case "Midfielder", "M":
		return "Midfielder"
	case "Attacker", "F":
		return "Attacker"
	default:
		return "Defender"
	}
}

// ageFactor peaks at 24-27 and tapers both ways. An unknown age prices as
// peak adjacent.
func ageFactor(age int) float64 {
	if age == 0 {
		age = 25
	}
	switch {
	case age < 20:
		return 0.7
	case age < 24:
		return 0.9
	case age <= 27:
		return 1.0
	case age <= 30:
		return 0.9
	case age <= 33:
		return 0.7
	default:
		return 0.5
	}
}

func ageGroup(age int) string {
	if age == 0 {
		age = 25
	}
	switch {
	case age < 23:
		return "young"
	case age <= 28:
		return "prime"
	default:
		return "veteran"
	}
}

func min1(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}
