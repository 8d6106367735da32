package http

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gregleo12/spooky-football-engine/internal/config"
	"github.com/gregleo12/spooky-football-engine/internal/domain"
	"github.com/gregleo12/spooky-football-engine/internal/infrastructure/cache"
	"github.com/gregleo12/spooky-football-engine/internal/odds"
	"github.com/gregleo12/spooky-football-engine/internal/persistence"
)

// formWindow is how many finished matches the form endpoint reports,
// matching the window the form collector scores.
const formWindow = 5

// Ranking scopes accepted by the ranking endpoint.
const (
	rankingScopeOverall  = "overall"
	rankingScopeEuropean = "european"
)

// Service answers the read-only queries. Responses are cached as encoded
// bytes under a generation counter; Invalidate bumps the generation after a
// refresh run so stale entries age out behind fresh keys.
type Service struct {
	repos   *persistence.Repository
	engine  *odds.Engine
	cache   cache.Cache
	season  string
	teamTTL time.Duration
	listTTL time.Duration
	metrics *Metrics

	gen atomic.Uint64
}

// ServiceDeps wires a Service. Metrics may be nil.
type ServiceDeps struct {
	Repos   *persistence.Repository
	Engine  *odds.Engine
	Cache   cache.Cache
	Season  string
	TTLs    config.CacheConfig
	Metrics *Metrics
}

func NewService(deps ServiceDeps) (*Service, error) {
	switch {
	case deps.Repos == nil:
		return nil, domain.NewError(domain.KindConfiguration, "query service requires a repository")
	case deps.Engine == nil:
		return nil, domain.NewError(domain.KindConfiguration, "query service requires an odds engine")
	case deps.Cache == nil:
		return nil, domain.NewError(domain.KindConfiguration, "query service requires a response cache")
	case deps.Season == "":
		return nil, domain.NewError(domain.KindConfiguration, "query service requires a season")
	}

	return &Service{
		repos:   deps.Repos,
		engine:  deps.Engine,
		cache:   deps.Cache,
		season:  deps.Season,
		teamTTL: deps.TTLs.GetStrengthTTL(),
		listTTL: deps.TTLs.GetRankingTTL(),
		metrics: deps.Metrics,
	}, nil
}

// Invalidate moves every cached response behind a new generation. Called
// when a refresh run lands.
func (s *Service) Invalidate() {
	s.gen.Add(1)
}

// Teams lists known teams, optionally restricted to one competition's
// current membership.
func (s *Service) Teams(ctx context.Context, competitionID *int64) ([]byte, error) {
	key := "teams"
	if competitionID != nil {
		key = fmt.Sprintf("teams:%d", *competitionID)
	}

	return s.cached(ctx, s.listTTL, key, func() (interface{}, error) {
		var (
			teams []domain.Team
			err   error
		)
		if competitionID != nil {
			teams, err = s.repos.Teams.ListByCompetition(ctx, *competitionID, s.season)
		} else {
			teams, err = s.repos.Teams.List(ctx)
		}
		if err != nil {
			return nil, err
		}

		out := TeamsResponse{
			Teams:         make([]TeamSummary, 0, len(teams)),
			Count:         len(teams),
			CompetitionID: competitionID,
		}
		for _, t := range teams {
			out.Teams = append(out.Teams, TeamSummary{ID: t.ID, Name: t.Name, Country: t.Country})
		}
		return out, nil
	})
}

// Strength returns the full strength record for one team, resolved by
// case-insensitive name.
func (s *Service) Strength(ctx context.Context, name string) ([]byte, error) {
	return s.cached(ctx, s.teamTTL, "strength:"+strings.ToLower(name), func() (interface{}, error) {
		rec, err := s.repos.Strengths.GetByTeamName(ctx, name)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return nil, domain.NewError(domain.KindInvalid, fmt.Sprintf("unknown team %q", name))
		}

		params := make(map[string]ParameterValue, len(domain.Parameters()))
		for _, p := range domain.Parameters() {
			params[string(p)] = ParameterValue{Raw: rec.Raw[p], Normalized: rec.Normalized[p]}
		}

		return StrengthResponse{
			Team:            rec.TeamName,
			TeamID:          rec.TeamID,
			CompetitionID:   rec.CompetitionID,
			Season:          rec.Season,
			OverallStrength: rec.Overall,
			OverallPercent:  rec.OverallPercent(),
			LocalLeague:     rec.LocalLeague,
			European:        rec.European,
			Confidence:      rec.Confidence,
			Parameters:      params,
			LastUpdated:     rec.LastUpdated,
		}, nil
	})
}

// Ranking returns the strength table. Scope "overall" ranks by the aggregate
// score within the requested competition or everywhere; scope "european"
// ranks by the cross-league scale and drops teams outside it.
func (s *Service) Ranking(ctx context.Context, scope string, competitionID *int64) ([]byte, error) {
	key := "ranking:" + scope
	if competitionID != nil {
		key = fmt.Sprintf("%s:%d", key, *competitionID)
	}

	return s.cached(ctx, s.listTTL, key, func() (interface{}, error) {
		records, err := s.repos.Strengths.Ranking(ctx, competitionID, s.season)
		if err != nil {
			return nil, err
		}

		if scope == rankingScopeEuropean {
			ranked := make([]domain.StrengthRecord, 0, len(records))
			for _, r := range records {
				if r.European != nil {
					ranked = append(ranked, r)
				}
			}
			sort.SliceStable(ranked, func(i, j int) bool {
				return *ranked[i].European > *ranked[j].European
			})
			records = ranked
		}

		out := RankingResponse{
			Scope:         scope,
			CompetitionID: competitionID,
			Season:        s.season,
			Entries:       make([]RankingEntry, 0, len(records)),
			GeneratedAt:   time.Now().UTC(),
		}
		for i, r := range records {
			value := r.Overall
			if scope == rankingScopeEuropean {
				value = r.European
			}
			out.Entries = append(out.Entries, RankingEntry{
				Rank:          i + 1,
				Team:          r.TeamName,
				TeamID:        r.TeamID,
				CompetitionID: r.CompetitionID,
				Strength:      value,
				Percent:       percentOf(value),
				Confidence:    r.Confidence,
			})
		}
		return out, nil
	})
}

// Form reports a team's recent finished matches, newest first, with the
// stored form parameter alongside.
func (s *Service) Form(ctx context.Context, name string) ([]byte, error) {
	return s.cached(ctx, s.teamTTL, "form:"+strings.ToLower(name), func() (interface{}, error) {
		team, err := s.repos.Teams.GetByName(ctx, name)
		if err != nil {
			return nil, err
		}
		if team == nil {
			return nil, domain.NewError(domain.KindInvalid, fmt.Sprintf("unknown team %q", name))
		}

		matches, err := s.repos.Matches.ListRecentFinishedByTeam(ctx, team.ID, formWindow)
		if err != nil {
			return nil, err
		}

		out := FormResponse{
			Team:    team.Name,
			TeamID:  team.ID,
			Matches: make([]FormMatch, 0, len(matches)),
		}

		var letters strings.Builder
		for _, m := range matches {
			if m.HomeGoals == nil || m.AwayGoals == nil {
				continue
			}
			mine, theirs := *m.HomeGoals, *m.AwayGoals
			venue := "H"
			oppID := m.AwayTeamID
			if m.AwayTeamID == team.ID {
				mine, theirs = theirs, mine
				venue = "A"
				oppID = m.HomeTeamID
			}

			result := "D"
			points := 1
			switch {
			case mine > theirs:
				result, points = "W", 3
			case mine < theirs:
				result, points = "L", 0
			}
			letters.WriteString(result)
			out.Points += points

			out.Matches = append(out.Matches, FormMatch{
				FixtureID: m.FixtureID,
				Kickoff:   m.Kickoff,
				Opponent:  s.teamName(ctx, oppID),
				Venue:     venue,
				Score:     fmt.Sprintf("%d-%d", mine, theirs),
				Result:    result,
			})
		}
		out.FormString = letters.String()

		if rec, err := s.repos.Strengths.GetByTeamName(ctx, name); err != nil {
			return nil, err
		} else if rec != nil {
			out.FormScore = rec.Raw[domain.ParamForm]
		}
		return out, nil
	})
}

// Odds prices a pairing by team names. The decimal odds are rounded here at
// the response boundary; probabilities keep full precision.
func (s *Service) Odds(ctx context.Context, home, away string, neutral bool) ([]byte, error) {
	venue := "v"
	if neutral {
		venue = "n"
	}
	key := cache.Key("odds", strings.ToLower(home), strings.ToLower(away), venue)

	return s.cached(ctx, s.teamTTL, key, func() (interface{}, error) {
		homeRec, err := s.strengthRecord(ctx, home)
		if err != nil {
			return nil, err
		}
		awayRec, err := s.strengthRecord(ctx, away)
		if err != nil {
			return nil, err
		}

		quote, err := s.engine.Price(recordStrengths(homeRec), recordStrengths(awayRec), neutral)
		if err != nil {
			return nil, err
		}

		out := OddsResponse{
			Quote:       roundQuote(*quote),
			GeneratedAt: time.Now().UTC(),
		}

		next, err := s.repos.Matches.NextBetween(ctx, homeRec.TeamID, awayRec.TeamID)
		if err != nil {
			return nil, err
		}
		if next != nil {
			out.NextMeeting = &NextMeeting{
				FixtureID:     next.FixtureID,
				CompetitionID: next.CompetitionID,
				Kickoff:       next.Kickoff,
			}
		}
		return out, nil
	})
}

// Coverage reports per-competition, per-parameter raw value coverage for
// the active season.
func (s *Service) Coverage(ctx context.Context) ([]byte, error) {
	return s.cached(ctx, s.listTTL, "coverage", func() (interface{}, error) {
		rows, err := s.repos.Strengths.Coverage(ctx, s.season)
		if err != nil {
			return nil, err
		}

		byComp := make(map[int64]*CompetitionCoverage)
		presentByComp := make(map[int64]int)
		totalByComp := make(map[int64]int)
		for _, row := range rows {
			cc, ok := byComp[row.CompetitionID]
			if !ok {
				cc = &CompetitionCoverage{
					CompetitionID: row.CompetitionID,
					Parameters:    make(map[string]ParameterCoverage),
				}
				byComp[row.CompetitionID] = cc
			}
			cc.Parameters[string(row.Parameter)] = ParameterCoverage{
				Present: row.Present,
				Total:   row.Total,
				Pct:     pct(row.Present, row.Total),
				Oldest:  row.Oldest,
				Newest:  row.Newest,
			}
			if row.Oldest != nil && (cc.Oldest == nil || row.Oldest.Before(*cc.Oldest)) {
				cc.Oldest = row.Oldest
			}
			if row.Newest != nil && (cc.Newest == nil || row.Newest.After(*cc.Newest)) {
				cc.Newest = row.Newest
			}
			presentByComp[row.CompetitionID] += row.Present
			totalByComp[row.CompetitionID] += row.Total
		}

		out := CoverageResponse{
			Season:       s.season,
			Competitions: make([]CompetitionCoverage, 0, len(byComp)),
			GeneratedAt:  time.Now().UTC(),
		}
		for id, cc := range byComp {
			cc.OverallPct = pct(presentByComp[id], totalByComp[id])
			out.Competitions = append(out.Competitions, *cc)
		}
		sort.Slice(out.Competitions, func(i, j int) bool {
			return out.Competitions[i].CompetitionID < out.Competitions[j].CompetitionID
		})

		run, err := s.repos.Runs.Latest(ctx)
		if err != nil {
			return nil, err
		}
		out.LastRun = run
		return out, nil
	})
}

// LastUpdated reports the latest collection time per parameter and the most
// recent refresh run.
func (s *Service) LastUpdated(ctx context.Context) ([]byte, error) {
	return s.cached(ctx, s.listTTL, "last-update", func() (interface{}, error) {
		times, err := s.repos.Strengths.LastUpdated(ctx)
		if err != nil {
			return nil, err
		}

		out := LastUpdateResponse{Parameters: make(map[string]time.Time, len(times))}
		for p, t := range times {
			out.Parameters[string(p)] = t
			if out.Latest == nil || t.After(*out.Latest) {
				latest := t
				out.Latest = &latest
			}
		}

		run, err := s.repos.Runs.Latest(ctx)
		if err != nil {
			return nil, err
		}
		out.LastRun = run
		return out, nil
	})
}

// cached serves key from the response cache or fills, encodes and stores it.
// Fill errors are never cached.
func (s *Service) cached(ctx context.Context, ttl time.Duration, key string, fill func() (interface{}, error)) ([]byte, error) {
	full := cache.Key("api", strconv.FormatUint(s.gen.Load(), 10), key)

	if b, ok := s.cache.Get(ctx, full); ok {
		if s.metrics != nil {
			s.metrics.RecordCacheHit()
		}
		return b, nil
	}
	if s.metrics != nil {
		s.metrics.RecordCacheMiss()
	}

	v, err := fill()
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, domain.WrapError(domain.KindInternal, "failed to encode response", err)
	}
	s.cache.Set(ctx, full, b, ttl)
	return b, nil
}

func (s *Service) strengthRecord(ctx context.Context, name string) (*domain.StrengthRecord, error) {
	rec, err := s.repos.Strengths.GetByTeamName(ctx, name)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, domain.NewError(domain.KindInvalid, fmt.Sprintf("unknown team %q", name))
	}
	return rec, nil
}

func (s *Service) teamName(ctx context.Context, id int64) string {
	t, err := s.repos.Teams.Get(ctx, id)
	if err != nil || t == nil {
		return fmt.Sprintf("#%d", id)
	}
	return t.Name
}

// recordStrengths maps a stored record onto the odds engine's input.
func recordStrengths(rec *domain.StrengthRecord) odds.TeamStrengths {
	var missing []domain.Parameter
	for _, p := range domain.Parameters() {
		if rec.Raw[p] == nil {
			missing = append(missing, p)
		}
	}

	return odds.TeamStrengths{
		Name:          rec.TeamName,
		CompetitionID: rec.CompetitionID,
		Season:        rec.Season,
		LocalLeague:   rec.LocalLeague,
		European:      rec.European,
		Overall:       rec.Overall,
		Attack:        rec.Normalized[domain.ParamOffensiveRating],
		Defense:       rec.Normalized[domain.ParamDefensiveRating],
		Confidence:    rec.Confidence,
		Missing:       missing,
	}
}

// roundQuote applies the two-decimal presentation rounding to every leg.
func roundQuote(q odds.Quote) odds.Quote {
	round := func(l odds.Leg) odds.Leg {
		l.Decimal = odds.RoundOdds(l.Decimal)
		return l
	}
	q.OneXTwo.Home = round(q.OneXTwo.Home)
	q.OneXTwo.Draw = round(q.OneXTwo.Draw)
	q.OneXTwo.Away = round(q.OneXTwo.Away)
	q.OverUnder.Over = round(q.OverUnder.Over)
	q.OverUnder.Under = round(q.OverUnder.Under)
	q.BTTS.Yes = round(q.BTTS.Yes)
	q.BTTS.No = round(q.BTTS.No)
	return q
}

func percentOf(v *float64) *float64 {
	if v == nil {
		return nil
	}
	p := float64(int(*v*1000+0.5)) / 10
	return &p
}

func pct(present, total int) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(present) / float64(total)
}
