// Package apifootball is the API-Football v3 client. Every call goes
// through a provider guard, so rate limits, the daily budget, caching and
// retries are handled before a request ever leaves this package.
package apifootball

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gregleo12/spooky-football-engine/internal/config"
	"github.com/gregleo12/spooky-football-engine/internal/domain"
	"github.com/gregleo12/spooky-football-engine/internal/infrastructure/cache"
	"github.com/gregleo12/spooky-football-engine/internal/providers/guard"
)

// Name is the provider key used in config files and cache keys.
const Name = "api_football"

// maxBodyBytes bounds a single response body. A full season of fixtures
// for one league is well under 1 MB.
const maxBodyBytes = 8 << 20

// maxSquadRows bounds how many player rows pagination will accumulate
// for one team before giving up on the paging block.
const maxSquadRows = 200

// Client talks to API-Football. All methods return classified errors, so
// callers can distinguish transient outages from permanent rejections.
type Client struct {
	cfg       config.ProviderConfig
	guard     *guard.Guard
	http      *http.Client
	key       string
	userAgent string
}

// New builds a client over an existing guard. The API key is resolved from
// the configured environment variable once, at startup, so a missing key
// fails fast instead of on the first scheduled refresh.
func New(cfg config.ProviderConfig, global config.GlobalConfig, g *guard.Guard) (*Client, error) {
	key := cfg.APIKey()
	if key == "" {
		return nil, domain.NewError(domain.KindConfiguration,
			fmt.Sprintf("provider %s: environment variable %s is not set", Name, cfg.APIKeyEnv))
	}

	return &Client{
		cfg:   cfg,
		guard: g,
		http: &http.Client{
			Transport: &http.Transport{
				MaxConnsPerHost:     global.MaxConcurrentPerHost,
				MaxIdleConnsPerHost: global.MaxConcurrentPerHost,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		key:       key,
		userAgent: global.UserAgent,
	}, nil
}

// Fixtures returns every fixture of a league season, finished or not.
func (c *Client) Fixtures(ctx context.Context, leagueID int64, season string) ([]Fixture, error) {
	url := fmt.Sprintf("%s/fixtures?league=%d&season=%s", c.cfg.BaseURL, leagueID, season)
	key := c.cacheKey("fixtures", strconv.FormatInt(leagueID, 10), season)

	var rows []Fixture
	if _, err := c.get(ctx, key, url, &rows); err != nil {
		return nil, err
	}

	log.Debug().
		Int64("league", leagueID).
		Str("season", season).
		Int("fixtures", len(rows)).
		Msg("API-Football fixtures retrieved")

	return rows, nil
}

// Standings returns the league table for a season. Competitions with group
// stages report several tables; only the first is returned, which is the
// full table for league formats.
func (c *Client) Standings(ctx context.Context, leagueID int64, season string) ([]Standing, error) {
	url := fmt.Sprintf("%s/standings?league=%d&season=%s", c.cfg.BaseURL, leagueID, season)
	key := c.cacheKey("standings", strconv.FormatInt(leagueID, 10), season)

	var rows []standingsEnvelope
	if _, err := c.get(ctx, key, url, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 || len(rows[0].League.Standings) == 0 {
		return nil, nil
	}

	table := rows[0].League.Standings[0]

	log.Debug().
		Int64("league", leagueID).
		Str("season", season).
		Int("teams", len(table)).
		Msg("API-Football standings retrieved")

	return table, nil
}

// Teams returns the clubs that take part in a league season.
func (c *Client) Teams(ctx context.Context, leagueID int64, season string) ([]TeamEntry, error) {
	url := fmt.Sprintf("%s/teams?league=%d&season=%s", c.cfg.BaseURL, leagueID, season)
	key := c.cacheKey("teams", strconv.FormatInt(leagueID, 10), season)

	var rows []TeamEntry
	if _, err := c.get(ctx, key, url, &rows); err != nil {
		return nil, err
	}

	log.Debug().
		Int64("league", leagueID).
		Str("season", season).
		Int("teams", len(rows)).
		Msg("API-Football teams retrieved")

	return rows, nil
}

// Players returns season statistics for every player of a team. The
// endpoint is paginated; pages are fetched until the paging block says
// stop or the page cap is reached.
func (c *Client) Players(ctx context.Context, teamID int64, season string) ([]PlayerEntry, error) {
	var all []PlayerEntry

	for page := 1; page <= c.pageCap(); page++ {
		url := fmt.Sprintf("%s/players?team=%d&season=%s&page=%d", c.cfg.BaseURL, teamID, season, page)
		key := c.cacheKey("players", strconv.FormatInt(teamID, 10), season, strconv.Itoa(page))

		var rows []PlayerEntry
		pg, err := c.get(ctx, key, url, &rows)
		if err != nil {
			return nil, err
		}
		all = append(all, rows...)

		if pg.Total <= page {
			break
		}
	}

	log.Debug().
		Int64("team", teamID).
		Str("season", season).
		Int("players", len(all)).
		Msg("API-Football players retrieved")

	return all, nil
}

// Injuries returns the current injury and suspension list for a team.
func (c *Client) Injuries(ctx context.Context, teamID int64, season string) ([]InjuryEntry, error) {
	url := fmt.Sprintf("%s/injuries?team=%d&season=%s", c.cfg.BaseURL, teamID, season)
	key := c.cacheKey("injuries", strconv.FormatInt(teamID, 10), season)

	var rows []InjuryEntry
	if _, err := c.get(ctx, key, url, &rows); err != nil {
		return nil, err
	}

	log.Debug().
		Int64("team", teamID).
		Str("season", season).
		Int("injuries", len(rows)).
		Msg("API-Football injuries retrieved")

	return rows, nil
}

// Health reports the guard state for this provider.
func (c *Client) Health() guard.Health {
	return c.guard.Health()
}

// get runs one guarded request and unmarshals the response array into out.
func (c *Client) get(ctx context.Context, cacheKey, url string, out interface{}) (paging, error) {
	resp, err := c.guard.Do(ctx, cacheKey, c.fetch(url))
	if err != nil {
		return paging{}, err
	}

	var env envelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return paging{}, domain.WrapError(domain.KindPermanent,
			fmt.Sprintf("provider %s returned an unreadable body", Name), err)
	}
	if len(env.Response) > 0 {
		if err := json.Unmarshal(env.Response, out); err != nil {
			return paging{}, domain.WrapError(domain.KindPermanent,
				fmt.Sprintf("provider %s response shape changed", Name), err)
		}
	}
	return env.Paging, nil
}

// fetch builds the guard fetcher for one URL. Envelope-level API errors are
// converted to HTTP errors here so the guard never caches them and applies
// its usual retry classification.
func (c *Client) fetch(url string) guard.Fetcher {
	return func(ctx context.Context) (*guard.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set(c.cfg.AuthHeader, c.key)
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, err
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			if err := envelopeError(body); err != nil {
				return nil, err
			}
		}

		return &guard.Response{Status: resp.StatusCode, Body: body, Header: resp.Header}, nil
	}
}

// envelopeError surfaces failures the API reports inside an HTTP 200 body.
// Over-quota errors map to 429 and everything else to 403, which lines up
// with how the guard classifies plain HTTP statuses.
func envelopeError(body []byte) error {
	var env struct {
		Errors json.RawMessage `json:"errors"`
	}
	if json.Unmarshal(body, &env) != nil || len(env.Errors) == 0 {
		return nil
	}

	// The errors field is an empty array on success and an object on
	// failure, so a map decode failing means there is nothing to report.
	msgs := map[string]string{}
	if err := json.Unmarshal(env.Errors, &msgs); err != nil || len(msgs) == 0 {
		return nil
	}

	keys := make([]string, 0, len(msgs))
	for k := range msgs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	status := http.StatusForbidden
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == "rateLimit" || k == "requests" {
			status = http.StatusTooManyRequests
		}
		parts = append(parts, fmt.Sprintf("%s: %s", k, msgs[k]))
	}

	return fmt.Errorf("api error %s: %w", strings.Join(parts, "; "), &guard.HTTPError{Status: status})
}

// pageCap bounds pagination so a bad paging block cannot drain the daily
// budget on one squad.
func (c *Client) pageCap() int {
	if c.cfg.MaxPerPage <= 0 {
		return 1
	}
	return maxSquadRows/c.cfg.MaxPerPage + 1
}

func (c *Client) cacheKey(parts ...string) string {
	return cache.Key(append([]string{"prov", Name}, parts...)...)
}

// envelope is the frame every API-Football response arrives in.
type envelope struct {
	Get      string          `json:"get"`
	Results  int             `json:"results"`
	Paging   paging          `json:"paging"`
	Response json.RawMessage `json:"response"`
}

type paging struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// Fixture is one row of the fixtures response.
type Fixture struct {
	Fixture FixtureInfo  `json:"fixture"`
	Teams   FixtureTeams `json:"teams"`
	Goals   FixtureGoals `json:"goals"`
}

// Finished reports whether the match produced a final result. FT is full
// time, AET after extra time, PEN decided on penalties.
func (f Fixture) Finished() bool {
	switch f.Fixture.Status.Short {
	case "FT", "AET", "PEN":
		return true
	}
	return false
}

type FixtureInfo struct {
	ID     int64         `json:"id"`
	Date   time.Time     `json:"date"`
	Status FixtureStatus `json:"status"`
}

type FixtureStatus struct {
	Short   string `json:"short"`
	Elapsed *int   `json:"elapsed"`
}

type FixtureTeams struct {
	Home TeamRef `json:"home"`
	Away TeamRef `json:"away"`
}

// TeamRef is the short team block embedded in fixtures and standings.
type TeamRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// FixtureGoals holds the full-time score. Both values are null until the
// match kicks off.
type FixtureGoals struct {
	Home *int `json:"home"`
	Away *int `json:"away"`
}

// standingsEnvelope is the outer league wrapper of the standings response.
type standingsEnvelope struct {
	League struct {
		ID        int64        `json:"id"`
		Name      string       `json:"name"`
		Season    int          `json:"season"`
		Standings [][]Standing `json:"standings"`
	} `json:"league"`
}

// Standing is one row of a league table.
type Standing struct {
	Rank      int           `json:"rank"`
	Team      TeamRef       `json:"team"`
	Points    int           `json:"points"`
	GoalsDiff int           `json:"goalsDiff"`
	Form      string        `json:"form"`
	All       StandingStats `json:"all"`
	Home      StandingStats `json:"home"`
	Away      StandingStats `json:"away"`
}

type StandingStats struct {
	Played int           `json:"played"`
	Win    int           `json:"win"`
	Draw   int           `json:"draw"`
	Lose   int           `json:"lose"`
	Goals  StandingGoals `json:"goals"`
}

type StandingGoals struct {
	For     int `json:"for"`
	Against int `json:"against"`
}

// TeamEntry is one row of the teams response.
type TeamEntry struct {
	Team  TeamInfo  `json:"team"`
	Venue VenueInfo `json:"venue"`
}

type TeamInfo struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Code    string `json:"code"`
	Country string `json:"country"`
	Founded int    `json:"founded"`
	Logo    string `json:"logo"`
}

type VenueInfo struct {
	Name     string `json:"name"`
	City     string `json:"city"`
	Capacity int    `json:"capacity"`
}

// PlayerEntry is one row of the players response. Statistics carries one
// block per competition the player appeared in; the first block is the
// league the query ran against.
type PlayerEntry struct {
	Player     Player        `json:"player"`
	Statistics []PlayerStats `json:"statistics"`
}

type Player struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Age  int    `json:"age"`
}

type PlayerStats struct {
	Games PlayerGames `json:"games"`
	Goals PlayerGoals `json:"goals"`
}

type PlayerGames struct {
	// The upstream field really is spelled this way.
	Appearances int    `json:"appearences"`
	Minutes     int    `json:"minutes"`
	Position    string `json:"position"`
}

type PlayerGoals struct {
	Total   int `json:"total"`
	Assists int `json:"assists"`
}

// InjuryEntry is one row of the injuries response. The API reports the
// injury type and reason inside the player block.
type InjuryEntry struct {
	Player InjuredPlayer `json:"player"`
	Team   TeamRef       `json:"team"`
}

type InjuredPlayer struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Reason string `json:"reason"`
}
