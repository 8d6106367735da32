package http

import (
	"time"

	"github.com/gregleo12/spooky-football-engine/internal/odds"
	"github.com/gregleo12/spooky-football-engine/internal/persistence"
)

// ErrorResponse is the standard JSON error body for every non-2xx answer.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Code      string    `json:"code"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// RefusalResponse explains why a pairing could not be priced: the named
// team has no usable strength and the listed parameters are the gap.
type RefusalResponse struct {
	Error     string    `json:"error"`
	Team      string    `json:"team"`
	Missing   []string  `json:"missing_parameters"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// TeamSummary is one row of the team listing.
type TeamSummary struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Country string `json:"country,omitempty"`
}

// TeamsResponse answers GET /api/teams.
type TeamsResponse struct {
	Teams         []TeamSummary `json:"teams"`
	Count         int           `json:"count"`
	CompetitionID *int64        `json:"competition_id,omitempty"`
}

// ParameterValue pairs one parameter's raw observation with its normalized
// position in the peer group.
type ParameterValue struct {
	Raw        *float64 `json:"raw"`
	Normalized *float64 `json:"normalized"`
}

// StrengthResponse answers GET /api/strength/{team}.
type StrengthResponse struct {
	Team          string `json:"team"`
	TeamID        int64  `json:"team_id"`
	CompetitionID int64  `json:"competition_id"`
	Season        string `json:"season"`

	OverallStrength *float64 `json:"overall_strength"`
	OverallPercent  *float64 `json:"overall_percent"`
	LocalLeague     *float64 `json:"local_league_strength"`
	European        *float64 `json:"european_strength"`
	Confidence      float64  `json:"confidence"`

	Parameters map[string]ParameterValue `json:"parameters"`

	LastUpdated time.Time `json:"last_updated"`
}

// RankingEntry is one row of a strength table.
type RankingEntry struct {
	Rank          int      `json:"rank"`
	Team          string   `json:"team"`
	TeamID        int64    `json:"team_id"`
	CompetitionID int64    `json:"competition_id"`
	Strength      *float64 `json:"strength"`
	Percent       *float64 `json:"percent"`
	Confidence    float64  `json:"confidence"`
}

// RankingResponse answers GET /api/teams/ranking.
type RankingResponse struct {
	Scope         string         `json:"scope"`
	CompetitionID *int64         `json:"competition_id,omitempty"`
	Season        string         `json:"season"`
	Entries       []RankingEntry `json:"entries"`
	GeneratedAt   time.Time      `json:"generated_at"`
}

// FormMatch is one finished fixture from a team's perspective.
type FormMatch struct {
	FixtureID int64     `json:"fixture_id"`
	Kickoff   time.Time `json:"kickoff"`
	Opponent  string    `json:"opponent"`
	Venue     string    `json:"venue"` // H or A
	Score     string    `json:"score"`
	Result    string    `json:"result"` // W, D or L
}

// FormResponse answers GET /api/form/{team}: the recent finished matches
// behind the form parameter, newest first.
type FormResponse struct {
	Team       string      `json:"team"`
	TeamID     int64       `json:"team_id"`
	FormString string      `json:"form_string"`
	Points     int         `json:"points"`
	FormScore  *float64    `json:"form_score"`
	Matches    []FormMatch `json:"matches"`
}

// NextMeeting is the next known fixture between a priced pairing.
type NextMeeting struct {
	FixtureID     int64     `json:"fixture_id"`
	CompetitionID int64     `json:"competition_id"`
	Kickoff       time.Time `json:"kickoff"`
}

// OddsResponse answers GET /api/odds/{home}/{away}: the full priced quote
// with boundary-rounded decimal odds, plus the next known meeting.
type OddsResponse struct {
	odds.Quote
	NextMeeting *NextMeeting `json:"next_meeting,omitempty"`
	GeneratedAt time.Time    `json:"generated_at"`
}

// ParameterCoverage reports raw-value presence for one parameter in one
// competition season.
type ParameterCoverage struct {
	Present int        `json:"present"`
	Total   int        `json:"total"`
	Pct     float64    `json:"pct"`
	Oldest  *time.Time `json:"oldest,omitempty"`
	Newest  *time.Time `json:"newest,omitempty"`
}

// CompetitionCoverage groups parameter coverage per competition. Oldest and
// Newest bound the competition's collection times across all parameters.
type CompetitionCoverage struct {
	CompetitionID int64                        `json:"competition_id"`
	Parameters    map[string]ParameterCoverage `json:"parameters"`
	OverallPct    float64                      `json:"overall_pct"`
	Oldest        *time.Time                   `json:"oldest,omitempty"`
	Newest        *time.Time                   `json:"newest,omitempty"`
}

// CoverageResponse answers GET /api/coverage.
type CoverageResponse struct {
	Season       string                   `json:"season"`
	Competitions []CompetitionCoverage    `json:"competitions"`
	LastRun      *persistence.RunSummary  `json:"last_run,omitempty"`
	GeneratedAt  time.Time                `json:"generated_at"`
}

// LastUpdateResponse answers GET /api/last-update.
type LastUpdateResponse struct {
	Parameters map[string]time.Time    `json:"parameters"`
	Latest     *time.Time              `json:"latest,omitempty"`
	LastRun    *persistence.RunSummary `json:"last_run,omitempty"`
}
