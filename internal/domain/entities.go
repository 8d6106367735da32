package domain

import "time"

// CompetitionType distinguishes the normalization scopes a competition can
// participate in. Domestic leagues form the union behind european_strength.
type CompetitionType string

const (
	CompetitionDomesticLeague CompetitionType = "domestic_league"
	CompetitionInternational  CompetitionType = "international"
)

// Team is a club or national side. Teams exist independent of competitions
// and are created on first observation, never auto-deleted.
type Team struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Country        string    `json:"country,omitempty"`
	ProviderTeamID *int64    `json:"provider_team_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Competition is a league or tournament scope within a season. The
// (competition, season) pair is the unit of normalization.
type Competition struct {
	ID               int64           `json:"id"`
	Name             string          `json:"name"`
	Country          string          `json:"country"`
	Type             CompetitionType `json:"type"`
	Tier             int             `json:"tier"`
	Season           string          `json:"season"`
	ProviderLeagueID *int64          `json:"provider_league_id,omitempty"`
}

// IsDomestic reports whether the competition joins the cross-league
// normalization pool.
func (c Competition) IsDomestic() bool { return c.Type == CompetitionDomesticLeague }

// StrengthRecord is the central TeamInCompetition record: one team's raw and
// normalized parameter values plus derived strengths within a
// (competition, season). Raw values are written by collectors only; every
// other field is recomputed from them.
type StrengthRecord struct {
	TeamID        int64  `json:"team_id"`
	TeamName      string `json:"team_name"`
	CompetitionID int64  `json:"competition_id"`
	Season        string `json:"season"`

	Raw        map[Parameter]*float64 `json:"raw"`
	Normalized map[Parameter]*float64 `json:"normalized"`

	// Overall is the weighted aggregate in [0,1], null until every positively
	// weighted parameter has been normalized (or the partial policy applies).
	Overall    *float64 `json:"overall_strength"`
	Confidence float64  `json:"confidence"`

	LocalLeague *float64 `json:"local_league_strength"`
	European    *float64 `json:"european_strength"`

	LastUpdated time.Time `json:"last_updated"`
}

// OverallPercent returns the presentation form of Overall (0-100, one
// decimal). The [0,1] value remains canonical.
func (r *StrengthRecord) OverallPercent() *float64 {
	if r.Overall == nil {
		return nil
	}
	pct := float64(int(*r.Overall*1000+0.5)) / 10
	return &pct
}

// MatchStatus is the lifecycle state of a fixture.
type MatchStatus string

const (
	MatchScheduled MatchStatus = "scheduled"
	MatchFinished  MatchStatus = "finished"
	MatchPostponed MatchStatus = "postponed"
)

// Match is a single fixture. Scores stay null until the match finishes.
type Match struct {
	FixtureID     int64       `json:"fixture_id"`
	CompetitionID int64       `json:"competition_id"`
	Season        string      `json:"season"`
	HomeTeamID    int64       `json:"home_team_id"`
	AwayTeamID    int64       `json:"away_team_id"`
	Kickoff       time.Time   `json:"kickoff"`
	HomeGoals     *int        `json:"home_goals"`
	AwayGoals     *int        `json:"away_goals"`
	Status        MatchStatus `json:"status"`
}

// Finished reports whether the match produced a final score.
func (m Match) Finished() bool {
	return m.Status == MatchFinished && m.HomeGoals != nil && m.AwayGoals != nil
}

// Outcome is a match result from one team's perspective.
type Outcome int

const (
	OutcomeLoss Outcome = iota
	OutcomeDraw
	OutcomeWin
)

// Points returns league points for the outcome.
func (o Outcome) Points() int {
	switch o {
	case OutcomeWin:
		return 3
	case OutcomeDraw:
		return 1
	default:
		return 0
	}
}

// OutcomeFor returns the result from teamID's perspective. The second return
// is false for unfinished matches or foreign team ids.
func (m Match) OutcomeFor(teamID int64) (Outcome, bool) {
	if !m.Finished() {
		return OutcomeLoss, false
	}
	var own, opp int
	switch teamID {
	case m.HomeTeamID:
		own, opp = *m.HomeGoals, *m.AwayGoals
	case m.AwayTeamID:
		own, opp = *m.AwayGoals, *m.HomeGoals
	default:
		return OutcomeLoss, false
	}
	switch {
	case own > opp:
		return OutcomeWin, true
	case own == opp:
		return OutcomeDraw, true
	default:
		return OutcomeLoss, true
	}
}

// GoalsFor returns the goals teamID scored in the match.
func (m Match) GoalsFor(teamID int64) (int, bool) {
	if !m.Finished() {
		return 0, false
	}
	switch teamID {
	case m.HomeTeamID:
		return *m.HomeGoals, true
	case m.AwayTeamID:
		return *m.AwayGoals, true
	}
	return 0, false
}

// GoalsAgainst returns the goals teamID conceded in the match.
func (m Match) GoalsAgainst(teamID int64) (int, bool) {
	if !m.Finished() {
		return 0, false
	}
	switch teamID {
	case m.HomeTeamID:
		return *m.AwayGoals, true
	case m.AwayTeamID:
		return *m.HomeGoals, true
	}
	return 0, false
}

// StandingsRow is one line of a league table snapshot, input to the
// motivation collector.
type StandingsRow struct {
	TeamID       int64  `json:"team_id"`
	TeamName     string `json:"team_name"`
	Position     int    `json:"position"`
	Played       int    `json:"played"`
	Points       int    `json:"points"`
	GoalsFor     int    `json:"goals_for"`
	GoalsAgainst int    `json:"goals_against"`
}

// Float returns a pointer to v; convenience for nullable columns and maps.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// Time returns a pointer to v.
func Time(v time.Time) *time.Time { return &v }
