package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/gregleo12/spooky-football-engine/internal/domain"
)

// schemaStatements creates the full schema. Every statement is idempotent
// so EnsureSchema can run on every startup.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS competitions (
		id                 BIGINT PRIMARY KEY,
		name               TEXT NOT NULL,
		country            TEXT NOT NULL DEFAULT '',
		comp_type          TEXT NOT NULL,
		tier               INT  NOT NULL DEFAULT 1,
		season             TEXT NOT NULL DEFAULT '',
		provider_league_id BIGINT
	)`,

	`CREATE TABLE IF NOT EXISTS teams (
		id               BIGINT PRIMARY KEY,
		name             TEXT NOT NULL,
		country          TEXT NOT NULL DEFAULT '',
		provider_team_id BIGINT,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_teams_name ON teams (LOWER(name))`,

	`CREATE TABLE IF NOT EXISTS team_competitions (
		team_id        BIGINT NOT NULL REFERENCES teams(id),
		competition_id BIGINT NOT NULL REFERENCES competitions(id),
		season         TEXT   NOT NULL,
		PRIMARY KEY (team_id, competition_id, season)
	)`,

	`CREATE TABLE IF NOT EXISTS matches (
		fixture_id     BIGINT PRIMARY KEY,
		competition_id BIGINT NOT NULL,
		season         TEXT   NOT NULL,
		home_team_id   BIGINT NOT NULL,
		away_team_id   BIGINT NOT NULL,
		kickoff        TIMESTAMPTZ NOT NULL,
		home_goals     INT,
		away_goals     INT,
		status         TEXT NOT NULL DEFAULT 'scheduled'
	)`,
	`CREATE INDEX IF NOT EXISTS idx_matches_competition ON matches (competition_id, season)`,
	`CREATE INDEX IF NOT EXISTS idx_matches_home ON matches (home_team_id, kickoff DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_matches_away ON matches (away_team_id, kickoff DESC)`,

	`CREATE TABLE IF NOT EXISTS strength_values (
		team_id          BIGINT NOT NULL,
		competition_id   BIGINT NOT NULL,
		season           TEXT   NOT NULL,
		parameter        TEXT   NOT NULL,
		raw_value        DOUBLE PRECISION,
		normalized_value DOUBLE PRECISION,
		collected_at     TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (team_id, competition_id, season, parameter)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_strength_values_scope
		ON strength_values (competition_id, season, parameter)`,

	`CREATE TABLE IF NOT EXISTS strength_scores (
		team_id        BIGINT NOT NULL,
		competition_id BIGINT NOT NULL,
		season         TEXT   NOT NULL,
		overall        DOUBLE PRECISION,
		confidence     DOUBLE PRECISION NOT NULL DEFAULT 0,
		local_league   DOUBLE PRECISION,
		european       DOUBLE PRECISION,
		updated_at     TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (team_id, competition_id, season)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_strength_scores_rank
		ON strength_scores (competition_id, season, overall DESC NULLS LAST)`,

	`CREATE TABLE IF NOT EXISTS refresh_runs (
		id           UUID PRIMARY KEY,
		run_trigger  TEXT NOT NULL,
		season       TEXT NOT NULL,
		started_at   TIMESTAMPTZ NOT NULL,
		finished_at  TIMESTAMPTZ NOT NULL,
		collected    INT NOT NULL,
		failed       INT NOT NULL,
		competitions INT NOT NULL,
		errors       JSONB
	)`,
	`CREATE INDEX IF NOT EXISTS idx_refresh_runs_started ON refresh_runs (started_at DESC)`,
}

// EnsureSchema creates any missing tables and indexes
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return domain.WrapError(domain.KindStorage, "failed to apply schema", err)
		}
	}
	return nil
}

// SeedCompetitions returns the shipped competition set: the top five
// domestic leagues plus the three UEFA club competitions, keyed by their
// API-Football IDs.
func SeedCompetitions() []domain.Competition {
	return []domain.Competition{
		{ID: 39, Name: "Premier League", Country: "England", Type: domain.CompetitionDomesticLeague, Tier: 1},
		{ID: 140, Name: "La Liga", Country: "Spain", Type: domain.CompetitionDomesticLeague, Tier: 1},
		{ID: 135, Name: "Serie A", Country: "Italy", Type: domain.CompetitionDomesticLeague, Tier: 1},
		{ID: 78, Name: "Bundesliga", Country: "Germany", Type: domain.CompetitionDomesticLeague, Tier: 1},
		{ID: 61, Name: "Ligue 1", Country: "France", Type: domain.CompetitionDomesticLeague, Tier: 1},
		{ID: 2, Name: "UEFA Champions League", Country: "", Type: domain.CompetitionInternational, Tier: 1},
		{ID: 3, Name: "UEFA Europa League", Country: "", Type: domain.CompetitionInternational, Tier: 2},
		{ID: 848, Name: "UEFA Europa Conference League", Country: "", Type: domain.CompetitionInternational, Tier: 3},
	}
}
