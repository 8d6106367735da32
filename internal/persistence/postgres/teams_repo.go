package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/gregleo12/spooky-football-engine/internal/domain"
	"github.com/gregleo12/spooky-football-engine/internal/persistence"
)

// teamsRepo implements TeamsRepo for PostgreSQL
type teamsRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewTeamsRepo creates a new PostgreSQL teams repository
func NewTeamsRepo(db *sqlx.DB, timeout time.Duration) persistence.TeamsRepo {
	return &teamsRepo{
		db:      db,
		timeout: timeout,
	}
}

// UpsertBatch inserts or updates teams atomically by provider ID
func (r *teamsRepo) UpsertBatch(ctx context.Context, teams []domain.Team) error {
	if len(teams) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.WrapError(domain.KindStorage, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO teams (id, name, country, provider_team_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			country = EXCLUDED.country,
			provider_team_id = EXCLUDED.provider_team_id`)
	if err != nil {
		return domain.WrapError(domain.KindStorage, "failed to prepare team upsert", err)
	}
	defer stmt.Close()

	for _, t := range teams {
		if t.Name == "" {
			return domain.NewError(domain.KindInvalid, "team name cannot be empty")
		}
		if _, err := stmt.ExecContext(ctx, t.ID, t.Name, t.Country, t.ProviderTeamID); err != nil {
			return domain.WrapError(domain.KindStorage, "failed to upsert team", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.WrapError(domain.KindStorage, "failed to commit team batch", err)
	}
	return nil
}

// AddToCompetition records membership for a season, idempotently
func (r *teamsRepo) AddToCompetition(ctx context.Context, teamID, competitionID int64, season string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO team_competitions (team_id, competition_id, season)
		VALUES ($1, $2, $3)
		ON CONFLICT (team_id, competition_id, season) DO NOTHING`

	if _, err := r.db.ExecContext(ctx, query, teamID, competitionID, season); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			return domain.WrapError(domain.KindInvalid, "unknown team or competition", err)
		}
		return domain.WrapError(domain.KindStorage, "failed to add team to competition", err)
	}

	return nil
}

// Get retrieves one team, nil when absent
func (r *teamsRepo) Get(ctx context.Context, id int64) (*domain.Team, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT id, name, country, provider_team_id, created_at
		FROM teams
		WHERE id = $1`

	t, err := scanTeam(r.db.QueryRowxContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, domain.WrapError(domain.KindStorage, "failed to get team", err)
	}
	return t, nil
}

// GetByName retrieves a team by case-insensitive name, nil when absent
func (r *teamsRepo) GetByName(ctx context.Context, name string) (*domain.Team, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT id, name, country, provider_team_id, created_at
		FROM teams
		WHERE LOWER(name) = LOWER($1)
		ORDER BY id
		LIMIT 1`

	t, err := scanTeam(r.db.QueryRowxContext(ctx, query, name))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, domain.WrapError(domain.KindStorage, "failed to get team by name", err)
	}
	return t, nil
}

// ListByCompetition returns the members of a competition season
func (r *teamsRepo) ListByCompetition(ctx context.Context, competitionID int64, season string) ([]domain.Team, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT t.id, t.name, t.country, t.provider_team_id, t.created_at
		FROM teams t
		JOIN team_competitions tc ON tc.team_id = t.id
		WHERE tc.competition_id = $1 AND tc.season = $2
		ORDER BY t.name`

	rows, err := r.db.QueryxContext(ctx, query, competitionID, season)
	if err != nil {
		return nil, domain.WrapError(domain.KindStorage, "failed to list competition teams", err)
	}
	defer rows.Close()

	return scanTeams(rows)
}

// List returns all known teams ordered by name
func (r *teamsRepo) List(ctx context.Context) ([]domain.Team, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT id, name, country, provider_team_id, created_at
		FROM teams
		ORDER BY name`

	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, domain.WrapError(domain.KindStorage, "failed to list teams", err)
	}
	defer rows.Close()

	return scanTeams(rows)
}

func scanTeam(row *sqlx.Row) (*domain.Team, error) {
	var t domain.Team
	if err := row.Scan(&t.ID, &t.Name, &t.Country, &t.ProviderTeamID, &t.CreatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func scanTeams(rows *sqlx.Rows) ([]domain.Team, error) {
	var teams []domain.Team
	for rows.Next() {
		var t domain.Team
		if err := rows.Scan(&t.ID, &t.Name, &t.Country, &t.ProviderTeamID, &t.CreatedAt); err != nil {
			return nil, domain.WrapError(domain.KindStorage, "failed to scan team", err)
		}
		teams = append(teams, t)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.KindStorage, "error iterating teams", err)
	}
	return teams, nil
}
