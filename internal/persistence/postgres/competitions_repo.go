package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/gregleo12/spooky-football-engine/internal/domain"
	"github.com/gregleo12/spooky-football-engine/internal/persistence"
)

// competitionsRepo implements CompetitionsRepo for PostgreSQL
type competitionsRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewCompetitionsRepo creates a new PostgreSQL competitions repository
func NewCompetitionsRepo(db *sqlx.DB, timeout time.Duration) persistence.CompetitionsRepo {
	return &competitionsRepo{
		db:      db,
		timeout: timeout,
	}
}

// Upsert inserts or updates one competition by provider ID
func (r *competitionsRepo) Upsert(ctx context.Context, c domain.Competition) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if c.Name == "" {
		return domain.NewError(domain.KindInvalid, "competition name cannot be empty")
	}

	query := `
		INSERT INTO competitions (id, name, country, comp_type, tier, season, provider_league_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			country = EXCLUDED.country,
			comp_type = EXCLUDED.comp_type,
			tier = EXCLUDED.tier,
			season = EXCLUDED.season,
			provider_league_id = EXCLUDED.provider_league_id`

	if _, err := r.db.ExecContext(ctx, query,
		c.ID, c.Name, c.Country, string(c.Type), c.Tier, c.Season, c.ProviderLeagueID); err != nil {
		return domain.WrapError(domain.KindStorage, "failed to upsert competition", err)
	}

	return nil
}

// Seed loads the shipped competition set, skipping existing rows
func (r *competitionsRepo) Seed(ctx context.Context, comps []domain.Competition) error {
	if len(comps) == 0 {
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
		INSERT INTO competitions (id, name, country, comp_type, tier, season, provider_league_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`)
	if err != nil {
		return domain.WrapError(domain.KindStorage, "failed to prepare seed statement", err)
	}
	defer stmt.Close()

	for _, c := range comps {
		if _, err := stmt.ExecContext(ctx,
			c.ID, c.Name, c.Country, string(c.Type), c.Tier, c.Season, c.ProviderLeagueID); err != nil {
			return domain.WrapError(domain.KindStorage, "failed to seed competition", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.WrapError(domain.KindStorage, "failed to commit seed", err)
	}
	return nil
}

// Get retrieves one competition, nil when absent
func (r *competitionsRepo) Get(ctx context.Context, id int64) (*domain.Competition, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT id, name, country, comp_type, tier, season, provider_league_id
		FROM competitions
		WHERE id = $1`

	c, err := scanCompetition(r.db.QueryRowxContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, domain.WrapError(domain.KindStorage, "failed to get competition", err)
	}
	return c, nil
}

// List returns all competitions ordered by ID
func (r *competitionsRepo) List(ctx context.Context) ([]domain.Competition, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT id, name, country, comp_type, tier, season, provider_league_id
		FROM competitions
		ORDER BY id`

	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, domain.WrapError(domain.KindStorage, "failed to list competitions", err)
	}
	defer rows.Close()

	var comps []domain.Competition
	for rows.Next() {
		var c domain.Competition
		var compType string
		if err := rows.Scan(&c.ID, &c.Name, &c.Country, &compType, &c.Tier, &c.Season, &c.ProviderLeagueID); err != nil {
			return nil, domain.WrapError(domain.KindStorage, "failed to scan competition", err)
		}
		c.Type = domain.CompetitionType(compType)
		comps = append(comps, c)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.KindStorage, "error iterating competitions", err)
	}

	return comps, nil
}

func scanCompetition(row *sqlx.Row) (*domain.Competition, error) {
	var c domain.Competition
	var compType string
	err := row.Scan(&c.ID, &c.Name, &c.Country, &compType, &c.Tier, &c.Season, &c.ProviderLeagueID)
	if err != nil {
		return nil, err
	}
	c.Type = domain.CompetitionType(compType)
	return &c, nil
}
