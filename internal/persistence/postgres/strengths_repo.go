package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/gregleo12/spooky-football-engine/internal/domain"
	"github.com/gregleo12/spooky-football-engine/internal/persistence"
)

// strengthsRepo implements StrengthsRepo for PostgreSQL
type strengthsRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewStrengthsRepo creates a new PostgreSQL strengths repository
func NewStrengthsRepo(db *sqlx.DB, timeout time.Duration) persistence.StrengthsRepo {
	return &strengthsRepo{
		db:      db,
		timeout: timeout,
	}
}

// UpsertRaw records one collected observation. A new raw value clears the
// stored normalized value so a stale one is never served.
func (r *strengthsRepo) UpsertRaw(ctx context.Context, v persistence.RawValue) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if !v.Parameter.Valid() {
		return domain.NewError(domain.KindInvalid, "unknown parameter "+string(v.Parameter))
	}

	query := `
		INSERT INTO strength_values (team_id, competition_id, season, parameter, raw_value, collected_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (team_id, competition_id, season, parameter) DO UPDATE SET
			raw_value = EXCLUDED.raw_value,
			normalized_value = NULL,
			collected_at = EXCLUDED.collected_at`

	if _, err := r.db.ExecContext(ctx, query,
		v.TeamID, v.CompetitionID, v.Season, string(v.Parameter), v.Raw, v.CollectedAt); err != nil {
		return domain.WrapError(domain.KindStorage, "failed to upsert raw value", err)
	}

	return nil
}

// SnapshotRaw returns every raw observation for a competition season
func (r *strengthsRepo) SnapshotRaw(ctx context.Context, competitionID int64, season string) ([]persistence.RawValue, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT team_id, competition_id, season, parameter, raw_value, collected_at
		FROM strength_values
		WHERE competition_id = $1 AND season = $2
		ORDER BY team_id, parameter`

	rows, err := r.db.QueryxContext(ctx, query, competitionID, season)
	if err != nil {
		return nil, domain.WrapError(domain.KindStorage, "failed to snapshot raw values", err)
	}
	defer rows.Close()

	var values []persistence.RawValue
	for rows.Next() {
		var v persistence.RawValue
		var param string
		if err := rows.Scan(&v.TeamID, &v.CompetitionID, &v.Season, &param, &v.Raw, &v.CollectedAt); err != nil {
			return nil, domain.WrapError(domain.KindStorage, "failed to scan raw value", err)
		}
		v.Parameter = domain.Parameter(param)
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.KindStorage, "error iterating raw values", err)
	}

	return values, nil
}

// SaveScores writes normalized values and aggregate scores for a competition
// season in one transaction
func (r *strengthsRepo) SaveScores(ctx context.Context, records []domain.StrengthRecord) error {
	if len(records) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout*time.Duration(len(records)/50+1))
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.WrapError(domain.KindStorage, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	normStmt, err := tx.PrepareContext(ctx, `
		UPDATE strength_values
		SET normalized_value = $1
		WHERE team_id = $2 AND competition_id = $3 AND season = $4 AND parameter = $5`)
	if err != nil {
		return domain.WrapError(domain.KindStorage, "failed to prepare normalized update", err)
	}
	defer normStmt.Close()

	scoreStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO strength_scores (team_id, competition_id, season, overall, confidence, local_league, european, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (team_id, competition_id, season) DO UPDATE SET
			overall = EXCLUDED.overall,
			confidence = EXCLUDED.confidence,
			local_league = EXCLUDED.local_league,
			european = EXCLUDED.european,
			updated_at = EXCLUDED.updated_at`)
	if err != nil {
		return domain.WrapError(domain.KindStorage, "failed to prepare score upsert", err)
	}
	defer scoreStmt.Close()

	for _, rec := range records {
		for param, norm := range rec.Normalized {
			if _, err := normStmt.ExecContext(ctx,
				norm, rec.TeamID, rec.CompetitionID, rec.Season, string(param)); err != nil {
				return domain.WrapError(domain.KindStorage, "failed to update normalized value", err)
			}
		}

		updated := rec.LastUpdated
		if updated.IsZero() {
			updated = time.Now().UTC()
		}
		if _, err := scoreStmt.ExecContext(ctx,
			rec.TeamID, rec.CompetitionID, rec.Season,
			rec.Overall, rec.Confidence, rec.LocalLeague, rec.European, updated); err != nil {
			return domain.WrapError(domain.KindStorage, "failed to upsert score", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.WrapError(domain.KindStorage, "failed to commit scores", err)
	}
	return nil
}

// GetByTeam returns the strength record for a team in a competition season,
// nil when absent
func (r *strengthsRepo) GetByTeam(ctx context.Context, teamID, competitionID int64, season string) (*domain.StrengthRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT s.team_id, t.name, s.competition_id, s.season,
			s.overall, s.confidence, s.local_league, s.european, s.updated_at
		FROM strength_scores s
		JOIN teams t ON t.id = s.team_id
		WHERE s.team_id = $1 AND s.competition_id = $2 AND s.season = $3`

	rec, err := scanStrengthRecord(r.db.QueryRowxContext(ctx, query, teamID, competitionID, season))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, domain.WrapError(domain.KindStorage, "failed to get strength record", err)
	}

	if err := r.attachValues(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// GetByTeamName resolves the team case-insensitively and returns its most
// recently updated strength record, nil when absent
func (r *strengthsRepo) GetByTeamName(ctx context.Context, name string) (*domain.StrengthRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT s.team_id, t.name, s.competition_id, s.season,
			s.overall, s.confidence, s.local_league, s.european, s.updated_at
		FROM strength_scores s
		JOIN teams t ON t.id = s.team_id
		WHERE LOWER(t.name) = LOWER($1)
		ORDER BY s.updated_at DESC
		LIMIT 1`

	rec, err := scanStrengthRecord(r.db.QueryRowxContext(ctx, query, name))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, domain.WrapError(domain.KindStorage, "failed to get strength record by name", err)
	}

	if err := r.attachValues(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Ranking returns strength records ordered by overall score descending,
// nulls last. A nil competitionID ranks every team.
func (r *strengthsRepo) Ranking(ctx context.Context, competitionID *int64, season string) ([]domain.StrengthRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT s.team_id, t.name, s.competition_id, s.season,
			s.overall, s.confidence, s.local_league, s.european, s.updated_at
		FROM strength_scores s
		JOIN teams t ON t.id = s.team_id
		WHERE s.season = $1 AND ($2::bigint IS NULL OR s.competition_id = $2)
		ORDER BY s.overall DESC NULLS LAST, t.name ASC`

	rows, err := r.db.QueryxContext(ctx, query, season, competitionID)
	if err != nil {
		return nil, domain.WrapError(domain.KindStorage, "failed to query ranking", err)
	}
	defer rows.Close()

	var records []domain.StrengthRecord
	for rows.Next() {
		var rec domain.StrengthRecord
		if err := rows.Scan(&rec.TeamID, &rec.TeamName, &rec.CompetitionID, &rec.Season,
			&rec.Overall, &rec.Confidence, &rec.LocalLeague, &rec.European, &rec.LastUpdated); err != nil {
			return nil, domain.WrapError(domain.KindStorage, "failed to scan ranking row", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.KindStorage, "error iterating ranking", err)
	}

	return records, nil
}

// Coverage reports per-parameter raw value coverage for a season
func (r *strengthsRepo) Coverage(ctx context.Context, season string) ([]persistence.CoverageRow, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT competition_id, parameter, COUNT(raw_value) AS present, COUNT(*) AS total,
			MIN(collected_at) FILTER (WHERE raw_value IS NOT NULL) AS oldest,
			MAX(collected_at) FILTER (WHERE raw_value IS NOT NULL) AS newest
		FROM strength_values
		WHERE season = $1
		GROUP BY competition_id, parameter
		ORDER BY competition_id, parameter`

	rows, err := r.db.QueryxContext(ctx, query, season)
	if err != nil {
		return nil, domain.WrapError(domain.KindStorage, "failed to query coverage", err)
	}
	defer rows.Close()

	var coverage []persistence.CoverageRow
	for rows.Next() {
		var row persistence.CoverageRow
		var param string
		if err := rows.Scan(&row.CompetitionID, &param, &row.Present, &row.Total, &row.Oldest, &row.Newest); err != nil {
			return nil, domain.WrapError(domain.KindStorage, "failed to scan coverage row", err)
		}
		row.Parameter = domain.Parameter(param)
		coverage = append(coverage, row)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.KindStorage, "error iterating coverage", err)
	}

	return coverage, nil
}

// LastUpdated returns the latest collection time per parameter
func (r *strengthsRepo) LastUpdated(ctx context.Context) (map[domain.Parameter]time.Time, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT parameter, MAX(collected_at)
		FROM strength_values
		GROUP BY parameter`

	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, domain.WrapError(domain.KindStorage, "failed to query last updated", err)
	}
	defer rows.Close()

	updated := make(map[domain.Parameter]time.Time)
	for rows.Next() {
		var param string
		var ts time.Time
		if err := rows.Scan(&param, &ts); err != nil {
			return nil, domain.WrapError(domain.KindStorage, "failed to scan last updated", err)
		}
		updated[domain.Parameter(param)] = ts
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.KindStorage, "error iterating last updated", err)
	}

	return updated, nil
}

// attachValues fills the record's raw and normalized maps
func (r *strengthsRepo) attachValues(ctx context.Context, rec *domain.StrengthRecord) error {
	query := `
		SELECT parameter, raw_value, normalized_value
		FROM strength_values
		WHERE team_id = $1 AND competition_id = $2 AND season = $3`

	rows, err := r.db.QueryxContext(ctx, query, rec.TeamID, rec.CompetitionID, rec.Season)
	if err != nil {
		return domain.WrapError(domain.KindStorage, "failed to query parameter values", err)
	}
	defer rows.Close()

	rec.Raw = make(map[domain.Parameter]*float64)
	rec.Normalized = make(map[domain.Parameter]*float64)
	for rows.Next() {
		var param string
		var raw, norm *float64
		if err := rows.Scan(&param, &raw, &norm); err != nil {
			return domain.WrapError(domain.KindStorage, "failed to scan parameter value", err)
		}
		rec.Raw[domain.Parameter(param)] = raw
		rec.Normalized[domain.Parameter(param)] = norm
	}
	if err := rows.Err(); err != nil {
		return domain.WrapError(domain.KindStorage, "error iterating parameter values", err)
	}

	return nil
}

func scanStrengthRecord(row *sqlx.Row) (*domain.StrengthRecord, error) {
	var rec domain.StrengthRecord
	err := row.Scan(&rec.TeamID, &rec.TeamName, &rec.CompetitionID, &rec.Season,
		&rec.Overall, &rec.Confidence, &rec.LocalLeague, &rec.European, &rec.LastUpdated)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
