package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/gregleo12/spooky-football-engine/internal/domain"
	"github.com/gregleo12/spooky-football-engine/internal/persistence"
)

// matchesRepo implements MatchesRepo for PostgreSQL
type matchesRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewMatchesRepo creates a new PostgreSQL matches repository
func NewMatchesRepo(db *sqlx.DB, timeout time.Duration) persistence.MatchesRepo {
	return &matchesRepo{
		db:      db,
		timeout: timeout,
	}
}

const matchColumns = `fixture_id, competition_id, season, home_team_id, away_team_id, kickoff, home_goals, away_goals, status`

// UpsertBatch inserts or updates matches atomically by fixture ID
func (r *matchesRepo) UpsertBatch(ctx context.Context, matches []domain.Match) error {
	if len(matches) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout*time.Duration(len(matches)/500+1))
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.WrapError(domain.KindStorage, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO matches (`+matchColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (fixture_id) DO UPDATE SET
			kickoff = EXCLUDED.kickoff,
			home_goals = EXCLUDED.home_goals,
			away_goals = EXCLUDED.away_goals,
			status = EXCLUDED.status`)
	if err != nil {
		return domain.WrapError(domain.KindStorage, "failed to prepare match upsert", err)
	}
	defer stmt.Close()

	for _, m := range matches {
		if m.HomeTeamID == m.AwayTeamID {
			return domain.NewError(domain.KindInvalid, "match cannot pair a team with itself")
		}
		if _, err := stmt.ExecContext(ctx,
			m.FixtureID, m.CompetitionID, m.Season, m.HomeTeamID, m.AwayTeamID,
			m.Kickoff, m.HomeGoals, m.AwayGoals, string(m.Status)); err != nil {
			return domain.WrapError(domain.KindStorage, "failed to upsert match", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.WrapError(domain.KindStorage, "failed to commit match batch", err)
	}
	return nil
}

// ListFinishedByCompetition returns finished matches for a competition season
// ordered by kickoff ascending
func (r *matchesRepo) ListFinishedByCompetition(ctx context.Context, competitionID int64, season string) ([]domain.Match, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE competition_id = $1 AND season = $2 AND status = $3
		ORDER BY kickoff ASC`

	rows, err := r.db.QueryxContext(ctx, query, competitionID, season, string(domain.MatchFinished))
	if err != nil {
		return nil, domain.WrapError(domain.KindStorage, "failed to query competition matches", err)
	}
	defer rows.Close()

	return scanMatches(rows)
}

// ListRecentFinishedByTeam returns a team's latest finished matches, newest first
func (r *matchesRepo) ListRecentFinishedByTeam(ctx context.Context, teamID int64, limit int) ([]domain.Match, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE (home_team_id = $1 OR away_team_id = $1) AND status = $2
		ORDER BY kickoff DESC
		LIMIT $3`

	rows, err := r.db.QueryxContext(ctx, query, teamID, string(domain.MatchFinished), limit)
	if err != nil {
		return nil, domain.WrapError(domain.KindStorage, "failed to query team matches", err)
	}
	defer rows.Close()

	return scanMatches(rows)
}

// ListHeadToHead returns finished meetings between two teams in any
// competition, newest first
func (r *matchesRepo) ListHeadToHead(ctx context.Context, teamA, teamB int64, limit int) ([]domain.Match, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE ((home_team_id = $1 AND away_team_id = $2) OR (home_team_id = $2 AND away_team_id = $1))
			AND status = $3
		ORDER BY kickoff DESC
		LIMIT $4`

	rows, err := r.db.QueryxContext(ctx, query, teamA, teamB, string(domain.MatchFinished), limit)
	if err != nil {
		return nil, domain.WrapError(domain.KindStorage, "failed to query head to head", err)
	}
	defer rows.Close()

	return scanMatches(rows)
}

// NextBetween returns the next scheduled meeting of two teams in either
// order, nil when none is known
func (r *matchesRepo) NextBetween(ctx context.Context, teamA, teamB int64) (*domain.Match, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE ((home_team_id = $1 AND away_team_id = $2) OR (home_team_id = $2 AND away_team_id = $1))
			AND status = $3 AND kickoff >= now()
		ORDER BY kickoff ASC
		LIMIT 1`

	row := r.db.QueryRowxContext(ctx, query, teamA, teamB, string(domain.MatchScheduled))

	m, err := scanMatch(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, domain.WrapError(domain.KindStorage, "failed to query next meeting", err)
	}
	return m, nil
}

// CountFinished returns finished match volume in a window
func (r *matchesRepo) CountFinished(ctx context.Context, tr persistence.TimeRange) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT COUNT(*)
		FROM matches
		WHERE status = $1 AND kickoff >= $2 AND kickoff <= $3`

	var count int64
	if err := r.db.QueryRowxContext(ctx, query, string(domain.MatchFinished), tr.From, tr.To).Scan(&count); err != nil {
		return 0, domain.WrapError(domain.KindStorage, "failed to count matches", err)
	}

	return count, nil
}

func scanMatch(row *sqlx.Row) (*domain.Match, error) {
	var m domain.Match
	var status string
	err := row.Scan(&m.FixtureID, &m.CompetitionID, &m.Season, &m.HomeTeamID, &m.AwayTeamID,
		&m.Kickoff, &m.HomeGoals, &m.AwayGoals, &status)
	if err != nil {
		return nil, err
	}
	m.Status = domain.MatchStatus(status)
	return &m, nil
}

func scanMatches(rows *sqlx.Rows) ([]domain.Match, error) {
	var matches []domain.Match
	for rows.Next() {
		var m domain.Match
		var status string
		if err := rows.Scan(&m.FixtureID, &m.CompetitionID, &m.Season, &m.HomeTeamID, &m.AwayTeamID,
			&m.Kickoff, &m.HomeGoals, &m.AwayGoals, &status); err != nil {
			return nil, domain.WrapError(domain.KindStorage, "failed to scan match", err)
		}
		m.Status = domain.MatchStatus(status)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.KindStorage, "error iterating matches", err)
	}
	return matches, nil
}
