package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/gregleo12/spooky-football-engine/internal/domain"
	"github.com/gregleo12/spooky-football-engine/internal/persistence"
)

// runsRepo implements RunsRepo for PostgreSQL
type runsRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewRunsRepo creates a new PostgreSQL refresh run repository
func NewRunsRepo(db *sqlx.DB, timeout time.Duration) persistence.RunsRepo {
	return &runsRepo{
		db:      db,
		timeout: timeout,
	}
}

// Insert records a completed refresh run
func (r *runsRepo) Insert(ctx context.Context, run persistence.RunSummary) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if run.ID == "" {
		return domain.NewError(domain.KindInvalid, "run id cannot be empty")
	}

	var errorsJSON []byte
	if len(run.Errors) > 0 {
		var err error
		errorsJSON, err = json.Marshal(run.Errors)
		if err != nil {
			return domain.WrapError(domain.KindInternal, "failed to marshal run errors", err)
		}
	}

	query := `
		INSERT INTO refresh_runs (id, run_trigger, season, started_at, finished_at, collected, failed, competitions, errors)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.ExecContext(ctx, query,
		run.ID, run.Trigger, run.Season, run.StartedAt, run.FinishedAt,
		run.Collected, run.Failed, run.CompetitionN, errorsJSON)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return domain.WrapError(domain.KindInvalid, "duplicate run id", err)
		}
		return domain.WrapError(domain.KindStorage, "failed to insert run", err)
	}

	return nil
}

// Latest returns the most recent run, nil when none exists
func (r *runsRepo) Latest(ctx context.Context) (*persistence.RunSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT id, run_trigger, season, started_at, finished_at, collected, failed, competitions, errors
		FROM refresh_runs
		ORDER BY started_at DESC
		LIMIT 1`

	run, err := scanRun(r.db.QueryRowxContext(ctx, query))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, domain.WrapError(domain.KindStorage, "failed to get latest run", err)
	}
	return run, nil
}

// List returns recent runs, newest first
func (r *runsRepo) List(ctx context.Context, limit int) ([]persistence.RunSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT id, run_trigger, season, started_at, finished_at, collected, failed, competitions, errors
		FROM refresh_runs
		ORDER BY started_at DESC
		LIMIT $1`

	rows, err := r.db.QueryxContext(ctx, query, limit)
	if err != nil {
		return nil, domain.WrapError(domain.KindStorage, "failed to list runs", err)
	}
	defer rows.Close()

	var runs []persistence.RunSummary
	for rows.Next() {
		run, err := scanRunFromRows(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.KindStorage, "error iterating runs", err)
	}

	return runs, nil
}

func scanRun(row *sqlx.Row) (*persistence.RunSummary, error) {
	var run persistence.RunSummary
	var errorsJSON []byte
	err := row.Scan(&run.ID, &run.Trigger, &run.Season, &run.StartedAt, &run.FinishedAt,
		&run.Collected, &run.Failed, &run.CompetitionN, &errorsJSON)
	if err != nil {
		return nil, err
	}
	if err := decodeRunErrors(&run, errorsJSON); err != nil {
		return nil, err
	}
	return &run, nil
}

func scanRunFromRows(rows *sqlx.Rows) (*persistence.RunSummary, error) {
	var run persistence.RunSummary
	var errorsJSON []byte
	err := rows.Scan(&run.ID, &run.Trigger, &run.Season, &run.StartedAt, &run.FinishedAt,
		&run.Collected, &run.Failed, &run.CompetitionN, &errorsJSON)
	if err != nil {
		return nil, domain.WrapError(domain.KindStorage, "failed to scan run", err)
	}
	if err := decodeRunErrors(&run, errorsJSON); err != nil {
		return nil, err
	}
	return &run, nil
}

func decodeRunErrors(run *persistence.RunSummary, errorsJSON []byte) error {
	if len(errorsJSON) == 0 {
		return nil
	}
	if err := json.Unmarshal(errorsJSON, &run.Errors); err != nil {
		return domain.WrapError(domain.KindInternal, "failed to unmarshal run errors", err)
	}
	return nil
}
