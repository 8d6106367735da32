package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gregleo12/spooky-football-engine/internal/domain"
	"github.com/gregleo12/spooky-football-engine/internal/persistence"
)

func TestRunsInsert(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRunsRepo(db, time.Second)

	started := time.Date(2024, 11, 2, 3, 0, 0, 0, time.UTC)
	finished := started.Add(4 * time.Minute)

	mock.ExpectExec("INSERT INTO refresh_runs").
		WithArgs("run-1", "scheduled", "2024", started, finished, 760, 2, 8,
			[]byte(`{"elo:39":"provider timeout"}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Insert(context.Background(), persistence.RunSummary{
		ID:           "run-1",
		Trigger:      "scheduled",
		Season:       "2024",
		StartedAt:    started,
		FinishedAt:   finished,
		Collected:    760,
		Failed:       2,
		CompetitionN: 8,
		Errors:       map[string]string{"elo:39": "provider timeout"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunsInsertRejectsEmptyID(t *testing.T) {
	db, _ := newMockDB(t)
	repo := NewRunsRepo(db, time.Second)

	err := repo.Insert(context.Background(), persistence.RunSummary{})
	require.Error(t, err)
	assert.Equal(t, domain.KindInvalid, domain.KindOf(err))
}

func TestRunsInsertDuplicate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRunsRepo(db, time.Second)

	mock.ExpectExec("INSERT INTO refresh_runs").
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Insert(context.Background(), persistence.RunSummary{
		ID: "run-1", Trigger: "manual", Season: "2024",
	})
	require.Error(t, err)
	assert.Equal(t, domain.KindInvalid, domain.KindOf(err))
	assert.Contains(t, err.Error(), "duplicate")
}

func TestRunsLatest(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRunsRepo(db, time.Second)

	started := time.Date(2024, 11, 2, 3, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "run_trigger", "season", "started_at", "finished_at",
		"collected", "failed", "competitions", "errors",
	}).AddRow("run-2", "manual", "2024", started, started.Add(time.Minute), 760, 0, 8, nil)

	mock.ExpectQuery("SELECT id, run_trigger").WillReturnRows(rows)

	run, err := repo.Latest(context.Background())
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, "run-2", run.ID)
	assert.Empty(t, run.Errors)

	// No history yet returns nil without error.
	mock.ExpectQuery("SELECT id, run_trigger").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "run_trigger", "season", "started_at", "finished_at",
			"collected", "failed", "competitions", "errors",
		}))

	run, err = repo.Latest(context.Background())
	require.NoError(t, err)
	assert.Nil(t, run)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunsListDecodesErrors(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRunsRepo(db, time.Second)

	started := time.Date(2024, 11, 2, 3, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "run_trigger", "season", "started_at", "finished_at",
		"collected", "failed", "competitions", "errors",
	}).
		AddRow("run-2", "manual", "2024", started, started.Add(time.Minute), 760, 0, 8, nil).
		AddRow("run-1", "scheduled", "2024", started.Add(-24*time.Hour), started.Add(-24*time.Hour+time.Minute),
			700, 3, 8, []byte(`{"form:61":"rate limited"}`))

	mock.ExpectQuery("SELECT id, run_trigger").
		WithArgs(20).
		WillReturnRows(rows)

	runs, err := repo.List(context.Background(), 20)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "rate limited", runs[1].Errors["form:61"])

	assert.NoError(t, mock.ExpectationsWereMet())
}
