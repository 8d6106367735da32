package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gregleo12/spooky-football-engine/internal/domain"
	"github.com/gregleo12/spooky-football-engine/internal/persistence"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return sqlx.NewDb(mockDB, "postgres"), mock
}

func TestUpsertRaw(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStrengthsRepo(db, time.Second)

	collected := time.Date(2024, 11, 2, 3, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO strength_values").
		WithArgs(int64(42), int64(39), "2024", "elo", 1512.5, collected).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpsertRaw(context.Background(), persistence.RawValue{
		TeamID:        42,
		CompetitionID: 39,
		Season:        "2024",
		Parameter:     domain.ParamElo,
		Raw:           domain.Float(1512.5),
		CollectedAt:   collected,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertRawNullValue(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStrengthsRepo(db, time.Second)

	collected := time.Date(2024, 11, 2, 3, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO strength_values").
		WithArgs(int64(42), int64(39), "2024", "form", nil, collected).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpsertRaw(context.Background(), persistence.RawValue{
		TeamID:        42,
		CompetitionID: 39,
		Season:        "2024",
		Parameter:     domain.ParamForm,
		Raw:           nil,
		CollectedAt:   collected,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertRawRejectsUnknownParameter(t *testing.T) {
	db, _ := newMockDB(t)
	repo := NewStrengthsRepo(db, time.Second)

	err := repo.UpsertRaw(context.Background(), persistence.RawValue{
		TeamID:        42,
		CompetitionID: 39,
		Season:        "2024",
		Parameter:     domain.Parameter("charisma"),
	})
	require.Error(t, err)
	assert.Equal(t, domain.KindInvalid, domain.KindOf(err))
}

func TestSnapshotRaw(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStrengthsRepo(db, time.Second)

	collected := time.Date(2024, 11, 2, 3, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"team_id", "competition_id", "season", "parameter", "raw_value", "collected_at"}).
		AddRow(int64(42), int64(39), "2024", "elo", 1512.5, collected).
		AddRow(int64(42), int64(39), "2024", "form", nil, collected).
		AddRow(int64(43), int64(39), "2024", "elo", 1444.0, collected)

	mock.ExpectQuery("SELECT team_id, competition_id, season, parameter, raw_value, collected_at").
		WithArgs(int64(39), "2024").
		WillReturnRows(rows)

	values, err := repo.SnapshotRaw(context.Background(), 39, "2024")
	require.NoError(t, err)
	require.Len(t, values, 3)

	assert.Equal(t, domain.ParamElo, values[0].Parameter)
	require.NotNil(t, values[0].Raw)
	assert.InDelta(t, 1512.5, *values[0].Raw, 1e-9)

	// Null raw values survive the round trip as nil.
	assert.Equal(t, domain.ParamForm, values[1].Parameter)
	assert.Nil(t, values[1].Raw)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveScores(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStrengthsRepo(db, time.Second)

	updated := time.Date(2024, 11, 2, 3, 5, 0, 0, time.UTC)

	mock.ExpectBegin()
	normPrep := mock.ExpectPrepare("UPDATE strength_values")
	scorePrep := mock.ExpectPrepare("INSERT INTO strength_scores")

	normPrep.ExpectExec().
		WithArgs(1.0, int64(42), int64(39), "2024", "elo").
		WillReturnResult(sqlmock.NewResult(0, 1))
	scorePrep.ExpectExec().
		WithArgs(int64(42), int64(39), "2024", 0.91, 1.0, 0.88, 0.95, updated).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	records := []domain.StrengthRecord{{
		TeamID:        42,
		CompetitionID: 39,
		Season:        "2024",
		Normalized:    map[domain.Parameter]*float64{domain.ParamElo: domain.Float(1.0)},
		Overall:       domain.Float(0.91),
		Confidence:    1.0,
		LocalLeague:   domain.Float(0.88),
		European:      domain.Float(0.95),
		LastUpdated:   updated,
	}}

	require.NoError(t, repo.SaveScores(context.Background(), records))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveScoresEmptyIsNoop(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStrengthsRepo(db, time.Second)

	require.NoError(t, repo.SaveScores(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByTeamName(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStrengthsRepo(db, time.Second)

	updated := time.Date(2024, 11, 2, 3, 5, 0, 0, time.UTC)
	scoreRows := sqlmock.NewRows([]string{
		"team_id", "name", "competition_id", "season",
		"overall", "confidence", "local_league", "european", "updated_at",
	}).AddRow(int64(42), "Arsenal", int64(39), "2024", 0.91, 1.0, 0.88, 0.95, updated)

	mock.ExpectQuery("SELECT s.team_id, t.name").
		WithArgs("arsenal").
		WillReturnRows(scoreRows)

	valueRows := sqlmock.NewRows([]string{"parameter", "raw_value", "normalized_value"}).
		AddRow("elo", 1512.5, 1.0).
		AddRow("form", nil, nil)

	mock.ExpectQuery("SELECT parameter, raw_value, normalized_value").
		WithArgs(int64(42), int64(39), "2024").
		WillReturnRows(valueRows)

	rec, err := repo.GetByTeamName(context.Background(), "arsenal")
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, "Arsenal", rec.TeamName)
	require.NotNil(t, rec.Overall)
	assert.InDelta(t, 0.91, *rec.Overall, 1e-9)
	require.NotNil(t, rec.Normalized[domain.ParamElo])
	assert.InDelta(t, 1.0, *rec.Normalized[domain.ParamElo], 1e-9)
	assert.Nil(t, rec.Raw[domain.ParamForm])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByTeamNameNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStrengthsRepo(db, time.Second)

	mock.ExpectQuery("SELECT s.team_id, t.name").
		WithArgs("ghosts").
		WillReturnRows(sqlmock.NewRows([]string{
			"team_id", "name", "competition_id", "season",
			"overall", "confidence", "local_league", "european", "updated_at",
		}))

	rec, err := repo.GetByTeamName(context.Background(), "ghosts")
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRankingScopes(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStrengthsRepo(db, time.Second)

	updated := time.Date(2024, 11, 2, 3, 5, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"team_id", "name", "competition_id", "season",
		"overall", "confidence", "local_league", "european", "updated_at",
	}).
		AddRow(int64(42), "Arsenal", int64(39), "2024", 0.91, 1.0, 0.88, 0.95, updated).
		AddRow(int64(50), "Brentford", int64(39), "2024", nil, 0.0, nil, nil, updated)

	comp := int64(39)
	mock.ExpectQuery("SELECT s.team_id, t.name").
		WithArgs("2024", int64(39)).
		WillReturnRows(rows)

	records, err := repo.Ranking(context.Background(), &comp, "2024")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Arsenal", records[0].TeamName)
	assert.Nil(t, records[1].Overall)

	assert.NoError(t, mock.ExpectationsWereMet())

	// A nil competition scope ranks every team.
	mock.ExpectQuery("SELECT s.team_id, t.name").
		WithArgs("2024", nil).
		WillReturnRows(sqlmock.NewRows([]string{
			"team_id", "name", "competition_id", "season",
			"overall", "confidence", "local_league", "european", "updated_at",
		}))

	records, err = repo.Ranking(context.Background(), nil, "2024")
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCoverage(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStrengthsRepo(db, time.Second)

	oldest := time.Date(2024, 11, 1, 3, 0, 0, 0, time.UTC)
	newest := oldest.Add(24 * time.Hour)
	rows := sqlmock.NewRows([]string{"competition_id", "parameter", "present", "total", "oldest", "newest"}).
		AddRow(int64(39), "elo", 20, 20, oldest, newest).
		AddRow(int64(39), "squad_value", 18, 20, oldest, newest).
		AddRow(int64(140), "form", 0, 18, nil, nil)

	mock.ExpectQuery("SELECT competition_id, parameter, COUNT").
		WithArgs("2024").
		WillReturnRows(rows)

	coverage, err := repo.Coverage(context.Background(), "2024")
	require.NoError(t, err)
	require.Len(t, coverage, 3)
	assert.Equal(t, domain.ParamSquadValue, coverage[1].Parameter)
	assert.Equal(t, 18, coverage[1].Present)
	assert.Equal(t, 20, coverage[1].Total)
	require.NotNil(t, coverage[1].Oldest)
	assert.Equal(t, oldest, *coverage[1].Oldest)
	assert.Nil(t, coverage[2].Oldest)
	assert.Nil(t, coverage[2].Newest)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLastUpdated(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStrengthsRepo(db, time.Second)

	ts := time.Date(2024, 11, 2, 3, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"parameter", "max"}).
		AddRow("elo", ts).
		AddRow("form", ts.Add(-time.Hour))

	mock.ExpectQuery("SELECT parameter, MAX").WillReturnRows(rows)

	updated, err := repo.LastUpdated(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ts, updated[domain.ParamElo])
	assert.Equal(t, ts.Add(-time.Hour), updated[domain.ParamForm])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorageErrorsAreClassified(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStrengthsRepo(db, time.Second)

	mock.ExpectQuery("SELECT competition_id, parameter, COUNT").
		WithArgs("2024").
		WillReturnError(assert.AnError)

	_, err := repo.Coverage(context.Background(), "2024")
	require.Error(t, err)
	assert.Equal(t, domain.KindStorage, domain.KindOf(err))
	assert.True(t, domain.IsTransient(err))
}
