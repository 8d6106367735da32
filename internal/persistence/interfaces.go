package persistence

import (
	"context"
	"time"

	"github.com/gregleo12/spooky-football-engine/internal/domain"
)

// TimeRange represents a time window for match queries
type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// RawValue is one collected parameter observation for a team in a
// competition season, before normalization. A nil Raw records that the
// collector ran but could not produce a value.
type RawValue struct {
	TeamID        int64            `json:"team_id"`
	CompetitionID int64            `json:"competition_id"`
	Season        string           `json:"season"`
	Parameter     domain.Parameter `json:"parameter"`
	Raw           *float64         `json:"raw"`
	CollectedAt   time.Time        `json:"collected_at"`
}

// CoverageRow reports how many teams in a competition season have a raw
// value for one parameter
type CoverageRow struct {
	CompetitionID int64            `json:"competition_id"`
	Parameter     domain.Parameter `json:"parameter"`
	Present       int              `json:"present"`
	Total         int              `json:"total"`
	// Oldest and Newest bound the collection times of the present values;
	// nil when nothing has been collected for the parameter.
	Oldest *time.Time `json:"oldest,omitempty"`
	Newest *time.Time `json:"newest,omitempty"`
}

// RunSummary is the persisted outcome of one refresh run
type RunSummary struct {
	ID           string            `json:"id"`
	Trigger      string            `json:"trigger"` // manual | scheduled
	Season       string            `json:"season"`
	StartedAt    time.Time         `json:"started_at"`
	FinishedAt   time.Time         `json:"finished_at"`
	Collected    int               `json:"collected"`
	Failed       int               `json:"failed"`
	Errors       map[string]string `json:"errors,omitempty"`
	CompetitionN int               `json:"competitions"`
}

// CompetitionsRepo provides competition reference data persistence
type CompetitionsRepo interface {
	// Upsert inserts or updates one competition by provider ID
	Upsert(ctx context.Context, c domain.Competition) error

	// Seed loads the shipped competition set, skipping existing rows
	Seed(ctx context.Context, comps []domain.Competition) error

	// Get retrieves one competition, nil when absent
	Get(ctx context.Context, id int64) (*domain.Competition, error)

	// List returns all competitions ordered by ID
	List(ctx context.Context) ([]domain.Competition, error)
}

// TeamsRepo provides team reference data and competition membership
type TeamsRepo interface {
	// UpsertBatch inserts or updates teams atomically by provider ID
	UpsertBatch(ctx context.Context, teams []domain.Team) error

	// AddToCompetition records membership for a season, idempotently
	AddToCompetition(ctx context.Context, teamID, competitionID int64, season string) error

	// Get retrieves one team, nil when absent
	Get(ctx context.Context, id int64) (*domain.Team, error)

	// GetByName retrieves a team by case-insensitive name, nil when absent
	GetByName(ctx context.Context, name string) (*domain.Team, error)

	// ListByCompetition returns the members of a competition season
	ListByCompetition(ctx context.Context, competitionID int64, season string) ([]domain.Team, error)

	// List returns all known teams ordered by name
	List(ctx context.Context) ([]domain.Team, error)
}

// MatchesRepo provides fixture and result persistence
type MatchesRepo interface {
	// UpsertBatch inserts or updates matches atomically by fixture ID
	UpsertBatch(ctx context.Context, matches []domain.Match) error

	// ListFinishedByCompetition returns finished matches for a competition
	// season ordered by kickoff ascending
	ListFinishedByCompetition(ctx context.Context, competitionID int64, season string) ([]domain.Match, error)

	// ListRecentFinishedByTeam returns a team's latest finished matches,
	// newest first
	ListRecentFinishedByTeam(ctx context.Context, teamID int64, limit int) ([]domain.Match, error)

	// ListHeadToHead returns finished meetings between two teams in any
	// competition, newest first
	ListHeadToHead(ctx context.Context, teamA, teamB int64, limit int) ([]domain.Match, error)

	// NextBetween returns the next scheduled meeting of two teams in either
	// order, nil when none is known
	NextBetween(ctx context.Context, teamA, teamB int64) (*domain.Match, error)

	// CountFinished returns finished match volume in a window
	CountFinished(ctx context.Context, tr TimeRange) (int64, error)
}

// StrengthsRepo provides parameter value and score persistence
type StrengthsRepo interface {
	// UpsertRaw records one collected observation, replacing any previous
	// value for the same key
	UpsertRaw(ctx context.Context, v RawValue) error

	// SnapshotRaw returns every raw observation for a competition season
	SnapshotRaw(ctx context.Context, competitionID int64, season string) ([]RawValue, error)

	// SaveScores writes normalized values and aggregate scores for a
	// competition season in one transaction
	SaveScores(ctx context.Context, records []domain.StrengthRecord) error

	// GetByTeam returns the strength record for a team in a competition
	// season, nil when absent
	GetByTeam(ctx context.Context, teamID, competitionID int64, season string) (*domain.StrengthRecord, error)

	// GetByTeamName resolves the team case-insensitively and returns its
	// most recently updated strength record, nil when absent
	GetByTeamName(ctx context.Context, name string) (*domain.StrengthRecord, error)

	// Ranking returns strength records ordered by overall score descending,
	// nulls last. A nil competitionID ranks every team.
	Ranking(ctx context.Context, competitionID *int64, season string) ([]domain.StrengthRecord, error)

	// Coverage reports per-parameter raw value coverage for a season
	Coverage(ctx context.Context, season string) ([]CoverageRow, error)

	// LastUpdated returns the latest collection time per parameter
	LastUpdated(ctx context.Context) (map[domain.Parameter]time.Time, error)
}

// RunsRepo provides refresh run history persistence
type RunsRepo interface {
	// Insert records a completed refresh run
	Insert(ctx context.Context, run RunSummary) error

	// Latest returns the most recent run, nil when none exists
	Latest(ctx context.Context) (*RunSummary, error)

	// List returns recent runs, newest first
	List(ctx context.Context, limit int) ([]RunSummary, error)
}

// Repository aggregates all persistence interfaces
type Repository struct {
	Competitions CompetitionsRepo
	Teams        TeamsRepo
	Matches      MatchesRepo
	Strengths    StrengthsRepo
	Runs         RunsRepo
}

// HealthCheck represents repository health status
type HealthCheck struct {
	Healthy        bool           `json:"healthy"`
	Errors         []string       `json:"errors,omitempty"`
	ConnectionPool map[string]int `json:"connection_pool"`
	LastCheck      time.Time      `json:"last_check"`
	ResponseTimeMS int64          `json:"response_time_ms"`
}

// RepositoryHealth provides health monitoring for the persistence layer
type RepositoryHealth interface {
	// Health returns current repository health status
	Health(ctx context.Context) HealthCheck

	// Ping tests basic connectivity to the database
	Ping(ctx context.Context) error

	// Stats returns connection pool and query statistics
	Stats(ctx context.Context) map[string]interface{}
}
