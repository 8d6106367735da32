// Package orchestrator drives refresh cycles: ingest reference data per
// competition, fan collectors out over a bounded worker pool, then rebuild
// normalized values, aggregate scores and derived strengths from the stored
// snapshot. One cycle produces one Report.
package orchestrator

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/gregleo12/spooky-football-engine/internal/collect"
	"github.com/gregleo12/spooky-football-engine/internal/config"
	"github.com/gregleo12/spooky-football-engine/internal/domain"
	"github.com/gregleo12/spooky-football-engine/internal/persistence"
	"github.com/gregleo12/spooky-football-engine/internal/score/composite"
)

// Trigger labels recorded on run summaries.
const (
	TriggerManual    = "manual"
	TriggerScheduled = "scheduled"
)

// ErrAlreadyRunning is returned when a refresh is requested while another
// one holds the cycle lock. Scheduled jobs treat it as a skip.
var ErrAlreadyRunning = domain.NewError(domain.KindInvalid, "a refresh run is already in progress")

// Scope narrows one refresh run. Zero values widen: no competitions means
// the configured set, no parameters means every collector.
type Scope struct {
	Competitions []int64
	Parameters   []domain.Parameter
	Season       string
	Trigger      string
}

// CompetitionStore is the competition reference slice the orchestrator reads.
type CompetitionStore interface {
	Get(ctx context.Context, id int64) (*domain.Competition, error)
	List(ctx context.Context) ([]domain.Competition, error)
}

// TeamLister resolves competition membership for a season.
type TeamLister interface {
	ListByCompetition(ctx context.Context, competitionID int64, season string) ([]domain.Team, error)
}

// StrengthStore is the raw value and score persistence slice.
type StrengthStore interface {
	UpsertRaw(ctx context.Context, v persistence.RawValue) error
	SnapshotRaw(ctx context.Context, competitionID int64, season string) ([]persistence.RawValue, error)
	SaveScores(ctx context.Context, records []domain.StrengthRecord) error
}

// RunStore persists run summaries.
type RunStore interface {
	Insert(ctx context.Context, run persistence.RunSummary) error
}

// Syncer refreshes one competition's teams and fixtures ahead of collection.
type Syncer interface {
	SyncCompetition(ctx context.Context, comp domain.Competition, season string) (collect.IngestStats, error)
}

// Deps wires an Orchestrator. Events may be nil; everything else is required.
type Deps struct {
	Competitions CompetitionStore
	Teams        TeamLister
	Strengths    StrengthStore
	Runs         RunStore
	Syncer       Syncer
	Collectors   []collect.Collector
	Aggregator   *composite.Aggregator
	Schedule     *config.ScheduleConfig
	Events       Publisher
}

// Orchestrator owns the refresh cycle. At most one cycle runs per instance;
// concurrent calls get ErrAlreadyRunning.
type Orchestrator struct {
	competitions CompetitionStore
	teams        TeamLister
	strengths    StrengthStore
	runs         RunStore
	syncer       Syncer
	collectors   []collect.Collector
	aggregator   *composite.Aggregator
	cfg          *config.ScheduleConfig
	events       Publisher

	running atomic.Bool
}

func New(deps Deps) (*Orchestrator, error) {
	switch {
	case deps.Competitions == nil, deps.Teams == nil, deps.Strengths == nil, deps.Runs == nil:
		return nil, domain.NewError(domain.KindConfiguration, "orchestrator requires the full persistence surface")
	case deps.Syncer == nil:
		return nil, domain.NewError(domain.KindConfiguration, "orchestrator requires an ingestion syncer")
	case deps.Aggregator == nil:
		return nil, domain.NewError(domain.KindConfiguration, "orchestrator requires an aggregator")
	case deps.Schedule == nil:
		return nil, domain.NewError(domain.KindConfiguration, "orchestrator requires a schedule configuration")
	}
	if deps.Events == nil {
		deps.Events = NopPublisher{}
	}

	return &Orchestrator{
		competitions: deps.Competitions,
		teams:        deps.Teams,
		strengths:    deps.Strengths,
		runs:         deps.Runs,
		syncer:       deps.Syncer,
		collectors:   deps.Collectors,
		aggregator:   deps.Aggregator,
		cfg:          deps.Schedule,
		events:       deps.Events,
	}, nil
}

// Running reports whether a refresh cycle is in flight.
func (o *Orchestrator) Running() bool { return o.running.Load() }

// Refresh runs one full cycle for the scope: sync and collect per
// competition, then recompute scores and derived strengths over the stored
// snapshot. Collector failures are recorded in the report and never abort
// the cycle; storage failures during the recompute stage do.
func (o *Orchestrator) Refresh(ctx context.Context, scope Scope) (*Report, error) {
	if !o.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	defer o.running.Store(false)

	season := scope.Season
	if season == "" {
		season = o.cfg.Season
	}
	trigger := scope.Trigger
	if trigger == "" {
		trigger = TriggerManual
	}

	ctx, cancel := context.WithTimeout(ctx, o.cfg.GetRunTimeout())
	defer cancel()

	comps, err := o.scopeCompetitions(ctx, scope)
	if err != nil {
		return nil, err
	}
	collectors, err := o.scopeCollectors(scope.Parameters)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	prog := newProgress(runID, trigger, season, time.Now().UTC(), len(comps))

	log.Info().
		Str("run_id", runID).
		Str("trigger", trigger).
		Str("season", season).
		Int("competitions", len(comps)).
		Int("collectors", len(collectors)).
		Msg("Refresh run started")
	o.events.Publish(Event{Type: EventRunStarted, Time: time.Now().UTC(), Report: prog.snapshot()})

	for _, comp := range comps {
		if ctx.Err() != nil {
			break
		}
		o.collectCompetition(ctx, comp, season, collectors, prog)
	}

	if err := ctx.Err(); err != nil {
		return o.abort(prog, err)
	}

	if err := o.recompute(ctx, season, prog); err != nil {
		return o.abort(prog, err)
	}

	report := prog.finish(time.Now().UTC())

	run := report.Summary()
	if err := o.runs.Insert(ctx, run); err != nil {
		log.Error().Err(err).Str("run_id", report.RunID).Msg("Failed to persist run summary")
	}

	o.events.Publish(Event{Type: EventRunFinished, Time: report.FinishedAt, Report: report})

	log.Info().
		Str("run_id", report.RunID).
		Int("attempted", report.Attempted).
		Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).
		Dur("duration", time.Duration(report.DurationMS)*time.Millisecond).
		Msg("Refresh run completed")

	return report, nil
}

// abort finalizes a run that cannot continue. Raw values already written
// stay; scores are not recomputed from a half-collected scope.
func (o *Orchestrator) abort(prog *progress, cause error) (*Report, error) {
	report := prog.finish(time.Now().UTC())
	o.events.Publish(Event{Type: EventRunFailed, Time: report.FinishedAt, Report: report})
	log.Warn().
		Str("run_id", report.RunID).
		Err(cause).
		Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).
		Msg("Refresh run aborted")
	return nil, domain.WrapError(domain.KindTransient, "refresh aborted", cause)
}

// collectCompetition syncs reference data and fans the collectors out over
// the competition's teams. Per team the collectors run sequentially so
// provider responses cached by the first one serve the rest.
func (o *Orchestrator) collectCompetition(ctx context.Context, comp domain.Competition, season string, collectors []collect.Collector, prog *progress) {
	stats, err := o.syncer.SyncCompetition(ctx, comp, season)
	if err != nil {
		prog.recordSyncFailure(comp, err)
		log.Warn().Err(err).Str("competition", comp.Name).Msg("Competition sync failed, skipping collection")
		return
	}
	prog.recordSync(comp, stats)

	teams, err := o.teams.ListByCompetition(ctx, comp.ID, season)
	if err != nil {
		prog.recordSyncFailure(comp, err)
		return
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.PoolSize)
	for _, team := range teams {
		team := team
		g.Go(func() error {
			o.collectTeam(ctx, collect.Target{Team: team, Competition: comp, Season: season}, collectors, prog)
			return nil
		})
	}
	_ = g.Wait()
}

func (o *Orchestrator) collectTeam(ctx context.Context, target collect.Target, collectors []collect.Collector, prog *progress) {
	for _, c := range collectors {
		if ctx.Err() != nil {
			return
		}

		res, err := o.collectWithRetry(ctx, c, target)
		if err != nil {
			prog.recordFailure(target, c.Parameter(), err)
			log.Debug().
				Err(err).
				Str("team", target.Team.Name).
				Str("parameter", c.Parameter().String()).
				Msg("Collection failed")
			continue
		}

		raw := persistence.RawValue{
			TeamID:        target.Team.ID,
			CompetitionID: target.Competition.ID,
			Season:        target.Season,
			Parameter:     res.Parameter,
			Raw:           domain.Float(res.Value),
			CollectedAt:   time.Now().UTC(),
		}
		if err := o.strengths.UpsertRaw(ctx, raw); err != nil {
			prog.recordFailure(target, c.Parameter(), err)
			continue
		}
		prog.recordSuccess(c.Parameter())
	}
}

// scopeCompetitions resolves the scope's competition ids, defaulting to the
// configured set. An unknown id refuses the whole run.
func (o *Orchestrator) scopeCompetitions(ctx context.Context, scope Scope) ([]domain.Competition, error) {
	ids := scope.Competitions
	if len(ids) == 0 {
		ids = o.cfg.Competitions
	}

	out := make([]domain.Competition, 0, len(ids))
	for _, id := range ids {
		comp, err := o.competitions.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if comp == nil {
			return nil, domain.NewError(domain.KindInvalid, fmt.Sprintf("unknown competition %d in refresh scope", id))
		}
		out = append(out, *comp)
	}
	return out, nil
}

// scopeCollectors filters the collector set down to the requested
// parameters, preserving the frozen collection order.
func (o *Orchestrator) scopeCollectors(params []domain.Parameter) ([]collect.Collector, error) {
	if len(params) == 0 {
		return o.collectors, nil
	}

	wanted := make(map[domain.Parameter]bool, len(params))
	for _, p := range params {
		wanted[p] = true
	}

	out := make([]collect.Collector, 0, len(params))
	for _, c := range o.collectors {
		if wanted[c.Parameter()] {
			out = append(out, c)
			delete(wanted, c.Parameter())
		}
	}
	for p := range wanted {
		return nil, domain.NewError(domain.KindInvalid, fmt.Sprintf("no collector for parameter %q", p))
	}
	return out, nil
}
