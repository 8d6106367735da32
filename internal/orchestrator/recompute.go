package orchestrator

import (
	"context"
	"time"

	"github.com/gregleo12/spooky-football-engine/internal/domain"
	"github.com/gregleo12/spooky-football-engine/internal/persistence"
	"github.com/gregleo12/spooky-football-engine/internal/score/composite"
	"github.com/gregleo12/spooky-football-engine/internal/score/normalize"
)

// recompute rebuilds every competition's normalized values, aggregate scores
// and derived strengths from the stored raw snapshot. It deliberately covers
// all stored competitions, not just the collection scope: the european
// variant is normalized across the union of the domestic leagues, so any new
// raw value can shift every team's european strength.
func (o *Orchestrator) recompute(ctx context.Context, season string, prog *progress) error {
	comps, err := o.competitions.List(ctx)
	if err != nil {
		return err
	}

	var (
		pooledTeams []domain.Team
		pooledRaws  []persistence.RawValue
		byComp      = make(map[int64][]domain.StrengthRecord)
	)

	for _, comp := range comps {
		if err := ctx.Err(); err != nil {
			return err
		}
		teams, err := o.teams.ListByCompetition(ctx, comp.ID, season)
		if err != nil {
			return err
		}
		if len(teams) == 0 {
			continue
		}
		snapshot, err := o.strengths.SnapshotRaw(ctx, comp.ID, season)
		if err != nil {
			return err
		}

		byComp[comp.ID] = o.buildRecords(comp, season, teams, snapshot)

		if comp.IsDomestic() {
			pooledTeams = append(pooledTeams, teams...)
			pooledRaws = append(pooledRaws, snapshot...)
		}
	}

	european := o.europeanStrengths(pooledTeams, pooledRaws)

	now := time.Now().UTC()
	active := o.aggregator.Weights().Active()
	for _, comp := range comps {
		records, ok := byComp[comp.ID]
		if !ok {
			continue
		}
		for i := range records {
			if e, ok := european[records[i].TeamID]; ok {
				records[i].European = e
			}
			records[i].LastUpdated = now
		}
		if err := o.strengths.SaveScores(ctx, records); err != nil {
			return err
		}
		prog.setCoverage(comp.ID, coveragePct(records, active))
	}
	return nil
}

// buildRecords normalizes the snapshot per parameter across the
// competition's teams and aggregates each team's overall strength. The
// local-league variant rescales the overalls so the competition's best team
// sits at 1.0.
func (o *Orchestrator) buildRecords(comp domain.Competition, season string, teams []domain.Team, snapshot []persistence.RawValue) []domain.StrengthRecord {
	rawByTeam := rawIndex(snapshot)
	normalized := normalizeAcross(teams, rawByTeam)

	overall := make(map[int64]*float64, len(teams))
	records := make([]domain.StrengthRecord, 0, len(teams))
	for _, t := range teams {
		perParam := make(map[domain.Parameter]*float64, len(normalized))
		raws := make(map[domain.Parameter]*float64, len(normalized))
		for p, m := range normalized {
			perParam[p] = m[t.ID]
			raws[p] = rawByTeam[t.ID][p]
		}
		score := o.aggregator.Aggregate(perParam)
		overall[t.ID] = score.Overall

		records = append(records, domain.StrengthRecord{
			TeamID:        t.ID,
			TeamName:      t.Name,
			CompetitionID: comp.ID,
			Season:        season,
			Raw:           raws,
			Normalized:    perParam,
			Overall:       score.Overall,
			Confidence:    score.Confidence,
		})
	}

	local := composite.DeriveLocal(overall)
	for i := range records {
		records[i].LocalLeague = local[records[i].TeamID]
	}
	return records
}

// europeanStrengths re-normalizes every parameter across the union of the
// domestic leagues and aggregates with the same weight vector, producing the
// cross-league comparable variant.
func (o *Orchestrator) europeanStrengths(teams []domain.Team, raws []persistence.RawValue) map[int64]*float64 {
	if len(teams) == 0 {
		return nil
	}
	rawByTeam := rawIndex(raws)
	normalized := normalizeAcross(teams, rawByTeam)

	out := make(map[int64]*float64, len(teams))
	for _, t := range teams {
		perParam := make(map[domain.Parameter]*float64, len(normalized))
		for p, m := range normalized {
			perParam[p] = m[t.ID]
		}
		out[t.ID] = o.aggregator.Aggregate(perParam).Overall
	}
	return out
}

// rawIndex keys a snapshot by team then parameter.
func rawIndex(snapshot []persistence.RawValue) map[int64]map[domain.Parameter]*float64 {
	out := make(map[int64]map[domain.Parameter]*float64)
	for _, rv := range snapshot {
		m := out[rv.TeamID]
		if m == nil {
			m = make(map[domain.Parameter]*float64)
			out[rv.TeamID] = m
		}
		m[rv.Parameter] = rv.Raw
	}
	return out
}

// normalizeAcross runs the min-max normalizer for every parameter over the
// given peer group. Teams without a raw value pass through as null.
func normalizeAcross(teams []domain.Team, rawByTeam map[int64]map[domain.Parameter]*float64) map[domain.Parameter]map[int64]*float64 {
	params := domain.Parameters()
	out := make(map[domain.Parameter]map[int64]*float64, len(params))
	for _, p := range params {
		values := make([]normalize.Value, 0, len(teams))
		for _, t := range teams {
			values = append(values, normalize.Value{TeamID: t.ID, Raw: rawByTeam[t.ID][p]})
		}
		out[p] = normalize.MinMax(values, p.LowerIsBetter())
	}
	return out
}

// coveragePct reports how much of the weighted parameter surface has raw
// values, as a percentage over teams times active parameters.
func coveragePct(records []domain.StrengthRecord, active []domain.Parameter) float64 {
	if len(records) == 0 || len(active) == 0 {
		return 0
	}
	present := 0
	for _, r := range records {
		for _, p := range active {
			if r.Raw[p] != nil {
				present++
			}
		}
	}
	return 100 * float64(present) / float64(len(records)*len(active))
}
