package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gregleo12/spooky-football-engine/internal/domain"
)

func domesticComp(id int64, name, country string) domain.Competition {
	return domain.Competition{
		ID:      id,
		Name:    name,
		Country: country,
		Type:    domain.CompetitionDomesticLeague,
		Tier:    1,
	}
}

func TestRecomputeEuropeanPoolsDomesticLeagues(t *testing.T) {
	comps := []domain.Competition{
		domesticComp(39, "Premier League", "England"),
		domesticComp(140, "La Liga", "Spain"),
		{ID: 2, Name: "Champions League", Type: domain.CompetitionInternational},
	}
	teams := map[int64][]domain.Team{
		39:  {{ID: 1, Name: "Arsenal"}, {ID: 2, Name: "Chelsea"}},
		140: {{ID: 3, Name: "Girona"}, {ID: 4, Name: "Real Madrid"}},
		2:   {{ID: 2, Name: "Chelsea"}, {ID: 4, Name: "Real Madrid"}},
	}
	env := newEnv(t, comps, teams, nil)

	env.store.seed(39, 1, "2024", domain.ParamElo, 10)
	env.store.seed(39, 2, "2024", domain.ParamElo, 30)
	env.store.seed(140, 3, "2024", domain.ParamElo, 20)
	env.store.seed(140, 4, "2024", domain.ParamElo, 40)
	// Champions League raw values never join the european pool.
	env.store.seed(2, 2, "2024", domain.ParamElo, 1000)
	env.store.seed(2, 4, "2024", domain.ParamElo, 2000)

	prog := newProgress("run", TriggerManual, "2024", time.Now(), 3)
	require.NoError(t, env.orch.recompute(context.Background(), "2024", prog))

	pl := env.store.records(39)
	require.Len(t, pl, 2)
	require.NotNil(t, pl[0].LocalLeague)
	require.NotNil(t, pl[1].European)

	// Within the league the two teams span the full local scale.
	assert.InDelta(t, 0.0, *pl[0].LocalLeague, 1e-9)
	assert.InDelta(t, 1.0, *pl[1].LocalLeague, 1e-9)

	// The european scale spans the pooled domestic raws 10..40.
	assert.InDelta(t, 0.0, *pl[0].European, 1e-9)
	assert.InDelta(t, 2.0/3.0, *pl[1].European, 1e-9)

	liga := env.store.records(140)
	require.Len(t, liga, 2)
	assert.InDelta(t, 1.0/3.0, *liga[0].European, 1e-9)
	assert.InDelta(t, 1.0, *liga[1].European, 1e-9)

	// Champions League records still carry the pooled european values, so a
	// cross-competition pairing compares the same scale.
	cl := env.store.records(2)
	require.Len(t, cl, 2)
	require.NotNil(t, cl[0].European)
	assert.InDelta(t, 2.0/3.0, *cl[0].European, 1e-9)
	assert.InDelta(t, 1.0, *cl[1].European, 1e-9)
}

func TestRecomputePartialCoverage(t *testing.T) {
	comps := []domain.Competition{domesticComp(39, "Premier League", "England")}
	env := newEnv(t, comps, leagueTeams(), nil)

	env.store.seed(39, 1, "2024", domain.ParamElo, 10)
	env.store.seed(39, 1, "2024", domain.ParamForm, 1)
	env.store.seed(39, 2, "2024", domain.ParamElo, 20)

	prog := newProgress("run", TriggerManual, "2024", time.Now(), 1)
	require.NoError(t, env.orch.recompute(context.Background(), "2024", prog))

	records := env.store.records(39)
	require.Len(t, records, 2)
	arsenal, chelsea := records[0], records[1]

	// Arsenal has full coverage; its lone form value normalizes to the
	// degenerate midpoint.
	require.NotNil(t, arsenal.Overall)
	assert.InDelta(t, 0.6*0.0+0.4*0.5, *arsenal.Overall, 1e-9)
	assert.Equal(t, 1.0, arsenal.Confidence)

	// Chelsea misses form, so the present weights renormalize.
	require.NotNil(t, chelsea.Overall)
	assert.InDelta(t, 1.0, *chelsea.Overall, 1e-9)
	assert.InDelta(t, 0.6, chelsea.Confidence, 1e-9)
	assert.Nil(t, chelsea.Normalized[domain.ParamForm])

	report := prog.finish(time.Now())
	assert.InDelta(t, 75.0, report.Coverage[39], 1e-9)
}

func TestRecomputeSingleTeamDegenerate(t *testing.T) {
	comps := []domain.Competition{domesticComp(39, "Premier League", "England")}
	teams := map[int64][]domain.Team{39: {{ID: 1, Name: "Arsenal"}}}
	env := newEnv(t, comps, teams, nil)

	env.store.seed(39, 1, "2024", domain.ParamElo, 1500)

	prog := newProgress("run", TriggerManual, "2024", time.Now(), 1)
	require.NoError(t, env.orch.recompute(context.Background(), "2024", prog))

	records := env.store.records(39)
	require.Len(t, records, 1)
	require.NotNil(t, records[0].Overall)

	// A peer group of one cannot spread, every scale lands midway.
	assert.InDelta(t, 0.5, *records[0].Overall, 1e-9)
	assert.InDelta(t, 0.5, *records[0].LocalLeague, 1e-9)
	assert.InDelta(t, 0.5, *records[0].European, 1e-9)
}

func TestCoveragePct(t *testing.T) {
	assert.Equal(t, 0.0, coveragePct(nil, []domain.Parameter{domain.ParamElo}))

	records := []domain.StrengthRecord{
		{Raw: map[domain.Parameter]*float64{domain.ParamElo: domain.Float(1), domain.ParamForm: nil}},
		{Raw: map[domain.Parameter]*float64{domain.ParamElo: domain.Float(2), domain.ParamForm: domain.Float(3)}},
	}
	active := []domain.Parameter{domain.ParamElo, domain.ParamForm}
	assert.InDelta(t, 75.0, coveragePct(records, active), 1e-9)
}
