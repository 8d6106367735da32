package orchestrator

import (
	"fmt"
	"sync"
	"time"

	"github.com/gregleo12/spooky-football-engine/internal/collect"
	"github.com/gregleo12/spooky-football-engine/internal/domain"
	"github.com/gregleo12/spooky-football-engine/internal/persistence"
)

// errorCap bounds the error map carried by a report so a fully failing run
// against hundreds of teams cannot bloat the run history rows.
const errorCap = 50

// ParameterCounts tallies one parameter's collection outcomes in a run.
type ParameterCounts struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Report is the structured outcome of one refresh run. It is plain data;
// snapshots of it flow to the log, the run history and the event feed.
type Report struct {
	RunID      string    `json:"run_id"`
	Trigger    string    `json:"trigger"`
	Season     string    `json:"season"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	DurationMS int64     `json:"duration_ms"`

	CompetitionN int                                  `json:"competitions"`
	Ingested     map[int64]collect.IngestStats        `json:"ingested,omitempty"`
	Parameters   map[domain.Parameter]ParameterCounts `json:"parameters,omitempty"`
	// Coverage is the percentage of raw values present per competition
	// after the run, over teams times weighted parameters.
	Coverage map[int64]float64 `json:"coverage,omitempty"`

	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`

	Errors          map[string]string `json:"errors,omitempty"`
	ErrorsTruncated int               `json:"errors_truncated,omitempty"`
}

// Summary folds the report into the persisted run history form.
func (r *Report) Summary() persistence.RunSummary {
	return persistence.RunSummary{
		ID:           r.RunID,
		Trigger:      r.Trigger,
		Season:       r.Season,
		StartedAt:    r.StartedAt,
		FinishedAt:   r.FinishedAt,
		Collected:    r.Succeeded,
		Failed:       r.Failed,
		Errors:       r.Errors,
		CompetitionN: r.CompetitionN,
	}
}

// progress accumulates a report under a lock while collection workers run
// concurrently. Snapshots hand out independent copies.
type progress struct {
	mu sync.Mutex
	r  Report
}

func newProgress(runID, trigger, season string, started time.Time, competitions int) *progress {
	return &progress{r: Report{
		RunID:        runID,
		Trigger:      trigger,
		Season:       season,
		StartedAt:    started,
		CompetitionN: competitions,
		Ingested:     make(map[int64]collect.IngestStats),
		Parameters:   make(map[domain.Parameter]ParameterCounts),
		Coverage:     make(map[int64]float64),
		Errors:       make(map[string]string),
	}}
}

func (p *progress) recordSync(comp domain.Competition, stats collect.IngestStats) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.r.Ingested[comp.ID] = stats
}

func (p *progress) recordSyncFailure(comp domain.Competition, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.addError(fmt.Sprintf("%s/sync", comp.Name), err)
}

func (p *progress) recordSuccess(param domain.Parameter) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c := p.r.Parameters[param]
	c.Attempted++
	c.Succeeded++
	p.r.Parameters[param] = c
	p.r.Attempted++
	p.r.Succeeded++
}

func (p *progress) recordFailure(target collect.Target, param domain.Parameter, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c := p.r.Parameters[param]
	c.Attempted++
	c.Failed++
	p.r.Parameters[param] = c
	p.r.Attempted++
	p.r.Failed++
	p.addError(fmt.Sprintf("%s/%s/%s", target.Competition.Name, target.Team.Name, param), err)
}

func (p *progress) setCoverage(competitionID int64, pct float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.r.Coverage[competitionID] = pct
}

// addError records one failure message. Callers hold p.mu.
func (p *progress) addError(key string, err error) {
	if len(p.r.Errors) >= errorCap {
		p.r.ErrorsTruncated++
		return
	}
	p.r.Errors[key] = err.Error()
}

func (p *progress) snapshot() *Report {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.copyLocked()
}

func (p *progress) finish(at time.Time) *Report {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.r.FinishedAt = at
	p.r.DurationMS = at.Sub(p.r.StartedAt).Milliseconds()
	return p.copyLocked()
}

func (p *progress) copyLocked() *Report {
	out := p.r

	out.Ingested = make(map[int64]collect.IngestStats, len(p.r.Ingested))
	for k, v := range p.r.Ingested {
		out.Ingested[k] = v
	}
	out.Parameters = make(map[domain.Parameter]ParameterCounts, len(p.r.Parameters))
	for k, v := range p.r.Parameters {
		out.Parameters[k] = v
	}
	out.Coverage = make(map[int64]float64, len(p.r.Coverage))
	for k, v := range p.r.Coverage {
		out.Coverage[k] = v
	}
	out.Errors = make(map[string]string, len(p.r.Errors))
	for k, v := range p.r.Errors {
		out.Errors[k] = v
	}
	return &out
}
