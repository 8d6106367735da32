package http

import (
	"context"
	"time"

	"github.com/gregleo12/spooky-football-engine/internal/infrastructure/cache"
	"github.com/gregleo12/spooky-football-engine/internal/orchestrator"
	"github.com/gregleo12/spooky-football-engine/internal/persistence"
	"github.com/gregleo12/spooky-football-engine/internal/providers/guard"
)

// HealthResponse answers GET /health.
type HealthResponse struct {
	Status    string                  `json:"status"` // ok | degraded
	Timestamp time.Time               `json:"timestamp"`
	Database  persistence.HealthCheck `json:"database"`
	Cache     CacheHealth             `json:"cache"`
	Providers map[string]guard.Health `json:"providers,omitempty"`
	Refresh   RefreshHealth           `json:"refresh"`
}

// CacheHealth reports the response cache backend and its hit rate.
type CacheHealth struct {
	Backend string  `json:"backend"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// RefreshHealth reports the refresh cycle state. RunsOK and RunsFailed are
// totals since process start, read back from the Prometheus counters.
type RefreshHealth struct {
	Running    bool                     `json:"running"`
	RunsOK     int64                    `json:"runs_ok"`
	RunsFailed int64                    `json:"runs_failed"`
	Jobs       []orchestrator.JobStatus `json:"jobs,omitempty"`
	LastRun    *persistence.RunSummary  `json:"last_run,omitempty"`
}

// RunnerState is the slice of the orchestrator the health check reads.
type RunnerState interface {
	Running() bool
}

// HealthChecker assembles the health answer from whichever subsystems are
// wired. Every dependency is optional; an absent one reports as such
// instead of failing the endpoint.
type HealthChecker struct {
	db        persistence.RepositoryHealth
	cache     cache.Cache
	backend   string
	guards    *guard.Set
	runner    RunnerState
	scheduler *orchestrator.Scheduler
	runs      persistence.RunsRepo
	metrics   *Metrics
}

// HealthDeps wires a HealthChecker.
type HealthDeps struct {
	DB           persistence.RepositoryHealth
	Cache        cache.Cache
	CacheBackend string
	Guards       *guard.Set
	Runner       RunnerState
	Scheduler    *orchestrator.Scheduler
	Runs         persistence.RunsRepo
	Metrics      *Metrics
}

func NewHealthChecker(deps HealthDeps) *HealthChecker {
	return &HealthChecker{
		db:        deps.DB,
		cache:     deps.Cache,
		backend:   deps.CacheBackend,
		guards:    deps.Guards,
		runner:    deps.Runner,
		scheduler: deps.Scheduler,
		runs:      deps.Runs,
		metrics:   deps.Metrics,
	}
}

// Check reports overall health. Degraded means the database is unreachable
// or a provider circuit is open; the endpoint itself still answers 200.
func (h *HealthChecker) Check(ctx context.Context) HealthResponse {
	resp := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
	}

	if h.db != nil {
		resp.Database = h.db.Health(ctx)
		if !resp.Database.Healthy {
			resp.Status = "degraded"
		}
	} else {
		resp.Database = persistence.HealthCheck{
			Healthy:   true,
			Errors:    []string{"database disabled"},
			LastCheck: resp.Timestamp,
		}
	}

	if h.cache != nil {
		stats := h.cache.Stats()
		resp.Cache = CacheHealth{
			Backend: h.backend,
			Hits:    stats.Hits,
			Misses:  stats.Misses,
		}
		if total := stats.Hits + stats.Misses; total > 0 {
			resp.Cache.HitRate = float64(stats.Hits) / float64(total)
		}
	}

	if h.guards != nil {
		resp.Providers = h.guards.Health()
		for _, p := range resp.Providers {
			if p.CircuitState == "open" {
				resp.Status = "degraded"
				break
			}
		}
	}

	if h.runner != nil {
		resp.Refresh.Running = h.runner.Running()
	}
	if h.metrics != nil {
		resp.Refresh.RunsOK, resp.Refresh.RunsFailed = h.metrics.RunTotals()
	}
	if h.scheduler != nil {
		resp.Refresh.Jobs = h.scheduler.Jobs()
	}
	if h.runs != nil {
		if run, err := h.runs.Latest(ctx); err == nil {
			resp.Refresh.LastRun = run
		}
	}

	return resp
}
