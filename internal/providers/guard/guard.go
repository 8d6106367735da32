// Package guard wraps every provider call with the protections the free
// tiers demand: a token-bucket rate limit, a daily call budget, a circuit
// breaker, response caching and bounded retries. Callers hand the guard a
// fetch closure and get classified errors back.
package guard

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/gregleo12/spooky-football-engine/internal/config"
	"github.com/gregleo12/spooky-football-engine/internal/domain"
	"github.com/gregleo12/spooky-football-engine/internal/infrastructure/cache"
)

// breakerCooldown is how long an open circuit waits before probing recovery
const breakerCooldown = 30 * time.Second

// Response is a provider reply after the guard has finished with it
type Response struct {
	Status   int
	Body     []byte
	Header   http.Header
	Cached   bool
	Attempts int
}

// Fetcher performs one provider round trip. The guard owns retries, so a
// fetcher must be safe to call more than once.
type Fetcher func(ctx context.Context) (*Response, error)

// HTTPError is a non-2xx provider reply
type HTTPError struct {
	Status     int
	RetryAfter time.Duration
}

func (e *HTTPError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("HTTP %d (retry after %v)", e.Status, e.RetryAfter)
	}
	return fmt.Sprintf("HTTP %d", e.Status)
}

// Retryable reports whether the status is worth another attempt. 429 and
// server errors are; other client errors are not.
func (e *HTTPError) Retryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// Guard protects one upstream provider
type Guard struct {
	name      string
	cfg       config.ProviderConfig
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker
	budget    *DailyBudget
	cache     cache.Cache
	ttl       time.Duration
	telemetry *Telemetry
}

// New creates a guard for one provider. The cache may be nil, which disables
// response caching.
func New(name string, cfg config.ProviderConfig, budget config.BudgetConfig, c cache.Cache) *Guard {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: uint32(cfg.Circuit.SuccessThreshold),
		Interval:    time.Minute,
		Timeout:     breakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(cfg.Circuit.FailureThreshold)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("provider", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Provider circuit state changed")
		},
	}

	return &Guard{
		name:      name,
		cfg:       cfg,
		limiter:   rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		breaker:   gobreaker.NewCircuitBreaker(settings),
		budget:    NewDailyBudget(name, cfg.DailyBudget, budget.ResetHour, budget.WarnThreshold),
		cache:     c,
		ttl:       cfg.GetCacheTTL(),
		telemetry: NewTelemetry(name),
	}
}

// Do executes a guarded provider call. A non-empty cacheKey serves repeat
// calls from the cache and stores fresh 2xx bodies under the provider TTL.
func (g *Guard) Do(ctx context.Context, cacheKey string, fetch Fetcher) (*Response, error) {
	start := time.Now()

	if cacheKey != "" && g.cache != nil {
		if body, ok := g.cache.Get(ctx, cacheKey); ok {
			g.telemetry.recordCacheHit()
			return &Response{Status: http.StatusOK, Body: body, Cached: true}, nil
		}
		g.telemetry.recordCacheMiss()
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	if err := g.budget.Consume(1); err != nil {
		g.telemetry.recordBudgetDenial()
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= g.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			g.telemetry.recordRetry()
			select {
			case <-time.After(g.backoffFor(attempt, lastErr)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		resp, err := g.attempt(ctx, fetch)
		if err == nil {
			g.telemetry.recordSuccess(time.Since(start))
			resp.Attempts = attempt + 1
			if cacheKey != "" && g.cache != nil && g.ttl > 0 {
				g.cache.Set(ctx, cacheKey, resp.Body, g.ttl)
			}
			return resp, nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			g.telemetry.recordBreakerRejection()
			return nil, domain.WrapError(domain.KindTransient,
				fmt.Sprintf("provider %s circuit open", g.name), err)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		var httpErr *HTTPError
		if errors.As(err, &httpErr) && !httpErr.Retryable() {
			g.telemetry.recordFailure()
			return nil, domain.WrapError(domain.KindPermanent,
				fmt.Sprintf("provider %s rejected request", g.name), err)
		}

		lastErr = err
	}

	g.telemetry.recordFailure()
	return nil, domain.WrapError(domain.KindTransient,
		fmt.Sprintf("provider %s unavailable after %d attempts", g.name, g.cfg.MaxRetries+1), lastErr)
}

// attempt runs one fetch through the breaker with the per-request deadline
func (g *Guard) attempt(ctx context.Context, fetch Fetcher) (*Response, error) {
	result, err := g.breaker.Execute(func() (interface{}, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, g.cfg.GetRequestTimeout())
		defer cancel()

		resp, err := fetch(attemptCtx)
		if err != nil {
			return nil, err
		}
		if resp.Status < 200 || resp.Status >= 300 {
			return nil, &HTTPError{Status: resp.Status, RetryAfter: retryAfterOf(resp.Header)}
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Response), nil
}

// backoffFor returns the delay before the given retry attempt. A provider
// Retry-After hint floors the exponential schedule.
func (g *Guard) backoffFor(attempt int, lastErr error) time.Duration {
	d := g.cfg.GetBaseBackoff() << uint(attempt-1)
	if max := g.cfg.GetMaxBackoff(); d > max {
		d = max
	}

	var httpErr *HTTPError
	if errors.As(lastErr, &httpErr) && httpErr.RetryAfter > d {
		d = httpErr.RetryAfter
	}

	if g.cfg.BackoffMS.Jitter {
		d = d/2 + time.Duration(rand.Int63n(int64(d)))
	}
	return d
}

// retryAfterOf parses the Retry-After header, seconds form only
func retryAfterOf(headers http.Header) time.Duration {
	if headers == nil {
		return 0
	}
	raw := headers.Get("Retry-After")
	if raw == "" {
		return 0
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}

// Health returns the current guard state for the health endpoint
func (g *Guard) Health() Health {
	m := g.telemetry.Snapshot()
	b := g.budget.Status()

	return Health{
		Provider:      g.name,
		CircuitState:  g.breaker.State().String(),
		CacheHitRate:  m.CacheHitRate,
		Requests:      m.Requests,
		ErrorRate:     m.ErrorRate,
		Retries:       m.Retries,
		AvgLatencyMS:  m.AvgLatencyMS,
		BudgetUsed:    b.Used,
		BudgetLimit:   b.Limit,
		BudgetResetAt: b.ResetAt,
		LastSuccess:   m.LastSuccess,
		LastFailure:   m.LastFailure,
	}
}

// Health is the externally visible state of one provider guard
type Health struct {
	Provider      string    `json:"provider"`
	CircuitState  string    `json:"circuit_state"`
	CacheHitRate  float64   `json:"cache_hit_rate"`
	Requests      int64     `json:"requests"`
	ErrorRate     float64   `json:"error_rate"`
	Retries       int64     `json:"retries"`
	AvgLatencyMS  float64   `json:"avg_latency_ms"`
	BudgetUsed    int       `json:"budget_used"`
	BudgetLimit   int       `json:"budget_limit"`
	BudgetResetAt time.Time `json:"budget_reset_at"`
	LastSuccess   time.Time `json:"last_success,omitempty"`
	LastFailure   time.Time `json:"last_failure,omitempty"`
}

// Set holds one guard per enabled provider
type Set struct {
	guards map[string]*Guard
}

// NewSet builds guards for every enabled provider in the configuration
func NewSet(cfg *config.ProvidersConfig, c cache.Cache) *Set {
	guards := make(map[string]*Guard)
	for name, pc := range cfg.Providers {
		if !pc.Enabled {
			continue
		}
		guards[name] = New(name, pc, cfg.Budget, c)
	}
	return &Set{guards: guards}
}

// Get returns the guard for a provider
func (s *Set) Get(name string) (*Guard, bool) {
	g, ok := s.guards[name]
	return g, ok
}

// Health returns the state of every guard, keyed by provider name
func (s *Set) Health() map[string]Health {
	out := make(map[string]Health, len(s.guards))
	for name, g := range s.guards {
		out[name] = g.Health()
	}
	return out
}
