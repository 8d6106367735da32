package guard

import (
	"sync/atomic"
	"time"
)

// Telemetry collects per-provider counters for the health endpoint
type Telemetry struct {
	provider string

	requests           int64
	successes          int64
	failures           int64
	retries            int64
	cacheHits          int64
	cacheMisses        int64
	budgetDenials      int64
	breakerRejections  int64
	totalLatencyMicros int64
	latencyCount       int64
	lastSuccess        int64 // unix seconds
	lastFailure        int64 // unix seconds
}

// NewTelemetry creates a telemetry collector for one provider
func NewTelemetry(provider string) *Telemetry {
	return &Telemetry{provider: provider}
}

func (t *Telemetry) recordSuccess(latency time.Duration) {
	atomic.AddInt64(&t.requests, 1)
	atomic.AddInt64(&t.successes, 1)
	atomic.StoreInt64(&t.lastSuccess, time.Now().Unix())
	atomic.AddInt64(&t.totalLatencyMicros, latency.Microseconds())
	atomic.AddInt64(&t.latencyCount, 1)
}

func (t *Telemetry) recordFailure() {
	atomic.AddInt64(&t.requests, 1)
	atomic.AddInt64(&t.failures, 1)
	atomic.StoreInt64(&t.lastFailure, time.Now().Unix())
}

func (t *Telemetry) recordRetry() {
	atomic.AddInt64(&t.retries, 1)
}

func (t *Telemetry) recordCacheHit() {
	atomic.AddInt64(&t.cacheHits, 1)
}

func (t *Telemetry) recordCacheMiss() {
	atomic.AddInt64(&t.cacheMisses, 1)
}

func (t *Telemetry) recordBudgetDenial() {
	atomic.AddInt64(&t.budgetDenials, 1)
}

func (t *Telemetry) recordBreakerRejection() {
	atomic.AddInt64(&t.breakerRejections, 1)
}

// Metrics is a telemetry snapshot
type Metrics struct {
	Provider          string    `json:"provider"`
	Requests          int64     `json:"requests"`
	Successes         int64     `json:"successes"`
	Failures          int64     `json:"failures"`
	Retries           int64     `json:"retries"`
	CacheHits         int64     `json:"cache_hits"`
	CacheMisses       int64     `json:"cache_misses"`
	CacheHitRate      float64   `json:"cache_hit_rate"`
	ErrorRate         float64   `json:"error_rate"`
	BudgetDenials     int64     `json:"budget_denials"`
	BreakerRejections int64     `json:"breaker_rejections"`
	AvgLatencyMS      float64   `json:"avg_latency_ms"`
	LastSuccess       time.Time `json:"last_success,omitempty"`
	LastFailure       time.Time `json:"last_failure,omitempty"`
}

// Snapshot returns the current counters
func (t *Telemetry) Snapshot() Metrics {
	requests := atomic.LoadInt64(&t.requests)
	failures := atomic.LoadInt64(&t.failures)
	hits := atomic.LoadInt64(&t.cacheHits)
	misses := atomic.LoadInt64(&t.cacheMisses)

	var hitRate float64
	if hits+misses > 0 {
		hitRate = float64(hits) / float64(hits+misses)
	}

	var errorRate float64
	if requests > 0 {
		errorRate = float64(failures) / float64(requests)
	}

	var avgLatencyMS float64
	if n := atomic.LoadInt64(&t.latencyCount); n > 0 {
		avgLatencyMS = float64(atomic.LoadInt64(&t.totalLatencyMicros)) / float64(n) / 1000.0
	}

	m := Metrics{
		Provider:          t.provider,
		Requests:          requests,
		Successes:         atomic.LoadInt64(&t.successes),
		Failures:          failures,
		Retries:           atomic.LoadInt64(&t.retries),
		CacheHits:         hits,
		CacheMisses:       misses,
		CacheHitRate:      hitRate,
		ErrorRate:         errorRate,
		BudgetDenials:     atomic.LoadInt64(&t.budgetDenials),
		BreakerRejections: atomic.LoadInt64(&t.breakerRejections),
		AvgLatencyMS:      avgLatencyMS,
	}

	if ts := atomic.LoadInt64(&t.lastSuccess); ts > 0 {
		m.LastSuccess = time.Unix(ts, 0)
	}
	if ts := atomic.LoadInt64(&t.lastFailure); ts > 0 {
		m.LastFailure = time.Unix(ts, 0)
	}
	return m
}
