package guard

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gregleo12/spooky-football-engine/internal/domain"
)

// DailyBudget caps provider calls per UTC day. The window resets at the
// configured hour; exhaustion is transient because the budget comes back.
type DailyBudget struct {
	name      string
	limit     int
	resetHour int
	warnAt    int

	mu      sync.Mutex
	used    int
	resetAt time.Time
	warned  bool
}

// NewDailyBudget creates a budget of limit calls per day, resetting at
// resetHour UTC. warnThreshold is the used fraction that triggers a single
// warning log per window.
func NewDailyBudget(name string, limit, resetHour int, warnThreshold float64) *DailyBudget {
	return &DailyBudget{
		name:      name,
		limit:     limit,
		resetHour: resetHour,
		warnAt:    int(float64(limit) * warnThreshold),
		resetAt:   nextReset(time.Now().UTC(), resetHour),
	}
}

// Consume takes n calls from the budget, or returns a transient error when
// the window is exhausted
func (b *DailyBudget) Consume(n int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now().UTC()
	if now.After(b.resetAt) {
		b.used = 0
		b.warned = false
		b.resetAt = nextReset(now, b.resetHour)
	}

	if b.used+n > b.limit {
		return domain.NewError(domain.KindTransient,
			fmt.Sprintf("daily budget exhausted for %s: %d/%d calls, resets %s",
				b.name, b.used, b.limit, b.resetAt.Format(time.RFC3339)))
	}

	b.used += n
	if !b.warned && b.warnAt > 0 && b.used >= b.warnAt {
		b.warned = true
		log.Warn().
			Str("provider", b.name).
			Int("used", b.used).
			Int("limit", b.limit).
			Time("resets", b.resetAt).
			Msg("Provider daily budget running low")
	}

	return nil
}

// Remaining returns the calls left in the current window
func (b *DailyBudget) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if time.Now().UTC().After(b.resetAt) {
		return b.limit
	}
	return b.limit - b.used
}

// BudgetStatus is a snapshot of one budget window
type BudgetStatus struct {
	Used    int       `json:"used"`
	Limit   int       `json:"limit"`
	ResetAt time.Time `json:"reset_at"`
}

// Status returns the current window snapshot
func (b *DailyBudget) Status() BudgetStatus {
	b.mu.Lock()
	defer b.mu.Unlock()

	return BudgetStatus{Used: b.used, Limit: b.limit, ResetAt: b.resetAt}
}

// nextReset returns the first occurrence of hour:00 UTC strictly after now
func nextReset(now time.Time, hour int) time.Time {
	t := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, time.UTC)
	if !t.After(now) {
		t = t.Add(24 * time.Hour)
	}
	return t
}
