package orchestrator

import (
	"context"
	"math/rand"
	"time"

	"github.com/gregleo12/spooky-football-engine/internal/collect"
	"github.com/gregleo12/spooky-football-engine/internal/config"
	"github.com/gregleo12/spooky-football-engine/internal/domain"
)

// collectWithRetry runs one collector against one target, retrying transient
// failures on the configured exponential schedule. Permanent and invalid
// failures return immediately; the last good raw value in the store is never
// overwritten by a failure.
func (o *Orchestrator) collectWithRetry(ctx context.Context, c collect.Collector, target collect.Target) (collect.Result, error) {
	policy := o.cfg.Retry

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(retryDelay(policy, attempt)):
			case <-ctx.Done():
				return collect.Result{}, ctx.Err()
			}
		}

		res, err := c.Collect(ctx, target)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if !domain.IsTransient(err) {
			return collect.Result{}, err
		}
	}
	return collect.Result{}, lastErr
}

// retryDelay returns the jittered delay before the given attempt. The bare
// schedule grows by the configured multiplier from the floor to the ceiling;
// jitter spreads it over [d/2, 3d/2) so parallel workers do not retry in
// lockstep.
func retryDelay(policy config.RetryConfig, attempt int) time.Duration {
	d := float64(policy.GetInitialDelay())
	for i := 2; i < attempt; i++ {
		d *= policy.Multiplier
	}
	if ceil := float64(policy.GetMaxDelay()); d > ceil {
		d = ceil
	}

	out := time.Duration(d)
	if out <= 0 {
		return 0
	}
	return out/2 + time.Duration(rand.Int63n(int64(out)))
}
