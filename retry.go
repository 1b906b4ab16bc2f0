package fetchkit

import (
	"context"
	"time"

	internalbackoff "github.com/Raulvalverdeleal/fetchkit/internal/backoff"
)

// backoffPolicy spaces retry attempts. A nil policy means retries fire
// immediately; the client this library descends from never delayed between
// attempts, so delays remain opt-in (see WithBackoff).
type backoffPolicy struct {
	strategy   internalbackoff.Strategy
	initial    time.Duration
	max        time.Duration
	multiplier float64
	jitter     float64
}

func newBackoffPolicy(strategy BackoffStrategy, initial, max time.Duration, multiplier, jitter float64) *backoffPolicy {
	p := &backoffPolicy{
		initial:    initial,
		max:        max,
		multiplier: multiplier,
		jitter:     jitter,
	}
	switch strategy {
	case DecorrelatedJitter:
		p.strategy = internalbackoff.DecorrelatedJitter{}
	default:
		p.strategy = internalbackoff.ExponentialJitter{}
	}
	return p
}

func (p *backoffPolicy) delay(attempt int) time.Duration {
	return p.strategy.Delay(attempt, p.initial, p.max, p.multiplier, p.jitter)
}

// sleepContext waits for d or until ctx is cancelled, returning the cancel
// cause in the latter case.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}
