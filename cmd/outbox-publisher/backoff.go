package main

import (
	"context"
	"math/rand"
	"time"
)

const (
	maxPollBackoff = 10 * time.Second
	jitterWindow   = 250 * time.Millisecond

	// per-row retry schedule: 2s, 4s, 8s ... capped at five minutes
	retryBaseDelay = 2 * time.Second
	retryMaxDelay  = 5 * time.Minute
)

// retryDelay is the wait before the given (1-based) publish attempt is retried.
func retryDelay(attempt int) time.Duration {
	delay := retryBaseDelay
	for i := 1; i < attempt; i++ {
		if delay >= retryMaxDelay/2 {
			return retryMaxDelay
		}
		delay *= 2
	}
	return delay
}

// pollBackoff doubles the idle wait after each failed batch.
type pollBackoff struct {
	base    time.Duration
	max     time.Duration
	current time.Duration
}

func newPollBackoff(base, max time.Duration) *pollBackoff {
	if base <= 0 {
		base = time.Second
	}
	return &pollBackoff{base: base, max: max, current: base}
}

func (b *pollBackoff) fail() time.Duration {
	b.current *= 2
	if b.current > b.max {
		b.current = b.max
	}
	return b.current
}

func (b *pollBackoff) reset() {
	b.current = b.base
}

var jitterRand = rand.New(rand.NewSource(time.Now().UnixNano()))

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + time.Duration(jitterRand.Int63n(int64(jitterWindow)))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
