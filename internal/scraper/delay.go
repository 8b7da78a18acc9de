package scraper

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"
)

// RandomDelayer sleeps for jittered durations to desynchronize request
// patterns against the target site.
type RandomDelayer struct{}

// NewRandomDelayer returns the production delay strategy.
func NewRandomDelayer() *RandomDelayer {
	return &RandomDelayer{}
}

// Jitter sleeps for a uniformly random duration in [min, max], returning
// early if the context finishes.
func (d *RandomDelayer) Jitter(ctx context.Context, min, max time.Duration) {
	delay := min
	if span := max - min; span > 0 {
		delay += randomDuration(span)
	}
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func randomDuration(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(limit)))
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}

// NopDelayer skips all waits; used in tests.
type NopDelayer struct{}

// Jitter returns immediately.
func (NopDelayer) Jitter(context.Context, time.Duration, time.Duration) {}
