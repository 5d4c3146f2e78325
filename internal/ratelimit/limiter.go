// Package ratelimit enforces a per-host minimum inter-call delay shared
// by the Fetcher, Extractors, and Discovery Sources.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
)

// DefaultMinDelay is the fallback minimum delay between calls to any one
// host when no per-host override is configured.
const DefaultMinDelay = 500 * time.Millisecond

// Limiter enforces `max(0, last[host] + min_delay - now())` before every
// outbound call, recording `now()` as last[host] afterward. Every host
// also gets its own x/time/rate token bucket (one token per min_delay,
// burst burstSize), waited on after the min-delay sleep.
type Limiter struct {
	mu          sync.Mutex
	lastCallAt  map[string]time.Time
	buckets     map[string]*rate.Limiter
	defaultMin  time.Duration
	perHostMin  map[string]time.Duration
	burstSize   int
	logger      arbor.ILogger
}

// New creates a Limiter. perHostMin overrides DefaultMinDelay for
// specific hosts (e.g. a slower-moving ATS vendor API).
func New(defaultMin time.Duration, perHostMin map[string]time.Duration, burstSize int, logger arbor.ILogger) *Limiter {
	if defaultMin <= 0 {
		defaultMin = DefaultMinDelay
	}
	if burstSize <= 0 {
		burstSize = 1
	}
	return &Limiter{
		lastCallAt: make(map[string]time.Time),
		buckets:    make(map[string]*rate.Limiter),
		defaultMin: defaultMin,
		perHostMin: perHostMin,
		burstSize:  burstSize,
		logger:     logger,
	}
}

// Wait blocks the caller until it is safe to make another call to host,
// then records the call time. It is process-wide and mutable: all
// mutation happens on the per-host lastCallAt and buckets maps, under mu.
func (l *Limiter) Wait(ctx context.Context, host string) error {
	minDelay := l.minDelayFor(host)

	l.mu.Lock()
	last, seen := l.lastCallAt[host]
	bucket, ok := l.buckets[host]
	if !ok {
		bucket = rate.NewLimiter(rate.Every(minDelay), l.burstSize)
		l.buckets[host] = bucket
	}
	l.mu.Unlock()

	if seen {
		elapsed := time.Since(last)
		if wait := minDelay - elapsed; wait > 0 {
			timer := time.NewTimer(wait)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
			}
		}
	}

	if err := bucket.Wait(ctx); err != nil {
		return err
	}

	l.mu.Lock()
	l.lastCallAt[host] = time.Now()
	l.mu.Unlock()

	if l.logger != nil {
		l.logger.Debug().Str("host", host).Dur("min_delay", minDelay).Msg("rate limiter released call")
	}

	return nil
}

func (l *Limiter) minDelayFor(host string) time.Duration {
	if l.perHostMin != nil {
		if d, ok := l.perHostMin[host]; ok && d > 0 {
			return d
		}
	}
	return l.defaultMin
}
