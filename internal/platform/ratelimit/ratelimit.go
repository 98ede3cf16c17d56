/*
Package ratelimit throttles outbound calls per destination/source host.

It adapts the token-bucket-per-client shape of an inbound HTTP
rate-limiting middleware to an outbound client: one [golang.org/x/time/rate.Limiter]
per remote host, created lazily and reaped after it sits idle, so a long-running
sync job does not leak a limiter per host forever.
*/
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/corvid-labs/boorusync/internal/platform/constants"
)

// Limiter grants a per-host token bucket to outbound calls.
type Limiter struct {
	rps   rate.Limit
	burst int

	mu       sync.Mutex
	entries  map[string]*entry
	stopOnce sync.Once
	stopCh   chan struct{}
}

type entry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// New constructs a [Limiter] granting rps requests per second, with the
// given burst, to each distinct host passed to [Limiter.Wait].
func New(rps float64, burst int) *Limiter {
	if rps <= 0 {
		rps = constants.DefaultDestinationRPS
	}
	if burst <= 0 {
		burst = constants.DefaultDestinationBurst
	}

	l := &Limiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		entries: make(map[string]*entry),
		stopCh:  make(chan struct{}),
	}

	go l.cleanupLoop()

	return l
}

// Wait blocks until a token for host is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context, host string) error {
	limiter := l.limiterFor(host)
	return limiter.Wait(ctx)
}

// Close stops the background cleanup goroutine. It does not need to be
// called at program exit; it exists so tests and short-lived callers can
// avoid leaking the goroutine.
func (l *Limiter) Close() {
	l.stopOnce.Do(func() { close(l.stopCh) })
}

func (l *Limiter) limiterFor(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[host]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.entries[host] = e
	}
	e.lastUsed = time.Now()
	return e.limiter
}

func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
			l.evictIdle(10 * time.Minute)
		}
	}
}

func (l *Limiter) evictIdle(ttl time.Duration) {
	cutoff := time.Now().Add(-ttl)

	l.mu.Lock()
	defer l.mu.Unlock()

	for host, e := range l.entries {
		if e.lastUsed.Before(cutoff) {
			delete(l.entries, host)
		}
	}
}
