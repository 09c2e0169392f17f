// Package ratelimit provides a keyed token-bucket limiter for inbound requests.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type entry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// KeyedRateLimiter gives every key its own token bucket. Keys idle for longer
// than the idle TTL are evicted by a background goroutine.
type KeyedRateLimiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time

	done     chan struct{}
	stopOnce sync.Once
}

// New creates a limiter allowing rps requests per second per key with the given burst.
func New(rps float64, burst int, idleTTL time.Duration) *KeyedRateLimiter {
	krl := &KeyedRateLimiter{
		entries: make(map[string]*entry),
		limit:   rate.Limit(rps),
		burst:   burst,
		idleTTL: idleTTL,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	if idleTTL > 0 {
		go krl.cleanup()
	}
	return krl
}

// PerInterval converts "n requests per interval" into requests per second.
func PerInterval(n int, interval time.Duration) float64 {
	return float64(n) / interval.Seconds()
}

// Allow reports whether a request for key may proceed now.
func (krl *KeyedRateLimiter) Allow(key string) bool {
	krl.mu.Lock()
	e, ok := krl.entries[key]
	if !ok {
		e = &entry{lim: rate.NewLimiter(krl.limit, krl.burst)}
		krl.entries[key] = e
	}
	e.lastSeen = krl.now()
	krl.mu.Unlock()
	return e.lim.Allow()
}

// Len returns the number of tracked keys.
func (krl *KeyedRateLimiter) Len() int {
	krl.mu.Lock()
	defer krl.mu.Unlock()
	return len(krl.entries)
}

// Stop shuts down the cleanup goroutine.
func (krl *KeyedRateLimiter) Stop() {
	krl.stopOnce.Do(func() { close(krl.done) })
}

func (krl *KeyedRateLimiter) cleanup() {
	t := time.NewTicker(krl.idleTTL)
	defer t.Stop()
	for {
		select {
		case <-krl.done:
			return
		case <-t.C:
			krl.evictIdle()
		}
	}
}

func (krl *KeyedRateLimiter) evictIdle() {
	krl.mu.Lock()
	defer krl.mu.Unlock()
	cutoff := krl.now().Add(-krl.idleTTL)
	for k, e := range krl.entries {
		if e.lastSeen.Before(cutoff) {
			delete(krl.entries, k)
		}
	}
}
