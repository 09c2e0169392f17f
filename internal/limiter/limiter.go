// Package limiter throttles failed logins per (username, client address).
package limiter

import (
	"context"
	"crypto/sha256"
	"time"
)

// Limiter controls login attempts and temporary lockouts.
type Limiter interface {
	// Allow reports whether a login may be attempted now, and if not, for how long it stays locked.
	Allow(ctx context.Context, username, addr string) (bool, time.Duration, error)
	// Success clears the failure history after a good login.
	Success(ctx context.Context, username, addr string) error
	// Failure records a failed attempt and reports whether it triggered a lockout.
	Failure(ctx context.Context, username, addr string) (bool, time.Duration, error)
}

// Policy configures lockout behavior.
type Policy struct {
	Window   time.Duration // failures older than this start a new count
	MaxFails int           // failures within Window that trigger a lockout
	BlockFor time.Duration // lockout length
}

// DefaultPolicy locks a (user, address) pair for 15 minutes after 5 failures in 15 minutes.
var DefaultPolicy = Policy{Window: 15 * time.Minute, MaxFails: 5, BlockFor: 15 * time.Minute}

// Nop never limits.
type Nop struct{}

func (Nop) Allow(context.Context, string, string) (bool, time.Duration, error) { return true, 0, nil }
func (Nop) Success(context.Context, string, string) error                       { return nil }
func (Nop) Failure(context.Context, string, string) (bool, time.Duration, error) {
	return false, 0, nil
}

// hashAddr returns a stable digest for a client address so raw addresses are never stored.
func hashAddr(addr string) []byte {
	h := sha256.Sum256([]byte(addr))
	return h[:]
}
