package ratelimit

import (
	"testing"
	"time"
)

func TestKeyedRateLimiter_Allow(t *testing.T) {
	tests := []struct {
		name     string
		rps      float64
		burst    int
		calls    int
		wantPass int
	}{
		{name: "burst allows initial requests", rps: 1, burst: 3, calls: 3, wantPass: 3},
		{name: "exceeding burst blocks", rps: 1, burst: 2, calls: 5, wantPass: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := New(tt.rps, tt.burst, 0)
			defer rl.Stop()

			passed := 0
			for i := 0; i < tt.calls; i++ {
				if rl.Allow("test") {
					passed++
				}
			}
			if passed != tt.wantPass {
				t.Errorf("Allow() passed %d, want %d", passed, tt.wantPass)
			}
		})
	}
}

func TestKeyedRateLimiter_KeysAreIndependent(t *testing.T) {
	rl := New(0.001, 1, 0)
	defer rl.Stop()

	if !rl.Allow("a") || rl.Allow("a") {
		t.Fatal("key a should pass once")
	}
	if !rl.Allow("b") {
		t.Fatal("key b must not be affected by key a")
	}
}

func TestKeyedRateLimiter_EvictIdle(t *testing.T) {
	rl := New(1, 1, time.Minute)
	defer rl.Stop()

	now := time.Now()
	rl.now = func() time.Time { return now }
	rl.Allow("old")
	now = now.Add(2 * time.Minute)
	rl.Allow("fresh")

	rl.evictIdle()
	if rl.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", rl.Len())
	}
}

func TestPerInterval(t *testing.T) {
	if got := PerInterval(30, time.Minute); got != 0.5 {
		t.Fatalf("PerInterval = %v", got)
	}
}
