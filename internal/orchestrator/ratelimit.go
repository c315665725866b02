package orchestrator

import (
	"math"
	"sync"
	"time"
)

// TokenBucket is a lazily refilled rate limiter. There is no background
// refill; tokens are topped up from elapsed time whenever the bucket is read.
type TokenBucket struct {
	mu         sync.Mutex
	capacity   int
	refillRate float64 // tokens per second
	tokens     int
	lastRefill time.Time
}

// NewTokenBucket creates a full bucket.
func NewTokenBucket(capacity int, refillRate float64, now time.Time) *TokenBucket {
	return &TokenBucket{
		capacity:   capacity,
		refillRate: refillRate,
		tokens:     capacity,
		lastRefill: now,
	}
}

// refill adds floor(elapsed*rate) tokens. lastRefill only advances by the
// time that produced whole tokens so fractional progress is not lost.
func (b *TokenBucket) refill(now time.Time) {
	if b.refillRate <= 0 || !now.After(b.lastRefill) {
		return
	}
	elapsed := now.Sub(b.lastRefill).Seconds()
	add := int(math.Floor(elapsed * b.refillRate))
	if add <= 0 {
		return
	}
	if b.tokens+add >= b.capacity {
		b.tokens = b.capacity
		b.lastRefill = now
		return
	}
	b.tokens += add
	b.lastRefill = b.lastRefill.Add(time.Duration(float64(add) / b.refillRate * float64(time.Second)))
}

// TryConsume takes n tokens if available. When it cannot, it returns the
// whole tokens left and an estimate of when n tokens will be available.
func (b *TokenBucket) TryConsume(n int, now time.Time) (ok bool, available int, retryAfter time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill(now)
	if b.tokens >= n {
		b.tokens -= n
		return true, b.tokens, 0
	}
	return false, b.tokens, b.waitFor(n, now)
}

func (b *TokenBucket) waitFor(n int, now time.Time) time.Duration {
	if b.refillRate <= 0 || n > b.capacity {
		return 0
	}
	missing := float64(n - b.tokens)
	wait := time.Duration(missing/b.refillRate*float64(time.Second)) - now.Sub(b.lastRefill)
	if wait < 0 {
		return 0
	}
	return wait
}

// Available returns the whole tokens available at now.
func (b *TokenBucket) Available(now time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refill(now)
	return b.tokens
}

// Capacity returns the bucket size.
func (b *TokenBucket) Capacity() int {
	return b.capacity
}
