package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/krump3t/astra-graphrag/internal/apierrors"
)

// TokenBucket is a single-host rate limiter: capacity 1, refilled at a
// configurable rate. Callers blocking on Take wait up to MaxWait before
// failing with RateLimitExceeded.
type TokenBucket struct {
	mu       sync.Mutex
	tokens   float64
	capacity float64
	rate     float64 // tokens per second
	last     time.Time
	now      func() time.Time
}

// NewTokenBucket creates a bucket at full capacity (1 token), refilling
// at ratePerSecond.
func NewTokenBucket(ratePerSecond float64) *TokenBucket {
	return &TokenBucket{
		tokens:   1,
		capacity: 1,
		rate:     ratePerSecond,
		last:     time.Now(),
		now:      time.Now,
	}
}

func (b *TokenBucket) refill() {
	now := b.now()
	elapsed := now.Sub(b.last).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	b.last = now
	b.tokens += elapsed * b.rate
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
}

// TryTake attempts to consume a token without blocking.
func (b *TokenBucket) TryTake() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refill()
	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// Take blocks until a token is available, the context is cancelled, or
// maxWait elapses, whichever is first. On timeout it returns
// RateLimitExceeded for host.
func (b *TokenBucket) Take(ctx context.Context, host string, maxWait time.Duration) error {
	deadline := time.Now().Add(maxWait)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	if b.TryTake() {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if b.TryTake() {
				return nil
			}
			if time.Now().After(deadline) {
				return &apierrors.RateLimitExceeded{Host: host, MaxWait: maxWait.String()}
			}
		}
	}
}

// HostLimiter owns one TokenBucket per host, created lazily and shared
// process-wide.
type HostLimiter struct {
	mu      sync.Mutex
	rate    float64
	buckets map[string]*TokenBucket
}

// NewHostLimiter creates a HostLimiter whose per-host buckets refill at
// ratePerSecond.
func NewHostLimiter(ratePerSecond float64) *HostLimiter {
	return &HostLimiter{rate: ratePerSecond, buckets: make(map[string]*TokenBucket)}
}

// Take blocks on the bucket for host, creating one if this is the first
// request to that host.
func (h *HostLimiter) Take(ctx context.Context, host string, maxWait time.Duration) error {
	h.mu.Lock()
	b, ok := h.buckets[host]
	if !ok {
		b = NewTokenBucket(h.rate)
		h.buckets[host] = b
	}
	h.mu.Unlock()
	return b.Take(ctx, host, maxWait)
}
