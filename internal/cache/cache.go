// Package cache implements the two-tier cache shared by the embedding
// client and the glossary subsystem: a distributed primary (backed by
// Redis) and an in-process bounded LRU fallback. Get tries the primary
// first, then the fallback; Set writes through both; after a run of
// consecutive primary failures the primary is treated as unavailable for
// a cooldown window and served purely from the fallback.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/krump3t/astra-graphrag/log"
)

// Tier is the minimal interface a cache backend must satisfy. RedisTier
// implements this over github.com/redis/go-redis/v9; the in-process LRU
// fallback implements it directly without a backend.
type Tier interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// Cache composes a primary Tier with an in-process LRU fallback,
// implementing the circuit-breaking unavailability policy.
type Cache struct {
	primary  Tier
	fallback *lru
	logger   log.Logger

	mu              sync.Mutex
	consecutiveFail int
	unavailableFrom time.Time
	unavailableFor  time.Duration
	failThreshold   int
	now             func() time.Time
}

// Option configures a Cache at construction.
type Option func(*Cache)

// WithLogger overrides the default no-op logger.
func WithLogger(l log.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// WithUnavailabilityPolicy overrides the failure threshold and cooldown
// duration used to treat the primary as unavailable.
func WithUnavailabilityPolicy(failThreshold int, cooldown time.Duration) Option {
	return func(c *Cache) {
		c.failThreshold = failThreshold
		c.unavailableFor = cooldown
	}
}

// New builds a two-tier Cache. fallbackCapacity bounds the in-process
// LRU (1000 for the general-purpose cache, 2048 for the embedding-cache
// variant). primary may be nil, in which case every operation is served
// by the fallback alone.
func New(primary Tier, fallbackCapacity int, opts ...Option) *Cache {
	c := &Cache{
		primary:        primary,
		fallback:       newLRU(fallbackCapacity),
		logger:         &log.NoOpLogger{},
		failThreshold:  3,
		unavailableFor: 60 * time.Second,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) primaryAvailable() bool {
	if c.primary == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.consecutiveFail < c.failThreshold {
		return true
	}
	if c.now().After(c.unavailableFrom.Add(c.unavailableFor)) {
		return true // re-probe window has opened
	}
	return false
}

func (c *Cache) recordPrimaryResult(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		c.consecutiveFail = 0
		return
	}
	c.consecutiveFail++
	// >= rather than ==: a failed re-probe after the cooldown elapses must
	// re-open the window, not leave the primary permanently "available".
	if c.consecutiveFail >= c.failThreshold {
		c.unavailableFrom = c.now()
		c.logger.Warn("cache: primary unavailable after %d consecutive failures", c.consecutiveFail)
	}
}

// Get tries the primary tier (if available), then the fallback, and
// returns the first hit.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c.primaryAvailable() {
		v, hit, err := c.primary.Get(ctx, key)
		c.recordPrimaryResult(err)
		if err == nil && hit {
			c.logger.Debug("cache: HIT (primary) key=%s", key)
			return v, true
		}
	}
	v, hit := c.fallback.get(key, c.now())
	if hit {
		c.logger.Debug("cache: HIT (fallback) key=%s", key)
		return v, true
	}
	c.logger.Debug("cache: MISS key=%s", key)
	return nil, false
}

// Set writes through to both tiers. A primary-tier error is recorded
// toward the unavailability circuit but does not fail the call: the
// fallback write still happens.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if c.primaryAvailable() {
		err := c.primary.Set(ctx, key, value, ttl)
		c.recordPrimaryResult(err)
	}
	c.fallback.set(key, value, ttl, c.now())
}

// Invalidate removes key from both tiers.
func (c *Cache) Invalidate(ctx context.Context, key string) {
	if c.primaryAvailable() {
		_ = c.primary.Invalidate(ctx, key)
	}
	c.fallback.delete(key)
}
