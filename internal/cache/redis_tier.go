package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/krump3t/astra-graphrag/internal/apierrors"
)

// RedisTier is the distributed primary cache tier, backed by
// github.com/redis/go-redis/v9. Every operation is bounded by a per-op
// timeout so a slow or unreachable Redis cannot stall the two-tier Cache
// past its documented degrade-to-fallback policy.
type RedisTier struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
}

// RedisOptions configures a RedisTier's connection.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// Prefix namespaces every key, default "astra:cache:".
	Prefix string
	// Timeout bounds every op (Get/Set/Invalidate), default 1s.
	Timeout time.Duration
}

// NewRedisTier builds a RedisTier. It does not dial eagerly: go-redis
// connects lazily on first command, and a dead primary is discovered (and
// degraded around) by Cache's consecutive-failure circuit rather than at
// construction.
func NewRedisTier(opts RedisOptions) *RedisTier {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	prefix := opts.Prefix
	if prefix == "" {
		prefix = "astra:cache:"
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = time.Second
	}

	return &RedisTier{client: client, prefix: prefix, timeout: timeout}
}

// NewRedisTierFromClient builds a RedisTier over an already-constructed
// client, used by tests against a miniredis instance.
func NewRedisTierFromClient(client *redis.Client, prefix string, timeout time.Duration) *RedisTier {
	if prefix == "" {
		prefix = "astra:cache:"
	}
	if timeout <= 0 {
		timeout = time.Second
	}
	return &RedisTier{client: client, prefix: prefix, timeout: timeout}
}

func (t *RedisTier) key(k string) string {
	return t.prefix + k
}

func (t *RedisTier) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, t.timeout)
}

// Get returns the value stored at key, or hit=false on a cache miss.
func (t *RedisTier) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()

	v, err := t.client.Get(ctx, t.key(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &apierrors.TransientError{Op: "redis_tier.get", Err: err}
	}
	return v, true, nil
}

// Set writes value at key with the given ttl. A ttl of 0 means no
// expiration, matching redis.Client.Set's own convention.
func (t *RedisTier) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()

	if err := t.client.Set(ctx, t.key(key), value, ttl).Err(); err != nil {
		return &apierrors.TransientError{Op: "redis_tier.set", Err: err}
	}
	return nil
}

// Invalidate deletes key from the primary tier.
func (t *RedisTier) Invalidate(ctx context.Context, key string) error {
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()

	if err := t.client.Del(ctx, t.key(key)).Err(); err != nil {
		return &apierrors.TransientError{Op: "redis_tier.invalidate", Err: err}
	}
	return nil
}
