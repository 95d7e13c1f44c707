package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisTier(t *testing.T) (*RedisTier, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisTierFromClient(client, "test:", time.Second), mr
}

func TestRedisTier_SetGetInvalidate(t *testing.T) {
	tier, _ := newTestRedisTier(t)
	ctx := context.Background()

	_, hit, err := tier.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, tier.Set(ctx, "k", []byte("v"), time.Minute))

	v, hit, err := tier.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []byte("v"), v)

	require.NoError(t, tier.Invalidate(ctx, "k"))
	_, hit, err = tier.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestRedisTier_TTLExpiry(t *testing.T) {
	tier, mr := newTestRedisTier(t)
	ctx := context.Background()

	require.NoError(t, tier.Set(ctx, "k", []byte("v"), time.Second))
	mr.FastForward(2 * time.Second)

	_, hit, err := tier.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestRedisTier_UnreachablePrimaryIsTransient(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	tier := NewRedisTierFromClient(client, "test:", 200*time.Millisecond)

	_, _, err := tier.Get(context.Background(), "k")
	require.Error(t, err)
}

func TestCache_IntegratesWithRedisTier(t *testing.T) {
	tier, mr := newTestRedisTier(t)
	c := New(tier, 10)
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), time.Minute)
	v, hit := c.Get(ctx, "k")
	assert.True(t, hit)
	assert.Equal(t, []byte("v"), v)

	mr.Close()
	// primary now unreachable; fallback still serves the value.
	v, hit = c.Get(ctx, "k")
	assert.True(t, hit)
	assert.Equal(t, []byte("v"), v)
}
