package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucketAllowsOneImmediately(t *testing.T) {
	b := NewTokenBucket(1.0)
	assert.True(t, b.TryTake())
	assert.False(t, b.TryTake())
}

func TestTokenBucketRefills(t *testing.T) {
	fakeNow := time.Now()
	b := NewTokenBucket(10.0) // 10/s, refills fast for the test
	b.now = func() time.Time { return fakeNow }
	require.True(t, b.TryTake())
	require.False(t, b.TryTake())
	fakeNow = fakeNow.Add(200 * time.Millisecond)
	assert.True(t, b.TryTake())
}

func TestTokenBucketTakeTimesOut(t *testing.T) {
	b := NewTokenBucket(0.001) // effectively never refills within the test window
	require.True(t, b.TryTake())
	err := b.Take(context.Background(), "example.com", 30*time.Millisecond)
	assert.Error(t, err)
}

func TestHostLimiterSeparatesHosts(t *testing.T) {
	h := NewHostLimiter(1.0)
	require.NoError(t, h.Take(context.Background(), "a.com", time.Second))
	require.NoError(t, h.Take(context.Background(), "b.com", time.Second))
}
