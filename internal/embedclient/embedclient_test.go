package embedclient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krump3t/astra-graphrag/internal/cache"
)

type countingEmbedder struct {
	calls int
	vec   []float32
}

func (c *countingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls++
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = c.vec
	}
	return out, nil
}

type stubTier struct {
	store map[string][]byte
}

func newStubTier() *stubTier { return &stubTier{store: map[string][]byte{}} }

func (s *stubTier) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, ok := s.store[key]
	return v, ok, nil
}
func (s *stubTier) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.store[key] = value
	return nil
}
func (s *stubTier) Invalidate(ctx context.Context, key string) error {
	delete(s.store, key)
	return nil
}

func TestCachingEmbedder_EmbedQuery_CachesExactValue(t *testing.T) {
	inner := &countingEmbedder{vec: []float32{0.1, 0.2, 0.3}}
	c := New(inner, cache.New(newStubTier(), 10), "model-a", time.Minute, nil)
	ctx := context.Background()

	v1, err := c.EmbedQuery(ctx, "porosity")
	require.NoError(t, err)
	v2, err := c.EmbedQuery(ctx, "porosity")
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Equal(t, 1, inner.calls, "second call should be served from cache")
}

func TestCachingEmbedder_Embed_MixesHitsAndMisses(t *testing.T) {
	inner := &countingEmbedder{vec: []float32{1, 2}}
	c := New(inner, cache.New(newStubTier(), 10), "model-a", time.Minute, nil)
	ctx := context.Background()

	_, err := c.EmbedQuery(ctx, "a")
	require.NoError(t, err)

	out, err := c.Embed(ctx, []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 2, inner.calls, "first EmbedQuery plus one batch call for the miss on b")
}

func TestCachingEmbedder_BatchOver500Rejected(t *testing.T) {
	inner := &countingEmbedder{vec: []float32{1}}
	c := New(inner, cache.New(newStubTier(), 10), "model-a", time.Minute, nil)

	texts := make([]string, 501)
	_, err := c.Embed(context.Background(), texts)
	require.Error(t, err)
}
