// Package embedclient wraps an llmclient.Embedder with the shared
// two-tier cache, keyed by (model_id, text): LRU-bounded at 2048
// entries, byte-equal values returned for an identical key while within
// TTL.
package embedclient

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/krump3t/astra-graphrag/internal/cache"
	"github.com/krump3t/astra-graphrag/internal/llmclient"
	"github.com/krump3t/astra-graphrag/log"
)

// CachingEmbedder wraps an llmclient.Embedder so repeated (model, text)
// pairs are served from cache rather than re-embedded.
type CachingEmbedder struct {
	inner   llmclient.Embedder
	cache   *cache.Cache
	modelID string
	ttl     time.Duration
	logger  log.Logger
}

// New builds a CachingEmbedder. modelID participates in the cache key so
// switching embedding models never serves a stale vector from a different
// model's cache entries.
func New(inner llmclient.Embedder, c *cache.Cache, modelID string, ttl time.Duration, logger log.Logger) *CachingEmbedder {
	if logger == nil {
		logger = &log.NoOpLogger{}
	}
	return &CachingEmbedder{inner: inner, cache: c, modelID: modelID, ttl: ttl, logger: logger}
}

func cacheKey(modelID, text string) string {
	return fmt.Sprintf("embed:%s:%s", modelID, text)
}

// EmbedQuery embeds a single text, serving from cache when available.
// This is the shape internal/retrieval's Embedder dependency expects.
func (c *CachingEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(c.modelID, text)
	if raw, hit := c.cache.Get(ctx, key); hit {
		c.logger.Debug("embedclient: cache hit for %q", key)
		return decodeVector(raw), nil
	}

	vecs, err := c.inner.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("embedclient: embedder returned no vectors")
	}
	c.cache.Set(ctx, key, encodeVector(vecs[0]), c.ttl)
	return vecs[0], nil
}

// Embed embeds a batch of up to 500 texts, filling cache misses from
// the underlying embedder and writing the results back through the
// cache. Cached and uncached texts may be interleaved in the input; the
// returned slice preserves input order.
func (c *CachingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) > 500 {
		return nil, fmt.Errorf("embedclient: batch size %d exceeds limit of 500", len(texts))
	}

	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	for i, t := range texts {
		key := cacheKey(c.modelID, t)
		if raw, hit := c.cache.Get(ctx, key); hit {
			out[i] = decodeVector(raw)
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}

	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := c.inner.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missTexts) {
		return nil, fmt.Errorf("embedclient: embedder returned %d vectors for %d texts", len(vecs), len(missTexts))
	}

	for j, idx := range missIdx {
		out[idx] = vecs[j]
		c.cache.Set(ctx, cacheKey(c.modelID, texts[idx]), encodeVector(vecs[j]), c.ttl)
	}
	return out, nil
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v
}
