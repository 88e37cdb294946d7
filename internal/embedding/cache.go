package embedding

import (
	"context"
	"time"

	"turnindex/pkg/cache"
)

// CachedEncoder wraps an Encoder with a content-keyed LRU cache, so repeated
// enrichment of identical turn content (common across retries and re-scans)
// does not re-pay the encode cost. Grounded on the teacher's embeddings
// cache, generalized to wrap any Encoder rather than one specific provider.
type CachedEncoder struct {
	inner Encoder
	cache *cache.LRU[string, []float32]
}

// NewCachedEncoder wraps inner with an LRU cache of the given size and a
// 24-hour TTL (embeddings for a given text never change, but the cache still
// ages out entries to bound memory on long-running processes).
func NewCachedEncoder(inner Encoder, size int) *CachedEncoder {
	return &CachedEncoder{
		inner: inner,
		cache: cache.New[string, []float32](&cache.Config{
			MaxEntries: size,
			TTL:        24 * time.Hour,
		}),
	}
}

func (c *CachedEncoder) Dimension() int { return c.inner.Dimension() }
func (c *CachedEncoder) Model() string  { return c.inner.Model() }

// Encode implements Encoder, consulting the cache before delegating.
func (c *CachedEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	key := c.cacheKey(text)
	if v, ok := c.cache.Get(key); ok {
		return v, nil
	}

	v, err := c.inner.Encode(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, v)
	return v, nil
}

// EncodeBatch implements Encoder, encoding only the cache misses.
func (c *CachedEncoder) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	for i, t := range texts {
		key := c.cacheKey(t)
		if v, ok := c.cache.Get(key); ok {
			out[i] = v
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}

	if len(missTexts) == 0 {
		return out, nil
	}

	missed, err := c.inner.EncodeBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, idx := range missIdx {
		out[idx] = missed[j]
		c.cache.Set(c.cacheKey(texts[idx]), missed[j])
	}
	return out, nil
}

// cacheKey uses the raw text as the key. Callers that already have a content
// hash (internal/types.Turn.ContentHash) may prefer to precompute it, but
// the cache itself only needs a stable, collision-resistant key and the LRU
// map handles string keys directly.
func (c *CachedEncoder) cacheKey(text string) string {
	return text
}
