package embed

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"canoncheck/internal/cache"
)

// Cached wraps an Embedder with a byte cache. Texts already embedded
// under the same model are served from the cache; only misses reach
// the backend, batched together in input order.
type Cached struct {
	inner Embedder
	cache cache.Cache
}

// NewCached wraps inner with c.
func NewCached(inner Embedder, c cache.Cache) *Cached {
	return &Cached{inner: inner, cache: c}
}

// Model returns the wrapped embedder's model name.
func (c *Cached) Model() string { return c.inner.Model() }

// Embed returns one vector per text, serving hits from the cache and
// embedding only the misses.
func (c *Cached) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	var missTexts []string
	var missPos []int

	for i, text := range texts {
		key := cache.EmbedKey(c.inner.Model(), text)
		if data, found := c.cache.Get(key); found {
			v, err := decodeVector(data)
			if err == nil {
				vectors[i] = v
				continue
			}
			// A corrupt entry is just a miss; it gets re-embedded
			// and overwritten below.
			_ = c.cache.Delete(key)
		}
		missTexts = append(missTexts, text)
		missPos = append(missPos, i)
	}

	if len(missTexts) > 0 {
		fresh, err := c.inner.Embed(ctx, missTexts)
		if err != nil {
			return nil, err
		}
		if len(fresh) != len(missTexts) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(fresh), len(missTexts))
		}
		for j, v := range fresh {
			pos := missPos[j]
			vectors[pos] = v
			key := cache.EmbedKey(c.inner.Model(), texts[pos])
			_ = c.cache.Set(key, encodeVector(v), 0)
		}
	}

	return vectors, nil
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(data []byte) ([]float32, error) {
	if len(data) == 0 || len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid vector encoding: %d bytes", len(data))
	}
	v := make([]float32, len(data)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return v, nil
}
