package cache

import (
	"context"
	"sync"

	"github.com/lessonvox/lessonvox/internal/speech"
	"github.com/lessonvox/lessonvox/internal/voice"
	"golang.org/x/sync/singleflight"
)

// SynthesisCache memoizes a speech.Renderer for one compilation.
type SynthesisCache struct {
	renderer speech.Renderer

	// mu guards items and stats. It is never held while rendering.
	mu    sync.Mutex
	items map[Key][]byte
	stats Stats

	group singleflight.Group
}

// NewSynthesisCache creates an empty cache over renderer.
func NewSynthesisCache(renderer speech.Renderer) *SynthesisCache {
	return &SynthesisCache{
		renderer: renderer,
		items:    make(map[Key][]byte),
	}
}

// Resolve returns the rendering of text with voice v, rendering it on the
// first request. Concurrent callers for the same key wait for one render.
// A failed render is reported to every waiting caller and is retried by the
// next Resolve.
func (c *SynthesisCache) Resolve(ctx context.Context, v voice.Key, text string) ([]byte, error) {
	key := Key{Voice: v, Text: text}

	if data, ok := c.lookup(key); ok {
		return data, nil
	}

	result, err, _ := c.group.Do(key.String(), func() (interface{}, error) {
		// A flight for this key may have completed since lookup.
		c.mu.Lock()
		if data, ok := c.items[key]; ok {
			c.mu.Unlock()
			return data, nil
		}
		c.stats.Renders++
		c.mu.Unlock()

		data, err := c.renderer.Render(ctx, text, v)

		c.mu.Lock()
		defer c.mu.Unlock()
		if err != nil {
			c.stats.Failures++
			return nil, err
		}
		c.items[key] = data
		c.stats.Entries = len(c.items)
		c.stats.Bytes += int64(len(data))
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

// lookup checks the cache and records a hit or miss.
func (c *SynthesisCache) lookup(key Key) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, ok := c.items[key]
	if ok {
		c.stats.Hits++
	} else {
		c.stats.Misses++
	}
	return data, ok
}

// Contains reports whether key has been rendered successfully.
func (c *SynthesisCache) Contains(v voice.Key, text string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.items[Key{Voice: v, Text: text}]
	return ok
}

// Len returns the number of cached renders.
func (c *SynthesisCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.items)
}

// Stats returns cache statistics.
func (c *SynthesisCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.stats
}
