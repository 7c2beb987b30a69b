package tts

import (
	"context"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is how many synthesized utterances are kept.
const DefaultCacheSize = 64

// Cache wraps a Provider with an LRU of synthesized audio keyed by text.
// A trivia host repeats plenty of stock phrasing between rounds; cached
// utterances skip the backend entirely.
type Cache struct {
	provider Provider
	cache    *lru.Cache[string, *AudioResult]
	logger   *slog.Logger
}

// NewCache wraps provider with an LRU of the given size.
// A size of zero or less uses DefaultCacheSize.
func NewCache(provider Provider, size int, logger *slog.Logger) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	c, err := lru.New[string, *AudioResult](size)
	if err != nil {
		return nil, err
	}
	return &Cache{
		provider: provider,
		cache:    c,
		logger:   logger.With("component", "tts.cache"),
	}, nil
}

// Synthesize returns the cached audio for text, or synthesizes and caches it.
// Failed synthesis is never cached.
func (c *Cache) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	if result, ok := c.cache.Get(text); ok {
		c.logger.Debug("cache hit", "chars", len(text))
		return result, nil
	}

	result, err := c.provider.Synthesize(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(text, result)
	return result, nil
}

// Health delegates to the wrapped provider.
func (c *Cache) Health(ctx context.Context) error {
	return c.provider.Health(ctx)
}

// Close purges the cache and closes the wrapped provider.
func (c *Cache) Close() error {
	c.cache.Purge()
	return c.provider.Close()
}

// Len returns the number of cached utterances.
func (c *Cache) Len() int {
	return c.cache.Len()
}

// Verify Cache implements Provider at compile time.
var _ Provider = (*Cache)(nil)
