package extract

import (
	"context"
	"crypto/sha256"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of distinct contents a Cache remembers.
const DefaultCacheSize = 4096

type cacheEntry struct {
	decls []Declaration
	err   error
}

// Cache memoizes another Extractor by content hash, so rebuilding after a
// change only re-parses the files whose bytes changed. It is safe for
// concurrent use.
type Cache struct {
	inner   Extractor
	entries *lru.Cache[[sha256.Size]byte, cacheEntry]
}

// NewCache wraps inner with an LRU of the given size. A size <= 0 uses
// DefaultCacheSize.
func NewCache(inner Extractor, size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	entries, err := lru.New[[sha256.Size]byte, cacheEntry](size)
	if err != nil {
		return nil, fmt.Errorf("creating extract cache: %w", err)
	}
	return &Cache{inner: inner, entries: entries}, nil
}

// Name returns the wrapped strategy's name.
func (c *Cache) Name() string { return c.inner.Name() }

// Extract returns the cached result for content, extracting on a miss.
// Cancellation errors are never cached.
func (c *Cache) Extract(ctx context.Context, content []byte) ([]Declaration, error) {
	key := sha256.Sum256(content)
	if e, ok := c.entries.Get(key); ok {
		return e.decls, e.err
	}
	decls, err := c.inner.Extract(ctx, content)
	if ctx.Err() != nil {
		return decls, err
	}
	c.entries.Add(key, cacheEntry{decls: decls, err: err})
	return decls, err
}

// Len returns the number of cached contents.
func (c *Cache) Len() int {
	return c.entries.Len()
}
