package artifact

import (
	"context"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/vango-dev/squid/pkg/routetree"
)

// DefaultCacheSize is the module cache size when none is configured.
const DefaultCacheSize = 256

// CachedLoader keeps recently loaded modules in memory.
//
// Entries are keyed by output path and only answer for the leaf they were
// loaded for, so a published tree never sees modules cached for the one it
// replaced. Purge frees them early.
type CachedLoader struct {
	next  routetree.Loader
	cache *lru.Cache[string, *routetree.Module]

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewCachedLoader wraps next with an LRU cache of size entries.
func NewCachedLoader(next routetree.Loader, size int) (*CachedLoader, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, *routetree.Module](size)
	if err != nil {
		return nil, err
	}
	return &CachedLoader{next: next, cache: cache}, nil
}

// Load implements routetree.Loader.
func (c *CachedLoader) Load(ctx context.Context, leaf *routetree.Leaf) (*routetree.Module, error) {
	if mod, ok := c.cache.Get(leaf.OutputPath); ok && mod.Leaf == leaf {
		c.hits.Add(1)
		return mod, nil
	}
	c.misses.Add(1)

	mod, err := c.next.Load(ctx, leaf)
	if err != nil {
		return nil, err
	}
	c.cache.Add(leaf.OutputPath, mod)
	return mod, nil
}

// Purge drops every cached module.
func (c *CachedLoader) Purge() {
	c.cache.Purge()
}

// Len returns the number of cached modules.
func (c *CachedLoader) Len() int {
	return c.cache.Len()
}

// Stats returns the hit and miss counts.
func (c *CachedLoader) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}
