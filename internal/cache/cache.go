// Package cache keeps the estimates read from the data service between
// views. An entry is either absent or the last value the service returned.
package cache

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/standardbeagle/estimator/pkg/estimate"
)

// DefaultSize bounds the per-estimate entries.
const DefaultSize = 256

// Generation identifies the cache contents a fetch started from. A fetch may
// only store its result while the generation is unchanged, so data read
// before a mutation never lands after that mutation's invalidation.
type Generation uint64

// Cache is safe for concurrent use.
type Cache struct {
	mu           sync.RWMutex
	list         []estimate.Estimate
	listValid    bool
	entries      *lru.Cache[string, estimate.Estimate]
	generation   Generation
	onInvalidate func(estimateID string)
}

// Option configures a Cache.
type Option func(*Cache)

// WithInvalidationHook runs fn after every invalidation. estimateID is empty
// when everything was dropped.
func WithInvalidationHook(fn func(estimateID string)) Option {
	return func(c *Cache) { c.onInvalidate = fn }
}

func New(size int, opts ...Option) (*Cache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	entries, err := lru.New[string, estimate.Estimate](size)
	if err != nil {
		return nil, err
	}
	c := &Cache{entries: entries}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Generation returns the current generation. Read it before fetching.
func (c *Cache) Generation() Generation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

// Estimates returns the cached list.
func (c *Cache) Estimates() ([]estimate.Estimate, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.listValid {
		return nil, false
	}
	return cloneList(c.list), true
}

// Estimate returns one cached estimate.
func (c *Cache) Estimate(id string) (estimate.Estimate, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries.Get(id)
	if !ok {
		return estimate.Estimate{}, false
	}
	return e.Clone(), true
}

// StoreEstimates caches a full list fetched at gen. It reports false and
// stores nothing when an invalidation happened since gen.
func (c *Cache) StoreEstimates(gen Generation, list []estimate.Estimate) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return false
	}
	c.list = cloneList(list)
	c.listValid = true
	c.entries.Purge()
	for _, e := range list {
		c.entries.Add(e.ID, e.Clone())
	}
	return true
}

// StoreEstimate caches a single estimate fetched at gen.
func (c *Cache) StoreEstimate(gen Generation, e estimate.Estimate) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return false
	}
	c.entries.Add(e.ID, e.Clone())
	return true
}

// Invalidate drops an estimate and the list that contains it. It returns
// after the entries are gone.
func (c *Cache) Invalidate(estimateID string) {
	c.mu.Lock()
	c.entries.Remove(estimateID)
	c.list = nil
	c.listValid = false
	c.generation++
	hook := c.onInvalidate
	c.mu.Unlock()

	if hook != nil {
		hook(estimateID)
	}
}

// InvalidateAll drops everything.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	c.entries.Purge()
	c.list = nil
	c.listValid = false
	c.generation++
	hook := c.onInvalidate
	c.mu.Unlock()

	if hook != nil {
		hook("")
	}
}

// Len returns the number of cached estimates.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries.Len()
}

func cloneList(list []estimate.Estimate) []estimate.Estimate {
	out := make([]estimate.Estimate, len(list))
	for i, e := range list {
		out[i] = e.Clone()
	}
	return out
}
