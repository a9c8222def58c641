package filter

import (
	"sync"
	"sync/atomic"

	"filegate/internal/models"
)

// Cached rule views per storage source. The names mirror the three read
// paths: the full list, the inaccessible subset and the disable-download
// subset.
const (
	viewBase            = "base"
	viewInaccessible    = "inaccessible"
	viewDisableDownload = "disable-download"
)

type cacheKey struct {
	storageID uint
	view      string
}

// ruleCache is a thread-safe cache-aside map. Invalidation is whole-source:
// any rule set change drops all three views for that source.
type ruleCache struct {
	mu      sync.RWMutex
	entries map[cacheKey][]models.FilterRule

	hits   atomic.Uint64
	misses atomic.Uint64
}

func newRuleCache() *ruleCache {
	return &ruleCache{entries: make(map[cacheKey][]models.FilterRule)}
}

func (c *ruleCache) get(storageID uint, view string) ([]models.FilterRule, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rules, ok := c.entries[cacheKey{storageID, view}]
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return rules, ok
}

func (c *ruleCache) put(storageID uint, view string, rules []models.FilterRule) {
	stored := make([]models.FilterRule, len(rules))
	copy(stored, rules)
	c.mu.Lock()
	c.entries[cacheKey{storageID, view}] = stored
	c.mu.Unlock()
}

func (c *ruleCache) invalidate(storageID uint) {
	c.mu.Lock()
	delete(c.entries, cacheKey{storageID, viewBase})
	delete(c.entries, cacheKey{storageID, viewInaccessible})
	delete(c.entries, cacheKey{storageID, viewDisableDownload})
	c.mu.Unlock()
}

func (c *ruleCache) stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}
