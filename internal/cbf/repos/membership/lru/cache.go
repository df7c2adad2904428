package lru

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/haukened/cbf/internal/cbf/domain"
	"github.com/haukened/cbf/internal/cbf/repos/membership"
)

// decisionCache is an LRU-backed implementation of membership.DecisionCache.
// It tracks hits, misses, and evictions.
type decisionCache struct {
	lru       *lru.Cache[string, domain.Decision]
	capacity  int
	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// disabledCache is a no-op DecisionCache used when size <= 0.
type disabledCache struct{}

// New creates a DecisionCache holding at most size decisions. If size <= 0, a
// disabled cache is returned that always misses.
func New(size int) (membership.DecisionCache, error) {
	if size <= 0 {
		return disabledCache{}, nil
	}

	dc := &decisionCache{capacity: size}
	// evictions include Purge and Remove callbacks
	cache, err := lru.NewWithEvict(size, func(string, domain.Decision) {
		dc.evictions.Add(1)
	})
	if err != nil {
		return nil, err
	}
	dc.lru = cache
	return dc, nil
}

func (c *decisionCache) Get(item string) (domain.Decision, bool) {
	if d, ok := c.lru.Get(item); ok {
		c.hits.Add(1)
		return d, true
	}
	c.misses.Add(1)
	return domain.Decision{}, false
}

func (c *decisionCache) Put(item string, d domain.Decision) { c.lru.Add(item, d) }

// Invalidate drops any cached decision for item.
func (c *decisionCache) Invalidate(item string) { c.lru.Remove(item) }

func (c *decisionCache) Len() int { return c.lru.Len() }

func (c *decisionCache) Purge() { c.lru.Purge() }

func (c *decisionCache) Stats() membership.CacheStats {
	return membership.CacheStats{
		Capacity:  c.capacity,
		Size:      c.lru.Len(),
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}

func (disabledCache) Get(string) (domain.Decision, bool) { return domain.Decision{}, false }
func (disabledCache) Put(string, domain.Decision)        {}
func (disabledCache) Invalidate(string)                  {}
func (disabledCache) Len() int                           { return 0 }
func (disabledCache) Purge()                             {}
func (disabledCache) Stats() membership.CacheStats       { return membership.CacheStats{} }

var _ membership.DecisionCache = (*decisionCache)(nil)
var _ membership.DecisionCache = disabledCache{}
