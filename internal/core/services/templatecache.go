package services

import (
	"container/list"
	"sync"
)

// Compiled-template cache bounds.
const (
	defaultCacheEntries = 100
	defaultCacheCost    = 5 << 20
)

// cacheEntry is one cached template body. Cost is the body length, used
// as the eviction weight.
type cacheEntry struct {
	key  string
	body string
	cost int
}

// templateCache is a bounded LRU cache of resolved template bodies.
// It carries no authority: losing an entry only costs recomputation.
type templateCache struct {
	mu         sync.Mutex
	maxEntries int
	maxCost    int
	cost       int
	order      *list.List
	items      map[string]*list.Element
}

func newTemplateCache(maxEntries, maxCost int) *templateCache {
	return &templateCache{
		maxEntries: maxEntries,
		maxCost:    maxCost,
		order:      list.New(),
		items:      make(map[string]*list.Element),
	}
}

// Get returns the cached body for key and marks it most recently used.
func (c *templateCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return "", false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*cacheEntry).body, true
}

// Put stores a body under key, evicting least recently used entries while
// either bound is exceeded.
func (c *templateCache) Put(key, body string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		entry := elem.Value.(*cacheEntry)
		c.cost += len(body) - entry.cost
		entry.body = body
		entry.cost = len(body)
		c.order.MoveToFront(elem)
	} else {
		entry := &cacheEntry{key: key, body: body, cost: len(body)}
		c.items[key] = c.order.PushFront(entry)
		c.cost += entry.cost
	}

	for (c.order.Len() > c.maxEntries || c.cost > c.maxCost) && c.order.Len() > 1 {
		c.evictOldest()
	}
}

// Purge empties the cache.
func (c *templateCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.items = make(map[string]*list.Element)
	c.cost = 0
}

// Len returns the number of cached entries.
func (c *templateCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *templateCache) evictOldest() {
	elem := c.order.Back()
	if elem == nil {
		return
	}
	entry := elem.Value.(*cacheEntry)
	c.order.Remove(elem)
	delete(c.items, entry.key)
	c.cost -= entry.cost
}
