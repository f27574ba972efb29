package embedding

import (
	"container/list"
	"sync"

	"github.com/hyperjump/anveshak/internal/models"
)

// EmbeddingCache is an LRU cache of tile embeddings keyed by the full tile coordinate.
type EmbeddingCache struct {
	capacity int
	cache    map[models.TileCoordinate]*list.Element
	lru      *list.List
	// Get reorders the list, so reads take the write lock too.
	mu sync.Mutex
}

type cacheEntry struct {
	key   models.TileCoordinate
	value []float32
}

// NewEmbeddingCache creates a new cache with the given capacity. A capacity below 1 is treated as 1.
func NewEmbeddingCache(capacity int) *EmbeddingCache {
	if capacity < 1 {
		capacity = 1
	}
	return &EmbeddingCache{
		capacity: capacity,
		cache:    make(map[models.TileCoordinate]*list.Element),
		lru:      list.New(),
	}
}

// CapacityForBudget returns how many vectors of dim float32s fit in budgetBytes.
func CapacityForBudget(budgetBytes int64, dim int) int {
	if dim <= 0 || budgetBytes <= 0 {
		return 1
	}
	// vector payload plus map/list bookkeeping per entry
	per := int64(dim)*4 + 160
	n := budgetBytes / per
	if n < 1 {
		return 1
	}
	return int(n)
}

// Get returns the cached embedding for key if present.
func (c *EmbeddingCache) Get(key models.TileCoordinate) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		return elem.Value.(*cacheEntry).value, true
	}
	return nil, false
}

// Set stores the embedding for key, evicting the oldest entry if at capacity.
func (c *EmbeddingCache) Set(key models.TileCoordinate, value []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*cacheEntry).value = value
		return
	}

	entry := &cacheEntry{key: key, value: value}
	elem := c.lru.PushFront(entry)
	c.cache[key] = elem

	if c.lru.Len() > c.capacity {
		oldest := c.lru.Back()
		if oldest != nil {
			c.lru.Remove(oldest)
			delete(c.cache, oldest.Value.(*cacheEntry).key)
		}
	}
}

// InvalidateIndex drops every entry belonging to key and returns how many were removed.
func (c *EmbeddingCache) InvalidateIndex(key models.IndexKey) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for coord, elem := range c.cache {
		if coord.Key() == key {
			c.lru.Remove(elem)
			delete(c.cache, coord)
			n++
		}
	}
	return n
}

// Len returns the number of cached entries.
func (c *EmbeddingCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Capacity returns the maximum number of entries.
func (c *EmbeddingCache) Capacity() int {
	return c.capacity
}
