package classifier

import (
	"container/list"
	"strings"
	"sync"
)

// Cache stores classification results keyed by the normalized request text,
// evicting the oldest entry (FIFO, not LRU) once at capacity.
type Cache struct {
	mu      sync.Mutex
	maxSize int
	order   *list.List
	entries map[string]*list.Element
}

type cacheItem struct {
	key   string
	value Result
}

// NewCache creates a cache holding at most maxSize entries.
func NewCache(maxSize int) *Cache {
	if maxSize <= 0 {
		maxSize = 100
	}
	return &Cache{
		maxSize: maxSize,
		order:   list.New(),
		entries: make(map[string]*list.Element),
	}
}

// Get returns the cached result for request, if present.
func (c *Cache) Get(request string) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[normalizeKey(request)]
	if !ok {
		return Result{}, false
	}
	return el.Value.(*cacheItem).value, true
}

// Put stores a result, evicting the oldest entry if at capacity.
func (c *Cache) Put(request string, result Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := normalizeKey(request)
	if el, ok := c.entries[key]; ok {
		el.Value.(*cacheItem).value = result
		return
	}

	if len(c.entries) >= c.maxSize {
		oldest := c.order.Front()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheItem).key)
		}
	}

	el := c.order.PushBack(&cacheItem{key: key, value: result})
	c.entries[key] = el
}

func normalizeKey(request string) string {
	return strings.TrimSpace(strings.ToLower(request))
}
