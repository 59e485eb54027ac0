package cache

import (
	"container/list"
	"github.com/ValentinKolb/dDocs/lib/remote"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"sync"
	"time"
)

var Logger = logger.GetLogger("cache")

// DefaultCapacity is used when the cache is created with a capacity <= 0
const DefaultCapacity = 1000

// Entry is the cached state of one physical path
type Entry struct {
	Doc      remote.Document
	Token    remote.VersionToken
	CachedAt time.Time
}

// Stats is a point in time summary of the cache
type Stats struct {
	Size      int    `json:"size"`
	Capacity  int    `json:"capacity"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
}

type element struct {
	path  string
	entry Entry
}

// Cache is a bounded map from physical path to Entry.
// When a new path is inserted at capacity the oldest inserted path is evicted.
// Updating a path keeps its insertion position and never evicts.
// Reads do not change the order. All methods are safe for concurrent use.
type Cache struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*list.Element
	order    *list.List // front = oldest insertion

	hits      *metrics.Counter
	misses    *metrics.Counter
	evictions *metrics.Counter
}

// New creates a cache holding at most capacity entries. The counters are registered
// in set, a nil set registers them in a private one.
func New(capacity int, set *metrics.Set) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if set == nil {
		set = metrics.NewSet()
	}
	return &Cache{
		capacity:  capacity,
		items:     make(map[string]*list.Element),
		order:     list.New(),
		hits:      set.GetOrCreateCounter("ddocs_cache_hits_total"),
		misses:    set.GetOrCreateCounter("ddocs_cache_misses_total"),
		evictions: set.GetOrCreateCounter("ddocs_cache_evictions_total"),
	}
}

// Get returns the entry of path
func (c *Cache) Get(path string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[path]
	if !ok {
		c.misses.Inc()
		return Entry{}, false
	}
	c.hits.Inc()
	return el.Value.(*element).entry, true
}

// Token returns the cached version token of path without counting a hit or miss
func (c *Cache) Token(path string) (remote.VersionToken, bool) {
	e, ok := c.Peek(path)
	return e.Token, ok
}

// Peek returns the entry of path without counting a hit or miss
func (c *Cache) Peek(path string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[path]
	if !ok {
		return Entry{}, false
	}
	return el.Value.(*element).entry, true
}

// Put inserts or updates the entry of path
func (c *Cache) Put(path string, entry Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.put(path, entry)
}

// PutIfStale stores entry only if path is not cached or was cached before since.
// It returns the entry that is cached afterwards and whether entry was stored.
// Fetches that started at since use it so they never replace a newer local write.
func (c *Cache) PutIfStale(path string, entry Entry, since time.Time) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[path]; ok {
		current := el.Value.(*element).entry
		if !current.CachedAt.Before(since) {
			return current, false
		}
	}
	c.put(path, entry)
	return entry, true
}

// put inserts or updates path, the caller must hold the lock
func (c *Cache) put(path string, entry Entry) {
	if el, ok := c.items[path]; ok {
		el.Value.(*element).entry = entry
		return
	}

	if len(c.items) >= c.capacity {
		oldest := c.order.Front()
		if oldest != nil {
			evicted := c.order.Remove(oldest).(*element)
			delete(c.items, evicted.path)
			c.evictions.Inc()
			Logger.Debugf("Evicted %s", evicted.path)
		}
	}

	c.items[path] = c.order.PushBack(&element{path: path, entry: entry})
}

// Invalidate removes path from the cache and reports whether it was present
func (c *Cache) Invalidate(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[path]
	if !ok {
		return false
	}
	c.order.Remove(el)
	delete(c.items, path)
	return true
}

// InvalidateIfStale removes path only if it was cached before since
func (c *Cache) InvalidateIfStale(path string, since time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[path]
	if !ok || !el.Value.(*element).entry.CachedAt.Before(since) {
		return false
	}
	c.order.Remove(el)
	delete(c.items, path)
	return true
}

// Clear removes all entries
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.order.Init()
}

// Len returns the number of cached entries
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Capacity returns the maximum number of entries
func (c *Cache) Capacity() int {
	return c.capacity
}

// Keys returns all cached paths, oldest insertion first
func (c *Cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.items))
	for el := c.order.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*element).path)
	}
	return keys
}

// Stats returns the current size and the hit, miss and eviction counters
func (c *Cache) Stats() Stats {
	return Stats{
		Size:      c.Len(),
		Capacity:  c.capacity,
		Hits:      c.hits.Get(),
		Misses:    c.misses.Get(),
		Evictions: c.evictions.Get(),
	}
}
