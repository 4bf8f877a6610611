package common

import (
	"container/list"
	"sync"
	"time"
)

// BoundedLRUCache is a thread-safe bounded LRU cache. Entries optionally
// expire after ttl; a zero ttl keeps them until evicted.
type BoundedLRUCache[K comparable, V any] struct {
	mu      sync.Mutex
	cache   map[K]*list.Element
	lru     *list.List
	maxSize int
	ttl     time.Duration
	now     func() time.Time
	onEvict func(K, V)
}

type lruEntry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time
}

func NewBoundedLRUCache[K comparable, V any](maxSize int, ttl time.Duration) *BoundedLRUCache[K, V] {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &BoundedLRUCache[K, V]{
		cache:   make(map[K]*list.Element, maxSize),
		lru:     list.New(),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// OnEvict registers a callback for entries dropped by capacity or expiry.
// It runs with the cache lock held and must not call back into the cache.
func (c *BoundedLRUCache[K, V]) OnEvict(fn func(K, V)) {
	c.mu.Lock()
	c.onEvict = fn
	c.mu.Unlock()
}

// Get retrieves a live value and moves it to the front.
func (c *BoundedLRUCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.lookup(key)
	if !ok {
		var zero V
		return zero, false
	}
	c.lru.MoveToFront(elem)
	return elem.Value.(*lruEntry[K, V]).value, true
}

// Take retrieves and removes a live value, so at most one caller gets it.
func (c *BoundedLRUCache[K, V]) Take(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.lookup(key)
	if !ok {
		var zero V
		return zero, false
	}
	entry := elem.Value.(*lruEntry[K, V])
	c.lru.Remove(elem)
	delete(c.cache, key)
	return entry.value, true
}

// Set adds or replaces a value and restarts its ttl.
func (c *BoundedLRUCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := time.Time{}
	if c.ttl > 0 {
		expiresAt = c.now().Add(c.ttl)
	}

	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		entry := elem.Value.(*lruEntry[K, V])
		entry.value = value
		entry.expiresAt = expiresAt
		return
	}

	for len(c.cache) >= c.maxSize {
		c.evictLRU()
	}

	elem := c.lru.PushFront(&lruEntry[K, V]{key: key, value: value, expiresAt: expiresAt})
	c.cache[key] = elem
}

func (c *BoundedLRUCache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.cache[key]; ok {
		c.lru.Remove(elem)
		delete(c.cache, key)
	}
}

// PurgeExpired drops every expired entry and returns how many were removed.
func (c *BoundedLRUCache[K, V]) PurgeExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	now := c.now()
	for elem := c.lru.Back(); elem != nil; {
		prev := elem.Prev()
		if c.expired(elem.Value.(*lruEntry[K, V]), now) {
			c.remove(elem)
			removed++
		}
		elem = prev
	}
	return removed
}

// Size returns the number of entries, expired ones included until purged.
func (c *BoundedLRUCache[K, V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cache)
}

// lookup must be called with mu held.
func (c *BoundedLRUCache[K, V]) lookup(key K) (*list.Element, bool) {
	elem, ok := c.cache[key]
	if !ok {
		return nil, false
	}
	if c.expired(elem.Value.(*lruEntry[K, V]), c.now()) {
		c.remove(elem)
		return nil, false
	}
	return elem, true
}

func (c *BoundedLRUCache[K, V]) expired(e *lruEntry[K, V], now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// evictLRU removes the least recently used entry. Must be called with mu held.
func (c *BoundedLRUCache[K, V]) evictLRU() {
	if back := c.lru.Back(); back != nil {
		c.remove(back)
	}
}

func (c *BoundedLRUCache[K, V]) remove(elem *list.Element) {
	entry := elem.Value.(*lruEntry[K, V])
	c.lru.Remove(elem)
	delete(c.cache, entry.key)
	if c.onEvict != nil {
		c.onEvict(entry.key, entry.value)
	}
}
