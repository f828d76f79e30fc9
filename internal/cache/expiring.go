package cache

import (
	"sync"
	"sync/atomic"
	"time"
)

// Entry is a snapshot of one Expiring entry.
type Entry[K comparable, V any] struct {
	Key        K
	Value      V
	InsertedAt time.Time
	Hits       int
}

// Expiring is a thread-safe cache whose entries expire ttl after they
// were inserted. When it holds more than maxEntries, the oldest-inserted
// entries are evicted; reads do not change the eviction order.
//
// Expired entries are pruned on every Set and dropped lazily by Get.
type Expiring[K comparable, V any] struct {
	mu         sync.Mutex
	entries    map[K]*expiringEntry[K, V]
	order      *lruList[K] // insertion order, newest at the front
	maxEntries int
	ttl        time.Duration
	now        func() time.Time

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
	expired   atomic.Uint64
}

type expiringEntry[K comparable, V any] struct {
	Entry[K, V]
	node *lruNode[K]
}

// NewExpiring creates an expiring cache. A maxEntries or ttl of 0 means
// unlimited. now may be nil to use time.Now.
func NewExpiring[K comparable, V any](maxEntries int, ttl time.Duration, now func() time.Time) *Expiring[K, V] {
	if now == nil {
		now = time.Now
	}
	return &Expiring[K, V]{
		entries:    make(map[K]*expiringEntry[K, V]),
		order:      newLRUList[K](),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        now,
	}
}

// Get returns a live entry's value and counts the hit on the entry.
func (c *Expiring[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if ok && c.expiredLocked(e, c.now()) {
		c.removeLocked(e)
		c.expired.Add(1)
		ok = false
	}
	if !ok {
		c.misses.Add(1)
		var zero V
		return zero, false
	}
	e.Hits++
	c.hits.Add(1)
	return e.Value, true
}

// Peek returns a snapshot of the entry for key without counting a hit.
func (c *Expiring[K, V]) Peek(key K) (Entry[K, V], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || c.expiredLocked(e, c.now()) {
		return Entry[K, V]{}, false
	}
	return e.Entry, true
}

// Set inserts or replaces the value for key. A replaced entry counts as
// newly inserted.
func (c *Expiring[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.pruneLocked(now)
	if e, ok := c.entries[key]; ok {
		c.removeLocked(e)
	}
	c.entries[key] = &expiringEntry[K, V]{
		Entry: Entry[K, V]{Key: key, Value: value, InsertedAt: now},
		node:  c.order.PushFront(key),
	}
	for c.maxEntries > 0 && len(c.entries) > c.maxEntries {
		oldest, _ := c.order.Oldest()
		c.removeLocked(c.entries[oldest])
		c.evictions.Add(1)
	}
}

// Prune drops every expired entry and returns how many were dropped.
func (c *Expiring[K, V]) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pruneLocked(c.now())
}

// pruneLocked walks from the oldest entry; insertion order is expiry order.
func (c *Expiring[K, V]) pruneLocked(now time.Time) int {
	n := 0
	for {
		key, ok := c.order.Oldest()
		if !ok {
			return n
		}
		e := c.entries[key]
		if !c.expiredLocked(e, now) {
			return n
		}
		c.removeLocked(e)
		c.expired.Add(1)
		n++
	}
}

func (c *Expiring[K, V]) expiredLocked(e *expiringEntry[K, V], now time.Time) bool {
	return c.ttl > 0 && now.Sub(e.InsertedAt) >= c.ttl
}

func (c *Expiring[K, V]) removeLocked(e *expiringEntry[K, V]) {
	c.order.Remove(e.node)
	delete(c.entries, e.Key)
}

// Delete removes an entry. Returns true if it was present.
func (c *Expiring[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if ok {
		c.removeLocked(e)
	}
	return ok
}

// Clear removes all entries.
func (c *Expiring[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[K]*expiringEntry[K, V])
	c.order.Clear()
}

// Len returns the number of entries, expired ones not yet pruned included.
func (c *Expiring[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Expired returns how many entries were dropped because their TTL passed.
func (c *Expiring[K, V]) Expired() uint64 {
	return c.expired.Load()
}

// Stats returns cache statistics. Evictions counts size evictions only.
func (c *Expiring[K, V]) Stats() Stats {
	return newStats(c.Len(), c.maxEntries, c.maxEntries, c.hits.Load(), c.misses.Load(), c.evictions.Load())
}
