// Package cache implements the short-TTL search result cache. Entries are
// keyed by the full set of search parameters so distinct requests never
// collide, expire lazily on read, and are bounded by an LRU cap so a high
// cardinality of query strings cannot grow memory without limit.
package cache

import (
	"container/list"
	"fmt"
	"sync"
	"time"

	"github.com/davrd/semsearch/internal/search"
)

const (
	// DefaultTTL is the entry lifetime when none is configured.
	DefaultTTL = 300 * time.Second

	// DefaultMaxEntries is the LRU capacity when none is configured.
	DefaultMaxEntries = 1024
)

// entry is one cached result list with its expiry deadline.
type entry struct {
	key       string
	matches   []search.Match
	expiresAt time.Time
}

// Cache is a TTL + LRU cache of search results. Safe for concurrent use.
// Expired entries are dropped on access; the LRU cap bounds total size, so
// no background sweeper is needed.
type Cache struct {
	// mu protects entries and order.
	mu sync.Mutex
	// entries maps cache key to its element in order.
	entries map[string]*list.Element
	// order is the LRU list; front is most recently used.
	order *list.List
	// ttl is the entry lifetime.
	ttl time.Duration
	// maxEntries is the LRU capacity.
	maxEntries int
	// now is the clock, replaceable in tests.
	now func() time.Time
}

// New constructs a Cache with the given TTL and LRU capacity.
// Non-positive values select the defaults (300s, 1024 entries).
func New(ttl time.Duration, maxEntries int) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Cache{
		entries:    make(map[string]*list.Element),
		order:      list.New(),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Key derives the deterministic cache key for a search request. Fields are
// length-prefixed so no two parameter combinations can produce the same key
// (e.g. ("ab","c") vs ("a","bc")).
func Key(query, userID string, topK int) string {
	return fmt.Sprintf("%d:%s|%d:%s|%d", len(query), query, len(userID), userID, topK)
}

// Get returns the cached matches for key, or false when absent or expired.
// Expired entries are removed on the spot.
func (c *Cache) Get(key string) ([]search.Match, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	e := el.Value.(*entry)
	if c.now().After(e.expiresAt) {
		c.order.Remove(el)
		delete(c.entries, key)
		return nil, false
	}

	c.order.MoveToFront(el)
	// Copy so callers cannot mutate the cached slice.
	out := make([]search.Match, len(e.matches))
	copy(out, e.matches)
	return out, true
}

// Put stores matches under key with the configured TTL, evicting the least
// recently used entry when the cache is full. Storing under an existing key
// replaces the entry and restarts its TTL.
func (c *Cache) Put(key string, matches []search.Match) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored := make([]search.Match, len(matches))
	copy(stored, matches)

	if el, ok := c.entries[key]; ok {
		e := el.Value.(*entry)
		e.matches = stored
		e.expiresAt = c.now().Add(c.ttl)
		c.order.MoveToFront(el)
		return
	}

	el := c.order.PushFront(&entry{
		key:       key,
		matches:   stored,
		expiresAt: c.now().Add(c.ttl),
	})
	c.entries[key] = el

	if c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*entry).key)
		}
	}
}

// Invalidate removes the entry for key if present.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.order.Remove(el)
		delete(c.entries, key)
	}
}

// Len returns the number of live entries, counting not-yet-collected
// expired ones.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
