package rotation

import (
	"sync"
	"time"
)

// contextKey identifies one (issuer, quarter window) computation.
type contextKey struct {
	issuer string
	start  time.Time
	end    time.Time
}

// Cache memoizes dump contexts per (issuer, start, end). It is an
// explicit dependency of the context builder, not module state, so test
// runs and tenants can hold isolated caches. Entries live until Clear;
// there is no eviction. Concurrent callers racing on the same key may
// each build once; the second write wins, which only costs a redundant
// read, never correctness.
type Cache struct {
	mu      sync.RWMutex
	entries map[contextKey]*DumpContext
}

// NewCache creates an empty context cache.
func NewCache() *Cache {
	return &Cache{
		entries: make(map[contextKey]*DumpContext),
	}
}

func (c *Cache) get(k contextKey) (*DumpContext, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	dc, ok := c.entries[k]
	return dc, ok
}

func (c *Cache) put(k contextKey, dc *DumpContext) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[k] = dc
}

// Clear drops every entry. Used for test isolation and when the
// underlying data source is swapped, not for steady-state eviction.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[contextKey]*DumpContext)
}

// Len returns the number of cached contexts.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}
