// Package sigcache implements the per-address TTL cache of paginated
// signature lists (C2 Signature Cache): a mutex-guarded map whose entries
// expire after a TTL.
package sigcache

import (
	"sync"
	"time"
)

// Signature is an opaque transaction identifier with its slot and block time.
type Signature struct {
	Signature string
	Slot      uint64
	BlockTime *time.Time
}

type entry struct {
	signatures []Signature
	fetchedAt  time.Time
}

// Cache is a mutex-guarded, TTL-expiring map from address to signature list.
type Cache struct {
	ttl time.Duration

	mu      sync.RWMutex
	entries map[string]entry
}

func New(ttl time.Duration) *Cache {
	return &Cache{ttl: ttl, entries: make(map[string]entry)}
}

// Get returns the cached list iff it is younger than the TTL and has at
// least minSize entries. Otherwise it is a miss and the stale entry (if
// any) is evicted.
func (c *Cache) Get(address string, minSize int) ([]Signature, bool) {
	c.mu.RLock()
	e, ok := c.entries[address]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Since(e.fetchedAt) >= c.ttl || len(e.signatures) < minSize {
		c.mu.Lock()
		if cur, ok := c.entries[address]; ok && cur.fetchedAt.Equal(e.fetchedAt) {
			delete(c.entries, address)
		}
		c.mu.Unlock()
		return nil, false
	}
	out := make([]Signature, len(e.signatures))
	copy(out, e.signatures)
	return out, true
}

// Put replaces the entry for address unconditionally (last-writer-wins).
func (c *Cache) Put(address string, signatures []Signature) {
	snapshot := make([]Signature, len(signatures))
	copy(snapshot, signatures)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[address] = entry{signatures: snapshot, fetchedAt: time.Now()}
}

// Len reports the number of cached addresses, for diagnostics/tests.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
