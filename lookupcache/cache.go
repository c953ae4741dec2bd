// Package lookupcache is the process-wide descriptor lookup cache.
//
// It maps a (table, name) pair to the record index a search produced, so a
// repeated miss of the inline caches for the same shape does not repeat the
// search. It is direct-mapped: each pair hashes to exactly one entry and a
// colliding update simply overwrites it.
//
// Entries are keyed by reference identity. A derived table is a new
// reference, so the cache never needs explicit invalidation by the table;
// it must however be cleared whenever the heap may reuse handles (after every
// collection).
package lookupcache

import (
	"fmt"
	"sync"

	"github.com/chazu/descriptors/heap"
)

// DefaultSize is the number of entries when none is configured.
const DefaultSize = 64

type entry struct {
	table  heap.Value
	name   heap.Value
	result int
	valid  bool
}

// Cache is safe for concurrent use; in practice only the mutator updates it
// and the collector clears it.
type Cache struct {
	mu      sync.Mutex
	entries []entry
	mask    uint32

	// Statistics for profiling
	hits   uint64
	misses uint64
}

// New creates a cache with size entries. size must be a power of two.
func New(size int) (*Cache, error) {
	if size <= 0 || size&(size-1) != 0 {
		return nil, fmt.Errorf("lookup cache size %d is not a positive power of two", size)
	}
	return &Cache{
		entries: make([]entry, size),
		mask:    uint32(size - 1),
	}, nil
}

func (c *Cache) index(table heap.Value, nameHash uint32) uint32 {
	// Handles are dense small integers; spread them before mixing.
	return (table.Handle()*2654435761 ^ nameHash) & c.mask
}

// Lookup returns the cached result for (table, name). ok is false on a miss.
// nameHash must be the name's hash; it only selects the entry.
func (c *Cache) Lookup(table, name heap.Value, nameHash uint32) (result int, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := &c.entries[c.index(table, nameHash)]
	if e.valid && e.table == table && e.name == name {
		c.hits++
		return e.result, true
	}
	c.misses++
	return 0, false
}

// Update records the record index a search found for (table, name).
func (c *Cache) Update(table, name heap.Value, nameHash uint32, result int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[c.index(table, nameHash)] = entry{
		table:  table,
		name:   name,
		result: result,
		valid:  true,
	}
}

// Clear invalidates every entry. Statistics are kept.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.entries {
		c.entries[i] = entry{}
	}
}

// Size returns the number of entries.
func (c *Cache) Size() int {
	return len(c.entries)
}

// Stats returns hit and miss counts since creation.
func (c *Cache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// HitRate returns the hit rate as a percentage (0-100).
func (c *Cache) HitRate() float64 {
	hits, misses := c.Stats()
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) * 100 / float64(total)
}
