package descriptors

import (
	"sync/atomic"

	"github.com/chazu/descriptors/heap"
	"github.com/chazu/descriptors/property"
)

// NoFastIndex marks an enumerable key whose value cannot be loaded straight
// from an object field.
const NoFastIndex = -1

// enumPair is immutable; a cache changes by swapping in a whole new pair.
type enumPair struct {
	keys    []heap.Value
	indices []int
}

// EnumCache caches the enumerable keys of a table in enumeration order,
// with a field index per key where one exists. It is advisory: nothing
// keeps it in step with the table, and derivations start from the empty
// cache.
type EnumCache struct {
	self heap.Value
	pair atomic.Pointer[enumPair]
}

func (rt *Runtime) newEnumCache(keys []heap.Value, indices []int) *EnumCache {
	c := &EnumCache{}
	c.pair.Store(&enumPair{keys: keys, indices: indices})
	c.self = rt.heap.Allocate(c, enumCacheSize(len(keys)))
	return c
}

func enumCacheSize(n int) int {
	return 2*TaggedSize + 2*n*TaggedSize
}

func (c *EnumCache) Kind() string { return "EnumCache" }

func (c *EnumCache) Trace(m *heap.Marker) {
	for _, k := range c.pair.Load().keys {
		m.MarkValue(k)
	}
}

// Ref returns the heap reference to c.
func (c *EnumCache) Ref() heap.Value { return c.self }

// Keys returns the cached keys. The slice must not be modified.
func (c *EnumCache) Keys() []heap.Value { return c.pair.Load().keys }

// Indices returns the field index of each key, or NoFastIndex. It may be
// empty when no indices were computed.
func (c *EnumCache) Indices() []int { return c.pair.Load().indices }

// Len returns the number of cached keys.
func (c *EnumCache) Len() int { return len(c.pair.Load().keys) }

// EnumCache returns the table's enumeration cache.
func (a *DescriptorArray) EnumCache() *EnumCache {
	c, ok := a.rt.heap.Resolve(heap.Value(a.words[enumCacheWord].Load())).(*EnumCache)
	if !ok {
		return a.rt.emptyEnumCache
	}
	return c
}

func (a *DescriptorArray) setEnumCache(c *EnumCache) {
	dcheck(a != a.rt.emptyArray || c == a.rt.emptyEnumCache,
		"DescriptorArray.setEnumCache: the empty array is immutable")
	a.words[enumCacheWord].Store(uint64(c.self))
	a.rt.heap.RecordWrite(a.self, enumCacheWord, c.self)
}

// ClearEnumCache resets the table to the shared empty cache.
func (a *DescriptorArray) ClearEnumCache() {
	a.setEnumCache(a.rt.emptyEnumCache)
}

// CopyEnumCacheFrom makes a share other's cache. Later changes to that cache
// are seen by both tables.
func (a *DescriptorArray) CopyEnumCacheFrom(other *DescriptorArray) {
	a.setEnumCache(other.EnumCache())
}

// InitializeOrChangeEnumCache installs keys and indices on a. A table still
// using the empty cache gets a cache of its own; otherwise the existing
// cache's contents are replaced, which every table sharing it observes.
func (rt *Runtime) InitializeOrChangeEnumCache(a *DescriptorArray, keys []heap.Value, indices []int) {
	dcheck(len(indices) == 0 || len(indices) == len(keys),
		"DescriptorArray.InitializeOrChangeEnumCache: %d keys but %d indices", len(keys), len(indices))
	keys = append([]heap.Value(nil), keys...)
	indices = append([]int(nil), indices...)

	current := a.EnumCache()
	if current == rt.emptyEnumCache {
		s := rt.heap.OpenScope()
		defer s.Close()
		a.setEnumCache(rt.newEnumCache(keys, indices))
		return
	}
	current.pair.Store(&enumPair{keys: keys, indices: indices})
	rt.heap.RecordRescan(current.self)
}

// BuildEnumCache computes the enumerable string keys among the first own
// records in enumeration order and installs them on a. Data field records
// get their field index, everything else NoFastIndex.
func (rt *Runtime) BuildEnumCache(a *DescriptorArray, own int) *EnumCache {
	dcheck(own >= 0 && own <= a.NumberOfDescriptors(),
		"DescriptorArray.BuildEnumCache: %d own records in a table of %d", own, a.NumberOfDescriptors())
	var keys []heap.Value
	var indices []int
	for i := 0; i < own; i++ {
		d := a.GetDetails(i)
		if !d.IsEnumerable() {
			continue
		}
		key := a.GetKey(i)
		if name := rt.heap.NameOf(key); name == nil || name.IsSymbol() {
			continue
		}
		keys = append(keys, key)
		if d.IsField() && d.Kind() == property.KindData {
			indices = append(indices, d.FieldIndex())
		} else {
			indices = append(indices, NoFastIndex)
		}
	}
	rt.InitializeOrChangeEnumCache(a, keys, indices)
	return a.EnumCache()
}
