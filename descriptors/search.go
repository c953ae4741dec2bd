package descriptors

import (
	"cmp"
	"slices"

	"github.com/chazu/descriptors/heap"
)

// maxElementsForLinearSearch is the largest valid prefix searched linearly.
// Linear search does not depend on the hash order.
const maxElementsForLinearSearch = 8

// Sort builds the hash order over the active records: stable by key hash,
// ties broken by key identity. Physical order, and with it enumeration
// order, does not change.
func (a *DescriptorArray) Sort() {
	n := a.NumberOfDescriptors()
	if n == 0 {
		return
	}
	hashes := make([]uint32, n)
	keys := make([]heap.Value, n)
	order := make([]int, n)
	for i := range n {
		keys[i] = a.GetKey(i)
		hashes[i] = a.rt.hashOf(keys[i])
		order[i] = i
	}
	slices.SortStableFunc(order, func(x, y int) int {
		if c := cmp.Compare(hashes[x], hashes[y]); c != 0 {
			return c
		}
		return cmp.Compare(keys[x].Handle(), keys[y].Handle())
	})
	for i, idx := range order {
		a.SetSortedKey(i, idx)
	}
	dcheck(a.IsSortedNoDuplicates(), "DescriptorArray.Sort: result not sorted or has duplicates")
}

// Search returns the index of the record keyed by name among the first
// limit records, or NotFound.
func (a *DescriptorArray) Search(name heap.Value, limit int) int {
	dcheck(limit >= 0 && limit <= a.NumberOfDescriptors(),
		"DescriptorArray.Search: limit %d outside [0, %d]", limit, a.NumberOfDescriptors())
	if limit == 0 {
		return NotFound
	}
	if limit <= maxElementsForLinearSearch {
		return a.linearSearch(name, limit)
	}
	return a.binarySearch(name, limit)
}

func (a *DescriptorArray) linearSearch(name heap.Value, limit int) int {
	for i := 0; i < limit; i++ {
		if a.GetKey(i) == name {
			return i
		}
	}
	return NotFound
}

// binarySearch finds the first entry in hash order whose hash is not below
// the name's, then walks the run of equal hashes comparing identity. Keys
// past limit may sit anywhere in hash order, so matches are filtered by
// physical index.
func (a *DescriptorArray) binarySearch(name heap.Value, limit int) int {
	hash := a.rt.hashOf(name)
	low, high := 0, a.NumberOfEntries()-1
	last := high
	for low != high {
		mid := low + (high-low)/2
		if a.rt.hashOf(a.GetSortedKey(mid)) >= hash {
			high = mid
		} else {
			low = mid + 1
		}
	}
	for ; low <= last; low++ {
		idx := a.GetSortedKeyIndex(low)
		key := a.GetKey(idx)
		if a.rt.hashOf(key) != hash {
			return NotFound
		}
		if key == name {
			if idx < limit {
				return idx
			}
			return NotFound
		}
	}
	return NotFound
}

// SearchWithCache is Search backed by the runtime's lookup cache, keyed by
// (table, name). Only hits are cached: a table under construction may
// still gain the name later. A cached index past limit is not found.
func (a *DescriptorArray) SearchWithCache(name heap.Value, limit int) int {
	dcheck(limit >= 0 && limit <= a.NumberOfDescriptors(),
		"DescriptorArray.SearchWithCache: limit %d outside [0, %d]", limit, a.NumberOfDescriptors())
	if limit == 0 {
		return NotFound
	}
	hash := a.rt.hashOf(name)
	idx, ok := a.rt.cache.Lookup(a.self, name, hash)
	if !ok {
		idx = a.Search(name, a.NumberOfDescriptors())
		if idx == NotFound {
			return NotFound
		}
		a.rt.cache.Update(a.self, name, hash, idx)
	}
	if idx >= limit {
		return NotFound
	}
	return idx
}
