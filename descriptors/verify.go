package descriptors

import (
	"fmt"

	"github.com/chazu/descriptors/heap"
	"github.com/chazu/descriptors/property"
)

// IsSortedNoDuplicates reports whether the hash order is a permutation of
// the active records with non-decreasing hashes and no repeated key.
func (a *DescriptorArray) IsSortedNoDuplicates() bool {
	return a.checkSorted() == nil
}

func (a *DescriptorArray) checkSorted() error {
	n := a.NumberOfDescriptors()
	seenIndex := make([]bool, n)
	seenKey := make(map[heap.Value]int, n)
	var previous uint32
	for i := 0; i < n; i++ {
		idx := a.GetSortedKeyIndex(i)
		if idx < 0 || idx >= n || seenIndex[idx] {
			return fmt.Errorf("hash order position %d names record %d twice or out of range", i, idx)
		}
		seenIndex[idx] = true

		key := a.GetKey(idx)
		if j, dup := seenKey[key]; dup {
			return fmt.Errorf("records %d and %d share key %s", j, idx, a.rt.KeyString(key))
		}
		seenKey[key] = idx

		hash := a.rt.hashOf(key)
		if i > 0 && hash < previous {
			return fmt.Errorf("hash order position %d (%s) hashes below its predecessor", i, a.rt.KeyString(key))
		}
		previous = hash
	}
	return nil
}

// Verify checks every structural invariant of a built (sorted) table and
// returns the first violation. It is meant for tests and diagnostics.
func (a *DescriptorArray) Verify() error {
	capacity := a.NumberOfAllDescriptors()
	n := a.NumberOfDescriptors()
	if n > capacity {
		return fmt.Errorf("active count %d exceeds capacity %d", n, capacity)
	}
	if capacity > property.MaxNumberOfDescriptors {
		return fmt.Errorf("capacity %d exceeds %d", capacity, property.MaxNumberOfDescriptors)
	}
	if len(a.words) != headerWords+capacity*EntrySize {
		return fmt.Errorf("storage holds %d words for capacity %d", len(a.words), capacity)
	}

	var bad error
	a.VisitAllSlots(func(element int, v heap.Value) {
		if bad == nil && !v.IsWellFormed() {
			bad = fmt.Errorf("element %d holds malformed value %#x", element, uint64(v))
		}
	})
	if bad != nil {
		return bad
	}

	for i := 0; i < n; i++ {
		if a.rt.heap.NameOf(a.GetKey(i)) == nil {
			return fmt.Errorf("record %d key is not a live name", i)
		}
		d := a.GetDetails(i)
		if d.Kind() == property.KindAccessor && d.IsField() {
			return fmt.Errorf("record %d is an accessor stored in a field", i)
		}
		if !d.IsField() {
			if v := a.GetValue(i); v.IsWeak() || v.IsCleared() {
				return fmt.Errorf("record %d holds a weak value outside a field", i)
			}
		}
	}
	for i := n; i < capacity; i++ {
		if !a.IsPlaceholder(i) {
			return fmt.Errorf("slack record %d is not a placeholder", i)
		}
	}
	if err := a.checkSorted(); err != nil {
		return err
	}
	return nil
}
