package descriptors

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"

	"github.com/chazu/descriptors/heap"
	"github.com/chazu/descriptors/property"
)

// DescriptorArray is a descriptor table. Its body is a run of tagged words
// laid out as documented in layout.go; every word always holds a
// well-formed Value so the collector may scan the whole capacity at any
// time.
//
// A single mutator builds and derives tables. The collector reads the body
// concurrently and owns the marked count in the header.
type DescriptorArray struct {
	rt    *Runtime
	self  heap.Value
	words []atomic.Uint64
}

// newDescriptorArray allocates and initializes a table of capacity
// count+slack with count active records.
func (rt *Runtime) newDescriptorArray(count, slack int) *DescriptorArray {
	capacity := count + slack
	if capacity > property.MaxNumberOfDescriptors {
		panic(fmt.Sprintf("DescriptorArray.Allocate: capacity %d exceeds %d",
			capacity, property.MaxNumberOfDescriptors))
	}
	a := &DescriptorArray{
		rt:    rt,
		words: make([]atomic.Uint64, headerWords+capacity*EntrySize),
	}
	enumCache := heap.Undefined
	if rt.emptyEnumCache != nil {
		enumCache = rt.emptyEnumCache.self
	}
	a.Initialize(enumCache, count, slack)
	a.self = rt.heap.Allocate(a, SizeFor(capacity))

	if w := rt.cfg.Descriptors.WarnCapacity; w > 0 && capacity >= w {
		rt.log.Noticef("allocated descriptor array with capacity %d (warn threshold %d)", capacity, w)
	}
	return a
}

// Allocate returns a table with count active records and slack unused
// ones. All records hold placeholders until set. A request for no records
// at all returns the shared empty table. The table is unrooted; while a
// Collector runs, allocate inside an open scope and root the table before
// closing it.
func (rt *Runtime) Allocate(count, slack int) *DescriptorArray {
	if count < 0 || slack < 0 {
		panic(fmt.Sprintf("DescriptorArray.Allocate: negative size (%d, %d)", count, slack))
	}
	if count+slack == 0 {
		return rt.emptyArray
	}
	return rt.newDescriptorArray(count, slack)
}

// Initialize fills every record with a placeholder, installs enumCache and
// finally sets the header. The header goes last so a scan never sees an
// active record that still holds garbage.
func (a *DescriptorArray) Initialize(enumCache heap.Value, count, slack int) {
	capacity := count + slack
	dcheck(headerWords+capacity*EntrySize == len(a.words),
		"DescriptorArray.Initialize: capacity %d does not match storage", capacity)

	key := uint64(a.rt.heap.EmptyString())
	details := uint64(heap.FromSmallInt(property.Empty.ToSmallInt()))
	value := uint64(FieldTypeAny)
	for i := 0; i < capacity; i++ {
		a.words[wordOf(ToKeyIndex(i))].Store(key)
		a.words[wordOf(ToDetailsIndex(i))].Store(details)
		a.words[wordOf(ToValueIndex(i))].Store(value)
	}
	a.words[enumCacheWord].Store(uint64(enumCache))
	a.words[headerWord].Store(uint64(capacity) | uint64(count)<<16)
	if a.self != 0 {
		a.rt.heap.RecordWrite(a.self, enumCacheWord, enumCache)
	}
}

// Kind implements heap.Object.
func (a *DescriptorArray) Kind() string { return "DescriptorArray" }

// Ref returns the heap reference to a.
func (a *DescriptorArray) Ref() heap.Value { return a.self }

// ---------------------------------------------------------------------------
// Header
// ---------------------------------------------------------------------------

func (a *DescriptorArray) header16(offset int) int {
	return int(uint16(a.words[headerWord].Load() >> (offset * 8)))
}

// setHeader16 updates one 16-bit header field. The header word is shared
// between mutator and collector, so every update is a compare-and-swap.
func (a *DescriptorArray) setHeader16(offset, v int) {
	shift := uint(offset * 8)
	w := &a.words[headerWord]
	for {
		old := w.Load()
		updated := old&^(uint64(0xFFFF)<<shift) | uint64(uint16(v))<<shift
		if w.CompareAndSwap(old, updated) {
			return
		}
	}
}

// NumberOfAllDescriptors is the capacity, including slack.
func (a *DescriptorArray) NumberOfAllDescriptors() int {
	return a.header16(NumberOfAllDescriptorsOffset)
}

// NumberOfDescriptors is the active count.
func (a *DescriptorArray) NumberOfDescriptors() int {
	return a.header16(NumberOfDescriptorsOffset)
}

// NumberOfSlackDescriptors is the number of unused records.
func (a *DescriptorArray) NumberOfSlackDescriptors() int {
	return a.NumberOfAllDescriptors() - a.NumberOfDescriptors()
}

// NumberOfEntries is the number of records taking part in search.
func (a *DescriptorArray) NumberOfEntries() int { return a.NumberOfDescriptors() }

func (a *DescriptorArray) setNumberOfDescriptors(n int) {
	dcheck(n <= a.NumberOfAllDescriptors(),
		"DescriptorArray: active count %d exceeds capacity %d", n, a.NumberOfAllDescriptors())
	a.setHeader16(NumberOfDescriptorsOffset, n)
}

// NumberOfMarkedDescriptors is the collector's progress through the
// current marking pass. Only the collector writes it.
func (a *DescriptorArray) NumberOfMarkedDescriptors() int {
	return a.header16(NumberOfMarkedDescriptorsOffset)
}

// SetNumberOfMarkedDescriptors is called by the collector.
func (a *DescriptorArray) SetNumberOfMarkedDescriptors(n int) {
	a.setHeader16(NumberOfMarkedDescriptorsOffset, n)
}

// ---------------------------------------------------------------------------
// Records
// ---------------------------------------------------------------------------

func (a *DescriptorArray) load(element int) heap.Value {
	return heap.Value(a.words[wordOf(element)].Load())
}

func (a *DescriptorArray) store(element int, v heap.Value) {
	a.words[wordOf(element)].Store(uint64(v))
	a.rt.heap.RecordWrite(a.self, wordOf(element), v)
}

func (a *DescriptorArray) checkIndex(method string, i int) {
	dcheck(i >= 0 && i < a.NumberOfAllDescriptors(),
		"DescriptorArray.%s: index %d out of range [0, %d)", method, i, a.NumberOfAllDescriptors())
}

// GetKey returns the key of record i.
func (a *DescriptorArray) GetKey(i int) heap.Value {
	a.checkIndex("GetKey", i)
	return a.load(ToKeyIndex(i))
}

// GetDetails returns the details of record i.
func (a *DescriptorArray) GetDetails(i int) property.Details {
	a.checkIndex("GetDetails", i)
	return property.FromSmallInt(a.load(ToDetailsIndex(i)).SmallInt())
}

// GetValue returns the raw value slot of record i, which may be a weak
// reference or a cleared slot for typed field records.
func (a *DescriptorArray) GetValue(i int) heap.Value {
	a.checkIndex("GetValue", i)
	return a.load(ToValueIndex(i))
}

// GetStrongValue returns the value of a constant or accessor record.
func (a *DescriptorArray) GetStrongValue(i int) heap.Value {
	v := a.GetValue(i)
	dcheck(!v.IsWeak() && !v.IsCleared(), "DescriptorArray.GetStrongValue: record %d holds a weak value", i)
	return v
}

// GetFieldIndex returns the in-object field index of a field record.
func (a *DescriptorArray) GetFieldIndex(i int) int {
	d := a.GetDetails(i)
	dcheck(d.IsField(), "DescriptorArray.GetFieldIndex: record %d is not a field", i)
	return d.FieldIndex()
}

// GetFieldType returns the type constraint of a field record. A class whose
// shape was collected reads as Any.
func (a *DescriptorArray) GetFieldType(i int) FieldType {
	dcheck(a.GetDetails(i).IsField(), "DescriptorArray.GetFieldType: record %d is not a field", i)
	t := UnwrapFieldType(a.GetValue(i))
	if t.IsClass() && !a.rt.heap.IsAlive(t.Class()) {
		return FieldTypeAny
	}
	return t
}

// GetDescriptor returns record i as a Descriptor.
func (a *DescriptorArray) GetDescriptor(i int) Descriptor {
	return Descriptor{Key: a.GetKey(i), Value: a.GetValue(i), Details: a.GetDetails(i)}
}

// SetValue overwrites the value slot of record i.
func (a *DescriptorArray) SetValue(i int, v heap.Value) {
	a.checkIndex("SetValue", i)
	a.store(ToValueIndex(i), v)
}

func (a *DescriptorArray) setDetails(i int, d property.Details) {
	a.words[wordOf(ToDetailsIndex(i))].Store(uint64(heap.FromSmallInt(d.ToSmallInt())))
}

// Set overwrites all three slots of record i.
func (a *DescriptorArray) Set(i int, key, value heap.Value, details property.Details) {
	a.checkIndex("Set", i)
	dcheck(a != a.rt.emptyArray, "DescriptorArray.Set: the empty array is immutable")
	a.store(ToKeyIndex(i), key)
	a.setDetails(i, details)
	a.store(ToValueIndex(i), value)
}

// SetDescriptor is Set taking a Descriptor.
func (a *DescriptorArray) SetDescriptor(i int, d Descriptor) {
	a.Set(i, d.Key, d.Value, d.Details)
}

// copyFrom copies record i of src verbatim into record i of a.
func (a *DescriptorArray) copyFrom(i int, src *DescriptorArray) {
	a.SetDescriptor(i, src.GetDescriptor(i))
}

// IsPlaceholder reports whether record i still holds the initialization
// placeholder. Any index below the capacity may be asked.
func (a *DescriptorArray) IsPlaceholder(i int) bool {
	a.checkIndex("IsPlaceholder", i)
	return a.load(ToKeyIndex(i)) == a.rt.heap.EmptyString() &&
		a.load(ToDetailsIndex(i)) == heap.FromSmallInt(property.Empty.ToSmallInt()) &&
		a.load(ToValueIndex(i)) == heap.Value(FieldTypeAny)
}

// ---------------------------------------------------------------------------
// Hash order
// ---------------------------------------------------------------------------

// GetSortedKeyIndex returns the physical index of the i-th record in hash
// order.
func (a *DescriptorArray) GetSortedKeyIndex(i int) int {
	return a.GetDetails(i).Pointer()
}

// GetSortedKey returns the key of the i-th record in hash order.
func (a *DescriptorArray) GetSortedKey(i int) heap.Value {
	return a.GetKey(a.GetSortedKeyIndex(i))
}

// SetSortedKey makes physical record idx the i-th in hash order.
func (a *DescriptorArray) SetSortedKey(i, idx int) {
	a.setDetails(i, a.GetDetails(i).WithPointer(idx))
}

// ---------------------------------------------------------------------------
// Append
// ---------------------------------------------------------------------------

// Append adds desc as the next record. It is part of a build sequence: the
// key must not already be present, and the table must not yet be shared.
//
// The record is written completely, and threaded into the hash order,
// before the active count is raised to publish it.
func (a *DescriptorArray) Append(desc Descriptor) {
	n := a.NumberOfDescriptors()
	dcheck(n < a.NumberOfAllDescriptors(), "DescriptorArray.Append: no slack left (capacity %d)", n)

	a.Set(n, desc.Key, desc.Value, desc.Details.WithEnumerationIndex(n).WithPointer(n))

	hash := a.rt.hashOf(desc.Key)
	insertion := n
	for ; insertion > 0; insertion-- {
		if a.rt.hashOf(a.GetSortedKey(insertion-1)) <= hash {
			break
		}
		a.SetSortedKey(insertion, a.GetSortedKeyIndex(insertion-1))
	}
	a.SetSortedKey(insertion, n)

	a.setNumberOfDescriptors(n + 1)
	a.rt.heap.RecordRescan(a.self)
}

// ---------------------------------------------------------------------------
// In-place updates
// ---------------------------------------------------------------------------

// Replace overwrites the details and value of record i. The key must be the
// one already there; the record keeps its place in both orderings. The
// caller must own every view of the table that could observe the change.
func (a *DescriptorArray) Replace(i int, desc Descriptor) {
	old := a.GetDetails(i)
	dcheck(a.GetKey(i) == desc.Key, "DescriptorArray.Replace: key of record %d changed", i)
	d := desc.Details.WithPointer(old.Pointer()).WithEnumerationIndex(old.EnumerationIndex())
	a.Set(i, desc.Key, desc.Value, d)
}

// GeneralizeAllFields widens every record to the tagged representation.
// Field records additionally lose const-ness and their type constraint.
func (a *DescriptorArray) GeneralizeAllFields() {
	for i := 0; i < a.NumberOfDescriptors(); i++ {
		d := a.GetDetails(i).CopyWithRepresentation(property.RepresentationTagged)
		if d.IsField() {
			dcheck(d.Kind() == property.KindData, "DescriptorArray.GeneralizeAllFields: accessor field at %d", i)
			d = d.CopyWithConstness(property.Mutable)
			a.SetValue(i, WrapFieldType(FieldTypeAny))
		}
		a.setDetails(i, d)
	}
}

// ---------------------------------------------------------------------------
// Collector interface
// ---------------------------------------------------------------------------

// VisitDescriptors reports records [from, to) to the collector. Keys and
// strong values are marked; weak field types are recorded so they can be
// cleared if their shape dies.
func (a *DescriptorArray) VisitDescriptors(m *heap.Marker, from, to int) {
	for i := from; i < to; i++ {
		m.MarkValue(a.load(ToKeyIndex(i)))
		v := a.load(ToValueIndex(i))
		if v.IsWeak() {
			m.RecordWeakSlot(wordOf(ToValueIndex(i)), v)
			continue
		}
		m.MarkValue(v)
	}
}

// Trace marks the enumeration cache. Records are visited incrementally.
func (a *DescriptorArray) Trace(m *heap.Marker) {
	m.MarkValue(heap.Value(a.words[enumCacheWord].Load()))
}

// ClearWeakSlot implements heap.WeakHolder.
func (a *DescriptorArray) ClearWeakSlot(slot int, expected heap.Value) bool {
	if slot < headerWords || slot >= len(a.words) {
		return false
	}
	return a.words[slot].CompareAndSwap(uint64(expected), uint64(heap.Cleared))
}

// VisitAllSlots calls fn for every element of the body, slack included,
// in physical order.
func (a *DescriptorArray) VisitAllSlots(fn func(element int, v heap.Value)) {
	for w := headerWords; w < len(a.words); w++ {
		fn(w-headerWords, heap.Value(a.words[w].Load()))
	}
}

// RawBytes returns the little-endian byte image of the table, header
// included, as fixed-offset readers see it.
func (a *DescriptorArray) RawBytes() []byte {
	out := make([]byte, len(a.words)*TaggedSize)
	for i := range a.words {
		binary.LittleEndian.PutUint64(out[i*TaggedSize:], a.words[i].Load())
	}
	return out
}
