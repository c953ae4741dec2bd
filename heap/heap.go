package heap

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/tliron/commonlog"
)

// Object is anything that can live in the heap's object table.
type Object interface {
	// Kind names the object type in dumps and log lines.
	Kind() string
}

// Tracer is implemented by objects holding references the collector must
// follow. Trace is called with the heap lock held and must only read the
// object's own fields and report them to the marker.
type Tracer interface {
	Trace(m *Marker)
}

// IncrementalTracer is implemented by objects whose body is a run of records
// scanned across several marking steps. The collector visits records
// [NumberOfMarkedDescriptors, NumberOfDescriptors) and then advances the
// marked count; the object itself never writes that count.
type IncrementalTracer interface {
	NumberOfDescriptors() int
	NumberOfMarkedDescriptors() int
	SetNumberOfMarkedDescriptors(n int)
	VisitDescriptors(m *Marker, from, to int)
}

// WeakHolder is implemented by objects that can hold weak references. The
// collector calls ClearWeakSlot for each recorded slot whose target died;
// the holder must only clear the slot if it still contains expected.
type WeakHolder interface {
	ClearWeakSlot(slot int, expected Value) bool
}

type entry struct {
	obj      Object
	gen      uint16
	size     int64
	marked   bool
	immortal bool
	seq      uint64 // allocation sequence number, for scope pinning
}

// Options configures a Heap.
type Options struct {
	// LimitBytes caps live bytes; exceeding it is fatal. Zero means unlimited.
	LimitBytes int64

	// StepBudget is the number of objects traced per incremental step.
	StepBudget int

	// Logger receives collection summaries. Defaults to "descriptors.heap".
	Logger commonlog.Logger
}

// DefaultStepBudget is used when Options.StepBudget is zero.
const DefaultStepBudget = 64

// Heap is a handle-indexed object table with an incremental mark/sweep
// collector. References are Values carrying a handle and a generation, so a
// reference to a reclaimed object can always be detected as dead.
type Heap struct {
	mu sync.RWMutex

	entries   []entry
	free      []uint32
	roots     map[uint32]int
	scopes    map[*Scope]struct{}
	allocSeq  uint64
	liveBytes int64
	limit     int64

	names       map[string]Value
	symbolSeq   uint64
	emptyString Value

	marking    atomic.Bool
	worklist   []uint32
	weakSlots  []weakSlot
	stepBudget int
	hooks      []func()

	collections atomic.Uint64
	log         commonlog.Logger
}

// New creates an empty heap. The shared empty string is allocated immediately
// and is immortal.
func New(opts Options) *Heap {
	if opts.StepBudget <= 0 {
		opts.StepBudget = DefaultStepBudget
	}
	if opts.Logger == nil {
		opts.Logger = commonlog.GetLogger("descriptors.heap")
	}
	h := &Heap{
		// handle 0 is never issued
		entries:    make([]entry, 1, 256),
		roots:      make(map[uint32]int),
		scopes:     make(map[*Scope]struct{}),
		limit:      opts.LimitBytes,
		names:      make(map[string]Value),
		stepBudget: opts.StepBudget,
		log:        opts.Logger,
	}
	h.emptyString = h.Intern("")
	return h
}

// ---------------------------------------------------------------------------
// Allocation
// ---------------------------------------------------------------------------

// Allocate places obj in the object table and returns a strong reference to
// it. size is the object's accounted byte size. Objects allocated while
// marking is in progress are greyed so anything they already reference
// survives the cycle. The object is unrooted: unless a Scope opened before
// the allocation is still open, the next completed cycle may reclaim it.
//
// Exceeding the configured limit is fatal.
func (h *Heap) Allocate(obj Object, size int) Value {
	if obj == nil {
		panic("Heap.Allocate: nil object")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.allocateLocked(obj, size)
}

// allocateLocked is Allocate for callers already holding mu.
func (h *Heap) allocateLocked(obj Object, size int) Value {
	if h.limit > 0 && h.liveBytes+int64(size) > h.limit {
		panic(fmt.Sprintf("Heap.Allocate: out of memory (%d bytes requested, %d live, limit %d)",
			size, h.liveBytes, h.limit))
	}

	var handle uint32
	if n := len(h.free); n > 0 {
		handle = h.free[n-1]
		h.free = h.free[:n-1]
	} else {
		handle = uint32(len(h.entries))
		h.entries = append(h.entries, entry{})
	}
	e := &h.entries[handle]
	e.obj = obj
	e.size = int64(size)
	e.immortal = false
	e.marked = false
	h.allocSeq++
	e.seq = h.allocSeq
	h.liveBytes += int64(size)

	if h.marking.Load() {
		e.marked = true
		h.worklist = append(h.worklist, handle)
	}
	return makeRef(tagRef, handle, e.gen)
}

// MakeImmortal excludes the referenced object from collection for the life
// of the heap. Used for shared singletons.
func (h *Heap) MakeImmortal(v Value) {
	h.mu.Lock()
	defer h.mu.Unlock()
	e := h.entryFor(v)
	if e == nil {
		panic("Heap.MakeImmortal: dead reference")
	}
	e.immortal = true
}

// ---------------------------------------------------------------------------
// Resolution
// ---------------------------------------------------------------------------

// entryFor returns the live entry for a reference, or nil. Caller holds mu.
func (h *Heap) entryFor(v Value) *entry {
	if !v.IsReference() {
		return nil
	}
	handle := v.Handle()
	if handle == 0 || int(handle) >= len(h.entries) {
		return nil
	}
	e := &h.entries[handle]
	if e.obj == nil || e.gen != v.generation() {
		return nil
	}
	return e
}

// Resolve returns the object behind a strong or weak reference, or nil if
// v is not a reference, was cleared, or points at a reclaimed object.
func (h *Heap) Resolve(v Value) Object {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if e := h.entryFor(v); e != nil {
		return e.obj
	}
	return nil
}

// IsAlive reports whether v references a live object.
func (h *Heap) IsAlive(v Value) bool {
	return h.Resolve(v) != nil
}

// ---------------------------------------------------------------------------
// Roots
// ---------------------------------------------------------------------------

// AddRoot keeps the referenced object alive until a matching RemoveRoot.
// Roots are reference counted.
func (h *Heap) AddRoot(v Value) {
	h.mu.Lock()
	defer h.mu.Unlock()
	e := h.entryFor(v)
	if e == nil {
		panic("Heap.AddRoot: dead reference")
	}
	handle := v.Handle()
	h.roots[handle]++
	if h.marking.Load() {
		h.greyLocked(handle)
	}
}

// RemoveRoot drops one root count for v.
func (h *Heap) RemoveRoot(v Value) {
	if !v.IsReference() {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	handle := v.Handle()
	if n := h.roots[handle]; n > 1 {
		h.roots[handle] = n - 1
	} else {
		delete(h.roots, handle)
	}
}

// ---------------------------------------------------------------------------
// Statistics
// ---------------------------------------------------------------------------

// LiveBytes returns the accounted size of all live objects.
func (h *Heap) LiveBytes() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.liveBytes
}

// LiveObjects returns the number of occupied handles.
func (h *Heap) LiveObjects() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries) - 1 - len(h.free)
}

// Collections returns how many collection cycles have completed.
func (h *Heap) Collections() uint64 {
	return h.collections.Load()
}
