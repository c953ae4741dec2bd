package heap

import (
	"time"
)

// CollectStats summarizes one completed collection cycle.
type CollectStats struct {
	Marked      int
	Swept       int
	WeakCleared int
	LiveBytes   int64
	Duration    time.Duration
	Timestamp   time.Time
}

type weakSlot struct {
	host    uint32
	hostGen uint16
	slot    int
	value   Value
}

// Marker is handed to Trace and VisitDescriptors. It knows which object is
// currently being traced so weak slots can be attributed to their holder.
type Marker struct {
	h    *Heap
	host uint32
}

// MarkValue greys the target of a strong reference. Anything else,
// including weak references, is ignored.
func (m *Marker) MarkValue(v Value) {
	if !v.IsRef() {
		return
	}
	if e := m.h.entryFor(v); e != nil && !e.marked {
		e.marked = true
		m.h.worklist = append(m.h.worklist, v.Handle())
	}
}

// RecordWeakSlot notes that slot of the current host holds weak reference v.
// If v's target is unmarked when marking finishes, the host is asked to clear
// the slot.
func (m *Marker) RecordWeakSlot(slot int, v Value) {
	if !v.IsWeak() {
		return
	}
	m.h.weakSlots = append(m.h.weakSlots, weakSlot{
		host:    m.host,
		hostGen: m.h.entries[m.host].gen,
		slot:    slot,
		value:   v,
	})
}

// ---------------------------------------------------------------------------
// Marking
// ---------------------------------------------------------------------------

// IsMarking reports whether an incremental marking pass is in progress.
func (h *Heap) IsMarking() bool {
	return h.marking.Load()
}

// StartMarking begins an incremental pass: every mark bit is cleared, every
// incremental object's marked count is reset to zero, and the roots and
// scope-pinned objects are greyed. Calling it while a pass is running does nothing.
func (h *Heap) StartMarking() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.marking.Load() {
		return
	}

	h.worklist = h.worklist[:0]
	h.weakSlots = h.weakSlots[:0]
	for i := 1; i < len(h.entries); i++ {
		e := &h.entries[i]
		e.marked = false
		if e.obj == nil {
			continue
		}
		if it, ok := e.obj.(IncrementalTracer); ok {
			it.SetNumberOfMarkedDescriptors(0)
		}
	}
	for i := 1; i < len(h.entries); i++ {
		if h.entries[i].obj != nil && h.entries[i].immortal {
			h.greyLocked(uint32(i))
		}
	}
	for handle := range h.roots {
		h.greyLocked(handle)
	}
	if floor, ok := h.pinFloorLocked(); ok {
		for i := 1; i < len(h.entries); i++ {
			if h.entries[i].obj != nil && h.entries[i].seq >= floor {
				h.greyLocked(uint32(i))
			}
		}
	}
	h.marking.Store(true)
}

// greyLocked marks a handle and queues it for tracing. Caller holds mu.
func (h *Heap) greyLocked(handle uint32) {
	e := &h.entries[handle]
	if e.obj == nil || e.marked {
		return
	}
	e.marked = true
	h.worklist = append(h.worklist, handle)
}

// Step traces up to budget queued objects (the configured step budget when
// budget <= 0). It returns true once the worklist is empty.
func (h *Heap) Step(budget int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.marking.Load() {
		return true
	}
	if budget <= 0 {
		budget = h.stepBudget
	}
	h.drainLocked(budget)
	return len(h.worklist) == 0
}

// drainLocked traces up to budget objects; budget < 0 drains everything.
func (h *Heap) drainLocked(budget int) {
	m := &Marker{h: h}
	for budget != 0 && len(h.worklist) > 0 {
		n := len(h.worklist) - 1
		handle := h.worklist[n]
		h.worklist = h.worklist[:n]
		budget--

		obj := h.entries[handle].obj
		if obj == nil {
			continue
		}
		m.host = handle
		if it, ok := obj.(IncrementalTracer); ok {
			from := it.NumberOfMarkedDescriptors()
			to := it.NumberOfDescriptors()
			if to > from {
				it.VisitDescriptors(m, from, to)
				it.SetNumberOfMarkedDescriptors(to)
			}
		}
		if t, ok := obj.(Tracer); ok {
			t.Trace(m)
		}
	}
}

// FinishMarking completes the pass: the worklist is drained, weak slots whose
// targets died are cleared, unmarked objects are reclaimed and their handle
// generations bumped, and the OnCollect hooks run.
func (h *Heap) FinishMarking() CollectStats {
	start := time.Now()
	h.mu.Lock()
	if !h.marking.Load() {
		h.mu.Unlock()
		return CollectStats{Timestamp: start}
	}
	h.drainLocked(-1)

	stats := CollectStats{Timestamp: start}

	for _, ws := range h.weakSlots {
		host := &h.entries[ws.host]
		if host.obj == nil || host.gen != ws.hostGen || !host.marked {
			continue
		}
		if target := h.entryFor(ws.value); target != nil && target.marked {
			continue
		}
		if wh, ok := host.obj.(WeakHolder); ok && wh.ClearWeakSlot(ws.slot, ws.value) {
			stats.WeakCleared++
		}
	}
	h.weakSlots = h.weakSlots[:0]

	for i := 1; i < len(h.entries); i++ {
		e := &h.entries[i]
		if e.obj == nil {
			continue
		}
		if e.marked || e.immortal {
			stats.Marked++
			continue
		}
		if _, rooted := h.roots[uint32(i)]; rooted {
			stats.Marked++
			continue
		}
		h.liveBytes -= e.size
		e.obj = nil
		e.size = 0
		e.gen++
		h.free = append(h.free, uint32(i))
		stats.Swept++
	}
	h.marking.Store(false)
	stats.LiveBytes = h.liveBytes
	hooks := append([]func(){}, h.hooks...)
	h.mu.Unlock()

	// Hooks run outside the lock so they may call back into the heap.
	for _, fn := range hooks {
		fn()
	}
	h.collections.Add(1)
	stats.Duration = time.Since(start)
	h.log.Debugf("collection %d: marked %d, swept %d, weak cleared %d, live %d bytes",
		h.collections.Load(), stats.Marked, stats.Swept, stats.WeakCleared, stats.LiveBytes)
	return stats
}

// Collect runs a complete non-incremental cycle.
func (h *Heap) Collect() CollectStats {
	h.StartMarking()
	return h.FinishMarking()
}

// OnCollect registers fn to run after every completed cycle. Caches keyed by
// reference identity must clear themselves here because handles are reused.
func (h *Heap) OnCollect(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks = append(h.hooks, fn)
}

// ---------------------------------------------------------------------------
// Write barriers
// ---------------------------------------------------------------------------

// RecordWrite must follow every store of v into slot of host. While marking,
// a strong target is greyed and a weak one is recorded so a slot written
// after its holder was scanned is still accounted for.
func (h *Heap) RecordWrite(host Value, slot int, v Value) {
	if !h.marking.Load() || !v.IsReference() {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.marking.Load() {
		return
	}
	if v.IsRef() {
		if e := h.entryFor(v); e != nil {
			h.greyLocked(v.Handle())
		}
		return
	}
	he := h.entryFor(host)
	if he == nil {
		return
	}
	h.weakSlots = append(h.weakSlots, weakSlot{
		host:    host.Handle(),
		hostGen: he.gen,
		slot:    slot,
		value:   v,
	})
}

// RecordRescan must follow publishing new records on an incremental object,
// or replacing the body of any traced object wholesale. While marking, a
// host that was already scanned is queued again; incremental objects then
// resume from their marked count.
func (h *Heap) RecordRescan(host Value) {
	if !h.marking.Load() {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	e := h.entryFor(host)
	if e == nil || !h.marking.Load() {
		return
	}
	if !e.marked {
		h.greyLocked(host.Handle())
		return
	}
	h.worklist = append(h.worklist, host.Handle())
}
