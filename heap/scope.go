package heap

// ---------------------------------------------------------------------------
// Scopes: pinning fresh allocations
// ---------------------------------------------------------------------------

// Scope pins every object allocated while it is open. A pinned object is
// treated as a root by any marking pass that starts before the scope
// closes, so a mutator running alongside a Collector can hold fresh objects
// in Go variables until it roots them or links them into a rooted graph.
//
// Pinning is by allocation order, not by goroutine: an open scope pins
// everything allocated after it opened, including other mutators' objects.
// Nested scopes therefore need no escape step; an inner scope's objects stay
// pinned for as long as an outer one is open.
type Scope struct {
	h     *Heap
	first uint64
}

// OpenScope opens a scope. Callers must Close it, typically with defer.
func (h *Heap) OpenScope() *Scope {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := &Scope{h: h, first: h.allocSeq + 1}
	h.scopes[s] = struct{}{}
	return s
}

// Close unpins the scope's objects. Objects already greyed by a running
// pass stay marked until it finishes. Closing twice does nothing.
func (s *Scope) Close() {
	s.h.mu.Lock()
	defer s.h.mu.Unlock()
	delete(s.h.scopes, s)
}

// OpenScopes returns the number of scopes currently open.
func (h *Heap) OpenScopes() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.scopes)
}

// pinFloorLocked returns the lowest allocation sequence number still pinned,
// and false when no scope is open. Caller holds mu.
func (h *Heap) pinFloorLocked() (uint64, bool) {
	var floor uint64
	found := false
	for s := range h.scopes {
		if !found || s.first < floor {
			floor = s.first
			found = true
		}
	}
	return floor, found
}
