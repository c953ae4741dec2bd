package heap

import (
	"testing"
)

func TestScopePinsAllocations(t *testing.T) {
	h := New(Options{})
	before, _ := newCell(h)

	s := h.OpenScope()
	child, _ := newCell(h)
	parent, _ := newCell(h, child)
	h.Collect()

	if h.IsAlive(before) {
		t.Error("objects allocated before the scope opened should not be pinned")
	}
	if !h.IsAlive(parent) || !h.IsAlive(child) {
		t.Error("objects allocated inside an open scope should survive")
	}

	s.Close()
	s.Close() // second close is a no-op
	if h.OpenScopes() != 0 {
		t.Errorf("OpenScopes = %d, want 0", h.OpenScopes())
	}
	h.Collect()
	if h.IsAlive(parent) || h.IsAlive(child) {
		t.Error("closing the scope should unpin its objects")
	}
}

func TestNestedScopeKeepsInnerObjects(t *testing.T) {
	h := New(Options{})
	outer := h.OpenScope()
	inner := h.OpenScope()
	ref, _ := newCell(h)
	inner.Close()

	h.Collect()
	if !h.IsAlive(ref) {
		t.Error("an open outer scope should keep an inner scope's objects pinned")
	}
	outer.Close()
	h.Collect()
	if h.IsAlive(ref) {
		t.Error("object should be swept once every covering scope is closed")
	}
}

func TestScopeClosedDuringMarkingKeepsCycle(t *testing.T) {
	h := New(Options{StepBudget: 1})
	s := h.OpenScope()
	ref, _ := newCell(h)
	h.StartMarking()
	s.Close()
	h.FinishMarking()

	if !h.IsAlive(ref) {
		t.Error("object greyed at the start of the pass should survive it")
	}
	h.Collect()
	if h.IsAlive(ref) {
		t.Error("unpinned object should be swept by the next cycle")
	}
}

func TestScopeRootThenClose(t *testing.T) {
	h := New(Options{})
	s := h.OpenScope()
	ref, _ := newCell(h)
	h.Collect()
	h.AddRoot(ref) // must not panic: the object is still live
	s.Close()

	h.Collect()
	if !h.IsAlive(ref) {
		t.Error("rooted object should outlive its scope")
	}
}
