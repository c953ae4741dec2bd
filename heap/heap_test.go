package heap

import (
	"testing"
)

// cell is a minimal traced object used to build object graphs in tests.
type cell struct {
	slots []Value
}

func (c *cell) Kind() string { return "Cell" }

func (c *cell) Trace(m *Marker) {
	for i, v := range c.slots {
		if v.IsWeak() {
			m.RecordWeakSlot(i, v)
			continue
		}
		m.MarkValue(v)
	}
}

func (c *cell) ClearWeakSlot(slot int, expected Value) bool {
	if c.slots[slot] != expected {
		return false
	}
	c.slots[slot] = Cleared
	return true
}

func newCell(h *Heap, slots ...Value) (Value, *cell) {
	c := &cell{slots: slots}
	return h.Allocate(c, 8*len(slots)), c
}

// ---------------------------------------------------------------------------
// Allocation and resolution
// ---------------------------------------------------------------------------

func TestAllocateResolve(t *testing.T) {
	h := New(Options{})
	ref, c := newCell(h, FromSmallInt(1))

	if !ref.IsRef() {
		t.Fatal("Allocate should return a strong reference")
	}
	if got := h.Resolve(ref); got != c {
		t.Error("Resolve should return the allocated object")
	}
	if got := h.Resolve(ref.Weak()); got != c {
		t.Error("Resolve should accept the weak form")
	}
	if h.Resolve(FromSmallInt(3)) != nil {
		t.Error("Resolve of a non-reference should be nil")
	}
}

func TestAllocateLimitIsFatal(t *testing.T) {
	h := New(Options{LimitBytes: 256})
	defer func() {
		if recover() == nil {
			t.Error("expected out of memory panic")
		}
	}()
	h.Allocate(&cell{}, 1024)
}

func TestLiveBytesAccounting(t *testing.T) {
	h := New(Options{})
	before := h.LiveBytes()
	newCell(h, Undefined, Undefined)
	if got := h.LiveBytes() - before; got != 16 {
		t.Errorf("LiveBytes grew by %d, want 16", got)
	}
}

// ---------------------------------------------------------------------------
// Names
// ---------------------------------------------------------------------------

func TestInternIsIdentity(t *testing.T) {
	h := New(Options{})
	a := h.Intern("length")
	b := h.Intern("length")
	c := h.Intern("width")

	if a != b {
		t.Error("interning the same string twice should return the same reference")
	}
	if a == c {
		t.Error("different strings should intern to different references")
	}
	if n := h.NameOf(a); n == nil || n.Text() != "length" || n.IsSymbol() {
		t.Errorf("NameOf = %v, want string 'length'", n)
	}
	if got, ok := h.Lookup("width"); !ok || got != c {
		t.Error("Lookup should find an interned string")
	}
	if _, ok := h.Lookup("missing"); ok {
		t.Error("Lookup should not allocate")
	}
}

func TestNameHashIsStable(t *testing.T) {
	h := New(Options{})
	n := h.NameOf(h.Intern("x"))
	if n.Hash() != HashString("x") {
		t.Errorf("Hash() = %d, want %d", n.Hash(), HashString("x"))
	}
	if n.Hash() > HashMask {
		t.Error("hash exceeds 30 bits")
	}
}

func TestSymbolsAreDistinct(t *testing.T) {
	h := New(Options{})
	a := h.NewSymbol("tag")
	b := h.NewSymbol("tag")
	p := h.NewPrivateSymbol("secret")

	if a == b {
		t.Error("two symbols with the same description must be distinct")
	}
	if !h.NameOf(a).IsSymbol() || h.NameOf(a).IsPrivate() {
		t.Error("NewSymbol should produce a public symbol")
	}
	if !h.NameOf(p).IsPrivate() {
		t.Error("NewPrivateSymbol should produce a private symbol")
	}
}

func TestEmptyStringIsImmortal(t *testing.T) {
	h := New(Options{})
	empty := h.EmptyString()
	h.Collect()
	if !h.IsAlive(empty) {
		t.Error("empty string should survive collection")
	}
	if h.Intern("") != empty {
		t.Error("interning \"\" should return the shared empty string")
	}
}
