package lookupcache

import (
	"testing"

	"github.com/chazu/descriptors/heap"
)

type fixture struct {
	h     *heap.Heap
	table heap.Value
	other heap.Value
	name  heap.Value
	hash  uint32
}

type blob struct{}

func (blob) Kind() string { return "Blob" }

func newFixture() fixture {
	h := heap.New(heap.Options{})
	name := h.Intern("x")
	return fixture{
		h:     h,
		table: h.Allocate(blob{}, 8),
		other: h.Allocate(blob{}, 8),
		name:  name,
		hash:  h.NameOf(name).Hash(),
	}
}

func TestNewRejectsBadSize(t *testing.T) {
	for _, size := range []int{0, -4, 3, 100} {
		if _, err := New(size); err == nil {
			t.Errorf("New(%d) should fail", size)
		}
	}
}

func TestLookupMissThenHit(t *testing.T) {
	f := newFixture()
	c, err := New(DefaultSize)
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := c.Lookup(f.table, f.name, f.hash); ok {
		t.Error("empty cache should miss")
	}
	c.Update(f.table, f.name, f.hash, 4)

	got, ok := c.Lookup(f.table, f.name, f.hash)
	if !ok || got != 4 {
		t.Errorf("Lookup = (%d, %v), want (4, true)", got, ok)
	}
	hits, misses := c.Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("Stats = (%d, %d), want (1, 1)", hits, misses)
	}
	if c.HitRate() != 50 {
		t.Errorf("HitRate = %v, want 50", c.HitRate())
	}
}

func TestLookupIsKeyedByTableIdentity(t *testing.T) {
	f := newFixture()
	c, _ := New(DefaultSize)
	c.Update(f.table, f.name, f.hash, 2)

	if _, ok := c.Lookup(f.other, f.name, f.hash); ok {
		t.Error("a different table must not hit another table's entry")
	}
}

func TestClear(t *testing.T) {
	f := newFixture()
	c, _ := New(1)
	c.Update(f.table, f.name, f.hash, 0)
	c.Clear()
	if _, ok := c.Lookup(f.table, f.name, f.hash); ok {
		t.Error("Clear should invalidate entries")
	}
	if c.Size() != 1 {
		t.Errorf("Size = %d, want 1", c.Size())
	}
}

func TestCollisionOverwrites(t *testing.T) {
	f := newFixture()
	c, _ := New(1)
	c.Update(f.table, f.name, f.hash, 1)
	c.Update(f.other, f.name, f.hash, 2)

	if _, ok := c.Lookup(f.table, f.name, f.hash); ok {
		t.Error("single-entry cache should have been overwritten")
	}
	if got, ok := c.Lookup(f.other, f.name, f.hash); !ok || got != 2 {
		t.Errorf("Lookup = (%d, %v), want (2, true)", got, ok)
	}
}
