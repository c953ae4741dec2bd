// Package snapshot captures a descriptor table as a self-describing CBOR
// document, for diffing tables across runs and attaching them to bug
// reports. Keys and values are rendered by name, so a snapshot does not
// depend on heap handles.
package snapshot

import (
	"crypto/sha256"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/descriptors/descriptors"
	"github.com/chazu/descriptors/heap"
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("snapshot: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Version is bumped whenever Table changes shape.
const Version = 1

// Table is a snapshot of one descriptor table.
type Table struct {
	Version   uint8    `cbor:"1,keyasint"`
	Capacity  int      `cbor:"2,keyasint"`
	Count     int      `cbor:"3,keyasint"`
	Marked    int      `cbor:"4,keyasint"`
	Records   []Record `cbor:"5,keyasint,omitempty"`
	SortOrder []int    `cbor:"6,keyasint,omitempty"` // physical index of each hash-order position
	EnumKeys  []string `cbor:"7,keyasint,omitempty"`
	Digest    [32]byte `cbor:"8,keyasint"` // see ContentDigest
}

// Record is one active record.
type Record struct {
	Key         string `cbor:"1,keyasint"`
	Symbol      bool   `cbor:"2,keyasint,omitempty"`
	Details     int64  `cbor:"3,keyasint"`
	DetailsText string `cbor:"4,keyasint"`
	ValueKind   string `cbor:"5,keyasint"`
	Value       string `cbor:"6,keyasint"`
}

// Value kinds
const (
	KindFieldType = "field-type"
	KindName      = "name"
	KindObject    = "object"
	KindImmediate = "immediate"
)

// FromArray captures the active records of a.
func FromArray(rt *descriptors.Runtime, a *descriptors.DescriptorArray) *Table {
	n := a.NumberOfDescriptors()
	t := &Table{
		Version:  Version,
		Capacity: a.NumberOfAllDescriptors(),
		Count:    n,
		Marked:   a.NumberOfMarkedDescriptors(),
	}
	h := rt.Heap()
	for i := 0; i < n; i++ {
		d := a.GetDetails(i)
		r := Record{
			Details:     d.ToSmallInt(),
			DetailsText: d.String(),
			Value:       a.ValueString(i),
		}
		if name := h.NameOf(a.GetKey(i)); name != nil {
			r.Key = name.Text()
			r.Symbol = name.IsSymbol()
		}
		switch v := a.GetValue(i); {
		case d.IsField():
			r.ValueKind = KindFieldType
		case h.NameOf(v) != nil:
			r.ValueKind = KindName
		case v.IsReference():
			r.ValueKind = KindObject
		default:
			r.ValueKind = KindImmediate
		}
		t.Records = append(t.Records, r)
		t.SortOrder = append(t.SortOrder, a.GetSortedKeyIndex(i))
	}
	for _, k := range a.EnumCache().Keys() {
		t.EnumKeys = append(t.EnumKeys, keyText(h, k))
	}
	t.Digest = t.ContentDigest()
	return t
}

// ContentDigest returns the sha256 of the canonical encoding of t with the
// marked count and digest zeroed. It covers only name-rendered content, so
// equal tables built in different runs share a digest.
func (t *Table) ContentDigest() [32]byte {
	c := *t
	c.Marked = 0
	c.Digest = [32]byte{}
	data, err := cborEncMode.Marshal(&c)
	if err != nil {
		panic(fmt.Sprintf("snapshot: encode table for digest: %v", err))
	}
	return sha256.Sum256(data)
}

func keyText(h *heap.Heap, k heap.Value) string {
	if name := h.NameOf(k); name != nil {
		return name.Text()
	}
	return k.String()
}

// Marshal serializes a snapshot to canonical CBOR.
func Marshal(t *Table) ([]byte, error) {
	return cborEncMode.Marshal(t)
}

// Unmarshal decodes a snapshot.
func Unmarshal(data []byte) (*Table, error) {
	var t Table
	if err := cbor.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("snapshot: unmarshal table: %w", err)
	}
	if t.Version != Version {
		return nil, fmt.Errorf("snapshot: unsupported version %d", t.Version)
	}
	if t.Digest != t.ContentDigest() {
		return nil, fmt.Errorf("snapshot: digest mismatch")
	}
	return &t, nil
}

// Lookup returns the record keyed by name, scanning in physical order.
func (t *Table) Lookup(name string) (Record, bool) {
	for _, r := range t.Records {
		if r.Key == name && !r.Symbol {
			return r, true
		}
	}
	return Record{}, false
}
