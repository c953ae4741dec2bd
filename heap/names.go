package heap

import (
	"strconv"

	"github.com/zeebo/xxh3"
)

// HashMask keeps name hashes to 30 bits so they always fit a small integer
// on every target the layout is shared with.
const HashMask uint32 = (1 << 30) - 1

// nameSize is the accounted size of a Name header; the text is extra.
const nameSize = 24

// Name is an immutable property key: either an interned string or a unique
// symbol. Two keys are the same key exactly when their references are the
// same, so lookups compare identity and never text.
type Name struct {
	text    string
	hash    uint32
	symbol  bool
	private bool
}

// Kind implements Object.
func (n *Name) Kind() string {
	if n.symbol {
		return "Symbol"
	}
	return "String"
}

// Text returns the string contents, or the description of a symbol.
func (n *Name) Text() string { return n.text }

// Hash returns the precomputed 30-bit hash.
func (n *Name) Hash() uint32 { return n.hash }

// IsSymbol reports whether n is a symbol rather than an interned string.
func (n *Name) IsSymbol() bool { return n.symbol }

// IsPrivate reports whether n is a private symbol. Private keys are never
// enumerable and never receive attribute overlays.
func (n *Name) IsPrivate() bool { return n.private }

func (n *Name) String() string {
	if n.symbol {
		return "Symbol(" + n.text + ")"
	}
	return n.text
}

// HashString computes the name hash for s.
func HashString(s string) uint32 {
	return uint32(xxh3.HashString(s)) & HashMask
}

// ---------------------------------------------------------------------------
// Interning
// ---------------------------------------------------------------------------

// Intern returns the unique reference for the string s, allocating it on
// first use. Interned strings are immortal.
func (h *Heap) Intern(s string) Value {
	h.mu.RLock()
	if v, ok := h.names[s]; ok {
		h.mu.RUnlock()
		return v
	}
	h.mu.RUnlock()

	h.mu.Lock()
	defer h.mu.Unlock()
	// Another goroutine may have won the race; keep the first one.
	if v, ok := h.names[s]; ok {
		return v
	}
	// Allocated and made immortal under one lock so no collection can
	// sweep the name in between.
	v := h.allocateLocked(&Name{text: s, hash: HashString(s)}, nameSize+len(s))
	h.names[s] = v
	h.entries[v.Handle()].immortal = true
	return v
}

// Lookup returns the interned reference for s without allocating.
func (h *Heap) Lookup(s string) (Value, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	v, ok := h.names[s]
	return v, ok
}

// EmptyString returns the shared empty string, used as the placeholder key.
func (h *Heap) EmptyString() Value {
	return h.emptyString
}

// NewSymbol allocates a fresh symbol. Symbols are never interned; each call
// returns a distinct key.
func (h *Heap) NewSymbol(description string) Value {
	return h.newSymbol(description, false)
}

// NewPrivateSymbol allocates a fresh private symbol.
func (h *Heap) NewPrivateSymbol(description string) Value {
	return h.newSymbol(description, true)
}

func (h *Heap) newSymbol(description string, private bool) Value {
	h.mu.Lock()
	h.symbolSeq++
	seq := h.symbolSeq
	h.mu.Unlock()

	hash := HashString(description + "@" + strconv.FormatUint(seq, 10))
	return h.Allocate(&Name{
		text:    description,
		hash:    hash,
		symbol:  true,
		private: private,
	}, nameSize+len(description))
}

// NameOf resolves v to a Name, or nil if v is not a live name reference.
func (h *Heap) NameOf(v Value) *Name {
	n, _ := h.Resolve(v).(*Name)
	return n
}
