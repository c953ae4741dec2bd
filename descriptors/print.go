package descriptors

import (
	"fmt"
	"io"
	"strings"

	"github.com/chazu/descriptors/heap"
)

// Print writes a human-readable dump of every active record to w:
//
//	DescriptorArray (capacity 4, descriptors 2, slack 2)
//	  [0]: #x (data field 0:t, p: 1, attrs: [WEC]) @ Any
//	  [1]: #y (data descriptor, p: 0, attrs: [W_C]) @ 2
func (a *DescriptorArray) Print(w io.Writer) error {
	n := a.NumberOfDescriptors()
	if _, err := fmt.Fprintf(w, "DescriptorArray (capacity %d, descriptors %d, slack %d)\n",
		a.NumberOfAllDescriptors(), n, a.NumberOfSlackDescriptors()); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if _, err := fmt.Fprintf(w, "  [%d]: %s (%s) @ %s\n",
			i, a.rt.KeyString(a.GetKey(i)), a.GetDetails(i), a.ValueString(i)); err != nil {
			return err
		}
	}
	if c := a.EnumCache(); c.Len() > 0 {
		keys := make([]string, c.Len())
		for i, k := range c.Keys() {
			keys[i] = a.rt.KeyString(k)
		}
		if _, err := fmt.Fprintf(w, "  enum cache: [%s]\n", strings.Join(keys, ", ")); err != nil {
			return err
		}
	}
	return nil
}

func (a *DescriptorArray) String() string {
	var b strings.Builder
	_ = a.Print(&b)
	return b.String()
}

// KeyString renders a key as #name, or Symbol(description) for symbols.
func (rt *Runtime) KeyString(key heap.Value) string {
	n := rt.heap.NameOf(key)
	switch {
	case n == nil:
		return "<dead key>"
	case n.IsSymbol():
		return n.String()
	}
	return "#" + n.Text()
}

// ValueString renders record i's value slot: a field type for field
// records, otherwise the stored value.
func (a *DescriptorArray) ValueString(i int) string {
	if a.GetDetails(i).IsField() {
		return a.GetFieldType(i).String()
	}
	v := a.GetValue(i)
	if obj := a.rt.heap.Resolve(v); obj != nil {
		if n, ok := obj.(*heap.Name); ok {
			return fmt.Sprintf("%q", n.Text())
		}
		return obj.Kind()
	}
	return v.String()
}
