package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/chazu/descriptors/descriptors"
	"github.com/chazu/descriptors/heap"
	"github.com/chazu/descriptors/property"
)

// Fixture describes a table to build, in the order records are appended.
type Fixture struct {
	Slack      int               `toml:"slack"`
	Properties []PropertyFixture `toml:"property"`
}

// PropertyFixture is one record.
//
//	[[property]]
//	name = "x"
//	kind = "field"            # field, constant or accessor
//	attributes = "W_C"        # W/E/C, underscore for a missing capability
//	representation = "smi"    # none, smi, double, heap-object, tagged
//	field-index = 0
//	const = true
//	value = 42                # constants only: integer, float, bool or string
type PropertyFixture struct {
	Name           string `toml:"name"`
	Symbol         bool   `toml:"symbol"`
	Kind           string `toml:"kind"`
	Attributes     string `toml:"attributes"`
	Representation string `toml:"representation"`
	FieldIndex     int    `toml:"field-index"`
	Const          bool   `toml:"const"`
	Value          any    `toml:"value"`
}

// LoadFixture reads a fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	f, err := ParseFixture(data)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	return f, nil
}

// ParseFixture decodes fixture text.
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if f.Slack < 0 {
		return nil, fmt.Errorf("slack must not be negative, got %d", f.Slack)
	}
	seen := make(map[string]bool)
	for i, p := range f.Properties {
		if p.Name == "" {
			return nil, fmt.Errorf("property %d has no name", i)
		}
		if !p.Symbol {
			if seen[p.Name] {
				return nil, fmt.Errorf("property %q appears twice", p.Name)
			}
			seen[p.Name] = true
		}
	}
	return &f, nil
}

// Build allocates a table for f, appends every record and sorts it. The
// table is rooted.
func (f *Fixture) Build(rt *descriptors.Runtime) (*descriptors.DescriptorArray, error) {
	a := rt.Allocate(0, len(f.Properties)+f.Slack)
	if a != rt.EmptyDescriptorArray() {
		rt.Heap().AddRoot(a.Ref())
	}
	for i, p := range f.Properties {
		desc, err := p.descriptor(rt)
		if err != nil {
			return nil, fmt.Errorf("property %d (%s): %w", i, p.Name, err)
		}
		a.Append(desc)
	}
	a.Sort()
	return a, nil
}

func (p PropertyFixture) descriptor(rt *descriptors.Runtime) (descriptors.Descriptor, error) {
	attrs, err := parseAttributes(p.Attributes)
	if err != nil {
		return descriptors.Descriptor{}, err
	}
	var key heap.Value
	if p.Symbol {
		key = rt.Heap().NewSymbol(p.Name)
	} else {
		key = rt.Intern(p.Name)
	}

	switch p.Kind {
	case "", "field":
		r, err := parseRepresentation(p.Representation)
		if err != nil {
			return descriptors.Descriptor{}, err
		}
		c := property.Mutable
		if p.Const {
			c = property.Const
		}
		return descriptors.DataField(key, p.FieldIndex, attrs, c, r, descriptors.FieldTypeAny), nil
	case "constant":
		v, err := constantValue(rt, p.Value)
		if err != nil {
			return descriptors.Descriptor{}, err
		}
		return descriptors.DataConstant(key, v, attrs), nil
	case "accessor":
		return descriptors.AccessorConstant(key, rt.NewAccessorPair(heap.Undefined, heap.Undefined), attrs), nil
	}
	return descriptors.Descriptor{}, fmt.Errorf("unknown kind %q", p.Kind)
}

// parseAttributes reads the W/E/C form printed by table dumps.
func parseAttributes(s string) (property.Attributes, error) {
	if s == "" {
		return property.None, nil
	}
	if len(s) != 3 {
		return 0, fmt.Errorf("attributes %q: want three characters like \"W_C\"", s)
	}
	var a property.Attributes
	for i, want := range "WEC" {
		switch rune(s[i]) {
		case want:
		case '_':
			a |= property.Attributes(1 << i)
		default:
			return 0, fmt.Errorf("attributes %q: position %d must be %c or _", s, i, want)
		}
	}
	return a, nil
}

func parseRepresentation(s string) (property.Representation, error) {
	switch strings.ToLower(s) {
	case "", "tagged":
		return property.RepresentationTagged, nil
	case "none":
		return property.RepresentationNone, nil
	case "smi":
		return property.RepresentationSmi, nil
	case "double":
		return property.RepresentationDouble, nil
	case "heap-object":
		return property.RepresentationHeapObject, nil
	}
	return 0, fmt.Errorf("unknown representation %q", s)
}

func constantValue(rt *descriptors.Runtime, v any) (heap.Value, error) {
	switch x := v.(type) {
	case nil:
		return heap.Undefined, nil
	case int64:
		if x < heap.MinSmallInt || x > heap.MaxSmallInt {
			return heap.FromFloat64(float64(x)), nil
		}
		return heap.FromSmallInt(x), nil
	case float64:
		return heap.FromFloat64(x), nil
	case bool:
		return heap.FromBool(x), nil
	case string:
		return rt.Intern(x), nil
	}
	return 0, fmt.Errorf("unsupported constant value %v (%T)", v, v)
}
