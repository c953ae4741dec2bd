package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chazu/descriptors/descriptors"
	"github.com/chazu/descriptors/manifest"
	"github.com/chazu/descriptors/property"
	"github.com/chazu/descriptors/snapshot"
)

const pointFixture = `
slack = 1

[[property]]
name = "x"
kind = "field"
representation = "smi"
field-index = 0

[[property]]
name = "y"
kind = "field"
representation = "double"
field-index = 1
const = true

[[property]]
name = "label"
kind = "constant"
attributes = "_E_"
value = "origin"

[[property]]
name = "length"
kind = "accessor"
attributes = "W__"
`

func writeFixture(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.toml")
	require.NoError(t, os.WriteFile(path, []byte(text), 0644))
	return path
}

func TestParseAttributes(t *testing.T) {
	a, err := parseAttributes("W_C")
	require.NoError(t, err)
	require.Equal(t, property.DontEnum, a)

	a, err = parseAttributes("___")
	require.NoError(t, err)
	require.Equal(t, property.AllAttrsMask, a)

	_, err = parseAttributes("WCE")
	require.Error(t, err)
	_, err = parseAttributes("W")
	require.Error(t, err)
}

func TestParseFixtureRejects(t *testing.T) {
	tests := map[string]string{
		"duplicate":      "[[property]]\nname = \"a\"\n[[property]]\nname = \"a\"\n",
		"no name":        "[[property]]\nkind = \"field\"\n",
		"negative slack": "slack = -1\n",
	}
	for name, text := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseFixture([]byte(text))
			require.Error(t, err)
		})
	}
}

func TestBuildFixture(t *testing.T) {
	f, err := ParseFixture([]byte(pointFixture))
	require.NoError(t, err)
	rt, err := descriptors.NewRuntime(nil)
	require.NoError(t, err)

	a, err := f.Build(rt)
	require.NoError(t, err)
	require.NoError(t, a.Verify())
	require.Equal(t, 4, a.NumberOfDescriptors())
	require.Equal(t, 1, a.NumberOfSlackDescriptors())

	label := a.Search(rt.Intern("label"), 4)
	require.Equal(t, 2, label)
	require.True(t, a.GetDetails(label).IsReadOnly())
	require.False(t, a.GetDetails(label).IsConfigurable())
	require.Equal(t, rt.Intern("origin"), a.GetValue(label))

	require.Equal(t, property.Const, a.GetDetails(1).Constness())
	require.Equal(t, property.KindAccessor, a.GetDetails(3).Kind())
}

func TestBuildFixtureUnknownKind(t *testing.T) {
	f, err := ParseFixture([]byte("[[property]]\nname = \"a\"\nkind = \"element\"\n"))
	require.NoError(t, err)
	rt, err := descriptors.NewRuntime(nil)
	require.NoError(t, err)
	_, err = f.Build(rt)
	require.Error(t, err)
}

func TestRun(t *testing.T) {
	path := writeFixture(t, pointFixture)
	out := filepath.Join(t.TempDir(), "table.cbor")

	var buf bytes.Buffer
	err := run(&buf, manifest.Default(), options{
		fixture:  path,
		slack:    -1,
		searches: []string{"y", "missing", "y"},
		snapshot: out,
		enum:     true,
	})
	require.NoError(t, err)

	text := buf.String()
	require.Contains(t, text, "DescriptorArray (capacity 5, descriptors 4, slack 1)")
	require.Contains(t, text, "search y: 1 (data const field 1:d")
	require.Contains(t, text, "search missing: not found")
	require.Contains(t, text, "lookup cache hit rate: 33.3%")
	require.Contains(t, text, "enum cache: [#x, #y, #label]")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	s, err := snapshot.Unmarshal(data)
	require.NoError(t, err)
	require.Equal(t, 4, s.Count)
	require.Equal(t, []string{"x", "y", "label"}, s.EnumKeys)
}

func TestRunSlackOverride(t *testing.T) {
	path := writeFixture(t, pointFixture)
	var buf bytes.Buffer
	require.NoError(t, run(&buf, manifest.Default(), options{fixture: path, slack: 3}))
	require.Contains(t, buf.String(), "capacity 7, descriptors 4, slack 3")
}

func TestRunMissingFixture(t *testing.T) {
	var buf bytes.Buffer
	err := run(&buf, manifest.Default(), options{fixture: filepath.Join(t.TempDir(), "nope.toml"), slack: -1})
	require.Error(t, err)
}

func TestRunWithCollector(t *testing.T) {
	path := writeFixture(t, pointFixture)
	var buf bytes.Buffer
	require.NoError(t, run(&buf, manifest.Default(), options{fixture: path, slack: -1, gc: true}))
	require.Contains(t, buf.String(), "collection: marked")
}
