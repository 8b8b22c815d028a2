package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/label.yaml")
	require.NoError(t, err)

	assert.Equal(t, "label", s.Name)
	assert.Equal(t, []string{filepath.Join("testdata", "ui", "label.cue")}, s.Templates)
	assert.Equal(t, "cbor", s.Encoding)
	require.Len(t, s.Frames, 4)

	mount := s.Frames[0]
	require.NotNil(t, mount.Tree)
	assert.Equal(t, "ui:label", mount.Tree.Template)
	assert.Equal(t, []AttrSpec{{Name: "class", Value: "greeting"}}, mount.Tree.Attrs)
	require.Len(t, mount.Tree.Nodes, 1)
	require.NotNil(t, mount.Tree.Nodes[0].Text)
	assert.Equal(t, "hello", *mount.Tree.Nodes[0].Text)

	click := s.Frames[3]
	assert.Nil(t, click.Tree)
	assert.Equal(t, &EventStep{Name: "click", Target: 1}, click.Event)
	assert.Len(t, s.Assertions, 7)
}

func TestLoadScenario_Missing(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/nope.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_Cycle(t *testing.T) {
	_, err := LoadScenario("testdata/invalid/cycle.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "component cycle: inner -> outer -> inner")
}

func TestParseScenario_Invalid(t *testing.T) {
	const header = `
name: bad
description: invalid on purpose
templates: [../ui/label.cue]
`
	const mount = `
frames:
  - name: mount
    tree: {template: ui:label, attrs: [{name: a}], nodes: [{text: x}]}
`
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"unknown field", header + mount + "assertion: []\n", "field assertion not found"},
		{"no name", "description: x\ntemplates: [../ui/label.cue]\n" + mount, "name is required"},
		{"no description", "name: x\ntemplates: [../ui/label.cue]\n" + mount, "description is required"},
		{"no templates", "name: x\ndescription: y\n" + mount, "templates list is required"},
		{"no frames", header, "frames list is required"},
		{"missing template file", "name: x\ndescription: y\ntemplates: [nope.cue]\n" + mount, "template file not found"},
		{"bad encoding", header + "encoding: xml\n" + mount, "encoding"},
		{"event first", header + `
frames:
  - name: click
    event: {name: click, target: 1}
`, "the first frame must render a tree"},
		{"tree and event", header + `
frames:
  - name: both
    tree: {template: ui:label}
    event: {name: click, target: 1}
`, "exactly one of tree or event"},
		{"duplicate frame", header + mount + `
  - name: mount
    tree: {template: ui:label, attrs: [{name: a}], nodes: [{text: y}]}
`, `duplicate frame name "mount"`},
		{"two variants", header + `
frames:
  - name: mount
    tree: {template: ui:label, attrs: [{name: a}], nodes: [{text: x, placeholder: true}]}
`, "exactly one of text, placeholder"},
		{"listener with value", header + `
frames:
  - name: mount
    tree: {template: ui:label, attrs: [{on: click, value: x}], nodes: [{text: x}]}
`, "a listener takes only on"},
		{"namespaced int", header + `
frames:
  - name: mount
    tree: {template: ui:label, attrs: [{name: href, namespace: xlink, value: 3}], nodes: [{text: x}]}
`, "namespaced attributes take string values"},
		{"list value", header + `
frames:
  - name: mount
    tree: {template: ui:label, attrs: [{name: a, value: [1]}], nodes: [{text: x}]}
`, "unsupported attribute value"},
		{"unknown use", header + `
frames:
  - name: mount
    tree: {template: ui:label, attrs: [{name: a}], nodes: [{use: ghost}]}
`, `unknown component "ghost"`},
		{"component without body", header + `
frames:
  - name: mount
    tree: {template: ui:label, attrs: [{name: a}], nodes: [{component: {name: c}}]}
`, "exactly one of tree or fail"},
		{"unknown assertion", header + mount + `
assertions:
  - type: vibes
    frame: mount
`, `unknown assertion type "vibes"`},
		{"unknown assertion frame", header + mount + `
assertions:
  - type: html
    frame: later
`, `unknown frame "later"`},
		{"unknown kind", header + mount + `
assertions:
  - type: kind_count
    kind: Teleport
`, `unknown mutation kind "Teleport"`},
		{"order without kinds", header + mount + `
assertions:
  - type: edit_order
    frame: mount
`, "kinds list is required"},
		{"contains without frame", header + mount + `
assertions:
  - type: edit_contains
    edit: x
`, "frame is required for edit_contains"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.src), "testdata/scenarios")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestFindScenarios(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.yaml", "a.yml", "notes.txt", "sub/c.yaml"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("name: x\n"), 0o644))
	}

	paths, err := FindScenarios(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.yml"),
		filepath.Join(dir, "b.yaml"),
		filepath.Join(dir, "sub", "c.yaml"),
	}, paths)
}

func TestFindScenarios_Testdata(t *testing.T) {
	paths, err := FindScenarios("testdata/scenarios")
	require.NoError(t, err)
	for _, p := range paths {
		_, err := LoadScenario(p)
		assert.NoError(t, err, p)
	}
}
