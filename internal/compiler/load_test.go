package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vtree/internal/template"
)

func TestLoadDir(t *testing.T) {
	result, errs := LoadDir("testdata/ui", LoadModeCollectAll)
	require.Empty(t, errs)

	assert.Equal(t, 2, result.FileCount)
	ids := make([]template.ID, len(result.Templates))
	for i, tpl := range result.Templates {
		ids[i] = tpl.ID
	}
	assert.Equal(t, []template.ID{"ui:card", "ui:item", "ui:list"}, ids)

	list, ok := result.Lookup("ui:list")
	require.True(t, ok)
	slot, dynamic := list.RootIsDynamic(1)
	assert.True(t, dynamic)
	assert.Equal(t, 1, slot)

	reg, err := result.Registry()
	require.NoError(t, err)
	assert.Equal(t, 3, reg.Len())
}

func TestLoadDirErrors(t *testing.T) {
	_, errs := LoadDir("testdata/missing", LoadModeFailFast)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrCodeNotFound, errs[0].(*LoadError).Code)

	empty := t.TempDir()
	_, errs = LoadDir(empty, LoadModeFailFast)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrCodeNoFiles, errs[0].(*LoadError).Code)
}

func TestLoadDirCollectsAll(t *testing.T) {
	dir := t.TempDir()
	src := `package bad

template: a: roots: []
template: b: roots: [{tag: "p", text: "x"}]
template: c: roots: [{tag: "p"}]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.cue"), []byte(src), 0o644))

	result, errs := LoadDir(dir, LoadModeCollectAll)
	require.Len(t, errs, 2)
	assert.Equal(t, ErrCodeTemplateRoots, errs[0].(*LoadError).Code)
	assert.Equal(t, ErrCodeTemplateNode, errs[1].(*LoadError).Code)
	require.Len(t, result.Templates, 1)

	_, errs = LoadDir(dir, LoadModeFailFast)
	assert.Len(t, errs, 1)
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.cue")
	b := filepath.Join(dir, "b.cue")
	require.NoError(t, os.WriteFile(a, []byte(`template: x: roots: [{tag: "p"}]`), 0o644))
	require.NoError(t, os.WriteFile(b, []byte(`template: x: roots: [{tag: "p"}]
template: y: roots: [{text: "y"}]`), 0o644))

	result, errs := LoadFiles(LoadModeCollectAll, a, b)
	require.Empty(t, errs)
	assert.Equal(t, 2, result.FileCount)
	assert.Len(t, result.Templates, 2, "identical shapes merge")
}

func TestLoadFilesDuplicate(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.cue")
	b := filepath.Join(dir, "b.cue")
	require.NoError(t, os.WriteFile(a, []byte(`template: x: roots: [{tag: "p"}]`), 0o644))
	require.NoError(t, os.WriteFile(b, []byte(`template: x: roots: [{tag: "div"}]`), 0o644))

	_, errs := LoadFiles(LoadModeCollectAll, a, b)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrCodeDuplicate, errs[0].(*LoadError).Code)

	_, errs = LoadFiles(LoadModeCollectAll, filepath.Join(dir, "nope.cue"))
	require.Len(t, errs, 1)
	assert.Equal(t, ErrCodeNotFound, errs[0].(*LoadError).Code)
}

func TestCompileSource(t *testing.T) {
	result, errs := CompileSource("inline.cue", `template: t: roots: [{text: "hi"}]`, LoadModeFailFast)
	require.Empty(t, errs)
	require.Len(t, result.Templates, 1)

	_, errs = CompileSource("inline.cue", `template: t: roots: [`, LoadModeFailFast)
	require.Len(t, errs, 1)

	_, errs = CompileSource("inline.cue", `other: 1`, LoadModeFailFast)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "no templates found")
}

func TestMapFieldToErrorCode(t *testing.T) {
	tests := map[string]string{
		"id":                   ErrCodeTemplateID,
		"roots":                ErrCodeTemplateRoots,
		"cue":                  ErrCodeBuildFailed,
		"roots[0].dynamic":     ErrCodeTemplateSlot,
		"roots[0].children[1]": ErrCodeTemplateNode,
		"":                     ErrCodeGeneric,
	}
	for field, want := range tests {
		assert.Equal(t, want, MapFieldToErrorCode(field), field)
	}
}
