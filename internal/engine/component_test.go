package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vtree/internal/mutation"
)

// propsParent renders a label child with *label as its props.
func propsParent(label *string, equal func(a, b string) bool) Component {
	return Func("parent", func(cx *Scope) (Node, error) {
		return cx.Component(Props("label", *label, equal, func(cx *Scope, p string) (Node, error) {
			return cx.Text(p), nil
		})), nil
	})
}

func TestMemo_EqualPropsSkipRender(t *testing.T) {
	label := "hi"
	d := newTestDom(t, propsParent(&label, func(a, b string) bool { return a == b }))
	rebuild(t, d)

	d.MarkDirty(RootScopeID, Immediate)
	var log mutation.Log
	assert.Equal(t, 1, d.RenderImmediate(&log))
	assert.Empty(t, log.Edits)
	assert.Equal(t, uint64(1), d.Scope(1).Renders())
}

func TestMemo_ChangedPropsRender(t *testing.T) {
	label := "hi"
	d := newTestDom(t, propsParent(&label, func(a, b string) bool { return a == b }))
	rebuild(t, d)

	label = "bye"
	d.MarkDirty(RootScopeID, Immediate)

	assert.Equal(t, []mutation.Mutation{mutation.SetText("bye", 1)}, renderImmediate(d))
	assert.Equal(t, uint64(2), d.Scope(1).Renders())
}

func TestMemo_NilEqualAlwaysRenders(t *testing.T) {
	label := "hi"
	d := newTestDom(t, propsParent(&label, nil))
	rebuild(t, d)

	d.MarkDirty(RootScopeID, Immediate)
	assert.Empty(t, renderImmediate(d))
	assert.Equal(t, uint64(2), d.Scope(1).Renders())
}

func TestMemo_PropsComparable(t *testing.T) {
	type point struct{ X, Y int }
	p := point{1, 2}
	d := newTestDom(t, Func("parent", func(cx *Scope) (Node, error) {
		return cx.Component(PropsComparable("point", p, func(cx *Scope, p point) (Node, error) {
			return cx.Text("pt"), nil
		})), nil
	}))
	rebuild(t, d)

	d.MarkDirty(RootScopeID, Immediate)
	renderImmediate(d)
	assert.Equal(t, uint64(1), d.Scope(1).Renders())

	p.Y = 3
	d.MarkDirty(RootScopeID, Immediate)
	renderImmediate(d)
	assert.Equal(t, uint64(2), d.Scope(1).Renders())
}

func TestMemo_DifferentComponentRemounts(t *testing.T) {
	name := "first"
	d := newTestDom(t, Func("parent", func(cx *Scope) (Node, error) {
		n := name
		return cx.Component(Func(n, func(cx *Scope) (Node, error) { return cx.Text(n), nil })), nil
	}))
	rebuild(t, d)

	name = "second"
	d.MarkDirty(RootScopeID, Immediate)

	assert.Equal(t, []mutation.Mutation{
		mutation.CreateTextNode("second", 2),
		mutation.ReplaceWith(1, 1),
	}, renderImmediate(d))
	require.Equal(t, 2, d.ScopeCount())
	assert.False(t, d.HasScope(1))
	assert.Equal(t, "second", d.Scope(2).Name())
	assert.Equal(t, uint64(1), d.Scope(2).Renders())
}

func TestErrorBoundary_RendersFallback(t *testing.T) {
	broken := Func("broken", func(cx *Scope) (Node, error) {
		return Node{}, errors.New("boom")
	})
	d := newTestDom(t, &ErrorBoundary{
		Child: broken,
		Fallback: func(cx *Scope, err error) Node {
			return cx.Text("oops: " + err.Error())
		},
	})

	assert.Equal(t, []mutation.Mutation{
		mutation.CreatePlaceholder(1),
		mutation.AppendChildren(mutation.Root, 1),
		mutation.CreateTextNode("oops: boom", 2),
		mutation.ReplaceWith(1, 1),
	}, rebuild(t, d))
	assert.Empty(t, d.TakeErrors())
	assert.Equal(t, 1, d.ScopeCount())
}

func TestErrorBoundary_Reset(t *testing.T) {
	fail := true
	flaky := Func("flaky", func(cx *Scope) (Node, error) {
		if fail {
			return Node{}, errors.New("flaky")
		}
		return cx.Text("fine"), nil
	})
	d := newTestDom(t, &ErrorBoundary{Child: flaky})

	edits := rebuild(t, d)
	assert.Equal(t, mutation.CreateTextNode("flaky", 2), edits[2])

	fail = false
	d.Scope(RootScopeID).ResetError()
	assert.Equal(t, []mutation.Mutation{
		mutation.CreateTextNode("fine", 1),
		mutation.ReplaceWith(2, 1),
	}, renderImmediate(d))
}

func TestErrorBoundary_NearestCatches(t *testing.T) {
	broken := Func("broken", func(cx *Scope) (Node, error) { return Node{}, errors.New("inner") })
	var outerCaught bool
	d := newTestDom(t, &ErrorBoundary{
		Name: "outer",
		Child: &ErrorBoundary{
			Name:  "inner",
			Child: broken,
		},
		Fallback: func(cx *Scope, err error) Node {
			outerCaught = true
			return cx.Text("outer")
		},
	})
	rebuild(t, d)

	assert.False(t, outerCaught)
	assert.Equal(t, "inner", d.Scope(1).Name())
}

func TestUncaughtErrors(t *testing.T) {
	d := newTestDom(t, Func("root", func(cx *Scope) (Node, error) {
		return Node{}, errors.New("nobody listens")
	}))

	assert.Equal(t, []mutation.Mutation{
		mutation.CreatePlaceholder(1),
		mutation.AppendChildren(mutation.Root, 1),
	}, rebuild(t, d))

	errs := d.TakeErrors()
	require.Len(t, errs, 1)
	assert.EqualError(t, errs[0], "nobody listens")
	assert.Empty(t, d.TakeErrors())
}

func TestComponentName(t *testing.T) {
	assert.Equal(t, "app", componentName(Func("app", nil)))
	assert.Equal(t, "ErrorBoundary", componentName(&ErrorBoundary{}))
	assert.Equal(t, "guard", componentName(&ErrorBoundary{Name: "guard"}))
}
