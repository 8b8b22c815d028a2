package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vtree/internal/mutation"
)

// toggleApp renders child while show is true and a placeholder otherwise.
// The state handle is published through show.
func toggleApp(show **State[bool], child Component) Component {
	return Func("toggle", func(cx *Scope) (Node, error) {
		*show = UseState(cx, func() bool { return true })
		state := *show
		if state.Get() {
			return cx.Component(child), nil
		}
		return cx.Placeholder(), nil
	})
}

func TestScope_MountAndUnmount(t *testing.T) {
	var show *State[bool]
	child := Func("child", func(cx *Scope) (Node, error) { return cx.Text("child"), nil })
	d := newTestDom(t, toggleApp(&show, child))

	assert.Equal(t, []mutation.Mutation{
		mutation.CreateTextNode("child", 1),
		mutation.AppendChildren(mutation.Root, 1),
	}, rebuild(t, d))
	require.Equal(t, 2, d.ScopeCount())
	assert.Equal(t, []ScopeID{1}, d.Scope(RootScopeID).Children())

	childScope := d.Scope(1)
	parent, ok := childScope.Parent()
	assert.True(t, ok)
	assert.Equal(t, RootScopeID, parent)
	assert.Equal(t, 1, childScope.Height())

	show.Set(false)

	assert.Equal(t, []mutation.Mutation{
		mutation.CreatePlaceholder(2),
		mutation.ReplaceWith(1, 1),
	}, renderImmediate(d))
	assert.Equal(t, 1, d.ScopeCount())
	assert.False(t, d.HasScope(1))
	assert.Empty(t, d.Scope(RootScopeID).Children())
	assert.Equal(t, 1, d.ElementCount())

	requireViolation(t, ViolationInvalidScope, func() { d.Scope(1) })
}

func TestScope_IDReusedAfterUnmount(t *testing.T) {
	var show *State[bool]
	child := Func("child", func(cx *Scope) (Node, error) { return cx.Text("child"), nil })
	d := newTestDom(t, toggleApp(&show, child))
	rebuild(t, d)
	first := d.Scope(1).epoch

	show.Set(false)
	renderImmediate(d)
	show.Set(true)
	renderImmediate(d)

	require.True(t, d.HasScope(1))
	assert.Equal(t, uint64(1), d.Scope(1).Renders())
	assert.NotEqual(t, first, d.Scope(1).epoch)
}

func TestScope_UnmountCancelsTasksAndDisposesHooks(t *testing.T) {
	var show *State[bool]
	stopped := make(chan struct{})
	disposed := 0

	child := Func("worker", func(cx *Scope) (Node, error) {
		UseHook(cx, func() *disposeCounter { return &disposeCounter{n: &disposed} })
		UseHook(cx, func() *Task {
			return cx.Spawn(func(ctx context.Context, post Post) error {
				<-ctx.Done()
				close(stopped)
				return ctx.Err()
			})
		})
		return cx.Text("busy"), nil
	})
	d := newTestDom(t, toggleApp(&show, child))
	rebuild(t, d)
	require.Equal(t, 1, d.TaskCount())
	task := d.tasks[1]

	show.Set(false)
	renderImmediate(d)

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("task was not cancelled")
	}
	assert.Equal(t, 0, d.TaskCount())
	assert.Equal(t, TaskCancelled, task.State())
	assert.Equal(t, 1, disposed)
}

func TestScope_UnmountOrder(t *testing.T) {
	var show *State[bool]
	var order []string
	var task *Task

	disposer := func(name string) func() *disposeFunc {
		return func() *disposeFunc {
			return &disposeFunc{fn: func() {
				order = append(order, name+":"+task.State().String())
			}}
		}
	}
	child := Func("worker", func(cx *Scope) (Node, error) {
		UseHook(cx, disposer("first"))
		task = UseHook(cx, func() *Task {
			return cx.Spawn(func(ctx context.Context, post Post) error {
				<-ctx.Done()
				return ctx.Err()
			})
		})
		UseHook(cx, disposer("second"))
		UseHook(cx, disposer("third"))
		return cx.Text("busy"), nil
	})
	d := newTestDom(t, toggleApp(&show, child))
	rebuild(t, d)
	require.Equal(t, TaskPending, task.State())

	show.Set(false)
	renderImmediate(d)

	cancelled := TaskCancelled.String()
	assert.Equal(t, []string{
		"third:" + cancelled,
		"second:" + cancelled,
		"first:" + cancelled,
	}, order)
}

func TestScope_UnmountRemovesDescendants(t *testing.T) {
	var show *State[bool]
	leaf := Func("leaf", func(cx *Scope) (Node, error) { return cx.Text("leaf"), nil })
	middle := Func("middle", func(cx *Scope) (Node, error) {
		return cx.Fragment(cx.Component(leaf), cx.Text("tail")), nil
	})
	d := newTestDom(t, toggleApp(&show, middle))
	rebuild(t, d)

	require.Equal(t, 3, d.ScopeCount())
	assert.Equal(t, []ScopeID{1, 2}, d.Descendants(RootScopeID))

	show.Set(false)
	edits := renderImmediate(d)

	// Only the first top-level node is replaced; the rest are removed.
	assert.Equal(t, []mutation.Mutation{
		mutation.CreatePlaceholder(3),
		mutation.ReplaceWith(1, 1),
		mutation.Remove(2),
	}, edits)
	assert.Equal(t, 1, d.ScopeCount())
	assert.Equal(t, 1, d.ElementCount())
}

func TestScopeArena_CreateAndRelease(t *testing.T) {
	a := &scopeArena{}
	c := Func("c", func(cx *Scope) (Node, error) { return Node{}, nil })

	root := a.create(nil, nil, c)
	child := a.create(nil, root, c)
	grandchild := a.create(nil, child, c)

	assert.Equal(t, ScopeID(0), root.id)
	assert.Equal(t, uint32(2), grandchild.height)
	assert.Equal(t, []ScopeID{1, 2}, a.descendants(0))
	assert.Equal(t, 3, a.live())

	a.release(grandchild)
	assert.Empty(t, child.children)
	_, ok := a.lookup(2)
	assert.False(t, ok)

	reused := a.create(nil, root, c)
	assert.Equal(t, ScopeID(2), reused.id)
	assert.Equal(t, uint32(1), reused.height)
	assert.Greater(t, reused.epoch, grandchild.epoch)
}

func TestSlab_ReusesFreedIDs(t *testing.T) {
	s := newSlab[string]()

	a := s.insert("a")
	b := s.insert("b")
	assert.Equal(t, uint32(1), a)
	assert.Equal(t, uint32(2), b)

	s.remove(a)
	_, ok := s.get(a)
	assert.False(t, ok)
	assert.Equal(t, 1, s.len())

	c := s.insert("c")
	assert.Equal(t, a, c)
	v, ok := s.get(c)
	require.True(t, ok)
	assert.Equal(t, "c", v)

	// Id 0 is never handed out.
	_, ok = s.get(0)
	assert.False(t, ok)
	s.remove(0)
	assert.Equal(t, 2, s.len())
}

type disposeCounter struct{ n *int }

func (c *disposeCounter) Dispose() { *c.n++ }

type disposeFunc struct{ fn func() }

func (f *disposeFunc) Dispose() { f.fn() }
