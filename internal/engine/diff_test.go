package engine

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vtree/internal/mutation"
	"github.com/roach88/vtree/internal/template"
)

func keys(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = strconv.Itoa(i)
	}
	return out
}

func TestDiff_KeyedRebuild(t *testing.T) {
	order := keys(3)
	d := newTestDom(t, keyedList(&order))

	assert.Equal(t, []mutation.Mutation{
		mutation.RegisterTemplate(plainTpl),
		mutation.LoadTemplate("test:plain", 0, 1),
		mutation.LoadTemplate("test:plain", 0, 2),
		mutation.LoadTemplate("test:plain", 0, 3),
		mutation.AppendChildren(mutation.Root, 3),
	}, rebuild(t, d))
}

func TestDiff_Keyed(t *testing.T) {
	tests := []struct {
		name   string
		before []string
		after  []string
		want   []mutation.Mutation
	}{
		{
			name:   "single move uses one push",
			before: keys(10),
			after:  []string{"0", "1", "2", "3", "6", "4", "5", "7", "8", "9"},
			want: []mutation.Mutation{
				mutation.PushRoot(7),
				mutation.InsertBefore(5, 1),
			},
		},
		{
			name:   "unchanged",
			before: keys(4),
			after:  keys(4),
			want:   nil,
		},
		{
			name:   "append",
			before: []string{"0", "1", "2"},
			after:  []string{"0", "1", "2", "3"},
			want: []mutation.Mutation{
				mutation.LoadTemplate("test:plain", 0, 4),
				mutation.InsertAfter(3, 1),
			},
		},
		{
			name:   "prepend",
			before: []string{"1", "2"},
			after:  []string{"0", "1", "2"},
			want: []mutation.Mutation{
				mutation.LoadTemplate("test:plain", 0, 3),
				mutation.InsertBefore(1, 1),
			},
		},
		{
			name:   "insert in middle",
			before: []string{"0", "2"},
			after:  []string{"0", "1", "2"},
			want: []mutation.Mutation{
				mutation.LoadTemplate("test:plain", 0, 3),
				mutation.InsertAfter(1, 1),
			},
		},
		{
			name:   "remove middle",
			before: []string{"0", "1", "2"},
			after:  []string{"0", "2"},
			want: []mutation.Mutation{
				mutation.Remove(2),
			},
		},
		{
			name:   "remove tail",
			before: []string{"0", "1", "2"},
			after:  []string{"0"},
			want: []mutation.Mutation{
				mutation.Remove(2),
				mutation.Remove(3),
			},
		},
		{
			name:   "reverse",
			before: []string{"0", "1", "2"},
			after:  []string{"2", "1", "0"},
			want: []mutation.Mutation{
				mutation.PushRoot(3),
				mutation.PushRoot(2),
				mutation.InsertBefore(1, 2),
			},
		},
		{
			name:   "move first to end",
			before: []string{"a", "b", "c", "d"},
			after:  []string{"b", "c", "d", "a"},
			want: []mutation.Mutation{
				mutation.PushRoot(1),
				mutation.InsertAfter(4, 1),
			},
		},
		{
			name:   "nothing shared",
			before: []string{"0", "1"},
			after:  []string{"2", "3"},
			want: []mutation.Mutation{
				mutation.Remove(2),
				mutation.LoadTemplate("test:plain", 0, 2),
				mutation.LoadTemplate("test:plain", 0, 3),
				mutation.ReplaceWith(1, 2),
			},
		},
		{
			name:   "replace one in middle of moves",
			before: []string{"a", "b", "c", "d", "e"},
			after:  []string{"a", "c", "x", "b", "e"},
			want: []mutation.Mutation{
				mutation.Remove(4),
				mutation.PushRoot(3),
				mutation.LoadTemplate("test:plain", 0, 4),
				mutation.InsertBefore(2, 2),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := append([]string(nil), tt.before...)
			d := newTestDom(t, keyedList(&order))
			rebuild(t, d)

			order = append(order[:0:0], tt.after...)
			d.MarkDirty(RootScopeID, Immediate)

			assert.Equal(t, tt.want, renderImmediate(d))
			assert.Equal(t, len(tt.after), d.ElementCount())
		})
	}
}

func TestDiff_KeyedKeepsMovedContent(t *testing.T) {
	items := []string{"a", "b", "c"}
	d := newTestDom(t, textList(&items, true))
	rebuild(t, d)

	items = []string{"c", "a", "b"}
	d.MarkDirty(RootScopeID, Immediate)

	// Only the moved node is touched; its text node comes with it.
	assert.Equal(t, []mutation.Mutation{
		mutation.PushRoot(5),
		mutation.InsertBefore(1, 1),
	}, renderImmediate(d))
}

func TestDiff_UnkeyedInsertAtFront(t *testing.T) {
	items := []string{"a", "b"}
	d := newTestDom(t, textList(&items, false))
	rebuild(t, d)

	items = []string{"x", "a", "b"}
	d.MarkDirty(RootScopeID, Immediate)

	// Positional matching rewrites every shifted text and appends the last.
	assert.Equal(t, []mutation.Mutation{
		mutation.LoadTemplate("test:item", 0, 5),
		mutation.CreateTextNode("b", 6),
		mutation.ReplacePlaceholder(template.Path{0}, 1),
		mutation.InsertAfter(3, 1),
		mutation.SetText("x", 2),
		mutation.SetText("a", 4),
	}, renderImmediate(d))
}

func TestDiff_KeyedInsertAtFront(t *testing.T) {
	items := []string{"a", "b"}
	d := newTestDom(t, textList(&items, true))
	rebuild(t, d)

	items = []string{"x", "a", "b"}
	d.MarkDirty(RootScopeID, Immediate)

	assert.Equal(t, []mutation.Mutation{
		mutation.LoadTemplate("test:item", 0, 5),
		mutation.CreateTextNode("x", 6),
		mutation.ReplacePlaceholder(template.Path{0}, 1),
		mutation.InsertBefore(1, 1),
	}, renderImmediate(d))
}

func TestDiff_UnkeyedShrink(t *testing.T) {
	items := []string{"a", "b", "c"}
	d := newTestDom(t, textList(&items, false))
	rebuild(t, d)

	items = []string{"a"}
	d.MarkDirty(RootScopeID, Immediate)

	assert.Equal(t, []mutation.Mutation{
		mutation.Remove(3),
		mutation.Remove(5),
	}, renderImmediate(d))
	assert.Equal(t, 2, d.ElementCount())
}

func TestDiff_EmptyListBecomesPlaceholder(t *testing.T) {
	items := []string{"a"}
	d := newTestDom(t, textList(&items, true))
	rebuild(t, d)

	items = nil
	d.MarkDirty(RootScopeID, Immediate)

	assert.Equal(t, []mutation.Mutation{
		mutation.CreatePlaceholder(3),
		mutation.ReplaceWith(1, 1),
	}, renderImmediate(d))

	items = []string{"b"}
	d.MarkDirty(RootScopeID, Immediate)

	assert.Equal(t, []mutation.Mutation{
		mutation.LoadTemplate("test:item", 0, 1),
		mutation.CreateTextNode("b", 2),
		mutation.ReplacePlaceholder(template.Path{0}, 1),
		mutation.ReplaceWith(3, 1),
	}, renderImmediate(d))
}

func TestDiff_KeyMixingRejected(t *testing.T) {
	d := newTestDom(t, Func("mixed", func(cx *Scope) (Node, error) {
		return cx.Fragment(
			cx.Keyed("a", plainTpl, nil, nil),
			cx.Node(plainTpl, nil, nil),
		), nil
	}))

	requireViolation(t, ViolationKeyMixing, func() { d.Rebuild(mutation.Discard) })
}

func TestDiff_DuplicateKeyRejected(t *testing.T) {
	order := []string{"a", "b", "a"}
	d := newTestDom(t, keyedList(&order))

	requireViolation(t, ViolationDuplicateKey, func() { d.Rebuild(mutation.Discard) })
}

func TestDiff_Attributes(t *testing.T) {
	title := func(v string) Attr { return AttrText("title", v) }

	tests := []struct {
		name   string
		before Attr
		after  Attr
		want   []mutation.Mutation
	}{
		{
			name:   "value changed",
			before: title("a"),
			after:  title("b"),
			want:   []mutation.Mutation{mutation.SetAttribute("title", "", mutation.TextValue("b"), 1)},
		},
		{
			name:   "value unchanged",
			before: title("a"),
			after:  title("a"),
		},
		{
			name:   "value cleared",
			before: title("a"),
			after:  AttrNone("title"),
			want:   []mutation.Mutation{mutation.RemoveAttribute("title", "", 1)},
		},
		{
			name:   "value set from none",
			before: AttrNone("title"),
			after:  AttrInt("title", 3),
			want:   []mutation.Mutation{mutation.SetAttribute("title", "", mutation.IntValue(3), 1)},
		},
		{
			name:   "type changed",
			before: AttrInt("tabindex", 1),
			after:  AttrText("tabindex", "1"),
			want:   []mutation.Mutation{mutation.SetAttribute("tabindex", "", mutation.TextValue("1"), 1)},
		},
		{
			name:   "listener swapped for value",
			before: On("click", func(*Event) {}),
			after:  AttrBool("hidden", true),
			want: []mutation.Mutation{
				mutation.RemoveEventListener("click", 1),
				mutation.SetAttribute("hidden", "", mutation.BoolValue(true), 1),
			},
		},
		{
			name:   "value swapped for listener",
			before: title("a"),
			after:  On("input", func(*Event) {}),
			want: []mutation.Mutation{
				mutation.RemoveAttribute("title", "", 1),
				mutation.NewEventListener("input", 1),
			},
		},
		{
			name:   "listener closure replaced",
			before: On("click", func(*Event) {}),
			after:  On("click", func(*Event) {}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			current := tt.before
			d := newTestDom(t, Func("panel", func(cx *Scope) (Node, error) {
				return cx.Node(panelTpl, []Dynamic{Placeholder()}, []Attr{current}), nil
			}))
			rebuild(t, d)

			current = tt.after
			d.MarkDirty(RootScopeID, Immediate)
			assert.Equal(t, tt.want, renderImmediate(d))
		})
	}
}

func TestDiff_DynamicSlotVariants(t *testing.T) {
	child := Func("child", func(cx *Scope) (Node, error) { return cx.Text("child"), nil })

	tests := []struct {
		name   string
		before Dynamic
		after  Dynamic
		want   []mutation.Mutation
	}{
		{
			name:   "text to placeholder",
			before: Text("a"),
			after:  Placeholder(),
			want: []mutation.Mutation{
				mutation.CreatePlaceholder(3),
				mutation.ReplaceWith(2, 1),
			},
		},
		{
			name:   "placeholder to component",
			before: Placeholder(),
			after:  Child(child),
			want: []mutation.Mutation{
				mutation.CreateTextNode("child", 3),
				mutation.ReplaceWith(2, 1),
			},
		},
		{
			name:   "component to text",
			before: Child(child),
			after:  Text("b"),
			want: []mutation.Mutation{
				mutation.CreateTextNode("b", 3),
				mutation.ReplaceWith(2, 1),
			},
		},
		{
			name:   "nil component is a placeholder",
			before: Child(nil),
			after:  Placeholder(),
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			current := tt.before
			d := newTestDom(t, Func("panel", func(cx *Scope) (Node, error) {
				return cx.Node(panelTpl, []Dynamic{current}, []Attr{AttrNone("title")}), nil
			}))
			rebuild(t, d)

			current = tt.after
			d.MarkDirty(RootScopeID, Immediate)
			assert.Equal(t, tt.want, renderImmediate(d))
			assert.Equal(t, 2, d.ElementCount())
		})
	}
}

func TestDiff_TemplateChangeReplacesNode(t *testing.T) {
	usePanel := true
	d := newTestDom(t, Func("switch", func(cx *Scope) (Node, error) {
		if usePanel {
			return cx.Node(panelTpl, []Dynamic{Text("x")}, []Attr{AttrNone("title")}), nil
		}
		return cx.Node(plainTpl, nil, nil), nil
	}))
	rebuild(t, d)

	usePanel = false
	d.MarkDirty(RootScopeID, Immediate)

	assert.Equal(t, []mutation.Mutation{
		mutation.RegisterTemplate(plainTpl),
		mutation.LoadTemplate("test:plain", 0, 3),
		mutation.ReplaceWith(1, 1),
	}, renderImmediate(d))
	assert.Equal(t, 1, d.ElementCount())
}

func TestDiff_NestedAttributesGetNodeIDs(t *testing.T) {
	d := newTestDom(t, Func("nested", func(cx *Scope) (Node, error) {
		return cx.Node(nestedTpl,
			[]Dynamic{Text("go")},
			[]Attr{AttrText("class", "outer"), On("click", func(*Event) {})},
		), nil
	}))

	edits := rebuild(t, d)
	require.Equal(t, []mutation.Mutation{
		mutation.RegisterTemplate(nestedTpl),
		mutation.LoadTemplate("test:nested", 0, 1),
		mutation.SetAttribute("class", "", mutation.TextValue("outer"), 1),
		mutation.AssignNodeID(template.Path{0}, 2),
		mutation.NewEventListener("click", 2),
		mutation.CreateTextNode("go", 3),
		mutation.ReplacePlaceholder(template.Path{0, 0}, 1),
		mutation.AppendChildren(mutation.Root, 1),
	}, edits)
}

func TestLongestIncreasing(t *testing.T) {
	tests := []struct {
		name string
		seq  []int
		want []int
	}{
		{"empty", nil, []int{}},
		{"sorted", []int{0, 1, 2}, []int{0, 1, 2}},
		{"reversed", []int{2, 1, 0}, []int{2}},
		{"rotated", []int{2, 0, 1}, []int{1, 2}},
		{"skips new entries", []int{-1, 0, -1, 1}, []int{1, 3}},
		{"mixed", []int{3, 1, 2, 0, 4}, []int{1, 2, 4}},
		{"all new", []int{-1, -1}, []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, longestIncreasing(tt.seq))
		})
	}
}
