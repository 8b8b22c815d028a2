package dom

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func list(items ...string) (*Node, []*Node) {
	ul := NewElement("ul", "")
	var lis []*Node
	for _, s := range items {
		li := NewElement("li", "")
		li.AppendChild(NewText(s))
		lis = append(lis, li)
	}
	ul.AppendChild(lis...)
	return ul, lis
}

func TestNode_InsertAndMove(t *testing.T) {
	ul, lis := list("a", "b", "c")

	// Move c to the front.
	require.NoError(t, lis[0].InsertBefore(lis[2]))
	assert.Equal(t, "<ul><li>c</li><li>a</li><li>b</li></ul>", HTML(ul))

	// Move c after b, where detaching c shifts b's index.
	require.NoError(t, lis[1].InsertAfter(lis[2]))
	assert.Equal(t, "<ul><li>a</li><li>b</li><li>c</li></ul>", HTML(ul))
	assert.Same(t, ul, lis[2].Parent())
}

func TestNode_ReplaceWith(t *testing.T) {
	ul, lis := list("a", "b")
	x, y := NewText("x"), NewText("y")

	require.NoError(t, lis[0].ReplaceWith(x, y))
	assert.Equal(t, "<ul>xy<li>b</li></ul>", HTML(ul))
	assert.Nil(t, lis[0].Parent())

	assert.ErrorIs(t, lis[0].ReplaceWith(NewText("z")), ErrDetached)
	assert.ErrorIs(t, lis[0].InsertBefore(NewText("z")), ErrDetached)
}

func TestNode_Detach(t *testing.T) {
	ul, lis := list("a", "b")
	lis[0].Detach()
	lis[0].Detach()
	assert.Equal(t, "<ul><li>b</li></ul>", HTML(ul))
}

func TestNode_ChildAt(t *testing.T) {
	ul, lis := list("a", "b")

	got, err := ul.ChildAt([]int{1})
	require.NoError(t, err)
	assert.Same(t, lis[1], got)

	got, err = ul.ChildAt([]int{1, 0})
	require.NoError(t, err)
	assert.Equal(t, "b", got.Text)

	_, err = ul.ChildAt([]int{2})
	assert.ErrorIs(t, err, ErrBadPath)
}

func TestNode_Attrs(t *testing.T) {
	n := NewElement("svg", "")
	n.SetAttr("width", "", "10")
	n.SetAttr("href", "xlink", "#a")
	n.SetAttr("class", "", "icon")
	n.RemoveAttr("width", "")

	v, ok := n.Attr("href", "xlink")
	assert.True(t, ok)
	assert.Equal(t, "#a", v)

	assert.Equal(t, []Attr{
		{Name: "class", Value: "icon"},
		{Name: "href", Namespace: "xlink", Value: "#a"},
	}, n.Attrs())
	assert.Equal(t, `<svg class="icon" xlink:href="#a"></svg>`, HTML(n))
}

func TestNode_Listeners(t *testing.T) {
	n := NewElement("button", "")
	n.Listen("click")
	n.Listen("blur")
	assert.True(t, n.Listening("click"))
	assert.Equal(t, []string{"blur", "click"}, n.Listeners())

	n.Unlisten("click")
	assert.False(t, n.Listening("click"))
	assert.Equal(t, "<button></button>", HTML(n))
}

func TestNode_Clone(t *testing.T) {
	ul, _ := list("a")
	ul.SetAttr("class", "", "x")
	ul.ID = 7

	c := ul.Clone()
	assert.Equal(t, HTML(ul), HTML(c))
	assert.Zero(t, c.ID)
	assert.Same(t, c, c.Children[0].Parent())

	c.Children[0].Detach()
	assert.Len(t, ul.Children, 1)
}

func TestHTML_Escapes(t *testing.T) {
	root := NewRoot()
	p := NewElement("p", "")
	p.SetAttr("title", "", `"quoted" & <tagged>`)
	p.AppendChild(NewText("1 < 2 & 3"))
	root.AppendChild(p, NewPlaceholder())

	assert.Equal(t,
		`<p title="&#34;quoted&#34; &amp; &lt;tagged&gt;">1 &lt; 2 &amp; 3</p><!--placeholder-->`,
		HTML(root))
}

func TestComponent(t *testing.T) {
	ul, _ := list("a")
	var buf bytes.Buffer
	require.NoError(t, Component(ul).Render(context.Background(), &buf))
	assert.Equal(t, "<ul><li>a</li></ul>", buf.String())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Component(ul).Render(ctx, &buf), context.Canceled)
}
