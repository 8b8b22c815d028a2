package engine

import (
	"fmt"

	"github.com/roach88/vtree/internal/bump"
	"github.com/roach88/vtree/internal/mutation"
	"github.com/roach88/vtree/internal/template"
)

// Node is a handle to a rendered template instance. Nodes live in the
// rendering scope's work-in-progress arena and are only valid for the render
// that built them; returning or storing one past that render panics on use.
//
// The zero Node renders as a placeholder.
type Node struct {
	ref bump.Ref
}

// IsZero reports whether n is the empty node.
func (n Node) IsZero() bool { return !n.ref.Valid() }

type dynKind uint8

const (
	dynText dynKind = iota + 1
	dynPlaceholder
	dynFragment
	dynComponent
)

func (k dynKind) String() string {
	switch k {
	case dynText:
		return "text"
	case dynPlaceholder:
		return "placeholder"
	case dynFragment:
		return "fragment"
	case dynComponent:
		return "component"
	}
	return "unknown"
}

// Dynamic is the value supplied for one dynamic node slot.
type Dynamic struct {
	kind  dynKind
	text  string
	nodes []Node
	comp  Component
}

// Text fills a slot with a text node.
func Text(s string) Dynamic { return Dynamic{kind: dynText, text: s} }

// Textf fills a slot with formatted text.
func Textf(format string, args ...any) Dynamic {
	return Dynamic{kind: dynText, text: fmt.Sprintf(format, args...)}
}

// Placeholder fills a slot with an empty anchor.
func Placeholder() Dynamic { return Dynamic{kind: dynPlaceholder} }

// Fragment fills a slot with a list of nodes. An empty list renders as a
// placeholder so later insertions have an anchor.
func Fragment(nodes ...Node) Dynamic { return Dynamic{kind: dynFragment, nodes: nodes} }

// Child fills a slot with a component instance.
func Child(c Component) Dynamic { return Dynamic{kind: dynComponent, comp: c} }

// Attr is the value supplied for one dynamic attribute slot.
type Attr struct {
	name      string
	namespace string
	value     mutation.Value
	listener  func(*Event)
}

// AttrText sets a string attribute.
func AttrText(name, value string) Attr {
	return Attr{name: name, value: mutation.TextValue(value)}
}

// AttrInt sets an integer attribute.
func AttrInt(name string, value int64) Attr {
	return Attr{name: name, value: mutation.IntValue(value)}
}

// AttrFloat sets a float attribute.
func AttrFloat(name string, value float64) Attr {
	return Attr{name: name, value: mutation.FloatValue(value)}
}

// AttrBool sets a boolean attribute.
func AttrBool(name string, value bool) Attr {
	return Attr{name: name, value: mutation.BoolValue(value)}
}

// AttrNone leaves the attribute unset.
func AttrNone(name string) Attr {
	return Attr{name: name}
}

// AttrNS sets a namespaced string attribute.
func AttrNS(namespace, name, value string) Attr {
	return Attr{name: name, namespace: namespace, value: mutation.TextValue(value)}
}

// On attaches a listener for event.
func On(event string, fn func(*Event)) Attr {
	return Attr{name: event, listener: fn}
}

// vnode is a template instance as stored in a scope arena.
type vnode struct {
	key   string
	keyed bool
	tpl   *template.Template
	dyn   bump.Span
	attrs bump.Span
	mount mountID
}

type dynamicNode struct {
	kind     dynKind
	text     string
	children bump.Span
	comp     Component
}

type attribute struct {
	name      string
	namespace string
	value     mutation.Value
	listener  func(*Event)
}

// frame is one side of a scope's double buffer.
type frame struct {
	vnodes *bump.Arena[vnode]
	dyn    *bump.Arena[dynamicNode]
	attrs  *bump.Arena[attribute]
	refs   *bump.Arena[bump.Ref]
}

func newFrame() *frame {
	return &frame{
		vnodes: bump.NewArena[vnode](4),
		dyn:    bump.NewArena[dynamicNode](8),
		attrs:  bump.NewArena[attribute](8),
		refs:   bump.NewArena[bump.Ref](8),
	}
}

// Reset releases everything allocated in the frame.
func (f *frame) Reset() {
	f.vnodes.Reset()
	f.dyn.Reset()
	f.attrs.Reset()
	f.refs.Reset()
}

// vref addresses a vnode together with the frame holding it.
type vref struct {
	f   *frame
	ref bump.Ref
}

func (v vref) node() *vnode { return v.f.vnodes.Get(v.ref) }

func (v vref) dynamic() []dynamicNode { return v.f.dyn.Slice(v.node().dyn) }

func (v vref) attributes() []attribute { return v.f.attrs.Slice(v.node().attrs) }

// children returns the vnodes of a fragment slot.
func (v vref) children(d *dynamicNode) []vref {
	refs := v.f.refs.Slice(d.children)
	out := make([]vref, len(refs))
	for i, r := range refs {
		out[i] = vref{f: v.f, ref: r}
	}
	return out
}
