package dom

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrDetached is returned when an operation needs a parent and the node
	// has none.
	ErrDetached = errors.New("dom: node is detached")

	// ErrBadPath is returned when a child path does not resolve.
	ErrBadPath = errors.New("dom: path does not resolve")
)

// Kind distinguishes node variants.
type Kind uint8

const (
	KindRoot Kind = iota + 1
	KindElement
	KindText
	KindPlaceholder
)

func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindElement:
		return "element"
	case KindText:
		return "text"
	case KindPlaceholder:
		return "placeholder"
	}
	return "unknown"
}

// Attr is one attribute of an element.
type Attr struct {
	Name      string
	Namespace string
	Value     string
}

type attrKey struct {
	namespace string
	name      string
}

// Node is a document node. The zero value is not usable; build nodes with
// the New functions.
type Node struct {
	Kind      Kind
	Tag       string
	Namespace string
	Text      string
	Children  []*Node

	// ID is the renderer id the node was registered under, zero if none.
	ID uint64

	attrs     map[attrKey]string
	listeners map[string]bool
	parent    *Node
}

// NewRoot returns an empty mount point.
func NewRoot() *Node { return &Node{Kind: KindRoot} }

// NewElement returns an element with no attributes or children.
func NewElement(tag, namespace string) *Node {
	return &Node{Kind: KindElement, Tag: tag, Namespace: namespace}
}

// NewText returns a text node.
func NewText(s string) *Node { return &Node{Kind: KindText, Text: s} }

// NewPlaceholder returns an empty anchor.
func NewPlaceholder() *Node { return &Node{Kind: KindPlaceholder} }

// Parent returns the node's parent, or nil.
func (n *Node) Parent() *Node { return n.parent }

// SetAttr sets an attribute.
func (n *Node) SetAttr(name, namespace, value string) {
	if n.attrs == nil {
		n.attrs = make(map[attrKey]string)
	}
	n.attrs[attrKey{namespace: namespace, name: name}] = value
}

// RemoveAttr clears an attribute.
func (n *Node) RemoveAttr(name, namespace string) {
	delete(n.attrs, attrKey{namespace: namespace, name: name})
}

// Attr returns an attribute value.
func (n *Node) Attr(name, namespace string) (string, bool) {
	v, ok := n.attrs[attrKey{namespace: namespace, name: name}]
	return v, ok
}

// Attrs returns the attributes sorted by namespace, then name.
func (n *Node) Attrs() []Attr {
	out := make([]Attr, 0, len(n.attrs))
	for k, v := range n.attrs {
		out = append(out, Attr{Name: k.name, Namespace: k.namespace, Value: v})
	}
	slices.SortFunc(out, func(a, b Attr) int {
		if c := strings.Compare(a.Namespace, b.Namespace); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

// Listen records a listener for event.
func (n *Node) Listen(event string) {
	if n.listeners == nil {
		n.listeners = make(map[string]bool)
	}
	n.listeners[event] = true
}

// Unlisten drops the listener for event.
func (n *Node) Unlisten(event string) { delete(n.listeners, event) }

// Listening reports whether a listener for event is attached.
func (n *Node) Listening(event string) bool { return n.listeners[event] }

// Listeners returns the attached event names, sorted.
func (n *Node) Listeners() []string {
	out := make([]string, 0, len(n.listeners))
	for name := range n.listeners {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// AppendChild detaches each node from its current parent and appends it.
func (n *Node) AppendChild(children ...*Node) {
	for _, c := range children {
		c.Detach()
		c.parent = n
	}
	n.Children = append(n.Children, children...)
}

// InsertBefore puts nodes immediately before n in n's parent.
func (n *Node) InsertBefore(nodes ...*Node) error {
	return n.insertAt(0, nodes)
}

// InsertAfter puts nodes immediately after n in n's parent.
func (n *Node) InsertAfter(nodes ...*Node) error {
	return n.insertAt(1, nodes)
}

func (n *Node) insertAt(offset int, nodes []*Node) error {
	p := n.parent
	if p == nil {
		return ErrDetached
	}
	for _, c := range nodes {
		c.Detach()
	}
	// Detaching a moved sibling can shift n.
	i := p.indexOf(n) + offset
	for _, c := range nodes {
		c.parent = p
	}
	p.Children = slices.Insert(p.Children, i, nodes...)
	return nil
}

// ReplaceWith puts nodes where n is and detaches n.
func (n *Node) ReplaceWith(nodes ...*Node) error {
	if n.parent == nil {
		return ErrDetached
	}
	if err := n.InsertAfter(nodes...); err != nil {
		return err
	}
	n.Detach()
	return nil
}

// Detach removes n from its parent. Detaching a detached node is a no-op.
func (n *Node) Detach() {
	p := n.parent
	if p == nil {
		return
	}
	if i := p.indexOf(n); i >= 0 {
		p.Children = slices.Delete(p.Children, i, i+1)
	}
	n.parent = nil
}

func (n *Node) indexOf(c *Node) int {
	return slices.Index(n.Children, c)
}

// ChildAt follows a path of child indexes from n.
func (n *Node) ChildAt(path []int) (*Node, error) {
	cur := n
	for depth, i := range path {
		if i < 0 || i >= len(cur.Children) {
			return nil, fmt.Errorf("%w: index %d at depth %d of %v", ErrBadPath, i, depth, path)
		}
		cur = cur.Children[i]
	}
	return cur, nil
}

// Walk visits n and its descendants in document order.
func (n *Node) Walk(visit func(*Node)) {
	visit(n)
	for _, c := range n.Children {
		c.Walk(visit)
	}
}

// Clone deep-copies n without its parent link, ids or listeners.
func (n *Node) Clone() *Node {
	c := &Node{Kind: n.Kind, Tag: n.Tag, Namespace: n.Namespace, Text: n.Text}
	for k, v := range n.attrs {
		c.SetAttr(k.name, k.namespace, v)
	}
	for _, child := range n.Children {
		c.AppendChild(child.Clone())
	}
	return c
}
