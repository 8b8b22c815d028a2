package template

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/vtree/internal/canonical"
)

// ErrInvalidTemplate is wrapped by every validation failure from New.
var ErrInvalidTemplate = errors.New("template: invalid template")

// ID is the stable identity of a template, typically its source location.
type ID string

// NodeKind distinguishes the variants of a template node.
type NodeKind uint8

const (
	// KindElement is a static element with attributes and children.
	KindElement NodeKind = iota + 1
	// KindText is static text.
	KindText
	// KindDynamic is a numbered slot filled at render time.
	KindDynamic
)

func (k NodeKind) String() string {
	switch k {
	case KindElement:
		return "element"
	case KindText:
		return "text"
	case KindDynamic:
		return "dynamic"
	default:
		return "unknown"
	}
}

// Node is one node in a template tree.
type Node struct {
	Kind      NodeKind    `json:"kind" msgpack:"kind"`
	Tag       string      `json:"tag,omitempty" msgpack:"tag,omitempty"`
	Namespace string      `json:"namespace,omitempty" msgpack:"namespace,omitempty"`
	Attrs     []Attribute `json:"attrs,omitempty" msgpack:"attrs,omitempty"`
	Children  []Node      `json:"children,omitempty" msgpack:"children,omitempty"`
	Text      string      `json:"text,omitempty" msgpack:"text,omitempty"`
	Slot      int         `json:"slot,omitempty" msgpack:"slot,omitempty"`
}

// AttrKind distinguishes static attributes from dynamic attribute slots.
type AttrKind uint8

const (
	// AttrStatic has its name and value fixed in the template.
	AttrStatic AttrKind = iota + 1
	// AttrDynamic is a numbered slot filled at render time.
	AttrDynamic
)

// Attribute is one entry of an element's attribute list.
type Attribute struct {
	Kind      AttrKind `json:"kind" msgpack:"kind"`
	Name      string   `json:"name,omitempty" msgpack:"name,omitempty"`
	Namespace string   `json:"namespace,omitempty" msgpack:"namespace,omitempty"`
	Value     string   `json:"value,omitempty" msgpack:"value,omitempty"`
	Slot      int      `json:"slot,omitempty" msgpack:"slot,omitempty"`
}

// Element builds a static element node.
func Element(tag string, attrs []Attribute, children ...Node) Node {
	return Node{Kind: KindElement, Tag: tag, Attrs: attrs, Children: children}
}

// ElementNS builds a static element node in a namespace (for example SVG).
func ElementNS(tag, namespace string, attrs []Attribute, children ...Node) Node {
	return Node{Kind: KindElement, Tag: tag, Namespace: namespace, Attrs: attrs, Children: children}
}

// Text builds a static text node.
func Text(s string) Node {
	return Node{Kind: KindText, Text: s}
}

// Dynamic builds a dynamic node slot.
func Dynamic(slot int) Node {
	return Node{Kind: KindDynamic, Slot: slot}
}

// Attrs is shorthand for an attribute list.
func Attrs(attrs ...Attribute) []Attribute {
	return attrs
}

// Static builds a static attribute.
func Static(name, value string) Attribute {
	return Attribute{Kind: AttrStatic, Name: name, Value: value}
}

// StaticNS builds a namespaced static attribute.
func StaticNS(name, namespace, value string) Attribute {
	return Attribute{Kind: AttrStatic, Name: name, Namespace: namespace, Value: value}
}

// DynamicAttr builds a dynamic attribute slot.
func DynamicAttr(slot int) Attribute {
	return Attribute{Kind: AttrDynamic, Slot: slot}
}

// Path addresses a node inside a template. The first element is the root
// index; the rest are child indexes.
type Path []int

// String renders a path as dot-separated indexes.
func (p Path) String() string {
	parts := make([]string, len(p))
	for i, n := range p {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ".")
}

// HasPrefix reports whether prefix addresses p or one of its ancestors.
func (p Path) HasPrefix(prefix Path) bool {
	return len(prefix) <= len(p) && slices.Equal(p[:len(prefix)], prefix)
}

// Template is an immutable, validated template shape.
type Template struct {
	ID    ID     `json:"id" msgpack:"id"`
	Roots []Node `json:"roots" msgpack:"roots"`

	nodePaths []Path
	attrPaths []Path
	nodeOrder []int
	hash      string
}

// New validates roots and builds a template.
func New(id ID, roots ...Node) (*Template, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty id", ErrInvalidTemplate)
	}
	if len(roots) == 0 {
		return nil, fmt.Errorf("%w: %s has no roots", ErrInvalidTemplate, id)
	}

	t := &Template{ID: id, Roots: roots}
	if err := t.index(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidTemplate, id, err)
	}

	hash, err := canonical.Hash(canonical.DomainTemplate, t.shape())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidTemplate, id, err)
	}
	t.hash = hash
	return t, nil
}

// Must is like New but panics on error.
// Intended for package-level template variables.
func Must(t *Template, err error) *Template {
	if err != nil {
		panic(err)
	}
	return t
}

// Rebuild re-validates a template decoded from a wire format, restoring the
// path tables that are not serialized.
func Rebuild(t *Template) (*Template, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil template", ErrInvalidTemplate)
	}
	return New(t.ID, t.Roots...)
}

func (t *Template) index() error {
	nodes := map[int]Path{}
	attrs := map[int]Path{}

	var walk func(n Node, path Path) error
	walk = func(n Node, path Path) error {
		switch n.Kind {
		case KindElement:
			if n.Tag == "" {
				return fmt.Errorf("element at %s has no tag", path)
			}
			for _, a := range n.Attrs {
				switch a.Kind {
				case AttrStatic:
					if a.Name == "" {
						return fmt.Errorf("static attribute at %s has no name", path)
					}
				case AttrDynamic:
					if _, dup := attrs[a.Slot]; dup {
						return fmt.Errorf("duplicate attribute slot %d", a.Slot)
					}
					attrs[a.Slot] = slices.Clone(path)
				default:
					return fmt.Errorf("attribute at %s has unknown kind %d", path, a.Kind)
				}
			}
			for i, c := range n.Children {
				if err := walk(c, append(slices.Clone(path), i)); err != nil {
					return err
				}
			}
		case KindText:
		case KindDynamic:
			if _, dup := nodes[n.Slot]; dup {
				return fmt.Errorf("duplicate node slot %d", n.Slot)
			}
			nodes[n.Slot] = slices.Clone(path)
		default:
			return fmt.Errorf("node at %s has unknown kind %d", path, n.Kind)
		}
		return nil
	}

	for i, r := range t.Roots {
		if err := walk(r, Path{i}); err != nil {
			return err
		}
	}

	var err error
	if t.nodePaths, err = dense("node", nodes); err != nil {
		return err
	}
	if t.attrPaths, err = dense("attribute", attrs); err != nil {
		return err
	}

	t.nodeOrder = make([]int, len(t.nodePaths))
	for i := range t.nodeOrder {
		t.nodeOrder[i] = i
	}
	slices.SortFunc(t.nodeOrder, func(a, b int) int {
		return slices.Compare(t.nodePaths[a], t.nodePaths[b])
	})
	return nil
}

func dense(kind string, slots map[int]Path) ([]Path, error) {
	paths := make([]Path, len(slots))
	for slot, p := range slots {
		if slot < 0 || slot >= len(slots) {
			return nil, fmt.Errorf("%s slots must be numbered 0..%d, found %d", kind, len(slots)-1, slot)
		}
		paths[slot] = p
	}
	return paths, nil
}

// NodeSlots returns the number of dynamic node slots.
func (t *Template) NodeSlots() int { return len(t.nodePaths) }

// AttrSlots returns the number of dynamic attribute slots.
func (t *Template) AttrSlots() int { return len(t.attrPaths) }

// NodePath returns the path of a dynamic node slot.
func (t *Template) NodePath(slot int) Path { return t.nodePaths[slot] }

// AttrPath returns the path of the element owning a dynamic attribute slot.
func (t *Template) AttrPath(slot int) Path { return t.attrPaths[slot] }

// NodeSlotsByPath returns node slot numbers sorted by document position.
func (t *Template) NodeSlotsByPath() []int { return t.nodeOrder }

// Fingerprint is a content hash of the template shape. Two templates with
// the same fingerprint render identically.
func (t *Template) Fingerprint() string { return t.hash }

// Compatible reports whether other can replace t during hot reload: same
// identity and the same number of node and attribute slots.
func (t *Template) Compatible(other *Template) bool {
	return t.ID == other.ID &&
		t.NodeSlots() == other.NodeSlots() &&
		t.AttrSlots() == other.AttrSlots()
}

// RootIsDynamic reports whether root i is a dynamic slot, returning the slot.
func (t *Template) RootIsDynamic(i int) (int, bool) {
	r := t.Roots[i]
	return r.Slot, r.Kind == KindDynamic
}

// NodeAt returns the template node at path.
func (t *Template) NodeAt(p Path) (Node, bool) {
	if len(p) == 0 || p[0] < 0 || p[0] >= len(t.Roots) {
		return Node{}, false
	}
	n := t.Roots[p[0]]
	for _, i := range p[1:] {
		if n.Kind != KindElement || i < 0 || i >= len(n.Children) {
			return Node{}, false
		}
		n = n.Children[i]
	}
	return n, true
}

func (t *Template) shape() map[string]any {
	roots := make([]any, len(t.Roots))
	for i, r := range t.Roots {
		roots[i] = nodeShape(r)
	}
	return map[string]any{"id": string(t.ID), "roots": roots}
}

func nodeShape(n Node) map[string]any {
	switch n.Kind {
	case KindText:
		return map[string]any{"text": n.Text}
	case KindDynamic:
		return map[string]any{"dynamic": n.Slot}
	}
	attrs := make([]any, len(n.Attrs))
	for i, a := range n.Attrs {
		if a.Kind == AttrDynamic {
			attrs[i] = map[string]any{"dynamic": a.Slot}
			continue
		}
		attrs[i] = map[string]any{"name": a.Name, "namespace": a.Namespace, "value": a.Value}
	}
	children := make([]any, len(n.Children))
	for i, c := range n.Children {
		children[i] = nodeShape(c)
	}
	return map[string]any{
		"tag":       n.Tag,
		"namespace": n.Namespace,
		"attrs":     attrs,
		"children":  children,
	}
}
