package engine

import (
	"reflect"

	"github.com/roach88/vtree/internal/bump"
	"github.com/roach88/vtree/internal/mutation"
	"github.com/roach88/vtree/internal/template"
)

// ScopeID identifies a live component instance. IDs are reused after the
// instance is torn down.
type ScopeID uint32

// RootScopeID is the scope of the component passed to New.
const RootScopeID ScopeID = 0

// Scope is one mounted component instance: its hooks, its child scopes and
// the double buffer holding its rendered tree.
//
// Components receive their Scope as cx in Render. A Scope is only valid on
// the driver goroutine.
type Scope struct {
	dom       *VirtualDom
	id        ScopeID
	epoch     uint64
	parent    *Scope
	height    uint32
	children  []ScopeID
	component Component
	name      string

	hooks    []any
	hookIdx  int
	contexts map[reflect.Type]any
	effects  []func()

	buffers *bump.DoubleBuffer[*frame]
	root    bump.Ref
	renders uint64

	tasks     []TaskID
	suspended bool
	boundary  *boundaryState
	suspense  *suspenseState
	rendering bool
	alive     bool
}

// ID returns the scope's identifier.
func (s *Scope) ID() ScopeID { return s.id }

// Height returns the distance from the root scope.
func (s *Scope) Height() int { return int(s.height) }

// Parent returns the parent scope ID. ok is false for the root.
func (s *Scope) Parent() (ScopeID, bool) {
	if s.parent == nil {
		return 0, false
	}
	return s.parent.id, true
}

// Children returns child scope IDs in mount order.
func (s *Scope) Children() []ScopeID {
	return append([]ScopeID(nil), s.children...)
}

// Name returns the component's name.
func (s *Scope) Name() string { return s.name }

// Renders returns how many times the component has rendered.
func (s *Scope) Renders() uint64 { return s.renders }

// Suspended reports whether the last render suspended.
func (s *Scope) Suspended() bool { return s.suspended }

// MarkDirty schedules the scope for an immediate re-render.
func (s *Scope) MarkDirty() {
	s.dom.MarkDirty(s.id, Immediate)
}

// Suspend builds the error a render returns while waiting on reason.
func (s *Scope) Suspend(reason string) error {
	return &SuspendedError{Scope: s.id, Reason: reason}
}

// ResetError clears the error captured by this scope's ErrorBoundary and
// renders its child again.
func (s *Scope) ResetError() {
	if s.boundary == nil || s.boundary.err == nil {
		return
	}
	s.boundary.err = nil
	s.MarkDirty()
}

func (s *Scope) wip() *frame { return s.buffers.WIP() }

func (s *Scope) committed() vref {
	return vref{f: s.buffers.Committed(), ref: s.root}
}

func (s *Scope) mustRender(api string) {
	if !s.rendering {
		violate(ViolationNotRendering, s.id, "%s called outside render", api)
	}
}

// Node instantiates tpl with values for its dynamic slots.
func (s *Scope) Node(tpl *template.Template, nodes []Dynamic, attrs []Attr) Node {
	return s.build("", false, tpl, nodes, attrs)
}

// Keyed is Node with a list key. Siblings in a fragment must be all keyed or
// all unkeyed, with unique keys.
func (s *Scope) Keyed(key string, tpl *template.Template, nodes []Dynamic, attrs []Attr) Node {
	return s.build(key, true, tpl, nodes, attrs)
}

// Text renders a bare text node.
func (s *Scope) Text(text string) Node {
	return s.build("", false, slotTemplate, []Dynamic{Text(text)}, nil)
}

// Fragment renders a list of nodes without a wrapping element.
func (s *Scope) Fragment(nodes ...Node) Node {
	return s.build("", false, slotTemplate, []Dynamic{Fragment(nodes...)}, nil)
}

// Component renders a single child component.
func (s *Scope) Component(c Component) Node {
	return s.build("", false, slotTemplate, []Dynamic{Child(c)}, nil)
}

// Placeholder renders an empty anchor.
func (s *Scope) Placeholder() Node {
	return s.build("", false, slotTemplate, []Dynamic{Placeholder()}, nil)
}

func (s *Scope) build(key string, keyed bool, tpl *template.Template, nodes []Dynamic, attrs []Attr) Node {
	s.mustRender("Node")
	tpl = s.dom.resolveTemplate(tpl, s.id)
	if len(nodes) != tpl.NodeSlots() || len(attrs) != tpl.AttrSlots() {
		violate(ViolationSlotCount, s.id, "template %s takes %d nodes and %d attrs, got %d and %d",
			tpl.ID, tpl.NodeSlots(), tpl.AttrSlots(), len(nodes), len(attrs))
	}

	f := s.wip()
	dyn := make([]dynamicNode, len(nodes))
	for i, d := range nodes {
		dyn[i] = s.lower(f, d)
	}
	as := make([]attribute, len(attrs))
	for i, a := range attrs {
		as[i] = attribute{name: a.name, namespace: a.namespace, value: a.value, listener: a.listener}
	}

	ref := f.vnodes.Alloc(vnode{
		key:   key,
		keyed: keyed,
		tpl:   tpl,
		dyn:   f.dyn.AllocSlice(dyn),
		attrs: f.attrs.AllocSlice(as),
	})
	return Node{ref: ref}
}

func (s *Scope) lower(f *frame, d Dynamic) dynamicNode {
	switch d.kind {
	case dynText:
		return dynamicNode{kind: dynText, text: d.text}
	case dynComponent:
		if d.comp == nil {
			return dynamicNode{kind: dynPlaceholder}
		}
		return dynamicNode{kind: dynComponent, comp: d.comp}
	case dynFragment:
		refs := make([]bump.Ref, 0, len(d.nodes))
		for _, n := range d.nodes {
			if n.IsZero() {
				continue
			}
			if !f.vnodes.Owns(n.ref) {
				violate(ViolationStaleNode, s.id, "fragment child %s was not built in this render", n.ref)
			}
			refs = append(refs, n.ref)
		}
		if len(refs) == 0 {
			return dynamicNode{kind: dynPlaceholder}
		}
		checkKeys(s, f, refs)
		return dynamicNode{kind: dynFragment, children: f.refs.AllocSlice(refs)}
	default:
		return dynamicNode{kind: dynPlaceholder}
	}
}

// checkKeys rejects sibling lists that mix keyed and unkeyed nodes or
// repeat a key.
func checkKeys(s *Scope, f *frame, refs []bump.Ref) {
	keyed := f.vnodes.Get(refs[0]).keyed
	if !keyed {
		for _, r := range refs[1:] {
			if f.vnodes.Get(r).keyed {
				violate(ViolationKeyMixing, s.id, "keyed and unkeyed siblings in one list")
			}
		}
		return
	}

	seen := make(map[string]struct{}, len(refs))
	for _, r := range refs {
		n := f.vnodes.Get(r)
		if !n.keyed {
			violate(ViolationKeyMixing, s.id, "keyed and unkeyed siblings in one list")
		}
		if _, dup := seen[n.key]; dup {
			violate(ViolationDuplicateKey, s.id, "duplicate key %q", n.key)
		}
		seen[n.key] = struct{}{}
	}
}

// slotTemplate is a single dynamic root, used for text, fragment, component
// and placeholder renders.
var slotTemplate = template.Must(template.New("vtree:slot", template.Dynamic(0)))

// scopeArena owns every Scope and recycles IDs.
type scopeArena struct {
	scopes []*Scope
	free   []ScopeID
	epochs uint64
}

// create allocates a scope under parent. A nil parent makes a root.
func (a *scopeArena) create(d *VirtualDom, parent *Scope, c Component) *Scope {
	var id ScopeID
	if n := len(a.free); n > 0 {
		id = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		id = ScopeID(len(a.scopes))
		a.scopes = append(a.scopes, nil)
	}

	a.epochs++
	s := &Scope{
		dom:       d,
		id:        id,
		epoch:     a.epochs,
		parent:    parent,
		component: c,
		name:      componentName(c),
		buffers:   bump.NewDoubleBuffer(newFrame(), newFrame()),
		alive:     true,
	}
	if parent != nil {
		s.height = parent.height + 1
		parent.children = append(parent.children, id)
	}
	a.scopes[id] = s
	return s
}

// get returns the live scope for id or panics.
func (a *scopeArena) get(id ScopeID) *Scope {
	if int(id) >= len(a.scopes) || a.scopes[id] == nil {
		violate(ViolationInvalidScope, id, "scope %d does not exist", id)
	}
	return a.scopes[id]
}

// lookup is get without the panic.
func (a *scopeArena) lookup(id ScopeID) (*Scope, bool) {
	if int(id) >= len(a.scopes) || a.scopes[id] == nil {
		return nil, false
	}
	return a.scopes[id], true
}

// release returns id to the free list. The caller has already torn down
// children, tasks and hooks.
func (a *scopeArena) release(s *Scope) {
	if p := s.parent; p != nil {
		for i, c := range p.children {
			if c == s.id {
				p.children = append(p.children[:i], p.children[i+1:]...)
				break
			}
		}
	}
	a.scopes[s.id] = nil
	a.free = append(a.free, s.id)
}

// descendants lists every scope below id in pre-order.
func (a *scopeArena) descendants(id ScopeID) []ScopeID {
	var out []ScopeID
	var walk func(s *Scope)
	walk = func(s *Scope) {
		for _, c := range s.children {
			out = append(out, c)
			walk(a.scopes[c])
		}
	}
	walk(a.get(id))
	return out
}

func (a *scopeArena) live() int {
	return len(a.scopes) - len(a.free)
}

// dropScope tears s down after its rendered nodes are gone: children first,
// then tasks, then hooks in reverse creation order.
func (d *VirtualDom) dropScope(s *Scope) {
	for len(s.children) > 0 {
		child := d.scopes.get(s.children[len(s.children)-1])
		if child.root.Valid() {
			d.removeNode(mutation.Discard, child.committed(), -1, false)
		}
		d.dropScope(child)
	}

	for _, id := range s.tasks {
		d.cancelTask(id)
	}
	s.tasks = nil
	d.setSuspended(s, false)

	for i := len(s.hooks) - 1; i >= 0; i-- {
		if disp, ok := s.hooks[i].(Disposer); ok {
			disp.Dispose()
		}
	}
	s.hooks = nil
	s.contexts = nil
	s.effects = nil
	s.boundary = nil
	s.suspense = nil

	d.dirty.remove(s.id)
	s.buffers.Reset()
	s.root = bump.Ref{}
	s.alive = false
	d.scopes.release(s)

	d.log.Debug("scope unmounted", "scope", s.id, "component", s.name)
}

// Scope returns the live scope for id. It panics with a ContractViolation if
// id is not live.
func (d *VirtualDom) Scope(id ScopeID) *Scope {
	return d.scopes.get(id)
}

// HasScope reports whether id is live.
func (d *VirtualDom) HasScope(id ScopeID) bool {
	_, ok := d.scopes.lookup(id)
	return ok
}

// Descendants returns every scope below id in stable pre-order.
func (d *VirtualDom) Descendants(id ScopeID) []ScopeID {
	return d.scopes.descendants(id)
}

// ScopeCount returns the number of live scopes.
func (d *VirtualDom) ScopeCount() int {
	return d.scopes.live()
}
