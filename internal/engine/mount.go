package engine

import (
	"github.com/roach88/vtree/internal/bump"
	"github.com/roach88/vtree/internal/mutation"
	"github.com/roach88/vtree/internal/template"
)

// mountID indexes the mount slab. Zero means "not mounted".
type mountID uint32

// mount is the persistent record for one vnode that is on screen. Vnodes are
// rebuilt every render; their mount survives and is handed from the old
// vnode to the new one when the diff keeps the node.
type mount struct {
	scope  ScopeID
	node   bump.Ref
	parent elementRef

	// roots holds one id per template root; dynamic roots stay zero.
	roots []mutation.ElementID
	// attrIDs holds the element owning each dynamic attribute slot.
	attrIDs []mutation.ElementID
	// slots holds an ElementID for text and placeholder slots and a ScopeID
	// for component slots.
	slots []uint64
}

// elementRef locates a renderer node: the mount that created it and its
// path inside the mount's template. The zero value is the host root.
type elementRef struct {
	mount mountID
	path  template.Path
}

// slab is a free-list allocator keyed by small integers. Index 0 is reserved.
type slab[T any] struct {
	items []T
	used  []bool
	free  []uint32
}

func newSlab[T any]() *slab[T] {
	var zero T
	return &slab[T]{items: []T{zero}, used: []bool{true}}
}

func (s *slab[T]) insert(v T) uint32 {
	if n := len(s.free); n > 0 {
		id := s.free[n-1]
		s.free = s.free[:n-1]
		s.items[id] = v
		s.used[id] = true
		return id
	}
	s.items = append(s.items, v)
	s.used = append(s.used, true)
	return uint32(len(s.items) - 1)
}

func (s *slab[T]) get(id uint32) (T, bool) {
	if id == 0 || int(id) >= len(s.items) || !s.used[id] {
		var zero T
		return zero, false
	}
	return s.items[id], true
}

func (s *slab[T]) remove(id uint32) {
	if id == 0 || int(id) >= len(s.items) || !s.used[id] {
		return
	}
	var zero T
	s.items[id] = zero
	s.used[id] = false
	s.free = append(s.free, id)
}

func (s *slab[T]) len() int {
	return len(s.items) - 1 - len(s.free)
}

func (d *VirtualDom) newMount(m *mount) mountID {
	return mountID(d.mounts.insert(m))
}

func (d *VirtualDom) mountOf(v vref) *mount {
	m, ok := d.mounts.get(uint32(v.node().mount))
	if !ok {
		violate(ViolationStaleNode, 0, "vnode %s is not mounted", v.ref)
	}
	return m
}

func (d *VirtualDom) allocElement(ref elementRef) mutation.ElementID {
	return mutation.ElementID(d.elements.insert(ref))
}

func (d *VirtualDom) freeElement(id mutation.ElementID) {
	d.elements.remove(uint32(id))
}

// ElementCount returns the number of live renderer node ids.
func (d *VirtualDom) ElementCount() int {
	return d.elements.len()
}

// slotRef is the element position of dynamic node slot within mount mid.
func slotRef(mid mountID, tpl *template.Template, slot int) elementRef {
	return elementRef{mount: mid, path: tpl.NodePath(slot)}
}

// slotParent is where the nodes filling slot attach: the vnode's own parent
// for a root slot, the enclosing template element otherwise.
func slotParent(m *mount, mid mountID, tpl *template.Template, slot int) elementRef {
	if len(tpl.NodePath(slot)) == 1 {
		return m.parent
	}
	return slotRef(mid, tpl, slot)
}
