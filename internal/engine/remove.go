package engine

import (
	"github.com/roach88/vtree/internal/mutation"
)

// removeNodes removes a run of siblings.
func (d *VirtualDom) removeNodes(to mutation.Writer, nodes []vref) {
	for _, n := range nodes {
		d.removeNode(to, n, -1, true)
	}
}

// removeNode unmounts v. When replaceWith is not negative, the first renderer
// node of v is replaced by that many nodes from the stack instead of being
// removed. emit is false while tearing down content whose ancestor element
// is already gone: ids are reclaimed but nothing is written.
//
// It returns replaceWith if no node consumed it, otherwise -1.
func (d *VirtualDom) removeNode(to mutation.Writer, v vref, replaceWith int, emit bool) int {
	n := v.node()
	tpl := n.tpl
	mid := n.mount
	m := d.mountOf(v)
	dyn := v.dynamic()

	// Nested content goes away with its template element.
	for slot := 0; slot < tpl.NodeSlots(); slot++ {
		if len(tpl.NodePath(slot)) > 1 {
			d.removeDynamic(to, v, &dyn[slot], m.slots[slot], -1, false)
		}
	}
	for slot, id := range m.attrIDs {
		if id != 0 && len(tpl.AttrPath(slot)) > 1 {
			d.freeElement(id)
		}
	}

	for i := range tpl.Roots {
		if slot, ok := tpl.RootIsDynamic(i); ok {
			replaceWith = d.removeDynamic(to, v, &dyn[slot], m.slots[slot], replaceWith, emit)
			continue
		}
		replaceWith = removeElement(to, m.roots[i], replaceWith, emit)
		d.freeElement(m.roots[i])
	}

	d.mounts.remove(uint32(mid))
	n.mount = 0
	return replaceWith
}

func removeElement(to mutation.Writer, id mutation.ElementID, replaceWith int, emit bool) int {
	if !emit {
		return replaceWith
	}
	if replaceWith >= 0 {
		to.WriteMutation(mutation.ReplaceWith(id, replaceWith))
		return -1
	}
	to.WriteMutation(mutation.Remove(id))
	return -1
}

// removeDynamic tears down the content of one dynamic slot. slotID is the
// value recorded for the slot in its mount.
func (d *VirtualDom) removeDynamic(to mutation.Writer, v vref, dn *dynamicNode, slotID uint64, replaceWith int, emit bool) int {
	switch dn.kind {
	case dynText, dynPlaceholder:
		id := mutation.ElementID(slotID)
		replaceWith = removeElement(to, id, replaceWith, emit)
		d.freeElement(id)

	case dynFragment:
		for _, child := range v.children(dn) {
			replaceWith = d.removeNode(to, child, replaceWith, emit)
		}

	case dynComponent:
		child := d.scopes.get(ScopeID(slotID))
		if child.root.Valid() {
			replaceWith = d.removeNode(to, child.committed(), replaceWith, emit)
		}
		d.dropScope(child)
	}
	return replaceWith
}

// pushRealNodes pushes every top-level renderer node of v, in order.
func (d *VirtualDom) pushRealNodes(to mutation.Writer, v vref) int {
	pushed := 0
	d.walkRealNodes(v, func(id mutation.ElementID) {
		to.WriteMutation(mutation.PushRoot(id))
		pushed++
	})
	return pushed
}

// walkRealNodes visits the top-level renderer nodes of v in document order,
// descending through fragments and components at root positions.
func (d *VirtualDom) walkRealNodes(v vref, visit func(mutation.ElementID)) {
	n := v.node()
	m := d.mountOf(v)
	dyn := v.dynamic()

	for i := range n.tpl.Roots {
		slot, ok := n.tpl.RootIsDynamic(i)
		if !ok {
			visit(m.roots[i])
			continue
		}
		dn := &dyn[slot]
		switch dn.kind {
		case dynText, dynPlaceholder:
			visit(mutation.ElementID(m.slots[slot]))
		case dynFragment:
			for _, child := range v.children(dn) {
				d.walkRealNodes(child, visit)
			}
		case dynComponent:
			child := d.scopes.get(ScopeID(m.slots[slot]))
			d.walkRealNodes(child.committed(), visit)
		}
	}
}

// firstElement returns the first top-level renderer node of v.
func (d *VirtualDom) firstElement(v vref) mutation.ElementID {
	n := v.node()
	m := d.mountOf(v)
	slot, ok := n.tpl.RootIsDynamic(0)
	if !ok {
		return m.roots[0]
	}
	dn := &v.dynamic()[slot]
	switch dn.kind {
	case dynFragment:
		return d.firstElement(v.children(dn)[0])
	case dynComponent:
		return d.firstElement(d.scopes.get(ScopeID(m.slots[slot])).committed())
	}
	return mutation.ElementID(m.slots[slot])
}

// lastElement returns the last top-level renderer node of v.
func (d *VirtualDom) lastElement(v vref) mutation.ElementID {
	n := v.node()
	m := d.mountOf(v)
	last := len(n.tpl.Roots) - 1
	slot, ok := n.tpl.RootIsDynamic(last)
	if !ok {
		return m.roots[last]
	}
	dn := &v.dynamic()[slot]
	switch dn.kind {
	case dynFragment:
		children := v.children(dn)
		return d.lastElement(children[len(children)-1])
	case dynComponent:
		return d.lastElement(d.scopes.get(ScopeID(m.slots[slot])).committed())
	}
	return mutation.ElementID(m.slots[slot])
}
