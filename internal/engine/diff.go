package engine

import (
	"github.com/roach88/vtree/internal/mutation"
)

// renderAndDiff re-runs s and reconciles its new tree against the committed
// one.
func (d *VirtualDom) renderAndDiff(to mutation.Writer, s *Scope) {
	// Marks made while s renders, by s or a descendant, must survive.
	d.dirty.remove(s.id)
	old := s.committed()
	next := d.runScope(s)
	d.diffNode(to, s, old, next)
	d.commit(s, next)
}

// commit makes next the committed tree of s.
func (d *VirtualDom) commit(s *Scope, next vref) {
	s.root = next.ref
	s.buffers.Flip()
	if len(s.effects) > 0 {
		d.effects = append(d.effects, pendingEffect{scope: s.id, epoch: s.epoch, fns: s.effects})
		s.effects = nil
	}
}

// diffNode reconciles one vnode pair rendered by s.
func (d *VirtualDom) diffNode(to mutation.Writer, s *Scope, old, next vref) {
	o, n := old.node(), next.node()
	if o.tpl != n.tpl {
		d.replace(to, s, old, []vref{next})
		return
	}

	// Same shape: the new vnode inherits the mount.
	mid := o.mount
	m := d.mountOf(old)
	n.mount = mid
	m.node = next.ref

	oldAttrs, newAttrs := old.attributes(), next.attributes()
	for slot := range newAttrs {
		diffAttribute(to, &oldAttrs[slot], &newAttrs[slot], m.attrIDs[slot])
	}

	oldDyn, newDyn := old.dynamic(), next.dynamic()
	for slot := range newDyn {
		d.diffDynamic(to, s, old, next, m, mid, slot, &oldDyn[slot], &newDyn[slot])
	}
}

func diffAttribute(to mutation.Writer, o, n *attribute, id mutation.ElementID) {
	switch {
	case o.listener != nil && n.listener != nil:
		// Handlers are looked up on the committed tree at dispatch time, so
		// swapping the closure needs no mutation.
		if o.name != n.name {
			to.WriteMutation(mutation.RemoveEventListener(o.name, id))
			to.WriteMutation(mutation.NewEventListener(n.name, id))
		}
	case o.listener != nil:
		to.WriteMutation(mutation.RemoveEventListener(o.name, id))
		writeAttribute(to, n, id)
	case n.listener != nil:
		if !o.value.IsNone() {
			to.WriteMutation(mutation.RemoveAttribute(o.name, o.namespace, id))
		}
		to.WriteMutation(mutation.NewEventListener(n.name, id))
	case o.name != n.name || o.namespace != n.namespace:
		if !o.value.IsNone() {
			to.WriteMutation(mutation.RemoveAttribute(o.name, o.namespace, id))
		}
		writeAttribute(to, n, id)
	case !o.value.Equal(n.value):
		if n.value.IsNone() {
			to.WriteMutation(mutation.RemoveAttribute(o.name, o.namespace, id))
		} else {
			to.WriteMutation(mutation.SetAttribute(n.name, n.namespace, n.value, id))
		}
	}
}

func (d *VirtualDom) diffDynamic(to mutation.Writer, s *Scope, old, next vref, m *mount, mid mountID, slot int, o, n *dynamicNode) {
	tpl := next.node().tpl

	switch {
	case o.kind == dynText && n.kind == dynText:
		if o.text != n.text {
			to.WriteMutation(mutation.SetText(n.text, mutation.ElementID(m.slots[slot])))
		}
		return

	case o.kind == dynPlaceholder && n.kind == dynPlaceholder:
		return

	case o.kind == dynFragment && n.kind == dynFragment:
		d.diffChildren(to, s, old.children(o), next.children(n), slotParent(m, mid, tpl, slot))
		return

	case o.kind == dynComponent && n.kind == dynComponent:
		child := d.scopes.get(ScopeID(m.slots[slot]))
		if sameComponentType(child.component, n.comp) {
			d.diffComponent(to, child, n.comp)
			return
		}
	}

	// The slot changed variant or component type: build the new content,
	// then swap it in where the old content's first node was.
	prev := m.slots[slot]
	pushed := d.createDynamic(to, s, next, m, mid, slot)
	d.removeDynamic(to, old, o, prev, pushed, true)
}

// diffComponent re-renders child with new inputs unless they memoize.
func (d *VirtualDom) diffComponent(to mutation.Writer, child *Scope, next Component) {
	if next.Memo(child.component) {
		d.log.Debug("memoized component skipped", "scope", child.id, "component", child.name)
		return
	}
	child.component = next
	d.renderAndDiff(to, child)
}

// replace creates nexts and puts them where old is.
func (d *VirtualDom) replace(to mutation.Writer, s *Scope, old vref, nexts []vref) {
	parent := d.mountOf(old).parent
	pushed := d.createChildren(to, s, nexts, parent)
	d.removeNode(to, old, pushed, true)
}

// diffChildren reconciles two non-empty sibling lists.
func (d *VirtualDom) diffChildren(to mutation.Writer, s *Scope, old, next []vref, parent elementRef) {
	if old[0].node().keyed && next[0].node().keyed {
		d.diffKeyedChildren(to, s, old, next, parent)
		return
	}
	d.diffUnkeyedChildren(to, s, old, next, parent)
}

// diffUnkeyedChildren matches children by position. An insertion in the
// middle shifts every later sibling onto a different partner.
func (d *VirtualDom) diffUnkeyedChildren(to mutation.Writer, s *Scope, old, next []vref, parent elementRef) {
	switch {
	case len(old) > len(next):
		d.removeNodes(to, old[len(next):])
	case len(old) < len(next):
		d.createAndInsertAfter(to, s, next[len(old):], old[len(old)-1], parent)
	}

	for i := 0; i < len(old) && i < len(next); i++ {
		d.diffNode(to, s, old[i], next[i])
	}
}

func (d *VirtualDom) createAndInsertAfter(to mutation.Writer, s *Scope, nodes []vref, after vref, parent elementRef) {
	if len(nodes) == 0 {
		return
	}
	pushed := d.createChildren(to, s, nodes, parent)
	if pushed > 0 {
		to.WriteMutation(mutation.InsertAfter(d.lastElement(after), pushed))
	}
}

func (d *VirtualDom) createAndInsertBefore(to mutation.Writer, s *Scope, nodes []vref, before vref, parent elementRef) {
	if len(nodes) == 0 {
		return
	}
	pushed := d.createChildren(to, s, nodes, parent)
	if pushed > 0 {
		to.WriteMutation(mutation.InsertBefore(d.firstElement(before), pushed))
	}
}
