package engine

import (
	"slices"

	"github.com/roach88/vtree/internal/mutation"
	"github.com/roach88/vtree/internal/template"
)

// create mounts v, which was rendered by s, and writes mutations that leave
// its root nodes on the renderer stack. It returns how many nodes it pushed.
func (d *VirtualDom) create(to mutation.Writer, s *Scope, v vref, parent elementRef) int {
	n := v.node()
	tpl := n.tpl
	m := &mount{
		scope:   s.id,
		node:    v.ref,
		parent:  parent,
		roots:   make([]mutation.ElementID, len(tpl.Roots)),
		attrIDs: make([]mutation.ElementID, tpl.AttrSlots()),
		slots:   make([]uint64, tpl.NodeSlots()),
	}
	mid := d.newMount(m)
	n.mount = mid

	pushed := 0
	for i := range tpl.Roots {
		if slot, ok := tpl.RootIsDynamic(i); ok {
			pushed += d.createDynamic(to, s, v, m, mid, slot)
			continue
		}
		d.loadRoot(to, s, v, m, mid, i)
		pushed++
	}
	return pushed
}

// loadRoot clones template root i, then fills in the dynamic attributes and
// nodes beneath it.
func (d *VirtualDom) loadRoot(to mutation.Writer, s *Scope, v vref, m *mount, mid mountID, root int) {
	tpl := v.node().tpl
	d.ensureRegistered(to, tpl)

	id := d.allocElement(elementRef{mount: mid, path: template.Path{root}})
	m.roots[root] = id
	to.WriteMutation(mutation.LoadTemplate(tpl.ID, root, id))

	attrs := v.attributes()
	for slot := 0; slot < tpl.AttrSlots(); slot++ {
		path := tpl.AttrPath(slot)
		if path[0] != root {
			continue
		}
		m.attrIDs[slot] = d.attrElement(to, m, mid, tpl, slot, id)
		writeAttribute(to, &attrs[slot], m.attrIDs[slot])
	}

	// Replace placeholders back to front so earlier paths stay valid.
	order := tpl.NodeSlotsByPath()
	for i := len(order) - 1; i >= 0; i-- {
		slot := order[i]
		path := tpl.NodePath(slot)
		if path[0] != root || len(path) == 1 {
			continue
		}
		count := d.createDynamic(to, s, v, m, mid, slot)
		to.WriteMutation(mutation.ReplacePlaceholder(slices.Clone(path[1:]), count))
	}
}

// attrElement returns the element id for the owner of an attribute slot,
// assigning one the first time an element is seen.
func (d *VirtualDom) attrElement(to mutation.Writer, m *mount, mid mountID, tpl *template.Template, slot int, rootID mutation.ElementID) mutation.ElementID {
	path := tpl.AttrPath(slot)
	if len(path) == 1 {
		return rootID
	}
	for prev := 0; prev < slot; prev++ {
		if m.attrIDs[prev] != 0 && slices.Equal(tpl.AttrPath(prev), path) {
			return m.attrIDs[prev]
		}
	}
	id := d.allocElement(elementRef{mount: mid, path: path})
	to.WriteMutation(mutation.AssignNodeID(slices.Clone(path[1:]), id))
	return id
}

func writeAttribute(to mutation.Writer, a *attribute, id mutation.ElementID) {
	switch {
	case a.listener != nil:
		to.WriteMutation(mutation.NewEventListener(a.name, id))
	case !a.value.IsNone():
		to.WriteMutation(mutation.SetAttribute(a.name, a.namespace, a.value, id))
	}
}

// createDynamic builds the nodes for one dynamic slot and returns how many
// it pushed.
func (d *VirtualDom) createDynamic(to mutation.Writer, s *Scope, v vref, m *mount, mid mountID, slot int) int {
	tpl := v.node().tpl
	dn := &v.dynamic()[slot]

	switch dn.kind {
	case dynText:
		id := d.allocElement(slotRef(mid, tpl, slot))
		m.slots[slot] = uint64(id)
		to.WriteMutation(mutation.CreateTextNode(dn.text, id))
		return 1

	case dynPlaceholder:
		id := d.allocElement(slotRef(mid, tpl, slot))
		m.slots[slot] = uint64(id)
		to.WriteMutation(mutation.CreatePlaceholder(id))
		return 1

	case dynFragment:
		parent := slotParent(m, mid, tpl, slot)
		pushed := 0
		for _, child := range v.children(dn) {
			pushed += d.create(to, s, child, parent)
		}
		return pushed

	case dynComponent:
		child, pushed := d.mountComponent(to, s, dn.comp, slotParent(m, mid, tpl, slot))
		m.slots[slot] = uint64(child.id)
		return pushed
	}
	return 0
}

// mountComponent creates a scope for c under parent scope s, renders it and
// creates its tree.
func (d *VirtualDom) mountComponent(to mutation.Writer, s *Scope, c Component, at elementRef) (*Scope, int) {
	child := d.scopes.create(d, s, c)
	d.log.Debug("scope mounted", "scope", child.id, "component", child.name, "height", child.height)

	root := d.runScope(child)
	pushed := d.create(to, child, root, at)
	d.commit(child, root)
	return child, pushed
}

// createChildren creates a list of sibling vnodes.
func (d *VirtualDom) createChildren(to mutation.Writer, s *Scope, nodes []vref, parent elementRef) int {
	pushed := 0
	for _, n := range nodes {
		pushed += d.create(to, s, n, parent)
	}
	return pushed
}

// ensureRegistered announces tpl to the renderer on its first load.
func (d *VirtualDom) ensureRegistered(to mutation.Writer, tpl *template.Template) {
	if d.registered[tpl] {
		return
	}
	d.registered[tpl] = true
	to.WriteMutation(mutation.RegisterTemplate(tpl))
}
