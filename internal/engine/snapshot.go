package engine

import (
	"github.com/roach88/vtree/internal/dom"
	"github.com/roach88/vtree/internal/template"
)

// Snapshot returns the committed tree as a detached document. A renderer
// that applied every batch so far holds the same document.
func (d *VirtualDom) Snapshot() *dom.Node {
	root := dom.NewRoot()
	if !d.built || d.closed {
		return root
	}
	root.AppendChild(d.snapshotVNode(d.scopes.get(RootScopeID).committed())...)
	return root
}

func (d *VirtualDom) snapshotVNode(v vref) []*dom.Node {
	var out []*dom.Node
	for _, r := range v.node().tpl.Roots {
		out = append(out, d.snapshotTemplateNode(v, r)...)
	}
	return out
}

func (d *VirtualDom) snapshotTemplateNode(v vref, tn template.Node) []*dom.Node {
	switch tn.Kind {
	case template.KindText:
		return []*dom.Node{dom.NewText(tn.Text)}
	case template.KindDynamic:
		return d.snapshotDynamic(v, tn.Slot)
	}

	el := dom.NewElement(tn.Tag, tn.Namespace)
	attrs := v.attributes()
	for _, a := range tn.Attrs {
		if a.Kind == template.AttrStatic {
			el.SetAttr(a.Name, a.Namespace, a.Value)
			continue
		}
		at := &attrs[a.Slot]
		switch {
		case at.listener != nil:
			el.Listen(at.name)
		case !at.value.IsNone():
			el.SetAttr(at.name, at.namespace, at.value.String())
		}
	}
	for _, c := range tn.Children {
		el.AppendChild(d.snapshotTemplateNode(v, c)...)
	}
	return []*dom.Node{el}
}

func (d *VirtualDom) snapshotDynamic(v vref, slot int) []*dom.Node {
	dn := &v.dynamic()[slot]
	switch dn.kind {
	case dynText:
		return []*dom.Node{dom.NewText(dn.text)}
	case dynFragment:
		var out []*dom.Node
		for _, child := range v.children(dn) {
			out = append(out, d.snapshotVNode(child)...)
		}
		return out
	case dynComponent:
		m := d.mountOf(v)
		child := d.scopes.get(ScopeID(m.slots[slot]))
		return d.snapshotVNode(child.committed())
	}
	return []*dom.Node{dom.NewPlaceholder()}
}
