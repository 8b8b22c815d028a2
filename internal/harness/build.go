package harness

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/roach88/vtree/internal/engine"
	"github.com/roach88/vtree/internal/template"
)

// templateSource resolves template ids, for example a compiler.LoadResult.
type templateSource interface {
	Lookup(id template.ID) (*template.Template, bool)
}

// builder turns tree specs into engine nodes during a render.
type builder struct {
	templates  templateSource
	components map[string]TreeSpec
	handled    func(ev *engine.Event)
}

func (b *builder) tree(cx *engine.Scope, spec *TreeSpec) (engine.Node, error) {
	tpl, ok := b.templates.Lookup(template.ID(spec.Template))
	if !ok {
		return engine.Node{}, fmt.Errorf("unknown template %q", spec.Template)
	}

	attrs := make([]engine.Attr, len(spec.Attrs))
	for i, a := range spec.Attrs {
		attr, err := b.attr(a)
		if err != nil {
			return engine.Node{}, err
		}
		attrs[i] = attr
	}

	nodes := make([]engine.Dynamic, len(spec.Nodes))
	for i := range spec.Nodes {
		d, err := b.dynamic(cx, &spec.Nodes[i])
		if err != nil {
			return engine.Node{}, err
		}
		nodes[i] = d
	}

	if spec.Key != "" {
		return cx.Keyed(spec.Key, tpl, nodes, attrs), nil
	}
	return cx.Node(tpl, nodes, attrs), nil
}

func (b *builder) attr(a AttrSpec) (engine.Attr, error) {
	if a.On != "" {
		return engine.On(a.On, b.handled), nil
	}
	if a.Namespace != "" {
		return engine.AttrNS(a.Namespace, a.Name, a.Value.(string)), nil
	}
	switch v := a.Value.(type) {
	case nil:
		return engine.AttrNone(a.Name), nil
	case string:
		return engine.AttrText(a.Name, v), nil
	case int:
		return engine.AttrInt(a.Name, int64(v)), nil
	case float64:
		return engine.AttrFloat(a.Name, v), nil
	case bool:
		return engine.AttrBool(a.Name, v), nil
	}
	_, err := attrValue(a.Value)
	return engine.Attr{}, err
}

// attrValue reports whether v is a value an attribute slot can carry.
func attrValue(v any) (any, error) {
	switch v.(type) {
	case nil, string, int, float64, bool:
		return v, nil
	}
	return nil, fmt.Errorf("unsupported attribute value %v (%T)", v, v)
}

func (b *builder) dynamic(cx *engine.Scope, d *DynSpec) (engine.Dynamic, error) {
	switch {
	case d.Text != nil:
		return engine.Text(*d.Text), nil
	case d.Placeholder:
		return engine.Placeholder(), nil
	case d.Fragment != nil:
		nodes := make([]engine.Node, len(d.Fragment))
		for i := range d.Fragment {
			n, err := b.tree(cx, &d.Fragment[i])
			if err != nil {
				return engine.Dynamic{}, err
			}
			nodes[i] = n
		}
		return engine.Fragment(nodes...), nil
	case d.Component != nil:
		return engine.Child(b.component(d.Component)), nil
	case d.Use != "":
		return engine.Child(b.named(d.Use)), nil
	case d.Boundary != nil:
		fallback := d.Boundary.Fallback
		return engine.Child(&engine.ErrorBoundary{
			Name:  "boundary:" + d.Boundary.Component.Name,
			Child: b.component(&d.Boundary.Component),
			Fallback: func(cx *engine.Scope, err error) engine.Node {
				return cx.Text(fallback)
			},
		}), nil
	}
	return engine.Dynamic{}, errors.New("empty dynamic node")
}

// component renders spec in a child scope that skips re-rendering while its
// spec is unchanged.
func (b *builder) component(spec *ComponentSpec) engine.Component {
	return engine.Props(spec.Name, *spec, sameComponentSpec, func(cx *engine.Scope, props ComponentSpec) (engine.Node, error) {
		if props.Fail != "" {
			return engine.Node{}, errors.New(props.Fail)
		}
		return b.tree(cx, props.Tree)
	})
}

func sameComponentSpec(a, b ComponentSpec) bool {
	return reflect.DeepEqual(a, b)
}

// named renders a component declared under components. Its tree is fixed,
// so it renders once per mount.
func (b *builder) named(name string) engine.Component {
	return engine.Func(name, func(cx *engine.Scope) (engine.Node, error) {
		tree := b.components[name]
		return b.tree(cx, &tree)
	})
}

// checkTemplates verifies every tree in s against the loaded templates:
// the template exists and the slot counts match.
func checkTemplates(s *Scenario, templates templateSource) error {
	for _, name := range sortedKeys(s.Components) {
		tree := s.Components[name]
		if err := checkTree(&tree, templates, "components."+name); err != nil {
			return err
		}
	}
	for i, f := range s.Frames {
		if f.Tree == nil {
			continue
		}
		if err := checkTree(f.Tree, templates, fmt.Sprintf("frames[%d].tree", i)); err != nil {
			return err
		}
	}
	return nil
}

func checkTree(t *TreeSpec, templates templateSource, field string) error {
	tpl, ok := templates.Lookup(template.ID(t.Template))
	if !ok {
		return fmt.Errorf("%s: unknown template %q", field, t.Template)
	}
	if len(t.Nodes) != tpl.NodeSlots() || len(t.Attrs) != tpl.AttrSlots() {
		return fmt.Errorf("%s: template %s takes %d nodes and %d attrs, got %d and %d",
			field, tpl.ID, tpl.NodeSlots(), tpl.AttrSlots(), len(t.Nodes), len(t.Attrs))
	}

	for i := range t.Nodes {
		d := &t.Nodes[i]
		nf := fmt.Sprintf("%s.nodes[%d]", field, i)
		switch {
		case d.Fragment != nil:
			if err := checkSiblings(d.Fragment, nf); err != nil {
				return err
			}
			for j := range d.Fragment {
				if err := checkTree(&d.Fragment[j], templates, fmt.Sprintf("%s.fragment[%d]", nf, j)); err != nil {
					return err
				}
			}
		case d.Component != nil && d.Component.Tree != nil:
			if err := checkTree(d.Component.Tree, templates, nf+".component.tree"); err != nil {
				return err
			}
		case d.Boundary != nil && d.Boundary.Component.Tree != nil:
			if err := checkTree(d.Boundary.Component.Tree, templates, nf+".boundary.component.tree"); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkSiblings rejects lists that mix keyed and unkeyed trees or repeat a
// key.
func checkSiblings(list []TreeSpec, field string) error {
	if len(list) == 0 {
		return nil
	}
	keyed := list[0].Key != ""
	seen := make(map[string]bool, len(list))
	for i, t := range list {
		if (t.Key != "") != keyed {
			return fmt.Errorf("%s.fragment[%d]: keyed and unkeyed siblings in one list", field, i)
		}
		if keyed {
			if seen[t.Key] {
				return fmt.Errorf("%s.fragment[%d]: duplicate key %q", field, i, t.Key)
			}
			seen[t.Key] = true
		}
	}
	return nil
}
