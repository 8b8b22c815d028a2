package engine

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/vtree/internal/mutation"
	"github.com/roach88/vtree/internal/template"
)

var (
	plainTpl  = template.Must(template.New("test:plain", template.Element("li", nil)))
	itemTpl   = template.Must(template.New("test:item", template.Element("li", nil, template.Dynamic(0))))
	buttonTpl = template.Must(template.New("test:button",
		template.Element("button", template.Attrs(template.DynamicAttr(0)), template.Dynamic(0))))
	nestedTpl = template.Must(template.New("test:nested",
		template.Element("div", template.Attrs(template.DynamicAttr(0)),
			template.Element("button", template.Attrs(template.DynamicAttr(1)), template.Dynamic(0)))))
	panelTpl = template.Must(template.New("test:panel",
		template.Element("div", template.Attrs(template.DynamicAttr(0)), template.Dynamic(0))))
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDom(t *testing.T, root Component, opts ...Option) *VirtualDom {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	d := New(root, opts...)
	t.Cleanup(d.Close)
	return d
}

func rebuild(t *testing.T, d *VirtualDom) []mutation.Mutation {
	t.Helper()
	var log mutation.Log
	d.Rebuild(&log)
	return log.Edits
}

func renderImmediate(d *VirtualDom) []mutation.Mutation {
	var log mutation.Log
	d.RenderImmediate(&log)
	return log.Edits
}

// requireViolation runs fn and checks it panics with a ContractViolation of
// the given code.
func requireViolation(t *testing.T, code ViolationCode, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		require.NotNil(t, r, "expected a %s panic", code)
		cv, ok := r.(*ContractViolation)
		require.True(t, ok, "panic value is %T: %v", r, r)
		require.Equal(t, code, cv.Code)
	}()
	fn()
}

// keyedList renders keys as keyed static <li> nodes.
func keyedList(keys *[]string) Component {
	return Func("list", func(cx *Scope) (Node, error) {
		nodes := make([]Node, len(*keys))
		for i, k := range *keys {
			nodes[i] = cx.Keyed(k, plainTpl, nil, nil)
		}
		return cx.Fragment(nodes...), nil
	})
}

// textList renders items as <li> nodes holding their text, keyed or not.
func textList(items *[]string, keyed bool) Component {
	return Func("list", func(cx *Scope) (Node, error) {
		nodes := make([]Node, len(*items))
		for i, item := range *items {
			if keyed {
				nodes[i] = cx.Keyed(item, itemTpl, []Dynamic{Text(item)}, nil)
			} else {
				nodes[i] = cx.Node(itemTpl, []Dynamic{Text(item)}, nil)
			}
		}
		return cx.Fragment(nodes...), nil
	})
}
