package engine

import (
	"reflect"
)

// Component is a user-defined UI element.
//
// Render builds the component's tree for the current state. It may call
// hooks, always in the same order, and may spawn tasks. The returned Node
// must come from cx. Returning a *SuspendedError renders a placeholder until
// the scope is marked dirty again; any other error is routed to the nearest
// ErrorBoundary ancestor.
//
// Memo reports whether the component can skip rendering because its inputs
// equal those of prev, the instance that last rendered in this position.
// prev always has the same dynamic type as the receiver.
type Component interface {
	Render(cx *Scope) (Node, error)
	Memo(prev Component) bool
}

// RenderFunc is the signature of a component body.
type RenderFunc func(cx *Scope) (Node, error)

type funcComponent struct {
	name   string
	render RenderFunc
}

// Func wraps a render function that takes no inputs. Because it has no
// inputs it is always memoized: it renders again only when its own state
// changes.
func Func(name string, render RenderFunc) Component {
	return &funcComponent{name: name, render: render}
}

func (c *funcComponent) Render(cx *Scope) (Node, error) { return c.render(cx) }

func (c *funcComponent) Memo(prev Component) bool {
	p, ok := prev.(*funcComponent)
	return ok && p.name == c.name
}

func (c *funcComponent) String() string { return c.name }

type propsComponent[P any] struct {
	name   string
	props  P
	equal  func(a, b P) bool
	render func(cx *Scope, props P) (Node, error)
}

// Props builds a component with inputs. equal decides whether a re-render
// with new props can be skipped; a nil equal never skips.
func Props[P any](name string, props P, equal func(a, b P) bool, render func(cx *Scope, props P) (Node, error)) Component {
	return &propsComponent[P]{name: name, props: props, equal: equal, render: render}
}

// PropsComparable is Props with == as the equality.
func PropsComparable[P comparable](name string, props P, render func(cx *Scope, props P) (Node, error)) Component {
	return Props(name, props, func(a, b P) bool { return a == b }, render)
}

func (c *propsComponent[P]) Render(cx *Scope) (Node, error) { return c.render(cx, c.props) }

func (c *propsComponent[P]) Memo(prev Component) bool {
	p, ok := prev.(*propsComponent[P])
	if !ok || p.name != c.name || c.equal == nil {
		return false
	}
	return c.equal(p.props, c.props)
}

func (c *propsComponent[P]) String() string { return c.name }

// sameComponentType reports whether b can reuse the scope a rendered into.
func sameComponentType(a, b Component) bool {
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	if na, ok := a.(interface{ String() string }); ok {
		return na.String() == b.(interface{ String() string }).String()
	}
	return true
}

func componentName(c Component) string {
	if s, ok := c.(interface{ String() string }); ok {
		return s.String()
	}
	return reflect.TypeOf(c).String()
}

// ErrorBoundary renders Child and swaps in Fallback when any descendant
// render or task fails. Suspension is not an error and passes through.
type ErrorBoundary struct {
	Name     string
	Child    Component
	Fallback func(cx *Scope, err error) Node
}

type boundaryState struct {
	err error
}

func (b *ErrorBoundary) Render(cx *Scope) (Node, error) {
	state := UseHook(cx, func() *boundaryState { return &boundaryState{} })
	cx.boundary = state

	if state.err != nil {
		if b.Fallback != nil {
			return b.Fallback(cx, state.err), nil
		}
		return cx.Text(state.err.Error()), nil
	}
	return cx.Component(b.Child), nil
}

// Memo never skips: the child may have changed.
func (b *ErrorBoundary) Memo(prev Component) bool { return false }

func (b *ErrorBoundary) String() string {
	if b.Name != "" {
		return b.Name
	}
	return "ErrorBoundary"
}

// SuspenseBoundary renders Child and, while any descendant scope is
// suspended, Fallback after it. The suspended subtree stays mounted so its
// tasks keep running; when the last one resolves the fallback is removed.
type SuspenseBoundary struct {
	Name     string
	Child    Component
	Fallback func(cx *Scope) Node
}

type suspenseState struct {
	pending map[ScopeID]struct{}
}

func (b *SuspenseBoundary) Render(cx *Scope) (Node, error) {
	state := UseHook(cx, func() *suspenseState {
		return &suspenseState{pending: make(map[ScopeID]struct{})}
	})
	cx.suspense = state

	// The child keeps position 0 so its scope survives the swap.
	fallback := cx.Placeholder()
	if len(state.pending) > 0 && b.Fallback != nil {
		fallback = b.Fallback(cx)
	}
	return cx.Fragment(cx.Component(b.Child), fallback), nil
}

// Memo never skips: the child may have changed.
func (b *SuspenseBoundary) Memo(prev Component) bool { return false }

func (b *SuspenseBoundary) String() string {
	if b.Name != "" {
		return b.Name
	}
	return "SuspenseBoundary"
}
