package engine

import (
	"reflect"
)

// Disposer is implemented by hook values that hold resources. Dispose runs
// when the owning scope unmounts, in reverse hook order.
type Disposer interface {
	Dispose()
}

// UseHook returns the value stored in the scope's next hook slot, calling
// init to create it on the first render. Slots are matched by call order
// only, so hooks must not be called conditionally.
func UseHook[T any](cx *Scope, init func() T) T {
	cx.mustRender("UseHook")
	idx := cx.hookIdx
	cx.hookIdx++

	if idx < len(cx.hooks) {
		v, ok := cx.hooks[idx].(T)
		if !ok {
			violate(ViolationHookOrder, cx.id, "hook %d holds %T, caller expects %s",
				idx, cx.hooks[idx], reflect.TypeFor[T]())
		}
		return v
	}

	v := init()
	cx.hooks = append(cx.hooks, v)
	return v
}

// UseRef returns a stable pointer initialized to init on first render.
func UseRef[T any](cx *Scope, init T) *T {
	return UseHook(cx, func() *T {
		v := init
		return &v
	})
}

// State is a hook-owned value whose setter re-renders the scope.
type State[T any] struct {
	value T
	scope *Scope
}

// UseState returns the scope's state slot, created from init on first render.
func UseState[T any](cx *Scope, init func() T) *State[T] {
	return UseHook(cx, func() *State[T] {
		return &State[T]{value: init(), scope: cx}
	})
}

// Get returns the current value.
func (s *State[T]) Get() T { return s.value }

// Set stores v and marks the scope dirty. Must be called on the driver, for
// example from an event handler or a task's post callback.
func (s *State[T]) Set(v T) {
	s.value = v
	s.scope.dom.markFromHook(s.scope)
}

// Update applies fn to the value.
func (s *State[T]) Update(fn func(T) T) {
	s.Set(fn(s.value))
}

// ProvideContext makes v visible to UseContext calls in this scope and its
// descendants.
func ProvideContext[T any](cx *Scope, v T) T {
	if cx.contexts == nil {
		cx.contexts = make(map[reflect.Type]any)
	}
	cx.contexts[reflect.TypeFor[T]()] = v
	return v
}

// UseContext finds the nearest value of type T provided by this scope or an
// ancestor.
func UseContext[T any](cx *Scope) (T, bool) {
	key := reflect.TypeFor[T]()
	for s := cx; s != nil; s = s.parent {
		if v, ok := s.contexts[key]; ok {
			return v.(T), true
		}
	}
	var zero T
	return zero, false
}

type effectState struct {
	deps any
	ran  bool
}

// UseEffect runs fn after the batch containing this render is committed, on
// the first render and whenever deps changes, compared with reflect.DeepEqual.
func UseEffect(cx *Scope, deps any, fn func()) {
	st := UseHook(cx, func() *effectState { return &effectState{} })
	if st.ran && reflect.DeepEqual(st.deps, deps) {
		return
	}
	st.deps = deps
	st.ran = true
	cx.effects = append(cx.effects, fn)
}

type memoState[T any] struct {
	deps  any
	value T
	set   bool
}

// UseMemo caches compute's result until deps changes, compared with
// reflect.DeepEqual.
func UseMemo[T any](cx *Scope, deps any, compute func() T) T {
	m := UseHook(cx, func() *memoState[T] { return &memoState[T]{} })
	if !m.set || !reflect.DeepEqual(m.deps, deps) {
		m.value = compute()
		m.deps = deps
		m.set = true
	}
	return m.value
}
