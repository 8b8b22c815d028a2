package engine

import (
	"slices"

	"github.com/roach88/vtree/internal/mutation"
	"github.com/roach88/vtree/internal/template"
)

// Event is delivered to listeners registered with On.
type Event struct {
	Name   string
	Target mutation.ElementID
	Data   any

	bubbles bool
	stopped bool
}

// StopPropagation keeps the event from reaching ancestor listeners.
func (e *Event) StopPropagation() { e.stopped = true }

// Bubbles reports whether the event travels to ancestors.
func (e *Event) Bubbles() bool { return e.bubbles && !e.stopped }

// HandleEvent dispatches a renderer event to the listener registered on
// target during the last diff, then to listeners on its ancestors when
// bubbles is set. Handlers run on the driver; state they set marks scopes
// dirty in the immediate queue. Events for unknown ids are dropped.
//
// It reports whether any listener ran.
func (d *VirtualDom) HandleEvent(name string, target mutation.ElementID, data any, bubbles bool) bool {
	if d.closed {
		return false
	}
	ref, ok := d.elements.get(uint32(target))
	if !ok {
		d.log.Debug("event for unknown element dropped", "event", name, "element", target)
		return false
	}

	ev := &Event{Name: name, Target: target, Data: data, bubbles: bubbles}
	ran := false
	path := ref.path
	mid := ref.mount
	exact := true

	for mid != 0 {
		m, ok := d.mounts.get(uint32(mid))
		if !ok {
			break
		}
		scope, ok := d.scopes.lookup(m.scope)
		if !ok {
			break
		}
		v := vref{f: scope.buffers.Committed(), ref: m.node}
		tpl := v.node().tpl
		attrs := v.attributes()

		for _, slot := range listenersOnPath(tpl, attrs, name, path, exact && !bubbles) {
			d.runHandler(attrs[slot].listener, ev)
			ran = true
			if !ev.Bubbles() {
				return ran
			}
		}
		if !bubbles {
			return ran
		}

		mid, path = m.parent.mount, m.parent.path
		exact = false
	}
	return ran
}

// listenersOnPath returns attribute slots listening for name on the element
// at path or, unless exact, on its template ancestors. Deepest first.
func listenersOnPath(tpl *template.Template, attrs []attribute, name string, path template.Path, exact bool) []int {
	var slots []int
	for slot := range attrs {
		a := &attrs[slot]
		if a.listener == nil || a.name != name {
			continue
		}
		owner := tpl.AttrPath(slot)
		if exact && !slices.Equal(owner, path) {
			continue
		}
		if path.HasPrefix(owner) {
			slots = append(slots, slot)
		}
	}
	slices.SortStableFunc(slots, func(a, b int) int {
		return len(tpl.AttrPath(b)) - len(tpl.AttrPath(a))
	})
	return slots
}

func (d *VirtualDom) runHandler(fn func(*Event), ev *Event) {
	prev := d.priority
	d.priority = Immediate
	defer func() { d.priority = prev }()
	fn(ev)
}

// Dispatch queues an event from any goroutine. The driver delivers it on
// its next WaitForWork or render pass.
func (d *VirtualDom) Dispatch(name string, target mutation.ElementID, data any, bubbles bool) bool {
	return d.queue.enqueue(message{
		kind: messageEvent,
		fn:   func() { d.HandleEvent(name, target, data, bubbles) },
	})
}
