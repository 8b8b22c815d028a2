package engine

import (
	"container/heap"
	"context"
	"time"

	"github.com/roach88/vtree/internal/mutation"
)

// Priority selects the queue a dirty scope waits in.
type Priority uint8

const (
	// Immediate work is user-interaction driven and drained before yielding.
	Immediate Priority = iota + 1
	// Deferred work is background work such as task wake-ups, processed when
	// no immediate work remains and subject to the time budget.
	Deferred
)

func (p Priority) String() string {
	if p == Deferred {
		return "deferred"
	}
	return "immediate"
}

// dirtyEntry orders scopes by height, then id, so ancestors come first.
type dirtyEntry struct {
	height uint32
	id     ScopeID
	epoch  uint64
}

type dirtyHeap []dirtyEntry

func (h dirtyHeap) Len() int { return len(h) }
func (h dirtyHeap) Less(i, j int) bool {
	if h[i].height != h[j].height {
		return h[i].height < h[j].height
	}
	return h[i].id < h[j].id
}
func (h dirtyHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *dirtyHeap) Push(x any)   { *h = append(*h, x.(dirtyEntry)) }
func (h *dirtyHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// dirtySet holds the two queues. A scope sits in at most one of them; the
// set maps it to its queue and the heaps may hold stale entries that are
// skipped on pop.
type dirtySet struct {
	queues [2]dirtyHeap
	member map[ScopeID]Priority
}

func newDirtySet() *dirtySet {
	return &dirtySet{member: make(map[ScopeID]Priority)}
}

func (q *dirtySet) heap(p Priority) *dirtyHeap {
	return &q.queues[p-1]
}

// mark queues s at p. Returns false if nothing changed.
func (q *dirtySet) mark(s *Scope, p Priority) bool {
	cur, ok := q.member[s.id]
	if ok && (cur == p || cur == Immediate) {
		return false
	}
	q.member[s.id] = p
	heap.Push(q.heap(p), dirtyEntry{height: s.height, id: s.id, epoch: s.epoch})
	return true
}

func (q *dirtySet) remove(id ScopeID) {
	delete(q.member, id)
}

func (q *dirtySet) contains(id ScopeID, p Priority) bool {
	cur, ok := q.member[id]
	return ok && cur == p
}

func (q *dirtySet) empty(p Priority) bool {
	for _, cur := range q.member {
		if cur == p {
			return false
		}
	}
	return true
}

func (q *dirtySet) len() int { return len(q.member) }

// MarkDirty queues scope id for re-render. Marking an already dirty scope is
// a no-op, except that Immediate promotes a deferred scope. Unknown ids are
// ignored: the scope may have unmounted since the caller captured it.
func (d *VirtualDom) MarkDirty(id ScopeID, p Priority) {
	s, ok := d.scopes.lookup(id)
	if !ok {
		return
	}
	if d.dirty.mark(s, p) {
		d.log.Debug("scope marked dirty", "scope", id, "priority", p)
	}
}

// markFromHook marks s with the priority of the code currently running:
// immediate inside event handlers, deferred inside task callbacks.
func (d *VirtualDom) markFromHook(s *Scope) {
	if !s.alive {
		return
	}
	d.MarkDirty(s.id, d.priority)
}

// pop returns the next live dirty scope at p, skipping stale entries.
func (d *VirtualDom) pop(p Priority) (*Scope, bool) {
	h := d.dirty.heap(p)
	for h.Len() > 0 {
		e := heap.Pop(h).(dirtyEntry)
		if !d.dirty.contains(e.id, p) {
			continue
		}
		s, ok := d.scopes.lookup(e.id)
		if !ok || s.epoch != e.epoch {
			continue
		}
		return s, true
	}
	return nil, false
}

// promoteAncestors moves any deferred ancestor of s into the immediate
// queue so it is diffed before s. Returns true if one was found.
func (d *VirtualDom) promoteAncestors(s *Scope) bool {
	promoted := false
	for a := s.parent; a != nil; a = a.parent {
		if d.dirty.contains(a.id, Deferred) {
			d.dirty.mark(a, Immediate)
			promoted = true
		}
	}
	return promoted
}

// HasDirty reports whether any scope waits for a render.
func (d *VirtualDom) HasDirty() bool {
	return d.dirty.len() > 0
}

// ProcessMessages applies task callbacks, task completions and queued
// events without blocking. Callbacks from cancelled tasks are dropped.
func (d *VirtualDom) ProcessMessages() {
	for {
		msg, ok := d.queue.tryDequeue()
		if !ok {
			return
		}
		d.applyMessage(msg)
	}
}

func (d *VirtualDom) applyMessage(msg message) {
	switch msg.kind {
	case messageCallback:
		if _, alive := d.tasks[msg.task]; !alive {
			return
		}
		prev := d.priority
		d.priority = Deferred
		msg.fn()
		d.priority = prev
	case messageTaskDone:
		d.finishTask(msg.task, msg.err)
	case messageEvent:
		msg.fn()
	}
}

// WaitForWork blocks until a scope is dirty, effects are pending, or ctx is
// done. Task wake-ups and queued events are applied while waiting.
func (d *VirtualDom) WaitForWork(ctx context.Context) error {
	for {
		if d.closed {
			return &RuntimeError{Code: ErrCodeClosed, Message: "virtual dom closed"}
		}
		d.ProcessMessages()
		if d.HasDirty() || len(d.effects) > 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.queue.wait():
		}
	}
}

// RenderImmediate drains the immediate queue, writing mutations to to.
// Ancestors are always diffed before descendants; a descendant unmounted by
// an ancestor's diff is dropped. It returns the number of scopes rendered.
func (d *VirtualDom) RenderImmediate(to mutation.Writer) int {
	if d.closed {
		return 0
	}
	d.ProcessMessages()
	rendered := d.drain(to, Immediate, nil)
	d.runEffects()
	return rendered
}

// RenderDeferred drains the immediate queue, then works through the deferred
// queue until it is empty or budget is spent. The budget is checked between
// scope diffs. It returns true when no dirty scopes remain.
func (d *VirtualDom) RenderDeferred(to mutation.Writer, budget time.Duration) bool {
	if d.closed {
		return true
	}
	d.ProcessMessages()
	d.drain(to, Immediate, nil)

	b := newFrameBudget(d.timeSource, budget)
	d.drain(to, Deferred, b)
	if !d.dirty.empty(Deferred) {
		d.log.Debug("deferred work yielded", "elapsed", b.elapsed(), "renders", b.diffs, "remaining", d.dirty.len())
	}
	d.runEffects()
	return !d.HasDirty()
}

// drain renders scopes from queue p. Deferred draining also picks up
// immediate work that appears mid-pass first.
func (d *VirtualDom) drain(to mutation.Writer, p Priority, b *frameBudget) int {
	rendered := 0
	for {
		if b != nil && b.exhausted() {
			return rendered
		}
		s, ok := d.pop(Immediate)
		if !ok && p == Deferred {
			s, ok = d.pop(Deferred)
		}
		if !ok {
			return rendered
		}
		if d.promoteAncestors(s) {
			// Put s back; the promoted ancestor sorts ahead of it.
			heap.Push(d.dirty.heap(d.dirty.member[s.id]), dirtyEntry{height: s.height, id: s.id, epoch: s.epoch})
			continue
		}

		d.renderAndDiff(to, s)
		rendered++
		if b != nil {
			b.spend()
		}
	}
}

type pendingEffect struct {
	scope ScopeID
	epoch uint64
	fns   []func()
}

// runEffects runs effects queued by committed renders whose scope is still
// mounted.
func (d *VirtualDom) runEffects() {
	for len(d.effects) > 0 {
		batch := d.effects
		d.effects = nil
		for _, e := range batch {
			s, ok := d.scopes.lookup(e.scope)
			if !ok || s.epoch != e.epoch {
				continue
			}
			for _, fn := range e.fns {
				fn()
			}
		}
	}
}

// captureError routes a render or task error to the nearest ErrorBoundary
// above s.
func (d *VirtualDom) captureError(s *Scope, err error) {
	for a := s.parent; a != nil; a = a.parent {
		if a.boundary == nil {
			continue
		}
		a.boundary.err = err
		d.MarkDirty(a.id, Immediate)
		d.log.Warn("error captured by boundary", "scope", s.id, "component", s.name, "boundary", a.id, "err", err)
		return
	}
	d.uncaught = append(d.uncaught, err)
	d.log.Error("uncaught component error", "scope", s.id, "component", s.name, "err", err)
}

// setSuspended records whether s is suspended and tells the nearest
// SuspenseBoundary above it when that changes.
func (d *VirtualDom) setSuspended(s *Scope, suspended bool) {
	if s.suspended == suspended {
		return
	}
	s.suspended = suspended
	for a := s.parent; a != nil; a = a.parent {
		if a.suspense == nil {
			continue
		}
		if suspended {
			a.suspense.pending[s.id] = struct{}{}
		} else {
			delete(a.suspense.pending, s.id)
		}
		d.MarkDirty(a.id, Immediate)
		return
	}
}

// TakeErrors returns and clears errors that reached the root without an
// ErrorBoundary.
func (d *VirtualDom) TakeErrors() []error {
	errs := d.uncaught
	d.uncaught = nil
	return errs
}

// SuspendedScopes lists scopes whose last render suspended.
func (d *VirtualDom) SuspendedScopes() []ScopeID {
	var out []ScopeID
	for _, s := range d.scopes.scopes {
		if s != nil && s.suspended {
			out = append(out, s.id)
		}
	}
	return out
}
