package engine

import (
	"context"
	"errors"
	"sync/atomic"
)

// TaskID identifies a spawned task. IDs are never reused.
type TaskID uint64

// TaskState is the lifecycle position of a task.
type TaskState uint32

const (
	// TaskPending means the task goroutine is running or waiting.
	TaskPending TaskState = iota + 1
	// TaskCompleted means the task returned without error.
	TaskCompleted
	// TaskFailed means the task returned an error.
	TaskFailed
	// TaskCancelled means the owning scope unmounted or the task was
	// cancelled before it finished.
	TaskCancelled
)

func (s TaskState) String() string {
	switch s {
	case TaskPending:
		return "pending"
	case TaskCompleted:
		return "completed"
	case TaskFailed:
		return "failed"
	case TaskCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Task is a handle to async work owned by a scope.
type Task struct {
	id     TaskID
	scope  ScopeID
	cancel context.CancelFunc
	state  atomic.Uint32
	err    error
}

// ID returns the task identifier.
func (t *Task) ID() TaskID { return t.id }

// Scope returns the owning scope.
func (t *Task) Scope() ScopeID { return t.scope }

// State returns the current lifecycle state.
func (t *Task) State() TaskState { return TaskState(t.state.Load()) }

// Err returns the error a failed task returned. Only meaningful on the
// driver once State is TaskFailed.
func (t *Task) Err() error { return t.err }

// Post schedules fn on the driver. Calls after the task finished or its
// scope unmounted are dropped.
type Post func(fn func())

// TaskFunc is the body of a task. It runs on its own goroutine and must only
// touch scope state through post. ctx is cancelled when the scope unmounts.
type TaskFunc func(ctx context.Context, post Post) error

// Spawn starts a task owned by the scope.
func (s *Scope) Spawn(fn TaskFunc) *Task {
	return s.dom.spawn(s, fn)
}

func (d *VirtualDom) spawn(s *Scope, fn TaskFunc) *Task {
	d.nextTask++
	ctx, cancel := context.WithCancel(d.ctx)
	t := &Task{id: d.nextTask, scope: s.id, cancel: cancel}
	t.state.Store(uint32(TaskPending))

	d.tasks[t.id] = t
	s.tasks = append(s.tasks, t.id)

	post := func(cb func()) {
		d.queue.enqueue(message{kind: messageCallback, task: t.id, fn: cb})
	}
	go func() {
		err := fn(ctx, post)
		d.queue.enqueue(message{kind: messageTaskDone, task: t.id, err: err})
	}()

	d.log.Debug("task spawned", "task", t.id, "scope", s.id)
	return t
}

// CancelTask cancels a task early. Cancelling a finished task is a no-op.
func (d *VirtualDom) CancelTask(id TaskID) {
	t, ok := d.tasks[id]
	if !ok {
		return
	}
	if s, ok := d.scopes.lookup(t.scope); ok {
		s.tasks = removeTaskID(s.tasks, id)
	}
	d.cancelTask(id)
}

// cancelTask stops t synchronously: later posts and its completion are
// ignored from here on.
func (d *VirtualDom) cancelTask(id TaskID) {
	t, ok := d.tasks[id]
	if !ok {
		return
	}
	delete(d.tasks, id)
	t.cancel()
	t.state.Store(uint32(TaskCancelled))
	d.log.Debug("task cancelled", "task", id, "scope", t.scope)
}

// finishTask records a task goroutine's return.
func (d *VirtualDom) finishTask(id TaskID, err error) {
	t, ok := d.tasks[id]
	if !ok {
		return
	}
	delete(d.tasks, id)
	t.cancel()

	s, alive := d.scopes.lookup(t.scope)
	if alive {
		s.tasks = removeTaskID(s.tasks, id)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		t.err = err
		t.state.Store(uint32(TaskFailed))
		if alive {
			d.captureError(s, err)
		}
		return
	}
	t.state.Store(uint32(TaskCompleted))
}

// TaskCount returns the number of pending tasks.
func (d *VirtualDom) TaskCount() int {
	return len(d.tasks)
}

func removeTaskID(ids []TaskID, id TaskID) []TaskID {
	for i, t := range ids {
		if t == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// ResourceState is the readiness of a Resource.
type ResourceState uint8

const (
	ResourcePending ResourceState = iota + 1
	ResourceReady
	ResourceFailed
)

// Resource is an async value loaded by a task owned by the scope.
type Resource[T any] struct {
	scope *Scope
	fetch func(ctx context.Context) (T, error)
	task  *Task
	state ResourceState
	value T
	err   error
}

// UseResource starts fetch on first render and returns a handle whose Read
// suspends the component until the value arrives.
func UseResource[T any](cx *Scope, fetch func(ctx context.Context) (T, error)) *Resource[T] {
	return UseHook(cx, func() *Resource[T] {
		r := &Resource[T]{scope: cx, fetch: fetch}
		r.start()
		return r
	})
}

func (r *Resource[T]) start() {
	r.state = ResourcePending
	r.task = r.scope.Spawn(func(ctx context.Context, post Post) error {
		v, err := r.fetch(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		post(func() {
			r.value, r.err = v, err
			if err != nil {
				r.state = ResourceFailed
			} else {
				r.state = ResourceReady
			}
			r.scope.dom.markFromHook(r.scope)
		})
		return nil
	})
}

// Read returns the value, a *SuspendedError while pending, or the fetch
// error.
func (r *Resource[T]) Read() (T, error) {
	switch r.state {
	case ResourceReady:
		return r.value, nil
	case ResourceFailed:
		var zero T
		return zero, r.err
	}
	var zero T
	return zero, &SuspendedError{Scope: r.scope.id, Reason: "resource pending"}
}

// State returns the resource readiness.
func (r *Resource[T]) State() ResourceState { return r.state }

// Restart cancels any in-flight fetch and starts a new one.
func (r *Resource[T]) Restart() {
	if r.task != nil {
		r.scope.dom.CancelTask(r.task.id)
	}
	r.start()
	r.scope.dom.markFromHook(r.scope)
}

// Dispose cancels the in-flight fetch.
func (r *Resource[T]) Dispose() {
	if r.task != nil {
		r.scope.dom.cancelTask(r.task.id)
	}
}
