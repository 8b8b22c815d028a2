package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/vtree/internal/mutation"
	"github.com/roach88/vtree/internal/template"
)

// DefaultDeferredBudget bounds one deferred pass in Run.
const DefaultDeferredBudget = 8 * time.Millisecond

// VirtualDom owns a component tree and reconciles it into mutations.
//
// A VirtualDom is single-writer: Rebuild, the Render methods, HandleEvent,
// WaitForWork, ReplaceTemplate and Close must all be called from one driver
// goroutine. Task goroutines reach the driver only through their post
// callback; hosts on other goroutines use Dispatch.
type VirtualDom struct {
	log        *slog.Logger
	clock      *Clock
	timeSource TimeSource
	budget     time.Duration

	scopes   *scopeArena
	mounts   *slab[*mount]
	elements *slab[elementRef]
	dirty    *dirtySet
	priority Priority

	templates  *template.Registry
	registered map[*template.Template]bool

	queue    *messageQueue
	ctx      context.Context
	cancel   context.CancelFunc
	tasks    map[TaskID]*Task
	nextTask TaskID

	effects  []pendingEffect
	uncaught []error
	built    bool
	closed   bool
}

// Option configures a VirtualDom.
type Option func(*VirtualDom)

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(d *VirtualDom) {
		d.log = l
	}
}

// WithDeferredBudget sets the time slice Run gives the deferred queue per
// pass. Zero disables slicing.
func WithDeferredBudget(budget time.Duration) Option {
	return func(d *VirtualDom) {
		d.budget = budget
	}
}

// WithTimeSource replaces the wall clock used for time slicing.
func WithTimeSource(ts TimeSource) Option {
	return func(d *VirtualDom) {
		d.timeSource = ts
	}
}

// WithClock resumes generation numbering from an existing clock.
func WithClock(c *Clock) Option {
	return func(d *VirtualDom) {
		d.clock = c
	}
}

// WithTemplates seeds the template registry, for example with templates
// loaded from CUE definitions.
func WithTemplates(r *template.Registry) Option {
	return func(d *VirtualDom) {
		d.templates = r
	}
}

// New creates a VirtualDom whose root scope renders root. Nothing renders
// until Rebuild.
func New(root Component, opts ...Option) *VirtualDom {
	ctx, cancel := context.WithCancel(context.Background())
	reg, _ := template.NewRegistry()

	d := &VirtualDom{
		log:        slog.Default(),
		clock:      &Clock{},
		timeSource: SystemTime,
		budget:     DefaultDeferredBudget,
		scopes:     &scopeArena{},
		mounts:     newSlab[*mount](),
		elements:   newSlab[elementRef](),
		dirty:      newDirtySet(),
		priority:   Immediate,
		templates:  reg,
		registered: make(map[*template.Template]bool),
		queue:      newMessageQueue(),
		ctx:        ctx,
		cancel:     cancel,
		tasks:      make(map[TaskID]*Task),
	}
	for _, opt := range opts {
		opt(d)
	}

	d.scopes.create(d, nil, root)
	return d
}

// Rebuild renders the whole tree from scratch and appends it to the host
// root. Boundaries that caught errors during the first render are settled
// before it returns.
func (d *VirtualDom) Rebuild(to mutation.Writer) {
	if d.closed || d.built {
		return
	}
	d.built = true
	d.log.Info("virtual dom building", "root", d.scopes.get(RootScopeID).name)

	root := d.scopes.get(RootScopeID)
	next := d.runScope(root)
	pushed := d.create(to, root, next, elementRef{})
	d.commit(root, next)
	to.WriteMutation(mutation.AppendChildren(mutation.Root, pushed))

	d.drain(to, Immediate, nil)
	d.runEffects()
	d.clock.Next()
}

// RebuildBatch is Rebuild collected into a Batch.
func (d *VirtualDom) RebuildBatch() mutation.Batch {
	var log mutation.Log
	d.Rebuild(&log)
	return mutation.Batch{Generation: d.clock.Current(), Edits: log.Edits}
}

// RenderImmediateBatch is RenderImmediate collected into a Batch. The
// generation only advances when there were edits.
func (d *VirtualDom) RenderImmediateBatch() mutation.Batch {
	var log mutation.Log
	d.RenderImmediate(&log)
	return d.batch(log.Edits)
}

// RenderDeferredBatch is RenderDeferred collected into a Batch.
func (d *VirtualDom) RenderDeferredBatch(budget time.Duration) (mutation.Batch, bool) {
	var log mutation.Log
	done := d.RenderDeferred(&log, budget)
	return d.batch(log.Edits), done
}

func (d *VirtualDom) batch(edits []mutation.Mutation) mutation.Batch {
	if len(edits) == 0 {
		return mutation.Batch{Generation: d.clock.Current()}
	}
	return mutation.Batch{Generation: d.clock.Next(), Edits: edits}
}

// Generation returns the number of committed batches.
func (d *VirtualDom) Generation() uint64 {
	return d.clock.Current()
}

// Run drives the VirtualDom until ctx is done: it waits for work, renders
// immediate and then deferred work within the configured budget, and hands
// each non-empty batch to flush. Run owns the driver role while it runs.
func (d *VirtualDom) Run(ctx context.Context, flush func(mutation.Batch) error) error {
	d.log.Info("virtual dom running", "budget", d.budget)
	if !d.built {
		if err := flush(d.RebuildBatch()); err != nil {
			return fmt.Errorf("flush rebuild: %w", err)
		}
	}

	for {
		if err := d.WaitForWork(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				d.log.Info("virtual dom stopping: context done")
			}
			return err
		}

		b, _ := d.RenderDeferredBatch(d.budget)
		if len(b.Edits) == 0 {
			continue
		}
		if err := flush(b); err != nil {
			return fmt.Errorf("flush generation %d: %w", b.Generation, err)
		}
	}
}

// runScope renders s into its work-in-progress buffer and returns the new
// root vnode. Suspension and errors produce a placeholder.
func (d *VirtualDom) runScope(s *Scope) vref {
	f := s.buffers.BeginRender()
	s.hookIdx = 0
	s.effects = s.effects[:0]
	s.rendering = true

	node, err := s.component.Render(s)

	s.rendering = false
	s.renders++

	var se *SuspendedError
	switch {
	case err == nil:
		d.setSuspended(s, false)
	case errors.As(err, &se):
		d.setSuspended(s, true)
		d.log.Debug("scope suspended", "scope", s.id, "component", s.name, "reason", se.Reason)
		node = Node{}
	default:
		d.setSuspended(s, false)
		d.captureError(s, err)
		node = Node{}
	}

	if node.IsZero() {
		s.rendering = true
		node = s.Placeholder()
		s.rendering = false
	}
	if !f.vnodes.Owns(node.ref) {
		violate(ViolationStaleNode, s.id, "render returned a node built outside this render")
	}
	return vref{f: f, ref: node.ref}
}

// resolveTemplate maps tpl to its current hot-reloaded version.
func (d *VirtualDom) resolveTemplate(tpl *template.Template, scope ScopeID) *template.Template {
	current, ok := d.templates.Lookup(tpl.ID)
	if !ok {
		if err := d.templates.Register(tpl); err != nil {
			violate(ViolationDuplicateTemplate, scope, "%v", err)
		}
		return tpl
	}
	if current != tpl && d.templates.Revision(tpl.ID) == 0 && current.Fingerprint() != tpl.Fingerprint() {
		violate(ViolationDuplicateTemplate, scope, "template %s has two different shapes", tpl.ID)
	}
	return current
}

// ReplaceTemplate swaps in a new shape for template id. Every scope whose
// committed tree uses the old shape is marked dirty, and its next diff
// replaces those nodes wholesale. The new shape must keep the slot counts.
func (d *VirtualDom) ReplaceTemplate(id template.ID, tpl *template.Template) error {
	if d.closed {
		return &RuntimeError{Code: ErrCodeClosed, Message: "virtual dom closed"}
	}
	if tpl.ID != id {
		return &RuntimeError{Code: ErrCodeSlotMismatch, Message: fmt.Sprintf("replacement for %s carries id %s", id, tpl.ID)}
	}

	old, err := d.templates.Replace(tpl)
	switch {
	case errors.Is(err, template.ErrTemplateNotFound):
		return &RuntimeError{Code: ErrCodeTemplateNotFound, Message: string(id), Err: err}
	case err != nil:
		return &RuntimeError{Code: ErrCodeSlotMismatch, Message: string(id), Err: err}
	}

	affected := 0
	for i := 1; i < len(d.mounts.items); i++ {
		m, ok := d.mounts.get(uint32(i))
		if !ok {
			continue
		}
		s, ok := d.scopes.lookup(m.scope)
		if !ok {
			continue
		}
		v := vref{f: s.buffers.Committed(), ref: m.node}
		if v.node().tpl == old {
			d.MarkDirty(s.id, Immediate)
			affected++
		}
	}

	d.log.Info("template replaced", "template", id, "revision", d.templates.Revision(id), "mounts", affected)
	return nil
}

// Templates returns the registry of templates this VirtualDom has seen.
func (d *VirtualDom) Templates() *template.Registry {
	return d.templates
}

// Close unmounts every scope, cancelling all tasks, and rejects further
// work. No mutations are emitted.
func (d *VirtualDom) Close() {
	if d.closed {
		return
	}
	if root, ok := d.scopes.lookup(RootScopeID); ok {
		if root.root.Valid() {
			d.removeNode(mutation.Discard, root.committed(), -1, false)
		}
		d.dropScope(root)
	}
	for id := range d.tasks {
		d.cancelTask(id)
	}
	d.cancel()
	d.queue.close()
	d.closed = true
	d.log.Info("virtual dom closed")
}
