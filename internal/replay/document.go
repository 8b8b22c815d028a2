package replay

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/a-h/templ"

	"github.com/roach88/vtree/internal/dom"
	"github.com/roach88/vtree/internal/mutation"
	"github.com/roach88/vtree/internal/template"
)

var (
	// ErrUnknownNode is returned when a mutation names an id that is not
	// live.
	ErrUnknownNode = errors.New("replay: unknown node id")

	// ErrUnknownTemplate is returned when LoadTemplate names a template that
	// was never registered.
	ErrUnknownTemplate = errors.New("replay: unknown template")

	// ErrStackUnderflow is returned when a mutation pops more nodes than are
	// on the stack.
	ErrStackUnderflow = errors.New("replay: stack underflow")

	// ErrDanglingStack is returned when a batch ends with nodes still pushed.
	ErrDanglingStack = errors.New("replay: nodes left on stack")

	// ErrOutOfOrder is returned when a batch's generation does not follow
	// the previous batch.
	ErrOutOfOrder = errors.New("replay: batch out of order")
)

// Document is the renderer-side tree built from a mutation stream. It is
// not safe for concurrent use.
type Document struct {
	log       *slog.Logger
	root      *dom.Node
	nodes     map[mutation.ElementID]*dom.Node
	templates map[template.ID]*template.Template
	stack     []*dom.Node

	batches    int
	generation uint64
	applied    int
}

// Option configures a Document.
type Option func(*Document)

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(d *Document) {
		d.log = l
	}
}

// New returns an empty document whose host root has id 0.
func New(opts ...Option) *Document {
	root := dom.NewRoot()
	d := &Document{
		log:       slog.Default(),
		root:      root,
		nodes:     map[mutation.ElementID]*dom.Node{mutation.Root: root},
		templates: make(map[template.ID]*template.Template),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Root returns the host root.
func (d *Document) Root() *dom.Node { return d.root }

// HTML serializes the document in canonical form.
func (d *Document) HTML() string { return dom.HTML(d.root) }

// Component adapts the document to a templ component.
func (d *Document) Component() templ.Component { return dom.Component(d.root) }

// Node returns the node registered under id.
func (d *Document) Node(id mutation.ElementID) (*dom.Node, bool) {
	n, ok := d.nodes[id]
	return n, ok
}

// Len returns the number of live ids, excluding the root.
func (d *Document) Len() int { return len(d.nodes) - 1 }

// StackDepth returns how many nodes are pushed.
func (d *Document) StackDepth() int { return len(d.stack) }

// Generation returns the generation of the last non-empty batch applied.
func (d *Document) Generation() uint64 { return d.generation }

// Applied returns the number of mutations applied so far.
func (d *Document) Applied() int { return d.applied }

// Template returns a registered template.
func (d *Document) Template(id template.ID) (*template.Template, bool) {
	t, ok := d.templates[id]
	return t, ok
}

// ApplyBatch applies every mutation of b. Empty batches are ignored. The
// document is left as it was at the failing mutation on error.
func (d *Document) ApplyBatch(b mutation.Batch) error {
	if len(b.Edits) == 0 {
		return nil
	}
	if d.batches > 0 && b.Generation <= d.generation {
		return fmt.Errorf("%w: generation %d after %d", ErrOutOfOrder, b.Generation, d.generation)
	}
	for i, m := range b.Edits {
		if err := d.Apply(m); err != nil {
			return fmt.Errorf("generation %d edit %d: %w", b.Generation, i, err)
		}
	}
	if len(d.stack) != 0 {
		return fmt.Errorf("%w: generation %d left %d", ErrDanglingStack, b.Generation, len(d.stack))
	}
	d.batches++
	d.generation = b.Generation
	d.log.Debug("batch applied", "generation", b.Generation, "edits", len(b.Edits), "nodes", d.Len())
	return nil
}

// Apply applies one mutation.
func (d *Document) Apply(m mutation.Mutation) error {
	if err := d.apply(m); err != nil {
		return fmt.Errorf("%s: %w", m, err)
	}
	d.applied++
	return nil
}

func (d *Document) apply(m mutation.Mutation) error {
	switch m.Kind {
	case mutation.KindRegisterTemplate:
		if m.Template == nil {
			return ErrUnknownTemplate
		}
		d.templates[m.Template.ID] = m.Template
		return nil

	case mutation.KindLoadTemplate:
		tpl, ok := d.templates[template.ID(m.Name)]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownTemplate, m.Name)
		}
		if m.Index < 0 || m.Index >= len(tpl.Roots) {
			return fmt.Errorf("%w: %s has no root %d", ErrUnknownTemplate, m.Name, m.Index)
		}
		n := cloneTemplateNode(tpl.Roots[m.Index])
		d.register(m.ID, n)
		d.push(n)
		return nil

	case mutation.KindAssignNodeID:
		n, err := d.atPath(m.Path)
		if err != nil {
			return err
		}
		d.register(m.ID, n)
		return nil

	case mutation.KindCreatePlaceholder:
		n := dom.NewPlaceholder()
		d.register(m.ID, n)
		d.push(n)
		return nil

	case mutation.KindCreateTextNode:
		n := dom.NewText(m.Text)
		d.register(m.ID, n)
		d.push(n)
		return nil

	case mutation.KindPushRoot:
		n, err := d.lookup(m.ID)
		if err != nil {
			return err
		}
		d.push(n)
		return nil

	case mutation.KindAppendChildren:
		parent, err := d.lookup(m.ID)
		if err != nil {
			return err
		}
		nodes, err := d.pop(m.M)
		if err != nil {
			return err
		}
		parent.AppendChild(nodes...)
		return nil

	case mutation.KindReplaceWith:
		target, err := d.lookup(m.ID)
		if err != nil {
			return err
		}
		nodes, err := d.pop(m.M)
		if err != nil {
			return err
		}
		if err := target.ReplaceWith(nodes...); err != nil {
			return err
		}
		d.forget(target)
		return nil

	case mutation.KindReplacePlaceholder:
		nodes, err := d.pop(m.M)
		if err != nil {
			return err
		}
		target, err := d.atPath(m.Path)
		if err != nil {
			return err
		}
		return target.ReplaceWith(nodes...)

	case mutation.KindInsertAfter, mutation.KindInsertBefore:
		anchor, err := d.lookup(m.ID)
		if err != nil {
			return err
		}
		nodes, err := d.pop(m.M)
		if err != nil {
			return err
		}
		if m.Kind == mutation.KindInsertAfter {
			return anchor.InsertAfter(nodes...)
		}
		return anchor.InsertBefore(nodes...)

	case mutation.KindSetAttribute:
		n, err := d.lookup(m.ID)
		if err != nil {
			return err
		}
		n.SetAttr(m.Name, m.Namespace, m.Value.String())
		return nil

	case mutation.KindRemoveAttribute:
		n, err := d.lookup(m.ID)
		if err != nil {
			return err
		}
		n.RemoveAttr(m.Name, m.Namespace)
		return nil

	case mutation.KindSetText:
		n, err := d.lookup(m.ID)
		if err != nil {
			return err
		}
		n.Text = m.Text
		return nil

	case mutation.KindNewEventListener:
		n, err := d.lookup(m.ID)
		if err != nil {
			return err
		}
		n.Listen(m.Name)
		return nil

	case mutation.KindRemoveEventListener:
		n, err := d.lookup(m.ID)
		if err != nil {
			return err
		}
		n.Unlisten(m.Name)
		return nil

	case mutation.KindRemove:
		n, err := d.lookup(m.ID)
		if err != nil {
			return err
		}
		n.Detach()
		d.forget(n)
		return nil
	}
	return fmt.Errorf("replay: unsupported mutation kind %s", m.Kind)
}

func (d *Document) lookup(id mutation.ElementID) (*dom.Node, error) {
	n, ok := d.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownNode, id)
	}
	return n, nil
}

func (d *Document) register(id mutation.ElementID, n *dom.Node) {
	n.ID = uint64(id)
	d.nodes[id] = n
}

// forget drops the ids of n and its descendants. An id already reassigned
// to another node is left alone.
func (d *Document) forget(n *dom.Node) {
	n.Walk(func(c *dom.Node) {
		id := mutation.ElementID(c.ID)
		if id != mutation.Root && d.nodes[id] == c {
			delete(d.nodes, id)
		}
	})
}

func (d *Document) push(n *dom.Node) {
	d.stack = append(d.stack, n)
}

// pop removes the top m nodes and returns them bottom first.
func (d *Document) pop(m int) ([]*dom.Node, error) {
	if m < 0 || m > len(d.stack) {
		return nil, fmt.Errorf("%w: pop %d of %d", ErrStackUnderflow, m, len(d.stack))
	}
	at := len(d.stack) - m
	out := append([]*dom.Node(nil), d.stack[at:]...)
	d.stack = d.stack[:at]
	return out, nil
}

// atPath resolves a child path below the top of the stack.
func (d *Document) atPath(path template.Path) (*dom.Node, error) {
	if len(d.stack) == 0 {
		return nil, fmt.Errorf("%w: no node to address %s from", ErrStackUnderflow, path)
	}
	return d.stack[len(d.stack)-1].ChildAt(path)
}

func cloneTemplateNode(tn template.Node) *dom.Node {
	switch tn.Kind {
	case template.KindText:
		return dom.NewText(tn.Text)
	case template.KindDynamic:
		return dom.NewPlaceholder()
	}
	el := dom.NewElement(tn.Tag, tn.Namespace)
	for _, a := range tn.Attrs {
		if a.Kind == template.AttrStatic {
			el.SetAttr(a.Name, a.Namespace, a.Value)
		}
	}
	for _, c := range tn.Children {
		el.AppendChild(cloneTemplateNode(c))
	}
	return el
}

// Replay applies batches in order to a fresh document.
func Replay(batches []mutation.Batch, opts ...Option) (*Document, error) {
	d := New(opts...)
	for _, b := range batches {
		if err := d.ApplyBatch(b); err != nil {
			return d, err
		}
	}
	return d, nil
}
