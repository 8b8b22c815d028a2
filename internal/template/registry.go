package template

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrDuplicateTemplate is returned when a different template is
	// registered under an existing ID.
	ErrDuplicateTemplate = errors.New("template: duplicate template id")

	// ErrTemplateNotFound is returned when a template ID is unknown.
	ErrTemplateNotFound = errors.New("template: template not found")

	// ErrSlotMismatch is returned when a hot-reload replacement changes the
	// number of dynamic slots.
	ErrSlotMismatch = errors.New("template: replacement changes dynamic slot counts")
)

// Registry maps template IDs to their current shape.
//
// A Registry is not safe for concurrent use. The engine owns one per
// VirtualDom and only touches it from the driver goroutine.
type Registry struct {
	byID     map[ID]*Template
	revision map[ID]int
}

// NewRegistry creates a registry seeded with templates.
func NewRegistry(templates ...*Template) (*Registry, error) {
	r := &Registry{
		byID:     make(map[ID]*Template),
		revision: make(map[ID]int),
	}
	for _, t := range templates {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds t. Registering the same shape twice is a no-op.
func (r *Registry) Register(t *Template) error {
	existing, ok := r.byID[t.ID]
	if ok {
		if existing.Fingerprint() == t.Fingerprint() {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrDuplicateTemplate, t.ID)
	}
	r.byID[t.ID] = t
	return nil
}

// Lookup returns the current template for id.
func (r *Registry) Lookup(id ID) (*Template, bool) {
	t, ok := r.byID[id]
	return t, ok
}

// Resolve maps t to the current template with the same ID, registering t
// if its ID has not been seen.
func (r *Registry) Resolve(t *Template) *Template {
	if current, ok := r.byID[t.ID]; ok {
		return current
	}
	r.byID[t.ID] = t
	return t
}

// Replace swaps in a new shape for an existing ID and returns the previous
// one. The replacement must have the same slot counts; slot positions may
// move.
func (r *Registry) Replace(t *Template) (*Template, error) {
	old, ok := r.byID[t.ID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, t.ID)
	}
	if !old.Compatible(t) {
		return nil, fmt.Errorf("%w: %s has %d/%d node/attr slots, replacement has %d/%d",
			ErrSlotMismatch, t.ID, old.NodeSlots(), old.AttrSlots(), t.NodeSlots(), t.AttrSlots())
	}
	r.byID[t.ID] = t
	r.revision[t.ID]++
	return old, nil
}

// Revision returns how many times id has been replaced.
func (r *Registry) Revision(id ID) int {
	return r.revision[id]
}

// IDs returns all registered IDs in sorted order.
func (r *Registry) IDs() []ID {
	ids := make([]ID, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Len returns the number of registered templates.
func (r *Registry) Len() int {
	return len(r.byID)
}
