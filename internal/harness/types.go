package harness

import (
	"github.com/roach88/vtree/internal/mutation"
)

// FrameTrace records what one frame committed.
type FrameTrace struct {
	Name       string              `json:"name"`
	Generation uint64              `json:"generation"`
	Edits      []mutation.Mutation `json:"edits"`
	HTML       string              `json:"html"`
	Elements   int                 `json:"elements"`
	Handled    []string            `json:"handled,omitempty"`
}

// Structural counts the frame's edits that change tree shape.
func (f *FrameTrace) Structural() int {
	n := 0
	for _, m := range f.Edits {
		if m.Kind.Structural() {
			n++
		}
	}
	return n
}

// Lines renders each edit with Mutation.String.
func (f *FrameTrace) Lines() []string {
	lines := make([]string, len(f.Edits))
	for i, m := range f.Edits {
		lines[i] = m.String()
	}
	return lines
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when the replay matched every frame and all assertions
	// held.
	Pass bool `json:"pass"`

	// Frames holds one trace per scenario frame, in order.
	Frames []FrameTrace `json:"frames"`

	// Errors holds isomorphism and assertion failures.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Frames: []FrameTrace{},
		Errors: []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Frame returns the trace of the named frame.
func (r *Result) Frame(name string) (*FrameTrace, bool) {
	for i := range r.Frames {
		if r.Frames[i].Name == name {
			return &r.Frames[i], true
		}
	}
	return nil, false
}

// Edits returns the total number of edits across all frames.
func (r *Result) Edits() int {
	n := 0
	for _, f := range r.Frames {
		n += len(f.Edits)
	}
	return n
}
