package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/vtree/internal/mutation"
)

// AssertionError is returned when an assertion fails. It carries the frame
// trace it was checked against.
type AssertionError struct {
	Type     string      // Assertion type for categorization
	Frame    string      // Frame name, empty for whole-run assertions
	Expected string      // Human-readable expected outcome
	Actual   string      // Human-readable actual outcome
	Trace    *FrameTrace // Frame trace for context, may be nil
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s", e.Type)
	if e.Frame != "" {
		fmt.Fprintf(&buf, " (frame %s)", e.Frame)
	}
	buf.WriteString("\n")
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if e.Trace != nil {
		fmt.Fprintf(&buf, "\nFrame edits:\n")
		for i, line := range e.Trace.Lines() {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, line)
		}
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion against result and returns the
// failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var failures []string
	for _, a := range assertions {
		if err := evaluateAssertion(result, a); err != nil {
			failures = append(failures, err.Error())
		}
	}
	return failures
}

func evaluateAssertion(result *Result, a Assertion) error {
	if a.Type == AssertKindCount && a.Frame == "" {
		return assertKindCount(result.Frames, a)
	}

	frame, ok := result.Frame(a.Frame)
	if !ok {
		return &AssertionError{
			Type:     a.Type,
			Frame:    a.Frame,
			Expected: "frame present in trace",
			Actual:   "frame did not run",
		}
	}

	switch a.Type {
	case AssertHTML:
		return assertHTML(frame, a)
	case AssertEditCount:
		return assertEditCount(frame, a)
	case AssertKindCount:
		return assertKindCount([]FrameTrace{*frame}, a)
	case AssertEditOrder:
		return assertEditOrder(frame, a)
	case AssertEditContains:
		return assertEditContains(frame, a)
	case AssertHandled:
		return assertHandled(frame, a)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

func assertHTML(f *FrameTrace, a Assertion) error {
	if f.HTML == a.HTML {
		return nil
	}
	return &AssertionError{Type: a.Type, Frame: f.Name, Expected: a.HTML, Actual: f.HTML}
}

func assertEditCount(f *FrameTrace, a Assertion) error {
	if len(f.Edits) == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Frame:    f.Name,
		Expected: fmt.Sprintf("%d edits", a.Count),
		Actual:   fmt.Sprintf("%d edits", len(f.Edits)),
		Trace:    f,
	}
}

// assertKindCount counts Kind across frames.
func assertKindCount(frames []FrameTrace, a Assertion) error {
	kind, err := mutation.ParseKind(a.Kind)
	if err != nil {
		return err
	}
	count := 0
	for _, f := range frames {
		for _, m := range f.Edits {
			if m.Kind == kind {
				count++
			}
		}
	}
	if count == a.Count {
		return nil
	}

	e := &AssertionError{
		Type:     a.Type,
		Frame:    a.Frame,
		Expected: fmt.Sprintf("%d occurrences of %s", a.Count, kind),
		Actual:   fmt.Sprintf("%d occurrences", count),
	}
	if len(frames) == 1 {
		e.Trace = &frames[0]
	}
	return e
}

// assertEditOrder checks that the first occurrence of each kind follows the
// first occurrence of the one before it. Other edits may intervene.
func assertEditOrder(f *FrameTrace, a Assertion) error {
	positions := make([]int, len(a.Kinds))
	for i, name := range a.Kinds {
		kind, err := mutation.ParseKind(name)
		if err != nil {
			return err
		}
		positions[i] = slices.IndexFunc(f.Edits, func(m mutation.Mutation) bool { return m.Kind == kind })
		if positions[i] < 0 {
			return &AssertionError{
				Type:     a.Type,
				Frame:    f.Name,
				Expected: fmt.Sprintf("all kinds present: %v", a.Kinds),
				Actual:   fmt.Sprintf("missing kind: %s", name),
				Trace:    f,
			}
		}
	}

	for i := 1; i < len(positions); i++ {
		if positions[i-1] >= positions[i] {
			return &AssertionError{
				Type:     a.Type,
				Frame:    f.Name,
				Expected: fmt.Sprintf("kinds in order: %v", a.Kinds),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					a.Kinds[i-1], positions[i-1]+1, a.Kinds[i], positions[i]+1),
				Trace: f,
			}
		}
	}
	return nil
}

func assertEditContains(f *FrameTrace, a Assertion) error {
	if slices.Contains(f.Lines(), a.Edit) {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Frame:    f.Name,
		Expected: a.Edit,
		Actual:   "not found in frame",
		Trace:    f,
	}
}

func assertHandled(f *FrameTrace, a Assertion) error {
	if len(f.Handled) == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Frame:    f.Name,
		Expected: fmt.Sprintf("%d listeners ran", a.Count),
		Actual:   fmt.Sprintf("%d listeners ran: %v", len(f.Handled), f.Handled),
	}
}
