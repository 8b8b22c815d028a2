package harness

import (
	"bytes"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/vtree/internal/mutation"
)

// Scenario is a sequence of frames rendered against one virtual DOM.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario exercises.
	Description string `yaml:"description"`

	// Templates lists CUE files holding the templates the trees use.
	// Relative paths resolve against the scenario file's directory.
	Templates []string `yaml:"templates"`

	// Encoding is the wire format each batch passes through before replay.
	// Defaults to msgpack.
	Encoding string `yaml:"encoding,omitempty"`

	// Components are named reusable trees, referenced with use.
	Components map[string]TreeSpec `yaml:"components,omitempty"`

	// Frames are rendered in order. The first frame must carry a tree.
	Frames []Frame `yaml:"frames"`

	// Assertions run over the frame traces after the last frame.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Frame is one driver step: a new root tree or an event.
type Frame struct {
	Name  string     `yaml:"name"`
	Tree  *TreeSpec  `yaml:"tree,omitempty"`
	Event *EventStep `yaml:"event,omitempty"`
}

// EventStep dispatches an event at a renderer element id.
type EventStep struct {
	Name    string `yaml:"name"`
	Target  uint64 `yaml:"target"`
	Bubbles bool   `yaml:"bubbles,omitempty"`
}

// TreeSpec instantiates a template.
type TreeSpec struct {
	Template string     `yaml:"template"`
	Key      string     `yaml:"key,omitempty"`
	Attrs    []AttrSpec `yaml:"attrs,omitempty"`
	Nodes    []DynSpec  `yaml:"nodes,omitempty"`
}

// AttrSpec fills one dynamic attribute slot. A set On makes it a listener;
// otherwise Value is a string, integer, float, bool or null (unset).
type AttrSpec struct {
	Name      string `yaml:"name,omitempty"`
	Namespace string `yaml:"namespace,omitempty"`
	Value     any    `yaml:"value,omitempty"`
	On        string `yaml:"on,omitempty"`
}

// DynSpec fills one dynamic node slot. Exactly one field is set.
type DynSpec struct {
	Text        *string        `yaml:"text,omitempty"`
	Placeholder bool           `yaml:"placeholder,omitempty"`
	Fragment    []TreeSpec     `yaml:"fragment,omitempty"`
	Component   *ComponentSpec `yaml:"component,omitempty"`
	Use         string         `yaml:"use,omitempty"`
	Boundary    *BoundarySpec  `yaml:"boundary,omitempty"`
}

// ComponentSpec renders Tree in a child scope. The child re-renders only
// when Tree changes. A set Fail makes the render return that error instead.
type ComponentSpec struct {
	Name string    `yaml:"name"`
	Tree *TreeSpec `yaml:"tree,omitempty"`
	Fail string    `yaml:"fail,omitempty"`
}

// BoundarySpec wraps a component in an error boundary whose fallback is a
// text node.
type BoundarySpec struct {
	Fallback  string        `yaml:"fallback"`
	Component ComponentSpec `yaml:"component"`
}

func (d *DynSpec) variants() int {
	n := 0
	if d.Text != nil {
		n++
	}
	if d.Placeholder {
		n++
	}
	if d.Fragment != nil {
		n++
	}
	if d.Component != nil {
		n++
	}
	if d.Use != "" {
		n++
	}
	if d.Boundary != nil {
		n++
	}
	return n
}

// Assertion validates frame traces.
type Assertion struct {
	// Type specifies the assertion type:
	// - "html": the frame's replayed HTML equals HTML
	// - "edit_count": the frame emitted exactly Count edits
	// - "kind_count": Kind appears Count times in the frame, or in all
	//   frames when Frame is empty
	// - "edit_order": Kinds appear in order within the frame
	// - "edit_contains": an edit renders exactly as Edit
	// - "handled": the frame's event ran Count listeners
	Type string `yaml:"type"`

	Frame string   `yaml:"frame,omitempty"`
	HTML  string   `yaml:"html,omitempty"`
	Kind  string   `yaml:"kind,omitempty"`
	Kinds []string `yaml:"kinds,omitempty"`
	Edit  string   `yaml:"edit,omitempty"`
	Count int      `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertHTML         = "html"
	AssertEditCount    = "edit_count"
	AssertKindCount    = "kind_count"
	AssertEditOrder    = "edit_order"
	AssertEditContains = "edit_contains"
	AssertHandled      = "handled"
)

// LoadScenario reads and parses a scenario YAML file. Template paths are
// resolved against the file's directory. Unknown fields are rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	s, err := ParseScenario(data, filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ParseScenario parses scenario YAML, resolving template paths against
// basePath when it is not empty.
func ParseScenario(data []byte, basePath string) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	for i, p := range scenario.Templates {
		if !filepath.IsAbs(p) && basePath != "" {
			scenario.Templates[i] = filepath.Join(basePath, p)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// FindScenarios returns the .yaml and .yml files under dir, sorted.
func FindScenarios(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch filepath.Ext(path) {
		case ".yaml", ".yml":
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(paths)
	return paths, nil
}

// format returns the scenario's wire format.
func (s *Scenario) format() (mutation.Format, error) {
	if s.Encoding == "" {
		return mutation.FormatMsgpack, nil
	}
	return mutation.ParseFormat(s.Encoding)
}

// validateScenario checks the parts of a scenario that do not depend on the
// templates.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Templates) == 0 {
		return fmt.Errorf("templates list is required and must be non-empty")
	}
	if len(s.Frames) == 0 {
		return fmt.Errorf("frames list is required and must be non-empty")
	}
	if _, err := s.format(); err != nil {
		return fmt.Errorf("encoding: %w", err)
	}

	for _, p := range s.Templates {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return fmt.Errorf("template file not found: %s", p)
		}
	}

	for _, name := range sortedKeys(s.Components) {
		tree := s.Components[name]
		if err := validateTree(s, &tree, "components."+name); err != nil {
			return err
		}
	}

	names := make(map[string]bool, len(s.Frames))
	for i, f := range s.Frames {
		field := fmt.Sprintf("frames[%d]", i)
		if f.Name == "" {
			return fmt.Errorf("%s: name is required", field)
		}
		if names[f.Name] {
			return fmt.Errorf("%s: duplicate frame name %q", field, f.Name)
		}
		names[f.Name] = true

		switch {
		case (f.Tree == nil) == (f.Event == nil):
			return fmt.Errorf("%s: exactly one of tree or event is required", field)
		case f.Event != nil && i == 0:
			return fmt.Errorf("%s: the first frame must render a tree", field)
		case f.Event != nil && f.Event.Name == "":
			return fmt.Errorf("%s.event: name is required", field)
		case f.Tree != nil:
			if err := validateTree(s, f.Tree, field+".tree"); err != nil {
				return err
			}
		}
	}

	if cycles := AnalyzeCycles(s.Components); len(cycles) > 0 {
		return cycles[0]
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i], names); err != nil {
			return err
		}
	}
	return nil
}

func validateTree(s *Scenario, t *TreeSpec, field string) error {
	if t.Template == "" {
		return fmt.Errorf("%s: template is required", field)
	}
	for i, a := range t.Attrs {
		af := fmt.Sprintf("%s.attrs[%d]", field, i)
		switch {
		case a.On != "" && (a.Name != "" || a.Value != nil):
			return fmt.Errorf("%s: a listener takes only on", af)
		case a.On == "" && a.Name == "":
			return fmt.Errorf("%s: name or on is required", af)
		case a.Namespace != "":
			if _, ok := a.Value.(string); !ok {
				return fmt.Errorf("%s: namespaced attributes take string values", af)
			}
		}
		if a.On == "" {
			if _, err := attrValue(a.Value); err != nil {
				return fmt.Errorf("%s: %w", af, err)
			}
		}
	}
	for i := range t.Nodes {
		if err := validateDyn(s, &t.Nodes[i], fmt.Sprintf("%s.nodes[%d]", field, i)); err != nil {
			return err
		}
	}
	return nil
}

func validateDyn(s *Scenario, d *DynSpec, field string) error {
	if d.variants() != 1 {
		return fmt.Errorf("%s: exactly one of text, placeholder, fragment, component, use or boundary is required", field)
	}
	switch {
	case d.Fragment != nil:
		for i := range d.Fragment {
			if err := validateTree(s, &d.Fragment[i], fmt.Sprintf("%s.fragment[%d]", field, i)); err != nil {
				return err
			}
		}
	case d.Component != nil:
		return validateComponent(s, d.Component, field+".component")
	case d.Boundary != nil:
		return validateComponent(s, &d.Boundary.Component, field+".boundary.component")
	case d.Use != "":
		if _, ok := s.Components[d.Use]; !ok {
			return fmt.Errorf("%s: unknown component %q", field, d.Use)
		}
	}
	return nil
}

func validateComponent(s *Scenario, c *ComponentSpec, field string) error {
	if c.Name == "" {
		return fmt.Errorf("%s: name is required", field)
	}
	if (c.Tree == nil) == (c.Fail == "") {
		return fmt.Errorf("%s: exactly one of tree or fail is required", field)
	}
	if c.Tree != nil {
		return validateTree(s, c.Tree, field+".tree")
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, frames map[string]bool) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Frame != "" && !frames[a.Frame] {
		return fmt.Errorf("assertions[%d]: unknown frame %q", index, a.Frame)
	}
	needFrame := func() error {
		if a.Frame == "" {
			return fmt.Errorf("assertions[%d]: frame is required for %s", index, a.Type)
		}
		return nil
	}

	switch a.Type {
	case AssertHTML, AssertEditCount, AssertHandled:
		if err := needFrame(); err != nil {
			return err
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertKindCount:
		if _, err := mutation.ParseKind(a.Kind); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertEditOrder:
		if err := needFrame(); err != nil {
			return err
		}
		if len(a.Kinds) == 0 {
			return fmt.Errorf("assertions[%d]: kinds list is required for edit_order", index)
		}
		for _, k := range a.Kinds {
			if _, err := mutation.ParseKind(k); err != nil {
				return fmt.Errorf("assertions[%d]: %w", index, err)
			}
		}
	case AssertEditContains:
		if err := needFrame(); err != nil {
			return err
		}
		if strings.TrimSpace(a.Edit) == "" {
			return fmt.Errorf("assertions[%d]: edit is required for edit_contains", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
