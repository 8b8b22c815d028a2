package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/vtree/internal/template"
)

// CompileTemplate parses a CUE value into a Template.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the template struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`template: card: { roots: [...] }`)
//	tpl, err := CompileTemplate(v.LookupPath(cue.ParsePath("template.card")))
func CompileTemplate(v cue.Value) (*template.Template, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	var id string
	if labels := v.Path().Selectors(); len(labels) > 0 {
		id = labels[len(labels)-1].String()
	}
	if idVal := v.LookupPath(cue.ParsePath("id")); idVal.Exists() {
		s, err := idVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		id = s
	}
	if id == "" {
		return nil, &CompileError{Field: "id", Message: "template id is required", Pos: v.Pos()}
	}

	rootsVal := v.LookupPath(cue.ParsePath("roots"))
	if !rootsVal.Exists() {
		return nil, &CompileError{Field: "roots", Message: "roots is required", Pos: v.Pos()}
	}
	roots, err := parseNodes(rootsVal, "roots")
	if err != nil {
		return nil, err
	}
	if len(roots) == 0 {
		return nil, &CompileError{Field: "roots", Message: "at least one root is required", Pos: rootsVal.Pos()}
	}

	tpl, err := template.New(template.ID(id), roots...)
	if err != nil {
		return nil, &CompileError{Field: "roots", Message: err.Error(), Pos: v.Pos(), Err: err}
	}
	return tpl, nil
}

// parseNodes parses a list of template nodes.
func parseNodes(v cue.Value, field string) ([]template.Node, error) {
	iter, err := v.List()
	if err != nil {
		return nil, &CompileError{Field: field, Message: "must be a list of nodes", Pos: v.Pos()}
	}

	var nodes []template.Node
	for i := 0; iter.Next(); i++ {
		n, err := parseNode(iter.Value(), fmt.Sprintf("%s[%d]", field, i))
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// parseNode parses one node. Exactly one of tag, text or dynamic is set.
func parseNode(v cue.Value, field string) (template.Node, error) {
	tagVal := v.LookupPath(cue.ParsePath("tag"))
	textVal := v.LookupPath(cue.ParsePath("text"))
	dynVal := v.LookupPath(cue.ParsePath("dynamic"))

	set := 0
	for _, f := range []cue.Value{tagVal, textVal, dynVal} {
		if f.Exists() {
			set++
		}
	}
	if set != 1 {
		return template.Node{}, &CompileError{
			Field:   field,
			Message: "node must set exactly one of tag, text or dynamic",
			Pos:     v.Pos(),
		}
	}

	switch {
	case textVal.Exists():
		text, err := textVal.String()
		if err != nil {
			return template.Node{}, formatCUEError(err)
		}
		return template.Text(text), nil

	case dynVal.Exists():
		slot, err := parseSlot(dynVal, field+".dynamic")
		if err != nil {
			return template.Node{}, err
		}
		return template.Dynamic(slot), nil
	}

	tag, err := tagVal.String()
	if err != nil {
		return template.Node{}, formatCUEError(err)
	}
	namespace, err := optionalString(v, "namespace")
	if err != nil {
		return template.Node{}, err
	}

	var attrs []template.Attribute
	if attrsVal := v.LookupPath(cue.ParsePath("attrs")); attrsVal.Exists() {
		attrs, err = parseAttrs(attrsVal, field+".attrs")
		if err != nil {
			return template.Node{}, err
		}
	}

	var children []template.Node
	if childVal := v.LookupPath(cue.ParsePath("children")); childVal.Exists() {
		children, err = parseNodes(childVal, field+".children")
		if err != nil {
			return template.Node{}, err
		}
	}

	return template.ElementNS(tag, namespace, attrs, children...), nil
}

// parseAttrs parses an attribute list.
func parseAttrs(v cue.Value, field string) ([]template.Attribute, error) {
	iter, err := v.List()
	if err != nil {
		return nil, &CompileError{Field: field, Message: "must be a list of attributes", Pos: v.Pos()}
	}

	var attrs []template.Attribute
	for i := 0; iter.Next(); i++ {
		a := iter.Value()
		af := fmt.Sprintf("%s[%d]", field, i)

		if dynVal := a.LookupPath(cue.ParsePath("dynamic")); dynVal.Exists() {
			slot, err := parseSlot(dynVal, af+".dynamic")
			if err != nil {
				return nil, err
			}
			attrs = append(attrs, template.DynamicAttr(slot))
			continue
		}

		nameVal := a.LookupPath(cue.ParsePath("name"))
		if !nameVal.Exists() {
			return nil, &CompileError{
				Field:   af,
				Message: "attribute must set name or dynamic",
				Pos:     a.Pos(),
			}
		}
		name, err := nameVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		value, err := optionalString(a, "value")
		if err != nil {
			return nil, err
		}
		namespace, err := optionalString(a, "namespace")
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, template.StaticNS(name, namespace, value))
	}
	return attrs, nil
}

func parseSlot(v cue.Value, field string) (int, error) {
	n, err := v.Int64()
	if err != nil {
		return 0, &CompileError{Field: field, Message: "slot must be an integer", Pos: v.Pos()}
	}
	if n < 0 {
		return 0, &CompileError{Field: field, Message: fmt.Sprintf("slot must not be negative, got %d", n), Pos: v.Pos()}
	}
	return int(n), nil
}

func optionalString(v cue.Value, name string) (string, error) {
	f := v.LookupPath(cue.ParsePath(name))
	if !f.Exists() {
		return "", nil
	}
	s, err := f.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
	Err     error
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *CompileError) Unwrap() error { return e.Err }

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
			Err:     err,
		}
	}

	return err
}
