package compiler

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/vtree/internal/template"
)

// Lint codes (E120-E129)
const (
	ErrInvalidTagName       = "E120" // tag is not a valid element name
	ErrInvalidAttrName      = "E121" // attribute name is not valid
	ErrDuplicateStaticAttr  = "E122" // same static attribute twice on one element
	ErrVoidElementChildren  = "E123" // void element has children
	ErrEmptyText            = "E124" // static text node is empty
	ErrStaticEventAttribute = "E125" // on* handler written as a static attribute
	ErrInvalidTemplateID    = "E126" // id contains whitespace
)

var (
	tagPattern  = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9-]*$`)
	attrPattern = regexp.MustCompile(`^[A-Za-z_:][-A-Za-z0-9_:.]*$`)

	voidElements = map[string]bool{
		"area": true, "base": true, "br": true, "col": true, "embed": true,
		"hr": true, "img": true, "input": true, "link": true, "meta": true,
		"source": true, "track": true, "wbr": true,
	}
)

// ValidationError represents a lint finding.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate lints a compiled template. Returns all findings (does not
// fail-fast); an empty result means the template is clean.
func Validate(t *template.Template) []ValidationError {
	var errs []ValidationError

	if strings.ContainsAny(string(t.ID), " \t\r\n") {
		errs = append(errs, ValidationError{
			Field:   "id",
			Message: fmt.Sprintf("template id %q contains whitespace", t.ID),
			Code:    ErrInvalidTemplateID,
		})
	}

	for i, r := range t.Roots {
		errs = append(errs, validateNode(r, fmt.Sprintf("roots[%d]", i))...)
	}
	return errs
}

func validateNode(n template.Node, field string) []ValidationError {
	var errs []ValidationError

	switch n.Kind {
	case template.KindText:
		if n.Text == "" {
			errs = append(errs, ValidationError{
				Field:   field + ".text",
				Message: "static text is empty",
				Code:    ErrEmptyText,
			})
		}
		return errs
	case template.KindDynamic:
		return nil
	}

	if !tagPattern.MatchString(n.Tag) {
		errs = append(errs, ValidationError{
			Field:   field + ".tag",
			Message: fmt.Sprintf("invalid tag name %q", n.Tag),
			Code:    ErrInvalidTagName,
		})
	}
	if voidElements[strings.ToLower(n.Tag)] && len(n.Children) > 0 {
		errs = append(errs, ValidationError{
			Field:   field + ".children",
			Message: fmt.Sprintf("void element <%s> cannot have children", n.Tag),
			Code:    ErrVoidElementChildren,
		})
	}

	seen := make(map[string]bool)
	for j, a := range n.Attrs {
		if a.Kind != template.AttrStatic {
			continue
		}
		af := fmt.Sprintf("%s.attrs[%d]", field, j)
		if !attrPattern.MatchString(a.Name) {
			errs = append(errs, ValidationError{
				Field:   af,
				Message: fmt.Sprintf("invalid attribute name %q", a.Name),
				Code:    ErrInvalidAttrName,
			})
		}
		key := a.Namespace + ":" + a.Name
		if seen[key] {
			errs = append(errs, ValidationError{
				Field:   af,
				Message: fmt.Sprintf("duplicate static attribute %q", a.Name),
				Code:    ErrDuplicateStaticAttr,
			})
		}
		seen[key] = true
		if strings.HasPrefix(strings.ToLower(a.Name), "on") && len(a.Name) > 2 {
			errs = append(errs, ValidationError{
				Field:   af,
				Message: fmt.Sprintf("event handler %q must be a dynamic attribute", a.Name),
				Code:    ErrStaticEventAttribute,
			})
		}
	}

	for j, c := range n.Children {
		errs = append(errs, validateNode(c, fmt.Sprintf("%s.children[%d]", field, j))...)
	}
	return errs
}
