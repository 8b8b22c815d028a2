package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/vtree/internal/template"
)

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		id    template.ID
		roots []template.Node
		want  []string
	}{
		{
			name:  "clean",
			id:    "ok",
			roots: []template.Node{template.Element("div", template.Attrs(template.Static("class", "x")), template.Dynamic(0))},
		},
		{
			name:  "bad tag",
			id:    "t",
			roots: []template.Node{template.Element("my tag", nil)},
			want:  []string{ErrInvalidTagName},
		},
		{
			name:  "bad attribute name",
			id:    "t",
			roots: []template.Node{template.Element("div", template.Attrs(template.Static("a b", "x")))},
			want:  []string{ErrInvalidAttrName},
		},
		{
			name: "duplicate static attribute",
			id:   "t",
			roots: []template.Node{template.Element("div",
				template.Attrs(template.Static("class", "a"), template.Static("class", "b")))},
			want: []string{ErrDuplicateStaticAttr},
		},
		{
			name:  "void element with children",
			id:    "t",
			roots: []template.Node{template.Element("input", nil, template.Text("x"))},
			want:  []string{ErrVoidElementChildren},
		},
		{
			name:  "empty text",
			id:    "t",
			roots: []template.Node{template.Element("p", nil, template.Text(""))},
			want:  []string{ErrEmptyText},
		},
		{
			name:  "static handler",
			id:    "t",
			roots: []template.Node{template.Element("button", template.Attrs(template.Static("onclick", "go()")))},
			want:  []string{ErrStaticEventAttribute},
		},
		{
			name:  "whitespace id",
			id:    "my card",
			roots: []template.Node{template.Text("x")},
			want:  []string{ErrInvalidTemplateID},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tpl := template.Must(template.New(tt.id, tt.roots...))
			errs := Validate(tpl)
			if tt.want == nil {
				assert.Empty(t, errs)
				return
			}
			assert.Equal(t, tt.want, codes(errs))
		})
	}
}

func TestValidationErrorString(t *testing.T) {
	e := ValidationError{Field: "roots[0].tag", Message: "invalid tag name", Code: ErrInvalidTagName}
	assert.Equal(t, "[E120] roots[0].tag: invalid tag name", e.Error())
}
