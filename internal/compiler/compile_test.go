package compiler

import (
	"errors"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vtree/internal/template"
)

func compileOne(t *testing.T, src, path string) (*template.Template, error) {
	t.Helper()
	v := cuecontext.New().CompileString(src, cue.Filename("test.cue"))
	require.NoError(t, v.Err())
	return CompileTemplate(v.LookupPath(cue.ParsePath(path)))
}

func TestCompileTemplateBasic(t *testing.T) {
	tpl, err := compileOne(t, `
		template: card: {
			roots: [{
				tag: "div"
				attrs: [{name: "class", value: "card"}, {dynamic: 0}]
				children: [
					{tag: "h2", children: [{text: "Title"}]},
					{tag: "p", attrs: [{dynamic: 1}], children: [{dynamic: 0}]},
				]
			}]
		}
	`, "template.card")
	require.NoError(t, err)

	want := template.Must(template.New("card",
		template.Element("div", template.Attrs(template.Static("class", "card"), template.DynamicAttr(0)),
			template.Element("h2", nil, template.Text("Title")),
			template.Element("p", template.Attrs(template.DynamicAttr(1)), template.Dynamic(0)))))

	assert.Equal(t, template.ID("card"), tpl.ID)
	assert.Equal(t, want.Fingerprint(), tpl.Fingerprint())
	assert.Equal(t, 1, tpl.NodeSlots())
	assert.Equal(t, 2, tpl.AttrSlots())
	assert.Equal(t, template.Path{0, 1, 0}, tpl.NodePath(0))
}

func TestCompileTemplateExplicitID(t *testing.T) {
	tpl, err := compileOne(t, `
		template: x: {
			id: "app:button"
			roots: [{tag: "button", children: [{dynamic: 0}]}]
		}
	`, "template.x")
	require.NoError(t, err)
	assert.Equal(t, template.ID("app:button"), tpl.ID)
}

func TestCompileTemplateNamespaces(t *testing.T) {
	tpl, err := compileOne(t, `
		template: icon: {
			roots: [{
				tag: "svg"
				namespace: "http://www.w3.org/2000/svg"
				attrs: [{name: "href", namespace: "xlink", value: "#a"}]
			}]
		}
	`, "template.icon")
	require.NoError(t, err)

	root := tpl.Roots[0]
	assert.Equal(t, "http://www.w3.org/2000/svg", root.Namespace)
	assert.Equal(t, "xlink", root.Attrs[0].Namespace)
}

func TestCompileTemplateErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		field   string
		message string
	}{
		{
			name:    "missing roots",
			src:     `template: a: {}`,
			field:   "roots",
			message: "roots is required",
		},
		{
			name:    "empty roots",
			src:     `template: a: roots: []`,
			field:   "roots",
			message: "at least one root",
		},
		{
			name:    "node sets two kinds",
			src:     `template: a: roots: [{tag: "div", text: "x"}]`,
			field:   "roots[0]",
			message: "exactly one of tag, text or dynamic",
		},
		{
			name:    "node sets nothing",
			src:     `template: a: roots: [{tag: "div", children: [{}]}]`,
			field:   "roots[0].children[0]",
			message: "exactly one of",
		},
		{
			name:    "negative slot",
			src:     `template: a: roots: [{dynamic: -1}]`,
			field:   "roots[0].dynamic",
			message: "must not be negative",
		},
		{
			name:    "attribute without name",
			src:     `template: a: roots: [{tag: "div", attrs: [{value: "x"}]}]`,
			field:   "roots[0].attrs[0]",
			message: "name or dynamic",
		},
		{
			name:    "children not a list",
			src:     `template: a: roots: [{tag: "div", children: "x"}]`,
			field:   "roots[0].children",
			message: "list of nodes",
		},
		{
			name:    "sparse slots",
			src:     `template: a: roots: [{dynamic: 1}]`,
			field:   "roots",
			message: "numbered",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compileOne(t, tt.src, "template.a")
			require.Error(t, err)

			var ce *CompileError
			require.True(t, errors.As(err, &ce), "got %T: %v", err, err)
			assert.Equal(t, tt.field, ce.Field)
			assert.Contains(t, ce.Message, tt.message)
		})
	}
}

func TestCompileTemplateInvalidWrapsTemplateError(t *testing.T) {
	_, err := compileOne(t, `template: a: roots: [{dynamic: 0}, {dynamic: 0}]`, "template.a")
	require.Error(t, err)
	assert.ErrorIs(t, err, template.ErrInvalidTemplate)
}

func TestCompileErrorPosition(t *testing.T) {
	ce := &CompileError{Field: "roots", Message: "roots is required"}
	assert.Equal(t, "roots: roots is required", ce.Error())

	_, err := compileOne(t, "template: a: {\n}\n", "template.a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "test.cue:1:")
}
