package mutation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vtree/internal/template"
)

func sampleBatch() Batch {
	tpl := template.Must(template.New("row",
		template.Element("tr", template.Attrs(template.DynamicAttr(0)), template.Dynamic(0)),
	))
	return Batch{
		Generation: 3,
		Edits: []Mutation{
			RegisterTemplate(tpl),
			LoadTemplate("row", 0, 1),
			SetAttribute("class", "", TextValue("odd"), 1),
			SetAttribute("width", "", FloatValue(0.5), 1),
			CreateTextNode("cell", 2),
			ReplacePlaceholder(template.Path{0}, 1),
			AppendChildren(Root, 1),
		},
	}
}

func TestCodecRoundTrip(t *testing.T) {
	for _, f := range []Format{FormatJSON, FormatMsgpack, FormatCBOR} {
		t.Run(string(f), func(t *testing.T) {
			want := sampleBatch()

			data, err := Encode(f, want)
			require.NoError(t, err)

			got, err := Decode(f, data)
			require.NoError(t, err)

			require.Len(t, got.Edits, len(want.Edits))
			assert.Equal(t, want.Generation, got.Generation)

			reg := got.Edits[0].Template
			require.NotNil(t, reg)
			assert.Equal(t, want.Edits[0].Template.Fingerprint(), reg.Fingerprint())
			assert.Equal(t, template.Path{0, 0}, reg.NodePath(0))

			for i := 1; i < len(want.Edits); i++ {
				assert.Equal(t, want.Edits[i].String(), got.Edits[i].String(), "edit %d", i)
			}
			assert.True(t, got.Edits[3].Value.Equal(FloatValue(0.5)))
		})
	}
}

func TestCBORDeterministic(t *testing.T) {
	a, err := Encode(FormatCBOR, sampleBatch())
	require.NoError(t, err)
	b, err := Encode(FormatCBOR, sampleBatch())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestUnknownFormat(t *testing.T) {
	_, err := ParseFormat("xml")
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, err = Encode("xml", Batch{})
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, err = Decode("xml", nil)
	assert.ErrorIs(t, err, ErrUnknownFormat)

	f, err := ParseFormat("cbor")
	require.NoError(t, err)
	assert.Equal(t, FormatCBOR, f)
}
