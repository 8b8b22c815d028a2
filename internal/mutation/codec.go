package mutation

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/roach88/vtree/internal/template"
)

// ErrUnknownFormat is returned for an unsupported batch encoding.
var ErrUnknownFormat = errors.New("mutation: unknown encoding")

// Format names a batch wire encoding.
type Format string

const (
	FormatJSON    Format = "json"
	FormatMsgpack Format = "msgpack"
	FormatCBOR    Format = "cbor"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatJSON, FormatMsgpack, FormatCBOR:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("mutation: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Encode serializes b.
func Encode(f Format, b Batch) ([]byte, error) {
	switch f {
	case FormatJSON:
		return json.Marshal(b)
	case FormatMsgpack:
		return msgpack.Marshal(b)
	case FormatCBOR:
		return cborEncMode.Marshal(b)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// Decode parses a batch and rebuilds the path tables of any templates it
// registers.
func Decode(f Format, data []byte) (Batch, error) {
	var b Batch
	var err error
	switch f {
	case FormatJSON:
		err = json.Unmarshal(data, &b)
	case FormatMsgpack:
		err = msgpack.Unmarshal(data, &b)
	case FormatCBOR:
		err = cbor.Unmarshal(data, &b)
	default:
		return Batch{}, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	if err != nil {
		return Batch{}, fmt.Errorf("mutation: decode %s batch: %w", f, err)
	}

	for i, m := range b.Edits {
		if m.Kind != KindRegisterTemplate {
			continue
		}
		t, err := template.Rebuild(m.Template)
		if err != nil {
			return Batch{}, fmt.Errorf("mutation: edit %d: %w", i, err)
		}
		b.Edits[i].Template = t
	}
	return b, nil
}
