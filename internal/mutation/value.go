package mutation

import (
	"strconv"
)

// ValueKind tags an attribute value.
type ValueKind uint8

const (
	ValueNone ValueKind = iota
	ValueText
	ValueInt
	ValueFloat
	ValueBool
)

// Value is an attribute value. The zero Value is "none", meaning the
// attribute is absent.
type Value struct {
	Kind  ValueKind `json:"kind,omitempty" msgpack:"kind,omitempty"`
	Text  string    `json:"text,omitempty" msgpack:"text,omitempty"`
	Int   int64     `json:"int,omitempty" msgpack:"int,omitempty"`
	Float float64   `json:"float,omitempty" msgpack:"float,omitempty"`
	Bool  bool      `json:"bool,omitempty" msgpack:"bool,omitempty"`
}

// TextValue wraps a string.
func TextValue(s string) Value { return Value{Kind: ValueText, Text: s} }

// IntValue wraps an integer.
func IntValue(n int64) Value { return Value{Kind: ValueInt, Int: n} }

// FloatValue wraps a float.
func FloatValue(f float64) Value { return Value{Kind: ValueFloat, Float: f} }

// BoolValue wraps a bool.
func BoolValue(b bool) Value { return Value{Kind: ValueBool, Bool: b} }

// IsNone reports whether v carries no value.
func (v Value) IsNone() bool { return v.Kind == ValueNone }

// Equal compares two values by kind and content.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case ValueText:
		return v.Text == o.Text
	case ValueInt:
		return v.Int == o.Int
	case ValueFloat:
		return v.Float == o.Float
	case ValueBool:
		return v.Bool == o.Bool
	}
	return true
}

// String renders v the way a DOM attribute would hold it.
func (v Value) String() string {
	switch v.Kind {
	case ValueText:
		return v.Text
	case ValueInt:
		return strconv.FormatInt(v.Int, 10)
	case ValueFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case ValueBool:
		return strconv.FormatBool(v.Bool)
	}
	return ""
}
