// Package indicator provides technical indicator calculations over price series.
//
// Every function is a pure transform: it takes a full numeric series and
// returns a Series of the same length, where positions inside the warm-up
// window carry an explicit undefined marker instead of a placeholder number.
// Functions never mutate their inputs and always allocate fresh output, so
// concurrent callers need no coordination.
package indicator

import (
	"encoding/json"
	"strconv"
)

// Value is one element of an indicator series: either a computed number or
// undefined (not yet computable at that index). The zero value is undefined.
type Value struct {
	V       float64
	Defined bool
}

// Val wraps a computed number.
func Val(v float64) Value {
	return Value{V: v, Defined: true}
}

// Undefined returns the undefined marker.
func Undefined() Value {
	return Value{}
}

// MarshalJSON encodes a defined value as a number and an undefined one as
// null, so serialized series stay index-aligned with the input bars.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Defined {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(v.V, 'g', -1, 64)), nil
}

// UnmarshalJSON decodes a number or null.
func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = Value{}
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*v = Val(f)
	return nil
}

// Series is an indicator output aligned index-for-index with its input.
//
// Invariant: once a value is defined at index i, every later index is also
// defined. The warm-up prefix is the only undefined region.
type Series []Value

// Last returns the final element, or undefined for an empty series.
func (s Series) Last() Value {
	if len(s) == 0 {
		return Value{}
	}
	return s[len(s)-1]
}

// FirstDefined returns the index of the first defined element, or -1 when the
// whole series is undefined.
func (s Series) FirstDefined() int {
	for i, v := range s {
		if v.Defined {
			return i
		}
	}
	return -1
}
