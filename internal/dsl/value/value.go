// Package value implements the dynamically typed values produced by evaluating strategy expressions.
package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rxtech-lab/argo-dsl/pkg/errors"
)

// Kind identifies the variant held by a Value.
type Kind int

const (
	KindNumber Kind = iota
	KindBool
	KindText
	KindList
	KindNumbers
	KindBools
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindText:
		return "text"
	case KindList:
		return "list"
	case KindNumbers:
		return "number vector"
	case KindBools:
		return "bool vector"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Value is a closed sum over Number, Bool, Text, List, Numbers and Bools.
type Value interface {
	Kind() Kind
	String() string
	sealed()
}

type (
	// Number is a scalar float64.
	Number float64
	// Bool is a scalar boolean.
	Bool bool
	// Text is a string literal or an unresolved name.
	Text string
	// List is a heterogeneous list of values.
	List []Value
	// Numbers is a numeric vector.
	Numbers []float64
	// Bools is a boolean vector.
	Bools []bool
)

func (Number) Kind() Kind  { return KindNumber }
func (Bool) Kind() Kind    { return KindBool }
func (Text) Kind() Kind    { return KindText }
func (List) Kind() Kind    { return KindList }
func (Numbers) Kind() Kind { return KindNumbers }
func (Bools) Kind() Kind   { return KindBools }

func (Number) sealed()  {}
func (Bool) sealed()    {}
func (Text) sealed()    {}
func (List) sealed()    {}
func (Numbers) sealed() {}
func (Bools) sealed()   {}

func (n Number) String() string {
	return strconv.FormatFloat(float64(n), 'g', -1, 64)
}

func (b Bool) String() string {
	return strconv.FormatBool(bool(b))
}

func (t Text) String() string {
	return string(t)
}

func (l List) String() string {
	parts := make([]string, len(l))
	for i, v := range l {
		parts[i] = v.String()
	}

	return "[" + strings.Join(parts, ", ") + "]"
}

func (n Numbers) String() string {
	parts := make([]string, len(n))
	for i, v := range n {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}

	return "[" + strings.Join(parts, ", ") + "]"
}

func (b Bools) String() string {
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = strconv.FormatBool(v)
	}

	return "[" + strings.Join(parts, ", ") + "]"
}

func mismatch(want Kind, got Value) error {
	if got == nil {
		return errors.Newf(errors.ErrCodeInvalidType, "expected %s, got nothing", want)
	}

	return errors.Newf(errors.ErrCodeInvalidType, "expected %s, got %s", want, got.Kind())
}

// AsNumber extracts a scalar number.
func AsNumber(v Value) (float64, error) {
	if n, ok := v.(Number); ok {
		return float64(n), nil
	}

	return 0, mismatch(KindNumber, v)
}

// AsBool extracts a scalar boolean.
func AsBool(v Value) (bool, error) {
	if b, ok := v.(Bool); ok {
		return bool(b), nil
	}

	return false, mismatch(KindBool, v)
}

// AsText extracts a string.
func AsText(v Value) (string, error) {
	if t, ok := v.(Text); ok {
		return string(t), nil
	}

	return "", mismatch(KindText, v)
}

// AsList extracts a list.
func AsList(v Value) ([]Value, error) {
	if l, ok := v.(List); ok {
		return l, nil
	}

	return nil, mismatch(KindList, v)
}

// AsNumbers extracts a numeric vector.
func AsNumbers(v Value) ([]float64, error) {
	if n, ok := v.(Numbers); ok {
		return n, nil
	}

	return nil, mismatch(KindNumbers, v)
}

// AsBools extracts a boolean vector.
func AsBools(v Value) ([]bool, error) {
	if b, ok := v.(Bools); ok {
		return b, nil
	}

	return nil, mismatch(KindBools, v)
}

// IsNumeric reports whether v is a number or a numeric vector.
func IsNumeric(v Value) bool {
	switch v.(type) {
	case Number, Numbers:
		return true
	default:
		return false
	}
}

// IsBoolean reports whether v is a boolean or a boolean vector.
func IsBoolean(v Value) bool {
	switch v.(type) {
	case Bool, Bools:
		return true
	default:
		return false
	}
}

// NumericSeries promotes a number to a length-1 vector and returns vectors unchanged.
func NumericSeries(v Value) ([]float64, error) {
	switch x := v.(type) {
	case Number:
		return []float64{float64(x)}, nil
	case Numbers:
		return x, nil
	default:
		return nil, mismatch(KindNumbers, v)
	}
}

// BoolSeries promotes a boolean to a length-1 vector and returns vectors unchanged.
func BoolSeries(v Value) ([]bool, error) {
	switch x := v.(type) {
	case Bool:
		return []bool{bool(x)}, nil
	case Bools:
		return x, nil
	default:
		return nil, mismatch(KindBools, v)
	}
}

// Len returns the number of elements: 1 for scalars, the length for vectors and lists.
func Len(v Value) int {
	switch x := v.(type) {
	case List:
		return len(x)
	case Numbers:
		return len(x)
	case Bools:
		return len(x)
	case nil:
		return 0
	default:
		return 1
	}
}

// ToNative converts a value into plain Go types for encoding.
// Non-finite vector elements become nil.
func ToNative(v Value) any {
	switch x := v.(type) {
	case Number:
		return float64(x)
	case Bool:
		return bool(x)
	case Text:
		return string(x)
	case Numbers:
		out := make([]any, len(x))
		for i, f := range x {
			// NaN and Inf have no JSON encoding
			if math.IsNaN(f) || math.IsInf(f, 0) {
				continue
			}

			out[i] = f
		}

		return out
	case Bools:
		return []bool(x)
	case List:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = ToNative(item)
		}

		return out
	default:
		return nil
	}
}
