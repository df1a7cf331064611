// Package value implements the runtime Value variant shared by the storage
// engine, the catalog and the SQL executor.
package value

import (
	"fmt"
	"math"
)

// Kind tags the active branch of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindVarchar
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "NULL"
	case KindInt:
		return "INT"
	case KindFloat:
		return "FLOAT"
	case KindVarchar:
		return "VARCHAR"
	default:
		return "UNKNOWN"
	}
}

// Value is a tagged union over the four variants the engine understands.
// Only the field matching Kind is meaningful.
type Value struct {
	Kind  Kind
	Int   int64
	Float float64
	Str   string
}

// Null is the sentinel absent-value. Comparisons against Null never equal
// true, matching three-valued SQL semantics as simplified by the engine
// (NULL is always "not matched" rather than "unknown").
var Null = Value{Kind: KindNull}

func NewInt(i int64) Value        { return Value{Kind: KindInt, Int: i} }
func NewFloat(f float64) Value    { return Value{Kind: KindFloat, Float: f} }
func NewVarchar(s string) Value   { return Value{Kind: KindVarchar, Str: s} }
func (v Value) IsNull() bool      { return v.Kind == KindNull }

// ErrTypeMismatch is returned when an operation is attempted between two
// values whose kinds cannot be reconciled (e.g. VARCHAR compared to INT).
type ErrTypeMismatch struct {
	Left, Right Kind
	Op          string
}

func (e *ErrTypeMismatch) Error() string {
	return fmt.Sprintf("type mismatch in %s: %s vs %s", e.Op, e.Left, e.Right)
}

// numeric reports whether the value holds INT or FLOAT and returns it as a
// float64, promoting INT as needed.
func (v Value) numeric() (float64, bool) {
	switch v.Kind {
	case KindInt:
		return float64(v.Int), true
	case KindFloat:
		return v.Float, true
	default:
		return 0, false
	}
}

// Compare orders two values of the same comparable family. INT and FLOAT
// compare numerically (with promotion); VARCHAR compares lexically. NULL
// never compares equal or ordered against anything, including another NULL;
// callers that need NULL-aware filtering should check IsNull first.
func Compare(a, b Value) (int, error) {
	if a.IsNull() || b.IsNull() {
		return 0, &ErrTypeMismatch{a.Kind, b.Kind, "compare"}
	}
	if af, aok := a.numeric(); aok {
		if bf, bok := b.numeric(); bok {
			switch {
			case af < bf:
				return -1, nil
			case af > bf:
				return 1, nil
			default:
				return 0, nil
			}
		}
		return 0, &ErrTypeMismatch{a.Kind, b.Kind, "compare"}
	}
	if a.Kind == KindVarchar && b.Kind == KindVarchar {
		switch {
		case a.Str < b.Str:
			return -1, nil
		case a.Str > b.Str:
			return 1, nil
		default:
			return 0, nil
		}
	}
	return 0, &ErrTypeMismatch{a.Kind, b.Kind, "compare"}
}

// Equal reports whether a and b are the same value. Unlike Compare, Equal
// tolerates NULL on either side by returning false rather than an error,
// since "x = NULL" is a common (if always-false) predicate shape.
func Equal(a, b Value) bool {
	if a.IsNull() || b.IsNull() {
		return false
	}
	n, err := Compare(a, b)
	return err == nil && n == 0
}

// Add sums two numeric values, promoting to FLOAT if either operand is
// FLOAT. Used by the executor's SUM/AVG accumulators.
func Add(a, b Value) (Value, error) {
	af, aok := a.numeric()
	bf, bok := b.numeric()
	if !aok || !bok {
		return Value{}, &ErrTypeMismatch{a.Kind, b.Kind, "add"}
	}
	if a.Kind == KindFloat || b.Kind == KindFloat {
		return NewFloat(af + bf), nil
	}
	return NewInt(a.Int + b.Int), nil
}

// Div divides a numeric accumulator by a row count, always yielding FLOAT
// (used for AVG).
func Div(a Value, n int64) (Value, error) {
	af, ok := a.numeric()
	if !ok {
		return Value{}, &ErrTypeMismatch{a.Kind, KindFloat, "div"}
	}
	if n == 0 {
		return NewFloat(math.NaN()), nil
	}
	return NewFloat(af / float64(n)), nil
}

func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "NULL"
	case KindInt:
		return fmt.Sprintf("%d", v.Int)
	case KindFloat:
		return fmt.Sprintf("%g", v.Float)
	case KindVarchar:
		return v.Str
	default:
		return "?"
	}
}
