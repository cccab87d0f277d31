package types

import (
	"encoding/json"
	"math"
	"strconv"
)

// Kind is the primitive kind a field is decoded into.
type Kind uint8

const (
	KindInt Kind = iota
	KindFloat
	KindString
	KindTimestamp
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindTimestamp:
		return "timestamp"
	default:
		return "unknown"
	}
}

// Value holds one decoded field. Only the member matching Kind (and, for
// integers, Signed) is meaningful.
type Value struct {
	Kind   Kind
	Signed bool
	Int    int64
	Uint   uint64
	Float  float64
	Text   string
}

func IntValue(v int64) Value        { return Value{Kind: KindInt, Signed: true, Int: v} }
func UintValue(v uint64) Value      { return Value{Kind: KindInt, Uint: v} }
func FloatValue(v float64) Value    { return Value{Kind: KindFloat, Float: v} }
func TextValue(v string) Value      { return Value{Kind: KindString, Text: v} }
func TimestampValue(v uint64) Value { return Value{Kind: KindTimestamp, Uint: v} }

// Number returns the value as a float64. Strings are not numeric.
func (v Value) Number() (float64, bool) {
	switch v.Kind {
	case KindInt, KindTimestamp:
		if v.Signed {
			return float64(v.Int), true
		}
		return float64(v.Uint), true
	case KindFloat:
		return v.Float, true
	default:
		return 0, false
	}
}

// Interface returns the natural Go representation of the value.
func (v Value) Interface() any {
	switch v.Kind {
	case KindInt, KindTimestamp:
		if v.Signed {
			return v.Int
		}
		return v.Uint
	case KindFloat:
		return v.Float
	default:
		return v.Text
	}
}

func (v Value) String() string {
	switch v.Kind {
	case KindInt, KindTimestamp:
		if v.Signed {
			return strconv.FormatInt(v.Int, 10)
		}
		return strconv.FormatUint(v.Uint, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	default:
		return v.Text
	}
}

// MarshalJSON writes NaN and infinities as null; autopilots emit NaN for
// unset float fields and encoding/json refuses them.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.Kind == KindFloat && (math.IsNaN(v.Float) || math.IsInf(v.Float, 0)) {
		return []byte("null"), nil
	}
	return json.Marshal(v.Interface())
}

// Field is a named decoded value.
type Field struct {
	Name  string
	Value Value
}

// Fields keeps decoded values in schema order.
type Fields []Field

// Get returns the named value.
func (f Fields) Get(name string) (Value, bool) {
	for _, field := range f {
		if field.Name == name {
			return field.Value, true
		}
	}
	return Value{}, false
}

func (f Fields) Has(name string) bool {
	_, ok := f.Get(name)
	return ok
}

// Uint returns the named integer field, or 0 when absent.
func (f Fields) Uint(name string) uint64 {
	v, ok := f.Get(name)
	if !ok {
		return 0
	}
	if v.Signed {
		return uint64(v.Int)
	}
	return v.Uint
}

// Int returns the named integer field, or 0 when absent.
func (f Fields) Int(name string) int64 {
	v, ok := f.Get(name)
	if !ok {
		return 0
	}
	if v.Signed {
		return v.Int
	}
	return int64(v.Uint)
}

// Float returns the named numeric field as float64, or 0 when absent.
func (f Fields) Float(name string) float64 {
	v, ok := f.Get(name)
	if !ok {
		return 0
	}
	n, _ := v.Number()
	return n
}

func (f Fields) Text(name string) string {
	v, ok := f.Get(name)
	if !ok {
		return ""
	}
	return v.Text
}
