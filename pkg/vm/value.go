package vm

import (
	"fmt"
	"math"
	"strconv"

	"github.com/zurustar/intvm/pkg/entity"
)

// Kind is the tag of a Value.
type Kind uint8

const (
	KindNone Kind = iota
	KindInteger
	KindFloat
	KindString
	KindObject
)

// String returns the type name used in diagnostics.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "NONE"
	case KindInteger:
		return "INTEGER"
	case KindFloat:
		return "FLOAT"
	case KindString:
		return "STRING"
	case KindObject:
		return "OBJECT"
	default:
		return fmt.Sprintf("KIND(%d)", uint8(k))
	}
}

// Value is a dynamically typed VM value. Values are copied on every push
// and pop; text is immutable once produced.
type Value struct {
	kind Kind
	i    int32
	f    float32
	s    string
	obj  entity.Handle
}

// None is the absent value. It is also the result of procedures that do
// not return anything.
var None = Value{}

// Int returns an Integer value.
func Int(i int32) Value { return Value{kind: KindInteger, i: i} }

// Float returns a Float value.
func Float(f float32) Value { return Value{kind: KindFloat, f: f} }

// String returns a Text value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Object returns an entity reference. The handle may be empty or stale.
func Object(h entity.Handle) Value { return Value{kind: KindObject, obj: h} }

// Bool returns Integer 1 or 0.
func Bool(b bool) Value {
	if b {
		return Int(1)
	}
	return Int(0)
}

// Kind returns the tag of v.
func (v Value) Kind() Kind { return v.kind }

// IsNone reports whether v is the absent value.
func (v Value) IsNone() bool { return v.kind == KindNone }

// TypeName returns the name of the tag of v.
func (v Value) TypeName() string { return v.kind.String() }

// Integer returns the payload of an Integer value.
func (v Value) Integer() (int32, bool) {
	return v.i, v.kind == KindInteger
}

// FloatValue returns the payload of a Float value.
func (v Value) FloatValue() (float32, bool) {
	return v.f, v.kind == KindFloat
}

// Text returns the payload of a Text value.
func (v Value) Text() (string, bool) {
	return v.s, v.kind == KindString
}

// Handle returns the entity reference carried by v. Integer 0 is accepted
// as the empty reference because scripts pass 0 for "no object".
func (v Value) Handle() (entity.Handle, bool) {
	switch v.kind {
	case KindObject:
		return v.obj, true
	case KindInteger:
		if v.i == 0 {
			return entity.Handle{}, true
		}
	}
	return entity.Handle{}, false
}

// number returns the numeric payload promoted to float64.
func (v Value) number() (float64, bool) {
	switch v.kind {
	case KindInteger:
		return float64(v.i), true
	case KindFloat:
		return float64(v.f), true
	default:
		return 0, false
	}
}

// IsNumber reports whether v is an Integer or a Float.
func (v Value) IsNumber() bool {
	return v.kind == KindInteger || v.kind == KindFloat
}

// Truthy implements the boolean view used by if/while/and/or/not.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindInteger:
		return v.i != 0
	case KindFloat:
		return v.f != 0
	case KindString:
		return v.s != ""
	case KindObject:
		return !v.obj.IsZero()
	default:
		return false
	}
}

// String returns the canonical text form of v. This is the form appended
// when a number is added to text.
func (v Value) String() string {
	switch v.kind {
	case KindInteger:
		return strconv.FormatInt(int64(v.i), 10)
	case KindFloat:
		return strconv.FormatFloat(float64(v.f), 'f', 5, 32)
	case KindString:
		return v.s
	case KindObject:
		return v.obj.String()
	default:
		return ""
	}
}

// GoString is used by %#v and debug logging.
func (v Value) GoString() string {
	switch v.kind {
	case KindString:
		return fmt.Sprintf("%s(%q)", v.kind, v.s)
	case KindNone:
		return "NONE"
	default:
		return fmt.Sprintf("%s(%s)", v.kind, v.String())
	}
}

// Equal reports whether a and b carry the same tag and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInteger:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f || (math.IsNaN(float64(v.f)) && math.IsNaN(float64(o.f)))
	case KindString:
		return v.s == o.s
	case KindObject:
		return v.obj == o.obj
	default:
		return true
	}
}
