package vm

import (
	"strings"

	"github.com/zurustar/intvm/pkg/opcode"
)

// Compare orders a (left) against b (right).
//
//	left \ right | Integer  Float  Text   Object
//	Integer      | num      num    fail   eq*
//	Float        | num      num    fail   fail
//	Text         | text     text   text   fail
//	Object       | eq*      fail   fail   eq
//
// num compares numerically, promoting to Float when the tags differ. Text
// against a number compares with the number's canonical text. eq means only
// equal and not_equal are defined; eq* further requires the Integer to be 0,
// the empty reference. None is never comparable.
//
// The second result reports whether only equality is defined.
func Compare(a, b Value) (int, bool, error) {
	switch {
	case a.kind == KindInteger && b.kind == KindInteger:
		return cmpOrdered(a.i, b.i), false, nil
	case a.IsNumber() && b.IsNumber():
		x, _ := a.number()
		y, _ := b.number()
		return cmpOrdered(x, y), false, nil
	case a.kind == KindString && (b.kind == KindString || b.IsNumber()):
		return strings.Compare(a.s, b.String()), false, nil
	case a.kind == KindObject || b.kind == KindObject:
		ha, okA := a.Handle()
		hb, okB := b.Handle()
		if okA && okB {
			if ha == hb {
				return 0, true, nil
			}
			return 1, true, nil
		}
	}
	return 0, false, NewInvalidOperandError("compare", a, b)
}

func cmpOrdered[T int32 | float64](x, y T) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	default:
		return 0
	}
}

func comparison(name string, eqOK bool, test func(c int) bool) Handler {
	return binary(func(a, b Value) (Value, error) {
		c, eqOnly, err := Compare(a, b)
		if err != nil {
			return None, err
		}
		if eqOnly && !eqOK {
			return None, NewInvalidOperandError(name, a, b)
		}
		return Bool(test(c)), nil
	})
}

// registerComparisonOps registers the comparison opcodes. Results are
// Integer 1 or 0.
func registerComparisonOps(t *Table) {
	t.Register(opcode.Equal, comparison("equal", true, func(c int) bool { return c == 0 }))
	t.Register(opcode.NotEqual, comparison("not_equal", true, func(c int) bool { return c != 0 }))
	t.Register(opcode.Less, comparison("less", false, func(c int) bool { return c < 0 }))
	t.Register(opcode.LessEqual, comparison("less_equal", false, func(c int) bool { return c <= 0 }))
	t.Register(opcode.Greater, comparison("greater", false, func(c int) bool { return c > 0 }))
	t.Register(opcode.GreaterEqual, comparison("greater_equal", false, func(c int) bool { return c >= 0 }))
}

// registerLogicOps registers and, or and not. Every tag has a truth value,
// so these never fail on operand types.
func registerLogicOps(t *Table) {
	t.Register(opcode.And, binary(func(a, b Value) (Value, error) {
		return Bool(a.Truthy() && b.Truthy()), nil
	}))
	t.Register(opcode.Or, binary(func(a, b Value) (Value, error) {
		return Bool(a.Truthy() || b.Truthy()), nil
	}))
	t.Register(opcode.Not, unary(func(v Value) (Value, error) {
		return Bool(!v.Truthy()), nil
	}))
}
