package vm

import (
	"math"

	"github.com/zurustar/intvm/pkg/opcode"
)

// Integer results that do not fit in 32 bits fail with ARITHMETIC_OVERFLOW.
// Division and modulo by zero fail with DIVISION_BY_ZERO for both integer
// and float operands.

// toInt32 converts an integral float to int32. NaN and values outside the
// int32 range fail with ARITHMETIC_OVERFLOW.
func toInt32(what string, f float64) (int32, error) {
	if math.IsNaN(f) || f < math.MinInt32 || f > math.MaxInt32 {
		return 0, NewRuntimeError(ErrorArithmeticOverflow, what+" result overflows int32")
	}
	return int32(f), nil
}

func checked(op string, a, b, r int64) (Value, error) {
	if r < math.MinInt32 || r > math.MaxInt32 {
		return None, NewArithmeticOverflowError(op, a, b)
	}
	return Int(int32(r)), nil
}

// Add implements op_add.
//
//	left \ right | Integer  Float  Text   other
//	Integer      | Integer  Float  fail   fail
//	Float        | Float    Float  fail   fail
//	Text         | Text     Text   Text   fail
//	other        | fail     fail   fail   fail
//
// Text on the left appends the canonical text form of the right operand.
func Add(a, b Value) (Value, error) {
	switch a.kind {
	case KindInteger:
		switch b.kind {
		case KindInteger:
			return checked("+", int64(a.i), int64(b.i), int64(a.i)+int64(b.i))
		case KindFloat:
			return Float(float32(a.i) + b.f), nil
		}
	case KindFloat:
		switch b.kind {
		case KindInteger:
			return Float(a.f + float32(b.i)), nil
		case KindFloat:
			return Float(a.f + b.f), nil
		}
	case KindString:
		switch b.kind {
		case KindInteger, KindFloat, KindString:
			return String(a.s + b.String()), nil
		}
	}
	return None, NewInvalidOperandError("add", a, b)
}

// numeric applies the shared table of sub, mul and div:
// Integer∘Integer is Integer, any mix of Integer and Float is Float, and
// every other combination fails.
func numeric(name string, a, b Value, ints func(x, y int32) (Value, error), floats func(x, y float32) (Value, error)) (Value, error) {
	if a.kind == KindInteger && b.kind == KindInteger {
		return ints(a.i, b.i)
	}
	x, okA := a.number()
	y, okB := b.number()
	if !okA || !okB {
		return None, NewInvalidOperandError(name, a, b)
	}
	return floats(float32(x), float32(y))
}

// Sub implements op_sub.
func Sub(a, b Value) (Value, error) {
	return numeric("sub", a, b,
		func(x, y int32) (Value, error) {
			return checked("-", int64(x), int64(y), int64(x)-int64(y))
		},
		func(x, y float32) (Value, error) { return Float(x - y), nil })
}

// Mul implements op_mul.
func Mul(a, b Value) (Value, error) {
	return numeric("mul", a, b,
		func(x, y int32) (Value, error) {
			return checked("*", int64(x), int64(y), int64(x)*int64(y))
		},
		func(x, y float32) (Value, error) { return Float(x * y), nil })
}

// Div implements op_div.
func Div(a, b Value) (Value, error) {
	return numeric("div", a, b,
		func(x, y int32) (Value, error) {
			if y == 0 {
				return None, NewDivisionByZeroError()
			}
			return checked("/", int64(x), int64(y), int64(x)/int64(y))
		},
		func(x, y float32) (Value, error) {
			if y == 0 {
				return None, NewDivisionByZeroError()
			}
			return Float(x / y), nil
		})
}

// Mod implements op_mod. Only Integer operands are accepted.
func Mod(a, b Value) (Value, error) {
	if a.kind != KindInteger || b.kind != KindInteger {
		return None, NewInvalidOperandError("mod", a, b)
	}
	if b.i == 0 {
		return None, NewDivisionByZeroError()
	}
	return Int(a.i % b.i), nil
}

// Negate implements negate for Integer and Float.
func Negate(v Value) (Value, error) {
	switch v.kind {
	case KindInteger:
		if v.i == math.MinInt32 {
			return None, NewArithmeticOverflowError("*", int64(v.i), -1)
		}
		return Int(-v.i), nil
	case KindFloat:
		return Float(-v.f), nil
	}
	return None, NewInvalidOperandError("negate", v)
}

// Floor converts a Float to the largest Integer not above it.
func Floor(v Value) (Value, error) {
	switch v.kind {
	case KindInteger:
		return v, nil
	case KindFloat:
		i, err := toInt32("floor", math.Floor(float64(v.f)))
		if err != nil {
			return None, err
		}
		return Int(i), nil
	}
	return None, NewInvalidOperandError("floor", v)
}

func bitwise(name string, fn func(x, y int32) int32) func(a, b Value) (Value, error) {
	return func(a, b Value) (Value, error) {
		if a.kind != KindInteger || b.kind != KindInteger {
			return None, NewInvalidOperandError(name, a, b)
		}
		return Int(fn(a.i, b.i)), nil
	}
}

// binary adapts a two-operand function into a handler.
func binary(fn func(a, b Value) (Value, error)) Handler {
	return func(e *Exec) error {
		a, b, err := e.Pop2()
		if err != nil {
			return err
		}
		r, err := fn(a, b)
		if err != nil {
			return err
		}
		return e.Push(r)
	}
}

// unary adapts a one-operand function into a handler.
func unary(fn func(v Value) (Value, error)) Handler {
	return func(e *Exec) error {
		v, err := e.Pop()
		if err != nil {
			return err
		}
		r, err := fn(v)
		if err != nil {
			return err
		}
		return e.Push(r)
	}
}

// registerArithmeticOps registers arithmetic and bitwise opcodes.
func registerArithmeticOps(t *Table) {
	t.Register(opcode.Add, binary(Add))
	t.Register(opcode.Sub, binary(Sub))
	t.Register(opcode.Mul, binary(Mul))
	t.Register(opcode.Div, binary(Div))
	t.Register(opcode.Mod, binary(Mod))
	t.Register(opcode.Negate, unary(Negate))
	t.Register(opcode.Floor, unary(Floor))

	t.Register(opcode.BitAnd, binary(bitwise("bwand", func(x, y int32) int32 { return x & y })))
	t.Register(opcode.BitOr, binary(bitwise("bwor", func(x, y int32) int32 { return x | y })))
	t.Register(opcode.BitXor, binary(bitwise("bwxor", func(x, y int32) int32 { return x ^ y })))
	t.Register(opcode.BitNot, unary(func(v Value) (Value, error) {
		if v.kind != KindInteger {
			return None, NewInvalidOperandError("bwnot", v)
		}
		return Int(^v.i), nil
	}))
}
