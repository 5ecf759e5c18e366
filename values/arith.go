package values

import (
	"errors"
	"math"
)

// Sentinel arithmetic errors. vm wraps these into a *vm.VMError carrying
// frame/opcode/ip context, mirroring wudi-hey's WrapError/VMError
// pattern in vm/errors.go — this package stays free of a vm dependency.
var (
	ErrArithmeticOverflow     = errors.New("arithmetic overflow")
	ErrArithmeticZeroDivision = errors.New("division or remainder by zero")
	ErrInvalidOperand         = errors.New("invalid operand type")
)

// numeric widens two Int/Float operands to a common representation by
// coercing an Int to Float whenever the other operand is a Float. ok
// is false if either operand is not numeric.
func numeric(a, b Value) (af, bf float64, bothInt bool, ok bool) {
	switch {
	case a.kind == KindInt && b.kind == KindInt:
		return float64(a.AsInt()), float64(b.AsInt()), true, true
	case a.kind == KindInt && b.kind == KindFloat:
		return float64(a.AsInt()), b.AsFloat(), false, true
	case a.kind == KindFloat && b.kind == KindInt:
		return a.AsFloat(), float64(b.AsInt()), false, true
	case a.kind == KindFloat && b.kind == KindFloat:
		return a.AsFloat(), b.AsFloat(), false, true
	default:
		return 0, 0, false, false
	}
}

func Add(a, b Value) (Value, error) {
	if a.kind == KindString && b.kind == KindString {
		return NewString(a.AsString() + b.AsString()), nil
	}
	_, _, bothInt, ok := numeric(a, b)
	if !ok {
		return Value{}, ErrInvalidOperand
	}
	if bothInt {
		x, y := a.AsInt(), b.AsInt()
		sum := x + y
		if (sum^x) < 0 && (sum^y) < 0 {
			return Value{}, ErrArithmeticOverflow
		}
		return NewInt(sum), nil
	}
	af, bf, _, _ := numeric(a, b)
	return NewFloat(af + bf), nil
}

func Sub(a, b Value) (Value, error) {
	_, _, bothInt, ok := numeric(a, b)
	if !ok {
		return Value{}, ErrInvalidOperand
	}
	if bothInt {
		x, y := a.AsInt(), b.AsInt()
		diff := x - y
		if (x^y) < 0 && (diff^x) < 0 {
			return Value{}, ErrArithmeticOverflow
		}
		return NewInt(diff), nil
	}
	af, bf, _, _ := numeric(a, b)
	return NewFloat(af - bf), nil
}

func Mul(a, b Value) (Value, error) {
	_, _, bothInt, ok := numeric(a, b)
	if !ok {
		return Value{}, ErrInvalidOperand
	}
	if bothInt {
		x, y := a.AsInt(), b.AsInt()
		if x != 0 && y != 0 {
			prod := x * y
			if prod/y != x || (x == math.MinInt64 && y == -1) {
				return Value{}, ErrArithmeticOverflow
			}
			return NewInt(prod), nil
		}
		return NewInt(0), nil
	}
	af, bf, _, _ := numeric(a, b)
	return NewFloat(af * bf), nil
}

func Div(a, b Value) (Value, error) {
	_, _, bothInt, ok := numeric(a, b)
	if !ok {
		return Value{}, ErrInvalidOperand
	}
	if bothInt {
		x, y := a.AsInt(), b.AsInt()
		if y == 0 {
			return Value{}, ErrArithmeticZeroDivision
		}
		if x == math.MinInt64 && y == -1 {
			return Value{}, ErrArithmeticOverflow
		}
		return NewInt(x / y), nil
	}
	af, bf, _, _ := numeric(a, b)
	return NewFloat(af / bf), nil
}

func Rem(a, b Value) (Value, error) {
	_, _, bothInt, ok := numeric(a, b)
	if !ok {
		return Value{}, ErrInvalidOperand
	}
	if bothInt {
		x, y := a.AsInt(), b.AsInt()
		if y == 0 {
			return Value{}, ErrArithmeticZeroDivision
		}
		return NewInt(x % y), nil
	}
	af, bf, _, _ := numeric(a, b)
	return NewFloat(math.Mod(af, bf)), nil
}

func Neg(a Value) (Value, error) {
	switch a.kind {
	case KindInt:
		if a.AsInt() == math.MinInt64 {
			return Value{}, ErrArithmeticOverflow
		}
		return NewInt(-a.AsInt()), nil
	case KindFloat:
		return NewFloat(-a.AsFloat()), nil
	default:
		return Value{}, ErrInvalidOperand
	}
}

func Not(a Value) (Value, error) {
	if a.kind != KindBool {
		return Value{}, ErrInvalidOperand
	}
	return NewBool(!a.AsBool()), nil
}

func And(a, b Value) (Value, error) {
	if a.kind != KindBool || b.kind != KindBool {
		return Value{}, ErrInvalidOperand
	}
	return NewBool(a.AsBool() && b.AsBool()), nil
}

func Or(a, b Value) (Value, error) {
	if a.kind != KindBool || b.kind != KindBool {
		return Value{}, ErrInvalidOperand
	}
	return NewBool(a.AsBool() || b.AsBool()), nil
}

func intOp(a, b Value, fn func(x, y int64) int64) (Value, error) {
	if a.kind != KindInt || b.kind != KindInt {
		return Value{}, ErrInvalidOperand
	}
	return NewInt(fn(a.AsInt(), b.AsInt())), nil
}

func BitAnd(a, b Value) (Value, error) { return intOp(a, b, func(x, y int64) int64 { return x & y }) }
func BitOr(a, b Value) (Value, error)  { return intOp(a, b, func(x, y int64) int64 { return x | y }) }
func BitXor(a, b Value) (Value, error) { return intOp(a, b, func(x, y int64) int64 { return x ^ y }) }
func Shl(a, b Value) (Value, error) {
	return intOp(a, b, func(x, y int64) int64 { return x << uint64(y&63) })
}
func Shr(a, b Value) (Value, error) {
	return intOp(a, b, func(x, y int64) int64 { return x >> uint64(y&63) })
}

// Compare implements Lt/Le/Gt/Ge's shared ordering rule: numeric values
// order by widened value, strings order lexically by content, chars by
// code point. Other kinds have no total order.
func Compare(a, b Value) (int, error) {
	if af, bf, _, ok := numeric(a, b); ok {
		switch {
		case af < bf:
			return -1, nil
		case af > bf:
			return 1, nil
		default:
			return 0, nil
		}
	}
	if a.kind == KindString && b.kind == KindString {
		as, bs := a.AsString(), b.AsString()
		switch {
		case as < bs:
			return -1, nil
		case as > bs:
			return 1, nil
		default:
			return 0, nil
		}
	}
	if a.kind == KindChar && b.kind == KindChar {
		switch {
		case a.AsChar() < b.AsChar():
			return -1, nil
		case a.AsChar() > b.AsChar():
			return 1, nil
		default:
			return 0, nil
		}
	}
	return 0, ErrInvalidOperand
}
