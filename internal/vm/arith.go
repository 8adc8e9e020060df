package vm

import (
	"math"

	"dust/internal/bytecode"
	"dust/internal/dusterr"
)

const (
	maxInt64 = int64(math.MaxInt64)
	minInt64 = int64(math.MinInt64)
)

// arith implements spec.md §4.5's arithmetic handler contract: "Integer
// arithmetic is saturating on overflow (addition, subtraction,
// multiplication). Float arithmetic follows IEEE 754. Division by zero
// for integers/bytes is fatal; for floats produces ±∞/NaN per IEEE."
func (t *Thread) arith(op bytecode.Op, ot bytecode.OperandType, l, r Value) (Value, error) {
	if ot == bytecode.TypeFloat {
		lf, rf := l.asFloat(), r.asFloat()
		switch op {
		case bytecode.OpAdd:
			return floatValue(lf + rf), nil
		case bytecode.OpSub:
			return floatValue(lf - rf), nil
		case bytecode.OpMul:
			return floatValue(lf * rf), nil
		case bytecode.OpDiv:
			return floatValue(lf / rf), nil
		case bytecode.OpRem:
			return floatValue(math.Mod(lf, rf)), nil
		}
	}

	if ot == bytecode.TypeString || ot == bytecode.TypeCharacter {
		// add_char, add_str, add_char_str, add_str_char (spec.md §4.4
		// operator lowering): string and char concatenation is not
		// implemented anywhere in the VM; these operand types fail here
		// with ErrUnimplemented.
		return Value{}, dusterr.ErrUnimplemented
	}

	li, ri := l.asInt(), r.asInt()
	switch op {
	case bytecode.OpAdd:
		return intValue(saturatingAddI64(li, ri)), nil
	case bytecode.OpSub:
		return intValue(saturatingSubI64(li, ri)), nil
	case bytecode.OpMul:
		return intValue(saturatingMulI64(li, ri)), nil
	case bytecode.OpDiv:
		if ri == 0 {
			return Value{}, dusterr.ErrDivideByZero
		}
		return intValue(li / ri), nil
	case bytecode.OpRem:
		if ri == 0 {
			return Value{}, dusterr.ErrDivideByZero
		}
		return intValue(li % ri), nil
	}
	return Value{}, dusterr.ErrTypeTagMismatch
}

func saturatingAddI64(a, b int64) int64 {
	s := a + b
	if (a > 0 && b > 0 && s < 0) || (a < 0 && b < 0 && s >= 0) {
		if a > 0 {
			return maxInt64
		}
		return minInt64
	}
	return s
}

func saturatingSubI64(a, b int64) int64 {
	if b == minInt64 {
		if a < 0 {
			return minInt64
		}
		return maxInt64
	}
	return saturatingAddI64(a, -b)
}

func saturatingMulI64(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	if b == -1 {
		// a*-1 overflows only when a is minInt64, and minInt64/-1 wraps
		// back to minInt64 in two's complement, defeating the p/b != a
		// check below — handle it directly instead.
		if a == minInt64 {
			return maxInt64
		}
		return -a
	}
	p := a * b
	if p/b != a {
		if (a > 0) == (b > 0) {
			return maxInt64
		}
		return minInt64
	}
	return p
}
