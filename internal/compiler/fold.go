package compiler

import (
	"strconv"
	"strings"

	"dust/internal/ast"
	"dust/internal/bytecode"
	"dust/internal/types"
)

func parseIntLit(text string) (int64, bool) {
	v, err := strconv.ParseInt(strings.ReplaceAll(text, "_", ""), 10, 64)
	return v, err == nil
}

func parseFloatLit(text string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(text, "_", ""), 64)
	return v, err == nil
}

// abstractConstant tracks whether a subexpression folded to a known
// int/float at compile time, letting chains of constant arithmetic
// collapse in one pass instead of needing a second folding walk
// (spec.md §4.4 "AbstractConstant").
type abstractConstant struct {
	isInt   bool
	isFloat bool
	i       int64
	f       float64
}

func (c *compiler) foldConst(id ast.SyntaxId) (abstractConstant, bool) {
	n := c.tree.Get(id)
	switch n.Kind {
	case ast.KindIntLit:
		v, ok := parseIntLit(n.Text)
		if !ok {
			return abstractConstant{}, false
		}
		return abstractConstant{isInt: true, i: v}, true
	case ast.KindFloatLit:
		v, ok := parseFloatLit(n.Text)
		if !ok {
			return abstractConstant{}, false
		}
		return abstractConstant{isFloat: true, f: v}, true
	case ast.KindBinary:
		if n.BinOp == ast.OpAnd || n.BinOp == ast.OpOr {
			return abstractConstant{}, false
		}
		lt := c.res.ExprTypes[n.A]
		if lt.Kind != types.Int && lt.Kind != types.Float {
			return abstractConstant{}, false
		}
		l, ok := c.foldConst(n.A)
		if !ok {
			return abstractConstant{}, false
		}
		r, ok := c.foldConst(n.B)
		if !ok {
			return abstractConstant{}, false
		}
		return foldArith(n.BinOp, l, r)
	default:
		return abstractConstant{}, false
	}
}

func foldArith(op ast.BinaryOp, l, r abstractConstant) (abstractConstant, bool) {
	if l.isInt && r.isInt {
		switch op {
		case ast.OpAdd:
			return abstractConstant{isInt: true, i: saturatingAdd(l.i, r.i)}, true
		case ast.OpSub:
			return abstractConstant{isInt: true, i: saturatingSub(l.i, r.i)}, true
		case ast.OpMul:
			return abstractConstant{isInt: true, i: saturatingMul(l.i, r.i)}, true
		case ast.OpDiv:
			if r.i == 0 {
				return abstractConstant{}, false // let the VM raise DivideByZero at runtime
			}
			return abstractConstant{isInt: true, i: l.i / r.i}, true
		case ast.OpRem:
			if r.i == 0 {
				return abstractConstant{}, false
			}
			return abstractConstant{isInt: true, i: l.i % r.i}, true
		}
	}
	if l.isFloat && r.isFloat {
		switch op {
		case ast.OpAdd:
			return abstractConstant{isFloat: true, f: l.f + r.f}, true
		case ast.OpSub:
			return abstractConstant{isFloat: true, f: l.f - r.f}, true
		case ast.OpMul:
			return abstractConstant{isFloat: true, f: l.f * r.f}, true
		case ast.OpDiv:
			return abstractConstant{isFloat: true, f: l.f / r.f}, true
		}
	}
	return abstractConstant{}, false
}

// foldBinary attempts to fold a whole binary expression to a single
// constant-pool (or encoded) operand instead of emitting arithmetic
// instructions.
func (c *compiler) foldBinary(id ast.SyntaxId) (bytecode.Address, bool) {
	ac, ok := c.foldConst(id)
	if !ok {
		return bytecode.Address{}, false
	}
	if ac.isInt {
		if enc, ok := encodedSmallInt(ac.i); ok {
			return bytecode.Address{Kind: bytecode.KindEncoded, Index: enc}, true
		}
		idx := c.pool.intern(bytecode.Constant{Type: bytecode.TypeInteger, Int: ac.i})
		return bytecode.Address{Kind: bytecode.KindConstant, Index: idx}, true
	}
	idx := c.pool.intern(bytecode.Constant{Type: bytecode.TypeFloat, Flt: ac.f})
	return bytecode.Address{Kind: bytecode.KindConstant, Index: idx}, true
}

// saturatingAdd/Sub/Mul implement spec.md §4.5's "Integer arithmetic is
// saturating on overflow" for the constant-folding path; the VM's runtime
// handlers perform the identical clamp for non-folded operands.
func saturatingAdd(a, b int64) int64 {
	s := a + b
	if (a > 0 && b > 0 && s < 0) || (a < 0 && b < 0 && s >= 0) {
		if a > 0 {
			return int64(^uint64(0) >> 1)
		}
		return -int64(^uint64(0)>>1) - 1
	}
	return s
}

func saturatingSub(a, b int64) int64 {
	if b == -9223372036854775808 {
		if a < 0 {
			return -9223372036854775808
		}
		return 9223372036854775807
	}
	return saturatingAdd(a, -b)
}

func saturatingMul(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	if b == -1 {
		// a*-1 overflows only when a is minInt64, and minInt64/-1 wraps
		// back to minInt64 in two's complement, defeating the p/b != a
		// check below — handle it directly instead.
		if a == -9223372036854775808 {
			return 9223372036854775807
		}
		return -a
	}
	p := a * b
	if p/b != a {
		if (a > 0) == (b > 0) {
			return 9223372036854775807
		}
		return -9223372036854775808
	}
	return p
}
