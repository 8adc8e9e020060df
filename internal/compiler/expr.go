package compiler

import (
	"dust/internal/ast"
	"dust/internal/bytecode"
	"dust/internal/types"
)

// compileExpr lowers one expression node, returning an Address holding
// its value. Literals and already-bound locals are returned directly
// (register, constant, or encoded) without forcing a register copy;
// callers that need an owned, mutable slot call materialize.
func (c *compiler) compileExpr(id ast.SyntaxId) bytecode.Address {
	n := c.tree.Get(id)
	switch n.Kind {
	case ast.KindIntLit:
		return c.constOrEncodedInt(id)
	case ast.KindFloatLit:
		return c.constFloat(id)
	case ast.KindByteLit:
		return c.constByte(id)
	case ast.KindCharLit:
		return c.constChar(id)
	case ast.KindStringLit:
		return c.constString(id)
	case ast.KindBoolLit:
		return bytecode.Address{Kind: bytecode.KindEncoded, Index: boolBit(n.Bool)}
	case ast.KindIdent:
		return c.compileIdent(id)
	case ast.KindListLit:
		return c.compileListLit(id)
	case ast.KindBlock:
		last, have := c.compileBlock(id)
		if !have {
			return bytecode.Address{}
		}
		return last
	case ast.KindIf:
		return c.compileIf(id)
	case ast.KindWhile:
		c.compileWhile(id)
		return bytecode.Address{}
	case ast.KindLoop:
		c.compileLoop(id)
		return bytecode.Address{}
	case ast.KindBreak:
		c.compileBreak(id)
		return bytecode.Address{}
	case ast.KindReturn:
		c.compileReturn(id)
		return bytecode.Address{}
	case ast.KindCall:
		return c.compileCall(id)
	case ast.KindIndex:
		return c.compileIndex(id)
	case ast.KindField:
		// The resolver already raises dusterr.ErrUnimplemented for field
		// access (no struct type exists yet); this path only runs when a
		// caller compiles a tree the resolver didn't see or didn't reject,
		// so it must still refuse rather than synthesize a fake register 0.
		c.errorf(id, "field access %q is not yet supported", n.Text)
		return bytecode.Address{}
	case ast.KindAsCast:
		return c.compileAsCast(id)
	case ast.KindUnary:
		return c.compileUnary(id)
	case ast.KindBinary:
		return c.compileBinary(id)
	case ast.KindAssign:
		c.compileAssign(id)
		return bytecode.Address{}
	case ast.KindCompoundAssign:
		c.compileCompoundAssign(id)
		return bytecode.Address{}
	case ast.KindClosure:
		return c.compileClosureRef(id)
	default:
		return bytecode.Address{}
	}
}

func boolBit(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

func (c *compiler) compileIdent(id ast.SyntaxId) bytecode.Address {
	n := c.tree.Get(id)
	if _, ok := nativeNames[n.Text]; ok {
		// Native callees resolve by name, not by declaration: intern the
		// name itself as a string constant so execCallNative can look it
		// up in the Registry (spec.md §4.6).
		idx := c.pool.intern(bytecode.Constant{Type: bytecode.TypeString, Str: n.Text})
		return bytecode.Address{Kind: bytecode.KindConstant, Index: idx}
	}
	declId := c.res.Uses[id]
	if r, ok := c.fr.lookupLocal(int(declId)); ok {
		return reg(r)
	}
	decl := c.res.Decls[declId]
	if decl.Type.Kind == types.Function {
		// Unresolved-to-a-local function reference: a CONSTANT address whose
		// index is the function's Prototype index, for direct recursion as
		// for any other call; this path never emits the all-ones sentinel.
		return bytecode.Address{Kind: bytecode.KindConstant, Index: int32(decl.FnIndex)}
	}
	c.errorf(id, "internal: identifier %q has no register binding", c.tree.Get(id).Text)
	return bytecode.Address{}
}

func (c *compiler) compileListLit(id ast.SyntaxId) bytecode.Address {
	n := c.tree.Get(id)
	mark := c.fr.mark()
	dest := c.fr.alloc()
	start := -1
	for _, el := range n.Children {
		v := c.compileExpr(el)
		r := c.fr.alloc()
		if start < 0 {
			start = r
		}
		c.emit(bytecode.OpMove, bytecode.TypeNone, reg(r), v, bytecode.Address{})
	}
	elemType := bytecode.TypeNone
	if lt, ok := c.res.ExprTypes[id]; ok && lt.Elem != nil {
		elemType = operandType(*lt.Elem)
	}
	length := len(n.Children)
	c.emit(bytecode.OpNewList, elemType, reg(dest),
		bytecode.Address{Kind: bytecode.KindRegister, Index: int32(start)},
		bytecode.Address{Kind: bytecode.KindEncoded, Index: int32(length)})
	c.fr.releaseTo(mark + 1) // keep dest, drop the element scratch registers
	return reg(dest)
}

func (c *compiler) compileIndex(id ast.SyntaxId) bytecode.Address {
	n := c.tree.Get(id)
	seq := c.materialize(c.compileExpr(n.A))
	idx := c.compileExpr(n.B)
	dest := c.fr.alloc()
	elemType := operandType(c.res.ExprTypes[id])
	c.emit(bytecode.OpGetIndex, elemType, reg(dest), reg(seq), idx)
	return reg(dest)
}

func (c *compiler) compileAsCast(id ast.SyntaxId) bytecode.Address {
	n := c.tree.Get(id)
	v := c.compileExpr(n.A)
	target := c.res.ExprTypes[id]
	dest := c.fr.alloc()
	c.emit(bytecode.OpToString, operandType(target), reg(dest), v, bytecode.Address{})
	return reg(dest)
}

func (c *compiler) compileUnary(id ast.SyntaxId) bytecode.Address {
	n := c.tree.Get(id)
	v := c.compileExpr(n.A)
	ot := operandType(c.res.ExprTypes[id])
	dest := c.fr.alloc()
	op := bytecode.OpNegate
	if n.UnOp == ast.OpNot {
		op = bytecode.OpNot
	}
	c.emit(op, ot, reg(dest), v, bytecode.Address{})
	return reg(dest)
}
