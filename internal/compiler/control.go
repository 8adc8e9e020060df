package compiler

import (
	"dust/internal/ast"
	"dust/internal/bytecode"
	"dust/internal/types"
)

// compileIf lowers `if c { a } else { b }` to a test+jump past the
// then-branch, then an unconditional jump past the else-branch, per
// spec.md §4.4.
func (c *compiler) compileIf(id ast.SyntaxId) bytecode.Address {
	n := c.tree.Get(id)
	cond := c.compileExpr(n.A)
	condReg := c.materialize(cond)

	testAt := c.emit(bytecode.OpTest, bytecode.TypeBoolean, reg(condReg), bytecode.Address{Kind: bytecode.KindEncoded, Index: 1}, bytecode.Address{})
	jumpOverThenAt := c.emit(bytecode.OpJump, bytecode.TypeNone, bytecode.Address{}, bytecode.Address{}, bytecode.Address{})
	_ = testAt

	resultType := c.res.ExprTypes[id]
	hasResult := resultType.Kind != types.None
	var dest int
	if hasResult {
		dest = c.fr.alloc()
	}

	thenVal, thenHave := c.compileBlock(n.B)
	if hasResult && thenHave {
		c.emit(bytecode.OpMove, bytecode.TypeNone, reg(dest), thenVal, bytecode.Address{})
	}

	if n.C == ast.InvalidId {
		c.patchJump(jumpOverThenAt, len(c.proto.Code))
		if hasResult {
			return reg(dest)
		}
		return bytecode.Address{}
	}

	jumpOverElseAt := c.emit(bytecode.OpJump, bytecode.TypeNone, bytecode.Address{}, bytecode.Address{}, bytecode.Address{})
	c.patchJump(jumpOverThenAt, len(c.proto.Code))

	var elseVal bytecode.Address
	elseHave := false
	if c.tree.Get(n.C).Kind == ast.KindIf {
		elseVal = c.compileIf(n.C)
		elseHave = elseVal != (bytecode.Address{})
	} else {
		elseVal, elseHave = c.compileBlock(n.C)
	}
	if hasResult && elseHave {
		c.emit(bytecode.OpMove, bytecode.TypeNone, reg(dest), elseVal, bytecode.Address{})
	}
	c.patchJump(jumpOverElseAt, len(c.proto.Code))

	if hasResult {
		return reg(dest)
	}
	return bytecode.Address{}
}

// compileWhile lowers `while c { body }` to: L0: evaluate c; test+jump
// past body; body; jump back to L0.
func (c *compiler) compileWhile(id ast.SyntaxId) {
	n := c.tree.Get(id)
	c.loops = append(c.loops, &loopCtx{})
	l0 := len(c.proto.Code)
	cond := c.compileExpr(n.A)
	condReg := c.materialize(cond)
	c.emit(bytecode.OpTest, bytecode.TypeBoolean, reg(condReg), bytecode.Address{Kind: bytecode.KindEncoded, Index: 1}, bytecode.Address{})
	exitJumpAt := c.emit(bytecode.OpJump, bytecode.TypeNone, bytecode.Address{}, bytecode.Address{}, bytecode.Address{})

	c.compileBlock(n.B)
	backAt := c.emit(bytecode.OpJump, bytecode.TypeNone, bytecode.Address{}, bytecode.Address{}, bytecode.Address{})
	c.patchJump(backAt, l0)

	end := len(c.proto.Code)
	c.patchJump(exitJumpAt, end)
	ctx := c.loops[len(c.loops)-1]
	c.loops = c.loops[:len(c.loops)-1]
	for _, at := range ctx.breakJumps {
		c.patchJump(at, end)
	}
}

// compileLoop lowers `loop { body }` to body followed by a backward jump,
// with every `break` inside patched to the loop's exit once known.
func (c *compiler) compileLoop(id ast.SyntaxId) {
	n := c.tree.Get(id)
	ctx := &loopCtx{}
	resultType := c.res.ExprTypes[id]
	if resultType.Kind != types.None {
		ctx.destReg = c.fr.alloc()
		ctx.hasDest = true
	}
	c.loops = append(c.loops, ctx)

	start := len(c.proto.Code)
	c.compileBlock(n.A)
	backAt := c.emit(bytecode.OpJump, bytecode.TypeNone, bytecode.Address{}, bytecode.Address{}, bytecode.Address{})
	c.patchJump(backAt, start)

	end := len(c.proto.Code)
	c.loops = c.loops[:len(c.loops)-1]
	for _, at := range ctx.breakJumps {
		c.patchJump(at, end)
	}
}

func (c *compiler) compileBreak(id ast.SyntaxId) {
	if len(c.loops) == 0 {
		c.errorf(id, "break outside of a loop")
		return
	}
	n := c.tree.Get(id)
	ctx := c.loops[len(c.loops)-1]
	if n.A != ast.InvalidId && ctx.hasDest {
		v := c.compileExpr(n.A)
		c.emit(bytecode.OpMove, bytecode.TypeNone, reg(ctx.destReg), v, bytecode.Address{})
	}
	at := c.emit(bytecode.OpJump, bytecode.TypeNone, bytecode.Address{}, bytecode.Address{}, bytecode.Address{})
	ctx.breakJumps = append(ctx.breakJumps, at)
}

func (c *compiler) compileReturn(id ast.SyntaxId) {
	n := c.tree.Get(id)
	if n.A == ast.InvalidId {
		c.emit(bytecode.OpReturn, bytecode.TypeNone, bytecode.Address{}, bytecode.Address{}, bytecode.Address{})
		return
	}
	v := c.compileExpr(n.A)
	c.emit(bytecode.OpReturn, bytecode.TypeNone, v, bytecode.Address{}, bytecode.Address{})
}

// compileBinary lowers arithmetic/comparison directly and short-circuits
// &&/|| to a test+jump+move sequence so the right operand is skipped
// when the left already determines the result (spec.md §4.4).
func (c *compiler) compileBinary(id ast.SyntaxId) bytecode.Address {
	n := c.tree.Get(id)
	if n.BinOp == ast.OpAnd || n.BinOp == ast.OpOr {
		return c.compileShortCircuit(id)
	}
	if folded, ok := c.foldBinary(id); ok {
		return folded
	}

	l := c.compileExpr(n.A)
	r := c.compileExpr(n.B)
	ot := operandType(c.res.ExprTypes[n.A])
	dest := c.fr.alloc()
	op, invert := binOpcode(n.BinOp)
	c.proto.Code = append(c.proto.Code, bytecode.EncodeD(op, ot, reg(dest), l, r, invert))
	return reg(dest)
}

// binOpcode maps a BinaryOp to its opcode plus the d_field comparator
// invert: `!=`, `>`, and `>=` reuse EQUAL/LESS/LESSEQ's handler with the
// sense flipped rather than getting their own opcode (spec.md §3 d_field).
func binOpcode(op ast.BinaryOp) (bytecode.Op, bool) {
	switch op {
	case ast.OpAdd:
		return bytecode.OpAdd, false
	case ast.OpSub:
		return bytecode.OpSub, false
	case ast.OpMul:
		return bytecode.OpMul, false
	case ast.OpDiv:
		return bytecode.OpDiv, false
	case ast.OpRem:
		return bytecode.OpRem, false
	case ast.OpEq:
		return bytecode.OpEqual, false
	case ast.OpNotEq:
		return bytecode.OpEqual, true
	case ast.OpLt:
		return bytecode.OpLess, false
	case ast.OpLtEq:
		return bytecode.OpLessEqual, false
	case ast.OpGt:
		return bytecode.OpLessEqual, true
	case ast.OpGtEq:
		return bytecode.OpLess, true
	}
	return bytecode.OpNop, false
}

func (c *compiler) compileShortCircuit(id ast.SyntaxId) bytecode.Address {
	n := c.tree.Get(id)
	isAnd := n.BinOp == ast.OpAnd
	dest := c.fr.alloc()

	l := c.compileExpr(n.A)
	lReg := c.materialize(l)
	c.emit(bytecode.OpMove, bytecode.TypeNone, reg(dest), reg(lReg), bytecode.Address{})

	// && : if left is false, short-circuit (skip evaluating right).
	// || : if left is true,  short-circuit.
	c.emit(bytecode.OpTest, bytecode.TypeBoolean, reg(lReg), bytecode.Address{Kind: bytecode.KindEncoded, Index: boolBit(isAnd)}, bytecode.Address{})
	skipAt := c.emit(bytecode.OpJump, bytecode.TypeNone, bytecode.Address{}, bytecode.Address{}, bytecode.Address{})

	r := c.compileExpr(n.B)
	c.emit(bytecode.OpMove, bytecode.TypeNone, reg(dest), r, bytecode.Address{})

	c.patchJump(skipAt, len(c.proto.Code))
	return reg(dest)
}

func (c *compiler) compileAssign(id ast.SyntaxId) {
	n := c.tree.Get(id)
	v := c.compileExpr(n.B)
	c.storeToTarget(n.A, v)
}

func (c *compiler) compileCompoundAssign(id ast.SyntaxId) {
	n := c.tree.Get(id)
	cur := c.compileExpr(n.A)
	rhs := c.compileExpr(n.B)
	ot := operandType(c.res.ExprTypes[n.A])
	op, _ := binOpcode(n.BinOp)
	dest := c.fr.alloc()
	c.emit(op, ot, reg(dest), cur, rhs)
	c.storeToTarget(n.A, reg(dest))
}

func (c *compiler) storeToTarget(target ast.SyntaxId, v bytecode.Address) {
	n := c.tree.Get(target)
	switch n.Kind {
	case ast.KindIdent:
		declId := c.res.Uses[target]
		r, ok := c.fr.lookupLocal(int(declId))
		if !ok {
			c.errorf(target, "internal: assignment target %q has no register binding", n.Text)
			return
		}
		c.emit(bytecode.OpMove, bytecode.TypeNone, reg(r), v, bytecode.Address{})
	case ast.KindIndex:
		seq := c.materialize(c.compileExpr(n.A))
		idx := c.compileExpr(n.B)
		ot := operandType(c.res.ExprTypes[target])
		c.emit(bytecode.OpSetIndex, ot, reg(seq), idx, v)
	default:
		c.errorf(target, "internal: unsupported assignment target")
	}
}

// compileCall lowers a call expression. The callee's register window is
// set up by the VM at the Call instruction; here the compiler materializes
// the ordered argument registers the prototype's call_arguments table
// expects (spec.md §4.5 "Call").
func (c *compiler) compileCall(id ast.SyntaxId) bytecode.Address {
	n := c.tree.Get(id)
	callee := c.compileExpr(n.A)

	mark := c.fr.mark()
	// Evaluate every argument before allocating the argument registers, so
	// temporaries an argument needs cannot split the contiguous run the VM
	// reads at dest-argCount..dest-1.
	vals := make([]bytecode.Address, len(n.Children))
	for i, a := range n.Children {
		vals[i] = c.compileExpr(a)
	}
	argStart := -1
	for i, a := range n.Children {
		v := vals[i]
		r := c.fr.alloc()
		if argStart < 0 {
			argStart = r
		}
		// Typed move, so a function-reference CONSTANT argument is read as
		// a Prototype index rather than a constant-pool entry.
		c.emit(bytecode.OpMove, operandType(c.res.ExprTypes[a]), reg(r), v, bytecode.Address{})
	}
	dest := c.fr.alloc()
	argsAddr := bytecode.Address{Kind: bytecode.KindEncoded, Index: int32(len(n.Children))}
	if argStart < 0 {
		argsAddr = bytecode.Address{Kind: bytecode.KindEncoded, Index: 0}
	}
	op := bytecode.OpCall
	if c.isNativeCallee(n.A) {
		op = bytecode.OpCallNative
	}
	c.emit(op, bytecode.TypeNone, reg(dest), callee, argsAddr)
	c.fr.releaseTo(mark)
	// Releasing to mark also frees dest, so the result is copied down into
	// the first freed register, which stays allocated for the caller.
	res := c.fr.alloc()
	if res != dest {
		c.emit(bytecode.OpMove, bytecode.TypeNone, reg(res), reg(dest), bytecode.Address{})
	}
	return reg(res)
}

// isNativeCallee reports whether callee names a std.* builtin rather than
// a user-defined Prototype — resolved by name since the resolver does not
// special-case `std` module paths (spec.md §9 Open Questions: module
// loading beyond primitives is left to the driver).
func (c *compiler) isNativeCallee(callee ast.SyntaxId) bool {
	n := c.tree.Get(callee)
	if n.Kind != ast.KindIdent {
		return false
	}
	_, isNative := nativeNames[n.Text]
	return isNative
}

var nativeNames = map[string]bool{
	"_read_line": true, "_write_line": true, "_int_to_str": true,
	"_float_to_str": true, "_str_to_int": true, "_str_len": true,
	"_spawn": true, "_random_int": true,
}

func (c *compiler) compileClosureRef(id ast.SyntaxId) bytecode.Address {
	// Closures compile to their own Prototype (handled by the outer
	// Compile loop via res.Functions); referencing one here just
	// produces a CONSTANT function-reference address.
	for i, fi := range c.res.Functions {
		if fi.Node == id {
			return bytecode.Address{Kind: bytecode.KindConstant, Index: int32(i)}
		}
	}
	c.errorf(id, "internal: closure has no assigned prototype")
	return bytecode.Address{}
}
