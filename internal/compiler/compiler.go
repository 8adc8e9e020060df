// Package compiler lowers a resolved syntax tree to register-based
// bytecode, per spec.md §4.4: register allocation, constant folding,
// control-flow lowering, and DROP emission for heap-typed locals.
package compiler

import (
	"fmt"

	"dust/internal/ast"
	"dust/internal/bytecode"
	"dust/internal/resolve"
	"dust/internal/types"
)

// Error is one compile-time lowering failure, reported with the
// originating syntax span per spec.md §4.4 "Errors".
type Error struct {
	Span string
	Msg  string
}

func (e *Error) Error() string { return e.Span + ": " + e.Msg }

type compiler struct {
	tree *ast.Tree
	res  *resolve.Result

	fn       *resolve.FunctionInfo
	fnIdx    int
	fr       *frame
	proto    *bytecode.Prototype
	pool     *constPool
	errs     []error
	dropsBuf []int32 // flat drop-list buffer shared by the prototype under construction
	loops    []*loopCtx
}

// loopCtx tracks the patch sites a `break` inside the current while/loop
// needs filled in once the loop's exit point is known, plus the register
// `break <value>` should land in (spec.md §4.4 control flow).
type loopCtx struct {
	breakJumps []int
	destReg    int
	hasDest    bool
}

// Compile lowers every function in res.Functions (starting with the
// synthetic "main" at index 0) to a Prototype and returns the assembled
// Program, plus any lowering errors accumulated along the way.
func Compile(tree *ast.Tree, res *resolve.Result) (*bytecode.Program, []error) {
	prog := &bytecode.Program{Entry: 0}
	var allErrs []error
	for i, fi := range res.Functions {
		c := &compiler{tree: tree, res: res, fn: fi, fnIdx: i, fr: &frame{}, pool: newConstPool()}
		c.proto = &bytecode.Prototype{Name: fi.Name, NumParams: len(fi.Params), IsRecursive: fi.IsRecursive}
		for _, declId := range fi.Params {
			reg := c.fr.alloc()
			c.fr.declareLocal(int(declId), reg, res.Decls[declId].Type.Kind.IsObject())
		}
		if i == 0 {
			c.compileProgramBody(tree.Root)
		} else {
			c.compileFunctionBody(fi.Node)
		}
		c.proto.NumRegs = c.fr.high
		c.proto.Constants = c.pool.values
		prog.Prototypes = append(prog.Prototypes, c.proto)
		allErrs = append(allErrs, c.errs...)
	}
	return prog, allErrs
}

func (c *compiler) errorf(id ast.SyntaxId, format string, args ...any) {
	span := c.tree.Get(id).Span
	c.errs = append(c.errs, &Error{Span: span.String(), Msg: fmt.Sprintf(format, args...)})
}

func (c *compiler) emit(op bytecode.Op, ot bytecode.OperandType, a, b, cc bytecode.Address) int {
	c.proto.Code = append(c.proto.Code, bytecode.Encode(op, ot, a, b, cc))
	return len(c.proto.Code) - 1
}

func (c *compiler) patchJump(at int, target int) {
	w := c.proto.Code[at]
	// The VM applies the offset after advancing ip past the jump itself.
	offset := int32(target - at - 1)
	c.proto.Code[at] = bytecode.EncodeJump(w.Op(), w.A(), offset)
}

func reg(r int) bytecode.Address {
	return bytecode.Address{Kind: bytecode.KindRegister, Index: int32(r)}
}

func operandType(t types.Type) bytecode.OperandType {
	switch t.Kind {
	case types.Bool:
		return bytecode.TypeBoolean
	case types.Byte:
		return bytecode.TypeByte
	case types.Char:
		return bytecode.TypeCharacter
	case types.Float:
		return bytecode.TypeFloat
	case types.Int:
		return bytecode.TypeInteger
	case types.Str:
		return bytecode.TypeString
	case types.List:
		return bytecode.TypeList
	case types.Function:
		return bytecode.TypeFunction
	default:
		return bytecode.TypeNone
	}
}

// compileProgramBody lowers the top-level statement sequence into the
// synthetic "main" prototype (spec.md §2: "the entry point is
// Prototype[0], main").
func (c *compiler) compileProgramBody(root ast.SyntaxId) {
	n := c.tree.Get(root)
	mark, lmark := c.fr.mark(), c.fr.localsMark()
	var last bytecode.Address
	haveLast := false
	for _, stmt := range n.Children {
		last, haveLast = c.compileItemOrStmt(stmt)
	}
	c.emitDropsTo(mark, lmark)
	if haveLast {
		c.emit(bytecode.OpReturn, bytecode.TypeNone, last, bytecode.Address{}, bytecode.Address{})
	} else {
		c.emit(bytecode.OpReturn, bytecode.TypeNone, bytecode.Address{}, bytecode.Address{}, bytecode.Address{})
	}
}

func (c *compiler) compileFunctionBody(fnNode ast.SyntaxId) {
	n := c.tree.Get(fnNode)
	last, haveLast := c.compileBlock(n.A)
	// Fall-through return for a body whose last statement isn't `return`:
	// the body's final expression, when it has a value, is returned.
	if !haveLast {
		last = bytecode.Address{}
	}
	c.emit(bytecode.OpReturn, bytecode.TypeNone, last, bytecode.Address{}, bytecode.Address{})
}

// compileBlock lowers a block's statements, freeing every register (and
// emitting DROP for heap-typed locals) allocated within it on exit —
// the high-water-mark discipline of spec.md §4.4.
func (c *compiler) compileBlock(block ast.SyntaxId) (bytecode.Address, bool) {
	n := c.tree.Get(block)
	mark, lmark := c.fr.mark(), c.fr.localsMark()
	var last bytecode.Address
	haveLast := false
	for _, stmt := range n.Children {
		last, haveLast = c.compileItemOrStmt(stmt)
	}
	c.emitDropsTo(mark, lmark)
	return last, haveLast
}

// emitDropsTo frees every register/local allocated since mark/lmark,
// emitting one DROP per heap-typed local whose operands name that local's
// register range [reg, reg+1) (spec.md §4.4 "DROP emission").
func (c *compiler) emitDropsTo(mark, lmark int) {
	freedLocals := c.fr.truncateLocals(lmark)
	for _, l := range freedLocals {
		if l.isObj {
			c.dropsBuf = append(c.dropsBuf, int32(l.reg))
			c.emit(bytecode.OpDrop, bytecode.TypeNone,
				bytecode.Address{Kind: bytecode.KindEncoded, Index: int32(l.reg)},
				bytecode.Address{Kind: bytecode.KindEncoded, Index: int32(l.reg) + 1},
				bytecode.Address{})
		}
	}
	c.fr.releaseTo(mark)
}

func (c *compiler) compileItemOrStmt(id ast.SyntaxId) (bytecode.Address, bool) {
	n := c.tree.Get(id)
	switch n.Kind {
	case ast.KindFnItem, ast.KindTypeItem, ast.KindModItem, ast.KindUseItem:
		// Nested fn items are compiled as their own Prototype in the
		// outer Compile loop via res.Functions; nothing to emit here.
		return bytecode.Address{}, false
	case ast.KindLetStmt:
		c.compileLetStmt(id)
		return bytecode.Address{}, false
	case ast.KindExprStmt:
		// Like the resolver, the statement's value is its expression's.
		v := c.compileExpr(n.A)
		return v, c.res.ExprTypes[n.A].Kind != types.None
	default:
		return c.compileExpr(id), true
	}
}

func (c *compiler) compileLetStmt(id ast.SyntaxId) {
	n := c.tree.Get(id)
	declId := c.res.Uses[id]
	val := c.compileExpr(n.A)
	reg := c.materialize(val)
	c.fr.declareLocal(int(declId), reg, c.res.Decls[declId].Type.Kind.IsObject())
}

// materialize copies an operand into a fresh owned register when it is
// not already one — e.g. a constant-pool or encoded literal that a local
// binding or further mutation needs a stable home for.
func (c *compiler) materialize(a bytecode.Address) int {
	if a.Kind == bytecode.KindRegister {
		return int(a.Index)
	}
	r := c.fr.alloc()
	c.emit(bytecode.OpMove, bytecode.TypeNone, reg(r), a, bytecode.Address{})
	return r
}
