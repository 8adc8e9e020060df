// Package resolve walks a syntax tree assigning scopes, resolving
// identifiers to declaration ids, and inferring/checking the static type
// of every expression, per spec.md §4.3.
package resolve

import (
	"fmt"

	"dust/internal/ast"
	"dust/internal/dusterr"
	"dust/internal/token"
	"dust/internal/types"
)

// DeclId identifies one declaration (let-binding, parameter, or function)
// uniquely within a resolved tree.
type DeclId uint32

// Scope is a block scope coordinate: Depth is the block nesting depth and
// Index a per-tree ordinal. It records where a declaration or expression
// sits; this package provides no ancestor ("contains") test over Scope
// values, and lookups walk the resolver's live scope stack instead.
type Scope struct {
	Depth int
	Index int
}

// Decl records one binding: its name, declared/inferred type, mutability,
// and the scope it lives in.
type Decl struct {
	Name    string
	Type    types.Type
	Mutable bool
	Scope   Scope
	IsParam bool
	FnIndex int // index into Result.Functions, meaningful when this decl names a function
}

// Result is everything the resolver produces for one syntax tree.
type Result struct {
	Tree *ast.Tree

	// Uses maps an identifier-use SyntaxId to the DeclId it resolves to.
	Uses map[ast.SyntaxId]DeclId
	// Scopes maps every expression node to the Scope it was resolved in.
	Scopes map[ast.SyntaxId]Scope
	// ExprTypes maps every expression node to its static type.
	ExprTypes map[ast.SyntaxId]types.Type
	// Decls is every declaration introduced anywhere in the tree, indexed
	// by DeclId.
	Decls []Decl
	// Functions lists every `fn` item/closure in declaration order; its
	// index is what compiler uses to pick a Prototype slot.
	Functions []*FunctionInfo

	Errors []error
}

// FunctionInfo is what the resolver hands the compiler about one function:
// its syntax node, its signature, and whether it is self-recursive.
type FunctionInfo struct {
	Node        ast.SyntaxId
	Name        string
	Params      []DeclId
	Signature   types.FunctionType
	IsRecursive bool
	IsClosure   bool
}

type scopeNode struct {
	scope Scope
	decls map[string]DeclId // names declared directly in this scope
	outer *scopeNode

	// fnBoundary marks the outermost scope of a fn item or closure body
	// (the one holding its parameters): walking past it during lookup
	// means the name being resolved lives in an enclosing function.
	fnBoundary bool
}

type resolver struct {
	tree   *ast.Tree
	res    *Result
	scope  *scopeNode
	depth  int
	nextIx int

	curFn      *FunctionInfo // nil at top level ("main" is Functions[0] itself once pushed)
	selfDeclId DeclId
	hasSelf    bool
}

// Resolve runs name resolution and type checking over tree, returning a
// Result even when errors were found (compile-phase errors accumulate
// per spec.md §7 so the caller sees as many as possible).
func Resolve(tree *ast.Tree) *Result {
	res := &Result{
		Tree:      tree,
		Uses:      map[ast.SyntaxId]DeclId{},
		Scopes:    map[ast.SyntaxId]Scope{},
		ExprTypes: map[ast.SyntaxId]types.Type{},
	}
	r := &resolver{tree: tree, res: res}
	r.pushScope()

	main := &FunctionInfo{Name: "main"}
	res.Functions = append(res.Functions, main)
	prevFn := r.curFn
	r.curFn = main
	r.resolveProgramBody(tree.Root)
	r.curFn = prevFn

	r.popScope()
	return res
}

func (r *resolver) pushScope() {
	r.depth++
	r.scope = &scopeNode{scope: Scope{Depth: r.depth, Index: r.nextIx}, decls: map[string]DeclId{}, outer: r.scope}
	r.nextIx++
}

// pushFnScope opens the parameter/body scope of a fn item or closure and
// marks it as a function boundary for lookup.
func (r *resolver) pushFnScope() {
	r.pushScope()
	r.scope.fnBoundary = true
}

func (r *resolver) popScope() {
	r.scope = r.scope.outer
	r.depth--
}

func (r *resolver) declare(name string, typ types.Type, mutable, isParam bool) DeclId {
	id := DeclId(len(r.res.Decls))
	r.res.Decls = append(r.res.Decls, Decl{Name: name, Type: typ, Mutable: mutable, Scope: r.scope.scope, IsParam: isParam})
	if _, dup := r.scope.decls[name]; dup {
		r.errorf(dusterr.ErrDuplicateBinding, token.Span{}, "duplicate binding %q in this scope", name)
	}
	r.scope.decls[name] = id
	return id
}

// lookup walks the scope chain outward for name, also reporting whether
// the binding found (if any) lives outside the innermost enclosing
// function/closure boundary — i.e. whether resolving it would capture an
// enclosing function's local.
func (r *resolver) lookup(name string) (id DeclId, ok bool, captured bool) {
	for s := r.scope; s != nil; s = s.outer {
		if id, ok := s.decls[name]; ok {
			return id, true, captured
		}
		if s.fnBoundary {
			captured = true
		}
	}
	return 0, false, false
}

func (r *resolver) errorf(sentinel error, span token.Span, format string, args ...any) {
	msg := fmt.Errorf(format, args...)
	if sentinel != nil {
		msg = fmt.Errorf("%w: %s", sentinel, msg)
	}
	r.res.Errors = append(r.res.Errors, dusterr.WithSpan(msg, span))
}

func (r *resolver) node(id ast.SyntaxId) *ast.Node { return r.tree.Get(id) }

func (r *resolver) setType(id ast.SyntaxId, t types.Type) types.Type {
	r.res.ExprTypes[id] = t
	r.res.Scopes[id] = r.scope.scope
	return t
}

func parseTypeName(name string) types.Type {
	switch name {
	case "", "none":
		return types.NoneT
	case "bool":
		return types.BoolT
	case "byte":
		return types.ByteT
	case "char":
		return types.CharT
	case "float":
		return types.FloatT
	case "int":
		return types.IntT
	case "str":
		return types.StrT
	}
	if len(name) > 2 && name[0] == '[' && name[len(name)-1] == ']' {
		return types.ListOf(parseTypeName(name[1 : len(name)-1]))
	}
	return types.NoneT
}

// resolveProgramBody resolves the top-level sequence of items/statements
// the same way a function body block is resolved (spec.md §4.3: a source
// file's implicit "main" is a function body).
func (r *resolver) resolveProgramBody(program ast.SyntaxId) types.Type {
	n := r.node(program)
	return r.resolveStmtSeq(n.Children)
}

func (r *resolver) resolveStmtSeq(children []ast.SyntaxId) types.Type {
	last := types.NoneT
	for i, child := range children {
		t := r.resolveItemOrStmt(child)
		if i == len(children)-1 {
			last = t
		}
	}
	return last
}

func (r *resolver) resolveItemOrStmt(id ast.SyntaxId) types.Type {
	n := r.node(id)
	switch n.Kind {
	case ast.KindFnItem:
		r.resolveFnItem(id)
		return types.NoneT
	case ast.KindTypeItem, ast.KindModItem, ast.KindUseItem:
		// spec.md §9 Open Questions: module loading / type aliasing beyond
		// primitives is left unimplemented rather than guessed at.
		r.errorf(dusterr.ErrUnimplemented, n.Span, "type, mod and use items are not supported")
		return types.NoneT
	case ast.KindLetStmt:
		return r.resolveLetStmt(id)
	case ast.KindExprStmt:
		return r.resolveExpr(n.A)
	default:
		return r.resolveExpr(id)
	}
}

func (r *resolver) resolveFnItem(id ast.SyntaxId) {
	n := r.node(id)
	fi := &FunctionInfo{Node: id, Name: n.Text}
	fnIndex := len(r.res.Functions)
	r.res.Functions = append(r.res.Functions, fi)

	// Declare the function's own name in the *enclosing* scope before
	// resolving its body, so direct recursion (spec.md §3 is_recursive /
	// §9 self-reference) resolves like any other call.
	selfType := types.FuncOf(nil, types.NoneT) // patched below once the signature is known
	selfDeclId := r.declare(n.Text, selfType, false, false)
	r.res.Decls[selfDeclId].FnIndex = fnIndex
	r.res.Uses[id] = selfDeclId

	r.pushFnScope()
	defer r.popScope()

	for _, p := range n.Children {
		pn := r.node(p)
		pt := parseTypeName(pn.TypeName)
		declId := r.declare(pn.Text, pt, false, true)
		fi.Params = append(fi.Params, declId)
		fi.Signature.Params = append(fi.Signature.Params, pt)
		r.res.Uses[p] = declId
	}
	fi.Signature.Return = parseTypeName(n.TypeName)
	r.res.Decls[selfDeclId].Type = types.FuncOf(fi.Signature.Params, fi.Signature.Return)

	prevFn, prevSelf, prevHasSelf := r.curFn, r.selfDeclId, r.hasSelf
	r.curFn, r.selfDeclId, r.hasSelf = fi, selfDeclId, true
	bodyType := r.resolveBlockBody(n.A)
	r.curFn, r.selfDeclId, r.hasSelf = prevFn, prevSelf, prevHasSelf

	if !types.Equal(bodyType, fi.Signature.Return) && fi.Signature.Return.Kind != types.None {
		r.errorf(nil, n.Span, "function %q: body type %s does not match declared return type %s", n.Text, bodyType, fi.Signature.Return)
	}
}

// resolveBlockBody resolves a block's statements without opening a second
// nested scope (the caller — fn item or closure — already pushed one for
// the parameters, and the body shares it).
func (r *resolver) resolveBlockBody(block ast.SyntaxId) types.Type {
	n := r.node(block)
	t := r.resolveStmtSeq(n.Children)
	r.setType(block, t)
	return t
}

func (r *resolver) resolveLetStmt(id ast.SyntaxId) types.Type {
	n := r.node(id)
	valType := r.resolveExpr(n.A)
	declType := valType
	if n.TypeName != "" {
		declType = parseTypeName(n.TypeName)
		if !types.Equal(declType, valType) {
			r.errorf(nil, n.Span, "let %q: declared type %s does not match value type %s", n.Text, declType, valType)
		}
	}
	declId := r.declare(n.Text, declType, n.IsMut, false)
	r.res.Uses[id] = declId
	return types.NoneT
}

func (r *resolver) resolveExpr(id ast.SyntaxId) types.Type {
	n := r.node(id)
	switch n.Kind {
	case ast.KindIntLit:
		return r.setType(id, types.IntT)
	case ast.KindFloatLit:
		return r.setType(id, types.FloatT)
	case ast.KindByteLit:
		return r.setType(id, types.ByteT)
	case ast.KindCharLit:
		return r.setType(id, types.CharT)
	case ast.KindStringLit:
		return r.setType(id, types.StrT)
	case ast.KindBoolLit:
		return r.setType(id, types.BoolT)
	case ast.KindIdent:
		if sig, ok := NativeSignatures[n.Text]; ok {
			params := make([]types.Type, len(sig.Params))
			copy(params, sig.Params)
			return r.setType(id, types.FuncOf(params, sig.Return))
		}
		declId, ok, captured := r.lookup(n.Text)
		if !ok {
			r.errorf(dusterr.ErrUnknownIdentifier, n.Span, "unknown identifier %q", n.Text)
			return r.setType(id, types.NoneT)
		}
		decl := r.res.Decls[declId]
		if captured && decl.Type.Kind != types.Function {
			// Function-type decls (named fn items, including the enclosing
			// self-reference for recursion) are addressed by Prototype
			// index rather than by register, so referencing one across a
			// function boundary isn't a capture.
			r.errorf(dusterr.ErrCaptureNotSupported, n.Span, "%q is a local of an enclosing function", n.Text)
			return r.setType(id, types.NoneT)
		}
		r.res.Uses[id] = declId
		if r.hasSelf && declId == r.selfDeclId {
			r.curFn.IsRecursive = true
		}
		return r.setType(id, decl.Type)
	case ast.KindListLit:
		return r.resolveListLit(id)
	case ast.KindBlock:
		r.pushScope()
		t := r.resolveStmtSeq(n.Children)
		r.popScope()
		return r.setType(id, t)
	case ast.KindIf:
		return r.resolveIf(id)
	case ast.KindWhile:
		r.resolveExpr(n.A)
		r.pushScope()
		r.resolveStmtSeq(r.node(n.B).Children)
		r.popScope()
		return r.setType(id, types.NoneT)
	case ast.KindLoop:
		r.pushScope()
		r.resolveStmtSeq(r.node(n.A).Children)
		r.popScope()
		return r.setType(id, types.NoneT)
	case ast.KindBreak:
		if n.A != ast.InvalidId {
			r.resolveExpr(n.A)
		}
		return r.setType(id, types.NoneT)
	case ast.KindReturn:
		if n.A != ast.InvalidId {
			r.resolveExpr(n.A)
		}
		return r.setType(id, types.NoneT)
	case ast.KindCall:
		return r.resolveCall(id)
	case ast.KindIndex:
		return r.resolveIndex(id)
	case ast.KindField:
		r.resolveExpr(n.A)
		// spec.md §9 Open Questions: struct field access is left
		// unimplemented (no struct type exists yet) — diagnose it rather
		// than silently producing a fabricated NoneT result.
		r.errorf(dusterr.ErrUnimplemented, n.Span, "field access %q is not yet supported", n.Text)
		return r.setType(id, types.NoneT)
	case ast.KindAsCast:
		r.resolveExpr(n.A)
		return r.setType(id, parseTypeName(n.TypeName))
	case ast.KindUnary:
		return r.resolveUnary(id)
	case ast.KindBinary:
		return r.resolveBinary(id)
	case ast.KindAssign:
		return r.resolveAssign(id)
	case ast.KindCompoundAssign:
		return r.resolveCompoundAssign(id)
	case ast.KindClosure:
		return r.resolveClosure(id)
	case ast.KindError:
		return r.setType(id, types.NoneT)
	default:
		return r.setType(id, types.NoneT)
	}
}

func (r *resolver) resolveListLit(id ast.SyntaxId) types.Type {
	n := r.node(id)
	elem := types.NoneT
	for i, c := range n.Children {
		t := r.resolveExpr(c)
		if i == 0 {
			elem = t
		} else if !types.Equal(elem, t) {
			r.errorf(nil, n.Span, "list literal: element type %s does not match %s", t, elem)
		}
	}
	return r.setType(id, types.ListOf(elem))
}

func (r *resolver) resolveIf(id ast.SyntaxId) types.Type {
	n := r.node(id)
	condType := r.resolveExpr(n.A)
	if !types.Equal(condType, types.BoolT) {
		r.errorf(nil, n.Span, "if condition must be bool, found %s", condType)
	}
	r.pushScope()
	thenType := r.resolveStmtSeq(r.node(n.B).Children)
	r.popScope()
	resultType := types.NoneT
	if n.C != ast.InvalidId {
		r.pushScope()
		var elseType types.Type
		if r.node(n.C).Kind == ast.KindIf {
			elseType = r.resolveExpr(n.C)
		} else {
			elseType = r.resolveStmtSeq(r.node(n.C).Children)
		}
		r.popScope()
		if joined, ok := types.Join(thenType, elseType); ok {
			resultType = joined
		} else {
			r.errorf(nil, n.Span, "if/else branches disagree: %s vs %s", thenType, elseType)
		}
	}
	return r.setType(id, resultType)
}

func (r *resolver) resolveCall(id ast.SyntaxId) types.Type {
	n := r.node(id)
	calleeType := r.resolveExpr(n.A)
	for _, a := range n.Children {
		r.resolveExpr(a)
	}
	if calleeType.Kind != types.Function {
		r.res.Errors = append(r.res.Errors, &dusterr.NotCallable{Actual: calleeType, Span: n.Span})
		return r.setType(id, types.NoneT)
	}
	if len(n.Children) != len(calleeType.Func.Params) {
		r.res.Errors = append(r.res.Errors, &dusterr.ArityMismatch{Want: len(calleeType.Func.Params), Got: len(n.Children), Span: n.Span})
	} else {
		for i, a := range n.Children {
			at := r.res.ExprTypes[a]
			if !types.Equal(at, calleeType.Func.Params[i]) {
				r.res.Errors = append(r.res.Errors, &dusterr.TypeMismatch{Expected: calleeType.Func.Params[i], Actual: at, Span: n.Span})
			}
		}
	}
	return r.setType(id, calleeType.Func.Return)
}

func (r *resolver) resolveIndex(id ast.SyntaxId) types.Type {
	n := r.node(id)
	seqType := r.resolveExpr(n.A)
	idxType := r.resolveExpr(n.B)
	if !types.Equal(idxType, types.IntT) {
		r.errorf(nil, n.Span, "index must be int, found %s", idxType)
	}
	if seqType.Kind != types.List {
		r.errorf(nil, n.Span, "cannot index non-list type %s", seqType)
		return r.setType(id, types.NoneT)
	}
	return r.setType(id, *seqType.Elem)
}

func (r *resolver) resolveUnary(id ast.SyntaxId) types.Type {
	n := r.node(id)
	t := r.resolveExpr(n.A)
	switch n.UnOp {
	case ast.OpNeg:
		if t.Kind != types.Int && t.Kind != types.Float {
			r.errorf(nil, n.Span, "unary - requires int or float, found %s", t)
		}
	case ast.OpNot:
		if t.Kind != types.Bool {
			r.errorf(nil, n.Span, "unary ! requires bool, found %s", t)
		}
	}
	return r.setType(id, t)
}

func (r *resolver) resolveBinary(id ast.SyntaxId) types.Type {
	n := r.node(id)
	lt := r.resolveExpr(n.A)
	rt := r.resolveExpr(n.B)

	switch n.BinOp {
	case ast.OpAnd, ast.OpOr:
		if lt.Kind != types.Bool || rt.Kind != types.Bool {
			r.errorf(nil, n.Span, "%s requires bool operands, found %s and %s", n.BinOp, lt, rt)
		}
		return r.setType(id, types.BoolT)
	case ast.OpEq, ast.OpNotEq, ast.OpLt, ast.OpLtEq, ast.OpGt, ast.OpGtEq:
		if !types.Equal(lt, rt) {
			r.errorf(nil, n.Span, "comparison operands disagree: %s vs %s", lt, rt)
		}
		return r.setType(id, types.BoolT)
	default: // arithmetic
		if !types.Equal(lt, rt) {
			// add_char_str / add_str_char: char+str and str+char are the
			// two documented mixed-type exceptions (spec.md §4.4).
			if n.BinOp == ast.OpAdd && ((lt.Kind == types.Char && rt.Kind == types.Str) || (lt.Kind == types.Str && rt.Kind == types.Char)) {
				return r.setType(id, types.StrT)
			}
			r.errorf(nil, n.Span, "arithmetic operands disagree: %s vs %s (use `as` to convert)", lt, rt)
			return r.setType(id, lt)
		}
		return r.setType(id, lt)
	}
}

func (r *resolver) resolveAssign(id ast.SyntaxId) types.Type {
	n := r.node(id)
	r.checkAssignTarget(n.A)
	lt := r.resolveExpr(n.A)
	rt := r.resolveExpr(n.B)
	if !types.Equal(lt, rt) {
		r.res.Errors = append(r.res.Errors, &dusterr.TypeMismatch{Expected: lt, Actual: rt, Span: n.Span})
	}
	return r.setType(id, types.NoneT)
}

func (r *resolver) resolveCompoundAssign(id ast.SyntaxId) types.Type {
	n := r.node(id)
	r.checkAssignTarget(n.A)
	lt := r.resolveExpr(n.A)
	rt := r.resolveExpr(n.B)
	if !types.Equal(lt, rt) {
		r.res.Errors = append(r.res.Errors, &dusterr.TypeMismatch{Expected: lt, Actual: rt, Span: n.Span})
	}
	return r.setType(id, types.NoneT)
}

func (r *resolver) checkAssignTarget(id ast.SyntaxId) {
	n := r.node(id)
	if n.Kind != ast.KindIdent {
		return
	}
	declId, ok, _ := r.lookup(n.Text)
	if ok && !r.res.Decls[declId].Mutable {
		r.errorf(nil, n.Span, "cannot assign to immutable binding %q (declare with `let mut`)", n.Text)
	}
}

func (r *resolver) resolveClosure(id ast.SyntaxId) types.Type {
	n := r.node(id)
	fi := &FunctionInfo{Node: id, IsClosure: true}
	r.res.Functions = append(r.res.Functions, fi)

	r.pushFnScope()
	defer r.popScope()
	for _, p := range n.Children {
		pn := r.node(p)
		pt := parseTypeName(pn.TypeName)
		declId := r.declare(pn.Text, pt, false, true)
		fi.Params = append(fi.Params, declId)
		fi.Signature.Params = append(fi.Signature.Params, pt)
		r.res.Uses[p] = declId
	}
	fi.Signature.Return = parseTypeName(n.TypeName)

	prevFn := r.curFn
	r.curFn = fi
	r.resolveBlockBody(n.A)
	r.curFn = prevFn

	return r.setType(id, types.FuncOf(fi.Signature.Params, fi.Signature.Return))
}
