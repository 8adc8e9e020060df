package parser_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"dust/internal/ast"
	"dust/internal/parser"
	"dust/internal/token"
)

func parse(t *testing.T, src string) *ast.Tree {
	t.Helper()
	tree, errs := parser.Parse(token.FileId(0), []byte(src))
	require.Empty(t, errs, "parse errors for %q", src)
	return tree
}

func TestParseLetStatementBindsNameTypeAndValue(t *testing.T) {
	tree := parse(t, "let mut x: int = 1 + 2;")
	prog := tree.Get(tree.Root)
	require.Len(t, prog.Children, 1)
	let := tree.Get(prog.Children[0])
	require.Equal(t, ast.KindLetStmt, let.Kind)
	require.Equal(t, "x", let.Text)
	require.Equal(t, "int", let.TypeName)
	require.True(t, let.IsMut)
	value := tree.Get(let.A)
	require.Equal(t, ast.KindBinary, value.Kind)
	require.Equal(t, ast.OpAdd, value.BinOp)
}

func TestParseBinaryPrecedenceAndAssociativity(t *testing.T) {
	tree := parse(t, "1 + 2 * 3;")
	stmt := tree.Get(tree.Get(tree.Root).Children[0])
	top := tree.Get(stmt.A)
	require.Equal(t, ast.OpAdd, top.BinOp)
	rhs := tree.Get(top.B)
	require.Equal(t, ast.OpMul, rhs.BinOp)

	tree2 := parse(t, "1 - 2 - 3;")
	stmt2 := tree2.Get(tree2.Get(tree2.Root).Children[0])
	top2 := tree2.Get(stmt2.A)
	require.Equal(t, ast.OpSub, top2.BinOp)
	lhs2 := tree2.Get(top2.A)
	require.Equal(t, ast.OpSub, lhs2.BinOp, "left-associative: (1 - 2) - 3")
}

func TestParseLogicalOperatorsBindLooserThanComparison(t *testing.T) {
	tree := parse(t, "a < b && c > d;")
	stmt := tree.Get(tree.Get(tree.Root).Children[0])
	top := tree.Get(stmt.A)
	require.Equal(t, ast.OpAnd, top.BinOp)
	require.Equal(t, ast.OpLt, tree.Get(top.A).BinOp)
	require.Equal(t, ast.OpGt, tree.Get(top.B).BinOp)
}

func TestParseUnaryAndAsCast(t *testing.T) {
	tree := parse(t, "-x as float;")
	stmt := tree.Get(tree.Get(tree.Root).Children[0])
	cast := tree.Get(stmt.A)
	require.Equal(t, ast.KindAsCast, cast.Kind)
	require.Equal(t, "float", cast.TypeName)
	neg := tree.Get(cast.A)
	require.Equal(t, ast.KindUnary, neg.Kind)
	require.Equal(t, ast.OpNeg, neg.UnOp)
}

func TestParseCallIndexAndFieldChain(t *testing.T) {
	tree := parse(t, "foo(1, 2)[0].bar;")
	stmt := tree.Get(tree.Get(tree.Root).Children[0])
	field := tree.Get(stmt.A)
	require.Equal(t, ast.KindField, field.Kind)
	require.Equal(t, "bar", field.Text)
	index := tree.Get(field.A)
	require.Equal(t, ast.KindIndex, index.Kind)
	call := tree.Get(index.A)
	require.Equal(t, ast.KindCall, call.Kind)
	require.Len(t, call.Children, 2)
}

func TestParseIfElseChain(t *testing.T) {
	tree := parse(t, "if a { 1 } else if b { 2 } else { 3 }")
	stmt := tree.Get(tree.Get(tree.Root).Children[0])
	outer := tree.Get(stmt.A)
	require.Equal(t, ast.KindIf, outer.Kind)
	inner := tree.Get(outer.C)
	require.Equal(t, ast.KindIf, inner.Kind)
}

func TestParseLoopAndBreakWithValue(t *testing.T) {
	tree := parse(t, "loop { break 5; }")
	stmt := tree.Get(tree.Get(tree.Root).Children[0])
	loop := tree.Get(stmt.A)
	require.Equal(t, ast.KindLoop, loop.Kind)
	body := tree.Get(loop.A)
	brk := tree.Get(body.Children[0])
	breakExpr := tree.Get(brk.A)
	require.Equal(t, ast.KindBreak, breakExpr.Kind)
	require.NotEqual(t, ast.InvalidId, breakExpr.A)
}

func TestParseCompoundAssignment(t *testing.T) {
	tree := parse(t, "x += 1;")
	stmt := tree.Get(tree.Get(tree.Root).Children[0])
	assign := tree.Get(stmt.A)
	require.Equal(t, ast.KindCompoundAssign, assign.Kind)
	require.Equal(t, ast.OpAdd, assign.BinOp)
}

func TestParseListLiteral(t *testing.T) {
	tree := parse(t, "[1, 2, 3];")
	stmt := tree.Get(tree.Get(tree.Root).Children[0])
	list := tree.Get(stmt.A)
	require.Equal(t, ast.KindListLit, list.Kind)
	require.Len(t, list.Children, 3)
}

func TestParseFnItemWithParamsAndReturnType(t *testing.T) {
	tree := parse(t, "fn add(a: int, b: int) -> int { a + b }")
	fn := tree.Get(tree.Get(tree.Root).Children[0])
	require.Equal(t, ast.KindFnItem, fn.Kind)
	require.Equal(t, "add", fn.Text)
	require.Equal(t, "int", fn.TypeName)
	require.Len(t, fn.Children, 2)
}

func TestParseClosureExpression(t *testing.T) {
	tree := parse(t, "let f = fn(x: int) -> int { x };")
	let := tree.Get(tree.Get(tree.Root).Children[0])
	closure := tree.Get(let.A)
	require.Equal(t, ast.KindClosure, closure.Kind)
	require.Len(t, closure.Children, 1)
}

func TestParseUseItemJoinsPath(t *testing.T) {
	tree := parse(t, "use foo::bar::baz;")
	use := tree.Get(tree.Get(tree.Root).Children[0])
	require.Equal(t, ast.KindUseItem, use.Kind)
	require.Equal(t, "foo::bar::baz", use.Text)
}

func TestParseNestedListTypeAnnotation(t *testing.T) {
	tree := parse(t, "let xs: [[int]] = [];")
	let := tree.Get(tree.Get(tree.Root).Children[0])
	require.Equal(t, "[[int]]", let.TypeName)
}

func TestParseMissingSemicolonRecordsErrorAndResyncs(t *testing.T) {
	tree, errs := parser.Parse(token.FileId(0), []byte("let x = 1\nlet y = 2;"))
	require.NotEmpty(t, errs)
	prog := tree.Get(tree.Root)
	require.GreaterOrEqual(t, len(prog.Children), 1)
}

func TestParseUnexpectedTokenRecordsErrorAndDoesNotHang(t *testing.T) {
	_, errs := parser.Parse(token.FileId(0), []byte("let x = ;;; )))"))
	require.NotEmpty(t, errs)
}
