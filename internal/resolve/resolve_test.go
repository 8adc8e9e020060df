package resolve_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"dust/internal/dusterr"
	"dust/internal/parser"
	"dust/internal/resolve"
	"dust/internal/token"
	"dust/internal/types"
)

func resolveSrc(t *testing.T, src string) *resolve.Result {
	t.Helper()
	tree, errs := parser.Parse(token.FileId(0), []byte(src))
	require.Empty(t, errs)
	return resolve.Resolve(tree)
}

func TestResolveInfersLiteralTypes(t *testing.T) {
	res := resolveSrc(t, "1 + 2;")
	require.Empty(t, res.Errors)
	stmt := res.Tree.Get(res.Tree.Get(res.Tree.Root).Children[0])
	require.True(t, types.Equal(res.ExprTypes[stmt.A], types.IntT))
}

func TestResolveBindsIdentifierUseToDeclaration(t *testing.T) {
	res := resolveSrc(t, "let x = 5; x;")
	require.Empty(t, res.Errors)
	prog := res.Tree.Get(res.Tree.Root)
	exprStmt := res.Tree.Get(prog.Children[1])
	declId, ok := res.Uses[exprStmt.A]
	require.True(t, ok)
	require.Equal(t, "x", res.Decls[declId].Name)
}

func TestResolveUnknownIdentifierIsAnError(t *testing.T) {
	res := resolveSrc(t, "y;")
	require.NotEmpty(t, res.Errors)
}

func TestResolveShadowingInNestedScopeDoesNotCollide(t *testing.T) {
	res := resolveSrc(t, "let x = 1; { let x = 2; x; } x;")
	require.Empty(t, res.Errors)
}

func TestResolveDuplicateBindingInSameScopeIsAnError(t *testing.T) {
	res := resolveSrc(t, "let x = 1; let x = 2;")
	require.NotEmpty(t, res.Errors)
}

func TestResolveAssignToImmutableBindingIsAnError(t *testing.T) {
	res := resolveSrc(t, "let x = 1; x = 2;")
	require.NotEmpty(t, res.Errors)
}

func TestResolveAssignToMutableBindingIsFine(t *testing.T) {
	res := resolveSrc(t, "let mut x = 1; x = 2;")
	require.Empty(t, res.Errors)
}

func TestResolveFunctionCallArityMismatchIsAnError(t *testing.T) {
	res := resolveSrc(t, "fn add(a: int, b: int) -> int { a + b } add(1);")
	require.NotEmpty(t, res.Errors)
}

func TestResolveFunctionCallTypeMismatchIsAnError(t *testing.T) {
	res := resolveSrc(t, `fn id(a: int) -> int { a } id("x");`)
	require.NotEmpty(t, res.Errors)
}

func TestResolveCallingNonFunctionIsAnError(t *testing.T) {
	res := resolveSrc(t, "let x = 1; x();")
	require.NotEmpty(t, res.Errors)
}

func TestResolveSelfRecursiveCallMarksIsRecursive(t *testing.T) {
	res := resolveSrc(t, "fn fib(n: int) -> int { fib(n) }")
	require.Empty(t, res.Errors)
	require.Len(t, res.Functions, 2) // implicit main + fib
	require.True(t, res.Functions[1].IsRecursive)
}

func TestResolveListLiteralElementTypeMismatchIsAnError(t *testing.T) {
	res := resolveSrc(t, `[1, "two"];`)
	require.NotEmpty(t, res.Errors)
}

func TestResolveIndexingNonListIsAnError(t *testing.T) {
	res := resolveSrc(t, "let x = 1; x[0];")
	require.NotEmpty(t, res.Errors)
}

func TestResolveIfElseBranchTypeMismatchIsAnError(t *testing.T) {
	res := resolveSrc(t, `if true { 1 } else { "x" };`)
	require.NotEmpty(t, res.Errors)
}

func TestResolveNativeIdentifierResolvesWithoutDeclaration(t *testing.T) {
	res := resolveSrc(t, `_write_line("hi");`)
	require.Empty(t, res.Errors)
}

func TestResolveClosureCapturingEnclosingLocalIsAnError(t *testing.T) {
	res := resolveSrc(t, "let x = 1; let f = fn() { x };")
	require.NotEmpty(t, res.Errors)
	require.ErrorIs(t, res.Errors[0], dusterr.ErrCaptureNotSupported)
}

func TestResolveNestedFnCapturingEnclosingLocalIsAnError(t *testing.T) {
	res := resolveSrc(t, `
		fn outer() -> int {
			let x = 1;
			fn inner() -> int { x }
			inner()
		}
	`)
	require.NotEmpty(t, res.Errors)
	require.ErrorIs(t, res.Errors[0], dusterr.ErrCaptureNotSupported)
}

func TestResolveClosureCallingEnclosingNamedFnIsNotACapture(t *testing.T) {
	res := resolveSrc(t, `
		fn add(a: int, b: int) -> int { a + b }
		let f = fn() { add(1, 2) };
	`)
	require.Empty(t, res.Errors)
}

func TestResolveSelfRecursionThroughNestedScopeIsNotACapture(t *testing.T) {
	res := resolveSrc(t, "fn fib(n: int) -> int { { fib(n) } }")
	require.Empty(t, res.Errors)
}

func TestResolveClosureParamShadowingOuterLocalIsNotACapture(t *testing.T) {
	res := resolveSrc(t, "let x = 1; let f = fn(x: int) { x };")
	require.Empty(t, res.Errors)
}

func TestResolveFieldAccessIsUnimplemented(t *testing.T) {
	res := resolveSrc(t, "let x = 1; x.y;")
	require.NotEmpty(t, res.Errors)
	require.ErrorIs(t, res.Errors[len(res.Errors)-1], dusterr.ErrUnimplemented)
}
