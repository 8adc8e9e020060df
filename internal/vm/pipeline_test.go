package vm_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"dust/internal/compiler"
	"dust/internal/parser"
	"dust/internal/resolve"
	"dust/internal/stdlib"
	"dust/internal/token"
	"dust/internal/vm"
)

// runSource lexes, parses, resolves, and compiles src, then runs it on a
// fresh Machine, failing the test on any pipeline error. These are the
// concrete scenarios of spec.md §8: arithmetic, binding/shadowing,
// recursion, and thread spawning, each transcribed as a Dust snippet.
func runSource(t *testing.T, src string) vm.RunResult {
	t.Helper()
	tree, errs := parser.Parse(token.FileId(0), []byte(src))
	require.Empty(t, errs, "parse errors")

	res := resolve.Resolve(tree)
	require.Empty(t, res.Errors, "resolve errors")

	prog, cerrs := compiler.Compile(tree, res)
	require.Empty(t, cerrs, "compile errors")

	machine := vm.NewMachine(prog, 16, 2, stdlib.Registry())
	defer machine.Threads.Close()

	result, err := machine.Run()
	require.NoError(t, err)
	return result
}

func TestArithmeticExpression(t *testing.T) {
	result := runSource(t, "1 + 2 * 3")
	require.True(t, result.HasValue)
	require.Equal(t, int64(7), vm.AsInt(result.Value))
}

func TestBindingAndUse(t *testing.T) {
	result := runSource(t, "let foo = 21; let bar = 21; foo + bar")
	require.True(t, result.HasValue)
	require.Equal(t, int64(42), vm.AsInt(result.Value))
}

func TestWhileLoopAccumulates(t *testing.T) {
	result := runSource(t, "let mut x = 0; while x < 5 { x = x + 1 }; x")
	require.True(t, result.HasValue)
	require.Equal(t, int64(5), vm.AsInt(result.Value))
}

func TestBlockShadowing(t *testing.T) {
	result := runSource(t, "let x = 42; { let x = 43; x }")
	require.True(t, result.HasValue)
	require.Equal(t, int64(43), vm.AsInt(result.Value))
}

func TestOuterBindingUnaffectedByShadow(t *testing.T) {
	result := runSource(t, "let x = 42; { let x = 43; } x")
	require.True(t, result.HasValue)
	require.Equal(t, int64(42), vm.AsInt(result.Value))
}

func TestRecursiveFibonacci(t *testing.T) {
	src := `
fn fib(n: int) -> int {
	if n <= 1 { n } else { fib(n - 1) + fib(n - 2) }
}
fib(10)
`
	result := runSource(t, src)
	require.True(t, result.HasValue)
	require.Equal(t, int64(55), vm.AsInt(result.Value))
}

func TestIfElseJoinsBranchValues(t *testing.T) {
	result := runSource(t, "if true { 1 } else { 2 }")
	require.True(t, result.HasValue)
	require.Equal(t, int64(1), vm.AsInt(result.Value))
}

func TestShortCircuitAndSkipsRightSide(t *testing.T) {
	result := runSource(t, "let mut calls = 0; while false && calls < 10 { calls = calls + 1 }; calls")
	require.True(t, result.HasValue)
	require.Equal(t, int64(0), vm.AsInt(result.Value))
}

func TestShortCircuitOrSkipsRightSide(t *testing.T) {
	result := runSource(t, "let mut x = 1; if true || (x == 2) { x } else { 0 }")
	require.True(t, result.HasValue)
	require.Equal(t, int64(1), vm.AsInt(result.Value))
}

func TestCompoundAssign(t *testing.T) {
	result := runSource(t, "let mut x = 10; x += 5; x -= 2; x")
	require.True(t, result.HasValue)
	require.Equal(t, int64(13), vm.AsInt(result.Value))
}

func TestLoopWithBreakValue(t *testing.T) {
	result := runSource(t, "let mut i = 0; loop { i = i + 1; if i == 3 { break i; } }")
	require.True(t, result.HasValue)
	require.Equal(t, int64(3), vm.AsInt(result.Value))
}

func TestStringEquality(t *testing.T) {
	result := runSource(t, `let a = "hi"; let b = "hi"; a == b`)
	require.True(t, result.HasValue)
	require.True(t, vm.AsBool(result.Value))
}

func TestListIndexing(t *testing.T) {
	result := runSource(t, "let xs = [10, 20, 30]; xs[1]")
	require.True(t, result.HasValue)
	require.Equal(t, int64(20), vm.AsInt(result.Value))
}

func TestDivideByZeroIsFatal(t *testing.T) {
	tree, errs := parser.Parse(token.FileId(0), []byte("1 / 0"))
	require.Empty(t, errs)
	res := resolve.Resolve(tree)
	require.Empty(t, res.Errors)
	prog, cerrs := compiler.Compile(tree, res)
	require.Empty(t, cerrs)

	machine := vm.NewMachine(prog, 4, 1, stdlib.Registry())
	defer machine.Threads.Close()
	_, err := machine.Run()
	require.Error(t, err)
}

func TestSpawnCompletesWithoutDeadlock(t *testing.T) {
	src := `
let mut i = 0;
while i < 50 {
	i += 1;
	_spawn(fn() { _random_int(0, 10); });
}
`
	result := runSource(t, src)
	require.False(t, result.HasValue)
}
