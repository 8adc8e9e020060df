package compiler

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"dust/internal/ast"
)

func TestSaturatingAddClampsOnOverflow(t *testing.T) {
	require.Equal(t, int64(math.MaxInt64), saturatingAdd(math.MaxInt64, 1))
	require.Equal(t, int64(math.MinInt64), saturatingAdd(math.MinInt64, -1))
	require.Equal(t, int64(3), saturatingAdd(1, 2))
}

func TestSaturatingSubClampsOnOverflow(t *testing.T) {
	require.Equal(t, int64(math.MinInt64), saturatingSub(math.MinInt64, 1))
	require.Equal(t, int64(math.MaxInt64), saturatingSub(math.MaxInt64, -1))
	require.Equal(t, int64(-1), saturatingSub(1, 2))
}

func TestSaturatingMulClampsOnOverflow(t *testing.T) {
	require.Equal(t, int64(math.MaxInt64), saturatingMul(math.MaxInt64, 2))
	require.Equal(t, int64(math.MinInt64), saturatingMul(math.MinInt64, 2))
	require.Equal(t, int64(0), saturatingMul(0, math.MaxInt64))
	require.Equal(t, int64(6), saturatingMul(2, 3))
	// MinInt64/-1 wraps back to MinInt64 in two's complement, so a naive
	// p/b != a overflow check misses this case.
	require.Equal(t, int64(math.MaxInt64), saturatingMul(math.MinInt64, -1))
	require.Equal(t, int64(-6), saturatingMul(2, -3))
}

func TestFoldArithDivideByZeroDefersToRuntime(t *testing.T) {
	_, ok := foldArith(ast.OpDiv, abstractConstant{isInt: true, i: 1}, abstractConstant{isInt: true, i: 0})
	require.False(t, ok)
}
