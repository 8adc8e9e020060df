package vm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSaturatingAddI64ClampsOnOverflow(t *testing.T) {
	require.Equal(t, int64(math.MaxInt64), saturatingAddI64(math.MaxInt64, 1))
	require.Equal(t, int64(math.MinInt64), saturatingAddI64(math.MinInt64, -1))
	require.Equal(t, int64(3), saturatingAddI64(1, 2))
}

func TestSaturatingSubI64ClampsOnOverflow(t *testing.T) {
	require.Equal(t, int64(math.MinInt64), saturatingSubI64(math.MinInt64, 1))
	require.Equal(t, int64(math.MaxInt64), saturatingSubI64(math.MaxInt64, -1))
	require.Equal(t, int64(-1), saturatingSubI64(1, 2))
}

func TestSaturatingMulI64ClampsOnOverflow(t *testing.T) {
	require.Equal(t, int64(math.MaxInt64), saturatingMulI64(math.MaxInt64, 2))
	require.Equal(t, int64(math.MinInt64), saturatingMulI64(math.MinInt64, 2))
	require.Equal(t, int64(0), saturatingMulI64(0, math.MaxInt64))
	require.Equal(t, int64(6), saturatingMulI64(2, 3))
	// MinInt64/-1 wraps back to MinInt64 in two's complement, so a naive
	// p/b != a overflow check misses this case.
	require.Equal(t, int64(math.MaxInt64), saturatingMulI64(math.MinInt64, -1))
	require.Equal(t, int64(-6), saturatingMulI64(2, -3))
}
