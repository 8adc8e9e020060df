package stdlib

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestXorshiftNextIsAlwaysNonNegative(t *testing.T) {
	x := newXorshiftState()
	for i := 0; i < 1000; i++ {
		require.GreaterOrEqual(t, x.next(), int64(0))
	}
}

func TestXorshiftNextVariesAcrossCalls(t *testing.T) {
	x := &xorshiftState{state: 12345}
	first := x.next()
	second := x.next()
	require.NotEqual(t, first, second)
}

func TestXorshiftIsDeterministicForAFixedSeed(t *testing.T) {
	a := &xorshiftState{state: 777}
	b := &xorshiftState{state: 777}
	for i := 0; i < 10; i++ {
		require.Equal(t, a.next(), b.next())
	}
}
