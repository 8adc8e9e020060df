package object_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"dust/internal/bytecode"
	"dust/internal/object"
)

func TestAllocGetRoundTripsValue(t *testing.T) {
	p := object.NewPool()
	ref := p.Alloc(1, object.Value{Kind: object.KindString, Str: "hello"})
	require.Equal(t, "hello", p.Get(ref).Str)
}

func TestReleaseFreesSlotForReuse(t *testing.T) {
	p := object.NewPool()
	ref := p.Alloc(1, object.Value{Kind: object.KindString, Str: "a"})
	p.Release(ref)
	ref2 := p.Alloc(1, object.Value{Kind: object.KindString, Str: "b"})
	require.Equal(t, ref, ref2)
	require.Equal(t, "b", p.Get(ref2).Str)
}

func TestRetainKeepsValueAliveAcrossOneRelease(t *testing.T) {
	p := object.NewPool()
	ref := p.Alloc(1, object.Value{Kind: object.KindString, Str: "kept"})
	p.Retain(ref)
	p.Release(ref) // refs now 1, not freed
	require.Equal(t, "kept", p.Get(ref).Str)
	p.Release(ref) // refs now 0, freed
}

func TestEscapeShardZeroHandlesThreadHintLessThanOne(t *testing.T) {
	p := object.NewPool()
	ref := p.Alloc(0, object.Value{Kind: object.KindString, Str: "shared"})
	require.Equal(t, "shared", p.Get(ref).Str)
	require.Equal(t, ref, p.Escape(ref))
}

func TestListElementsCarryBitsAndElemTag(t *testing.T) {
	p := object.NewPool()
	ref := p.Alloc(1, object.Value{
		Kind:    object.KindList,
		ElemTag: bytecode.TypeInteger,
		List:    []object.Elem{{Bits: 10}, {Bits: 20}, {Bits: 30}},
	})
	v := p.Get(ref)
	require.Equal(t, bytecode.TypeInteger, v.ElemTag)
	require.Len(t, v.List, 3)
	require.Equal(t, uint64(20), v.List[1].Bits)
}

func TestConcurrentAllocDoesNotRace(t *testing.T) {
	p := object.NewPool()
	var wg sync.WaitGroup
	for i := 1; i <= 8; i++ {
		wg.Add(1)
		go func(hint int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				ref := p.Alloc(hint, object.Value{Kind: object.KindString, Str: "x"})
				p.Release(ref)
			}
		}(i)
	}
	wg.Wait()
}
