package cell_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"dust/internal/cell"
)

func TestWriteThenReadRoundTrips(t *testing.T) {
	tbl := cell.NewTable(4)
	tbl.Write(2, cell.Value{Bits: 42})
	require.Equal(t, cell.Value{Bits: 42}, tbl.Read(2))
}

func TestZeroValueCellReadsAsEmpty(t *testing.T) {
	tbl := cell.NewTable(1)
	require.Equal(t, cell.Value{}, tbl.Read(0))
}

func TestLenReportsTableSize(t *testing.T) {
	tbl := cell.NewTable(64)
	require.Equal(t, 64, tbl.Len())
}

func TestConcurrentReadersAndWriterDoNotRace(t *testing.T) {
	tbl := cell.NewTable(1)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				tbl.Write(0, cell.Value{Bits: uint64(n)})
				_ = tbl.Read(0)
			}
		}(i)
	}
	wg.Wait()
}
