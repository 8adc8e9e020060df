package threadpool_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dust/internal/threadpool"
)

func TestSpawnRunsTaskOnAWorker(t *testing.T) {
	p := threadpool.New(2, 8)
	defer p.Close()

	done := make(chan struct{})
	p.Spawn(func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("spawned task never ran")
	}
}

func TestSpawnDoesNotBlockCaller(t *testing.T) {
	p := threadpool.New(1, 4)
	defer p.Close()

	block := make(chan struct{})
	p.Spawn(func() { <-block })

	finished := make(chan struct{})
	go func() {
		p.Spawn(func() {})
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("Spawn blocked the caller while a worker was busy")
	}
	close(block)
}

func TestCancelStopsNewWorkFromRunning(t *testing.T) {
	p := threadpool.New(1, 8)
	defer p.Close()
	p.Cancel()
	require.True(t, p.Cancelled())

	var ran atomic.Bool
	p.Spawn(func() { ran.Store(true) })
	time.Sleep(50 * time.Millisecond)
	require.False(t, ran.Load())
}

func TestCloseWaitsForInFlightWorkers(t *testing.T) {
	p := threadpool.New(2, 8)
	var n atomic.Int32
	for i := 0; i < 10; i++ {
		p.Spawn(func() { n.Add(1) })
	}
	p.Close()
	require.Equal(t, int32(10), n.Load())
}
