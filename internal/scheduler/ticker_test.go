package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTickerRunsUntilCancelled(t *testing.T) {
	var runs atomic.Int64
	tk := NewTicker("test", 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		tk.Run(ctx, func(context.Context) { runs.Add(1) })
		close(done)
	}()

	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ticker did not stop after cancel")
	}
}

func TestTickerSkipsOverlappingRuns(t *testing.T) {
	release := make(chan struct{})
	var started atomic.Int64
	tk := NewTicker("slow", 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tk.Run(ctx, func(context.Context) {
		started.Add(1)
		<-release
	})

	// The first run blocks; later ticks must be dropped, not queued.
	assert.Eventually(t, func() bool { return tk.Skipped() >= 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(1), started.Load())
	close(release)
}

func TestTickerRejectsInvalidInterval(t *testing.T) {
	tk := NewTicker("bad", 0)
	done := make(chan struct{})
	go func() {
		tk.Run(context.Background(), func(context.Context) {})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ticker with invalid interval should return immediately")
	}
}
