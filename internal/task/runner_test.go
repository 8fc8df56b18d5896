package task

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunnerExecutesSubmittedWork(t *testing.T) {
	t.Parallel()

	runner := NewRunner(RunnerConfig{QueueSize: 8, WorkerCount: 2}, nil)

	var count atomic.Int32
	done := make(chan struct{})

	runner.Submit("increment", func(ctx context.Context) error {
		count.Add(1)
		close(done)
		return nil
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("submitted task never ran")
	}

	runner.Stop()
	assert.Equal(t, int32(1), count.Load())
}

func TestRunnerStopWaitsForInFlightWork(t *testing.T) {
	t.Parallel()

	runner := NewRunner(RunnerConfig{QueueSize: 8, WorkerCount: 1}, nil)

	var finished atomic.Bool
	started := make(chan struct{})

	runner.Submit("slow", func(ctx context.Context) error {
		close(started)
		time.Sleep(50 * time.Millisecond)
		finished.Store(true)
		return nil
	})

	<-started
	runner.Stop()

	assert.True(t, finished.Load(), "Stop must wait for in-flight work")
}

func TestRunnerDropsWhenQueueFull(t *testing.T) {
	t.Parallel()

	runner := NewRunner(RunnerConfig{QueueSize: 1, WorkerCount: 1}, nil)
	defer runner.Stop()

	// Pin the single worker so queued work backs up.
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	runner.Submit("blocker", func(ctx context.Context) error {
		defer wg.Done()
		<-release
		return nil
	})

	var ran atomic.Int32
	for i := 0; i < 10; i++ {
		runner.Submit("burst", func(ctx context.Context) error {
			ran.Add(1)
			return nil
		})
	}

	close(release)
	wg.Wait()
	runner.Stop()

	// The queue held at most one burst job; the rest were dropped, and
	// dropping never blocked or panicked.
	assert.LessOrEqual(t, ran.Load(), int32(1))
}

func TestRunnerSubmitDuringStopIsSafe(t *testing.T) {
	t.Parallel()

	// Submits racing Stop must drop their work, never panic on the closed
	// queue.
	runner := NewRunner(RunnerConfig{QueueSize: 4, WorkerCount: 2}, nil)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for j := 0; j < 2000; j++ {
				runner.Submit("racer", func(ctx context.Context) error { return nil })
			}
		}()
	}

	close(start)
	runner.Stop()
	wg.Wait()
}

func TestRunnerSubmitAfterStopIsSafe(t *testing.T) {
	t.Parallel()

	runner := NewRunner(RunnerConfig{QueueSize: 8, WorkerCount: 1}, nil)
	runner.Stop()

	require.NotPanics(t, func() {
		runner.Submit("late", func(ctx context.Context) error { return nil })
	})
}

func TestRunnerJobTimeoutBoundsContext(t *testing.T) {
	t.Parallel()

	runner := NewRunner(RunnerConfig{QueueSize: 1, WorkerCount: 1, JobTimeout: 20 * time.Millisecond}, nil)

	deadlineSeen := make(chan bool, 1)
	runner.Submit("deadline-check", func(ctx context.Context) error {
		deadline, ok := ctx.Deadline()
		deadlineSeen <- ok && time.Until(deadline) <= 20*time.Millisecond
		return nil
	})

	select {
	case ok := <-deadlineSeen:
		assert.True(t, ok, "job context must carry the configured timeout")
	case <-time.After(2 * time.Second):
		t.Fatal("job never ran")
	}

	runner.Stop()
}
