package performance

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestWorkerPoolRunsAllTasks(t *testing.T) {
	pool := NewWorkerPool(context.Background(), 3)

	var count atomic.Int32
	for i := 0; i < 20; i++ {
		pool.Go(func(ctx context.Context) error {
			count.Add(1)
			return nil
		})
	}

	if err := pool.Wait(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if count.Load() != 20 {
		t.Errorf("Expected 20 tasks to run, got %d", count.Load())
	}
	stats := pool.Stats()
	if stats.TasksTotal != 20 || stats.TasksDone != 20 || stats.TasksFailed != 0 {
		t.Errorf("Unexpected stats %+v", stats)
	}
}

func TestWorkerPoolBoundsConcurrency(t *testing.T) {
	pool := NewWorkerPool(context.Background(), 2)

	var active, peak atomic.Int32
	for i := 0; i < 10; i++ {
		pool.Go(func(ctx context.Context) error {
			n := active.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			active.Add(-1)
			return nil
		})
	}
	if err := pool.Wait(); err != nil {
		t.Fatal(err)
	}
	if peak.Load() > 2 {
		t.Errorf("Expected at most 2 concurrent tasks, saw %d", peak.Load())
	}
}

func TestWorkerPoolFirstErrorCancels(t *testing.T) {
	pool := NewWorkerPool(context.Background(), 1)
	boom := errors.New("boom")

	pool.Go(func(ctx context.Context) error { return boom })
	pool.Go(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	if err := pool.Wait(); !errors.Is(err, boom) {
		t.Fatalf("Expected first error, got %v", err)
	}
	if stats := pool.Stats(); stats.TasksFailed == 0 {
		t.Errorf("Expected failed tasks to be counted, got %+v", stats)
	}
}
