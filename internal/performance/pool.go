// Package performance provides bounded concurrency for batch network work.
package performance

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
)

// WorkerPool runs tasks on at most a fixed number of goroutines. The first
// task error cancels the pool context and is returned from Wait.
type WorkerPool struct {
	workers int
	sem     chan struct{}
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc

	errOnce sync.Once
	err     error

	tasksTotal atomic.Uint64
	tasksDone  atomic.Uint64
	tasksFail  atomic.Uint64
}

// NewWorkerPool creates a pool bound to ctx. If workers is 0, it defaults
// to runtime.NumCPU().
func NewWorkerPool(ctx context.Context, workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	ctx, cancel := context.WithCancel(ctx)
	return &WorkerPool{
		workers: workers,
		sem:     make(chan struct{}, workers),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Go schedules task, blocking while all workers are busy. Tasks submitted
// after cancellation are not run.
func (p *WorkerPool) Go(task func(ctx context.Context) error) {
	p.tasksTotal.Add(1)
	select {
	case p.sem <- struct{}{}:
	case <-p.ctx.Done():
		p.fail(p.ctx.Err())
		return
	}

	p.wg.Add(1)
	go func() {
		defer func() {
			<-p.sem
			p.wg.Done()
		}()
		if err := task(p.ctx); err != nil {
			p.fail(err)
			return
		}
		p.tasksDone.Add(1)
	}()
}

func (p *WorkerPool) fail(err error) {
	p.tasksFail.Add(1)
	p.errOnce.Do(func() {
		p.err = err
		p.cancel()
	})
}

// Wait blocks until every scheduled task returned and reports the first
// error.
func (p *WorkerPool) Wait() error {
	p.wg.Wait()
	p.cancel()
	return p.err
}

// Stats returns pool statistics.
func (p *WorkerPool) Stats() PoolStats {
	return PoolStats{
		Workers:     p.workers,
		TasksTotal:  p.tasksTotal.Load(),
		TasksDone:   p.tasksDone.Load(),
		TasksFailed: p.tasksFail.Load(),
	}
}

// PoolStats contains worker pool statistics.
type PoolStats struct {
	Workers     int
	TasksTotal  uint64
	TasksDone   uint64
	TasksFailed uint64
}
