package pagerender

import (
	"context"
	"runtime"
	"sync"
)

// workerPool runs the parallel rasterization phase: a fixed set of
// goroutines, one per render task, with no coordination between workers
// beyond the final join.
//
// The pool is sized once per operation and never resized mid-run. There is
// no work queue and no stealing: assignment was fully decided by the
// partitioner, and every worker touches only its own pages and its own
// pixel buffers. The only shared state workers read — page handles and the
// resource cache — was frozen at the end of pre-load, which is what makes
// output independent of the worker count.
type workerPool struct {
	workers int
}

// newWorkerPool creates a pool with the specified worker count.
// If workers <= 0, GOMAXPROCS is used.
func newWorkerPool(workers int) *workerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &workerPool{workers: workers}
}

// run executes one task per worker goroutine and blocks until all workers
// reach the join barrier.
//
// fn is called once per page. A non-nil return from fn is fatal for the
// whole operation: the first such error is kept, every worker stops at its
// next page boundary, and run returns the error after the join. Per-page
// failures are not fn errors — they are recorded in the result set by fn
// itself and rendering continues.
func (p *workerPool) run(ctx context.Context, tasks []RenderTask, fn func(slot, page int) error) error {
	if len(tasks) == 0 {
		return ctx.Err()
	}

	stopCtx, stop := context.WithCancel(ctx)
	defer stop()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		fatalErr error
	)
	fail := func(err error) {
		once.Do(func() {
			fatalErr = err
			stop()
		})
	}

	wg.Add(len(tasks))
	for _, task := range tasks {
		go func(t RenderTask) {
			defer wg.Done()
			for _, r := range t.Ranges {
				for page := r.Start; page < r.End; page++ {
					if stopCtx.Err() != nil {
						return
					}
					if err := fn(t.Slot, page); err != nil {
						fail(err)
						return
					}
				}
			}
		}(task)
	}
	wg.Wait()

	if fatalErr != nil {
		return fatalErr
	}
	return ctx.Err()
}
