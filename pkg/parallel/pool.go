// Package parallel provides the bounded worker pool that realizes
// spec.md §5(a)'s FFR-level task parallelism: distinct FFRs (or MFFCs)
// share no mutable state and may be solved concurrently, each by its own
// Dtpg instance and SAT solver. Adapted from the retrieval pack's
// gokando WorkerPool (internal/parallel/pool.go), trimmed to a static
// worker count — this module's task count (one per FFR/MFFC) is known
// up front, so gokando's dynamic scale-up/scale-down machinery has
// nothing to key off and is left out; see DESIGN.md.
package parallel

import (
	"runtime"
	"sync"
)

// Pool runs a fixed number of worker goroutines draining one shared task
// queue, the same fan-in/fan-out shape as gokando's WorkerPool without
// its dynamic-resize bookkeeping.
type Pool struct {
	tasks chan func()
	wg    sync.WaitGroup
}

// New creates a Pool with n worker goroutines. n <= 0 defaults to
// runtime.NumCPU(), matching gokando's NewWorkerPool default.
func New(n int) *Pool {
	if n <= 0 {
		n = runtime.NumCPU()
	}
	p := &Pool{tasks: make(chan func())}
	p.wg.Add(n)
	for i := 0; i < n; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		task()
	}
}

// Submit enqueues task for execution by some worker; it blocks until a
// worker accepts it, which bounds how far the submitter can race ahead
// of the pool (gokando's "backpressure handling").
func (p *Pool) Submit(task func()) {
	p.tasks <- task
}

// Close stops accepting new tasks and waits for every in-flight task to
// finish. A Pool is not reusable after Close.
func (p *Pool) Close() {
	close(p.tasks)
	p.wg.Wait()
}

// Run submits every item in tasks and waits for all of them to
// complete, the bounded-fan-out convenience Dtpg's per-FFR/MFFC
// concurrent solving uses: each thunk owns its own Dtpg instance and SAT
// solver, and writes its result under the caller's mutex.
func Run(workers int, tasks []func()) {
	if len(tasks) == 0 {
		return
	}
	p := New(workers)
	var wg sync.WaitGroup
	wg.Add(len(tasks))
	for _, t := range tasks {
		t := t
		p.Submit(func() {
			defer wg.Done()
			t()
		})
	}
	wg.Wait()
	p.Close()
}
