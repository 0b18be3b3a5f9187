package indexmgr

import "sync"

// WorkerPool runs submitted build tasks on a small, fixed set of background
// goroutines, so that bulk index rebuilds don't occupy the caller's task.
// Each task gets an immutable snapshot of whatever it needs to build from —
// the pool shares no mutable state between caller and worker beyond the
// channel handoff.
type WorkerPool struct {
	tasks chan func()
	done  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once
}

// NewWorkerPool starts a pool of n background workers. n < 1 is treated as 1.
func NewWorkerPool(n int) *WorkerPool {
	if n < 1 {
		n = 1
	}
	p := &WorkerPool{
		tasks: make(chan func(), n*4),
		done:  make(chan struct{}),
	}
	p.wg.Add(n)
	for i := 0; i < n; i++ {
		go p.loop()
	}
	return p
}

func (p *WorkerPool) loop() {
	defer p.wg.Done()
	for {
		select {
		case task, ok := <-p.tasks:
			if !ok {
				return
			}
			task()
		case <-p.done:
			return
		}
	}
}

// Run submits fn to a worker and blocks until it completes, returning fn's
// error. This gives the caller synchronous semantics ("ensureIndex returns
// once the index is ready") while still moving the scan and encode work off
// the calling goroutine.
func (p *WorkerPool) Run(fn func() error) error {
	resultCh := make(chan error, 1)
	select {
	case p.tasks <- func() { resultCh <- fn() }:
	case <-p.done:
		return ErrClosed
	}
	select {
	case err := <-resultCh:
		return err
	case <-p.done:
		return ErrClosed
	}
}

// Close stops accepting new work and waits for in-flight tasks to finish.
func (p *WorkerPool) Close() {
	p.once.Do(func() {
		close(p.done)
		p.wg.Wait()
	})
}
