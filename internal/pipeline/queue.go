package pipeline

import (
	"context"
	"sync"
)

// Queue is the async boundary between pipeline steps. Submit is
// fire-and-forget: it returns immediately and the job runs at least once on
// some worker. The driver relies on nothing stronger — per-project ordering
// comes from only submitting step N+1 after step N finished.
type Queue interface {
	Submit(job func(ctx context.Context))
}

// LocalQueue runs jobs on an in-process worker pool.
type LocalQueue struct {
	jobs    chan func(ctx context.Context)
	pending sync.WaitGroup
	stop    context.CancelFunc
	done    sync.WaitGroup
}

// NewLocalQueue starts a pool with the given number of workers.
func NewLocalQueue(workers int) *LocalQueue {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &LocalQueue{
		jobs: make(chan func(ctx context.Context), 64),
		stop: cancel,
	}
	q.done.Add(workers)
	for i := 0; i < workers; i++ {
		go q.worker(ctx)
	}
	return q
}

func (q *LocalQueue) worker(ctx context.Context) {
	defer q.done.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-q.jobs:
			job(ctx)
			q.pending.Done()
		}
	}
}

func (q *LocalQueue) Submit(job func(ctx context.Context)) {
	q.pending.Add(1)
	q.jobs <- job
}

// Drain blocks until every submitted job, including jobs submitted by
// running jobs, has finished.
func (q *LocalQueue) Drain() {
	q.pending.Wait()
}

// Close stops the workers. Pending jobs that have not started are dropped.
func (q *LocalQueue) Close() {
	q.stop()
	q.done.Wait()
}
