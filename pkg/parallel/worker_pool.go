// Package parallel runs batch work, such as validating every level in a
// source, on a bounded set of goroutines.
package parallel

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/dd0wney/infrasim/pkg/logging"
)

var (
	// ErrTooManyWorkers is returned when the worker count exceeds MaxWorkers.
	ErrTooManyWorkers = errors.New("worker count exceeds maximum")
	// ErrPoolClosed is returned once the pool stops accepting tasks.
	ErrPoolClosed = errors.New("worker pool closed")
)

// MaxWorkers bounds the pool size so the queue buffer cannot overflow.
const MaxWorkers = math.MaxInt / 2

// WorkerPool runs submitted tasks on a fixed number of goroutines.
type WorkerPool struct {
	workers   int
	taskQueue chan func()
	wg        sync.WaitGroup
	once      sync.Once
	// mu keeps Close from closing taskQueue under a pending send
	mu     sync.RWMutex
	closed bool
	logger logging.Logger

	completed atomic.Uint64
	panics    atomic.Uint64
}

// Stats counts finished tasks.
type Stats struct {
	Completed uint64
	Panics    uint64
}

// NewWorkerPool creates a pool of workers goroutines; zero or fewer means one.
func NewWorkerPool(workers int) (*WorkerPool, error) {
	return NewWorkerPoolWithLogger(workers, nil)
}

// NewWorkerPoolWithLogger is NewWorkerPool with a logger for recovered
// task panics.
func NewWorkerPoolWithLogger(workers int, logger logging.Logger) (*WorkerPool, error) {
	if workers <= 0 {
		workers = 1
	}
	if workers > MaxWorkers {
		return nil, fmt.Errorf("%w: %d exceeds %d", ErrTooManyWorkers, workers, MaxWorkers)
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	pool := &WorkerPool{
		workers:   workers,
		taskQueue: make(chan func(), workers*2),
		logger:    logger.With(logging.Component("worker_pool")),
	}
	for i := 0; i < workers; i++ {
		pool.wg.Add(1)
		go pool.worker()
	}
	return pool, nil
}

// Workers returns the number of worker goroutines.
func (wp *WorkerPool) Workers() int {
	return wp.workers
}

// Stats returns the task counters so far.
func (wp *WorkerPool) Stats() Stats {
	return Stats{Completed: wp.completed.Load(), Panics: wp.panics.Load()}
}

func (wp *WorkerPool) worker() {
	defer wp.wg.Done()
	for task := range wp.taskQueue {
		wp.run(task)
	}
}

// run executes one task; a panic is logged and counted, never fatal.
func (wp *WorkerPool) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			wp.panics.Add(1)
			wp.logger.Error("worker panic recovered", logging.Any("panic", r))
		}
		wp.completed.Add(1)
	}()
	task()
}

// Submit queues a task, blocking while the queue is full. It returns false
// once the pool is closed.
func (wp *WorkerPool) Submit(task func()) bool {
	return wp.SubmitContext(context.Background(), task) == nil
}

// SubmitContext is Submit that gives up when ctx is done.
func (wp *WorkerPool) SubmitContext(ctx context.Context, task func()) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.closed {
		return ErrPoolClosed
	}
	select {
	case wp.taskQueue <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting tasks and waits for queued ones to finish.
func (wp *WorkerPool) Close() {
	wp.once.Do(func() {
		wp.mu.Lock()
		wp.closed = true
		close(wp.taskQueue)
		wp.mu.Unlock()
	})
	wp.wg.Wait()
}
