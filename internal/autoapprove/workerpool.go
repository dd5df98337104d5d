package autoapprove

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

type WorkerPoolI interface {
	Submit(ctx context.Context, task Task) error
	Close()
}

type Task func() error

// WorkerPool runs submitted tasks on a fixed number of goroutines.
type WorkerPool struct {
	tasks chan Task
	wg    sync.WaitGroup
	once  sync.Once
}

func NewWorkerPool(size int) *WorkerPool {
	if size < 1 {
		size = 1
	}
	wp := &WorkerPool{tasks: make(chan Task, size)}
	wp.wg.Add(size)
	for i := 0; i < size; i++ {
		go wp.worker()
	}
	return wp
}

func (wp *WorkerPool) worker() {
	defer wp.wg.Done()
	for task := range wp.tasks {
		if err := task(); err != nil {
			zap.L().Error("auto-approve task failed", zap.Error(err))
		}
	}
}

// Submit blocks until a worker slot frees up or ctx is done.
func (wp *WorkerPool) Submit(ctx context.Context, task Task) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case wp.tasks <- task:
		return nil
	}
}

// Close stops accepting tasks and waits for queued ones to finish.
func (wp *WorkerPool) Close() {
	wp.once.Do(func() {
		close(wp.tasks)
		wp.wg.Wait()
	})
}
