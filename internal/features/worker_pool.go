package features

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"
)

// NormalizeFunc converts one column into its normalized form. It must not modify values.
type NormalizeFunc func(column string, values []float64) ([]float64, error)

// NormalizeJob is a single column to normalize
type NormalizeJob struct {
	Column string
	Values []float64
}

// NormalizeResult is the outcome of one job
type NormalizeResult struct {
	Column   string
	Values   []float64
	Duration time.Duration
	Err      error
}

// WorkerPool normalizes columns in parallel. A pool serves exactly one batch:
// submit every job, call Close, then drain Results until it is closed.
type WorkerPool struct {
	workerCount int
	fn          NormalizeFunc
	jobQueue    chan NormalizeJob
	resultQueue chan NormalizeResult
	wg          sync.WaitGroup
	ctx         context.Context
	closeOnce   sync.Once
}

// NewWorkerPool creates a pool for up to jobBufferSize jobs
func NewWorkerPool(ctx context.Context, workerCount, jobBufferSize int, fn NormalizeFunc) *WorkerPool {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	if jobBufferSize < 0 {
		jobBufferSize = 0
	}

	return &WorkerPool{
		workerCount: workerCount,
		fn:          fn,
		jobQueue:    make(chan NormalizeJob, jobBufferSize),
		resultQueue: make(chan NormalizeResult, jobBufferSize),
		ctx:         ctx,
	}
}

// Start starts the workers
func (wp *WorkerPool) Start() {
	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker()
	}

	go func() {
		wp.wg.Wait()
		close(wp.resultQueue)
	}()
}

// SubmitJob queues a job. It blocks only when the buffer is full.
func (wp *WorkerPool) SubmitJob(job NormalizeJob) error {
	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return wp.ctx.Err()
	}
}

// Close signals that no more jobs will be submitted
func (wp *WorkerPool) Close() {
	wp.closeOnce.Do(func() { close(wp.jobQueue) })
}

// Results returns the result channel; it is closed once every worker has exited
func (wp *WorkerPool) Results() <-chan NormalizeResult {
	return wp.resultQueue
}

// worker processes jobs until the queue is closed. Every job yields exactly one result,
// so a cancelled context produces errored results instead of missing ones.
func (wp *WorkerPool) worker() {
	defer wp.wg.Done()

	for job := range wp.jobQueue {
		if err := wp.ctx.Err(); err != nil {
			wp.resultQueue <- NormalizeResult{Column: job.Column, Err: err}
			continue
		}
		wp.resultQueue <- wp.processJob(job)
	}
}

// processJob runs the normalize function, turning a panic into an error for that column only
func (wp *WorkerPool) processJob(job NormalizeJob) (result NormalizeResult) {
	startTime := time.Now()
	result.Column = job.Column

	defer func() {
		if r := recover(); r != nil {
			result.Values = nil
			result.Err = fmt.Errorf("panic: %v", r)
		}
		result.Duration = time.Since(startTime)
	}()

	result.Values, result.Err = wp.fn(job.Column, job.Values)
	return result
}
