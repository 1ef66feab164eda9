package runner

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/ducminhle1904/crypto-gym/internal/env"
)

// BatchJob is one episode of a batch. Every job gets its own simulator; the policy must
// not be shared with another job.
type BatchJob struct {
	ID     string
	Config env.Config
	Policy Policy
}

// BatchResult is the outcome of a BatchJob
type BatchResult struct {
	ID       string
	Index    int
	Result   *EpisodeResult
	Duration time.Duration
	Err      error
}

type indexedJob struct {
	index int
	job   BatchJob
}

// WorkerPool runs episodes over a shared read-only dataset
type WorkerPool struct {
	workerCount int
	prices      []float64
	signals     [][]float64
	opts        []Option
	jobQueue    chan indexedJob
	resultQueue chan BatchResult
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewWorkerPool creates a pool; workerCount <= 0 means one worker per CPU
func NewWorkerPool(ctx context.Context, workerCount, jobBufferSize int, prices []float64, signals [][]float64, opts ...Option) *WorkerPool {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}

	ctx, cancel := context.WithCancel(ctx)

	return &WorkerPool{
		workerCount: workerCount,
		prices:      prices,
		signals:     signals,
		opts:        opts,
		jobQueue:    make(chan indexedJob, jobBufferSize),
		resultQueue: make(chan BatchResult, jobBufferSize),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start launches the workers
func (wp *WorkerPool) Start() {
	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker()
	}
}

// Stop waits for the workers after the job queue is closed, then closes the results
func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
	wp.cancel()
}

func (wp *WorkerPool) submit(job indexedJob) error {
	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return wp.ctx.Err()
	}
}

// Results returns the channel completed jobs are delivered on
func (wp *WorkerPool) Results() <-chan BatchResult {
	return wp.resultQueue
}

func (wp *WorkerPool) worker() {
	defer wp.wg.Done()

	for job := range wp.jobQueue {
		// results are buffered by the collector, so a send never blocks forever
		wp.resultQueue <- wp.processJob(job)
	}
}

func (wp *WorkerPool) processJob(ij indexedJob) BatchResult {
	startTime := time.Now()
	result := BatchResult{ID: ij.job.ID, Index: ij.index}

	if err := wp.ctx.Err(); err != nil {
		result.Err = err
		return result
	}

	sim, err := env.NewTradingSimulator(wp.prices, wp.signals, ij.job.Config)
	if err != nil {
		result.Err = err
		result.Duration = time.Since(startTime)
		return result
	}

	opts := append([]Option{WithEpisodeID(ij.job.ID)}, wp.opts...)
	result.Result, result.Err = NewRunner(sim, opts...).Run(wp.ctx, ij.job.Policy)
	result.Duration = time.Since(startTime)
	return result
}

// RunBatch runs every job on its own simulator with up to workers episodes in flight and
// returns the results in job order. Per-job failures are reported in BatchResult.Err.
func RunBatch(ctx context.Context, prices []float64, signals [][]float64, jobs []BatchJob, workers int, opts ...Option) ([]BatchResult, error) {
	pool := NewWorkerPool(ctx, workers, len(jobs), prices, signals, opts...)
	pool.Start()

	submitted := 0
	var submitErr error
	for i, job := range jobs {
		if job.ID == "" {
			job.ID = fmt.Sprintf("episode_%d", i)
		}
		if err := pool.submit(indexedJob{index: i, job: job}); err != nil {
			submitErr = err
			break
		}
		submitted++
	}
	pool.Stop()

	results := make([]BatchResult, 0, submitted)
	for res := range pool.Results() {
		results = append(results, res)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })

	return results, submitErr
}
