package utils

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tj/go-spin"
)

// WorkerPool manages a pool of goroutines for parallel processing. Results
// are delivered in completion order, not submission order, so a slow job
// never blocks consumption of the others.
type WorkerPool struct {
	NumWorkers int
	JobQueue   chan any
	Results    chan any
	wg         sync.WaitGroup
	started    bool
	mu         sync.Mutex
}

// NewWorkerPool creates a worker pool with the specified number of workers.
func NewWorkerPool(numWorkers int, jobBufferSize int, resultBufferSize int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &WorkerPool{
		NumWorkers: numWorkers,
		JobQueue:   make(chan any, jobBufferSize),
		Results:    make(chan any, resultBufferSize),
	}
}

// StartWorkers starts the worker goroutines with the given work function.
func (wp *WorkerPool) StartWorkers(workFunc func(any) any) {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.started {
		return
	}
	wp.started = true
	wp.wg.Add(wp.NumWorkers)

	for i := 0; i < wp.NumWorkers; i++ {
		go wp.worker(workFunc)
	}
}

func (wp *WorkerPool) worker(workFunc func(any) any) {
	defer wp.wg.Done()
	for job := range wp.JobQueue {
		// Always send the result, even if it's nil.
		wp.Results <- workFunc(job)
	}
}

// SubmitJob adds a job to the job queue.
func (wp *WorkerPool) SubmitJob(job any) {
	wp.JobQueue <- job
}

// ProgressTracker tracks progress of concurrent operations. When verbose it
// redraws a spinner line on each increment.
type ProgressTracker struct {
	Total     int64
	Processed int64
	StartTime time.Time
	Name      string
	verbose   bool
	spinner   *spin.Spinner
}

func NewProgressTracker(total int64, name string, verbose bool) *ProgressTracker {
	return &ProgressTracker{
		Total:     total,
		StartTime: time.Now(),
		Name:      name,
		verbose:   verbose,
		spinner:   spin.New(),
	}
}

// Increment increments the processed count atomically.
func (pt *ProgressTracker) Increment() {
	processed := atomic.AddInt64(&pt.Processed, 1)
	if !pt.verbose {
		return
	}
	if processed == pt.Total {
		fmt.Printf("\r%s: %d/%d completed in %.2f seconds\n",
			pt.Name, processed, pt.Total, time.Since(pt.StartTime).Seconds())
		return
	}
	fmt.Printf("\r%s %s: %d/%d", pt.spinner.Next(), pt.Name, processed, pt.Total)
}

// GetProgress returns the current progress.
func (pt *ProgressTracker) GetProgress() (int64, int64, float64) {
	processed := atomic.LoadInt64(&pt.Processed)
	percentage := float64(processed) / float64(pt.Total) * 100
	return processed, pt.Total, percentage
}

// ParallelProcessor provides utilities for parallel batch processing.
type ParallelProcessor struct {
	NumWorkers int
	Verbose    bool
}

func NewParallelProcessor(numWorkers int, verbose bool) *ParallelProcessor {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &ParallelProcessor{NumWorkers: numWorkers, Verbose: verbose}
}

// ProcessBatch runs workFunc over every item on the pool and returns the
// results in completion order. The caller blocks until all items are done;
// there is no cancellation or partial consumption.
func (pp *ParallelProcessor) ProcessBatch(items []any, workFunc func(any) any, progressName string) ([]any, error) {
	if len(items) == 0 {
		return []any{}, nil
	}

	tracker := NewProgressTracker(int64(len(items)), progressName, pp.Verbose)

	wp := NewWorkerPool(pp.NumWorkers, len(items), len(items))
	wp.StartWorkers(func(job any) any {
		result := workFunc(job)
		tracker.Increment()
		return result
	})

	for _, item := range items {
		wp.SubmitJob(item)
	}
	close(wp.JobQueue)

	// Exactly one result per item, consumed as workers finish.
	results := make([]any, 0, len(items))
	for i := 0; i < len(items); i++ {
		result := <-wp.Results
		if result != nil {
			results = append(results, result)
		}
	}

	wp.wg.Wait()
	close(wp.Results)

	return results, nil
}
