// Package worker runs noise chunk tasks on a bounded pool of goroutines.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MeKo-Tech/zebranoise/internal/grid"
)

// Processor turns one chunk into output: generating, filtering and writing
// its frames. It returns the number of frames it produced.
type Processor interface {
	Process(ctx context.Context, c grid.Chunk) (frames int, err error)
}

// ProcessorFunc adapts a function to the Processor interface.
type ProcessorFunc func(ctx context.Context, c grid.Chunk) (int, error)

// Process calls f(ctx, c).
func (f ProcessorFunc) Process(ctx context.Context, c grid.Chunk) (int, error) {
	return f(ctx, c)
}

// Task represents a single chunk to process.
type Task struct {
	Chunk grid.Chunk
}

// Result represents the outcome of a chunk task.
type Result struct {
	Task    Task
	Frames  int
	Err     error
	Elapsed time.Duration
}

// ProgressFunc is called after each task completes.
type ProgressFunc func(completed, total, failed int)

// Config configures the worker pool.
type Config struct {
	Processor  Processor
	OnProgress ProgressFunc
	Workers    int
	// StopOnError cancels the remaining tasks after the first failure.
	StopOnError bool
}

// Pool manages parallel chunk processing.
type Pool struct {
	processor   Processor
	onProgress  ProgressFunc
	workers     int
	stopOnError bool
}

// New creates a new worker pool.
func New(cfg Config) *Pool {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	return &Pool{
		workers:     workers,
		processor:   cfg.Processor,
		onProgress:  cfg.OnProgress,
		stopOnError: cfg.StopOnError,
	}
}

// Tasks builds one task per chunk of plan, in order.
func Tasks(plan *grid.Plan) []Task {
	tasks := make([]Task, 0, plan.NumChunks())
	for c := range plan.Chunks() {
		tasks = append(tasks, Task{Chunk: c})
	}
	return tasks
}

// Run executes all tasks and returns their results in completion order.
// Tasks are processed in parallel by the configured number of workers.
// The function blocks until all tasks complete or the context is cancelled;
// tasks that never ran report the context error.
func (p *Pool) Run(ctx context.Context, tasks []Task) []Result {
	if len(tasks) == 0 {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	taskCh := make(chan Task, len(tasks))
	resultCh := make(chan Result, len(tasks))

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.worker(ctx, taskCh, resultCh)
		}()
	}

	// All tasks fit in the buffer, so feeding never blocks.
	for _, task := range tasks {
		taskCh <- task
	}
	close(taskCh)

	results := make([]Result, 0, len(tasks))
	done := make(chan struct{})

	go func() {
		var completed, failed int
		for result := range resultCh {
			results = append(results, result)

			completed++
			if result.Err != nil {
				failed++
				if p.stopOnError {
					cancel()
				}
			}

			if p.onProgress != nil {
				p.onProgress(completed, len(tasks), failed)
			}
		}
		close(done)
	}()

	wg.Wait()
	close(resultCh)

	<-done

	return results
}

// worker processes tasks from the task channel and sends results to the result channel.
func (p *Pool) worker(ctx context.Context, tasks <-chan Task, results chan<- Result) {
	for task := range tasks {
		if err := ctx.Err(); err != nil {
			results <- Result{Task: task, Err: err}
			continue
		}

		start := time.Now()
		frames, err := p.processor.Process(ctx, task.Chunk)
		results <- Result{
			Task:    task,
			Frames:  frames,
			Err:     err,
			Elapsed: time.Since(start),
		}
	}
}

// FirstError returns the error of the lowest-indexed failed chunk, preferring
// real failures over the cancellations they caused. It returns nil when every
// task succeeded.
func FirstError(results []Result) error {
	var first, firstCancel *Result
	for i := range results {
		r := &results[i]
		if r.Err == nil {
			continue
		}
		if errors.Is(r.Err, context.Canceled) {
			if firstCancel == nil || r.Task.Chunk.Index < firstCancel.Task.Chunk.Index {
				firstCancel = r
			}
			continue
		}
		if first == nil || r.Task.Chunk.Index < first.Task.Chunk.Index {
			first = r
		}
	}
	if first == nil {
		first = firstCancel
	}
	if first == nil {
		return nil
	}
	return first.Err
}
