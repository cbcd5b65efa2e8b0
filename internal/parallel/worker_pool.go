// Copyright Senckenberg - Leibniz Institution for Biodiversity and Earth System Research.
// SPDX-License-Identifier: Apache-2.0

package parallel

import (
	"context"
	"sync"
	"time"

	"github.com/Senckenberg-DCBiodivIT/BITS/internal/match"
	"github.com/Senckenberg-DCBiodivIT/BITS/internal/observability"
)

// PhraseMatcher resolves one phrase to its accepted per-source results.
// A nil or empty map means the phrase was searched but nothing passed the
// similarity threshold.
type PhraseMatcher interface {
	MatchPhrase(ctx context.Context, phrase string) (map[string]match.Result, error)
}

// WorkerPool fans phrase lookups out across a fixed number of workers.
type WorkerPool struct {
	workers  int
	jobs     chan *Job
	results  chan *Result
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	observer *observability.StandardObserver
	matcher  PhraseMatcher
}

// Job is one phrase lookup task.
type Job struct {
	JobID  string
	Phrase string
}

// Result carries the outcome of one phrase lookup.
type Result struct {
	JobID    string
	Phrase   string
	Matches  map[string]match.Result
	Error    error
	Duration time.Duration
}

// NewWorkerPool creates a pool of the given size. Job and result channels are
// buffered at twice the worker count. The pool context derives from parent,
// so cancelling the run cancels in-flight lookups.
func NewWorkerPool(parent context.Context, workers int, matcher PhraseMatcher, observer *observability.StandardObserver) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	return &WorkerPool{
		workers:  workers,
		jobs:     make(chan *Job, workers*2),
		results:  make(chan *Result, workers*2),
		ctx:      ctx,
		cancel:   cancel,
		observer: observer,
		matcher:  matcher,
	}
}

// Start initializes worker goroutines.
func (wp *WorkerPool) Start() {
	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Close signals that no more jobs will be submitted.
func (wp *WorkerPool) Close() {
	close(wp.jobs)
}

// Stop waits for in-flight jobs and shuts the pool down. Close must have been
// called first.
func (wp *WorkerPool) Stop() {
	wp.wg.Wait()
	close(wp.results)
	wp.cancel()
}

// Submit adds a job to the queue, blocking until a worker can take it or the
// pool is cancelled.
func (wp *WorkerPool) Submit(job *Job) {
	select {
	case wp.jobs <- job:
	case <-wp.ctx.Done():
	}
}

// Results returns the results channel.
func (wp *WorkerPool) Results() <-chan *Result {
	return wp.results
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobs {
		result := wp.processJob(job, id)

		select {
		case wp.results <- result:
		case <-wp.ctx.Done():
			return
		}
	}
}

func (wp *WorkerPool) processJob(job *Job, workerID int) *Result {
	start := time.Now()

	var finishTiming func(bool, map[string]interface{})
	if wp.observer != nil {
		finishTiming = wp.observer.StartTiming("worker_pool", "match_phrase", job.Phrase)
	}

	matches, err := wp.matcher.MatchPhrase(wp.ctx, job.Phrase)
	duration := time.Since(start)

	if finishTiming != nil {
		finishTiming(err == nil, map[string]interface{}{
			"worker_id":   workerID,
			"match_count": len(matches),
			"duration_ms": duration.Milliseconds(),
			"had_error":   err != nil,
		})
	}

	return &Result{
		JobID:    job.JobID,
		Phrase:   job.Phrase,
		Matches:  matches,
		Error:    err,
		Duration: duration,
	}
}
