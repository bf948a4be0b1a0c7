// Package jobqueue runs opaque jobs on a pool of workers in priority order.
package jobqueue

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// ErrStopped is returned by Add after Stop.
var ErrStopped = errors.New("jobqueue: stopped")

// maxPending bounds the semaphore; it is never reached in practice.
const maxPending = 1 << 62

// Job is one unit of work. Run is called on a worker goroutine; its error is
// reported through the completion event and never stops the pool. Latch, if
// set, is counted down when the job finishes.
type Job struct {
	Name     string
	Priority Priority
	Run      func(ctx context.Context) error
	Latch    *Latch
}

// Event reports a finished job to the queue's owner.
type Event struct {
	Job      string
	Priority Priority
	Worker   int
	Err      error
	Duration time.Duration
}

// Queue is a priority multimap of jobs served by a worker pool. Jobs of the
// same priority run in the order they were added.
type Queue struct {
	mu      sync.Mutex
	jobs    [exit + 1][]Job
	stopped bool

	// sem holds at least one permit per queued job
	sem     *semaphore.Weighted
	pending atomic.Int64
	done    atomic.Int64
	workers int

	group      *errgroup.Group
	onComplete func(Event)
	logger     *zap.SugaredLogger
}

// New returns an idle queue. onComplete may be nil; when set it is called on
// the worker goroutine after every job.
func New(logger *zap.SugaredLogger, onComplete func(Event)) *Queue {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	q := &Queue{
		sem:        semaphore.NewWeighted(maxPending),
		onComplete: onComplete,
		logger:     logger,
	}
	// start with every permit taken; Add releases one per job
	_ = q.sem.Acquire(context.Background(), maxPending)
	return q
}

// Start launches n workers, or one per CPU when n <= 0. Workers run until
// Stop or until ctx is cancelled.
func (q *Queue) Start(ctx context.Context, n int) {
	if n <= 0 {
		n = runtime.NumCPU()
	}
	q.mu.Lock()
	q.workers += n
	if q.group == nil {
		q.group, ctx = errgroup.WithContext(ctx)
	}
	q.mu.Unlock()

	for i := 0; i < n; i++ {
		id := i
		q.group.Go(func() error {
			return q.work(ctx, id)
		})
	}
}

func (q *Queue) Add(job Job) error {
	if job.Priority < 0 || job.Priority >= NumPriorities {
		return fmt.Errorf("job %q: invalid priority %d", job.Name, job.Priority)
	}
	if job.Run == nil {
		return fmt.Errorf("job %q has no Run func", job.Name)
	}
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return ErrStopped
	}
	q.jobs[job.Priority] = append(q.jobs[job.Priority], job)
	q.mu.Unlock()

	q.pending.Inc()
	q.sem.Release(1)
	return nil
}

// Pending is the number of jobs queued or running.
func (q *Queue) Pending() int {
	return int(q.pending.Load())
}

// Completed is the number of jobs finished since New.
func (q *Queue) Completed() int {
	return int(q.done.Load())
}

// Stop lets running jobs finish, drops every queued job and waits for the
// workers to exit. Dropped jobs still count down their latches. Jobs added
// afterwards are rejected.
func (q *Queue) Stop() error {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return nil
	}
	q.stopped = true
	for i := 0; i < q.workers; i++ {
		q.jobs[exit] = append(q.jobs[exit], Job{Name: "exit", Priority: exit})
	}
	n := q.workers
	group := q.group
	q.mu.Unlock()

	q.sem.Release(int64(n))
	var err error
	if group != nil {
		err = group.Wait()
	}
	if dropped := q.drop(func(Job) bool { return true }); dropped > 0 {
		q.logger.Debugw("dropped queued jobs", "jobs", dropped)
	}
	return err
}

// Drop removes the queued jobs counted by l and counts them down. Jobs
// already running are left to finish; l.Wait then returns once they have.
func (q *Queue) Drop(l *Latch) int {
	if l == nil {
		return 0
	}
	return q.drop(func(j Job) bool { return j.Latch == l })
}

func (q *Queue) drop(match func(Job) bool) int {
	var dropped []Job
	q.mu.Lock()
	for p := VeryHigh; p < NumPriorities; p++ {
		kept := q.jobs[p][:0]
		for _, j := range q.jobs[p] {
			if match(j) {
				dropped = append(dropped, j)
			} else {
				kept = append(kept, j)
			}
		}
		for i := len(kept); i < len(q.jobs[p]); i++ {
			q.jobs[p][i] = Job{}
		}
		q.jobs[p] = kept
	}
	q.mu.Unlock()

	// the permits of dropped jobs stay released; workers that take one find
	// nothing to pop and wait again
	for _, j := range dropped {
		q.pending.Dec()
		if j.Latch != nil {
			j.Latch.Done()
		}
	}
	return len(dropped)
}

// pop removes the next job, exit first and then by priority. It reports
// false when the job the permit was released for has been dropped.
func (q *Queue) pop() (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs[exit]) > 0 {
		job := q.jobs[exit][0]
		q.jobs[exit] = q.jobs[exit][1:]
		return job, true
	}
	for p := VeryHigh; p < NumPriorities; p++ {
		if len(q.jobs[p]) > 0 {
			job := q.jobs[p][0]
			q.jobs[p][0] = Job{}
			q.jobs[p] = q.jobs[p][1:]
			return job, true
		}
	}
	return Job{}, false
}

func (q *Queue) work(ctx context.Context, id int) error {
	q.logger.Debugw("worker started", "worker", id)
	defer q.logger.Debugw("worker stopped", "worker", id)

	for {
		if err := q.sem.Acquire(ctx, 1); err != nil {
			return err
		}
		job, ok := q.pop()
		if !ok {
			continue
		}
		if job.Priority == exit {
			return nil
		}

		start := time.Now()
		err := run(ctx, job)
		ev := Event{
			Job:      job.Name,
			Priority: job.Priority,
			Worker:   id,
			Err:      err,
			Duration: time.Since(start),
		}
		if err != nil {
			q.logger.Debugw("job failed", "job", job.Name, "worker", id, "error", err)
		}
		if q.onComplete != nil {
			q.onComplete(ev)
		}
		q.done.Inc()
		q.pending.Dec()
		if job.Latch != nil {
			job.Latch.Done()
		}
	}
}

// run converts a panic in the job into an error.
func run(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %q panicked: %v", job.Name, r)
		}
	}()
	return job.Run(ctx)
}
