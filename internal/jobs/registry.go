package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"time"
)

// ErrNotFound is returned when a job id is unknown to the registry.
var ErrNotFound = errors.New("job not found")

// Recorder receives job lifecycle events. *metrics.Metrics satisfies it.
type Recorder interface {
	JobCreated(jobType string)
	JobCompleted(jobType string, seconds float64)
	JobFailed(jobType string, seconds float64)
}

// Registry tracks jobs in memory and runs their work functions in the
// background. All methods are safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	jobs    map[string]*Job
	cancels map[string]context.CancelFunc

	rootCtx    context.Context
	rootCancel context.CancelFunc
	wg         sync.WaitGroup

	recorder Recorder
	now      func() time.Time
}

// NewRegistry creates an empty registry. recorder may be nil.
func NewRegistry(recorder Recorder) *Registry {
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		jobs:       make(map[string]*Job),
		cancels:    make(map[string]context.CancelFunc),
		rootCtx:    ctx,
		rootCancel: cancel,
		recorder:   recorder,
		now:        time.Now,
	}
}

// Create registers a new pending job and returns a copy of it.
func (r *Registry) Create(kind Kind, databaseID string, parameters map[string]any) *Job {
	now := r.now()
	j := &Job{
		ID:         newJobID(),
		Type:       kind,
		Status:     StatusPending,
		DatabaseID: databaseID,
		Parameters: parameters,
		Progress:   Progress{Message: "Pending"},
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	r.mu.Lock()
	r.jobs[j.ID] = j
	r.mu.Unlock()

	if r.recorder != nil {
		r.recorder.JobCreated(string(kind))
	}
	return j.clone()
}

// Get returns a copy of the job, or ErrNotFound.
func (r *Registry) Get(id string) (*Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return j.clone(), nil
}

// UpdateProgress records forward progress on a job, moving a pending job to
// running. Updates against a terminal job are dropped silently so a slow
// worker can never overwrite a completion or failure that already happened.
func (r *Registry) UpdateProgress(id string, current, total int, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if j.Status.Terminal() {
		return nil
	}
	j.Status = StatusRunning
	j.Progress = Progress{
		Current:    current,
		Total:      total,
		Percentage: percentage(current, total),
		Message:    message,
	}
	j.UpdatedAt = r.now()
	return nil
}

// SetPartialResult stores an intermediate result on a running job so that
// clients polling the job see data as it accumulates. Dropped once the job
// is terminal.
func (r *Registry) SetPartialResult(id string, result any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if j.Status.Terminal() {
		return nil
	}
	j.Result = result
	j.UpdatedAt = r.now()
	return nil
}

// Complete moves the job to Completed with the given result. The first
// terminal transition wins; calling Complete on an already terminal job is
// a no-op.
func (r *Registry) Complete(id string, result any) error {
	r.mu.Lock()
	j, ok := r.jobs[id]
	if !ok {
		r.mu.Unlock()
		return ErrNotFound
	}
	if j.Status.Terminal() {
		r.mu.Unlock()
		return nil
	}
	now := r.now()
	j.Status = StatusCompleted
	j.Result = result
	j.Error = ""
	j.Progress = Progress{Current: 100, Total: 100, Percentage: 100, Message: "Completed"}
	j.UpdatedAt = now
	j.CompletedAt = &now
	kind := j.Type
	created := j.CreatedAt
	r.mu.Unlock()

	if r.recorder != nil {
		r.recorder.JobCompleted(string(kind), now.Sub(created).Seconds())
	}
	return nil
}

// Fail moves the job to Failed with the given error message. Any partial
// result is cleared so a terminal job carries exactly one of result and
// error. No-op on an already terminal job.
func (r *Registry) Fail(id string, errMsg string) error {
	r.mu.Lock()
	j, ok := r.jobs[id]
	if !ok {
		r.mu.Unlock()
		return ErrNotFound
	}
	if j.Status.Terminal() {
		r.mu.Unlock()
		return nil
	}
	now := r.now()
	j.Status = StatusFailed
	j.Error = errMsg
	j.Result = nil
	j.UpdatedAt = now
	j.CompletedAt = &now
	kind := j.Type
	created := j.CreatedAt
	r.mu.Unlock()

	if r.recorder != nil {
		r.recorder.JobFailed(string(kind), now.Sub(created).Seconds())
	}
	return nil
}

// WorkFunc is the body of a job. It returns the job result or an error.
type WorkFunc func(ctx context.Context) (any, error)

// Run executes fn synchronously for the job, moving it through
// Running and into a terminal state. Panics inside fn are recovered and
// recorded as a failure with the stack trace.
func (r *Registry) Run(id string, fn WorkFunc) error {
	r.mu.Lock()
	j, ok := r.jobs[id]
	if !ok {
		r.mu.Unlock()
		return ErrNotFound
	}
	if j.Status != StatusPending {
		r.mu.Unlock()
		return fmt.Errorf("job %s is %s, not pending", id, j.Status)
	}
	j.Status = StatusRunning
	j.UpdatedAt = r.now()
	ctx, cancel := context.WithCancel(r.rootCtx)
	r.cancels[id] = cancel
	r.mu.Unlock()

	defer func() {
		cancel()
		r.mu.Lock()
		delete(r.cancels, id)
		r.mu.Unlock()

		if p := recover(); p != nil {
			log.Printf("[jobs] job %s panicked: %v", id, p)
			r.Fail(id, fmt.Sprintf("panic: %v\n%s", p, debug.Stack()))
		}
	}()

	result, err := fn(ctx)
	if err != nil {
		log.Printf("[jobs] job %s failed: %v", id, err)
		return r.Fail(id, err.Error())
	}
	return r.Complete(id, result)
}

// Start runs fn for the job on a new goroutine tracked by the registry.
func (r *Registry) Start(id string, fn WorkFunc) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.Run(id, fn); err != nil {
			log.Printf("[jobs] job %s: %v", id, err)
		}
	}()
}

// Cancel cancels the context of a running job. The job only becomes
// terminal when its work function observes the cancellation and returns.
func (r *Registry) Cancel(id string) bool {
	r.mu.RLock()
	cancel, ok := r.cancels[id]
	r.mu.RUnlock()
	if ok {
		cancel()
	}
	return ok
}

// Sweep removes terminal jobs whose completion is older than maxAge and
// returns how many were removed. Pending and running jobs are never swept.
func (r *Registry) Sweep(maxAge time.Duration) int {
	cutoff := r.now().Add(-maxAge)
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, j := range r.jobs {
		if j.Status.Terminal() && j.CompletedAt != nil && j.CompletedAt.Before(cutoff) {
			delete(r.jobs, id)
			removed++
		}
	}
	if removed > 0 {
		log.Printf("[jobs] swept %d finished jobs older than %s", removed, maxAge)
	}
	return removed
}

// StartSweeper periodically sweeps terminal jobs until ctx is cancelled.
func (r *Registry) StartSweeper(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(maxAge)
		}
	}
}

// Len returns the number of jobs currently tracked.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// Close cancels all running jobs and waits up to timeout for their
// goroutines to exit.
func (r *Registry) Close(timeout time.Duration) error {
	r.rootCancel()
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return errors.New("timed out waiting for running jobs to stop")
	}
}
