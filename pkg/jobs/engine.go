// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package jobs

import (
	"container/list"
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/go-logr/logr"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/testing-farm/schedule-runner/pkg/util"
)

// EngineConfig configures the concurrency of an engine.
type EngineConfig struct {
	// MaxWorkers is the maximum number of jobs that run at the same time.
	// 0 starts every job immediately, 1 runs all jobs one after another in enqueue order.
	MaxWorkers int
}

// Target is the function executed by a job.
type Target[T any] func(ctx context.Context, subject T) (interface{}, error)

// Job is a named unit of work bound to a subject.
type Job[T any] struct {
	Name    string
	Subject T
	Log     logr.Logger
	Target  Target[T]
}

// NewJob creates a new job.
func NewJob[T any](log logr.Logger, name string, subject T, target Target[T]) *Job[T] {
	return &Job[T]{
		Name:    name,
		Subject: subject,
		Log:     log.WithValues("job", name),
		Target:  target,
	}
}

func (j *Job[T]) String() string {
	return j.Name
}

// JobError is the failure of a single job.
type JobError[T any] struct {
	Job *Job[T]
	Err error
}

func (e *JobError[T]) Error() string {
	return fmt.Sprintf("job %s failed: %s", e.Job.Name, e.Err.Error())
}

func (e *JobError[T]) Unwrap() error {
	return e.Err
}

// Callbacks are invoked by the engine on the worker that runs the job.
// All callbacks are optional.
type Callbacks[T any] struct {
	// OnJobStart runs before the target. An error skips the target and takes the error path.
	OnJobStart func(job *Job[T]) error
	// OnJobComplete runs after the target returned without error.
	// An error takes the error path as if the target had failed.
	OnJobComplete func(job *Job[T], result interface{}) error
	// OnJobError runs after the target or OnJobStart failed or panicked.
	OnJobError func(job *Job[T], err error)
	// OnJobDone runs after every job with the number of jobs that are still pending or running.
	OnJobDone func(job *Job[T], remaining int)
}

// Engine runs a dynamically growing queue of jobs with bounded concurrency.
// Jobs can be enqueued before and while the engine runs, usually from within the callbacks.
type Engine[T any] struct {
	log       logr.Logger
	config    EngineConfig
	callbacks Callbacks[T]

	mut     sync.Mutex
	ctx     context.Context
	running bool
	pending *list.List
	active  int
	errs    []*JobError[T]

	wg util.AdvancedWaitGroup
}

// NewEngine creates a new job engine.
func NewEngine[T any](log logr.Logger, config EngineConfig, callbacks Callbacks[T]) (*Engine[T], error) {
	if config.MaxWorkers < 0 {
		return nil, errors.New("the number of workers cannot be less than 0")
	}
	return &Engine[T]{
		log:       log.WithName("jobs"),
		config:    config,
		callbacks: callbacks,
		pending:   list.New(),
	}, nil
}

// Enqueue adds jobs to the end of the queue.
// While the engine runs, the jobs are started as soon as a worker is free.
func (e *Engine[T]) Enqueue(jobs ...*Job[T]) {
	e.mut.Lock()
	defer e.mut.Unlock()
	for _, job := range jobs {
		e.log.V(5).Info("enqueue job", "job", job.Name)
		e.pending.PushBack(job)
		e.wg.Add(1)
	}
	e.dispatch()
}

// Run starts all queued jobs and blocks until no job is pending or running.
// The context is passed to the job targets. Jobs are not aborted by the engine when it is done.
func (e *Engine[T]) Run(ctx context.Context) {
	e.mut.Lock()
	e.ctx = ctx
	e.running = true
	e.dispatch()
	e.mut.Unlock()

	e.wg.Wait()

	e.mut.Lock()
	e.running = false
	e.mut.Unlock()
}

// Errors returns the errors of all failed jobs.
func (e *Engine[T]) Errors() []*JobError[T] {
	e.mut.Lock()
	defer e.mut.Unlock()
	return append([]*JobError[T]{}, e.errs...)
}

// Err returns all job errors combined into one error or nil if no job failed.
func (e *Engine[T]) Err() error {
	var result *multierror.Error
	for _, err := range e.Errors() {
		result = multierror.Append(result, err)
	}
	return util.ReturnMultiError(result)
}

// Len returns the number of pending and running jobs.
func (e *Engine[T]) Len() int {
	e.mut.Lock()
	defer e.mut.Unlock()
	return e.pending.Len() + e.active
}

// dispatch starts pending jobs until all workers are busy.
// The caller has to hold the lock.
func (e *Engine[T]) dispatch() {
	if !e.running {
		return
	}
	for e.pending.Len() != 0 {
		if e.config.MaxWorkers != 0 && e.active >= e.config.MaxWorkers {
			return
		}
		elem := e.pending.Front()
		e.pending.Remove(elem)
		job, ok := elem.Value.(*Job[T])
		if !ok {
			e.log.V(3).Info("unable to cast queue element to job")
			e.wg.Done()
			continue
		}
		e.active++
		go e.execute(e.ctx, job)
	}
}

func (e *Engine[T]) execute(ctx context.Context, job *Job[T]) {
	defer e.finish(job)

	job.Log.V(5).Info("job started")
	result, err := e.run(ctx, job)
	if err != nil {
		e.fail(job, err)
		return
	}
	job.Log.V(5).Info("job completed")
	if e.callbacks.OnJobComplete != nil {
		if err := protect(func() error {
			return e.callbacks.OnJobComplete(job, result)
		}); err != nil {
			e.fail(job, errors.Wrap(err, "completion callback failed"))
		}
	}
}

// run executes the start callback and the job target and converts panics into errors.
func (e *Engine[T]) run(ctx context.Context, job *Job[T]) (result interface{}, err error) {
	err = protect(func() error {
		if e.callbacks.OnJobStart != nil {
			if err := e.callbacks.OnJobStart(job); err != nil {
				return err
			}
		}
		if job.Target == nil {
			return nil
		}
		var targetErr error
		result, targetErr = job.Target(ctx, job.Subject)
		return targetErr
	})
	return result, err
}

func (e *Engine[T]) fail(job *Job[T], err error) {
	job.Log.Info("job failed", "error", err.Error())
	e.mut.Lock()
	e.errs = append(e.errs, &JobError[T]{Job: job, Err: err})
	e.mut.Unlock()

	if e.callbacks.OnJobError == nil {
		return
	}
	if cbErr := protect(func() error {
		e.callbacks.OnJobError(job, err)
		return nil
	}); cbErr != nil {
		job.Log.Error(cbErr, "error callback failed")
		e.mut.Lock()
		e.errs = append(e.errs, &JobError[T]{Job: job, Err: cbErr})
		e.mut.Unlock()
	}
}

func (e *Engine[T]) finish(job *Job[T]) {
	e.mut.Lock()
	e.active--
	remaining := e.pending.Len() + e.active
	e.mut.Unlock()

	if e.callbacks.OnJobDone != nil {
		if err := protect(func() error {
			e.callbacks.OnJobDone(job, remaining)
			return nil
		}); err != nil {
			job.Log.Error(err, "done callback failed")
		}
	}

	e.mut.Lock()
	e.dispatch()
	e.mut.Unlock()
	e.wg.Done()
}

// PanicError is the error a panicking job is converted into.
type PanicError struct {
	Value interface{}
	Stack []byte
}

func (p *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", p.Value)
}

func protect(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn()
}
