// Package async runs container resolutions off the caller's goroutine.
//
// An Engine decides how a Task runs; a Dispatcher feeds container lookups to
// an Engine while holding the application's lock, so resolutions never
// overlap with each other or with other guarded container access.
//
//	d := async.NewDispatcher(c, app.Locker(), async.WithEngine(async.NewGoroutineEngine(4)))
//	fut := d.MakeAsync("Mailer", nil)
//	mailer, err := fut.Await(ctx)
package async

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// Task is a unit of work run by an Engine.
type Task func() (any, error)

// Engine runs tasks.
type Engine interface {
	// Run executes task and waits for it.
	Run(task Task) (any, error)

	// Defer starts task and returns immediately.
	Defer(task Task) *Future

	// Supported reports whether the engine can accept work.
	Supported() bool
}

// ── Future ───────────────────────────────────────────────────────────────────

// Future is the eventual result of a deferred task.
type Future struct {
	id   string
	done chan struct{}
	val  any
	err  error
}

func newFuture() *Future {
	return &Future{id: uuid.NewString(), done: make(chan struct{})}
}

// Completed returns a Future that is already resolved.
func Completed(v any, err error) *Future {
	f := newFuture()
	f.complete(v, err)
	return f
}

func (f *Future) complete(v any, err error) {
	f.val, f.err = v, err
	close(f.done)
}

// ID identifies the job in logs.
func (f *Future) ID() string { return f.id }

// Done is closed once the result is available.
func (f *Future) Done() <-chan struct{} { return f.done }

// Await blocks until the task finishes or ctx is done. Cancelling ctx stops
// the wait, not the task.
func (f *Future) Await(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ── Engines ──────────────────────────────────────────────────────────────────

// InlineEngine runs every task on the calling goroutine.
type InlineEngine struct{}

func (InlineEngine) Run(task Task) (any, error) { return safely(task) }

// Defer runs task before returning; the Future is already complete.
func (InlineEngine) Defer(task Task) *Future { return Completed(safely(task)) }

func (InlineEngine) Supported() bool { return true }

// GoroutineEngine runs each deferred task on its own goroutine, at most limit
// at a time.
type GoroutineEngine struct {
	sem *semaphore.Weighted
}

// NewGoroutineEngine creates an engine. limit <= 0 means unbounded.
func NewGoroutineEngine(limit int64) *GoroutineEngine {
	e := &GoroutineEngine{}
	if limit > 0 {
		e.sem = semaphore.NewWeighted(limit)
	}
	return e
}

func (e *GoroutineEngine) Run(task Task) (any, error) {
	return e.Defer(task).Await(context.Background())
}

func (e *GoroutineEngine) Defer(task Task) *Future {
	f := newFuture()
	go func() {
		if e.sem != nil {
			// Acquire with Background never fails.
			_ = e.sem.Acquire(context.Background(), 1)
			defer e.sem.Release(1)
		}
		f.complete(safely(task))
	}()
	return f
}

func (e *GoroutineEngine) Supported() bool { return e != nil }

// safely runs task, turning a panic into an error.
func safely(task Task) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, fmt.Errorf("async task panicked: %v", r)
		}
	}()
	return task()
}
