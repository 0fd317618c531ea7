// Package tasks runs best-effort side effects off the request path. Work
// submitted here may be dropped under pressure; callers must not depend on
// it for correctness.
package tasks

import (
	"context"
	"sync"
	"sync/atomic"
)

// Task is a unit of background work. Errors are the task's own problem;
// the dispatcher only counts drops.
type Task func(ctx context.Context)

// Dispatcher feeds submitted tasks to a single worker through a bounded
// buffer. Submit never blocks; a full buffer drops the task.
type Dispatcher struct {
	ch        chan Task
	done      chan struct{}
	wg        sync.WaitGroup
	pending   sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

func NewDispatcher(bufferSize int) *Dispatcher {
	if bufferSize <= 0 {
		bufferSize = 1
	}

	d := &Dispatcher{
		ch:   make(chan Task, bufferSize),
		done: make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case task := <-d.ch:
			d.exec(task)
		case <-d.done:
			for {
				select {
				case task := <-d.ch:
					d.exec(task)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) exec(task Task) {
	defer d.pending.Done()
	task(context.Background())
}

// Submit enqueues the task, reporting false when the dispatcher is closed
// or the buffer is full.
func (d *Dispatcher) Submit(task Task) bool {
	if d == nil || task == nil || d.closed.Load() {
		return false
	}

	d.pending.Add(1)
	select {
	case d.ch <- task:
		return true
	case <-d.done:
		d.pending.Done()
		return false
	default:
		d.pending.Done()
		d.dropped.Add(1)
		return false
	}
}

// Wait blocks until every task accepted so far has finished. Intended for
// tests and shutdown paths.
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.pending.Wait()
}

// Close drains the buffer and stops the worker.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
