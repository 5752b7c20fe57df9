// File: core/exec/task.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package exec

import (
	"fmt"
	"sync/atomic"

	"github.com/momentics/hioload-rt/api"
	"github.com/momentics/hioload-rt/core/fiber"
	"github.com/momentics/hioload-rt/core/thr"
)

// ErrCancelled is the join result of a cancelled task.
var ErrCancelled = fmt.Errorf("task cancelled: %w", api.ErrClosed)

const (
	taskRunning uint32 = iota
	taskDone
	taskCancelled
)

// Task is the join handle of a spawned future.
type Task[T any] struct {
	thread *thr.Thread
	handle fiber.WakeHandle
	state  atomic.Uint32
	value  T
	joiner Waker
}

// Spawn queues fut on t. It fails with api.ErrQueueFull when t has no free
// slot.
func Spawn[T any](t *thr.Thread, fut Future[T]) (*Task[T], error) {
	task := &Task[T]{thread: t}
	h, err := t.Enqueue(&root[T]{task: task, fut: fut})
	if err != nil {
		return nil, err
	}
	task.handle = h
	return task, nil
}

// root is the fiber driving a spawned future.
type root[T any] struct {
	task *Task[T]
	fut  Future[T]
}

func (r *root[T]) Resume(cx *fiber.Context) (fiber.Unit, bool) {
	if r.task.state.Load() != taskRunning {
		return fiber.Unit{}, true
	}
	v, ok := r.fut.Poll(cx.Waker())
	if !ok {
		return fiber.Unit{}, false
	}
	r.task.complete(v)
	return fiber.Unit{}, true
}

func (r *root[T]) Drop() {
	if d, ok := r.fut.(interface{ Drop() }); ok {
		d.Drop()
	}
}

func (tk *Task[T]) complete(v T) {
	tk.value = v
	if tk.state.CompareAndSwap(taskRunning, taskDone) {
		tk.joiner.Wake()
	}
}

// Handle returns the wake handle of the task's slot.
func (tk *Task[T]) Handle() fiber.WakeHandle { return tk.handle }

// Done reports whether the task completed.
func (tk *Task[T]) Done() bool { return tk.state.Load() == taskDone }

// Cancelled reports whether the task was cancelled before completing.
func (tk *Task[T]) Cancelled() bool { return tk.state.Load() == taskCancelled }

// Result returns the value of a completed task.
func (tk *Task[T]) Result() (T, bool) {
	if tk.state.Load() != taskDone {
		var zero T
		return zero, false
	}
	return tk.value, true
}

// Cancel discards a task that has not completed. Its slot is released on the
// next activation of its thread, so any later post through its handle is a
// no-op, and an awaiting joiner resolves with ErrCancelled. It reports false
// if the task had already completed or been cancelled.
func (tk *Task[T]) Cancel() bool {
	if !tk.state.CompareAndSwap(taskRunning, taskCancelled) {
		return false
	}
	slot, gen := tk.handle.Slot()
	tk.thread.Cancel(slot, gen)
	tk.joiner.Wake()
	return true
}

// Join returns a future resolving to the task's value.
func (tk *Task[T]) Join() Future[api.Result[T]] { return tk }

// Poll implements Future for joining. Only one task may await a Task.
func (tk *Task[T]) Poll(w fiber.WakeHandle) (api.Result[T], bool) {
	if r, ok := tk.outcome(); ok {
		return r, true
	}
	tk.joiner.Register(w)
	if r, ok := tk.outcome(); ok {
		tk.joiner.Clear()
		return r, true
	}
	return api.Result[T]{}, false
}

func (tk *Task[T]) outcome() (api.Result[T], bool) {
	switch tk.state.Load() {
	case taskDone:
		return api.Ok(tk.value), true
	case taskCancelled:
		return api.Fail[T](ErrCancelled), true
	}
	return api.Result[T]{}, false
}

// Drop deregisters the joiner when the awaiting task is discarded.
func (tk *Task[T]) Drop() { tk.joiner.Clear() }
