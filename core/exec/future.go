// File: core/exec/future.go
// Package exec bridges poll-style async tasks onto threads.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// A Future is polled with the wake handle of the task driving it. Returning
// pending obliges the future to have arranged for that handle to be posted
// when progress is possible. Spawn wraps a future into a root fiber and
// returns a join handle.

package exec

import (
	"github.com/momentics/hioload-rt/core/fiber"
)

// Future is a poll-style asynchronous computation.
type Future[T any] interface {
	Poll(w fiber.WakeHandle) (T, bool)
}

// FutureFunc adapts a poll function.
type FutureFunc[T any] func(w fiber.WakeHandle) (T, bool)

// Poll implements Future.
func (f FutureFunc[T]) Poll(w fiber.WakeHandle) (T, bool) { return f(w) }

// Await exposes a future as a fiber, so futures compose with the fiber
// combinators.
func Await[T any](f Future[T]) *AwaitFiber[T] {
	return &AwaitFiber[T]{fut: f}
}

// AwaitFiber drives a future from a fiber step.
type AwaitFiber[T any] struct {
	fut Future[T]
}

func (a *AwaitFiber[T]) Resume(cx *fiber.Context) (T, bool) {
	return a.fut.Poll(cx.Waker())
}

// Drop forwards discard notifications to the future.
func (a *AwaitFiber[T]) Drop() {
	if d, ok := a.fut.(interface{ Drop() }); ok {
		d.Drop()
	}
}

// Ready returns a future that completes immediately.
func Ready[T any](v T) Future[T] {
	return FutureFunc[T](func(fiber.WakeHandle) (T, bool) { return v, true })
}
