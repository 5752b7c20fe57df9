// File: core/exec/signal.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package exec

import (
	"sync/atomic"

	"github.com/momentics/hioload-rt/api"
	"github.com/momentics/hioload-rt/core/fiber"
)

const (
	signalEmpty uint32 = iota
	signalWriting
	signalSet
	signalClosed
)

// Signal is a oneshot channel: one value, sent once, received by one task.
type Signal[T any] struct {
	state  atomic.Uint32
	value  T
	waiter Waker
}

// NewSignal returns an empty signal.
func NewSignal[T any]() *Signal[T] { return &Signal[T]{} }

// Send stores v and wakes the receiver. Only the first Send on an open signal
// succeeds.
func (s *Signal[T]) Send(v T) bool {
	if !s.state.CompareAndSwap(signalEmpty, signalWriting) {
		return false
	}
	s.value = v
	s.state.Store(signalSet)
	s.waiter.Wake()
	return true
}

// Close resolves the receiver with api.ErrClosed unless a value was sent.
func (s *Signal[T]) Close() bool {
	if !s.state.CompareAndSwap(signalEmpty, signalClosed) {
		return false
	}
	s.waiter.Wake()
	return true
}

// Poll implements Future.
func (s *Signal[T]) Poll(w fiber.WakeHandle) (api.Result[T], bool) {
	if r, ok := s.try(); ok {
		return r, true
	}
	s.waiter.Register(w)
	if r, ok := s.try(); ok {
		s.waiter.Clear()
		return r, true
	}
	return api.Result[T]{}, false
}

// Recv returns the signal as a future.
func (s *Signal[T]) Recv() Future[api.Result[T]] { return s }

func (s *Signal[T]) try() (api.Result[T], bool) {
	switch s.state.Load() {
	case signalSet:
		return api.Ok(s.value), true
	case signalClosed:
		return api.Fail[T](api.ErrClosed), true
	}
	return api.Result[T]{}, false
}

// Drop deregisters a discarded receiver.
func (s *Signal[T]) Drop() { s.waiter.Clear() }
