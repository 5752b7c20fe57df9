// File: core/concurrency/lock_free_queue.go
// Package concurrency provides the bounded queues the scheduler is built on.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// MPMC bounded queue for hosts with atomic read-modify-write. Storage is
// allocated once by the constructor; Enqueue and Dequeue never allocate.

package concurrency

import (
	"sync/atomic"

	"github.com/momentics/hioload-rt/api"
)

var _ api.Ring[uint16] = (*LockFreeQueue[uint16])(nil)

// LockFreeQueue is an MPMC bounded queue using per-cell sequence numbers.
// Based on the pattern by Dmitry Vyukov for MPMC queues.
type LockFreeQueue[T any] struct {
	head  atomic.Uint64
	_     [cacheLinePad]byte
	tail  atomic.Uint64
	_     [cacheLinePad]byte
	mask  uint64
	limit uint64
	cells []cell[T]
}

const cacheLinePad = 64

type cell[T any] struct {
	sequence atomic.Uint64
	data     T
}

// NewLockFreeQueue creates a queue holding at most capacity items. The cell
// array is rounded up to a power of two but the capacity limit is exact.
func NewLockFreeQueue[T any](capacity int) *LockFreeQueue[T] {
	if capacity < 1 {
		capacity = 1
	}
	size := 2
	for size < capacity {
		size <<= 1
	}

	q := &LockFreeQueue[T]{
		mask:  uint64(size - 1),
		limit: uint64(capacity),
		cells: make([]cell[T], size),
	}
	for i := range q.cells {
		q.cells[i].sequence.Store(uint64(i))
	}
	return q
}

// Enqueue adds val; returns false if full.
func (q *LockFreeQueue[T]) Enqueue(val T) bool {
	for {
		tail := q.tail.Load()
		if int64(tail-q.head.Load()) >= int64(q.limit) {
			return false
		}
		c := &q.cells[tail&q.mask]
		seq := c.sequence.Load()
		dif := int64(seq) - int64(tail)

		if dif == 0 {
			if q.tail.CompareAndSwap(tail, tail+1) {
				c.data = val
				c.sequence.Store(tail + 1)
				return true
			}
		} else if dif < 0 {
			return false // full
		}
		// tail moved, retry
	}
}

// Dequeue removes and returns the oldest item; ok false if empty.
func (q *LockFreeQueue[T]) Dequeue() (item T, ok bool) {
	for {
		head := q.head.Load()
		c := &q.cells[head&q.mask]
		seq := c.sequence.Load()
		dif := int64(seq) - int64(head+1)

		if dif == 0 {
			if q.head.CompareAndSwap(head, head+1) {
				item = c.data
				var zero T
				c.data = zero
				c.sequence.Store(head + q.mask + 1)
				return item, true
			}
		} else if dif < 0 {
			var zero T
			return zero, false // empty
		}
		// head moved, retry
	}
}

// Len returns the number of items currently queued. Under concurrent use the
// value is a snapshot.
func (q *LockFreeQueue[T]) Len() int {
	head := q.head.Load()
	tail := q.tail.Load()
	if tail < head {
		return 0
	}
	return int(tail - head)
}

// Cap returns the capacity limit.
func (q *LockFreeQueue[T]) Cap() int {
	return int(q.limit)
}
