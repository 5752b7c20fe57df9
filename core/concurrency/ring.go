// File: core/concurrency/ring.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// MaskedRing is the fallback queue for targets without atomic
// read-modify-write: every operation is one short interrupt-masked section.
// Implements api.Ring for cross-package consistency.

package concurrency

import (
	"github.com/momentics/hioload-rt/api"
	"github.com/momentics/hioload-rt/core/irq"
)

// Ensure compile-time interface compliance.
var _ api.Ring[uint16] = (*MaskedRing[uint16])(nil)

// MaskedRing is a fixed-capacity circular FIFO guarded by irq critical
// sections.
type MaskedRing[T any] struct {
	head  int
	count int
	items []T
}

// NewMaskedRing allocates a ring holding exactly capacity items.
func NewMaskedRing[T any](capacity int) *MaskedRing[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &MaskedRing[T]{items: make([]T, capacity)}
}

// Enqueue adds item; returns false if full.
func (r *MaskedRing[T]) Enqueue(item T) bool {
	g := irq.Enter()
	defer g.Exit()
	if r.count == len(r.items) {
		return false
	}
	r.items[(r.head+r.count)%len(r.items)] = item
	r.count++
	return true
}

// Dequeue removes and returns the oldest item; ok false if empty.
func (r *MaskedRing[T]) Dequeue() (T, bool) {
	var zero T
	g := irq.Enter()
	defer g.Exit()
	if r.count == 0 {
		return zero, false
	}
	item := r.items[r.head]
	r.items[r.head] = zero
	r.head = (r.head + 1) % len(r.items)
	r.count--
	return item, true
}

// Len returns number of items currently in the ring.
func (r *MaskedRing[T]) Len() int {
	g := irq.Enter()
	n := r.count
	g.Exit()
	return n
}

// Cap returns fixed ring capacity.
func (r *MaskedRing[T]) Cap() int {
	return len(r.items)
}

// NewQueue picks the queue flavour matching the atomics capability.
func NewQueue[T any](capacity int, atomics bool) api.Ring[T] {
	if atomics {
		return NewLockFreeQueue[T](capacity)
	}
	return NewMaskedRing[T](capacity)
}
