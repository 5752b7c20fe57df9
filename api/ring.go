// Package api
// Author: momentics@gmail.com
//
// Bounded lock-free queue contract shared by the scheduler queues.

package api

// Ring is a fixed-capacity FIFO contract. Implementations never grow.
type Ring[T any] interface {
	// Enqueue adds an item, returns false if full.
	Enqueue(item T) bool
	// Dequeue removes oldest item, returns false if empty.
	Dequeue() (T, bool)
	// Len returns current number of items.
	Len() int
	// Cap returns buffer capacity.
	Cap() int
}
