// Package heap
// Author: momentics <momentics@gmail.com>
//
// Fixed-block reference allocator over one simulated memory arena.
//
// The arena is split into size-class pools when the heap is built. Each pool
// keeps a lock-free free list of block indices, so Acquire and Release are
// safe from any interrupt priority and never touch the Go heap. Exhaustion is
// reported to the allocating caller only.
package heap
