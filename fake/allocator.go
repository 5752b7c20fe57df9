// Package fake
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Fake implementations for testing and development.
// Provides predictable, controllable behavior for the core interfaces.

package fake

import (
	"fmt"
	"sync"

	"github.com/momentics/hioload-rt/api"
)

// Allocator is a fake api.Allocator backed by the Go heap. It records every
// live block and can be told to fail.
type Allocator struct {
	mu       sync.Mutex
	live     map[*byte]int
	acquired int
	released int
	failNext int
	limit    int
}

// NewAllocator returns an allocator with no size limit.
func NewAllocator() *Allocator {
	return &Allocator{live: make(map[*byte]int)}
}

// SetLimit makes requests larger than n bytes fail with api.ErrOutOfMemory.
// Zero removes the limit.
func (a *Allocator) SetLimit(n int) {
	a.mu.Lock()
	a.limit = n
	a.mu.Unlock()
}

// FailNext makes the next n Acquire calls fail.
func (a *Allocator) FailNext(n int) {
	a.mu.Lock()
	a.failNext = n
	a.mu.Unlock()
}

// Acquire implements api.Allocator.
func (a *Allocator) Acquire(size, align int) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if size <= 0 || align <= 0 {
		return nil, api.ErrInvalidArgument
	}
	if a.failNext > 0 {
		a.failNext--
		return nil, api.ErrOutOfMemory
	}
	if a.limit > 0 && size > a.limit {
		return nil, api.ErrOutOfMemory
	}
	b := make([]byte, size)
	a.live[&b[0]] = size
	a.acquired++
	return b, nil
}

// Release implements api.Allocator.
func (a *Allocator) Release(block []byte, size, _ int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(block) == 0 {
		return api.ErrInvalidArgument
	}
	got, ok := a.live[&block[0]]
	if !ok {
		return fmt.Errorf("fake: release of unknown block: %w", api.ErrInvalidArgument)
	}
	if got != size {
		return fmt.Errorf("fake: release size %d, acquired %d: %w", size, got, api.ErrInvalidArgument)
	}
	delete(a.live, &block[0])
	a.released++
	return nil
}

// Live returns the number of blocks acquired and not yet released.
func (a *Allocator) Live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.live)
}

// Totals returns how many Acquire and Release calls succeeded.
func (a *Allocator) Totals() (acquired, released int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.acquired, a.released
}
