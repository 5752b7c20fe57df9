// File: core/irq/spinlock.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package irq

import (
	"runtime"
	"sync/atomic"
)

// spinsBeforeYield bounds busy-waiting before the host scheduler is asked to
// run someone else.
const spinsBeforeYield = 64

// Spinlock implements a lock where each context trying to acquire it
// busy-waits till the lock becomes available.
type Spinlock struct {
	state atomic.Uint32
}

// Acquire blocks until the lock can be acquired. Any attempt to re-acquire a
// lock already held by the current context will cause a deadlock.
func (l *Spinlock) Acquire() {
	for spins := 0; ; spins++ {
		if l.state.Load() == 0 && l.state.CompareAndSwap(0, 1) {
			return
		}
		if spins >= spinsBeforeYield {
			runtime.Gosched()
			spins = 0
		}
	}
}

// TryToAcquire attempts to acquire the lock and returns true if the lock could
// be acquired or false otherwise.
func (l *Spinlock) TryToAcquire() bool {
	return l.state.Swap(1) == 0
}

// Release relinquishes a held lock. Calling Release while the lock is free has
// no effect.
func (l *Spinlock) Release() {
	l.state.Store(0)
}

// Held reports whether the lock is currently taken.
func (l *Spinlock) Held() bool {
	return l.state.Load() != 0
}
