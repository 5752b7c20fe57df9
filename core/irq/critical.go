// File: core/irq/critical.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package irq

import "sync/atomic"

var (
	mask     Spinlock
	sections atomic.Uint64
)

// Guard is an open critical section. Exit must be called exactly once.
type Guard struct {
	open bool
}

// Enter masks interrupts: no other context runs a critical section until the
// returned guard exits.
func Enter() Guard {
	mask.Acquire()
	sections.Add(1)
	return Guard{open: true}
}

// Exit unmasks interrupts. Exiting a closed guard is a no-op.
func (g *Guard) Exit() {
	if !g.open {
		return
	}
	g.open = false
	mask.Release()
}

// Masked reports whether some context is currently inside a critical section.
func Masked() bool {
	return mask.Held()
}

// Sections returns the number of critical sections entered so far.
func Sections() uint64 {
	return sections.Load()
}
