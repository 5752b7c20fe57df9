// File: core/exec/waker.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package exec

import (
	"github.com/momentics/hioload-rt/core/fiber"
	"github.com/momentics/hioload-rt/core/irq"
)

// Waker holds at most one registered wake handle. A WakeHandle is wider than
// a machine word, so the cell is guarded by a critical section on every
// target.
type Waker struct {
	h   fiber.WakeHandle
	set bool
}

// Register replaces the stored handle with h.
func (w *Waker) Register(h fiber.WakeHandle) {
	g := irq.Enter()
	w.h, w.set = h, true
	g.Exit()
}

// Clear drops the stored handle.
func (w *Waker) Clear() {
	g := irq.Enter()
	w.h, w.set = fiber.WakeHandle{}, false
	g.Exit()
}

// Wake posts and clears the stored handle, if any. The post happens outside
// the critical section.
func (w *Waker) Wake() bool {
	g := irq.Enter()
	h, ok := w.h, w.set
	w.h, w.set = fiber.WakeHandle{}, false
	g.Exit()
	if ok {
		h.Post()
	}
	return ok
}

// Registered reports whether a handle is stored.
func (w *Waker) Registered() bool {
	g := irq.Enter()
	ok := w.set
	g.Exit()
	return ok
}
