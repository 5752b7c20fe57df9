// File: core/fiber/fiber.go
// Package fiber defines resumable stack-free computations.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// A fiber is advanced one step per Resume call by exactly one driver. A step
// either completes with a value or reports pending; a pending fiber that wants
// to run again must register a wake through its Context first, otherwise the
// driver discards it. Fibers never block and never abort: failures are
// carried as api.Result values inside the completion.

package fiber

// Fiber is a resumable computation producing T.
type Fiber[T any] interface {
	// Resume advances the fiber. It returns (value, true) on completion and
	// (zero, false) while pending. Resume must not be called after completion.
	Resume(cx *Context) (T, bool)
}

// Unit is the value of fibers that produce nothing.
type Unit = struct{}

// Target receives wakes. Threads implement it.
type Target interface {
	Post(slot uint16, gen uint32)
}

// WakeHandle is a non-owning reference to one task slot at one generation.
// The zero value posts nowhere.
type WakeHandle struct {
	target Target
	slot   uint16
	gen    uint32
}

// NewWakeHandle builds a handle for slot at generation gen of target.
func NewWakeHandle(target Target, slot uint16, gen uint32) WakeHandle {
	return WakeHandle{target: target, slot: slot, gen: gen}
}

// Post asks the owning thread to resume the slot on its next activation. It
// never blocks, never allocates and may be called any number of times from
// any context. Once the slot has moved to a new generation the post is
// dropped.
func (h WakeHandle) Post() {
	if h.target != nil {
		h.target.Post(h.slot, h.gen)
	}
}

// Valid reports whether h refers to a slot.
func (h WakeHandle) Valid() bool { return h.target != nil }

// Slot returns the slot index and generation h refers to.
func (h WakeHandle) Slot() (uint16, uint32) { return h.slot, h.gen }

// Context is handed to Resume. It carries the wake handle of the running task
// and records whether the step asked to be woken.
type Context struct {
	handle     WakeHandle
	registered bool
}

// NewContext returns a context for a task identified by h.
func NewContext(h WakeHandle) *Context {
	return &Context{handle: h}
}

// Reset prepares cx for a new step of the task identified by h.
func (cx *Context) Reset(h WakeHandle) {
	cx.handle = h
	cx.registered = false
}

// Waker returns the task's wake handle and records that the current step is
// waiting on it.
func (cx *Context) Waker() WakeHandle {
	cx.registered = true
	return cx.handle
}

// Yield requests a resume on the next activation of the owning thread.
func (cx *Context) Yield() {
	cx.registered = true
	cx.handle.Post()
}

// Registered reports whether the current step registered a wake.
func (cx *Context) Registered() bool { return cx.registered }

// Poll advances f with a detached context until it completes or limit steps
// have run. It is meant for tests and for driving fibers outside a thread.
func Poll[T any](f Fiber[T], limit int) (T, bool) {
	cx := NewContext(WakeHandle{})
	for i := 0; i < limit; i++ {
		cx.Reset(WakeHandle{})
		if v, ok := f.Resume(cx); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}
