// File: core/exec/event.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Pulse events. Interrupt handlers pulse, one task consumes. Pulses that
// arrive while the consumer is busy accumulate and are reported together.

package exec

import (
	"sync/atomic"

	"github.com/momentics/hioload-rt/core/fiber"
)

// Event is a counting pulse source.
type Event struct {
	pulses atomic.Uint64
	seen   atomic.Uint64
	waiter Waker
}

// Pulse records one occurrence and wakes the consumer. It is safe from any
// context.
func (e *Event) Pulse() {
	e.pulses.Add(1)
	e.waiter.Wake()
}

// Count returns the total number of pulses so far.
func (e *Event) Count() uint64 { return e.pulses.Load() }

// Next returns a future resolving to the number of pulses since the previous
// resolution, once that number is at least one.
func (e *Event) Next() Future[uint64] { return (*eventNext)(e) }

type eventNext Event

func (n *eventNext) Poll(w fiber.WakeHandle) (uint64, bool) {
	e := (*Event)(n)
	if d, ok := e.consume(); ok {
		return d, true
	}
	e.waiter.Register(w)
	if d, ok := e.consume(); ok {
		e.waiter.Clear()
		return d, true
	}
	return 0, false
}

func (n *eventNext) Drop() { (*Event)(n).waiter.Clear() }

// consume is only called by the single consumer.
func (e *Event) consume() (uint64, bool) {
	total := e.pulses.Load()
	seen := e.seen.Load()
	if total == seen {
		return 0, false
	}
	e.seen.Store(total)
	return total - seen, true
}
