// File: core/exec/timer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Tick timer. A periodic interrupt calls Tick; sleeping tasks sit in a fixed
// table sized when the timer is built, so arming a sleep never allocates.

package exec

import (
	"fmt"
	"sync/atomic"

	"github.com/momentics/hioload-rt/api"
	"github.com/momentics/hioload-rt/core/fiber"
	"github.com/momentics/hioload-rt/core/irq"
)

// ErrTimeout is the result of a future that lost against its deadline.
var ErrTimeout = fmt.Errorf("deadline exceeded")

type timerEntry struct {
	deadline uint64
	h        fiber.WakeHandle
	used     bool
}

// Timer counts ticks and wakes sleepers whose deadline has passed.
type Timer struct {
	now     atomic.Uint64
	entries []timerEntry
	expired []fiber.WakeHandle // scratch for Tick, sized like entries
}

// NewTimer builds a timer able to hold waiters concurrent sleepers.
func NewTimer(waiters int) (*Timer, error) {
	if waiters < 1 {
		return nil, fmt.Errorf("exec: timer with %d waiters: %w", waiters, api.ErrInvalidArgument)
	}
	return &Timer{
		entries: make([]timerEntry, waiters),
		expired: make([]fiber.WakeHandle, waiters),
	}, nil
}

// Now returns the current tick.
func (t *Timer) Now() uint64 { return t.now.Load() }

// Tick advances time by one tick and wakes every expired sleeper. It must be
// called from one context only, normally the tick interrupt.
func (t *Timer) Tick() {
	now := t.now.Add(1)
	n := 0
	g := irq.Enter()
	for i := range t.entries {
		e := &t.entries[i]
		if e.used && e.deadline <= now {
			t.expired[n] = e.h
			n++
			*e = timerEntry{}
		}
	}
	g.Exit()
	for i := 0; i < n; i++ {
		t.expired[i].Post()
		t.expired[i] = fiber.WakeHandle{}
	}
}

// Armed returns the number of occupied waiter entries.
func (t *Timer) Armed() int {
	g := irq.Enter()
	defer g.Exit()
	n := 0
	for i := range t.entries {
		if t.entries[i].used {
			n++
		}
	}
	return n
}

// arm stores h under deadline, returns the entry index or -1 when the table
// is full.
func (t *Timer) arm(idx int, deadline uint64, h fiber.WakeHandle) int {
	g := irq.Enter()
	defer g.Exit()
	if idx >= 0 && t.entries[idx].used && t.entries[idx].deadline == deadline {
		t.entries[idx].h = h
		return idx
	}
	for i := range t.entries {
		if !t.entries[i].used {
			t.entries[i] = timerEntry{deadline: deadline, h: h, used: true}
			return i
		}
	}
	return -1
}

func (t *Timer) disarm(idx int, deadline uint64) {
	if idx < 0 {
		return
	}
	g := irq.Enter()
	if e := &t.entries[idx]; e.used && e.deadline == deadline {
		*e = timerEntry{}
	}
	g.Exit()
}

// After returns a future completing ticks ticks after its first poll. When
// the waiter table is full it completes with api.ErrQueueFull.
func (t *Timer) After(ticks uint64) *Sleep {
	return &Sleep{timer: t, ticks: ticks, idx: -1}
}

// Sleep is the future returned by After.
type Sleep struct {
	timer    *Timer
	ticks    uint64
	deadline uint64
	started  bool
	idx      int
}

// Poll implements Future.
func (s *Sleep) Poll(w fiber.WakeHandle) (api.Result[fiber.Unit], bool) {
	if !s.started {
		s.deadline = s.timer.Now() + s.ticks
		s.started = true
	}
	if s.timer.Now() >= s.deadline {
		s.timer.disarm(s.idx, s.deadline)
		s.idx = -1
		return api.Ok(fiber.Unit{}), true
	}
	s.idx = s.timer.arm(s.idx, s.deadline, w)
	if s.idx < 0 {
		return api.Fail[fiber.Unit](api.ErrQueueFull), true
	}
	if s.timer.Now() >= s.deadline {
		s.timer.disarm(s.idx, s.deadline)
		s.idx = -1
		return api.Ok(fiber.Unit{}), true
	}
	return api.Result[fiber.Unit]{}, false
}

// Drop frees the waiter entry of a discarded sleeper.
func (s *Sleep) Drop() {
	s.timer.disarm(s.idx, s.deadline)
	s.idx = -1
}

// Timeout races fut against ticks of t. It resolves with fut's value, or with
// ErrTimeout once the deadline passes first.
func Timeout[T any](fut Future[T], t *Timer, ticks uint64) *Deadline[T] {
	return &Deadline[T]{fut: fut, sleep: t.After(ticks)}
}

// Deadline is the future returned by Timeout.
type Deadline[T any] struct {
	fut   Future[T]
	sleep *Sleep
}

// Poll implements Future.
func (d *Deadline[T]) Poll(w fiber.WakeHandle) (api.Result[T], bool) {
	if v, ok := d.fut.Poll(w); ok {
		d.sleep.Drop()
		return api.Ok(v), true
	}
	if r, ok := d.sleep.Poll(w); ok {
		if r.Err != nil {
			return api.Fail[T](r.Err), true
		}
		d.dropInner()
		return api.Fail[T](ErrTimeout), true
	}
	return api.Result[T]{}, false
}

func (d *Deadline[T]) dropInner() {
	if x, ok := d.fut.(interface{ Drop() }); ok {
		x.Drop()
	}
}

// Drop releases both registrations.
func (d *Deadline[T]) Drop() {
	d.sleep.Drop()
	d.dropInner()
}
