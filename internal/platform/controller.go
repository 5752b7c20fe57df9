// File: internal/platform/controller.go
// Package platform simulates the interrupt controller threads are bound to.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Each line has a priority, a vector and a pending flag, like an NVIC entry.
// Pend sets the flag from any context. DispatchPending runs pending vectors
// from the caller's goroutine, highest priority first, which makes tests
// deterministic. Run gives every line its own goroutine so vectors of
// different lines execute concurrently, while one line is never re-entered.

package platform

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/tliron/commonlog"
	"golang.org/x/sync/errgroup"

	"github.com/momentics/hioload-rt/affinity"
	"github.com/momentics/hioload-rt/api"
)

var log = commonlog.GetLogger("hioload.platform")

type line struct {
	num      int
	priority uint8
	vector   func()
	cpu      int
	pending  atomic.Bool
	kick     chan struct{}
	fired    atomic.Uint64
}

// Controller is a simulated interrupt controller. Lines are bound before
// dispatch starts and never change afterwards.
type Controller struct {
	lines   map[int]*line
	order   []*line // descending priority, then ascending line
	running atomic.Bool
}

// NewController returns a controller with no lines bound.
func NewController() *Controller {
	return &Controller{lines: make(map[int]*line)}
}

// Bind attaches vector to line n at priority prio.
func (c *Controller) Bind(n int, prio uint8, vector func()) error {
	if c.running.Load() {
		return fmt.Errorf("platform: bind line %d while running: %w", n, api.ErrNotSupported)
	}
	if vector == nil {
		return fmt.Errorf("platform: line %d: nil vector: %w", n, api.ErrInvalidArgument)
	}
	if _, dup := c.lines[n]; dup {
		return fmt.Errorf("platform: line %d already bound: %w", n, api.ErrInvalidArgument)
	}
	l := &line{num: n, priority: prio, vector: vector, cpu: affinity.Unpinned, kick: make(chan struct{}, 1)}
	c.lines[n] = l
	c.order = append(c.order, l)
	sort.SliceStable(c.order, func(i, j int) bool {
		if c.order[i].priority != c.order[j].priority {
			return c.order[i].priority > c.order[j].priority
		}
		return c.order[i].num < c.order[j].num
	})
	log.Debugf("bound line %d at priority %d", n, prio)
	return nil
}

// Pin asks Run to dispatch line n from an OS thread restricted to cpu.
// affinity.Unpinned clears the request.
func (c *Controller) Pin(n, cpu int) error {
	if c.running.Load() {
		return fmt.Errorf("platform: pin line %d while running: %w", n, api.ErrNotSupported)
	}
	l, ok := c.lines[n]
	if !ok {
		return fmt.Errorf("platform: line %d: %w", n, api.ErrNotFound)
	}
	l.cpu = cpu
	return nil
}

// Pend marks line n pending. Pending an already pending line has no further
// effect. It reports false for an unbound line.
func (c *Controller) Pend(n int) bool {
	l, ok := c.lines[n]
	if !ok {
		return false
	}
	l.pending.Store(true)
	select {
	case l.kick <- struct{}{}:
	default:
	}
	return true
}

// PendFunc returns a hook pending line n, for thr.Thread.SetPendHook.
func (c *Controller) PendFunc(n int) func() {
	return func() { c.Pend(n) }
}

// IsPending reports whether line n is pending.
func (c *Controller) IsPending(n int) bool {
	l, ok := c.lines[n]
	return ok && l.pending.Load()
}

// Fired returns how many times line n's vector ran.
func (c *Controller) Fired(n int) uint64 {
	if l, ok := c.lines[n]; ok {
		return l.fired.Load()
	}
	return 0
}

// DispatchPending runs pending vectors, always choosing the highest priority
// pending line next, until no line is pending. It returns the number of
// vector invocations. It must not be used while Run is active.
func (c *Controller) DispatchPending() int {
	n := 0
	for {
		l := c.next()
		if l == nil {
			return n
		}
		l.fired.Add(1)
		l.vector()
		n++
	}
}

func (c *Controller) next() *line {
	for _, l := range c.order {
		if l.pending.CompareAndSwap(true, false) {
			return l
		}
	}
	return nil
}

// Run dispatches every line from its own goroutine until ctx is done.
func (c *Controller) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return fmt.Errorf("platform: already running: %w", api.ErrNotSupported)
	}
	defer c.running.Store(false)

	log.Infof("dispatching %d lines", len(c.order))
	g, ctx := errgroup.WithContext(ctx)
	for _, l := range c.order {
		l := l
		g.Go(func() error {
			if l.cpu != affinity.Unpinned {
				// The goroutine exits locked, so the restricted thread is
				// discarded instead of returning to the scheduler.
				if err := affinity.Pin(l.cpu); err != nil {
					log.Warningf("line %d: %s", l.num, err)
				} else {
					log.Debugf("line %d pinned to cpu %d", l.num, l.cpu)
				}
			}
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-l.kick:
					for l.pending.CompareAndSwap(true, false) {
						l.fired.Add(1)
						l.vector()
					}
				}
			}
		})
	}
	err := g.Wait()
	log.Infof("dispatch stopped")
	return err
}

// Lines returns bound line numbers, highest priority first.
func (c *Controller) Lines() []int {
	out := make([]int, len(c.order))
	for i, l := range c.order {
		out[i] = l.num
	}
	return out
}
