// control/counters.go
// Author: momentics <momentics@gmail.com>
//
// Inventory counters. Every field is written from interrupt context, so the
// only permitted operation on the hot path is a single atomic add.

package control

import "sync/atomic"

// Counters is the set of runtime inventory counters.
type Counters struct {
	SchedulerInvocations atomic.Uint64 // Thread activations that drained the queue
	Reentries            atomic.Uint64 // activations ignored because a drain was running
	FiberResumes         atomic.Uint64
	FibersSpawned        atomic.Uint64
	FibersCompleted      atomic.Uint64
	Abandoned            atomic.Uint64 // pending fibers that registered no wake
	Cancelled            atomic.Uint64
	QueueFull            atomic.Uint64
	WakesPosted          atomic.Uint64
	StaleWakes           atomic.Uint64 // posts to completed or cancelled slots
	Claims               atomic.Uint64
	ClaimConflicts       atomic.Uint64
	CASRetries           atomic.Uint64
	Allocations          atomic.Uint64
	Releases             atomic.Uint64
	AllocFailures        atomic.Uint64
	StreamOverflows      atomic.Uint64
}

// Default is the process-wide inventory used when a component is not given
// its own.
var Default = &Counters{}

// Or returns c, or Default when c is nil.
func Or(c *Counters) *Counters {
	if c == nil {
		return Default
	}
	return c
}

// Snapshot is a point-in-time copy of Counters.
type Snapshot struct {
	SchedulerInvocations uint64 `cbor:"scheduler_invocations" json:"scheduler_invocations"`
	Reentries            uint64 `cbor:"reentries" json:"reentries"`
	FiberResumes         uint64 `cbor:"fiber_resumes" json:"fiber_resumes"`
	FibersSpawned        uint64 `cbor:"fibers_spawned" json:"fibers_spawned"`
	FibersCompleted      uint64 `cbor:"fibers_completed" json:"fibers_completed"`
	Abandoned            uint64 `cbor:"abandoned" json:"abandoned"`
	Cancelled            uint64 `cbor:"cancelled" json:"cancelled"`
	QueueFull            uint64 `cbor:"queue_full" json:"queue_full"`
	WakesPosted          uint64 `cbor:"wakes_posted" json:"wakes_posted"`
	StaleWakes           uint64 `cbor:"stale_wakes" json:"stale_wakes"`
	Claims               uint64 `cbor:"claims" json:"claims"`
	ClaimConflicts       uint64 `cbor:"claim_conflicts" json:"claim_conflicts"`
	CASRetries           uint64 `cbor:"cas_retries" json:"cas_retries"`
	Allocations          uint64 `cbor:"allocations" json:"allocations"`
	Releases             uint64 `cbor:"releases" json:"releases"`
	AllocFailures        uint64 `cbor:"alloc_failures" json:"alloc_failures"`
	StreamOverflows      uint64 `cbor:"stream_overflows" json:"stream_overflows"`
}

// Snapshot reads every counter. Counters are read independently, so a
// snapshot taken while the core runs is not a consistent cut.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		SchedulerInvocations: c.SchedulerInvocations.Load(),
		Reentries:            c.Reentries.Load(),
		FiberResumes:         c.FiberResumes.Load(),
		FibersSpawned:        c.FibersSpawned.Load(),
		FibersCompleted:      c.FibersCompleted.Load(),
		Abandoned:            c.Abandoned.Load(),
		Cancelled:            c.Cancelled.Load(),
		QueueFull:            c.QueueFull.Load(),
		WakesPosted:          c.WakesPosted.Load(),
		StaleWakes:           c.StaleWakes.Load(),
		Claims:               c.Claims.Load(),
		ClaimConflicts:       c.ClaimConflicts.Load(),
		CASRetries:           c.CASRetries.Load(),
		Allocations:          c.Allocations.Load(),
		Releases:             c.Releases.Load(),
		AllocFailures:        c.AllocFailures.Load(),
		StreamOverflows:      c.StreamOverflows.Load(),
	}
}

// Map flattens the snapshot into named values for api.Diagnostics.Stats.
func (s Snapshot) Map() map[string]any {
	return map[string]any{
		"scheduler_invocations": s.SchedulerInvocations,
		"reentries":             s.Reentries,
		"fiber_resumes":         s.FiberResumes,
		"fibers_spawned":        s.FibersSpawned,
		"fibers_completed":      s.FibersCompleted,
		"abandoned":             s.Abandoned,
		"cancelled":             s.Cancelled,
		"queue_full":            s.QueueFull,
		"wakes_posted":          s.WakesPosted,
		"stale_wakes":           s.StaleWakes,
		"claims":                s.Claims,
		"claim_conflicts":       s.ClaimConflicts,
		"cas_retries":           s.CASRetries,
		"allocations":           s.Allocations,
		"releases":              s.Releases,
		"alloc_failures":        s.AllocFailures,
		"stream_overflows":      s.StreamOverflows,
	}
}
