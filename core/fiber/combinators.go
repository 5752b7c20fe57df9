// File: core/fiber/combinators.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Combinators hold their children by value inside their own struct and keep
// no per-step allocation. Every composite forwards Drop to the children that
// are still live, so a discarded task releases the registrations its leaves
// hold.

package fiber

import "github.com/momentics/hioload-rt/api"

// drop releases f if it holds resources.
func drop(f any) {
	if d, ok := f.(interface{ Drop() }); ok {
		d.Drop()
	}
}

// FuncFiber adapts a step function.
type FuncFiber[T any] struct {
	step func(cx *Context) (T, bool)
}

// Func builds a fiber from a step function.
func Func[T any](step func(cx *Context) (T, bool)) *FuncFiber[T] {
	return &FuncFiber[T]{step: step}
}

func (f *FuncFiber[T]) Resume(cx *Context) (T, bool) { return f.step(cx) }

// ReadyFiber completes on its first step.
type ReadyFiber[T any] struct{ value T }

// Ready returns a fiber that completes immediately with v.
func Ready[T any](v T) *ReadyFiber[T] { return &ReadyFiber[T]{value: v} }

func (f *ReadyFiber[T]) Resume(*Context) (T, bool) { return f.value, true }

// SeqFiber runs first to completion, then second.
type SeqFiber[A, B any] struct {
	first     Fiber[A]
	second    Fiber[B]
	firstDone bool
}

// Then sequences two fibers, discarding the value of the first.
func Then[A, B any](first Fiber[A], second Fiber[B]) *SeqFiber[A, B] {
	return &SeqFiber[A, B]{first: first, second: second}
}

func (f *SeqFiber[A, B]) Resume(cx *Context) (B, bool) {
	if !f.firstDone {
		if _, ok := f.first.Resume(cx); !ok {
			var zero B
			return zero, false
		}
		f.firstDone = true
	}
	return f.second.Resume(cx)
}

// Drop releases the child currently running.
func (f *SeqFiber[A, B]) Drop() {
	if !f.firstDone {
		drop(f.first)
		return
	}
	drop(f.second)
}

// BindFiber runs first, then the fiber built from its value.
type BindFiber[A, B any] struct {
	first Fiber[A]
	next  func(A) Fiber[B]
	cur   Fiber[B]
}

// AndThen sequences first with the fiber next builds from its value.
func AndThen[A, B any](first Fiber[A], next func(A) Fiber[B]) *BindFiber[A, B] {
	return &BindFiber[A, B]{first: first, next: next}
}

func (f *BindFiber[A, B]) Resume(cx *Context) (B, bool) {
	if f.cur == nil {
		a, ok := f.first.Resume(cx)
		if !ok {
			var zero B
			return zero, false
		}
		f.cur = f.next(a)
	}
	return f.cur.Resume(cx)
}

func (f *BindFiber[A, B]) Drop() {
	if f.cur != nil {
		drop(f.cur)
		return
	}
	drop(f.first)
}

// MapFiber transforms the completion value of its child.
type MapFiber[A, B any] struct {
	inner Fiber[A]
	fn    func(A) B
}

// Map applies fn to the value of f.
func Map[A, B any](f Fiber[A], fn func(A) B) *MapFiber[A, B] {
	return &MapFiber[A, B]{inner: f, fn: fn}
}

func (f *MapFiber[A, B]) Resume(cx *Context) (B, bool) {
	a, ok := f.inner.Resume(cx)
	if !ok {
		var zero B
		return zero, false
	}
	return f.fn(a), true
}

func (f *MapFiber[A, B]) Drop() { drop(f.inner) }

// Discard drops the value of f.
func Discard[T any](f Fiber[T]) *MapFiber[T, Unit] {
	return Map(f, func(T) Unit { return Unit{} })
}

// Won is the completion of a race.
type Won[T any] struct {
	Index int // position of the winner among the racers
	Value T
}

// RaceFiber resumes every racer on each step and completes with the first one
// to finish. Ties go to the lowest index. The losers are dropped as soon as
// the winner completes.
type RaceFiber[T any] struct {
	racers []Fiber[T]
}

// Race runs racers concurrently within one task.
func Race[T any](racers ...Fiber[T]) *RaceFiber[T] {
	return &RaceFiber[T]{racers: racers}
}

func (f *RaceFiber[T]) Resume(cx *Context) (Won[T], bool) {
	for i, r := range f.racers {
		if v, ok := r.Resume(cx); ok {
			for j, loser := range f.racers {
				if j != i {
					drop(loser)
				}
			}
			return Won[T]{Index: i, Value: v}, true
		}
	}
	return Won[T]{}, false
}

// Drop releases every racer.
func (f *RaceFiber[T]) Drop() {
	for _, r := range f.racers {
		drop(r)
	}
}

// TryFiber chains fallible steps, stopping at the first failure.
type TryFiber[A, B any] struct {
	first Fiber[api.Result[A]]
	next  func(A) Fiber[api.Result[B]]
	cur   Fiber[api.Result[B]]
}

// Try runs first; on success it continues with next, on failure it completes
// with the error without running next.
func Try[A, B any](first Fiber[api.Result[A]], next func(A) Fiber[api.Result[B]]) *TryFiber[A, B] {
	return &TryFiber[A, B]{first: first, next: next}
}

func (f *TryFiber[A, B]) Resume(cx *Context) (api.Result[B], bool) {
	if f.cur == nil {
		r, ok := f.first.Resume(cx)
		if !ok {
			return api.Result[B]{}, false
		}
		if r.Err != nil {
			return api.Fail[B](r.Err), true
		}
		f.cur = f.next(r.Value)
	}
	return f.cur.Resume(cx)
}

func (f *TryFiber[A, B]) Drop() {
	if f.cur != nil {
		drop(f.cur)
		return
	}
	drop(f.first)
}

// RepeatFiber runs a step fiber factory n times.
type RepeatFiber[T any] struct {
	build func(i int) Fiber[T]
	n, i  int
	cur   Fiber[T]
	last  T
}

// Repeat runs the fibers built by mk for i = 0..n-1 one after another and
// completes with the value of the last.
func Repeat[T any](n int, mk func(i int) Fiber[T]) *RepeatFiber[T] {
	return &RepeatFiber[T]{build: mk, n: n}
}

func (f *RepeatFiber[T]) Resume(cx *Context) (T, bool) {
	for f.i < f.n {
		if f.cur == nil {
			f.cur = f.build(f.i)
		}
		v, ok := f.cur.Resume(cx)
		if !ok {
			var zero T
			return zero, false
		}
		f.last = v
		f.cur = nil
		f.i++
	}
	return f.last, true
}

func (f *RepeatFiber[T]) Drop() {
	if f.cur != nil {
		drop(f.cur)
	}
}
