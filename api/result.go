// Package api
// Author: momentics@gmail.com
//
// Generic result and error propagation. Fibers never abort: a failure is a
// Result value inside the completion, inspected by the caller.

package api

// Result wraps any payload or error.
type Result[T any] struct {
	Value T
	Err   error
}

// Ok builds a successful Result.
func Ok[T any](v T) Result[T] { return Result[T]{Value: v} }

// Fail builds a failed Result.
func Fail[T any](err error) Result[T] { return Result[T]{Err: err} }

// IsOk reports whether the result carries no error.
func (r Result[T]) IsOk() bool { return r.Err == nil }

// Unpack returns the value and the error.
func (r Result[T]) Unpack() (T, error) { return r.Value, r.Err }
