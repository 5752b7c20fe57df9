// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for hioload-rt.
// Every condition the core reports is a local, recoverable value; callers
// compare with errors.Is.

package api

import (
	"errors"
	"fmt"
)

// Core error taxonomy.
var (
	// ErrAlreadyTaken reports a second exclusive claim of one resource identity.
	ErrAlreadyTaken = errors.New("resource already taken")
	// ErrOutOfRange reports a field value that does not fit the field width.
	ErrOutOfRange = errors.New("value out of field range")
	// ErrQueueFull reports scheduler backpressure on a thread queue.
	ErrQueueFull = errors.New("thread queue full")
	// ErrOutOfMemory reports allocator exhaustion.
	ErrOutOfMemory = errors.New("out of memory")
	// ErrWrongVariant reports access to a field under a mismatched layout.
	ErrWrongVariant = errors.New("wrong register variant")
)

// Common errors used across the library.
var (
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrNotSupported    = fmt.Errorf("operation not supported")
	ErrNotFound        = fmt.Errorf("resource not found")
	ErrClosed          = fmt.Errorf("resource is closed")
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeAlreadyTaken
	ErrCodeOutOfRange
	ErrCodeQueueFull
	ErrCodeOutOfMemory
	ErrCodeWrongVariant
	ErrCodeInvalidArgument
	ErrCodeNotSupported
	ErrCodeNotFound
	ErrCodeClosed
	ErrCodeInternal
)

var codeNames = [...]string{
	ErrCodeOK:              "ok",
	ErrCodeAlreadyTaken:    "already_taken",
	ErrCodeOutOfRange:      "out_of_range",
	ErrCodeQueueFull:       "queue_full",
	ErrCodeOutOfMemory:     "out_of_memory",
	ErrCodeWrongVariant:    "wrong_variant",
	ErrCodeInvalidArgument: "invalid_argument",
	ErrCodeNotSupported:    "not_supported",
	ErrCodeNotFound:        "not_found",
	ErrCodeClosed:          "closed",
	ErrCodeInternal:        "internal",
}

func (c ErrorCode) String() string {
	if c >= 0 && int(c) < len(codeNames) {
		return codeNames[c]
	}
	return "unknown"
}

var sentinels = []struct {
	err  error
	code ErrorCode
}{
	{ErrAlreadyTaken, ErrCodeAlreadyTaken},
	{ErrOutOfRange, ErrCodeOutOfRange},
	{ErrQueueFull, ErrCodeQueueFull},
	{ErrOutOfMemory, ErrCodeOutOfMemory},
	{ErrWrongVariant, ErrCodeWrongVariant},
	{ErrInvalidArgument, ErrCodeInvalidArgument},
	{ErrNotSupported, ErrCodeNotSupported},
	{ErrNotFound, ErrCodeNotFound},
	{ErrClosed, ErrCodeClosed},
}

// CodeOf maps err to its ErrorCode. Wrapped sentinels are recognized.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ErrCodeOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	for _, s := range sentinels {
		if errors.Is(err, s.err) {
			return s.code
		}
	}
	return ErrCodeInternal
}

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Context) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (context: %+v)", e.Message, e.Context)
}

// Unwrap exposes the wrapped sentinel, if any.
func (e *Error) Unwrap() error { return e.cause }

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// Wrap builds a structured error around a sentinel, keeping errors.Is working.
func Wrap(err error, message string) *Error {
	return &Error{
		Code:    CodeOf(err),
		Message: message + ": " + err.Error(),
		Context: make(map[string]any),
		cause:   err,
	}
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}
