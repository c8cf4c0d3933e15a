package errors

import (
	"context"
	"errors"
)

// Class tells the archive pipeline what to do with a failed operation.
type Class int

const (
	// ClassRetryable covers transient failures retried with bounded backoff.
	ClassRetryable Class = iota
	// ClassThrottled is a mandatory wait; always retried, never counted.
	ClassThrottled
	// ClassFatal stops the run.
	ClassFatal
	// ClassCanceled means the caller's context ended.
	ClassCanceled
	// ClassUnknown is returned for a nil error.
	ClassUnknown
)

// String returns a human-readable name for the class.
func (c Class) String() string {
	switch c {
	case ClassRetryable:
		return "retryable"
	case ClassThrottled:
		return "throttled"
	case ClassFatal:
		return "fatal"
	case ClassCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Classify maps an error from a source, sink or store onto a Class.
//
// Throttle signals win over everything else, then explicit fatal markers,
// then cancellation. Anything unrecognised is treated as retryable so that a
// flaky network never ends a run on the first failure.
func Classify(err error) Class {
	if err == nil {
		return ClassUnknown
	}
	if _, ok := AsThrottle(err); ok {
		return ClassThrottled
	}
	if errors.Is(err, ErrFatalAuth) ||
		errors.Is(err, ErrFatalSend) ||
		errors.Is(err, ErrRetryExhausted) ||
		errors.Is(err, ErrSourceNotConnected) {
		return ClassFatal
	}
	if errors.Is(err, context.Canceled) {
		return ClassCanceled
	}
	return ClassRetryable
}

// IsFatal reports whether err must stop the run.
func IsFatal(err error) bool { return Classify(err) == ClassFatal }
