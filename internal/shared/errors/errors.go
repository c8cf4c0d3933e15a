package errors

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrMissingBotToken    = errors.New("TELEGRAM_BOT_TOKEN environment variable is required")
	ErrMissingSource      = errors.New("SOURCE_CHAT environment variable is required")
	ErrMissingDestination = errors.New("DESTINATION_CHAT_ID environment variable is required")
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrCursorNotFound     = errors.New("cursor not found")
	ErrSourceNotConnected = errors.New("source is not connected")

	// Fetch and delivery taxonomy.
	ErrTransientFetch        = errors.New("transient fetch error")
	ErrTransientSend         = errors.New("transient send error")
	ErrFatalAuth             = errors.New("authentication failure")
	ErrFatalSend             = errors.New("permanent send failure")
	ErrRetryExhausted        = errors.New("retry attempts exhausted")
	ErrUnsupportedAttachment = errors.New("unsupported attachment")
)

// ThrottleError is a mandatory wait requested by the remote side.
type ThrottleError struct {
	RetryAfter time.Duration
	Err        error
}

func (e *ThrottleError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("throttled: retry after %s", e.RetryAfter)
	}
	return fmt.Sprintf("throttled: retry after %s: %v", e.RetryAfter, e.Err)
}

func (e *ThrottleError) Unwrap() error { return e.Err }

// AsThrottle reports whether err carries a throttle signal and returns it.
func AsThrottle(err error) (*ThrottleError, bool) {
	var t *ThrottleError
	if errors.As(err, &t) {
		return t, true
	}
	return nil, false
}

// Mark tags err with a sentinel so that errors.Is matches both the sentinel
// and everything err already wraps.
func Mark(err, sentinel error) error {
	if err == nil {
		return nil
	}
	return &marked{err: err, sentinel: sentinel}
}

type marked struct {
	err      error
	sentinel error
}

func (m *marked) Error() string   { return m.sentinel.Error() + ": " + m.err.Error() }
func (m *marked) Unwrap() []error { return []error{m.err, m.sentinel} }

// Is and As are re-exported so callers importing this package under the
// name "errors" keep access to the standard helpers.
func Is(err, target error) bool { return errors.Is(err, target) }
func As(err error, target any) bool { return errors.As(err, target) }

// New is re-exported from the standard library.
func New(text string) error { return errors.New(text) }

// IsCanceled reports whether err is a context cancellation or deadline.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
