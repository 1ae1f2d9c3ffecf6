package resettable

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrBorrowed is returned by the fallible borrow operations of [Cell]
// when the requested borrow conflicts with one already outstanding.
// It is never merged with any other failure kind.
var ErrBorrowed = errors.New("resettable: already borrowed")

// ErrWouldBlock is returned by the non-blocking acquisition operations
// of [Mutex] and [RWMutex] when the requested access is unavailable.
// The attempt is never retried internally.
var ErrWouldBlock = errors.New("resettable: lock unavailable")

// PoisonError reports that a workspace was poisoned: a panic escaped
// either the reset function or a closure body while exclusive access
// was held, leaving the value possibly inconsistent.
//
// Acquisitions on a poisoned workspace still succeed (the data is
// presumed suspect, not destroyed) but return a *PoisonError
// alongside the access so the caller can decide whether to trust the
// value. The error retains the first panic that caused the poisoning.
type PoisonError struct {
	// Value is the original value passed to panic().
	Value any

	// Stack is the goroutine stack trace at the point of the panic.
	Stack string
}

// Error returns a human-readable representation of the poisoning,
// including the panic value and the full stack trace.
func (e *PoisonError) Error() string {
	return fmt.Sprintf("resettable: poisoned by panic: %v\n\n%s", e.Value, e.Stack)
}

// Unwrap returns nil. PoisonError does not wrap another error.
func (e *PoisonError) Unwrap() error { return nil }

func newPoisonError(v any) *PoisonError {
	// 8 KiB is enough for most stack traces. runtime.Stack truncates
	// gracefully if the buffer is too small.
	buf := make([]byte, 8192)
	n := runtime.Stack(buf, false)
	return &PoisonError{
		Value: v,
		Stack: string(buf[:n]),
	}
}

// IsPoisoned reports whether err (or any error in its chain) is a
// [*PoisonError].
func IsPoisoned(err error) bool {
	if err == nil {
		return false
	}
	var pe *PoisonError
	return errors.As(err, &pe)
}
