package resource

import (
	"errors"
	"fmt"
)

// Sentinel errors. Every failure is an *Error wrapping one of these, or
// a *gpucore.BackendError propagated from the adapter.
var (
	// ErrInvalidDescriptor reports a descriptor that cannot be uploaded.
	ErrInvalidDescriptor = errors.New("resource: invalid descriptor")

	// ErrUseAfterFree reports use of a released handle, including a
	// second Release.
	ErrUseAfterFree = errors.New("resource: use after free")

	// ErrDimensionMismatch reports target attachments of different sizes.
	ErrDimensionMismatch = errors.New("resource: attachment dimension mismatch")

	// ErrForeignHandle reports a handle issued by another registry.
	ErrForeignHandle = errors.New("resource: handle belongs to another registry")

	// ErrWrongKind reports a handle of an unexpected kind.
	ErrWrongKind = errors.New("resource: wrong handle kind")

	// ErrNullHandle reports use of the zero Handle.
	ErrNullHandle = errors.New("resource: null handle")

	// ErrClosed reports use of a closed registry.
	ErrClosed = errors.New("resource: registry closed")
)

// Error describes a failed registry operation.
type Error struct {
	Op     string
	Handle Handle
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := "resource: " + e.Op
	if !e.Handle.IsZero() {
		msg += " " + e.Handle.String()
	}
	msg += ": " + e.Err.Error()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Unwrap returns the sentinel or backend cause.
func (e *Error) Unwrap() error {
	return e.Err
}

func invalid(op, format string, args ...any) error {
	return &Error{Op: op, Err: ErrInvalidDescriptor, Detail: fmt.Sprintf(format, args...)}
}
