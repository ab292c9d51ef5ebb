package gpucore

import (
	"errors"
	"fmt"
)

// Common backend errors.
var (
	// ErrContextLost reports that the underlying device or context is
	// gone. It is fatal to the owning g3d.Context.
	ErrContextLost = errors.New("gpucore: context lost")

	// ErrNotInitialized is returned when operations are called before Init.
	ErrNotInitialized = errors.New("gpucore: adapter not initialized")

	// ErrClosed is returned when operations are called after Close.
	ErrClosed = errors.New("gpucore: adapter closed")

	// ErrUnknownID is returned for IDs the backend never issued or has
	// already destroyed.
	ErrUnknownID = errors.New("gpucore: unknown resource id")

	// ErrDrawRange reports a draw whose first element or count falls
	// outside the bound buffer.
	ErrDrawRange = errors.New("gpucore: draw range outside buffer")
)

// CheckDrawRange validates a draw of count elements starting at first
// over a buffer of n elements. Negative n skips the upper bound, for
// draws that read no buffer.
func CheckDrawRange(first, count, n int) error {
	if first < 0 || count < 0 || n >= 0 && first+count > n {
		return fmt.Errorf("%w: first %d, count %d, buffer holds %d", ErrDrawRange, first, count, n)
	}
	return nil
}

// ErrorKind classifies a BackendError.
type ErrorKind uint8

const (
	// KindInvalidCall is a call the backend cannot execute in its
	// current state (unknown id, no program bound, ...).
	KindInvalidCall ErrorKind = iota
	// KindAllocation is a rejected buffer, texture or target allocation.
	KindAllocation
	// KindCompile is a shader compile or link failure.
	KindCompile
	// KindUnsupported is a format or feature the backend cannot provide.
	KindUnsupported
	// KindContextLost is a lost device or context.
	KindContextLost
)

var kindNames = [...]string{
	KindInvalidCall: "invalid call",
	KindAllocation:  "allocation failed",
	KindCompile:     "compile failed",
	KindUnsupported: "unsupported",
	KindContextLost: "context lost",
}

// String returns the kind description.
func (k ErrorKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("ErrorKind(%d)", k)
}

// BackendError is returned by every failing Adapter call.
type BackendError struct {
	Backend string
	Op      string
	Kind    ErrorKind
	// Diagnostic is compiler or driver text, if any.
	Diagnostic string
	Err        error
}

// NewBackendError builds a BackendError.
func NewBackendError(backend, op string, kind ErrorKind, err error) *BackendError {
	return &BackendError{Backend: backend, Op: op, Kind: kind, Err: err}
}

// CompileError builds a KindCompile BackendError carrying diagnostic text.
func CompileError(backend, op, diagnostic string, err error) *BackendError {
	return &BackendError{Backend: backend, Op: op, Kind: KindCompile, Diagnostic: diagnostic, Err: err}
}

func (e *BackendError) Error() string {
	msg := fmt.Sprintf("gpucore: %s: %s: %s", e.Backend, e.Op, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Diagnostic != "" && (e.Err == nil || e.Err.Error() != e.Diagnostic) {
		msg += ": " + e.Diagnostic
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *BackendError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrContextLost) hold for context-lost errors.
func (e *BackendError) Is(target error) bool {
	return target == ErrContextLost && e.Kind == KindContextLost
}

// IsContextLost reports whether err signals a lost context.
func IsContextLost(err error) bool {
	return errors.Is(err, ErrContextLost)
}

// Diagnostic extracts compiler diagnostic text from err, if any.
func Diagnostic(err error) string {
	var be *BackendError
	if errors.As(err, &be) {
		if be.Diagnostic != "" {
			return be.Diagnostic
		}
		if be.Err != nil {
			return be.Err.Error()
		}
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
