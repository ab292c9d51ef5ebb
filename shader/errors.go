package shader

import (
	"errors"
	"fmt"

	"github.com/gogpu/g3d/gpucore"
)

var (
	// ErrTemplate reports a template that failed to parse or render.
	ErrTemplate = errors.New("shader: template error")

	// ErrStageMismatch reports a template used for a fingerprint of
	// another stage.
	ErrStageMismatch = errors.New("shader: template stage mismatch")

	// ErrNoTemplate reports a stage without a template.
	ErrNoTemplate = errors.New("shader: no template for stage")
)

// Error is a program synthesis or compile failure tied to the
// fingerprint that produced it.
type Error struct {
	Fingerprint Fingerprint
	// Diagnostic is the backend's compiler output, if any.
	Diagnostic string
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("shader: %s: %v", e.Fingerprint, e.Err)
	if e.Diagnostic != "" {
		msg += "\n" + e.Diagnostic
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// memoizable reports whether err is a property of the program itself
// rather than of the device, so retrying cannot succeed.
func memoizable(err error) bool {
	if errors.Is(err, ErrTemplate) || errors.Is(err, ErrStageMismatch) || errors.Is(err, ErrNoTemplate) {
		return true
	}
	var be *gpucore.BackendError
	return errors.As(err, &be) && be.Kind == gpucore.KindCompile
}
