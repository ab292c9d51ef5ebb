package g3d

import (
	"errors"

	"github.com/gogpu/g3d/gpucore"
	"github.com/gogpu/g3d/render"
	"github.com/gogpu/g3d/resource"
	"github.com/gogpu/g3d/target"
)

var (
	// ErrContextLost is returned by every call on a Context whose device
	// was lost. Backend errors of kind KindContextLost match it too.
	ErrContextLost = gpucore.ErrContextLost

	// ErrClosed is returned by calls on a closed Context.
	ErrClosed = errors.New("g3d: context closed")

	// ErrInvalidConfig reports a configuration value out of range.
	ErrInvalidConfig = errors.New("g3d: invalid config")
)

// Re-exported sentinels of the engine packages.
var (
	ErrInvalidDescriptor = resource.ErrInvalidDescriptor
	ErrUseAfterFree      = resource.ErrUseAfterFree
	ErrForeignHandle     = resource.ErrForeignHandle
	ErrWrongKind         = resource.ErrWrongKind
	ErrDimensionMismatch = target.ErrDimensionMismatch
	ErrStackUnderflow    = target.ErrStackUnderflow
	ErrNoShadowMap       = render.ErrNoShadowMap
)

// BackendError is the error type backends return.
type BackendError = gpucore.BackendError
