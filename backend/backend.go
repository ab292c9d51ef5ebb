package backend

import (
	"errors"

	"github.com/gogpu/g3d/gpucore"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not available.
	ErrBackendNotAvailable = errors.New("backend: not available")
)

// Backend name constants.
const (
	// BackendWGPU is the native WebGPU backend (gogpu/wgpu).
	BackendWGPU = "wgpu"
	// BackendWebGPU is the browser backend (navigator.gpu).
	BackendWebGPU = "webgpu"
	// BackendSoftware is the CPU reference backend.
	BackendSoftware = "software"
)

// Factory creates a new, uninitialized adapter.
type Factory func() gpucore.Adapter
