// Package wgpu is the native GPU backend binding built on gogpu/wgpu.
//
// It implements gpucore.Adapter over a WebGPU device: Vulkan, Metal, DX12
// or GLES depending on the platform, selected by the gogpu/wgpu HAL.
// Importing the package registers it under backend.BackendWGPU:
//
//	import _ "github.com/gogpu/g3d/backend/wgpu"
//
// # Immediate calls over a deferred API
//
// gpucore.Adapter is call-per-operation; WebGPU records commands into
// passes. The backend bridges the two:
//
//   - BindTarget ends the open render pass and resets pass state.
//   - Clear is folded into the load operations of the next pass.
//   - The first draw after BindTarget or Clear begins the pass.
//   - Render pipelines are created on first use per program, vertex
//     layout, fixed-function state and attachment formats.
//   - Uniform blocks go into a per-frame arena with one bind group per
//     draw.
//   - Flush ends the pass and submits the command buffer.
//
// # Shader diagnostics
//
// Programs are parsed, lowered and validated with gogpu/naga before the
// device sees them, so compile failures carry line and column text in
// gpucore.BackendError.Diagnostic.
//
// # Host devices
//
// WithDeviceProvider attaches to a device owned by the host (for example
// a gogpu window) instead of opening one. The backend never releases a
// provided device.
package wgpu
