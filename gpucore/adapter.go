package gpucore

import (
	"slices"

	"github.com/gogpu/gputypes"
)

// Adapter is the backend binding: the primitive operations of one
// graphics API. Every method maps to exactly one underlying call.
//
// Implementations:
//   - backend/wgpu: native WebGPU through github.com/gogpu/wgpu
//   - backend/webgpu: the browser navigator.gpu API (js && wasm)
//   - backend/software: deterministic CPU reference rasterizer
//
// Adapters are not safe for concurrent use; a g3d.Context calls them
// from its owning goroutine only.
type Adapter interface {
	// Name returns the backend identifier (e.g., "software", "wgpu").
	Name() string

	// Init acquires the device. It is idempotent.
	Init() error

	// Capabilities describes what the backend supports.
	Capabilities() Capabilities

	// Close releases the device and every object still alive.
	Close()

	// ConfigureSurface resizes the default surface in physical pixels.
	ConfigureSurface(width, height int) error

	CreateBuffer(desc BufferDesc) (BufferID, error)
	WriteBuffer(id BufferID, offset int, data []byte) error
	DestroyBuffer(id BufferID) error

	CreateTexture(desc TextureDesc) (TextureID, error)
	WriteTexture(id TextureID, level int, data []byte) error
	// ReadTexture returns the tightly packed content of mip level 0.
	ReadTexture(id TextureID) ([]byte, error)
	DestroyTexture(id TextureID) error

	// CompileProgram compiles and links a program.
	CompileProgram(src ProgramSource) (ProgramID, error)
	DestroyProgram(id ProgramID) error

	CreateTarget(desc TargetDesc) (TargetID, error)
	DestroyTarget(id TargetID) error

	// BindTarget makes id (DefaultTarget for the surface) the destination
	// of subsequent clears and draws and sets the viewport. Binding a
	// target resets all other pass state.
	BindTarget(id TargetID, vp Viewport) error
	Clear(op ClearOp) error
	SetViewport(vp Viewport) error
	UseProgram(id ProgramID) error
	SetDepth(d DepthState) error
	SetBlend(b BlendMode) error
	SetCull(c CullState) error
	BindTexture(unit int, id TextureID) error
	BindVertexBuffer(id BufferID) error
	BindIndexBuffer(id BufferID) error
	SetUniforms(u *Uniforms) error

	Draw(vertexCount, firstVertex int) error
	DrawIndexed(indexCount, firstIndex int) error

	// Flush submits all recorded work.
	Flush() error
	// Discard drops work recorded since the last Flush or readback, so
	// an aborted frame leaves no partial output behind.
	Discard() error
}

// Capabilities describes a backend.
type Capabilities struct {
	// Backend names the underlying API (e.g., "Vulkan", "WebGPU", "CPU").
	Backend string
	// MaxTextureSize is the largest supported texture dimension.
	MaxTextureSize int
	// MaxColorAttachments is the color attachment limit per target.
	MaxColorAttachments int
	// Formats lists the texture formats the backend accepts.
	Formats []gputypes.TextureFormat
	// SurfaceFormat is the pixel format of the default surface.
	SurfaceFormat gputypes.TextureFormat
	// DepthFormat is the preferred depth attachment format.
	DepthFormat gputypes.TextureFormat
	// ReadBack reports whether ReadTexture is supported.
	ReadBack bool
}

// Supports reports whether the format is in Formats.
func (c Capabilities) Supports(f gputypes.TextureFormat) bool {
	return slices.Contains(c.Formats, f)
}

// DefaultFormats is the format set every g3d backend accepts.
func DefaultFormats() []gputypes.TextureFormat {
	return []gputypes.TextureFormat{
		gputypes.TextureFormatRGBA8Unorm,
		gputypes.TextureFormatRGBA8UnormSrgb,
		gputypes.TextureFormatBGRA8Unorm,
		gputypes.TextureFormatR8Unorm,
		gputypes.TextureFormatRGBA32Float,
		gputypes.TextureFormatDepth32Float,
	}
}
