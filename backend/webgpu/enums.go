//go:build js && wasm

package webgpu

import (
	"github.com/gogpu/gputypes"
)

// The WebGPU JavaScript API names enum values with strings.

var textureFormats = map[gputypes.TextureFormat]string{
	gputypes.TextureFormatRGBA8Unorm:     "rgba8unorm",
	gputypes.TextureFormatRGBA8UnormSrgb: "rgba8unorm-srgb",
	gputypes.TextureFormatBGRA8Unorm:     "bgra8unorm",
	gputypes.TextureFormatR8Unorm:        "r8unorm",
	gputypes.TextureFormatRGBA32Float:    "rgba32float",
	gputypes.TextureFormatDepth32Float:   "depth32float",
}

var vertexFormats = map[gputypes.VertexFormat]string{
	gputypes.VertexFormatFloat32:   "float32",
	gputypes.VertexFormatFloat32x2: "float32x2",
	gputypes.VertexFormatFloat32x3: "float32x3",
	gputypes.VertexFormatFloat32x4: "float32x4",
	gputypes.VertexFormatUnorm8x4:  "unorm8x4",
}

func indexFormat(f gputypes.IndexFormat) string {
	if f == gputypes.IndexFormatUint32 {
		return "uint32"
	}
	return "uint16"
}

func compareFunction(f gputypes.CompareFunction) string {
	switch f {
	case gputypes.CompareFunctionNever:
		return "never"
	case gputypes.CompareFunctionLess:
		return "less"
	case gputypes.CompareFunctionEqual:
		return "equal"
	case gputypes.CompareFunctionLessEqual:
		return "less-equal"
	case gputypes.CompareFunctionGreater:
		return "greater"
	case gputypes.CompareFunctionNotEqual:
		return "not-equal"
	case gputypes.CompareFunctionGreaterEqual:
		return "greater-equal"
	}
	return "always"
}

func cullMode(m gputypes.CullMode) string {
	switch m {
	case gputypes.CullModeFront:
		return "front"
	case gputypes.CullModeBack:
		return "back"
	}
	return "none"
}

func frontFace(f gputypes.FrontFace) string {
	if f == gputypes.FrontFaceCW {
		return "cw"
	}
	return "ccw"
}

func addressMode(m gputypes.AddressMode) string {
	switch m {
	case gputypes.AddressModeRepeat:
		return "repeat"
	case gputypes.AddressModeMirrorRepeat:
		return "mirror-repeat"
	}
	return "clamp-to-edge"
}

func filterMode(m gputypes.FilterMode) string {
	if m == gputypes.FilterModeLinear {
		return "linear"
	}
	return "nearest"
}

func mipmapFilterMode(m gputypes.MipmapFilterMode) string {
	if m == gputypes.MipmapFilterModeLinear {
		return "linear"
	}
	return "nearest"
}

func blendFactor(f gputypes.BlendFactor) string {
	switch f {
	case gputypes.BlendFactorZero:
		return "zero"
	case gputypes.BlendFactorSrcAlpha:
		return "src-alpha"
	case gputypes.BlendFactorOneMinusSrcAlpha:
		return "one-minus-src-alpha"
	case gputypes.BlendFactorSrc:
		return "src"
	case gputypes.BlendFactorOneMinusSrc:
		return "one-minus-src"
	case gputypes.BlendFactorDst:
		return "dst"
	case gputypes.BlendFactorOneMinusDst:
		return "one-minus-dst"
	case gputypes.BlendFactorDstAlpha:
		return "dst-alpha"
	case gputypes.BlendFactorOneMinusDstAlpha:
		return "one-minus-dst-alpha"
	}
	return "one"
}

func blendOperation(op gputypes.BlendOperation) string {
	switch op {
	case gputypes.BlendOperationSubtract:
		return "subtract"
	case gputypes.BlendOperationReverseSubtract:
		return "reverse-subtract"
	case gputypes.BlendOperationMin:
		return "min"
	case gputypes.BlendOperationMax:
		return "max"
	}
	return "add"
}

// blendState converts a blend state; nil disables blending.
func blendState(s *gputypes.BlendState) any {
	if s == nil {
		return nil
	}
	component := func(c gputypes.BlendComponent) obj {
		return obj{
			"srcFactor": blendFactor(c.SrcFactor),
			"dstFactor": blendFactor(c.DstFactor),
			"operation": blendOperation(c.Operation),
		}
	}
	return obj{"color": component(s.Color), "alpha": component(s.Alpha)}
}

// Usage and stage bit flags of the JavaScript API.
const (
	bufferMapRead  = 0x0001
	bufferCopySrc  = 0x0004
	bufferCopyDst  = 0x0008
	bufferIndex    = 0x0010
	bufferVertex   = 0x0020
	bufferUniform  = 0x0040
	textureCopySrc = 0x01
	textureCopyDst = 0x02
	textureBinding = 0x04
	textureTarget  = 0x10
	stageVertex    = 0x1
	stageFragment  = 0x2
	mapRead        = 0x0001
)
