package gpucore

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/g3d/geom"
)

// Shader resource limits shared by templates and backends.
const (
	// MaxLights is the number of light slots in the uniform block.
	MaxLights = 4
	// MaxShadows is the number of shadow map slots.
	MaxShadows = 2
)

// Texture unit assignment shared by templates and backends.
const (
	// UnitBaseColor samples the material base color map, or the input
	// color texture of a post pass.
	UnitBaseColor = 0
	// UnitShadow0 is the first shadow map unit; shadow i is bound at
	// UnitShadow0+i.
	UnitShadow0 = 1
	// UnitGBufferPosition and UnitGBufferNormal hold the G-buffer world
	// positions and normals read by light programs. Light programs read
	// the albedo from UnitBaseColor.
	UnitGBufferPosition = UnitShadow0 + MaxShadows
	UnitGBufferNormal   = UnitGBufferPosition + 1
	// MaxTextureUnits is the number of texture units a program may use.
	MaxTextureUnits = UnitGBufferNormal + 1
)

// G-buffer color attachment order written by geometry programs.
const (
	GBufferAlbedo = iota
	GBufferPosition
	GBufferNormal
	// GBufferAttachments is the number of G-buffer color attachments.
	GBufferAttachments
)

// LightKind selects the light model of one light slot.
type LightKind uint8

const (
	// LightDirectional shines along Direction from infinitely far away.
	LightDirectional LightKind = iota
	// LightPoint radiates from Position.
	LightPoint
	// LightSpot radiates from Position within a cone around Direction.
	LightSpot
)

// LightUniform is one packed light slot.
type LightUniform struct {
	Kind      LightKind
	Position  geom.Vec3
	Direction geom.Vec3
	// Color is the radiance: color multiplied by intensity.
	Color [3]float32
	Range float32
	// InnerCos and OuterCos are the spot cone cosines.
	InnerCos float32
	OuterCos float32
	// Shadow is the shadow slot sampled by this light, or -1.
	Shadow int
}

// Uniforms is the per-draw uniform block. Its byte layout, produced by
// AppendBytes, matches the Uniforms struct declared by every WGSL
// template.
type Uniforms struct {
	Model    geom.Mat4
	ViewProj geom.Mat4
	Normal   geom.Mat4

	BaseColor   [4]float32
	Emissive    [3]float32
	AlphaCutoff float32
	CameraPos   geom.Vec3
	Shininess   float32
	Ambient     [3]float32
	Exposure    float32
	ShadowBias  float32

	ShadowMatrices [MaxShadows]geom.Mat4
	Lights         []LightUniform
}

// UniformSize is the encoded byte size of Uniforms.
const UniformSize = 3*64 + 5*16 + MaxShadows*64 + MaxLights*64

// AppendBytes appends the little-endian std140 encoding of u to dst.
func (u *Uniforms) AppendBytes(dst []byte) []byte {
	dst = appendMat(dst, u.Model)
	dst = appendMat(dst, u.ViewProj)
	dst = appendMat(dst, u.Normal)
	dst = appendVec4(dst, u.BaseColor[0], u.BaseColor[1], u.BaseColor[2], u.BaseColor[3])
	dst = appendVec4(dst, u.Emissive[0], u.Emissive[1], u.Emissive[2], u.AlphaCutoff)
	dst = appendVec4(dst, u.CameraPos.X, u.CameraPos.Y, u.CameraPos.Z, u.Shininess)
	dst = appendVec4(dst, u.Ambient[0], u.Ambient[1], u.Ambient[2], float32(min(len(u.Lights), MaxLights)))
	dst = appendVec4(dst, u.Exposure, u.ShadowBias, 0, 0)
	for i := range u.ShadowMatrices {
		dst = appendMat(dst, u.ShadowMatrices[i])
	}
	for i := 0; i < MaxLights; i++ {
		var l LightUniform
		l.Shadow = -1
		if i < len(u.Lights) {
			l = u.Lights[i]
		}
		dst = appendVec4(dst, l.Position.X, l.Position.Y, l.Position.Z, float32(l.Kind))
		dst = appendVec4(dst, l.Direction.X, l.Direction.Y, l.Direction.Z, float32(l.Shadow))
		dst = appendVec4(dst, l.Color[0], l.Color[1], l.Color[2], l.Range)
		dst = appendVec4(dst, l.InnerCos, l.OuterCos, 0, 0)
	}
	return dst
}

func appendMat(dst []byte, m geom.Mat4) []byte {
	for _, v := range m {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
	}
	return dst
}

func appendVec4(dst []byte, x, y, z, w float32) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(x))
	dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(y))
	dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(z))
	return binary.LittleEndian.AppendUint32(dst, math.Float32bits(w))
}

// Bind group 0 layout shared by the WGSL templates and GPU backends.
const (
	// BindingUniforms holds the Uniforms block.
	BindingUniforms = 0
	// BindingBaseColor holds the unit 0 texture.
	BindingBaseColor = 1
	// BindingBaseColorSampler holds the unit 0 sampler.
	BindingBaseColorSampler = 2
	// BindingShadow0 holds shadow slot 0; slot i is at BindingShadow0+i.
	// Shadow maps are read with textureLoad and have no sampler.
	BindingShadow0 = 3
	// BindingGBufferPosition and BindingGBufferNormal hold the
	// G-buffer inputs of light programs, read with textureLoad.
	BindingGBufferPosition = BindingShadow0 + MaxShadows
	BindingGBufferNormal   = BindingGBufferPosition + 1
)
