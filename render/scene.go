// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"github.com/chewxy/math32"
	"github.com/gogpu/g3d/geom"
	"github.com/gogpu/g3d/gpucore"
	"github.com/gogpu/g3d/resource"
	"github.com/gogpu/g3d/shader"
	"github.com/gogpu/g3d/target"
	"github.com/gogpu/gputypes"
)

// Material holds the shading parameters of an object.
type Material struct {
	Name     string
	Lighting shader.Lighting

	// BaseColor is the linear RGBA albedo.
	BaseColor [4]float32
	// BaseColorMap multiplies BaseColor when non-zero.
	BaseColorMap resource.Texture
	// VertexColor multiplies BaseColor by the vertex color attribute.
	VertexColor bool
	// Emissive is added after lighting when non-black.
	Emissive [3]float32
	// AlphaCutoff discards fragments with lower alpha when positive.
	AlphaCutoff float32
	// Shininess is the Blinn-Phong exponent.
	Shininess float32

	// Transparent objects are drawn after opaque ones, back to front,
	// without depth writes.
	Transparent bool
	// Blend is the blend mode of transparent objects. BlendNone selects
	// BlendAlpha.
	Blend gpucore.BlendMode
	// DoubleSided disables back-face culling.
	DoubleSided bool
}

var defaultMaterial = Material{Name: "default", BaseColor: [4]float32{1, 1, 1, 1}}

// Channels returns the shader channels the material uses.
func (m *Material) Channels() shader.Channels {
	var c shader.Channels
	if !m.BaseColorMap.IsZero() {
		c |= shader.ChannelBaseColorMap
	}
	if m.VertexColor {
		c |= shader.ChannelVertexColor
	}
	if m.Emissive != [3]float32{} {
		c |= shader.ChannelEmissive
	}
	if m.AlphaCutoff > 0 {
		c |= shader.ChannelAlphaCutoff
	}
	return c
}

// State returns the fixed-function state the material is drawn with.
func (m *Material) State() gpucore.PipelineState {
	s := gpucore.PipelineState{Depth: gpucore.DepthDefault(), Blend: gpucore.BlendNone, Cull: gpucore.CullBack()}
	if m.DoubleSided {
		s.Cull = gpucore.CullNone()
	}
	if m.Transparent {
		s.Depth = gpucore.DepthReadOnly()
		s.Blend = m.Blend
		if s.Blend == gpucore.BlendNone {
			s.Blend = gpucore.BlendAlpha
		}
	}
	return s
}

// Object is one drawable instance.
type Object struct {
	Name     string
	Vertices resource.Buffer
	// Indices selects indexed drawing when non-zero.
	Indices resource.Buffer
	// Count is the number of vertices or indices to draw. Zero draws
	// everything last uploaded.
	Count int
	First int

	// Model is the object-to-world transform. The zero matrix is treated
	// as the identity.
	Model geom.Mat4
	// Bounds is the object-space bounding box, used for transparent
	// sorting and shadow frustum fitting.
	Bounds geom.AABB

	// Material is the shading description. Nil selects an unlit white
	// material.
	Material *Material

	CastShadows bool
	Hidden      bool
}

func (o *Object) material() *Material {
	if o.Material == nil {
		return &defaultMaterial
	}
	return o.Material
}

func (o *Object) model() geom.Mat4 {
	return orIdentity(o.Model)
}

// WorldBounds returns Bounds transformed by Model. Objects without
// bounds are treated as a point at their origin.
func (o *Object) WorldBounds() geom.AABB {
	m := o.model()
	if o.Bounds.Empty() {
		return geom.BoundsOf(m.TransformPoint(geom.Vec3{}))
	}
	return o.Bounds.Transform(m)
}

// Light is a directional, point or spot light.
type Light struct {
	Kind      gpucore.LightKind
	Position  geom.Vec3
	Direction geom.Vec3
	Color     [3]float32
	Intensity float32
	// Range limits point and spot lights; zero means unlimited.
	Range float32
	// InnerAngle and OuterAngle bound the spot cone, in radians.
	InnerAngle float32
	OuterAngle float32

	// CastShadows requests a shadow map. Point lights cannot cast.
	CastShadows bool
	// ShadowMapSize overrides the pipeline's shadow map size.
	ShadowMapSize int
}

// DirectionalLight returns a light shining along dir.
func DirectionalLight(dir geom.Vec3, color [3]float32, intensity float32) Light {
	return Light{Kind: gpucore.LightDirectional, Direction: dir, Color: color, Intensity: intensity}
}

// PointLight returns a light radiating from pos.
func PointLight(pos geom.Vec3, color [3]float32, intensity, rng float32) Light {
	return Light{Kind: gpucore.LightPoint, Position: pos, Color: color, Intensity: intensity, Range: rng}
}

// SpotLight returns a cone light at pos pointing along dir.
func SpotLight(pos, dir geom.Vec3, color [3]float32, intensity, rng, inner, outer float32) Light {
	return Light{
		Kind: gpucore.LightSpot, Position: pos, Direction: dir, Color: color,
		Intensity: intensity, Range: rng, InnerAngle: inner, OuterAngle: outer,
	}
}

func (l *Light) uniform(shadow int) gpucore.LightUniform {
	return gpucore.LightUniform{
		Kind:      l.Kind,
		Position:  l.Position,
		Direction: l.Direction.Normalize(),
		Color:     [3]float32{l.Color[0] * l.Intensity, l.Color[1] * l.Intensity, l.Color[2] * l.Intensity},
		Range:     l.Range,
		InnerCos:  math32.Cos(l.InnerAngle),
		OuterCos:  math32.Cos(l.OuterAngle),
		Shadow:    shadow,
	}
}

// ShadowMatrix returns the light's view-projection for a shadow map
// covering bounds. Directional lights use an orthographic box around
// the bounding sphere; spot lights a perspective frustum over the cone.
func (l *Light) ShadowMatrix(bounds geom.AABB) geom.Mat4 {
	center, radius := geom.Vec3{}, float32(1)
	if !bounds.Empty() {
		center, radius = bounds.Center(), max(bounds.Radius(), 1e-3)
	}
	dir := l.Direction.Normalize()
	if dir == (geom.Vec3{}) {
		dir = geom.V3(0, -1, 0)
	}
	up := geom.V3(0, 1, 0)
	if math32.Abs(dir.Y) > 0.99 {
		up = geom.V3(0, 0, 1)
	}
	if l.Kind == gpucore.LightDirectional {
		eye := center.Sub(dir.Mul(2 * radius))
		view := geom.LookAt(eye, center, up)
		return geom.Orthographic(-radius, radius, -radius, radius, 0, 4*radius).Mul(view)
	}
	far := l.Range
	if far <= 0 {
		far = l.Position.Sub(center).Len() + radius
	}
	far = max(far, 1)
	fov := min(max(2*l.OuterAngle, 0.1), math32.Pi*0.95)
	view := geom.LookAt(l.Position, l.Position.Add(dir), up)
	return geom.Perspective(fov, 1, 0.05, far).Mul(view)
}

// Camera is a view and projection pair.
type Camera struct {
	View       geom.Mat4
	Projection geom.Mat4
	// Position is the eye position in world space.
	Position geom.Vec3
}

// PerspectiveCamera looks from eye at center.
func PerspectiveCamera(eye, center, up geom.Vec3, fovy, aspect, near, far float32) Camera {
	return Camera{
		View:       geom.LookAt(eye, center, up),
		Projection: geom.Perspective(fovy, aspect, near, far),
		Position:   eye,
	}
}

// Camera2D maps pixel coordinates of a width x height viewport to clip
// space, with the origin at the top-left corner and y growing down.
func Camera2D(width, height float32) Camera {
	return Camera{
		View:       geom.Identity(),
		Projection: geom.Orthographic(0, width, height, 0, -1, 1),
	}
}

// ViewProj returns Projection * View. Zero matrices are treated as the
// identity.
func (c Camera) ViewProj() geom.Mat4 {
	return orIdentity(c.Projection).Mul(orIdentity(c.View))
}

// Frame is the input of one Pipeline.Render call.
type Frame struct {
	Camera  Camera
	Objects []Object
	Lights  []Light
	Ambient [3]float32

	// Target is the final destination. Nil selects the default surface.
	Target *target.Target
	// Clear overrides the clear policy of the final target when set.
	Clear *target.ClearPolicy

	// Effects lists the post effects applied in order.
	Effects []shader.Effect
	// Exposure feeds EffectToneMap. Zero means 1.
	Exposure float32
}

// ClearColor is a convenience for Frame.Clear.
func ClearColor(r, g, b, a float64) *target.ClearPolicy {
	p := target.ClearAll(gputypes.Color{R: r, G: g, B: b, A: a})
	return &p
}

func orIdentity(m geom.Mat4) geom.Mat4 {
	if m == (geom.Mat4{}) {
		return geom.Identity()
	}
	return m
}
