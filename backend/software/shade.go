// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package software

import (
	"github.com/chewxy/math32"
	"github.com/gogpu/g3d/geom"
	"github.com/gogpu/g3d/gpucore"
)

// shade evaluates the fragment stage at pixel (px, py) into outs.
// Geometry programs fill one output per G-buffer attachment, the
// others only outs[0]. It returns false for discarded fragments.
func (b *Backend) shade(px, py int, vary *[numVary]float32, outs *[gpucore.GBufferAttachments][4]float32) bool {
	p := b.prog
	switch p.stage {
	case gpucore.StageDepth:
		return true
	case gpucore.StagePost:
		c := sample(b.units[gpucore.UnitBaseColor], vary[varyUV], vary[varyUV+1])
		outs[0] = postEffect(p.effect, c, b.exposure())
		return true
	case gpucore.StageLight:
		c, ok := b.lightGBuffer(px, py)
		outs[0] = c
		return ok
	}

	u := b.uniforms
	base := u.BaseColor
	if p.vertColor {
		for i := range base {
			base[i] *= vary[varyColor+i]
		}
	}
	if p.baseMap {
		t := sample(b.units[gpucore.UnitBaseColor], vary[varyUV], vary[varyUV+1])
		for i := range base {
			base[i] *= t[i]
		}
	}
	if p.cutoff && base[3] < u.AlphaCutoff {
		return false
	}

	world := geom.V3(vary[varyWorld], vary[varyWorld+1], vary[varyWorld+2])
	normal := geom.V3(vary[varyNormal], vary[varyNormal+1], vary[varyNormal+2])
	if p.stage == gpucore.StageGeometry {
		n := normal.Normalize()
		outs[gpucore.GBufferAlbedo] = base
		outs[gpucore.GBufferPosition] = [4]float32{world.X, world.Y, world.Z, 1}
		// A zero w marks texels no geometry covered.
		outs[gpucore.GBufferNormal] = [4]float32{n.X, n.Y, n.Z, 1}
		return true
	}

	rgb := geom.V3(base[0], base[1], base[2])
	if p.lit() {
		rgb = b.light(rgb, world, normal)
	}
	if p.emissive {
		rgb = rgb.Add(geom.V3(u.Emissive[0], u.Emissive[1], u.Emissive[2]))
	}
	outs[0] = [4]float32{rgb.X, rgb.Y, rgb.Z, base[3]}
	return true
}

// lightGBuffer lights the G-buffer texel at (px, py). It reports false
// for texels no geometry covered.
func (b *Backend) lightGBuffer(px, py int) ([4]float32, bool) {
	n := texelAt(b.units[gpucore.UnitGBufferNormal], px, py)
	if n[3] == 0 {
		return [4]float32{}, false
	}
	albedo := texelAt(b.units[gpucore.UnitBaseColor], px, py)
	rgb := geom.V3(albedo[0], albedo[1], albedo[2])
	if b.prog.lit() {
		w := texelAt(b.units[gpucore.UnitGBufferPosition], px, py)
		rgb = b.light(rgb, geom.V3(w[0], w[1], w[2]), geom.V3(n[0], n[1], n[2]))
	}
	return [4]float32{rgb.X, rgb.Y, rgb.Z, albedo[3]}, true
}

// texelAt loads level 0 of t at (x, y), clamped to its edges.
func texelAt(t *texture, x, y int) [4]float32 {
	return t.load(min(max(x, 0), t.width-1), min(max(y, 0), t.height-1))
}

// light applies the lighting model to the albedo at a world position.
func (b *Backend) light(albedo, world, normal geom.Vec3) geom.Vec3 {
	p, u := b.prog, b.uniforms
	n := normal.Normalize()
	view := u.CameraPos.Sub(world).Normalize()

	out := albedo.MulVec(geom.V3(u.Ambient[0], u.Ambient[1], u.Ambient[2]))
	count := min(p.lights, len(u.Lights))
	for i := 0; i < count; i++ {
		l := u.Lights[i]
		dir, atten := incidence(l, world)
		if atten <= 0 {
			continue
		}
		if l.Shadow >= 0 && l.Shadow < p.shadows {
			atten *= b.visibility(l.Shadow, world)
			if atten == 0 {
				continue
			}
		}
		radiance := geom.V3(l.Color[0], l.Color[1], l.Color[2]).Mul(atten)
		ndl := max(n.Dot(dir), 0)
		out = out.Add(albedo.MulVec(radiance).Mul(ndl))
		if p.shading == gpucore.ShadingBlinnPhong && ndl > 0 {
			h := dir.Add(view).Normalize()
			spec := math32.Pow(max(n.Dot(h), 0), max(u.Shininess, 1))
			out = out.Add(radiance.Mul(spec))
		}
	}
	return out
}

// incidence returns the direction towards the light and its
// attenuation at world position p.
func incidence(l gpucore.LightUniform, p geom.Vec3) (geom.Vec3, float32) {
	if l.Kind == gpucore.LightDirectional {
		return l.Direction.Neg().Normalize(), 1
	}
	toLight := l.Position.Sub(p)
	d := toLight.Len()
	if d == 0 {
		return geom.Vec3{}, 0
	}
	dir := toLight.Mul(1 / d)
	atten := float32(1)
	if l.Range > 0 {
		f := max(1-d/l.Range, 0)
		atten = f * f
	}
	if l.Kind == gpucore.LightSpot {
		cos := dir.Neg().Dot(l.Direction.Normalize())
		atten *= smoothstep(l.OuterCos, l.InnerCos, cos)
	}
	return dir, atten
}

func smoothstep(e0, e1, x float32) float32 {
	if e1 <= e0 {
		if x >= e0 {
			return 1
		}
		return 0
	}
	t := min(max((x-e0)/(e1-e0), 0), 1)
	return t * t * (3 - 2*t)
}

// visibility looks up shadow slot s for world position p: 1 when lit,
// 0 when occluded. Positions outside the shadow frustum are lit.
func (b *Backend) visibility(s int, p geom.Vec3) float32 {
	u := b.uniforms
	clip := u.ShadowMatrices[s].MulVec4(p.Vec4(1))
	if clip.W <= 0 {
		return 1
	}
	ndc := clip.PerspectiveDivide()
	su, sv := ndc.X*0.5+0.5, 0.5-ndc.Y*0.5
	if su < 0 || su > 1 || sv < 0 || sv > 1 || ndc.Z > 1 {
		return 1
	}
	t := b.units[gpucore.UnitShadow0+s]
	x := min(int(su*float32(t.width)), t.width-1)
	y := min(int(sv*float32(t.height)), t.height-1)
	stored := t.load(x, y)[0]
	if ndc.Z-u.ShadowBias > stored {
		return 0
	}
	return 1
}

func (b *Backend) exposure() float32 {
	if b.uniforms == nil || b.uniforms.Exposure == 0 {
		return 1
	}
	return b.uniforms.Exposure
}

// postEffect applies a post-processing effect to one input texel.
func postEffect(e gpucore.Effect, c [4]float32, exposure float32) [4]float32 {
	switch e {
	case gpucore.EffectGrayscale:
		l := 0.2126*c[0] + 0.7152*c[1] + 0.0722*c[2]
		return [4]float32{l, l, l, c[3]}
	case gpucore.EffectToneMap:
		for i := 0; i < 3; i++ {
			c[i] = 1 - math32.Exp(-c[i]*exposure)
		}
		return c
	case gpucore.EffectInvert:
		return [4]float32{1 - c[0], 1 - c[1], 1 - c[2], c[3]}
	default:
		return c
	}
}
