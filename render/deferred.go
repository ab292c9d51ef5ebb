// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"fmt"

	"github.com/gogpu/g3d/gpucore"
	"github.com/gogpu/g3d/shader"
	"github.com/gogpu/g3d/target"
	"github.com/gogpu/gputypes"
)

// GeometryPass writes albedo, world position and normal of every
// visible object into the G-buffer. Lighting happens later in
// LightPass. Transparent materials are written like opaque ones.
type GeometryPass struct{}

// Name returns "geometry".
func (GeometryPass) Name() string { return "geometry" }

// Run fills the G-buffer.
func (GeometryPass) Run(pc *PassContext) error {
	f := pc.Frame
	gb, err := pc.pipeline.gbufferTarget(pc)
	if err != nil {
		return err
	}

	items := make([]item, 0, len(f.Objects))
	for i := range f.Objects {
		o := &f.Objects[i]
		if o.Hidden {
			continue
		}
		m := o.material()
		feat := shader.NewFeatures(shader.StageGeometry, shader.Unlit, m.Channels())
		items = append(items, item{index: i, obj: o, fp: feat.Fingerprint()})
	}
	items = sortItems(items, f.Camera.Position)

	viewProj := f.Camera.ViewProj()
	err = pc.Targets.With(gb, func() error {
		if err := pc.Targets.Clear(); err != nil {
			return err
		}
		for _, it := range items {
			o := it.obj
			if o.Vertices.IsZero() {
				return &PassError{Pass: "geometry", Object: o.Name, Err: ErrNoGeometry}
			}
			prog, skip, err := pc.Program(it.fp.Features())
			if err != nil {
				return &PassError{Pass: "geometry", Object: o.Name, Err: err}
			}
			if skip {
				continue
			}
			m := o.material()
			model := o.model()
			ps := m.State()
			ps.Depth, ps.Blend = gpucore.DepthDefault(), gpucore.BlendNone
			cmd := DrawCommand{
				Program:  prog,
				Vertices: o.Vertices,
				Indices:  o.Indices,
				Count:    o.Count,
				First:    o.First,
				State:    ps,
				Uniforms: gpucore.Uniforms{
					Model:       model,
					Normal:      model.NormalMatrix(),
					ViewProj:    viewProj,
					BaseColor:   m.BaseColor,
					AlphaCutoff: m.AlphaCutoff,
				},
			}
			cmd.Textures[gpucore.UnitBaseColor] = m.BaseColorMap
			if err := pc.Draw(&cmd); err != nil {
				return &PassError{Pass: "geometry", Object: o.Name, Err: err}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	pc.gbuffer = gb
	return nil
}

// LightPass shades the G-buffer with one fullscreen draw per light.
// The first draw replaces the destination and adds the ambient term;
// the others blend additively. Texels no geometry covered keep the
// destination's clear color.
type LightPass struct {
	// Lighting selects the model; Unlit falls back to Lambert.
	Lighting shader.Lighting
	// Shininess is the Blinn-Phong exponent for every surface.
	Shininess float32
}

// Name returns "light".
func (LightPass) Name() string { return "light" }

// Run lights the G-buffer into the final target, or into an
// intermediate target when post effects follow, and then lets the
// overlay paint into the same target.
func (lp LightPass) Run(pc *PassContext) error {
	f := pc.Frame
	gb := pc.GBuffer()
	if gb == nil {
		return ErrNoGBuffer
	}
	if len(f.Lights) > gpucore.MaxLights {
		return fmt.Errorf("%w: %d, max %d", ErrTooManyLights, len(f.Lights), gpucore.MaxLights)
	}
	lighting := lp.Lighting
	if lighting == shader.Unlit {
		lighting = shader.Lambert
	}

	dest := pc.FinalTarget()
	if len(f.Effects) > 0 {
		t, err := pc.Intermediate(0)
		if err != nil {
			return err
		}
		dest = t
	}

	base, err := frameUniforms(pc)
	if err != nil {
		return err
	}
	base.Shininess = lp.Shininess
	lights := base.Lights

	return pc.Targets.With(dest, func() error {
		if err := clearFinal(pc, dest); err != nil {
			return err
		}
		for i := 0; i < max(len(lights), 1); i++ {
			cmd := DrawCommand{
				State: gpucore.PipelineState{
					Depth: gpucore.DepthDisabled(),
					Blend: gpucore.BlendNone,
					Cull:  gpucore.CullNone(),
				},
				Uniforms: base,
			}
			cmd.Uniforms.Lights = nil
			if i > 0 {
				cmd.State.Blend = gpucore.BlendAdditive
				cmd.Uniforms.Ambient = [3]float32{}
			}
			shadows := 0
			if i < len(lights) {
				l := lights[i]
				if l.Shadow >= 0 {
					cmd.Uniforms.ShadowMatrices[0] = pc.shadows[l.Shadow].Matrix
					cmd.Textures[gpucore.UnitShadow0] = pc.shadows[l.Shadow].Texture
					l.Shadow, shadows = 0, 1
				}
				cmd.Uniforms.Lights = []gpucore.LightUniform{l}
			}
			prog, skip, err := pc.Program(shader.NewFeatures(shader.StageLight, lighting,
				shader.Lights(len(cmd.Uniforms.Lights)), shader.Shadows(shadows)))
			if err != nil {
				return err
			}
			if skip {
				continue
			}
			cmd.Program = prog
			cmd.Textures[gpucore.UnitBaseColor] = gb.Color(gpucore.GBufferAlbedo)
			cmd.Textures[gpucore.UnitGBufferPosition] = gb.Color(gpucore.GBufferPosition)
			cmd.Textures[gpucore.UnitGBufferNormal] = gb.Color(gpucore.GBufferNormal)
			if err := pc.Draw(&cmd); err != nil {
				return err
			}
		}
		if ov := pc.pipeline.overlay; ov != nil {
			if err := ov.Paint(&OverlayContext{pc: pc}); err != nil {
				return &PassError{Pass: "overlay", Err: err}
			}
		}
		pc.SetOutput(dest)
		return nil
	})
}

// gbufferFormats are the color formats of the G-buffer attachments,
// indexed by gpucore.GBufferAlbedo and friends.
var gbufferFormats = []gputypes.TextureFormat{
	gpucore.GBufferAlbedo:   gputypes.TextureFormatRGBA8Unorm,
	gpucore.GBufferPosition: gputypes.TextureFormatRGBA32Float,
	gpucore.GBufferNormal:   gputypes.TextureFormatRGBA32Float,
}

func (p *Pipeline) gbufferTarget(pc *PassContext) (*target.Target, error) {
	w, h, err := p.Targets.Size(pc.FinalTarget())
	if err != nil {
		return nil, err
	}
	if t := p.gbuffer; t != nil {
		if tw, th := t.Size(); tw == w && th == h && p.Registry.Valid(t.Color(0)) {
			return t, nil
		}
		_ = p.Targets.Release(t)
		p.gbuffer = nil
	}
	t, err := p.Targets.Create(target.Spec{
		Name:   "gbuffer",
		Width:  w,
		Height: h,
		Color:  gbufferFormats,
		Depth:  p.depthFormat,
		Clear:  target.ClearAll(gputypes.Color{}),
	})
	if err != nil {
		return nil, err
	}
	p.gbuffer = t
	return t, nil
}
