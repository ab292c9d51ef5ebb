// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"fmt"

	"github.com/gogpu/g3d/gpucore"
	"github.com/gogpu/g3d/shader"
	"github.com/gogpu/g3d/target"
)

// ColorPass shades the visible objects into the final target, or into
// an intermediate target when post effects follow, and then lets the
// overlay paint into the same target.
type ColorPass struct{}

// Name returns "color".
func (ColorPass) Name() string { return "color" }

// Run draws the frame's objects.
func (ColorPass) Run(pc *PassContext) error {
	f := pc.Frame
	if len(f.Lights) > gpucore.MaxLights {
		return fmt.Errorf("%w: %d, max %d", ErrTooManyLights, len(f.Lights), gpucore.MaxLights)
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

	items := make([]item, 0, len(f.Objects))
	for i := range f.Objects {
		o := &f.Objects[i]
		if o.Hidden {
			continue
		}
		m := o.material()
		feat := shader.NewFeatures(shader.StageForward, m.Lighting, m.Channels(),
			shader.Lights(len(f.Lights)), shader.Shadows(len(pc.shadows)))
		items = append(items, item{index: i, obj: o, fp: feat.Fingerprint()})
	}
	items = sortItems(items, f.Camera.Position)

	return pc.Targets.With(dest, func() error {
		if err := clearFinal(pc, dest); err != nil {
			return err
		}
		for _, it := range items {
			if err := drawObject(pc, it, &base); err != nil {
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

func clearFinal(pc *PassContext, dest *target.Target) error {
	p := dest.ClearPolicy()
	if pc.Frame.Clear != nil {
		p = *pc.Frame.Clear
	} else if dest != pc.FinalTarget() {
		p = pc.FinalTarget().ClearPolicy()
		p.Depth, p.DepthValue = true, 1
	}
	if !p.Any() {
		return nil
	}
	return pc.State.Adapter().Clear(p.Op())
}

// frameUniforms fills the per-frame part of the uniform block: camera,
// ambient, lights and shadow matrices.
func frameUniforms(pc *PassContext) (gpucore.Uniforms, error) {
	f := pc.Frame
	u := gpucore.Uniforms{
		ViewProj:   f.Camera.ViewProj(),
		CameraPos:  f.Camera.Position,
		Ambient:    f.Ambient,
		Exposure:   f.Exposure,
		ShadowBias: pc.pipeline.shadowBias,
	}
	for i := range f.Lights {
		l := &f.Lights[i]
		slot := -1
		if l.CastShadows {
			slot = pc.ShadowSlot(i)
			if slot < 0 {
				return u, fmt.Errorf("%w: light %d", ErrNoShadowMap, i)
			}
			u.ShadowMatrices[slot] = pc.shadows[slot].Matrix
		}
		u.Lights = append(u.Lights, l.uniform(slot))
	}
	return u, nil
}

func drawObject(pc *PassContext, it item, base *gpucore.Uniforms) error {
	o := it.obj
	if o.Vertices.IsZero() {
		return &PassError{Pass: "color", Object: o.Name, Err: ErrNoGeometry}
	}
	prog, skip, err := pc.Program(it.fp.Features())
	if err != nil {
		return &PassError{Pass: "color", Object: o.Name, Err: err}
	}
	if skip {
		return nil
	}
	m := o.material()
	model := o.model()

	cmd := DrawCommand{
		Program:  prog,
		Vertices: o.Vertices,
		Indices:  o.Indices,
		Count:    o.Count,
		First:    o.First,
		State:    m.State(),
		Uniforms: *base,
	}
	cmd.Uniforms.Model = model
	cmd.Uniforms.Normal = model.NormalMatrix()
	cmd.Uniforms.BaseColor = m.BaseColor
	cmd.Uniforms.Emissive = m.Emissive
	cmd.Uniforms.AlphaCutoff = m.AlphaCutoff
	cmd.Uniforms.Shininess = m.Shininess
	cmd.Textures[gpucore.UnitBaseColor] = m.BaseColorMap
	if it.fp.Features().Shadows > 0 {
		for s, sm := range pc.shadows {
			cmd.Textures[gpucore.UnitShadow0+s] = sm.Texture
		}
	}
	if err := pc.Draw(&cmd); err != nil {
		return &PassError{Pass: "color", Object: o.Name, Err: err}
	}
	return nil
}
